package app

import "ancile/internal/domain"

// MockInventory is served when the gateway cannot be reached and the
// storefront runs with FallbackMock.
func MockInventory() []domain.RawRoom {
	return []domain.RawRoom{
		{
			"id":        "room_001",
			"name":      "Royal Ocean Suite",
			"price":     450.0,
			"currency":  "USD",
			"image":     premiumImage,
			"features":  []any{"King Bed", "Ocean View", "Personal Butler", "Jacuzzi"},
			"stock":     2.0,
			"maxGuests": 2.0,
		},
		{
			"id":        "room_002",
			"name":      "Executive King",
			"price":     280.0,
			"currency":  "USD",
			"image":     standardImage,
			"features":  []any{"King Bed", "City Skyline View", "Workstation", "Lounge Access"},
			"stock":     5.0,
			"maxGuests": 2.0,
		},
		{
			"id":        "room_003",
			"name":      "Deluxe Twin",
			"price":     195.0,
			"currency":  "USD",
			"image":     "https://images.unsplash.com/photo-1566665797739-1674de7a421a?q=80&w=800&auto=format&fit=crop",
			"features":  []any{"Twin Beds", "Garden View", "Free WiFi", "Breakfast Incl."},
			"stock":     12.0,
			"maxGuests": 2.0,
		},
	}
}
