package app

import (
	"fmt"
	"strconv"
	"strings"

	"ancile/internal/domain"
)

/********** alias registry (mock shape first, gateway shape second) **********/

var roomAliases = map[string][]string{
	"id":       {"id", "room_id"},
	"name":     {"name", "room_type"},
	"price":    {"price", "room_price"},
	"stock":    {"stock", "remaining"},
	"image":    {"image", "image_url"},
	"features": {"features", "amenities"},
	"currency": {"currency"},
	"guests":   {"maxGuests", "max_guests"},
	"location": {"location"},
	"rating":   {"rating"},
	"tags":     {"tags"},
}

const (
	DefaultRoomName = "Standard Room"
	PremiumFeature  = "Butler Service"

	premiumPriceThreshold = 200

	premiumImage  = "https://images.unsplash.com/photo-1611892440504-42a792e24d32?q=80&w=800&auto=format&fit=crop"
	standardImage = "https://images.unsplash.com/photo-1590490360182-c33d57733427?q=80&w=800&auto=format&fit=crop"
)

var defaultFeatures = []string{"Free WiFi", "Breakfast Included"}

// premiumKeywords pick the premium placeholder image. Matching is case-insensitive.
var premiumKeywords = []string{"ocean", "royal", "deluxe"}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, key string) *string {
	for _, p := range roomAliases[key] {
		if s := lookupStr(m, p); s != "" {
			return &s
		}
	}
	return nil
}

// getFloatFlexible: number from several paths (float64/int/string like "8,0").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case int64:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

// firstIntFlexible: int from several paths (float64/int/string). A path that is
// present wins even when its value is zero.
func firstIntFlexible(m map[string]any, paths ...string) *int {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			x := int(v)
			return &x
		case int:
			x := v
			return &x
		case int64:
			x := int(v)
			return &x
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			if n, err := strconv.Atoi(s); err == nil {
				return &n
			}
		}
	}
	return nil
}

// firstSliceStrings: accept []any or []string with plain strings or {url/src/name}.
func firstSliceStrings(m map[string]any, paths ...string) []string {
	for _, k := range paths {
		var raw []any
		switch t := lookupAny(m, k).(type) {
		case []any:
			raw = t
		case []string:
			for _, s := range t {
				raw = append(raw, s)
			}
		default:
			continue
		}
		out := make([]string, 0, len(raw))
		for _, it := range raw {
			switch t := it.(type) {
			case string:
				if t != "" {
					out = append(out, t)
				}
			case map[string]any:
				for _, f := range []string{"url", "src", "name"} {
					if u, ok := t[f].(string); ok && u != "" {
						out = append(out, u)
						break
					}
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

/********** room mapper **********/

// NormalizeInventory maps raw records of either shape onto RoomOffering,
// preserving input order. Missing fields are defaulted, never rejected.
func NormalizeInventory(in []domain.RawRoom) []domain.RoomOffering {
	out := make([]domain.RoomOffering, 0, len(in))
	for _, r := range in {
		out = append(out, NormalizeRoom(r))
	}
	return out
}

func NormalizeRoom(r domain.RawRoom) domain.RoomOffering {
	if r == nil {
		r = domain.RawRoom{}
	}
	ro := domain.RoomOffering{
		ID:          firstNonEmptyAlias(r, "id"),
		DisplayName: DefaultRoomName,
		Currency:    firstNonEmptyAlias(r, "currency"),
		Location:    firstNonEmptyAlias(r, "location"),
		Rating:      getFloatFlexible(r, roomAliases["rating"]...),
		MaxGuests:   firstIntFlexible(r, roomAliases["guests"]...),
		Tags:        firstSliceStrings(r, roomAliases["tags"]...),
	}
	if s := firstNonEmptyAlias(r, "name"); s != nil {
		ro.DisplayName = *s
	}
	if f := getFloatFlexible(r, roomAliases["price"]...); f != nil {
		ro.NightlyPrice = *f
	}
	ro.RemainingUnits = firstIntFlexible(r, roomAliases["stock"]...)

	if s := firstNonEmptyAlias(r, "image"); s != nil {
		ro.ImageURL = *s
	} else {
		ro.ImageURL = placeholderImage(ro.DisplayName)
	}

	if fs := firstSliceStrings(r, roomAliases["features"]...); len(fs) > 0 {
		ro.Features = fs
	} else {
		ro.Features = DefaultFeatures(ro.NightlyPrice)
	}
	return ro
}

// DefaultFeatures is the generic feature list for rooms that ship none.
func DefaultFeatures(price float64) []string {
	fs := append([]string(nil), defaultFeatures...)
	if price > premiumPriceThreshold {
		fs = append(fs, PremiumFeature)
	}
	return fs
}

func placeholderImage(name string) string {
	low := strings.ToLower(name)
	for _, k := range premiumKeywords {
		if strings.Contains(low, k) {
			return premiumImage
		}
	}
	return standardImage
}

// CheckOffering flags records that were defaulted or look malformed.
// Nothing is rejected; callers decide what to do with the issues.
func CheckOffering(ro domain.RoomOffering) []string {
	var issues []string
	if ro.DisplayName == DefaultRoomName {
		issues = append(issues, "missing room name")
	}
	if ro.NightlyPrice < 0 {
		issues = append(issues, fmt.Sprintf("negative price %.2f", ro.NightlyPrice))
	}
	if ro.RemainingUnits == nil {
		issues = append(issues, "missing stock")
	} else if *ro.RemainingUnits < 0 {
		issues = append(issues, fmt.Sprintf("negative stock %d", *ro.RemainingUnits))
	}
	return issues
}

/********** cards **********/

// BuildCards normalizes, labels, and checks every record.
func BuildCards(in []domain.RawRoom) []domain.RoomCard {
	offers := NormalizeInventory(in)
	cards := make([]domain.RoomCard, 0, len(offers))
	for _, o := range offers {
		cards = append(cards, domain.RoomCard{
			Offering: o,
			Stock:    LabelStock(o.RemainingUnits),
			Issues:   CheckOffering(o),
		})
	}
	return cards
}
