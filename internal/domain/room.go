package domain

// RawRoom is an inventory record as received from a source. Two shapes are
// in circulation: the mock shape {id, name, price, stock, image, features}
// and the gateway shape {room_type, price, remaining}.
type RawRoom = map[string]any

// RoomOffering is the display-ready representation of a bookable unit.
// It is rebuilt from raw records on every load and never persisted.
type RoomOffering struct {
	ID             *string  `json:"id,omitempty"`
	DisplayName    string   `json:"display_name"`
	NightlyPrice   float64  `json:"nightly_price"`
	RemainingUnits *int     `json:"remaining_units,omitempty"` // nil when the source reports neither stock nor remaining
	ImageURL       string   `json:"image_url"`
	Features       []string `json:"features"`
	Currency       *string  `json:"currency,omitempty"`
	MaxGuests      *int     `json:"max_guests,omitempty"`
	Location       *string  `json:"location,omitempty"`
	Rating         *float64 `json:"rating,omitempty"`
	Tags           []string `json:"tags,omitempty"`
}

type StockTier string

const (
	TierLow     StockTier = "low"
	TierNormal  StockTier = "normal"
	TierUnknown StockTier = "unknown"
)

type StockLabel struct {
	Text string    `json:"text"`
	Tier StockTier `json:"tier"`
}

// RoomCard pairs an offering with its availability label.
type RoomCard struct {
	Offering RoomOffering `json:"offering"`
	Stock    StockLabel   `json:"stock"`
	Issues   []string     `json:"issues,omitempty"`
}
