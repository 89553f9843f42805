package domain

// Group is an event microsite (a wedding, a summit) with its room blocks.
type Group struct {
	ID        string
	Subdomain string
	Name      string
	HeroImage string
	EventDate string
	Blocks    []InventoryBlock
}

// InventoryBlock is the allocation a group holds for one room type.
type InventoryBlock struct {
	GroupID        string
	Subdomain      string
	RoomType       string
	Price          float64
	TotalAllocated int
	TotalBooked    int
}

// Remaining is what can still be sold once active holds are subtracted.
func (b InventoryBlock) Remaining(activeLocks int) int {
	n := b.TotalAllocated - (b.TotalBooked + activeLocks)
	if n < 0 {
		return 0
	}
	return n
}

// GroupView is the wire shape of GET /groups/{subdomain}.
type GroupView struct {
	GroupID   string    `json:"group_id"`
	Name      string    `json:"name"`
	HeroImage string    `json:"hero_image"`
	Inventory []RawRoom `json:"inventory"`
}

// Region is one row of the supply-gap heatmap.
type Region struct {
	City        string `json:"city"`
	Country     string `json:"country"`
	Month       string `json:"month"`
	DemandScore int    `json:"demand_score"`
	SupplyRooms int    `json:"supply_rooms"`
	Alert       string `json:"alert"`
}
