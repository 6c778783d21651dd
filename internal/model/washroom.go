package model

// Category is the washroom's gender designation.
type Category string

const (
	CategoryMale   Category = "male"
	CategoryFemale Category = "female"
	CategoryUnisex Category = "unisex"
)

// Washroom is a floor-located group of stalls. AvailableCount and TotalCount
// are computed by the server and must be displayed as received.
type Washroom struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	Floor          string   `json:"floor"`
	Category       Category `json:"type"`
	Operational    bool     `json:"is_operational"`
	AvailableCount int      `json:"available_toilets"`
	TotalCount     int      `json:"total_toilets"`
	Stalls         []Stall  `json:"toilets"`
}

// Stall is a single toilet unit. ID is stable across fetches.
type Stall struct {
	ID               int64    `json:"id"`
	Label            string   `json:"number"`
	Occupied         bool     `json:"is_occupied"`
	OccupiedByName   *string  `json:"occupied_by"`
	OccupiedByID     *int64   `json:"occupied_by_id,omitempty"`
	RemainingMinutes *float64 `json:"time_remaining"`
}

// Snapshot is the full washroom list returned by a single fetch.
type Snapshot []Washroom
