package occupancy

import (
	"fmt"
	"sort"
	"time"

	"washroom-tracker-client/config"
	"washroom-tracker-client/internal/model"
	"washroom-tracker-client/internal/parse"
)

// State is the lifecycle state of the sync engine.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateSignedOut
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSignedOut:
		return "signed_out"
	default:
		return "unknown"
	}
}

// MarshalText lets State appear by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Action is what the user can do with a stall right now.
type Action string

const (
	ActionNone         Action = "none"
	ActionOccupy       Action = "occupy"
	ActionRelease      Action = "release"
	ActionJoinWaitlist Action = "join_waitlist"
)

const (
	occupantSelf  = "You"
	occupantOther = "Occupied"
)

// StallView is the display form of a single stall.
type StallView struct {
	ID        int64  `json:"id"`
	Label     string `json:"label"`
	Occupied  bool   `json:"occupied"`
	Mine      bool   `json:"mine"`
	Waiting   bool   `json:"waiting"`
	Occupant  string `json:"occupant,omitempty"`
	Remaining string `json:"remaining,omitempty"`
	Action    Action `json:"action"`
}

// WashroomView is the display form of a washroom. Counts are the server's.
type WashroomView struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	Floor          string         `json:"floor"`
	Level          int            `json:"level"`
	HasLevel       bool           `json:"has_level"`
	Category       model.Category `json:"category"`
	Operational    bool           `json:"operational"`
	AvailableCount int            `json:"available_count"`
	TotalCount     int            `json:"total_count"`
	Summary        string         `json:"summary"`
	Stalls         []StallView    `json:"stalls"`
}

// View is everything the presentation layer renders.
type View struct {
	State      State           `json:"state"`
	Refreshing bool            `json:"refreshing"`
	Identity   *model.Identity `json:"identity,omitempty"`
	Washrooms  []WashroomView  `json:"washrooms"`
	Waiting    []int64         `json:"waiting"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Stall finds a stall by id.
func (v View) Stall(id int64) (WashroomView, StallView, bool) {
	for _, w := range v.Washrooms {
		for _, s := range w.Stalls {
			if s.ID == id {
				return w, s, true
			}
		}
	}
	return WashroomView{}, StallView{}, false
}

// BuildView derives the washroom list from a snapshot. It performs no I/O.
// Washrooms keep the server's order; callers that group by floor use Level.
func BuildView(snapshot model.Snapshot, identity *model.Identity, waiting map[int64]struct{}, ownership config.Ownership) []WashroomView {
	washrooms := make([]WashroomView, 0, len(snapshot))
	for _, w := range snapshot {
		wv := WashroomView{
			ID:             w.ID,
			Name:           w.Name,
			Floor:          w.Floor,
			Category:       w.Category,
			Operational:    w.Operational,
			AvailableCount: w.AvailableCount,
			TotalCount:     w.TotalCount,
			Summary:        fmt.Sprintf("%d of %d available", w.AvailableCount, w.TotalCount),
			Stalls:         make([]StallView, 0, len(w.Stalls)),
		}
		if level, err := parse.Floor(w.Floor); err == nil {
			wv.Level = level
			wv.HasLevel = true
		}
		for _, s := range w.Stalls {
			wv.Stalls = append(wv.Stalls, buildStall(s, identity, waiting, ownership))
		}
		washrooms = append(washrooms, wv)
	}
	return washrooms
}

func buildStall(s model.Stall, identity *model.Identity, waiting map[int64]struct{}, ownership config.Ownership) StallView {
	_, isWaiting := waiting[s.ID]
	sv := StallView{
		ID:       s.ID,
		Label:    s.Label,
		Occupied: s.Occupied,
		Mine:     IsMine(s, identity, ownership),
		Waiting:  isWaiting,
	}

	if s.Occupied {
		sv.Occupant = occupantOther
		if sv.Mine {
			sv.Occupant = occupantSelf
		}
		if s.RemainingMinutes != nil {
			sv.Remaining = fmt.Sprintf("%.2fmin remaining", *s.RemainingMinutes)
		}
	}

	switch {
	case !s.Occupied:
		sv.Action = ActionOccupy
	case sv.Mine:
		sv.Action = ActionRelease
	case !sv.Waiting:
		sv.Action = ActionJoinWaitlist
	default:
		sv.Action = ActionNone
	}
	return sv
}

// IsMine reports whether the stall is occupied by identity. Display names are
// compared unless ownership is by id and the snapshot carries an occupant id.
func IsMine(s model.Stall, identity *model.Identity, ownership config.Ownership) bool {
	if !s.Occupied || identity == nil {
		return false
	}
	if ownership == config.OwnershipByID && s.OccupiedByID != nil {
		return *s.OccupiedByID == identity.ID
	}
	return s.OccupiedByName != nil && *s.OccupiedByName == identity.DisplayName
}

func sortedIDs(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
