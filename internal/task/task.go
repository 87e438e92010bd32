package task

import "time"

type ID string

const (
	WorkoutIndoor  ID = "workout_indoor"
	WorkoutOutdoor ID = "workout_outdoor"
	Diet           ID = "diet"
	Water          ID = "water"
	Reading        ID = "reading"
	ProgressPhoto  ID = "progress_photo"
)

// Definition is one of the six fixed daily requirements. Definitions are not
// user-customizable.
type Definition struct {
	ID               ID     `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	Icon             string `json:"icon"`
	Target           string `json:"target"`
	RequiresDuration bool   `json:"requires_duration"`
	MinDuration      int    `json:"min_duration_minutes,omitempty"`
}

var definitions = []Definition{
	{
		ID:               WorkoutIndoor,
		Name:             "Indoor Workout",
		Description:      "45 minute workout",
		Icon:             "dumbbell",
		Target:           "45 minutes",
		RequiresDuration: true,
		MinDuration:      45,
	},
	{
		ID:               WorkoutOutdoor,
		Name:             "Outdoor Workout",
		Description:      "45 minute workout, must be outside",
		Icon:             "sun",
		Target:           "45 minutes outdoors",
		RequiresDuration: true,
		MinDuration:      45,
	},
	{
		ID:          Diet,
		Name:        "Follow Diet",
		Description: "No cheat meals, no alcohol",
		Icon:        "salad",
		Target:      "100% adherence",
	},
	{
		ID:          Water,
		Name:        "Drink Water",
		Description: "One gallon of water",
		Icon:        "droplet",
		Target:      "1 gallon",
	},
	{
		ID:          Reading,
		Name:        "Read",
		Description: "10 pages of non-fiction",
		Icon:        "book",
		Target:      "10 pages",
	},
	{
		ID:          ProgressPhoto,
		Name:        "Progress Photo",
		Description: "Take a progress picture",
		Icon:        "camera",
		Target:      "1 photo",
	},
}

// Total is the number of tasks that make a day complete.
const Total = 6

// Definitions returns a copy of the fixed task list in display order.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

func IDs() []ID {
	ids := make([]ID, len(definitions))
	for i, d := range definitions {
		ids[i] = d.ID
	}
	return ids
}

func Lookup(id ID) (Definition, bool) {
	for _, d := range definitions {
		if d.ID == id {
			return d, true
		}
	}
	return Definition{}, false
}

func Valid(id ID) bool {
	_, ok := Lookup(id)
	return ok
}

// State is the per-day sub-record of one task.
type State struct {
	Completed       bool       `json:"completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	PhotoURL        *string    `json:"photo_url,omitempty"`
	ThumbnailURL    *string    `json:"thumbnail_url,omitempty"`
}

// Map holds task states keyed by task id. Ids outside the fixed set may
// appear in legacy rows and are ignored when counting.
type Map map[ID]State

// CountCompleted counts completed tasks among the six known definitions.
func (m Map) CountCompleted() int {
	n := 0
	for _, id := range IDs() {
		if m[id].Completed {
			n++
		}
	}
	return n
}

func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
