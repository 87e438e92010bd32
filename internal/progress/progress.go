package progress

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"goTheNineAPI/internal/task"
)

// DailyProgress is the record of one challenge day. IsComplete is a cached
// derivation of TasksCompleted == task.Total and is refreshed by Recount on
// every mutation.
type DailyProgress struct {
	ID             uuid.UUID `json:"id" db:"id"`
	ChallengeID    uuid.UUID `json:"challenge_id" db:"challenge_id"`
	Date           string    `json:"date" db:"date"`
	Tasks          task.Map  `json:"tasks" db:"tasks"`
	TasksCompleted int       `json:"tasks_completed" db:"tasks_completed"`
	IsComplete     bool      `json:"is_complete" db:"is_complete"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Empty is the default substituted when a day has no record yet.
func Empty(challengeID uuid.UUID, date string) *DailyProgress {
	return &DailyProgress{
		ChallengeID: challengeID,
		Date:        date,
		Tasks:       task.Map{},
	}
}

func (p *DailyProgress) Recount() {
	if p.Tasks == nil {
		p.Tasks = task.Map{}
	}
	p.TasksCompleted = p.Tasks.CountCompleted()
	p.IsComplete = p.TasksCompleted == task.Total
}

// Clone returns a deep-enough copy for rollback: the task map is copied, the
// pointer fields inside each state are shared but never mutated in place.
func (p *DailyProgress) Clone() *DailyProgress {
	c := *p
	c.Tasks = p.Tasks.Clone()
	return &c
}

// ApplyToggle sets the completed flag of one task, keeping its notes,
// duration and photo, and recounts the day.
func ApplyToggle(p *DailyProgress, id task.ID, completed bool, at time.Time) error {
	if !task.Valid(id) {
		return fmt.Errorf("unknown task %q", id)
	}
	if p.Tasks == nil {
		p.Tasks = task.Map{}
	}

	st := p.Tasks[id]
	st.Completed = completed
	if completed {
		ts := at
		st.CompletedAt = &ts
	} else {
		st.CompletedAt = nil
	}
	p.Tasks[id] = st

	p.Recount()
	return nil
}

type Details struct {
	DurationMinutes *int    `json:"duration_minutes,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

// ApplyDetails updates the optional fields of a task without touching its
// completion state. Nil fields are left as they are.
func ApplyDetails(p *DailyProgress, id task.ID, d Details) error {
	if !task.Valid(id) {
		return fmt.Errorf("unknown task %q", id)
	}
	if d.DurationMinutes != nil && *d.DurationMinutes < 0 {
		return fmt.Errorf("duration must not be negative")
	}
	if p.Tasks == nil {
		p.Tasks = task.Map{}
	}

	st := p.Tasks[id]
	if d.DurationMinutes != nil {
		v := *d.DurationMinutes
		st.DurationMinutes = &v
	}
	if d.Notes != nil {
		v := *d.Notes
		st.Notes = &v
	}
	p.Tasks[id] = st

	p.Recount()
	return nil
}

// AttachPhoto records an uploaded progress photo and completes the photo
// task.
func AttachPhoto(p *DailyProgress, url, thumbnailURL string, at time.Time) {
	if p.Tasks == nil {
		p.Tasks = task.Map{}
	}
	st := p.Tasks[task.ProgressPhoto]
	st.PhotoURL = &url
	if thumbnailURL != "" {
		st.ThumbnailURL = &thumbnailURL
	}
	if !st.Completed {
		st.Completed = true
		ts := at
		st.CompletedAt = &ts
	}
	p.Tasks[task.ProgressPhoto] = st
	p.Recount()
}
