package activity

import (
	"errors"
	"sort"
)

// Domain errors
var (
	ErrEmptyName        = errors.New("activity name cannot be empty")
	ErrNegativeCapacity = errors.New("activity max participants cannot be negative")
)

// Activity is a named extracurricular offering with a participant capacity.
// Capacity is enforced by the activities API; the portal only reports it.
type Activity struct {
	Name            string
	Description     string // Markdown allowed
	Schedule        string
	MaxParticipants int
	Participants    []string // student emails, in sign-up order
}

// Validate checks the fields the portal relies on for display.
// PRE: Activity struct is populated
// POST: Returns nil if valid, error otherwise
func (a Activity) Validate() error {
	if a.Name == "" {
		return ErrEmptyName
	}
	if a.MaxParticipants < 0 {
		return ErrNegativeCapacity
	}
	return nil
}

// SpotsLeft returns max participants minus current participants.
// The result is not clamped: an over-subscribed activity reports a negative value.
func (a Activity) SpotsLeft() int {
	return a.MaxParticipants - len(a.Participants)
}

// Catalog is the full activity collection keyed by activity name.
type Catalog map[string]Activity

// Sorted returns the activities ordered by name.
// PRE: none
// POST: Returns a new slice; the catalog is not mutated
func (c Catalog) Sorted() []Activity {
	out := make([]Activity, 0, len(c))
	for name, a := range c {
		if a.Name == "" {
			a.Name = name
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}
