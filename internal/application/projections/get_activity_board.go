package projections

import (
	"context"
	"log/slog"

	"portal/internal/domain/activity"
	"portal/internal/domain/session"
)

// TextLoadFailed replaces the activity list when the catalog cannot be fetched.
const TextLoadFailed = "Failed to load activities. Please try again later."

// TextNoParticipants is shown on a card with nobody signed up.
const TextNoParticipants = "No participants yet"

// ActivityLister fetches the catalog.
type ActivityLister interface {
	ListActivities(ctx context.Context) (activity.Catalog, error)
}

// GetActivityBoardDeps holds dependencies for the projection.
type GetActivityBoardDeps struct {
	API ActivityLister
}

// ParticipantView is one student row on a card.
type ParticipantView struct {
	Email     string
	Activity  string
	CanRemove bool // delete button shown
}

// ActivityCard is one rendered activity.
type ActivityCard struct {
	Name            string
	Description     string
	Schedule        string
	MaxParticipants int
	SpotsLeft       int
	Participants    []ParticipantView
}

// HasParticipants reports whether the card shows a list or the placeholder.
func (c ActivityCard) HasParticipants() bool {
	return len(c.Participants) > 0
}

// ActivityBoard is everything the page needs from the catalog and session.
type ActivityBoard struct {
	Cards       []ActivityCard
	Options     []string // signup dropdown, same order as Cards
	LoadFailed  bool
	IsTeacher   bool
	TeacherName string
}

// BuildActivityBoard maps a catalog to cards for the given session.
// Delete buttons are present iff the session is authenticated.
// PRE: none
// POST: len(Cards) == len(Options) == len(catalog); inputs are not mutated
func BuildActivityBoard(catalog activity.Catalog, sess session.Session) ActivityBoard {
	isTeacher := sess.IsAuthenticated()
	board := ActivityBoard{
		Cards:       make([]ActivityCard, 0, len(catalog)),
		Options:     make([]string, 0, len(catalog)),
		IsTeacher:   isTeacher,
		TeacherName: sess.TeacherName(),
	}
	for _, a := range catalog.Sorted() {
		card := ActivityCard{
			Name:            a.Name,
			Description:     a.Description,
			Schedule:        a.Schedule,
			MaxParticipants: a.MaxParticipants,
			SpotsLeft:       a.SpotsLeft(),
			Participants:    make([]ParticipantView, 0, len(a.Participants)),
		}
		for _, email := range a.Participants {
			card.Participants = append(card.Participants, ParticipantView{
				Email:     email,
				Activity:  a.Name,
				CanRemove: isTeacher,
			})
		}
		board.Cards = append(board.Cards, card)
		board.Options = append(board.Options, a.Name)
	}
	return board
}

// QueryGetActivityBoard fetches the catalog and builds the board.
// A fetch failure yields an empty board with LoadFailed set; it is logged, not retried.
// PRE: none
// POST: Returns a renderable board in every case; err reports the fetch failure
func QueryGetActivityBoard(ctx context.Context, sess session.Session, deps GetActivityBoardDeps) (ActivityBoard, error) {
	catalog, err := deps.API.ListActivities(ctx)
	if err != nil {
		slog.Error("activities_load_failed", "error", err.Error())
		board := BuildActivityBoard(nil, sess)
		board.LoadFailed = true
		return board, err
	}
	return BuildActivityBoard(catalog, sess), nil
}
