package draft

import (
	"github.com/mumu-bot/teamdraft/go/internal/draft/events"
	"github.com/mumu-bot/teamdraft/go/internal/draft/orchestrator"
	"github.com/mumu-bot/teamdraft/go/internal/models"
)

// ErrorKind classifies how an operation failed so the caller can phrase the
// failure without parsing messages. None means the operation succeeded.
type ErrorKind string

const (
	ErrorNone          ErrorKind = ""
	ErrorInvalidState  ErrorKind = "invalid_state"
	ErrorNotFound      ErrorKind = "not_found"
	ErrorCapacity      ErrorKind = "capacity"
	ErrorDuplicate     ErrorKind = "duplicate"
	ErrorBadTransition ErrorKind = "invalid_phase_transition"
	ErrorUnavailable   ErrorKind = "unavailable_resource"
	ErrorUnauthorized  ErrorKind = "unauthorized_actor"
	ErrorValidation    ErrorKind = "validation"
	ErrorInternal      ErrorKind = "internal"
)

// Result is the outcome envelope every operation returns. A failed operation
// never panics and never leaves partially-applied state behind.
type Result struct {
	Success bool      `json:"success"`
	Kind    ErrorKind `json:"kind,omitempty"`
	Message string    `json:"message,omitempty"`
	// Reasons carries validation failures verbatim when Kind is validation.
	Reasons []string `json:"reasons,omitempty"`

	Phase    models.DraftPhase `json:"phase,omitempty"`
	Snapshot *events.Snapshot  `json:"snapshot,omitempty"`
}

func ok(d *models.Draft, s *events.Snapshot, message string) *Result {
	r := &Result{Success: true, Message: message, Snapshot: s}
	if d != nil {
		r.Phase = d.Phase
	}
	return r
}

func fail(kind ErrorKind, message string) *Result {
	return &Result{Success: false, Kind: kind, Message: message}
}

func failValidation(reasons []string) *Result {
	msg := ""
	if len(reasons) > 0 {
		msg = reasons[0]
	}
	return &Result{Success: false, Kind: ErrorValidation, Message: msg, Reasons: reasons}
}

// VoteResult extends Result with the vote toggle outcome.
type VoteResult struct {
	Result
	Added      bool          `json:"added"`
	VoteCounts map[int64]int `json:"vote_counts,omitempty"`
}

// BanResult extends Result with whose turn is next and whether the ban phase
// finished.
type BanResult struct {
	Result
	NextBanner   int64 `json:"next_banner,omitempty"`
	BansComplete bool  `json:"bans_complete"`
}

// SelectionResult extends Result with phase-advance details when the last
// selection triggered a conflict check.
type SelectionResult struct {
	Result
	Progress   *events.Progress         `json:"progress,omitempty"`
	Transition *orchestrator.Transition `json:"transition,omitempty"`
}

// PickResult extends Result with the picking turn state.
type PickResult struct {
	Result
	NextPicker     int64 `json:"next_picker,omitempty"`
	PicksRemaining int   `json:"picks_remaining"`
	DraftComplete  bool  `json:"draft_complete"`
}
