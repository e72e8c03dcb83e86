package draft

import (
	"context"
	"errors"

	"github.com/mumu-bot/teamdraft/go/internal/draft/events"
	"github.com/mumu-bot/teamdraft/go/internal/models"
)

// Repository errors. Implementations must return these sentinel values so the
// application layer can map them to user-facing error kinds.
var (
	ErrDraftNotFound = errors.New("draft not found")
	ErrDraftExists   = errors.New("draft already exists in channel")
)

// Repository stores drafts keyed by channel. One draft per channel at most.
type Repository interface {
	// Create inserts a draft, failing with ErrDraftExists when the channel
	// already has one.
	Create(ctx context.Context, d *models.Draft) error
	// Save overwrites an existing draft.
	Save(ctx context.Context, d *models.Draft) error
	// Get returns the channel's draft or ErrDraftNotFound.
	Get(ctx context.Context, channelID int64) (*models.Draft, error)
	// Delete removes the channel's draft. Deleting a missing draft is not an
	// error.
	Delete(ctx context.Context, channelID int64) error
	// ListActive returns every stored draft that is not completed.
	ListActive(ctx context.Context) ([]*models.Draft, error)
}

// Presenter renders draft state to wherever users are watching. The
// application service calls it after every state change; implementations must
// not mutate the snapshot.
type Presenter interface {
	ShowLobby(ctx context.Context, s *events.Snapshot) error
	ShowCaptainVoting(ctx context.Context, s *events.Snapshot) error
	ShowBanPhase(ctx context.Context, s *events.Snapshot) error
	ShowServantSelection(ctx context.Context, s *events.Snapshot) error
	ShowSelectionProgress(ctx context.Context, channelID int64, p *events.Progress) error
	ShowDiceReport(ctx context.Context, channelID int64, reports []events.Dice) error
	ShowTeamSelection(ctx context.Context, s *events.Snapshot) error
	ShowResults(ctx context.Context, s *events.Snapshot) error
	UpdateStatus(ctx context.Context, channelID int64, message string) error
	CleanupChannel(ctx context.Context, channelID int64) error
}

// ThreadService manages the per-draft discussion thread, when the chat
// surface supports threads.
type ThreadService interface {
	CreateThread(ctx context.Context, channelID int64, name string) (int64, error)
	ArchiveThread(ctx context.Context, threadID int64) error
}

// MatchRecorder persists completed drafts and their reported outcomes.
type MatchRecorder interface {
	RecordMatch(ctx context.Context, rec *models.MatchRecord) error
	RecordMatchOutcome(ctx context.Context, channelID int64, winner int, score string) error
}

// BalanceCalculator proposes a team split from player ratings. Informational
// only.
type BalanceCalculator interface {
	Suggest(ctx context.Context, d *models.Draft) (*models.BalanceSuggestion, error)
}
