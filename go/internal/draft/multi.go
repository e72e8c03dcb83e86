package draft

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/mumu-bot/teamdraft/go/internal/draft/events"
)

// MultiPresenter fans every presenter call out to several sinks, typically
// the NATS publisher plus the websocket gateway. Individual sink failures are
// logged and swallowed so one dead surface cannot block the others.
type MultiPresenter struct {
	sinks []Presenter
}

func NewMultiPresenter(sinks ...Presenter) *MultiPresenter {
	return &MultiPresenter{sinks: sinks}
}

func (m *MultiPresenter) each(call func(Presenter) error) error {
	for _, sink := range m.sinks {
		if err := call(sink); err != nil {
			log.Warn().Err(err).Msg("presenter sink failed")
		}
	}
	return nil
}

func (m *MultiPresenter) ShowLobby(ctx context.Context, s *events.Snapshot) error {
	return m.each(func(p Presenter) error { return p.ShowLobby(ctx, s) })
}

func (m *MultiPresenter) ShowCaptainVoting(ctx context.Context, s *events.Snapshot) error {
	return m.each(func(p Presenter) error { return p.ShowCaptainVoting(ctx, s) })
}

func (m *MultiPresenter) ShowBanPhase(ctx context.Context, s *events.Snapshot) error {
	return m.each(func(p Presenter) error { return p.ShowBanPhase(ctx, s) })
}

func (m *MultiPresenter) ShowServantSelection(ctx context.Context, s *events.Snapshot) error {
	return m.each(func(p Presenter) error { return p.ShowServantSelection(ctx, s) })
}

func (m *MultiPresenter) ShowSelectionProgress(ctx context.Context, channelID int64, pr *events.Progress) error {
	return m.each(func(p Presenter) error { return p.ShowSelectionProgress(ctx, channelID, pr) })
}

func (m *MultiPresenter) ShowDiceReport(ctx context.Context, channelID int64, reports []events.Dice) error {
	return m.each(func(p Presenter) error { return p.ShowDiceReport(ctx, channelID, reports) })
}

func (m *MultiPresenter) ShowTeamSelection(ctx context.Context, s *events.Snapshot) error {
	return m.each(func(p Presenter) error { return p.ShowTeamSelection(ctx, s) })
}

func (m *MultiPresenter) ShowResults(ctx context.Context, s *events.Snapshot) error {
	return m.each(func(p Presenter) error { return p.ShowResults(ctx, s) })
}

func (m *MultiPresenter) UpdateStatus(ctx context.Context, channelID int64, message string) error {
	return m.each(func(p Presenter) error { return p.UpdateStatus(ctx, channelID, message) })
}

func (m *MultiPresenter) CleanupChannel(ctx context.Context, channelID int64) error {
	return m.each(func(p Presenter) error { return p.CleanupChannel(ctx, channelID) })
}
