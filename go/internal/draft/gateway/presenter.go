package gateway

import (
	"context"

	"github.com/mumu-bot/teamdraft/go/internal/draft/events"
)

// The hub satisfies the application's presenter port by wrapping each call in
// an envelope and broadcasting it to the channel's spectators.

func (h *Hub) snapshotEvent(eventType string, s *events.Snapshot) error {
	return h.enqueue(s.ChannelID, &events.Envelope{Type: eventType, ChannelID: s.ChannelID, Snapshot: s})
}

func (h *Hub) ShowLobby(ctx context.Context, s *events.Snapshot) error {
	return h.snapshotEvent(events.TypeLobbyUpdated, s)
}

func (h *Hub) ShowCaptainVoting(ctx context.Context, s *events.Snapshot) error {
	return h.snapshotEvent(events.TypeCaptainVoting, s)
}

func (h *Hub) ShowBanPhase(ctx context.Context, s *events.Snapshot) error {
	return h.snapshotEvent(events.TypeBanPhase, s)
}

func (h *Hub) ShowServantSelection(ctx context.Context, s *events.Snapshot) error {
	return h.snapshotEvent(events.TypeServantSelection, s)
}

func (h *Hub) ShowSelectionProgress(ctx context.Context, channelID int64, p *events.Progress) error {
	return h.enqueue(channelID, &events.Envelope{Type: events.TypeSelectionProgress, ChannelID: channelID, Progress: p})
}

func (h *Hub) ShowDiceReport(ctx context.Context, channelID int64, reports []events.Dice) error {
	for i := range reports {
		if err := h.enqueue(channelID, &events.Envelope{Type: events.TypeDiceReport, ChannelID: channelID, Dice: &reports[i]}); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hub) ShowTeamSelection(ctx context.Context, s *events.Snapshot) error {
	return h.snapshotEvent(events.TypeTeamSelection, s)
}

func (h *Hub) ShowResults(ctx context.Context, s *events.Snapshot) error {
	return h.snapshotEvent(events.TypeResults, s)
}

func (h *Hub) UpdateStatus(ctx context.Context, channelID int64, message string) error {
	return h.enqueue(channelID, &events.Envelope{Type: events.TypeStatus, ChannelID: channelID, Message: message})
}

func (h *Hub) CleanupChannel(ctx context.Context, channelID int64) error {
	return h.enqueue(channelID, &events.Envelope{Type: events.TypeCancelled, ChannelID: channelID})
}
