package events

import (
	"sort"
	"time"

	"github.com/mumu-bot/teamdraft/go/internal/models"
)

// Event types published to the UI stream and broadcast to websocket clients.
const (
	TypeLobbyUpdated      = "draft.lobby_updated"
	TypeCaptainVoting     = "draft.captain_voting"
	TypeBanPhase          = "draft.ban_phase"
	TypeServantSelection  = "draft.servant_selection"
	TypeSelectionProgress = "draft.selection_progress"
	TypeDiceReport        = "draft.dice_report"
	TypeTeamSelection     = "draft.team_selection"
	TypeResults           = "draft.results"
	TypeStatus            = "draft.status"
	TypeCancelled         = "draft.cancelled"
)

// PlayerView is a player as shown to clients.
type PlayerView struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	Servant   string `json:"servant,omitempty"`
	Team      int    `json:"team,omitempty"`
	IsCaptain bool   `json:"is_captain"`
}

// TeamView is one side's roster.
type TeamView struct {
	Number    int     `json:"number"`
	CaptainID int64   `json:"captain_id,omitempty"`
	PlayerIDs []int64 `json:"player_ids"`
	MaxSize   int     `json:"max_size"`
}

// Snapshot is the full client-facing view of a draft. Every UI event carries
// one so late-joining clients never need a separate fetch.
type Snapshot struct {
	ChannelID        int64               `json:"channel_id"`
	GuildID          int64               `json:"guild_id"`
	DraftID          string              `json:"draft_id"`
	Phase            models.DraftPhase   `json:"phase"`
	Generation       uint64              `json:"generation"`
	TeamSize         int                 `json:"team_size"`
	Players          []PlayerView        `json:"players"`
	Captains         []int64             `json:"captains,omitempty"`
	Teams            []TeamView          `json:"teams,omitempty"`
	Available        map[string][]string `json:"available_by_tier,omitempty"`
	BannedServants   []string            `json:"banned_servants,omitempty"`
	SystemBans       []string            `json:"system_bans,omitempty"`
	CurrentBanner    int64               `json:"current_banner,omitempty"`
	CurrentPicker    int64               `json:"current_picker,omitempty"`
	ReselectionRound int                 `json:"reselection_round,omitempty"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// Envelope wraps a payload with its event type for the wire.
type Envelope struct {
	Type      string    `json:"type"`
	ChannelID int64     `json:"channel_id"`
	Snapshot  *Snapshot `json:"snapshot,omitempty"`
	Progress  *Progress `json:"progress,omitempty"`
	Dice      *Dice     `json:"dice,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// Progress reports selection-phase completion without leaking who picked
// what.
type Progress struct {
	Done      int     `json:"done"`
	Total     int     `json:"total"`
	DoneIDs   []int64 `json:"done_ids"`
	Remaining []int64 `json:"remaining_ids"`
}

// Roll is one player's d20 result within a conflict resolution.
type Roll struct {
	UserID int64 `json:"user_id"`
	Value  int   `json:"value"`
}

// Dice reports a full conflict resolution for one servant.
type Dice struct {
	Servant  string  `json:"servant"`
	WinnerID int64   `json:"winner_id"`
	Losers   []int64 `json:"losers"`
	Rolls    []Roll  `json:"rolls"`
	Attempts int     `json:"attempts"`
	Fallback bool    `json:"fallback"`
}

// BuildSnapshot projects a draft into its client view. The available map is
// only populated during the phases where servants matter.
func BuildSnapshot(d *models.Draft, now time.Time) *Snapshot {
	s := &Snapshot{
		ChannelID:        d.ChannelID,
		GuildID:          d.GuildID,
		DraftID:          d.DraftID.String(),
		Phase:            d.Phase,
		Generation:       d.Generation,
		TeamSize:         d.TeamSize,
		Captains:         append([]int64(nil), d.Captains...),
		BannedServants:   append([]string(nil), sortedKeys(d.BannedServants)...),
		SystemBans:       append([]string(nil), d.SystemBans...),
		CurrentBanner:    d.CurrentBanningCaptain,
		CurrentPicker:    d.CurrentPickingCaptain,
		ReselectionRound: d.ReselectionRound,
		UpdatedAt:        now,
	}
	for _, id := range d.JoinOrder {
		p, ok := d.Players[id]
		if !ok {
			continue
		}
		pv := PlayerView{
			UserID:    p.UserID,
			Username:  p.Username,
			Team:      p.Team,
			IsCaptain: p.IsCaptain,
		}
		// Individual picks stay hidden until they are confirmed.
		if d.ConfirmedServants[p.UserID] != "" {
			pv.Servant = d.ConfirmedServants[p.UserID]
		}
		s.Players = append(s.Players, pv)
	}
	if d.Teams != nil {
		for _, t := range []*models.Team{d.Teams.TeamOne, d.Teams.TeamTwo} {
			if t == nil {
				continue
			}
			tv := TeamView{Number: t.Number, CaptainID: t.CaptainID, MaxSize: t.MaxSize}
			for _, id := range t.Members() {
				tv.PlayerIDs = append(tv.PlayerIDs, id)
			}
			s.Teams = append(s.Teams, tv)
		}
	}
	switch d.Phase {
	case models.PhaseServantBan, models.PhaseServantSelection, models.PhaseServantReselection:
		s.Available = availableByTier(d)
	}
	return s
}

// BuildProgress summarizes who has submitted a choice during a selection
// phase. A pending pick counts as done; conflict losers get their flag reset
// and reappear as remaining.
func BuildProgress(d *models.Draft) *Progress {
	p := &Progress{}
	for _, id := range d.NonCaptainPlayers() {
		p.Total++
		if d.SelectionDone[id] {
			p.Done++
			p.DoneIDs = append(p.DoneIDs, id)
		} else {
			p.Remaining = append(p.Remaining, id)
		}
	}
	return p
}

func availableByTier(d *models.Draft) map[string][]string {
	out := make(map[string][]string, len(d.ServantTiers))
	for tier, names := range d.ServantTiers {
		for _, name := range names {
			if d.AvailableServants[name] {
				out[tier] = append(out[tier], name)
			}
		}
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		if v {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
