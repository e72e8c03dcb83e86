package models

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Default phase time limits carried on each draft so the presenter can render
// countdowns and the monitors know how long to sleep.
const (
	DefaultVotingTimeLimit      = 120 * time.Second
	DefaultSelectionTimeLimit   = 90 * time.Second
	DefaultReselectionTimeLimit = 90 * time.Second
)

// Draft is the aggregate root for one team-formation session. Exactly one
// draft exists per channel; the application service owns it exclusively while
// an operation is in flight.
type Draft struct {
	// Identity
	ChannelID int64      `json:"channel_id"`
	GuildID   int64      `json:"guild_id"`
	DraftID   uuid.UUID  `json:"draft_id"`
	TeamSize  int        `json:"team_size"`
	Phase     DraftPhase `json:"phase"`

	// Generation increments on every phase change. Timeout monitors record
	// the generation they were armed for; a monitor waking up in a different
	// generation must no-op.
	Generation uint64 `json:"generation"`

	StartedBy int64  `json:"started_by,omitempty"`
	ThreadID  int64  `json:"thread_id,omitempty"`
	MatchID   string `json:"match_id,omitempty"`

	// Participants. JoinOrder preserves insertion order for the captain
	// fallback rule.
	Players   map[int64]*Player `json:"players"`
	JoinOrder []int64           `json:"join_order"`
	Teams     *TeamComposition  `json:"teams"`

	// Captain voting
	Captains             []int64                  `json:"captains,omitempty"`
	CaptainVotes         map[int64]map[int64]bool `json:"captain_votes"` // voter -> candidate set
	CaptainVotingStarted time.Time                `json:"captain_voting_started,omitempty"`
	VotingTimeLimit      time.Duration            `json:"voting_time_limit"`

	// Servant pool, copied from the configured pool at creation so a running
	// draft is immune to config reloads.
	ServantTiers      map[string][]string `json:"servant_tiers"`
	DetectionServants map[string]bool     `json:"detection_servants"`
	CloakingServants  map[string]bool     `json:"cloaking_servants"`
	AvailableServants map[string]bool     `json:"available_servants"`

	// Ban phase
	BannedServants        map[string]bool    `json:"banned_servants"`
	SystemBans            []string           `json:"system_bans,omitempty"`
	CaptainBans           map[int64][]string `json:"captain_bans"`
	CaptainBanOrder       []int64            `json:"captain_ban_order,omitempty"`
	CurrentBanningCaptain int64              `json:"current_banning_captain,omitempty"`
	CaptainBanDone        map[int64]bool     `json:"captain_ban_done"`

	// Servant selection
	ConfirmedServants    map[int64]string   `json:"confirmed_servants"`
	ConflictedServants   map[string][]int64 `json:"conflicted_servants"`
	SelectionDone        map[int64]bool     `json:"selection_done"`
	ReselectionRound     int                `json:"reselection_round"`
	ReselectionAutoBans  []string           `json:"reselection_auto_bans,omitempty"`
	SelectionStarted     time.Time          `json:"selection_started,omitempty"`
	SelectionTimeLimit   time.Duration      `json:"selection_time_limit"`
	ReselectionStarted   time.Time          `json:"reselection_started,omitempty"`
	ReselectionTimeLimit time.Duration      `json:"reselection_time_limit"`

	// Team selection
	FirstPickCaptain      int64             `json:"first_pick_captain,omitempty"`
	TeamSelectionRound    int               `json:"team_selection_round"`
	CurrentPickingCaptain int64             `json:"current_picking_captain,omitempty"`
	PicksThisRound        map[int64]int     `json:"picks_this_round"`
	PendingTeamSelections map[int64][]int64 `json:"pending_team_selections"`

	// Join-based start
	JoinTargetTotalPlayers int `json:"join_target_total_players,omitempty"`

	// Outcome
	OutcomeRecorded   bool               `json:"outcome_recorded"`
	BalanceSuggestion *BalanceSuggestion `json:"balance_suggestion,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// BalanceSuggestion is an optional team-split proposal from the balance
// calculator. Informational only; it never mutates team assignments.
type BalanceSuggestion struct {
	Algorithm string  `json:"algorithm"`
	TeamOne   []int64 `json:"team_one"`
	TeamTwo   []int64 `json:"team_two"`
	RatingGap float64 `json:"rating_gap"`
}

// NewDraft builds a waiting draft for a channel.
func NewDraft(channelID, guildID int64, teamSize int) *Draft {
	return &Draft{
		ChannelID:             channelID,
		GuildID:               guildID,
		DraftID:               uuid.New(),
		TeamSize:              teamSize,
		Phase:                 PhaseWaiting,
		Players:               make(map[int64]*Player),
		Teams:                 NewTeamComposition(teamSize),
		CaptainVotes:          make(map[int64]map[int64]bool),
		VotingTimeLimit:       DefaultVotingTimeLimit,
		AvailableServants:     make(map[string]bool),
		BannedServants:        make(map[string]bool),
		CaptainBans:           make(map[int64][]string),
		CaptainBanDone:        make(map[int64]bool),
		ConfirmedServants:     make(map[int64]string),
		ConflictedServants:    make(map[string][]int64),
		SelectionDone:         make(map[int64]bool),
		SelectionTimeLimit:    DefaultSelectionTimeLimit,
		ReselectionTimeLimit:  DefaultReselectionTimeLimit,
		PicksThisRound:        make(map[int64]int),
		PendingTeamSelections: make(map[int64][]int64),
		CreatedAt:             time.Now().UTC(),
	}
}

func (d *Draft) TotalPlayersNeeded() int {
	return d.TeamSize * 2
}

func (d *Draft) PlayerCount() int {
	return len(d.Players)
}

func (d *Draft) IsFull() bool {
	return d.PlayerCount() >= d.TotalPlayersNeeded()
}

// CanStart reports whether the draft is full and still waiting.
func (d *Draft) CanStart() bool {
	return d.IsFull() && d.Phase == PhaseWaiting
}

func (d *Draft) IsCompleted() bool {
	return d.Phase == PhaseCompleted
}

// AddPlayer registers a participant. Fails when full or duplicate.
func (d *Draft) AddPlayer(userID int64, username string) error {
	if d.IsFull() {
		return fmt.Errorf("draft is already full")
	}
	if _, ok := d.Players[userID]; ok {
		return fmt.Errorf("player %d is already in the draft", userID)
	}
	d.Players[userID] = &Player{UserID: userID, Username: username}
	d.JoinOrder = append(d.JoinOrder, userID)
	return nil
}

// RemovePlayer drops a participant, cleaning up any team or captain slots.
func (d *Draft) RemovePlayer(userID int64) error {
	player, ok := d.Players[userID]
	if !ok {
		return fmt.Errorf("player %d is not in the draft", userID)
	}
	if player.Team != 0 {
		team, err := d.Teams.ByNumber(player.Team)
		if err == nil {
			_ = team.RemovePlayer(userID)
		}
	}
	for i, id := range d.Captains {
		if id == userID {
			d.Captains = append(d.Captains[:i], d.Captains[i+1:]...)
			break
		}
	}
	for i, id := range d.JoinOrder {
		if id == userID {
			d.JoinOrder = append(d.JoinOrder[:i], d.JoinOrder[i+1:]...)
			break
		}
	}
	delete(d.Players, userID)
	delete(d.CaptainVotes, userID)
	return nil
}

// GetPlayer returns a participant or nil.
func (d *Draft) GetPlayer(userID int64) *Player {
	return d.Players[userID]
}

// AdvancePhase moves the draft to target after checking the transition table,
// and bumps the generation so stale timers become no-ops.
func (d *Draft) AdvancePhase(target DraftPhase) error {
	if !d.Phase.CanTransitionTo(target) {
		return fmt.Errorf("cannot transition from %s to %s", d.Phase, target)
	}
	d.Phase = target
	d.Generation++
	return nil
}

// SetCaptains assigns exactly two captains, each to a distinct team.
func (d *Draft) SetCaptains(captainIDs []int64) error {
	if len(captainIDs) != 2 {
		return fmt.Errorf("must have exactly 2 captains, got %d", len(captainIDs))
	}
	if captainIDs[0] == captainIDs[1] {
		return fmt.Errorf("captains must be distinct")
	}
	for _, id := range captainIDs {
		if _, ok := d.Players[id]; !ok {
			return fmt.Errorf("captain %d is not in the draft", id)
		}
	}
	d.Captains = append([]int64(nil), captainIDs...)
	for i, id := range captainIDs {
		teamNumber := i + 1
		player := d.Players[id]
		player.IsCaptain = true
		if err := player.AssignToTeam(teamNumber); err != nil {
			return err
		}
		team, err := d.Teams.ByNumber(teamNumber)
		if err != nil {
			return err
		}
		if err := team.AddPlayer(id); err != nil {
			return err
		}
		if err := team.SetCaptain(id); err != nil {
			return err
		}
	}
	return nil
}

func (d *Draft) IsCaptain(userID int64) bool {
	for _, id := range d.Captains {
		if id == userID {
			return true
		}
	}
	return false
}

// CaptainTeam returns a captain's team number, or 0.
func (d *Draft) CaptainTeam(captainID int64) int {
	if !d.IsCaptain(captainID) {
		return 0
	}
	if p := d.GetPlayer(captainID); p != nil {
		return p.Team
	}
	return 0
}

// OpposingCaptain returns the other captain, or 0.
func (d *Draft) OpposingCaptain(captainID int64) int64 {
	if !d.IsCaptain(captainID) {
		return 0
	}
	for _, id := range d.Captains {
		if id != captainID {
			return id
		}
	}
	return 0
}

// IsServantAvailable reports whether a servant can still be banned or picked.
func (d *Draft) IsServantAvailable(name string) bool {
	return d.AvailableServants[name] && !d.BannedServants[name]
}

// BanServant removes a servant from the pool. bannedBy == 0 records a system
// ban, otherwise a captain ban.
func (d *Draft) BanServant(name string, bannedBy int64) error {
	if !d.AvailableServants[name] {
		return fmt.Errorf("servant %s is not available", name)
	}
	if d.BannedServants[name] {
		return fmt.Errorf("servant %s is already banned", name)
	}
	d.BannedServants[name] = true
	delete(d.AvailableServants, name)
	if bannedBy == 0 {
		d.SystemBans = append(d.SystemBans, name)
	} else {
		d.CaptainBans[bannedBy] = append(d.CaptainBans[bannedBy], name)
	}
	return nil
}

// AvailableServantList returns the open pool in sorted order for stable
// display and deterministic iteration.
func (d *Draft) AvailableServantList() []string {
	names := make([]string, 0, len(d.AvailableServants))
	for name := range d.AvailableServants {
		if !d.BannedServants[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// AssignPlayerToTeam puts an unassigned player on a team during team
// selection.
func (d *Draft) AssignPlayerToTeam(playerID int64, teamNumber int) error {
	player := d.GetPlayer(playerID)
	if player == nil {
		return fmt.Errorf("player %d not found", playerID)
	}
	if player.AssignedToTeam() {
		return fmt.Errorf("player %d is already assigned to a team", playerID)
	}
	team, err := d.Teams.ByNumber(teamNumber)
	if err != nil {
		return err
	}
	if team.IsFull() {
		return fmt.Errorf("team %d is full", teamNumber)
	}
	if err := player.AssignToTeam(teamNumber); err != nil {
		return err
	}
	return team.AddPlayer(playerID)
}

// UnassignedPlayers lists players without a team, in join order.
func (d *Draft) UnassignedPlayers() []int64 {
	var ids []int64
	for _, id := range d.JoinOrder {
		if p := d.Players[id]; p != nil && !p.AssignedToTeam() {
			ids = append(ids, id)
		}
	}
	return ids
}

// NonCaptainPlayers lists non-captain participants in join order.
func (d *Draft) NonCaptainPlayers() []int64 {
	var ids []int64
	for _, id := range d.JoinOrder {
		if p := d.Players[id]; p != nil && !p.IsCaptain {
			ids = append(ids, id)
		}
	}
	return ids
}
