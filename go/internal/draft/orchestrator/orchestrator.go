package orchestrator

import (
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mumu-bot/teamdraft/go/internal/draft/captain"
	"github.com/mumu-bot/teamdraft/go/internal/draft/servant"
	"github.com/mumu-bot/teamdraft/go/internal/draft/teamselect"
	"github.com/mumu-bot/teamdraft/go/internal/models"
)

// BanPhaseSetup reports the atomic ban-phase bootstrap: elected captains, the
// dice-determined ban order, and the tier draws.
type BanPhaseSetup struct {
	Captains   []int64  `json:"captains"`
	BanOrder   []int64  `json:"ban_order"`
	SystemBans []string `json:"system_bans"`
}

// Transition reports the outcome of a conflict check: any dice resolutions,
// automatic cloaking bans, and the phase the draft landed in.
type Transition struct {
	Resolutions []servant.ConflictResolution `json:"resolutions,omitempty"`
	AutoBans    []string                     `json:"auto_bans,omitempty"`
	Phase       models.DraftPhase            `json:"phase"`
}

// Orchestrator owns phase transitions end to end, sequencing the domain
// services in the order the workflow demands.
type Orchestrator struct {
	captains *captain.Service
	servants *servant.Service
	picks    *teamselect.Service
	clock    clockwork.Clock
}

func New(captains *captain.Service, servants *servant.Service, picks *teamselect.Service, clock clockwork.Clock) *Orchestrator {
	return &Orchestrator{
		captains: captains,
		servants: servants,
		picks:    picks,
		clock:    clock,
	}
}

// CreateDraft builds a waiting draft with the servant pool initialized.
func (o *Orchestrator) CreateDraft(channelID, guildID int64, teamSize int, startedBy int64, pool *servant.Pool) (*models.Draft, error) {
	if !teamselect.IsSupportedTeamSize(teamSize) {
		return nil, fmt.Errorf("unsupported team size %d", teamSize)
	}
	d := models.NewDraft(channelID, guildID, teamSize)
	d.StartedBy = startedBy
	o.servants.InitializeAvailability(d, pool)
	return d, nil
}

// CreateJoinDraft builds a draft that auto-starts once totalPlayers have
// joined.
func (o *Orchestrator) CreateJoinDraft(channelID, guildID int64, totalPlayers int, startedBy int64, pool *servant.Pool) (*models.Draft, error) {
	if totalPlayers < 4 || totalPlayers%2 != 0 {
		return nil, fmt.Errorf("total players must be even and at least 4")
	}
	d, err := o.CreateDraft(channelID, guildID, totalPlayers/2, startedBy, pool)
	if err != nil {
		return nil, err
	}
	d.JoinTargetTotalPlayers = totalPlayers
	return d, nil
}

// StartCaptainVoting moves a full waiting draft into the voting phase.
func (o *Orchestrator) StartCaptainVoting(d *models.Draft) error {
	if !d.CanStart() {
		return fmt.Errorf("draft cannot start: %d/%d players", d.PlayerCount(), d.TotalPlayersNeeded())
	}
	if err := d.AdvancePhase(models.PhaseCaptainVoting); err != nil {
		return err
	}
	d.CaptainVotingStarted = o.clock.Now()
	return nil
}

// FinalizeCaptains tallies the votes, elects captains, and runs the full ban
// phase bootstrap as one atomic step: system bans, dice ban order, and
// captain ban turn initialization.
func (o *Orchestrator) FinalizeCaptains(d *models.Draft) (*BanPhaseSetup, error) {
	if d.Phase != models.PhaseCaptainVoting {
		return nil, fmt.Errorf("not in captain voting phase")
	}
	captains, err := o.captains.SelectCaptains(d)
	if err != nil {
		return nil, err
	}
	if err := d.AdvancePhase(models.PhaseServantBan); err != nil {
		return nil, err
	}
	systemBans := o.servants.PerformSystemBans(d)
	order, err := o.captains.DetermineBanOrder(d)
	if err != nil {
		return nil, err
	}
	o.servants.InitializeCaptainBans(d)

	log.Info().
		Int64("channel_id", d.ChannelID).
		Ints64("captains", captains).
		Strs("system_bans", systemBans).
		Msg("ban phase started")

	return &BanPhaseSetup{Captains: captains, BanOrder: order, SystemBans: systemBans}, nil
}

// CompleteBanPhase advances to servant selection once both captains have
// banned.
func (o *Orchestrator) CompleteBanPhase(d *models.Draft) error {
	if d.Phase != models.PhaseServantBan {
		return fmt.Errorf("not in servant ban phase")
	}
	if !o.servants.CaptainBansComplete(d) {
		return fmt.Errorf("not all captains have banned")
	}
	if err := d.AdvancePhase(models.PhaseServantSelection); err != nil {
		return err
	}
	d.SelectionStarted = o.clock.Now()
	for _, id := range d.NonCaptainPlayers() {
		d.SelectionDone[id] = false
	}
	return nil
}

// CheckConflictsAndAdvance is the branch point after selections: resolve any
// conflicts with dice, confirm the rest, and either enter reselection, stay
// put waiting for stragglers, or move on to team selection.
func (o *Orchestrator) CheckConflictsAndAdvance(d *models.Draft) (*Transition, error) {
	if d.Phase != models.PhaseServantSelection && d.Phase != models.PhaseServantReselection {
		return nil, fmt.Errorf("not in a servant selection phase")
	}

	t := &Transition{}
	conflicts := o.servants.DetectConflicts(d)
	if len(conflicts) > 0 {
		d.ConflictedServants = conflicts
		t.Resolutions = o.servants.ResolveConflicts(d)
	}
	o.servants.ConfirmNonConflicted(d)

	if o.servants.SelectionComplete(d) {
		if err := o.startTeamSelection(d); err != nil {
			return nil, err
		}
		t.Phase = d.Phase
		return t, nil
	}

	// Conflict losers (or stragglers) remain: run or restart reselection.
	if len(t.Resolutions) > 0 {
		if d.Phase == models.PhaseServantSelection {
			if err := d.AdvancePhase(models.PhaseServantReselection); err != nil {
				return nil, err
			}
			t.AutoBans = o.servants.CloakingBansForReselection(d)
		} else {
			// Already reselecting: a fresh round among the new losers. Bump
			// the generation by hand so the previous round's timer is stale.
			d.Generation++
		}
		d.ReselectionRound++
		d.ReselectionStarted = o.clock.Now()
	}
	t.Phase = d.Phase
	return t, nil
}

// startTeamSelection enters the team selection phase. The captain who won the
// ban-order dice picks first.
func (o *Orchestrator) startTeamSelection(d *models.Draft) error {
	if err := d.AdvancePhase(models.PhaseTeamSelection); err != nil {
		return err
	}
	firstPick := d.Captains[0]
	if len(d.CaptainBanOrder) > 0 {
		firstPick = d.CaptainBanOrder[0]
	}
	return o.picks.Initialize(d, firstPick)
}

// CompleteTeamSelection finishes the draft once both teams are full.
func (o *Orchestrator) CompleteTeamSelection(d *models.Draft) error {
	if d.Phase != models.PhaseTeamSelection {
		return fmt.Errorf("not in team selection phase")
	}
	if !o.picks.Complete(d) {
		return fmt.Errorf("teams are not complete")
	}
	return d.AdvancePhase(models.PhaseCompleted)
}

// CanAdvance reports whether the current phase's completion condition holds.
func (o *Orchestrator) CanAdvance(d *models.Draft) bool {
	switch d.Phase {
	case models.PhaseWaiting:
		return d.CanStart()
	case models.PhaseCaptainVoting:
		return len(d.Captains) == 2
	case models.PhaseServantBan:
		return o.servants.CaptainBansComplete(d)
	case models.PhaseServantSelection, models.PhaseServantReselection:
		return o.servants.SelectionComplete(d)
	case models.PhaseTeamSelection:
		return o.picks.Complete(d)
	}
	return false
}

// ForceAdvance is the escape hatch for stalled drafts: it completes the
// current phase with deterministic or random choices and moves on.
func (o *Orchestrator) ForceAdvance(d *models.Draft) (models.DraftPhase, error) {
	switch d.Phase {
	case models.PhaseWaiting:
		if err := o.StartCaptainVoting(d); err != nil {
			return d.Phase, err
		}
	case models.PhaseCaptainVoting:
		if _, err := o.FinalizeCaptains(d); err != nil {
			return d.Phase, err
		}
	case models.PhaseServantBan:
		for _, id := range d.Captains {
			d.CaptainBanDone[id] = true
		}
		d.CurrentBanningCaptain = 0
		if err := o.CompleteBanPhase(d); err != nil {
			return d.Phase, err
		}
	case models.PhaseServantSelection, models.PhaseServantReselection:
		o.servants.AutoAssignIncomplete(d)
		if _, err := o.CheckConflictsAndAdvance(d); err != nil {
			return d.Phase, err
		}
	case models.PhaseTeamSelection:
		o.fillRemainingTeams(d)
		if err := o.CompleteTeamSelection(d); err != nil {
			return d.Phase, err
		}
	case models.PhaseCompleted:
		return d.Phase, fmt.Errorf("draft is already completed")
	}
	log.Info().
		Int64("channel_id", d.ChannelID).
		Str("phase", string(d.Phase)).
		Msg("force advanced draft phase")
	return d.Phase, nil
}

// fillRemainingTeams assigns every unassigned player to whichever team has
// room, in join order, and fast-forwards the round counter.
func (o *Orchestrator) fillRemainingTeams(d *models.Draft) {
	for _, id := range d.UnassignedPlayers() {
		target := 0
		if !d.Teams.TeamOne.IsFull() {
			target = 1
		} else if !d.Teams.TeamTwo.IsFull() {
			target = 2
		}
		if target == 0 {
			break
		}
		if err := d.AssignPlayerToTeam(id, target); err != nil {
			log.Warn().Err(err).Int64("player_id", id).Msg("force fill skipped player")
		}
	}
	if pattern, err := teamselect.Pattern(d.TeamSize); err == nil {
		d.TeamSelectionRound = len(pattern) + 1
	}
	d.CurrentPickingCaptain = 0
	d.PendingTeamSelections = make(map[int64][]int64)
}
