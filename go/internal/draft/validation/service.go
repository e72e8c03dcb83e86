package validation

import (
	"fmt"
	"strings"

	"github.com/mumu-bot/teamdraft/go/internal/draft/teamselect"
	"github.com/mumu-bot/teamdraft/go/internal/models"
)

// Service runs precondition checks for every mutating draft operation. Each
// check returns human-readable reasons instead of failing; an empty slice
// means the operation is legal.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// DraftCreation validates the parameters of a new draft.
func (s *Service) DraftCreation(channelID, guildID int64, teamSize int) []string {
	var errs []string
	if channelID <= 0 {
		errs = append(errs, "invalid channel id")
	}
	if guildID <= 0 {
		errs = append(errs, "invalid guild id")
	}
	if !teamselect.IsSupportedTeamSize(teamSize) {
		errs = append(errs, "team size must be 2, 3, 5, or 6")
	}
	return errs
}

// JoinDraft validates a join-based draft's target player count.
func (s *Service) JoinDraft(totalPlayers int) []string {
	var errs []string
	if totalPlayers <= 0 {
		errs = append(errs, "total players must be positive")
	}
	if totalPlayers%2 != 0 {
		errs = append(errs, "total players must be even")
	}
	if totalPlayers > 0 && totalPlayers%2 == 0 && !teamselect.IsSupportedTeamSize(totalPlayers/2) {
		errs = append(errs, "total players must be 4, 6, 10, or 12")
	}
	return errs
}

// PlayerAddition validates a join attempt.
func (s *Service) PlayerAddition(d *models.Draft, userID int64, username string) []string {
	var errs []string
	if userID <= 0 {
		errs = append(errs, "invalid user id")
	}
	if strings.TrimSpace(username) == "" {
		errs = append(errs, "username cannot be empty")
	}
	if d.Phase != models.PhaseWaiting {
		errs = append(errs, "cannot add players after the draft has started")
	}
	if d.IsFull() {
		errs = append(errs, "draft is already full")
	}
	if _, ok := d.Players[userID]; ok {
		errs = append(errs, "player is already in the draft")
	}
	return errs
}

// PlayerRemoval validates a leave attempt.
func (s *Service) PlayerRemoval(d *models.Draft, userID int64) []string {
	var errs []string
	if _, ok := d.Players[userID]; !ok {
		errs = append(errs, "player is not in the draft")
	}
	if d.Phase != models.PhaseWaiting {
		errs = append(errs, "cannot remove players after the draft has started")
	}
	return errs
}

// CaptainVote validates a vote before it is toggled.
func (s *Service) CaptainVote(d *models.Draft, voterID, candidateID int64) []string {
	var errs []string
	if d.Phase != models.PhaseCaptainVoting {
		errs = append(errs, "not in captain voting phase")
	}
	if _, ok := d.Players[voterID]; !ok {
		errs = append(errs, "voter is not in the draft")
	}
	if _, ok := d.Players[candidateID]; !ok {
		errs = append(errs, "candidate is not in the draft")
	}
	return errs
}

// ServantBan validates a captain's ban attempt.
func (s *Service) ServantBan(d *models.Draft, captainID int64, name string) []string {
	var errs []string
	if d.Phase != models.PhaseServantBan {
		errs = append(errs, "not in servant ban phase")
	}
	if !d.IsCaptain(captainID) {
		errs = append(errs, "only captains can ban servants")
	}
	if strings.TrimSpace(name) == "" {
		errs = append(errs, "servant name cannot be empty")
	} else if !d.IsServantAvailable(name) {
		errs = append(errs, fmt.Sprintf("servant %s is not available", name))
	}
	if d.CaptainBanDone[captainID] {
		errs = append(errs, "captain has already banned")
	} else if d.IsCaptain(captainID) && d.CurrentBanningCaptain != 0 && d.CurrentBanningCaptain != captainID {
		errs = append(errs, "not your turn to ban")
	}
	return errs
}

// ServantSelection validates a player's pick attempt.
func (s *Service) ServantSelection(d *models.Draft, userID int64, name string) []string {
	var errs []string
	if d.Phase != models.PhaseServantSelection && d.Phase != models.PhaseServantReselection {
		errs = append(errs, "not in a servant selection phase")
	}
	player, ok := d.Players[userID]
	if !ok {
		errs = append(errs, "player is not in the draft")
	} else if player.IsCaptain {
		errs = append(errs, "captains do not select servants")
	}
	if strings.TrimSpace(name) == "" {
		errs = append(errs, "servant name cannot be empty")
	} else if !d.IsServantAvailable(name) {
		errs = append(errs, fmt.Sprintf("servant %s is not available", name))
	}
	// During reselection only conflict losers remain unconfirmed, so the
	// confirmed check below doubles as the loser-only rule.
	if _, confirmed := d.ConfirmedServants[userID]; confirmed {
		errs = append(errs, "player already has a confirmed servant")
	}
	return errs
}

// TeamPick validates a captain staging or assigning a player.
func (s *Service) TeamPick(d *models.Draft, captainID, playerID int64) []string {
	var errs []string
	if d.Phase != models.PhaseTeamSelection {
		errs = append(errs, "not in team selection phase")
	}
	if !d.IsCaptain(captainID) {
		errs = append(errs, "only captains can pick players")
	} else if d.CurrentPickingCaptain != captainID {
		errs = append(errs, "not your turn to pick")
	}
	player, ok := d.Players[playerID]
	if !ok {
		errs = append(errs, "player is not in the draft")
	} else if player.AssignedToTeam() {
		errs = append(errs, "player is already assigned to a team")
	}
	if teamNumber := d.CaptainTeam(captainID); teamNumber != 0 {
		if team, err := d.Teams.ByNumber(teamNumber); err == nil && team.IsFull() {
			errs = append(errs, "your team is already full")
		}
	}
	return errs
}

// ResultRecording validates recording a match outcome for the draft.
func (s *Service) ResultRecording(d *models.Draft, winner int) []string {
	var errs []string
	if d.Phase != models.PhaseCompleted {
		errs = append(errs, "draft is not completed")
	}
	if d.OutcomeRecorded {
		errs = append(errs, "match result has already been recorded")
	}
	if winner != 1 && winner != 2 {
		errs = append(errs, "winner must be team 1 or 2")
	}
	return errs
}

// PhaseTransition validates a transition against the table and the phase's
// entry requirements.
func (s *Service) PhaseTransition(d *models.Draft, target models.DraftPhase) []string {
	var errs []string
	if !d.Phase.CanTransitionTo(target) {
		errs = append(errs, fmt.Sprintf("cannot transition from %s to %s", d.Phase, target))
	}
	switch target {
	case models.PhaseCaptainVoting:
		if !d.CanStart() {
			errs = append(errs, "not enough players to start captain voting")
		}
	case models.PhaseServantBan:
		if len(d.Captains) != 2 {
			errs = append(errs, "two captains are required before the ban phase")
		}
	case models.PhaseServantSelection:
		for _, id := range d.Captains {
			if !d.CaptainBanDone[id] {
				errs = append(errs, "all captains must ban before servant selection")
				break
			}
		}
	case models.PhaseCompleted:
		if !d.Teams.IsComplete() {
			errs = append(errs, "teams must be complete before finishing the draft")
		}
	}
	return errs
}

// DraftState runs the cross-cutting consistency checks used by the status
// operation and tests.
func (s *Service) DraftState(d *models.Draft) []string {
	var errs []string
	if !teamselect.IsSupportedTeamSize(d.TeamSize) {
		errs = append(errs, "unsupported team size")
	}
	if len(d.Players) > d.TotalPlayersNeeded() {
		errs = append(errs, "too many players in draft")
	}
	if len(d.Captains) > 2 {
		errs = append(errs, "too many captains selected")
	}
	for id := range d.Teams.TeamOne.PlayerIDs {
		if d.Teams.TeamTwo.Contains(id) {
			errs = append(errs, fmt.Sprintf("player %d assigned to both teams", id))
		}
	}
	for name := range d.BannedServants {
		for _, p := range d.Players {
			if p.SelectedServant == name {
				errs = append(errs, fmt.Sprintf("player %s holds banned servant %s", p.Username, name))
			}
		}
	}
	if d.Phase == models.PhaseTeamSelection {
		if !d.Teams.BothHaveCaptains() {
			errs = append(errs, "both teams need captains during team selection")
		}
		if d.CurrentPickingCaptain != 0 && !d.IsCaptain(d.CurrentPickingCaptain) {
			errs = append(errs, "current picking captain is not a captain")
		}
	}
	if d.Phase == models.PhaseCompleted && !d.Teams.IsComplete() {
		errs = append(errs, "completed draft has incomplete teams")
	}
	return errs
}
