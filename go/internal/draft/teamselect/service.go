package teamselect

import (
	"fmt"

	"github.com/mumu-bot/teamdraft/go/internal/models"
)

// RoundPicks is one round of the pick pattern: how many players each captain
// drafts, first-pick captain first.
type RoundPicks struct {
	First  int
	Second int
}

// patterns maps team size to its per-round pick counts. The 6v6 docstring in
// the legacy bot ("1-2-2 / 2-2-1") reads column-wise; the table below is the
// one the bot actually executed.
var patterns = map[int][]RoundPicks{
	2: {{First: 1, Second: 1}},
	3: {{First: 1, Second: 2}, {First: 1, Second: 0}},
	5: {{First: 1, Second: 2}, {First: 2, Second: 2}, {First: 1, Second: 0}},
	6: {{First: 1, Second: 2}, {First: 2, Second: 2}, {First: 2, Second: 1}},
}

// Pattern returns the pick pattern for a team size.
func Pattern(teamSize int) ([]RoundPicks, error) {
	p, ok := patterns[teamSize]
	if !ok {
		return nil, fmt.Errorf("no selection pattern for team size %d", teamSize)
	}
	return p, nil
}

// SupportedTeamSizes lists the sizes a draft may be created with.
func SupportedTeamSizes() []int {
	return []int{2, 3, 5, 6}
}

// IsSupportedTeamSize reports whether a pick pattern exists for the size.
func IsSupportedTeamSize(teamSize int) bool {
	_, ok := patterns[teamSize]
	return ok
}

// Service drives the round-based player draft: staged picks, batch
// confirmation, and turn rotation.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Initialize arms the team selection state with the given first-pick captain.
func (s *Service) Initialize(d *models.Draft, firstPickCaptain int64) error {
	if !d.IsCaptain(firstPickCaptain) {
		return fmt.Errorf("first pick %d is not a captain", firstPickCaptain)
	}
	if _, err := Pattern(d.TeamSize); err != nil {
		return err
	}
	d.FirstPickCaptain = firstPickCaptain
	d.CurrentPickingCaptain = firstPickCaptain
	d.TeamSelectionRound = 1
	d.PicksThisRound = make(map[int64]int)
	d.PendingTeamSelections = make(map[int64][]int64)
	for _, id := range d.Captains {
		d.PicksThisRound[id] = 0
	}
	return nil
}

// allotment returns how many picks the captain gets in the current round.
func (s *Service) allotment(d *models.Draft, captainID int64) int {
	pattern, err := Pattern(d.TeamSize)
	if err != nil || d.TeamSelectionRound < 1 || d.TeamSelectionRound > len(pattern) {
		return 0
	}
	round := pattern[d.TeamSelectionRound-1]
	if captainID == d.FirstPickCaptain {
		return round.First
	}
	return round.Second
}

// CanPick reports whether the captain may stage a pick right now.
func (s *Service) CanPick(d *models.Draft, captainID int64) bool {
	if d.CurrentPickingCaptain != captainID {
		return false
	}
	return s.PicksRemaining(d, captainID) > 0
}

// PicksRemaining returns the captain's unused allotment for this round,
// counting staged but unconfirmed picks.
func (s *Service) PicksRemaining(d *models.Draft, captainID int64) int {
	remaining := s.allotment(d, captainID) - d.PicksThisRound[captainID] - len(d.PendingTeamSelections[captainID])
	if remaining < 0 {
		return 0
	}
	return remaining
}

// StagePick holds a player for the captain's team without assigning yet, so
// multi-pick rounds can be confirmed as a batch.
func (s *Service) StagePick(d *models.Draft, captainID, playerID int64) error {
	if d.CurrentPickingCaptain != captainID {
		return fmt.Errorf("not captain %d's turn to pick", captainID)
	}
	if s.PicksRemaining(d, captainID) == 0 {
		return fmt.Errorf("captain %d has no picks left this round", captainID)
	}
	player := d.GetPlayer(playerID)
	if player == nil {
		return fmt.Errorf("player %d not found", playerID)
	}
	if player.AssignedToTeam() {
		return fmt.Errorf("player %d is already on a team", playerID)
	}
	for _, pending := range d.PendingTeamSelections {
		for _, id := range pending {
			if id == playerID {
				return fmt.Errorf("player %d is already staged for a pick", playerID)
			}
		}
	}
	teamNumber := d.CaptainTeam(captainID)
	team, err := d.Teams.ByNumber(teamNumber)
	if err != nil {
		return err
	}
	if team.PlayerCount()+len(d.PendingTeamSelections[captainID])+1 > team.MaxSize {
		return fmt.Errorf("team %d would exceed capacity", teamNumber)
	}
	d.PendingTeamSelections[captainID] = append(d.PendingTeamSelections[captainID], playerID)
	return nil
}

// UnstagePick removes a staged player before confirmation.
func (s *Service) UnstagePick(d *models.Draft, captainID, playerID int64) error {
	pending := d.PendingTeamSelections[captainID]
	for i, id := range pending {
		if id == playerID {
			d.PendingTeamSelections[captainID] = append(pending[:i], pending[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("player %d is not staged by captain %d", playerID, captainID)
}

// ConfirmPending assigns every staged player to the captain's team and
// advances the turn. The captain must have staged their full allotment.
func (s *Service) ConfirmPending(d *models.Draft, captainID int64) ([]int64, error) {
	if d.CurrentPickingCaptain != captainID {
		return nil, fmt.Errorf("not captain %d's turn to pick", captainID)
	}
	pending := d.PendingTeamSelections[captainID]
	if len(pending) == 0 {
		return nil, fmt.Errorf("captain %d has no staged picks", captainID)
	}
	needed := s.allotment(d, captainID) - d.PicksThisRound[captainID]
	if len(pending) != needed {
		return nil, fmt.Errorf("captain %d must stage %d picks, staged %d", captainID, needed, len(pending))
	}
	teamNumber := d.CaptainTeam(captainID)
	for _, playerID := range pending {
		if err := d.AssignPlayerToTeam(playerID, teamNumber); err != nil {
			return nil, err
		}
		d.PicksThisRound[captainID]++
	}
	confirmed := append([]int64(nil), pending...)
	delete(d.PendingTeamSelections, captainID)
	s.advanceTurn(d)
	return confirmed, nil
}

// AssignPlayer performs a single immediate pick (stage + confirm of one
// player) for flows without batching.
func (s *Service) AssignPlayer(d *models.Draft, captainID, playerID int64) error {
	if !s.CanPick(d, captainID) {
		return fmt.Errorf("captain %d cannot pick now", captainID)
	}
	player := d.GetPlayer(playerID)
	if player == nil {
		return fmt.Errorf("player %d not found", playerID)
	}
	if player.AssignedToTeam() {
		return fmt.Errorf("player %d is already on a team", playerID)
	}
	teamNumber := d.CaptainTeam(captainID)
	if err := d.AssignPlayerToTeam(playerID, teamNumber); err != nil {
		return err
	}
	d.PicksThisRound[captainID]++
	s.advanceTurn(d)
	return nil
}

// advanceTurn hands the turn to the other captain once the current captain's
// allotment is spent, and rolls over to the next round (first-pick captain
// leading) when both are done. Rounds where a captain's allotment is zero are
// skipped.
func (s *Service) advanceTurn(d *models.Draft) {
	pattern, err := Pattern(d.TeamSize)
	if err != nil {
		return
	}
	for {
		if d.TeamSelectionRound > len(pattern) {
			d.CurrentPickingCaptain = 0
			return
		}
		current := d.CurrentPickingCaptain
		if current != 0 && s.allotment(d, current) > d.PicksThisRound[current] {
			return
		}
		other := d.OpposingCaptain(current)
		if other != 0 && s.allotment(d, other) > d.PicksThisRound[other] {
			d.CurrentPickingCaptain = other
			return
		}
		d.TeamSelectionRound++
		for _, id := range d.Captains {
			d.PicksThisRound[id] = 0
		}
		d.CurrentPickingCaptain = d.FirstPickCaptain
	}
}

// Complete reports whether every round has been played and both teams are
// full.
func (s *Service) Complete(d *models.Draft) bool {
	pattern, err := Pattern(d.TeamSize)
	if err != nil {
		return false
	}
	return d.TeamSelectionRound > len(pattern) && d.Teams.IsComplete()
}
