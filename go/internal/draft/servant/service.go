package servant

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mumu-bot/teamdraft/go/internal/models"
)

const (
	dieSides        = 20
	maxRollAttempts = 5
)

// ConflictResolution reports one servant's dice-off: who rolled what, who
// kept the servant, and who goes back to selection.
type ConflictResolution struct {
	Servant  string        `json:"servant"`
	WinnerID int64         `json:"winner_id"`
	Losers   []int64       `json:"losers"`
	Rolls    map[int64]int `json:"rolls"`
	Attempts int           `json:"attempts"`
	// Fallback is set when the roll-off exhausted its attempts and the lowest
	// user id won by rule.
	Fallback bool `json:"fallback,omitempty"`
}

// Service owns the servant pool rules: tiered system bans, captain-ban turn
// keeping, selections, conflict detection and dice resolution.
type Service struct {
	rng *rand.Rand
}

// NewService constructs a Service with its own seeded source.
func NewService() *Service {
	return &Service{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// InitializeAvailability copies the pool onto the draft so a running session
// is unaffected by later config reloads.
func (s *Service) InitializeAvailability(d *models.Draft, pool *Pool) {
	d.ServantTiers = make(map[string][]string, len(pool.Tiers))
	for tier, names := range pool.Tiers {
		d.ServantTiers[tier] = append([]string(nil), names...)
	}
	d.DetectionServants = pool.DetectionSet()
	d.CloakingServants = pool.CloakingSet()
	d.AvailableServants = pool.All()
	d.BannedServants = make(map[string]bool)
	d.SystemBans = nil
}

// PerformSystemBans draws one servant uniformly at random from each tier in
// order S, A, B. A tier that has no remaining member after earlier draws is
// skipped. The draws are recorded as system bans, distinct from captain bans.
func (s *Service) PerformSystemBans(d *models.Draft) []string {
	var bans []string
	for _, tier := range TierOrder {
		candidates := s.availableInTier(d, tier)
		if len(candidates) == 0 {
			continue
		}
		pick := candidates[s.rng.Intn(len(candidates))]
		if err := d.BanServant(pick, 0); err != nil {
			log.Warn().Err(err).Str("servant", pick).Str("tier", tier).Msg("system ban skipped")
			continue
		}
		bans = append(bans, pick)
	}
	return bans
}

func (s *Service) availableInTier(d *models.Draft, tier string) []string {
	var out []string
	for _, name := range d.ServantTiers[tier] {
		if d.IsServantAvailable(name) {
			out = append(out, name)
		}
	}
	return out
}

// AvailableByTier lists the still-open servants per tier for display.
func (s *Service) AvailableByTier(d *models.Draft) map[string][]string {
	out := make(map[string][]string, len(d.ServantTiers))
	for tier := range d.ServantTiers {
		out[tier] = s.availableInTier(d, tier)
	}
	return out
}

// InitializeCaptainBans arms the captain ban turn tracking once the dice
// order has been determined.
func (s *Service) InitializeCaptainBans(d *models.Draft) {
	for _, id := range d.Captains {
		d.CaptainBanDone[id] = false
	}
	if len(d.CaptainBanOrder) > 0 {
		d.CurrentBanningCaptain = d.CaptainBanOrder[0]
	}
}

// CanCaptainBan reports whether it is this captain's turn and they have not
// already banned.
func (s *Service) CanCaptainBan(d *models.Draft, captainID int64) bool {
	return d.CurrentBanningCaptain == captainID && !d.CaptainBanDone[captainID]
}

// ApplyCaptainBan bans one servant for the acting captain and advances the
// turn.
func (s *Service) ApplyCaptainBan(d *models.Draft, captainID int64, name string) error {
	if !s.CanCaptainBan(d, captainID) {
		return fmt.Errorf("captain %d cannot ban now", captainID)
	}
	if !d.IsServantAvailable(name) {
		return fmt.Errorf("servant %s is not available", name)
	}
	if err := d.BanServant(name, captainID); err != nil {
		return err
	}
	d.CaptainBanDone[captainID] = true
	s.advanceBanTurn(d)
	return nil
}

func (s *Service) advanceBanTurn(d *models.Draft) {
	current := d.CurrentBanningCaptain
	idx := -1
	for i, id := range d.CaptainBanOrder {
		if id == current {
			idx = i
			break
		}
	}
	if idx >= 0 && idx+1 < len(d.CaptainBanOrder) {
		next := d.CaptainBanOrder[idx+1]
		if !d.CaptainBanDone[next] {
			d.CurrentBanningCaptain = next
			return
		}
	}
	d.CurrentBanningCaptain = 0
}

// CaptainBansComplete reports whether every captain has banned.
func (s *Service) CaptainBansComplete(d *models.Draft) bool {
	for _, id := range d.Captains {
		if !d.CaptainBanDone[id] {
			return false
		}
	}
	return true
}

// ApplySelection records a pending servant choice for a player, replacing any
// previous choice, and refreshes the conflict map.
func (s *Service) ApplySelection(d *models.Draft, userID int64, name string) error {
	player := d.GetPlayer(userID)
	if player == nil {
		return fmt.Errorf("player %d not found", userID)
	}
	if player.IsCaptain {
		return fmt.Errorf("captains do not select servants")
	}
	if !d.IsServantAvailable(name) {
		return fmt.Errorf("servant %s is not available", name)
	}
	if prev := player.SelectedServant; prev != "" && prev != name {
		log.Debug().
			Int64("user_id", userID).
			Str("from", prev).
			Str("to", name).
			Msg("player changed servant selection")
	}
	if err := player.SelectServant(name); err != nil {
		return err
	}
	d.SelectionDone[userID] = true
	d.ConflictedServants = s.DetectConflicts(d)
	return nil
}

// DetectConflicts returns servants pending-selected by two or more players.
func (s *Service) DetectConflicts(d *models.Draft) map[string][]int64 {
	claims := make(map[string][]int64)
	for _, id := range d.JoinOrder {
		player := d.Players[id]
		if player == nil || player.IsCaptain || player.SelectedServant == "" {
			continue
		}
		if _, confirmed := d.ConfirmedServants[id]; confirmed {
			continue
		}
		claims[player.SelectedServant] = append(claims[player.SelectedServant], id)
	}
	conflicts := make(map[string][]int64)
	for name, ids := range claims {
		if len(ids) > 1 {
			conflicts[name] = ids
		}
	}
	return conflicts
}

// ResolveConflicts runs a d20 roll-off per conflicted servant. The highest
// roll wins; ties re-roll among the tied subset for at most five rounds, then
// the lowest user id wins. Winners are confirmed; losers lose their pending
// choice and must reselect.
func (s *Service) ResolveConflicts(d *models.Draft) []ConflictResolution {
	names := make([]string, 0, len(d.ConflictedServants))
	for name := range d.ConflictedServants {
		names = append(names, name)
	}
	sort.Strings(names)

	var results []ConflictResolution
	for _, name := range names {
		contenders := append([]int64(nil), d.ConflictedServants[name]...)
		winner, rolls, attempts, fallback := s.rollOff(contenders)

		d.ConfirmedServants[winner] = name
		delete(d.AvailableServants, name)

		var losers []int64
		for _, id := range contenders {
			if id == winner {
				continue
			}
			losers = append(losers, id)
			if p := d.Players[id]; p != nil {
				p.ClearServantSelection()
			}
			d.SelectionDone[id] = false
		}
		d.ConflictedServants[name] = losers

		results = append(results, ConflictResolution{
			Servant:  name,
			WinnerID: winner,
			Losers:   losers,
			Rolls:    rolls,
			Attempts: attempts,
			Fallback: fallback,
		})
	}
	return results
}

// rollOff rolls a d20 per contender, re-rolling only the tied subset. After
// maxRollAttempts rounds the lowest user id wins; the bound guarantees
// termination.
func (s *Service) rollOff(contenders []int64) (int64, map[int64]int, int, bool) {
	rolls := make(map[int64]int, len(contenders))
	current := append([]int64(nil), contenders...)
	attempts := 0
	for attempts < maxRollAttempts {
		attempts++
		for _, id := range current {
			rolls[id] = s.rng.Intn(dieSides) + 1
		}
		high := 0
		for _, id := range current {
			if rolls[id] > high {
				high = rolls[id]
			}
		}
		var tied []int64
		for _, id := range current {
			if rolls[id] == high {
				tied = append(tied, id)
			}
		}
		if len(tied) == 1 {
			return tied[0], rolls, attempts, false
		}
		current = tied
		log.Debug().Int("attempt", attempts).Int("tied", len(current)).Msg("dice tie, re-rolling tied subset")
	}
	winner := current[0]
	for _, id := range current[1:] {
		if id < winner {
			winner = id
		}
	}
	log.Warn().Int64("winner_id", winner).Msg("dice roll-off exhausted, lowest user id wins")
	return winner, rolls, attempts, true
}

// ConfirmNonConflicted promotes every pending, un-conflicted choice to a
// confirmed servant.
func (s *Service) ConfirmNonConflicted(d *models.Draft) {
	conflicted := make(map[int64]bool)
	for _, ids := range d.ConflictedServants {
		for _, id := range ids {
			conflicted[id] = true
		}
	}
	for _, id := range d.JoinOrder {
		player := d.Players[id]
		if player == nil || player.IsCaptain || player.SelectedServant == "" || conflicted[id] {
			continue
		}
		if _, done := d.ConfirmedServants[id]; done {
			continue
		}
		d.ConfirmedServants[id] = player.SelectedServant
		delete(d.AvailableServants, player.SelectedServant)
	}
}

// CloakingBansForReselection bans every still-available cloaking servant when
// no confirmed servant has detection capability, so the re-picking side is
// not blind against cloaks. Recorded separately from system and captain bans.
func (s *Service) CloakingBansForReselection(d *models.Draft) []string {
	for _, name := range d.ConfirmedServants {
		if d.DetectionServants[name] {
			return nil
		}
	}
	var banned []string
	for name := range d.CloakingServants {
		if !d.IsServantAvailable(name) {
			continue
		}
		delete(d.AvailableServants, name)
		d.BannedServants[name] = true
		banned = append(banned, name)
	}
	sort.Strings(banned)
	d.ReselectionAutoBans = append(d.ReselectionAutoBans, banned...)
	return banned
}

// SelectionComplete reports whether every non-captain has a confirmed
// servant.
func (s *Service) SelectionComplete(d *models.Draft) bool {
	for _, id := range d.NonCaptainPlayers() {
		if _, ok := d.ConfirmedServants[id]; !ok {
			return false
		}
	}
	return true
}

// PlayersNeedingReselection lists the players awaiting a new choice: not
// confirmed and without a pending pick. Computed from player state because
// the conflict map is rebuilt on every new selection.
func (s *Service) PlayersNeedingReselection(d *models.Draft) []int64 {
	var ids []int64
	for _, id := range d.NonCaptainPlayers() {
		if _, confirmed := d.ConfirmedServants[id]; confirmed {
			continue
		}
		if p := d.Players[id]; p != nil && !p.HasSelectedServant() {
			ids = append(ids, id)
		}
	}
	return ids
}

// AutoAssignIncomplete gives every non-captain with no pick at all — neither
// confirmed nor pending — a random available servant and confirms it. Players
// who already submitted a pending choice keep it; the regular conflict check
// confirms those afterwards. Used by the timeout monitors.
func (s *Service) AutoAssignIncomplete(d *models.Draft) map[int64]string {
	// Names pending-selected by other players stay out of the random pool so
	// an auto pick never steals a submitted choice.
	pending := make(map[string]bool)
	for _, id := range d.NonCaptainPlayers() {
		if _, ok := d.ConfirmedServants[id]; ok {
			continue
		}
		if p := d.Players[id]; p != nil && p.HasSelectedServant() {
			pending[p.SelectedServant] = true
		}
	}
	assigned := make(map[int64]string)
	for _, id := range d.NonCaptainPlayers() {
		if _, ok := d.ConfirmedServants[id]; ok {
			continue
		}
		p := d.Players[id]
		if p == nil || p.HasSelectedServant() {
			continue
		}
		candidates := make([]string, 0)
		for _, name := range d.AvailableServantList() {
			if !pending[name] {
				candidates = append(candidates, name)
			}
		}
		if len(candidates) == 0 {
			log.Error().Int64("channel_id", d.ChannelID).Msg("servant pool exhausted during auto-assign")
			break
		}
		pick := candidates[s.rng.Intn(len(candidates))]
		_ = p.SelectServant(pick)
		d.ConfirmedServants[id] = pick
		delete(d.AvailableServants, pick)
		d.SelectionDone[id] = true
		assigned[id] = pick
	}
	d.ConflictedServants = s.DetectConflicts(d)
	return assigned
}
