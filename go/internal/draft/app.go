package draft

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mumu-bot/teamdraft/go/internal/draft/captain"
	"github.com/mumu-bot/teamdraft/go/internal/draft/events"
	"github.com/mumu-bot/teamdraft/go/internal/draft/orchestrator"
	"github.com/mumu-bot/teamdraft/go/internal/draft/servant"
	"github.com/mumu-bot/teamdraft/go/internal/draft/teamselect"
	"github.com/mumu-bot/teamdraft/go/internal/draft/validation"
	"github.com/mumu-bot/teamdraft/go/internal/models"
)

// Config tunes the application service. Zero values fall back to the model
// defaults.
type Config struct {
	VotingTimeLimit      time.Duration `yaml:"voting_time_limit"`
	SelectionTimeLimit   time.Duration `yaml:"selection_time_limit"`
	ReselectionTimeLimit time.Duration `yaml:"reselection_time_limit"`
	// EnableBalance turns on the rating-based balance calculator commands.
	EnableBalance bool `yaml:"enable_balance"`
}

func (c Config) withDefaults() Config {
	if c.VotingTimeLimit <= 0 {
		c.VotingTimeLimit = models.DefaultVotingTimeLimit
	}
	if c.SelectionTimeLimit <= 0 {
		c.SelectionTimeLimit = models.DefaultSelectionTimeLimit
	}
	if c.ReselectionTimeLimit <= 0 {
		c.ReselectionTimeLimit = models.DefaultReselectionTimeLimit
	}
	return c
}

// PlayerRef identifies a participant as the chat layer knows them.
type PlayerRef struct {
	UserID   int64
	Username string
}

// Service is the application layer: it serializes access per channel,
// validates, drives the orchestrator, persists, and presents. Every operation
// returns a Result instead of an error so callers get a uniform envelope.
type Service struct {
	repo      Repository
	presenter Presenter
	threads   ThreadService     // optional
	recorder  MatchRecorder     // optional
	balance   BalanceCalculator // optional

	validator *validation.Service
	captains  *captain.Service
	servants  *servant.Service
	picks     *teamselect.Service
	flow      *orchestrator.Orchestrator

	pool  *servant.Pool
	clock clockwork.Clock
	cfg   Config

	locks  channelLocks
	timers *timerSet
}

// NewService wires the domain services together. threads, recorder, and
// balance may be nil; the corresponding features degrade gracefully.
func NewService(repo Repository, presenter Presenter, threads ThreadService, recorder MatchRecorder, balance BalanceCalculator, pool *servant.Pool, clock clockwork.Clock, cfg Config) *Service {
	captains := captain.NewService()
	servants := servant.NewService()
	picks := teamselect.NewService()
	return &Service{
		repo:      repo,
		presenter: presenter,
		threads:   threads,
		recorder:  recorder,
		balance:   balance,
		validator: validation.NewService(),
		captains:  captains,
		servants:  servants,
		picks:     picks,
		flow:      orchestrator.New(captains, servants, picks, clock),
		pool:      pool,
		clock:     clock,
		cfg:       cfg.withDefaults(),
		timers:    newTimerSet(clock),
	}
}

// CreateDraft opens a draft with an up-front participant list. When the list
// already fills both teams, captain voting starts immediately.
func (s *Service) CreateDraft(ctx context.Context, channelID, guildID int64, teamSize int, startedBy int64, players []PlayerRef) *Result {
	unlock := s.locks.lock(channelID)
	defer unlock()

	if reasons := s.validator.DraftCreation(channelID, guildID, teamSize); len(reasons) > 0 {
		return failValidation(reasons)
	}
	d, err := s.flow.CreateDraft(channelID, guildID, teamSize, startedBy, s.pool)
	if err != nil {
		return fail(ErrorValidation, err.Error())
	}
	s.applyTimeLimits(d)
	for _, p := range players {
		if reasons := s.validator.PlayerAddition(d, p.UserID, p.Username); len(reasons) > 0 {
			return failValidation(reasons)
		}
		if err := d.AddPlayer(p.UserID, p.Username); err != nil {
			return fail(ErrorDuplicate, err.Error())
		}
	}
	d.MatchID = fmt.Sprintf("draft-%d-%s", channelID, d.DraftID)

	if d.CanStart() {
		if err := s.flow.StartCaptainVoting(d); err != nil {
			return fail(ErrorBadTransition, err.Error())
		}
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return s.repoFailure(err)
	}
	s.openThread(ctx, d)

	log.Info().
		Int64("channel_id", channelID).
		Int("team_size", teamSize).
		Int("players", d.PlayerCount()).
		Str("phase", string(d.Phase)).
		Msg("draft created")
	return s.presentAndOK(ctx, d, "draft created")
}

// CreateJoinDraft opens a lobby that auto-starts once totalPlayers have
// joined.
func (s *Service) CreateJoinDraft(ctx context.Context, channelID, guildID int64, totalPlayers int, startedBy int64) *Result {
	unlock := s.locks.lock(channelID)
	defer unlock()

	if reasons := s.validator.JoinDraft(totalPlayers); len(reasons) > 0 {
		return failValidation(reasons)
	}
	d, err := s.flow.CreateJoinDraft(channelID, guildID, totalPlayers, startedBy, s.pool)
	if err != nil {
		return fail(ErrorValidation, err.Error())
	}
	s.applyTimeLimits(d)
	d.MatchID = fmt.Sprintf("draft-%d-%s", channelID, d.DraftID)
	if err := s.repo.Create(ctx, d); err != nil {
		return s.repoFailure(err)
	}
	s.openThread(ctx, d)

	log.Info().
		Int64("channel_id", channelID).
		Int("total_players", totalPlayers).
		Msg("join draft created")
	return s.presentAndOK(ctx, d, fmt.Sprintf("waiting for %d players", totalPlayers))
}

// JoinDraft adds a player to a waiting lobby, starting captain voting when
// the join target is reached.
func (s *Service) JoinDraft(ctx context.Context, channelID, userID int64, username string) *Result {
	unlock := s.locks.lock(channelID)
	defer unlock()

	d, res := s.load(ctx, channelID)
	if res != nil {
		return res
	}
	if reasons := s.validator.PlayerAddition(d, userID, username); len(reasons) > 0 {
		return failValidation(reasons)
	}
	if err := d.AddPlayer(userID, username); err != nil {
		return fail(ErrorDuplicate, err.Error())
	}
	if d.JoinTargetTotalPlayers > 0 && d.PlayerCount() >= d.JoinTargetTotalPlayers {
		if err := s.flow.StartCaptainVoting(d); err != nil {
			return fail(ErrorBadTransition, err.Error())
		}
	}
	if err := s.repo.Save(ctx, d); err != nil {
		return s.repoFailure(err)
	}
	return s.presentAndOK(ctx, d, fmt.Sprintf("%s joined (%d/%d)", username, d.PlayerCount(), d.TotalPlayersNeeded()))
}

// LeaveDraft removes a player from a waiting lobby.
func (s *Service) LeaveDraft(ctx context.Context, channelID, userID int64) *Result {
	unlock := s.locks.lock(channelID)
	defer unlock()

	d, res := s.load(ctx, channelID)
	if res != nil {
		return res
	}
	if reasons := s.validator.PlayerRemoval(d, userID); len(reasons) > 0 {
		return failValidation(reasons)
	}
	if err := d.RemovePlayer(userID); err != nil {
		return fail(ErrorNotFound, err.Error())
	}
	if err := s.repo.Save(ctx, d); err != nil {
		return s.repoFailure(err)
	}
	return s.presentAndOK(ctx, d, fmt.Sprintf("player left (%d/%d)", d.PlayerCount(), d.TotalPlayersNeeded()))
}

// StartCaptainVoting begins the voting phase on a full lobby.
func (s *Service) StartCaptainVoting(ctx context.Context, channelID int64) *Result {
	unlock := s.locks.lock(channelID)
	defer unlock()

	d, res := s.load(ctx, channelID)
	if res != nil {
		return res
	}
	if err := s.flow.StartCaptainVoting(d); err != nil {
		return fail(ErrorInvalidState, err.Error())
	}
	if err := s.repo.Save(ctx, d); err != nil {
		return s.repoFailure(err)
	}
	return s.presentAndOK(ctx, d, "captain voting started")
}

// VoteForCaptain toggles a vote. A second vote for the same candidate
// retracts it.
func (s *Service) VoteForCaptain(ctx context.Context, channelID, voterID, candidateID int64) *VoteResult {
	unlock := s.locks.lock(channelID)
	defer unlock()

	d, res := s.load(ctx, channelID)
	if res != nil {
		return &VoteResult{Result: *res}
	}
	if reasons := s.validator.CaptainVote(d, voterID, candidateID); len(reasons) > 0 {
		return &VoteResult{Result: *failValidation(reasons)}
	}
	added, message, err := s.captains.CastVote(d, voterID, candidateID)
	if err != nil {
		return &VoteResult{Result: *fail(ErrorValidation, err.Error())}
	}
	if err := s.repo.Save(ctx, d); err != nil {
		return &VoteResult{Result: *s.repoFailure(err)}
	}
	counts := s.captains.VoteCounts(d)
	if err := s.presenter.UpdateStatus(ctx, channelID, message); err != nil {
		log.Warn().Err(err).Int64("channel_id", channelID).Msg("status update failed")
	}
	return &VoteResult{Result: *ok(d, nil, message), Added: added, VoteCounts: counts}
}

// FinalizeCaptains tallies votes, elects captains, and bootstraps the ban
// phase in one step.
func (s *Service) FinalizeCaptains(ctx context.Context, channelID int64) *Result {
	unlock := s.locks.lock(channelID)
	defer unlock()

	d, res := s.load(ctx, channelID)
	if res != nil {
		return res
	}
	setup, err := s.flow.FinalizeCaptains(d)
	if err != nil {
		return fail(ErrorInvalidState, err.Error())
	}
	if err := s.repo.Save(ctx, d); err != nil {
		return s.repoFailure(err)
	}
	return s.presentAndOK(ctx, d, fmt.Sprintf("captains %v elected, %d system bans", setup.Captains, len(setup.SystemBans)))
}

// BanServant applies one captain ban, advancing to servant selection once
// both captains have banned.
func (s *Service) BanServant(ctx context.Context, channelID, captainID int64, name string) *BanResult {
	unlock := s.locks.lock(channelID)
	defer unlock()

	d, res := s.load(ctx, channelID)
	if res != nil {
		return &BanResult{Result: *res}
	}
	if reasons := s.validator.ServantBan(d, captainID, name); len(reasons) > 0 {
		return &BanResult{Result: *failValidation(reasons)}
	}
	if err := s.servants.ApplyCaptainBan(d, captainID, name); err != nil {
		return &BanResult{Result: *fail(ErrorUnavailable, err.Error())}
	}

	complete := s.servants.CaptainBansComplete(d)
	if complete {
		if err := s.flow.CompleteBanPhase(d); err != nil {
			return &BanResult{Result: *fail(ErrorBadTransition, err.Error())}
		}
		s.armSelectionTimer(d)
	}
	if err := s.repo.Save(ctx, d); err != nil {
		return &BanResult{Result: *s.repoFailure(err)}
	}
	r := s.presentAndOK(ctx, d, fmt.Sprintf("%s banned", name))
	return &BanResult{Result: *r, NextBanner: d.CurrentBanningCaptain, BansComplete: complete}
}

// SelectServant records a non-captain's pick. When every player has
// submitted, conflicts are checked and the draft advances.
func (s *Service) SelectServant(ctx context.Context, channelID, userID int64, name string) *SelectionResult {
	unlock := s.locks.lock(channelID)
	defer unlock()

	d, res := s.load(ctx, channelID)
	if res != nil {
		return &SelectionResult{Result: *res}
	}
	if reasons := s.validator.ServantSelection(d, userID, name); len(reasons) > 0 {
		return &SelectionResult{Result: *failValidation(reasons)}
	}
	if err := s.servants.ApplySelection(d, userID, name); err != nil {
		return &SelectionResult{Result: *fail(ErrorUnavailable, err.Error())}
	}

	out := &SelectionResult{}
	if s.allSubmitted(d) {
		t, err := s.flow.CheckConflictsAndAdvance(d)
		if err != nil {
			return &SelectionResult{Result: *fail(ErrorInternal, err.Error())}
		}
		out.Transition = t
		s.afterSelectionTransition(ctx, d, t)
	}
	if err := s.repo.Save(ctx, d); err != nil {
		return &SelectionResult{Result: *s.repoFailure(err)}
	}
	out.Progress = events.BuildProgress(d)
	if err := s.presenter.ShowSelectionProgress(ctx, channelID, out.Progress); err != nil {
		log.Warn().Err(err).Int64("channel_id", channelID).Msg("progress update failed")
	}
	if out.Transition != nil {
		s.present(ctx, d)
	}
	out.Result = *ok(d, s.snapshot(d), "selection recorded")
	return out
}

// CheckConflictsAndAdvance runs the conflict check without waiting for every
// submission. Admin escape hatch; normal flow triggers it automatically.
func (s *Service) CheckConflictsAndAdvance(ctx context.Context, channelID int64) *SelectionResult {
	unlock := s.locks.lock(channelID)
	defer unlock()

	d, res := s.load(ctx, channelID)
	if res != nil {
		return &SelectionResult{Result: *res}
	}
	t, err := s.flow.CheckConflictsAndAdvance(d)
	if err != nil {
		return &SelectionResult{Result: *fail(ErrorInvalidState, err.Error())}
	}
	s.afterSelectionTransition(ctx, d, t)
	if err := s.repo.Save(ctx, d); err != nil {
		return &SelectionResult{Result: *s.repoFailure(err)}
	}
	s.present(ctx, d)
	return &SelectionResult{Result: *ok(d, s.snapshot(d), "conflict check ran"), Transition: t}
}

// StagePick queues a player pick for the captain's current turn without
// committing it.
func (s *Service) StagePick(ctx context.Context, channelID, captainID, playerID int64) *PickResult {
	unlock := s.locks.lock(channelID)
	defer unlock()

	d, res := s.load(ctx, channelID)
	if res != nil {
		return &PickResult{Result: *res}
	}
	if reasons := s.validator.TeamPick(d, captainID, playerID); len(reasons) > 0 {
		return &PickResult{Result: *failValidation(reasons)}
	}
	if err := s.picks.StagePick(d, captainID, playerID); err != nil {
		return &PickResult{Result: *fail(ErrorValidation, err.Error())}
	}
	if err := s.repo.Save(ctx, d); err != nil {
		return &PickResult{Result: *s.repoFailure(err)}
	}
	return &PickResult{
		Result:         *ok(d, nil, "pick staged"),
		NextPicker:     d.CurrentPickingCaptain,
		PicksRemaining: s.picks.PicksRemaining(d, captainID),
	}
}

// UnstagePick removes a queued pick.
func (s *Service) UnstagePick(ctx context.Context, channelID, captainID, playerID int64) *PickResult {
	unlock := s.locks.lock(channelID)
	defer unlock()

	d, res := s.load(ctx, channelID)
	if res != nil {
		return &PickResult{Result: *res}
	}
	if err := s.picks.UnstagePick(d, captainID, playerID); err != nil {
		return &PickResult{Result: *fail(ErrorValidation, err.Error())}
	}
	if err := s.repo.Save(ctx, d); err != nil {
		return &PickResult{Result: *s.repoFailure(err)}
	}
	return &PickResult{
		Result:         *ok(d, nil, "pick unstaged"),
		NextPicker:     d.CurrentPickingCaptain,
		PicksRemaining: s.picks.PicksRemaining(d, captainID),
	}
}

// ConfirmTeamSelection commits the captain's staged picks as one batch and
// advances the turn.
func (s *Service) ConfirmTeamSelection(ctx context.Context, channelID, captainID int64) *PickResult {
	unlock := s.locks.lock(channelID)
	defer unlock()

	d, res := s.load(ctx, channelID)
	if res != nil {
		return &PickResult{Result: *res}
	}
	assigned, err := s.picks.ConfirmPending(d, captainID)
	if err != nil {
		return &PickResult{Result: *fail(ErrorValidation, err.Error())}
	}
	return s.finishPickStep(ctx, d, captainID, fmt.Sprintf("%d picks confirmed", len(assigned)))
}

// AssignPlayerToTeam makes a single immediate pick for the captain whose turn
// it is.
func (s *Service) AssignPlayerToTeam(ctx context.Context, channelID, captainID, playerID int64) *PickResult {
	unlock := s.locks.lock(channelID)
	defer unlock()

	d, res := s.load(ctx, channelID)
	if res != nil {
		return &PickResult{Result: *res}
	}
	if reasons := s.validator.TeamPick(d, captainID, playerID); len(reasons) > 0 {
		return &PickResult{Result: *failValidation(reasons)}
	}
	if err := s.picks.AssignPlayer(d, captainID, playerID); err != nil {
		return &PickResult{Result: *fail(ErrorValidation, err.Error())}
	}
	return s.finishPickStep(ctx, d, captainID, "player assigned")
}

func (s *Service) finishPickStep(ctx context.Context, d *models.Draft, captainID int64, message string) *PickResult {
	complete := s.picks.Complete(d)
	if complete {
		if err := s.flow.CompleteTeamSelection(d); err != nil {
			return &PickResult{Result: *fail(ErrorBadTransition, err.Error())}
		}
		s.onDraftCompleted(ctx, d)
	}
	if err := s.repo.Save(ctx, d); err != nil {
		return &PickResult{Result: *s.repoFailure(err)}
	}
	s.present(ctx, d)
	return &PickResult{
		Result:         *ok(d, s.snapshot(d), message),
		NextPicker:     d.CurrentPickingCaptain,
		PicksRemaining: s.picks.PicksRemaining(d, captainID),
		DraftComplete:  complete,
	}
}

// RecordMatchResult reports the outcome of a completed draft and tears the
// draft down.
func (s *Service) RecordMatchResult(ctx context.Context, channelID int64, winner int, score string) *Result {
	unlock := s.locks.lock(channelID)
	defer unlock()

	d, res := s.load(ctx, channelID)
	if res != nil {
		return res
	}
	if reasons := s.validator.ResultRecording(d, winner); len(reasons) > 0 {
		return failValidation(reasons)
	}
	if s.recorder != nil {
		if err := s.recorder.RecordMatchOutcome(ctx, channelID, winner, score); err != nil {
			return fail(ErrorInternal, fmt.Sprintf("recording outcome: %v", err))
		}
	}
	d.OutcomeRecorded = true
	s.teardown(ctx, d)

	log.Info().
		Int64("channel_id", channelID).
		Int("winner", winner).
		Str("score", score).
		Msg("match result recorded")
	return ok(d, nil, fmt.Sprintf("team %d wins %s", winner, score))
}

// RecordMatchOutcome patches a result onto the most recent match recorded for
// the channel. Works after the draft itself has been cleaned up.
func (s *Service) RecordMatchOutcome(ctx context.Context, channelID int64, winner int, score string) *Result {
	if s.recorder == nil {
		return fail(ErrorInvalidState, "match recording is not configured")
	}
	if winner != 1 && winner != 2 {
		return fail(ErrorValidation, "winner must be team 1 or 2")
	}
	if err := s.recorder.RecordMatchOutcome(ctx, channelID, winner, score); err != nil {
		return fail(ErrorInternal, fmt.Sprintf("recording outcome: %v", err))
	}
	return &Result{Success: true, Message: fmt.Sprintf("team %d wins %s", winner, score)}
}

// CancelDraft aborts the channel's draft at any phase.
func (s *Service) CancelDraft(ctx context.Context, channelID int64) *Result {
	unlock := s.locks.lock(channelID)
	defer unlock()

	d, res := s.load(ctx, channelID)
	if res != nil {
		return res
	}
	s.teardown(ctx, d)
	log.Info().Int64("channel_id", channelID).Str("phase", string(d.Phase)).Msg("draft cancelled")
	return ok(d, nil, "draft cancelled")
}

// ForceCleanup removes whatever draft state exists for the channel, ignoring
// phase. Deleting a missing draft succeeds.
func (s *Service) ForceCleanup(ctx context.Context, channelID int64) *Result {
	unlock := s.locks.lock(channelID)
	defer unlock()

	s.timers.stop(channelID)
	if err := s.repo.Delete(ctx, channelID); err != nil {
		return s.repoFailure(err)
	}
	if err := s.presenter.CleanupChannel(ctx, channelID); err != nil {
		log.Warn().Err(err).Int64("channel_id", channelID).Msg("channel cleanup failed")
	}
	return &Result{Success: true, Message: "channel cleaned up"}
}

// ForceAdvance pushes a stalled draft through its current phase using
// automatic choices.
func (s *Service) ForceAdvance(ctx context.Context, channelID int64) *Result {
	unlock := s.locks.lock(channelID)
	defer unlock()

	d, res := s.load(ctx, channelID)
	if res != nil {
		return res
	}
	phase, err := s.flow.ForceAdvance(d)
	if err != nil {
		return fail(ErrorInvalidState, err.Error())
	}
	switch phase {
	case models.PhaseServantSelection, models.PhaseServantReselection:
		s.armSelectionTimer(d)
	case models.PhaseCompleted:
		s.onDraftCompleted(ctx, d)
	}
	if err := s.repo.Save(ctx, d); err != nil {
		return s.repoFailure(err)
	}
	return s.presentAndOK(ctx, d, fmt.Sprintf("advanced to %s", phase))
}

// GetStatus returns the current snapshot for the channel's draft. It takes
// the channel lock like every other operation: the repository hands out the
// live draft, so building the snapshot must not overlap a mutator.
func (s *Service) GetStatus(ctx context.Context, channelID int64) *Result {
	unlock := s.locks.lock(channelID)
	defer unlock()

	d, err := s.repo.Get(ctx, channelID)
	if err != nil {
		return s.repoFailure(err)
	}
	return ok(d, s.snapshot(d), string(d.Phase))
}

// SuggestBalance computes a rating-based team split without applying it.
func (s *Service) SuggestBalance(ctx context.Context, channelID int64) *Result {
	if !s.cfg.EnableBalance || s.balance == nil {
		return fail(ErrorInvalidState, "balance calculator is disabled")
	}
	unlock := s.locks.lock(channelID)
	defer unlock()

	d, res := s.load(ctx, channelID)
	if res != nil {
		return res
	}
	suggestion, err := s.balance.Suggest(ctx, d)
	if err != nil {
		return fail(ErrorInternal, fmt.Sprintf("balance calculation: %v", err))
	}
	d.BalanceSuggestion = suggestion
	if err := s.repo.Save(ctx, d); err != nil {
		return s.repoFailure(err)
	}
	return ok(d, s.snapshot(d), fmt.Sprintf("suggested split (%s), rating gap %.1f", suggestion.Algorithm, suggestion.RatingGap))
}

// AutoBalance applies the calculator's split to the unassigned players during
// team selection and completes the draft.
func (s *Service) AutoBalance(ctx context.Context, channelID int64) *Result {
	if !s.cfg.EnableBalance || s.balance == nil {
		return fail(ErrorInvalidState, "balance calculator is disabled")
	}
	unlock := s.locks.lock(channelID)
	defer unlock()

	d, res := s.load(ctx, channelID)
	if res != nil {
		return res
	}
	if d.Phase != models.PhaseTeamSelection {
		return fail(ErrorInvalidState, "auto balance only applies during team selection")
	}
	suggestion, err := s.balance.Suggest(ctx, d)
	if err != nil {
		return fail(ErrorInternal, fmt.Sprintf("balance calculation: %v", err))
	}
	d.BalanceSuggestion = suggestion
	for _, split := range []struct {
		ids  []int64
		team int
	}{{suggestion.TeamOne, 1}, {suggestion.TeamTwo, 2}} {
		for _, id := range split.ids {
			if p := d.GetPlayer(id); p == nil || p.AssignedToTeam() {
				continue
			}
			if err := d.AssignPlayerToTeam(id, split.team); err != nil {
				return fail(ErrorInternal, err.Error())
			}
		}
	}
	if !d.Teams.IsComplete() {
		return fail(ErrorInternal, "balance split did not fill both teams")
	}
	if pattern, perr := teamselect.Pattern(d.TeamSize); perr == nil {
		d.TeamSelectionRound = len(pattern) + 1
	}
	d.CurrentPickingCaptain = 0
	d.PendingTeamSelections = make(map[int64][]int64)
	if err := s.flow.CompleteTeamSelection(d); err != nil {
		return fail(ErrorBadTransition, err.Error())
	}
	s.onDraftCompleted(ctx, d)
	if err := s.repo.Save(ctx, d); err != nil {
		return s.repoFailure(err)
	}
	return s.presentAndOK(ctx, d, fmt.Sprintf("teams auto-balanced (%s)", suggestion.Algorithm))
}

// --- internals ---

func (s *Service) load(ctx context.Context, channelID int64) (*models.Draft, *Result) {
	d, err := s.repo.Get(ctx, channelID)
	if err != nil {
		return nil, s.repoFailure(err)
	}
	return d, nil
}

func (s *Service) repoFailure(err error) *Result {
	switch {
	case err == ErrDraftNotFound:
		return fail(ErrorNotFound, "no draft in this channel")
	case err == ErrDraftExists:
		return fail(ErrorDuplicate, "a draft is already running in this channel")
	}
	return fail(ErrorInternal, err.Error())
}

func (s *Service) applyTimeLimits(d *models.Draft) {
	d.VotingTimeLimit = s.cfg.VotingTimeLimit
	d.SelectionTimeLimit = s.cfg.SelectionTimeLimit
	d.ReselectionTimeLimit = s.cfg.ReselectionTimeLimit
}

func (s *Service) allSubmitted(d *models.Draft) bool {
	for _, id := range d.NonCaptainPlayers() {
		if !d.SelectionDone[id] {
			return false
		}
	}
	return true
}

// afterSelectionTransition arms timers and emits the dice report for whatever
// the conflict check decided.
func (s *Service) afterSelectionTransition(ctx context.Context, d *models.Draft, t *orchestrator.Transition) {
	if len(t.Resolutions) > 0 {
		reports := make([]events.Dice, 0, len(t.Resolutions))
		for _, r := range t.Resolutions {
			reports = append(reports, diceReport(r))
		}
		if err := s.presenter.ShowDiceReport(ctx, d.ChannelID, reports); err != nil {
			log.Warn().Err(err).Int64("channel_id", d.ChannelID).Msg("dice report failed")
		}
	}
	switch t.Phase {
	case models.PhaseServantReselection:
		s.armSelectionTimer(d)
	case models.PhaseTeamSelection:
		s.timers.stop(d.ChannelID)
	}
}

func (s *Service) onDraftCompleted(ctx context.Context, d *models.Draft) {
	s.timers.stop(d.ChannelID)
	if s.recorder != nil {
		rec := buildMatchRecord(d, s.clock.Now())
		if err := s.recorder.RecordMatch(ctx, rec); err != nil {
			log.Error().Err(err).Int64("channel_id", d.ChannelID).Str("match_id", rec.MatchID).Msg("prematch record failed")
		}
	}
	if s.cfg.EnableBalance && s.balance != nil && d.BalanceSuggestion == nil {
		if suggestion, err := s.balance.Suggest(ctx, d); err == nil {
			d.BalanceSuggestion = suggestion
		}
	}
}

func (s *Service) teardown(ctx context.Context, d *models.Draft) {
	s.timers.stop(d.ChannelID)
	if err := s.repo.Delete(ctx, d.ChannelID); err != nil {
		log.Warn().Err(err).Int64("channel_id", d.ChannelID).Msg("draft delete failed")
	}
	if err := s.presenter.CleanupChannel(ctx, d.ChannelID); err != nil {
		log.Warn().Err(err).Int64("channel_id", d.ChannelID).Msg("channel cleanup failed")
	}
	if s.threads != nil && d.ThreadID != 0 {
		if err := s.threads.ArchiveThread(ctx, d.ThreadID); err != nil {
			log.Warn().Err(err).Int64("thread_id", d.ThreadID).Msg("thread archive failed")
		}
	}
}

func (s *Service) openThread(ctx context.Context, d *models.Draft) {
	if s.threads == nil {
		return
	}
	name := fmt.Sprintf("draft-%dv%d", d.TeamSize, d.TeamSize)
	threadID, err := s.threads.CreateThread(ctx, d.ChannelID, name)
	if err != nil {
		log.Warn().Err(err).Int64("channel_id", d.ChannelID).Msg("thread creation failed, using channel")
		return
	}
	d.ThreadID = threadID
}

func (s *Service) snapshot(d *models.Draft) *events.Snapshot {
	return events.BuildSnapshot(d, s.clock.Now())
}

func (s *Service) presentAndOK(ctx context.Context, d *models.Draft, message string) *Result {
	s.present(ctx, d)
	return ok(d, s.snapshot(d), message)
}

// present renders the phase-appropriate view. Presenter failures are logged
// and never surfaced: display must not roll back domain state.
func (s *Service) present(ctx context.Context, d *models.Draft) {
	snap := s.snapshot(d)
	var err error
	switch d.Phase {
	case models.PhaseWaiting:
		err = s.presenter.ShowLobby(ctx, snap)
	case models.PhaseCaptainVoting:
		err = s.presenter.ShowCaptainVoting(ctx, snap)
	case models.PhaseServantBan:
		err = s.presenter.ShowBanPhase(ctx, snap)
	case models.PhaseServantSelection, models.PhaseServantReselection:
		err = s.presenter.ShowServantSelection(ctx, snap)
	case models.PhaseTeamSelection:
		err = s.presenter.ShowTeamSelection(ctx, snap)
	case models.PhaseCompleted:
		err = s.presenter.ShowResults(ctx, snap)
	}
	if err != nil {
		log.Warn().
			Err(err).
			Int64("channel_id", d.ChannelID).
			Str("phase", string(d.Phase)).
			Msg("presenter call failed")
	}
}

func diceReport(r servant.ConflictResolution) events.Dice {
	d := events.Dice{
		Servant:  r.Servant,
		WinnerID: r.WinnerID,
		Losers:   r.Losers,
		Attempts: r.Attempts,
		Fallback: r.Fallback,
	}
	for id, value := range r.Rolls {
		d.Rolls = append(d.Rolls, events.Roll{UserID: id, Value: value})
	}
	return d
}

func buildMatchRecord(d *models.Draft, now time.Time) *models.MatchRecord {
	rec := &models.MatchRecord{
		MatchID:   d.MatchID,
		GuildID:   d.GuildID,
		ChannelID: d.ChannelID,
		TeamSize:  d.TeamSize,
		Captains:  append([]int64(nil), d.Captains...),
		CreatedAt: now,
	}
	for name := range d.BannedServants {
		rec.Bans = append(rec.Bans, name)
	}
	for _, pair := range []struct {
		team *models.Team
		dst  *[]models.MatchPlayer
	}{{d.Teams.TeamOne, &rec.TeamOne}, {d.Teams.TeamTwo, &rec.TeamTwo}} {
		for _, id := range pair.team.Members() {
			p := d.GetPlayer(id)
			if p == nil {
				continue
			}
			*pair.dst = append(*pair.dst, models.MatchPlayer{
				UserID:    p.UserID,
				Username:  p.Username,
				Servant:   d.ConfirmedServants[p.UserID],
				IsCaptain: p.IsCaptain,
			})
		}
	}
	return rec
}
