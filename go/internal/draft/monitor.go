package draft

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mumu-bot/teamdraft/go/internal/models"
)

// lockStripes bounds memory for per-channel serialization. Collisions only
// cost contention, never correctness.
const lockStripes = 64

// channelLocks serializes operations per channel with a fixed stripe set.
type channelLocks struct {
	stripes [lockStripes]sync.Mutex
}

func (c *channelLocks) lock(channelID int64) func() {
	mu := &c.stripes[uint64(channelID)%lockStripes]
	mu.Lock()
	return mu.Unlock
}

// timerSet tracks at most one selection timer per channel. Arming a new timer
// stops and drains the old one first so a channel never has two monitors.
type timerSet struct {
	clock  clockwork.Clock
	mu     sync.Mutex
	timers map[int64]clockwork.Timer
}

func newTimerSet(clock clockwork.Clock) *timerSet {
	return &timerSet{clock: clock, timers: make(map[int64]clockwork.Timer)}
}

func (ts *timerSet) set(channelID int64, t clockwork.Timer) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if old, ok := ts.timers[channelID]; ok {
		stopAndDrainTimer(old)
	}
	ts.timers[channelID] = t
}

func (ts *timerSet) clear(channelID int64, t clockwork.Timer) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.timers[channelID] == t {
		delete(ts.timers, channelID)
	}
}

func (ts *timerSet) stop(channelID int64) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if t, ok := ts.timers[channelID]; ok {
		stopAndDrainTimer(t)
		delete(ts.timers, channelID)
	}
}

func stopAndDrainTimer(t clockwork.Timer) {
	if !t.Stop() {
		select {
		case <-t.Chan():
		default:
		}
	}
}

// armSelectionTimer starts the timeout monitor for the draft's current
// selection round. The monitor captures the generation at arm time; by the
// time it fires, a phase change (or an in-phase reselection restart) will
// have bumped the generation, and the stale monitor must no-op.
func (s *Service) armSelectionTimer(d *models.Draft) {
	wait := d.SelectionTimeLimit
	if d.Phase == models.PhaseServantReselection {
		wait = d.ReselectionTimeLimit
	}
	channelID := d.ChannelID
	generation := d.Generation

	timer := s.clock.NewTimer(wait)
	s.timers.set(channelID, timer)
	go func() {
		<-timer.Chan()
		s.timers.clear(channelID, timer)
		s.HandleSelectionTimeout(context.Background(), channelID, generation)
	}()

	log.Debug().
		Int64("channel_id", channelID).
		Uint64("generation", generation).
		Dur("wait", wait).
		Msg("selection timer armed")
}

// HandleSelectionTimeout auto-assigns servants to anyone who has not
// submitted and runs the conflict check. A generation mismatch means the
// draft moved on while the timer was pending, and the timeout is ignored.
func (s *Service) HandleSelectionTimeout(ctx context.Context, channelID int64, generation uint64) {
	unlock := s.locks.lock(channelID)
	defer unlock()

	d, err := s.repo.Get(ctx, channelID)
	if err != nil {
		log.Debug().Err(err).Int64("channel_id", channelID).Msg("timeout fired for missing draft")
		return
	}
	if d.Generation != generation {
		log.Debug().
			Int64("channel_id", channelID).
			Uint64("armed", generation).
			Uint64("current", d.Generation).
			Msg("stale selection timeout ignored")
		return
	}
	if d.Phase != models.PhaseServantSelection && d.Phase != models.PhaseServantReselection {
		return
	}

	assigned := s.servants.AutoAssignIncomplete(d)
	log.Info().
		Int64("channel_id", channelID).
		Int("auto_assigned", len(assigned)).
		Str("phase", string(d.Phase)).
		Msg("selection timed out")

	t, err := s.flow.CheckConflictsAndAdvance(d)
	if err != nil {
		log.Error().Err(err).Int64("channel_id", channelID).Msg("timeout advance failed")
		return
	}
	s.afterSelectionTransition(ctx, d, t)
	if err := s.repo.Save(ctx, d); err != nil {
		log.Error().Err(err).Int64("channel_id", channelID).Msg("timeout save failed")
		return
	}
	s.present(ctx, d)
}
