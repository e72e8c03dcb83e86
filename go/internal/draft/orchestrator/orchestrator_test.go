package orchestrator

import (
	"fmt"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mumu-bot/teamdraft/go/internal/draft/captain"
	"github.com/mumu-bot/teamdraft/go/internal/draft/servant"
	"github.com/mumu-bot/teamdraft/go/internal/draft/teamselect"
	"github.com/mumu-bot/teamdraft/go/internal/models"
)

func newOrchestrator() *Orchestrator {
	return New(captain.NewService(), servant.NewService(), teamselect.NewService(), clockwork.NewFakeClock())
}

func fullDraft(t *testing.T, o *Orchestrator, teamSize int) *models.Draft {
	t.Helper()
	d, err := o.CreateDraft(100, 200, teamSize, 1, servant.DefaultPool())
	require.NoError(t, err)
	for i := 1; i <= teamSize*2; i++ {
		require.NoError(t, d.AddPlayer(int64(i), fmt.Sprintf("player%d", i)))
	}
	return d
}

func TestCreateDraftRejectsUnsupportedSize(t *testing.T) {
	o := newOrchestrator()
	_, err := o.CreateDraft(100, 200, 4, 1, servant.DefaultPool())
	assert.Error(t, err)
}

func TestCreateJoinDraftValidatesTotal(t *testing.T) {
	o := newOrchestrator()
	_, err := o.CreateJoinDraft(100, 200, 7, 1, servant.DefaultPool())
	assert.Error(t, err, "odd totals are rejected")
	_, err = o.CreateJoinDraft(100, 200, 2, 1, servant.DefaultPool())
	assert.Error(t, err, "too few players")

	d, err := o.CreateJoinDraft(100, 200, 10, 1, servant.DefaultPool())
	require.NoError(t, err)
	assert.Equal(t, 5, d.TeamSize)
	assert.Equal(t, 10, d.JoinTargetTotalPlayers)
}

func TestStartCaptainVotingRequiresFull(t *testing.T) {
	o := newOrchestrator()
	d, err := o.CreateDraft(100, 200, 2, 1, servant.DefaultPool())
	require.NoError(t, err)
	require.NoError(t, d.AddPlayer(1, "a"))

	assert.Error(t, o.StartCaptainVoting(d))

	for i := 2; i <= 4; i++ {
		require.NoError(t, d.AddPlayer(int64(i), fmt.Sprintf("p%d", i)))
	}
	require.NoError(t, o.StartCaptainVoting(d))
	assert.Equal(t, models.PhaseCaptainVoting, d.Phase)
}

// FinalizeCaptains must leave the draft fully armed for banning: captains
// set, tier draws done, dice order fixed, and the first captain on turn.
func TestFinalizeCaptainsBootstrapsBanPhase(t *testing.T) {
	o := newOrchestrator()
	d := fullDraft(t, o, 3)
	require.NoError(t, o.StartCaptainVoting(d))

	setup, err := o.FinalizeCaptains(d)
	require.NoError(t, err)

	assert.Equal(t, models.PhaseServantBan, d.Phase)
	assert.Len(t, setup.Captains, 2)
	assert.Len(t, setup.SystemBans, 3)
	assert.ElementsMatch(t, setup.Captains, setup.BanOrder)
	assert.Equal(t, setup.BanOrder[0], d.CurrentBanningCaptain)

	_, err = o.FinalizeCaptains(d)
	assert.Error(t, err, "finalizing twice must fail")
}

func runToSelection(t *testing.T, o *Orchestrator, d *models.Draft) {
	t.Helper()
	require.NoError(t, o.StartCaptainVoting(d))
	_, err := o.FinalizeCaptains(d)
	require.NoError(t, err)
	for _, id := range d.CaptainBanOrder {
		name := d.AvailableServantList()[0]
		require.NoError(t, o.servants.ApplyCaptainBan(d, id, name))
	}
	require.NoError(t, o.CompleteBanPhase(d))
}

func TestCompleteBanPhaseRequiresAllBans(t *testing.T) {
	o := newOrchestrator()
	d := fullDraft(t, o, 2)
	require.NoError(t, o.StartCaptainVoting(d))
	_, err := o.FinalizeCaptains(d)
	require.NoError(t, err)

	assert.Error(t, o.CompleteBanPhase(d))
}

func TestCheckConflictsNoConflictAdvances(t *testing.T) {
	o := newOrchestrator()
	d := fullDraft(t, o, 2)
	runToSelection(t, o, d)

	available := d.AvailableServantList()
	nonCaptains := d.NonCaptainPlayers()
	for i, id := range nonCaptains {
		require.NoError(t, o.servants.ApplySelection(d, id, available[i]))
	}

	tr, err := o.CheckConflictsAndAdvance(d)
	require.NoError(t, err)
	assert.Empty(t, tr.Resolutions)
	assert.Equal(t, models.PhaseTeamSelection, tr.Phase)
	assert.Equal(t, d.CaptainBanOrder[0], d.CurrentPickingCaptain)
}

func TestCheckConflictsEntersReselection(t *testing.T) {
	o := newOrchestrator()
	d := fullDraft(t, o, 3)
	runToSelection(t, o, d)

	available := d.AvailableServantList()
	nonCaptains := d.NonCaptainPlayers()
	require.Len(t, nonCaptains, 4)
	// Two players contest the same servant; the rest pick distinct ones.
	require.NoError(t, o.servants.ApplySelection(d, nonCaptains[0], available[0]))
	require.NoError(t, o.servants.ApplySelection(d, nonCaptains[1], available[0]))
	require.NoError(t, o.servants.ApplySelection(d, nonCaptains[2], available[1]))
	require.NoError(t, o.servants.ApplySelection(d, nonCaptains[3], available[2]))

	tr, err := o.CheckConflictsAndAdvance(d)
	require.NoError(t, err)
	require.Len(t, tr.Resolutions, 1)
	assert.Equal(t, models.PhaseServantReselection, tr.Phase)
	assert.Equal(t, 1, d.ReselectionRound)

	// The loser reselects; no new conflict, draft moves on.
	loser := tr.Resolutions[0].Losers[0]
	require.NoError(t, o.servants.ApplySelection(d, loser, d.AvailableServantList()[0]))
	tr, err = o.CheckConflictsAndAdvance(d)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseTeamSelection, tr.Phase)
}

// A conflict among reselecting players is resolved in place: new dice, a new
// round counter, same phase.
func TestReselectionConflictStaysInPhase(t *testing.T) {
	o := newOrchestrator()
	d := fullDraft(t, o, 3)
	runToSelection(t, o, d)

	available := d.AvailableServantList()
	nonCaptains := d.NonCaptainPlayers()
	for _, id := range nonCaptains[:3] {
		require.NoError(t, o.servants.ApplySelection(d, id, available[0]))
	}
	require.NoError(t, o.servants.ApplySelection(d, nonCaptains[3], available[1]))

	tr, err := o.CheckConflictsAndAdvance(d)
	require.NoError(t, err)
	require.Len(t, tr.Resolutions, 1)
	require.Len(t, tr.Resolutions[0].Losers, 2)
	require.Equal(t, models.PhaseServantReselection, d.Phase)
	genBefore := d.Generation

	// Both losers contest again.
	losers := tr.Resolutions[0].Losers
	next := d.AvailableServantList()[0]
	require.NoError(t, o.servants.ApplySelection(d, losers[0], next))
	require.NoError(t, o.servants.ApplySelection(d, losers[1], next))

	tr, err = o.CheckConflictsAndAdvance(d)
	require.NoError(t, err)
	require.Len(t, tr.Resolutions, 1)
	assert.Equal(t, models.PhaseServantReselection, tr.Phase)
	assert.Equal(t, 2, d.ReselectionRound)
	assert.Greater(t, d.Generation, genBefore, "in-phase restart must stale old timers")

	// Final loser picks clean.
	finalLoser := tr.Resolutions[0].Losers[0]
	require.NoError(t, o.servants.ApplySelection(d, finalLoser, d.AvailableServantList()[0]))
	tr, err = o.CheckConflictsAndAdvance(d)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseTeamSelection, tr.Phase)
}

func TestForceAdvanceWalksWholeDraft(t *testing.T) {
	o := newOrchestrator()
	d := fullDraft(t, o, 5)

	want := []models.DraftPhase{
		models.PhaseCaptainVoting,
		models.PhaseServantBan,
		models.PhaseServantSelection,
		models.PhaseTeamSelection,
		models.PhaseCompleted,
	}
	for _, expected := range want {
		phase, err := o.ForceAdvance(d)
		require.NoError(t, err)
		assert.Equal(t, expected, phase)
	}
	assert.True(t, d.Teams.IsComplete())

	_, err := o.ForceAdvance(d)
	assert.Error(t, err, "completed drafts cannot advance")
}

func TestCanAdvance(t *testing.T) {
	o := newOrchestrator()
	d := fullDraft(t, o, 2)
	assert.True(t, o.CanAdvance(d), "full waiting draft can start")

	runToSelection(t, o, d)
	assert.False(t, o.CanAdvance(d), "selections outstanding")
}
