package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDraft(t *testing.T, teamSize, players int) *Draft {
	t.Helper()
	d := NewDraft(100, 200, teamSize)
	for i := 1; i <= players; i++ {
		require.NoError(t, d.AddPlayer(int64(i), fmt.Sprintf("player%d", i)))
	}
	return d
}

func TestAddPlayer(t *testing.T) {
	d := newTestDraft(t, 2, 3)

	assert.Equal(t, 3, d.PlayerCount())
	assert.False(t, d.CanStart())

	assert.Error(t, d.AddPlayer(1, "dup"), "duplicate join must fail")

	require.NoError(t, d.AddPlayer(4, "player4"))
	assert.True(t, d.CanStart())

	assert.Error(t, d.AddPlayer(5, "overflow"), "joining a full draft must fail")
}

func TestRemovePlayerCleansUp(t *testing.T) {
	d := newTestDraft(t, 2, 4)
	require.NoError(t, d.SetCaptains([]int64{1, 2}))

	require.NoError(t, d.RemovePlayer(1))
	assert.NotContains(t, d.Captains, int64(1))
	assert.False(t, d.Teams.TeamOne.Contains(1))
	assert.Equal(t, []int64{2, 3, 4}, d.JoinOrder)

	assert.Error(t, d.RemovePlayer(99))
}

func TestAdvancePhaseBumpsGeneration(t *testing.T) {
	d := newTestDraft(t, 2, 4)
	gen := d.Generation

	require.NoError(t, d.AdvancePhase(PhaseCaptainVoting))
	assert.Equal(t, gen+1, d.Generation)

	err := d.AdvancePhase(PhaseTeamSelection)
	require.Error(t, err)
	assert.Equal(t, gen+1, d.Generation, "failed transition must not bump generation")
	assert.Equal(t, PhaseCaptainVoting, d.Phase)
}

func TestSetCaptains(t *testing.T) {
	d := newTestDraft(t, 3, 6)

	assert.Error(t, d.SetCaptains([]int64{1}), "one captain is not enough")
	assert.Error(t, d.SetCaptains([]int64{1, 1}), "captains must be distinct")
	assert.Error(t, d.SetCaptains([]int64{1, 99}), "captain must be a participant")

	require.NoError(t, d.SetCaptains([]int64{3, 5}))
	assert.True(t, d.IsCaptain(3))
	assert.True(t, d.IsCaptain(5))
	assert.Equal(t, 1, d.CaptainTeam(3))
	assert.Equal(t, 2, d.CaptainTeam(5))
	assert.Equal(t, int64(5), d.OpposingCaptain(3))
	assert.True(t, d.Teams.BothHaveCaptains())
}

func TestBanServant(t *testing.T) {
	d := newTestDraft(t, 2, 4)
	d.AvailableServants = map[string]bool{"a": true, "b": true}

	require.NoError(t, d.BanServant("a", 0))
	assert.Equal(t, []string{"a"}, d.SystemBans)
	assert.False(t, d.IsServantAvailable("a"))

	assert.Error(t, d.BanServant("a", 7), "double ban must fail")
	assert.Error(t, d.BanServant("missing", 7))

	require.NoError(t, d.BanServant("b", 7))
	assert.Equal(t, []string{"b"}, d.CaptainBans[7])
}

func TestAssignPlayerToTeam(t *testing.T) {
	d := newTestDraft(t, 2, 4)
	require.NoError(t, d.SetCaptains([]int64{1, 2}))

	require.NoError(t, d.AssignPlayerToTeam(3, 1))
	assert.Error(t, d.AssignPlayerToTeam(3, 2), "player cannot switch teams")
	assert.Error(t, d.AssignPlayerToTeam(4, 1), "team one is full at size 2")

	require.NoError(t, d.AssignPlayerToTeam(4, 2))
	assert.True(t, d.Teams.IsComplete())
	assert.Empty(t, d.UnassignedPlayers())
}

func TestNonCaptainPlayersKeepsJoinOrder(t *testing.T) {
	d := newTestDraft(t, 3, 6)
	require.NoError(t, d.SetCaptains([]int64{2, 5}))
	assert.Equal(t, []int64{1, 3, 4, 6}, d.NonCaptainPlayers())
}
