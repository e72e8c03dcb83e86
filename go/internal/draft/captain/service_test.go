package captain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mumu-bot/teamdraft/go/internal/models"
)

func newVotingDraft(t *testing.T, players int) *models.Draft {
	t.Helper()
	d := models.NewDraft(100, 200, players/2)
	for i := 1; i <= players; i++ {
		require.NoError(t, d.AddPlayer(int64(i), fmt.Sprintf("player%d", i)))
	}
	require.NoError(t, d.AdvancePhase(models.PhaseCaptainVoting))
	return d
}

func TestCastVoteToggles(t *testing.T) {
	s := NewService()
	d := newVotingDraft(t, 4)

	added, _, err := s.CastVote(d, 1, 2)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, 1, s.VoteCounts(d)[2])

	added, _, err = s.CastVote(d, 1, 2)
	require.NoError(t, err)
	assert.False(t, added, "second vote for the same candidate withdraws it")
	assert.Equal(t, 0, s.VoteCounts(d)[2])
}

func TestCastVoteMaxTwo(t *testing.T) {
	s := NewService()
	d := newVotingDraft(t, 6)

	_, _, err := s.CastVote(d, 1, 2)
	require.NoError(t, err)
	_, _, err = s.CastVote(d, 1, 3)
	require.NoError(t, err)

	_, _, err = s.CastVote(d, 1, 4)
	assert.Error(t, err, "third distinct vote must be rejected")

	// Withdrawing frees a slot.
	_, _, err = s.CastVote(d, 1, 2)
	require.NoError(t, err)
	_, _, err = s.CastVote(d, 1, 4)
	assert.NoError(t, err)
}

func TestCastVoteRequiresParticipants(t *testing.T) {
	s := NewService()
	d := newVotingDraft(t, 4)

	_, _, err := s.CastVote(d, 99, 1)
	assert.Error(t, err)
	_, _, err = s.CastVote(d, 1, 99)
	assert.Error(t, err)
}

func TestVoteCountsIgnoresDepartedPlayers(t *testing.T) {
	s := NewService()
	d := models.NewDraft(100, 200, 2)
	for i := 1; i <= 4; i++ {
		require.NoError(t, d.AddPlayer(int64(i), fmt.Sprintf("p%d", i)))
	}
	_, _, err := s.CastVote(d, 4, 1)
	require.NoError(t, err)
	require.NoError(t, d.RemovePlayer(4))

	assert.Equal(t, 0, s.VoteCounts(d)[1], "votes from departed players do not count")
}

func TestSelectCaptainsClearLeaderPlusRunnerUp(t *testing.T) {
	s := NewService()
	d := newVotingDraft(t, 10)

	// Player 1 gets 3 votes, player 2 gets 2, player 3 gets 1.
	for _, v := range []struct{ voter, candidate int64 }{
		{4, 1}, {5, 1}, {6, 1},
		{7, 2}, {8, 2},
		{9, 3},
	} {
		_, _, err := s.CastVote(d, v.voter, v.candidate)
		require.NoError(t, err)
	}

	captains, err := s.SelectCaptains(d)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, captains)
	assert.True(t, d.Teams.BothHaveCaptains())
}

func TestSelectCaptainsTopTieDrawsFromTie(t *testing.T) {
	d := newVotingDraft(t, 10)
	s := NewService()

	// Players 1, 2, 3 tie at two votes each; player 4 trails with one.
	for _, v := range []struct{ voter, candidate int64 }{
		{5, 1}, {6, 1},
		{7, 2}, {8, 2},
		{9, 3}, {10, 3},
		{1, 4},
	} {
		_, _, err := s.CastVote(d, v.voter, v.candidate)
		require.NoError(t, err)
	}

	captains, err := s.SelectCaptains(d)
	require.NoError(t, err)
	require.Len(t, captains, 2)
	assert.NotEqual(t, captains[0], captains[1])
	for _, id := range captains {
		assert.Contains(t, []int64{1, 2, 3}, id, "captains must come from the tied top tier")
	}
}

func TestSelectCaptainsThreeWayTieIsFair(t *testing.T) {
	s := NewService()

	const trials = 300
	pairs := make(map[[2]int64]int)
	for i := 0; i < trials; i++ {
		d := newVotingDraft(t, 10)
		for _, v := range []struct{ voter, candidate int64 }{
			{4, 1}, {5, 1},
			{6, 2}, {7, 2},
			{8, 3}, {9, 3},
		} {
			_, _, err := s.CastVote(d, v.voter, v.candidate)
			require.NoError(t, err)
		}
		captains, err := s.SelectCaptains(d)
		require.NoError(t, err)
		a, b := captains[0], captains[1]
		if a > b {
			a, b = b, a
		}
		pairs[[2]int64{a, b}]++
	}

	require.Len(t, pairs, 3, "all three pairs must occur")
	for pair, n := range pairs {
		assert.Greater(t, n, trials/10, "pair %v badly underrepresented", pair)
	}
}

func TestSelectCaptainsFallbackJoinOrder(t *testing.T) {
	s := NewService()
	d := newVotingDraft(t, 4)

	captains, err := s.SelectCaptains(d)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, captains, "no votes falls back to first two by join order")
}

func TestDetermineBanOrder(t *testing.T) {
	s := NewService()
	d := newVotingDraft(t, 4)
	require.NoError(t, d.SetCaptains([]int64{1, 2}))

	order, err := s.DetermineBanOrder(d)
	require.NoError(t, err)
	require.Len(t, order, 2)
	assert.ElementsMatch(t, []int64{1, 2}, order)
	assert.Equal(t, order, d.CaptainBanOrder)
}

func TestDetermineBanOrderRequiresCaptains(t *testing.T) {
	s := NewService()
	d := newVotingDraft(t, 4)

	_, err := s.DetermineBanOrder(d)
	assert.Error(t, err)
}
