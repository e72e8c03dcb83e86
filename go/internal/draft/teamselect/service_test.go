package teamselect

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mumu-bot/teamdraft/go/internal/models"
)

func newPickingDraft(t *testing.T, teamSize int) *models.Draft {
	t.Helper()
	d := models.NewDraft(100, 200, teamSize)
	for i := 1; i <= teamSize*2; i++ {
		require.NoError(t, d.AddPlayer(int64(i), fmt.Sprintf("player%d", i)))
	}
	require.NoError(t, d.SetCaptains([]int64{1, 2}))
	return d
}

func TestPatternTotalsMatchTeamSize(t *testing.T) {
	for _, size := range SupportedTeamSizes() {
		pattern, err := Pattern(size)
		require.NoError(t, err)

		first, second := 0, 0
		for _, round := range pattern {
			first += round.First
			second += round.Second
		}
		// Captains occupy one slot each, so each side drafts size-1 players.
		assert.Equal(t, size-1, first, "size %d first-pick total", size)
		assert.Equal(t, size-1, second, "size %d second-pick total", size)
	}
}

func TestPatternUnknownSize(t *testing.T) {
	_, err := Pattern(4)
	assert.Error(t, err)
	assert.False(t, IsSupportedTeamSize(4))
}

func TestInitializeRequiresCaptain(t *testing.T) {
	s := NewService()
	d := newPickingDraft(t, 2)
	assert.Error(t, s.Initialize(d, 3))
	require.NoError(t, s.Initialize(d, 2))
	assert.Equal(t, int64(2), d.CurrentPickingCaptain)
	assert.Equal(t, 1, d.TeamSelectionRound)
}

// Walks the full 6v6 rotation: 1/2, 2/2, 2/1 with the first-pick captain
// opening every round.
func TestSixPlayerRotation(t *testing.T) {
	s := NewService()
	d := newPickingDraft(t, 6)
	require.NoError(t, s.Initialize(d, 1))

	pick := func(captain int64, players ...int64) {
		t.Helper()
		for _, p := range players {
			require.NoError(t, s.AssignPlayer(d, captain, p))
		}
	}

	// Round 1: first picks 1, second picks 2.
	assert.Equal(t, 1, s.PicksRemaining(d, 1))
	pick(1, 3)
	assert.Equal(t, int64(2), d.CurrentPickingCaptain)
	pick(2, 4, 5)

	// Round 2: 2 and 2.
	assert.Equal(t, 2, d.TeamSelectionRound)
	assert.Equal(t, int64(1), d.CurrentPickingCaptain)
	pick(1, 6, 7)
	pick(2, 8, 9)

	// Round 3: first picks 2, second picks 1.
	assert.Equal(t, 3, d.TeamSelectionRound)
	pick(1, 10, 11)
	assert.Equal(t, 1, s.PicksRemaining(d, 2))
	pick(2, 12)

	assert.True(t, s.Complete(d))
	assert.Equal(t, int64(0), d.CurrentPickingCaptain)
	assert.Equal(t, 6, d.Teams.TeamOne.PlayerCount())
	assert.Equal(t, 6, d.Teams.TeamTwo.PlayerCount())
}

// Size 3's second round gives the second captain zero picks; the turn must
// skip straight past them.
func TestZeroAllotmentRoundSkipped(t *testing.T) {
	s := NewService()
	d := newPickingDraft(t, 3)
	require.NoError(t, s.Initialize(d, 1))

	require.NoError(t, s.AssignPlayer(d, 1, 3))
	require.NoError(t, s.AssignPlayer(d, 2, 4))
	require.NoError(t, s.AssignPlayer(d, 2, 5))

	assert.Equal(t, 2, d.TeamSelectionRound)
	assert.Equal(t, int64(1), d.CurrentPickingCaptain)

	require.NoError(t, s.AssignPlayer(d, 1, 6))
	assert.True(t, s.Complete(d))
}

func TestStageConfirmBatch(t *testing.T) {
	s := NewService()
	d := newPickingDraft(t, 5)
	require.NoError(t, s.Initialize(d, 1))
	require.NoError(t, s.AssignPlayer(d, 1, 3))

	// Captain 2's round-1 allotment is two; confirming a single staged pick
	// must fail.
	require.NoError(t, s.StagePick(d, 2, 4))
	_, err := s.ConfirmPending(d, 2)
	assert.Error(t, err)

	require.NoError(t, s.StagePick(d, 2, 5))
	assert.Error(t, s.StagePick(d, 2, 6), "allotment exhausted by staged picks")

	confirmed, err := s.ConfirmPending(d, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5}, confirmed)
	assert.True(t, d.Teams.TeamTwo.Contains(4))
	assert.Equal(t, 2, d.TeamSelectionRound)
}

func TestStagePickRejections(t *testing.T) {
	s := NewService()
	d := newPickingDraft(t, 5)
	require.NoError(t, s.Initialize(d, 1))

	assert.Error(t, s.StagePick(d, 2, 3), "not captain 2's turn")
	assert.Error(t, s.StagePick(d, 1, 99), "unknown player")
	assert.Error(t, s.StagePick(d, 1, 2), "captain 2 is already on a team")

	require.NoError(t, s.StagePick(d, 1, 3))
	assert.Error(t, s.StagePick(d, 1, 3), "player already staged")

	// Another captain cannot stage the same player either.
	require.NoError(t, s.UnstagePick(d, 1, 3))
	assert.Error(t, s.UnstagePick(d, 1, 3), "unstaging twice fails")
}

func TestConfirmPendingWrongTurn(t *testing.T) {
	s := NewService()
	d := newPickingDraft(t, 5)
	require.NoError(t, s.Initialize(d, 1))

	_, err := s.ConfirmPending(d, 2)
	assert.Error(t, err)
	_, err = s.ConfirmPending(d, 1)
	assert.Error(t, err, "nothing staged")
}
