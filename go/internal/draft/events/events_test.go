package events

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mumu-bot/teamdraft/go/internal/models"
)

func newSnapshotDraft(t *testing.T) *models.Draft {
	t.Helper()
	d := models.NewDraft(100, 200, 2)
	for i := 1; i <= 4; i++ {
		require.NoError(t, d.AddPlayer(int64(i), fmt.Sprintf("player%d", i)))
	}
	return d
}

func TestSnapshotHidesUnconfirmedPicks(t *testing.T) {
	d := newSnapshotDraft(t)
	require.NoError(t, d.AdvancePhase(models.PhaseCaptainVoting))
	require.NoError(t, d.SetCaptains([]int64{1, 2}))

	d.Players[3].SelectedServant = "세이버"
	d.ConfirmedServants[4] = "랜서"

	s := BuildSnapshot(d, time.Now())
	byID := make(map[int64]PlayerView)
	for _, pv := range s.Players {
		byID[pv.UserID] = pv
	}
	assert.Empty(t, byID[3].Servant, "pending pick must stay hidden")
	assert.Equal(t, "랜서", byID[4].Servant)
}

func TestSnapshotAvailabilityOnlyDuringServantPhases(t *testing.T) {
	d := newSnapshotDraft(t)
	d.ServantTiers = map[string][]string{"S": {"세이버", "랜서"}}
	d.AvailableServants = map[string]bool{"세이버": true, "랜서": false}

	s := BuildSnapshot(d, time.Now())
	assert.Nil(t, s.Available, "waiting phase hides the pool")

	require.NoError(t, d.AdvancePhase(models.PhaseCaptainVoting))
	require.NoError(t, d.SetCaptains([]int64{1, 2}))
	require.NoError(t, d.AdvancePhase(models.PhaseServantBan))

	s = BuildSnapshot(d, time.Now())
	require.NotNil(t, s.Available)
	assert.Equal(t, []string{"세이버"}, s.Available["S"], "banned servants drop out")
}

func TestBuildProgressCountsSubmittedPicks(t *testing.T) {
	d := newSnapshotDraft(t)
	require.NoError(t, d.AdvancePhase(models.PhaseCaptainVoting))
	require.NoError(t, d.SetCaptains([]int64{1, 2}))

	// Player 3 submitted and is still pending confirmation; player 4 has not
	// picked yet.
	d.SelectionDone[3] = true

	p := BuildProgress(d)
	assert.Equal(t, 2, p.Total)
	assert.Equal(t, 1, p.Done)
	assert.Equal(t, []int64{3}, p.DoneIDs)
	assert.Equal(t, []int64{4}, p.Remaining)

	// A conflict loser has the flag reset and reappears as remaining.
	d.SelectionDone[3] = false
	d.SelectionDone[4] = true
	d.ConfirmedServants[4] = "세이버"

	p = BuildProgress(d)
	assert.Equal(t, 1, p.Done)
	assert.Equal(t, []int64{4}, p.DoneIDs)
	assert.Equal(t, []int64{3}, p.Remaining)
}
