package servant

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mumu-bot/teamdraft/go/internal/models"
)

// constSource always yields the same value, forcing every d20 roll to tie.
type constSource struct{}

func (constSource) Int63() int64 { return 1 << 40 }
func (constSource) Seed(int64)   {}

func newSelectionDraft(t *testing.T, players int) *models.Draft {
	t.Helper()
	d := models.NewDraft(100, 200, players/2)
	for i := 1; i <= players; i++ {
		require.NoError(t, d.AddPlayer(int64(i), fmt.Sprintf("player%d", i)))
	}
	NewService().InitializeAvailability(d, DefaultPool())
	require.NoError(t, d.SetCaptains([]int64{1, 2}))
	return d
}

func TestInitializeAvailabilityCopiesPool(t *testing.T) {
	d := models.NewDraft(100, 200, 2)
	pool := DefaultPool()
	NewService().InitializeAvailability(d, pool)

	assert.Equal(t, len(pool.All()), len(d.AvailableServants))
	assert.True(t, d.DetectionServants["아처"])
	assert.True(t, d.CloakingServants["서문"])

	// Mutating the draft must not touch the pool.
	delete(d.AvailableServants, "헤클")
	assert.True(t, pool.All()["헤클"])
}

func TestPerformSystemBansOnePerTier(t *testing.T) {
	s := NewService()
	d := newSelectionDraft(t, 4)

	bans := s.PerformSystemBans(d)
	require.Len(t, bans, 3)
	assert.Equal(t, bans, d.SystemBans)

	for i, tier := range TierOrder {
		assert.Contains(t, d.ServantTiers[tier], bans[i], "ban %d must come from tier %s", i, tier)
		assert.False(t, d.IsServantAvailable(bans[i]))
	}
}

func TestPerformSystemBansSkipsEmptyTier(t *testing.T) {
	s := NewService()
	d := newSelectionDraft(t, 4)
	for _, name := range d.ServantTiers["A"] {
		require.NoError(t, d.BanServant(name, 0))
	}
	d.SystemBans = nil

	bans := s.PerformSystemBans(d)
	require.Len(t, bans, 2, "exhausted tier is skipped")
	assert.Contains(t, d.ServantTiers["S"], bans[0])
	assert.Contains(t, d.ServantTiers["B"], bans[1])
}

func TestCaptainBanTurnOrder(t *testing.T) {
	s := NewService()
	d := newSelectionDraft(t, 4)
	d.CaptainBanOrder = []int64{2, 1}
	s.InitializeCaptainBans(d)

	assert.True(t, s.CanCaptainBan(d, 2))
	assert.False(t, s.CanCaptainBan(d, 1))
	assert.Error(t, s.ApplyCaptainBan(d, 1, "헤클"), "out of turn ban must fail")

	require.NoError(t, s.ApplyCaptainBan(d, 2, "헤클"))
	assert.Equal(t, int64(1), d.CurrentBanningCaptain)
	assert.False(t, s.CaptainBansComplete(d))

	assert.Error(t, s.ApplyCaptainBan(d, 2, "길가"), "a captain bans exactly once")

	require.NoError(t, s.ApplyCaptainBan(d, 1, "길가"))
	assert.True(t, s.CaptainBansComplete(d))
	assert.Equal(t, int64(0), d.CurrentBanningCaptain)
}

func TestApplyCaptainBanRejectsBanned(t *testing.T) {
	s := NewService()
	d := newSelectionDraft(t, 4)
	d.CaptainBanOrder = []int64{1, 2}
	s.InitializeCaptainBans(d)

	require.NoError(t, d.BanServant("헤클", 0))
	assert.Error(t, s.ApplyCaptainBan(d, 1, "헤클"))
	assert.False(t, d.CaptainBanDone[1], "failed ban must not consume the turn")
}

func TestApplySelectionAndConflicts(t *testing.T) {
	s := NewService()
	d := newSelectionDraft(t, 6)

	assert.Error(t, s.ApplySelection(d, 1, "디미"), "captains do not select")

	require.NoError(t, s.ApplySelection(d, 3, "디미"))
	require.NoError(t, s.ApplySelection(d, 4, "디미"))
	require.NoError(t, s.ApplySelection(d, 5, "세미"))

	conflicts := s.DetectConflicts(d)
	require.Len(t, conflicts, 1)
	assert.ElementsMatch(t, []int64{3, 4}, conflicts["디미"])

	// Changing a pick dissolves the conflict.
	require.NoError(t, s.ApplySelection(d, 4, "산노"))
	assert.Empty(t, s.DetectConflicts(d))
}

func TestResolveConflictsOneWinnerWithinFiveRounds(t *testing.T) {
	s := NewService()
	d := newSelectionDraft(t, 6)
	require.NoError(t, s.ApplySelection(d, 3, "디미"))
	require.NoError(t, s.ApplySelection(d, 4, "디미"))
	require.NoError(t, s.ApplySelection(d, 5, "디미"))

	d.ConflictedServants = s.DetectConflicts(d)
	results := s.ResolveConflicts(d)
	require.Len(t, results, 1)
	r := results[0]

	assert.LessOrEqual(t, r.Attempts, 5)
	assert.Contains(t, []int64{3, 4, 5}, r.WinnerID)
	assert.Len(t, r.Losers, 2)
	assert.NotContains(t, r.Losers, r.WinnerID)

	assert.Equal(t, "디미", d.ConfirmedServants[r.WinnerID])
	assert.False(t, d.IsServantAvailable("디미"))
	for _, id := range r.Losers {
		assert.Empty(t, d.Players[id].SelectedServant, "losers lose their pending pick")
		assert.False(t, d.SelectionDone[id])
	}
}

func TestRollOffPerpetualTieFallsBackToLowestID(t *testing.T) {
	s := &Service{rng: rand.New(constSource{})}

	winner, rolls, attempts, fallback := s.rollOff([]int64{9, 4, 7})
	assert.Equal(t, int64(4), winner)
	assert.Equal(t, 5, attempts)
	assert.True(t, fallback)
	assert.Len(t, rolls, 3)
}

func TestConfirmNonConflicted(t *testing.T) {
	s := NewService()
	d := newSelectionDraft(t, 6)
	require.NoError(t, s.ApplySelection(d, 3, "디미"))
	require.NoError(t, s.ApplySelection(d, 4, "세미"))

	d.ConflictedServants = s.DetectConflicts(d)
	s.ConfirmNonConflicted(d)

	assert.Equal(t, "디미", d.ConfirmedServants[3])
	assert.Equal(t, "세미", d.ConfirmedServants[4])
	assert.False(t, d.IsServantAvailable("디미"))
	assert.False(t, s.SelectionComplete(d), "player 5 and 6 still pending")
}

func TestCloakingBansForReselection(t *testing.T) {
	s := NewService()
	d := newSelectionDraft(t, 6)

	// No confirmed detection servant: all available cloaks get banned.
	d.ConfirmedServants[3] = "세이버"
	banned := s.CloakingBansForReselection(d)
	assert.NotEmpty(t, banned)
	for _, name := range banned {
		assert.True(t, d.CloakingServants[name])
		assert.False(t, d.IsServantAvailable(name))
	}
	assert.Equal(t, banned, d.ReselectionAutoBans)
}

func TestCloakingBansSkippedWithDetection(t *testing.T) {
	s := NewService()
	d := newSelectionDraft(t, 6)

	d.ConfirmedServants[3] = "아처" // detection capable
	assert.Empty(t, s.CloakingBansForReselection(d))
	assert.True(t, d.IsServantAvailable("서문"))
}

func TestAutoAssignIncomplete(t *testing.T) {
	s := NewService()
	d := newSelectionDraft(t, 6)
	require.NoError(t, s.ApplySelection(d, 3, "디미"))
	d.ConfirmedServants[3] = "디미"
	delete(d.AvailableServants, "디미")

	assigned := s.AutoAssignIncomplete(d)
	require.Len(t, assigned, 3, "players 4, 5, 6 get auto picks")
	for id, name := range assigned {
		assert.Equal(t, name, d.ConfirmedServants[id])
		assert.False(t, d.IsServantAvailable(name))
	}
	assert.True(t, s.SelectionComplete(d))
	assert.Empty(t, s.DetectConflicts(d), "auto picks are confirmed, never conflicting")
}

func TestAutoAssignKeepsPendingPicks(t *testing.T) {
	s := NewService()
	d := newSelectionDraft(t, 6)
	require.NoError(t, s.ApplySelection(d, 3, "디미"))
	require.NoError(t, s.ApplySelection(d, 4, "란슬"))

	assigned := s.AutoAssignIncomplete(d)
	require.Len(t, assigned, 2, "only players 5 and 6 lack a pick")
	assert.NotContains(t, assigned, int64(3))
	assert.NotContains(t, assigned, int64(4))

	// Pending picks survive unconfirmed for the regular conflict check.
	assert.Equal(t, "디미", d.Players[3].SelectedServant)
	assert.Equal(t, "란슬", d.Players[4].SelectedServant)
	assert.NotContains(t, d.ConfirmedServants, int64(3))
	assert.NotContains(t, d.ConfirmedServants, int64(4))

	// Auto picks never land on a name someone already claimed.
	for _, name := range assigned {
		assert.NotEqual(t, "디미", name)
		assert.NotEqual(t, "란슬", name)
	}
	s.ConfirmNonConflicted(d)
	assert.True(t, s.SelectionComplete(d))
}
