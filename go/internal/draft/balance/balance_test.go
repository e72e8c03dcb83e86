package balance

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mumu-bot/teamdraft/go/internal/models"
)

func newBalanceDraft(t *testing.T, teamSize int) *models.Draft {
	t.Helper()
	d := models.NewDraft(100, 200, teamSize)
	for i := 1; i <= teamSize*2; i++ {
		require.NoError(t, d.AddPlayer(int64(i), fmt.Sprintf("player%d", i)))
	}
	require.NoError(t, d.SetCaptains([]int64{1, 2}))
	return d
}

func TestStaticRatingsDefault(t *testing.T) {
	src := StaticRatings{Ratings: map[int64]float64{1: 1500}, Default: 1000}
	ctx := context.Background()

	r, err := src.Rating(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1500.0, r)

	r, err = src.Rating(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, r)
}

func TestGreedySplitBalancesRatings(t *testing.T) {
	d := newBalanceDraft(t, 3)
	ratings := StaticRatings{
		Ratings: map[int64]float64{
			1: 1000, 2: 1000, // captains
			3: 1600, 4: 1400, 5: 1200, 6: 1000,
		},
	}
	c := NewCalculator(ratings, AlgorithmGreedy)

	s, err := c.Suggest(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, AlgorithmGreedy, s.Algorithm)
	assert.Len(t, s.TeamOne, 3)
	assert.Len(t, s.TeamTwo, 3)
	assert.Contains(t, s.TeamOne, int64(1), "captain stays on team one")
	assert.Contains(t, s.TeamTwo, int64(2), "captain stays on team two")
	// 1600+1000 vs 1400+1200: the greedy walk lands on a zero gap.
	assert.Equal(t, 0.0, s.RatingGap)
}

func TestGreedySplitRespectsExistingAssignments(t *testing.T) {
	d := newBalanceDraft(t, 3)
	require.NoError(t, d.AssignPlayerToTeam(3, 1))
	require.NoError(t, d.AssignPlayerToTeam(4, 1))

	c := NewCalculator(StaticRatings{Default: 1000}, AlgorithmGreedy)
	s, err := c.Suggest(context.Background(), d)
	require.NoError(t, err)

	assert.Contains(t, s.TeamOne, int64(3))
	assert.Contains(t, s.TeamOne, int64(4))
	assert.Len(t, s.TeamOne, 3)
	assert.Len(t, s.TeamTwo, 3)
}

func TestSearchNeverWorseThanGreedy(t *testing.T) {
	d := newBalanceDraft(t, 5)
	ratings := map[int64]float64{1: 1000, 2: 1000}
	for i := int64(3); i <= 10; i++ {
		ratings[i] = float64(900 + 37*i)
	}
	src := StaticRatings{Ratings: ratings}

	greedy, err := NewCalculator(src, AlgorithmGreedy).Suggest(context.Background(), d)
	require.NoError(t, err)
	search, err := NewCalculator(src, AlgorithmSearch).Suggest(context.Background(), d)
	require.NoError(t, err)

	assert.Equal(t, AlgorithmSearch, search.Algorithm)
	assert.LessOrEqual(t, search.RatingGap, greedy.RatingGap)
	assert.Len(t, search.TeamOne, 5)
	assert.Len(t, search.TeamTwo, 5)
}

func TestUnknownAlgorithmFallsBackToGreedy(t *testing.T) {
	c := NewCalculator(StaticRatings{Default: 1000}, "genetic")
	d := newBalanceDraft(t, 2)

	s, err := c.Suggest(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, AlgorithmGreedy, s.Algorithm)
}
