package balance

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/mumu-bot/teamdraft/go/internal/models"
)

// RatingSource supplies per-player ratings. Unknown players get the default
// rating so a missing history never blocks a split.
type RatingSource interface {
	Rating(ctx context.Context, userID int64) (float64, error)
}

// StaticRatings is a fixed rating table, used for tests and as the fallback
// when no rating backend is configured.
type StaticRatings struct {
	Ratings map[int64]float64
	Default float64
}

func (s StaticRatings) Rating(ctx context.Context, userID int64) (float64, error) {
	if r, ok := s.Ratings[userID]; ok {
		return r, nil
	}
	return s.Default, nil
}

const (
	AlgorithmGreedy = "greedy"
	AlgorithmSearch = "search"

	searchIterations = 200
)

// Calculator proposes team splits that minimize the rating gap. Captains stay
// on their teams; only the remaining players are shuffled.
type Calculator struct {
	source    RatingSource
	algorithm string
	rng       *rand.Rand
}

func NewCalculator(source RatingSource, algorithm string) *Calculator {
	if algorithm != AlgorithmSearch {
		algorithm = AlgorithmGreedy
	}
	return &Calculator{
		source:    source,
		algorithm: algorithm,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Suggest computes a split for the draft's players. Already-assigned players
// (captains included) keep their teams.
func (c *Calculator) Suggest(ctx context.Context, d *models.Draft) (*models.BalanceSuggestion, error) {
	ratings := make(map[int64]float64, d.PlayerCount())
	for _, id := range d.JoinOrder {
		r, err := c.source.Rating(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("rating for %d: %w", id, err)
		}
		ratings[id] = r
	}

	fixed1, fixed2 := assignedMembers(d)
	free := d.UnassignedPlayers()

	var one, two []int64
	switch c.algorithm {
	case AlgorithmSearch:
		one, two = c.searchSplit(d, ratings, fixed1, fixed2, free)
	default:
		one, two = greedySplit(d, ratings, fixed1, fixed2, free)
	}

	return &models.BalanceSuggestion{
		Algorithm: c.algorithm,
		TeamOne:   one,
		TeamTwo:   two,
		RatingGap: math.Abs(sum(ratings, one) - sum(ratings, two)),
	}, nil
}

// greedySplit sorts the free players by rating descending and always gives
// the next player to the lighter team with room.
func greedySplit(d *models.Draft, ratings map[int64]float64, fixed1, fixed2 []int64, free []int64) ([]int64, []int64) {
	one := append([]int64(nil), fixed1...)
	two := append([]int64(nil), fixed2...)

	order := append([]int64(nil), free...)
	sort.Slice(order, func(i, j int) bool {
		if ratings[order[i]] != ratings[order[j]] {
			return ratings[order[i]] > ratings[order[j]]
		}
		return order[i] < order[j]
	})

	for _, id := range order {
		oneOpen := len(one) < d.TeamSize
		twoOpen := len(two) < d.TeamSize
		switch {
		case oneOpen && (!twoOpen || sum(ratings, one) <= sum(ratings, two)):
			one = append(one, id)
		case twoOpen:
			two = append(two, id)
		}
	}
	return one, two
}

// searchSplit tries random permutations of the free players and keeps the
// best gap seen, starting from the greedy answer so it never does worse.
func (c *Calculator) searchSplit(d *models.Draft, ratings map[int64]float64, fixed1, fixed2 []int64, free []int64) ([]int64, []int64) {
	bestOne, bestTwo := greedySplit(d, ratings, fixed1, fixed2, free)
	bestGap := math.Abs(sum(ratings, bestOne) - sum(ratings, bestTwo))

	order := append([]int64(nil), free...)
	for i := 0; i < searchIterations && bestGap > 0; i++ {
		c.rng.Shuffle(len(order), func(a, b int) { order[a], order[b] = order[b], order[a] })

		one := append([]int64(nil), fixed1...)
		two := append([]int64(nil), fixed2...)
		for _, id := range order {
			if len(one) < d.TeamSize {
				one = append(one, id)
			} else {
				two = append(two, id)
			}
		}
		gap := math.Abs(sum(ratings, one) - sum(ratings, two))
		if gap < bestGap {
			bestOne, bestTwo, bestGap = one, two, gap
		}
	}
	return bestOne, bestTwo
}

func assignedMembers(d *models.Draft) ([]int64, []int64) {
	var one, two []int64
	if d.Teams != nil {
		one = d.Teams.TeamOne.Members()
		two = d.Teams.TeamTwo.Members()
	}
	return one, two
}

func sum(ratings map[int64]float64, ids []int64) float64 {
	total := 0.0
	for _, id := range ids {
		total += ratings[id]
	}
	return total
}
