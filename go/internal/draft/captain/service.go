package captain

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mumu-bot/teamdraft/go/internal/models"
)

// MaxVotesPerVoter caps how many distinct candidates one voter may back.
const MaxVotesPerVoter = 2

// Service handles captain voting, tie-break selection and the dice-determined
// ban order.
type Service struct {
	rng *rand.Rand
}

// NewService constructs a Service with its own seeded source.
func NewService() *Service {
	return &Service{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// CastVote toggles the voter's support for a candidate. A repeated vote for
// the same candidate withdraws it; a third distinct vote is rejected.
// Returns whether a vote now stands for the candidate and a user-facing
// message.
func (s *Service) CastVote(d *models.Draft, voterID, candidateID int64) (bool, string, error) {
	voter := d.GetPlayer(voterID)
	candidate := d.GetPlayer(candidateID)
	if voter == nil {
		return false, "", fmt.Errorf("voter %d is not in the draft", voterID)
	}
	if candidate == nil {
		return false, "", fmt.Errorf("candidate %d is not in the draft", candidateID)
	}

	votes := d.CaptainVotes[voterID]
	if votes == nil {
		votes = make(map[int64]bool)
		d.CaptainVotes[voterID] = votes
	}
	if votes[candidateID] {
		delete(votes, candidateID)
		return false, fmt.Sprintf("vote for %s withdrawn", candidate.Username), nil
	}
	if len(votes) >= MaxVotesPerVoter {
		return false, "", fmt.Errorf("at most %d votes per player", MaxVotesPerVoter)
	}
	votes[candidateID] = true
	return true, fmt.Sprintf("voted for %s", candidate.Username), nil
}

// VoteCounts tallies votes, counting only votes cast by and for current
// participants.
func (s *Service) VoteCounts(d *models.Draft) map[int64]int {
	counts := make(map[int64]int)
	for voterID, votes := range d.CaptainVotes {
		if _, ok := d.Players[voterID]; !ok {
			continue
		}
		for candidateID := range votes {
			if _, ok := d.Players[candidateID]; ok {
				counts[candidateID]++
			}
		}
	}
	return counts
}

// SelectCaptains picks two captains from the tally and assigns them to teams.
// Ties at the top are broken uniformly at random; with a single clear leader,
// ties for the second slot are broken the same way. Fewer than two candidates
// falls back to the first two players by join order — a documented fallback,
// never a silent failure.
func (s *Service) SelectCaptains(d *models.Draft) ([]int64, error) {
	counts := s.VoteCounts(d)

	type tally struct {
		id    int64
		votes int
	}
	sorted := make([]tally, 0, len(counts))
	for id, votes := range counts {
		sorted = append(sorted, tally{id, votes})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].votes != sorted[j].votes {
			return sorted[i].votes > sorted[j].votes
		}
		return sorted[i].id < sorted[j].id
	})

	var captains []int64
	if len(sorted) < 2 {
		if len(d.JoinOrder) < 2 {
			return nil, fmt.Errorf("not enough players to select captains")
		}
		captains = []int64{d.JoinOrder[0], d.JoinOrder[1]}
		log.Info().
			Int64("channel_id", d.ChannelID).
			Msg("too few captain votes, falling back to first two players by join order")
	} else {
		top := sorted[0].votes
		var topTier []int64
		for _, t := range sorted {
			if t.votes == top {
				topTier = append(topTier, t.id)
			}
		}
		if len(topTier) >= 2 {
			captains = s.sampleTwo(topTier)
		} else {
			second := sorted[1].votes
			var secondTier []int64
			for _, t := range sorted {
				if t.votes == second {
					secondTier = append(secondTier, t.id)
				}
			}
			runnerUp := secondTier[s.rng.Intn(len(secondTier))]
			captains = []int64{topTier[0], runnerUp}
		}
	}

	if err := d.SetCaptains(captains); err != nil {
		return nil, err
	}
	return captains, nil
}

// sampleTwo draws two distinct ids uniformly at random.
func (s *Service) sampleTwo(ids []int64) []int64 {
	picked := append([]int64(nil), ids...)
	s.rng.Shuffle(len(picked), func(i, j int) {
		picked[i], picked[j] = picked[j], picked[i]
	})
	return picked[:2]
}

// DetermineBanOrder shuffles the two captains uniformly at random — the coin
// flip deciding who bans first — and stores the result for turn enforcement.
func (s *Service) DetermineBanOrder(d *models.Draft) ([]int64, error) {
	if !d.Teams.BothHaveCaptains() {
		return nil, fmt.Errorf("both teams must have captains")
	}
	order := append([]int64(nil), d.Captains...)
	s.rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	d.CaptainBanOrder = order
	return order, nil
}
