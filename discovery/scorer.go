// Package discovery turns seed artists into a ranked list of similar artists
// and collects notable tracks for an artist.
package discovery

import (
	"fmt"
	"sort"

	"github.com/jrsteele09/riff-finder/catalog"
	"github.com/jrsteele09/riff-finder/internal/utils"
)

const (
	genreWeight       = 12.0
	multiSeedWeight   = 20.0
	popularityPenalty = 0.6
	maxPopDistance    = 60.0
	similarPopularity = 12.0
)

// ScoredCandidate is one ranked recommendation. Reasons is never nil.
type ScoredCandidate struct {
	Artist  catalog.Artist `json:"artist"`
	Score   float64        `json:"score"`
	Reasons []string       `json:"reasons"`
}

// SeedCandidates is the candidate list gathered for one seed. Order across
// seeds matters: it decides how equal scores are ranked.
type SeedCandidates struct {
	SeedID     string
	Candidates []catalog.Artist
}

type aggregate struct {
	artist      catalog.Artist
	appearances int
}

// Score merges the candidate lists, drops the seeds themselves and ranks what
// is left by score, highest first. Equal scores keep the order in which the
// candidates were first seen. Score has no side effects.
func Score(seeds []catalog.Artist, candidatesBySeed []SeedCandidates) []ScoredCandidate {
	seedGenres := make(map[string]struct{})
	seedIDs := make(map[string]struct{}, len(seeds))
	var popSum float64
	for _, s := range seeds {
		seedIDs[s.ID] = struct{}{}
		popSum += utils.Value(s.Popularity)
		for _, g := range s.Genres {
			seedGenres[g] = struct{}{}
		}
	}
	avgPopularity := popSum / float64(max(1, len(seeds)))

	var order []string
	merged := make(map[string]*aggregate)
	for _, sc := range candidatesBySeed {
		for _, a := range sc.Candidates {
			agg, ok := merged[a.ID]
			if !ok {
				agg = &aggregate{}
				merged[a.ID] = agg
				order = append(order, a.ID)
			}
			agg.artist = a
			agg.appearances++
		}
	}

	results := make([]ScoredCandidate, 0, len(order))
	for _, id := range order {
		if _, isSeed := seedIDs[id]; isSeed {
			continue
		}
		results = append(results, scoreOne(merged[id], seedGenres, avgPopularity))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

func scoreOne(agg *aggregate, seedGenres map[string]struct{}, avgPopularity float64) ScoredCandidate {
	overlap := 0
	for _, g := range agg.artist.Genres {
		if _, ok := seedGenres[g]; ok {
			overlap++
		}
	}
	boost := agg.appearances - 1
	popDistance := utils.Value(agg.artist.Popularity) - avgPopularity
	if popDistance < 0 {
		popDistance = -popDistance
	}

	score := float64(overlap)*genreWeight +
		float64(boost)*multiSeedWeight -
		min(max(popDistance, 0), maxPopDistance)*popularityPenalty

	reasons := []string{}
	if overlap == 1 {
		reasons = append(reasons, "1 shared genre")
	} else if overlap > 1 {
		reasons = append(reasons, fmt.Sprintf("%d shared genres", overlap))
	}
	if boost > 0 {
		reasons = append(reasons, fmt.Sprintf("related to %d seeds", boost+1))
	}
	if popDistance < similarPopularity {
		reasons = append(reasons, "similar popularity")
	}

	return ScoredCandidate{Artist: agg.artist, Score: score, Reasons: reasons}
}
