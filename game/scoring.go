package game

import (
	"slices"

	"github.com/wfunc/relicroom/catalog"
	"github.com/wfunc/relicroom/models"
)

// RankedArtifact is one line of a vote result.
type RankedArtifact struct {
	ArtifactID string           `json:"artifact_id"`
	Category   catalog.Category `json:"category"`
	Votes      int              `json:"votes"`
	// Rank is 1 or 2 for the top two, 0 otherwise.
	Rank int `json:"rank"`
}

// RankArtifacts orders artifacts by votes, most first, breaking ties by the
// canonical category order. Artifacts missing from votes have zero votes.
func RankArtifacts(artifacts []*models.Artifact, votes map[string]int) []RankedArtifact {
	out := make([]RankedArtifact, 0, len(artifacts))
	for _, a := range artifacts {
		out = append(out, RankedArtifact{ArtifactID: a.ID, Category: a.Category, Votes: votes[a.ID]})
	}
	slices.SortStableFunc(out, func(a, b RankedArtifact) int {
		if a.Votes != b.Votes {
			return b.Votes - a.Votes
		}
		return catalog.CategoryRank(a.Category) - catalog.CategoryRank(b.Category)
	})
	for i := range out {
		if i < 2 {
			out[i].Rank = i + 1
		}
	}
	return out
}

// RoundScore counts the ranked artifacts that are genuine and not blocked.
func RoundScore(artifacts []*models.Artifact) int {
	n := 0
	for _, a := range artifacts {
		if a.VoteRank > 0 && a.Genuine && !a.Blocked {
			n++
		}
	}
	return n
}

// Winner decides the camp for a final score.
func Winner(score int) catalog.Camp {
	if score >= catalog.WinThreshold {
		return catalog.CampGood
	}
	return catalog.CampBad
}
