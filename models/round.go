// models/round.go
package models

import (
	"slices"
	"time"

	"gorm.io/datatypes"

	"github.com/wfunc/relicroom/catalog"
)

// RoundPhase is the phase of one round.
type RoundPhase string

const (
	PhaseAction         RoundPhase = "action"
	PhaseDiscussion     RoundPhase = "discussion"
	PhaseVoting         RoundPhase = "voting"
	PhaseResult         RoundPhase = "result"
	PhaseIdentification RoundPhase = "identification"
	PhaseCompleted      RoundPhase = "completed"
)

type Round struct {
	ID     string     `gorm:"primaryKey;size:36" json:"id"`
	GameID string     `gorm:"size:36;not null;uniqueIndex:idx_rounds_game_number" json:"game_id"`
	Number int        `gorm:"not null;uniqueIndex:idx_rounds_game_number" json:"number"`
	Phase  RoundPhase `gorm:"size:16;not null" json:"phase"`
	// ActionOrder lists player ids most-recently-acted first; the head is
	// the player whose turn it is.
	ActionOrder datatypes.JSONSlice[string] `json:"action_order"`
	// ActionSeq is the ordering index the next logged action receives.
	ActionSeq   int        `gorm:"not null;default:1" json:"-"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (r *Round) Clone() *Round {
	out := *r
	out.ActionOrder = slices.Clone(r.ActionOrder)
	return &out
}

// Current returns the acting player id, or "" before anyone acts.
func (r *Round) Current() string {
	if len(r.ActionOrder) == 0 {
		return ""
	}
	return r.ActionOrder[0]
}

// HasActed reports whether playerID already had (or has) the turn.
func (r *Round) HasActed(playerID string) bool {
	return slices.Contains(r.ActionOrder, playerID)
}

type Artifact struct {
	ID        string           `gorm:"primaryKey;size:36" json:"id"`
	GameID    string           `gorm:"size:36;not null;index:idx_artifacts_game_round" json:"game_id"`
	Round     int              `gorm:"not null;index:idx_artifacts_game_round" json:"round"`
	Category  catalog.Category `gorm:"size:16;not null" json:"category"`
	Genuine   bool             `gorm:"not null" json:"-"`
	Swapped   bool             `gorm:"not null;default:false" json:"-"`
	Blocked   bool             `gorm:"not null;default:false" json:"-"`
	VoteCount int              `gorm:"not null;default:0" json:"vote_count"`
	VoteRank  int              `gorm:"not null;default:0" json:"vote_rank"`
}

func (a *Artifact) Clone() *Artifact {
	out := *a
	return &out
}

// Reported is what an inspection sees: swapped pieces read inverted.
func (a *Artifact) Reported() bool {
	return a.Genuine != a.Swapped
}
