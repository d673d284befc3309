// Package game implements the rules of a room: lifecycle, turn order,
// skill resolution, round phases, voting and scoring. A State is owned by a
// single room actor; nothing here is safe for concurrent use.
package game

import (
	"maps"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/relicroom/catalog"
	"github.com/wfunc/relicroom/models"
)

// Random is the source of shuffles and draws. *rand.Rand satisfies it.
type Random interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// Deps are the non-deterministic inputs of the rules.
type Deps struct {
	Random Random
	Now    func() time.Time
	NewID  func() string
}

func (d Deps) withDefaults() Deps {
	if d.Random == nil {
		d.Random = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	return d
}

// State is the in-memory aggregate of one game.
type State struct {
	Game       *models.Game
	Players    []*models.Player // join order
	Rounds     []*models.Round  // by number
	Artifacts  []*models.Artifact
	Actions    []*models.Action // by round, then seq
	IdentVotes []*models.IdentificationVote

	usage usage
	deps  Deps
}

// Restore rebuilds a State from stored rows, including the derived usage
// counters.
func Restore(deps Deps, g *models.Game, players []*models.Player, rounds []*models.Round,
	artifacts []*models.Artifact, actions []*models.Action, votes []*models.IdentificationVote) *State {
	s := &State{
		Game:       g,
		Players:    players,
		Rounds:     rounds,
		Artifacts:  artifacts,
		Actions:    actions,
		IdentVotes: votes,
		usage:      newUsage(),
		deps:       deps.withDefaults(),
	}
	slices.SortStableFunc(s.Players, func(a, b *models.Player) int { return a.JoinOrder - b.JoinOrder })
	slices.SortStableFunc(s.Rounds, func(a, b *models.Round) int { return a.Number - b.Number })
	slices.SortStableFunc(s.Artifacts, func(a, b *models.Artifact) int {
		if a.Round != b.Round {
			return a.Round - b.Round
		}
		return catalog.CategoryRank(a.Category) - catalog.CategoryRank(b.Category)
	})
	slices.SortStableFunc(s.Actions, func(a, b *models.Action) int {
		if a.Round != b.Round {
			return a.Round - b.Round
		}
		return a.Seq - b.Seq
	})
	for _, a := range s.Actions {
		s.track(a)
	}
	return s
}

// Clone deep-copies the aggregate so a command can be applied tentatively.
func (s *State) Clone() *State {
	g := *s.Game
	out := &State{
		Game:       &g,
		Players:    make([]*models.Player, len(s.Players)),
		Rounds:     make([]*models.Round, len(s.Rounds)),
		Artifacts:  make([]*models.Artifact, len(s.Artifacts)),
		Actions:    slices.Clone(s.Actions), // append-only, entries never mutated
		IdentVotes: slices.Clone(s.IdentVotes),
		usage: usage{
			counts:    maps.Clone(s.usage.counts),
			inspected: maps.Clone(s.usage.inspected),
		},
		deps: s.deps,
	}
	for i, p := range s.Players {
		out.Players[i] = p.Clone()
	}
	for i, r := range s.Rounds {
		out.Rounds[i] = r.Clone()
	}
	for i, a := range s.Artifacts {
		out.Artifacts[i] = a.Clone()
	}
	return out
}

func (s *State) now() time.Time {
	return s.deps.Now()
}

// Seat returns the seat held by account, or nil.
func (s *State) Seat(account string) *models.Player {
	for _, p := range s.Players {
		if p.AccountID == account {
			return p
		}
	}
	return nil
}

// Player returns the seat with the given id, or nil.
func (s *State) Player(id string) *models.Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *State) seatWithRole(role catalog.Role) *models.Player {
	for _, p := range s.Players {
		if p.Role == role {
			return p
		}
	}
	return nil
}

// CurrentRound returns the newest round, or nil before the game starts.
func (s *State) CurrentRound() *models.Round {
	if len(s.Rounds) == 0 {
		return nil
	}
	return s.Rounds[len(s.Rounds)-1]
}

// RoundArtifacts returns the four artifacts of round number n.
func (s *State) RoundArtifacts(n int) []*models.Artifact {
	var out []*models.Artifact
	for _, a := range s.Artifacts {
		if a.Round == n {
			out = append(out, a)
		}
	}
	return out
}

// artifact finds an artifact of round n by id.
func (s *State) artifact(n int, id string) *models.Artifact {
	for _, a := range s.Artifacts {
		if a.Round == n && a.ID == id {
			return a
		}
	}
	return nil
}

// Accounts lists the account ids of every seat, in join order.
func (s *State) Accounts() []string {
	out := make([]string, 0, len(s.Players))
	for _, p := range s.Players {
		out = append(out, p.AccountID)
	}
	return out
}

func (s *State) nextJoinOrder() int {
	n := 0
	for _, p := range s.Players {
		n = max(n, p.JoinOrder)
	}
	return n + 1
}
