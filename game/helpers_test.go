package game

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wfunc/relicroom/catalog"
	"github.com/wfunc/relicroom/models"
)

// fixedRandom always draws the first option and never shuffles, so the deal
// is canonical: each round's first two categories are genuine.
type fixedRandom struct{}

func (fixedRandom) IntN(int) int               { return 0 }
func (fixedRandom) Shuffle(int, func(i, j int)) {}

func testDeps() Deps {
	n := 0
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return Deps{
		Random: fixedRandom{},
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%03d", n)
		},
	}
}

func account(i int) string { return fmt.Sprintf("acct-%d", i) }

// sixRoles is the seat-by-seat role layout used by most tests. The host
// (acct-1) is LaoChaofeng and takes the first turn.
var sixRoles = []catalog.Role{
	catalog.LaoChaofeng, catalog.YaoBuran, catalog.XuYuan,
	catalog.FangZhen, catalog.HuangYanyan, catalog.JiYunfu,
}

var colors = []catalog.Color{"red", "orange", "yellow", "green", "cyan", "blue", "purple", "pink"}

func newLobby(t *testing.T, seats int) *State {
	t.Helper()
	s, _, err := NewGame(testDeps(), "123456", account(1), "")
	require.NoError(t, err)
	for i := 2; i <= seats; i++ {
		_, err := s.Join(&Changes{}, account(i), "")
		require.NoError(t, err)
	}
	return s
}

func lockAll(t *testing.T, s *State, roles []catalog.Role) {
	t.Helper()
	require.NoError(t, s.StartSelection(&Changes{}, account(1)))
	for i, role := range roles {
		require.NoError(t, s.LockRole(&Changes{}, account(i+1), role, colors[i]))
	}
}

func startedGame(t *testing.T) *State {
	t.Helper()
	s := newLobby(t, 6)
	lockAll(t, s, sixRoles)
	require.NoError(t, s.StartGame(&Changes{}, account(1)))
	return s
}

func seatOf(t *testing.T, s *State, i int) *models.Player {
	t.Helper()
	p := s.Seat(account(i))
	require.NotNil(t, p)
	return p
}

func artifactAt(t *testing.T, s *State, round, i int) *models.Artifact {
	t.Helper()
	arts := s.RoundArtifacts(round)
	require.Len(t, arts, catalog.ArtifactsPerRound)
	return arts[i]
}

func pass(t *testing.T, s *State, from, to int) {
	t.Helper()
	require.NoError(t, s.AssignNext(&Changes{}, account(from), seatOf(t, s, to).ID))
}

// finishRound runs discussion, voting and the result for the current round.
func finishRound(t *testing.T, s *State, votes map[string]int) VoteOutcome {
	t.Helper()
	r := s.CurrentRound()
	if r.Phase == models.PhaseAction {
		cur := s.Player(r.Current())
		require.NoError(t, s.StartDiscussion(&Changes{}, cur.AccountID))
	}
	require.NoError(t, s.StartVoting(&Changes{}, account(1)))
	out, err := s.SubmitVotes(&Changes{}, account(1), votes)
	require.NoError(t, err)
	return out
}

func eventKinds(ch *Changes) []EventKind {
	var out []EventKind
	for _, e := range ch.Events {
		out = append(out, e.Kind)
	}
	return out
}
