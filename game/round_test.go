package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/relicroom/apperr"
	"github.com/wfunc/relicroom/catalog"
	"github.com/wfunc/relicroom/models"
)

func TestPhaseOrder(t *testing.T) {
	s := startedGame(t)

	err := s.StartVoting(&Changes{}, account(1))
	assert.True(t, apperr.IsCode(err, apperr.CodeStateConflict))

	err = s.StartDiscussion(&Changes{}, account(2))
	assert.True(t, apperr.IsCode(err, apperr.CodeNotYourTurn))
	require.NoError(t, s.StartDiscussion(&Changes{}, account(1)))

	err = s.StartVoting(&Changes{}, account(2))
	assert.True(t, apperr.IsCode(err, apperr.CodeNotHost))
	require.NoError(t, s.StartVoting(&Changes{}, account(1)))

	err = s.NextRound(&Changes{}, account(1))
	assert.True(t, apperr.IsCode(err, apperr.CodeStateConflict), "round 2 needs round 1 completed")
	assert.Len(t, s.Rounds, 1)

	_, err = s.SubmitVotes(&Changes{}, account(1), map[string]int{"elsewhere": 1})
	assert.True(t, apperr.IsCode(err, apperr.CodeValidation))

	_, err = s.SubmitVotes(&Changes{}, account(1), nil)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseResult, s.CurrentRound().Phase)

	_, err = s.CalculateSettlement(&Changes{}, account(1))
	assert.True(t, apperr.IsCode(err, apperr.CodeStateConflict), "not the last round")

	require.NoError(t, s.NextRound(&Changes{}, account(1)))
	require.Len(t, s.Rounds, 2)
	assert.NotNil(t, s.Rounds[0].CompletedAt)
	assert.Equal(t, models.PhaseCompleted, s.Rounds[0].Phase)
	assert.Nil(t, s.Rounds[1].CompletedAt)
}

func TestRankArtifactsTieBreak(t *testing.T) {
	arts := []*models.Artifact{
		{ID: "a", Category: "pig"},
		{ID: "b", Category: "rat"},
		{ID: "c", Category: "dragon"},
		{ID: "d", Category: "ox"},
	}
	votes := map[string]int{"a": 2, "c": 2, "d": 1}

	first := RankArtifacts(arts, votes)
	second := RankArtifacts([]*models.Artifact{arts[3], arts[2], arts[1], arts[0]}, votes)
	assert.Equal(t, first, second)

	require.Len(t, first, 4)
	assert.Equal(t, "c", first[0].ArtifactID)
	assert.Equal(t, 1, first[0].Rank)
	assert.Equal(t, "a", first[1].ArtifactID)
	assert.Equal(t, 2, first[1].Rank)
	assert.Equal(t, 0, first[2].Rank)
	assert.Equal(t, 0, first[3].Rank)
}

func TestRoundScoreSkipsBlocked(t *testing.T) {
	arts := []*models.Artifact{
		{Genuine: true, VoteRank: 1},
		{Genuine: true, VoteRank: 2, Blocked: true},
		{Genuine: true},
		{Genuine: false, VoteRank: 0},
	}
	assert.Equal(t, 1, RoundScore(arts))
}

func TestPerfectScoreSkipsIdentification(t *testing.T) {
	s := startedGame(t)
	for n := 1; n <= catalog.Rounds; n++ {
		// Ties fall to canonical order, which puts the genuine pieces first.
		out := finishRound(t, s, nil)
		assert.Equal(t, 2, out.RoundScore)
		if n < catalog.Rounds {
			require.NoError(t, s.NextRound(&Changes{}, account(1)))
		}
	}
	ch := &Changes{}
	res, err := s.CalculateSettlement(ch, account(1))
	require.NoError(t, err)

	assert.False(t, res.Identification)
	assert.Equal(t, catalog.CampGood, res.WinningCamp)
	assert.Equal(t, models.StatusFinished, s.Game.Status)
	assert.Equal(t, models.PhaseCompleted, s.CurrentRound().Phase)
	assert.NotContains(t, eventKinds(ch), EventIdentificationOpened)
	assert.Contains(t, eventKinds(ch), EventGameFinished)

	view, err := s.ViewSettlement(account(2))
	require.NoError(t, err)
	assert.Nil(t, view.Identification)
}

// playToIdentification scores 4 of 6 and opens identification.
func playToIdentification(t *testing.T) *State {
	t.Helper()
	s := startedGame(t)
	for n := 1; n <= catalog.Rounds; n++ {
		var votes map[string]int
		if n == 1 {
			votes = map[string]int{artifactAt(t, s, 1, 2).ID: 3, artifactAt(t, s, 1, 3).ID: 2}
		}
		finishRound(t, s, votes)
		if n < catalog.Rounds {
			require.NoError(t, s.NextRound(&Changes{}, account(1)))
		}
	}
	res, err := s.CalculateSettlement(&Changes{}, account(1))
	require.NoError(t, err)
	require.True(t, res.Identification)
	require.Equal(t, 4, s.Game.Score)
	return s
}

func TestIdentificationGoodWins(t *testing.T) {
	s := playToIdentification(t)
	lao, xu := seatOf(t, s, 1), seatOf(t, s, 3)

	for _, i := range []int{3, 4, 5, 6} {
		require.NoError(t, s.SubmitIdentification(&Changes{}, account(i), Accusations{Curator: lao.ID}))
	}
	require.NoError(t, s.SubmitIdentification(&Changes{}, account(1), Accusations{Appraiser: xu.ID}))
	require.NoError(t, s.SubmitIdentification(&Changes{}, account(2), Accusations{Companion: seatOf(t, s, 5).ID}))

	res, err := s.PublishIdentification(&Changes{}, account(1))
	require.NoError(t, err)
	assert.True(t, res.CuratorFound)
	assert.True(t, res.AppraiserExposed)
	assert.False(t, res.CompanionExposed)
	assert.Equal(t, 2, res.Delta)
	assert.Equal(t, 6, s.Game.Score)
	assert.Equal(t, catalog.CampGood, s.Game.WinningCamp)

	view, err := s.ViewSettlement(account(2))
	require.NoError(t, err)
	assert.Equal(t, catalog.LaoChaofeng, view.Roles[lao.ID])
	require.NotNil(t, view.Identification)
}

func TestSettlementReportsIdentificationWithoutBallots(t *testing.T) {
	s := playToIdentification(t)

	res, err := s.PublishIdentification(&Changes{}, account(1))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Delta)

	view, err := s.ViewSettlement(account(5))
	require.NoError(t, err)
	require.NotNil(t, view.Identification, "an empty ballot box still went through identification")
	assert.Equal(t, res, *view.Identification)
	assert.Equal(t, 7, view.Score)
}

func TestIdentificationBadWins(t *testing.T) {
	s := playToIdentification(t)
	lao, xu, fang := seatOf(t, s, 1), seatOf(t, s, 3), seatOf(t, s, 4)

	// Only two of four good seats find the curator: not a majority.
	require.NoError(t, s.SubmitIdentification(&Changes{}, account(3), Accusations{Curator: lao.ID}))
	require.NoError(t, s.SubmitIdentification(&Changes{}, account(4), Accusations{Curator: lao.ID}))
	require.NoError(t, s.SubmitIdentification(&Changes{}, account(1), Accusations{Appraiser: xu.ID}))
	require.NoError(t, s.SubmitIdentification(&Changes{}, account(2), Accusations{Companion: fang.ID}))

	res, err := s.PublishIdentification(&Changes{}, account(1))
	require.NoError(t, err)
	assert.False(t, res.CuratorFound)
	assert.Equal(t, 0, res.Delta)
	assert.Equal(t, catalog.CampBad, s.Game.WinningCamp)
	assert.Equal(t, models.StatusFinished, s.Game.Status)
}

func TestSubmitIdentificationRules(t *testing.T) {
	s := playToIdentification(t)
	lao := seatOf(t, s, 1)

	err := s.SubmitIdentification(&Changes{}, account(3), Accusations{Appraiser: lao.ID})
	assert.True(t, apperr.IsCode(err, apperr.CodeValidation))

	err = s.SubmitIdentification(&Changes{}, account(3), Accusations{Curator: seatOf(t, s, 3).ID})
	assert.True(t, apperr.IsCode(err, apperr.CodeValidation), "self accusation")

	err = s.SubmitIdentification(&Changes{}, account(3), Accusations{Curator: "ghost"})
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))

	require.NoError(t, s.SubmitIdentification(&Changes{}, account(3), Accusations{Curator: lao.ID}))
	err = s.SubmitIdentification(&Changes{}, account(3), Accusations{Curator: lao.ID})
	assert.True(t, apperr.IsCode(err, apperr.CodeStateConflict), "once per player")
}

func TestWinner(t *testing.T) {
	assert.Equal(t, catalog.CampGood, Winner(6))
	assert.Equal(t, catalog.CampGood, Winner(8))
	assert.Equal(t, catalog.CampBad, Winner(5))
}
