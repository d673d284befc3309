package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/relicroom/apperr"
	"github.com/wfunc/relicroom/catalog"
	"github.com/wfunc/relicroom/models"
)

func TestSkillsRequireTurn(t *testing.T) {
	s := startedGame(t)
	_, err := s.InspectArtifact(&Changes{}, account(3), artifactAt(t, s, 1, 0).ID)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotYourTurn))
}

func TestSkillsRequireCapability(t *testing.T) {
	s := startedGame(t)
	_, err := s.Attack(&Changes{}, account(1), seatOf(t, s, 3).ID)
	assert.True(t, apperr.IsCode(err, apperr.CodePermission))
	_, err = s.Swap(&Changes{}, account(1))
	assert.True(t, apperr.IsCode(err, apperr.CodePermission))
}

func TestInspectBlockedArtifactConsumesQuota(t *testing.T) {
	s := startedGame(t)
	rat := artifactAt(t, s, 1, 0)

	_, err := s.Block(&Changes{}, account(1), rat.ID)
	require.NoError(t, err)
	_, err = s.Block(&Changes{}, account(1), rat.ID)
	assert.True(t, apperr.IsCode(err, apperr.CodeQuotaExhausted))

	pass(t, s, 1, 3)
	xu := seatOf(t, s, 3)

	ch := &Changes{}
	out, err := s.InspectArtifact(ch, account(3), rat.ID)
	require.NoError(t, err)
	assert.Nil(t, out.Genuine)
	assert.Equal(t, models.FailArtifactBlocked, out.Failure)
	assert.Equal(t, 1, s.usageOf(xu.ID, catalog.SkillInspectArtifact, 1))
	assert.Equal(t, 1, ch.ActionsAdded.Len())
	require.Len(t, ch.Events, 1)
	assert.Equal(t, []string{account(3)}, ch.Events[0].To)

	_, err = s.InspectArtifact(&Changes{}, account(3), rat.ID)
	assert.True(t, apperr.IsCode(err, apperr.CodeStateConflict), "same artifact twice")

	out, err = s.InspectArtifact(&Changes{}, account(3), artifactAt(t, s, 1, 1).ID)
	require.NoError(t, err)
	require.NotNil(t, out.Genuine)
	assert.True(t, *out.Genuine)

	_, err = s.InspectArtifact(&Changes{}, account(3), artifactAt(t, s, 1, 2).ID)
	assert.True(t, apperr.IsCode(err, apperr.CodeQuotaExhausted))
}

func TestNaturalBlockFailsInspection(t *testing.T) {
	s := startedGame(t)
	pass(t, s, 1, 5)
	out, err := s.InspectArtifact(&Changes{}, account(5), artifactAt(t, s, 1, 0).ID)
	require.NoError(t, err)
	assert.Equal(t, models.FailActorNaturalBlock, out.Failure)
	assert.Nil(t, out.Genuine)
}

func TestAttackBeforeTargetActsLandsThisRound(t *testing.T) {
	s := startedGame(t)
	pass(t, s, 1, 2)
	target := seatOf(t, s, 6)

	out, err := s.Attack(&Changes{}, account(2), target.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, out.LandsInRound)
	assert.False(t, target.CanAct)
	assert.Equal(t, []int{1}, []int(target.AttackedRounds))
	assert.True(t, target.PermanentlyBlocked, "JiYunfu is permanently blocked once attacked")

	_, err = s.Attack(&Changes{}, account(2), seatOf(t, s, 3).ID)
	assert.True(t, apperr.IsCode(err, apperr.CodeQuotaExhausted))

	pass(t, s, 2, 6)
	insp, err := s.InspectArtifact(&Changes{}, account(6), artifactAt(t, s, 1, 0).ID)
	require.NoError(t, err)
	assert.Equal(t, models.FailActorAttacked, insp.Failure)
	assert.Nil(t, insp.Genuine)
}

func TestAttackedActorCannotUseActivePowers(t *testing.T) {
	s := startedGame(t)
	// LaoChaofeng hands to YaoBuran, who attacks LaoChaofeng after it acted.
	pass(t, s, 1, 2)
	lao := seatOf(t, s, 1)
	out, err := s.Attack(&Changes{}, account(2), lao.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, out.LandsInRound)
	assert.False(t, lao.CanAct)

	for _, p := range s.Players {
		if p.AccountID == account(2) {
			continue
		}
		if !p.NaturallyBlockedIn(1) && p.CanAct && !s.CurrentRound().HasActed(p.ID) {
			pass(t, s, 2, p.JoinOrder)
			break
		}
	}
	cur := s.Player(s.CurrentRound().Current())
	require.NoError(t, s.StartDiscussion(&Changes{}, cur.AccountID))
	finishRound(t, s, nil)
	require.NoError(t, s.NextRound(&Changes{}, account(1)))

	// Round 2 is seeded with the last actor of round 1.
	r2 := s.CurrentRound()
	assert.Equal(t, cur.ID, r2.Current())
	assert.False(t, lao.CanAct, "disablement landing in round 2 survives the round start")

	if r2.Current() != lao.ID {
		pass(t, s, cur.JoinOrder, 1)
	}
	_, err = s.Block(&Changes{}, account(1), artifactAt(t, s, 2, 0).ID)
	assert.True(t, apperr.IsCode(err, apperr.CodeBlockedAttacked))
	assert.False(t, artifactAt(t, s, 2, 0).Blocked)
}

func TestAttackOnXuYuanDisablesFangZhenSilently(t *testing.T) {
	s := startedGame(t)
	pass(t, s, 1, 2)
	xu, fang := seatOf(t, s, 3), seatOf(t, s, 4)

	ch := &Changes{}
	out, err := s.Attack(ch, account(2), xu.ID)
	require.NoError(t, err)
	assert.Empty(t, out.PartnerID)
	assert.False(t, xu.CanAct)
	assert.False(t, fang.CanAct)
	assert.True(t, fang.AttackedIn(1))

	require.Len(t, ch.Events, 1)
	resolved := ch.Events[0].Payload.(ActionResolved)
	assert.Equal(t, models.Attack{TargetID: xu.ID, LandsInRound: 1}, resolved.Payload)

	logged := s.Actions[len(s.Actions)-1].Payload.(models.Attack)
	assert.Equal(t, fang.ID, logged.PartnerID)

	history, err := s.ViewHistory(account(2))
	require.NoError(t, err)
	var seen bool
	for _, e := range history {
		if e.Kind == models.ActionAttack {
			seen = true
			assert.Equal(t, models.Attack{TargetID: xu.ID, LandsInRound: 1}, e.Payload)
			assert.True(t, e.Succeeded)
		}
	}
	assert.True(t, seen, "the attacker sees its own attack")
}

func TestRestorationAfterSpendingInspections(t *testing.T) {
	s := startedGame(t)
	pass(t, s, 1, 2)
	xu, fang := seatOf(t, s, 3), seatOf(t, s, 4)
	_, err := s.Attack(&Changes{}, account(2), xu.ID)
	require.NoError(t, err)

	// FangZhen spends its single inspection and is restored on hand-off.
	pass(t, s, 2, 4)
	out, err := s.InspectPlayer(&Changes{}, account(4), seatOf(t, s, 1).ID)
	require.NoError(t, err)
	assert.Equal(t, models.FailActorAttacked, out.Failure)
	assert.Empty(t, out.Camp)
	pass(t, s, 4, 3)
	assert.True(t, fang.CanAct)

	// XuYuan inspects once of two and stays disabled.
	_, err = s.InspectArtifact(&Changes{}, account(3), artifactAt(t, s, 1, 0).ID)
	require.NoError(t, err)
	pass(t, s, 3, 6)
	assert.False(t, xu.CanAct)
}

func TestPermanentBlockNeverRestored(t *testing.T) {
	s := startedGame(t)
	pass(t, s, 1, 2)
	ji := seatOf(t, s, 6)
	_, err := s.Attack(&Changes{}, account(2), ji.ID)
	require.NoError(t, err)

	pass(t, s, 2, 6)
	_, err = s.InspectArtifact(&Changes{}, account(6), artifactAt(t, s, 1, 0).ID)
	require.NoError(t, err)
	pass(t, s, 6, 4)
	assert.False(t, ji.CanAct)

	out, err := s.InspectPlayer(&Changes{}, account(4), ji.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FailTargetPermanent, out.Failure)
}

func TestInspectPlayer(t *testing.T) {
	s := startedGame(t)
	pass(t, s, 1, 4)

	_, err := s.InspectPlayer(&Changes{}, account(4), seatOf(t, s, 4).ID)
	assert.True(t, apperr.IsCode(err, apperr.CodeValidation))

	out, err := s.InspectPlayer(&Changes{}, account(4), seatOf(t, s, 2).ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.CampBad, out.Camp)
	assert.Empty(t, out.Failure)
}

func TestInspectPlayerNaturallyBlockedTarget(t *testing.T) {
	s := startedGame(t)
	pass(t, s, 1, 4)
	out, err := s.InspectPlayer(&Changes{}, account(4), seatOf(t, s, 5).ID)
	require.NoError(t, err)
	assert.Equal(t, models.FailTargetNatural, out.Failure)
	assert.Empty(t, out.Camp)
}

func TestSwapInvertsInspection(t *testing.T) {
	s := newLobby(t, 8)
	roles := append(append([]catalog.Role{}, sixRoles...), catalog.MuHuJiaNai, catalog.ZhengGuoqu)
	lockAll(t, s, roles)
	require.NoError(t, s.StartGame(&Changes{}, account(1)))

	pass(t, s, 1, 8)
	_, err := s.Swap(&Changes{}, account(8))
	require.NoError(t, err)
	for _, a := range s.RoundArtifacts(1) {
		assert.True(t, a.Swapped)
	}
	out, err := s.InspectArtifact(&Changes{}, account(8), artifactAt(t, s, 1, 0).ID)
	require.NoError(t, err)
	require.NotNil(t, out.Genuine)
	assert.False(t, *out.Genuine, "a genuine piece reads as counterfeit after a swap")

	// Swap is once per game, so round 2 still sees it used.
	assert.Equal(t, 1, s.usageOf(seatOf(t, s, 8).ID, catalog.SkillSwap, 2))
}

func TestAssignNextRules(t *testing.T) {
	s := startedGame(t)
	err := s.AssignNext(&Changes{}, account(1), seatOf(t, s, 1).ID)
	assert.True(t, apperr.IsCode(err, apperr.CodeValidation))

	err = s.AssignNext(&Changes{}, account(1), "nobody")
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))

	ch := &Changes{}
	require.NoError(t, s.AssignNext(ch, account(1), seatOf(t, s, 2).ID))
	assert.Equal(t, []EventKind{EventTurnChanged}, eventKinds(ch))

	err = s.AssignNext(&Changes{}, account(2), seatOf(t, s, 1).ID)
	assert.True(t, apperr.IsCode(err, apperr.CodeStateConflict), "already acted")

	r := s.CurrentRound()
	assert.Equal(t, []string{seatOf(t, s, 2).ID, seatOf(t, s, 1).ID}, []string(r.ActionOrder))
	assert.Equal(t, 2, r.ActionSeq)
}

func TestActionSeqStrictlyIncreasing(t *testing.T) {
	s := startedGame(t)
	_, err := s.InspectArtifact(&Changes{}, account(1), artifactAt(t, s, 1, 0).ID)
	require.NoError(t, err)
	_, err = s.Block(&Changes{}, account(1), artifactAt(t, s, 1, 1).ID)
	require.NoError(t, err)
	pass(t, s, 1, 3)

	for i, a := range s.Actions {
		assert.Equal(t, i+1, a.Seq)
	}
}

func TestQuotaNeverExceeded(t *testing.T) {
	s := startedGame(t)
	pass(t, s, 1, 3)
	for i := 0; i < catalog.ArtifactsPerRound; i++ {
		_, _ = s.InspectArtifact(&Changes{}, account(3), artifactAt(t, s, 1, i).ID)
	}
	xu := seatOf(t, s, 3)
	def, _ := catalog.Lookup(catalog.XuYuan)
	assert.Equal(t, def.Quota(catalog.SkillInspectArtifact), s.usageOf(xu.ID, catalog.SkillInspectArtifact, 1))
}
