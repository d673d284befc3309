package game

import (
	"github.com/wfunc/relicroom/apperr"
	"github.com/wfunc/relicroom/catalog"
	"github.com/wfunc/relicroom/models"
)

// beginSkill runs the checks every power shares: turn, capability,
// disablement and quota.
func (s *State) beginSkill(account string, skill catalog.Skill) (*models.Player, *models.Round, catalog.RoleDef, error) {
	actor, r, err := s.requireActor(account)
	if err != nil {
		return nil, nil, catalog.RoleDef{}, err
	}
	def, ok := catalog.Lookup(actor.Role)
	if !ok || !def.Can(skill) {
		return nil, nil, def, apperr.Newf(apperr.CodePermission, "your role cannot use %s", skill)
	}
	// Inspections made while disabled are still logged as failed.
	if !skill.IsInspection() && !actor.CanAct {
		if actor.PermanentlyBlocked {
			return nil, nil, def, apperr.New(apperr.CodeBlockedPermanent, "you are permanently blocked")
		}
		return nil, nil, def, apperr.New(apperr.CodeBlockedAttacked, "you were attacked and cannot act this round")
	}
	if s.usageOf(actor.ID, skill, r.Number) >= def.Quota(skill) {
		return nil, nil, def, apperr.Newf(apperr.CodeQuotaExhausted, "%s is used up", skill)
	}
	return actor, r, def, nil
}

func (s *State) resolved(ch *Changes, actor *models.Player, r *models.Round, payload models.Payload) {
	ch.emit(Event{
		Kind:    EventActionResolved,
		To:      []string{actor.AccountID},
		Payload: ActionResolved{Round: r.Number, Kind: payload.Kind(), Payload: payload},
	})
}

// InspectArtifact reports an artifact's genuineness as the actor sees it.
// Failed attempts are logged and still use up the quota.
func (s *State) InspectArtifact(ch *Changes, account, artifactID string) (models.InspectArtifact, error) {
	actor, r, _, err := s.beginSkill(account, catalog.SkillInspectArtifact)
	if err != nil {
		return models.InspectArtifact{}, err
	}
	a := s.artifact(r.Number, artifactID)
	if a == nil {
		return models.InspectArtifact{}, apperr.New(apperr.CodeNotFound, "artifact not found in this round")
	}
	if s.alreadyInspected(actor.ID, r.Number, a.ID) {
		return models.InspectArtifact{}, apperr.New(apperr.CodeStateConflict, "you already inspected that artifact this round")
	}

	out := models.InspectArtifact{ArtifactID: a.ID, Category: a.Category}
	switch {
	case !actor.CanAct:
		out.Failure = models.FailActorAttacked
	case actor.NaturallyBlockedIn(r.Number):
		out.Failure = models.FailActorNaturalBlock
	case a.Blocked:
		out.Failure = models.FailArtifactBlocked
	default:
		genuine := a.Reported()
		out.Genuine = &genuine
	}
	s.appendAction(ch, r, actor, out)
	s.resolved(ch, actor, r, out)
	return out, nil
}

// InspectPlayer reports the target's camp unless either side is blocked.
func (s *State) InspectPlayer(ch *Changes, account, targetID string) (models.InspectPlayer, error) {
	actor, r, _, err := s.beginSkill(account, catalog.SkillInspectPlayer)
	if err != nil {
		return models.InspectPlayer{}, err
	}
	target := s.Player(targetID)
	if target == nil {
		return models.InspectPlayer{}, apperr.New(apperr.CodeNotFound, "player not found")
	}
	if target.ID == actor.ID {
		return models.InspectPlayer{}, apperr.New(apperr.CodeValidation, "you cannot inspect yourself")
	}

	out := models.InspectPlayer{TargetID: target.ID}
	switch {
	case !actor.CanAct:
		out.Failure = models.FailActorAttacked
	case actor.NaturallyBlockedIn(r.Number):
		out.Failure = models.FailActorNaturalBlock
	case target.PermanentlyBlocked:
		out.Failure = models.FailTargetPermanent
	case target.AttackedIn(r.Number):
		out.Failure = models.FailTargetAttacked
	case target.NaturallyBlockedIn(r.Number):
		out.Failure = models.FailTargetNatural
	default:
		out.Camp = catalog.CampOf(target.Role)
	}
	s.appendAction(ch, r, actor, out)
	s.resolved(ch, actor, r, out)
	return out, nil
}

// Attack disables the target. The attack lands this round unless the
// target already had its turn, in which case it lands next round.
func (s *State) Attack(ch *Changes, account, targetID string) (models.Attack, error) {
	actor, r, _, err := s.beginSkill(account, catalog.SkillAttack)
	if err != nil {
		return models.Attack{}, err
	}
	target := s.Player(targetID)
	if target == nil {
		return models.Attack{}, apperr.New(apperr.CodeNotFound, "player not found")
	}
	if target.ID == actor.ID {
		return models.Attack{}, apperr.New(apperr.CodeValidation, "you cannot attack yourself")
	}

	lands := r.Number
	if r.HasActed(target.ID) {
		lands++
	}
	s.disable(ch, target, lands)
	if def, _ := catalog.Lookup(target.Role); def.PermanentOnAttack {
		target.PermanentlyBlocked = true
	}

	logged := models.Attack{TargetID: target.ID, LandsInRound: lands}
	if partnerRole, ok := catalog.AttackPartner(target.Role); ok {
		if partner := s.seatWithRole(partnerRole); partner != nil {
			s.disable(ch, partner, r.Number)
			logged.PartnerID = partner.ID
		}
	}
	s.appendAction(ch, r, actor, logged)

	// The attacker learns only about the target.
	reply := models.Attack{TargetID: target.ID, LandsInRound: lands}
	s.resolved(ch, actor, r, reply)
	return reply, nil
}

func (s *State) disable(ch *Changes, p *models.Player, round int) {
	p.CanAct = false
	if !p.AttackedIn(round) {
		p.AttackedRounds = append(p.AttackedRounds, round)
	}
	ch.player(p)
}

// Block hides one artifact of the current round from inspection and from
// the round's score.
func (s *State) Block(ch *Changes, account, artifactID string) (models.Block, error) {
	actor, r, _, err := s.beginSkill(account, catalog.SkillBlock)
	if err != nil {
		return models.Block{}, err
	}
	a := s.artifact(r.Number, artifactID)
	if a == nil {
		return models.Block{}, apperr.New(apperr.CodeNotFound, "artifact not found in this round")
	}
	if a.Blocked {
		return models.Block{}, apperr.New(apperr.CodeStateConflict, "artifact is already blocked")
	}
	a.Blocked = true
	ch.artifact(a)

	out := models.Block{ArtifactID: a.ID}
	s.appendAction(ch, r, actor, out)
	s.resolved(ch, actor, r, out)
	return out, nil
}

// Swap flips the swapped flag on all four artifacts of the current round.
func (s *State) Swap(ch *Changes, account string) (models.Swap, error) {
	actor, r, _, err := s.beginSkill(account, catalog.SkillSwap)
	if err != nil {
		return models.Swap{}, err
	}
	for _, a := range s.RoundArtifacts(r.Number) {
		a.Swapped = !a.Swapped
		ch.artifact(a)
	}
	out := models.Swap{}
	s.appendAction(ch, r, actor, out)
	s.resolved(ch, actor, r, out)
	return out, nil
}
