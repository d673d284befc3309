package game

import (
	"github.com/wfunc/relicroom/apperr"
	"github.com/wfunc/relicroom/catalog"
	"github.com/wfunc/relicroom/models"
)

// canAct reports whether p may take a turn in round.
func canAct(p *models.Player, round int) bool {
	return p.CanAct && !p.NaturallyBlockedIn(round)
}

// advanceToNext hands the turn to the first seat, in join order, that has
// not acted this round and can act. It reports false when the action phase
// is exhausted.
func (s *State) advanceToNext(ch *Changes, r *models.Round) (*models.Player, bool) {
	for _, p := range s.Players {
		if r.HasActed(p.ID) || !canAct(p, r.Number) {
			continue
		}
		s.giveTurn(ch, r, p)
		return p, true
	}
	return nil, false
}

func (s *State) giveTurn(ch *Changes, r *models.Round, p *models.Player) {
	r.ActionOrder = append([]string{p.ID}, r.ActionOrder...)
	ch.round(r)
}

// startRound opens round n with seedID as the intended first actor.
func (s *State) startRound(ch *Changes, n int, seedID string) *models.Round {
	r := &models.Round{
		ID:        s.deps.NewID(),
		GameID:    s.Game.ID,
		Number:    n,
		Phase:     models.PhaseAction,
		ActionSeq: 1,
		StartedAt: s.now(),
	}
	s.Rounds = append(s.Rounds, r)
	ch.RoundsAdded.Add(r.ID)
	s.clearStaleDisablements(ch, n)

	if seed := s.Player(seedID); seed != nil && canAct(seed, n) {
		s.giveTurn(ch, r, seed)
	} else if _, ok := s.advanceToNext(ch, r); !ok {
		r.Phase = models.PhaseDiscussion
	}
	ch.emit(Event{Kind: EventRoundStarted, Payload: RoundStarted{Round: n, CurrentPlayerID: r.Current()}})
	if r.Phase == models.PhaseDiscussion {
		ch.emit(Event{Kind: EventPhaseChanged, Payload: PhaseChanged{Round: n, Phase: r.Phase}})
	}
	return r
}

// clearStaleDisablements lifts attack disablements that only landed in
// earlier rounds. Permanent blocks stay.
func (s *State) clearStaleDisablements(ch *Changes, round int) {
	for _, p := range s.Players {
		if p.CanAct || p.PermanentlyBlocked {
			continue
		}
		stale := true
		for _, n := range p.AttackedRounds {
			if n >= round {
				stale = false
				break
			}
		}
		if stale {
			p.CanAct = true
			ch.player(p)
		}
	}
}

// restoreIfSpent re-enables an attacked actor once every inspection the
// role has is used up in the round the attack landed.
func (s *State) restoreIfSpent(ch *Changes, r *models.Round, p *models.Player) {
	if p.CanAct || p.PermanentlyBlocked || !p.AttackedIn(r.Number) {
		return
	}
	def, ok := catalog.Lookup(p.Role)
	if !ok {
		return
	}
	for _, skill := range catalog.Skills {
		if !skill.IsInspection() || !def.Can(skill) {
			continue
		}
		if s.usageOf(p.ID, skill, r.Number) < def.Quota(skill) {
			return
		}
	}
	p.CanAct = true
	ch.player(p)
}

// requireActionPhase checks that the game is playing and the current round
// is in its action phase.
func (s *State) requireActionPhase() (*models.Round, error) {
	if s.Game.Status != models.StatusPlaying {
		return nil, apperr.New(apperr.CodeStateConflict, "the game is not in progress")
	}
	r := s.CurrentRound()
	if r == nil || r.Phase != models.PhaseAction {
		return nil, apperr.New(apperr.CodeStateConflict, "the round is not in its action phase")
	}
	return r, nil
}

// requireActor checks that account holds the turn.
func (s *State) requireActor(account string) (*models.Player, *models.Round, error) {
	p, err := s.requireSeat(account)
	if err != nil {
		return nil, nil, err
	}
	r, err := s.requireActionPhase()
	if err != nil {
		return nil, nil, err
	}
	if r.Current() != p.ID {
		return nil, nil, apperr.New(apperr.CodeNotYourTurn, "it is not your turn")
	}
	return p, r, nil
}

// AssignNext passes the turn from the current actor to nextPlayerID.
func (s *State) AssignNext(ch *Changes, account, nextPlayerID string) error {
	actor, r, err := s.requireActor(account)
	if err != nil {
		return err
	}
	next := s.Player(nextPlayerID)
	if next == nil {
		return apperr.New(apperr.CodeNotFound, "player not found")
	}
	if next.ID == actor.ID {
		return apperr.New(apperr.CodeValidation, "you cannot pass the turn to yourself")
	}
	if r.HasActed(next.ID) {
		return apperr.New(apperr.CodeStateConflict, "that player already acted this round")
	}

	s.restoreIfSpent(ch, r, actor)
	s.appendAction(ch, r, actor, models.AssignNext{NextPlayerID: next.ID})
	s.giveTurn(ch, r, next)
	ch.emit(Event{Kind: EventTurnChanged, Payload: TurnChanged{
		Round: r.Number, CurrentPlayerID: next.ID, PreviousPlayerID: actor.ID,
	}})
	return nil
}

// StartDiscussion ends the action phase on the current actor's behalf.
func (s *State) StartDiscussion(ch *Changes, account string) error {
	actor, r, err := s.requireActor(account)
	if err != nil {
		return err
	}
	s.restoreIfSpent(ch, r, actor)
	return s.setPhase(ch, r, models.PhaseDiscussion)
}
