package game

import (
	"github.com/wfunc/relicroom/apperr"
	"github.com/wfunc/relicroom/catalog"
	"github.com/wfunc/relicroom/models"
	"github.com/wfunc/relicroom/state"
)

// phaseTable returns the transitions allowed for round r. Identification
// only follows the last round's result.
func phaseTable(r *models.Round) *state.Table[models.RoundPhase] {
	last := func() bool { return r.Number == catalog.Rounds }
	return state.NewTable[models.RoundPhase]().
		AddTransition(models.PhaseAction, models.PhaseDiscussion, nil).
		AddTransition(models.PhaseDiscussion, models.PhaseVoting, nil).
		AddTransition(models.PhaseVoting, models.PhaseResult, nil).
		AddTransition(models.PhaseResult, models.PhaseCompleted, nil).
		AddTransition(models.PhaseResult, models.PhaseIdentification, last).
		AddTransition(models.PhaseIdentification, models.PhaseCompleted, nil)
}

func (s *State) setPhase(ch *Changes, r *models.Round, to models.RoundPhase) error {
	m := state.NewMachine(r.Phase, phaseTable(r))
	m.OnEnter(models.PhaseCompleted, func(models.RoundPhase) {
		now := s.now()
		r.CompletedAt = &now
	})
	if err := m.ChangeState(to); err != nil {
		return apperr.Wrap(err, apperr.CodeStateConflict, "round is in phase "+string(r.Phase))
	}
	r.Phase = m.Current()
	ch.round(r)
	ch.emit(Event{Kind: EventPhaseChanged, Payload: PhaseChanged{Round: r.Number, Phase: r.Phase}})
	return nil
}

// requireHostInPhase checks the caller is host of a playing game whose
// current round is in phase.
func (s *State) requireHostInPhase(account string, phase models.RoundPhase) (*models.Round, error) {
	if _, err := s.requireHost(account); err != nil {
		return nil, err
	}
	if s.Game.Status != models.StatusPlaying {
		return nil, apperr.New(apperr.CodeStateConflict, "the game is not in progress")
	}
	r := s.CurrentRound()
	if r == nil || r.Phase != phase {
		return nil, apperr.Newf(apperr.CodeStateConflict, "the round is not in its %s phase", phase)
	}
	return r, nil
}

// StartVoting moves the round from discussion to voting.
func (s *State) StartVoting(ch *Changes, account string) error {
	r, err := s.requireHostInPhase(account, models.PhaseDiscussion)
	if err != nil {
		return err
	}
	return s.setPhase(ch, r, models.PhaseVoting)
}

// VoteOutcome is the public result of one round's vote.
type VoteOutcome struct {
	Round      int              `json:"round"`
	Ranking    []RankedArtifact `json:"ranking"`
	RoundScore int              `json:"round_score"`
	TotalScore int              `json:"total_score"`
}

// SubmitVotes records the host's tally, ranks the artifacts and adds the
// round's score.
func (s *State) SubmitVotes(ch *Changes, account string, votes map[string]int) (VoteOutcome, error) {
	r, err := s.requireHostInPhase(account, models.PhaseVoting)
	if err != nil {
		return VoteOutcome{}, err
	}
	artifacts := s.RoundArtifacts(r.Number)
	for id, n := range votes {
		if s.artifact(r.Number, id) == nil {
			return VoteOutcome{}, apperr.New(apperr.CodeValidation, "votes reference an artifact outside this round").With("artifact_id", id)
		}
		if n < 0 {
			return VoteOutcome{}, apperr.New(apperr.CodeValidation, "vote counts cannot be negative")
		}
	}

	ranking := RankArtifacts(artifacts, votes)
	for _, ra := range ranking {
		a := s.artifact(r.Number, ra.ArtifactID)
		a.VoteCount = ra.Votes
		a.VoteRank = ra.Rank
		ch.artifact(a)
	}
	score := RoundScore(artifacts)
	s.Game.Score += score
	ch.game()
	if err := s.setPhase(ch, r, models.PhaseResult); err != nil {
		return VoteOutcome{}, err
	}

	out := VoteOutcome{Round: r.Number, Ranking: ranking, RoundScore: score, TotalScore: s.Game.Score}
	ch.emit(Event{Kind: EventVotingCompleted, Payload: VotingCompleted(out)})
	return out, nil
}

// NextRound completes round one or two and opens the next, seeded with the
// completed round's last actor.
func (s *State) NextRound(ch *Changes, account string) error {
	r, err := s.requireHostInPhase(account, models.PhaseResult)
	if err != nil {
		return err
	}
	if r.Number >= catalog.Rounds {
		return apperr.New(apperr.CodeStateConflict, "this was the last round; calculate the settlement")
	}
	if err := s.setPhase(ch, r, models.PhaseCompleted); err != nil {
		return err
	}
	s.startRound(ch, r.Number+1, r.Current())
	return nil
}

// Settlement is what CalculateSettlement decided.
type Settlement struct {
	Score          int          `json:"score"`
	Identification bool         `json:"identification"`
	WinningCamp    catalog.Camp `json:"winning_camp,omitempty"`
}

// CalculateSettlement ends the last round. A perfect score wins outright;
// anything less opens identification.
func (s *State) CalculateSettlement(ch *Changes, account string) (Settlement, error) {
	r, err := s.requireHostInPhase(account, models.PhaseResult)
	if err != nil {
		return Settlement{}, err
	}
	if r.Number != catalog.Rounds {
		return Settlement{}, apperr.New(apperr.CodeStateConflict, "settlement happens after the last round")
	}
	if s.Game.Score >= catalog.WinThreshold {
		if err := s.setPhase(ch, r, models.PhaseCompleted); err != nil {
			return Settlement{}, err
		}
		s.finish(ch, catalog.CampGood, nil)
		return Settlement{Score: s.Game.Score, WinningCamp: catalog.CampGood}, nil
	}
	if err := s.setPhase(ch, r, models.PhaseIdentification); err != nil {
		return Settlement{}, err
	}
	ch.emit(Event{Kind: EventIdentificationOpened, Payload: IdentificationOpened{Score: s.Game.Score}})
	return Settlement{Score: s.Game.Score, Identification: true}, nil
}

// voteScore is the score earned by appraisal votes alone. Below the win
// threshold the game went through identification.
func (s *State) voteScore() int {
	total := 0
	for n := 1; n <= catalog.Rounds; n++ {
		total += RoundScore(s.RoundArtifacts(n))
	}
	return total
}

// finish closes the game and reveals every role.
func (s *State) finish(ch *Changes, camp catalog.Camp, ident *IdentificationResult) {
	_ = s.setStatus(ch, models.StatusFinished)
	now := s.now()
	s.Game.WinningCamp = camp
	s.Game.FinishedAt = &now
	ch.game()

	roles := make(map[string]catalog.Role, len(s.Players))
	for _, p := range s.Players {
		roles[p.ID] = p.Role
	}
	ch.emit(Event{Kind: EventGameFinished, Payload: GameFinished{
		WinningCamp: camp, Score: s.Game.Score, Identification: ident, Roles: roles,
	}})
}
