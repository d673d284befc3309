package game

import (
	"github.com/wfunc/relicroom/apperr"
	"github.com/wfunc/relicroom/catalog"
	"github.com/wfunc/relicroom/models"
)

// Accusations is one player's identification ballot. Each field names a
// player id; empty means no accusation.
type Accusations struct {
	Curator   string `json:"curator,omitempty"`
	Appraiser string `json:"appraiser,omitempty"`
	Companion string `json:"companion,omitempty"`
}

// IdentificationResult explains the score delta of the endgame.
type IdentificationResult struct {
	CuratorFound     bool `json:"curator_found"`
	CuratorVotes     int  `json:"curator_votes"`
	GoodVoters       int  `json:"good_voters"`
	AppraiserExposed bool `json:"appraiser_exposed"`
	CompanionExposed bool `json:"companion_exposed"`
	Delta            int  `json:"delta"`
}

func (s *State) identVote(playerID string) *models.IdentificationVote {
	for _, v := range s.IdentVotes {
		if v.PlayerID == playerID {
			return v
		}
	}
	return nil
}

func (s *State) checkAccused(voter *models.Player, id string) error {
	if id == "" {
		return nil
	}
	if s.Player(id) == nil {
		return apperr.New(apperr.CodeNotFound, "accused player not found").With("player_id", id)
	}
	if id == voter.ID {
		return apperr.New(apperr.CodeValidation, "you cannot accuse yourself")
	}
	return nil
}

// SubmitIdentification records account's single ballot. Good-camp seats
// answer the curator question, LaoChaofeng the appraiser question and
// YaoBuran the companion question.
func (s *State) SubmitIdentification(ch *Changes, account string, acc Accusations) error {
	p, err := s.requireSeat(account)
	if err != nil {
		return err
	}
	r := s.CurrentRound()
	if s.Game.Status != models.StatusPlaying || r == nil || r.Phase != models.PhaseIdentification {
		return apperr.New(apperr.CodeStateConflict, "identification is not open")
	}
	if s.identVote(p.ID) != nil {
		return apperr.New(apperr.CodeStateConflict, "you already submitted your identification")
	}

	vote := &models.IdentificationVote{ID: s.deps.NewID(), GameID: s.Game.ID, PlayerID: p.ID, CreatedAt: s.now()}
	switch {
	case catalog.CampOf(p.Role) == catalog.CampGood:
		if acc.Curator == "" || acc.Appraiser != "" || acc.Companion != "" {
			return apperr.New(apperr.CodeValidation, "good-camp players name the curator only")
		}
		vote.Curator = acc.Curator
	case p.Role == catalog.LaoChaofeng:
		if acc.Appraiser == "" || acc.Curator != "" || acc.Companion != "" {
			return apperr.New(apperr.CodeValidation, "you name the appraiser only")
		}
		vote.Appraiser = acc.Appraiser
	case p.Role == catalog.YaoBuran:
		if acc.Companion == "" || acc.Curator != "" || acc.Appraiser != "" {
			return apperr.New(apperr.CodeValidation, "you name the companion only")
		}
		vote.Companion = acc.Companion
	default:
		return apperr.New(apperr.CodePermission, "your role takes no part in identification")
	}
	for _, id := range []string{vote.Curator, vote.Appraiser, vote.Companion} {
		if err := s.checkAccused(p, id); err != nil {
			return err
		}
	}

	s.IdentVotes = append(s.IdentVotes, vote)
	ch.VotesAdded.Add(vote.ID)
	ch.emit(Event{Kind: EventIdentificationSubmitted, Payload: IdentificationSubmitted{PlayerID: p.ID}})
	return nil
}

// ScoreIdentification cross-checks the ballots against the real roles.
func (s *State) ScoreIdentification() IdentificationResult {
	var res IdentificationResult
	curator := s.seatWithRole(catalog.LaoChaofeng)
	appraiser := s.seatWithRole(catalog.XuYuan)
	companion := s.seatWithRole(catalog.FangZhen)

	var appraiserGuess, companionGuess string
	for _, p := range s.Players {
		if catalog.CampOf(p.Role) == catalog.CampGood {
			res.GoodVoters++
		}
	}
	for _, v := range s.IdentVotes {
		if curator != nil && v.Curator == curator.ID {
			res.CuratorVotes++
		}
		if v.Appraiser != "" {
			appraiserGuess = v.Appraiser
		}
		if v.Companion != "" {
			companionGuess = v.Companion
		}
	}

	if res.CuratorVotes*2 > res.GoodVoters {
		res.CuratorFound = true
		res.Delta++
	}
	res.AppraiserExposed = appraiser != nil && appraiserGuess == appraiser.ID
	if !res.AppraiserExposed {
		res.Delta += 2
	}
	res.CompanionExposed = companion != nil && companionGuess == companion.ID
	if !res.CompanionExposed {
		res.Delta++
	}
	return res
}

// PublishIdentification applies the endgame delta and finishes the game.
func (s *State) PublishIdentification(ch *Changes, account string) (IdentificationResult, error) {
	r, err := s.requireHostInPhase(account, models.PhaseIdentification)
	if err != nil {
		return IdentificationResult{}, err
	}
	res := s.ScoreIdentification()
	s.Game.Score += res.Delta
	ch.game()
	if err := s.setPhase(ch, r, models.PhaseCompleted); err != nil {
		return IdentificationResult{}, err
	}
	s.finish(ch, Winner(s.Game.Score), &res)
	return res, nil
}
