package game

import (
	"github.com/wfunc/relicroom/catalog"
	"github.com/wfunc/relicroom/models"
)

// usageKey identifies one counter. Per-game skills are counted under
// round 0.
type usageKey struct {
	player string
	round  int
	skill  catalog.Skill
}

type inspectKey struct {
	player   string
	round    int
	artifact string
}

// usage is derived from the action log and kept in step with every append,
// so quota checks never rescan the log.
type usage struct {
	counts    map[usageKey]int
	inspected map[inspectKey]bool
}

func newUsage() usage {
	return usage{
		counts:    make(map[usageKey]int),
		inspected: make(map[inspectKey]bool),
	}
}

func (s *State) usageKeyFor(playerID string, skill catalog.Skill, round int) usageKey {
	if p := s.Player(playerID); p != nil {
		if def, ok := catalog.Lookup(p.Role); ok && def.PerGame[skill] {
			round = 0
		}
	}
	return usageKey{player: playerID, round: round, skill: skill}
}

// track folds one logged action into the counters.
func (s *State) track(a *models.Action) {
	skill, ok := models.SkillOf(a.Kind)
	if !ok {
		return
	}
	s.usage.counts[s.usageKeyFor(a.PlayerID, skill, a.Round)]++
	if p, ok := a.Payload.(models.InspectArtifact); ok {
		s.usage.inspected[inspectKey{player: a.PlayerID, round: a.Round, artifact: p.ArtifactID}] = true
	}
}

// usageOf returns how often playerID used skill in round (or in the game,
// for per-game skills).
func (s *State) usageOf(playerID string, skill catalog.Skill, round int) int {
	return s.usage.counts[s.usageKeyFor(playerID, skill, round)]
}

func (s *State) alreadyInspected(playerID string, round int, artifactID string) bool {
	return s.usage.inspected[inspectKey{player: playerID, round: round, artifact: artifactID}]
}

// appendAction logs payload for actor in round r under the next sequence
// number.
func (s *State) appendAction(ch *Changes, r *models.Round, actor *models.Player, payload models.Payload) *models.Action {
	a := &models.Action{
		ID:        s.deps.NewID(),
		GameID:    s.Game.ID,
		RoundID:   r.ID,
		Round:     r.Number,
		PlayerID:  actor.ID,
		Seq:       r.ActionSeq,
		Kind:      payload.Kind(),
		Payload:   payload,
		CreatedAt: s.now(),
	}
	r.ActionSeq++
	ch.round(r)
	s.Actions = append(s.Actions, a)
	ch.ActionsAdded.Add(a.ID)
	s.track(a)
	return a
}

// Action returns a logged action by id, or nil.
func (s *State) Action(id string) *models.Action {
	for _, a := range s.Actions {
		if a.ID == id {
			return a
		}
	}
	return nil
}
