package game

import "github.com/wfunc/relicroom/models"

// IDSet is an insertion-ordered set of entity ids.
type IDSet struct {
	order []string
	seen  map[string]bool
}

func (s *IDSet) Add(id string) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	if s.seen[id] {
		return
	}
	s.seen[id] = true
	s.order = append(s.order, id)
}

func (s *IDSet) Has(id string) bool {
	return s.seen[id]
}

func (s *IDSet) IDs() []string {
	return s.order
}

func (s *IDSet) Len() int {
	return len(s.order)
}

// Changes is the unit of work produced by one command: which rows to
// write and which events to publish once the write commits.
type Changes struct {
	GameCreated bool
	GameUpdated bool
	GameDeleted bool

	PlayersAdded   IDSet
	PlayersUpdated IDSet
	PlayersRemoved IDSet

	RoundsAdded   IDSet
	RoundsUpdated IDSet

	ArtifactsAdded   IDSet
	ArtifactsUpdated IDSet

	ActionsAdded IDSet
	VotesAdded   IDSet

	Events []Event
}

// Empty reports whether the command changed nothing durable.
func (c *Changes) Empty() bool {
	return !c.GameCreated && !c.GameUpdated && !c.GameDeleted &&
		c.PlayersAdded.Len() == 0 && c.PlayersUpdated.Len() == 0 && c.PlayersRemoved.Len() == 0 &&
		c.RoundsAdded.Len() == 0 && c.RoundsUpdated.Len() == 0 &&
		c.ArtifactsAdded.Len() == 0 && c.ArtifactsUpdated.Len() == 0 &&
		c.ActionsAdded.Len() == 0 && c.VotesAdded.Len() == 0
}

func (c *Changes) game() {
	c.GameUpdated = true
}

func (c *Changes) player(p *models.Player) {
	c.PlayersUpdated.Add(p.ID)
}

func (c *Changes) round(r *models.Round) {
	c.RoundsUpdated.Add(r.ID)
}

func (c *Changes) artifact(a *models.Artifact) {
	c.ArtifactsUpdated.Add(a.ID)
}

func (c *Changes) emit(e Event) {
	c.Events = append(c.Events, e)
}
