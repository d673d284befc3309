package persistence

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/wfunc/relicroom/catalog"
	"github.com/wfunc/relicroom/models"
)

// MemoryStore keeps every row in process. Transactions work on a copy that
// replaces the live data only when fn succeeds, and the same uniqueness
// rules as the Postgres schema are enforced.
type MemoryStore struct {
	mu       sync.Mutex
	data     *memData
	failNext error
}

type memData struct {
	games     map[string]models.Game
	players   map[string]models.Player
	rounds    map[string]models.Round
	artifacts map[string]models.Artifact
	actions   map[string]models.Action
	votes     map[string]models.IdentificationVote
	roles     map[catalog.Role]models.RoleDefinition
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: &memData{
		games:     make(map[string]models.Game),
		players:   make(map[string]models.Player),
		rounds:    make(map[string]models.Round),
		artifacts: make(map[string]models.Artifact),
		actions:   make(map[string]models.Action),
		votes:     make(map[string]models.IdentificationVote),
		roles:     make(map[catalog.Role]models.RoleDefinition),
	}}
}

func (d *memData) clone() *memData {
	return &memData{
		games:     maps.Clone(d.games),
		players:   maps.Clone(d.players),
		rounds:    maps.Clone(d.rounds),
		artifacts: maps.Clone(d.artifacts),
		actions:   maps.Clone(d.actions),
		votes:     maps.Clone(d.votes),
		roles:     maps.Clone(d.roles),
	}
}

// FailNext makes the next transaction fail with err without applying it.
func (m *MemoryStore) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

func (m *MemoryStore) InTx(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.data.clone()
	if err := fn(&memTx{d: work}); err != nil {
		return err
	}
	if err := m.failNext; err != nil {
		m.failNext = nil
		return err
	}
	m.data = work
	return nil
}

func (m *MemoryStore) LoadGame(ctx context.Context, gameID string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.data.games[gameID]
	if !ok {
		return nil, ErrNotFound
	}
	snap := &Snapshot{Game: &g}
	for _, p := range m.data.players {
		if p.GameID == gameID {
			snap.Players = append(snap.Players, p.Clone())
		}
	}
	for _, r := range m.data.rounds {
		if r.GameID == gameID {
			snap.Rounds = append(snap.Rounds, r.Clone())
		}
	}
	for _, a := range m.data.artifacts {
		if a.GameID == gameID {
			snap.Artifacts = append(snap.Artifacts, a.Clone())
		}
	}
	for _, a := range m.data.actions {
		if a.GameID == gameID {
			snap.Actions = append(snap.Actions, &a)
		}
	}
	for _, v := range m.data.votes {
		if v.GameID == gameID {
			snap.IdentVotes = append(snap.IdentVotes, &v)
		}
	}
	slices.SortFunc(snap.Players, func(a, b *models.Player) int { return a.JoinOrder - b.JoinOrder })
	return snap, nil
}

func (m *MemoryStore) FindActiveByCode(ctx context.Context, code string) (*models.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.data.games {
		if g.Code == code && g.Status.Active() {
			return &g, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) SeedRoles(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range models.RoleDefinitions() {
		m.data.roles[d.Name] = d
	}
	return nil
}

// Roles returns the seeded role rows.
func (m *MemoryStore) Roles() []models.RoleDefinition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Collect(maps.Values(m.data.roles))
}

func (m *MemoryStore) Close() error { return nil }

type memTx struct {
	d *memData
}

func conflict(what string) error {
	return fmt.Errorf("%w: %s", ErrConflict, what)
}

func (t *memTx) CreateGame(g *models.Game) error {
	if _, ok := t.d.games[g.ID]; ok {
		return conflict("games_pkey")
	}
	if err := t.checkCode(g); err != nil {
		return err
	}
	row := *g
	row.PlayerCount = 0
	t.d.games[g.ID] = row
	return nil
}

func (t *memTx) checkCode(g *models.Game) error {
	if !g.Status.Active() {
		return nil
	}
	for id, other := range t.d.games {
		if id != g.ID && other.Code == g.Code && other.Status.Active() {
			return conflict("idx_games_active_code")
		}
	}
	return nil
}

func (t *memTx) UpdateGame(g *models.Game) error {
	cur, ok := t.d.games[g.ID]
	if !ok {
		return ErrNotFound
	}
	if err := t.checkCode(g); err != nil {
		return err
	}
	row := *g
	row.PlayerCount = cur.PlayerCount
	row.CreatedAt = cur.CreatedAt
	t.d.games[g.ID] = row
	return nil
}

func (t *memTx) DeleteGame(gameID string) error {
	maps.DeleteFunc(t.d.players, func(_ string, p models.Player) bool { return p.GameID == gameID })
	maps.DeleteFunc(t.d.rounds, func(_ string, r models.Round) bool { return r.GameID == gameID })
	maps.DeleteFunc(t.d.artifacts, func(_ string, a models.Artifact) bool { return a.GameID == gameID })
	maps.DeleteFunc(t.d.actions, func(_ string, a models.Action) bool { return a.GameID == gameID })
	maps.DeleteFunc(t.d.votes, func(_ string, v models.IdentificationVote) bool { return v.GameID == gameID })
	delete(t.d.games, gameID)
	return nil
}

func (t *memTx) checkSeat(p *models.Player) error {
	for id, other := range t.d.players {
		if id == p.ID || other.GameID != p.GameID {
			continue
		}
		if other.AccountID == p.AccountID {
			return conflict("idx_players_game_account")
		}
		if p.Locked && other.Locked {
			if other.Role == p.Role {
				return conflict("idx_players_locked_role")
			}
			if other.Color == p.Color {
				return conflict("idx_players_locked_color")
			}
		}
	}
	return nil
}

func (t *memTx) AddPlayer(p *models.Player) error {
	g, ok := t.d.games[p.GameID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := t.d.players[p.ID]; ok {
		return conflict("players_pkey")
	}
	if err := t.checkSeat(p); err != nil {
		return err
	}
	t.d.players[p.ID] = *p.Clone()
	g.PlayerCount++
	t.d.games[g.ID] = g
	return nil
}

func (t *memTx) UpdatePlayer(p *models.Player) error {
	if _, ok := t.d.players[p.ID]; !ok {
		return ErrNotFound
	}
	if err := t.checkSeat(p); err != nil {
		return err
	}
	t.d.players[p.ID] = *p.Clone()
	return nil
}

func (t *memTx) RemovePlayer(gameID, playerID string) error {
	p, ok := t.d.players[playerID]
	if !ok || p.GameID != gameID {
		return ErrNotFound
	}
	delete(t.d.players, playerID)
	if g, ok := t.d.games[gameID]; ok {
		g.PlayerCount--
		t.d.games[gameID] = g
	}
	return nil
}

func (t *memTx) AddRound(r *models.Round) error {
	if _, ok := t.d.games[r.GameID]; !ok {
		return ErrNotFound
	}
	for _, other := range t.d.rounds {
		if other.ID == r.ID || (other.GameID == r.GameID && other.Number == r.Number) {
			return conflict("idx_rounds_game_number")
		}
	}
	t.d.rounds[r.ID] = *r.Clone()
	return nil
}

func (t *memTx) UpdateRound(r *models.Round) error {
	if _, ok := t.d.rounds[r.ID]; !ok {
		return ErrNotFound
	}
	t.d.rounds[r.ID] = *r.Clone()
	return nil
}

func (t *memTx) AddArtifact(a *models.Artifact) error {
	if _, ok := t.d.artifacts[a.ID]; ok {
		return conflict("artifacts_pkey")
	}
	t.d.artifacts[a.ID] = *a
	return nil
}

func (t *memTx) UpdateArtifact(a *models.Artifact) error {
	if _, ok := t.d.artifacts[a.ID]; !ok {
		return ErrNotFound
	}
	t.d.artifacts[a.ID] = *a
	return nil
}

func (t *memTx) AddAction(a *models.Action) error {
	if a.Payload == nil {
		return fmt.Errorf("action %s has no payload", a.ID)
	}
	for _, other := range t.d.actions {
		if other.ID == a.ID || (other.RoundID == a.RoundID && other.Seq == a.Seq) {
			return conflict("idx_actions_round_seq")
		}
	}
	t.d.actions[a.ID] = *a
	return nil
}

func (t *memTx) AddIdentificationVote(v *models.IdentificationVote) error {
	for _, other := range t.d.votes {
		if other.ID == v.ID || (other.GameID == v.GameID && other.PlayerID == v.PlayerID) {
			return conflict("idx_ident_game_player")
		}
	}
	t.d.votes[v.ID] = *v
	return nil
}
