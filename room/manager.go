package room

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/wfunc/relicroom/apperr"
	"github.com/wfunc/relicroom/game"
	"github.com/wfunc/relicroom/logger"
	"github.com/wfunc/relicroom/models"
	"github.com/wfunc/relicroom/persistence"
)

const maxCodeAttempts = 8

// Options tune every room a Manager starts.
type Options struct {
	CommitTimeout time.Duration
	Observer      Observer
	// Deps overrides the rules' sources of randomness, time and ids. A nil
	// Random gives each room its own generator.
	Deps game.Deps
}

// Manager 管理所有房间，只保存 id 到房间的映射
type Manager struct {
	store       persistence.Store
	broadcaster Broadcaster
	opts        Options

	rooms map[string]*Room
	mutex sync.RWMutex

	codeMutex  sync.Mutex
	codeRandom game.Random
}

// NewRoomManager creates a manager backed by store.
func NewRoomManager(store persistence.Store, broadcaster Broadcaster, opts Options) *Manager {
	codeRandom := opts.Deps.Random
	if codeRandom == nil {
		codeRandom = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Manager{
		store:       store,
		broadcaster: broadcaster,
		opts:        opts,
		rooms:       make(map[string]*Room),
		codeRandom:  codeRandom,
	}
}

func (m *Manager) roomDeps() game.Deps {
	deps := m.opts.Deps
	if deps.Random == nil {
		deps.Random = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return deps
}

func (m *Manager) nextCode() string {
	m.codeMutex.Lock()
	defer m.codeMutex.Unlock()
	return game.GenerateCode(m.codeRandom)
}

// CreateRoom opens a new game hosted by account and starts its room. A
// room code already used by an active game is redrawn.
func (m *Manager) CreateRoom(ctx context.Context, account, password string) (*Room, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		s, ch, err := game.NewGame(m.roomDeps(), m.nextCode(), account, password)
		if err != nil {
			return nil, err
		}
		err = Commit(ctx, m.store, s, ch)
		if errors.Is(err, persistence.ErrConflict) {
			logger.Log.Debugw("room code taken, retrying", "code", s.Game.Code, "attempt", attempt+1)
			continue
		}
		if err != nil {
			logger.Log.Errorw("create room", "account_id", account, "error", err)
			return nil, apperr.Wrap(err, apperr.CodeInternal, "could not create the room")
		}
		r := m.start(s)
		logger.Log.Infow("room created", "game_id", s.Game.ID, "code", s.Game.Code, "host", account)
		return r, nil
	}
	return nil, apperr.New(apperr.CodeInternal, "could not allocate a room code")
}

func (m *Manager) start(s *game.State) *Room {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if existing, ok := m.rooms[s.Game.ID]; ok {
		return existing
	}
	r := newRoom(s, m.store, m.broadcaster, m.opts.Observer, m.opts.CommitTimeout, m.forget)
	m.rooms[s.Game.ID] = r
	return r
}

// GetRoom returns the running room for gameID, rehydrating it from the
// store when no room is running. A terminated game is never brought back;
// a finished one is, so its seats can still read the settlement.
func (m *Manager) GetRoom(ctx context.Context, gameID string) (*Room, error) {
	m.mutex.RLock()
	r, ok := m.rooms[gameID]
	m.mutex.RUnlock()
	if ok {
		return r, nil
	}

	snap, err := m.store.LoadGame(ctx, gameID)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil, apperr.New(apperr.CodeNotFound, "room not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "could not load the room")
	}
	if snap.Game.Status == models.StatusTerminated {
		return nil, apperr.New(apperr.CodeNotFound, "room has ended")
	}
	s := game.Restore(m.roomDeps(), snap.Game, snap.Players, snap.Rounds, snap.Artifacts, snap.Actions, snap.IdentVotes)
	logger.Log.Infow("room rehydrated", "game_id", gameID, "status", snap.Game.Status)
	return m.start(s), nil
}

// FindByCode resolves an active room code.
func (m *Manager) FindByCode(ctx context.Context, code string) (*Room, error) {
	g, err := m.store.FindActiveByCode(ctx, code)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil, apperr.New(apperr.CodeNotFound, "no active room with that code")
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "could not look up the room")
	}
	return m.GetRoom(ctx, g.ID)
}

// forget drops a room that shut itself down.
func (m *Manager) forget(r *Room) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.rooms[r.id] == r {
		delete(m.rooms, r.id)
	}
}

// RemoveRoom stops and drops a running room. Its rows stay in the store.
func (m *Manager) RemoveRoom(gameID string) {
	m.mutex.Lock()
	r, ok := m.rooms[gameID]
	delete(m.rooms, gameID)
	m.mutex.Unlock()
	if ok {
		r.Close()
	}
}

// EvictSettled stops finished rooms nobody has used for idle and returns
// how many were dropped. A later GetRoom rehydrates them.
func (m *Manager) EvictSettled(idle time.Duration) int {
	now := time.Now()
	m.mutex.RLock()
	var stale []string
	for id, r := range m.rooms {
		if r.idleSettled(now, idle) {
			stale = append(stale, id)
		}
	}
	m.mutex.RUnlock()

	for _, id := range stale {
		m.RemoveRoom(id)
	}
	if len(stale) > 0 {
		logger.Log.Infow("settled rooms evicted", "count", len(stale))
	}
	return len(stale)
}

// Count returns the number of running rooms.
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// Close stops every room and waits for their loops to exit.
func (m *Manager) Close() {
	m.mutex.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.rooms = make(map[string]*Room)
	m.mutex.Unlock()

	for _, r := range rooms {
		r.Close()
		<-r.Done()
	}
}
