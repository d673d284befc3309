// Package room runs one actor per game. Every command for a game is
// serialized through its room's loop, applied to a copy of the state,
// committed, and only then made visible and broadcast.
package room

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wfunc/relicroom/apperr"
	"github.com/wfunc/relicroom/game"
	"github.com/wfunc/relicroom/logger"
	"github.com/wfunc/relicroom/models"
	"github.com/wfunc/relicroom/network"
	"github.com/wfunc/relicroom/persistence"
)

// ErrClosed is returned for commands sent to a room that has shut down.
var ErrClosed = apperr.New(apperr.CodeNotFound, "room is closed")

const defaultCommitTimeout = 5 * time.Second

type result struct {
	value any
	err   error
}

type envelope struct {
	cmd   Command
	query Query
	reply chan result
}

// Room 是单个游戏的执行者，state 只在 loop 协程内读写
type Room struct {
	id            string
	state         *game.State
	store         persistence.Store
	broadcaster   Broadcaster
	observer      Observer
	commitTimeout time.Duration
	onClose       func(*Room)

	// unix nanos of the last handled envelope
	lastUsed atomic.Int64
	// the committed game has finished
	settled atomic.Bool

	inbox     chan envelope
	closeChan chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

func newRoom(s *game.State, store persistence.Store, broadcaster Broadcaster, observer Observer,
	commitTimeout time.Duration, onClose func(*Room)) *Room {
	if observer == nil {
		observer = nopObserver{}
	}
	if commitTimeout <= 0 {
		commitTimeout = defaultCommitTimeout
	}
	r := &Room{
		id:            s.Game.ID,
		state:         s,
		store:         store,
		broadcaster:   broadcaster,
		observer:      observer,
		commitTimeout: commitTimeout,
		onClose:       onClose,
		inbox:         make(chan envelope),
		closeChan:     make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	r.lastUsed.Store(time.Now().UnixNano())
	r.settled.Store(s.Game.Status == models.StatusFinished)
	go r.loop()
	return r
}

// GetID returns the game id.
func (r *Room) GetID() string {
	return r.id
}

// Do applies cmd and returns its reply. Commands are handled one at a
// time in arrival order.
func (r *Room) Do(ctx context.Context, cmd Command) (any, error) {
	return r.send(ctx, envelope{cmd: cmd, reply: make(chan result, 1)})
}

// Query reads the committed state.
func (r *Room) Query(ctx context.Context, q Query) (any, error) {
	return r.send(ctx, envelope{query: q, reply: make(chan result, 1)})
}

func (r *Room) send(ctx context.Context, env envelope) (any, error) {
	select {
	case r.inbox <- env:
	case <-r.closeChan:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-env.reply:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the loop. Commands already accepted still get a reply.
func (r *Room) Close() {
	r.closeOnce.Do(func() { close(r.closeChan) })
}

// idleSettled reports whether the game has finished and nothing has touched
// the room for at least idle.
func (r *Room) idleSettled(now time.Time, idle time.Duration) bool {
	return r.settled.Load() && now.Sub(time.Unix(0, r.lastUsed.Load())) >= idle
}

// Done is closed once the loop has exited.
func (r *Room) Done() <-chan struct{} {
	return r.stopped
}

func (r *Room) loop() {
	defer close(r.stopped)
	for {
		select {
		case env := <-r.inbox:
			if closing := r.handle(env); closing {
				r.Close()
				if r.onClose != nil {
					r.onClose(r)
				}
				return
			}
		case <-r.closeChan:
			return
		}
	}
}

// handle runs one envelope and reports whether the room should shut down.
func (r *Room) handle(env envelope) bool {
	start := time.Now()
	var (
		name    string
		res     result
		closing bool
	)
	if env.query != nil {
		name = env.query.Name()
		res.value, res.err = env.query.Read(r.state)
	} else {
		name = env.cmd.Name()
		res, closing = r.apply(env.cmd)
	}
	outcome := "ok"
	if res.err != nil {
		outcome = string(apperr.GetCode(res.err))
	}
	r.observer.CommandHandled(name, outcome, time.Since(start))
	r.lastUsed.Store(time.Now().UnixNano())
	env.reply <- res
	return closing
}

func (r *Room) apply(cmd Command) (result, bool) {
	next := r.state.Clone()
	ch := &game.Changes{}
	value, err := cmd.Apply(next, ch)
	if err != nil {
		logger.Log.Debugw("command rejected", "game_id", r.id, "command", cmd.Name(), "error", err)
		return result{err: err}, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.commitTimeout)
	err = Commit(ctx, r.store, next, ch)
	cancel()
	if err != nil {
		r.observer.CommitFailed(cmd.Name())
		if errors.Is(err, persistence.ErrConflict) {
			logger.Log.Warnw("commit conflict", "game_id", r.id, "command", cmd.Name(), "error", err)
			return result{err: apperr.Wrap(err, apperr.CodeStateConflict, "the room changed, try again")}, false
		}
		logger.Log.Errorw("commit failed", "game_id", r.id, "command", cmd.Name(), "error", err)
		return result{err: apperr.Wrap(err, apperr.CodeInternal, "could not save the room")}, false
	}

	r.state = next
	r.settled.Store(next.Game.Status == models.StatusFinished)
	r.publish(ch.Events)
	closing := ch.GameDeleted || next.Game.Status == models.StatusTerminated
	return result{value: value}, closing
}

// publish delivers events in emission order. Delivery failures are logged
// and never undo the commit.
func (r *Room) publish(events []game.Event) {
	for _, e := range events {
		audience := e.To
		if len(audience) == 0 {
			audience = r.state.Accounts()
		}
		if len(audience) == 0 {
			continue
		}
		data, err := json.Marshal(network.EventFrame{Kind: string(e.Kind), GameID: r.id, Payload: e.Payload})
		if err != nil {
			logger.Log.Errorw("encode event", "game_id", r.id, "kind", e.Kind, "error", err)
			continue
		}
		if err := r.broadcaster.BroadcastToUsers(audience, network.MsgTypeEvent, data); err != nil {
			logger.Log.Debugw("deliver event", "game_id", r.id, "kind", e.Kind, "error", err)
		}
	}
}
