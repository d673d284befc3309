// Package services is the application facade: it resolves rooms by id or
// code and turns protocol operations into room commands and queries.
package services

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/wfunc/relicroom/apperr"
	"github.com/wfunc/relicroom/game"
	"github.com/wfunc/relicroom/logger"
	"github.com/wfunc/relicroom/network"
	"github.com/wfunc/relicroom/room"
)

// Op names with effects on the caller's session.
const (
	OpCreate = "create"
	OpJoin   = "join"
	OpLeave  = "leave"
)

// Outcome is the reply to one request.
type Outcome struct {
	GameID string
	Value  any
}

type builder func(account string, args json.RawMessage) (any, error)

type GameService struct {
	rooms *room.Manager
	ops   map[string]builder
}

func NewGameService(rooms *room.Manager) *GameService {
	return &GameService{rooms: rooms, ops: operations()}
}

// Ops lists every operation name the service accepts, besides create.
func (s *GameService) Ops() []string {
	out := make([]string, 0, len(s.ops))
	for name := range s.ops {
		out = append(out, name)
	}
	return out
}

type createArgs struct {
	Password string `json:"password"`
}

// Create opens a room hosted by account.
func (s *GameService) Create(ctx context.Context, account, password string) (room.Seat, error) {
	r, err := s.rooms.CreateRoom(ctx, account, password)
	if err != nil {
		return room.Seat{}, err
	}
	v, err := r.Query(ctx, room.QueryFunc(func(st *game.State) (any, error) {
		p := st.Seat(account)
		if p == nil {
			return nil, apperr.New(apperr.CodeInternal, "host seat missing")
		}
		return room.Seat{GameID: st.Game.ID, Code: st.Game.Code, PlayerID: p.ID}, nil
	}))
	if err != nil {
		return room.Seat{}, err
	}
	return v.(room.Seat), nil
}

// Dispatch runs one protocol request on behalf of account.
func (s *GameService) Dispatch(ctx context.Context, account string, req *network.Request) (Outcome, error) {
	if req.Op == OpCreate {
		var args createArgs
		if err := decode(req.Args, &args); err != nil {
			return Outcome{}, err
		}
		seat, err := s.Create(ctx, account, args.Password)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{GameID: seat.GameID, Value: seat}, nil
	}

	build, ok := s.ops[req.Op]
	if !ok {
		return Outcome{}, apperr.Newf(apperr.CodeValidation, "unknown operation %q", req.Op)
	}
	op, err := build(account, req.Args)
	if err != nil {
		return Outcome{}, err
	}
	r, err := s.resolve(ctx, req)
	if err != nil {
		return Outcome{}, err
	}

	var value any
	switch op := op.(type) {
	case room.Command:
		value, err = r.Do(ctx, op)
	case room.Query:
		value, err = r.Query(ctx, op)
	}
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{GameID: r.GetID(), Value: value}, nil
}

func (s *GameService) resolve(ctx context.Context, req *network.Request) (*room.Room, error) {
	switch {
	case req.GameID != "":
		return s.rooms.GetRoom(ctx, req.GameID)
	case req.RoomCode != "":
		return s.rooms.FindByCode(ctx, req.RoomCode)
	default:
		return nil, apperr.New(apperr.CodeValidation, "game_id or room_code is required")
	}
}

// SetOnline records presence for account in gameID. Rooms that are gone or
// no longer seat the account are skipped.
func (s *GameService) SetOnline(ctx context.Context, account, gameID string, online bool) {
	s.quietly(ctx, gameID, room.SetOnline{Account: account, Online: online})
}

// Abandon removes account from gameID once its reconnect window expires.
func (s *GameService) Abandon(ctx context.Context, account, gameID string) {
	s.quietly(ctx, gameID, room.Leave{Account: account})
}

func (s *GameService) quietly(ctx context.Context, gameID string, cmd room.Command) {
	r, err := s.rooms.GetRoom(ctx, gameID)
	if err == nil {
		_, err = r.Do(ctx, cmd)
	}
	if err == nil {
		return
	}
	if apperr.IsCode(err, apperr.CodeNotFound) || errors.Is(err, room.ErrClosed) {
		logger.Log.Debugw("skip presence update", "game_id", gameID, "command", cmd.Name(), "error", err)
		return
	}
	logger.Log.Warnw("presence update failed", "game_id", gameID, "command", cmd.Name(), "error", err)
}

func decode(args json.RawMessage, v any) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return apperr.Wrap(err, apperr.CodeValidation, "malformed arguments")
	}
	return nil
}

// bind decodes args into a T and stamps the caller's account on it, so a
// client can never act as someone else.
func bind[T any](stamp func(*T, string)) builder {
	return func(account string, args json.RawMessage) (any, error) {
		var v T
		if err := decode(args, &v); err != nil {
			return nil, err
		}
		stamp(&v, account)
		return v, nil
	}
}

func operations() map[string]builder {
	return map[string]builder{
		OpJoin:  bind(func(c *room.Join, a string) { c.Account = a }),
		OpLeave: bind(func(c *room.Leave, a string) { c.Account = a }),
		"kick":  bind(func(c *room.Kick, a string) { c.Account = a }),

		"start_selection": bind(func(c *room.StartSelection, a string) { c.Account = a }),
		"lock_role":       bind(func(c *room.LockRole, a string) { c.Account = a }),
		"unlock_role":     bind(func(c *room.UnlockRole, a string) { c.Account = a }),
		"start":           bind(func(c *room.StartGame, a string) { c.Account = a }),

		"identify_artifact": bind(func(c *room.InspectArtifact, a string) { c.Account = a }),
		"identify_player":   bind(func(c *room.InspectPlayer, a string) { c.Account = a }),
		"attack_player":     bind(func(c *room.Attack, a string) { c.Account = a }),
		"block_artifact":    bind(func(c *room.Block, a string) { c.Account = a }),
		"swap_artifacts":    bind(func(c *room.Swap, a string) { c.Account = a }),
		"assign_next":       bind(func(c *room.AssignNext, a string) { c.Account = a }),
		"start_discussion":  bind(func(c *room.StartDiscussion, a string) { c.Account = a }),

		"start_voting":           bind(func(c *room.StartVoting, a string) { c.Account = a }),
		"submit_votes":           bind(func(c *room.SubmitVotes, a string) { c.Account = a }),
		"next_round":             bind(func(c *room.NextRound, a string) { c.Account = a }),
		"calculate_settlement":   bind(func(c *room.CalculateSettlement, a string) { c.Account = a }),
		"submit_identification":  bind(func(c *room.SubmitIdentification, a string) { c.Account = a }),
		"publish_identification": bind(func(c *room.PublishIdentification, a string) { c.Account = a }),

		"view_players":    bind(func(q *room.ViewPlayers, a string) { q.Account = a }),
		"view_me":         bind(func(q *room.ViewMe, a string) { q.Account = a }),
		"view_round":      bind(func(q *room.ViewRound, a string) { q.Account = a }),
		"view_artifacts":  bind(func(q *room.ViewArtifacts, a string) { q.Account = a }),
		"view_teammates":  bind(func(q *room.ViewTeammates, a string) { q.Account = a }),
		"view_history":    bind(func(q *room.ViewHistory, a string) { q.Account = a }),
		"view_settlement": bind(func(q *room.ViewSettlement, a string) { q.Account = a }),
	}
}
