package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/relicroom/apperr"
	"github.com/wfunc/relicroom/game"
	"github.com/wfunc/relicroom/network"
	"github.com/wfunc/relicroom/persistence"
	"github.com/wfunc/relicroom/room"
)

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastToUsers([]string, uint16, []byte) error { return nil }

type firstDraw struct{}

func (firstDraw) IntN(int) int               { return 0 }
func (firstDraw) Shuffle(int, func(i, j int)) {}

func newService(t *testing.T) *GameService {
	t.Helper()
	rooms := room.NewRoomManager(persistence.NewMemoryStore(), nopBroadcaster{}, room.Options{
		Deps: game.Deps{Random: firstDraw{}},
	})
	t.Cleanup(rooms.Close)
	return NewGameService(rooms)
}

func request(op, gameID string, args any) *network.Request {
	raw, _ := json.Marshal(args)
	return &network.Request{ID: "1", Op: op, GameID: gameID, Args: raw}
}

func account(i int) string { return fmt.Sprintf("acct-%d", i) }

func TestDispatchCreateAndJoinByCode(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	out, err := svc.Dispatch(ctx, account(1), request(OpCreate, "", map[string]string{"password": "pw"}))
	require.NoError(t, err)
	seat := out.Value.(room.Seat)
	assert.NotEmpty(t, seat.GameID)
	assert.Len(t, seat.Code, 6)
	assert.Equal(t, seat.GameID, out.GameID)

	join := request(OpJoin, "", map[string]string{"password": "pw"})
	join.RoomCode = seat.Code
	out, err = svc.Dispatch(ctx, account(2), join)
	require.NoError(t, err)
	assert.Equal(t, seat.GameID, out.GameID)
	assert.Equal(t, seat.GameID, out.Value.(room.Seat).GameID)

	out, err = svc.Dispatch(ctx, account(2), request("view_players", seat.GameID, nil))
	require.NoError(t, err)
	assert.Len(t, out.Value.(game.PlayersView).Players, 2)
}

func TestDispatchStampsCaller(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	seat, err := svc.Create(ctx, account(1), "")
	require.NoError(t, err)
	for i := 2; i <= 6; i++ {
		_, err := svc.Dispatch(ctx, account(i), request(OpJoin, seat.GameID, nil))
		require.NoError(t, err)
	}

	// acct-2 claims to be the host inside args; the caller's account wins.
	_, err = svc.Dispatch(ctx, account(2), request("start_selection", seat.GameID, map[string]string{"Account": account(1)}))
	assert.True(t, apperr.IsCode(err, apperr.CodeNotHost))

	_, err = svc.Dispatch(ctx, account(1), request("start_selection", seat.GameID, nil))
	require.NoError(t, err)

	out, err := svc.Dispatch(ctx, account(3), request("lock_role", seat.GameID, map[string]string{"role": "xu_yuan", "color": "green"}))
	require.NoError(t, err)
	assert.Equal(t, room.LockedRole{Role: "xu_yuan", Color: "green"}, out.Value)
}

func TestDispatchRejections(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	seat, err := svc.Create(ctx, account(1), "")
	require.NoError(t, err)

	_, err = svc.Dispatch(ctx, account(1), request("fly", seat.GameID, nil))
	assert.True(t, apperr.IsCode(err, apperr.CodeValidation))

	_, err = svc.Dispatch(ctx, account(1), request("view_me", "", nil))
	assert.True(t, apperr.IsCode(err, apperr.CodeValidation))

	bad := &network.Request{Op: "kick", GameID: seat.GameID, Args: json.RawMessage(`{"player_id":`)}
	_, err = svc.Dispatch(ctx, account(1), bad)
	assert.True(t, apperr.IsCode(err, apperr.CodeValidation))

	_, err = svc.Dispatch(ctx, account(1), request("view_me", "no-such-game", nil))
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))

	join := request(OpJoin, "", nil)
	join.RoomCode = "000000x"
	_, err = svc.Dispatch(ctx, account(2), join)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

func TestPresenceHelpers(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	seat, err := svc.Create(ctx, account(1), "")
	require.NoError(t, err)
	_, err = svc.Dispatch(ctx, account(2), request(OpJoin, seat.GameID, nil))
	require.NoError(t, err)

	svc.SetOnline(ctx, account(2), seat.GameID, false)
	out, err := svc.Dispatch(ctx, account(1), request("view_players", seat.GameID, nil))
	require.NoError(t, err)
	players := out.Value.(game.PlayersView).Players
	assert.False(t, players[1].Online)

	svc.Abandon(ctx, account(2), seat.GameID)
	out, err = svc.Dispatch(ctx, account(1), request("view_players", seat.GameID, nil))
	require.NoError(t, err)
	assert.Len(t, out.Value.(game.PlayersView).Players, 1)

	// Unknown rooms and seats are ignored.
	svc.SetOnline(ctx, account(9), seat.GameID, true)
	svc.Abandon(ctx, account(9), "missing")
}

func TestOpsCoverProtocol(t *testing.T) {
	svc := newService(t)
	assert.ElementsMatch(t, []string{
		"join", "leave", "kick", "lock_role", "unlock_role", "start_selection", "start",
		"identify_artifact", "identify_player", "attack_player", "block_artifact",
		"swap_artifacts", "assign_next", "start_discussion", "start_voting",
		"submit_votes", "next_round", "calculate_settlement", "submit_identification",
		"publish_identification", "view_players", "view_me", "view_round",
		"view_artifacts", "view_teammates", "view_history", "view_settlement",
	}, svc.Ops())
}
