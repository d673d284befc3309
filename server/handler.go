package server

import (
	"context"
	"encoding/json"
	"maps"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/wfunc/relicroom/apperr"
	"github.com/wfunc/relicroom/logger"
	"github.com/wfunc/relicroom/network"
	"github.com/wfunc/relicroom/services"
	"github.com/wfunc/relicroom/session"
)

func (s *GameServer) handleWebSocket(c *gin.Context) {
	account := c.GetString(accountKey)
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(account, network.NewWSConnection(conn))
}

func (s *GameServer) newLimiter() *rate.Limiter {
	if s.opts.RequestsPerSecond <= 0 {
		return nil
	}
	burst := s.opts.RequestBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(s.opts.RequestsPerSecond), burst)
}

func (s *GameServer) handleConnection(account string, conn network.Connection) {
	if s.opts.Heartbeat > 0 {
		conn.SetHeartbeat(s.opts.Heartbeat)
	}
	sess := session.NewSession(uuid.NewString(), conn, account, s.newLimiter())
	s.presenceMutex.Lock()
	s.sessionManager.Add(sess)
	s.reconnect(sess)
	s.presenceMutex.Unlock()

	logger.Log.Infow("connection opened", "remote", conn.RemoteAddr(), "session_id", sess.GetID(), "account_id", account)

	defer func() {
		logger.Log.Infow("connection closed", "remote", conn.RemoteAddr(), "session_id", sess.GetID(), "account_id", account)
		conn.Close()
		s.presenceMutex.Lock()
		s.sessionManager.Remove(sess.GetID())
		s.disconnect(sess)
		s.presenceMutex.Unlock()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
		}
		packet, err := conn.ReadPacket()
		if err != nil {
			return
		}
		s.handlePacket(sess, packet)
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	if s.monitor != nil {
		s.monitor.IncMessagesReceived()
	}
	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.Touch()
		_ = sess.Send(network.MsgTypeHeartbeat, nil)
	case network.MsgTypeRequest:
		s.handleRequest(sess, packet.Data)
	default:
		logger.Log.Debugw("unknown message type", "msg_id", packet.MsgID, "session_id", sess.GetID())
	}
}

func (s *GameServer) handleRequest(sess *session.Session, data []byte) {
	req, err := network.DecodeRequest(data)
	if err != nil {
		s.reply(sess, "", nil, apperr.Wrap(err, apperr.CodeValidation, "malformed request"))
		return
	}
	if !sess.Allow() {
		if s.monitor != nil {
			s.monitor.IncRateLimited()
		}
		s.reply(sess, req.ID, nil, apperr.New(apperr.CodeCapacity, "too many requests, slow down"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.CommandTimeout)
	defer cancel()
	out, err := s.games.Dispatch(ctx, sess.AccountID, req)
	if err == nil && out.GameID != "" {
		if req.Op == services.OpLeave {
			s.unseat(sess.AccountID, out.GameID)
		} else {
			s.seat(sess.AccountID, out.GameID)
		}
	}
	s.reply(sess, req.ID, out.Value, err)
}

func (s *GameServer) reply(sess *session.Session, id string, result any, err error) {
	rep := network.Reply{ID: id, OK: err == nil, Result: result}
	if err != nil {
		code := apperr.GetCode(err)
		if code == apperr.CodeUnknown {
			code = apperr.CodeInternal
		}
		rep.Result = nil
		rep.Error = &network.ReplyError{Code: string(code), Message: apperr.Message(err)}
		logger.Log.Debugw("request rejected", "request_id", id, "account_id", sess.AccountID, "code", code, "error", err)
	}
	data, encErr := json.Marshal(rep)
	if encErr != nil {
		logger.Log.Errorw("encode reply", "request_id", id, "error", encErr)
		return
	}
	if sendErr := sess.Send(network.MsgTypeReply, data); sendErr != nil {
		logger.Log.Debugw("send reply", "session_id", sess.GetID(), "error", sendErr)
	}
}

// disconnect marks the account offline in each of its games once its last
// connection is gone, and schedules removal after the grace period.
func (s *GameServer) disconnect(sess *session.Session) {
	if len(s.sessionManager.GetByAccount(sess.AccountID)) > 0 {
		return
	}
	select {
	case <-s.shutdownChan:
		return
	default:
	}
	for _, gameID := range s.seatedIn(sess.AccountID) {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.CommandTimeout)
		s.games.SetOnline(ctx, sess.AccountID, gameID, false)
		cancel()
		s.scheduleAbandon(sess.AccountID, gameID)
	}
}

// scheduleAbandon records the offline seat. Without a grace period the
// seat is kept with id 0 so a reconnect still restores presence.
func (s *GameServer) scheduleAbandon(account, gameID string) {
	key := graceKey{account: account, gameID: gameID}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if id, ok := s.grace[key]; ok && id != 0 {
		s.timers.RemoveTimer(id)
	}
	if s.opts.DisconnectGrace <= 0 {
		s.grace[key] = 0
		return
	}
	s.grace[key] = s.timers.AddTimer(s.opts.DisconnectGrace, 0, func() {
		s.mutex.Lock()
		delete(s.grace, key)
		s.mutex.Unlock()
		logger.Log.Infow("reconnect window expired", "account_id", account, "game_id", gameID)
		s.unseat(account, gameID)
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.CommandTimeout)
		defer cancel()
		s.games.Abandon(ctx, account, gameID)
	})
}

// reconnect cancels pending removals for the account and restores its
// presence in those games.
func (s *GameServer) reconnect(sess *session.Session) {
	var games []string
	s.mutex.Lock()
	for key, id := range s.grace {
		if key.account != sess.AccountID {
			continue
		}
		if id == 0 || s.timers.RemoveTimer(id) {
			games = append(games, key.gameID)
		}
		delete(s.grace, key)
	}
	s.mutex.Unlock()

	for _, gameID := range games {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.CommandTimeout)
		s.games.SetOnline(ctx, sess.AccountID, gameID, true)
		cancel()
	}
}

// seat records that account holds a seat in gameID. Seats belong to the
// account, not to the connection that took them.
func (s *GameServer) seat(account, gameID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	games, ok := s.seats[account]
	if !ok {
		games = make(map[string]bool)
		s.seats[account] = games
	}
	games[gameID] = true
}

func (s *GameServer) unseat(account, gameID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.seats[account], gameID)
	if len(s.seats[account]) == 0 {
		delete(s.seats, account)
	}
}

// seatedIn lists the games account holds a seat in.
func (s *GameServer) seatedIn(account string) []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return slices.Sorted(maps.Keys(s.seats[account]))
}

// pendingGrace is the number of scheduled removals.
func (s *GameServer) pendingGrace() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.grace)
}
