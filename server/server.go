package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/wfunc/relicroom/broadcast"
	"github.com/wfunc/relicroom/identity"
	"github.com/wfunc/relicroom/logger"
	"github.com/wfunc/relicroom/monitor"
	"github.com/wfunc/relicroom/network"
	"github.com/wfunc/relicroom/room"
	"github.com/wfunc/relicroom/services"
	"github.com/wfunc/relicroom/session"
	"github.com/wfunc/relicroom/timer"
)

const accountKey = "account_id"

// Options are the transport knobs of the coordinator.
type Options struct {
	Addr              string
	RequestsPerSecond float64
	RequestBurst      int
	// Heartbeat is the expected client heartbeat interval; a connection is
	// dropped after two silent intervals. Zero disables the check.
	Heartbeat       time.Duration
	CommandTimeout  time.Duration
	DisconnectGrace time.Duration
	SampleInterval  time.Duration
	// SettledRoomTTL is how long a finished room stays in memory after its
	// last use. Zero keeps finished rooms until shutdown.
	SettledRoomTTL time.Duration
}

type graceKey struct {
	account string
	gameID  string
}

type GameServer struct {
	opts           Options
	engine         *gin.Engine
	httpServer     *http.Server
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	games          *services.GameService
	broadcaster    broadcast.Broadcaster
	resolver       identity.Resolver
	monitor        *monitor.Monitor
	timers         *timer.TimerManager

	// pending disconnect-grace timers, cancelled on reconnect
	grace map[graceKey]int64
	// account id -> games it holds a seat in, across all its connections
	seats map[string]map[string]bool
	mutex sync.Mutex
	// serializes connect and disconnect bookkeeping per server
	presenceMutex sync.Mutex

	samplerID    int64
	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

func NewGameServer(opts Options, roomManager *room.Manager, sessionManager *session.Manager,
	broadcaster broadcast.Broadcaster, resolver identity.Resolver, mon *monitor.Monitor) *GameServer {
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = 5 * time.Second
	}
	s := &GameServer{
		opts:           opts,
		roomManager:    roomManager,
		sessionManager: sessionManager,
		games:          services.NewGameService(roomManager),
		broadcaster:    broadcaster,
		resolver:       resolver,
		monitor:        mon,
		timers:         timer.NewTimerManager(),
		grace:          make(map[graceKey]int64),
		seats:          make(map[string]map[string]bool),
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}
	s.engine = s.routes()
	s.httpServer = &http.Server{Addr: opts.Addr, Handler: s.engine}
	return s
}

func (s *GameServer) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "healthy") })
	if s.monitor != nil {
		r.GET("/metrics", gin.WrapH(s.monitor.Handler()))
	}
	r.GET("/ws", s.authenticate, s.handleWebSocket)
	return r
}

// Handler exposes the router, mainly for tests.
func (s *GameServer) Handler() http.Handler {
	return s.engine
}

// authenticate resolves the caller before the websocket upgrade.
func (s *GameServer) authenticate(c *gin.Context) {
	account, err := s.resolver.Resolve(c.Request)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(accountKey, account)
	c.Next()
}

// Start serves HTTP until Shutdown. It blocks.
func (s *GameServer) Start() error {
	if s.opts.SampleInterval > 0 && s.monitor != nil {
		s.samplerID = s.timers.AddTimer(0, s.opts.SampleInterval, s.sample)
	}
	if s.opts.SettledRoomTTL > 0 {
		s.timers.AddTimer(s.opts.SettledRoomTTL, s.opts.SettledRoomTTL, func() {
			s.roomManager.EvictSettled(s.opts.SettledRoomTTL)
		})
	}
	logger.Log.Infof("Game server listening on %s", s.opts.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *GameServer) sample() {
	s.monitor.SetActiveRooms(s.roomManager.Count())
	s.monitor.SetOnlineSessions(s.sessionManager.Count())
}

// Shutdown tells every client, stops accepting connections and closes the
// open ones. Pending disconnect timers are dropped; seats survive in the
// store.
func (s *GameServer) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		close(s.shutdownChan)
		if data, encErr := json.Marshal(network.EventFrame{Kind: "server_shutdown"}); encErr == nil {
			_ = s.broadcaster.BroadcastToAll(network.MsgTypeEvent, data)
		}
		err = s.httpServer.Shutdown(ctx)
		for _, sess := range s.sessionManager.All() {
			sess.Close()
		}
		s.timers.Stop()
	})
	return err
}
