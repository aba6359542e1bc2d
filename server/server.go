package server

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/synergy/broadcast"
	"github.com/wfunc/synergy/config"
	"github.com/wfunc/synergy/logger"
	"github.com/wfunc/synergy/monitor"
	"github.com/wfunc/synergy/network"
	"github.com/wfunc/synergy/room"
	synergyrpc "github.com/wfunc/synergy/rpc"
	"github.com/wfunc/synergy/services"
	"github.com/wfunc/synergy/session"
)

// heartbeatInterval: a client silent for two intervals is disconnected.
const heartbeatInterval = 30 * time.Second

type GameServer struct {
	cfg            config.ServerConfig
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	records        *services.RecordService
	monitor        *monitor.Monitor
	httpServer     *http.Server
	rpcServer      *synergyrpc.Server
	mutex          sync.Mutex
	shutdownChan   chan struct{}
	shutdownOnce   sync.Once
}

// NewGameServer wires the room registry to the connection sessions. opts are
// passed to the room manager after the server's own.
func NewGameServer(cfg *config.Config, records *services.RecordService, mon *monitor.Monitor, opts ...room.Option) *GameServer {
	s := &GameServer{
		cfg:            cfg.Server,
		sessionManager: session.NewManager(),
		records:        records,
		monitor:        mon,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	roomOpts := append([]room.Option{
		room.WithRecorder(records),
		room.WithObserver(mon),
	}, opts...)
	s.roomManager = room.NewRoomManager(cfg.Game, broadcast.NewRoomBroadcaster(s.sessionManager), roomOpts...)

	return s
}

func (s *GameServer) RoomManager() *room.Manager {
	return s.roomManager
}

// Handler returns the HTTP routes: websocket, metrics, health and expvar.
func (s *GameServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.Handle(s.cfg.MetricsPath, s.monitor.Handler())
	mux.Handle("/debug/vars", expvar.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

// Start serves until Shutdown. It returns http.ErrServerClosed after a clean shutdown.
func (s *GameServer) Start() error {
	rpcServer, err := synergyrpc.NewServer(s.cfg.RPCAddress, synergyrpc.NewAdminService(s.roomManager, s.records))
	if err != nil {
		return err
	}

	s.mutex.Lock()
	s.rpcServer = rpcServer
	s.httpServer = &http.Server{
		Addr:              s.cfg.HTTPAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	httpServer := s.httpServer
	s.mutex.Unlock()

	go rpcServer.Start()

	logger.Log.Infof("Game server listening on %s", s.cfg.HTTPAddress)
	return httpServer.ListenAndServe()
}

// Shutdown stops accepting connections and closes every live session.
func (s *GameServer) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		close(s.shutdownChan)

		s.mutex.Lock()
		httpServer, rpcServer := s.httpServer, s.rpcServer
		s.mutex.Unlock()

		if rpcServer != nil {
			rpcServer.Stop()
		}
		if httpServer != nil {
			err = httpServer.Shutdown(ctx)
		}
		for _, sess := range s.sessionManager.All() {
			sess.Close()
		}
	})
	return err
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	wsConn := network.NewWSConnection(conn)
	wsConn.SetHeartbeat(heartbeatInterval)
	s.handleConnection(wsConn)
}

// handleConnection runs the read loop of one client until it disconnects.
func (s *GameServer) handleConnection(conn network.Connection) {
	sess := s.connect(conn)
	defer s.disconnect(sess)

	for {
		select {
		case <-s.shutdownChan:
			return
		case <-sess.Done():
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

func (s *GameServer) connect(conn network.Connection) *session.Session {
	sess := session.NewSession(uuid.New().String(), conn)
	s.sessionManager.Add(sess)
	s.monitor.IncOnlinePlayers()
	go sess.WriteLoop()

	logger.Log.Infof("New connection from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())
	return sess
}

// disconnect removes the session from its room, then from the server. It is
// the single exit path for closed sockets, overflowing queues and shutdown.
func (s *GameServer) disconnect(sess *session.Session) {
	logger.Log.Infof("Connection closed from %s, session ID: %s", sess.Conn.RemoteAddr(), sess.GetID())
	s.roomManager.Leave(sess.GetID())
	s.sessionManager.Remove(sess.GetID())
	s.monitor.DecOnlinePlayers()
	sess.Close()
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	start := time.Now()
	s.monitor.IncMessagesReceived()
	sess.Touch()

	req, err := network.DecodeRequest(packet)
	if err == nil {
		err = s.dispatch(sess, req)
	}
	if err != nil {
		logger.Log.Debugw("Request rejected", "session", sess.GetID(), "msg_id", packet.MsgID, "error", err)
		s.sendError(sess, err)
	}

	s.monitor.ObserveMessageLatency(time.Since(start))
}

func (s *GameServer) dispatch(sess *session.Session, req network.Request) error {
	id := sess.GetID()

	switch r := req.(type) {
	case network.Heartbeat:
		return nil
	case network.CreateRoomRequest:
		_, err := s.roomManager.CreateRoom(id, r.PlayerName)
		return err
	case network.JoinRoomRequest:
		_, err := s.roomManager.JoinRoom(id, r.RoomCode, r.PlayerName)
		return err
	case network.StartGameRequest:
		return s.roomManager.StartGame(id, r.RoomCode)
	case network.SubmitNumberRequest:
		return s.roomManager.SubmitNumber(id, r.RoomCode, r.Number)
	case network.RequestNewGameRequest:
		return s.roomManager.RequestNewGame(id, r.RoomCode)
	default:
		return network.ErrUnknownMessage
	}
}

func (s *GameServer) sendError(sess *session.Session, err error) {
	data, encErr := network.EncodeEvent(network.Error{Message: userMessage(err)})
	if encErr != nil {
		logger.Log.Errorf("Failed to encode error event: %v", encErr)
		return
	}
	if sendErr := sess.Send(network.MsgTypeError, data); sendErr != nil {
		logger.Log.Warnw("Failed to send error event", "session", sess.GetID(), "error", sendErr)
	}
}

var userMessages = []struct {
	err     error
	message string
}{
	{room.ErrRoomNotFound, "Room not found."},
	{room.ErrRoomFull, "Room is full."},
	{room.ErrGameInProgress, "Game has already started."},
	{room.ErrInvalidInput, "Invalid name, room code or number."},
	{room.ErrUnauthorized, "Only the host can do that."},
	{room.ErrNotEnoughPlayers, "Not enough players to start."},
	{room.ErrGameNotFinished, "The game has not finished yet."},
	{room.ErrAlreadyInRoom, "You are already in this room."},
	{room.ErrNoCodeAvailable, "Could not create a room. Try again."},
	{network.ErrUnknownMessage, "Unknown message."},
	{network.ErrMalformedPayload, "Malformed message."},
}

// userMessage turns an error into the text shown to the player.
func userMessage(err error) string {
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return m.message
		}
	}
	return "Something went wrong."
}
