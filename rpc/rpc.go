package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"time"

	"github.com/wfunc/synergy/logger"
	"github.com/wfunc/synergy/models"
)

const callTimeout = 5 * time.Second

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer listens on addr and exposes admin under the name "Admin".
func NewServer(addr string, admin *AdminService) (*Server, error) {
	rs := rpc.NewServer()
	if err := rs.RegisterName("Admin", admin); err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      rs,
	}, nil
}

// Addr returns the bound address, useful when listening on port 0.
func (s *Server) Addr() string {
	return s.address
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

type StatsSource interface {
	Stats() models.RoomStats
}

type RecordSource interface {
	Leaderboard(ctx context.Context, limit int) ([]models.GameRecord, error)
	History(ctx context.Context, roomCode string) ([]models.GameRecord, error)
}

// AdminService exposes read-only server state to operators. Its methods
// follow the net/rpc signature: exported args, pointer reply, error result.
type AdminService struct {
	rooms   StatsSource
	records RecordSource
}

func NewAdminService(rooms StatsSource, records RecordSource) *AdminService {
	return &AdminService{rooms: rooms, records: records}
}

type StatsArgs struct{}

type StatsReply struct {
	Stats models.RoomStats
}

func (a *AdminService) Stats(args *StatsArgs, reply *StatsReply) error {
	reply.Stats = a.rooms.Stats()
	return nil
}

type LeaderboardArgs struct {
	Limit int
}

type RecordsReply struct {
	Records []models.GameRecord
}

func (a *AdminService) Leaderboard(args *LeaderboardArgs, reply *RecordsReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	records, err := a.records.Leaderboard(ctx, args.Limit)
	if err != nil {
		return err
	}
	reply.Records = records
	return nil
}

type HistoryArgs struct {
	RoomCode string
}

func (a *AdminService) History(args *HistoryArgs, reply *RecordsReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	records, err := a.records.History(ctx, args.RoomCode)
	if err != nil {
		return err
	}
	reply.Records = records
	return nil
}
