// services/record_service.go
package services

import (
	"context"
	"sync"
	"time"

	"github.com/wfunc/synergy/logger"
	"github.com/wfunc/synergy/models"
	"github.com/wfunc/synergy/persistence"
	"github.com/wfunc/synergy/room"
)

const (
	recordQueueSize  = 256
	saveTimeout      = 5 * time.Second
	DefaultBoardSize = 10
)

// RecordService persists synergy games off the room goroutines and serves
// the leaderboard.
type RecordService struct {
	db      persistence.Database
	queue   chan models.GameRecord
	wg      sync.WaitGroup
	closeMu sync.Mutex
	closed  bool
}

var _ room.Recorder = (*RecordService)(nil)

func NewRecordService(db persistence.Database) *RecordService {
	s := &RecordService{
		db:    db,
		queue: make(chan models.GameRecord, recordQueueSize),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// RecordSynergy queues a record for saving. It never blocks; when the queue
// is full the record is dropped and logged.
func (s *RecordService) RecordSynergy(rec models.GameRecord) {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		logger.Log.Warnw("Record service closed, dropping record", "room", rec.RoomCode)
		return
	}

	select {
	case s.queue <- rec:
	default:
		logger.Log.Warnw("Record queue full, dropping record", "room", rec.RoomCode, "score", rec.Score)
	}
}

func (s *RecordService) run() {
	defer s.wg.Done()
	for rec := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		if err := s.db.SaveGameRecord(ctx, rec); err != nil {
			logger.Log.Errorw("Failed to save game record", "room", rec.RoomCode, "error", err)
		} else {
			logger.Log.Debugw("Saved game record", "room", rec.RoomCode, "score", rec.Score)
		}
		cancel()
	}
}

// Leaderboard returns the best games. A non-positive limit uses DefaultBoardSize.
func (s *RecordService) Leaderboard(ctx context.Context, limit int) ([]models.GameRecord, error) {
	if limit <= 0 {
		limit = DefaultBoardSize
	}
	return s.db.TopRecords(ctx, limit)
}

// History returns the games played under a room code.
func (s *RecordService) History(ctx context.Context, roomCode string) ([]models.GameRecord, error) {
	return s.db.RoomRecords(ctx, room.NormalizeCode(roomCode))
}

// Close stops accepting records and waits for queued ones to be saved.
func (s *RecordService) Close() {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.closeMu.Unlock()

	s.wg.Wait()
}
