package persistence

import (
	"context"
	"slices"
	"sync"

	"github.com/wfunc/synergy/models"
)

// Memory keeps records in process. Records are lost on restart.
type Memory struct {
	mutex   sync.RWMutex
	records []models.GameRecord
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) SaveGameRecord(ctx context.Context, record models.GameRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	record.Players = slices.Clone(record.Players)

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *Memory) TopRecords(ctx context.Context, limit int) ([]models.GameRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mutex.RLock()
	out := slices.Clone(m.records)
	m.mutex.RUnlock()

	rank(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) RoomRecords(ctx context.Context, roomCode string) ([]models.GameRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var out []models.GameRecord
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].RoomCode == roomCode {
			out = append(out, m.records[i])
		}
	}
	if len(out) == 0 {
		return nil, ErrRecordNotFound
	}
	return out, nil
}

func (m *Memory) Close() error {
	return nil
}
