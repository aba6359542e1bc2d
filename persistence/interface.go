// persistence/interface.go
package persistence

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/wfunc/synergy/config"
	"github.com/wfunc/synergy/models"
)

// Database stores finished synergy games.
type Database interface {
	SaveGameRecord(ctx context.Context, record models.GameRecord) error
	// TopRecords returns the best games: highest score first, then fastest.
	TopRecords(ctx context.Context, limit int) ([]models.GameRecord, error)
	// RoomRecords returns the games played under one room code, newest first.
	RoomRecords(ctx context.Context, roomCode string) ([]models.GameRecord, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = errors.New("record not found")
)

// Open connects to the backend named by cfg.Driver.
func Open(cfg config.DatabaseConfig) (Database, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		return NewMemory(), nil
	case config.DriverGorm:
		return NewGormPostgreSQL(cfg.Postgres)
	case config.DriverPostgres:
		return NewPostgreSQL(cfg.Postgres)
	default:
		return nil, fmt.Errorf("persistence: unknown driver %q", cfg.Driver)
	}
}

// compareRank orders records for the leaderboard.
func compareRank(a, b models.GameRecord) int {
	if a.Score != b.Score {
		return b.Score - a.Score
	}
	if a.TotalTime != b.TotalTime {
		if a.TotalTime < b.TotalTime {
			return -1
		}
		return 1
	}
	return a.FinishedAt.Compare(b.FinishedAt)
}

func rank(records []models.GameRecord) {
	slices.SortStableFunc(records, compareRank)
}
