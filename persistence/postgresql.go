// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/lib/pq" // PostgreSQL 驱动

	"github.com/wfunc/synergy/config"
	"github.com/wfunc/synergy/models"
)

const queryTimeout = 5 * time.Second

// PostgreSQL 数据库实现, 直接使用 database/sql
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(cfg config.PostgresConfig) (*PostgreSQL, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables creates the same game_records table the gorm backend migrates,
// so either driver can read rows written by the other.
func initTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS game_records (
            id BIGSERIAL PRIMARY KEY,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            deleted_at TIMESTAMPTZ,
            room_code TEXT NOT NULL,
            round BIGINT NOT NULL,
            score BIGINT NOT NULL,
            total_time_ms BIGINT NOT NULL,
            players JSONB,
            finished_at TIMESTAMPTZ NOT NULL
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
        CREATE INDEX IF NOT EXISTS idx_game_records_room_code ON game_records(room_code);
        CREATE INDEX IF NOT EXISTS idx_game_records_score ON game_records(score);
        CREATE INDEX IF NOT EXISTS idx_game_records_deleted_at ON game_records(deleted_at);
    `)
	return err
}

// SaveGameRecord 保存游戏记录
func (p *PostgreSQL) SaveGameRecord(ctx context.Context, record models.GameRecord) error {
	players, err := json.Marshal(record.Players)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
        INSERT INTO game_records (room_code, round, score, total_time_ms, players, finished_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	_, err = p.db.ExecContext(ctx, query,
		record.RoomCode,
		record.Round,
		record.Score,
		record.TotalTime.Milliseconds(),
		players,
		record.FinishedAt)
	return err
}

func (p *PostgreSQL) TopRecords(ctx context.Context, limit int) ([]models.GameRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
        SELECT room_code, round, score, total_time_ms, players, finished_at
        FROM game_records
        WHERE deleted_at IS NULL
        ORDER BY score DESC, total_time_ms ASC, finished_at ASC
    `
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func (p *PostgreSQL) RoomRecords(ctx context.Context, roomCode string) ([]models.GameRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
        SELECT room_code, round, score, total_time_ms, players, finished_at
        FROM game_records
        WHERE room_code = $1 AND deleted_at IS NULL
        ORDER BY finished_at DESC
    `
	rows, err := p.db.QueryContext(ctx, query, roomCode)
	if err != nil {
		return nil, err
	}
	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrRecordNotFound
	}
	return records, nil
}

func scanRecords(rows *sql.Rows) ([]models.GameRecord, error) {
	defer rows.Close()

	var out []models.GameRecord
	for rows.Next() {
		var (
			r       models.GameRecord
			totalMs int64
			players []byte
		)
		if err := rows.Scan(&r.RoomCode, &r.Round, &r.Score, &totalMs, &players, &r.FinishedAt); err != nil {
			return nil, err
		}
		r.TotalTime = time.Duration(totalMs) * time.Millisecond
		if len(players) > 0 {
			if err := json.Unmarshal(players, &r.Players); err != nil {
				return nil, err
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
