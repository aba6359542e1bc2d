// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormGameRecord 游戏记录模型
type GormGameRecord struct {
	gorm.Model
	RoomCode    string    `gorm:"index;not null"`
	Round       int       `gorm:"not null"`
	Score       int       `gorm:"index;not null"`
	TotalTimeMs int64     `gorm:"not null"`
	Players     []string  `gorm:"serializer:json;type:jsonb"`
	FinishedAt  time.Time `gorm:"not null"`
}

func (GormGameRecord) TableName() string {
	return "game_records"
}

func NewGormGameRecord(r GameRecord) GormGameRecord {
	return GormGameRecord{
		RoomCode:    r.RoomCode,
		Round:       r.Round,
		Score:       r.Score,
		TotalTimeMs: r.TotalTime.Milliseconds(),
		Players:     r.Players,
		FinishedAt:  r.FinishedAt,
	}
}

func (g GormGameRecord) ToRecord() GameRecord {
	return GameRecord{
		RoomCode:   g.RoomCode,
		Round:      g.Round,
		Score:      g.Score,
		TotalTime:  time.Duration(g.TotalTimeMs) * time.Millisecond,
		Players:    g.Players,
		FinishedAt: g.FinishedAt,
	}
}
