// models/models.go
package models

import (
	"time"
)

// GameRecord 一局达成默契 (synergy) 的游戏记录
type GameRecord struct {
	RoomCode   string        `json:"room_code"`
	Round      int           `json:"round"`
	Score      int           `json:"score"`
	TotalTime  time.Duration `json:"total_time"`
	Players    []string      `json:"players"`
	FinishedAt time.Time     `json:"finished_at"`
}

// RoomStats is a point-in-time view of the live rooms.
type RoomStats struct {
	Rooms   int            `json:"rooms"`
	Players int            `json:"players"`
	Phases  map[string]int `json:"phases"`
}
