package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig without a file should use defaults, got error: %v", err)
	}

	if cfg.Game != DefaultGame() {
		t.Errorf("Expected default game config %+v, got %+v", DefaultGame(), cfg.Game)
	}
	if cfg.Server.HTTPAddress != ":8080" {
		t.Errorf("Expected default http address :8080, got %s", cfg.Server.HTTPAddress)
	}
	if cfg.Database.Driver != DriverMemory {
		t.Errorf("Expected memory driver by default, got %s", cfg.Database.Driver)
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
game:
  round_duration: 30s
  max_players: 6
log:
  level: debug
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SYNERGY_GAME_REVEAL_DELAY", "2s")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Game.RoundDuration != 30*time.Second {
		t.Errorf("Expected round duration 30s, got %v", cfg.Game.RoundDuration)
	}
	if cfg.Game.MaxPlayers != 6 {
		t.Errorf("Expected max players 6, got %d", cfg.Game.MaxPlayers)
	}
	if cfg.Game.RevealDelay != 2*time.Second {
		t.Errorf("Expected env override reveal delay 2s, got %v", cfg.Game.RevealDelay)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.Log.Level)
	}
}

func TestGameConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*GameConfig)
	}{
		{"zero round duration", func(g *GameConfig) { g.RoundDuration = 0 }},
		{"negative reveal delay", func(g *GameConfig) { g.RevealDelay = -time.Second }},
		{"single player games", func(g *GameConfig) { g.MinPlayers = 1 }},
		{"max below min", func(g *GameConfig) { g.MaxPlayers = 1 }},
		{"inverted choice range", func(g *GameConfig) { g.ChoiceMin, g.ChoiceMax = 5, 4 }},
		{"empty alphabet", func(g *GameConfig) { g.RoomCodeAlphabet = "" }},
		{"short code", func(g *GameConfig) { g.RoomCodeLength = 3 }},
	}

	if err := DefaultGame().Validate(); err != nil {
		t.Fatalf("Default game config should be valid, got %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := DefaultGame()
			tt.mutate(&g)
			if err := g.Validate(); err == nil {
				t.Error("Expected a validation error")
			}
		})
	}
}

func TestConfig_ValidateDriver(t *testing.T) {
	cfg := &Config{Game: DefaultGame(), Database: DatabaseConfig{Driver: "mysql"}}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected unknown driver to be rejected")
	}
}
