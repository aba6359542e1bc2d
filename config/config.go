package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
}

type ServerConfig struct {
	HTTPAddress string `mapstructure:"http_address"`
	RPCAddress  string `mapstructure:"rpc_address"`
	MetricsPath string `mapstructure:"metrics_path"`
}

// GameConfig holds the per-room policy constants.
type GameConfig struct {
	RoundDuration    time.Duration `mapstructure:"round_duration"`
	RevealDelay      time.Duration `mapstructure:"reveal_delay"`
	MaxPlayers       int           `mapstructure:"max_players"`
	MinPlayers       int           `mapstructure:"min_players"`
	ChoiceMin        int           `mapstructure:"choice_min"`
	ChoiceMax        int           `mapstructure:"choice_max"`
	RoomCodeAlphabet string        `mapstructure:"room_code_alphabet"`
	RoomCodeLength   int           `mapstructure:"room_code_length"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DatabaseConfig struct {
	// Driver 取值: memory, gorm, postgres
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

const (
	DriverMemory   = "memory"
	DriverGorm     = "gorm"
	DriverPostgres = "postgres"
)

// DefaultGame returns the game constants used when nothing is configured.
func DefaultGame() GameConfig {
	return GameConfig{
		RoundDuration:    20 * time.Second,
		RevealDelay:      5 * time.Second,
		MaxPlayers:       4,
		MinPlayers:       2,
		ChoiceMin:        1,
		ChoiceMax:        10,
		RoomCodeAlphabet: "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789",
		RoomCodeLength:   6,
	}
}

func setDefaults(v *viper.Viper) {
	g := DefaultGame()
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":9090")
	v.SetDefault("server.metrics_path", "/metrics")
	v.SetDefault("game.round_duration", g.RoundDuration)
	v.SetDefault("game.reveal_delay", g.RevealDelay)
	v.SetDefault("game.max_players", g.MaxPlayers)
	v.SetDefault("game.min_players", g.MinPlayers)
	v.SetDefault("game.choice_min", g.ChoiceMin)
	v.SetDefault("game.choice_max", g.ChoiceMax)
	v.SetDefault("game.room_code_alphabet", g.RoomCodeAlphabet)
	v.SetDefault("game.room_code_length", g.RoomCodeLength)
	v.SetDefault("log.level", "info")
	v.SetDefault("database.driver", DriverMemory)
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "synergy")
}

// LoadConfig reads config.yaml from path if present. Environment variables
// prefixed with SYNERGY_ override file values, e.g. SYNERGY_GAME_MAX_PLAYERS.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("synergy")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the game constants and the database driver.
func (c *Config) Validate() error {
	if err := c.Game.Validate(); err != nil {
		return err
	}
	switch c.Database.Driver {
	case DriverMemory, DriverGorm, DriverPostgres:
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	return nil
}

func (g GameConfig) Validate() error {
	switch {
	case g.RoundDuration <= 0:
		return errors.New("config: game.round_duration must be positive")
	case g.RevealDelay <= 0:
		return errors.New("config: game.reveal_delay must be positive")
	case g.MinPlayers < 2:
		return errors.New("config: game.min_players must be at least 2")
	case g.MaxPlayers < g.MinPlayers:
		return errors.New("config: game.max_players must not be below game.min_players")
	case g.ChoiceMin > g.ChoiceMax:
		return errors.New("config: game.choice_min must not exceed game.choice_max")
	case g.RoomCodeAlphabet == "":
		return errors.New("config: game.room_code_alphabet is empty")
	case g.RoomCodeLength < 4:
		return errors.New("config: game.room_code_length must be at least 4")
	}
	return nil
}

// DSN builds the libpq connection string shared by both postgres drivers.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		p.Host, p.Port, p.User, p.Password, p.DBName)
}
