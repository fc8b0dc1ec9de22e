package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Client struct {
	ServerURL    string        `env:"SERVER_URL" envDefault:"http://localhost:8000"`
	GameName     string        `env:"GAME_NAME" envDefault:"default"`
	Seat         string        `env:"SEAT" envDefault:"0"`
	PlayerName   string        `env:"PLAYER_NAME" envDefault:"Player"`
	NumPlayers   int           `env:"NUM_PLAYERS" envDefault:"2"`
	UI           string        `env:"UI" envDefault:"terminal"` // "terminal" | "text"
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFile      string        `env:"LOG_FILE" envDefault:"client.log"`
	ReconnectMin time.Duration `env:"RECONNECT_MIN" envDefault:"250ms"`
	ReconnectMax time.Duration `env:"RECONNECT_MAX" envDefault:"5s"`
}

type Server struct {
	Addr      string   `env:"ADDR" envDefault:":8000"`
	Games     []string `env:"GAMES" envDefault:"default" envSeparator:","`
	PublicURL string   `env:"PUBLIC_URL"` // defaults to http://localhost<Addr>
	LogLevel  string   `env:"LOG_LEVEL" envDefault:"info"`
}

// LoadEnv reads the given .env files into the process environment.
// Missing files are ignored; variables already set win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadClient parses the client settings. Every bad value is reported, not just the first.
func LoadClient() (Client, error) {
	c, err := env.ParseAs[Client]()
	errs := []error{err}

	if c.UI != "terminal" && c.UI != "text" {
		errs = append(errs, fmt.Errorf("UI: unknown value %q", c.UI))
	}
	if c.GameName == "" {
		errs = append(errs, errors.New("GAME_NAME: must not be empty"))
	}
	if c.ReconnectMin > c.ReconnectMax {
		errs = append(errs, errors.New("RECONNECT_MIN: must not exceed RECONNECT_MAX"))
	}
	return c, errors.Join(errs...)
}

func LoadServer() (Server, error) {
	s, err := env.ParseAs[Server]()
	if err != nil {
		return s, err
	}

	games := s.Games[:0]
	for _, g := range s.Games {
		if g = strings.TrimSpace(g); g != "" {
			games = append(games, g)
		}
	}
	s.Games = games
	if s.PublicURL == "" {
		s.PublicURL = "http://localhost" + s.Addr
	}

	if len(s.Games) == 0 {
		return s, errors.New("GAMES: at least one game name is required")
	}
	return s, nil
}
