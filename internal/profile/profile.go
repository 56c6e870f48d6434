package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

const (
	// DefaultMaxSteps bounds the number of model steps in a single turn.
	DefaultMaxSteps = 8

	devSecret = "flightdesk-dev-secret"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where the database is stored
	DSN string
	// Driver is the database driver
	// sqlite, mysql, postgres
	Driver string
	// Version is the current version of server
	Version string
	// Secret signs and verifies access tokens.
	Secret string

	// AIBaseURL is an OpenAI-compatible endpoint (OpenRouter by default).
	AIBaseURL string
	AIAPIKey  string
	AIModel   string
	// EmbeddingModel enables transcript search when set.
	EmbeddingModel string
	// MaxSteps caps model steps per turn.
	MaxSteps int

	OpenWeatherMapAPIKey string
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIConfigured reports whether the chat endpoint can reach a model.
func (p *Profile) IsAIConfigured() bool {
	return p.AIAPIKey != "" && p.AIModel != ""
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

// Validate fills defaults and makes sure the data directory is usable.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "flightdesk")
		} else {
			p.Data = "/var/opt/flightdesk"
		}
	}
	if p.Data == "" {
		p.Data = "."
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver == "sqlite" && p.DSN == "" {
		p.DSN = filepath.Join(dataDir, fmt.Sprintf("flightdesk_%s.db", p.Mode))
	}

	if p.Secret == "" {
		if p.Mode == "prod" {
			return errors.New("secret is required in prod mode")
		}
		p.Secret = devSecret
	}
	if p.MaxSteps <= 0 {
		p.MaxSteps = DefaultMaxSteps
	}
	return nil
}
