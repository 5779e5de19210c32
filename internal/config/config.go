// internal/config/config.go
//
// This package handles configuration and the .casefile directory structure.
// Every project directory casefile runs in gets a .casefile/ folder.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// Dir is the name of the directory we create in each project
	Dir = ".casefile"

	defaultMaxAutoSteps = 15
	defaultLogLevel     = "info"
)

const defaultProjectConfigYAML = `# casefile project configuration
version: 1

# HTTP API. CASEFILE_SERVER_ENABLED, CASEFILE_HOST and CASEFILE_PORT override these.
server:
  enabled: true
  host: 127.0.0.1
  port: 5002
  allowed_origins:
    - "*"

# Cases live in memory. max_entries: 0 keeps every case until the process
# exits; a positive value evicts the least recently used case beyond that.
sessions:
  max_entries: 0

detective:
  max_auto_steps: 15

# debug, info, warn or error
logging:
  level: info
`

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Enabled        *bool    `yaml:"enabled,omitempty"`
	Host           string   `yaml:"host,omitempty"`
	Port           int      `yaml:"port,omitempty"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// SessionsConfig bounds the in-memory case store.
type SessionsConfig struct {
	MaxEntries int `yaml:"max_entries"`
}

// DetectiveConfig tunes the automated detective.
type DetectiveConfig struct {
	MaxAutoSteps int `yaml:"max_auto_steps"`
}

// LoggingConfig selects the minimum level written to the log file.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ProjectConfig models .casefile/config.yaml.
type ProjectConfig struct {
	Version   int             `yaml:"version"`
	Server    ServerConfig    `yaml:"server"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Detective DetectiveConfig `yaml:"detective"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Config holds the runtime configuration for casefile.
type Config struct {
	// ProjectDir is the directory casefile was started from
	ProjectDir string

	// CasefileDir is ProjectDir/.casefile
	CasefileDir string

	Project ProjectConfig
}

// InitDir creates the .casefile directory structure in the given project
// directory and writes a commented config.yaml when none exists.
//
// Structure created:
// .casefile/
// ├── config.yaml
// └── logs/
func InitDir(projectDir string) error {
	root := filepath.Join(projectDir, Dir)
	if err := os.MkdirAll(filepath.Join(root, "logs"), 0755); err != nil {
		return err
	}
	return ensureProjectConfig(filepath.Join(root, "config.yaml"))
}

// NewConfig loads ProjectDir/.env into the environment (without overriding
// variables already set) and then reads .casefile/config.yaml. A missing
// config file yields the defaults.
func NewConfig(projectDir string) (*Config, error) {
	if err := loadDotEnv(filepath.Join(projectDir, ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{
		ProjectDir:  projectDir,
		CasefileDir: filepath.Join(projectDir, Dir),
		Project:     defaultProjectConfig(),
	}

	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.CasefileDir, "logs")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.CasefileDir, "config.yaml")
}

// MaxSessions returns the case store capacity; 0 means unbounded.
func (c *Config) MaxSessions() int {
	return c.Project.Sessions.MaxEntries
}

// MaxAutoSteps returns the detective's auto-solve cap.
func (c *Config) MaxAutoSteps() int {
	return c.Project.Detective.MaxAutoSteps
}

// LogLevel returns the configured minimum log level.
func (c *Config) LogLevel() string {
	return c.Project.Logging.Level
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	pc := ProjectConfig{}
	pc.applyDefaults()
	return pc
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if pc.Detective.MaxAutoSteps == 0 {
		pc.Detective.MaxAutoSteps = defaultMaxAutoSteps
	}
	if strings.TrimSpace(pc.Logging.Level) == "" {
		pc.Logging.Level = defaultLogLevel
	}
	if len(pc.Server.AllowedOrigins) == 0 {
		pc.Server.AllowedOrigins = []string{"*"}
	}
}

func (pc *ProjectConfig) normalize() {
	pc.Server.Host = strings.TrimSpace(pc.Server.Host)
	origins := pc.Server.AllowedOrigins[:0]
	for _, origin := range pc.Server.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" && !contains(origins, trimmed) {
			origins = append(origins, trimmed)
		}
	}
	pc.Server.AllowedOrigins = origins
	pc.Logging.Level = strings.ToLower(strings.TrimSpace(pc.Logging.Level))
	if pc.Logging.Level == "warning" {
		pc.Logging.Level = "warn"
	}
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if pc.Server.Port != 0 && (pc.Server.Port < 1 || pc.Server.Port > 65535) {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if len(pc.Server.AllowedOrigins) == 0 {
		return fmt.Errorf("server.allowed_origins must not be empty")
	}
	if pc.Sessions.MaxEntries < 0 {
		return fmt.Errorf("sessions.max_entries must be >= 0")
	}
	if pc.Detective.MaxAutoSteps < 1 {
		return fmt.Errorf("detective.max_auto_steps must be >= 1")
	}
	switch pc.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	return nil
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return true
		}
	}
	return false
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0644)
}
