package server

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kingrea/casefile/internal/config"
)

const (
	// DefaultHost keeps the API on loopback unless configured otherwise.
	DefaultHost = "127.0.0.1"
	// DefaultPort is the port the browser client expects.
	DefaultPort = 5002
	// DefaultMaxBodyBytes caps request bodies. The largest valid request, an
	// accusation, is well under 1 KB.
	DefaultMaxBodyBytes int64 = 64 << 10
)

// Settings captures runtime configuration for the HTTP API.
type Settings struct {
	Enabled      bool
	Host         string
	Port         int
	CORS         CORS
	MaxBodyBytes int64
	Timeouts     Timeouts
}

// CORS lists the origins allowed to call /api routes from a browser. "*"
// allows any origin.
type CORS struct {
	Origins []string
}

// Timeouts bound the connection phases of the HTTP server. Zero values take
// the defaults.
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
	Idle  time.Duration
}

var defaultTimeouts = Timeouts{Read: 15 * time.Second, Write: 15 * time.Second, Idle: 60 * time.Second}

// SettingsFromConfig layers the project's server block and then the
// CASEFILE_* environment over the defaults.
func SettingsFromConfig(cfg *config.Config) Settings {
	s := Settings{Enabled: true, Port: DefaultPort}
	if cfg != nil {
		project := cfg.Project.Server
		if project.Enabled != nil {
			s.Enabled = *project.Enabled
		}
		s.Host = project.Host
		if project.Port > 0 {
			s.Port = project.Port
		}
		s.CORS.Origins = append([]string(nil), project.AllowedOrigins...)
	}
	if enabled, ok := envBool("CASEFILE_SERVER_ENABLED"); ok {
		s.Enabled = enabled
	}
	if host, ok := envString("CASEFILE_HOST"); ok {
		s.Host = host
	}
	if port, ok := envPort("CASEFILE_PORT"); ok {
		s.Port = port
	}
	s.normalize()
	return s
}

// normalize fills every unset field. Port 0 is kept so tests can bind an
// ephemeral port.
func (s *Settings) normalize() {
	s.Host = strings.TrimSpace(s.Host)
	if s.Host == "" {
		s.Host = DefaultHost
	}
	if s.Port < 0 || s.Port > 65535 {
		s.Port = DefaultPort
	}
	s.CORS.normalize()
	if s.MaxBodyBytes <= 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if s.Timeouts.Read <= 0 {
		s.Timeouts.Read = defaultTimeouts.Read
	}
	if s.Timeouts.Write <= 0 {
		s.Timeouts.Write = defaultTimeouts.Write
	}
	if s.Timeouts.Idle <= 0 {
		s.Timeouts.Idle = defaultTimeouts.Idle
	}
}

// Address returns the TCP bind address in host:port form.
func (s Settings) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// URL returns the HTTP base URL for the server.
func (s Settings) URL() string {
	return "http://" + s.Address()
}

func (c *CORS) normalize() {
	seen := make(map[string]bool, len(c.Origins))
	origins := c.Origins[:0:0]
	for _, origin := range c.Origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" || seen[strings.ToLower(origin)] {
			continue
		}
		seen[strings.ToLower(origin)] = true
		origins = append(origins, origin)
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c.Origins = origins
}

// allow returns the Access-Control-Allow-Origin value for origin, or "" when
// the origin may not call the API.
func (c CORS) allow(origin string) string {
	for _, allowed := range c.Origins {
		if allowed == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// apply writes the CORS response headers for r.
func (c CORS) apply(h http.Header, r *http.Request) {
	allowed := c.allow(r.Header.Get("Origin"))
	if allowed == "" {
		return
	}
	h.Set("Access-Control-Allow-Origin", allowed)
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
	if allowed != "*" {
		h.Add("Vary", "Origin")
	}
}

func envString(key string) (string, bool) {
	value := strings.TrimSpace(os.Getenv(key))
	return value, value != ""
}

func envBool(key string) (bool, bool) {
	value, ok := envString(key)
	if !ok {
		return false, false
	}
	parsed, err := strconv.ParseBool(value)
	return parsed, err == nil
}

func envPort(key string) (int, bool) {
	value, ok := envString(key)
	if !ok {
		return 0, false
	}
	port, err := strconv.Atoi(value)
	if err != nil || port <= 0 || port > 65535 {
		return 0, false
	}
	return port, true
}
