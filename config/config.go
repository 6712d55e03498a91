package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danielpaulus/go-rspstub/rsp"
	log "github.com/sirupsen/logrus"
)

const (
	EnvPort       = "RSP_PORT"
	EnvService    = "RSP_SERVICE"
	EnvHost       = "RSP_HOST"
	EnvPacketSize = "RSP_PACKET_SIZE"
	EnvLogLevel   = "RSP_LOG_LEVEL"
	EnvJSONLogs   = "RSP_JSON_LOGS"
)

// DefaultPort is the port or1ksim and friends have traditionally used for RSP.
const DefaultPort = 51000

// Config holds everything the stub needs before it starts listening.
// Port 0 means the port is looked up from Service.
type Config struct {
	Port       int    `toml:"port"`
	Service    string `toml:"service"`
	Host       string `toml:"host"`
	PacketSize int    `toml:"packet_size"`
	LogLevel   string `toml:"log_level"`
	JSONLogs   bool   `toml:"json_logs"`
}

// Default returns the built in configuration.
func Default() Config {
	return Config{
		Port:       DefaultPort,
		Service:    rsp.DefaultService,
		PacketSize: rsp.DefaultPacketSize,
		LogLevel:   "info",
		JSONLogs:   true,
	}
}

// Load reads the TOML file at path on top of the defaults and then applies environment
// overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		meta, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
		}
		for _, key := range meta.Undecoded() {
			log.WithField("key", key.String()).Warnf("unknown key in %s", path)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.Port == 0 && strings.TrimSpace(c.Service) == "" {
		return fmt.Errorf("config: either port or service is required")
	}
	if c.PacketSize < 2 {
		return fmt.Errorf("config: packet_size must be at least 2, got %d", c.PacketSize)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Level returns the configured log level. Validate has already rejected bad values.
func (c Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// applyEnv overrides cfg from RSP_* variables. A service given without a port means the
// port is looked up from it, like --service on the command line.
func applyEnv(cfg *Config) error {
	if v, ok := lookupEnv(EnvService); ok {
		cfg.Service = v
		cfg.Port = 0
	}
	if v, ok := lookupEnv(EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid %s=%q: %w", EnvPort, v, err)
		}
		cfg.Port = port
	}
	if v, ok := lookupEnv(EnvHost); ok {
		cfg.Host = v
	}
	if v, ok := lookupEnv(EnvPacketSize); ok {
		size, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid %s=%q: %w", EnvPacketSize, v, err)
		}
		cfg.PacketSize = size
	}
	if v, ok := lookupEnv(EnvLogLevel); ok {
		cfg.LogLevel = v
	}
	if v, ok := lookupEnv(EnvJSONLogs); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: invalid %s=%q: %w", EnvJSONLogs, v, err)
		}
		cfg.JSONLogs = b
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}
