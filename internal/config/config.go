package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

type Config struct {
	ConfigFile string
	LogLevel   zerolog.Level

	LircPath      string `json:"lirc_path"`
	ListenPort    int    `json:"listen_port"`
	DBPath        string `json:"db_path"` // empty disables persistence
	LogFile       string `json:"log_file"`
	ReceiveIdleMS int    `json:"receive_idle_ms"`

	EnableDatadog bool     `json:"enable_datadog"`
	DDAgentAddr   string   `json:"dd_agent_addr"`
	DDNamespace   string   `json:"dd_namespace"`
	DDTags        []string `json:"dd_tags"`
}

func Load() *Config {
	var cfg Config
	var logLevel string

	flag.StringVar(&cfg.ConfigFile, "config-file", "config.json", "Path to controller config file")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	cfg.LogLevel = parseLogLevel(logLevel)

	file, err := os.Open(cfg.ConfigFile)
	if err != nil {
		panic("Failed to load config file: " + err.Error())
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		panic("Failed to parse config file: " + err.Error())
	}

	cfg.applyDefaults()
	cfg.validate()
	return &cfg
}

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.LircPath == "" {
		cfg.LircPath = "/dev/lirc0"
	}
	if cfg.ListenPort == 0 {
		cfg.ListenPort = 8080
	}
	if cfg.ReceiveIdleMS == 0 {
		cfg.ReceiveIdleMS = 100
	}
	if cfg.DDNamespace == "" {
		cfg.DDNamespace = "heatpump_ir."
	}
}

func (cfg *Config) validate() {
	if cfg.ListenPort < 1 || cfg.ListenPort > 65535 {
		panic(fmt.Sprintf("Invalid listen_port: %d", cfg.ListenPort))
	}
	// Below 10ms the idle flush races the transceiver's own inter-pulse
	// gaps and shreds transmissions into undecodable windows.
	if cfg.ReceiveIdleMS < 10 {
		panic(fmt.Sprintf("receive_idle_ms %d is below the 10ms floor", cfg.ReceiveIdleMS))
	}
}
