package main

import (
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/heatpump-ir/db"
	"github.com/thatsimonsguy/heatpump-ir/internal/api"
	"github.com/thatsimonsguy/heatpump-ir/internal/config"
	"github.com/thatsimonsguy/heatpump-ir/internal/datadog"
	"github.com/thatsimonsguy/heatpump-ir/internal/env"
	"github.com/thatsimonsguy/heatpump-ir/internal/lirc"
	"github.com/thatsimonsguy/heatpump-ir/internal/logging"
	"github.com/thatsimonsguy/heatpump-ir/internal/protocol"
	"github.com/thatsimonsguy/heatpump-ir/internal/receiver"
	"github.com/thatsimonsguy/heatpump-ir/internal/state"
)

func main() {
	cfg := config.Load()
	env.Cfg = cfg
	logging.Init(cfg.LogLevel, cfg.LogFile)
	datadog.InitMetrics()

	log.Info().
		Str("lirc_path", cfg.LircPath).
		Int("listen_port", cfg.ListenPort).
		Msg("Starting heat pump IR bridge")

	var conn *sql.DB
	initial := protocol.NewOperatingState()
	if cfg.DBPath != "" {
		var err error
		conn, err = db.Open(cfg.DBPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open state database")
		}
		defer conn.Close()

		loaded, err := db.LoadState(conn)
		switch {
		case err == sql.ErrNoRows:
			log.Info().Msg("No persisted state, starting with defaults")
		case err != nil:
			log.Warn().Err(err).Msg("Failed to load persisted state, starting with defaults")
		default:
			initial = loaded
			log.Info().Str("state", initial.String()).Msg("Restored persisted state")
		}
	}

	manager := state.NewManager(initial)

	device, err := lirc.Open(cfg.LircPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.LircPath).Msg("Failed to open lirc device")
	}
	defer device.Close()

	if conn != nil {
		go persistLoop(manager, conn)
	}

	// Frames overheard from the handheld remote keep the state in sync.
	rcv := receiver.New(device, time.Duration(cfg.ReceiveIdleMS)*time.Millisecond,
		func(f protocol.Frame) {
			err := manager.Update(func(st *protocol.OperatingState) error {
				return protocol.Apply(f, st)
			})
			if err != nil {
				log.Warn().Err(err).Msg("Decoded frame failed validation")
			}
		})

	stop := make(chan struct{})
	go func() {
		if err := rcv.Run(stop); err != nil {
			log.Fatal().Err(err).Msg("Receiver failed")
		}
	}()

	server := api.NewServer(manager, device, cfg)
	go func() {
		if err := server.Start(cfg.ListenPort); err != nil {
			log.Fatal().Err(err).Msg("API server failed")
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	log.Info().Str("signal", sig.String()).Msg("Shutting down")

	close(stop)
	if conn != nil {
		if err := db.SaveState(conn, manager.Current()); err != nil {
			log.Error().Err(err).Msg("Failed to persist final state")
		}
	}
}

// persistLoop writes every committed state change back to the database so a
// restart resumes where the unit was left.
func persistLoop(manager *state.Manager, conn *sql.DB) {
	sub := manager.Subscribe()
	defer manager.Unsubscribe(sub)

	for range sub {
		if err := db.SaveState(conn, manager.Current()); err != nil {
			log.Error().Err(err).Msg("Failed to persist state")
		}
	}
}
