package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Scrimzay/livebattle/internal/config"
	"github.com/Scrimzay/livebattle/internal/live"
	"github.com/Scrimzay/livebattle/internal/server"
	"github.com/Scrimzay/livebattle/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadEnv(); err != nil {
		return err
	}

	cfg, err := config.Load(config.Path())
	if err != nil {
		return err
	}

	log, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	mode := "development"
	if cfg.Logging.Format == "json" {
		mode = "production"
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info("=== STARTING LIVE BATTLE ===",
		zap.String("port", cfg.Server.Port),
		zap.String("mode", mode))

	seed := cfg.Sim.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	log.Info("rng seeded", zap.Int64("seed", seed))

	gameWorld := world.New(cfg.WorldRules(), log, rng)

	gifts := live.DefaultGiftTable()
	if cfg.Live.GiftTable != "" {
		gifts, err = live.LoadGiftTable(cfg.Live.GiftTable)
		if err != nil {
			return err
		}
	}
	log.Info("gift table loaded", zap.Int("gifts", gifts.Count()))

	keywords, err := live.NewKeywordMatcher(cfg.Teams.A.Keywords, cfg.Teams.B.Keywords)
	if err != nil {
		return err
	}

	dispatcher := live.NewDispatcher(gameWorld, log, live.Options{
		Gifts:         gifts,
		Keywords:      keywords,
		TeamNames:     [2]string{cfg.Teams.A.Name, cfg.Teams.B.Name},
		LikesPerSpawn: cfg.Live.LikesPerSpawn,
		Rng:           rand.New(rand.NewSource(rng.Int63())),
	})

	broadcaster := world.NewBroadcaster(gameWorld, log, world.BroadcasterOptions{
		TickRate:      cfg.Sim.TickRate,
		BroadcastRate: cfg.Sim.BroadcastRate,
		MaxStep:       cfg.Sim.MaxStep,
		WriteTimeout:  cfg.Sim.WriteTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go broadcaster.Run(ctx)

	if cfg.Server.AutoStart {
		gameWorld.StartRound()
	}

	relay := server.NewRelay(broadcaster, dispatcher, log)
	r := server.SetupRouter(broadcaster, gameWorld, relay, server.Options{
		Log:          log,
		ClientOrigin: cfg.Server.ClientOrigin,
		StaticDir:    cfg.Server.StaticDir,
		Username:     cfg.Live.Username,
		Mode:         mode,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}

	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
