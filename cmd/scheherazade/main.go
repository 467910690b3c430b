package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ent0n29/scheherazade/internal/config"
	"github.com/ent0n29/scheherazade/internal/engine"
	"github.com/ent0n29/scheherazade/internal/extract"
	"github.com/ent0n29/scheherazade/internal/httpapi"
	"github.com/ent0n29/scheherazade/internal/observability"
	"github.com/ent0n29/scheherazade/internal/project"
	"github.com/ent0n29/scheherazade/internal/synth"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := project.NewStore(ctx, cfg.DatabaseURL, cfg.ProjectsDir)
	if err != nil {
		log.Fatalf("project store init failed: %v", err)
	}
	defer store.Close()

	var (
		synthesizer synth.Synthesizer
		styles      synth.StyleProvider
	)

	tryKokoro := func(fatal bool) bool {
		w, err := synth.NewKokoroWorker(synth.KokoroConfig{
			Python:       cfg.KokoroPython,
			WorkerScript: cfg.KokoroWorkerScript,
			LangCode:     cfg.KokoroLangCode,
		})
		if err != nil {
			if fatal {
				log.Fatalf("kokoro worker init failed: %v", err)
			}
			log.Printf("kokoro worker unavailable: %v", err)
			return false
		}
		synthesizer = w
		styles = w
		log.Printf("synth provider: kokoro")
		return true
	}
	useMock := func() {
		m := synth.NewMock()
		synthesizer = m
		styles = m
		log.Printf("synth provider: mock")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.SynthProvider)) {
	case "kokoro":
		tryKokoro(true)
	case "mock":
		useMock()
	default: // auto
		if !tryKokoro(false) {
			useMock()
		}
	}
	defer synthesizer.Close()

	eng := engine.New(store, synthesizer, styles, metrics, engine.Config{
		ProjectsDir:      cfg.ProjectsDir,
		DefaultVoice:     cfg.KokoroDefaultVoice,
		ChunkTarget:      cfg.ChunkTargetChars,
		FirstChunkTarget: cfg.FirstChunkTargetChars,
		MaxSynthChars:    cfg.SynthMaxChars,
		SynthTimeout:     cfg.SynthTimeout,
	})

	api := httpapi.New(cfg, eng, extract.NewRegistry(), metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	if cfg.BackgroundProcess {
		go eng.RunBackground(runCtx, 2*time.Second)
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
