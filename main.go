package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/Chative-Drift-Guard/agent/agents/classifier"
	"github.com/tanpawarit/Chative-Drift-Guard/agent/agents/guard"
	"github.com/tanpawarit/Chative-Drift-Guard/agent/audit"
	contractx "github.com/tanpawarit/Chative-Drift-Guard/agent/contract"
	llmx "github.com/tanpawarit/Chative-Drift-Guard/agent/llm"
	"github.com/tanpawarit/Chative-Drift-Guard/agent/metrics"
	statex "github.com/tanpawarit/Chative-Drift-Guard/agent/state"
	configx "github.com/tanpawarit/Chative-Drift-Guard/pkg/config"
	_ "github.com/tanpawarit/Chative-Drift-Guard/pkg/logger/autoload"
	openrouterx "github.com/tanpawarit/Chative-Drift-Guard/pkg/openrouter"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	trackerCfg := configx.MustNew[statex.TrackerConfig]("GUARD")
	auditCfg := configx.MustNew[audit.Config]("AUDIT")
	classifierCfg := configx.MustNew[llmx.Config]("CLASSIFIER")

	sink, err := audit.Open(ctx, *auditCfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", auditCfg.Driver).Msg("failed to open audit sink")
	}
	if sink != nil {
		defer sink.Close()
	}

	collector, err := metrics.NewCollector(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register metrics")
	}

	cfg := guard.Config{
		Tracker:   *trackerCfg,
		Observers: []contractx.TurnObserver{collector},
	}
	if classifierCfg.Enabled {
		cfg.Classifier = mustClassifier(ctx, *classifierCfg)
	}

	g, err := guard.New(statex.NewMemoryStore(), sink, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build guard")
	}

	log.Info().
		Str("audit_driver", auditCfg.Driver).
		Bool("classifier", cfg.Classifier != nil).
		Int("max_topics", trackerCfg.MaxTopics).
		Msg("drift guard ready")

	if err := g.ServeLines(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("turn loop stopped")
	}
}

func mustClassifier(ctx context.Context, cfg llmx.Config) contractx.IntentClassifier {
	client := openrouterx.NewClient(cfg.OpenRouter())
	if client == nil {
		log.Fatal().Msg("failed to initialize openrouter client")
	}
	if err := openrouterx.CheckModel(ctx, client, cfg.Model); err != nil {
		log.Fatal().Err(err).Str("model", cfg.Model).Msg("classifier model unavailable")
	}

	c, err := classifier.NewFromConfig(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build classifier")
	}
	return c
}
