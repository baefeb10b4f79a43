package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/nightline/internal/classifier"
	"github.com/sells-group/nightline/internal/config"
	"github.com/sells-group/nightline/internal/engine"
	"github.com/sells-group/nightline/internal/store"
	"github.com/sells-group/nightline/pkg/anthropic"
	"github.com/sells-group/nightline/pkg/vapi"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "nightline.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initVapi() (vapi.Client, error) {
	if cfg.Vapi.Key == "" {
		return nil, eris.New("vapi API key is required (NIGHTLINE_VAPI_KEY)")
	}
	return vapi.NewClient(cfg.Vapi.Key,
		vapi.WithBaseURL(cfg.Vapi.BaseURL),
		vapi.WithRateLimit(cfg.Vapi.RateLimitRPS),
	), nil
}

// initClassifier builds the classifier for the configured mode. A missing
// Anthropic key downgrades to the heuristic tiers rather than failing; the
// audit can still run, just without semantic classification.
func initClassifier() *classifier.Classifier {
	mode := classifier.Mode(cfg.Audit.Classifier)
	var ai anthropic.Client
	if cfg.Anthropic.Key != "" {
		ai = anthropic.NewClient(cfg.Anthropic.Key)
	}
	return classifier.New(mode, ai, cfg.Anthropic.Model)
}

// initEngine wires the full audit engine: provider client, assistant,
// classifier, and store. The caller owns the returned store's lifecycle.
func initEngine(ctx context.Context, st store.Store) (*engine.Engine, error) {
	client, err := initVapi()
	if err != nil {
		return nil, err
	}
	if cfg.Vapi.PhoneNumberID == "" {
		return nil, eris.New("vapi phone number ID is required (NIGHTLINE_VAPI_PHONE_NUMBER_ID)")
	}

	assistantID := cfg.Vapi.AssistantID
	if assistantID == "" {
		assistantID, err = vapi.EnsureAssistant(ctx, client, cfg.Vapi.AssistantName)
		if err != nil {
			return nil, eris.Wrap(err, "bootstrap assistant")
		}
	}

	dispatcher := engine.NewDispatcher(client, cfg.Vapi.PhoneNumberID, assistantID, cfg.Audit.MaxDispatchAttempts)
	poller := engine.NewPoller(client,
		cfg.Audit.Ceiling(),
		time.Duration(cfg.Audit.PollFastSeconds)*time.Second,
		time.Duration(cfg.Audit.PollSteadySeconds)*time.Second,
		time.Duration(cfg.Audit.PollFastWindowSecs)*time.Second,
	)

	return engine.New(dispatcher, poller, initClassifier(), st, cfg.Audit), nil
}

func initExportDir() string {
	if cfg.Export.Dir != "" {
		return cfg.Export.Dir
	}
	return config.Defaults()["export.dir"].(string)
}
