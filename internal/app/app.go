package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"

	"ideabot/internal/collector"
	"ideabot/internal/config"
	"ideabot/internal/evaluator"
	"ideabot/internal/llm"
	llmclient "ideabot/internal/llm/client"
	"ideabot/internal/prompts"
	"ideabot/internal/schema"
	"ideabot/internal/server"
	"ideabot/internal/transport/discord"
	"ideabot/internal/transport/httpchat"
)

// App owns the evaluator, the collector and whichever transports are enabled.
type App struct {
	log       *log.Logger
	llm       llmclient.LLMClient
	eval      *evaluator.Client
	settings  collector.Settings
	collector *collector.Collector
	discord   *discord.Service
	server    *server.Server
}

// NewEvaluator builds the structured request client described by cfg.
func NewEvaluator(ctx context.Context, cfg *config.Config, logger *log.Logger) (*evaluator.Client, llmclient.LLMClient, error) {
	var cli llmclient.LLMClient
	if cfg.LLM.Fake {
		cli = llmclient.NewFakeClient()
	} else {
		g, err := llmclient.NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		cli = g
	}
	cli = llm.Wrap(cli, llm.WithLogging(logger))
	eval := evaluator.New(cli,
		evaluator.WithCallTimeout(cfg.LLM.CallTimeout),
		evaluator.WithLogger(logger),
	)
	return eval, cli, nil
}

// SettingsFor resolves the rubric named in cfg.
func SettingsFor(cfg *config.Config) (collector.Settings, error) {
	s, ok := schema.Lookup(cfg.Rubric.Schema)
	if !ok {
		return collector.Settings{}, fmt.Errorf("unknown schema %q", cfg.Rubric.Schema)
	}
	tmpl, ok := prompts.Lookup(cfg.Rubric.Template)
	if !ok {
		return collector.Settings{}, fmt.Errorf("unknown template %q", cfg.Rubric.Template)
	}
	return collector.Settings{
		Model:        cfg.LLM.Model,
		SystemPrompt: prompts.SystemPrompt,
		Template:     tmpl,
		Schema:       s,
		Timeout:      cfg.LLM.Timeout,
	}, nil
}

func New(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Default()
	}
	if !cfg.Discord.Enabled() && !cfg.HTTP.Enabled {
		return nil, errors.New("no transport enabled: set DISCORD_BOT_TOKEN or HTTP_ENABLED")
	}
	settings, err := SettingsFor(cfg)
	if err != nil {
		return nil, err
	}
	strategy, ok := collector.StrategyByName(cfg.Collector.Mode)
	if !ok {
		return nil, fmt.Errorf("unknown collector mode %q", cfg.Collector.Mode)
	}

	eval, cli, err := NewEvaluator(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	store := collector.NewStore(cfg.Collector.SessionCapacity, cfg.Collector.SessionIdleTTL)
	coll := collector.New(eval, strategy, settings, store, logger)

	a := &App{
		log:       logger,
		llm:       cli,
		eval:      eval,
		settings:  settings,
		collector: coll,
	}
	if cfg.Discord.Enabled() {
		svc, err := discord.New(cfg.Discord.Token, cfg.Discord.Prefix, coll, logger)
		if err != nil {
			_ = cli.Close()
			return nil, fmt.Errorf("failed to create discord service: %w", err)
		}
		a.discord = svc
	}
	if cfg.HTTP.Enabled {
		h := httpchat.New(coll, cfg.HTTP.AllowedOrigins, logger)
		a.server = server.New(cfg.HTTP.Port, h.Routes(), logger)
	}
	logger.Printf("ideabot ready: model=%s schema=%s mode=%s llm=%s", settings.Model, settings.Schema.Name, strategy.Name, cli.Name())
	return a, nil
}

func (a *App) Collector() *collector.Collector { return a.collector }

// Evaluate runs idea through the app's evaluator outside any chat session.
func (a *App) Evaluate(ctx context.Context, idea string) (schema.Record, error) {
	return Evaluate(ctx, a.eval, a.settings, idea)
}

// Start connects the Discord bot, then serves HTTP until shutdown. Without
// an HTTP server it returns once the bot is connected.
func (a *App) Start() error {
	if a.discord != nil {
		if err := a.discord.Start(); err != nil {
			return err
		}
	}
	if a.server != nil {
		return a.server.Start()
	}
	return nil
}

// Addr reports the HTTP listener address once it is bound.
func (a *App) Addr(ctx context.Context) (net.Addr, error) {
	if a.server == nil {
		return nil, errors.New("http server disabled")
	}
	return a.server.Addr(ctx)
}

func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.server != nil {
		errs = append(errs, a.server.Shutdown(ctx))
	}
	if a.discord != nil {
		errs = append(errs, a.discord.Stop())
	}
	errs = append(errs, a.llm.Close())
	return errors.Join(errs...)
}

// Evaluate runs one idea description through the configured rubric.
func Evaluate(ctx context.Context, eval collector.Evaluator, settings collector.Settings, idea string) (schema.Record, error) {
	return eval.Evaluate(ctx, settings.Request(idea))
}
