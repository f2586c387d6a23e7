// Command robobrain wires the Kernel/ReAct cognitive pipeline to a
// physics simulator, a durable checkpoint store, an LLM backend, and
// either an HTTP/WebSocket surface or a terminal CLI, depending on how
// it's invoked.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/go-logr/logr"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/corvid-robotics/robobrain/internal/config"
	"github.com/corvid-robotics/robobrain/internal/logging"
	"github.com/corvid-robotics/robobrain/pkg/checkpoint"
	"github.com/corvid-robotics/robobrain/pkg/kernel"
	"github.com/corvid-robotics/robobrain/pkg/llm"
	"github.com/corvid-robotics/robobrain/pkg/notify"
	"github.com/corvid-robotics/robobrain/pkg/orchestrator"
	"github.com/corvid-robotics/robobrain/pkg/react"
	"github.com/corvid-robotics/robobrain/pkg/skills"
	"github.com/corvid-robotics/robobrain/pkg/world"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	runCLI := flag.Bool("cli", false, "run the terminal CLI instead of the HTTP server")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "robobrain: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "robobrain: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sim := world.NewSimulator()
	go sim.Start(ctx)

	store, ledger, err := buildStores(cfg, log)
	if err != nil {
		log.Error(err, "failed to build checkpoint stores")
		os.Exit(1)
	}

	executor := skills.NewSimExecutor()

	client, err := buildLLMClient(ctx, cfg, log)
	if err != nil {
		log.Error(err, "failed to build LLM client")
		os.Exit(1)
	}

	kernelPipeline := kernel.NewDefaultPipeline(sim, sim)
	reactPipeline := react.NewDefaultPipeline(client, executor, ledger, executor)

	orch := orchestrator.New(kernelPipeline, reactPipeline, store, buildNotifier(log), log)
	orch.SkillRegistry = skills.DefaultRegistry()
	if cfg.Orchestrator.MaxIterations > 0 {
		orch.MaxIterations = cfg.Orchestrator.MaxIterations
	}

	if *runCLI {
		runTerminal(ctx, orch, sim)
		return
	}

	if err := runHTTP(ctx, cfg, orch, sim, log); err != nil {
		log.Error(err, "http server exited with an error")
		os.Exit(1)
	}
}

// buildStores assembles the durable checkpoint log and the idempotency
// ledger Dispatch (R6) checks before every physical effect. Postgres is
// used when a DSN is configured, an in-memory store otherwise; Redis
// fronts the ledger when configured, falling back to the durable store's
// own effect-log columns, or to the in-memory store itself when neither
// is configured (it satisfies pkg/react.IdempotencyLedger directly).
func buildStores(cfg *config.Config, log logr.Logger) (checkpoint.Store, react.IdempotencyLedger, error) {
	if cfg.Checkpoint.DSN == "" {
		mem := checkpoint.NewMemoryStore()
		if cfg.Checkpoint.RedisAddr != "" {
			redisClient := redis.NewClient(&redis.Options{Addr: cfg.Checkpoint.RedisAddr})
			return mem, checkpoint.NewRedisLedger(redisClient, mem, log), nil
		}
		return mem, mem, nil
	}

	db, err := sql.Open("pgx", cfg.Checkpoint.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := checkpoint.Migrate(db); err != nil {
		return nil, nil, fmt.Errorf("failed to migrate checkpoint schema: %w", err)
	}
	store := checkpoint.NewPostgresStore(sqlx.NewDb(db, "pgx"), log)

	if cfg.Checkpoint.RedisAddr == "" {
		return store, storeLedger{store}, nil
	}
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Checkpoint.RedisAddr})
	return store, checkpoint.NewRedisLedger(redisClient, store, log), nil
}

// storeLedger adapts checkpoint.Store's durable effect-log columns onto
// pkg/react.IdempotencyLedger's Seen/Record contract, for a Postgres
// deployment with no Redis front-cache configured.
type storeLedger struct {
	store checkpoint.Store
}

func (l storeLedger) Seen(ctx context.Context, effectID string) (bool, error) {
	return l.store.EffectExecuted(ctx, sessionFromEffectID(effectID), effectID)
}

func (l storeLedger) Record(ctx context.Context, effectID string) error {
	return l.store.MarkEffect(ctx, sessionFromEffectID(effectID), effectID)
}

// sessionFromEffectID recovers the session id from a Dispatch effect id,
// formatted "session:iter:op-index".
func sessionFromEffectID(effectID string) string {
	if i := strings.IndexByte(effectID, ':'); i >= 0 {
		return effectID[:i]
	}
	return effectID
}

// buildLLMClient wires both configured providers behind a RoutedClient so
// a Bedrock outage falls back to Anthropic direct and vice versa,
// regardless of which one the config names as primary.
func buildLLMClient(ctx context.Context, cfg *config.Config, log logr.Logger) (llm.Client, error) {
	anthropic := llm.NewAnthropicClientFromAPIKey(os.Getenv("ANTHROPIC_API_KEY"), cfg.LLM.Model, cfg.LLM.MaxTokens)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for bedrock: %w", err)
	}
	bedrock := llm.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg), cfg.LLM.Model, int32(cfg.LLM.MaxTokens))

	onStateChange := func(breaker, from, to string) {
		log.Info("llm circuit breaker state change", "breaker", breaker, "from", from, "to", to)
	}

	if cfg.LLM.Provider == "bedrock" {
		return llm.NewRoutedClient(bedrock, anthropic, onStateChange), nil
	}
	return llm.NewRoutedClient(anthropic, bedrock, onStateChange), nil
}

// buildNotifier wires a Slack approval notifier when a bot token and
// channel are configured in the environment; otherwise approvals still
// suspend the session, they just page no one.
func buildNotifier(log logr.Logger) notify.ApprovalNotifier {
	token := os.Getenv("SLACK_BOT_TOKEN")
	channel := os.Getenv("SLACK_CHANNEL")
	if token == "" || channel == "" {
		log.Info("no slack credentials configured, approval requests will not be delivered out of band")
		return nil
	}
	return notify.NewSlackNotifier(token, channel)
}
