package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"lawgpt/internal/ai"
	"lawgpt/internal/answer"
	"lawgpt/internal/app"
	"lawgpt/internal/cache"
	"lawgpt/internal/config"
	"lawgpt/internal/model"
	mysqlClient "lawgpt/internal/platform/mysql"
	postgresClient "lawgpt/internal/platform/postgres"
	rabbitmqClient "lawgpt/internal/platform/rabbitmq"
	redisClient "lawgpt/internal/platform/redis"
	"lawgpt/internal/pkg/retry"
	"lawgpt/internal/repository"
	"lawgpt/internal/retrieval"
	"lawgpt/internal/storage"
	"lawgpt/internal/store"
	"lawgpt/internal/vectorindex"
	"lawgpt/internal/worker"
)

// LLM is the provider surface the pipeline and ingestion share.
type LLM interface {
	retrieval.Completer
	retrieval.Embedder
	app.BatchEmbedder
}

type App struct {
	Config   *config.Config
	MySQL    *gorm.DB
	Postgres *pgxpool.Pool
	Redis    *redis.Client
	MQConn   *amqp.Connection

	Corpus store.Corpus
	// Index is nil unless the memory vector backend is in use.
	Index     *vectorindex.Index
	Reloader  store.Reloader
	Files     storage.Storage
	QueryLogs *repository.QueryLogRepository
	Operators *repository.OperatorRepository

	Legal   *app.LegalService
	Ingest  *app.IngestService
	Auth    *app.AuthService
	Records *app.RecordsService

	QueryLogWorker *worker.QueryLogWorker

	publisher *rabbitmqClient.QueryLogPublisher
	llmClose  func() error

	StartedAt time.Time
}

type options struct {
	workers bool
}

type Option func(*options)

// WithoutWorkers skips the queue consumers; one-shot CLI commands use it.
func WithoutWorkers() Option {
	return func(o *options) { o.workers = false }
}

// New connects every backing service and wires the services on top. On
// error whatever was already opened is closed.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (_ *App, err error) {
	o := options{workers: true}
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{Config: cfg, StartedAt: time.Now()}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.MySQL, err = mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlClient.Migrate(ctx, a.MySQL); err != nil {
		return nil, err
	}

	llm, err := a.newLLM(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.newCorpus(ctx); err != nil {
		return nil, err
	}

	a.Files, err = storage.New(ctx, storage.Config{
		Type:         storage.Type(cfg.Storage.Type),
		LocalPath:    cfg.Storage.LocalPath,
		S3Bucket:     cfg.Storage.S3Bucket,
		S3Region:     cfg.Storage.S3Region,
		AWSAccessKey: cfg.Storage.AWSAccessKey,
		AWSSecretKey: cfg.Storage.AWSSecretKey,
	})
	if err != nil {
		return nil, err
	}

	prefs, err := a.newPreferences(ctx)
	if err != nil {
		return nil, err
	}
	a.QueryLogs = repository.NewQueryLogRepository(a.MySQL)
	auditor, err := a.newAuditor(ctx, o.workers)
	if err != nil {
		return nil, err
	}

	policy := retry.Policy{
		Attempts:  cfg.Retrieval.RetryAttempts,
		BaseDelay: cfg.RetryBaseDelay(),
		MaxDelay:  30 * time.Second,
	}
	structural := retrieval.NewStructuralLookup(a.Corpus)
	semantic := retrieval.NewSemanticRetriever(a.Corpus, llm, retrieval.NewReranker(llm, policy), retrieval.SemanticConfig{
		TopK:        cfg.Retrieval.TopK,
		MaxDistance: cfg.Retrieval.MaxDistance,
		MaxResults:  cfg.Retrieval.MaxResults,
		Retry:       policy,
	})

	statRepo := repository.NewJudicialStatRepository(a.MySQL)
	caseRepo := repository.NewCaseRecordRepository(a.MySQL)

	a.Legal = app.NewLegalService(structural, semantic, llm,
		app.WithCaseLookup(answer.NewCaseAnswerer(caseRepo)),
		app.WithStatsLookup(answer.NewStatsAnswerer(statRepo, cfg.Stats.Locale)),
		app.WithPreferences(prefs),
		app.WithAuditor(auditor),
		app.WithAssembler(retrieval.NewAssembler(cfg.Retrieval.ItemCharLimit)),
		app.WithAnswerRetry(policy),
		app.WithContextBudget(cfg.Retrieval.ContextCharBudget),
		app.WithMaxAnswerTokens(cfg.LLM.MaxAnswerTokens),
	)
	a.Ingest = app.NewIngestService(a.Files, a.Corpus, llm, policy)
	a.Operators = repository.NewOperatorRepository(a.MySQL)
	a.Auth = app.NewAuthService(
		a.Operators,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
	)
	a.Records = app.NewRecordsService(statRepo, caseRepo)
	return a, nil
}

func (a *App) newLLM(ctx context.Context) (LLM, error) {
	cfg := a.Config
	switch cfg.LLM.Provider {
	case "gemini":
		client, err := ai.NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.EmbeddingModel)
		if err != nil {
			return nil, err
		}
		a.llmClose = client.Close
		return client, nil
	case "openai", "":
		return ai.NewOpenAICompatibleClient(
			ai.ChatConfig{BaseURL: cfg.LLM.BaseURL, APIKey: cfg.LLM.APIKey, Model: cfg.LLM.Model},
			ai.EmbeddingConfig{
				BaseURL:    cfg.LLM.BaseURL,
				APIKey:     cfg.LLM.APIKey,
				Model:      cfg.LLM.EmbeddingModel,
				Dimensions: cfg.LLM.EmbeddingDimensions,
			},
			cfg.LLMTimeout(),
		), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLM.Provider)
	}
}

func (a *App) newCorpus(ctx context.Context) error {
	cfg := a.Config
	switch cfg.Retrieval.VectorBackend {
	case "pgvector":
		pool, err := postgresClient.New(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
		if err != nil {
			return err
		}
		a.Postgres = pool
		repo := repository.NewPgvectorDocumentRepository(pool, cfg.LLM.EmbeddingDimensions)
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		a.Corpus = repo
		return nil
	case "memory", "":
		a.Index = vectorindex.New(cfg.LLM.EmbeddingDimensions)
		corpus := store.NewMySQLCorpus(repository.NewLegalDocumentRepository(a.MySQL), a.Index)
		n, err := corpus.Reload(ctx)
		if err != nil {
			return err
		}
		slog.Info("vector index loaded", slog.Int("documents", n), slog.Int("dimensions", a.Index.Dimensions()))
		a.Corpus = corpus
		a.Reloader = corpus
		return nil
	default:
		return fmt.Errorf("unknown vector backend: %s", cfg.Retrieval.VectorBackend)
	}
}

func (a *App) newPreferences(ctx context.Context) (app.PreferenceStore, error) {
	cfg := a.Config
	if !cfg.Redis.Enabled {
		return cache.NewMemoryPreferences(), nil
	}
	client, err := redisClient.New(ctx, redisClient.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, err
	}
	a.Redis = client
	return cache.NewPreferenceCache(client, cfg.PreferenceTTL()), nil
}

// newAuditor publishes query logs to RabbitMQ when it is enabled and
// writes them straight to MySQL otherwise.
func (a *App) newAuditor(ctx context.Context, workers bool) (app.Auditor, error) {
	cfg := a.Config
	if !cfg.RabbitMQ.Enabled {
		return app.AuditorFunc(func(ctx context.Context, entry model.QueryLog) error {
			return a.QueryLogs.Create(ctx, &entry)
		}), nil
	}

	conn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}
	a.MQConn = conn
	a.publisher = rabbitmqClient.NewQueryLogPublisher(conn, cfg.RabbitMQ.QueryLogQueue)

	if workers {
		w := worker.NewQueryLogWorker(conn, a.QueryLogs, cfg.RabbitMQ.QueryLogQueue)
		if err := w.Start(ctx); err != nil {
			return nil, fmt.Errorf("start query log worker failed: %w", err)
		}
		a.QueryLogWorker = w
	}
	return app.AuditorFunc(a.publisher.Publish), nil
}

func (a *App) Close() error {
	var errs []error
	if a.QueryLogWorker != nil {
		a.QueryLogWorker.Close()
	}
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if a.MQConn != nil && !a.MQConn.IsClosed() {
		errs = append(errs, a.MQConn.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.Postgres != nil {
		a.Postgres.Close()
	}
	if a.llmClose != nil {
		errs = append(errs, a.llmClose())
	}
	if a.MySQL != nil {
		if sqlDB, err := a.MySQL.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}
