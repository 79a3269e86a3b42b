package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	"github.com/muhammadolammi/cvranker/internal/database"
	"github.com/muhammadolammi/cvranker/internal/extract"
	"github.com/muhammadolammi/cvranker/internal/logger"
	"github.com/muhammadolammi/cvranker/internal/metrics"
	"github.com/muhammadolammi/cvranker/internal/ranking"
	"github.com/muhammadolammi/cvranker/internal/review"
	"github.com/muhammadolammi/cvranker/internal/server"
	"github.com/muhammadolammi/cvranker/internal/vectorize"
)

func main() {
	_ = godotenv.Load()
	cfg, err := loadConfig(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cvranker:", err)
		os.Exit(2)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Str("mode", cfg.Mode).Msg("cvranker stopped")
	}
}

func run(ctx context.Context, cfg Config, log zerolog.Logger) error {
	var r2Client *s3.Client
	if cfg.R2.validate() == nil {
		c, err := newR2Client(ctx, cfg.R2)
		if err != nil {
			return err
		}
		r2Client = c
	}

	ranker, vecHealth, err := loadRanker(ctx, cfg, r2Client)
	if err != nil {
		return err
	}
	log.Info().
		Int("titles", ranker.Corpus().Len()).
		Int("dim", ranker.Corpus().Dim()).
		Str("vectorizer", cfg.Vectorizer).
		Msg("reference corpus loaded")

	extractor, err := buildExtractor(cfg, log)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	m.CorpusTitles.Set(float64(ranker.Corpus().Len()))

	var reviewer review.Reviewer
	if cfg.GoogleAPIKey != "" {
		ar, err := newAgentReviewer(ctx, cfg.GoogleAPIKey, cfg.GeminiModel, log.With().Str("component", "reviewer").Logger())
		if err != nil {
			return err
		}
		reviewer = ar
	} else {
		log.Info().Msg("GOOGLE_API_KEY not set, reviews disabled")
	}

	switch cfg.Mode {
	case modeBatch:
		return runBatch(ctx, cfg.Dir, extractor, ranker, cfg.TopN, os.Stdout, log)
	case modeWorker:
		return runWorker(ctx, cfg, log, WorkerConfig{
			Extractor:   extractor,
			Ranker:      ranker,
			Reviewer:    reviewer,
			Metrics:     m,
			Log:         log.With().Str("component", "worker").Logger(),
			RABBITMQUrl: cfg.RABBITMQUrl,
			TopN:        cfg.TopN,
		}, r2Client)
	}

	srv := server.New(cfg.Addr, server.Deps{
		Extractor:        extractor,
		Ranker:           ranker,
		Reviewer:         reviewer,
		Metrics:          m,
		Gatherer:         reg,
		VectorizerHealth: vecHealth,
		Log:              log,
		MaxUploadBytes:   int64(cfg.MaxUploadMB) << 20,
		TopN:             cfg.TopN,
	})
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runWorker(ctx context.Context, cfg Config, log zerolog.Logger, wc WorkerConfig, r2Client *s3.Client) error {
	db, err := sql.Open("postgres", cfg.DBURL)
	if err != nil {
		return fmt.Errorf("error opening db: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("error reaching db: %w", err)
	}

	conn, err := amqp.Dial(cfg.RABBITMQUrl)
	if err != nil {
		return fmt.Errorf("error connecting to RabbitMQ: %w", err)
	}
	defer conn.Close()

	wc.Store = database.New(db)
	wc.Fetcher = r2Fetcher{client: r2Client, bucket: cfg.R2.Bucket}
	wc.Publisher = amqpPublisher{conn: conn}

	log.Info().Int("workers", cfg.Workers).Msg("starting consumer pool")
	wc.StartConsumerWorkerPool(ctx, cfg.Workers)
	return nil
}

// loadRanker loads the reference corpus and the vectorizer once. Any
// failure here means the process cannot rank at all.
func loadRanker(ctx context.Context, cfg Config, r2Client *s3.Client) (*ranking.Ranker, server.HealthChecker, error) {
	unavailable := func(err error) error {
		return fmt.Errorf("%w: %v", ranking.ErrModelUnavailable, err)
	}

	titles, err := openArtifact(ctx, cfg.CorpusPath, r2Client)
	if err != nil {
		return nil, nil, unavailable(err)
	}
	defer titles.Close()
	matrix, err := openArtifact(ctx, cfg.MatrixPath, r2Client)
	if err != nil {
		return nil, nil, unavailable(err)
	}
	defer matrix.Close()

	corpus, err := ranking.LoadCorpus(titles, matrix)
	if err != nil {
		return nil, nil, err
	}

	var (
		vec    ranking.Vectorizer
		health server.HealthChecker
	)
	switch cfg.Vectorizer {
	case "ollama":
		o := vectorize.NewOllama(cfg.OllamaHost, cfg.EmbedModel)
		vec, health = o, o
	default:
		f, err := openArtifact(ctx, cfg.VectorizerPath, r2Client)
		if err != nil {
			return nil, nil, unavailable(err)
		}
		defer f.Close()
		tf, err := vectorize.LoadTFIDF(f)
		if err != nil {
			return nil, nil, unavailable(err)
		}
		if tf.Dim() != corpus.Dim() {
			return nil, nil, unavailable(fmt.Errorf("vectorizer has %d features, matrix has %d", tf.Dim(), corpus.Dim()))
		}
		vec = tf
	}

	r, err := ranking.NewRanker(corpus, vec,
		ranking.WithTopN(cfg.TopN),
		ranking.WithScoreFloor(cfg.ScoreFloor),
	)
	if err != nil {
		return nil, nil, err
	}
	return r, health, nil
}

func buildExtractor(cfg Config, log zerolog.Logger) (*extract.Extractor, error) {
	kw := extract.DefaultKeywords()
	if cfg.KeywordsPath != "" {
		loaded, err := extract.LoadKeywordsFile(cfg.KeywordsPath)
		if err != nil {
			return nil, err
		}
		kw = loaded
	}
	seg := extract.NewSegmenter(
		extract.WithKeywords(kw),
		extract.WithLogger(log.With().Str("component", "segmenter").Logger()),
	)

	var opts []extract.ExtractorOption
	if cfg.LanguageGate {
		opts = append(opts, extract.WithLanguageGate(extract.EnglishGate()))
	}
	return extract.NewExtractor(seg, opts...), nil
}
