package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/muhammadolammi/cvranker/internal/ranking"
)

const (
	modeServer = "server"
	modeWorker = "worker"
	modeBatch  = "batch"

	defaultGeminiModel = "gemini-2.5-pro"
)

type Config struct {
	Mode         string
	Addr         string
	Workers      int
	TopN         int
	Dir          string
	KeywordsPath string

	CorpusPath     string
	MatrixPath     string
	Vectorizer     string
	VectorizerPath string
	OllamaHost     string
	EmbedModel     string
	ScoreFloor     bool
	LanguageGate   bool

	LogLevel    string
	LogPretty   bool
	MaxUploadMB int

	GoogleAPIKey string
	GeminiModel  string

	DBURL       string
	RABBITMQUrl string
	R2          R2Config
}

// loadConfig reads the environment through getenv, then lets flags in args
// override the matching values.
func loadConfig(args []string, getenv func(string) string) (Config, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	topN, err := envInt(getenv, "TOP_N", ranking.DefaultTopN)
	if err != nil {
		return Config{}, err
	}
	maxUpload, err := envInt(getenv, "MAX_UPLOAD_MB", 10)
	if err != nil {
		return Config{}, err
	}
	workers, err := envInt(getenv, "WORKERS", 3)
	if err != nil {
		return Config{}, err
	}
	scoreFloor, err := envBool(getenv, "SCORE_FLOOR", true)
	if err != nil {
		return Config{}, err
	}
	languageGate, err := envBool(getenv, "LANGUAGE_GATE", true)
	if err != nil {
		return Config{}, err
	}
	logPretty, err := envBool(getenv, "LOG_PRETTY", false)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		CorpusPath:     env("CORPUS_PATH", ""),
		MatrixPath:     env("MATRIX_PATH", ""),
		Vectorizer:     strings.ToLower(env("VECTORIZER", "tfidf")),
		VectorizerPath: env("VECTORIZER_PATH", ""),
		OllamaHost:     env("OLLAMA_HOST", "http://localhost:11434"),
		EmbedModel:     env("EMBED_MODEL", "nomic-embed-text"),
		ScoreFloor:     scoreFloor,
		LanguageGate:   languageGate,
		LogLevel:       env("LOG_LEVEL", "info"),
		LogPretty:      logPretty,
		MaxUploadMB:    maxUpload,
		GoogleAPIKey:   env("GOOGLE_API_KEY", ""),
		GeminiModel:    env("GEMINI_MODEL", defaultGeminiModel),
		DBURL:          env("DB_URL", ""),
		RABBITMQUrl:    env("RABBITMQ_URL", ""),
		R2: R2Config{
			AccountID: env("R2_ACCCOUNT_ID", ""),
			Bucket:    env("R2_BUCKET", ""),
			AccessKey: env("R2_ACCESS_KEY", ""),
			SecretKey: env("R2_SECRET_KEY", ""),
		},
	}

	fs := pflag.NewFlagSet("cvranker", pflag.ContinueOnError)
	fs.StringVarP(&cfg.Mode, "mode", "m", env("MODE", modeServer), "run mode: server, worker or batch")
	fs.StringVar(&cfg.Addr, "addr", ":"+env("PORT", "8080"), "HTTP listen address")
	fs.IntVarP(&cfg.Workers, "workers", "w", workers, "number of session consumers in worker mode")
	fs.IntVarP(&cfg.TopN, "top-n", "n", topN, "number of job titles per resume")
	fs.StringVarP(&cfg.Dir, "dir", "d", env("BATCH_DIR", ""), "directory of resumes for batch mode")
	fs.StringVarP(&cfg.KeywordsPath, "keywords", "k", env("KEYWORDS_PATH", ""), "YAML file overriding the section keywords")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Mode {
	case modeServer, modeWorker, modeBatch:
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.CorpusPath == "" {
		return fmt.Errorf("empty CORPUS_PATH in environment")
	}
	if c.MatrixPath == "" {
		return fmt.Errorf("empty MATRIX_PATH in environment")
	}
	switch c.Vectorizer {
	case "tfidf":
		if c.VectorizerPath == "" {
			return fmt.Errorf("empty VECTORIZER_PATH in environment")
		}
	case "ollama":
	default:
		return fmt.Errorf("unknown VECTORIZER %q", c.Vectorizer)
	}
	if c.TopN <= 0 {
		return fmt.Errorf("top-n must be positive, got %d", c.TopN)
	}

	switch c.Mode {
	case modeBatch:
		if c.Dir == "" {
			return fmt.Errorf("batch mode needs --dir")
		}
	case modeWorker:
		if c.Workers <= 0 {
			return fmt.Errorf("workers must be positive, got %d", c.Workers)
		}
		if c.DBURL == "" {
			return fmt.Errorf("empty DB_URL in environment")
		}
		if c.RABBITMQUrl == "" {
			return fmt.Errorf("empty RABBITMQ_URL in env")
		}
		if err := c.R2.validate(); err != nil {
			return err
		}
	}
	if c.usesR2Artifacts() {
		if err := c.R2.validate(); err != nil {
			return fmt.Errorf("s3:// artifacts: %w", err)
		}
	}
	return nil
}

func (c Config) usesR2Artifacts() bool {
	for _, p := range []string{c.CorpusPath, c.MatrixPath, c.VectorizerPath} {
		if strings.HasPrefix(p, s3Scheme) {
			return true
		}
	}
	return false
}

func (r R2Config) validate() error {
	switch {
	case r.AccountID == "":
		return fmt.Errorf("empty R2_ACCCOUNT_ID in environment")
	case r.Bucket == "":
		return fmt.Errorf("empty R2_BUCKET in environment")
	case r.SecretKey == "":
		return fmt.Errorf("empty R2_SECRET_KEY in environment")
	case r.AccessKey == "":
		return fmt.Errorf("empty R2_ACCESS_KEY in environment")
	}
	return nil
}

func envInt(getenv func(string) string, key string, def int) (int, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func envBool(getenv func(string) string, key string, def bool) (bool, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}
