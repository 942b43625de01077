package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// File is the optional YAML configuration. Every value it sets is a default:
// a variable already present in the environment wins.
type File struct {
	LogLevel string `yaml:"log_level"`
	Cache    struct {
		Driver string `yaml:"driver"`
		Prefix string `yaml:"prefix"`
	} `yaml:"cache"`
	Channel struct {
		Driver   string `yaml:"driver"`
		Username string `yaml:"username"`
		StateDir string `yaml:"state_dir"`
	} `yaml:"channel"`
	Summarizer struct {
		Type     string `yaml:"type"`
		Model    string `yaml:"model"`
		Language string `yaml:"language"`
	} `yaml:"summarizer"`
	Pipeline struct {
		MaxArticles          int    `yaml:"max_articles"`
		FetchBatchSize       int    `yaml:"fetch_batch_size"`
		LockTTL              string `yaml:"lock_ttl"`
		FailureTTL           string `yaml:"failure_ttl"`
		RetryQueueMax        int    `yaml:"retry_queue_max"`
		MinBodyChars         int    `yaml:"min_body_chars"`
		MinBodyWords         int    `yaml:"min_body_words"`
		SummaryInputMaxChars int    `yaml:"summary_input_max_chars"`
		APIIDStart           int64  `yaml:"api_id_start"`
	} `yaml:"pipeline"`
	Worker struct {
		PollInterval  string `yaml:"poll_interval"`
		CycleTimeout  string `yaml:"cycle_timeout"`
		PriceSchedule string `yaml:"price_schedule"`
		Timezone      string `yaml:"timezone"`
	} `yaml:"worker"`
	Prices struct {
		SourceURL string `yaml:"source_url"`
		IDs       string `yaml:"ids"`
		Currency  string `yaml:"currency"`
	} `yaml:"prices"`
	HTTP struct {
		Port      int     `yaml:"port"`
		RateLimit float64 `yaml:"rate_limit"`
		Burst     int     `yaml:"burst"`
	} `yaml:"http"`
}

// LoadFile parses the YAML file at path.
// The path comes from DIGEST_CONFIG_FILE or a CLI flag, not from requests.
func LoadFile(path string) (*File, error) {
	// #nosec G304 -- operator supplied path
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &f, nil
}

// Env returns the file's non-empty settings keyed by environment variable.
func (f *File) Env() map[string]string {
	env := map[string]string{}
	str := func(key, v string) {
		if v != "" {
			env[key] = v
		}
	}
	num := func(key string, v int64) {
		if v != 0 {
			env[key] = strconv.FormatInt(v, 10)
		}
	}

	str("LOG_LEVEL", f.LogLevel)
	str("CACHE_DRIVER", f.Cache.Driver)
	str("CACHE_PREFIX", f.Cache.Prefix)
	str("CHANNEL_DRIVER", f.Channel.Driver)
	str("CHANNEL_USERNAME", f.Channel.Username)
	str("TG_STATE_DIR", f.Channel.StateDir)
	str("SUMMARIZER_TYPE", f.Summarizer.Type)
	str("SUMMARIZER_MODEL", f.Summarizer.Model)
	str("SUMMARIZER_LANGUAGE", f.Summarizer.Language)
	num("MAX_ARTICLES", int64(f.Pipeline.MaxArticles))
	num("FETCH_BATCH_SIZE", int64(f.Pipeline.FetchBatchSize))
	str("LOCK_TTL", f.Pipeline.LockTTL)
	str("FAILURE_TTL", f.Pipeline.FailureTTL)
	num("RETRY_QUEUE_MAX", int64(f.Pipeline.RetryQueueMax))
	num("MIN_BODY_CHARS", int64(f.Pipeline.MinBodyChars))
	num("MIN_BODY_WORDS", int64(f.Pipeline.MinBodyWords))
	num("SUMMARY_INPUT_MAX_CHARS", int64(f.Pipeline.SummaryInputMaxChars))
	num("API_ID_START", f.Pipeline.APIIDStart)
	str("POLL_INTERVAL", f.Worker.PollInterval)
	str("CYCLE_TIMEOUT", f.Worker.CycleTimeout)
	str("PRICE_SCHEDULE", f.Worker.PriceSchedule)
	str("WORKER_TIMEZONE", f.Worker.Timezone)
	str("PRICE_SOURCE_URL", f.Prices.SourceURL)
	str("PRICE_IDS", f.Prices.IDs)
	str("PRICE_CURRENCY", f.Prices.Currency)
	num("HTTP_PORT", int64(f.HTTP.Port))
	if f.HTTP.RateLimit != 0 {
		env["HTTP_RATE_LIMIT"] = strconv.FormatFloat(f.HTTP.RateLimit, 'f', -1, 64)
	}
	num("HTTP_RATE_BURST", int64(f.HTTP.Burst))
	return env
}

// Bootstrap preloads the process environment: variables from .env (when
// present) first, then defaults from the YAML file named by
// DIGEST_CONFIG_FILE. Neither overrides a variable that is already set.
func Bootstrap() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	path := os.Getenv("DIGEST_CONFIG_FILE")
	if path == "" {
		return nil
	}
	f, err := LoadFile(path)
	if err != nil {
		return err
	}
	for key, value := range f.Env() {
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("apply %s: %w", key, err)
		}
	}
	return nil
}
