package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	// Object storage
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
	S3Endpoint      string // custom endpoint (MinIO etc), path-style when set
	LocalStoreDir   string // serve objects from <dir>/<bucket>/<key> instead of S3

	// Remote objects
	ResultsFile    string // file name under outputs/<date>/
	HistoryKey     string
	DataDir        string // where fetched objects are materialized
	UTCOffsetHours int    // fixed offset used to pick the daily folder

	// Server
	Port      string
	PageTitle string

	// Object-created notifications
	AMQPURL   string
	AMQPQueue string

	// Other
	LarkWebhook string
	Environment string
	LogLevel    string
}

func Load() *Config {
	return &Config{
		AccessKeyID:     getEnv("AWS_AK", ""),
		SecretAccessKey: getEnv("AWS_SAK", ""),
		Region:          getEnv("AWS_DEFAULT_REGION", "us-east-1"),
		Bucket:          getEnv("S3_BUCKET", ""),
		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", ""),

		ResultsFile:    getEnv("RESULTS_FILE", "omqb_results.csv"),
		HistoryKey:     getEnv("HISTORY_KEY", "history/full_history.csv"),
		DataDir:        getEnv("DATA_DIR", "."),
		UTCOffsetHours: getEnvOffset("UTC_OFFSET_HOURS", -3),

		Port:      getEnv("PORT", "8080"),
		PageTitle: getEnv("PAGE_TITLE", "MM Tips"),

		AMQPURL:   getEnv("AMQP_URL", ""),
		AMQPQueue: getEnv("AMQP_QUEUE", "mmtips.results"),

		LarkWebhook: getEnv("LARK_WEBHOOK", ""),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}
}

// Validate reports settings the service cannot start without.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("S3_BUCKET is required")
	}
	if c.UTCOffsetHours < -12 || c.UTCOffsetHours > 14 {
		return fmt.Errorf("UTC_OFFSET_HOURS out of range: %d", c.UTCOffsetHours)
	}
	if strings.HasSuffix(c.HistoryKey, "/") || c.HistoryKey == "" {
		return fmt.Errorf("invalid HISTORY_KEY %q", c.HistoryKey)
	}
	return nil
}

// AMQPEnabled reports whether the object-created listener should run.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvOffset differs from a plain int lookup: zero is a legal offset.
func getEnvOffset(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return result
}
