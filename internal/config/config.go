package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Weights for the competitiveness index. Injected into the comparison
// engine so per-deployment tuning does not require a rebuild.
type Weights struct {
	Price        float64
	Rating       float64
	Discount     float64
	Reviews      float64
	Availability float64
}

type Config struct {
	Port    string
	DBDSN   string
	LogFile string

	// Fetch client
	FetchBaseURL    string
	FetchTimeoutSec int
	FetchCacheTTL   int // seconds
	FetchRatePerMin int
	FetchRetries    int
	FetchRetryBase  int // ms, initial backoff interval

	// Collector job
	CollectorBatchSize int
	CollectorDelayMin  int // ms between fetches
	CollectorDelayMax  int // ms
	CollectCron        string
	PruneCron          string

	// Retention & aggregation
	HistoryRetentionDays  int
	SnapshotRetentionDays int
	WindowDays            int
	FreshnessSec          int // comparison refetch threshold

	Weights     Weights
	GradeBounds [4]float64 // A, B, C, D lower bounds
}

func Load() Config {
	// Local .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := Config{
		Port:                  envStr("PORT", "8080"),
		DBDSN:                 envStr("DB_DSN", "pricewatch.db"),
		LogFile:               os.Getenv("LOG_FILE"),
		FetchBaseURL:          envStr("FETCH_BASE_URL", "https://catalog.example.com"),
		FetchTimeoutSec:       envInt("FETCH_TIMEOUT_SEC", 15),
		FetchCacheTTL:         envInt("FETCH_CACHE_TTL_SEC", 3600),
		FetchRatePerMin:       envInt("FETCH_RATE_PER_MIN", 30),
		FetchRetries:          envInt("FETCH_RETRIES", 3),
		FetchRetryBase:        envInt("FETCH_RETRY_BASE_MS", 500),
		CollectorBatchSize:    envInt("COLLECTOR_BATCH_SIZE", 10),
		CollectorDelayMin:     envInt("COLLECTOR_DELAY_MIN_MS", 2000),
		CollectorDelayMax:     envInt("COLLECTOR_DELAY_MAX_MS", 5000),
		CollectCron:           envStr("COLLECT_CRON", "30 3 * * *"),
		PruneCron:             envStr("PRUNE_CRON", "0 4 * * *"),
		HistoryRetentionDays:  envInt("HISTORY_RETENTION_DAYS", 180),
		SnapshotRetentionDays: envInt("SNAPSHOT_RETENTION_DAYS", 90),
		WindowDays:            envInt("WINDOW_DAYS", 7),
		FreshnessSec:          envInt("FRESHNESS_SEC", 3600),
		Weights: Weights{
			Price:        envFloat("WEIGHT_PRICE", 0.35),
			Rating:       envFloat("WEIGHT_RATING", 0.25),
			Discount:     envFloat("WEIGHT_DISCOUNT", 0.20),
			Reviews:      envFloat("WEIGHT_REVIEWS", 0.10),
			Availability: envFloat("WEIGHT_AVAILABILITY", 0.10),
		},
		GradeBounds: [4]float64{
			envFloat("GRADE_A_MIN", 0.85),
			envFloat("GRADE_B_MIN", 0.70),
			envFloat("GRADE_C_MIN", 0.50),
			envFloat("GRADE_D_MIN", 0.30),
		},
	}

	log.Printf("[config] PORT=%s DB_DSN=%s FETCH_BASE_URL=%s RATE=%d/min CACHE_TTL=%ds",
		cfg.Port, cfg.DBDSN, cfg.FetchBaseURL, cfg.FetchRatePerMin, cfg.FetchCacheTTL)
	return cfg
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("[config] bad int for %s, using %d", key, def)
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("[config] bad float for %s, using %g", key, def)
	}
	return def
}
