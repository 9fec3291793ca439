package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"agency-ledger/internal/core"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config is the process configuration, read from the environment after
// an optional .env file.
type Config struct {
	DatabaseURL    string
	ServerPort     string
	Mode           string
	JWTSecret      string
	AllowedOrigins string
	DBMaxConns     int32

	Ranking core.RankingConfig
	Posting core.PostingAccounts
}

// Load reads .env (if present) and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function such as os.Getenv.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		DatabaseURL:    get("DATABASE_URL", ""),
		ServerPort:     get("SERVER_PORT", "8080"),
		Mode:           get("APP_MODE", "production"),
		JWTSecret:      get("JWT_SECRET", ""),
		AllowedOrigins: get("ALLOWED_ORIGINS", ""),
		Ranking:        core.DefaultRankingConfig(),
		Posting: core.PostingAccounts{
			Receivable: get("AR_ACCOUNT_CODE", "1100"),
			Revenue:    get("REVENUE_ACCOUNT_CODE", "4000"),
			Cash:       get("CASH_ACCOUNT_CODE", "1000"),
		},
	}

	if v := get("DB_MAX_CONNS", ""); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("DB_MAX_CONNS must be a positive integer, got %q", v)
		}
		cfg.DBMaxConns = int32(n)
	}
	if v := get("AUTO_POST_PAYMENTS", ""); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("AUTO_POST_PAYMENTS must be a boolean, got %q", v)
		}
		cfg.Posting.PostPayments = b
	}
	if v := get("RANKING_WINDOW_MONTHS", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("RANKING_WINDOW_MONTHS must be an integer, got %q", v)
		}
		cfg.Ranking.WindowMonths = n
	}
	if v := get("RANKING_TIERS", ""); v != "" {
		tiers, err := ParseTiers(v)
		if err != nil {
			return nil, err
		}
		cfg.Ranking.Tiers = tiers
	}
	if v := get("RANKING_WEIGHTS", ""); v != "" {
		w, err := ParseWeights(v)
		if err != nil {
			return nil, err
		}
		cfg.Ranking.Weights = w
	}
	if err := cfg.Ranking.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ranking configuration: %w", err)
	}
	return cfg, nil
}

// parsePairs splits "a:1,b:2" into ordered name/value pairs.
func parsePairs(s string) ([]string, []decimal.Decimal, error) {
	var names []string
	var values []decimal.Decimal
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, raw, ok := strings.Cut(part, ":")
		if !ok {
			return nil, nil, fmt.Errorf("expected name:value, got %q", part)
		}
		v, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid number in %q: %w", part, err)
		}
		names = append(names, strings.ToLower(strings.TrimSpace(name)))
		values = append(values, v)
	}
	return names, values, nil
}

// ParseTiers reads "bronze:0,silver:40,gold:60,platinum:80". Bands must be
// listed in ascending order.
func ParseTiers(s string) ([]core.TierBand, error) {
	names, values, err := parsePairs(s)
	if err != nil {
		return nil, fmt.Errorf("RANKING_TIERS: %w", err)
	}
	tiers := make([]core.TierBand, len(names))
	for i := range names {
		tiers[i] = core.TierBand{Name: names[i], Threshold: values[i]}
	}
	return tiers, nil
}

// ParseWeights reads "revenue:0.4,volume:0.25,conversion:0.2,recency:0.15".
// Omitted components weigh zero.
func ParseWeights(s string) (core.RankingWeights, error) {
	names, values, err := parsePairs(s)
	if err != nil {
		return core.RankingWeights{}, fmt.Errorf("RANKING_WEIGHTS: %w", err)
	}
	var w core.RankingWeights
	for i, name := range names {
		switch name {
		case "revenue":
			w.Revenue = values[i]
		case "volume":
			w.Volume = values[i]
		case "conversion":
			w.Conversion = values[i]
		case "recency":
			w.Recency = values[i]
		default:
			return core.RankingWeights{}, fmt.Errorf("RANKING_WEIGHTS: unknown component %q", name)
		}
	}
	return w, nil
}
