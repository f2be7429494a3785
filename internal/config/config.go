package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	BackendURL   string
	MaxRetries   int
	RetryBackoff time.Duration

	FastInterval   time.Duration
	MediumInterval time.Duration
	SlowInterval   time.Duration
	FetchTimeout   time.Duration
	PruneTTL       time.Duration

	ActiveMarket   string
	VisibleMarkets []string
	Principal      string

	JournalPath string
	PGDSN       string
	LogLevel    string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SYNCD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("max-retries", 2)
	v.SetDefault("retry-backoff", 200*time.Millisecond)
	v.SetDefault("fast-interval", time.Second)
	v.SetDefault("medium-interval", 8*time.Second)
	v.SetDefault("slow-interval", 15*time.Second)
	v.SetDefault("fetch-timeout", 10*time.Second)
	v.SetDefault("prune-ttl", 30*time.Minute)
	v.SetDefault("journal", "")
	v.SetDefault("pg-dsn", "")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		BackendURL:     v.GetString("backend"),
		MaxRetries:     v.GetInt("max-retries"),
		RetryBackoff:   v.GetDuration("retry-backoff"),
		FastInterval:   v.GetDuration("fast-interval"),
		MediumInterval: v.GetDuration("medium-interval"),
		SlowInterval:   v.GetDuration("slow-interval"),
		FetchTimeout:   v.GetDuration("fetch-timeout"),
		PruneTTL:       v.GetDuration("prune-ttl"),
		ActiveMarket:   v.GetString("active-market"),
		VisibleMarkets: getStringSlice(v, "visible-market"),
		Principal:      v.GetString("principal"),
		JournalPath:    v.GetString("journal"),
		PGDSN:          v.GetString("pg-dsn"),
		LogLevel:       v.GetString("log-level"),
	}

	return cfg, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
