// File path: internal/pipeline/config.go
package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config carries the tuned knobs of the answer pipeline. Zero values mean
// "use the default".
type Config struct {
	CacheCapacity  int     `json:"cache_capacity"`
	FuzzyThreshold float64 `json:"fuzzy_threshold"`
	KBLimit        int     `json:"kb_limit"`
	TopK           int     `json:"top_k"`
	ContextBudget  int     `json:"context_budget"`
	MinConfidence  float64 `json:"min_confidence"`

	CacheTTL       time.Duration `json:"-"`
	CacheTTLString string        `json:"cache_ttl"`
}

func (c Config) Merge(override Config) Config {
	result := c
	if override.CacheCapacity > 0 {
		result.CacheCapacity = override.CacheCapacity
	}
	if override.FuzzyThreshold > 0 {
		result.FuzzyThreshold = override.FuzzyThreshold
	}
	if override.KBLimit > 0 {
		result.KBLimit = override.KBLimit
	}
	if override.TopK > 0 {
		result.TopK = override.TopK
	}
	if override.ContextBudget > 0 {
		result.ContextBudget = override.ContextBudget
	}
	if override.MinConfidence > 0 {
		result.MinConfidence = override.MinConfidence
	}
	if override.CacheTTL > 0 {
		result.CacheTTL = override.CacheTTL
	}
	if strings.TrimSpace(override.CacheTTLString) != "" {
		result.CacheTTLString = strings.TrimSpace(override.CacheTTLString)
	}
	return result
}

// LoadConfig reads the pipeline configuration from an optional JSON file
// named by PIPELINE_CONFIG_FILE, then overrides from HELPMATE_* env vars.
func LoadConfig() (Config, error) {
	cfg := Config{}
	if path := strings.TrimSpace(os.Getenv("PIPELINE_CONFIG_FILE")); path != "" {
		fileCfg, err := loadConfigFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = cfg.Merge(fileCfg)
	}
	envCfg, err := loadConfigEnv()
	if err != nil {
		return Config{}, err
	}
	cfg = cfg.Merge(envCfg)
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.CacheCapacity <= 0 {
		c.CacheCapacity = defaultCacheCapacity
	}
	if c.FuzzyThreshold <= 0 {
		c.FuzzyThreshold = 0.5
	}
	if c.KBLimit <= 0 {
		c.KBLimit = 3
	}
	if c.TopK <= 0 {
		c.TopK = 6
	}
	if c.ContextBudget <= 0 {
		c.ContextBudget = 9000
	}
	if c.MinConfidence <= 0 {
		c.MinConfidence = 0.55
	}
	if c.CacheTTL <= 0 {
		if c.CacheTTLString != "" {
			if parsed, err := time.ParseDuration(c.CacheTTLString); err == nil {
				c.CacheTTL = parsed
			}
		}
		if c.CacheTTL <= 0 {
			c.CacheTTL = defaultCacheTTL
		}
	}
}

func loadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read pipeline config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse pipeline config: %w", err)
	}
	return cfg, nil
}

func loadConfigEnv() (Config, error) {
	cfg := Config{}
	intVars := []struct {
		name   string
		target *int
	}{
		{"HELPMATE_CACHE_CAPACITY", &cfg.CacheCapacity},
		{"HELPMATE_KB_LIMIT", &cfg.KBLimit},
		{"HELPMATE_TOP_K", &cfg.TopK},
		{"HELPMATE_CONTEXT_BUDGET", &cfg.ContextBudget},
	}
	for _, v := range intVars {
		raw := strings.TrimSpace(os.Getenv(v.name))
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", v.name, err)
		}
		if value > 0 {
			*v.target = value
		}
	}
	floatVars := []struct {
		name   string
		target *float64
	}{
		{"HELPMATE_FUZZY_THRESHOLD", &cfg.FuzzyThreshold},
		{"HELPMATE_MIN_CONFIDENCE", &cfg.MinConfidence},
	}
	for _, v := range floatVars {
		raw := strings.TrimSpace(os.Getenv(v.name))
		if raw == "" {
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", v.name, err)
		}
		if value > 0 {
			*v.target = value
		}
	}
	if ttl := strings.TrimSpace(os.Getenv("HELPMATE_CACHE_TTL")); ttl != "" {
		cfg.CacheTTLString = ttl
		if parsed, err := time.ParseDuration(ttl); err == nil {
			cfg.CacheTTL = parsed
		}
	}
	return cfg, nil
}
