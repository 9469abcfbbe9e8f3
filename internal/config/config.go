package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/weather-warnings/internal/common"
	"github.com/i474232898/weather-warnings/internal/warnings"
	"github.com/i474232898/weather-warnings/internal/warnings/providers"
)

var validate = validator.New()

// Region is one configured region to derive alerts for.
type Region struct {
	ID   warnings.RegionID
	Name string
}

// RegionError reports a region entry that could not be set up. It only
// disables that entry; other regions are unaffected.
type RegionError struct {
	Index int
	Name  string
	Err   error
}

func (e *RegionError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("region #%d (%s): %v", e.Index, e.Name, e.Err)
	}
	return fmt.Sprintf("region #%d: %v", e.Index, e.Err)
}

func (e *RegionError) Unwrap() error {
	return e.Err
}

var (
	ErrMissingRegionID = errors.New("missing region id")
	ErrInvalidRegionID = errors.New("region id must be a positive integer")
	ErrDuplicateRegion = errors.New("duplicate region id")
	ErrNoRegions       = errors.New("no regions configured: set REGION_IDS or CONFIG_FILE")
)

type AppConfig struct {
	// Regions that passed validation.
	Regions []Region
	// RegionErrors holds one error per rejected region entry.
	RegionErrors []*RegionError

	RefreshIntervalMinutes int           `validate:"gte=1"`
	FeedURL                string        `validate:"required,url"`
	FetchTimeout           time.Duration `validate:"gt=0"`
	InsecureSkipVerify     bool

	Port            string        `validate:"required,numeric"`
	LogLevel        string        `validate:"oneof=trace debug info warn error"`
	LogFormat       string        `validate:"oneof=json console"`
	ShutdownTimeout time.Duration `validate:"gt=0"`

	// Kafka is optional; an empty broker list disables it.
	KafkaBrokers []string
	KafkaTopic   string `validate:"required_with=KafkaBrokers"`
}

// RefreshInterval returns the configured polling interval.
func (c *AppConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMinutes) * time.Minute
}

// RequireRegions fails when no region entry was configured at all.
func (c *AppConfig) RequireRegions() error {
	if len(c.Regions) == 0 && len(c.RegionErrors) == 0 {
		return ErrNoRegions
	}
	return nil
}

// fileConfig is the optional YAML config file. Set values override the environment.
type fileConfig struct {
	RefreshIntervalMinutes *int          `yaml:"refresh_interval_minutes"`
	FeedURL                string        `yaml:"feed_url"`
	Regions                []regionEntry `yaml:"regions"`
}

// regionEntry keeps the id as a node so the literal text is validated, not
// yaml's reading of it (`02102` would otherwise decode as octal).
type regionEntry struct {
	ID   yaml.Node `yaml:"id"`
	Name string    `yaml:"name"`
}

// Load reads configuration from the environment (and .env) with defaults,
// then applies CONFIG_FILE if set.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := &AppConfig{}

	interval, err := getenvInt("REFRESH_INTERVAL_MINUTES", 60)
	if err != nil {
		return nil, err
	}
	cfg.RefreshIntervalMinutes = interval
	cfg.FeedURL = getenvDefault("FEED_URL", providers.DefaultCHMIURL)

	cfg.FetchTimeout, err = getenvDuration("FETCH_TIMEOUT", warnings.DefaultFetchTimeout)
	if err != nil {
		return nil, err
	}
	cfg.InsecureSkipVerify, err = getenvBool("TLS_INSECURE_SKIP_VERIFY", false)
	if err != nil {
		return nil, err
	}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.LogLevel = strings.ToLower(getenvDefault("LOG_LEVEL", "info"))
	cfg.LogFormat = strings.ToLower(getenvDefault("LOG_FORMAT", "json"))
	cfg.ShutdownTimeout, err = getenvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	cfg.KafkaBrokers = common.SplitList(os.Getenv("KAFKA_BROKERS"))
	cfg.KafkaTopic = getenvDefault("KAFKA_TOPIC", "weather-warnings.region-state")

	entries := make([]regionEntry, 0)
	for _, id := range common.SplitList(os.Getenv("REGION_IDS")) {
		entries = append(entries, regionEntry{ID: yaml.Node{Kind: yaml.ScalarNode, Value: id}})
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		fc, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		if fc.RefreshIntervalMinutes != nil {
			cfg.RefreshIntervalMinutes = *fc.RefreshIntervalMinutes
		}
		if fc.FeedURL != "" {
			cfg.FeedURL = fc.FeedURL
		}
		if len(fc.Regions) > 0 {
			entries = fc.Regions
		}
	}

	cfg.Regions, cfg.RegionErrors = resolveRegions(entries)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read CONFIG_FILE: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse CONFIG_FILE %s: %w", path, err)
	}
	return &fc, nil
}

// resolveRegions validates entries one by one so a bad entry does not stop the rest.
func resolveRegions(entries []regionEntry) ([]Region, []*RegionError) {
	var (
		regions []Region
		errs    []*RegionError
		seen    = make(map[warnings.RegionID]bool)
	)
	for i, e := range entries {
		switch {
		case e.ID.Kind == 0, e.ID.Tag == "!!null":
			errs = append(errs, &RegionError{Index: i, Name: e.Name, Err: ErrMissingRegionID})
			continue
		case e.ID.Kind != yaml.ScalarNode:
			errs = append(errs, &RegionError{Index: i, Name: e.Name, Err: ErrInvalidRegionID})
			continue
		case strings.TrimSpace(e.ID.Value) == "":
			errs = append(errs, &RegionError{Index: i, Name: e.Name, Err: ErrMissingRegionID})
			continue
		}
		id, err := ParseRegionID(e.ID.Value)
		if err != nil {
			errs = append(errs, &RegionError{Index: i, Name: e.Name, Err: err})
			continue
		}
		if seen[id] {
			errs = append(errs, &RegionError{Index: i, Name: e.Name, Err: fmt.Errorf("%w: %s", ErrDuplicateRegion, id)})
			continue
		}
		seen[id] = true
		regions = append(regions, Region{ID: id, Name: e.Name})
	}
	return regions, errs
}

// ParseRegionID validates an ORP code and returns it in canonical decimal
// form, so "02102" and "2102" name the same region.
func ParseRegionID(s string) (warnings.RegionID, error) {
	s = strings.TrimSpace(s)
	if err := validate.Var(s, "required,numeric"); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidRegionID, s)
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n == 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidRegionID, s)
	}
	return warnings.NewRegionID(strconv.FormatUint(n, 10)), nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
