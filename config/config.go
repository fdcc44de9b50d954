package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"jmorrell/tyrescraper/internal/scraper"
	"jmorrell/tyrescraper/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Tyre size queries, e.g. "205-55-16,225-50-16"
	TyreSizes []scraper.TyreSize

	// Enabled scrapers ("dexel", "national")
	Scrapers []string

	// Site URLs
	DexelURL            string
	NationalBranchesURL string
	NationalSearchURL   string

	// Persistence
	DBPath        string
	PostcodesPath string
	// When true the National scraper loads the postcode artifact from
	// PostcodesPath instead of re-discovering it. Staleness is the
	// operator's responsibility.
	ReusePostcodes bool

	// Wait policy. The settle delays compensate for site updates that
	// expose no completion signal; a known fragility, kept explicit.
	FetchInterval  time.Duration
	DropdownSettle time.Duration
	BranchSettle   time.Duration
	NavTimeout     time.Duration

	// Browser
	Headless bool

	// Metrics endpoint address, empty disables the server
	MetricsAddr string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	fetchIntervalMs, _ := strconv.Atoi(getEnv("FETCH_INTERVAL_MS", "1000"))
	dropdownSettleMs, _ := strconv.Atoi(getEnv("DROPDOWN_SETTLE_MS", "1000"))
	branchSettleMs, _ := strconv.Atoi(getEnv("BRANCH_LOAD_SETTLE_MS", "15000"))
	navTimeoutSec, _ := strconv.Atoi(getEnv("NAV_TIMEOUT_SECONDS", "30"))

	sizes, _ := ParseSizes(getEnv("TYRE_SIZES", "205-55-16,225-50-16,185-16-14"))

	return Config{
		TyreSizes:           sizes,
		Scrapers:            splitList(getEnv("SCRAPERS", "dexel,national")),
		DexelURL:            getEnv("DEXEL_URL", "http://www.dexel.co.uk/"),
		NationalBranchesURL: getEnv("NATIONAL_BRANCHES_URL", "https://www.national.co.uk/branches"),
		NationalSearchURL:   getEnv("NATIONAL_SEARCH_URL", "https://www.national.co.uk/tyres-search"),
		DBPath:              getEnv("DB_PATH", "tyres.db"),
		PostcodesPath:       getEnv("POSTCODES_PATH", "postcodes.json"),
		ReusePostcodes:      getEnv("NATIONAL_REUSE_POSTCODES", "false") == "true",
		FetchInterval:       time.Duration(fetchIntervalMs) * time.Millisecond,
		DropdownSettle:      time.Duration(dropdownSettleMs) * time.Millisecond,
		BranchSettle:        time.Duration(branchSettleMs) * time.Millisecond,
		NavTimeout:          time.Duration(navTimeoutSec) * time.Second,
		Headless:            getEnv("BROWSER_HEADLESS", "true") == "true",
		MetricsAddr:         getEnv("METRICS_ADDR", ""),
		Environment:         getEnv("ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if len(c.TyreSizes) == 0 {
		return errors.NewConfiguration("no tyre sizes configured", nil)
	}
	for _, s := range c.TyreSizes {
		if s.Width <= 0 || s.AspectRatio <= 0 || s.RimDiameter <= 0 {
			return errors.NewConfiguration(fmt.Sprintf("invalid tyre size %q", s.Slug()), nil)
		}
	}
	if len(c.Scrapers) == 0 {
		return errors.NewConfiguration("no scrapers enabled", nil)
	}
	for _, name := range c.Scrapers {
		switch name {
		case "dexel", "national":
		default:
			return errors.NewConfiguration(fmt.Sprintf("unknown scraper %q", name), nil)
		}
	}
	if c.FetchInterval <= 0 {
		return errors.NewConfiguration("fetch interval must be positive", nil)
	}
	return nil
}

// ScraperEnabled reports whether the named scraper is in the enabled list
func (c *Config) ScraperEnabled(name string) bool {
	for _, s := range c.Scrapers {
		if s == name {
			return true
		}
	}
	return false
}

// ParseSizes parses a comma-separated list of W-AR-RD triples
func ParseSizes(raw string) ([]scraper.TyreSize, error) {
	var sizes []scraper.TyreSize
	for _, entry := range splitList(raw) {
		parts := strings.Split(entry, "-")
		if len(parts) != 3 {
			return nil, errors.NewConfiguration(fmt.Sprintf("malformed tyre size %q", entry), nil)
		}
		var dims [3]int
		for i, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return nil, errors.NewConfiguration(fmt.Sprintf("malformed tyre size %q", entry), err)
			}
			dims[i] = n
		}
		sizes = append(sizes, scraper.TyreSize{Width: dims[0], AspectRatio: dims[1], RimDiameter: dims[2]})
	}
	return sizes, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
