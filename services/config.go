package services

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	defaultAPIBase   = "https://api.gitbook.com"
	defaultRateLimit = 2.0
)

// ConfigFile is read for settings missing from the environment.
var ConfigFile = "config.yaml"

// Config holds the GitBook API settings.
type Config struct {
	APIKey    string
	BaseURL   string
	Space     string
	RateLimit float64 // requests per second
}

// LoadConfig reads settings from the environment, falling back to
// ConfigFile for the API key.
func LoadConfig() (Config, error) {
	cfg := Config{
		APIKey:    os.Getenv("GITBOOK_API"),
		BaseURL:   os.Getenv("GITBOOK_API_BASE"),
		Space:     os.Getenv("GITBOOK_SPACE"),
		RateLimit: defaultRateLimit,
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultAPIBase
	}

	if v := os.Getenv("GITBOOK_RATE_LIMIT"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil || rps <= 0 {
			return Config{}, errors.Errorf("invalid GITBOOK_RATE_LIMIT %q", v)
		}
		cfg.RateLimit = rps
	}

	if cfg.APIKey == "" {
		fileCfg, err := readConfigFile(ConfigFile)
		if err != nil {
			return Config{}, err
		}
		cfg.APIKey = fileCfg["GITBOOK_API"]
		if cfg.Space == "" {
			cfg.Space = fileCfg["GITBOOK_SPACE"]
		}
	}

	if cfg.APIKey == "" {
		return Config{}, errors.New("missing GITBOOK_API var. please set and try again")
	}

	return cfg, nil
}

func readConfigFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	values := make(map[string]string)
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	return values, nil
}
