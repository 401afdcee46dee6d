package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "aos.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/aos"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
	// EnvFile is read into the environment before variables are applied
	EnvFile = ".env"
)

// Environment variables read by the loader.
const (
	EnvAddr             = "AOS_ADDR"
	EnvNATSURL          = "AOS_NATS_URL"
	EnvFeesURL          = "AOS_FEES_URL"
	EnvIDAMAPIURL       = "AOS_IDAM_API_URL"
	EnvIDAMLoginURL     = "AOS_IDAM_LOGIN_URL"
	EnvCasesPath        = "AOS_CASES_DB"
	EnvContentDir       = "AOS_CONTENT_DIR"
	EnvSessionTTL       = "AOS_SESSION_TTL"
	EnvFeatureSolicitor = "AOS_FEATURE_RESP_SOLICITOR_DETAILS"
	EnvFeatureWelsh     = "AOS_FEATURE_WELSH"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/aos/config.yaml)
// 3. Project config (aos.yaml in current or parent directories), or the
//    explicit file when path is set
// 4. .env in the working directory, which never overrides variables already
//    set
// 5. Environment variables
func (l *Loader) Load(path string) (*Config, error) {
	config := DefaultConfig()

	userConfigPath := l.userConfigPath()
	if userConfig, err := LoadFromFile(userConfigPath); err == nil {
		l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
		config.Merge(userConfig)
	} else if !errors.Is(err, fs.ErrNotExist) {
		l.logger.Warn("Failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
	}

	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded config file", slog.String("path", path))
		config.Merge(fileConfig)
	} else if projectConfigPath := l.findProjectConfig(); projectConfigPath != "" {
		if projectConfig, err := LoadFromFile(projectConfigPath); err == nil {
			l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
			config.Merge(projectConfig)
		} else {
			l.logger.Warn("Failed to load project config", slog.String("path", projectConfigPath), slog.String("error", err.Error()))
		}
	} else {
		l.logger.Debug("No project config found")
	}

	if err := godotenv.Load(EnvFile); err == nil {
		l.logger.Debug("Loaded env file", slog.String("path", EnvFile))
	} else if !errors.Is(err, fs.ErrNotExist) {
		l.logger.Warn("Failed to load env file", slog.String("path", EnvFile), slog.String("error", err.Error()))
	}

	if err := applyEnv(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnv overrides config from environment variables. Unlike file layers
// it can switch features off.
func applyEnv(c *Config) error {
	str := map[string]*string{
		EnvAddr:         &c.Server.Addr,
		EnvNATSURL:      &c.Sessions.NATSURL,
		EnvFeesURL:      &c.Fees.URL,
		EnvIDAMAPIURL:   &c.IDAM.APIURL,
		EnvIDAMLoginURL: &c.IDAM.LoginURL,
		EnvCasesPath:    &c.Cases.Path,
		EnvContentDir:   &c.Content.Dir,
	}
	for name, dst := range str {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}

	flags := map[string]*bool{
		EnvFeatureSolicitor: &c.Features.RespSolicitorDetails,
		EnvFeatureWelsh:     &c.Features.Welsh,
	}
	for name, dst := range flags {
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = b
	}

	if v := os.Getenv(EnvSessionTTL); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSessionTTL, err)
		}
		c.Sessions.TTL = d
	}
	return nil
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for aos.yaml in current and parent directories
func (l *Loader) findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
