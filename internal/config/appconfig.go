package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"

	"envis/internal/env"
	"envis/internal/logger"
	"envis/internal/utils"
)

/**
 * AppConfig is the user-level configuration persisted at ~/.envis.json
 * @property {string} root - Root folder for managed data ({root}/services, {root}/envs)
 * @property {[]string} last_used_environment_ids - Most recent first, deduplicated
 */
type AppConfig struct {
	Root                                  string   `mapstructure:"root" json:"root"`
	AutoStartOnLogin                      bool     `mapstructure:"auto_start_on_login" json:"auto_start_on_login"`
	AutoActivateLastUsedEnvironment       bool     `mapstructure:"auto_activate_last_used_environment" json:"auto_activate_last_used_environment"`
	StopAllServicesOnExit                 bool     `mapstructure:"stop_all_services_on_exit" json:"stop_all_services_on_exit"`
	DeactivateOtherEnvironmentsOnActivate bool     `mapstructure:"deactivate_other_environments_on_activate" json:"deactivate_other_environments_on_activate"`
	ShowEnvironmentNameOnTerminalOpen     bool     `mapstructure:"show_environment_name_on_terminal_open" json:"show_environment_name_on_terminal_open"`
	ShowServiceInfoOnTerminalOpen         bool     `mapstructure:"show_service_info_on_terminal_open" json:"show_service_info_on_terminal_open"`
	TerminalTool                          string   `mapstructure:"terminal_tool" json:"terminal_tool,omitempty"`
	LastUsedEnvironmentIDs                []string `mapstructure:"last_used_environment_ids" json:"last_used_environment_ids"`

	LogLevel string `mapstructure:"log_level" json:"log_level,omitempty"`
}

// Store owns the config file and the root directory layout.
type Store struct {
	mu   sync.Mutex
	path string
	cfg  AppConfig
}

func defaultConfig() AppConfig {
	return AppConfig{
		Root:                                  env.EnvisDir,
		AutoStartOnLogin:                      false,
		AutoActivateLastUsedEnvironment:       true,
		StopAllServicesOnExit:                 false,
		DeactivateOtherEnvironmentsOnActivate: true,
		ShowEnvironmentNameOnTerminalOpen:     true,
		ShowServiceInfoOnTerminalOpen:         false,
		LastUsedEnvironmentIDs:                []string{},
	}
}

/**
 * Load config file or initialise it with defaults
 * @param {string} path - Config file location, empty means env.ConfigPath
 * @returns {*Store, error} Returns store or error when the root layout cannot be created
 * @description
 * - A missing or corrupt config is overwritten with defaults and does not
 *   block start-up
 * - Creates {root}/services and {root}/envs on success
 */
func LoadOrInit(path string) (*Store, error) {
	if path == "" {
		path = env.ConfigPath
	}
	s := &Store{path: path, cfg: defaultConfig()}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		logger.Warnf("Config '%s' unreadable, rewriting defaults: %v", path, err)
		if err := s.persist(); err != nil {
			return nil, err
		}
	} else {
		var cfg AppConfig
		if err := v.Unmarshal(&cfg); err != nil {
			logger.Warnf("Config '%s' corrupt, rewriting defaults: %v", path, err)
			if err := s.persist(); err != nil {
				return nil, err
			}
		} else {
			collectConfig(&cfg)
			s.cfg = cfg
		}
	}

	if err := s.ensureLayout(s.cfg.Root); err != nil {
		return nil, err
	}
	return s, nil
}

// collectConfig 补全缺省值
func collectConfig(cfg *AppConfig) {
	if cfg.Root == "" {
		cfg.Root = env.EnvisDir
	}
	if cfg.LastUsedEnvironmentIDs == nil {
		cfg.LastUsedEnvironmentIDs = []string{}
	}
	cfg.LastUsedEnvironmentIDs = dedupeKeepOrder(cfg.LastUsedEnvironmentIDs)
}

func dedupeKeepOrder(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (s *Store) ensureLayout(root string) error {
	if err := os.MkdirAll(filepath.Join(root, "services"), 0755); err != nil {
		return fmt.Errorf("create root layout under '%s': %v", root, err)
	}
	if err := os.MkdirAll(filepath.Join(root, "envs"), 0755); err != nil {
		return fmt.Errorf("create root layout under '%s': %v", root, err)
	}
	return nil
}

// Get returns a snapshot of the current configuration.
func (s *Store) Get() AppConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := s.cfg
	cfg.LastUsedEnvironmentIDs = append([]string(nil), s.cfg.LastUsedEnvironmentIDs...)
	return cfg
}

/**
 * Replace the configuration
 * @param {AppConfig} next - New configuration
 * @returns {error} Returns error if persisting fails or the new root cannot be created
 * @description
 * - last_used_environment_ids is deduplicated preserving order
 * - When root changes, services/ and envs/ are copied to the new location;
 *   individual file failures are logged, only the top-level create is fatal
 */
func (s *Store) Set(next AppConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	collectConfig(&next)

	oldRoot := s.cfg.Root
	if next.Root != oldRoot {
		if err := s.ensureLayout(next.Root); err != nil {
			return err
		}
		for _, sub := range []string{"services", "envs"} {
			warnings, err := utils.CopyDirBestEffort(
				filepath.Join(oldRoot, sub), filepath.Join(next.Root, sub))
			if err != nil {
				return err
			}
			for _, w := range warnings {
				logger.Warnf("Migrate %s: %s", sub, w)
			}
		}
		logger.Infof("Data root moved from '%s' to '%s'", oldRoot, next.Root)
	}

	s.cfg = next
	return s.persist()
}

// RecordEnvironmentUse promotes an environment id to the front of the
// last-used list.
func (s *Store) RecordEnvironmentUse(envID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := append([]string{envID}, s.cfg.LastUsedEnvironmentIDs...)
	s.cfg.LastUsedEnvironmentIDs = dedupeKeepOrder(ids)
	return s.persist()
}

func (s *Store) persist() error {
	data, err := json.MarshalIndent(&s.cfg, "", "  ")
	if err != nil {
		return err
	}
	return utils.AtomicWriteFile(s.path, data, 0644)
}

// Path roots owned by the store.

func (s *Store) Root() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Root
}

func (s *Store) ServicesDir() string {
	return filepath.Join(s.Root(), "services")
}

func (s *Store) EnvsDir() string {
	return filepath.Join(s.Root(), "envs")
}
