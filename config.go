package linuxperf

import (
	"fmt"
)

// `Config` represents the configuration settings of an importer,
// typically decoded from a `config.yml` with `parseConfigFile()`.
//
// config.yml
// ==========
// disabled_events: ["sched_wakeup", "cpu_idle"]
// summary: ./summary.yml
// filter_settings: ./filter.yml
//
// A nil `*Config` is valid and means the defaults.
type Config struct {
	// Event types that should be recognized (so that they are not
	// reported as unknown) but otherwise ignored.
	DisabledEvents []string `mapstructure:"disabled_events"`

	// Pathname to YML file containing the summary settings.
	SummarySettingsPath string `mapstructure:"summary"`
	SummarySettings     *SummarySettings

	// Pathname to YML file containing our filter settings.
	FilterSettingsPath string `mapstructure:"filter_settings"`
	FilterSettings     *FilterSettings

	disabledEvents map[string]bool
}

// `DefaultConfig()` returns a configuration with every event enabled
// and no summary or filter settings.
func DefaultConfig() *Config {
	return &Config{
		disabledEvents: make(map[string]bool),
	}
}

// `Validate()` checks that the configuration is valid and loads the
// summary and filter settings files that it refers to.
func (cfg *Config) Validate() error {
	cfg.disabledEvents = make(map[string]bool)
	for _, name := range cfg.DisabledEvents {
		if !isKnownEvent(name) {
			return fmt.Errorf("disabled_events: unknown event '%s'", name)
		}
		cfg.disabledEvents[name] = true
	}

	if len(cfg.SummarySettingsPath) > 0 {
		ss, err := parseSummarySettings(cfg.SummarySettingsPath)
		if err != nil {
			return fmt.Errorf("summary could not load '%s': '%s'",
				cfg.SummarySettingsPath, err.Error())
		}
		cfg.SummarySettings = ss
	}

	if len(cfg.FilterSettingsPath) > 0 {
		fs, err := parseFilterSettings(cfg.FilterSettingsPath)
		if err != nil {
			return fmt.Errorf("filter_settings could not load '%s': '%s'",
				cfg.FilterSettingsPath, err.Error())
		}
		cfg.FilterSettings = fs
	}

	return nil
}

func (cfg *Config) isEventDisabled(name string) bool {
	if cfg == nil {
		return false
	}
	if cfg.disabledEvents == nil {
		// Not validated; fall back to the raw list.
		for _, s := range cfg.DisabledEvents {
			if s == name {
				return true
			}
		}
		return false
	}
	return cfg.disabledEvents[name]
}

// Load and validate a `config.yml`.
func parseConfigFile(path string) (*Config, error) {
	return parseYmlFile[Config](path, parseConfigFromBuffer)
}

func parseConfigFromBuffer(data []byte, path string) (*Config, error) {
	cfg, err := parseYmlBuffer[Config](data, path)
	if err != nil {
		return nil, err
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// `LoadConfig()` reads the config file at `path`, along with the
// summary and filter settings files that it names.
func LoadConfig(path string) (*Config, error) {
	return parseConfigFile(path)
}
