package linuxperf

import (
	"fmt"
)

// SummarySettings describes the aggregate values that should be
// accumulated while a trace is imported and reported alongside the
// timeline (and as a single JSON attribute in the exported OTLP).
type SummarySettings struct {
	SliceTimers []SliceTimerRule `mapstructure:"slice_timers"`
	EventCounts []EventCountRule `mapstructure:"event_counts"`
}

// SliceTimerRule aggregates the closed slices (user-space markers and
// kernel thread slices) whose title matches `Name` exactly.
type SliceTimerRule struct {
	Name string `mapstructure:"name"`

	// CountField is the optional name of the field where the number
	// of matching slices will be stored.
	CountField string `mapstructure:"count_field"`

	// TimeField is the optional name of the field where the total
	// duration (in milliseconds) of the matching slices will be stored.
	TimeField string `mapstructure:"time_field"`
}

// EventCountRule counts trace records of one event type.
type EventCountRule struct {
	Event     string `mapstructure:"event"`
	FieldName string `mapstructure:"field_name"`
}

func parseSummarySettings(path string) (*SummarySettings, error) {
	return parseYmlFile[SummarySettings](path, parseSummarySettingsFromBuffer)
}

func parseSummarySettingsFromBuffer(data []byte, path string) (*SummarySettings, error) {
	ss, err := parseYmlBuffer[SummarySettings](data, path)
	if err != nil {
		return nil, err
	}

	// Every field lands in the same output object.
	fieldNames := make(map[string]bool)

	for i, rule := range ss.EventCounts {
		if len(rule.Event) == 0 {
			return nil, fmt.Errorf("event_counts[%d]: event cannot be empty", i)
		}
		if len(rule.FieldName) == 0 {
			return nil, fmt.Errorf("event_counts[%d]: field_name cannot be empty", i)
		}
		if fieldNames[rule.FieldName] {
			return nil, fmt.Errorf("event_counts[%d]: duplicate field_name '%s'", i, rule.FieldName)
		}
		fieldNames[rule.FieldName] = true
	}

	for i, rule := range ss.SliceTimers {
		if len(rule.Name) == 0 {
			return nil, fmt.Errorf("slice_timers[%d]: name cannot be empty", i)
		}
		if len(rule.CountField) == 0 && len(rule.TimeField) == 0 {
			return nil, fmt.Errorf("slice_timers[%d]: at least one of count_field or time_field must be specified", i)
		}

		for _, f := range []string{rule.CountField, rule.TimeField} {
			if len(f) == 0 {
				continue
			}
			if fieldNames[f] {
				return nil, fmt.Errorf("slice_timers[%d]: duplicate field_name '%s'", i, f)
			}
			fieldNames[f] = true
		}
	}

	return ss, nil
}
