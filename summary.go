package linuxperf

// SummaryAccumulator stores aggregated values during an import.
// Values are accumulated as events arrive and slices close and are
// then reported as a single object.
//
// A nil accumulator is valid and ignores everything.
type SummaryAccumulator struct {
	settings *SummarySettings

	// eventCounts maps field names to event counts
	eventCounts map[string]int64

	// sliceCounts maps field names to slice occurrence counts
	sliceCounts map[string]int64

	// sliceTimes maps field names to total time in milliseconds
	sliceTimes map[string]float64
}

// configuredSummary creates an accumulator initialized with
// field names from the settings, all set to zero values.
func configuredSummary(settings *SummarySettings) *SummaryAccumulator {
	summary := &SummaryAccumulator{
		settings:    settings,
		eventCounts: make(map[string]int64),
		sliceCounts: make(map[string]int64),
		sliceTimes:  make(map[string]float64),
	}

	for _, rule := range settings.EventCounts {
		summary.eventCounts[rule.FieldName] = 0
	}

	for _, rule := range settings.SliceTimers {
		if len(rule.CountField) > 0 {
			summary.sliceCounts[rule.CountField] = 0
		}
		if len(rule.TimeField) > 0 {
			summary.sliceTimes[rule.TimeField] = 0.0
		}
	}

	return summary
}

// Count a recognized trace record.
func (sa *SummaryAccumulator) countEvent(eventName string) {
	if sa == nil {
		return
	}

	for _, rule := range sa.settings.EventCounts {
		if rule.Event == eventName {
			sa.eventCounts[rule.FieldName]++
		}
	}
}

// Aggregate a slice that was just closed.
func (sa *SummaryAccumulator) addSlice(slice *TimelineSlice) {
	if sa == nil {
		return
	}

	for _, rule := range sa.settings.SliceTimers {
		if slice.Title != rule.Name {
			continue
		}
		if len(rule.CountField) > 0 {
			sa.sliceCounts[rule.CountField]++
		}
		if len(rule.TimeField) > 0 {
			sa.sliceTimes[rule.TimeField] += slice.Duration
		}
	}
}

// toMap converts the accumulated values into a single map suitable
// for JSON marshaling.  The map contains all non-zero values.
func (sa *SummaryAccumulator) toMap() map[string]interface{} {
	result := make(map[string]interface{})
	if sa == nil {
		return result
	}

	for fieldName, count := range sa.eventCounts {
		if count > 0 {
			result[fieldName] = count
		}
	}

	for fieldName, count := range sa.sliceCounts {
		if count > 0 {
			result[fieldName] = count
		}
	}

	for fieldName, time := range sa.sliceTimes {
		if time > 0 {
			result[fieldName] = time
		}
	}

	return result
}
