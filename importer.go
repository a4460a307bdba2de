package linuxperf

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// `Importer` imports one Linux perf/ftrace text trace into a
// `TimelineModel`.
//
// Usage:
//
//	if linuxperf.CanImport(text) {
//		imp := linuxperf.NewImporter(model, text, false, cfg, logger, metrics)
//		err := imp.ImportEvents()
//		...
//		imp.FinalizeImport()
//	}
//
// An importer is single use and not safe for concurrent use.  Any
// number of importers may run concurrently on distinct models.
type Importer struct {
	ds       *perfDataset
	imported bool
}

// Guess whether `events` is a trace that we can import.
func CanImport(events string) bool {
	return canImport(events)
}

// Create an importer for the trace text in `events`.
//
// Set `isAdditionalImport` when `model` already holds data from
// another trace; the new trace will then be clock aligned against it
// (and rejected if it has no clock sync record).  `cfg`, `logger` and
// `metrics` may be nil.
func NewImporter(model *TimelineModel, events string, isAdditionalImport bool,
	cfg *Config, logger *zap.Logger, metrics *ImportMetrics) *Importer {

	if logger == nil {
		logger = zap.NewNop()
	}

	ds := newPerfDataset(model, events, isAdditionalImport, cfg, logger)
	ds.metrics = metrics

	return &Importer{ds: ds}
}

// Import the trace into the model.
//
// Problems with individual lines never fail the import; they are
// recorded in `model.ImportErrors` as we go.  Returns an
// `*ImportAbortedError` if the import was rolled back and an
// `*UnrecognizedStateError` if the per-thread scheduling states could
// not be derived.
func (imp *Importer) ImportEvents() error {
	if imp.imported {
		return fmt.Errorf("[dsid %06d] events already imported", imp.ds.datasetId)
	}
	imp.imported = true

	ds := imp.ds

	ds.importCpuData()

	aligned, err := ds.alignClocks()
	if err != nil {
		return err
	}
	if !aligned {
		if ds.summary != nil {
			ds.summary = configuredSummary(ds.summary.settings)
		}
		return &ImportAbortedError{Err: errors.New(noClockSyncMessage)}
	}

	err = ds.buildPerThreadCpuSlicesFromCpuState()
	if err != nil {
		ds.logger.Error(fmt.Sprintf("[dsid %06d] %s", ds.datasetId, err.Error()))
		return err
	}

	ds.autoCloseOpenSlices()

	return nil
}

// Called after every importer of a model has imported its events.
func (imp *Importer) FinalizeImport() {
	imp.ds.model.UpdateBounds()
}

// The summary values accumulated during the import (non-zero values
// only).  Empty if no summary settings were configured.
func (imp *Importer) Summary() map[string]interface{} {
	return imp.ds.summary.toMap()
}

// The number of `sched_wakeup` events seen for a Linux pid.
func (imp *Importer) Wakeups(pid int) int {
	return imp.ds.wakeupsByPid[pid]
}
