// Package metrics exposes runtime counters via expvar.
package metrics

import "expvar"

var (
	DriftRunsTotal     = expvar.NewInt("drift_runs_total")
	DriftRunFailures   = expvar.NewInt("drift_run_failures")
	StacksDrifted      = expvar.NewInt("stacks_drifted")
	StacksClean        = expvar.NewInt("stacks_clean")
	PreviewFailures    = expvar.NewInt("preview_failures")
	RefreshFailures    = expvar.NewInt("refresh_failures")
	ReportsDispatched  = expvar.NewInt("reports_dispatched")
	ReportDispatchErrs = expvar.NewInt("report_dispatch_errors")
)
