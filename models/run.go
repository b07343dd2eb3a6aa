package models

import "time"

// RunState is a step of one ingestion run.
type RunState string

const (
	RunIdle            RunState = "idle"
	RunCrawling        RunState = "crawling"
	RunCategorizing    RunState = "categorizing"
	RunSyncing         RunState = "syncing"
	RunDone            RunState = "done"
	RunFailed          RunState = "failed"
	RunPartiallyFailed RunState = "partially_failed"
)

// Terminal reports whether no further transition happens within the run.
func (s RunState) Terminal() bool {
	return s == RunDone || s == RunFailed || s == RunPartiallyFailed
}

// RunResult summarises one ingestion run for its caller.
type RunResult struct {
	State            RunState
	StartTime        time.Time
	EndTime          time.Time
	PageCount        int
	ItemCount        int
	CategoryCount    int
	CategoriesSynced int
	DatasetsDropped  int
	FailedURLs       []string
	Err              error
}

// Succeeded reports whether the run committed the full catalog.
func (r *RunResult) Succeeded() bool {
	return r != nil && r.State == RunDone
}

// CatalogChanged reports whether persisted data was touched, which
// distinguishes a partial update from a run that changed nothing.
func (r *RunResult) CatalogChanged() bool {
	return r != nil && (r.CategoriesSynced > 0 || r.DatasetsDropped > 0)
}
