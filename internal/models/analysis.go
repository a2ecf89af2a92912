package models

import "time"

// Run triggers
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
	TriggerStartup   = "startup"
	TriggerCLI       = "cli"
	TriggerImport    = "import"
)

// Run scopes
const (
	ScopePortfolio = "portfolio"
	ScopeUniverse  = "universe"
)

// Run statuses
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// AnalysisRun records one execution of the scoring pipeline
type AnalysisRun struct {
	ID         string     `json:"id"`
	Trigger    string     `json:"trigger"`
	Scope      string     `json:"scope"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	StockCount int        `json:"stock_count"`
	Error      string     `json:"error,omitempty"`
}

// AnalysisResult is the cached output of a completed run
type AnalysisResult struct {
	RunID       string          `json:"run_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Records     []*ScoredRecord `json:"records"`
}

// AnalystReport is the structured output of a per-symbol market analysis
type AnalystReport struct {
	Symbol          string    `json:"symbol" validate:"required"`
	AnalysisType    string    `json:"analysis_type" validate:"oneof=quick standard deep"`
	AnalysisDate    time.Time `json:"analysis_date"`
	Direction       string    `json:"direction" validate:"oneof=up down flat"`
	ExpectedMove    string    `json:"expected_move" validate:"required"`
	Confidence      int       `json:"confidence" validate:"min=1,max=10"`
	PositiveFactors []string  `json:"positive_factors" validate:"required,min=1,dive,required"`
	Concerns        []string  `json:"concerns" validate:"required,min=1,dive,required"`
	Summary         string    `json:"summary" validate:"required"`
}
