package config

import "time"

// Default report window and thresholds. These mirror the values the reports were
// originally calibrated against and can be overridden through Load.

const (
	// Dataset window
	DefaultDateColumn = "StartDate"
	DefaultFromYear   = 2021
	DefaultToYear     = 2023

	// Report thresholds
	DefaultHighDelayDays      = 30.0
	DefaultMinContractorRows  = 5
	DefaultTopContractors     = 15
	DefaultReliabilityHorizon = 90.0 // days of delay that zero out reliability
	DefaultHighRiskBelow      = 50.0
	DefaultScoreEpsilon       = 1e-9
)

const (
	// Export file names
	EfficiencyFileName  = "report1_regional_summary.csv"
	ContractorsFileName = "report2_contractor_ranking.csv"
	TrendsFileName      = "report3_project_type_trends.csv"
	SummaryFileName     = "summary.json"
	WorkbookFileName    = "reports.xlsx"

	DefaultInputPath = "data/dpwh_flood_control_projects.csv"
	DefaultOutputDir = "."
)

const (
	// Server-mode guardrails
	DefaultMaxConcurrentRequests = 8
	DefaultMaxCachedDatasets     = 4
	DefaultDatasetIdleTTL        = 10 * time.Minute
	DefaultDatasetCleanupPeriod  = time.Minute

	DefaultOperationTimeout      = 30 * time.Second
	DefaultAcquireRequestTimeout = 2 * time.Second
)
