package dto

// LevelReport is the per-level outcome of one sync pass
type LevelReport struct {
	// Enumerated is how many objects the walker saw at this level
	Enumerated int `json:"enumerated"`
	// Complete is true only when enumeration finished without error;
	// deletions are never derived from an incomplete level
	Complete bool `json:"complete"`
	// Deleted is how many stored mirrors were newly marked DELETED
	Deleted int64 `json:"deleted"`
}

// SyncReport is the structured outcome of one account sync run. Branch
// errors are collected rather than swallowed so a caller can tell "zero
// objects found" apart from "enumeration failed".
type SyncReport struct {
	AccountID string `json:"account_id"`

	Campaigns LevelReport `json:"campaigns"`
	AdSets    LevelReport `json:"ad_sets"`
	Ads       LevelReport `json:"ads"`

	InsightRowsUpserted int `json:"insight_rows_upserted"`
	InsightRowsFailed   int `json:"insight_rows_failed"`

	BranchErrors []string `json:"branch_errors,omitempty"`
}
