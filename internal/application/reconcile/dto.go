package reconcile

// BatchError pinpoints a failed item within a batch
type BatchError struct {
	Index   int    `json:"index"`
	Key     string `json:"key,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BatchResult summarizes an upsert batch. Processed always equals the
// batch size; the remaining counters partition it.
type BatchResult struct {
	Processed  int          `json:"processed"`
	Inserted   int          `json:"inserted"`
	Updated    int          `json:"updated"`
	Duplicates int          `json:"duplicates"`
	Errors     []BatchError `json:"errors,omitempty"`
}

// DiffResult compares the local store against a remote snapshot for one
// period. Keys are pipe-joined natural keys.
type DiffResult struct {
	TenantID    string   `json:"tenant_id"`
	Period      string   `json:"period"`
	LocalTotal  int      `json:"local_total"`
	RemoteTotal int      `json:"remote_total"`
	Common      int      `json:"common"`
	LocalOnly   []string `json:"local_only"`
	RemoteOnly  []string `json:"remote_only"`
	InSync      bool     `json:"in_sync"`
}

// SyncResult reports one pull from the remote service: what was fetched,
// how it compared, and what was saved.
type SyncResult struct {
	TenantID string      `json:"tenant_id"`
	Period   string      `json:"period"`
	Fetched  int         `json:"fetched"`
	Diff     *DiffResult `json:"diff"`
	Saved    BatchResult `json:"saved"`
}

// Health statuses reported by HealthCheck
const (
	HealthStatusHealthy  = "healthy"
	HealthStatusDegraded = "degraded"

	RemoteStatusMatched     = "matched"
	RemoteStatusMismatched  = "mismatched"
	RemoteStatusUnavailable = "unavailable"
)

// HealthReport combines local integrity counters with a best-effort
// remote comparison for one tenant and period.
type HealthReport struct {
	TenantID         string `json:"tenant_id"`
	Period           string `json:"period"`
	Status           string `json:"status"`
	LocalDocuments   int64  `json:"local_documents"`
	MissingSupplier  int64  `json:"missing_supplier"`
	MissingIssueDate int64  `json:"missing_issue_date"`
	NonPositiveTotal int64  `json:"non_positive_total"`
	RemoteDocuments  *int64 `json:"remote_documents,omitempty"`
	RemoteStatus     string `json:"remote_status"`
}
