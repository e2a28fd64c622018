package flow

import "time"

// AuditSeverity classifies an audit entry.
type AuditSeverity string

const (
	AuditInfo    AuditSeverity = "INFO"
	AuditWarning AuditSeverity = "WARNING"
	AuditError   AuditSeverity = "ERROR"
)

// AuditEntry is a rate-limited diagnostic message attached to a stage
// session. Entries are informational only and never authoritative.
type AuditEntry struct {
	Severity  AuditSeverity `json:"severity"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
}

// MaxAuditEntries is the per-invocation emission cap. Entries beyond the
// cap are silently dropped.
const MaxAuditEntries = 5

// AuditSink receives accepted audit entries as they are emitted.
type AuditSink func(AuditEntry)
