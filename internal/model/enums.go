package model

// ObjectKind identifies the approvable business entities.
type ObjectKind string

const (
	KindInvoice ObjectKind = "invoice"
	KindExpense ObjectKind = "expense"
	KindLeave   ObjectKind = "leave"
)

// ParseObjectKind validates a path segment into an ObjectKind.
func ParseObjectKind(s string) (ObjectKind, bool) {
	switch ObjectKind(s) {
	case KindInvoice, KindExpense, KindLeave:
		return ObjectKind(s), true
	}
	return "", false
}

// ApprovalAction is what a caller wants done to an object.
type ApprovalAction string

const (
	ActionApprove ApprovalAction = "approve"
	ActionReject  ApprovalAction = "reject"
)

// Past returns the past-tense form for human-readable summaries.
func (a ApprovalAction) Past() string {
	if a == ActionReject {
		return "rejected"
	}
	return "approved"
}

// ApprovalResult classifies the outcome recorded in the audit log.
type ApprovalResult string

const (
	ResultSuccess ApprovalResult = "success"
	ResultFailed  ApprovalResult = "failed"
	// ResultDenied marks attempts stopped by a state guard before any
	// remote write was issued.
	ResultDenied ApprovalResult = "denied"
)

// AlertType grades digest alerts.
type AlertType string

const (
	AlertInfo     AlertType = "info"
	AlertWarning  AlertType = "warning"
	AlertCritical AlertType = "critical"
)

// Priority grades pending items for notification routing.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// DigestType identifies the daily digest domains.
type DigestType string

const (
	DigestSalesDaily   DigestType = "sales_daily"
	DigestFinanceDaily DigestType = "finance_daily"
	DigestOpsDaily     DigestType = "ops_daily"
)

// Action sources recorded in the audit trail.
const (
	SourceAPI      = "api"
	SourceChat     = "mattermost"
	SourceWorkflow = "n8n"
)
