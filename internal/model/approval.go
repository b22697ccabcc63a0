package model

import "time"

// ApprovalRequest is a caller's intent to approve or reject one object.
// Immutable once bound; discarded after the pipeline completes.
type ApprovalRequest struct {
	Action    ApprovalAction `json:"action" binding:"required,oneof=approve reject"`
	Actor     string         `json:"actor" binding:"required"`
	ActorRole string         `json:"actor_role"`
	Reason    string         `json:"reason"`
	Source    string         `json:"source"`
	RequestID string         `json:"request_id"`
	Metadata  map[string]any `json:"metadata"`
}

// ApprovalResponse is the outcome returned to the caller.
type ApprovalResponse struct {
	Success      bool           `json:"success"`
	ObjectType   ObjectKind     `json:"object_type"`
	ObjectID     string         `json:"object_id"`
	Action       ApprovalAction `json:"action"`
	NewState     string         `json:"new_state"`
	Actor        string         `json:"actor"`
	Timestamp    time.Time      `json:"timestamp"`
	Summary      string         `json:"summary"`
	Result       ApprovalResult `json:"result"`
	ErrorMessage string         `json:"error_message,omitempty"`
}
