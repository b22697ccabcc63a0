package model

import "time"

// AuditLog is the durable record of one attempted action. Rows are
// appended, never mutated or deleted by this system.
type AuditLog struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	ActionType   string    `gorm:"type:varchar(100);not null;index" json:"action_type"` // e.g. invoice.approve
	Actor        string    `gorm:"type:varchar(255);not null;index" json:"actor"`
	ActorRole    string    `gorm:"type:varchar(100)" json:"actor_role,omitempty"`
	ErpDB        string    `gorm:"type:varchar(50);not null" json:"erp_db"`
	ObjectType   string    `gorm:"type:varchar(100);not null;index:idx_audit_object" json:"object_type"`
	ObjectID     string    `gorm:"type:varchar(100);not null;index:idx_audit_object" json:"object_id"`
	ObjectData   string    `gorm:"type:jsonb" json:"object_data,omitempty"` // snapshot at action time
	Result       string    `gorm:"type:varchar(50);not null" json:"result"`
	ErrorMessage string    `gorm:"type:text" json:"error_message,omitempty"`
	Metadata     string    `gorm:"type:jsonb" json:"metadata,omitempty"`
	Source       string    `gorm:"type:varchar(50);not null" json:"source"`
	RequestID    string    `gorm:"type:varchar(100)" json:"request_id,omitempty"`
}

// TableName keeps the table shared with the previous deployment.
func (AuditLog) TableName() string { return "mm_audit_logs" }
