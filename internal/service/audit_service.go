package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"mmcore/internal/model"
	"mmcore/internal/repository"
)

// ApprovalAuditEntry carries everything the recorder needs to write one
// approval attempt to the audit trail.
type ApprovalAuditEntry struct {
	Kind       model.ObjectKind
	Action     model.ApprovalAction
	ObjectID   string
	ErpDB      string
	Actor      string
	ActorRole  string
	Source     string
	RequestID  string
	Result     model.ApprovalResult
	Error      string
	ObjectData map[string]any
	Metadata   map[string]any
}

type AuditService interface {
	Record(ctx context.Context, entry *model.AuditLog) (int64, error)
	LogApproval(ctx context.Context, e ApprovalAuditEntry) (int64, error)
	RecentLogs(ctx context.Context, filter repository.AuditFilter, page, limit int) ([]model.AuditLog, int64, error)
}

type auditService struct {
	repo   repository.AuditRepository
	logger *zap.Logger
}

func NewAuditService(repo repository.AuditRepository, logger *zap.Logger) AuditService {
	return &auditService{repo: repo, logger: logger}
}

func (s *auditService) Record(ctx context.Context, entry *model.AuditLog) (int64, error) {
	if entry.Source == "" {
		entry.Source = model.SourceAPI
	}
	id, err := s.repo.Insert(ctx, entry)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// LogApproval builds and records the audit row for one approval attempt.
// Marshal failures of the snapshot or metadata degrade to empty jsonb
// rather than losing the row.
func (s *auditService) LogApproval(ctx context.Context, e ApprovalAuditEntry) (int64, error) {
	entry := &model.AuditLog{
		ActionType:   string(e.Kind) + "." + string(e.Action),
		Actor:        e.Actor,
		ActorRole:    e.ActorRole,
		ErpDB:        e.ErpDB,
		ObjectType:   string(e.Kind),
		ObjectID:     e.ObjectID,
		Result:       string(e.Result),
		ErrorMessage: e.Error,
		Source:       e.Source,
		RequestID:    e.RequestID,
	}
	if e.ObjectData != nil {
		if data, err := json.Marshal(e.ObjectData); err == nil {
			entry.ObjectData = string(data)
		}
	}
	if e.Metadata != nil {
		if data, err := json.Marshal(e.Metadata); err == nil {
			entry.Metadata = string(data)
		}
	}
	id, err := s.Record(ctx, entry)
	if err != nil {
		s.logger.Error("audit write failed",
			zap.String("action_type", entry.ActionType),
			zap.String("object_id", entry.ObjectID),
			zap.Error(err))
		return 0, err
	}
	return id, nil
}

func (s *auditService) RecentLogs(ctx context.Context, filter repository.AuditFilter, page, limit int) ([]model.AuditLog, int64, error) {
	return s.repo.List(ctx, filter, page, limit)
}
