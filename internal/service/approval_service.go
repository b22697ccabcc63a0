package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"mmcore/internal/apperr"
	"mmcore/internal/erp"
	"mmcore/internal/model"
	"mmcore/pkg/timeutil"
)

// ErpGateway is the slice of the remote client the orchestrator needs.
// Defined here so tests can substitute a recording fake.
type ErpGateway interface {
	GetInvoice(id int64) (erp.Record, error)
	GetExpense(id int64) (erp.Record, error)
	GetLeave(id int64) (erp.Record, error)
	ApproveInvoice(id int64) (string, error)
	RejectInvoice(id int64, reason string) (string, error)
	ApproveExpense(id int64) (string, error)
	ApproveLeave(id int64) (string, error)
	RejectLeave(id int64) (string, error)
}

// ErpGatewayFactory resolves the gateway for one ERP database.
type ErpGatewayFactory func(db string) (ErpGateway, error)

type ApprovalService interface {
	Process(ctx context.Context, dbName string, kind model.ObjectKind, objectID string, req model.ApprovalRequest) (model.ApprovalResponse, error)
}

type approvalService struct {
	gateway ErpGatewayFactory
	audit   AuditService
	logger  *zap.Logger
	printer *message.Printer
}

func NewApprovalService(gateway ErpGatewayFactory, audit AuditService, logger *zap.Logger) ApprovalService {
	return &approvalService{
		gateway: gateway,
		audit:   audit,
		logger:  logger,
		printer: message.NewPrinter(language.English),
	}
}

// kindSpec describes one approvable object type: how to fetch its
// snapshot, which states block an action, and which remote calls perform
// the state change.
type kindSpec struct {
	fetch   func(g ErpGateway, id int64) (erp.Record, error)
	guard   func(rec erp.Record, action model.ApprovalAction) *apperr.Error
	apply   func(g ErpGateway, id int64, action model.ApprovalAction, reason string) (string, error)
	summary func(p *message.Printer, rec erp.Record, action model.ApprovalAction, objectID string) string
}

var kindSpecs = map[model.ObjectKind]kindSpec{
	model.KindInvoice: {
		fetch: func(g ErpGateway, id int64) (erp.Record, error) { return g.GetInvoice(id) },
		guard: func(rec erp.Record, action model.ApprovalAction) *apperr.Error {
			if action != model.ActionApprove {
				return nil
			}
			switch state := rec.Str("state"); state {
			case "draft":
				return nil
			case "posted":
				return apperr.AlreadyApproved("invoice is already posted",
					map[string]any{"state": state})
			default:
				return apperr.InvalidState(
					fmt.Sprintf("invoice in state %q cannot be approved", state),
					map[string]any{"state": state})
			}
		},
		apply: func(g ErpGateway, id int64, action model.ApprovalAction, reason string) (string, error) {
			if action == model.ActionApprove {
				return g.ApproveInvoice(id)
			}
			return g.RejectInvoice(id, reason)
		},
		summary: func(p *message.Printer, rec erp.Record, action model.ApprovalAction, objectID string) string {
			name := rec.Str("name")
			if name == "" {
				name = objectID
			}
			return p.Sprintf("Invoice %s %s (%s, Rp %.0f)",
				name, action.Past(), rec.RelName("partner_id"), rec.Float("amount_total"))
		},
	},
	model.KindExpense: {
		fetch: func(g ErpGateway, id int64) (erp.Record, error) { return g.GetExpense(id) },
		guard: func(rec erp.Record, action model.ApprovalAction) *apperr.Error { return nil },
		apply: func(g ErpGateway, id int64, action model.ApprovalAction, reason string) (string, error) {
			if action == model.ActionApprove {
				return g.ApproveExpense(id)
			}
			// Expense rejection has no remote workflow call yet; the
			// attempt is still audited with the placeholder state.
			return "refused", nil
		},
		summary: func(p *message.Printer, rec erp.Record, action model.ApprovalAction, objectID string) string {
			name := rec.Str("name")
			if name == "" {
				name = objectID
			}
			return p.Sprintf("Expense %s %s (%s, Rp %.0f)",
				name, action.Past(), rec.RelName("employee_id"), rec.Float("total_amount"))
		},
	},
	model.KindLeave: {
		fetch: func(g ErpGateway, id int64) (erp.Record, error) { return g.GetLeave(id) },
		guard: func(rec erp.Record, action model.ApprovalAction) *apperr.Error { return nil },
		apply: func(g ErpGateway, id int64, action model.ApprovalAction, reason string) (string, error) {
			if action == model.ActionApprove {
				return g.ApproveLeave(id)
			}
			return g.RejectLeave(id)
		},
		summary: func(p *message.Printer, rec erp.Record, action model.ApprovalAction, objectID string) string {
			name := rec.Str("display_name")
			if name == "" {
				name = objectID
			}
			return p.Sprintf("Leave %s %s (%s, %g days)",
				name, action.Past(), rec.RelName("employee_id"), rec.Float("number_of_days"))
		},
	},
}

// Process runs the approval pipeline: fetch a snapshot, check the state
// guard, perform the remote call, and write exactly one audit entry for
// the attempt. Concurrent attempts are not serialized here; the ERP's own
// state machine is the backstop and the loser surfaces as invalid_state.
func (s *approvalService) Process(ctx context.Context, dbName string, kind model.ObjectKind, objectID string, req model.ApprovalRequest) (model.ApprovalResponse, error) {
	spec, ok := kindSpecs[kind]
	if !ok {
		return model.ApprovalResponse{}, apperr.Validation(
			fmt.Sprintf("unknown object kind %q", kind), nil)
	}

	id, err := strconv.ParseInt(objectID, 10, 64)
	if err != nil || id <= 0 {
		return model.ApprovalResponse{}, apperr.Validation(
			"object id must be a positive integer",
			map[string]any{"object_id": objectID})
	}

	gateway, err := s.gateway(dbName)
	if err != nil {
		return model.ApprovalResponse{}, err
	}

	logger := s.logger.With(
		zap.String("erp_db", dbName),
		zap.String("kind", string(kind)),
		zap.String("object_id", objectID),
		zap.String("action", string(req.Action)),
		zap.String("actor", req.Actor),
	)

	record := func(result model.ApprovalResult, errText string, snapshot erp.Record) {
		entry := ApprovalAuditEntry{
			Kind:      kind,
			Action:    req.Action,
			ObjectID:  objectID,
			ErpDB:     dbName,
			Actor:     req.Actor,
			ActorRole: req.ActorRole,
			Source:    req.Source,
			RequestID: req.RequestID,
			Result:    result,
			Error:     errText,
			Metadata:  req.Metadata,
		}
		if snapshot != nil {
			entry.ObjectData = map[string]any(snapshot)
		}
		// Audit is best effort: the remote state change already happened
		// (or was refused) and must not be rolled back by a storage error.
		if _, auditErr := s.audit.LogApproval(ctx, entry); auditErr != nil {
			logger.Warn("approval audit entry lost", zap.Error(auditErr))
		}
	}

	snapshot, err := spec.fetch(gateway, id)
	if err != nil {
		record(model.ResultFailed, err.Error(), nil)
		return model.ApprovalResponse{}, err
	}
	if snapshot == nil {
		return model.ApprovalResponse{}, apperr.NotFound(
			fmt.Sprintf("%s %s not found in %s", kind, objectID, dbName),
			map[string]any{"object_id": objectID})
	}

	if guardErr := spec.guard(snapshot, req.Action); guardErr != nil {
		record(model.ResultDenied, guardErr.Message, snapshot)
		logger.Info("approval denied by state guard", zap.String("code", guardErr.Code))
		return model.ApprovalResponse{}, guardErr
	}

	newState, err := spec.apply(gateway, id, req.Action, req.Reason)
	if err != nil {
		record(model.ResultFailed, err.Error(), snapshot)
		logger.Error("remote approval call failed", zap.Error(err))
		return model.ApprovalResponse{}, err
	}
	if kind == model.KindExpense && req.Action == model.ActionReject {
		logger.Warn("expense rejection recorded without remote workflow call")
	}

	record(model.ResultSuccess, "", snapshot)
	logger.Info("approval processed", zap.String("new_state", newState))

	return model.ApprovalResponse{
		Success:    true,
		ObjectType: kind,
		ObjectID:   objectID,
		Action:     req.Action,
		NewState:   newState,
		Actor:      req.Actor,
		Timestamp:  timeutil.UTCNow(),
		Summary:    spec.summary(s.printer, snapshot, req.Action, objectID),
		Result:     model.ResultSuccess,
	}, nil
}
