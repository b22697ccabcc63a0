package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"mmcore/internal/apperr"
	"mmcore/internal/frappe"
	"mmcore/internal/metabase"
	"mmcore/internal/model"
)

const (
	colorGood    = "#36a64f"
	colorWarning = "#ffcc00"
	colorDanger  = "#d9534f"
	colorInfo    = "#3aa3e3"
)

type SlashService interface {
	Execute(ctx context.Context, req model.SlashCommandRequest) (model.SlashCommandResponse, error)
	Help() model.SlashCommandResponse
}

type slashService struct {
	contexts  ContextService
	metrics   MetricsService
	metabase  *metabase.Client
	frappe    *frappe.Client
	defaultDB string
	logger    *zap.Logger
	printer   *message.Printer
}

func NewSlashService(contexts ContextService, metrics MetricsService, mb *metabase.Client, fp *frappe.Client, defaultDB string, logger *zap.Logger) SlashService {
	return &slashService{
		contexts:  contexts,
		metrics:   metrics,
		metabase:  mb,
		frappe:    fp,
		defaultDB: defaultDB,
		logger:    logger,
		printer:   message.NewPrinter(language.English),
	}
}

// Execute routes one slash command invocation. Errors in subcommands are
// rendered as ephemeral chat messages, never HTTP errors: the chat
// platform shows raw 4xx/5xx bodies to the user.
func (s *slashService) Execute(ctx context.Context, req model.SlashCommandRequest) (model.SlashCommandResponse, error) {
	command := strings.TrimPrefix(req.Command, "/")
	args := strings.Fields(req.Text)

	s.logger.Info("slash command",
		zap.String("command", command),
		zap.String("text", req.Text),
		zap.String("user", req.UserName))

	switch command {
	case "erp":
		return s.erpCommand(ctx, args), nil
	case "hr":
		return s.hrCommand(ctx, args), nil
	case "frappe":
		return s.frappeCommand(ctx, args), nil
	case "metabase":
		return s.metabaseCommand(ctx, args), nil
	case "access":
		return s.accessCommand(req, args), nil
	default:
		return model.SlashCommandResponse{}, apperr.Validation(
			fmt.Sprintf("unknown command /%s", command),
			map[string]any{"command": req.Command})
	}
}

func ephemeral(text string) model.SlashCommandResponse {
	return model.SlashCommandResponse{ResponseType: "ephemeral", Text: text}
}

func (s *slashService) erpCommand(ctx context.Context, args []string) model.SlashCommandResponse {
	if len(args) == 0 || args[0] == "help" {
		return ephemeral("Usage: /erp invoice <id> | /erp pending | /erp sales")
	}

	switch args[0] {
	case "invoice":
		if len(args) < 2 {
			return ephemeral("Usage: /erp invoice <id>")
		}
		return s.invoiceCard(ctx, args[1])
	case "pending":
		return s.pendingCard(ctx)
	case "sales":
		return s.salesCard(ctx)
	default:
		return ephemeral(fmt.Sprintf("Unknown subcommand %q. Try /erp help", args[0]))
	}
}

func (s *slashService) invoiceCard(ctx context.Context, objectID string) model.SlashCommandResponse {
	oc, err := s.contexts.ObjectContext(ctx, s.defaultDB, model.KindInvoice, objectID)
	if err != nil {
		appErr := apperr.From(err)
		return ephemeral(fmt.Sprintf("Could not load invoice %s: %s", objectID, appErr.Message))
	}

	color := colorInfo
	if oc.DaysOverdue > 0 {
		color = colorDanger
	} else if len(oc.AvailableActions) > 0 {
		color = colorWarning
	}

	fields := []model.AttachmentField{
		{Title: "State", Value: oc.State, Short: true},
		{Title: "Amount", Value: s.printer.Sprintf("Rp %.0f", oc.Amount), Short: true},
		{Title: "Partner", Value: oc.Partner, Short: true},
	}
	if oc.DaysOverdue > 0 {
		fields = append(fields, model.AttachmentField{
			Title: "Overdue", Value: fmt.Sprintf("%d days", oc.DaysOverdue), Short: true,
		})
	}

	return model.SlashCommandResponse{
		ResponseType: "ephemeral",
		Attachments: []model.Attachment{{
			Color:    color,
			Title:    fmt.Sprintf("Invoice %s (#%s)", oc.DisplayName, oc.ObjectID),
			Fields:   fields,
			Fallback: fmt.Sprintf("Invoice %s: %s", oc.DisplayName, oc.State),
			Footer:   s.defaultDB,
		}},
	}
}

func (s *slashService) pendingCard(ctx context.Context) model.SlashCommandResponse {
	pending, err := s.contexts.PendingApprovals(ctx, s.defaultDB)
	if err != nil {
		return ephemeral("Could not load pending approvals: " + apperr.From(err).Message)
	}
	if pending.Count == 0 {
		return ephemeral("Nothing is waiting for approval.")
	}

	var lines []string
	for i, item := range pending.Items {
		if i >= 10 {
			lines = append(lines, fmt.Sprintf("… and %d more", pending.Count-10))
			break
		}
		lines = append(lines, s.printer.Sprintf("• %s — Rp %.0f, waiting %d days [%s]",
			item.DisplayName, item.Amount, item.DaysPending, item.Priority))
	}

	return model.SlashCommandResponse{
		ResponseType: "ephemeral",
		Attachments: []model.Attachment{{
			Color:    colorWarning,
			Title:    fmt.Sprintf("%d items pending approval", pending.Count),
			Text:     strings.Join(lines, "\n"),
			Fallback: fmt.Sprintf("%d items pending approval", pending.Count),
			Footer:   s.defaultDB,
		}},
	}
}

func (s *slashService) salesCard(ctx context.Context) model.SlashCommandResponse {
	today, err := s.metrics.SalesToday(ctx, s.defaultDB)
	if err != nil {
		return ephemeral("Could not load sales metrics: " + apperr.From(err).Message)
	}

	fields := []model.AttachmentField{
		{Title: "Revenue", Value: s.printer.Sprintf("Rp %.0f", today.TotalRevenue), Short: true},
		{Title: "Orders", Value: strconv.FormatInt(today.OrderCount, 10), Short: true},
	}
	if today.ComparisonPrevious != "" {
		fields = append(fields, model.AttachmentField{
			Title: "Trend", Value: today.ComparisonPrevious, Short: true,
		})
	}

	return model.SlashCommandResponse{
		ResponseType: "ephemeral",
		Attachments: []model.Attachment{{
			Color:    colorGood,
			Title:    "Sales today",
			Fields:   fields,
			Fallback: s.printer.Sprintf("Sales today: Rp %.0f", today.TotalRevenue),
			Footer:   s.defaultDB,
		}},
	}
}

func (s *slashService) hrCommand(ctx context.Context, args []string) model.SlashCommandResponse {
	if len(args) == 0 || args[0] == "help" {
		return ephemeral("Usage: /hr leave <id> | /hr pending")
	}

	switch args[0] {
	case "leave":
		if len(args) < 2 {
			return ephemeral("Usage: /hr leave <id>")
		}
		oc, err := s.contexts.ObjectContext(ctx, "hris_db", model.KindLeave, args[1])
		if err != nil {
			return ephemeral(fmt.Sprintf("Could not load leave %s: %s", args[1], apperr.From(err).Message))
		}
		return model.SlashCommandResponse{
			ResponseType: "ephemeral",
			Attachments: []model.Attachment{{
				Color: colorInfo,
				Title: fmt.Sprintf("Leave %s (#%s)", oc.DisplayName, oc.ObjectID),
				Fields: []model.AttachmentField{
					{Title: "State", Value: oc.State, Short: true},
					{Title: "Employee", Value: oc.Partner, Short: true},
				},
				Fallback: fmt.Sprintf("Leave %s: %s", oc.DisplayName, oc.State),
				Footer:   "hris_db",
			}},
		}
	case "pending":
		return ephemeral("Pending leave listing is available via GET /api/v1/pending/approvals?db=hris_db")
	default:
		return ephemeral(fmt.Sprintf("Unknown subcommand %q. Try /hr help", args[0]))
	}
}

func (s *slashService) frappeCommand(ctx context.Context, args []string) model.SlashCommandResponse {
	if len(args) == 0 || args[0] == "help" {
		return ephemeral("Usage: /frappe crm leads | /frappe crm customer <name> | /frappe order <id> | /frappe doc <doctype> <name>")
	}
	if !s.frappe.Configured() {
		return ephemeral("Document platform credentials are not configured.")
	}

	switch args[0] {
	case "crm":
		if len(args) >= 2 && args[1] == "leads" {
			leads, err := s.frappe.GetList(ctx, "Lead",
				[][]any{{"status", "=", "Open"}},
				[]string{"name", "lead_name", "company_name", "status"}, 10)
			if err != nil {
				return ephemeral("Could not load leads: " + apperr.From(err).Message)
			}
			var lines []string
			for _, lead := range leads {
				lines = append(lines, fmt.Sprintf("• %v — %v", lead["lead_name"], lead["company_name"]))
			}
			if len(lines) == 0 {
				return ephemeral("No open leads.")
			}
			return model.SlashCommandResponse{
				ResponseType: "ephemeral",
				Attachments: []model.Attachment{{
					Color: colorInfo,
					Title: fmt.Sprintf("%d open leads", len(lines)),
					Text:  strings.Join(lines, "\n"),
				}},
			}
		}
		if len(args) >= 3 && args[1] == "customer" {
			name := strings.Join(args[2:], " ")
			doc, err := s.frappe.GetDoc(ctx, "Customer", name)
			if err != nil {
				return ephemeral(fmt.Sprintf("Could not load customer %q: %s", name, apperr.From(err).Message))
			}
			return model.SlashCommandResponse{
				ResponseType: "ephemeral",
				Attachments: []model.Attachment{{
					Color: colorInfo,
					Title: fmt.Sprintf("Customer %v", doc["customer_name"]),
					Fields: []model.AttachmentField{
						{Title: "Group", Value: fmt.Sprint(doc["customer_group"]), Short: true},
						{Title: "Territory", Value: fmt.Sprint(doc["territory"]), Short: true},
					},
				}},
			}
		}
		return ephemeral("Usage: /frappe crm leads | /frappe crm customer <name>")
	case "order":
		if len(args) < 2 {
			return ephemeral("Usage: /frappe order <id>")
		}
		doc, err := s.frappe.GetDoc(ctx, "Sales Order", args[1])
		if err != nil {
			return ephemeral(fmt.Sprintf("Could not load order %s: %s", args[1], apperr.From(err).Message))
		}
		return model.SlashCommandResponse{
			ResponseType: "ephemeral",
			Attachments: []model.Attachment{{
				Color: colorInfo,
				Title: fmt.Sprintf("Sales Order %v", doc["name"]),
				Fields: []model.AttachmentField{
					{Title: "Customer", Value: fmt.Sprint(doc["customer"]), Short: true},
					{Title: "Status", Value: fmt.Sprint(doc["status"]), Short: true},
					{Title: "Total", Value: fmt.Sprint(doc["grand_total"]), Short: true},
				},
			}},
		}
	case "doc":
		if len(args) < 3 {
			return ephemeral("Usage: /frappe doc <doctype> <name>")
		}
		doc, err := s.frappe.GetDoc(ctx, args[1], strings.Join(args[2:], " "))
		if err != nil {
			return ephemeral("Could not load document: " + apperr.From(err).Message)
		}
		return model.SlashCommandResponse{
			ResponseType: "ephemeral",
			Attachments: []model.Attachment{{
				Color: colorInfo,
				Title: fmt.Sprintf("%s %v", args[1], doc["name"]),
				Text:  fmt.Sprintf("Modified %v by %v", doc["modified"], doc["modified_by"]),
			}},
		}
	default:
		return ephemeral(fmt.Sprintf("Unknown subcommand %q. Try /frappe help", args[0]))
	}
}

func (s *slashService) metabaseCommand(ctx context.Context, args []string) model.SlashCommandResponse {
	if len(args) == 0 || args[0] == "help" {
		return ephemeral("Usage: /metabase dashboard <name> | /metabase question <id> | /metabase search <text>")
	}

	switch args[0] {
	case "dashboard":
		if len(args) < 2 {
			return ephemeral("Usage: /metabase dashboard <name>")
		}
		name := args[1]
		id := s.metabase.DashboardID(name)
		if id == 0 {
			return ephemeral(fmt.Sprintf("Unknown dashboard %q. Try /metabase search %s", name, name))
		}
		url, err := s.metabase.EmbeddedDashboardURL(id, nil, 0)
		if err != nil {
			s.logger.Warn("embed link unavailable, falling back to app link", zap.Error(err))
			url = s.metabase.DashboardURL(id)
		}
		return model.SlashCommandResponse{
			ResponseType: "ephemeral",
			Attachments: []model.Attachment{{
				Color:     colorInfo,
				Title:     fmt.Sprintf("Dashboard: %s", name),
				TitleLink: url,
				Text:      url,
			}},
		}
	case "question":
		if len(args) < 2 {
			return ephemeral("Usage: /metabase question <id>")
		}
		id, err := strconv.Atoi(args[1])
		if err != nil {
			return ephemeral("Question id must be a number.")
		}
		return ephemeral(s.metabase.QuestionURL(id))
	case "search":
		if len(args) < 2 {
			return ephemeral("Usage: /metabase search <text>")
		}
		results, err := s.metabase.SearchDashboards(ctx, strings.Join(args[1:], " "))
		if err != nil {
			return ephemeral("Search unavailable: " + apperr.From(err).Message)
		}
		if len(results) == 0 {
			return ephemeral("No dashboards matched.")
		}
		var lines []string
		for _, r := range results {
			lines = append(lines, fmt.Sprintf("• [%s](%s)", r.Name, r.URL))
		}
		return model.SlashCommandResponse{
			ResponseType: "ephemeral",
			Text:         strings.Join(lines, "\n"),
		}
	default:
		return ephemeral(fmt.Sprintf("Unknown subcommand %q. Try /metabase help", args[0]))
	}
}

func (s *slashService) accessCommand(req model.SlashCommandRequest, args []string) model.SlashCommandResponse {
	if len(args) == 0 || args[0] == "help" {
		return ephemeral("Usage: /access request <system> | /access status")
	}

	switch args[0] {
	case "request":
		if len(args) < 2 {
			return ephemeral("Usage: /access request <system>")
		}
		return model.SlashCommandResponse{
			ResponseType: "ephemeral",
			Attachments: []model.Attachment{{
				Color: colorGood,
				Title: "Access request submitted",
				Text: fmt.Sprintf("@%s requested access to %s. An administrator will review it.",
					req.UserName, args[1]),
			}},
		}
	case "status":
		return ephemeral("You have no open access requests.")
	default:
		return ephemeral(fmt.Sprintf("Unknown subcommand %q. Try /access help", args[0]))
	}
}

// Help lists every command group for the help endpoint.
func (s *slashService) Help() model.SlashCommandResponse {
	return model.SlashCommandResponse{
		ResponseType: "ephemeral",
		Text: strings.Join([]string{
			"Available commands:",
			"/erp invoice <id> — invoice status and actions",
			"/erp pending — items waiting for approval",
			"/erp sales — today's sales summary",
			"/hr leave <id> — leave request status",
			"/frappe crm leads — open CRM leads",
			"/frappe crm customer <name> — customer card",
			"/frappe order <id> — sales order card",
			"/frappe doc <doctype> <name> — any document",
			"/metabase dashboard <name> — signed dashboard link",
			"/metabase question <id> — question link",
			"/metabase search <text> — find dashboards",
			"/access request <system> — request system access",
			"/access status — your open requests",
		}, "\n"),
	}
}
