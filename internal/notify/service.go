package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/uof-cases/incident-service/internal/agency"
	"github.com/uof-cases/incident-service/internal/config"
	"github.com/uof-cases/incident-service/internal/models"
	"gorm.io/gorm"
)

const dateFormat = "Monday 2 January 2006"

// EmailClient is the transport used by Service.
type EmailClient interface {
	SendEmail(ctx context.Context, templateID, to string, personalisation map[string]string, reference string) error
}

// LogClient logs emails instead of sending them, for environments with no Notify key.
type LogClient struct{}

func (LogClient) SendEmail(ctx context.Context, templateID, to string, _ map[string]string, reference string) error {
	slog.InfoContext(ctx, "email not sent, notify is not configured",
		"template_id", templateID, "to", to, "reference", reference)
	return nil
}

type Templates struct {
	Involved string
	Reminder string
	Overdue  string
}

// Service composes the statement emails.
type Service struct {
	client    EmailClient
	agencies  *agency.Registry
	templates Templates
	appURL    string
}

func NewService(client EmailClient, agencies *agency.Registry, cfg *config.Config) *Service {
	if agencies == nil {
		agencies = agency.NewRegistry()
	}
	return &Service{
		client:   client,
		agencies: agencies,
		templates: Templates{
			Involved: cfg.NotifyTemplateInvolved,
			Reminder: cfg.NotifyTemplateReminder,
			Overdue:  cfg.NotifyTemplateOverdue,
		},
		appURL: cfg.AppBaseURL,
	}
}

// SendStatementRequest asks a member of staff for their statement on a
// newly submitted report.
func (s *Service) SendStatementRequest(ctx context.Context, report models.Report, st models.Statement) error {
	return s.client.SendEmail(ctx, s.templates.Involved, st.Email, s.personalise(report, st), st.ID.String())
}

// SendReminder chases a pending statement. The report is read through tx so
// the lookup sees the claiming transaction.
func (s *Service) SendReminder(ctx context.Context, tx *gorm.DB, st models.Statement, overdue bool) error {
	var report models.Report
	if err := tx.Unscoped().Where("id = ?", st.ReportID).First(&report).Error; err != nil {
		return err
	}

	template := s.templates.Reminder
	if overdue {
		template = s.templates.Overdue
	}
	return s.client.SendEmail(ctx, template, st.Email, s.personalise(report, st), st.ID.String())
}

func (s *Service) personalise(report models.Report, st models.Statement) map[string]string {
	p := map[string]string{
		"pending_name":  st.Name,
		"reporter_name": report.OwnerName,
		"agency_name":   s.agencies.Name(report.AgencyID),
		"overdue_date":  st.OverdueDate.UTC().Format(dateFormat),
		"link":          s.appURL,
	}
	if report.IncidentDate != nil {
		p["incident_date"] = report.IncidentDate.UTC().Format(dateFormat)
		p["incident_time"] = report.IncidentDate.UTC().Format(time.Kitchen)
	}
	return p
}
