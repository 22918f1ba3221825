package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uof-cases/incident-service/internal/agency"
	"github.com/uof-cases/incident-service/internal/authz"
	"github.com/uof-cases/incident-service/internal/config"
	"github.com/uof-cases/incident-service/internal/events"
	"github.com/uof-cases/incident-service/internal/models"
	"github.com/uof-cases/incident-service/internal/pagination"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RequiredSections must all be present in a report's form before it can be submitted.
var RequiredSections = []string{
	"incidentDetails",
	"useOfForceDetails",
	"relocationAndInjuries",
	"evidence",
}

// StaffRef identifies a member of staff involved in an incident. Email may be
// empty until it is resolved.
type StaffRef struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// StatementNotifier tells staff that a statement is required from them.
type StatementNotifier interface {
	SendStatementRequest(ctx context.Context, report models.Report, st models.Statement) error
}

// SubmitOutcome describes a submitted report. FailedNotifications lists the
// users whose statement request email could not be sent; the submission
// itself is committed regardless.
type SubmitOutcome struct {
	ReportID            uuid.UUID   `json:"report_id"`
	StatementIDs        []uuid.UUID `json:"statement_ids"`
	FailedNotifications []string    `json:"failed_notifications,omitempty"`
}

var forwardTransitions = map[models.ReportStatus]models.ReportStatus{
	models.ReportInProgress: models.ReportSubmitted,
	models.ReportSubmitted:  models.ReportComplete,
}

type ReportService struct {
	db             *gorm.DB
	notifier       StatementNotifier
	events         events.Publisher
	reminderOffset time.Duration
	overdueOffset  time.Duration
	now            func() time.Time
}

func NewReportService(db *gorm.DB, cfg *config.Config, notifier StatementNotifier, publisher events.Publisher) *ReportService {
	return &ReportService{
		db:             db,
		notifier:       notifier,
		events:         publisher,
		reminderOffset: cfg.StatementReminderOffset,
		overdueOffset:  cfg.StatementOverdueOffset,
		now:            time.Now,
	}
}

// WithClock replaces the time source, for tests and replays.
func (s *ReportService) WithClock(now func() time.Time) *ReportService {
	s.now = now
	return s
}

func (s *ReportService) CreateDraft(ctx context.Context, owner StaffRef, subjectRef, agencyID string, form map[string]any) (uuid.UUID, error) {
	subjectRef = strings.TrimSpace(subjectRef)
	if subjectRef == "" {
		return uuid.Nil, NewValidationError("subject_ref", "is required")
	}
	if agencyID == "" {
		return uuid.Nil, NewValidationError("agency_id", "is required")
	}
	if owner.UserID == "" {
		return uuid.Nil, ErrUnauthorized
	}

	now := s.now().UTC()
	var reportID uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Report{}).
			Where("owner_id = ? AND subject_ref = ?", owner.UserID, subjectRef).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicateReport
		}

		var maxSeq int
		if err := tx.Unscoped().Model(&models.Report{}).
			Where("owner_id = ? AND subject_ref = ?", owner.UserID, subjectRef).
			Select("COALESCE(MAX(sequence_no), 0)").
			Scan(&maxSeq).Error; err != nil {
			return err
		}

		report := models.Report{
			OwnerID:    owner.UserID,
			OwnerName:  owner.Name,
			SubjectRef: subjectRef,
			SequenceNo: maxSeq + 1,
			AgencyID:   agencyID,
			Status:     models.ReportInProgress,
			Form:       datatypes.JSONMap(copyForm(form)),
		}
		if err := tx.Create(&report).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateReport
			}
			return err
		}
		reportID = report.ID
		return writeLog(tx, report.ID, owner.UserID, models.ActionReportCreated, nil, now)
	})
	if err != nil {
		return uuid.Nil, classifyStoreError(err)
	}
	return reportID, nil
}

func (s *ReportService) UpdateDraft(ctx context.Context, ownerID string, reportID uuid.UUID, form map[string]any, incidentDate *time.Time) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		report, err := lockOwnedReport(tx, ownerID, reportID)
		if err != nil {
			return err
		}
		if report.Status != models.ReportInProgress {
			return NewValidationError("status", "report has already been submitted")
		}

		merged := copyForm(report.Form)
		for section, answers := range form {
			merged[section] = answers
		}
		updates := map[string]any{"form": datatypes.JSONMap(merged)}
		if incidentDate != nil {
			updates["incident_date"] = incidentDate.UTC()
		}

		return tx.Model(&models.Report{}).
			Where("id = ? AND status = ?", reportID, models.ReportInProgress).
			Updates(updates).Error
	})
	return notFoundOr(err)
}

// Submit moves a draft to SUBMITTED and requests a statement from every
// involved member of staff, the submitter included.
func (s *ReportService) Submit(ctx context.Context, ownerID string, reportID uuid.UUID, submitter StaffRef, involved []StaffRef) (*SubmitOutcome, error) {
	staff, err := dedupeStaff(submitter, involved)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var (
		report     models.Report
		statements []models.Statement
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := lockOwnedReport(tx, ownerID, reportID)
		if err != nil {
			return err
		}
		if r.Status != models.ReportInProgress {
			return NewValidationError("status", "report has already been submitted")
		}
		if missing := missingSections(r); len(missing) > 0 {
			return &IncompleteReportError{Missing: missing}
		}

		changed, err := s.ChangeStatus(tx, reportID, models.ReportInProgress, models.ReportSubmitted)
		if err != nil {
			return err
		}
		if !changed {
			return NewValidationError("status", "report has already been submitted")
		}
		if err := tx.Model(&models.Report{}).Where("id = ?", reportID).
			Update("submitted_date", now).Error; err != nil {
			return err
		}

		statements = make([]models.Statement, 0, len(staff))
		for _, member := range staff {
			statements = append(statements, models.Statement{
				ReportID:         reportID,
				UserID:           member.UserID,
				Name:             member.Name,
				Email:            member.Email,
				Status:           models.StatementPending,
				NextReminderDate: now.Add(s.reminderOffset),
				OverdueDate:      now.Add(s.overdueOffset),
			})
		}
		if err := tx.Create(&statements).Error; err != nil {
			return err
		}

		r.Status = models.ReportSubmitted
		r.SubmittedDate = &now
		report = *r
		return writeLog(tx, reportID, ownerID, models.ActionReportSubmitted,
			map[string]any{"statements": len(statements)}, now)
	})
	if err != nil {
		return nil, notFoundOr(err)
	}

	outcome := &SubmitOutcome{ReportID: reportID}
	for _, st := range statements {
		outcome.StatementIDs = append(outcome.StatementIDs, st.ID)
		if st.Email == "" {
			continue
		}
		if err := s.notifier.SendStatementRequest(ctx, report, st); err != nil {
			slog.Error("failed to send statement request",
				"report_id", reportID.String(), "statement_id", st.ID.String(),
				"user_id", st.UserID, "action", "statement_request", "error", err)
			outcome.FailedNotifications = append(outcome.FailedNotifications, st.UserID)
		}
	}

	s.events.Publish(ctx, events.Event{
		Name:       "Report.Submitted",
		Properties: map[string]any{"reportId": reportID.String(), "statements": len(statements)},
	})
	return outcome, nil
}

// Delete soft-deletes a report together with its statements and amendments.
func (s *ReportService) Delete(ctx context.Context, actor authz.Principal, reportID uuid.UUID) error {
	if !authz.CanDeleteReport(actor) {
		return ErrUnauthorized
	}

	now := s.now().UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var report models.Report
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", reportID).First(&report).Error; err != nil {
			return err
		}
		if report.AgencyID != actor.AgencyID {
			return gorm.ErrRecordNotFound
		}

		statementIDs := tx.Session(&gorm.Session{NewDB: true}).Unscoped().
			Model(&models.Statement{}).Select("id").Where("report_id = ?", reportID)
		if err := tx.Where("statement_id IN (?)", statementIDs).
			Delete(&models.StatementAmendment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("report_id = ?", reportID).Delete(&models.Statement{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&report).Error; err != nil {
			return err
		}
		return writeLog(tx, reportID, actor.UserID, models.ActionReportDeleted,
			map[string]any{"previousStatus": string(report.Status)}, now)
	})
	return notFoundOr(err)
}

// ChangeStatus advances a report from expected to next inside tx. It reports
// false without error when the report is no longer in expected, which makes
// racing transitions a no-op for every caller but the first.
func (s *ReportService) ChangeStatus(tx *gorm.DB, reportID uuid.UUID, expected, next models.ReportStatus) (bool, error) {
	if forwardTransitions[expected] != next {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, expected, next)
	}

	result := tx.Model(&models.Report{}).
		Where("id = ? AND status = ?", reportID, expected).
		Update("status", next)
	if result.Error != nil {
		return false, classifyStoreError(result.Error)
	}
	return result.RowsAffected == 1, nil
}

// Get returns a report visible to actor: their own, or any report in their
// agency when they may view incidents.
func (s *ReportService) Get(ctx context.Context, actor authz.Principal, reportID uuid.UUID) (*models.Report, error) {
	var report models.Report
	if err := s.db.WithContext(ctx).Where("id = ?", reportID).First(&report).Error; err != nil {
		return nil, notFoundOr(err)
	}
	if report.OwnerID == actor.UserID {
		return &report, nil
	}
	if authz.CanViewIncidents(actor) && report.AgencyID == actor.AgencyID {
		return &report, nil
	}
	return nil, ErrNotFound
}

func (s *ReportService) ListForOwner(ctx context.Context, ownerID string, page int) (pagination.Page[models.Report], error) {
	query := s.db.WithContext(ctx).Model(&models.Report{}).
		Where("owner_id = ?", ownerID).
		Session(&gorm.Session{})
	return pageOf[models.Report](query, "created_at DESC", page, pagination.DefaultPageSize)
}

// ListForAgency lists the incidents of the actor's agency, optionally by status.
func (s *ReportService) ListForAgency(ctx context.Context, actor authz.Principal, status string, page int) (pagination.Page[models.Report], error) {
	if !authz.CanViewIncidents(actor) {
		return pagination.Page[models.Report]{}, ErrUnauthorized
	}

	query := s.db.WithContext(ctx).Model(&models.Report{}).Scopes(agency.ForAgency(actor.AgencyID))
	if status != "" {
		st := models.ReportStatus(strings.ToUpper(status))
		switch st {
		case models.ReportInProgress, models.ReportSubmitted, models.ReportComplete:
		default:
			return pagination.Page[models.Report]{}, NewValidationError("status", "unknown status "+status)
		}
		query = query.Where("status = ?", st)
	}
	return pageOf[models.Report](query.Session(&gorm.Session{}), "incident_date DESC, created_at DESC", page, pagination.DefaultPageSize)
}

// Logs returns the audit trail of a report, oldest first.
func (s *ReportService) Logs(ctx context.Context, actor authz.Principal, reportID uuid.UUID) ([]models.ReportLog, error) {
	if !authz.CanViewIncidents(actor) {
		return nil, ErrUnauthorized
	}
	if _, err := s.Get(ctx, actor, reportID); err != nil {
		return nil, err
	}

	var logs []models.ReportLog
	if err := s.db.WithContext(ctx).Where("report_id = ?", reportID).
		Order("timestamp ASC").Find(&logs).Error; err != nil {
		return nil, classifyStoreError(err)
	}
	return logs, nil
}

func lockOwnedReport(tx *gorm.DB, ownerID string, reportID uuid.UUID) (*models.Report, error) {
	var report models.Report
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND owner_id = ?", reportID, ownerID).
		First(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func dedupeStaff(submitter StaffRef, involved []StaffRef) ([]StaffRef, error) {
	if strings.TrimSpace(submitter.UserID) == "" {
		return nil, ErrUnauthorized
	}

	seen := make(map[string]bool, len(involved)+1)
	staff := make([]StaffRef, 0, len(involved)+1)
	for i, member := range append([]StaffRef{submitter}, involved...) {
		member.UserID = strings.TrimSpace(member.UserID)
		if member.UserID == "" {
			return nil, NewValidationError(fmt.Sprintf("involved_staff[%d]", i-1), "user id is required")
		}
		if seen[member.UserID] {
			continue
		}
		seen[member.UserID] = true
		staff = append(staff, member)
	}
	return staff, nil
}

func missingSections(r *models.Report) []string {
	var missing []string
	if r.IncidentDate == nil {
		missing = append(missing, "incidentDate")
	}
	for _, section := range RequiredSections {
		answers, ok := r.Form[section]
		if !ok || answers == nil {
			missing = append(missing, section)
			continue
		}
		if m, isMap := answers.(map[string]any); isMap && len(m) == 0 {
			missing = append(missing, section)
		}
	}
	return missing
}

func copyForm(form map[string]any) map[string]any {
	out := make(map[string]any, len(form))
	for k, v := range form {
		out[k] = v
	}
	return out
}

func writeLog(tx *gorm.DB, reportID uuid.UUID, userID string, action models.ReportAction, details map[string]any, at time.Time) error {
	entry := models.ReportLog{
		ReportID:  reportID,
		UserID:    userID,
		Action:    action,
		Timestamp: at,
	}
	if details != nil {
		entry.Details = datatypes.JSONMap(details)
	}
	return tx.Create(&entry).Error
}

// pageOf runs a count and an offset/limit query over a reusable base query.
func pageOf[T any](query *gorm.DB, order string, page, pageSize int) (pagination.Page[T], error) {
	offset, limit, err := pagination.OffsetAndLimitForPage(page, pageSize)
	if err != nil {
		return pagination.Page[T]{}, NewValidationError("page", err.Error())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return pagination.Page[T]{}, classifyStoreError(err)
	}

	items := []T{}
	if err := query.Order(order).Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return pagination.Page[T]{}, classifyStoreError(err)
	}

	md, err := pagination.MetaDataForPage(page, int(total), pageSize)
	if err != nil {
		return pagination.Page[T]{}, NewValidationError("page", err.Error())
	}
	return pagination.Page[T]{Items: items, MetaData: md}, nil
}
