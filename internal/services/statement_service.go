package services

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/uof-cases/incident-service/internal/authz"
	"github.com/uof-cases/incident-service/internal/events"
	"github.com/uof-cases/incident-service/internal/models"
	"github.com/uof-cases/incident-service/internal/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StatementAnswer is a partial statement; nil fields are left untouched on save.
type StatementAnswer struct {
	LastTrainingMonth *int    `json:"last_training_month"`
	LastTrainingYear  *int    `json:"last_training_year"`
	JobStartYear      *int    `json:"job_start_year"`
	Statement         *string `json:"statement"`
}

// statementForm is the shape a statement must have to be submitted.
type statementForm struct {
	LastTrainingMonth *int   `json:"last_training_month" validate:"required,min=0,max=11"`
	LastTrainingYear  *int   `json:"last_training_year" validate:"required,min=1990"`
	JobStartYear      *int   `json:"job_start_year" validate:"required,min=1950"`
	Statement         string `json:"statement" validate:"required,max=20000"`
}

type StatementService struct {
	db       *gorm.DB
	reports  *ReportService
	events   events.Publisher
	validate *validator.Validate
	now      func() time.Time
}

func NewStatementService(db *gorm.DB, reports *ReportService, publisher events.Publisher) *StatementService {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return &StatementService{
		db:       db,
		reports:  reports,
		events:   publisher,
		validate: v,
		now:      time.Now,
	}
}

func (s *StatementService) WithClock(now func() time.Time) *StatementService {
	s.now = now
	return s
}

// Save stores a partial answer on the user's pending statement without
// validating it, so work in progress is never lost.
func (s *StatementService) Save(ctx context.Context, userID string, reportID uuid.UUID, answer StatementAnswer) error {
	updates := map[string]any{"in_progress": true}
	if answer.LastTrainingMonth != nil {
		updates["last_training_month"] = *answer.LastTrainingMonth
	}
	if answer.LastTrainingYear != nil {
		updates["last_training_year"] = *answer.LastTrainingYear
	}
	if answer.JobStartYear != nil {
		updates["job_start_year"] = *answer.JobStartYear
	}
	if answer.Statement != nil {
		updates["narrative"] = *answer.Statement
	}

	result := s.db.WithContext(ctx).Model(&models.Statement{}).
		Where("report_id = ? AND user_id = ? AND status = ?", reportID, userID, models.StatementPending).
		Updates(updates)
	if result.Error != nil {
		return classifyStoreError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetForUser returns the user's statement on a report.
func (s *StatementService) GetForUser(ctx context.Context, userID string, reportID uuid.UUID) (*models.Statement, error) {
	var st models.Statement
	if err := s.db.WithContext(ctx).
		Where("report_id = ? AND user_id = ?", reportID, userID).
		First(&st).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &st, nil
}

// Submit validates the saved statement and marks it SUBMITTED. When it was the
// last pending statement the report is completed in the same transaction.
func (s *StatementService) Submit(ctx context.Context, userID string, reportID uuid.UUID) error {
	now := s.now().UTC()
	completed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Submissions on one report queue on its row so the pending count below
		// sees every earlier commit.
		var report models.Report
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", reportID).First(&report).Error; err != nil {
			return err
		}

		// Validate the row as it stands under lock; a Save racing this
		// submission either lands first or finds the statement submitted.
		var st models.Statement
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("report_id = ? AND user_id = ?", reportID, userID).
			First(&st).Error; err != nil {
			return err
		}
		if st.Status != models.StatementPending {
			return NewValidationError("status", "statement has already been submitted")
		}
		if verr := s.validateStatement(&st); verr != nil {
			return verr
		}

		result := tx.Model(&models.Statement{}).
			Where("id = ? AND status = ?", st.ID, models.StatementPending).
			Updates(map[string]any{
				"status":         models.StatementSubmitted,
				"submitted_date": now,
				"in_progress":    false,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return NewValidationError("status", "statement has already been submitted")
		}

		var err error
		completed, err = s.completeIfNoPending(tx, reportID, userID, now)
		return err
	})
	if err != nil {
		return notFoundOr(err)
	}

	if completed {
		s.publishCompleted(ctx, reportID)
	}
	return nil
}

func (s *StatementService) RequestRemoval(ctx context.Context, userID string, statementID uuid.UUID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return NewValidationError("reason", "is required")
	}

	now := s.now().UTC()
	result := s.db.WithContext(ctx).Model(&models.Statement{}).
		Where("id = ? AND user_id = ? AND status = ?", statementID, userID, models.StatementPending).
		Updates(map[string]any{
			"removal_requested_reason": reason,
			"removal_requested_date":   now,
		})
	if result.Error != nil {
		return classifyStoreError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RefuseRemoval clears an outstanding removal request; the statement stays pending.
func (s *StatementService) RefuseRemoval(ctx context.Context, actor authz.Principal, statementID uuid.UUID) error {
	if !authz.CanManageStatements(actor) {
		return ErrUnauthorized
	}

	return notFoundOr(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, _, err := s.statementInAgency(tx, actor, statementID)
		if err != nil {
			return err
		}
		if st.RemovalRequestedDate == nil {
			return NewValidationError("removal_request", "no removal has been requested")
		}
		return tx.Model(&models.Statement{}).Where("id = ?", statementID).
			Updates(map[string]any{
				"removal_requested_reason": nil,
				"removal_requested_date":   nil,
			}).Error
	}))
}

// Remove takes a member of staff off a report. If the remaining statements are
// all submitted the report completes.
func (s *StatementService) Remove(ctx context.Context, actor authz.Principal, statementID uuid.UUID) error {
	if !authz.CanManageStatements(actor) {
		return ErrUnauthorized
	}

	now := s.now().UTC()
	var (
		reportID  uuid.UUID
		completed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, report, err := s.statementInAgency(tx, actor, statementID)
		if err != nil {
			return err
		}
		reportID = report.ID

		if err := tx.Where("statement_id = ?", st.ID).Delete(&models.StatementAmendment{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(st).Error; err != nil {
			return err
		}
		if err := writeLog(tx, report.ID, actor.UserID, models.ActionStatementRemoved,
			map[string]any{"userId": st.UserID, "status": string(st.Status)}, now); err != nil {
			return err
		}

		if report.Status != models.ReportSubmitted {
			return nil
		}
		completed, err = s.completeIfNoPending(tx, report.ID, actor.UserID, now)
		return err
	})
	if err != nil {
		return notFoundOr(err)
	}

	if completed {
		s.publishCompleted(ctx, reportID)
	}
	return nil
}

// AddAmendment appends a comment to one of the user's submitted statements.
func (s *StatementService) AddAmendment(ctx context.Context, userID string, statementID uuid.UUID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return NewValidationError("comment", "is required")
	}

	var st models.Statement
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", statementID, userID).
		First(&st).Error; err != nil {
		return notFoundOr(err)
	}
	if st.Status != models.StatementSubmitted {
		return NewValidationError("status", "only submitted statements can be amended")
	}

	amendment := models.StatementAmendment{
		StatementID:   st.ID,
		Comment:       text,
		SubmittedDate: s.now().UTC(),
	}
	return classifyStoreError(s.db.WithContext(ctx).Create(&amendment).Error)
}

// Amendments pages through a statement's amendments, oldest first. The
// statement's author and incident viewers of its agency may read them.
func (s *StatementService) Amendments(ctx context.Context, actor authz.Principal, statementID uuid.UUID, page int) (pagination.Page[models.StatementAmendment], error) {
	var st models.Statement
	if err := s.db.WithContext(ctx).Where("id = ?", statementID).First(&st).Error; err != nil {
		return pagination.Page[models.StatementAmendment]{}, notFoundOr(err)
	}
	if st.UserID != actor.UserID {
		if _, err := s.reports.Get(ctx, actor, st.ReportID); err != nil {
			return pagination.Page[models.StatementAmendment]{}, err
		}
	}

	var amendments []models.StatementAmendment
	if err := s.db.WithContext(ctx).Where("statement_id = ?", statementID).
		Order("submitted_date ASC").Find(&amendments).Error; err != nil {
		return pagination.Page[models.StatementAmendment]{}, classifyStoreError(err)
	}

	p, err := pagination.Slice(page, amendments, pagination.DefaultPageSize)
	if err != nil {
		return p, NewValidationError("page", err.Error())
	}
	return p, nil
}

func (s *StatementService) ListForUser(ctx context.Context, userID string, page int) (pagination.Page[models.Statement], error) {
	query := s.db.WithContext(ctx).Model(&models.Statement{}).
		Where("user_id = ?", userID).
		Session(&gorm.Session{})
	return pageOf[models.Statement](query, "status ASC, created_at DESC", page, pagination.DefaultPageSize)
}

// completeIfNoPending moves a SUBMITTED report to COMPLETE once it has no
// pending statements. Only the caller whose update advanced the report gets
// true and writes the completion log.
func (s *StatementService) completeIfNoPending(tx *gorm.DB, reportID uuid.UUID, actorID string, now time.Time) (bool, error) {
	var pending int64
	if err := tx.Model(&models.Statement{}).
		Where("report_id = ? AND status = ?", reportID, models.StatementPending).
		Count(&pending).Error; err != nil {
		return false, err
	}
	if pending > 0 {
		return false, nil
	}

	changed, err := s.reports.ChangeStatus(tx, reportID, models.ReportSubmitted, models.ReportComplete)
	if err != nil || !changed {
		return false, err
	}
	if err := writeLog(tx, reportID, actorID, models.ActionReportComplete, nil, now); err != nil {
		return false, err
	}
	return true, nil
}

func (s *StatementService) statementInAgency(tx *gorm.DB, actor authz.Principal, statementID uuid.UUID) (*models.Statement, *models.Report, error) {
	var st models.Statement
	if err := tx.Where("id = ?", statementID).First(&st).Error; err != nil {
		return nil, nil, err
	}
	var report models.Report
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", st.ReportID).First(&report).Error; err != nil {
		return nil, nil, err
	}
	if report.AgencyID != actor.AgencyID {
		return nil, nil, gorm.ErrRecordNotFound
	}
	return &st, &report, nil
}

func (s *StatementService) publishCompleted(ctx context.Context, reportID uuid.UUID) {
	s.events.Publish(ctx, events.Event{
		Name:       "Report.Completed",
		Properties: map[string]any{"reportId": reportID.String()},
	})
}

var validationMessages = map[string]string{
	"required": "is required",
	"min":      "is too small",
	"max":      "is too large",
}

func (s *StatementService) validateStatement(st *models.Statement) *ValidationError {
	form := statementForm{
		LastTrainingMonth: st.LastTrainingMonth,
		LastTrainingYear:  st.LastTrainingYear,
		JobStartYear:      st.JobStartYear,
		Statement:         strings.TrimSpace(st.Narrative),
	}

	verr := &ValidationError{Errors: map[string]string{}}
	if err := s.validate.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			verr.Errors["statement"] = err.Error()
			return verr
		}
		for _, fe := range fieldErrs {
			msg, ok := validationMessages[fe.Tag()]
			if !ok {
				msg = "is invalid"
			}
			verr.Errors[fe.Field()] = msg
		}
	}

	year := s.now().UTC().Year()
	if form.LastTrainingYear != nil && *form.LastTrainingYear > year {
		verr.Errors["last_training_year"] = "must not be in the future"
	}
	if form.JobStartYear != nil && *form.JobStartYear > year {
		verr.Errors["job_start_year"] = "must not be in the future"
	}

	if len(verr.Errors) == 0 {
		return nil
	}
	return verr
}
