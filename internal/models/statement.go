package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StatementStatus string

const (
	StatementPending   StatementStatus = "PENDING"
	StatementSubmitted StatementStatus = "SUBMITTED"
)

// Statement is one staff member's account of an incident.
// At most one non-deleted statement exists per (report, user).
type Statement struct {
	ID       uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ReportID uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_statements_report_user,where:deleted_at IS NULL" json:"report_id"`
	UserID   string          `gorm:"size:100;not null;index;uniqueIndex:idx_statements_report_user,where:deleted_at IS NULL" json:"user_id"`
	Name     string          `gorm:"size:255" json:"name"`
	Email    string          `gorm:"size:255" json:"email,omitempty"`
	Status   StatementStatus `gorm:"size:20;not null;default:'PENDING';index:idx_statements_due,priority:1" json:"status"`

	NextReminderDate time.Time  `gorm:"not null;index:idx_statements_due,priority:2" json:"next_reminder_date"`
	OverdueDate      time.Time  `gorm:"not null" json:"overdue_date"`
	SubmittedDate    *time.Time `json:"submitted_date"`
	InProgress       bool       `gorm:"not null;default:false" json:"in_progress"`

	RemovalRequestedReason *string    `gorm:"size:1000" json:"removal_requested_reason,omitempty"`
	RemovalRequestedDate   *time.Time `json:"removal_requested_date,omitempty"`

	LastTrainingMonth *int   `json:"last_training_month"`
	LastTrainingYear  *int   `json:"last_training_year"`
	JobStartYear      *int   `json:"job_start_year"`
	Narrative         string `gorm:"type:text" json:"statement"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (s *Statement) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (Statement) TableName() string {
	return "statements"
}

// StatementAmendment holds additional comments appended to a submitted statement.
type StatementAmendment struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	StatementID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"statement_id"`
	Comment       string         `gorm:"type:text;not null" json:"comment"`
	SubmittedDate time.Time      `gorm:"not null" json:"submitted_date"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (a *StatementAmendment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (StatementAmendment) TableName() string {
	return "statement_amendments"
}
