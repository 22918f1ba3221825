package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ReportStatus string

const (
	ReportInProgress ReportStatus = "IN_PROGRESS"
	ReportSubmitted  ReportStatus = "SUBMITTED"
	ReportComplete   ReportStatus = "COMPLETE"
)

// Report is a use-of-force incident record owned by the reporting staff member.
type Report struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID       string            `gorm:"size:100;not null;index;uniqueIndex:idx_reports_owner_subject_seq,where:deleted_at IS NULL" json:"owner_id"`
	OwnerName     string            `gorm:"size:255" json:"owner_name"`
	SubjectRef    string            `gorm:"size:100;not null;index;uniqueIndex:idx_reports_owner_subject_seq,where:deleted_at IS NULL" json:"subject_ref"`
	SequenceNo    int               `gorm:"not null;uniqueIndex:idx_reports_owner_subject_seq,where:deleted_at IS NULL" json:"sequence_no"`
	AgencyID      string            `gorm:"size:50;not null;index" json:"agency_id"`
	IncidentDate  *time.Time        `json:"incident_date"`
	SubmittedDate *time.Time        `json:"submitted_date"`
	Status        ReportStatus      `gorm:"size:20;not null;default:'IN_PROGRESS';index" json:"status"`
	Form          datatypes.JSONMap `json:"form"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	DeletedAt     gorm.DeletedAt    `gorm:"index" json:"-"`
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (Report) TableName() string {
	return "reports"
}
