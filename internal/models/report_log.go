package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ReportAction string

const (
	ActionReportCreated    ReportAction = "REPORT_CREATED"
	ActionReportSubmitted  ReportAction = "REPORT_SUBMITTED"
	ActionReportComplete   ReportAction = "REPORT_COMPLETE"
	ActionReportDeleted    ReportAction = "REPORT_DELETED"
	ActionStatementRemoved ReportAction = "STATEMENT_REMOVED"
)

// ReportLog is the audit trail of lifecycle changes on a report.
type ReportLog struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	ReportID  uuid.UUID         `gorm:"type:uuid;not null;index" json:"report_id"`
	UserID    string            `gorm:"size:100;not null" json:"user_id"`
	Action    ReportAction      `gorm:"size:50;not null;index" json:"action"`
	Details   datatypes.JSONMap `json:"details,omitempty"`
	Timestamp time.Time         `gorm:"not null" json:"timestamp"`
}

func (l *ReportLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

func (ReportLog) TableName() string {
	return "report_log"
}
