package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SystemLog stores ERROR+ application logs so failures can be queried next to case data.
type SystemLog struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Timestamp   time.Time         `gorm:"not null;index" json:"timestamp"`
	Level       string            `gorm:"size:10;not null;index" json:"level"`
	Message     string            `gorm:"type:text" json:"message"`
	TraceID     string            `gorm:"size:36;index" json:"trace_id"`
	UserID      *string           `gorm:"size:100" json:"user_id"`
	ReportID    *string           `gorm:"size:36;index" json:"report_id"`
	StatementID *string           `gorm:"size:36" json:"statement_id"`
	Action      string            `gorm:"size:100" json:"action"`
	Error       string            `gorm:"type:text" json:"error"`
	Extra       datatypes.JSONMap `json:"extra"`
	CreatedAt   time.Time         `json:"created_at"`
}

func (l *SystemLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

func (SystemLog) TableName() string {
	return "system_logs"
}
