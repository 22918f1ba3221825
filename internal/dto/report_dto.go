package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateReportRequest struct {
	SubjectRef string         `json:"subject_ref"`
	Form       map[string]any `json:"form"`
}

type CreateReportResponse struct {
	ID uuid.UUID `json:"id"`
}

type UpdateReportRequest struct {
	Form         map[string]any `json:"form"`
	IncidentDate *time.Time     `json:"incident_date"`
}

type StaffRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

type SubmitReportRequest struct {
	InvolvedStaff []StaffRequest `json:"involved_staff"`
}

type RunRemindersResponse struct {
	Sent int `json:"sent"`
}
