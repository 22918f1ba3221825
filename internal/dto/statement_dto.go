package dto

type SaveStatementRequest struct {
	LastTrainingMonth *int    `json:"last_training_month"`
	LastTrainingYear  *int    `json:"last_training_year"`
	JobStartYear      *int    `json:"job_start_year"`
	Statement         *string `json:"statement"`
}

type RemovalRequest struct {
	Reason string `json:"reason"`
}

type AmendmentRequest struct {
	Comment string `json:"comment"`
}
