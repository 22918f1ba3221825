package identity

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/uof-cases/incident-service/internal/models"
	"gorm.io/gorm"
)

// EmailLookup is satisfied by Client.
type EmailLookup interface {
	Email(ctx context.Context, username string) (*UserEmail, error)
}

// Resolver finds verified addresses for staff and stores them on their statement.
type Resolver struct {
	lookup EmailLookup
}

func NewResolver(lookup EmailLookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// ResolveEmail returns "" when no verified address is available. Auth service
// failures are logged and treated the same way; only store errors are returned.
func (r *Resolver) ResolveEmail(ctx context.Context, tx *gorm.DB, userID string, reportID uuid.UUID) (string, error) {
	user, err := r.lookup.Email(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			slog.WarnContext(ctx, "email lookup failed",
				"action", "resolve_email", "user_id", userID, "report_id", reportID.String(), "error", err)
		}
		return "", nil
	}
	if user.Email == "" || !user.Verified {
		return "", nil
	}

	if err := tx.Model(&models.Statement{}).
		Where("report_id = ? AND user_id = ?", reportID, userID).
		Update("email", user.Email).Error; err != nil {
		return "", err
	}
	return user.Email, nil
}
