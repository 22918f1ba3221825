// Package reminders chases staff whose statements are still pending.
package reminders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/uof-cases/incident-service/internal/config"
	"github.com/uof-cases/incident-service/internal/events"
	"github.com/uof-cases/incident-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultMaxIterations bounds a run when the configured limit is not positive.
const DefaultMaxIterations = 50

// Sender delivers a reminder for st. It runs inside the claiming transaction,
// so an error rolls the claim back.
type Sender interface {
	SendReminder(ctx context.Context, tx *gorm.DB, st models.Statement, overdue bool) error
}

// EmailResolver looks up an address for staff with no known email. An empty
// result without error means the address could not be found.
type EmailResolver interface {
	ResolveEmail(ctx context.Context, tx *gorm.DB, userID string, reportID uuid.UUID) (string, error)
}

type outcome int

const (
	outcomeNone outcome = iota
	outcomeSent
	outcomeSkipped
)

// Poller sends due statement reminders, one claimed statement per
// transaction, up to maxIterations per run.
type Poller struct {
	db            *gorm.DB
	sender        Sender
	resolver      EmailResolver
	events        events.Publisher
	interval      time.Duration
	maxIterations int
	now           func() time.Time
}

// NewPoller reads the reminder interval and iteration bound from cfg, falling
// back to 24h and DefaultMaxIterations.
func NewPoller(db *gorm.DB, cfg *config.Config, sender Sender, resolver EmailResolver, publisher events.Publisher) *Poller {
	maxIterations := cfg.ReminderMaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	interval := cfg.ReminderInterval
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Poller{
		db:            db,
		sender:        sender,
		resolver:      resolver,
		events:        publisher,
		interval:      interval,
		maxIterations: maxIterations,
		now:           time.Now,
	}
}

func (p *Poller) WithClock(now func() time.Time) *Poller {
	p.now = now
	return p
}

// Run sends reminders for due statements, one transaction per statement, and
// stops after maxIterations or when nothing is due. A failed iteration aborts
// the run; reminders already committed stay sent.
func (p *Poller) Run(ctx context.Context) (int, error) {
	p.events.Publish(ctx, events.Event{Name: "StatementReminders.Start"})

	sent := 0
	var skipped []uuid.UUID
	for i := 0; i < p.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		result, id, err := p.processNext(ctx, skipped)
		if err != nil {
			slog.Error("statement reminder run aborted",
				"action", "statement_reminders", "statement_id", id.String(),
				"sent", sent, "error", err)
			return sent, err
		}
		if result == outcomeNone {
			break
		}
		if result == outcomeSkipped {
			skipped = append(skipped, id)
			continue
		}
		sent++
	}

	p.events.Publish(ctx, events.Event{
		Name:       "StatementReminders.Finished",
		Properties: map[string]any{"totalSent": sent},
	})
	return sent, nil
}

func (p *Poller) processNext(ctx context.Context, skipped []uuid.UUID) (outcome, uuid.UUID, error) {
	now := p.now().UTC()
	result := outcomeNone
	var id uuid.UUID

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND next_reminder_date <= ?", models.StatementPending, now)
		if len(skipped) > 0 {
			query = query.Where("id NOT IN ?", skipped)
		}

		var st models.Statement
		if err := query.Order("next_reminder_date ASC").Take(&st).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		id = st.ID

		if st.Email == "" {
			email, err := p.resolver.ResolveEmail(ctx, tx, st.UserID, st.ReportID)
			if err != nil {
				return fmt.Errorf("resolve email for %s: %w", st.UserID, err)
			}
			if email == "" {
				slog.Warn("no email for statement reminder",
					"action", "statement_reminders", "statement_id", st.ID.String(),
					"report_id", st.ReportID.String(), "user_id", st.UserID)
				result = outcomeSkipped
				return nil
			}
			st.Email = email
		}

		claim := tx.Model(&models.Statement{}).
			Where("id = ? AND status = ? AND next_reminder_date <= ?", st.ID, models.StatementPending, now).
			Update("next_reminder_date", now.Add(p.interval))
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			result = outcomeSkipped
			return nil
		}

		overdue := !now.Before(st.OverdueDate)
		if err := p.sender.SendReminder(ctx, tx, st, overdue); err != nil {
			return fmt.Errorf("send reminder for statement %s: %w", st.ID, err)
		}
		result = outcomeSent
		return nil
	})
	if err != nil {
		return outcomeNone, id, err
	}
	return result, id, nil
}
