// Package feedback collects beta tester reports and lets admins triage them.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	netmail "net/mail"
	"strings"

	"bookmarker/internal/domain/models"
	"bookmarker/internal/services"
	"bookmarker/internal/services/feedback/interfaces"
	"bookmarker/internal/storage"
)

var sortFields = map[string]bool{"createdAt": true, "category": true}

type Feedback struct {
	log     *slog.Logger
	storage interfaces.FeedbackStorage
}

func New(log *slog.Logger, feedbackStorage interfaces.FeedbackStorage) *Feedback {
	return &Feedback{
		log:     log,
		storage: feedbackStorage,
	}
}

// Add stores a report. Anonymous callers may submit, authenticated callers
// have missing username and email filled from their session.
func (f *Feedback) Add(ctx context.Context, caller models.Caller, report models.Feedback) (*models.Feedback, error) {
	const op = "feedback.Add"
	log := f.log.With(slog.String("op", op))

	if caller.Authenticated() {
		if strings.TrimSpace(report.Username) == "" {
			report.Username = caller.Username
		}
		if strings.TrimSpace(report.Email) == "" {
			report.Email = caller.Email
		}
	}
	report.Username = strings.TrimSpace(report.Username)
	report.Email = strings.ToLower(strings.TrimSpace(report.Email))
	report.Category = strings.TrimSpace(report.Category)
	report.Message = strings.TrimSpace(report.Message)
	report.Image = strings.TrimSpace(report.Image)

	if report.Username == "" || report.Category == "" || report.Message == "" || !validEmail(report.Email) {
		return nil, fmt.Errorf("%s: %w", op, services.ErrInvalidInput)
	}

	saved, err := f.storage.SaveFeedback(ctx, &report)
	if err != nil {
		log.Error("failed to save feedback", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("feedback added", slog.String("feedback_id", saved.ID), slog.String("category", saved.Category))
	return saved, nil
}

// List returns every report, oldest first unless sort says otherwise
func (f *Feedback) List(ctx context.Context, caller models.Caller, sort *models.SubjectSort) ([]models.Feedback, error) {
	const op = "feedback.List"

	if err := f.requireAdmin(op, caller); err != nil {
		return nil, err
	}

	order := models.SubjectSort{Field: "createdAt", Order: models.SortAsc}
	if sort != nil {
		if !sortFields[sort.Field] || (sort.Order != models.SortAsc && sort.Order != models.SortDesc) {
			return nil, fmt.Errorf("%s: %w", op, services.ErrInvalidInput)
		}
		order = *sort
	}

	items, err := f.storage.Feedback(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}

func (f *Feedback) Archive(ctx context.Context, caller models.Caller, id string) (*models.Feedback, error) {
	const op = "feedback.Archive"

	if err := f.requireAdmin(op, caller); err != nil {
		return nil, err
	}

	archived, err := f.storage.ArchiveFeedback(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrFeedbackNotFound) {
			return nil, fmt.Errorf("%s: %w: %w", op, services.ErrNotFound, err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	f.log.Info("feedback archived", slog.String("op", op), slog.String("feedback_id", id), slog.String("admin_id", caller.UserID))
	return archived, nil
}

func (f *Feedback) requireAdmin(op string, caller models.Caller) error {
	if !caller.Authenticated() || !caller.IsAdmin() {
		f.log.Info("user has no admin permissions", slog.String("op", op), slog.String("caller", caller.Key()))
		return fmt.Errorf("%s: %w", op, services.ErrUnauthorized)
	}
	return nil
}

func validEmail(email string) bool {
	addr, err := netmail.ParseAddress(email)
	return err == nil && addr.Address == email
}
