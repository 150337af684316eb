package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"bookmarker/internal/domain/models"
	"bookmarker/internal/storage"
)

const feedbackColumns = `id::text, username, email, category, message, image, archived, created_at`

func (s *Storage) SaveFeedback(ctx context.Context, feedback *models.Feedback) (*models.Feedback, error) {
	const op = "storage.postgres.SaveFeedback"

	saved := *feedback
	saved.ID = uuid.NewString()
	saved.Archived = false
	saved.CreatedAt = s.now().UTC()

	_, err := s.db.Exec(ctx,
		`INSERT INTO beta_feedback (id, username, email, category, message, image, archived, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		saved.ID, saved.Username, saved.Email, saved.Category, saved.Message, saved.Image, saved.Archived, saved.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &saved, nil
}

func (s *Storage) Feedback(ctx context.Context, sort models.SubjectSort) ([]models.Feedback, error) {
	const op = "storage.postgres.Feedback"

	column := "created_at"
	if sort.Field == "category" {
		column = "category"
	}
	direction := "ASC"
	if sort.Order == models.SortDesc {
		direction = "DESC"
	}

	rows, err := s.db.Query(ctx, `SELECT `+feedbackColumns+` FROM beta_feedback ORDER BY `+column+` `+direction)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	items := []models.Feedback{}
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		items = append(items, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}

func (s *Storage) ArchiveFeedback(ctx context.Context, id string) (*models.Feedback, error) {
	const op = "storage.postgres.ArchiveFeedback"

	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrFeedbackNotFound)
	}

	f, err := scanFeedback(s.db.QueryRow(ctx,
		`UPDATE beta_feedback SET archived = TRUE WHERE id = $1 RETURNING `+feedbackColumns, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrFeedbackNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return f, nil
}

func scanFeedback(row pgx.Row) (*models.Feedback, error) {
	var f models.Feedback
	if err := row.Scan(
		&f.ID, &f.Username, &f.Email, &f.Category,
		&f.Message, &f.Image, &f.Archived, &f.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &f, nil
}
