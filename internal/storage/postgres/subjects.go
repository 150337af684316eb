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

const subjectColumns = `SELECT id::text, name, description, image, bg_color, created_by, path, created_at FROM subjects`

func (s *Storage) SaveSubject(ctx context.Context, subject *models.Subject) (*models.Subject, error) {
	const op = "storage.postgres.SaveSubject"

	saved := *subject
	saved.ID = uuid.NewString()
	saved.CreatedAt = s.now().UTC()

	_, err := s.db.Exec(ctx,
		`INSERT INTO subjects (id, name, description, image, bg_color, created_by, path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		saved.ID, saved.Name, saved.Description, saved.Image, saved.BgColor, saved.CreatedBy, saved.Path, saved.CreatedAt)
	if err != nil {
		if pgErrCode(err) == codeUniqueViolation {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrSubjectExists)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &saved, nil
}

func (s *Storage) Subject(ctx context.Context, id string) (*models.Subject, error) {
	const op = "storage.postgres.Subject"

	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrSubjectNotFound)
	}

	subject, err := scanSubject(s.db.QueryRow(ctx, subjectColumns+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrSubjectNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subject, nil
}

func (s *Storage) Subjects(ctx context.Context, sort models.SubjectSort) ([]models.Subject, error) {
	const op = "storage.postgres.Subjects"

	column := "created_at"
	if sort.Field == "name" {
		column = "name"
	}
	direction := "ASC"
	if sort.Order == models.SortDesc {
		direction = "DESC"
	}

	rows, err := s.db.Query(ctx, subjectColumns+` ORDER BY `+column+` `+direction)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	subjects := []models.Subject{}
	for rows.Next() {
		subject, err := scanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		subjects = append(subjects, *subject)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subjects, nil
}

func scanSubject(row pgx.Row) (*models.Subject, error) {
	var subject models.Subject
	if err := row.Scan(
		&subject.ID, &subject.Name, &subject.Description, &subject.Image,
		&subject.BgColor, &subject.CreatedBy, &subject.Path, &subject.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &subject, nil
}
