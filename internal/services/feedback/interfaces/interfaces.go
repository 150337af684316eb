package interfaces

import (
	"context"

	"bookmarker/internal/domain/models"
)

type FeedbackStorage interface {
	// SaveFeedback stores the report unarchived
	SaveFeedback(ctx context.Context, feedback *models.Feedback) (*models.Feedback, error)
	Feedback(ctx context.Context, sort models.SubjectSort) ([]models.Feedback, error)
	// ArchiveFeedback returns storage.ErrFeedbackNotFound for unknown ids
	ArchiveFeedback(ctx context.Context, id string) (*models.Feedback, error)
}
