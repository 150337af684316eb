package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bookmarker/internal/domain/models"
	"bookmarker/internal/storage"
)

func (s *Storage) SaveFeedback(ctx context.Context, feedback *models.Feedback) (*models.Feedback, error) {
	const op = "storage.mongo.SaveFeedback"

	doc := feedbackDocument{
		Username:  feedback.Username,
		Email:     feedback.Email,
		Category:  feedback.Category,
		Message:   feedback.Message,
		Image:     feedback.Image,
		CreatedAt: s.now().UTC(),
	}
	res, err := s.feedback.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected id type %T", op, res.InsertedID)
	}
	doc.ID = id
	return doc.model(), nil
}

func (s *Storage) Feedback(ctx context.Context, sort models.SubjectSort) ([]models.Feedback, error) {
	const op = "storage.mongo.Feedback"

	direction := 1
	if sort.Order == models.SortDesc {
		direction = -1
	}
	cur, err := s.feedback.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: sort.Field, Value: direction}}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cur.Close(ctx)

	var docs []feedbackDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	items := make([]models.Feedback, 0, len(docs))
	for i := range docs {
		items = append(items, *docs[i].model())
	}
	return items, nil
}

func (s *Storage) ArchiveFeedback(ctx context.Context, id string) (*models.Feedback, error) {
	const op = "storage.mongo.ArchiveFeedback"

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrFeedbackNotFound)
	}

	var doc feedbackDocument
	err = s.feedback.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"archived": true}},
		returnAfter,
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrFeedbackNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return doc.model(), nil
}
