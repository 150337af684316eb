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

func (s *Storage) SaveSubject(ctx context.Context, subject *models.Subject) (*models.Subject, error) {
	const op = "storage.mongo.SaveSubject"

	doc := subjectDocument{
		Name:        subject.Name,
		Description: subject.Description,
		Image:       subject.Image,
		BgColor:     subject.BgColor,
		CreatedBy:   subject.CreatedBy,
		Path:        subject.Path,
		CreatedAt:   s.now().UTC(),
	}
	res, err := s.subjects.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrSubjectExists)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected id type %T", op, res.InsertedID)
	}
	doc.ID = id
	return doc.model(), nil
}

func (s *Storage) Subject(ctx context.Context, id string) (*models.Subject, error) {
	const op = "storage.mongo.Subject"

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrSubjectNotFound)
	}

	var doc subjectDocument
	if err := s.subjects.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrSubjectNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return doc.model(), nil
}

func (s *Storage) Subjects(ctx context.Context, sort models.SubjectSort) ([]models.Subject, error) {
	const op = "storage.mongo.Subjects"

	direction := 1
	if sort.Order == models.SortDesc {
		direction = -1
	}
	cur, err := s.subjects.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: sort.Field, Value: direction}}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cur.Close(ctx)

	var docs []subjectDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	subjects := make([]models.Subject, 0, len(docs))
	for i := range docs {
		subjects = append(subjects, *docs[i].model())
	}
	return subjects, nil
}
