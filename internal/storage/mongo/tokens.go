package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"bookmarker/internal/domain/models"
	"bookmarker/internal/storage"
)

func (s *Storage) SaveEmailToken(ctx context.Context, token *models.EmailToken) error {
	const op = "storage.mongo.SaveEmailToken"

	uid, err := primitive.ObjectIDFromHex(token.UserID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	if _, err := s.tokens.InsertOne(ctx, tokenDocument{
		Token:     token.Token,
		UserID:    uid,
		CreatedAt: token.CreatedAt.UTC(),
		ExpiresAt: token.ExpiresAt.UTC(),
	}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// EmailToken skips tokens past expiresAt the TTL monitor has not purged yet
func (s *Storage) EmailToken(ctx context.Context, token string) (*models.EmailToken, error) {
	const op = "storage.mongo.EmailToken"

	var doc tokenDocument
	err := s.tokens.FindOne(ctx, bson.M{
		"token":     token,
		"expiresAt": bson.M{"$gt": s.now().UTC()},
	}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrTokenNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.EmailToken{
		Token:     doc.Token,
		UserID:    doc.UserID.Hex(),
		CreatedAt: doc.CreatedAt,
		ExpiresAt: doc.ExpiresAt,
	}, nil
}

func (s *Storage) DeleteUserEmailTokens(ctx context.Context, userID string) error {
	const op = "storage.mongo.DeleteUserEmailTokens"

	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	if _, err := s.tokens.DeleteMany(ctx, bson.M{"_userId": uid}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteExpiredEmailTokens purges tokens ahead of the TTL monitor, which only runs once a minute
func (s *Storage) DeleteExpiredEmailTokens(ctx context.Context) (int64, error) {
	const op = "storage.mongo.DeleteExpiredEmailTokens"

	res, err := s.tokens.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lte": s.now().UTC()}})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return res.DeletedCount, nil
}
