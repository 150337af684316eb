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

var (
	returnAfter = options.FindOneAndUpdate().SetReturnDocument(options.After)

	findIdentity   = options.FindOne().SetCollation(caseInsensitive)
	updateIdentity = options.FindOneAndUpdate().SetReturnDocument(options.After).SetCollation(caseInsensitive)
)

// SaveUser saves user in collection 'users'
func (s *Storage) SaveUser(ctx context.Context, user *models.User) (*models.User, error) {
	const op = "storage.mongo.SaveUser"

	doc := newUserDocument(user)
	doc.CreatedAt = s.now().UTC()
	doc.UpdatedAt = doc.CreatedAt

	res, err := s.users.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserExists)
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

func (s *Storage) UserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.mongo.UserByID"

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return s.findUser(ctx, op, bson.M{"_id": oid})
}

func (s *Storage) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, "storage.mongo.UserByEmail", bson.M{"email": email})
}

func (s *Storage) UserByEmailOrUsername(ctx context.Context, email string, username string) (*models.User, error) {
	return s.findUser(ctx, "storage.mongo.UserByEmailOrUsername", bson.M{
		"$or": bson.A{bson.M{"email": email}, bson.M{"username": username}},
	})
}

func (s *Storage) Users(ctx context.Context) ([]models.User, error) {
	const op = "storage.mongo.Users"

	cur, err := s.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cur.Close(ctx)

	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	users := make([]models.User, 0, len(docs))
	for i := range docs {
		users = append(users, *docs[i].model())
	}
	return users, nil
}

func (s *Storage) SetPassword(ctx context.Context, userID string, passHash []byte) error {
	const op = "storage.mongo.SetPassword"

	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	res, err := s.users.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{"password": string(passHash), "updatedAt": s.now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return nil
}

// SetPasswordByEmail finds the user by email and replaces the password in one update
func (s *Storage) SetPasswordByEmail(ctx context.Context, email string, passHash []byte) (*models.User, error) {
	return s.updateUser(ctx, "storage.mongo.SetPasswordByEmail", bson.M{"email": email}, bson.M{
		"$set": bson.M{"password": string(passHash), "updatedAt": s.now().UTC()},
	}, updateIdentity)
}

func (s *Storage) SetVerified(ctx context.Context, userID string) (*models.User, error) {
	return s.updateUserByID(ctx, "storage.mongo.SetVerified", userID, nil, bson.M{
		"$set": bson.M{"isVerified": true, "updatedAt": s.now().UTC()},
	})
}

func (s *Storage) UpdateProfilePic(ctx context.Context, userID string, pic string) (*models.User, error) {
	return s.updateUserByID(ctx, "storage.mongo.UpdateProfilePic", userID, nil, bson.M{
		"$set": bson.M{"profilePic": pic, "updatedAt": s.now().UTC()},
	})
}

// AddBookmark pushes the bookmark unless one with the same target is embedded already
func (s *Storage) AddBookmark(ctx context.Context, userID string, bookmark models.Bookmark) (*models.User, error) {
	const op = "storage.mongo.AddBookmark"

	target := bson.M{
		"categoryId": bookmark.CategoryID,
		"name":       bookmark.Name,
		"type":       bookmark.Type,
		"path":       bookmark.Path,
	}
	doc := bookmarkDocument{
		ID:         primitive.NewObjectID(),
		CategoryID: bookmark.CategoryID,
		Name:       bookmark.Name,
		Type:       bookmark.Type,
		Path:       bookmark.Path,
	}

	user, err := s.updateUserByID(ctx, op, userID,
		bson.M{"bookmarks": bson.M{"$not": bson.M{"$elemMatch": target}}},
		bson.M{
			"$push": bson.M{"bookmarks": doc},
			"$set":  bson.M{"updatedAt": s.now().UTC()},
		},
	)
	if errors.Is(err, storage.ErrUserNotFound) {
		// either the user is gone or the bookmark exists already
		return s.UserByID(ctx, userID)
	}
	return user, err
}

// SetBookmarkArchived flips the archived flag of one embedded bookmark
func (s *Storage) SetBookmarkArchived(ctx context.Context, userID string, bookmarkID string, archived bool) (*models.User, error) {
	const op = "storage.mongo.SetBookmarkArchived"

	bid, err := primitive.ObjectIDFromHex(bookmarkID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrBookmarkNotFound)
	}

	user, err := s.updateUserByID(ctx, op, userID,
		bson.M{"bookmarks._id": bid},
		bson.M{"$set": bson.M{"bookmarks.$.archived": archived, "updatedAt": s.now().UTC()}},
	)
	if errors.Is(err, storage.ErrUserNotFound) {
		if _, lookupErr := s.UserByID(ctx, userID); lookupErr != nil {
			return nil, lookupErr
		}
		return nil, fmt.Errorf("%s: %w", op, storage.ErrBookmarkNotFound)
	}
	return user, err
}

func (s *Storage) AddBook(ctx context.Context, userID string, book models.Book) (*models.User, error) {
	const op = "storage.mongo.AddBook"

	user, err := s.updateUserByID(ctx, op, userID,
		bson.M{"savedBooks.bookId": bson.M{"$ne": book.BookID}},
		bson.M{
			"$push": bson.M{"savedBooks": bookDocument(book)},
			"$set":  bson.M{"updatedAt": s.now().UTC()},
		},
	)
	if errors.Is(err, storage.ErrUserNotFound) {
		return s.UserByID(ctx, userID)
	}
	return user, err
}

func (s *Storage) RemoveBook(ctx context.Context, userID string, bookID string) (*models.User, error) {
	return s.updateUserByID(ctx, "storage.mongo.RemoveBook", userID, nil, bson.M{
		"$pull": bson.M{"savedBooks": bson.M{"bookId": bookID}},
		"$set":  bson.M{"updatedAt": s.now().UTC()},
	})
}

// AssignRole replaces a role of the same name or appends it
func (s *Storage) AssignRole(ctx context.Context, userID string, role models.Role) (*models.User, error) {
	const op = "storage.mongo.AssignRole"

	doc := newRoleDocument(role)
	user, err := s.updateUserByID(ctx, op, userID,
		bson.M{"roles.role": role.Role},
		bson.M{"$set": bson.M{"roles.$": doc, "updatedAt": s.now().UTC()}},
	)
	if !errors.Is(err, storage.ErrUserNotFound) {
		return user, err
	}

	return s.updateUserByID(ctx, op, userID,
		bson.M{"roles.role": bson.M{"$ne": role.Role}},
		bson.M{"$push": bson.M{"roles": doc}, "$set": bson.M{"updatedAt": s.now().UTC()}},
	)
}

func (s *Storage) RevokeRole(ctx context.Context, userID string, role string) (*models.User, error) {
	return s.updateUserByID(ctx, "storage.mongo.RevokeRole", userID, nil, bson.M{
		"$pull": bson.M{"roles": bson.M{"role": role}},
		"$set":  bson.M{"updatedAt": s.now().UTC()},
	})
}

// DeleteUser removes the user and its pending verification tokens
func (s *Storage) DeleteUser(ctx context.Context, userID string) (*models.User, error) {
	const op = "storage.mongo.DeleteUser"

	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	var doc userDocument
	if err := s.users.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.tokens.DeleteMany(ctx, bson.M{"_userId": oid}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return doc.model(), nil
}

// findUser matches string fields of filter case-insensitively
func (s *Storage) findUser(ctx context.Context, op string, filter bson.M) (*models.User, error) {
	var doc userDocument
	if err := s.users.FindOne(ctx, filter, findIdentity).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return doc.model(), nil
}

// updateUserByID applies update to the user matching id and the extra filter.
// No match is reported as storage.ErrUserNotFound.
func (s *Storage) updateUserByID(ctx context.Context, op string, userID string, extra bson.M, update bson.M) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	filter := bson.M{"_id": oid}
	for k, v := range extra {
		filter[k] = v
	}
	return s.updateUser(ctx, op, filter, update, returnAfter)
}

func (s *Storage) updateUser(
	ctx context.Context,
	op string,
	filter bson.M,
	update bson.M,
	opts *options.FindOneAndUpdateOptions,
) (*models.User, error) {
	var doc userDocument
	if err := s.users.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return doc.model(), nil
}
