package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"bookmarker/internal/domain/models"
)

const (
	usersCollection    = "users"
	tokensCollection   = "emailVerificationTokens"
	subjectsCollection = "subjects"
	feedbackCollection = "betafeedbacks"

	tokenTTLIndex = "createdAt_1"

	codeIndexOptionsConflict  = 85
	codeIndexKeySpecsConflict = 86
)

// emails, usernames and subject names are unique regardless of case
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// Storage keeps users with embedded bookmarks and saved books in MongoDB
type Storage struct {
	client   *mongo.Client
	users    *mongo.Collection
	tokens   *mongo.Collection
	subjects *mongo.Collection
	feedback *mongo.Collection
	now      func() time.Time
}

// New connects to MongoDB and checks the connection
func New(ctx context.Context, uri string, database string) (*Storage, error) {
	const op = "storage.mongo.New"

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s := NewFromDatabase(client.Database(database))
	s.client = client
	return s, nil
}

// NewFromDatabase wraps an existing database handle
func NewFromDatabase(db *mongo.Database) *Storage {
	return &Storage{
		users:    db.Collection(usersCollection),
		tokens:   db.Collection(tokensCollection),
		subjects: db.Collection(subjectsCollection),
		feedback: db.Collection(feedbackCollection),
		now:      time.Now,
	}
}

func (s *Storage) WithClock(now func() time.Time) *Storage {
	s.now = now
	return s
}

func (s *Storage) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates unique and TTL indexes.
// A TTL index created with a different expiry is dropped and recreated.
func (s *Storage) EnsureIndexes(ctx context.Context, tokenTTL time.Duration) error {
	const op = "storage.mongo.EnsureIndexes"

	if _, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetCollation(caseInsensitive)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetCollation(caseInsensitive)},
	}); err != nil {
		return fmt.Errorf("%s: users: %w", op, err)
	}

	if _, err := s.subjects.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetCollation(caseInsensitive),
	}); err != nil {
		return fmt.Errorf("%s: subjects: %w", op, err)
	}

	if _, err := s.tokens.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "_userId", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("%s: tokens: %w", op, err)
	}

	ttl := mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: 1}},
		Options: options.Index().SetName(tokenTTLIndex).SetExpireAfterSeconds(int32(tokenTTL.Seconds())),
	}
	_, err := s.tokens.Indexes().CreateOne(ctx, ttl)
	if isIndexConflict(err) {
		if _, err := s.tokens.Indexes().DropOne(ctx, tokenTTLIndex); err != nil {
			return fmt.Errorf("%s: drop ttl index: %w", op, err)
		}
		_, err = s.tokens.Indexes().CreateOne(ctx, ttl)
	}
	if err != nil {
		return fmt.Errorf("%s: ttl index: %w", op, err)
	}
	return nil
}

func isIndexConflict(err error) bool {
	var cmdErr mongo.CommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	return cmdErr.Code == codeIndexOptionsConflict || cmdErr.Code == codeIndexKeySpecsConflict
}

type userDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Username   string             `bson:"username"`
	Email      string             `bson:"email"`
	Password   string             `bson:"password"`
	IsVerified bool               `bson:"isVerified"`
	ProfilePic string             `bson:"profilePic"`
	Roles      []roleDocument     `bson:"roles"`
	Bookmarks  []bookmarkDocument `bson:"bookmarks"`
	SavedBooks []bookDocument     `bson:"savedBooks"`
	CreatedAt  time.Time          `bson:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt"`
}

type roleDocument struct {
	Role          string   `bson:"role"`
	AssociatedIDs []string `bson:"associatedIds"`
}

type bookmarkDocument struct {
	ID         primitive.ObjectID `bson:"_id"`
	CategoryID string             `bson:"categoryId"`
	Name       string             `bson:"name"`
	Type       string             `bson:"type"`
	Path       string             `bson:"path"`
	Archived   bool               `bson:"archived"`
}

type bookDocument struct {
	BookID      string   `bson:"bookId"`
	Authors     []string `bson:"authors"`
	Description string   `bson:"description"`
	Image       string   `bson:"image"`
	Link        string   `bson:"link"`
	Title       string   `bson:"title"`
}

type tokenDocument struct {
	Token     string             `bson:"token"`
	UserID    primitive.ObjectID `bson:"_userId"`
	CreatedAt time.Time          `bson:"createdAt"`
	ExpiresAt time.Time          `bson:"expiresAt"`
}

type subjectDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Description string             `bson:"description"`
	Image       string             `bson:"image"`
	BgColor     string             `bson:"bgColor"`
	CreatedBy   string             `bson:"createdBy"`
	Path        string             `bson:"path"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

type feedbackDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Username  string             `bson:"username"`
	Email     string             `bson:"email"`
	Category  string             `bson:"category"`
	Message   string             `bson:"message"`
	Image     string             `bson:"image"`
	Archived  bool               `bson:"archived"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func newUserDocument(u *models.User) userDocument {
	doc := userDocument{
		Username:   u.Username,
		Email:      u.Email,
		Password:   string(u.PassHash),
		IsVerified: u.IsVerified,
		ProfilePic: u.ProfilePic,
		Roles:      make([]roleDocument, 0, len(u.Roles)),
		Bookmarks:  []bookmarkDocument{},
		SavedBooks: []bookDocument{},
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
	for _, r := range u.Roles {
		doc.Roles = append(doc.Roles, newRoleDocument(r))
	}
	return doc
}

func newRoleDocument(r models.Role) roleDocument {
	ids := r.AssociatedIDs
	if ids == nil {
		ids = []string{}
	}
	return roleDocument{Role: r.Role, AssociatedIDs: ids}
}

func (d *userDocument) model() *models.User {
	u := &models.User{
		ID:         d.ID.Hex(),
		Username:   d.Username,
		Email:      d.Email,
		PassHash:   []byte(d.Password),
		IsVerified: d.IsVerified,
		ProfilePic: d.ProfilePic,
		Roles:      make([]models.Role, 0, len(d.Roles)),
		Bookmarks:  make([]models.Bookmark, 0, len(d.Bookmarks)),
		SavedBooks: make([]models.Book, 0, len(d.SavedBooks)),
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
	for _, r := range d.Roles {
		u.Roles = append(u.Roles, models.Role{Role: r.Role, AssociatedIDs: r.AssociatedIDs})
	}
	for _, b := range d.Bookmarks {
		u.Bookmarks = append(u.Bookmarks, models.Bookmark{
			ID:         b.ID.Hex(),
			CategoryID: b.CategoryID,
			Name:       b.Name,
			Type:       b.Type,
			Path:       b.Path,
			Archived:   b.Archived,
		})
	}
	for _, b := range d.SavedBooks {
		u.SavedBooks = append(u.SavedBooks, models.Book(b))
	}
	return u
}

func (d *subjectDocument) model() *models.Subject {
	return &models.Subject{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Image:       d.Image,
		BgColor:     d.BgColor,
		CreatedBy:   d.CreatedBy,
		Path:        d.Path,
		CreatedAt:   d.CreatedAt,
	}
}

func (d *feedbackDocument) model() *models.Feedback {
	return &models.Feedback{
		ID:        d.ID.Hex(),
		Username:  d.Username,
		Email:     d.Email,
		Category:  d.Category,
		Message:   d.Message,
		Image:     d.Image,
		Archived:  d.Archived,
		CreatedAt: d.CreatedAt,
	}
}
