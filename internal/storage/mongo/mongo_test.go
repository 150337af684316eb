package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"bookmarker/internal/domain/models"
	"bookmarker/internal/storage"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newStorage(mt *mtest.T) *Storage {
	return NewFromDatabase(mt.DB).WithClock(func() time.Time { return fixedNow })
}

func toD(tb testing.TB, v any) bson.D {
	tb.Helper()

	raw, err := bson.Marshal(v)
	require.NoError(tb, err)
	var d bson.D
	require.NoError(tb, bson.Unmarshal(raw, &d))
	return d
}

func sampleUser() userDocument {
	return userDocument{
		ID:         primitive.NewObjectID(),
		Username:   "reader",
		Email:      "reader@example.com",
		Password:   "hash",
		ProfilePic: "/pic.jpg",
		Roles:      []roleDocument{{Role: models.RoleUser, AssociatedIDs: []string{}}},
		Bookmarks: []bookmarkDocument{
			{ID: primitive.NewObjectID(), CategoryID: "c1", Name: "Dune", Type: "book", Path: "/b/dune"},
		},
		SavedBooks: []bookDocument{{BookID: "b1", Title: "Dune", Authors: []string{"Herbert"}}},
		CreatedAt:  fixedNow,
		UpdatedAt:  fixedNow,
	}
}

func TestSaveUser(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("success", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		user, err := newStorage(mt).SaveUser(context.Background(), &models.User{
			Username: "reader",
			Email:    "reader@example.com",
			PassHash: []byte("hash"),
		})
		require.NoError(mt, err)

		_, err = primitive.ObjectIDFromHex(user.ID)
		assert.NoError(mt, err)
		assert.Equal(mt, fixedNow, user.CreatedAt)
		assert.Equal(mt, []byte("hash"), user.PassHash)
	})

	mt.Run("duplicate", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		_, err := newStorage(mt).SaveUser(context.Background(), &models.User{Username: "reader"})
		assert.ErrorIs(mt, err, storage.ErrUserExists)
	})
}

func TestUserByEmail(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		doc := sampleUser()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "bookmarker.users", mtest.FirstBatch, toD(mt, doc)))

		user, err := newStorage(mt).UserByEmail(context.Background(), doc.Email)
		require.NoError(mt, err)

		assert.Equal(mt, doc.ID.Hex(), user.ID)
		assert.Equal(mt, "reader", user.Username)
		assert.Equal(mt, []string{models.RoleUser}, user.RoleNames())
		require.Len(mt, user.Bookmarks, 1)
		assert.Equal(mt, doc.Bookmarks[0].ID.Hex(), user.Bookmarks[0].ID)
		require.Len(mt, user.SavedBooks, 1)
		assert.Equal(mt, "b1", user.SavedBooks[0].BookID)
	})

	mt.Run("not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "bookmarker.users", mtest.FirstBatch))

		_, err := newStorage(mt).UserByEmail(context.Background(), "nobody@example.com")
		assert.ErrorIs(mt, err, storage.ErrUserNotFound)
	})
}

func TestUserByID_InvalidHex(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("invalid", func(mt *mtest.T) {
		_, err := newStorage(mt).UserByID(context.Background(), "not-an-object-id")
		assert.ErrorIs(mt, err, storage.ErrUserNotFound)
	})
}

func TestSetVerified(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("returns updated user", func(mt *mtest.T) {
		doc := sampleUser()
		doc.IsVerified = true
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: toD(mt, doc)}})

		user, err := newStorage(mt).SetVerified(context.Background(), doc.ID.Hex())
		require.NoError(mt, err)
		assert.True(mt, user.IsVerified)
	})

	mt.Run("missing user", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}})

		_, err := newStorage(mt).SetVerified(context.Background(), primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, storage.ErrUserNotFound)
	})
}

func TestSetBookmarkArchived_UnknownBookmark(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("user exists", func(mt *mtest.T) {
		doc := sampleUser()
		mt.AddMockResponses(
			bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}},
			mtest.CreateCursorResponse(0, "bookmarker.users", mtest.FirstBatch, toD(mt, doc)),
		)

		_, err := newStorage(mt).SetBookmarkArchived(context.Background(), doc.ID.Hex(), primitive.NewObjectID().Hex(), true)
		assert.ErrorIs(mt, err, storage.ErrBookmarkNotFound)
	})

	mt.Run("user missing", func(mt *mtest.T) {
		mt.AddMockResponses(
			bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}},
			mtest.CreateCursorResponse(0, "bookmarker.users", mtest.FirstBatch),
		)

		_, err := newStorage(mt).SetBookmarkArchived(context.Background(), primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex(), true)
		assert.ErrorIs(mt, err, storage.ErrUserNotFound)
	})
}

func TestAddBookmark_ExistingTargetReturnsUser(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("no-op", func(mt *mtest.T) {
		doc := sampleUser()
		mt.AddMockResponses(
			bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}},
			mtest.CreateCursorResponse(0, "bookmarker.users", mtest.FirstBatch, toD(mt, doc)),
		)

		user, err := newStorage(mt).AddBookmark(context.Background(), doc.ID.Hex(), models.Bookmark{
			CategoryID: "c1", Name: "Dune", Type: "book", Path: "/b/dune",
		})
		require.NoError(mt, err)
		assert.Len(mt, user.Bookmarks, 1)
	})
}

func TestEmailToken(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		uid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "bookmarker.emailVerificationTokens", mtest.FirstBatch, toD(mt, tokenDocument{
			Token:     "tok",
			UserID:    uid,
			CreatedAt: fixedNow,
			ExpiresAt: fixedNow.Add(time.Hour),
		})))

		token, err := newStorage(mt).EmailToken(context.Background(), "tok")
		require.NoError(mt, err)
		assert.Equal(mt, uid.Hex(), token.UserID)
		assert.Equal(mt, fixedNow.Add(time.Hour), token.ExpiresAt)
	})

	mt.Run("missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "bookmarker.emailVerificationTokens", mtest.FirstBatch))

		_, err := newStorage(mt).EmailToken(context.Background(), "tok")
		assert.ErrorIs(mt, err, storage.ErrTokenNotFound)
	})
}

func TestSaveSubject_Duplicate(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("duplicate", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Code: 11000, Message: "duplicate key error"}))

		_, err := newStorage(mt).SaveSubject(context.Background(), &models.Subject{Name: "History"})
		assert.ErrorIs(mt, err, storage.ErrSubjectExists)
	})
}

func TestEnsureIndexes_RecreatesConflictingTTLIndex(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("conflict", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
			mtest.CreateCommandErrorResponse(mtest.CommandError{
				Code:    codeIndexOptionsConflict,
				Name:    "IndexOptionsConflict",
				Message: "index already exists with different options",
			}),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
		)

		assert.NoError(mt, newStorage(mt).EnsureIndexes(context.Background(), 24*time.Hour))
	})

	mt.Run("other error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    13,
			Name:    "Unauthorized",
			Message: "not authorized",
		}))

		assert.Error(mt, newStorage(mt).EnsureIndexes(context.Background(), 24*time.Hour))
	})
}

func lookup(tb testing.TB, cmd bson.Raw, keys ...string) bson.RawValue {
	tb.Helper()

	v, err := cmd.LookupErr(keys...)
	require.NoError(tb, err, "missing %v in %s", keys, cmd)
	return v
}

func TestUserByEmailOrUsername_CaseInsensitive(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("collation", func(mt *mtest.T) {
		doc := sampleUser()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "bookmarker.users", mtest.FirstBatch, toD(mt, doc)))

		_, err := newStorage(mt).UserByEmailOrUsername(context.Background(), "other@example.com", "READER")
		require.NoError(mt, err)

		cmd := mt.GetStartedEvent().Command
		assert.Equal(mt, "en", lookup(mt, cmd, "collation", "locale").StringValue())
		assert.EqualValues(mt, 2, lookup(mt, cmd, "collation", "strength").AsInt64())
	})
}

func TestAddBookmark_PushIsGuardedByTarget(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("push", func(mt *mtest.T) {
		doc := sampleUser()
		doc.Bookmarks = append(doc.Bookmarks, bookmarkDocument{ID: primitive.NewObjectID(), CategoryID: "c2", Name: "Emma", Type: "book", Path: "/b/emma"})
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: toD(mt, doc)}})

		user, err := newStorage(mt).AddBookmark(context.Background(), doc.ID.Hex(), models.Bookmark{
			CategoryID: "c2", Name: "Emma", Type: "book", Path: "/b/emma",
		})
		require.NoError(mt, err)
		assert.Len(mt, user.Bookmarks, 2)

		cmd := mt.GetStartedEvent().Command
		assert.Equal(mt, "Emma", lookup(mt, cmd, "query", "bookmarks", "$not", "$elemMatch", "name").StringValue())
		assert.Equal(mt, "/b/emma", lookup(mt, cmd, "query", "bookmarks", "$not", "$elemMatch", "path").StringValue())
		assert.Equal(mt, "Emma", lookup(mt, cmd, "update", "$push", "bookmarks", "name").StringValue())
		_, err = cmd.LookupErr("collation")
		assert.Error(mt, err)
	})
}

func TestSetBookmarkArchived_PositionalUpdate(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("archive", func(mt *mtest.T) {
		doc := sampleUser()
		doc.Bookmarks[0].Archived = true
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: toD(mt, doc)}})

		user, err := newStorage(mt).SetBookmarkArchived(context.Background(), doc.ID.Hex(), doc.Bookmarks[0].ID.Hex(), true)
		require.NoError(mt, err)
		assert.True(mt, user.Bookmarks[0].Archived)

		cmd := mt.GetStartedEvent().Command
		assert.Equal(mt, doc.ID, lookup(mt, cmd, "query", "_id").ObjectID())
		assert.Equal(mt, doc.Bookmarks[0].ID, lookup(mt, cmd, "query", "bookmarks._id").ObjectID())
		assert.True(mt, lookup(mt, cmd, "update", "$set", "bookmarks.$.archived").Boolean())
	})
}

func TestEnsureIndexes_TTLAndCollation(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("indexes", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
		)

		require.NoError(mt, newStorage(mt).EnsureIndexes(context.Background(), 12*time.Hour))

		users := mt.GetStartedEvent().Command
		assert.Equal(mt, "users", lookup(mt, users, "createIndexes").StringValue())
		assert.EqualValues(mt, 2, lookup(mt, users, "indexes", "1", "collation", "strength").AsInt64())
		assert.True(mt, lookup(mt, users, "indexes", "1", "unique").Boolean())

		_ = mt.GetStartedEvent()
		_ = mt.GetStartedEvent()

		ttl := mt.GetStartedEvent().Command
		assert.Equal(mt, tokensCollection, lookup(mt, ttl, "createIndexes").StringValue())
		assert.Equal(mt, tokenTTLIndex, lookup(mt, ttl, "indexes", "0", "name").StringValue())
		assert.EqualValues(mt, 12*60*60, lookup(mt, ttl, "indexes", "0", "expireAfterSeconds").AsInt64())
	})
}

func TestSaveFeedback(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("insert", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		saved, err := newStorage(mt).SaveFeedback(context.Background(), &models.Feedback{
			Username: "reader",
			Email:    "reader@example.com",
			Category: "bug",
			Message:  "search is slow",
			Archived: true,
		})
		require.NoError(mt, err)
		assert.False(mt, saved.Archived)
		assert.Equal(mt, fixedNow, saved.CreatedAt)

		cmd := mt.GetStartedEvent().Command
		assert.Equal(mt, feedbackCollection, lookup(mt, cmd, "insert").StringValue())
	})
}

func TestFeedback_Sorted(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("newest first", func(mt *mtest.T) {
		first := feedbackDocument{ID: primitive.NewObjectID(), Username: "reader", Category: "bug", Message: "slow", CreatedAt: fixedNow}
		second := feedbackDocument{ID: primitive.NewObjectID(), Username: "writer", Category: "idea", Message: "dark mode", CreatedAt: fixedNow.Add(-time.Hour), Archived: true}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "bookmarker."+feedbackCollection, mtest.FirstBatch, toD(mt, first), toD(mt, second)))

		items, err := newStorage(mt).Feedback(context.Background(), models.SubjectSort{Field: "createdAt", Order: models.SortDesc})
		require.NoError(mt, err)
		require.Len(mt, items, 2)
		assert.Equal(mt, first.ID.Hex(), items[0].ID)
		assert.True(mt, items[1].Archived)

		cmd := mt.GetStartedEvent().Command
		assert.EqualValues(mt, -1, lookup(mt, cmd, "sort", "createdAt").AsInt64())
	})
}

func TestArchiveFeedback(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("archive", func(mt *mtest.T) {
		doc := feedbackDocument{ID: primitive.NewObjectID(), Username: "reader", Category: "bug", Message: "slow", Archived: true, CreatedAt: fixedNow}
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: toD(mt, doc)}})

		f, err := newStorage(mt).ArchiveFeedback(context.Background(), doc.ID.Hex())
		require.NoError(mt, err)
		assert.True(mt, f.Archived)

		cmd := mt.GetStartedEvent().Command
		assert.Equal(mt, doc.ID, lookup(mt, cmd, "query", "_id").ObjectID())
		assert.True(mt, lookup(mt, cmd, "update", "$set", "archived").Boolean())
	})

	mt.Run("missing", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}})

		_, err := newStorage(mt).ArchiveFeedback(context.Background(), primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, storage.ErrFeedbackNotFound)

		_, err = newStorage(mt).ArchiveFeedback(context.Background(), "zzz")
		assert.ErrorIs(mt, err, storage.ErrFeedbackNotFound)
	})
}
