package storage

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/elum-utils/moderation/interfaces"
	"github.com/elum-utils/moderation/models"
)

const preferenceField = "preferences.contentFilterLevel"

// MongoAdapter keeps the filter level on the user document, as
// preferences.contentFilterLevel, the manual moderation status on post
// documents and their embedded comments, and reads lexicon terms from a
// separate collection.
type MongoAdapter struct {
	users *mongo.Collection
	terms *mongo.Collection
	posts *mongo.Collection
}

var (
	_ interfaces.TermSource      = (*MongoAdapter)(nil)
	_ interfaces.PreferenceStore = (*MongoAdapter)(nil)
	_ interfaces.ModerationStore = (*MongoAdapter)(nil)
)

// MongoCollections names the collections used by MongoAdapter. Terms and
// Posts may be nil when those features are served elsewhere.
type MongoCollections struct {
	Users *mongo.Collection
	Terms *mongo.Collection
	Posts *mongo.Collection
}

// NewMongoAdapter creates an adapter. Users is required.
func NewMongoAdapter(c MongoCollections) (*MongoAdapter, error) {
	if c.Users == nil {
		return nil, errors.New("storage: users collection is nil")
	}
	return &MongoAdapter{users: c.Users, terms: c.Terms, posts: c.Posts}, nil
}

type userPreferences struct {
	Preferences struct {
		ContentFilterLevel string `bson:"contentFilterLevel"`
	} `bson:"preferences"`
}

func (m *MongoAdapter) GetLevel(ctx context.Context, userID string) (models.FilterLevel, error) {
	opts := options.FindOne().SetProjection(bson.M{preferenceField: 1})
	var doc userPreferences
	err := m.users.FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", interfaces.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if doc.Preferences.ContentFilterLevel == "" {
		return "", interfaces.ErrNotFound
	}
	return models.FilterLevel(doc.Preferences.ContentFilterLevel), nil
}

func (m *MongoAdapter) SetLevel(ctx context.Context, userID string, level models.FilterLevel) error {
	update := bson.M{"$set": bson.M{preferenceField: string(level)}}
	_, err := m.users.UpdateOne(ctx, bson.M{"_id": userID}, update, options.Update().SetUpsert(true))
	return err
}

type termDoc struct {
	Term string `bson:"term"`
}

func (m *MongoAdapter) GetTerms(ctx context.Context) ([]string, error) {
	if m.terms == nil {
		return nil, errors.New("storage: terms collection is nil")
	}
	cursor, err := m.terms.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []string
	for cursor.Next(ctx) {
		var doc termDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		if t := strings.TrimSpace(doc.Term); t != "" {
			out = append(out, t)
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// docID maps a hex string to an ObjectID, as posts and comments created by
// the application use them; other ids are used as strings.
func docID(id string) any {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

func idString(v bson.RawValue) string {
	if oid, ok := v.ObjectIDOK(); ok {
		return oid.Hex()
	}
	if s, ok := v.StringValueOK(); ok {
		return s
	}
	return v.String()
}

func (m *MongoAdapter) SetStatus(ctx context.Context, ref models.ContentRef, status models.ModerationStatus) error {
	if m.posts == nil {
		return errors.New("storage: posts collection is nil")
	}
	if status.Reasons == nil {
		status.Reasons = []string{}
	}
	filter := bson.M{"_id": docID(ref.PostID)}
	field := "moderationStatus"
	if ref.IsComment() {
		filter["comments._id"] = docID(ref.CommentID)
		field = "comments.$.moderationStatus"
	}
	res, err := m.posts.UpdateOne(ctx, filter, bson.M{"$set": bson.M{field: status}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

type postStatusDoc struct {
	ID     bson.RawValue           `bson:"_id"`
	Status models.ModerationStatus `bson:"moderationStatus"`
}

type commentStatusDoc struct {
	PostID    bson.RawValue           `bson:"postId"`
	CommentID bson.RawValue           `bson:"commentId"`
	Status    models.ModerationStatus `bson:"moderationStatus"`
}

// ListByStatus returns matching posts and embedded comments, newest flag first.
func (m *MongoAdapter) ListByStatus(ctx context.Context, flagged bool) ([]models.ModeratedContent, error) {
	if m.posts == nil {
		return nil, errors.New("storage: posts collection is nil")
	}
	var out []models.ModeratedContent

	opts := options.Find().
		SetProjection(bson.M{"_id": 1, "moderationStatus": 1}).
		SetSort(bson.D{{Key: "moderationStatus.flaggedAt", Value: -1}})
	cursor, err := m.posts.Find(ctx, bson.M{"moderationStatus.isFlagged": flagged}, opts)
	if err != nil {
		return nil, err
	}
	var posts []postStatusDoc
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	for _, p := range posts {
		out = append(out, models.ModeratedContent{
			ContentRef: models.ContentRef{PostID: idString(p.ID)},
			Status:     p.Status,
		})
	}

	match := bson.D{{Key: "$match", Value: bson.M{"comments.moderationStatus.isFlagged": flagged}}}
	pipeline := mongo.Pipeline{
		match,
		{{Key: "$unwind", Value: "$comments"}},
		match,
		{{Key: "$project", Value: bson.M{
			"_id":              0,
			"postId":           "$_id",
			"commentId":        "$comments._id",
			"moderationStatus": "$comments.moderationStatus",
		}}},
	}
	cursor, err = m.posts.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var comments []commentStatusDoc
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, err
	}
	for _, c := range comments {
		out = append(out, models.ModeratedContent{
			ContentRef: models.ContentRef{PostID: idString(c.PostID), CommentID: idString(c.CommentID)},
			Status:     c.Status,
		})
	}

	sortNewestFirst(out)
	return out, nil
}
