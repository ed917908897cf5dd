package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/devnovate/blog/models"
)

// MongoStore keeps posts as documents with embedded likes and comments.
type MongoStore struct {
	client *mongo.Client
	posts  *mongo.Collection
	users  *mongo.Collection
}

// NewMongoStore connects to uri, selects database and ensures indexes exist.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	db := client.Database(database)
	s := &MongoStore{client: client, posts: db.Collection("posts"), users: db.Collection("users")}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "title", Value: "text"}, {Key: "content", Value: "text"}, {Key: "tags", Value: "text"}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "author_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create post indexes: %w", err)
	}
	_, err = s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}},
		{Keys: bson.D{{Key: "provider", Value: 1}, {Key: "provider_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

func translateMongo(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	default:
		return err
	}
}

func (s *MongoStore) CreatePost(ctx context.Context, post *models.Post) error {
	post.Normalize()
	_, err := s.posts.InsertOne(ctx, post)
	return translateMongo(err)
}

func (s *MongoStore) FindPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := s.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		return nil, translateMongo(err)
	}
	post.Normalize()
	return &post, nil
}

func postQuery(f PostFilter) bson.M {
	q := bson.M{}
	if len(f.Statuses) > 0 {
		q["status"] = bson.M{"$in": f.Statuses}
	}
	if f.AuthorID != "" {
		q["author_id"] = f.AuthorID
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.IDs != nil {
		q["_id"] = bson.M{"$in": f.IDs}
	}
	if f.Search != "" {
		q["$text"] = bson.M{"$search": f.Search}
	}
	return q
}

func mongoSort(field SortField) bson.D {
	spec := bson.D{}
	for _, k := range sortKeys(field) {
		dir := 1
		if k.desc {
			dir = -1
		}
		spec = append(spec, bson.E{Key: k.column, Value: dir})
	}
	return spec
}

func (s *MongoStore) FindPosts(ctx context.Context, filter PostFilter, sort SortField, page Page) ([]*models.Post, error) {
	opts := options.Find().SetSort(mongoSort(sort))
	if page.Offset > 0 {
		opts.SetSkip(int64(page.Offset))
	}
	if page.Limit > 0 {
		opts.SetLimit(int64(page.Limit))
	}
	cur, err := s.posts.Find(ctx, postQuery(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	posts := []*models.Post{}
	for cur.Next(ctx) {
		var p models.Post
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		p.Normalize()
		posts = append(posts, &p)
	}
	return posts, cur.Err()
}

func (s *MongoStore) CountPosts(ctx context.Context, filter PostFilter) (int64, error) {
	return s.posts.CountDocuments(ctx, postQuery(filter))
}

func (s *MongoStore) UpdatePost(ctx context.Context, id string, patch PostPatch) (*models.Post, error) {
	set := bson.M{"updated_at": time.Now()}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Content != nil {
		set["content"] = *patch.Content
	}
	if patch.Excerpt != nil {
		set["excerpt"] = *patch.Excerpt
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.FeaturedImage != nil {
		set["featured_image"] = *patch.FeaturedImage
	}
	if patch.Tags != nil {
		set["tags"] = *patch.Tags
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.AdminFeedback != nil {
		set["admin_feedback"] = *patch.AdminFeedback
	}
	if patch.PublishedAt != nil {
		set["published_at"] = *patch.PublishedAt
	}

	filter := bson.M{"_id": id}
	if len(patch.ExpectStatus) > 0 {
		filter["status"] = bson.M{"$in": patch.ExpectStatus}
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var post models.Post
	err := s.posts.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		n, cerr := s.posts.CountDocuments(ctx, bson.M{"_id": id})
		if cerr != nil {
			return nil, cerr
		}
		if n == 0 {
			return nil, ErrNotFound
		}
		return nil, ErrPrecondition
	}
	if err != nil {
		return nil, err
	}
	post.Normalize()
	return &post, nil
}

func (s *MongoStore) DeletePost(ctx context.Context, id string) error {
	res, err := s.posts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) IncrementViews(ctx context.Context, id string) error {
	res, err := s.posts.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"views": 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) ToggleLike(ctx context.Context, postID, userID string) (LikeResult, error) {
	var out LikeResult
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"likes": 1})

	var doc struct {
		Likes []string `bson:"likes"`
	}
	err := s.posts.FindOneAndUpdate(ctx,
		bson.M{"_id": postID, "likes": userID},
		bson.M{"$pull": bson.M{"likes": userID}},
		opts,
	).Decode(&doc)
	switch {
	case err == nil:
		out.Count = len(doc.Likes)
		return out, nil
	case !errors.Is(err, mongo.ErrNoDocuments):
		return out, err
	}

	err = s.posts.FindOneAndUpdate(ctx,
		bson.M{"_id": postID},
		bson.M{"$addToSet": bson.M{"likes": userID}},
		opts,
	).Decode(&doc)
	if err != nil {
		return out, translateMongo(err)
	}
	out.Liked = true
	out.Count = len(doc.Likes)
	return out, nil
}

func (s *MongoStore) AddComment(ctx context.Context, postID string, comment *models.Comment) error {
	res, err := s.posts.UpdateOne(ctx, bson.M{"_id": postID}, bson.M{"$push": bson.M{"comments": comment}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	comment.PostID = postID
	return nil
}

func (s *MongoStore) DeleteComment(ctx context.Context, postID, commentID string) error {
	res, err := s.posts.UpdateOne(ctx,
		bson.M{"_id": postID, "comments._id": commentID},
		bson.M{"$pull": bson.M{"comments": bson.M{"_id": commentID}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	user.Prepare(time.Now())
	_, err := s.users.InsertOne(ctx, user)
	return translateMongo(err)
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := s.users.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, translateMongo(err)
	}
	return &user, nil
}

func (s *MongoStore) FindUser(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *MongoStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"username": username})
}

func (s *MongoStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, ErrNotFound
	}
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *MongoStore) FindUserByProvider(ctx context.Context, provider, providerID string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"provider": provider, "provider_id": providerID})
}

func (s *MongoStore) FindUsersByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.findUsers(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
}

func (s *MongoStore) findUsers(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.User, error) {
	cur, err := s.users.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var users []*models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *MongoStore) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()
	res, err := s.users.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		return translateMongo(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) ListUsers(ctx context.Context, page Page) ([]*models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if page.Offset > 0 {
		opts.SetSkip(int64(page.Offset))
	}
	if page.Limit > 0 {
		opts.SetLimit(int64(page.Limit))
	}
	return s.findUsers(ctx, bson.M{}, opts)
}

func (s *MongoStore) CountUsers(ctx context.Context, role models.Role) (int64, error) {
	filter := bson.M{}
	if role != "" {
		filter["role"] = role
	}
	return s.users.CountDocuments(ctx, filter)
}

func (s *MongoStore) DeleteUsersByRole(ctx context.Context, role models.Role) (int64, error) {
	res, err := s.users.DeleteMany(ctx, bson.M{"role": role})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
