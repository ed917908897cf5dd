package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/devnovate/blog/models"
)

// Models lists the tables GormStore migrates.
var Models = []interface{}{&models.User{}, &models.Post{}, &models.Comment{}, &models.PostLike{}}

// GormStore keeps posts and users in MySQL or PostgreSQL.
// Likes live in post_likes and comments in comments.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an opened gorm connection.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

func (s *GormStore) CreatePost(ctx context.Context, post *models.Post) error {
	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error
	return translate(err)
}

func (s *GormStore) withComments(tx *gorm.DB) *gorm.DB {
	return tx.Preload("Comments", func(db *gorm.DB) *gorm.DB {
		return db.Order("comments.created_at ASC")
	})
}

func (s *GormStore) FindPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := s.withComments(s.db.WithContext(ctx)).First(&post, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	posts := []*models.Post{&post}
	if err := s.loadLikes(ctx, posts); err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *GormStore) applyFilter(tx *gorm.DB, f PostFilter) *gorm.DB {
	if len(f.Statuses) > 0 {
		tx = tx.Where("status IN ?", f.Statuses)
	}
	if f.AuthorID != "" {
		tx = tx.Where("author_id = ?", f.AuthorID)
	}
	if f.Category != "" {
		tx = tx.Where("category = ?", f.Category)
	}
	if f.IDs != nil {
		if len(f.IDs) == 0 {
			tx = tx.Where("1 = 0")
		} else {
			tx = tx.Where("id IN ?", f.IDs)
		}
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		tx = tx.Where("title LIKE ? OR content LIKE ? OR tags LIKE ?", like, like, like)
	}
	return tx
}

func (s *GormStore) FindPosts(ctx context.Context, filter PostFilter, sort SortField, page Page) ([]*models.Post, error) {
	tx := s.applyFilter(s.db.WithContext(ctx).Model(&models.Post{}), filter)
	for _, k := range sortKeys(sort) {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: k.column}, Desc: k.desc})
	}
	if page.Offset > 0 {
		tx = tx.Offset(page.Offset)
	}
	if page.Limit > 0 {
		tx = tx.Limit(page.Limit)
	}
	var posts []*models.Post
	if err := s.withComments(tx).Find(&posts).Error; err != nil {
		return nil, err
	}
	if err := s.loadLikes(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// loadLikes fills each post's like set from post_likes in one query.
func (s *GormStore) loadLikes(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
		p.Normalize()
	}
	var likes []models.PostLike
	if err := s.db.WithContext(ctx).Where("post_id IN ?", ids).Order("created_at ASC").Find(&likes).Error; err != nil {
		return err
	}
	byPost := make(map[string]models.StringList, len(posts))
	for _, l := range likes {
		byPost[l.PostID] = append(byPost[l.PostID], l.UserID)
	}
	for _, p := range posts {
		if l, ok := byPost[p.ID]; ok {
			p.Likes = l
		}
	}
	return nil
}

func (s *GormStore) CountPosts(ctx context.Context, filter PostFilter) (int64, error) {
	var total int64
	err := s.applyFilter(s.db.WithContext(ctx).Model(&models.Post{}), filter).Count(&total).Error
	return total, err
}

func (s *GormStore) UpdatePost(ctx context.Context, id string, patch PostPatch) (*models.Post, error) {
	updates := map[string]interface{}{"updated_at": time.Now()}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Content != nil {
		updates["content"] = *patch.Content
	}
	if patch.Excerpt != nil {
		updates["excerpt"] = *patch.Excerpt
	}
	if patch.Category != nil {
		updates["category"] = *patch.Category
	}
	if patch.FeaturedImage != nil {
		updates["featured_image"] = *patch.FeaturedImage
	}
	if patch.Tags != nil {
		updates["tags"] = *patch.Tags
	}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	if patch.AdminFeedback != nil {
		updates["admin_feedback"] = *patch.AdminFeedback
	}
	if patch.PublishedAt != nil {
		updates["published_at"] = *patch.PublishedAt
	}

	tx := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id)
	if len(patch.ExpectStatus) > 0 {
		tx = tx.Where("status IN ?", patch.ExpectStatus)
	}
	res := tx.Updates(updates)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, ErrNotFound
		}
		return nil, ErrPrecondition
	}
	return s.FindPost(ctx, id)
}

func (s *GormStore) DeletePost(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&models.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Where("post_id = ?", id).Delete(&models.PostLike{}).Error
	})
}

func (s *GormStore) IncrementViews(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ToggleLike(ctx context.Context, postID, userID string) (LikeResult, error) {
	var out LikeResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		del := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostLike{})
		if del.Error != nil {
			return del.Error
		}
		if del.RowsAffected == 0 {
			like := models.PostLike{PostID: postID, UserID: userID, CreatedAt: time.Now()}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
				return err
			}
			out.Liked = true
		}
		var count int64
		if err := tx.Model(&models.PostLike{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
			return err
		}
		out.Count = int(count)
		return nil
	})
	return out, err
}

func (s *GormStore) AddComment(ctx context.Context, postID string, comment *models.Comment) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", postID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	comment.PostID = postID
	return translate(s.db.WithContext(ctx).Omit("User").Create(comment).Error)
}

func (s *GormStore) DeleteComment(ctx context.Context, postID, commentID string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND post_id = ?", commentID, postID).Delete(&models.Comment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	return translate(s.db.WithContext(ctx).Create(user).Error)
}

func (s *GormStore) FindUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, ErrNotFound
	}
	var user models.User
	if err := s.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) FindUserByProvider(ctx context.Context, provider, providerID string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("provider = ? AND provider_id = ?", provider, providerID).First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) FindUsersByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []*models.User
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (s *GormStore) UpdateUser(ctx context.Context, user *models.User) error {
	res := s.db.WithContext(ctx).Model(user).Select("*").Omit("id", "created_at").Updates(user)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListUsers(ctx context.Context, page Page) ([]*models.User, error) {
	tx := s.db.WithContext(ctx).Order("created_at DESC")
	if page.Offset > 0 {
		tx = tx.Offset(page.Offset)
	}
	if page.Limit > 0 {
		tx = tx.Limit(page.Limit)
	}
	var users []*models.User
	err := tx.Find(&users).Error
	return users, err
}

func (s *GormStore) CountUsers(ctx context.Context, role models.Role) (int64, error) {
	tx := s.db.WithContext(ctx).Model(&models.User{})
	if role != "" {
		tx = tx.Where("role = ?", role)
	}
	var n int64
	err := tx.Count(&n).Error
	return n, err
}

func (s *GormStore) DeleteUsersByRole(ctx context.Context, role models.Role) (int64, error) {
	res := s.db.WithContext(ctx).Where("role = ?", role).Delete(&models.User{})
	return res.RowsAffected, res.Error
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
