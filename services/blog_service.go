// Package services holds the blog's business rules: the moderation lifecycle,
// trending ranking and reader engagement.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/devnovate/blog/events"
	"github.com/devnovate/blog/models"
	"github.com/devnovate/blog/search"
	"github.com/devnovate/blog/store"
	"github.com/devnovate/blog/utils"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	// searchCandidates caps the ids requested from the search index per listing.
	searchCandidates = 1000
	recentPending    = 5
)

// BlogService implements post authoring, moderation and engagement on top of a Store.
type BlogService struct {
	store     store.Store
	publisher events.Publisher
	indexer   search.Indexer
	logger    *zap.Logger
	now       func() time.Time
}

type Option func(*BlogService)

// WithPublisher sends moderation events to p.
func WithPublisher(p events.Publisher) Option {
	return func(s *BlogService) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithIndexer mirrors approved posts into idx and resolves listing searches through it.
func WithIndexer(idx search.Indexer) Option {
	return func(s *BlogService) { s.indexer = idx }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *BlogService) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *BlogService) { s.now = now }
}

func NewBlogService(st store.Store, opts ...Option) *BlogService {
	s := &BlogService{
		store:     st,
		publisher: events.NoopPublisher{},
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PostInput carries author-supplied fields for create and edit.
type PostInput struct {
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	Excerpt       string   `json:"excerpt"`
	Category      string   `json:"category"`
	Tags          []string `json:"tags"`
	FeaturedImage string   `json:"featured_image"`
	// Status may be "draft" on create; anything else submits for review.
	Status string `json:"status"`
}

// ListQuery selects a page of public posts.
type ListQuery struct {
	Page     int
	Limit    int
	Search   string
	Category string
	Sort     string
}

// PostPage is one page of a post listing.
type PostPage struct {
	Items []*models.Post
	Page  int
	Limit int
	Total int64
}

// TotalPages returns the number of pages for Total at Limit.
func (p *PostPage) TotalPages() int {
	if p.Limit <= 0 {
		return 0
	}
	return int((p.Total + int64(p.Limit) - 1) / int64(p.Limit))
}

// LikeStatus is returned by ToggleLike.
type LikeStatus struct {
	Likes   int  `json:"likes"`
	IsLiked bool `json:"is_liked"`
}

type DashboardStats struct {
	TotalBlogs    int64 `json:"total_blogs"`
	PendingBlogs  int64 `json:"pending_blogs"`
	ApprovedBlogs int64 `json:"approved_blogs"`
	TotalUsers    int64 `json:"total_users"`
}

type Dashboard struct {
	Stats       DashboardStats `json:"stats"`
	RecentBlogs []*models.Post `json:"recent_blogs"`
}

// NormalizePage clamps paging values to the defaults used by every listing.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

// AutoExcerpt derives an excerpt from content: the first 200 characters plus "..." when longer.
func AutoExcerpt(content string) string {
	if utf8.RuneCountInString(content) <= models.AutoExcerptRunes {
		return content
	}
	runes := []rune(content)
	return string(runes[:models.AutoExcerptRunes]) + "..."
}

func validateTitle(title string) error {
	if title == "" {
		return invalid("title", "title is required")
	}
	if utf8.RuneCountInString(title) > models.MaxTitleLength {
		return invalid("title", "title cannot exceed 200 characters")
	}
	return nil
}

func validateCategory(category string) error {
	if !models.ValidCategory(category) {
		return invalid("category", "category must be one of: "+strings.Join(models.Categories, ", "))
	}
	return nil
}

func validateExcerpt(excerpt string) error {
	if utf8.RuneCountInString(excerpt) > models.MaxExcerptLength {
		return invalid("excerpt", "excerpt cannot exceed 300 characters")
	}
	return nil
}

// Create stores a new post authored by actor. It starts pending unless a draft is requested.
func (s *BlogService) Create(ctx context.Context, actor Actor, in PostInput) (*models.Post, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}
	title := utils.SanitizeText(in.Title)
	content := strings.TrimSpace(utils.Sanitize(in.Content))
	category := strings.TrimSpace(in.Category)
	excerpt := utils.SanitizeText(in.Excerpt)

	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if content == "" {
		return nil, invalid("content", "content is required")
	}
	if err := validateCategory(category); err != nil {
		return nil, err
	}
	if err := validateExcerpt(excerpt); err != nil {
		return nil, err
	}
	if excerpt == "" {
		excerpt = AutoExcerpt(content)
	}

	now := s.now()
	post := &models.Post{
		ID:            uuid.NewString(),
		Title:         title,
		Content:       content,
		Excerpt:       excerpt,
		AuthorID:      actor.UserID,
		Category:      category,
		Tags:          utils.CleanTags(in.Tags),
		FeaturedImage: strings.TrimSpace(in.FeaturedImage),
		Status:        InitialStatus(in.Status),
		Likes:         models.StringList{},
		Comments:      []models.Comment{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreatePost(ctx, post); err != nil {
		return nil, err
	}
	if post.Status == models.StatusPending {
		s.publish(ctx, events.TypePostSubmitted, post)
	}
	s.populate(ctx, false, post)
	return post, nil
}

// Update applies an author's edit and sends the post back to review.
// Empty fields keep their previous values.
func (s *BlogService) Update(ctx context.Context, actor Actor, id string, in PostInput) (*models.Post, error) {
	post, err := s.findPost(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := Transition(actor, post, ActionEdit)
	if err != nil {
		return nil, err
	}

	patch := store.PostPatch{Status: &next, ExpectStatus: AllowedFrom(ActionEdit)}
	if title := utils.SanitizeText(in.Title); title != "" {
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		patch.Title = &title
	}
	if content := strings.TrimSpace(utils.Sanitize(in.Content)); content != "" {
		patch.Content = &content
	}
	if excerpt := utils.SanitizeText(in.Excerpt); excerpt != "" {
		if err := validateExcerpt(excerpt); err != nil {
			return nil, err
		}
		patch.Excerpt = &excerpt
	}
	if category := strings.TrimSpace(in.Category); category != "" {
		if err := validateCategory(category); err != nil {
			return nil, err
		}
		patch.Category = &category
	}
	if in.Tags != nil {
		tags := models.StringList(utils.CleanTags(in.Tags))
		patch.Tags = &tags
	}
	if img := strings.TrimSpace(in.FeaturedImage); img != "" {
		patch.FeaturedImage = &img
	}

	updated, err := s.store.UpdatePost(ctx, id, patch)
	if err != nil {
		return nil, s.transitionErr(err, ActionEdit, post.Status)
	}
	s.publish(ctx, events.TypePostSubmitted, updated)
	s.populate(ctx, false, updated)
	return updated, nil
}

// Get returns a publicly visible post and counts the read.
func (s *BlogService) Get(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.findPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Status != models.StatusApproved {
		return nil, ErrPostNotFound
	}
	if err := s.store.IncrementViews(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	post.Views++
	s.populate(ctx, false, post)
	return post, nil
}

// List returns a page of approved posts.
func (s *BlogService) List(ctx context.Context, q ListQuery) (*PostPage, error) {
	page, limit := NormalizePage(q.Page, q.Limit)
	filter := store.PostFilter{Statuses: []models.Status{models.StatusApproved}}
	if c := strings.TrimSpace(q.Category); c != "" && !strings.EqualFold(c, "all") {
		filter.Category = c
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		if s.indexer != nil {
			ids, err := s.indexer.Search(ctx, term, searchCandidates)
			if err != nil {
				s.logger.Warn("search index lookup failed, falling back to store search", zap.Error(err))
				filter.Search = term
			} else {
				filter.IDs = ids
			}
		} else {
			filter.Search = term
		}
	}
	return s.page(ctx, filter, store.ParseSort(q.Sort), page, limit, false)
}

func (s *BlogService) page(ctx context.Context, filter store.PostFilter, sort store.SortField, page, limit int, withEmail bool) (*PostPage, error) {
	posts, err := s.store.FindPosts(ctx, filter, sort, store.Page{Offset: (page - 1) * limit, Limit: limit})
	if err != nil {
		return nil, err
	}
	total, err := s.store.CountPosts(ctx, filter)
	if err != nil {
		return nil, err
	}
	s.populate(ctx, withEmail, posts...)
	return &PostPage{Items: posts, Page: page, Limit: limit, Total: total}, nil
}

// Trending ranks every approved post and returns the top TrendingLimit.
func (s *BlogService) Trending(ctx context.Context) ([]RankedPost, error) {
	posts, err := store.ApprovedPosts(ctx, s.store)
	if err != nil {
		return nil, err
	}
	ranked := RankTrending(posts, s.now(), TrendingLimit)
	top := make([]*models.Post, 0, len(ranked))
	for _, r := range ranked {
		top = append(top, r.Post)
	}
	s.populate(ctx, false, top...)
	return ranked, nil
}

// ToggleLike adds actor's like to an approved post, or removes it when already present.
func (s *BlogService) ToggleLike(ctx context.Context, actor Actor, id string) (*LikeStatus, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}
	if _, err := s.findApproved(ctx, id); err != nil {
		return nil, err
	}
	res, err := s.store.ToggleLike(ctx, id, actor.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &LikeStatus{Likes: res.Count, IsLiked: res.Liked}, nil
}

// AddComment appends actor's comment to an approved post.
func (s *BlogService) AddComment(ctx context.Context, actor Actor, id, text string) (*models.Comment, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalid("text", "comment text is required")
	}
	if utf8.RuneCountInString(text) > models.MaxCommentLength {
		return nil, invalid("text", "comment cannot exceed 1000 characters")
	}
	text = utils.SanitizeText(text)
	if text == "" {
		return nil, invalid("text", "comment text is required")
	}
	if _, err := s.findApproved(ctx, id); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ID:        uuid.NewString(),
		UserID:    actor.UserID,
		Text:      text,
		CreatedAt: s.now(),
	}
	if err := s.store.AddComment(ctx, id, comment); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	if u, err := s.store.FindUser(ctx, actor.UserID); err == nil {
		comment.User = u.Summary()
	}
	return comment, nil
}

// DeleteComment removes one comment. Only its author or an admin may do so.
func (s *BlogService) DeleteComment(ctx context.Context, actor Actor, postID, commentID string) error {
	if !actor.Authenticated() {
		return ErrUnauthorized
	}
	post, err := s.findPost(ctx, postID)
	if err != nil {
		return err
	}
	var comment *models.Comment
	for i := range post.Comments {
		if post.Comments[i].ID == commentID {
			comment = &post.Comments[i]
			break
		}
	}
	if comment == nil {
		return ErrCommentNotFound
	}
	if comment.UserID != actor.UserID && !actor.IsAdmin() {
		return fmt.Errorf("%w: only the comment author or an admin can delete this comment", ErrForbidden)
	}
	if err := s.store.DeleteComment(ctx, postID, commentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrCommentNotFound
		}
		return err
	}
	return nil
}

// Delete permanently removes a post. Authors may delete their own posts, admins any post.
func (s *BlogService) Delete(ctx context.Context, actor Actor, id string) error {
	post, err := s.findPost(ctx, id)
	if err != nil {
		return err
	}
	if _, err := Transition(actor, post, ActionDelete); err != nil {
		return err
	}
	if err := s.store.DeletePost(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPostNotFound
		}
		return err
	}
	s.unindex(ctx, id)
	s.publish(ctx, events.TypePostDeleted, post)
	return nil
}

// MyPosts lists every post of actor regardless of status, newest first.
func (s *BlogService) MyPosts(ctx context.Context, actor Actor, page, limit int) (*PostPage, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}
	page, limit = NormalizePage(page, limit)
	return s.page(ctx, store.PostFilter{AuthorID: actor.UserID}, store.SortCreatedAt, page, limit, false)
}

// Dashboard summarizes moderation work for admins.
func (s *BlogService) Dashboard(ctx context.Context, actor Actor) (*Dashboard, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var (
		d   Dashboard
		err error
	)
	if d.Stats.TotalBlogs, err = s.store.CountPosts(ctx, store.PostFilter{}); err != nil {
		return nil, err
	}
	pending := store.PostFilter{Statuses: []models.Status{models.StatusPending}}
	if d.Stats.PendingBlogs, err = s.store.CountPosts(ctx, pending); err != nil {
		return nil, err
	}
	approved := store.PostFilter{Statuses: []models.Status{models.StatusApproved}}
	if d.Stats.ApprovedBlogs, err = s.store.CountPosts(ctx, approved); err != nil {
		return nil, err
	}
	if d.Stats.TotalUsers, err = s.store.CountUsers(ctx, models.RoleUser); err != nil {
		return nil, err
	}
	if d.RecentBlogs, err = s.store.FindPosts(ctx, pending, store.SortCreatedAt, store.Page{Limit: recentPending}); err != nil {
		return nil, err
	}
	s.populate(ctx, true, d.RecentBlogs...)
	return &d, nil
}

// AdminList lists posts of any status; status "" or "all" disables the filter.
func (s *BlogService) AdminList(ctx context.Context, actor Actor, status string, page, limit int) (*PostPage, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	filter := store.PostFilter{}
	if status = strings.TrimSpace(status); status != "" && !strings.EqualFold(status, "all") {
		st := models.Status(strings.ToLower(status))
		if !st.Valid() {
			return nil, invalid("status", "unknown status "+status)
		}
		filter.Statuses = []models.Status{st}
	}
	page, limit = NormalizePage(page, limit)
	return s.page(ctx, filter, store.SortCreatedAt, page, limit, true)
}

// Approve publishes a pending post.
func (s *BlogService) Approve(ctx context.Context, actor Actor, id string) (*models.Post, error) {
	now := s.now()
	post, err := s.moderate(ctx, actor, id, ActionApprove, store.PostPatch{PublishedAt: &now})
	if err != nil {
		return nil, err
	}
	if s.indexer != nil {
		if err := s.indexer.Index(ctx, post); err != nil {
			s.logger.Warn("failed to index approved blog", zap.String("blog_id", id), zap.Error(err))
		}
	}
	s.publish(ctx, events.TypePostApproved, post)
	return post, nil
}

// Reject sends a pending post back to its author with feedback.
func (s *BlogService) Reject(ctx context.Context, actor Actor, id, feedback string) (*models.Post, error) {
	feedback = utils.SanitizeText(feedback)
	post, err := s.moderate(ctx, actor, id, ActionReject, store.PostPatch{AdminFeedback: &feedback})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.TypePostRejected, post)
	return post, nil
}

// Hide removes a post from public view whatever its state.
func (s *BlogService) Hide(ctx context.Context, actor Actor, id string) (*models.Post, error) {
	post, err := s.moderate(ctx, actor, id, ActionHide, store.PostPatch{})
	if err != nil {
		return nil, err
	}
	s.unindex(ctx, id)
	s.publish(ctx, events.TypePostHidden, post)
	return post, nil
}

// moderate runs an admin transition and persists it conditionally on the state it was checked against.
func (s *BlogService) moderate(ctx context.Context, actor Actor, id string, action Action, patch store.PostPatch) (*models.Post, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	post, err := s.findPost(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := Transition(actor, post, action)
	if err != nil {
		return nil, err
	}
	patch.Status = &next
	patch.ExpectStatus = []models.Status{post.Status}
	updated, err := s.store.UpdatePost(ctx, id, patch)
	if err != nil {
		return nil, s.transitionErr(err, action, post.Status)
	}
	s.populate(ctx, true, updated)
	return updated, nil
}

func (s *BlogService) transitionErr(err error, action Action, from models.Status) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrPostNotFound
	case errors.Is(err, store.ErrPrecondition):
		return &TransitionError{Action: action, From: from}
	default:
		return err
	}
}

func requireAdmin(actor Actor) error {
	if !actor.Authenticated() {
		return ErrUnauthorized
	}
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: admin access required", ErrForbidden)
	}
	return nil
}

func (s *BlogService) findPost(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.store.FindPost(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return post, nil
}

func (s *BlogService) findApproved(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.findPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Status != models.StatusApproved {
		return nil, ErrPostNotFound
	}
	return post, nil
}

// populate attaches author and commenter summaries. Lookup failures are logged, not returned.
func (s *BlogService) populate(ctx context.Context, withEmail bool, posts ...*models.Post) {
	if len(posts) == 0 {
		return
	}
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		p.Normalize()
		ids = append(ids, p.AuthorID)
		for _, c := range p.Comments {
			ids = append(ids, c.UserID)
		}
	}
	users, err := s.store.FindUsersByIDs(ctx, utils.UniqueStrings(ids))
	if err != nil {
		s.logger.Warn("failed to load users for blogs", zap.Error(err))
		return
	}
	byID := make(map[string]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, p := range posts {
		if u, ok := byID[p.AuthorID]; ok {
			p.Author = u.Summary()
			if withEmail {
				p.Author.Email = u.Email
			}
		}
		for i := range p.Comments {
			if u, ok := byID[p.Comments[i].UserID]; ok {
				p.Comments[i].User = u.Summary()
			}
		}
	}
}

// publish emits a moderation event. Failures never fail the request.
func (s *BlogService) publish(ctx context.Context, eventType string, post *models.Post) {
	author, err := s.store.FindUser(ctx, post.AuthorID)
	if err != nil {
		author = nil
	}
	if err := s.publisher.Publish(ctx, events.NewPostEvent(eventType, post, author)); err != nil {
		s.logger.Warn("failed to publish blog event",
			zap.String("type", eventType),
			zap.String("blog_id", post.ID),
			zap.Error(err),
		)
	}
}

func (s *BlogService) unindex(ctx context.Context, id string) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.Remove(ctx, id); err != nil {
		s.logger.Warn("failed to remove blog from search index", zap.String("blog_id", id), zap.Error(err))
	}
}
