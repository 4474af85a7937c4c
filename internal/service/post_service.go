package service

import (
	"context"

	"myblog/internal/models"
	"myblog/internal/observability"
	"myblog/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const DefaultPostsPerPage = 3

type PostService struct {
	posts   repository.PostRepository
	users   repository.UserRepository
	perPage int
	metrics *observability.Metrics
}

func NewPostService(posts repository.PostRepository, users repository.UserRepository, perPage int, metrics *observability.Metrics) *PostService {
	if perPage <= 0 {
		perPage = DefaultPostsPerPage
	}
	return &PostService{posts: posts, users: users, perPage: perPage, metrics: metrics}
}

type ListPostsInput struct {
	// AuthorID restricts the listing to one user's posts.
	AuthorID *uint
	Page     int
}

// PostListing is one page of posts. Author is set for per-user listings.
type PostListing struct {
	Posts  *repository.Page[models.Post]
	Author *models.User
}

// List pages through posts newest first. Pages below 1, empty pages past the
// first and unknown authors are not found.
func (s *PostService) List(ctx context.Context, in ListPostsInput) (*PostListing, error) {
	if in.Page < 1 {
		return nil, models.NewNotFoundError("Page", in.Page)
	}

	listing := &PostListing{}
	filter := repository.PostFilter{}
	if in.AuthorID != nil {
		author, err := s.users.GetByID(ctx, *in.AuthorID)
		if err != nil {
			return nil, err
		}
		listing.Author = author
		filter.AuthorID = &author.ID
	}

	page, err := s.posts.List(ctx, filter, in.Page, s.perPage)
	if err != nil {
		return nil, err
	}
	if len(page.Items) == 0 && in.Page > 1 {
		return nil, models.NewNotFoundError("Page", in.Page)
	}
	listing.Posts = page
	return listing, nil
}

type CreatePostInput struct {
	UserID  uint
	Title   string
	Content string
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "PostService.CreatePost",
		attribute.Int64("user.id", int64(in.UserID)))
	defer func() { observability.EndSpan(span, err) }()

	post = &models.Post{UserID: in.UserID, Title: in.Title, Content: in.Content}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	s.metrics.Post("create")
	return post, nil
}

// GetOwnedPost loads a post for editing by userID.
func (s *PostService) GetOwnedPost(ctx context.Context, userID, postID uint) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, models.NewForbiddenError("You can only change your own posts")
	}
	return post, nil
}

type UpdatePostInput struct {
	UserID  uint
	PostID  uint
	Title   string
	Content string
}

// UpdatePost replaces title and content of a post owned by the requester.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "PostService.UpdatePost",
		attribute.Int64("post.id", int64(in.PostID)))
	defer func() { observability.EndSpan(span, err) }()

	post, err = s.GetOwnedPost(ctx, in.UserID, in.PostID)
	if err != nil {
		return nil, err
	}
	post.Title = in.Title
	post.Content = in.Content
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}
	s.metrics.Post("update")
	return post, nil
}

type DeletePostInput struct {
	UserID uint
	PostID uint
}

func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) (err error) {
	ctx, span := observability.StartSpan(ctx, "PostService.DeletePost",
		attribute.Int64("post.id", int64(in.PostID)))
	defer func() { observability.EndSpan(span, err) }()

	if _, err := s.GetOwnedPost(ctx, in.UserID, in.PostID); err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, in.PostID); err != nil {
		return err
	}
	s.metrics.Post("delete")
	return nil
}
