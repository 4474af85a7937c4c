package repository

import (
	"context"
	"errors"

	"myblog/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostFilter narrows a post listing. A nil AuthorID lists every post.
type PostFilter struct {
	AuthorID *uint
}

func (f PostFilter) scope(db *gorm.DB) *gorm.DB {
	if f.AuthorID != nil {
		return db.Where("user_id = ?", *f.AuthorID)
	}
	return db
}

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	// List returns posts newest first with their authors loaded.
	List(ctx context.Context, filter PostFilter, page, perPage int) (*Page[models.Post], error)
	// Update writes title and content; the author and creation time are immutable.
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := post.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("Author").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, filter PostFilter, page, perPage int) (*Page[models.Post], error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Scopes(filter.scope).Count(&total).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	if pastEnd(page, perPage, total) {
		return &Page[models.Post]{Page: page, PerPage: perPage, Total: total}, nil
	}

	var posts []models.Post
	if err := r.db.WithContext(ctx).Scopes(filter.scope).
		Preload("Author").
		Order("created_at DESC").
		Order("id DESC").
		Limit(perPage).
		Offset(offset(page, perPage)).
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	return &Page[models.Post]{Items: posts, Page: page, PerPage: perPage, Total: total}, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	if err := post.Validate(); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).
		Model(&models.Post{ID: post.ID}).
		Select("title", "content").
		Updates(map[string]any{"title": post.Title, "content": post.Content})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Post", post.ID)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}
