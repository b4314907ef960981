package repository

import (
	"context"

	"gorm.io/gorm"

	"newsdesk/internal/model"
	"newsdesk/internal/query"
)

// ArticleRepository defines article persistence operations.
type ArticleRepository interface {
	Create(ctx context.Context, article *model.Article) error
	Update(ctx context.Context, article *model.Article) error
	Delete(ctx context.Context, article *model.Article) error
	FindByID(ctx context.Context, id uint) (*model.Article, error)
	List(ctx context.Context, filter query.ArticleFilter) ([]model.Article, int64, error)
	ReplaceTags(ctx context.Context, article *model.Article, tags []model.Tag) error
}

type articleRepository struct {
	db *gorm.DB
}

// NewArticleRepository creates a new article repository.
func NewArticleRepository(db *gorm.DB) ArticleRepository {
	return &articleRepository{db: db}
}

// tagOrder keeps nested tags name-ordered on every read.
func tagOrder(db *gorm.DB) *gorm.DB {
	return db.Order("tags.name")
}

func (r *articleRepository) Create(ctx context.Context, article *model.Article) error {
	// Tag associations are managed explicitly through ReplaceTags.
	return r.db.WithContext(ctx).Omit("Tags").Create(article).Error
}

func (r *articleRepository) Update(ctx context.Context, article *model.Article) error {
	return r.db.WithContext(ctx).Omit("Tags").Save(article).Error
}

// Delete removes the article and its join rows; the tags themselves are kept.
func (r *articleRepository) Delete(ctx context.Context, article *model.Article) error {
	return r.db.WithContext(ctx).Select("Tags").Delete(article).Error
}

func (r *articleRepository) FindByID(ctx context.Context, id uint) (*model.Article, error) {
	var article model.Article
	err := r.db.WithContext(ctx).
		Preload("Tags", tagOrder).
		Joins("Author").
		First(&article, "articles.id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// List returns one page of articles matching the filter plus the total match
// count before pagination.
func (r *articleRepository) List(ctx context.Context, filter query.ArticleFilter) ([]model.Article, int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Article{}).
		Scopes(filter.Scope()).
		Count(&count).Error
	if err != nil {
		return nil, 0, err
	}

	var articles []model.Article
	err = r.db.WithContext(ctx).
		Model(&model.Article{}).
		Scopes(filter.Scope()).
		Preload("Tags", tagOrder).
		Preload("Author").
		Order(filter.OrderClause()).
		Offset(filter.Offset()).
		Limit(query.PageSize).
		Find(&articles).Error
	if err != nil {
		return nil, 0, err
	}
	return articles, count, nil
}

// ReplaceTags swaps the article's tag set for the given tags.
func (r *articleRepository) ReplaceTags(ctx context.Context, article *model.Article, tags []model.Tag) error {
	assoc := r.db.WithContext(ctx).Model(article).Association("Tags")
	var err error
	if len(tags) == 0 {
		err = assoc.Clear()
	} else {
		err = assoc.Replace(tags)
	}
	if err != nil {
		return err
	}
	article.Tags = tags
	return nil
}
