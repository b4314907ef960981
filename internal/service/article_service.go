package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"newsdesk/internal/cache"
	apperrors "newsdesk/internal/errors"
	"newsdesk/internal/model"
	"newsdesk/internal/query"
	"newsdesk/internal/repository"
)

const articleCacheTTL = 5 * time.Minute

const (
	maxTitleLength   = 200
	maxTagNameLength = 50
)

// ArticleInput carries the writable article fields. Nil pointers mean the
// field was absent from the request, which matters for partial updates and
// for the two tag channels.
type ArticleInput struct {
	Title       *string
	Body        *string
	Image       *string
	ImageURL    *string
	Author      *uint
	PublishDate *time.Time
	Published   *bool
	TagIDs      *[]uint
	TagNames    *[]string
}

// ArticleService handles article CRUD with validation and tag resolution.
type ArticleService interface {
	List(ctx context.Context, filter query.ArticleFilter) ([]model.Article, int64, error)
	Get(ctx context.Context, id uint) (*model.Article, error)
	Create(ctx context.Context, input ArticleInput, callerID *uint) (*model.Article, error)
	Update(ctx context.Context, id uint, input ArticleInput, partial bool) (*model.Article, error)
	Delete(ctx context.Context, id uint) (*model.Article, error)
}

type articleService struct {
	articleRepo repository.ArticleRepository
	tagRepo     repository.TagRepository
	userRepo    repository.UserRepository
	cache       *cache.Client
}

// NewArticleService creates a new article service.
func NewArticleService(
	articleRepo repository.ArticleRepository,
	tagRepo repository.TagRepository,
	userRepo repository.UserRepository,
	cache *cache.Client,
) ArticleService {
	return &articleService{
		articleRepo: articleRepo,
		tagRepo:     tagRepo,
		userRepo:    userRepo,
		cache:       cache,
	}
}

func (s *articleService) cacheKey(id uint) string {
	return fmt.Sprintf("article:%d", id)
}

func (s *articleService) List(ctx context.Context, filter query.ArticleFilter) ([]model.Article, int64, error) {
	return s.articleRepo.List(ctx, filter)
}

func (s *articleService) Get(ctx context.Context, id uint) (*model.Article, error) {
	if data, _ := s.cache.Get(ctx, s.cacheKey(id)); data != nil {
		var cached model.Article
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	article, err := s.articleRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrArticleNotFound
		}
		return nil, err
	}

	if payload, err := json.Marshal(article); err == nil {
		_ = s.cache.Set(ctx, s.cacheKey(id), payload, articleCacheTTL)
	}
	return article, nil
}

func (s *articleService) Create(ctx context.Context, input ArticleInput, callerID *uint) (*model.Article, error) {
	verr := apperrors.NewValidationError()

	title := s.validateTitle(input.Title, false, verr)
	body := s.validateBody(input.Body, false, verr)
	s.validateImageURL(input.ImageURL, verr)

	authorID := s.resolveAuthor(ctx, input.Author, callerID, verr)
	idTags := s.resolveTagIDs(ctx, input.TagIDs, verr)
	names := s.validateTagNames(input.TagNames, verr)

	if verr.HasErrors() {
		return nil, verr
	}

	article := &model.Article{
		Title:    title,
		Body:     body,
		AuthorID: authorID,
	}
	if input.Image != nil {
		article.Image = *input.Image
	}
	if input.ImageURL != nil {
		article.ImageURL = *input.ImageURL
	}
	if input.PublishDate != nil {
		article.PublishDate = *input.PublishDate
	}
	if input.Published != nil {
		article.Published = *input.Published
	}

	if err := s.articleRepo.Create(ctx, article); err != nil {
		return nil, fmt.Errorf("create article: %w", err)
	}

	// Identifier-channel tags are set first, then name-channel tags are
	// added on top: the stored set is the union of both channels.
	if input.TagIDs != nil || input.TagNames != nil {
		tags, err := s.resolveNameTags(ctx, idTags, names)
		if err != nil {
			return nil, err
		}
		if err := s.articleRepo.ReplaceTags(ctx, article, tags); err != nil {
			return nil, fmt.Errorf("set article tags: %w", err)
		}
	}

	return s.reload(ctx, article.ID)
}

func (s *articleService) Update(ctx context.Context, id uint, input ArticleInput, partial bool) (*model.Article, error) {
	article, err := s.articleRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrArticleNotFound
		}
		return nil, err
	}

	verr := apperrors.NewValidationError()

	title := s.validateTitle(input.Title, partial, verr)
	body := s.validateBody(input.Body, partial, verr)
	s.validateImageURL(input.ImageURL, verr)

	var authorID uint
	if input.Author != nil {
		authorID = s.resolveAuthor(ctx, input.Author, nil, verr)
	}
	idTags := s.resolveTagIDs(ctx, input.TagIDs, verr)
	names := s.validateTagNames(input.TagNames, verr)

	if verr.HasErrors() {
		return nil, verr
	}

	if input.Title != nil {
		article.Title = title
	}
	if input.Body != nil {
		article.Body = body
	}
	if input.Image != nil {
		article.Image = *input.Image
	}
	if input.ImageURL != nil {
		article.ImageURL = *input.ImageURL
	}
	if input.Author != nil {
		article.AuthorID = authorID
	}
	if input.PublishDate != nil {
		article.PublishDate = *input.PublishDate
	}
	if input.Published != nil {
		article.Published = *input.Published
	}

	if err := s.articleRepo.Update(ctx, article); err != nil {
		return nil, fmt.Errorf("update article: %w", err)
	}

	// Supplying a tag channel, even as an empty list, replaces the tag set.
	// When both channels arrive together the result is their union.
	if input.TagIDs != nil || input.TagNames != nil {
		tags, err := s.resolveNameTags(ctx, idTags, names)
		if err != nil {
			return nil, err
		}
		if err := s.articleRepo.ReplaceTags(ctx, article, tags); err != nil {
			return nil, fmt.Errorf("replace article tags: %w", err)
		}
	}

	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return s.reload(ctx, id)
}

func (s *articleService) Delete(ctx context.Context, id uint) (*model.Article, error) {
	article, err := s.articleRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrArticleNotFound
		}
		return nil, err
	}

	if err := s.articleRepo.Delete(ctx, article); err != nil {
		return nil, fmt.Errorf("delete article: %w", err)
	}

	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return article, nil
}

// reload re-reads the article so the response carries name-ordered tags and
// the author username, and refreshes the read cache.
func (s *articleService) reload(ctx context.Context, id uint) (*model.Article, error) {
	article, err := s.articleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(article); err == nil {
		_ = s.cache.Set(ctx, s.cacheKey(id), payload, articleCacheTTL)
	}
	return article, nil
}

// validateTitle returns the trimmed title. A missing field is only an error
// on full writes.
func (s *articleService) validateTitle(raw *string, partial bool, verr *apperrors.ValidationError) string {
	if raw == nil {
		if !partial {
			verr.Add("title", "This field is required.")
		}
		return ""
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		verr.Add("title", "Title cannot be empty.")
		return ""
	}
	if utf8.RuneCountInString(trimmed) > maxTitleLength {
		verr.Add("title", fmt.Sprintf("Ensure this field has no more than %d characters.", maxTitleLength))
		return ""
	}
	return trimmed
}

func (s *articleService) validateBody(raw *string, partial bool, verr *apperrors.ValidationError) string {
	if raw == nil {
		if !partial {
			verr.Add("body", "This field is required.")
		}
		return ""
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		verr.Add("body", "Body cannot be empty.")
		return ""
	}
	return trimmed
}

func (s *articleService) validateImageURL(raw *string, verr *apperrors.ValidationError) {
	if raw == nil || *raw == "" {
		return
	}
	if !strings.HasPrefix(*raw, "http://") && !strings.HasPrefix(*raw, "https://") {
		verr.Add("imageUrl", "Image URL must start with http:// or https://")
	}
}

// resolveAuthor picks the caller identity when present, otherwise requires an
// explicit, existing author id.
func (s *articleService) resolveAuthor(ctx context.Context, author *uint, callerID *uint, verr *apperrors.ValidationError) uint {
	id := uint(0)
	switch {
	case callerID != nil:
		id = *callerID
	case author != nil:
		id = *author
	default:
		verr.Add("author", "This field is required.")
		return 0
	}

	if _, err := s.userRepo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			verr.Add("author", "Author does not exist.")
			return 0
		}
		verr.Add("author", "Author could not be verified.")
		return 0
	}
	return id
}

// resolveTagIDs loads the identifier-channel tags; unknown ids are a
// validation failure.
func (s *articleService) resolveTagIDs(ctx context.Context, tagIDs *[]uint, verr *apperrors.ValidationError) []model.Tag {
	if tagIDs == nil || len(*tagIDs) == 0 {
		return nil
	}
	tags, err := s.tagRepo.FindByIDs(ctx, *tagIDs)
	if err != nil {
		verr.Add("tag_ids", "Tags could not be verified.")
		return nil
	}
	if len(tags) != len(uniqueIDs(*tagIDs)) {
		verr.Add("tag_ids", "One or more tag ids do not exist.")
		return nil
	}
	return tags
}

// validateTagNames trims the name-channel entries and drops blanks.
func (s *articleService) validateTagNames(tagNames *[]string, verr *apperrors.ValidationError) []string {
	if tagNames == nil {
		return nil
	}
	cleaned := make([]string, 0, len(*tagNames))
	for _, name := range *tagNames {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		if utf8.RuneCountInString(trimmed) > maxTagNameLength {
			verr.Add("tag_names", fmt.Sprintf("Ensure tag names have no more than %d characters.", maxTagNameLength))
			return nil
		}
		cleaned = append(cleaned, trimmed)
	}
	return cleaned
}

// resolveNameTags resolves the name channel through get-or-create and unions
// it with the already loaded identifier-channel tags.
func (s *articleService) resolveNameTags(ctx context.Context, idTags []model.Tag, names []string) ([]model.Tag, error) {
	tags := make([]model.Tag, 0, len(idTags)+len(names))
	seen := make(map[uint]struct{}, len(idTags)+len(names))
	for _, tag := range idTags {
		if _, ok := seen[tag.ID]; ok {
			continue
		}
		seen[tag.ID] = struct{}{}
		tags = append(tags, tag)
	}
	for _, name := range names {
		tag, err := s.getOrCreateTag(ctx, name)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[tag.ID]; ok {
			continue
		}
		seen[tag.ID] = struct{}{}
		tags = append(tags, *tag)
	}
	return tags, nil
}

// getOrCreateTag inserts the tag and, when another request won the race on
// the unique name index, recovers by re-fetching the existing row. Exactly
// one row per name results and the violation never reaches the caller.
func (s *articleService) getOrCreateTag(ctx context.Context, name string) (*model.Tag, error) {
	tag, err := s.tagRepo.FindByName(ctx, name)
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find tag %q: %w", name, err)
	}

	created := &model.Tag{Name: name}
	err = s.tagRepo.Create(ctx, created)
	if err == nil {
		return created, nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		tag, err := s.tagRepo.FindByName(ctx, name)
		if err != nil {
			// The winning row must exist; a miss here means the index
			// and the lookup disagree on what counts as a duplicate.
			// Not wrapped with %w: a record-not-found here is an internal
			// inconsistency, not something callers should match on.
			return nil, fmt.Errorf("refetch tag %q after duplicate: %v", name, err)
		}
		return tag, nil
	}
	return nil, fmt.Errorf("create tag %q: %w", name, err)
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
