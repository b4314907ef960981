package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	apperrors "newsdesk/internal/errors"
	"newsdesk/internal/model"
	"newsdesk/internal/query"
)

// MockArticleRepository is a mock implementation of ArticleRepository.
type MockArticleRepository struct {
	mock.Mock
}

func (m *MockArticleRepository) Create(ctx context.Context, article *model.Article) error {
	args := m.Called(ctx, article)
	return args.Error(0)
}

func (m *MockArticleRepository) Update(ctx context.Context, article *model.Article) error {
	args := m.Called(ctx, article)
	return args.Error(0)
}

func (m *MockArticleRepository) Delete(ctx context.Context, article *model.Article) error {
	args := m.Called(ctx, article)
	return args.Error(0)
}

func (m *MockArticleRepository) FindByID(ctx context.Context, id uint) (*model.Article, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Article), args.Error(1)
}

func (m *MockArticleRepository) List(ctx context.Context, filter query.ArticleFilter) ([]model.Article, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]model.Article), args.Get(1).(int64), args.Error(2)
}

func (m *MockArticleRepository) ReplaceTags(ctx context.Context, article *model.Article, tags []model.Tag) error {
	args := m.Called(ctx, article, tags)
	return args.Error(0)
}

// MockTagRepository is a mock implementation of TagRepository.
type MockTagRepository struct {
	mock.Mock
}

func (m *MockTagRepository) Create(ctx context.Context, tag *model.Tag) error {
	args := m.Called(ctx, tag)
	return args.Error(0)
}

func (m *MockTagRepository) FindByName(ctx context.Context, name string) (*model.Tag, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tag), args.Error(1)
}

func (m *MockTagRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Tag, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Tag), args.Error(1)
}

func (m *MockTagRepository) List(ctx context.Context) ([]model.Tag, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Tag), args.Error(1)
}

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func ptr[T any](v T) *T {
	return &v
}

func newArticleServiceForTest() (ArticleService, *MockArticleRepository, *MockTagRepository, *MockUserRepository) {
	articleRepo := new(MockArticleRepository)
	tagRepo := new(MockTagRepository)
	userRepo := new(MockUserRepository)
	svc := NewArticleService(articleRepo, tagRepo, userRepo, nil)
	return svc, articleRepo, tagRepo, userRepo
}

func TestCreateArticle_TrimsTitleAndBody(t *testing.T) {
	svc, articleRepo, _, userRepo := newArticleServiceForTest()
	ctx := context.Background()

	userRepo.On("FindByID", ctx, uint(1)).Return(&model.User{ID: 1, Username: "alice"}, nil)

	var stored *model.Article
	articleRepo.On("Create", ctx, mock.AnythingOfType("*model.Article")).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).(*model.Article)
			stored.ID = 10
		}).Return(nil)
	articleRepo.On("FindByID", ctx, uint(10)).Return(&model.Article{
		ID: 10, Title: "My Title", Body: "Some body", AuthorID: 1, AuthorUsername: "alice",
	}, nil)

	created, err := svc.Create(ctx, ArticleInput{
		Title:  ptr("  My Title  "),
		Body:   ptr("  Some body  "),
		Author: ptr(uint(1)),
	}, nil)

	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "My Title", stored.Title)
	assert.Equal(t, "Some body", stored.Body)
	assert.Equal(t, "My Title", created.Title)
}

func TestCreateArticle_BlankTitleAndBodyRejected(t *testing.T) {
	svc, articleRepo, _, userRepo := newArticleServiceForTest()
	ctx := context.Background()

	userRepo.On("FindByID", ctx, uint(1)).Return(&model.User{ID: 1}, nil)

	_, err := svc.Create(ctx, ArticleInput{
		Title:  ptr(""),
		Body:   ptr("   "),
		Author: ptr(uint(1)),
	}, nil)

	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "title")
	assert.Contains(t, verr.Fields, "body")
	articleRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateArticle_ImageURLScheme(t *testing.T) {
	svc, articleRepo, _, userRepo := newArticleServiceForTest()
	ctx := context.Background()

	userRepo.On("FindByID", ctx, uint(1)).Return(&model.User{ID: 1}, nil)

	_, err := svc.Create(ctx, ArticleInput{
		Title:    ptr("Title"),
		Body:     ptr("Body"),
		ImageURL: ptr("ftp://x"),
		Author:   ptr(uint(1)),
	}, nil)

	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "imageUrl")
	articleRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

	articleRepo.On("Create", ctx, mock.AnythingOfType("*model.Article")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*model.Article).ID = 11
		}).Return(nil)
	articleRepo.On("FindByID", ctx, uint(11)).Return(&model.Article{ID: 11, Title: "Title"}, nil)

	_, err = svc.Create(ctx, ArticleInput{
		Title:    ptr("Title"),
		Body:     ptr("Body"),
		ImageURL: ptr("https://x"),
		Author:   ptr(uint(1)),
	}, nil)
	assert.NoError(t, err)
}

func TestCreateArticle_AuthorRequiredForAnonymous(t *testing.T) {
	svc, _, _, _ := newArticleServiceForTest()

	_, err := svc.Create(context.Background(), ArticleInput{
		Title: ptr("Title"),
		Body:  ptr("Body"),
	}, nil)

	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "author")
}

func TestCreateArticle_AuthorDefaultsToCaller(t *testing.T) {
	svc, articleRepo, _, userRepo := newArticleServiceForTest()
	ctx := context.Background()

	userRepo.On("FindByID", ctx, uint(7)).Return(&model.User{ID: 7, Username: "bob"}, nil)

	var stored *model.Article
	articleRepo.On("Create", ctx, mock.AnythingOfType("*model.Article")).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).(*model.Article)
			stored.ID = 12
		}).Return(nil)
	articleRepo.On("FindByID", ctx, uint(12)).Return(&model.Article{ID: 12, AuthorID: 7}, nil)

	_, err := svc.Create(ctx, ArticleInput{
		Title: ptr("Title"),
		Body:  ptr("Body"),
	}, ptr(uint(7)))

	require.NoError(t, err)
	assert.Equal(t, uint(7), stored.AuthorID)
}

func TestCreateArticle_UnionsTagChannels(t *testing.T) {
	svc, articleRepo, tagRepo, userRepo := newArticleServiceForTest()
	ctx := context.Background()

	userRepo.On("FindByID", ctx, uint(1)).Return(&model.User{ID: 1}, nil)
	tagRepo.On("FindByIDs", ctx, []uint{1}).Return([]model.Tag{{ID: 1, Name: "go"}}, nil)
	tagRepo.On("FindByName", ctx, "news").Return(nil, gorm.ErrRecordNotFound).Once()
	tagRepo.On("Create", ctx, mock.AnythingOfType("*model.Tag")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*model.Tag).ID = 2
		}).Return(nil)

	articleRepo.On("Create", ctx, mock.AnythingOfType("*model.Article")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*model.Article).ID = 20
		}).Return(nil)

	var replaced []model.Tag
	articleRepo.On("ReplaceTags", ctx, mock.AnythingOfType("*model.Article"), mock.AnythingOfType("[]model.Tag")).
		Run(func(args mock.Arguments) {
			replaced = args.Get(2).([]model.Tag)
		}).Return(nil)
	articleRepo.On("FindByID", ctx, uint(20)).Return(&model.Article{ID: 20}, nil)

	_, err := svc.Create(ctx, ArticleInput{
		Title:    ptr("Title"),
		Body:     ptr("Body"),
		Author:   ptr(uint(1)),
		TagIDs:   ptr([]uint{1}),
		TagNames: ptr([]string{" news "}),
	}, nil)

	require.NoError(t, err)
	require.Len(t, replaced, 2)
	assert.Equal(t, uint(1), replaced[0].ID)
	assert.Equal(t, uint(2), replaced[1].ID)
}

func TestCreateArticle_UnknownTagIDsRejected(t *testing.T) {
	svc, articleRepo, tagRepo, userRepo := newArticleServiceForTest()
	ctx := context.Background()

	userRepo.On("FindByID", ctx, uint(1)).Return(&model.User{ID: 1}, nil)
	tagRepo.On("FindByIDs", ctx, []uint{1, 99}).Return([]model.Tag{{ID: 1, Name: "go"}}, nil)

	_, err := svc.Create(ctx, ArticleInput{
		Title:  ptr("Title"),
		Body:   ptr("Body"),
		Author: ptr(uint(1)),
		TagIDs: ptr([]uint{1, 99}),
	}, nil)

	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "tag_ids")
	articleRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateArticle_TagNameRaceRecovered(t *testing.T) {
	svc, articleRepo, tagRepo, userRepo := newArticleServiceForTest()
	ctx := context.Background()

	userRepo.On("FindByID", ctx, uint(1)).Return(&model.User{ID: 1}, nil)

	// The tag does not exist at first; the insert loses the race on the
	// unique name index and the existing row is fetched instead.
	tagRepo.On("FindByName", ctx, "news").Return(nil, gorm.ErrRecordNotFound).Once()
	tagRepo.On("Create", ctx, mock.AnythingOfType("*model.Tag")).Return(gorm.ErrDuplicatedKey)
	tagRepo.On("FindByName", ctx, "news").Return(&model.Tag{ID: 7, Name: "news"}, nil).Once()

	articleRepo.On("Create", ctx, mock.AnythingOfType("*model.Article")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*model.Article).ID = 30
		}).Return(nil)

	var replaced []model.Tag
	articleRepo.On("ReplaceTags", ctx, mock.AnythingOfType("*model.Article"), mock.AnythingOfType("[]model.Tag")).
		Run(func(args mock.Arguments) {
			replaced = args.Get(2).([]model.Tag)
		}).Return(nil)
	articleRepo.On("FindByID", ctx, uint(30)).Return(&model.Article{ID: 30}, nil)

	_, err := svc.Create(ctx, ArticleInput{
		Title:    ptr("Title"),
		Body:     ptr("Body"),
		Author:   ptr(uint(1)),
		TagNames: ptr([]string{"news"}),
	}, nil)

	require.NoError(t, err)
	require.Len(t, replaced, 1)
	assert.Equal(t, uint(7), replaced[0].ID)
	tagRepo.AssertExpectations(t)
}

func TestCreateArticle_CaseVariantTagNamesDistinct(t *testing.T) {
	svc, articleRepo, tagRepo, userRepo := newArticleServiceForTest()
	ctx := context.Background()

	userRepo.On("FindByID", ctx, uint(1)).Return(&model.User{ID: 1}, nil)

	// Tag names are case-sensitive: "news" exists, "News" does not, and
	// attaching both yields two distinct tags.
	tagRepo.On("FindByName", ctx, "news").Return(&model.Tag{ID: 1, Name: "news"}, nil)
	tagRepo.On("FindByName", ctx, "News").Return(nil, gorm.ErrRecordNotFound)
	tagRepo.On("Create", ctx, mock.AnythingOfType("*model.Tag")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*model.Tag).ID = 2
		}).Return(nil)

	articleRepo.On("Create", ctx, mock.AnythingOfType("*model.Article")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*model.Article).ID = 31
		}).Return(nil)

	var replaced []model.Tag
	articleRepo.On("ReplaceTags", ctx, mock.AnythingOfType("*model.Article"), mock.AnythingOfType("[]model.Tag")).
		Run(func(args mock.Arguments) {
			replaced = args.Get(2).([]model.Tag)
		}).Return(nil)
	articleRepo.On("FindByID", ctx, uint(31)).Return(&model.Article{ID: 31}, nil)

	_, err := svc.Create(ctx, ArticleInput{
		Title:    ptr("Title"),
		Body:     ptr("Body"),
		Author:   ptr(uint(1)),
		TagNames: ptr([]string{"news", "News"}),
	}, nil)

	require.NoError(t, err)
	require.Len(t, replaced, 2)
	assert.Equal(t, "news", replaced[0].Name)
	assert.Equal(t, "News", replaced[1].Name)
}

func TestCreateArticle_TagRefetchMissIsWrapped(t *testing.T) {
	svc, articleRepo, tagRepo, userRepo := newArticleServiceForTest()
	ctx := context.Background()

	userRepo.On("FindByID", ctx, uint(1)).Return(&model.User{ID: 1}, nil)
	articleRepo.On("Create", ctx, mock.AnythingOfType("*model.Article")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*model.Article).ID = 33
		}).Return(nil)

	// The insert reports a duplicate but the follow-up lookup misses. The
	// miss must not escape as a bare record-not-found, which error mapping
	// would mistake for a missing article.
	tagRepo.On("FindByName", ctx, "news").Return(nil, gorm.ErrRecordNotFound).Twice()
	tagRepo.On("Create", ctx, mock.AnythingOfType("*model.Tag")).Return(gorm.ErrDuplicatedKey)

	_, err := svc.Create(ctx, ArticleInput{
		Title:    ptr("Title"),
		Body:     ptr("Body"),
		Author:   ptr(uint(1)),
		TagNames: ptr([]string{"news"}),
	}, nil)

	require.Error(t, err)
	assert.NotErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Contains(t, err.Error(), `"news"`)
}

func TestCreateArticle_MultibyteTitleWithinLimit(t *testing.T) {
	svc, articleRepo, _, userRepo := newArticleServiceForTest()
	ctx := context.Background()

	userRepo.On("FindByID", ctx, uint(1)).Return(&model.User{ID: 1}, nil)
	articleRepo.On("Create", ctx, mock.AnythingOfType("*model.Article")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*model.Article).ID = 32
		}).Return(nil)
	articleRepo.On("FindByID", ctx, uint(32)).Return(&model.Article{ID: 32}, nil)

	// 200 two-byte runes: within the 200-character limit even though the
	// byte length is double.
	title := strings.Repeat("é", 200)
	_, err := svc.Create(ctx, ArticleInput{
		Title:  ptr(title),
		Body:   ptr("Body"),
		Author: ptr(uint(1)),
	}, nil)
	require.NoError(t, err)

	_, err = svc.Create(ctx, ArticleInput{
		Title:  ptr(strings.Repeat("é", 201)),
		Body:   ptr("Body"),
		Author: ptr(uint(1)),
	}, nil)
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "title")
}

func TestCreateArticle_MultibyteTagNameWithinLimit(t *testing.T) {
	svc, articleRepo, tagRepo, userRepo := newArticleServiceForTest()
	ctx := context.Background()

	userRepo.On("FindByID", ctx, uint(1)).Return(&model.User{ID: 1}, nil)

	name := strings.Repeat("ü", 50)
	tagRepo.On("FindByName", ctx, name).Return(&model.Tag{ID: 3, Name: name}, nil)

	articleRepo.On("Create", ctx, mock.AnythingOfType("*model.Article")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*model.Article).ID = 33
		}).Return(nil)
	articleRepo.On("ReplaceTags", ctx, mock.AnythingOfType("*model.Article"), mock.AnythingOfType("[]model.Tag")).Return(nil)
	articleRepo.On("FindByID", ctx, uint(33)).Return(&model.Article{ID: 33}, nil)

	_, err := svc.Create(ctx, ArticleInput{
		Title:    ptr("Title"),
		Body:     ptr("Body"),
		Author:   ptr(uint(1)),
		TagNames: ptr([]string{name}),
	}, nil)
	require.NoError(t, err)

	_, err = svc.Create(ctx, ArticleInput{
		Title:    ptr("Title"),
		Body:     ptr("Body"),
		Author:   ptr(uint(1)),
		TagNames: ptr([]string{strings.Repeat("ü", 51)}),
	}, nil)
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "tag_names")
}

func TestUpdateArticle_PatchOnlyTagIDs(t *testing.T) {
	svc, articleRepo, tagRepo, _ := newArticleServiceForTest()
	ctx := context.Background()

	existing := &model.Article{ID: 5, Title: "Old title", Body: "Old body", AuthorID: 1}
	articleRepo.On("FindByID", ctx, uint(5)).Return(existing, nil)
	tagRepo.On("FindByIDs", ctx, []uint{3}).Return([]model.Tag{{ID: 3, Name: "go"}}, nil)

	var updated *model.Article
	articleRepo.On("Update", ctx, mock.AnythingOfType("*model.Article")).
		Run(func(args mock.Arguments) {
			updated = args.Get(1).(*model.Article)
		}).Return(nil)

	var replaced []model.Tag
	articleRepo.On("ReplaceTags", ctx, mock.AnythingOfType("*model.Article"), mock.AnythingOfType("[]model.Tag")).
		Run(func(args mock.Arguments) {
			replaced = args.Get(2).([]model.Tag)
		}).Return(nil)

	_, err := svc.Update(ctx, 5, ArticleInput{TagIDs: ptr([]uint{3})}, true)

	require.NoError(t, err)
	assert.Equal(t, "Old title", updated.Title)
	assert.Equal(t, "Old body", updated.Body)
	require.Len(t, replaced, 1)
	assert.Equal(t, uint(3), replaced[0].ID)
}

func TestUpdateArticle_EmptyTagIDsClearsTags(t *testing.T) {
	svc, articleRepo, _, _ := newArticleServiceForTest()
	ctx := context.Background()

	existing := &model.Article{ID: 6, Title: "Title", Body: "Body", Tags: []model.Tag{{ID: 1}}}
	articleRepo.On("FindByID", ctx, uint(6)).Return(existing, nil)
	articleRepo.On("Update", ctx, mock.AnythingOfType("*model.Article")).Return(nil)

	var replaced []model.Tag
	articleRepo.On("ReplaceTags", ctx, mock.AnythingOfType("*model.Article"), mock.AnythingOfType("[]model.Tag")).
		Run(func(args mock.Arguments) {
			replaced = args.Get(2).([]model.Tag)
		}).Return(nil)

	_, err := svc.Update(ctx, 6, ArticleInput{TagIDs: ptr([]uint{})}, true)

	require.NoError(t, err)
	assert.Empty(t, replaced)
}

func TestUpdateArticle_FullUpdateRequiresTitleAndBody(t *testing.T) {
	svc, articleRepo, _, _ := newArticleServiceForTest()
	ctx := context.Background()

	articleRepo.On("FindByID", ctx, uint(5)).Return(&model.Article{ID: 5, Title: "Old"}, nil)

	_, err := svc.Update(ctx, 5, ArticleInput{Published: ptr(true)}, false)

	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "title")
	assert.Contains(t, verr.Fields, "body")
	articleRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateArticle_NotFound(t *testing.T) {
	svc, articleRepo, _, _ := newArticleServiceForTest()
	ctx := context.Background()

	articleRepo.On("FindByID", ctx, uint(404)).Return(nil, gorm.ErrRecordNotFound)

	_, err := svc.Update(ctx, 404, ArticleInput{Title: ptr("x"), Body: ptr("y")}, false)
	assert.ErrorIs(t, err, apperrors.ErrArticleNotFound)
}

func TestDeleteArticle(t *testing.T) {
	svc, articleRepo, _, _ := newArticleServiceForTest()
	ctx := context.Background()

	existing := &model.Article{ID: 5, Title: "Doomed"}
	articleRepo.On("FindByID", ctx, uint(5)).Return(existing, nil)
	articleRepo.On("Delete", ctx, existing).Return(nil)

	deleted, err := svc.Delete(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, uint(5), deleted.ID)
	assert.Equal(t, "Doomed", deleted.Title)

	articleRepo.On("FindByID", ctx, uint(6)).Return(nil, gorm.ErrRecordNotFound)
	_, err = svc.Delete(ctx, 6)
	assert.ErrorIs(t, err, apperrors.ErrArticleNotFound)
}

func TestCreateArticle_ExplicitPublishDateApplied(t *testing.T) {
	svc, articleRepo, _, userRepo := newArticleServiceForTest()
	ctx := context.Background()

	userRepo.On("FindByID", ctx, uint(1)).Return(&model.User{ID: 1}, nil)

	var stored *model.Article
	articleRepo.On("Create", ctx, mock.AnythingOfType("*model.Article")).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).(*model.Article)
			stored.ID = 40
		}).Return(nil)
	articleRepo.On("FindByID", ctx, uint(40)).Return(&model.Article{ID: 40}, nil)

	when := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	_, err := svc.Create(ctx, ArticleInput{
		Title:       ptr("Title"),
		Body:        ptr("Body"),
		Author:      ptr(uint(1)),
		PublishDate: &when,
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, when, stored.PublishDate)
}
