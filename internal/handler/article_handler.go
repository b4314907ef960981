package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"newsdesk/internal/auth"
	"newsdesk/internal/errors"
	"newsdesk/internal/model"
	"newsdesk/internal/query"
	"newsdesk/internal/service"
)

// ArticleHandler handles article endpoints.
type ArticleHandler struct {
	articleService service.ArticleService
}

// NewArticleHandler creates a new article handler.
func NewArticleHandler(articleService service.ArticleService) *ArticleHandler {
	return &ArticleHandler{articleService: articleService}
}

// ArticleRequest represents an article write payload. Pointer fields
// distinguish "absent" from "zero" for partial updates and the tag channels.
type ArticleRequest struct {
	Title       *string    `json:"title"`
	Body        *string    `json:"body"`
	Image       *string    `json:"image"`
	ImageURL    *string    `json:"imageUrl"`
	Author      *uint      `json:"author"`
	PublishDate *time.Time `json:"publish_date"`
	Published   *bool      `json:"published"`
	TagIDs      *[]uint    `json:"tag_ids"`
	TagNames    *[]string  `json:"tag_names"`
}

func (r ArticleRequest) toInput() service.ArticleInput {
	return service.ArticleInput{
		Title:       r.Title,
		Body:        r.Body,
		Image:       r.Image,
		ImageURL:    r.ImageURL,
		Author:      r.Author,
		PublishDate: r.PublishDate,
		Published:   r.Published,
		TagIDs:      r.TagIDs,
		TagNames:    r.TagNames,
	}
}

// TagResponse is the nested tag representation.
type TagResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// ArticleResponse is the read representation of an article.
type ArticleResponse struct {
	ID             uint          `json:"id"`
	Title          string        `json:"title"`
	Body           string        `json:"body"`
	Image          string        `json:"image"`
	ImageURL       string        `json:"imageUrl"`
	Author         uint          `json:"author"`
	AuthorUsername string        `json:"author_username"`
	PublishDate    time.Time     `json:"publish_date"`
	Published      bool          `json:"published"`
	Tags           []TagResponse `json:"tags"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// ArticleListResponse is the page envelope for article lists.
type ArticleListResponse struct {
	Count    int64             `json:"count"`
	Next     *string           `json:"next"`
	Previous *string           `json:"previous"`
	Results  []ArticleResponse `json:"results"`
}

// DeleteResponse confirms a deletion, naming the removed article.
type DeleteResponse struct {
	Message string `json:"message"`
}

func newArticleResponse(a *model.Article) ArticleResponse {
	tags := make([]TagResponse, 0, len(a.Tags))
	for _, tag := range a.Tags {
		tags = append(tags, TagResponse{ID: tag.ID, Name: tag.Name})
	}
	return ArticleResponse{
		ID:             a.ID,
		Title:          a.Title,
		Body:           a.Body,
		Image:          a.Image,
		ImageURL:       a.ImageURL,
		Author:         a.AuthorID,
		AuthorUsername: a.AuthorUsername,
		PublishDate:    a.PublishDate,
		Published:      a.Published,
		Tags:           tags,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// List godoc
// @Summary List articles
// @Description Filtered, ordered, paginated article list. Malformed filter values are ignored.
// @Tags articles
// @Produce json
// @Param published query string false "true/1/yes for published only, anything else for unpublished"
// @Param author query int false "Author id"
// @Param author_username query string false "Author username substring"
// @Param tag query string false "Exact tag name"
// @Param publish_date_from query string false "Publish date lower bound"
// @Param publish_date_to query string false "Publish date upper bound"
// @Param search query string false "Substring over title, body and author username"
// @Param ordering query string false "publish_date, created_at or title, prefix - for descending"
// @Param page query int false "Page number"
// @Success 200 {object} ArticleListResponse
// @Router /articles [get]
func (h *ArticleHandler) List(c echo.Context) error {
	filter := query.ParseArticleFilter(c.QueryParams())

	articles, count, err := h.articleService.List(c.Request().Context(), filter)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	results := make([]ArticleResponse, 0, len(articles))
	for i := range articles {
		results = append(results, newArticleResponse(&articles[i]))
	}

	return c.JSON(http.StatusOK, ArticleListResponse{
		Count:    count,
		Next:     nextPageURL(c, filter.Page, count),
		Previous: previousPageURL(c, filter.Page),
		Results:  results,
	})
}

// Create godoc
// @Summary Create an article
// @Description The author defaults to the authenticated caller; anonymous requests must supply an existing author id.
// @Tags articles
// @Accept json
// @Produce json
// @Param request body ArticleRequest true "Article payload"
// @Success 201 {object} ArticleResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /articles [post]
func (h *ArticleHandler) Create(c echo.Context) error {
	var req ArticleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
	}

	article, err := h.articleService.Create(c.Request().Context(), req.toInput(), auth.CallerID(c))
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusCreated, newArticleResponse(article))
}

// Get godoc
// @Summary Get an article by id
// @Tags articles
// @Produce json
// @Param id path int true "Article ID"
// @Success 200 {object} ArticleResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /articles/{id} [get]
func (h *ArticleHandler) Get(c echo.Context) error {
	id, ok := articleID(c)
	if !ok {
		return notFound()
	}

	article, err := h.articleService.Get(c.Request().Context(), id)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, newArticleResponse(article))
}

// Update godoc
// @Summary Replace an article
// @Description Full update, validated like create.
// @Tags articles
// @Accept json
// @Produce json
// @Param id path int true "Article ID"
// @Param request body ArticleRequest true "Article payload"
// @Success 200 {object} ArticleResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /articles/{id} [put]
func (h *ArticleHandler) Update(c echo.Context) error {
	return h.update(c, false)
}

// Patch godoc
// @Summary Partially update an article
// @Description Only supplied fields are validated and changed.
// @Tags articles
// @Accept json
// @Produce json
// @Param id path int true "Article ID"
// @Param request body ArticleRequest true "Changed fields"
// @Success 200 {object} ArticleResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /articles/{id} [patch]
func (h *ArticleHandler) Patch(c echo.Context) error {
	return h.update(c, true)
}

func (h *ArticleHandler) update(c echo.Context, partial bool) error {
	id, ok := articleID(c)
	if !ok {
		return notFound()
	}

	var req ArticleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
	}

	article, err := h.articleService.Update(c.Request().Context(), id, req.toInput(), partial)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, newArticleResponse(article))
}

// Delete godoc
// @Summary Delete an article
// @Description Returns a confirmation body naming the deleted article instead of 204.
// @Tags articles
// @Produce json
// @Param id path int true "Article ID"
// @Success 200 {object} DeleteResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /articles/{id} [delete]
func (h *ArticleHandler) Delete(c echo.Context) error {
	id, ok := articleID(c)
	if !ok {
		return notFound()
	}

	article, err := h.articleService.Delete(c.Request().Context(), id)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, DeleteResponse{
		Message: fmt.Sprintf("Article '%s' (ID: %d) has been deleted successfully.", article.Title, article.ID),
	})
}

// articleID parses the path id; a non-numeric id behaves like a missing record.
func articleID(c echo.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

func notFound() *echo.HTTPError {
	httpErr := errors.MapErrorToHTTP(errors.ErrArticleNotFound)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

// nextPageURL returns the absolute URL of the following page, or nil on the
// last page.
func nextPageURL(c echo.Context, page int, count int64) *string {
	if int64(page)*query.PageSize >= count {
		return nil
	}
	return pageURL(c, page+1)
}

// previousPageURL returns the absolute URL of the preceding page, or nil on
// the first page.
func previousPageURL(c echo.Context, page int) *string {
	if page <= 1 {
		return nil
	}
	return pageURL(c, page-1)
}

func pageURL(c echo.Context, page int) *string {
	u := *c.Request().URL
	values := u.Query()
	values.Set("page", strconv.Itoa(page))
	u.RawQuery = values.Encode()
	u.Scheme = c.Scheme()
	u.Host = c.Request().Host
	s := u.String()
	return &s
}
