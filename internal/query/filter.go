// Package query turns list-request parameters into a typed filter
// specification consumed by the article repository. Every filter is optional,
// all active filters combine with logical AND, and a value that fails to
// parse is treated as if the parameter were absent.
package query

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// PageSize is the fixed number of articles per list page.
const PageSize = 20

// DefaultOrdering sorts newest publish date first.
const DefaultOrdering = "-publish_date"

// orderColumns whitelists the sortable fields.
var orderColumns = map[string]string{
	"publish_date": "articles.publish_date",
	"created_at":   "articles.created_at",
	"title":        "articles.title",
}

// dateLayouts are the accepted publish_date_from/_to formats.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ArticleFilter is the typed specification for one article list request.
type ArticleFilter struct {
	Published       *bool
	AuthorID        *uint
	AuthorUsername  string
	Tag             string
	PublishDateFrom *time.Time
	PublishDateTo   *time.Time
	Search          string
	Ordering        string
	Page            int
}

// ParseArticleFilter builds an ArticleFilter from URL query values.
func ParseArticleFilter(values url.Values) ArticleFilter {
	f := ArticleFilter{
		Ordering: DefaultOrdering,
		Page:     1,
	}

	if values.Has("published") {
		v := parseBool(values.Get("published"))
		f.Published = &v
	}
	if raw := values.Get("author"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			v := uint(id)
			f.AuthorID = &v
		}
	}
	f.AuthorUsername = values.Get("author_username")
	f.Tag = values.Get("tag")
	if t, ok := parseDate(values.Get("publish_date_from")); ok {
		f.PublishDateFrom = &t
	}
	if t, ok := parseDate(values.Get("publish_date_to")); ok {
		f.PublishDateTo = &t
	}
	f.Search = values.Get("search")

	if raw := values.Get("ordering"); raw != "" {
		if _, ok := orderColumns[strings.TrimPrefix(raw, "-")]; ok {
			f.Ordering = raw
		}
	}
	if raw := values.Get("page"); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil && page > 0 {
			f.Page = page
		}
	}

	return f
}

// parseBool treats true/1/yes (case-insensitive) as true, anything else as false.
func parseBool(raw string) bool {
	switch strings.ToLower(raw) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

func parseDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// needsAuthorJoin reports whether a predicate touches the users table.
func (f ArticleFilter) needsAuthorJoin() bool {
	return f.AuthorUsername != "" || f.Search != ""
}

// Scope applies every active predicate to a GORM query rooted at articles.
func (f ArticleFilter) Scope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.needsAuthorJoin() {
			db = db.Joins("JOIN users ON users.id = articles.author_id")
		}
		if f.Tag != "" {
			db = db.Joins("JOIN article_tags ON article_tags.article_id = articles.id").
				Joins("JOIN tags ON tags.id = article_tags.tag_id").
				Where("tags.name = ?", f.Tag)
		}
		if f.Published != nil {
			db = db.Where("articles.published = ?", *f.Published)
		}
		if f.AuthorID != nil {
			db = db.Where("articles.author_id = ?", *f.AuthorID)
		}
		if f.AuthorUsername != "" {
			db = db.Where("LOWER(users.username) LIKE ?", containsPattern(f.AuthorUsername))
		}
		if f.PublishDateFrom != nil {
			db = db.Where("articles.publish_date >= ?", *f.PublishDateFrom)
		}
		if f.PublishDateTo != nil {
			db = db.Where("articles.publish_date <= ?", *f.PublishDateTo)
		}
		if f.Search != "" {
			pattern := containsPattern(f.Search)
			db = db.Where(
				"LOWER(articles.title) LIKE ? OR LOWER(articles.body) LIKE ? OR LOWER(users.username) LIKE ?",
				pattern, pattern, pattern,
			)
		}
		return db
	}
}

// OrderClause renders the validated ordering as a SQL order expression.
func (f ArticleFilter) OrderClause() string {
	ordering := f.Ordering
	if ordering == "" {
		ordering = DefaultOrdering
	}
	direction := "ASC"
	if strings.HasPrefix(ordering, "-") {
		direction = "DESC"
		ordering = ordering[1:]
	}
	column, ok := orderColumns[ordering]
	if !ok {
		return "articles.publish_date DESC"
	}
	return column + " " + direction
}

// Offset returns the row offset for the requested page.
func (f ArticleFilter) Offset() int {
	page := f.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * PageSize
}

// containsPattern escapes LIKE wildcards and wraps the needle for a
// case-insensitive substring match.
func containsPattern(needle string) string {
	escaped := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(strings.ToLower(needle))
	return "%" + escaped + "%"
}
