package query

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArticleFilter_Defaults(t *testing.T) {
	f := ParseArticleFilter(url.Values{})

	assert.Nil(t, f.Published)
	assert.Nil(t, f.AuthorID)
	assert.Empty(t, f.AuthorUsername)
	assert.Empty(t, f.Tag)
	assert.Nil(t, f.PublishDateFrom)
	assert.Nil(t, f.PublishDateTo)
	assert.Empty(t, f.Search)
	assert.Equal(t, DefaultOrdering, f.Ordering)
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, "articles.publish_date DESC", f.OrderClause())
}

func TestParseArticleFilter_Published(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{"Yes", true},
		{"false", false},
		{"0", false},
		{"no", false},
		{"banana", false},
		{"", false},
	}
	for _, tc := range cases {
		f := ParseArticleFilter(url.Values{"published": {tc.raw}})
		require.NotNil(t, f.Published, "published=%q should always parse", tc.raw)
		assert.Equal(t, tc.want, *f.Published, "published=%q", tc.raw)
	}
}

func TestParseArticleFilter_AuthorIgnoredWhenUnparseable(t *testing.T) {
	f := ParseArticleFilter(url.Values{"author": {"42"}})
	require.NotNil(t, f.AuthorID)
	assert.Equal(t, uint(42), *f.AuthorID)

	f = ParseArticleFilter(url.Values{"author": {"not-a-number"}})
	assert.Nil(t, f.AuthorID)
}

func TestParseArticleFilter_Dates(t *testing.T) {
	f := ParseArticleFilter(url.Values{
		"publish_date_from": {"2024-03-01"},
		"publish_date_to":   {"2024-03-31T12:00:00Z"},
	})
	require.NotNil(t, f.PublishDateFrom)
	require.NotNil(t, f.PublishDateTo)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *f.PublishDateFrom)
	assert.Equal(t, time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC), *f.PublishDateTo)

	// Malformed values behave as if the parameter were absent.
	f = ParseArticleFilter(url.Values{"publish_date_from": {"not-a-date"}})
	assert.Nil(t, f.PublishDateFrom)
}

func TestParseArticleFilter_Ordering(t *testing.T) {
	cases := []struct {
		raw    string
		clause string
	}{
		{"title", "articles.title ASC"},
		{"-title", "articles.title DESC"},
		{"created_at", "articles.created_at ASC"},
		{"publish_date", "articles.publish_date ASC"},
		{"-publish_date", "articles.publish_date DESC"},
		{"id", "articles.publish_date DESC"},       // not whitelisted
		{"-evil; --", "articles.publish_date DESC"}, // not whitelisted
		{"", "articles.publish_date DESC"},
	}
	for _, tc := range cases {
		f := ParseArticleFilter(url.Values{"ordering": {tc.raw}})
		assert.Equal(t, tc.clause, f.OrderClause(), "ordering=%q", tc.raw)
	}
}

func TestParseArticleFilter_Page(t *testing.T) {
	assert.Equal(t, 1, ParseArticleFilter(url.Values{}).Page)
	assert.Equal(t, 3, ParseArticleFilter(url.Values{"page": {"3"}}).Page)
	assert.Equal(t, 1, ParseArticleFilter(url.Values{"page": {"0"}}).Page)
	assert.Equal(t, 1, ParseArticleFilter(url.Values{"page": {"x"}}).Page)

	f := ArticleFilter{Page: 3}
	assert.Equal(t, 40, f.Offset())
}

func TestContainsPattern_EscapesWildcards(t *testing.T) {
	assert.Equal(t, `%50\% off%`, containsPattern("50% off"))
	assert.Equal(t, `%a\_b%`, containsPattern("A_b"))
}
