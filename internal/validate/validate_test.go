package validate_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"listingdesk/internal/domain"
	"listingdesk/internal/validate"
)

func TestArticleNumber(t *testing.T) {
	for _, ok := range []string{"A-100", "art_7", "2024.01"} {
		_, valid := validate.ArticleNumber(ok)
		assert.True(t, valid, ok)
	}
	for _, bad := range []string{"", "..", "a/b", `a\b`, "a b"} {
		_, valid := validate.ArticleNumber(bad)
		assert.False(t, valid, bad)
	}
}

func TestPrice(t *testing.T) {
	assert.True(t, validate.Price(decimal.RequireFromString("12.50")))
	assert.True(t, validate.Price(decimal.Zero))
	assert.False(t, validate.Price(decimal.RequireFromString("-1")))
	assert.False(t, validate.Price(decimal.RequireFromString("1.005")))
}

func TestPlatforms(t *testing.T) {
	p, ok := validate.Platforms(nil)
	assert.True(t, ok)
	assert.Equal(t, domain.Platforms{"marktplaats"}, p)

	p, ok = validate.Platforms([]string{"eBay", "marktplaats", "ebay"})
	assert.True(t, ok)
	assert.Equal(t, domain.Platforms{"ebay", "marktplaats"}, p)

	_, ok = validate.Platforms([]string{"craigslist"})
	assert.False(t, ok)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "huis-en-inrichting", validate.Slug("Huis en Inrichting"))
	assert.Equal(t, "tuin--terras", validate.Slug("Tuin & Terras"))
}

func TestStatusAndEmail(t *testing.T) {
	s, ok := validate.Status(" failed ")
	assert.True(t, ok)
	assert.Equal(t, domain.StatusFailed, s)
	_, ok = validate.Status("done")
	assert.False(t, ok)

	_, ok = validate.Email("owner@example.com")
	assert.True(t, ok)
	_, ok = validate.Email("owner@")
	assert.False(t, ok)
}
