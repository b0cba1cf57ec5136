package validate

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"listingdesk/internal/domain"
)

var (
	reEmail   = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reID      = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)
	reArticle = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)
	reSlugDel = regexp.MustCompile(`[^a-z0-9-]`)
	reSpaces  = regexp.MustCompile(`\s+`)
)

func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 254 {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

// Password enforces a length window; bcrypt ignores bytes past 72.
func Password(s string) bool {
	return len(s) >= 8 && len(s) <= 72
}

// ID validates a resource identifier (product/category ids).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

// ArticleNumber validates the key images are stored under. It becomes a
// directory name, so separators and dot-only names are refused.
func ArticleNumber(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.Trim(s, ".") == "" {
		return "", false
	}
	return s, reArticle.MatchString(s)
}

// Title validates a listing title.
func Title(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 200 {
		return "", false
	}
	return s, true
}

// Price accepts non-negative amounts with at most two decimals.
func Price(d decimal.Decimal) bool {
	return !d.IsNegative() && d.Equal(d.Round(2))
}

func Status(s string) (domain.Status, bool) {
	return domain.ParseStatus(strings.TrimSpace(s))
}

// Platforms keeps known platforms in first-seen order and defaults to the
// primary marketplace.
func Platforms(in []string) (domain.Platforms, bool) {
	if len(in) == 0 {
		return domain.Platforms{domain.PlatformMarktplaats}, true
	}
	out := domain.Platforms{}
	for _, p := range in {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != domain.PlatformMarktplaats && p != domain.PlatformEbay {
			return nil, false
		}
		if !out.Has(p) {
			out = append(out, p)
		}
	}
	return out, true
}

// Slug derives a category id from a name: lower case, whitespace to dashes,
// everything outside [a-z0-9-] dropped.
func Slug(name string) string {
	s := reSpaces.ReplaceAllString(strings.ToLower(name), "-")
	return reSlugDel.ReplaceAllString(s, "")
}
