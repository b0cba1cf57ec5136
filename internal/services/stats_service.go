package services

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"listingdesk/internal/domain"
	"listingdesk/internal/repos"
)

// AdScraper lists the ads on a marketplace user page.
type AdScraper interface {
	Scrape(ctx context.Context, userURL string) ([]domain.AdStats, error)
}

type StatsService struct {
	Products *repos.ProductRepo
	Scraper  AdScraper
	Now      func() time.Time
}

type SyncResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Updated int    `json:"updated"`
	Total   int    `json:"total"`
}

// Sync refreshes views, saves and ad identity of posted products from the
// user's public ad list. Status is never changed.
func (s *StatsService) Sync(ctx context.Context, a domain.Access, userURL string) (SyncResult, error) {
	u, err := url.Parse(strings.TrimSpace(userURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return SyncResult{}, fmt.Errorf("%w: userUrl must be an http(s) URL", ErrValidation)
	}
	products, err := s.Products.ListPosted(a.Owner())
	if err != nil {
		return SyncResult{}, err
	}
	if len(products) == 0 {
		return SyncResult{Success: true, Message: "no completed products found"}, nil
	}
	ads, err := s.Scraper.Scrape(ctx, u.String())
	if err != nil {
		return SyncResult{}, fmt.Errorf("%w: %v", ErrWorker, err)
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	updated := 0
	for _, p := range products {
		ad, ok := MatchAd(p, ads)
		if !ok {
			continue
		}
		var posted *domain.Timestamp
		if ad.PostedAt != "" {
			posted = &domain.Timestamp{Time: ParsePostedAt(ad.PostedAt, now).UTC()}
		}
		if err := s.Products.UpdateStats(p.ID, ad, posted); err != nil {
			return SyncResult{}, err
		}
		updated++
	}
	return SyncResult{
		Success: true,
		Message: fmt.Sprintf("updated %d of %d products", updated, len(products)),
		Updated: updated,
		Total:   len(products),
	}, nil
}

// MatchAd finds the scraped ad of a product. Criteria are tried in order of
// reliability across all ads: ad id, URL, title, article number in title.
func MatchAd(p domain.Product, ads []domain.AdStats) (domain.AdStats, bool) {
	criteria := []func(domain.AdStats) bool{
		func(ad domain.AdStats) bool {
			return p.MarktplaatsAdID != nil && *p.MarktplaatsAdID != "" && ad.AdID == *p.MarktplaatsAdID
		},
		func(ad domain.AdStats) bool {
			if p.MarktplaatsURL == nil || *p.MarktplaatsURL == "" || ad.AdURL == "" {
				return false
			}
			pu, au := strings.TrimSuffix(*p.MarktplaatsURL, "/"), strings.TrimSuffix(ad.AdURL, "/")
			return pu == au || strings.Contains(pu, au) || strings.Contains(au, pu)
		},
		func(ad domain.AdStats) bool {
			pt, at := strings.ToLower(strings.TrimSpace(p.Title)), strings.ToLower(strings.TrimSpace(ad.Title))
			if pt == "" || at == "" {
				return false
			}
			return strings.Contains(pt, at) || strings.Contains(at, pt)
		},
		func(ad domain.AdStats) bool {
			return p.ArticleNumber != "" && strings.Contains(ad.Title, p.ArticleNumber)
		},
	}
	for _, match := range criteria {
		for _, ad := range ads {
			if match(ad) {
				return ad, true
			}
		}
	}
	return domain.AdStats{}, false
}

var (
	dutchMonths = map[string]time.Month{
		"jan": time.January, "feb": time.February, "mrt": time.March, "apr": time.April,
		"mei": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
		"sep": time.September, "okt": time.October, "nov": time.November, "dec": time.December,
	}
	reDutchDate = regexp.MustCompile(`(\d{1,2})\s+([a-z]{3})\.?\s*(?:'(\d{2}))?`)
)

// ParsePostedAt reads the marketplace's posted-at labels: "Vandaag",
// "Gisteren", "6 nov '25", optionally prefixed with "Sinds". Anything else
// falls back to now.
func ParsePostedAt(s string, now time.Time) time.Time {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSpace(strings.TrimPrefix(s, "sinds"))
	switch s {
	case "vandaag":
		return now
	case "gisteren":
		return now.AddDate(0, 0, -1)
	}
	m := reDutchDate.FindStringSubmatch(s)
	if m == nil {
		return now
	}
	month, ok := dutchMonths[m[2]]
	if !ok {
		return now
	}
	day, _ := strconv.Atoi(m[1])
	year := now.Year()
	if m[3] != "" {
		yy, _ := strconv.Atoi(m[3])
		year = 2000 + yy
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	if m[3] == "" && t.After(now) {
		t = t.AddDate(-1, 0, 0)
	}
	return t
}
