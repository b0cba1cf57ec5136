package worker

import (
	"context"
	"errors"
	"fmt"

	"listingdesk/internal/domain"
)

var ErrNoAds = errors.New("could not parse ads from script output")

// StatsScraper reads the ads listed on a marketplace user page by running
// the scraper script.
type StatsScraper struct {
	Runner ScriptRunner
}

func (s StatsScraper) Scrape(ctx context.Context, userURL string) ([]domain.AdStats, error) {
	out, err := s.Runner.Run(ctx, nil, "--url", userURL)
	if err != nil {
		return nil, fmt.Errorf("scraper: %w", err)
	}
	ads, ok := ParseUserAds(out)
	if !ok {
		return nil, ErrNoAds
	}
	return ads, nil
}
