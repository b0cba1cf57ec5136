package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listingdesk/internal/domain"
	"listingdesk/internal/repos"
	"listingdesk/internal/services"
)

type fakeScraper struct {
	ads []domain.AdStats
	err error
	url string
}

func (f *fakeScraper) Scrape(_ context.Context, u string) ([]domain.AdStats, error) {
	f.url = u
	return f.ads, f.err
}

func strp(s string) *string { return &s }

func TestMatchAd_Priority(t *testing.T) {
	p := domain.Product{
		Title:           "Eiken Stoel",
		ArticleNumber:   "ST-1",
		MarktplaatsAdID: strp("m2"),
		MarktplaatsURL:  strp("https://www.marktplaats.nl/v/stoel/m3/"),
	}
	ads := []domain.AdStats{
		{AdID: "m1", Title: "eiken stoel"},
		{AdID: "m3", AdURL: "https://www.marktplaats.nl/v/stoel/m3"},
		{AdID: "m2", Title: "something else"},
	}
	ad, ok := services.MatchAd(p, ads)
	require.True(t, ok)
	assert.Equal(t, "m2", ad.AdID)

	p.MarktplaatsAdID = nil
	ad, _ = services.MatchAd(p, ads)
	assert.Equal(t, "m3", ad.AdID)

	p.MarktplaatsURL = nil
	ad, _ = services.MatchAd(p, ads)
	assert.Equal(t, "m1", ad.AdID)

	p.Title = "Tafel"
	ad, ok = services.MatchAd(p, []domain.AdStats{{AdID: "m9", Title: "Kast (ST-1)"}})
	require.True(t, ok)
	assert.Equal(t, "m9", ad.AdID)

	_, ok = services.MatchAd(p, []domain.AdStats{{AdID: "m10", Title: "Bank"}})
	assert.False(t, ok)
}

func TestParsePostedAt(t *testing.T) {
	now := time.Date(2025, 11, 20, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, now, services.ParsePostedAt("Vandaag", now))
	assert.Equal(t, now.AddDate(0, 0, -1), services.ParsePostedAt("Gisteren", now))
	assert.Equal(t, time.Date(2025, 11, 6, 0, 0, 0, 0, time.UTC), services.ParsePostedAt("6 nov '25", now))
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), services.ParsePostedAt("Sinds 1 mrt '24", now))
	// no year and in the future means last year
	assert.Equal(t, time.Date(2024, 12, 24, 0, 0, 0, 0, time.UTC), services.ParsePostedAt("24 dec", now))
	assert.Equal(t, now, services.ParsePostedAt("onbekend", now))
}

func TestStatsService_Sync(t *testing.T) {
	db := memdb(t)
	seedUser(t, db, "u1")
	prods := repos.NewProductRepo(db)
	posted := seedProduct(t, db, "u1", "ST-1", 0)
	_, err := prods.Claim(posted.ID)
	require.NoError(t, err)
	_, err = prods.Complete(posted.ID, domain.PostOutcome{AdID: "m1", AdURL: "https://x/m1", Views: 1})
	require.NoError(t, err)
	unmatched := seedProduct(t, db, "u1", "ST-2", time.Second)
	_, err = prods.Claim(unmatched.ID)
	require.NoError(t, err)
	_, err = prods.Complete(unmatched.ID, domain.PostOutcome{AdID: "m2", AdURL: "https://x/m2"})
	require.NoError(t, err)
	seedProduct(t, db, "u1", "ST-3", 2*time.Second)

	now := time.Date(2025, 11, 20, 12, 0, 0, 0, time.UTC)
	scraper := &fakeScraper{ads: []domain.AdStats{{AdID: "m1", AdURL: "https://x/m1-new", Views: 40, Saves: 6, PostedAt: "Gisteren"}}}
	svc := &services.StatsService{Products: prods, Scraper: scraper, Now: func() time.Time { return now }}

	res, err := svc.Sync(context.Background(), session("u1"), "https://www.marktplaats.nl/u/someone/123/")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, "https://www.marktplaats.nl/u/someone/123/", scraper.url)

	got, err := prods.Get(posted.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, 40, got.Views)
	assert.Equal(t, 6, got.Saves)
	assert.Equal(t, "https://x/m1-new", *got.MarktplaatsURL)
	require.NotNil(t, got.PostedAt)
	assert.True(t, got.PostedAt.Equal(now.AddDate(0, 0, -1)))

	_, err = svc.Sync(context.Background(), session("u1"), "ftp://nope")
	assert.ErrorIs(t, err, services.ErrValidation)

	scraper.err = errors.New("scraper: exit status 1")
	_, err = svc.Sync(context.Background(), session("u1"), "https://www.marktplaats.nl/u/someone/123/")
	assert.ErrorIs(t, err, services.ErrWorker)

	res, err = svc.Sync(context.Background(), session("u2"), "https://www.marktplaats.nl/u/someone/123/")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)
}
