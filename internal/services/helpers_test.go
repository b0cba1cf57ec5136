package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"listingdesk/internal/domain"
	"listingdesk/internal/repos"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedUser(t *testing.T, db *sqlx.DB, id string) {
	t.Helper()
	require.NoError(t, repos.NewUserRepo(db).Create(domain.User{
		ID: id, Email: id + "@example.com", Name: id, Hash: "$2a$12$placeholder",
	}))
}

var epoch = time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC)

// seedProduct creates a pending product whose creation time is epoch + age.
func seedProduct(t *testing.T, db *sqlx.DB, owner, article string, age time.Duration) domain.Product {
	t.Helper()
	p := domain.Product{
		ID:            owner + "-" + article,
		UserID:        owner,
		Title:         "Item " + article,
		Price:         decimal.RequireFromString("19.95"),
		ArticleNumber: article,
		Platforms:     domain.Platforms{domain.PlatformMarktplaats},
		CreatedAt:     domain.Timestamp{Time: epoch.Add(age)},
	}
	require.NoError(t, repos.NewProductRepo(db).Create(p))
	return p
}

func session(userID string) domain.Access {
	return domain.Access{Mode: domain.AccessSession, UserID: userID}
}

var privileged = domain.Access{Mode: domain.AccessPrivileged}

// fakePoster records calls and fails for the ids in fail.
type fakePoster struct {
	mu      sync.Mutex
	calls   []string
	fail    map[string]bool
	outcome domain.PostOutcome
	before  func(id string)
	sleep   time.Duration
	starts  []time.Time
	ends    []time.Time
}

func (f *fakePoster) Post(_ context.Context, id string) (domain.PostOutcome, error) {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.starts = append(f.starts, time.Now())
	f.mu.Unlock()
	if f.before != nil {
		f.before(id)
	}
	time.Sleep(f.sleep)
	f.mu.Lock()
	f.ends = append(f.ends, time.Now())
	f.mu.Unlock()
	if f.fail[id] {
		return domain.PostOutcome{Message: "boom"}, errors.New("worker exploded")
	}
	return f.outcome, nil
}

func articles(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("A%03d", i)
	}
	return out
}
