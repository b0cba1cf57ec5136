package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"listingdesk/internal/domain"
	applog "listingdesk/internal/log"
	"listingdesk/internal/repos"
)

// BatchSize caps how many pending products one batch run takes.
const BatchSize = 50

// Poster places one product on the marketplace.
type Poster interface {
	Post(ctx context.Context, productID string) (domain.PostOutcome, error)
}

type PostingService struct {
	Products *repos.ProductRepo
	Poster   Poster
	// Delay spaces consecutive batch iterations.
	Delay time.Duration
}

// PostOne claims a product and posts it. A product already in processing
// is accepted as claimed by the caller (the batch loop claims before it
// calls the post endpoint).
func (s *PostingService) PostOne(ctx context.Context, a domain.Access, id string) (domain.PostOutcome, error) {
	p, err := s.Products.Get(id)
	if err != nil {
		return domain.PostOutcome{}, notFound(err)
	}
	if !a.Owns(p.UserID) {
		return domain.PostOutcome{}, ErrNotFound
	}
	claimedHere := false
	switch p.Status {
	case domain.StatusPending:
		claimed, err := s.Products.Claim(id)
		if err != nil {
			return domain.PostOutcome{}, err
		}
		if !claimed {
			return domain.PostOutcome{}, fmt.Errorf("%w: %s was claimed by another run", ErrInvalidTransition, id)
		}
		claimedHere = true
	case domain.StatusProcessing:
	default:
		return domain.PostOutcome{}, p.Status.Transition(domain.StatusProcessing)
	}

	o, err := s.Poster.Post(ctx, id)
	if err != nil {
		if _, ferr := s.Products.Fail(id); ferr != nil {
			applog.Error(nil, "post.fail.record", ferr, map[string]any{"product_id": id})
		}
		return o, fmt.Errorf("%w: %v", ErrWorker, err)
	}
	o.Success = true
	recorded, err := s.Products.Complete(id, o)
	if err != nil {
		return o, err
	}
	// A caller that claimed the product itself records the outcome later.
	if !recorded && claimedHere {
		return o, fmt.Errorf("%w: %s left processing while posting", ErrInvalidTransition, id)
	}
	return o, nil
}

type BatchItem struct {
	ProductID string `json:"productId"`
	Title     string `json:"title"`
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
}

type BatchError struct {
	ProductID string `json:"productId"`
	Title     string `json:"title"`
	Error     string `json:"error"`
}

type BatchResult struct {
	Success   bool         `json:"success"`
	Message   string       `json:"message"`
	Processed int          `json:"processed"`
	Skipped   int          `json:"skipped"`
	Results   []BatchItem  `json:"results"`
	Errors    []BatchError `json:"errors"`
}

// RunBatch posts up to BatchSize of the oldest pending products in scope,
// one at a time, waiting Delay after each item finishes before the next one
// starts. A failing item is marked failed and recorded; the loop carries on
// with the next one. Items another run claimed first are skipped. Cancelling ctx stops the loop between items and
// leaves the rest pending.
func (s *PostingService) RunBatch(ctx context.Context, a domain.Access) (BatchResult, error) {
	res := BatchResult{Success: true, Results: []BatchItem{}, Errors: []BatchError{}}
	pending, err := s.Products.ListPending(a.Owner(), BatchSize)
	if err != nil {
		return res, err
	}
	res.Processed = len(pending)
	if len(pending) == 0 {
		res.Message = "no pending products found"
		return res, nil
	}

	var lim *rate.Limiter
	for i, p := range pending {
		if i > 0 {
			if err := lim.Wait(ctx); err != nil {
				break
			}
		} else if ctx.Err() != nil {
			break
		}
		s.batchItem(ctx, p, &res)
		// spacing counts from the end of the previous post
		lim = rate.NewLimiter(rate.Every(s.Delay), 1)
		lim.Allow()
	}
	res.Message = fmt.Sprintf("batch finished: %d succeeded, %d failed", len(res.Results), len(res.Errors))
	return res, nil
}

func (s *PostingService) batchItem(ctx context.Context, p domain.Product, res *BatchResult) {
	claimed, err := s.Products.Claim(p.ID)
	if err != nil {
		res.Errors = append(res.Errors, BatchError{ProductID: p.ID, Title: p.Title, Error: err.Error()})
		return
	}
	if !claimed {
		res.Skipped++
		return
	}

	o, err := s.Poster.Post(ctx, p.ID)
	if err != nil {
		if _, ferr := s.Products.Fail(p.ID); ferr != nil {
			applog.Error(nil, "batch.fail.record", ferr, map[string]any{"product_id": p.ID})
		}
		res.Errors = append(res.Errors, BatchError{ProductID: p.ID, Title: p.Title, Error: err.Error()})
		applog.Info(nil, "batch.item.failed", map[string]any{"product_id": p.ID, "error": err.Error()})
		return
	}
	// no-op when the post endpoint already recorded the outcome
	if _, err := s.Products.Complete(p.ID, o); err != nil {
		applog.Error(nil, "batch.complete.record", err, map[string]any{"product_id": p.ID})
	}
	res.Results = append(res.Results, BatchItem{ProductID: p.ID, Title: p.Title, Success: true, Message: o.Message})
	applog.Info(nil, "batch.item.completed", map[string]any{"product_id": p.ID})
}
