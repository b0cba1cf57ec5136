package services

import (
	"errors"
	"fmt"
	"strings"

	"listingdesk/internal/domain"
	"listingdesk/internal/repos"
	"listingdesk/internal/worker"
)

// WorkflowService moves products through the posting states on behalf of
// owners, operators and the external worker.
type WorkflowService struct {
	Products *repos.ProductRepo
}

func NewWorkflowService(products *repos.ProductRepo) *WorkflowService {
	return &WorkflowService{Products: products}
}

func (s *WorkflowService) Counts(a domain.Access) (domain.StatusCounts, error) {
	return s.Products.CountByStatus(a.Owner())
}

func (s *WorkflowService) load(a domain.Access, id string) (domain.Product, error) {
	p, err := s.Products.Get(id)
	if err != nil {
		return domain.Product{}, notFound(err)
	}
	if !a.Owns(p.UserID) {
		return domain.Product{}, ErrNotFound
	}
	return p, nil
}

// SetStatus is the manual status change. Pending is a forced reset from any
// state; every other target must be a valid transition.
func (s *WorkflowService) SetStatus(a domain.Access, id string, to domain.Status) (domain.Product, error) {
	p, err := s.load(a, id)
	if err != nil {
		return domain.Product{}, err
	}
	if to == domain.StatusPending {
		if _, err := s.Products.Reset("", []string{id}, nil); err != nil {
			return domain.Product{}, err
		}
		return s.Products.Get(id)
	}
	if err := p.Status.Transition(to); err != nil {
		return domain.Product{}, err
	}
	applied, err := s.advance(id, to, domain.PostOutcome{})
	if err != nil {
		return domain.Product{}, err
	}
	if !applied {
		return domain.Product{}, fmt.Errorf("%w: %s changed concurrently", ErrInvalidTransition, id)
	}
	return s.Products.Get(id)
}

// advance applies one workflow edge as a conditional update.
func (s *WorkflowService) advance(id string, to domain.Status, o domain.PostOutcome) (bool, error) {
	switch to {
	case domain.StatusProcessing:
		return s.Products.Claim(id)
	case domain.StatusCompleted:
		return s.Products.Complete(id, o)
	case domain.StatusFailed:
		return s.Products.Fail(id)
	}
	return false, fmt.Errorf("%w: -> %s", ErrInvalidTransition, to)
}

// ResetFailed moves the given failed products back to pending.
func (s *WorkflowService) ResetFailed(a domain.Access, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: product ids are required", ErrValidation)
	}
	return s.Products.Reset(a.Owner(), ids, []domain.Status{domain.StatusFailed})
}

func (s *WorkflowService) ResetAllFailed(a domain.Access) (int64, error) {
	return s.Products.Reset(a.Owner(), nil, []domain.Status{domain.StatusFailed})
}

// ResetAll forces every product in scope back to pending and reports how
// many products the scope held.
func (s *WorkflowService) ResetAll(a domain.Access) (updated int64, total int, err error) {
	total, err = s.Products.Count(a.Owner(), nil)
	if err != nil || total == 0 {
		return 0, total, err
	}
	updated, err = s.Products.Reset(a.Owner(), nil, nil)
	return updated, total, err
}

// WorkerReport is one posting outcome sent by the external worker.
type WorkerReport struct {
	ProductID string `json:"productId"`
	Status    string `json:"status"`
	AdURL     string `json:"ad_url"`
	AdID      any    `json:"ad_id"`
	Views     int    `json:"views"`
	Saves     int    `json:"saves"`
	PostedAt  string `json:"posted_at"`
}

type ReportResult struct {
	ProductID string `json:"productId"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// ApplyReports records worker outcomes item by item. A pending product is
// claimed before its outcome is applied; products already in a terminal
// state are refused.
func (s *WorkflowService) ApplyReports(a domain.Access, reports []WorkerReport) []ReportResult {
	out := make([]ReportResult, 0, len(reports))
	for _, r := range reports {
		res := ReportResult{ProductID: r.ProductID}
		if err := s.applyReport(a, r); err != nil {
			res.Error = reportError(err)
		} else {
			res.Success = true
		}
		out = append(out, res)
	}
	return out
}

func (s *WorkflowService) applyReport(a domain.Access, r WorkerReport) error {
	to := domain.StatusCompleted
	if st := strings.TrimSpace(r.Status); st != "" {
		parsed, ok := domain.ParseStatus(st)
		if !ok || !parsed.Terminal() {
			return fmt.Errorf("%w: status must be completed or failed", ErrValidation)
		}
		to = parsed
	}
	p, err := s.load(a, r.ProductID)
	if err != nil {
		return err
	}
	if p.Status == domain.StatusPending {
		claimed, err := s.Products.Claim(p.ID)
		if err != nil {
			return err
		}
		if !claimed {
			return fmt.Errorf("%w: %s changed concurrently", ErrInvalidTransition, p.ID)
		}
		p.Status = domain.StatusProcessing
	}
	if err := p.Status.Transition(to); err != nil {
		return err
	}
	o := domain.PostOutcome{
		Success: to == domain.StatusCompleted, AdURL: r.AdURL, AdID: worker.AdID(r.AdID),
		Views: r.Views, Saves: r.Saves, PostedAt: r.PostedAt,
	}
	applied, err := s.advance(p.ID, to, o)
	if err != nil {
		return err
	}
	if !applied {
		return fmt.Errorf("%w: %s changed concurrently", ErrInvalidTransition, p.ID)
	}
	return nil
}

func reportError(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "Product not found"
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidTransition):
		return err.Error()
	}
	return "update failed"
}
