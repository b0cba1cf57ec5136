package handlers

import (
	"time"

	"listingdesk/internal/config"
	"listingdesk/internal/repos"
	"listingdesk/internal/services"
	"listingdesk/internal/storage"
	"listingdesk/internal/worker"

	"github.com/jmoiron/sqlx"
)

type Deps struct {
	AuthHandler      *AuthHandler
	CategoryHandler  *CategoryHandler
	ProductHandler   *ProductHandler
	WorkflowHandler  *WorkflowHandler
	DashboardHandler *DashboardHandler
}

// NewDeps wires repos, services and workers. Batch runs go through the post
// endpoint of this server when a shared key is configured, and run the
// script in-process otherwise.
func NewDeps(db *sqlx.DB, cfg config.Config, auth *services.AuthService, store storage.Store) *Deps {
	catRepo := repos.NewCategoryRepo(db)
	prodRepo := repos.NewProductRepo(db)

	scriptPoster := worker.ScriptPoster{
		Runner:  worker.ScriptRunner{Cmd: cfg.WorkerCmd, Script: cfg.WorkerScript, Timeout: cfg.WorkerTimeout},
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.InternalAPIKey,
	}
	var batchPoster services.Poster = scriptPoster
	if cfg.InternalAPIKey != "" {
		batchPoster = worker.HTTPPoster{BaseURL: cfg.BaseURL, APIKey: cfg.InternalAPIKey, Timeout: cfg.WorkerTimeout + 30*time.Second}
	}

	productSvc := &services.ProductService{
		Products: prodRepo, Cats: catRepo, Store: store,
		BaseURL: cfg.BaseURL, APIKey: cfg.InternalAPIKey,
	}
	categorySvc := services.NewCategoryService(catRepo)
	workflowSvc := services.NewWorkflowService(prodRepo)
	postingSvc := &services.PostingService{Products: prodRepo, Poster: scriptPoster}
	batchSvc := &services.PostingService{Products: prodRepo, Poster: batchPoster, Delay: cfg.BatchDelay}
	statsSvc := &services.StatsService{
		Products: prodRepo,
		Scraper:  worker.StatsScraper{Runner: worker.ScriptRunner{Cmd: cfg.WorkerCmd, Script: cfg.StatsScript, Timeout: cfg.WorkerTimeout}},
		Now:      time.Now,
	}

	return &Deps{
		AuthHandler:     &AuthHandler{Auth: auth, SecureCookies: cfg.SecureCookies},
		CategoryHandler: &CategoryHandler{Categories: categorySvc},
		ProductHandler:  &ProductHandler{Products: productSvc, Store: store},
		WorkflowHandler: &WorkflowHandler{
			Workflow: workflowSvc, Posting: postingSvc, Batch: batchSvc, Stats: statsSvc,
		},
		DashboardHandler: &DashboardHandler{Products: productSvc, Workflow: workflowSvc, Batch: batchSvc},
	}
}
