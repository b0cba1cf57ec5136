package domain

import "github.com/shopspring/decimal"

const (
	PlatformMarktplaats = "marktplaats"
	PlatformEbay        = "ebay"
)

type Product struct {
	ID              string          `db:"id" json:"id"`
	UserID          string          `db:"user_id" json:"userId"`
	Title           string          `db:"title" json:"title"`
	Description     string          `db:"description" json:"description"`
	Price           decimal.Decimal `db:"price" json:"price"`
	ArticleNumber   string          `db:"article_number" json:"articleNumber"`
	CategoryID      *string         `db:"category_id" json:"categoryId"`
	CategoryFields  FieldValues     `db:"category_fields" json:"categoryFields"`
	EbayFields      FieldValues     `db:"ebay_fields" json:"ebayFields"`
	Platforms       Platforms       `db:"platforms" json:"platforms"`
	Condition       string          `db:"condition" json:"condition"`
	DeliveryOption  string          `db:"delivery_option" json:"deliveryOption"`
	Location        string          `db:"location" json:"location"`
	Status          Status          `db:"status" json:"status"`
	MarktplaatsURL  *string         `db:"marktplaats_url" json:"marktplaatsUrl"`
	MarktplaatsAdID *string         `db:"marktplaats_ad_id" json:"marktplaatsAdId"`
	Views           int             `db:"views" json:"views"`
	Saves           int             `db:"saves" json:"saves"`
	PostedAt        *Timestamp      `db:"posted_at" json:"postedAt"`
	CreatedAt       Timestamp       `db:"created_at" json:"createdAt"`
	UpdatedAt       Timestamp       `db:"updated_at" json:"updatedAt"`

	// CategoryPath is filled by joins; it is not a products column.
	CategoryPath *string `db:"category_path" json:"categoryPath,omitempty"`
}

// PostOutcome is what the posting worker reports for one product.
type PostOutcome struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	AdURL    string `json:"ad_url,omitempty"`
	AdID     string `json:"ad_id,omitempty"`
	Views    int    `json:"views,omitempty"`
	Saves    int    `json:"saves,omitempty"`
	PostedAt string `json:"posted_at,omitempty"`
	Output   string `json:"-"`
}

// AdStats is one ad as scraped from the marketplace user page.
type AdStats struct {
	AdID     string `json:"ad_id"`
	AdURL    string `json:"ad_url"`
	Title    string `json:"title"`
	Views    int    `json:"views"`
	Saves    int    `json:"saves"`
	PostedAt string `json:"posted_at"`
}
