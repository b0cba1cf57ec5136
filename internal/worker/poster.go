package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"listingdesk/internal/domain"
)

var ErrPostFailed = errors.New("posting failed")

// ScriptPoster posts one product by running the posting script against the
// product's export URL.
type ScriptPoster struct {
	Runner  ScriptRunner
	BaseURL string
	APIKey  string
}

// ExportURL is where the script fetches the product it has to post.
func (p ScriptPoster) ExportURL(productID string) string {
	u := fmt.Sprintf("%s/api/products/export/%s", p.BaseURL, url.PathEscape(productID))
	if p.APIKey != "" {
		u += "?api_key=" + url.QueryEscape(p.APIKey)
	}
	return u
}

func (p ScriptPoster) Post(ctx context.Context, productID string) (domain.PostOutcome, error) {
	apiURL := p.ExportURL(productID)
	env := []string{
		"PRODUCT_API_URL=" + apiURL,
		"PRODUCT_ID=" + productID,
		"INTERNAL_API_KEY=" + p.APIKey,
	}
	out, err := p.Runner.Run(ctx, env, "--api", apiURL, "--product-id", productID)
	if err != nil {
		return domain.PostOutcome{Message: err.Error(), Output: out}, fmt.Errorf("%w: %v", ErrPostFailed, err)
	}
	if Failed(out) {
		return domain.PostOutcome{Message: "script execution had errors", Output: out},
			fmt.Errorf("%w: script execution had errors", ErrPostFailed)
	}
	o := ParseResult(out)
	o.Message = "product posted"
	return o, nil
}

// HTTPPoster posts one product through the sibling post endpoint of a running
// server, authenticating with the shared key.
type HTTPPoster struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type postResponse struct {
	domain.PostOutcome
	Error string `json:"error"`
}

func (p HTTPPoster) Post(ctx context.Context, productID string) (domain.PostOutcome, error) {
	if err := ctx.Err(); err != nil {
		return domain.PostOutcome{}, err
	}
	a := fiber.Post(fmt.Sprintf("%s/api/products/%s/post", strings.TrimRight(p.BaseURL, "/"), url.PathEscape(productID)))
	a.Set("x-api-key", p.APIKey)
	a.ContentType(fiber.MIMEApplicationJSON)
	if p.Timeout > 0 {
		a.Timeout(p.Timeout)
	}
	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return domain.PostOutcome{Message: errs[0].Error()}, fmt.Errorf("%w: %v", ErrPostFailed, errs[0])
	}
	var res postResponse
	if err := json.Unmarshal(body, &res); err != nil && code == fiber.StatusOK {
		return domain.PostOutcome{}, fmt.Errorf("%w: bad response: %v", ErrPostFailed, err)
	}
	if code != fiber.StatusOK || !res.Success {
		msg := res.Error
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", code)
		}
		return domain.PostOutcome{Message: msg}, fmt.Errorf("%w: %s", ErrPostFailed, msg)
	}
	return res.PostOutcome, nil
}
