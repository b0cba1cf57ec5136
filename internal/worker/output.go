package worker

import (
	"encoding/json"
	"regexp"
	"strings"

	"listingdesk/internal/domain"
)

// SuccessMarker is printed by the posting script once an ad is placed.
const SuccessMarker = "Succesvol verwerkt"

const userAdsMarker = "USER_ADS_JSON:"

var resultLine = regexp.MustCompile(`RESULT_JSON:(\{.+\})`)

// Failed reports whether script output signals a failed run: it mentions an
// error, failure or exception and lacks the success marker.
func Failed(output string) bool {
	if strings.Contains(output, SuccessMarker) {
		return false
	}
	lower := strings.ToLower(output)
	return strings.Contains(lower, "error") ||
		strings.Contains(lower, "failed") ||
		strings.Contains(lower, "exception")
}

// ParseResult extracts the RESULT_JSON payload of the posting script. A
// missing or malformed payload yields a bare successful outcome.
func ParseResult(output string) domain.PostOutcome {
	o := domain.PostOutcome{Success: true, Output: output}
	m := resultLine.FindStringSubmatch(output)
	if m == nil {
		return o
	}
	var stats struct {
		AdURL    string `json:"ad_url"`
		AdID     any    `json:"ad_id"`
		Views    int    `json:"views"`
		Saves    int    `json:"saves"`
		PostedAt string `json:"posted_at"`
	}
	if err := json.Unmarshal([]byte(m[1]), &stats); err != nil {
		return o
	}
	o.AdURL = stats.AdURL
	o.AdID = AdID(stats.AdID)
	o.Views = stats.Views
	o.Saves = stats.Saves
	o.PostedAt = stats.PostedAt
	return o
}

// ParseUserAds decodes the JSON list that follows the USER_ADS_JSON marker
// printed by the stats scraper. Trailing output after the list is ignored.
func ParseUserAds(output string) ([]domain.AdStats, bool) {
	i := strings.Index(output, userAdsMarker)
	if i < 0 {
		return nil, false
	}
	rest := strings.TrimLeft(output[i+len(userAdsMarker):], " \t")
	if !strings.HasPrefix(rest, "[") {
		return nil, false
	}
	var raw []struct {
		AdID     any    `json:"ad_id"`
		AdURL    string `json:"ad_url"`
		Title    string `json:"title"`
		Views    int    `json:"views"`
		Saves    int    `json:"saves"`
		PostedAt string `json:"posted_at"`
	}
	if err := json.NewDecoder(strings.NewReader(rest)).Decode(&raw); err != nil {
		return nil, false
	}
	out := make([]domain.AdStats, 0, len(raw))
	for _, r := range raw {
		out = append(out, domain.AdStats{
			AdID: AdID(r.AdID), AdURL: r.AdURL, Title: r.Title,
			Views: r.Views, Saves: r.Saves, PostedAt: r.PostedAt,
		})
	}
	return out, true
}

// AdID normalizes ad ids printed as strings or numbers.
func AdID(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		b, _ := json.Marshal(x)
		return string(b)
	}
	return ""
}
