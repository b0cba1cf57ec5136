package worker_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listingdesk/internal/worker"
)

func TestParseResult(t *testing.T) {
	out := "logging in\n✔ Succesvol verwerkt\nRESULT_JSON:{\"ad_url\":\"https://www.marktplaats.nl/v/a/m123\",\"ad_id\":\"m123\",\"views\":10,\"saves\":2,\"posted_at\":\"Vandaag\"}\n"
	o := worker.ParseResult(out)
	assert.True(t, o.Success)
	assert.Equal(t, "m123", o.AdID)
	assert.Equal(t, "https://www.marktplaats.nl/v/a/m123", o.AdURL)
	assert.Equal(t, 10, o.Views)
	assert.Equal(t, 2, o.Saves)
	assert.Equal(t, "Vandaag", o.PostedAt)
}

func TestParseResult_NumericIDAndMissingPayload(t *testing.T) {
	o := worker.ParseResult(`RESULT_JSON:{"ad_id":12345,"views":3}`)
	assert.Equal(t, "12345", o.AdID)
	assert.Equal(t, 3, o.Views)

	o = worker.ParseResult("done")
	assert.True(t, o.Success)
	assert.Empty(t, o.AdID)

	o = worker.ParseResult("RESULT_JSON:{not json}")
	assert.True(t, o.Success)
	assert.Empty(t, o.AdURL)
}

func TestFailed(t *testing.T) {
	cases := []struct {
		out  string
		want bool
	}{
		{"all good", false},
		{"Traceback: Exception raised", true},
		{"upload FAILED", true},
		{"retrying after error\n✔ Succesvol verwerkt", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, worker.Failed(tc.out), tc.out)
	}
}

func TestParseUserAds(t *testing.T) {
	out := "scraping...\nUSER_ADS_JSON:[{\"ad_id\":\"m1\",\"ad_url\":\"https://x/m1\",\"title\":\"Oak table\",\"views\":5,\"saves\":1},\n{\"ad_id\":2,\"title\":\"Chair\"}]\n"
	ads, ok := worker.ParseUserAds(out)
	require.True(t, ok)
	require.Len(t, ads, 2)
	assert.Equal(t, "m1", ads[0].AdID)
	assert.Equal(t, 5, ads[0].Views)
	assert.Equal(t, "2", ads[1].AdID)

	_, ok = worker.ParseUserAds("nothing here")
	assert.False(t, ok)
}

func TestParseUserAds_BracketsInTitles(t *testing.T) {
	out := "USER_ADS_JSON:[{\"ad_id\":\"m1\",\"title\":\"Lamp [nieuw]\"},{\"ad_id\":\"m2\",\"title\":\"Kast ]\"}]\ndone [ok]\n"
	ads, ok := worker.ParseUserAds(out)
	require.True(t, ok)
	require.Len(t, ads, 2)
	assert.Equal(t, "Lamp [nieuw]", ads[0].Title)
	assert.Equal(t, "m2", ads[1].AdID)

	_, ok = worker.ParseUserAds("USER_ADS_JSON:[{\"ad_id\":")
	assert.False(t, ok)
}

func TestScriptRunner_MissingScript(t *testing.T) {
	r := worker.ScriptRunner{Cmd: "sh", Script: filepath.Join(t.TempDir(), "nope.sh")}
	_, err := r.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script not found")
}

func TestScriptPoster(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "post.sh")
	body := "#!/bin/sh\necho \"posting $PRODUCT_ID\"\necho 'RESULT_JSON:{\"ad_id\":\"m9\",\"views\":4}'\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))

	p := worker.ScriptPoster{
		Runner:  worker.ScriptRunner{Cmd: "sh", Script: script, Timeout: 10 * time.Second},
		BaseURL: "http://localhost:8080",
		APIKey:  "k",
	}
	assert.Equal(t, "http://localhost:8080/api/products/export/p1?api_key=k", p.ExportURL("p1"))

	o, err := p.Post(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "m9", o.AdID)
	assert.Equal(t, 4, o.Views)
	assert.Contains(t, o.Output, "posting p1")
}

func TestScriptPoster_ErrorOutputFails(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "post.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho 'Error: login failed'\n"), 0o755))

	p := worker.ScriptPoster{Runner: worker.ScriptRunner{Cmd: "sh", Script: script}}
	_, err := p.Post(context.Background(), "p1")
	require.ErrorIs(t, err, worker.ErrPostFailed)
}

func TestScriptRunner_Timeout(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "slow.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nexec sleep 5\n"), 0o755))

	r := worker.ScriptRunner{Cmd: "sh", Script: script, Timeout: 100 * time.Millisecond}
	_, err := r.Run(context.Background(), nil)
	require.ErrorIs(t, err, worker.ErrTimeout)
}
