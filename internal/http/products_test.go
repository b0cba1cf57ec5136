package handlers_test

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"listingdesk/internal/domain"
)

func TestProductCRUD(t *testing.T) {
	env := newTestEnv(t, testKey)
	sid := env.login(t, "u1")

	resp := env.do(t, "POST", "/api/products", map[string]any{
		"title": "  Eiken salontafel ", "price": "125.00", "articleNumber": "T-100",
		"platforms": []string{"EBAY", "marktplaats"},
	}, asUser(sid))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var p domain.Product
	decode(t, resp, &p)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, "Eiken salontafel", p.Title)
	assert.Equal(t, domain.StatusPending, p.Status)
	assert.Equal(t, domain.Platforms{"ebay", "marktplaats"}, p.Platforms)

	resp = env.do(t, "POST", "/api/products", map[string]any{
		"title": "Copy", "price": 1, "articleNumber": "T-100",
	}, asUser(sid))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.do(t, "PUT", "/api/products/"+p.ID, map[string]any{"price": 99.5}, asUser(sid))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated domain.Product
	decode(t, resp, &updated)
	assert.Equal(t, "99.5", updated.Price.String())
	assert.Equal(t, "Eiken salontafel", updated.Title)

	resp = env.do(t, "DELETE", "/api/products/"+p.ID, nil, asUser(sid))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.do(t, "GET", "/api/products/"+p.ID, nil, asUser(sid))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProductValidation(t *testing.T) {
	env := newTestEnv(t, testKey)
	sid := env.login(t, "u1")

	cases := []struct {
		name string
		body any
	}{
		{"missing price", map[string]any{"title": "x", "articleNumber": "A1"}},
		{"negative price", map[string]any{"title": "x", "articleNumber": "A1", "price": -1}},
		{"three decimals", map[string]any{"title": "x", "articleNumber": "A1", "price": "1.005"}},
		{"bad article", map[string]any{"title": "x", "articleNumber": "../etc", "price": 1}},
		{"unknown platform", map[string]any{"title": "x", "articleNumber": "A1", "price": 1, "platforms": []string{"etsy"}}},
		{"unknown category", map[string]any{"title": "x", "articleNumber": "A1", "price": 1, "categoryId": "nope"}},
		{"malformed json", `{"title":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.do(t, "POST", "/api/products", tc.body, asUser(sid))
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}

	// privileged creation names the owner
	resp := env.do(t, "POST", "/api/products", map[string]any{"title": "x", "articleNumber": "A1", "price": 1}, withKey(testKey))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = env.do(t, "POST", "/api/products", map[string]any{"title": "x", "articleNumber": "A1", "price": 1, "userId": "u1"}, withKey(testKey))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestCategoryImport(t *testing.T) {
	env := newTestEnv(t, testKey)

	for _, body := range []string{`{"categories": {"name": "x"}}`, `{"categories": "x"}`, `{}`, `not json`} {
		resp := env.do(t, "POST", "/api/categories", body, withKey(testKey))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}

	resp := env.do(t, "POST", "/api/categories", map[string]any{"categories": []map[string]any{
		{"id": "huis", "name": "Huis en Inrichting", "level": 1},
		{"id": "tafels", "name": "Tafels", "level": 2, "parentId": "huis",
			"fields": []map[string]any{{"name": "materiaal", "type": "select", "options": []string{"hout", "metaal"}}}},
		{"name": "no level"},
	}}, withKey(testKey))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res map[string]any
	decode(t, resp, &res)
	assert.EqualValues(t, 2, res["created"])
	assert.EqualValues(t, 1, res["skipped"])

	resp = env.do(t, "GET", "/api/categories/with-fields", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tree []map[string]any
	decode(t, resp, &tree)
	require.Len(t, tree, 1)
	assert.Equal(t, "huis", tree[0]["id"])
	assert.Len(t, tree[0]["children"], 1)

	resp = env.do(t, "GET", "/api/categories/tafels/fields", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fields map[string]any
	decode(t, resp, &fields)
	assert.Equal(t, "Huis en Inrichting > Tafels", fields["categoryPath"])

	resp = env.do(t, "GET", "/api/categories/nope/ebay-fields", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func multipartBody(t *testing.T, article string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("articleNumber", article))
	for name, data := range files {
		fw, err := w.CreateFormFile("files[]", name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestImageUploadAndServe(t *testing.T) {
	env := newTestEnv(t, testKey)
	sid := env.login(t, "u1")
	p := env.seedProduct(t, "u1", "A1", domain.StatusPending)

	body, ctype := multipartBody(t, "A1", map[string][]byte{
		"front.JPG": []byte("jpeg-bytes"),
		"notes.txt": []byte("not an image"),
	})
	req := httptest.NewRequest("POST", "/api/products/upload", body)
	req.Header.Set("Content-Type", ctype)
	asUser(sid)(req)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var up struct {
		Success bool     `json:"success"`
		Files   []string `json:"files"`
		Count   int      `json:"count"`
		Skipped []string `json:"skipped"`
	}
	decode(t, resp, &up)
	assert.True(t, up.Success)
	assert.Equal(t, 1, up.Count)
	assert.Equal(t, []string{"notes.txt"}, up.Skipped)
	require.Len(t, up.Files, 1)
	assert.Regexp(t, `^A1/\d+-[0-9a-f-]{6}\.jpg$`, up.Files[0])

	resp = env.do(t, "GET", "/api/products/"+p.ID+"/images", nil, asUser(sid))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var imgs map[string][]string
	decode(t, resp, &imgs)
	assert.Equal(t, []string{"/media/" + up.Files[0]}, imgs["images"])

	resp = env.do(t, "GET", "/api/products/"+p.ID+"/image", nil, asUser(sid))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "jpeg-bytes", string(got))

	resp = env.do(t, "POST", "/api/products/delete-image", map[string]any{"imagePath": "/media/" + up.Files[0]}, asUser(sid))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, err = os.Stat(filepath.Join(env.mediaDir, filepath.FromSlash(up.Files[0])))
	assert.True(t, os.IsNotExist(err))

	resp = env.do(t, "GET", "/api/products/"+p.ID+"/image", nil, asUser(sid))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUploadRejectsMissingArticle(t *testing.T) {
	env := newTestEnv(t, testKey)
	body, ctype := multipartBody(t, "", map[string][]byte{"a.png": []byte("png")})
	req := httptest.NewRequest("POST", "/api/products/upload", body)
	req.Header.Set("Content-Type", ctype)
	withKey(testKey)(req)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSpreadsheetDownload(t *testing.T) {
	env := newTestEnv(t, testKey)
	sid := env.login(t, "u1")
	env.seedProduct(t, "u1", "A1", domain.StatusCompleted)

	resp := env.do(t, "GET", "/api/products/spreadsheet", nil, asUser(sid))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "products.xlsx")

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Products")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A1", rows[1][1])
}
