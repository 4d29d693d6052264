package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rtnews/backend/internal/config"
	"github.com/rtnews/backend/internal/model"
)

func newTestApp(t *testing.T) (*App, chi.Router) {
	t.Helper()

	dir := t.TempDir()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	cfg.DataFile = filepath.Join(dir, "data.json")
	cfg.UploadDir = filepath.Join(dir, "uploads")

	a, err := newApp(cfg, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}

	return a, a.Router()
}

func doJSON(t *testing.T, r chi.Router, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	return rec
}

type filePart struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

func doMultipart(t *testing.T, r chi.Router, method, path string, fields map[string]string, files []filePart, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.filename))
		header.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(header)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	return rec
}

func login(t *testing.T, r chi.Router) string {
	t.Helper()

	rec := doJSON(t, r, http.MethodPost, "/api/auth/login", map[string]string{
		"username": "admin",
		"password": "rtnews@123",
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}

	var out struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if !out.Success || out.Token == "" {
		t.Fatalf("login response = %s", rec.Body.String())
	}

	return out.Token
}

func errorField(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var out struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}

	return out.Error
}

func articleFields() map[string]string {
	return map[string]string{
		"title":    "City council approves budget",
		"excerpt":  "The vote passed late on Tuesday.",
		"content":  "Full coverage of the session.",
		"category": "Politics",
		"author":   "Sam Reporter",
	}
}

func TestHealth(t *testing.T) {
	_, r := newTestApp(t)

	rec := doJSON(t, r, http.MethodGet, "/api/health", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}

	var out struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if out.Status != "ok" || out.Timestamp == "" {
		t.Errorf("health = %+v", out)
	}
}

func TestLogin(t *testing.T) {
	_, r := newTestApp(t)

	t.Run("missing input", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/api/auth/login", map[string]string{"username": "admin"}, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		if got := errorField(t, rec); got != "Username and password required" {
			t.Errorf("error = %q", got)
		}
	})

	t.Run("wrong password and unknown user are indistinguishable", func(t *testing.T) {
		wrongPass := doJSON(t, r, http.MethodPost, "/api/auth/login",
			map[string]string{"username": "admin", "password": "nope"}, "")
		unknownUser := doJSON(t, r, http.MethodPost, "/api/auth/login",
			map[string]string{"username": "ghost", "password": "nope"}, "")

		if wrongPass.Code != http.StatusUnauthorized || unknownUser.Code != http.StatusUnauthorized {
			t.Fatalf("statuses = %d, %d, want 401, 401", wrongPass.Code, unknownUser.Code)
		}
		if errorField(t, wrongPass) != "Invalid credentials" || errorField(t, unknownUser) != "Invalid credentials" {
			t.Errorf("bodies differ: %s vs %s", wrongPass.Body.String(), unknownUser.Body.String())
		}
	})

	t.Run("success returns token and user", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/api/auth/login",
			map[string]string{"username": "admin", "password": "rtnews@123"}, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}

		var out struct {
			Success bool `json:"success"`
			Token   string
			User    struct {
				ID       string `json:"id"`
				Username string `json:"username"`
				Role     string `json:"role"`
			} `json:"user"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !out.Success || out.User.Username != "admin" || out.User.Role != "admin" || out.User.ID != "1" {
			t.Errorf("login response = %s", rec.Body.String())
		}
	})
}

func TestLoginRateLimit(t *testing.T) {
	_, r := newTestApp(t)

	bad := map[string]string{"username": "admin", "password": "wrong"}
	for i := 0; i < 5; i++ {
		rec := doJSON(t, r, http.MethodPost, "/api/auth/login", bad, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d, want 401", i+1, rec.Code)
		}
	}

	// The sixth attempt is rejected even with correct credentials.
	good := map[string]string{"username": "admin", "password": "rtnews@123"}
	rec := doJSON(t, r, http.MethodPost, "/api/auth/login", good, "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("sixth attempt status = %d, want 429", rec.Code)
	}
	if got := errorField(t, rec); got != "Too many login attempts, please try again later" {
		t.Errorf("error = %q", got)
	}
}

func TestWritesRequireBearerToken(t *testing.T) {
	_, r := newTestApp(t)

	t.Run("no token", func(t *testing.T) {
		rec := doMultipart(t, r, http.MethodPost, "/api/articles", articleFields(), nil, "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
		if got := errorField(t, rec); got != "No token provided" {
			t.Errorf("error = %q", got)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := doMultipart(t, r, http.MethodPost, "/api/articles", articleFields(), nil, "not.a.jwt")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
		if got := errorField(t, rec); got != "Invalid token" {
			t.Errorf("error = %q", got)
		}
	})
}

func TestArticleLifecycle(t *testing.T) {
	a, r := newTestApp(t)
	token := login(t, r)

	// Create with an image attachment.
	rec := doMultipart(t, r, http.MethodPost, "/api/articles", articleFields(), []filePart{
		{field: "image", filename: "cover.jpg", contentType: "image/jpeg", data: []byte("jpegdata")},
	}, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}

	var created model.Article
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.ID == "" || created.CreatedAt == "" || created.UpdatedAt == "" {
		t.Fatalf("server-assigned fields missing: %+v", created)
	}
	if created.Image == "" {
		t.Fatal("image filename not recorded")
	}

	// The upload is fetchable raw.
	req := httptest.NewRequest(http.MethodGet, "/uploads/"+created.Image, nil)
	fileRec := httptest.NewRecorder()
	r.ServeHTTP(fileRec, req)
	if fileRec.Code != http.StatusOK || fileRec.Body.String() != "jpegdata" {
		t.Errorf("uploads fetch = %d %q", fileRec.Code, fileRec.Body.String())
	}

	// Fetch equals create.
	rec = doJSON(t, r, http.MethodGet, "/api/articles/"+created.ID, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var fetched model.Article
	if err := json.Unmarshal(rec.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("decode fetched: %v", err)
	}
	if fetched != created {
		t.Errorf("fetched = %+v, want %+v", fetched, created)
	}

	// Partial update touches only the title and updatedAt.
	time.Sleep(5 * time.Millisecond)
	rec = doMultipart(t, r, http.MethodPut, "/api/articles/"+created.ID,
		map[string]string{"title": "Budget approved after marathon session"}, nil, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	var updated model.Article
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode updated: %v", err)
	}
	if updated.Title != "Budget approved after marathon session" {
		t.Errorf("title = %q", updated.Title)
	}
	if updated.Excerpt != created.Excerpt || updated.Category != created.Category ||
		updated.Author != created.Author || updated.Image != created.Image {
		t.Errorf("untouched fields changed: %+v", updated)
	}
	if updated.CreatedAt != created.CreatedAt {
		t.Errorf("createdAt changed: %q -> %q", created.CreatedAt, updated.CreatedAt)
	}
	if updated.UpdatedAt == created.UpdatedAt {
		t.Error("updatedAt did not advance")
	}

	// Delete removes the record but leaves the upload on disk.
	rec = doJSON(t, r, http.MethodDelete, "/api/articles/"+created.ID, nil, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", rec.Code, rec.Body.String())
	}
	var deleted struct {
		Success bool          `json:"success"`
		Deleted model.Article `json:"deleted"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &deleted); err != nil {
		t.Fatalf("decode deleted: %v", err)
	}
	if !deleted.Success || deleted.Deleted.ID != created.ID {
		t.Errorf("delete response = %s", rec.Body.String())
	}

	rec = doJSON(t, r, http.MethodGet, "/api/articles", nil, "")
	var list []model.Article
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("list after delete = %d entries, want 0", len(list))
	}

	if _, err := os.Stat(filepath.Join(a.config.UploadDir, created.Image)); err != nil {
		t.Errorf("upload file removed with article: %v", err)
	}

	// Deleting again is a 404.
	rec = doJSON(t, r, http.MethodDelete, "/api/articles/"+created.ID, nil, token)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestCreateRejectsDisallowedUpload(t *testing.T) {
	_, r := newTestApp(t)
	token := login(t, r)

	rec := doMultipart(t, r, http.MethodPost, "/api/articles", articleFields(), []filePart{
		{field: "image", filename: "doc.pdf", contentType: "application/pdf", data: []byte("%PDF-")},
	}, token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
	}
	if got := errorField(t, rec); got != "Invalid file type" {
		t.Errorf("error = %q", got)
	}

	// No article was created as a side effect.
	listRec := doJSON(t, r, http.MethodGet, "/api/articles", nil, "")
	var list []model.Article
	if err := json.Unmarshal(listRec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("list = %d entries after rejected upload, want 0", len(list))
	}
}

func TestCreateMissingFields(t *testing.T) {
	_, r := newTestApp(t)
	token := login(t, r)

	fields := articleFields()
	delete(fields, "excerpt")

	rec := doMultipart(t, r, http.MethodPost, "/api/articles", fields, nil, token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if got := errorField(t, rec); got != "Missing required fields" {
		t.Errorf("error = %q", got)
	}
}

func TestCreateTruncatesTitle(t *testing.T) {
	_, r := newTestApp(t)
	token := login(t, r)

	fields := articleFields()
	fields["title"] = strings.Repeat("x", 600)

	rec := doMultipart(t, r, http.MethodPost, "/api/articles", fields, nil, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created model.Article
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(created.Title) != model.MaxTitleLen {
		t.Errorf("title len = %d, want exactly %d", len(created.Title), model.MaxTitleLen)
	}
}

func TestGetUnknownArticle(t *testing.T) {
	_, r := newTestApp(t)

	rec := doJSON(t, r, http.MethodGet, "/api/articles/article_0000_missing", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := errorField(t, rec); got != "Article not found" {
		t.Errorf("error = %q", got)
	}
}
