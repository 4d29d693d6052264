// Package client is the Go counterpart of the site frontend's fetch
// layer: it talks to the backend over plain HTTP, attaches the bearer
// token on writes and filters the fetched article list locally, the
// same way the admin panel does.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
)

// ErrConnection replaces transport-level failures with the generic
// message the UI shows.
var ErrConnection = errors.New("Unable to connect to server")

// Article mirrors the backend payload.
type Article struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Excerpt    string `json:"excerpt"`
	Content    string `json:"content"`
	Category   string `json:"category"`
	Author     string `json:"author"`
	Time       string `json:"time"`
	Image      string `json:"image"`
	Video      string `json:"video"`
	IsHero     bool   `json:"isHero"`
	IsBreaking bool   `json:"isBreaking"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

// User is the public account payload returned by login.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Draft carries the writeable article fields of a create or update.
// Empty strings are omitted on update, keeping the stored value.
type Draft struct {
	Title      string
	Excerpt    string
	Content    string
	Category   string
	Author     string
	IsHero     string // literal "true"/"false", empty keeps prior
	IsBreaking string

	// Optional attachments. ContentType must be one of the server's
	// allowed media types.
	Image *Attachment
	Video *Attachment
}

// Attachment is a media file posted alongside a draft.
type Attachment struct {
	Filename    string
	ContentType string
	Data        io.Reader
}

// Client calls the backend API.
type Client struct {
	http.Client
	Addr  string
	Token string
}

type loginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	User    *User  `json:"user"`
}

type deleteResponse struct {
	Success bool     `json:"success"`
	Deleted *Article `json:"deleted"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Login exchanges credentials for a bearer token and keeps the token
// on the client for subsequent writes.
func (c *Client) Login(username, password string) (*User, error) {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, c.Addr+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out loginResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	c.Token = out.Token

	return out.User, nil
}

// Health checks the liveness endpoint.
func (c *Client) Health() error {
	req, err := http.NewRequest(http.MethodGet, c.Addr+"/api/health", nil)
	if err != nil {
		return err
	}

	return c.do(req, nil)
}

// Articles fetches the full collection.
func (c *Client) Articles() ([]Article, error) {
	req, err := http.NewRequest(http.MethodGet, c.Addr+"/api/articles", nil)
	if err != nil {
		return nil, err
	}

	var out []Article
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	return out, nil
}

// Article fetches a single article by id.
func (c *Client) Article(id string) (*Article, error) {
	req, err := http.NewRequest(http.MethodGet, c.Addr+"/api/articles/"+id, nil)
	if err != nil {
		return nil, err
	}

	var out Article
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Create posts a new article draft.
func (c *Client) Create(draft Draft) (*Article, error) {
	return c.submit(http.MethodPost, c.Addr+"/api/articles", draft)
}

// Update applies a partial update to an existing article.
func (c *Client) Update(id string, draft Draft) (*Article, error) {
	return c.submit(http.MethodPut, c.Addr+"/api/articles/"+id, draft)
}

// Delete removes an article and returns the removed record.
func (c *Client) Delete(id string) (*Article, error) {
	req, err := http.NewRequest(http.MethodDelete, c.Addr+"/api/articles/"+id, nil)
	if err != nil {
		return nil, err
	}

	var out deleteResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	return out.Deleted, nil
}

func (c *Client) submit(method, url string, draft Draft) (*Article, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := map[string]string{
		"title":      draft.Title,
		"excerpt":    draft.Excerpt,
		"content":    draft.Content,
		"category":   draft.Category,
		"author":     draft.Author,
		"isHero":     draft.IsHero,
		"isBreaking": draft.IsBreaking,
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := mw.WriteField(name, value); err != nil {
			return nil, err
		}
	}
	if err := writeAttachment(mw, "image", draft.Image); err != nil {
		return nil, err
	}
	if err := writeAttachment(mw, "video", draft.Video); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out Article
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func writeAttachment(mw *multipart.Writer, field string, att *Attachment) error {
	if att == nil {
		return nil
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, att.Filename))
	header.Set("Content-Type", att.ContentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, att.Data)

	return err
}

// do runs the request, attaching the bearer token when present, and
// decodes the response into out. Non-2xx responses surface the
// server's error string verbatim.
func (c *Client) do(req *http.Request, out interface{}) error {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.Do(req)
	if err != nil {
		return ErrConnection
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ErrConnection
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr errorBody
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
			return errors.New(apiErr.Error)
		}

		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	return json.Unmarshal(body, out)
}

// SaveToken persists the bearer token, standing in for the admin
// panel's persistent client-side storage.
func (c *Client) SaveToken(path string) error {
	return os.WriteFile(path, []byte(c.Token), 0o600)
}

// LoadToken restores a previously saved bearer token.
func (c *Client) LoadToken(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	c.Token = strings.TrimSpace(string(raw))

	return nil
}

// Search filters an already-fetched list the way the site's search box
// does: case-insensitive substring match on title, excerpt or author.
func Search(articles []Article, query string) []Article {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return articles
	}

	matched := []Article{}
	for _, a := range articles {
		haystack := strings.ToLower(a.Title + " " + a.Excerpt + " " + a.Author)
		if strings.Contains(haystack, query) {
			matched = append(matched, a)
		}
	}

	return matched
}

// FilterByCategory keeps articles in the given category, matching
// case-insensitively.
func FilterByCategory(articles []Article, category string) []Article {
	matched := []Article{}
	for _, a := range articles {
		if strings.EqualFold(a.Category, category) {
			matched = append(matched, a)
		}
	}

	return matched
}
