// Package store persists the entire backend state as a single JSON
// document on disk. Every operation re-reads the file, mutates the
// decoded document and writes the whole file back; a mutex serializes
// the read-modify-write span so concurrent writers cannot lose updates.
package store

import (
	"encoding/json"
	"errors"
	"os"
	"sync"

	"github.com/rtnews/backend/internal/model"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("record not found")

// Data mirrors the on-disk document. The top-level keys are fixed:
// older deployments already carry files in this layout.
type Data struct {
	Users         []model.User    `json:"users"`
	Articles      []model.Article `json:"articles"`
	LastArticleID int             `json:"lastArticleId"`
}

// Store is a JSON document store rooted at a single file path.
type Store struct {
	mu   sync.Mutex
	path string
}

// New creates a store backed by the file at path. The file is created
// lazily on first write or by Init.
func New(path string) *Store {
	return &Store{path: path}
}

// Init seeds the document with the single admin account when the
// backing file does not exist yet. passwordHash must already be a
// bcrypt hash.
func (s *Store) Init(username, passwordHash, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	data := &Data{
		Users: []model.User{{
			ID:       "1",
			Username: username,
			Password: passwordHash,
			Email:    email,
			Role:     "admin",
		}},
		Articles: []model.Article{},
	}

	return s.write(data)
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// read decodes the document. A missing or corrupt file yields an empty
// document rather than an error, matching the original behavior.
func (s *Store) read() *Data {
	empty := &Data{Users: []model.User{}, Articles: []model.Article{}}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return empty
	}

	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return empty
	}
	if data.Users == nil {
		data.Users = []model.User{}
	}
	if data.Articles == nil {
		data.Articles = []model.Article{}
	}

	return &data
}

func (s *Store) write(data *Data) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, raw, 0o600)
}

// Articles returns the full collection in insertion order.
func (s *Store) Articles() []model.Article {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read().Articles
}

// Article returns the article with the given id.
func (s *Store) Article(id string) (*model.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.read().Articles {
		if a.ID == id {
			a := a

			return &a, nil
		}
	}

	return nil, ErrNotFound
}

// AppendArticle appends a new article to the collection.
func (s *Store) AppendArticle(article model.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.read()
	data.Articles = append(data.Articles, article)

	return s.write(data)
}

// UpdateArticle applies mutate to the stored article with the given id
// and persists the result. The mutation runs inside the write lock.
func (s *Store) UpdateArticle(id string, mutate func(*model.Article)) (*model.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.read()
	for i := range data.Articles {
		if data.Articles[i].ID != id {
			continue
		}
		mutate(&data.Articles[i])
		if err := s.write(data); err != nil {
			return nil, err
		}
		a := data.Articles[i]

		return &a, nil
	}

	return nil, ErrNotFound
}

// RemoveArticle deletes the article with the given id and returns the
// removed record. The referenced upload files are left on disk.
func (s *Store) RemoveArticle(id string) (*model.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.read()
	for i, a := range data.Articles {
		if a.ID != id {
			continue
		}
		data.Articles = append(data.Articles[:i], data.Articles[i+1:]...)
		if err := s.write(data); err != nil {
			return nil, err
		}
		a := a

		return &a, nil
	}

	return nil, ErrNotFound
}

// UserByUsername returns the user record for username.
func (s *Store) UserByUsername(username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.read().Users {
		if u.Username == username {
			u := u

			return &u, nil
		}
	}

	return nil, ErrNotFound
}
