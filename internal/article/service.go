package article

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rtnews/backend/internal/model"
	"github.com/rtnews/backend/internal/store"
)

var (
	// ErrMissingFields is returned when a create omits a required field.
	ErrMissingFields = errors.New("Missing required fields")
	// ErrNotFound is returned for an unknown article id.
	ErrNotFound = errors.New("Article not found")
)

// Input carries the writeable article fields as posted by the admin
// form. Boolean flags arrive as the literal strings "true"/"false";
// anything else leaves the stored flag alone on update.
type Input struct {
	Title      string
	Excerpt    string
	Content    string
	Category   string
	Author     string
	IsHero     string
	IsBreaking string
	Image      string // stored filename of a fresh upload, empty otherwise
	Video      string
}

// Service implements the article operations over the JSON store.
type Service struct {
	store *store.Store
}

func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// List returns the full collection in insertion order. Filtering and
// search happen client-side.
func (s *Service) List() []model.Article {
	return s.store.Articles()
}

// Get returns the article with the given id.
func (s *Service) Get(id string) (*model.Article, error) {
	article, err := s.store.Article(id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}

	return article, err
}

// Create validates and persists a new article. Overlong fields are
// clamped to their ceilings rather than rejected. The id, humanized
// time and ISO timestamps are server-assigned.
func (s *Service) Create(in Input) (*model.Article, error) {
	if in.Title == "" || in.Excerpt == "" || in.Content == "" || in.Category == "" || in.Author == "" {
		return nil, ErrMissingFields
	}

	now := time.Now()
	article := model.Article{
		ID:         newArticleID(now),
		Title:      in.Title,
		Excerpt:    in.Excerpt,
		Content:    in.Content,
		Category:   in.Category,
		Author:     in.Author,
		Time:       humanTime(now),
		Image:      in.Image,
		Video:      in.Video,
		IsHero:     in.IsHero == "true",
		IsBreaking: in.IsBreaking == "true",
		CreatedAt:  isoTime(now),
		UpdatedAt:  isoTime(now),
	}
	article.Clamp()

	if err := s.store.AppendArticle(article); err != nil {
		return nil, err
	}

	return &article, nil
}

// Update overwrites only the provided fields; an empty value keeps the
// stored one. UpdatedAt advances, CreatedAt never changes.
func (s *Service) Update(id string, in Input) (*model.Article, error) {
	updated, err := s.store.UpdateArticle(id, func(a *model.Article) {
		if in.Title != "" {
			a.Title = in.Title
		}
		if in.Excerpt != "" {
			a.Excerpt = in.Excerpt
		}
		if in.Content != "" {
			a.Content = in.Content
		}
		if in.Category != "" {
			a.Category = in.Category
		}
		if in.Author != "" {
			a.Author = in.Author
		}
		switch in.IsHero {
		case "true":
			a.IsHero = true
		case "false":
			a.IsHero = false
		}
		switch in.IsBreaking {
		case "true":
			a.IsBreaking = true
		case "false":
			a.IsBreaking = false
		}
		if in.Image != "" {
			a.Image = in.Image
		}
		if in.Video != "" {
			a.Video = in.Video
		}
		a.Clamp()
		a.UpdatedAt = isoTime(time.Now())
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}

	return updated, err
}

// Delete removes the article and returns the removed record. Backing
// upload files are not cleaned up.
func (s *Service) Delete(id string) (*model.Article, error) {
	removed, err := s.store.RemoveArticle(id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}

	return removed, err
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// newArticleID builds a timestamp+random id. Collisions are not
// checked; the random suffix makes them vanishingly unlikely.
func newArticleID(now time.Time) string {
	var suffix strings.Builder
	for i := 0; i < 9; i++ {
		suffix.WriteByte(base36[rand.Intn(len(base36))])
	}

	return fmt.Sprintf("article_%d_%s", now.UnixMilli(), suffix.String())
}

// humanTime is the display timestamp shown on article cards.
func humanTime(now time.Time) string {
	return now.Format("1/2/2006, 3:04:05 PM")
}

// isoTime matches the ISO-8601 millisecond format the frontend parses.
func isoTime(now time.Time) string {
	return now.UTC().Format("2006-01-02T15:04:05.000Z")
}
