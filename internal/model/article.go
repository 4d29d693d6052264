package model

// Field ceilings applied at write time. Overlong input is truncated,
// not rejected.
const (
	MaxTitleLen    = 500
	MaxExcerptLen  = 1000
	MaxContentLen  = 50000
	MaxCategoryLen = 50
	MaxAuthorLen   = 100
)

// Article data model. The JSON tags are the wire contract shared with
// the admin frontend; do not rename them casually.
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

// Truncate clips s to at most n characters, counting runes so a
// multi-byte title is never cut mid-codepoint.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	return string(runes[:n])
}

// Clamp applies the field ceilings in place.
func (a *Article) Clamp() {
	a.Title = Truncate(a.Title, MaxTitleLen)
	a.Excerpt = Truncate(a.Excerpt, MaxExcerptLen)
	a.Content = Truncate(a.Content, MaxContentLen)
	a.Category = Truncate(a.Category, MaxCategoryLen)
	a.Author = Truncate(a.Author, MaxAuthorLen)
}
