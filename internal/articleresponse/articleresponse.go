// Package articleresponse holds the response payloads for the article
// endpoints.
package articleresponse

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/rtnews/backend/internal/model"
)

// ArticleResponse is the response payload for the Article data model.
// The article is rendered as-is; clients rely on the stored field set,
// so nothing is added or hidden here.
type ArticleResponse struct {
	*model.Article
}

func NewArticleResponse(article *model.Article) *ArticleResponse {
	return &ArticleResponse{Article: article}
}

func (rd *ArticleResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func NewArticleListResponse(articles []model.Article) []render.Renderer {
	list := []render.Renderer{}
	for i := range articles {
		list = append(list, NewArticleResponse(&articles[i]))
	}

	return list
}

// DeletedResponse acknowledges a delete with the removed record.
type DeletedResponse struct {
	Success bool           `json:"success"`
	Deleted *model.Article `json:"deleted"`
}

func NewDeletedResponse(article *model.Article) *DeletedResponse {
	return &DeletedResponse{Success: true, Deleted: article}
}

func (rd *DeletedResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}
