package article

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/rtnews/backend/internal/errresponse"
	"github.com/rtnews/backend/internal/model"
)

type ctxKey int

const articleKey ctxKey = iota

// Ctx middleware loads the Article named by the URL parameter onto the
// request context. Unknown ids stop here with a 404.
func (h *Handler) Ctx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "articleID")
		article, err := h.svc.Get(id)
		if err != nil {
			_ = render.Render(w, r, errresponse.ErrNotFound)

			return
		}

		ctx := context.WithValue(r.Context(), articleKey, article)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func articleFromContext(ctx context.Context) *model.Article {
	article, _ := ctx.Value(articleKey).(*model.Article)

	return article
}
