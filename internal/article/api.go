package article

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/rtnews/backend/internal/articleresponse"
	"github.com/rtnews/backend/internal/errresponse"
	"github.com/rtnews/backend/internal/upload"
)

// Handler serves the article endpoints.
type Handler struct {
	svc   *Service
	saver *upload.Saver
	log   *zap.SugaredLogger
}

func NewHandler(svc *Service, saver *upload.Saver, log *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, saver: saver, log: log}
}

// ListArticles returns the whole collection in insertion order.
func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	if err := render.RenderList(w, r, articleresponse.NewArticleListResponse(h.svc.List())); err != nil {
		if err := render.Render(w, r, errresponse.ErrRender(err)); err != nil {
			h.log.Errorw("render article list", "err", err)
		}
	}
}

// GetArticle returns the Article loaded by the Ctx middleware.
func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	article := articleFromContext(r.Context())

	if err := render.Render(w, r, articleresponse.NewArticleResponse(article)); err != nil {
		if err := render.Render(w, r, errresponse.ErrRender(err)); err != nil {
			h.log.Errorw("render article", "err", err)
		}
	}
}

// CreateArticle persists the posted Article and returns it back to the
// client as an acknowledgement. Attachments are validated and stored
// before the JSON document is touched, so a rejected file never leaves
// a half-written article behind.
func (h *Handler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	in, err := h.bindForm(r)
	if err != nil {
		h.renderErr(w, r, err)

		return
	}
	if in.Title == "" || in.Excerpt == "" || in.Content == "" || in.Category == "" || in.Author == "" {
		h.renderErr(w, r, ErrMissingFields)

		return
	}
	if err := h.saveUploads(r, in); err != nil {
		h.renderErr(w, r, err)

		return
	}

	article, err := h.svc.Create(*in)
	if err != nil {
		h.renderErr(w, r, err)

		return
	}

	h.log.Infow("article created", "id", article.ID, "title", article.Title)
	render.Status(r, http.StatusCreated)
	if err := render.Render(w, r, articleresponse.NewArticleResponse(article)); err != nil {
		h.log.Errorw("render created article", "err", err)
	}
}

// UpdateArticle applies a partial update to an existing Article.
func (h *Handler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	article := articleFromContext(r.Context())

	in, err := h.bindForm(r)
	if err != nil {
		h.renderErr(w, r, err)

		return
	}
	if err := h.saveUploads(r, in); err != nil {
		h.renderErr(w, r, err)

		return
	}

	updated, err := h.svc.Update(article.ID, *in)
	if err != nil {
		h.renderErr(w, r, err)

		return
	}

	h.log.Infow("article updated", "id", updated.ID)
	if err := render.Render(w, r, articleresponse.NewArticleResponse(updated)); err != nil {
		h.log.Errorw("render updated article", "err", err)
	}
}

// DeleteArticle removes an existing Article. The referenced upload
// files stay on disk.
func (h *Handler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	article := articleFromContext(r.Context())

	removed, err := h.svc.Delete(article.ID)
	if err != nil {
		h.renderErr(w, r, err)

		return
	}

	h.log.Infow("article deleted", "id", removed.ID)
	if err := render.Render(w, r, articleresponse.NewDeletedResponse(removed)); err != nil {
		h.log.Errorw("render deleted article", "err", err)
	}
}

// bindForm decodes the multipart (or urlencoded) admin form into an
// Input, leaving the file parts for saveUploads.
func (h *Handler) bindForm(r *http.Request) (*Input, error) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			return nil, err
		}
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
	}

	return &Input{
		Title:      r.FormValue("title"),
		Excerpt:    r.FormValue("excerpt"),
		Content:    r.FormValue("content"),
		Category:   r.FormValue("category"),
		Author:     r.FormValue("author"),
		IsHero:     r.FormValue("isHero"),
		IsBreaking: r.FormValue("isBreaking"),
	}, nil
}

func (h *Handler) saveUploads(r *http.Request, in *Input) error {
	image, err := h.saver.Save(r.MultipartForm, "image")
	if err != nil {
		return err
	}
	video, err := h.saver.Save(r.MultipartForm, "video")
	if err != nil {
		return err
	}
	in.Image = image
	in.Video = video

	return nil
}

func (h *Handler) renderErr(w http.ResponseWriter, r *http.Request, err error) {
	var resp render.Renderer
	switch {
	case errors.Is(err, ErrNotFound):
		resp = errresponse.ErrNotFound
	case errors.Is(err, ErrMissingFields),
		errors.Is(err, upload.ErrInvalidType),
		errors.Is(err, upload.ErrTooLarge):
		resp = errresponse.ErrInvalidRequest(err)
	default:
		h.log.Errorw("article handler", "err", err)
		resp = errresponse.ErrServer(err)
	}

	if err := render.Render(w, r, resp); err != nil {
		h.log.Errorw("render error response", "err", err)
	}
}
