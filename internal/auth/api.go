package auth

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/rtnews/backend/internal/config"
	"github.com/rtnews/backend/internal/errresponse"
	"github.com/rtnews/backend/internal/store"
	"github.com/rtnews/backend/internal/userpayload"
)

// Handler serves the login endpoint.
type Handler struct {
	cfg   config.JWTConfig
	store *store.Store
	log   *zap.SugaredLogger
}

// NewHandler wires the login endpoint to the user store.
func NewHandler(cfg config.JWTConfig, st *store.Store, log *zap.SugaredLogger) *Handler {
	return &Handler{cfg: cfg, store: st, log: log}
}

// LoginRequest is the JSON body of POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (l *LoginRequest) Bind(r *http.Request) error {
	if l.Username == "" || l.Password == "" {
		return errors.New("Username and password required")
	}

	return nil
}

// LoginResponse acknowledges a successful login.
type LoginResponse struct {
	Success bool                     `json:"success"`
	Token   string                   `json:"token"`
	User    *userpayload.UserPayload `json:"user"`
}

func (l *LoginResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// Login checks the supplied credentials against the stored bcrypt hash
// and issues a token. Unknown username and wrong password produce the
// same response so the endpoint does not leak which usernames exist.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	data := &LoginRequest{}
	if err := render.Bind(r, data); err != nil {
		if err := render.Render(w, r, errresponse.ErrInvalidRequest(errors.New("Username and password required"))); err != nil {
			h.log.Errorw("render login error", "err", err)
		}

		return
	}

	user, err := h.store.UserByUsername(data.Username)
	if err == nil {
		err = ComparePassword(user.Password, data.Password)
	}
	if err != nil {
		if err := render.Render(w, r, errresponse.ErrUnauthorized("Invalid credentials")); err != nil {
			h.log.Errorw("render login error", "err", err)
		}

		return
	}

	token, err := NewToken(h.cfg, user)
	if err != nil {
		h.log.Errorw("issue token", "err", err)
		if err := render.Render(w, r, errresponse.ErrServer(err)); err != nil {
			h.log.Errorw("render login error", "err", err)
		}

		return
	}

	h.log.Infow("login", "username", user.Username)
	if err := render.Render(w, r, &LoginResponse{
		Success: true,
		Token:   token,
		User:    userpayload.NewUserPayload(user),
	}); err != nil {
		h.log.Errorw("render login response", "err", err)
	}
}
