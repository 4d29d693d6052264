// Package userpayload holds the user-facing payload for the account
// record, stripped of the credential hash and email.
package userpayload

import (
	"net/http"

	"github.com/rtnews/backend/internal/model"
)

// UserPayload is the subset of the user record returned by login.
type UserPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// NewUserPayload strips a stored user down to its public fields.
func NewUserPayload(user *model.User) *UserPayload {
	return &UserPayload{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
	}
}

func (u *UserPayload) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}
