package model

// User data model. A single admin account is seeded at store
// initialization; users are never created or mutated in-product.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"` // bcrypt hash
	Email    string `json:"email"`
	Role     string `json:"role"`
}
