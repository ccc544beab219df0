package model

// Seller is an identity proven by a bearer token.  Only the salted hash of
// the token is stored.
type Seller struct {
	ID          string `json:"seller_id"`
	TokenHash   string `json:"-"`
	CreatedAt   int64  `json:"created_at"`
	LastLoginAt *int64 `json:"last_login_at"`
}
