package model

import "time"

// Tokens is the auth state kept in client storage.
type Tokens struct {
	Access   string    `json:"access"`
	Refresh  string    `json:"refresh"`
	StoredAt time.Time `json:"stored_at"`
}

// LoginRequest - credentials posted to the API's token endpoint
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse - JWT pair returned by the API
type LoginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}
