// Package models contains domain models for dilse.
package models

// Identity is the authenticated principal. A nil *Identity means nobody is signed in.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	Provider    string `json:"provider,omitempty"`
	// IDToken is the provider-issued bearer token, kept out of API responses.
	IDToken string `json:"-"`
}

// SameUser reports whether a and b refer to the same principal.
func SameUser(a, b *Identity) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.UID == b.UID
}
