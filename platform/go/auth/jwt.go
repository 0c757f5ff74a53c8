package auth

import (
	"net/http"
	"strings"
)

// SessionCookie is the cookie the browser console keeps the Supabase access token in.
const SessionCookie = "sb-access-token"

// ExtractJWTToken returns the bearer token of the request. An Authorization header
// wins over the session cookie; any other scheme in the header yields no token.
func ExtractJWTToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return "", false
		}
		token = strings.TrimSpace(token)
		return token, token != ""
	}
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value, true
	}
	return "", false
}
