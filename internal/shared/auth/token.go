package auth

import (
	"net/http"
	"strings"
)

const bearerScheme = "bearer "

// ExtractBearerToken returns the credential of the request's Authorization
// header, or "" when the header is absent or not a bearer credential.
func ExtractBearerToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	return ExtractBearerTokenFromHeader(r.Header.Get("Authorization"))
}

// ExtractBearerTokenFromHeader strips a case-insensitive "Bearer " scheme.
func ExtractBearerTokenFromHeader(header string) string {
	header = strings.TrimSpace(header)
	if len(header) <= len(bearerScheme) || !strings.EqualFold(header[:len(bearerScheme)], bearerScheme) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerScheme):])
}

// ExtractTokenFromQuery returns the trimmed query parameter name, defaulting to "token".
func ExtractTokenFromQuery(r *http.Request, name string) string {
	if r == nil || r.URL == nil {
		return ""
	}
	if name == "" {
		name = "token"
	}
	return strings.TrimSpace(r.URL.Query().Get(name))
}
