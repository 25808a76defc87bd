package validators

import (
	"net/http"
	"strings"
)

// BearerToken extracts the token from the Authorization header. A bare token
// without the Bearer scheme is accepted.
func BearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) >= 7 && strings.EqualFold(raw[:7], "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
