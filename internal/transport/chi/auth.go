package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const bearerScheme = "Bearer "

// publicRoutes are served without credentials.
var publicRoutes = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// BearerAuth rejects requests whose bearer token is not one of apiKeys.
// Empty keys are ignored; with no keys left the API is open.
func BearerAuth(apiKeys []string) func(http.Handler) http.Handler {
	var keys [][]byte
	for _, k := range apiKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := publicRoutes[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			switch {
			case header == "":
				unauthorized(w, "missing authorization header")
			case !strings.HasPrefix(header, bearerScheme):
				unauthorized(w, "authorization header must use Bearer scheme")
			case !knownKey(keys, []byte(header[len(bearerScheme):])):
				unauthorized(w, "invalid api key")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// knownKey compares token against every key in constant time.
func knownKey(keys [][]byte, token []byte) bool {
	found := 0
	for _, k := range keys {
		found |= subtle.ConstantTimeCompare(k, token)
	}
	return found == 1
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="zelastic"`)
	writeError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}
