package gateway

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// requireAuth guards dashboard endpoints with the shared secret. The
// credential is taken from the Authorization header, or from a "token"
// query parameter for WebSocket clients that cannot set headers.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Auth.Secret == "" {
			writeError(w, http.StatusServiceUnavailable, "authentication is not configured")
			return
		}

		token := bearerToken(r)
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if !safeEqual(token, s.cfg.Auth.Secret) {
			s.log.Warn().Str("remote", r.RemoteAddr).Str("path", r.URL.Path).Msg("rejected unauthorized request")
			writeError(w, http.StatusUnauthorized, "invalid or missing credentials")
			return
		}

		next(w, r)
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return ""
}

// safeEqual performs a constant-time string comparison to prevent timing attacks.
// It avoids early-return on length mismatch to prevent leaking secret length via timing.
func safeEqual(a, b string) bool {
	lenMatch := subtle.ConstantTimeEq(int32(len(a)), int32(len(b)))
	cmp := subtle.ConstantTimeCompare([]byte(a), []byte(b))
	return subtle.ConstantTimeSelect(lenMatch, cmp, 0) == 1
}
