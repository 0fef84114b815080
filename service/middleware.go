package service

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/glasshouse/capsight/idgen"
	"github.com/glasshouse/capsight/kit"
)

var newRequestID = idgen.Prefixed("req_", idgen.NanoID(12))

// requestID assigns a per-request ID and stores transport metadata in
// the context.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := newRequestID()
		ctx := kit.WithRequestID(r.Context(), id)
		ctx = kit.WithTransport(ctx, "http")
		ctx = kit.WithRemoteAddr(ctx, r.RemoteAddr)
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// basicAuth enforces HTTP Basic Auth against a bcrypt password hash.
// The username is compared in constant time against "capsight".
func basicAuth(passwordHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok {
				unauthorized(w)
				return
			}
			userOK := subtle.ConstantTimeCompare([]byte(user), []byte("capsight")) == 1
			passOK := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(pass)) == nil
			if !userOK || !passOK {
				logger.Warn("service: auth rejected", "remote", r.RemoteAddr)
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="capsight"`)
	writeJSON(w, 401, map[string]string{"error": "unauthorized"})
}
