package router

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/IntelliTect/Coalesce-sub010/internal/config"
)

// corsPolicy describes what browsers may do against /api.
type corsPolicy struct {
	origins          []string
	anyOrigin        bool
	allowCredentials bool
	methods          []string
	allowHeaders     []string
	exposeHeaders    []string
	maxAge           int
}

// apiCORSPolicy covers the bulk save and get routes. Clients send a bearer
// token and may pass their own request id; they read the id back to quote it
// when the server reports an error.
func apiCORSPolicy(cfg config.CORSConfig) corsPolicy {
	origins := parseOrigins(cfg.AllowOrigin)
	return corsPolicy{
		origins:          origins,
		anyOrigin:        len(origins) == 0 || slices.Contains(origins, "*"),
		allowCredentials: cfg.AllowCredentials,
		methods:          []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		allowHeaders:     []string{"Content-Type", "Authorization", requestIDHeader},
		exposeHeaders:    []string{requestIDHeader},
		maxAge:           86400,
	}
}

// handler adds CORS headers and answers preflight requests itself.
func (p corsPolicy) handler(next http.Handler) http.Handler {
	methods := strings.Join(p.methods, ", ")
	allowHeaders := strings.Join(p.allowHeaders, ", ")
	exposeHeaders := strings.Join(p.exposeHeaders, ", ")
	maxAge := strconv.Itoa(p.maxAge)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		origin, vary := p.allowOrigin(r.Header.Get("Origin"))
		if origin != "" {
			h.Set("Access-Control-Allow-Origin", origin)
		}
		if vary {
			h.Add("Vary", "Origin")
		}
		if p.allowCredentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		h.Set("Access-Control-Expose-Headers", exposeHeaders)

		if r.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", allowHeaders)
			h.Set("Access-Control-Max-Age", maxAge)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allowOrigin picks the Access-Control-Allow-Origin value. A wildcard cannot
// be combined with credentials, so the caller's origin is echoed instead.
func (p corsPolicy) allowOrigin(requestOrigin string) (value string, vary bool) {
	if p.anyOrigin {
		if p.allowCredentials && requestOrigin != "" {
			return requestOrigin, true
		}
		return "*", false
	}
	if requestOrigin != "" && slices.Contains(p.origins, requestOrigin) {
		return requestOrigin, true
	}
	return "", true
}

func parseOrigins(allowOrigin string) []string {
	var res []string
	for _, o := range strings.Split(allowOrigin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			res = append(res, o)
		}
	}
	return res
}
