package api

import (
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
)

var errCrossOrigin = errors.New("cross-origin request not allowed")

// originMiddleware rejects state-changing requests sent by pages that are
// not served from a loopback host. Requests without Origin or Referer come
// from non-browser clients and pass.
func (s *Server) originMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if !loopbackOrigin(r) {
			s.logger.Warn().
				Str("event", "api.cross_origin").
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("origin", requestOrigin(r)).
				Msg("rejected cross-origin request")
			writeError(w, http.StatusForbidden, errCrossOrigin)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestOrigin returns the Origin header, or the origin of the Referer.
func requestOrigin(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" {
		return strings.TrimSuffix(origin, "/")
	}
	ref, err := url.Parse(r.Header.Get("Referer"))
	if err != nil || ref.Host == "" {
		return ""
	}
	return ref.Scheme + "://" + ref.Host
}

// loopbackOrigin reports whether r carries no origin or one on a loopback
// host.
func loopbackOrigin(r *http.Request) bool {
	origin := requestOrigin(r)
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
