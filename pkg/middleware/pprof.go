package middleware

import (
	"log/slog"
	"net/http"
	"net/http/pprof"
	"net/netip"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/Upendra-HQ/professional-backend-code/pkg/errors"
	"github.com/Upendra-HQ/professional-backend-code/pkg/httputil"
)

// RegisterPprof exposes the runtime profiler under /debug/pprof to the
// listed networks only.
func RegisterPprof(r chi.Router, allowedCIDRs []string, logger *slog.Logger) {
	r.Route("/debug/pprof", func(r chi.Router) {
		r.Use(IPAllowlist(allowedCIDRs, logger))
		r.Get("/cmdline", pprof.Cmdline)
		r.Get("/profile", pprof.Profile)
		r.HandleFunc("/symbol", pprof.Symbol)
		r.Get("/trace", pprof.Trace)
		r.Get("/*", pprof.Index)
	})
}

// IPAllowlist admits a request only when its socket peer lies in one of
// cidrs; forwarding headers play no part. Unparsable entries are skipped
// with a warning, so a list with no valid entry denies everyone.
func IPAllowlist(cidrs []string, logger *slog.Logger) func(http.Handler) http.Handler {
	allowed := parsePrefixes(cidrs, logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r, false)
			if addr, err := netip.ParseAddr(ip); err == nil {
				addr = addr.Unmap()
				if slices.ContainsFunc(allowed, func(p netip.Prefix) bool { return p.Contains(addr) }) {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.WarnContext(r.Context(), "request outside IP allowlist",
				slog.String("ip", ip),
				slog.String("path", r.URL.Path),
			)
			httputil.WriteError(w, r, apperrors.Forbidden("access restricted by IP allowlist"), logger)
		})
	}
}

func parsePrefixes(cidrs []string, logger *slog.Logger) []netip.Prefix {
	out := make([]netip.Prefix, 0, len(cidrs))
	for _, raw := range cidrs {
		p, err := netip.ParsePrefix(strings.TrimSpace(raw))
		if err != nil {
			logger.Warn("skipping invalid allowlist CIDR", slog.String("cidr", raw), slog.String("error", err.Error()))
			continue
		}
		out = append(out, p.Masked())
	}
	return out
}
