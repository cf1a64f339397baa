package api

import (
	"errors"
	"net/http"

	"github.com/dd0wney/cluso-corridors/pkg/api/middleware"
	"github.com/dd0wney/cluso-corridors/pkg/audit"
	"github.com/dd0wney/cluso-corridors/pkg/auth"
	"github.com/dd0wney/cluso-corridors/pkg/logging"
)

// adminRoles may call the /admin endpoints.
var adminRoles = []string{auth.RoleAdmin, auth.RoleOperator}

// requireRole validates the bearer token and requires an admin role. It
// passes everything through when no validator is configured.
func (s *Server) requireRole(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.tokens == nil {
			next.ServeHTTP(w, r)
			return
		}

		token := auth.BearerToken(r)
		if token == "" {
			s.authFailure(w, r, http.StatusUnauthorized, codeUnauthorized, "bearer token required", nil)
			return
		}
		claims, err := s.tokens.ValidateToken(r.Context(), token)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, auth.ErrExpiredToken) {
				msg = "token expired"
			}
			s.authFailure(w, r, http.StatusUnauthorized, codeUnauthorized, msg, err)
			return
		}
		if !claims.HasRole(adminRoles...) {
			s.authFailure(w, r, http.StatusForbidden, codeForbidden, "admin or operator role required", nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

func (s *Server) authFailure(w http.ResponseWriter, r *http.Request, status int, code, msg string, err error) {
	if s.metrics != nil {
		s.metrics.RecordAuthFailure()
	}
	client := s.clientIP.ClientIP(r)
	fields := []logging.Field{
		logging.Path(r.URL.Path),
		logging.String("client", client),
		logging.Int("status", status),
		logging.RequestID(middleware.GetRequestID(r)),
	}
	if err != nil {
		fields = append(fields, logging.Error(err))
	}
	s.logger.Warn("admin request rejected", fields...)
	s.recordAudit(&audit.Event{
		Action:    audit.ActionAuthenticate,
		Resource:  r.URL.Path,
		Status:    audit.StatusDenied,
		Error:     msg,
		IPAddress: client,
		RequestID: middleware.GetRequestID(r),
	})
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="corridord"`)
	}
	s.respondError(w, r, status, code, msg)
}

// recordAudit appends e to the audit trail. Failures are logged and never
// fail the request.
func (s *Server) recordAudit(e *audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(e); err != nil {
		s.logger.Error("audit write failed", logging.String("action", string(e.Action)), logging.Error(err))
	}
}
