package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"elearnhub/internal/ratelimit"
	"elearnhub/internal/servicetoken"
	"elearnhub/internal/util"
	"elearnhub/pkg/auth"
	"elearnhub/pkg/store"
	"elearnhub/services/marketplace/internal/app"
	"elearnhub/services/marketplace/internal/security"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App
	// InternalVerifier guards /internal routes; nil disables them.
	InternalVerifier *servicetoken.Verifier
	// CheckoutLimiter is applied to checkout and admin login; nil disables
	// rate limiting.
	CheckoutLimiter    ratelimit.Limiter
	TrustedProxies     *util.TrustedProxies
	CORSAllowedOrigins []string
	// Alerter counts failed logins, bad tokens, failed payments and rate
	// limit hits; nil disables alerting.
	Alerter *security.AuditAlerter
}

// Server exposes the marketplace JSON API.
type Server struct {
	app            *app.App
	internalVerify *servicetoken.Verifier
	limiter        ratelimit.Limiter
	trusted        *util.TrustedProxies
	corsOrigins    []string
	alerter        *security.AuditAlerter
	mux            *http.ServeMux
}

func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	s := &Server{
		app:            cfg.App,
		internalVerify: cfg.InternalVerifier,
		limiter:        cfg.CheckoutLimiter,
		trusted:        cfg.TrustedProxies,
		corsOrigins:    cfg.CORSAllowedOrigins,
		alerter:        cfg.Alerter,
		mux:            http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(s.trusted, util.WithSecurityHeaders(util.WithCORS(s.corsOrigins, s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc(app.MediaPrefix, s.handleMedia)

	// public catalog and checkout
	s.mux.HandleFunc("/api/courses", s.handlePublicCourses)
	s.mux.HandleFunc("/api/courses/", s.handlePublicCourseByID)
	s.mux.Handle("/api/checkout", s.withRateLimit(security.EventCheckout, http.HandlerFunc(s.handleCheckout)))
	s.mux.HandleFunc("/api/payments/verify", s.handleVerify)

	// back office
	s.mux.Handle("/api/admin/login", s.withRateLimit(security.EventAdminLogin, http.HandlerFunc(s.handleLogin)))
	s.mux.Handle("/api/admin/logout", s.withAdmin(s.handleLogout))
	s.mux.Handle("/api/admin/courses", s.withAdmin(s.handleCourses))
	s.mux.Handle("/api/admin/courses/", s.withAdmin(s.handleCourseByID))
	s.mux.Handle("/api/admin/videos", s.withAdmin(s.handleVideos))
	s.mux.Handle("/api/admin/videos/", s.withAdmin(s.handleVideoByID))
	s.mux.Handle("/api/admin/students", s.withAdmin(s.handleStudents))
	s.mux.Handle("/api/admin/students/", s.withAdmin(s.handleStudentByID))
	s.mux.Handle("/api/admin/payments", s.withAdmin(s.handlePayments))
	s.mux.Handle("/api/admin/payments/", s.withAdmin(s.handlePaymentByID))
	s.mux.Handle("/api/admin/settings", s.withAdmin(s.handleSettings))
	s.mux.Handle("/api/admin/analytics", s.withAdmin(s.handleAnalytics))

	// service to service
	s.mux.Handle("/internal/payments/", s.withInternal(s.handleInternalPayment))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) withAdmin(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := servicetoken.BearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "AUTH_INVALID_TOKEN", "unauthorized")
			return
		}
		subject, err := s.app.AdminSubject(token)
		if err != nil {
			if errors.Is(err, auth.ErrRevocationUnavailable) {
				writeAppError(w, r, err)
				return
			}
			s.audit(r, security.EventAdminAuthorize, security.OutcomeFail)
			writeError(w, http.StatusUnauthorized, "AUTH_INVALID_TOKEN", "unauthorized")
			return
		}
		logger := util.LoggerFromContext(r.Context()).With("admin", subject)
		next(w, r.WithContext(util.ContextWithLogger(r.Context(), logger)))
	})
}

func (s *Server) withInternal(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.internalVerify == nil {
			writeError(w, http.StatusNotFound, "SYSTEM_NOT_FOUND", "not found")
			return
		}
		token, ok := servicetoken.BearerToken(r)
		if !ok {
			s.audit(r, security.EventInternalAuth, security.OutcomeFail)
			writeError(w, http.StatusUnauthorized, "AUTH_INVALID_SERVICE_TOKEN", "unauthorized")
			return
		}
		if _, err := s.internalVerify.Verify(token); err != nil {
			util.LoggerFromContext(r.Context()).Warn("service token rejected", "err", err)
			s.audit(r, security.EventInternalAuth, security.OutcomeFail)
			writeError(w, http.StatusUnauthorized, "AUTH_INVALID_SERVICE_TOKEN", "unauthorized")
			return
		}
		next(w, r)
	})
}

// withRateLimit keys the limiter by scope and client IP. Only mutating
// requests count.
func (s *Server) withRateLimit(scope string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil || r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}
		key := scope + ":" + util.ClientIP(r, s.trusted)
		if ok, retryAfter := s.limiter.Allow(r.Context(), key); !ok {
			seconds := int(retryAfter.Round(time.Second) / time.Second)
			if seconds < 1 {
				seconds = 1
			}
			s.audit(r, scope, security.OutcomeRateLimited)
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// audit feeds the alerter and logs once a threshold is reached. Alerting
// never fails the request.
func (s *Server) audit(r *http.Request, event, outcome string) {
	if s.alerter == nil {
		return
	}
	ip := util.ClientIP(r, s.trusted)
	logger := util.LoggerFromContext(r.Context())
	result, err := s.alerter.Observe(r.Context(), event, outcome, ip)
	if err != nil {
		logger.Debug("audit alert observe failed", "event", event, "err", err)
		return
	}
	if result.Triggered {
		logger.Warn("security alert", "event", event, "outcome", outcome, "client_ip", ip,
			"count", result.Count, "threshold", result.Threshold, "window", result.Window.String())
	}
}

// pathParts splits the path below prefix: "/api/admin/courses/1/videos"
// with prefix "/api/admin/courses/" gives ["1", "videos"].
func pathParts(r *http.Request, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      code,
		RequestID: strings.TrimSpace(w.Header().Get(util.RequestIDHeader)),
	})
}

var appErrors = []struct {
	err    error
	status int
	code   string
}{
	{app.ErrInvalidInput, http.StatusBadRequest, "INVALID_REQUEST"},
	{app.ErrCourseNotFound, http.StatusNotFound, "COURSE_NOT_FOUND"},
	{app.ErrVideoNotFound, http.StatusNotFound, "VIDEO_NOT_FOUND"},
	{app.ErrStudentNotFound, http.StatusNotFound, "STUDENT_NOT_FOUND"},
	{app.ErrPaymentNotFound, http.StatusNotFound, "PAYMENT_NOT_FOUND"},
	{app.ErrThumbnailNotFound, http.StatusNotFound, "THUMBNAIL_NOT_FOUND"},
	{app.ErrMethodDisabled, http.StatusUnprocessableEntity, "PAYMENT_METHOD_DISABLED"},
	{app.ErrPaymentNotPending, http.StatusConflict, "PAYMENT_NOT_PENDING"},
	{app.ErrTransactionMismatch, http.StatusConflict, "PAYMENT_TRANSACTION_MISMATCH"},
	{app.ErrInvalidCredentials, http.StatusUnauthorized, "AUTH_INVALID_CREDENTIALS"},
	{app.ErrThumbnailsDisabled, http.StatusNotImplemented, "THUMBNAILS_DISABLED"},
	{store.ErrStorageUnavailable, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE"},
	{auth.ErrRevocationUnavailable, http.StatusServiceUnavailable, "AUTH_UNAVAILABLE"},
}

// writeAppError maps app and store errors onto the error envelope. Storage
// and unknown errors are logged; their detail is not sent to the client.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	for _, e := range appErrors {
		if !errors.Is(err, e.err) {
			continue
		}
		msg := err.Error()
		if e.status >= http.StatusInternalServerError {
			util.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
			msg = e.err.Error()
		}
		writeError(w, e.status, e.code, msg)
		return
	}
	util.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
	writeError(w, http.StatusInternalServerError, "SYSTEM_INTERNAL_ERROR", "internal error")
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "SYSTEM_METHOD_NOT_ALLOWED", "method not allowed")
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "SYSTEM_NOT_FOUND", "not found")
}
