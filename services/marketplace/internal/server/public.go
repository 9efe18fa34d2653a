package server

import (
	"net/http"
	"strings"

	"elearnhub/pkg/domain"
	"elearnhub/services/marketplace/internal/app"
	"elearnhub/services/marketplace/internal/security"
)

func courseFilter(r *http.Request) domain.CourseFilter {
	q := r.URL.Query()
	return domain.CourseFilter{
		Query:    strings.TrimSpace(q.Get("q")),
		Category: strings.TrimSpace(q.Get("category")),
		Level:    strings.TrimSpace(q.Get("level")),
		Status:   domain.CourseStatus(strings.TrimSpace(q.Get("status"))),
	}
}

func (s *Server) handlePublicCourses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	courses, err := s.app.ListPublishedCourses(courseFilter(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeList(w, courses)
}

// /api/courses/{id}
func (s *Server) handlePublicCourseByID(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r, "/api/courses/")
	if len(parts) != 1 {
		notFound(w)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	course, ok, err := s.app.GetPublishedCourse(parts[0])
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if !ok {
		writeAppError(w, r, app.ErrCourseNotFound)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

// handleCheckout answers 200 for a completed payment, 202 for one waiting
// on settlement and 402 when the gateway failed; all three carry the
// checkout result.
func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req app.CheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := s.app.Checkout(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	status := http.StatusOK
	switch result.Payment.Status {
	case domain.PaymentPending:
		status = http.StatusAccepted
	case domain.PaymentFailed:
		status = http.StatusPaymentRequired
		s.audit(r, security.EventCheckout, security.OutcomeFail)
	}
	writeJSON(w, status, result)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	resp, p, ok, err := s.app.Verify(r.Context(), q.Get("transactionId"), domain.PaymentMethod(strings.TrimSpace(q.Get("method"))))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	body := map[string]any{"verification": resp}
	if ok {
		body["paymentStatus"] = p.Status
		body["paymentId"] = p.ID
	}
	writeJSON(w, http.StatusOK, body)
}

// handleMedia redirects to a short-lived presigned URL of a thumbnail.
func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w)
		return
	}
	url, err := s.app.ThumbnailURL(r.Context(), strings.TrimPrefix(r.URL.Path, app.MediaPrefix))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}
