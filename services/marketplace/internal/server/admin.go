package server

import (
	"errors"
	"net/http"

	"elearnhub/internal/servicetoken"
	"elearnhub/pkg/domain"
	"elearnhub/services/marketplace/internal/app"
	"elearnhub/services/marketplace/internal/security"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, app.ErrInvalidCredentials) {
			s.audit(r, security.EventAdminLogin, security.OutcomeFail)
		}
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	token, _ := servicetoken.BearerToken(r)
	if err := s.app.Logout(token); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// courses

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		courses, err := s.app.SearchCourses(courseFilter(r))
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeList(w, courses)
	case http.MethodPost:
		var in domain.NewCourse
		if !decodeJSON(w, r, &in) {
			return
		}
		course, err := s.app.CreateCourse(in)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, course)
	default:
		methodNotAllowed(w)
	}
}

// /api/admin/courses/{id}, /{id}/videos, /{id}/thumbnail
func (s *Server) handleCourseByID(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r, "/api/admin/courses/")
	switch {
	case len(parts) == 1:
	case len(parts) == 2 && parts[1] == "videos":
		s.handleCourseVideos(w, r, parts[0])
		return
	case len(parts) == 2 && parts[1] == "thumbnail":
		s.handleCourseThumbnail(w, r, parts[0])
		return
	default:
		notFound(w)
		return
	}
	id := parts[0]
	switch r.Method {
	case http.MethodGet:
		course, ok, err := s.app.GetCourse(id)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		if !ok {
			writeAppError(w, r, app.ErrCourseNotFound)
			return
		}
		writeJSON(w, http.StatusOK, course)
	case http.MethodPut, http.MethodPatch:
		var patch domain.CoursePatch
		if !decodeJSON(w, r, &patch) {
			return
		}
		course, err := s.app.UpdateCourse(id, patch)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, course)
	case http.MethodDelete:
		if err := s.app.DeleteCourse(id); err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCourseVideos(w http.ResponseWriter, r *http.Request, courseID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	videos, err := s.app.ListCourseVideos(courseID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeList(w, videos)
}

func (s *Server) handleCourseThumbnail(w http.ResponseWriter, r *http.Request, courseID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	maxBytes := s.app.ThumbnailMaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_UPLOAD_FORM", "invalid form data")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_UPLOAD_FORM", "file is required (field: file)")
		return
	}
	defer file.Close()
	course, err := s.app.UploadThumbnail(r.Context(), courseID, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

// videos

func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		videos, err := s.app.ListVideos()
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeList(w, videos)
	case http.MethodPost:
		var in domain.NewVideo
		if !decodeJSON(w, r, &in) {
			return
		}
		video, err := s.app.CreateVideo(in)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, video)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleVideoByID(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r, "/api/admin/videos/")
	if len(parts) != 1 {
		notFound(w)
		return
	}
	id := parts[0]
	switch r.Method {
	case http.MethodGet:
		video, ok, err := s.app.GetVideo(id)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		if !ok {
			writeAppError(w, r, app.ErrVideoNotFound)
			return
		}
		writeJSON(w, http.StatusOK, video)
	case http.MethodPut, http.MethodPatch:
		var patch domain.VideoPatch
		if !decodeJSON(w, r, &patch) {
			return
		}
		video, err := s.app.UpdateVideo(id, patch)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, video)
	case http.MethodDelete:
		if err := s.app.DeleteVideo(id); err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

// students

func (s *Server) handleStudents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		students, err := s.app.ListStudents()
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeList(w, students)
	case http.MethodPost:
		var in domain.NewStudent
		if !decodeJSON(w, r, &in) {
			return
		}
		student, err := s.app.CreateStudent(in)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, student)
	default:
		methodNotAllowed(w)
	}
}

// /api/admin/students/{id} or /{id}/payments
func (s *Server) handleStudentByID(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r, "/api/admin/students/")
	if len(parts) == 2 && parts[1] == "payments" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		payments, err := s.app.StudentPayments(parts[0])
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeList(w, payments)
		return
	}
	if len(parts) != 1 {
		notFound(w)
		return
	}
	id := parts[0]
	switch r.Method {
	case http.MethodGet:
		student, ok, err := s.app.GetStudent(id)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		if !ok {
			writeAppError(w, r, app.ErrStudentNotFound)
			return
		}
		writeJSON(w, http.StatusOK, student)
	case http.MethodPut, http.MethodPatch:
		var patch domain.StudentPatch
		if !decodeJSON(w, r, &patch) {
			return
		}
		student, err := s.app.UpdateStudent(id, patch)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, student)
	case http.MethodDelete:
		if err := s.app.DeleteStudent(id); err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

// payments

func (s *Server) handlePayments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	payments, err := s.app.ListPayments()
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeList(w, payments)
}

// /api/admin/payments/{id} or /{id}/confirm
func (s *Server) handlePaymentByID(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r, "/api/admin/payments/")
	if len(parts) == 2 && parts[1] == "confirm" {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		p, err := s.app.ConfirmPayment(r.Context(), parts[0])
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
		return
	}
	if len(parts) != 1 {
		notFound(w)
		return
	}
	id := parts[0]
	switch r.Method {
	case http.MethodGet:
		p, ok, err := s.app.GetPayment(id)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		if !ok {
			writeAppError(w, r, app.ErrPaymentNotFound)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case http.MethodPut, http.MethodPatch:
		var patch domain.PaymentPatch
		if !decodeJSON(w, r, &patch) {
			return
		}
		p, err := s.app.UpdatePayment(id, patch)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case http.MethodDelete:
		if err := s.app.DeletePayment(id); err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

// settings and analytics

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := s.app.Settings()
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPut:
		var in domain.Settings
		if !decodeJSON(w, r, &in) {
			return
		}
		settings, err := s.app.SaveSettings(in)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	analytics, err := s.app.Analytics()
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}
