package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"elearnhub/pkg/auth"
	"elearnhub/pkg/domain"
	"elearnhub/pkg/payment"
	"elearnhub/pkg/queue"
	"elearnhub/pkg/storage"
	"elearnhub/pkg/store"
)

// SettlementQueue receives pending payments for out-of-band confirmation.
type SettlementQueue interface {
	Enqueue(ctx context.Context, s queue.Settlement) (queue.JobStatus, error)
}

// Config wires the application core. Store, Processor and Sessions are
// required; Settlements and Objects are optional.
type Config struct {
	Store       store.Store
	Processor   *payment.Processor
	Sessions    *auth.SessionManager
	Settlements SettlementQueue
	Objects     storage.ObjectStore

	AdminEmail        string
	AdminPasswordHash string

	ThumbnailMaxBytes int64
	ThumbnailURLTTL   time.Duration
}

// App is the marketplace core: catalog reads, checkout, settlement and the
// back-office operations on top of a Store.
type App struct {
	store       store.Store
	processor   *payment.Processor
	sessions    *auth.SessionManager
	settlements SettlementQueue
	objects     storage.ObjectStore

	adminEmail        string
	adminPasswordHash string
	thumbnailMaxBytes int64
	thumbnailURLTTL   time.Duration

	// serialises student/course read-modify-write during enrollment
	enrollMu sync.Mutex
}

func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("store required")
	}
	if cfg.Processor == nil {
		return nil, errors.New("payment processor required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session manager required")
	}
	if strings.TrimSpace(cfg.AdminEmail) == "" || cfg.AdminPasswordHash == "" {
		return nil, errors.New("admin credentials required")
	}
	maxBytes := cfg.ThumbnailMaxBytes
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	urlTTL := cfg.ThumbnailURLTTL
	if urlTTL <= 0 {
		urlTTL = 15 * time.Minute
	}
	return &App{
		store:             cfg.Store,
		processor:         cfg.Processor,
		sessions:          cfg.Sessions,
		settlements:       cfg.Settlements,
		objects:           cfg.Objects,
		adminEmail:        strings.TrimSpace(cfg.AdminEmail),
		adminPasswordHash: cfg.AdminPasswordHash,
		thumbnailMaxBytes: maxBytes,
		thumbnailURLTTL:   urlTTL,
	}, nil
}

func (a *App) ThumbnailMaxBytes() int64 { return a.thumbnailMaxBytes }

// Catalog

// ListPublishedCourses returns the public catalog. The status filter is
// always forced to published.
func (a *App) ListPublishedCourses(filter domain.CourseFilter) ([]domain.Course, error) {
	filter.Status = domain.CoursePublished
	courses, err := a.store.SearchCourses(filter)
	if err != nil {
		return nil, err
	}
	for i := range courses {
		courses[i].Videos = nil
	}
	return courses, nil
}

// GetPublishedCourse returns a published course with its published videos.
// Drafts are reported as missing.
func (a *App) GetPublishedCourse(id string) (domain.Course, bool, error) {
	course, ok, err := a.store.GetCourse(id)
	if err != nil || !ok {
		return domain.Course{}, false, err
	}
	if course.Status != domain.CoursePublished {
		return domain.Course{}, false, nil
	}
	videos := make([]domain.Video, 0, len(course.Videos))
	for _, v := range course.Videos {
		if v.Status == domain.VideoPublished {
			videos = append(videos, v)
		}
	}
	course.Videos = videos
	return course, true, nil
}

// Courses

func (a *App) ListCourses() ([]domain.Course, error) {
	return a.store.ListCourses()
}

func (a *App) SearchCourses(filter domain.CourseFilter) ([]domain.Course, error) {
	return a.store.SearchCourses(filter)
}

func (a *App) GetCourse(id string) (domain.Course, bool, error) {
	return a.store.GetCourse(id)
}

func (a *App) CreateCourse(in domain.NewCourse) (domain.Course, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return domain.Course{}, invalid("title required")
	}
	if in.Price.IsNegative() {
		return domain.Course{}, invalid("price must not be negative")
	}
	if in.Status != "" && !validCourseStatus(in.Status) {
		return domain.Course{}, invalid("unknown course status %q", in.Status)
	}
	return a.store.AddCourse(in)
}

func (a *App) UpdateCourse(id string, patch domain.CoursePatch) (domain.Course, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return domain.Course{}, invalid("title must not be empty")
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		return domain.Course{}, invalid("price must not be negative")
	}
	if patch.Status != nil && !validCourseStatus(*patch.Status) {
		return domain.Course{}, invalid("unknown course status %q", *patch.Status)
	}
	course, ok, err := a.store.UpdateCourse(id, patch)
	if err != nil {
		return domain.Course{}, err
	}
	if !ok {
		return domain.Course{}, ErrCourseNotFound
	}
	return course, nil
}

// DeleteCourse removes the course and its videos.
func (a *App) DeleteCourse(id string) error {
	ok, err := a.store.DeleteCourse(id)
	return notFoundIf(ok, err, ErrCourseNotFound)
}

// Videos

func (a *App) ListVideos() ([]domain.Video, error) {
	return a.store.ListVideos()
}

func (a *App) ListCourseVideos(courseID string) ([]domain.Video, error) {
	if _, ok, err := a.store.GetCourse(courseID); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrCourseNotFound
	}
	return a.store.ListVideosByCourse(courseID)
}

func (a *App) GetVideo(id string) (domain.Video, bool, error) {
	return a.store.GetVideo(id)
}

func (a *App) CreateVideo(in domain.NewVideo) (domain.Video, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return domain.Video{}, invalid("title required")
	}
	if in.Status != "" && !validVideoStatus(in.Status) {
		return domain.Video{}, invalid("unknown video status %q", in.Status)
	}
	if _, ok, err := a.store.GetCourse(in.CourseID); err != nil {
		return domain.Video{}, err
	} else if !ok {
		return domain.Video{}, ErrCourseNotFound
	}
	return a.store.AddVideo(in)
}

func (a *App) UpdateVideo(id string, patch domain.VideoPatch) (domain.Video, error) {
	if patch.Status != nil && !validVideoStatus(*patch.Status) {
		return domain.Video{}, invalid("unknown video status %q", *patch.Status)
	}
	if patch.CourseID != nil {
		if _, ok, err := a.store.GetCourse(*patch.CourseID); err != nil {
			return domain.Video{}, err
		} else if !ok {
			return domain.Video{}, ErrCourseNotFound
		}
	}
	video, ok, err := a.store.UpdateVideo(id, patch)
	if err != nil {
		return domain.Video{}, err
	}
	if !ok {
		return domain.Video{}, ErrVideoNotFound
	}
	return video, nil
}

func (a *App) DeleteVideo(id string) error {
	ok, err := a.store.DeleteVideo(id)
	return notFoundIf(ok, err, ErrVideoNotFound)
}

// Students

func (a *App) ListStudents() ([]domain.Student, error) {
	return a.store.ListStudents()
}

func (a *App) GetStudent(id string) (domain.Student, bool, error) {
	return a.store.GetStudent(id)
}

func (a *App) CreateStudent(in domain.NewStudent) (domain.Student, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return domain.Student{}, invalid("name required")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return domain.Student{}, err
	}
	in.Email = email
	if _, exists, err := a.store.GetStudentByEmail(email); err != nil {
		return domain.Student{}, err
	} else if exists {
		return domain.Student{}, invalid("email %s already registered", email)
	}
	return a.store.AddStudent(in)
}

func (a *App) UpdateStudent(id string, patch domain.StudentPatch) (domain.Student, error) {
	if patch.Email != nil {
		email, err := normalizeEmail(*patch.Email)
		if err != nil {
			return domain.Student{}, err
		}
		patch.Email = &email
	}
	student, ok, err := a.store.UpdateStudent(id, patch)
	if err != nil {
		return domain.Student{}, err
	}
	if !ok {
		return domain.Student{}, ErrStudentNotFound
	}
	return student, nil
}

func (a *App) DeleteStudent(id string) error {
	ok, err := a.store.DeleteStudent(id)
	return notFoundIf(ok, err, ErrStudentNotFound)
}

// StudentPayments lists the payments recorded for one student.
func (a *App) StudentPayments(id string) ([]domain.Payment, error) {
	if _, ok, err := a.store.GetStudent(id); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrStudentNotFound
	}
	return a.store.ListPaymentsByStudent(id)
}

// Payments

func (a *App) ListPayments() ([]domain.Payment, error) {
	return a.store.ListPayments()
}

func (a *App) GetPayment(id string) (domain.Payment, bool, error) {
	return a.store.GetPayment(id)
}

func (a *App) UpdatePayment(id string, patch domain.PaymentPatch) (domain.Payment, error) {
	if patch.Status != nil && !validPaymentStatus(*patch.Status) {
		return domain.Payment{}, invalid("unknown payment status %q", *patch.Status)
	}
	p, ok, err := a.store.UpdatePayment(id, patch)
	if err != nil {
		return domain.Payment{}, err
	}
	if !ok {
		return domain.Payment{}, ErrPaymentNotFound
	}
	return p, nil
}

func (a *App) DeletePayment(id string) error {
	ok, err := a.store.DeletePayment(id)
	return notFoundIf(ok, err, ErrPaymentNotFound)
}

// Settings and analytics

func (a *App) Settings() (domain.Settings, error) {
	return a.store.GetSettings()
}

func (a *App) SaveSettings(s domain.Settings) (domain.Settings, error) {
	s.Payment.Currency = strings.ToUpper(strings.TrimSpace(s.Payment.Currency))
	if s.Payment.Currency == "" {
		return domain.Settings{}, invalid("payment currency required")
	}
	if s.General.ContactEmail != "" {
		if _, err := normalizeEmail(s.General.ContactEmail); err != nil {
			return domain.Settings{}, err
		}
	}
	return a.store.SaveSettings(s)
}

func (a *App) Analytics() (domain.Analytics, error) {
	return a.store.Analytics()
}

// Verify asks the gateway about a transaction. It does not change any
// stored payment; settlement does that.
func (a *App) Verify(ctx context.Context, transactionID string, method domain.PaymentMethod) (payment.Response, domain.Payment, bool, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return payment.Response{}, domain.Payment{}, false, invalid("transactionId required")
	}
	p, ok, err := a.store.GetPaymentByTransaction(transactionID)
	if err != nil {
		return payment.Response{}, domain.Payment{}, false, err
	}
	if method == "" && ok {
		method = p.Method
	}
	return a.processor.Verify(ctx, transactionID, method), p, ok, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func notFoundIf(ok bool, err, notFound error) error {
	if err != nil {
		return err
	}
	if !ok {
		return notFound
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", invalid("email required")
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return "", invalid("invalid email %q", raw)
	}
	return strings.ToLower(addr.Address), nil
}

func validCourseStatus(s domain.CourseStatus) bool {
	return s == domain.CoursePublished || s == domain.CourseDraft
}

func validVideoStatus(s domain.VideoStatus) bool {
	return s == domain.VideoPublished || s == domain.VideoDraft || s == domain.VideoProcessing
}

func validPaymentStatus(s domain.PaymentStatus) bool {
	return s == domain.PaymentCompleted || s == domain.PaymentPending || s == domain.PaymentFailed
}
