package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"elearnhub/pkg/auth"
	"elearnhub/pkg/domain"
	"elearnhub/pkg/payment"
	"elearnhub/pkg/queue"
	"elearnhub/pkg/storage"
	"elearnhub/pkg/store"

	"github.com/shopspring/decimal"
)

const (
	courseGo   = "3f9a1c52-6a4e-4f0e-9d3b-1a2b3c4d5e01"
	courseWeb  = "3f9a1c52-6a4e-4f0e-9d3b-1a2b3c4d5e02"
	courseData = "3f9a1c52-6a4e-4f0e-9d3b-1a2b3c4d5e03"

	pendingSeedPayment = "c4b3a291-8e7d-4f6c-b5a4-000000000004"
	wanjiruID          = "7c2e8b10-0d5f-4b61-8a9e-6f5d4c3b2a03"

	adminEmail    = "admin@elearnhub.example"
	adminPassword = "Correct-Horse-9"
)

type recordingQueue struct {
	mu   sync.Mutex
	jobs []queue.Settlement
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, s queue.Settlement) (queue.JobStatus, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return queue.JobStatus{}, q.err
	}
	q.jobs = append(q.jobs, s)
	return queue.JobStatus{Settlement: s, ID: "job-1", Status: queue.StatusQueued}, nil
}

type testEnv struct {
	app     *App
	store   store.Store
	queue   *recordingQueue
	objects *storage.MemoryStore
}

func newTestApp(t *testing.T, gateways ...payment.Gateway) testEnv {
	t.Helper()
	s := store.NewBlobStore(store.NewMemoryBackend())
	settings, err := s.GetSettings()
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	processor := payment.NewSimulatedProcessor(payment.Delays{}, settings.Payment)
	for _, g := range gateways {
		processor.Register(g)
	}
	sessions, err := auth.NewSessionManager(strings.Repeat("s", 32), auth.NewMemoryTokenRevoker(), auth.SessionOptions{})
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	hash, err := auth.HashPassword(adminPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	q := &recordingQueue{}
	objects := storage.NewMemoryStore("http://media.test")
	a, err := New(Config{
		Store:             s,
		Processor:         processor,
		Sessions:          sessions,
		Settlements:       q,
		Objects:           objects,
		AdminEmail:        adminEmail,
		AdminPasswordHash: hash,
		ThumbnailMaxBytes: 1024,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return testEnv{app: a, store: s, queue: q, objects: objects}
}

func checkoutReq(courseID string, method domain.PaymentMethod, email string) CheckoutRequest {
	return CheckoutRequest{
		CourseID: courseID,
		Method:   method,
		Customer: payment.Customer{Name: "Test Buyer", Email: email, Phone: "0712345678"},
	}
}

func mustCourse(t *testing.T, s store.Store, id string) domain.Course {
	t.Helper()
	c, ok, err := s.GetCourse(id)
	if err != nil || !ok {
		t.Fatalf("get course %s: ok=%v err=%v", id, ok, err)
	}
	return c
}

func TestCheckoutCardEnrollsNewStudent(t *testing.T) {
	env := newTestApp(t)
	before := mustCourse(t, env.store, courseGo).Enrollments

	res, err := env.app.Checkout(context.Background(), checkoutReq(courseGo, domain.MethodCard, "New.Buyer@Example.com"))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if !res.Gateway.Success || res.Payment.Status != domain.PaymentCompleted {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Student.Email != "new.buyer@example.com" {
		t.Fatalf("expected normalised email, got %q", res.Student.Email)
	}
	if len(res.Student.EnrolledCourses) != 1 || res.Student.EnrolledCourses[0] != courseGo {
		t.Fatalf("student not enrolled: %+v", res.Student)
	}
	if !res.Student.TotalSpent.Equal(decimal.RequireFromString("49.99")) {
		t.Fatalf("unexpected spend %s", res.Student.TotalSpent)
	}
	if got := mustCourse(t, env.store, courseGo).Enrollments; got != before+1 {
		t.Fatalf("enrollments = %d, want %d", got, before+1)
	}
	stored, ok, err := env.store.GetPaymentByTransaction(res.Payment.TransactionID)
	if err != nil || !ok || stored.StudentID != res.Student.ID || stored.CourseName != "Backend Development with Go" {
		t.Fatalf("payment not recorded: %+v ok=%v err=%v", stored, ok, err)
	}
	if len(env.queue.jobs) != 0 {
		t.Fatalf("completed payments must not be queued")
	}
}

func TestCheckoutPendingIsQueuedThenSettled(t *testing.T) {
	env := newTestApp(t)
	ctx := context.Background()
	before := mustCourse(t, env.store, courseWeb).Enrollments

	res, err := env.app.Checkout(ctx, checkoutReq(courseWeb, domain.MethodMpesa, "james@example.com"))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if res.Payment.Status != domain.PaymentPending || res.SettlementJobID != "job-1" {
		t.Fatalf("unexpected pending result: %+v", res)
	}
	if len(env.queue.jobs) != 1 || env.queue.jobs[0].PaymentID != res.Payment.ID {
		t.Fatalf("unexpected queued jobs: %+v", env.queue.jobs)
	}
	if got := mustCourse(t, env.store, courseWeb).Enrollments; got != before {
		t.Fatalf("pending payment must not enroll yet")
	}

	settled, err := env.app.Settle(ctx, res.Payment.ID, res.Payment.TransactionID, domain.PaymentCompleted)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if settled.Status != domain.PaymentCompleted {
		t.Fatalf("unexpected status %s", settled.Status)
	}
	student, _, _ := env.store.GetStudent(res.Student.ID)
	if !student.TotalSpent.Equal(decimal.RequireFromString("79.98")) {
		t.Fatalf("spend = %s, want 79.98", student.TotalSpent)
	}
	if got := mustCourse(t, env.store, courseWeb).Enrollments; got != before+1 {
		t.Fatalf("enrollments = %d, want %d", got, before+1)
	}

	// redelivery
	if _, err := env.app.Settle(ctx, res.Payment.ID, res.Payment.TransactionID, domain.PaymentCompleted); err != nil {
		t.Fatalf("repeat settle: %v", err)
	}
	student, _, _ = env.store.GetStudent(res.Student.ID)
	if !student.TotalSpent.Equal(decimal.RequireFromString("79.98")) {
		t.Fatalf("repeat settle changed spend to %s", student.TotalSpent)
	}
	if _, err := env.app.Settle(ctx, res.Payment.ID, "", domain.PaymentFailed); !errors.Is(err, ErrPaymentNotPending) {
		t.Fatalf("expected not pending, got %v", err)
	}
}

func TestCheckoutRepeatPurchaseDoesNotDoubleEnroll(t *testing.T) {
	env := newTestApp(t)
	ctx := context.Background()
	if _, err := env.app.Checkout(ctx, checkoutReq(courseGo, domain.MethodCard, "twice@example.com")); err != nil {
		t.Fatalf("first checkout: %v", err)
	}
	res, err := env.app.Checkout(ctx, checkoutReq(courseGo, domain.MethodCard, "twice@example.com"))
	if err != nil {
		t.Fatalf("second checkout: %v", err)
	}
	if len(res.Student.EnrolledCourses) != 1 {
		t.Fatalf("course enrolled twice: %v", res.Student.EnrolledCourses)
	}
	if !res.Student.TotalSpent.Equal(decimal.RequireFromString("99.98")) {
		t.Fatalf("spend = %s", res.Student.TotalSpent)
	}
}

func TestCheckoutUnsupportedMethodRecordsFailedPayment(t *testing.T) {
	env := newTestApp(t)
	res, err := env.app.Checkout(context.Background(), checkoutReq(courseGo, "bitcoin", "amina@example.com"))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if res.Gateway.Success || res.Payment.Status != domain.PaymentFailed {
		t.Fatalf("expected failed payment, got %+v", res)
	}
	if res.Student.TotalSpent.String() != "79.98" {
		t.Fatalf("failed payment must not add spend, got %s", res.Student.TotalSpent)
	}
	payments, _ := env.store.ListPaymentsByStudent(res.Student.ID)
	if len(payments) != 3 {
		t.Fatalf("expected failed payment to be recorded, got %d payments", len(payments))
	}
}

func TestCheckoutGatewayDeclineIsRecorded(t *testing.T) {
	decline := &payment.MockGateway{MethodName: domain.MethodCard, ChargeResponse: payment.Failed("card declined")}
	env := newTestApp(t, decline)
	res, err := env.app.Checkout(context.Background(), checkoutReq(courseGo, domain.MethodCard, "declined@example.com"))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if res.Payment.Status != domain.PaymentFailed || res.Gateway.Message != "card declined" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(res.Student.EnrolledCourses) != 0 {
		t.Fatalf("declined payment must not enroll")
	}
	if charges := decline.Charges(); len(charges) != 1 || charges[0].UserID != res.Student.ID {
		t.Fatalf("unexpected charges %+v", charges)
	}
}

func TestCheckoutRejections(t *testing.T) {
	env := newTestApp(t)
	ctx := context.Background()

	settings, _ := env.app.Settings()
	settings.Payment.PayPalEnabled = false
	if _, err := env.app.SaveSettings(settings); err != nil {
		t.Fatalf("save settings: %v", err)
	}
	paymentsBefore, _ := env.store.ListPayments()

	cases := []struct {
		name string
		req  CheckoutRequest
		want error
	}{
		{"disabled method", checkoutReq(courseGo, domain.MethodPayPal, "a@example.com"), ErrMethodDisabled},
		{"draft course", checkoutReq(courseData, domain.MethodCard, "a@example.com"), ErrCourseNotFound},
		{"missing course", checkoutReq("nope", domain.MethodCard, "a@example.com"), ErrCourseNotFound},
		{"bad email", checkoutReq(courseGo, domain.MethodCard, "not-an-email"), ErrInvalidInput},
		{"no method", checkoutReq(courseGo, "", "a@example.com"), ErrInvalidInput},
	}
	for _, tc := range cases {
		if _, err := env.app.Checkout(ctx, tc.req); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	paymentsAfter, _ := env.store.ListPayments()
	if len(paymentsAfter) != len(paymentsBefore) {
		t.Fatalf("rejected checkouts must not record payments")
	}
}

func TestCheckoutSurvivesQueueFailure(t *testing.T) {
	env := newTestApp(t)
	env.queue.err = errors.New("redis down")
	res, err := env.app.Checkout(context.Background(), checkoutReq(courseGo, domain.MethodPayPal, "p@example.com"))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if res.Payment.Status != domain.PaymentPending || res.SettlementJobID != "" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.ApproveURL == "" {
		t.Fatalf("expected paypal approve url")
	}
}

func TestConfirmSeededPendingPayment(t *testing.T) {
	env := newTestApp(t)
	p, err := env.app.ConfirmPayment(context.Background(), pendingSeedPayment)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if p.Status != domain.PaymentCompleted {
		t.Fatalf("status = %s", p.Status)
	}
	student, _, _ := env.store.GetStudent(wanjiruID)
	if len(student.EnrolledCourses) != 1 || student.EnrolledCourses[0] != courseWeb {
		t.Fatalf("student not enrolled: %+v", student)
	}
	if _, err := env.app.ConfirmPayment(context.Background(), pendingSeedPayment); !errors.Is(err, ErrPaymentNotPending) {
		t.Fatalf("expected not pending on second confirm, got %v", err)
	}
	if _, err := env.app.ConfirmPayment(context.Background(), "missing"); !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSettleRejectsTransactionMismatch(t *testing.T) {
	env := newTestApp(t)
	if _, err := env.app.Settle(context.Background(), pendingSeedPayment, "MPESA_0", domain.PaymentCompleted); !errors.Is(err, ErrTransactionMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	if _, err := env.app.Settle(context.Background(), pendingSeedPayment, "", domain.PaymentPending); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid status, got %v", err)
	}
}

func TestCatalogShowsPublishedOnly(t *testing.T) {
	env := newTestApp(t)
	courses, err := env.app.ListPublishedCourses(domain.CourseFilter{Status: domain.CourseDraft})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(courses) != 2 {
		t.Fatalf("expected 2 published courses, got %d", len(courses))
	}
	course, ok, err := env.app.GetPublishedCourse(courseGo)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if len(course.Videos) != 2 {
		t.Fatalf("expected only published videos, got %d", len(course.Videos))
	}
	if _, ok, _ := env.app.GetPublishedCourse(courseData); ok {
		t.Fatalf("draft course must be hidden")
	}
}

func TestAdminValidation(t *testing.T) {
	env := newTestApp(t)
	if _, err := env.app.CreateCourse(domain.NewCourse{Title: " "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid title, got %v", err)
	}
	if _, err := env.app.CreateCourse(domain.NewCourse{Title: "x", Price: decimal.NewFromInt(-1)}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid price, got %v", err)
	}
	if _, err := env.app.CreateVideo(domain.NewVideo{Title: "v", CourseID: "missing"}); !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("expected course not found, got %v", err)
	}
	if _, err := env.app.CreateStudent(domain.NewStudent{Name: "Dup", Email: "AMINA@example.com"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected duplicate email rejection, got %v", err)
	}
	if _, err := env.app.UpdateCourse("missing", domain.CoursePatch{Title: domain.Ptr("x")}); !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := env.app.DeleteVideo("missing"); !errors.Is(err, ErrVideoNotFound) {
		t.Fatalf("expected video not found, got %v", err)
	}
	if _, err := env.app.SaveSettings(domain.Settings{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected missing currency rejection, got %v", err)
	}
}

func TestLoginAndLogout(t *testing.T) {
	env := newTestApp(t)
	if _, err := env.app.Login(adminEmail, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	session, err := env.app.Login(strings.ToUpper(adminEmail), adminPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	subject, err := env.app.AdminSubject(session.Token)
	if err != nil || subject != adminEmail {
		t.Fatalf("subject = %q err=%v", subject, err)
	}
	if err := env.app.Logout(session.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := env.app.AdminSubject(session.Token); !errors.Is(err, auth.ErrTokenRevoked) {
		t.Fatalf("expected revoked token, got %v", err)
	}
}

func TestUploadThumbnailReplacesPrevious(t *testing.T) {
	env := newTestApp(t)
	ctx := context.Background()

	first, err := env.app.UploadThumbnail(ctx, courseGo, "image/png", strings.NewReader("png1"), 4)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(first.Thumbnail, MediaPrefix+"thumbnails/"+courseGo+"/") {
		t.Fatalf("unexpected thumbnail %q", first.Thumbnail)
	}
	url, err := env.app.ThumbnailURL(ctx, strings.TrimPrefix(first.Thumbnail, MediaPrefix))
	if err != nil || !strings.HasPrefix(url, "http://media.test/thumbnails/") {
		t.Fatalf("presign: %q %v", url, err)
	}

	second, err := env.app.UploadThumbnail(ctx, courseGo, "image/webp", strings.NewReader("webp"), 4)
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if _, _, ok := env.objects.Object(strings.TrimPrefix(first.Thumbnail, MediaPrefix)); ok {
		t.Fatalf("previous thumbnail should be deleted")
	}
	if !strings.HasSuffix(second.Thumbnail, ".webp") {
		t.Fatalf("unexpected thumbnail %q", second.Thumbnail)
	}

	if _, err := env.app.UploadThumbnail(ctx, courseGo, "application/pdf", strings.NewReader("pdf"), 3); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected content type rejection, got %v", err)
	}
	if _, err := env.app.UploadThumbnail(ctx, courseGo, "image/png", strings.NewReader("x"), 2048); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected size rejection, got %v", err)
	}
	if _, err := env.app.ThumbnailURL(ctx, "../secrets"); !errors.Is(err, ErrThumbnailNotFound) {
		t.Fatalf("expected traversal to be rejected, got %v", err)
	}
}

type brokenBackend struct{}

func (brokenBackend) Get(string) ([]byte, bool, error) { return nil, false, errors.New("disk gone") }
func (brokenBackend) Put(string, []byte) error        { return errors.New("disk gone") }

func TestStorageFailureSurfaces(t *testing.T) {
	env := newTestApp(t)
	env.app.store = store.NewBlobStore(brokenBackend{})
	_, err := env.app.Checkout(context.Background(), checkoutReq(courseGo, domain.MethodCard, "x@example.com"))
	if !errors.Is(err, store.ErrStorageUnavailable) {
		t.Fatalf("expected storage unavailable, got %v", err)
	}
}

// flakyStudentStore fails the next n student updates.
type flakyStudentStore struct {
	store.Store
	mu       sync.Mutex
	failures int
}

func (s *flakyStudentStore) UpdateStudent(id string, patch domain.StudentPatch) (domain.Student, bool, error) {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return domain.Student{}, false, &store.StorageError{Op: "write", Key: store.KeyStudents, Err: errors.New("blip")}
	}
	s.mu.Unlock()
	return s.Store.UpdateStudent(id, patch)
}

func (s *flakyStudentStore) failNext(n int) {
	s.mu.Lock()
	s.failures = n
	s.mu.Unlock()
}

func newFlakyApp(t *testing.T) (*App, *flakyStudentStore, *recordingQueue) {
	t.Helper()
	env := newTestApp(t)
	flaky := &flakyStudentStore{Store: env.store}
	env.app.store = flaky
	return env.app, flaky, env.queue
}

func TestSettleRetryAppliesEnrollmentAfterStoreBlip(t *testing.T) {
	a, s, _ := newFlakyApp(t)
	ctx := context.Background()
	p, ok, err := s.GetPayment(pendingSeedPayment)
	if err != nil || !ok {
		t.Fatalf("seed payment: ok=%v err=%v", ok, err)
	}

	s.failNext(1)
	if _, err := a.Settle(ctx, p.ID, p.TransactionID, domain.PaymentCompleted); !errors.Is(err, store.ErrStorageUnavailable) {
		t.Fatalf("expected storage failure, got %v", err)
	}
	if _, err := a.Settle(ctx, p.ID, p.TransactionID, domain.PaymentCompleted); err != nil {
		t.Fatalf("retry settle: %v", err)
	}
	student, _, _ := s.GetStudent(wanjiruID)
	if len(student.EnrolledCourses) != 1 || student.EnrolledCourses[0] != courseWeb {
		t.Fatalf("enrollment lost after retry: %+v", student.EnrolledCourses)
	}
	if !student.TotalSpent.Equal(p.Amount) {
		t.Fatalf("spend = %s, want %s", student.TotalSpent, p.Amount)
	}

	// a further redelivery is still a no-op
	if _, err := a.Settle(ctx, p.ID, p.TransactionID, domain.PaymentCompleted); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	student, _, _ = s.GetStudent(wanjiruID)
	if !student.TotalSpent.Equal(p.Amount) {
		t.Fatalf("redelivery changed spend to %s", student.TotalSpent)
	}
}

func TestCheckoutDefersEnrollmentWhenStudentWriteFails(t *testing.T) {
	a, s, q := newFlakyApp(t)
	ctx := context.Background()
	s.failNext(1)

	res, err := a.Checkout(ctx, checkoutReq(courseGo, domain.MethodCard, "blip@example.com"))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if res.Payment.Status != domain.PaymentCompleted || res.SettlementJobID != "job-1" {
		t.Fatalf("expected completed payment handed to settlement: %+v", res)
	}
	if len(q.jobs) != 1 || q.jobs[0].PaymentID != res.Payment.ID {
		t.Fatalf("unexpected queued jobs: %+v", q.jobs)
	}

	// what the settlement worker does for the queued job
	if _, err := a.Settle(ctx, res.Payment.ID, res.Payment.TransactionID, domain.PaymentCompleted); err != nil {
		t.Fatalf("settle: %v", err)
	}
	student, _, _ := s.GetStudent(res.Student.ID)
	if len(student.EnrolledCourses) != 1 || student.EnrolledCourses[0] != courseGo {
		t.Fatalf("student not enrolled: %+v", student)
	}
	if !student.TotalSpent.Equal(res.Payment.Amount) {
		t.Fatalf("spend = %s, want %s", student.TotalSpent, res.Payment.Amount)
	}
}

func TestCheckoutEnrollmentFailureWithoutQueue(t *testing.T) {
	a, s, q := newFlakyApp(t)
	q.err = errors.New("redis down")
	s.failNext(1)
	if _, err := a.Checkout(context.Background(), checkoutReq(courseGo, domain.MethodCard, "blip@example.com")); !errors.Is(err, store.ErrStorageUnavailable) {
		t.Fatalf("expected storage failure, got %v", err)
	}
}
