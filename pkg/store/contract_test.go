package store

import (
	"encoding/json"
	"testing"

	"elearnhub/pkg/domain"

	"github.com/shopspring/decimal"
)

// runStoreContract exercises the behaviour every Store implementation
// shares. open must return a fresh store holding the default dataset.
func runStoreContract(t *testing.T, open func(t *testing.T) Store) {
	t.Helper()

	t.Run("DefaultDatasetOnFirstUse", func(t *testing.T) {
		s := open(t)
		courses, err := s.ListCourses()
		if err != nil {
			t.Fatalf("list courses: %v", err)
		}
		if len(courses) != len(DefaultCourses()) {
			t.Fatalf("expected %d default courses, got %d", len(DefaultCourses()), len(courses))
		}
		videos, err := s.ListVideos()
		if err != nil {
			t.Fatalf("list videos: %v", err)
		}
		if len(videos) != len(DefaultVideos()) {
			t.Fatalf("expected %d default videos, got %d", len(DefaultVideos()), len(videos))
		}
		students, err := s.ListStudents()
		if err != nil {
			t.Fatalf("list students: %v", err)
		}
		if len(students) != len(DefaultStudents()) {
			t.Fatalf("expected %d default students, got %d", len(DefaultStudents()), len(students))
		}
		payments, err := s.ListPayments()
		if err != nil {
			t.Fatalf("list payments: %v", err)
		}
		if len(payments) != len(DefaultPayments()) {
			t.Fatalf("expected %d default payments, got %d", len(DefaultPayments()), len(payments))
		}
		settings, err := s.GetSettings()
		if err != nil {
			t.Fatalf("get settings: %v", err)
		}
		if settings != DefaultSettings() {
			t.Fatalf("unexpected default settings: %+v", settings)
		}
	})

	t.Run("MoneyKeepsStoredScale", func(t *testing.T) {
		s := open(t)
		added, err := s.AddCourse(domain.NewCourse{Title: "Fractional", Price: decimal.RequireFromString("10.555")})
		if err != nil {
			t.Fatalf("add course: %v", err)
		}
		if !added.Price.Equal(decimal.RequireFromString("10.56")) {
			t.Fatalf("price = %s, want 10.56", added.Price)
		}
		got, ok, err := s.GetCourse(added.ID)
		if err != nil || !ok {
			t.Fatalf("get course: ok=%v err=%v", ok, err)
		}
		if !got.Price.Equal(added.Price) {
			t.Fatalf("stored price %s differs from returned %s", got.Price, added.Price)
		}
		price := decimal.RequireFromString("7.004")
		updated, _, err := s.UpdateCourse(added.ID, domain.CoursePatch{Price: &price})
		if err != nil {
			t.Fatalf("update course: %v", err)
		}
		if !updated.Price.Equal(decimal.RequireFromString("7")) {
			t.Fatalf("updated price = %s, want 7.00", updated.Price)
		}
		p, err := s.AddPayment(domain.NewPayment{CourseID: added.ID, Amount: decimal.RequireFromString("0.125"), Method: domain.MethodCard})
		if err != nil {
			t.Fatalf("add payment: %v", err)
		}
		stored, _, err := s.GetPayment(p.ID)
		if err != nil || !stored.Amount.Equal(p.Amount) || !p.Amount.Equal(decimal.RequireFromString("0.13")) {
			t.Fatalf("payment amount %s / stored %s err=%v", p.Amount, stored.Amount, err)
		}
	})

	t.Run("AddedCourseIsReadable", func(t *testing.T) {
		s := open(t)
		added, err := s.AddCourse(domain.NewCourse{
			Title:      "X",
			Price:      decimal.NewFromInt(10),
			Category:   "Testing",
			Instructor: "Ada",
			Level:      "advanced",
		})
		if err != nil {
			t.Fatalf("add course: %v", err)
		}
		if added.ID == "" {
			t.Fatalf("expected assigned id")
		}
		if added.CreatedAt.IsZero() || !added.UpdatedAt.Equal(added.CreatedAt) {
			t.Fatalf("unexpected timestamps: created=%v updated=%v", added.CreatedAt, added.UpdatedAt)
		}
		got, ok, err := s.GetCourse(added.ID)
		if err != nil || !ok {
			t.Fatalf("get course: ok=%v err=%v", ok, err)
		}
		if got.Title != "X" || got.Category != "Testing" || got.Instructor != "Ada" || got.Level != "advanced" {
			t.Fatalf("unexpected course: %+v", got)
		}
		if !got.Price.Equal(decimal.NewFromInt(10)) {
			t.Fatalf("unexpected price: %s", got.Price)
		}
		if got.Status != domain.CourseDraft {
			t.Fatalf("expected draft default, got %q", got.Status)
		}
		if !got.CreatedAt.Equal(added.CreatedAt) {
			t.Fatalf("created_at changed: %v vs %v", got.CreatedAt, added.CreatedAt)
		}
	})

	t.Run("IDsAreUnique", func(t *testing.T) {
		s := open(t)
		seen := make(map[string]struct{})
		for i := 0; i < 20; i++ {
			c, err := s.AddCourse(domain.NewCourse{Title: "rapid"})
			if err != nil {
				t.Fatalf("add course: %v", err)
			}
			if _, dup := seen[c.ID]; dup {
				t.Fatalf("duplicate id %q", c.ID)
			}
			seen[c.ID] = struct{}{}
		}
	})

	t.Run("DeleteCourseCascadesToVideos", func(t *testing.T) {
		s := open(t)
		course, err := s.AddCourse(domain.NewCourse{Title: "X", Price: decimal.NewFromInt(10)})
		if err != nil {
			t.Fatalf("add course: %v", err)
		}
		video, err := s.AddVideo(domain.NewVideo{Title: "intro", CourseID: course.ID, Order: 1})
		if err != nil {
			t.Fatalf("add video: %v", err)
		}
		deleted, err := s.DeleteCourse(course.ID)
		if err != nil || !deleted {
			t.Fatalf("delete course: deleted=%v err=%v", deleted, err)
		}
		byCourse, err := s.ListVideosByCourse(course.ID)
		if err != nil {
			t.Fatalf("list videos by course: %v", err)
		}
		if len(byCourse) != 0 {
			t.Fatalf("expected no videos after cascade, got %d", len(byCourse))
		}
		if _, ok, _ := s.GetVideo(video.ID); ok {
			t.Fatalf("expected video to be removed")
		}
		all, err := s.ListVideos()
		if err != nil {
			t.Fatalf("list videos: %v", err)
		}
		for _, v := range all {
			if v.CourseID == course.ID {
				t.Fatalf("orphan video %q left behind", v.ID)
			}
		}
		if len(all) != len(DefaultVideos()) {
			t.Fatalf("cascade touched other courses: %d videos left", len(all))
		}
	})

	t.Run("UpdateMissingIsNoop", func(t *testing.T) {
		s := open(t)
		before, err := s.ListCourses()
		if err != nil {
			t.Fatalf("list courses: %v", err)
		}
		_, ok, err := s.UpdateCourse("missing", domain.CoursePatch{Title: domain.Ptr("changed")})
		if err != nil {
			t.Fatalf("update course: %v", err)
		}
		if ok {
			t.Fatalf("expected not found")
		}
		after, err := s.ListCourses()
		if err != nil {
			t.Fatalf("list courses: %v", err)
		}
		if mustJSON(t, before) != mustJSON(t, after) {
			t.Fatalf("collection changed on missing update")
		}
		if _, ok, err := s.UpdateVideo("missing", domain.VideoPatch{}); ok || err != nil {
			t.Fatalf("update missing video: ok=%v err=%v", ok, err)
		}
		if _, ok, err := s.UpdateStudent("missing", domain.StudentPatch{}); ok || err != nil {
			t.Fatalf("update missing student: ok=%v err=%v", ok, err)
		}
		if _, ok, err := s.UpdatePayment("missing", domain.PaymentPatch{}); ok || err != nil {
			t.Fatalf("update missing payment: ok=%v err=%v", ok, err)
		}
	})

	t.Run("DeleteMissingReturnsFalse", func(t *testing.T) {
		s := open(t)
		for name, del := range map[string]func(string) (bool, error){
			"course":  s.DeleteCourse,
			"video":   s.DeleteVideo,
			"student": s.DeleteStudent,
			"payment": s.DeletePayment,
		} {
			ok, err := del("missing")
			if err != nil || ok {
				t.Fatalf("delete missing %s: ok=%v err=%v", name, ok, err)
			}
		}
	})

	t.Run("UpdateMergesPatch", func(t *testing.T) {
		s := open(t)
		course, err := s.AddCourse(domain.NewCourse{Title: "old", Category: "Design", Price: decimal.NewFromInt(5)})
		if err != nil {
			t.Fatalf("add course: %v", err)
		}
		updated, ok, err := s.UpdateCourse(course.ID, domain.CoursePatch{
			Title:  domain.Ptr("new"),
			Status: domain.Ptr(domain.CoursePublished),
		})
		if err != nil || !ok {
			t.Fatalf("update course: ok=%v err=%v", ok, err)
		}
		if updated.Title != "new" || updated.Status != domain.CoursePublished || updated.Category != "Design" {
			t.Fatalf("unexpected merge result: %+v", updated)
		}
		if updated.UpdatedAt.Before(course.UpdatedAt) {
			t.Fatalf("updated_at went backwards")
		}
		got, _, err := s.GetCourse(course.ID)
		if err != nil {
			t.Fatalf("get course: %v", err)
		}
		if got.Title != "new" || !got.Price.Equal(decimal.NewFromInt(5)) {
			t.Fatalf("update not persisted: %+v", got)
		}
	})

	t.Run("VideosOrderedByOrder", func(t *testing.T) {
		s := open(t)
		course, err := s.AddCourse(domain.NewCourse{Title: "ordered"})
		if err != nil {
			t.Fatalf("add course: %v", err)
		}
		for _, order := range []int{3, 1, 2} {
			if _, err := s.AddVideo(domain.NewVideo{Title: "v", CourseID: course.ID, Order: order}); err != nil {
				t.Fatalf("add video: %v", err)
			}
		}
		videos, err := s.ListVideosByCourse(course.ID)
		if err != nil {
			t.Fatalf("list videos: %v", err)
		}
		if len(videos) != 3 {
			t.Fatalf("expected 3 videos, got %d", len(videos))
		}
		for i, v := range videos {
			if v.Order != i+1 {
				t.Fatalf("video %d has order %d", i, v.Order)
			}
		}
		got, _, err := s.GetCourse(course.ID)
		if err != nil {
			t.Fatalf("get course: %v", err)
		}
		if len(got.Videos) != 3 || got.Videos[0].Order != 1 || got.Videos[2].Order != 3 {
			t.Fatalf("unexpected attached videos: %+v", got.Videos)
		}
	})

	t.Run("SearchCourses", func(t *testing.T) {
		s := open(t)
		res, err := s.SearchCourses(domain.CourseFilter{Query: "GO"})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(res) != 1 || res[0].ID != seedCourseGo {
			t.Fatalf("unexpected search result: %+v", res)
		}
		res, err = s.SearchCourses(domain.CourseFilter{Level: "Beginner", Status: domain.CoursePublished})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(res) != 1 || res[0].ID != seedCourseWeb {
			t.Fatalf("unexpected filtered result: %+v", res)
		}
		res, err = s.SearchCourses(domain.CourseFilter{Query: "%' OR '1'='1"})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(res) != 0 {
			t.Fatalf("expected literal match only, got %d", len(res))
		}
		res, err = s.SearchCourses(domain.CourseFilter{})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(res) != len(DefaultCourses()) {
			t.Fatalf("empty filter should match all, got %d", len(res))
		}
	})

	t.Run("Students", func(t *testing.T) {
		s := open(t)
		st, err := s.AddStudent(domain.NewStudent{Name: "Zawadi", Email: " zawadi@example.com "})
		if err != nil {
			t.Fatalf("add student: %v", err)
		}
		if st.EnrolledCourses == nil || st.CompletedCourses == nil {
			t.Fatalf("expected empty course lists")
		}
		got, ok, err := s.GetStudentByEmail("ZAWADI@example.com")
		if err != nil || !ok || got.ID != st.ID {
			t.Fatalf("get by email: ok=%v err=%v got=%+v", ok, err, got)
		}
		enrolled := []string{seedCourseGo}
		updated, ok, err := s.UpdateStudent(st.ID, domain.StudentPatch{
			EnrolledCourses: &enrolled,
			TotalSpent:      domain.Ptr(decimal.RequireFromString("49.99")),
		})
		if err != nil || !ok {
			t.Fatalf("update student: ok=%v err=%v", ok, err)
		}
		if len(updated.EnrolledCourses) != 1 || !updated.TotalSpent.Equal(decimal.RequireFromString("49.99")) {
			t.Fatalf("unexpected student: %+v", updated)
		}
		got, _, err = s.GetStudent(st.ID)
		if err != nil {
			t.Fatalf("get student: %v", err)
		}
		if len(got.EnrolledCourses) != 1 || got.EnrolledCourses[0] != seedCourseGo {
			t.Fatalf("enrollment not persisted: %+v", got)
		}
		deleted, err := s.DeleteStudent(st.ID)
		if err != nil || !deleted {
			t.Fatalf("delete student: deleted=%v err=%v", deleted, err)
		}
		if _, ok, _ := s.GetStudent(st.ID); ok {
			t.Fatalf("expected student to be gone")
		}
	})

	t.Run("Payments", func(t *testing.T) {
		s := open(t)
		p, err := s.AddPayment(domain.NewPayment{
			StudentID:     seedStudentWanji,
			CourseID:      seedCourseGo,
			CourseName:    "Backend Development with Go",
			Amount:        decimal.RequireFromString("49.99"),
			Currency:      "USD",
			Method:        domain.MethodPayPal,
			TransactionID: "PAYPAL_1",
		})
		if err != nil {
			t.Fatalf("add payment: %v", err)
		}
		if p.Status != domain.PaymentPending {
			t.Fatalf("expected pending default, got %q", p.Status)
		}
		got, ok, err := s.GetPaymentByTransaction("PAYPAL_1")
		if err != nil || !ok || got.ID != p.ID {
			t.Fatalf("get by transaction: ok=%v err=%v", ok, err)
		}
		mine, err := s.ListPaymentsByStudent(seedStudentWanji)
		if err != nil {
			t.Fatalf("list by student: %v", err)
		}
		if len(mine) != 2 {
			t.Fatalf("expected 2 payments for student, got %d", len(mine))
		}
		updated, ok, err := s.UpdatePayment(p.ID, domain.PaymentPatch{Status: domain.Ptr(domain.PaymentCompleted)})
		if err != nil || !ok || updated.Status != domain.PaymentCompleted {
			t.Fatalf("update payment: ok=%v err=%v status=%q", ok, err, updated.Status)
		}
		if !updated.CreatedAt.Equal(p.CreatedAt) {
			t.Fatalf("created_at changed on update")
		}
	})

	t.Run("SettingsRoundTrip", func(t *testing.T) {
		s := open(t)
		settings := DefaultSettings()
		settings.Payment.PayPalEnabled = false
		settings.General.SiteName = "Renamed"
		if _, err := s.SaveSettings(settings); err != nil {
			t.Fatalf("save settings: %v", err)
		}
		got, err := s.GetSettings()
		if err != nil {
			t.Fatalf("get settings: %v", err)
		}
		if got != settings {
			t.Fatalf("settings mismatch: %+v", got)
		}
	})

	t.Run("AnalyticsOnDefaults", func(t *testing.T) {
		s := open(t)
		a, err := s.Analytics()
		if err != nil {
			t.Fatalf("analytics: %v", err)
		}
		if a.TotalCourses != 2 || a.TotalVideos != 3 || a.TotalStudents != 3 || a.TotalEnrollments != 3 {
			t.Fatalf("unexpected counts: %+v", a)
		}
		if !a.TotalRevenue.Equal(decimal.RequireFromString("129.97")) {
			t.Fatalf("unexpected revenue: %s", a.TotalRevenue)
		}
		if len(a.RecentPayments) != 4 || a.RecentPayments[0].TransactionID != "MPESA_1705741200000" {
			t.Fatalf("unexpected recent payments: %+v", a.RecentPayments)
		}
		if len(a.TopCourses) != 3 || a.TopCourses[0].ID != seedCourseGo {
			t.Fatalf("unexpected top courses: %+v", a.TopCourses)
		}
	})

	t.Run("RevenueIndependentOfInsertionOrder", func(t *testing.T) {
		batch := []domain.NewPayment{
			{Amount: decimal.RequireFromString("10.50"), Status: domain.PaymentCompleted, Method: domain.MethodCard},
			{Amount: decimal.RequireFromString("99.00"), Status: domain.PaymentFailed, Method: domain.MethodCard},
			{Amount: decimal.RequireFromString("0.25"), Status: domain.PaymentCompleted, Method: domain.MethodMpesa},
			{Amount: decimal.RequireFromString("7.00"), Status: domain.PaymentPending, Method: domain.MethodPayPal},
		}
		want := decimal.RequireFromString("129.97").Add(decimal.RequireFromString("10.75"))
		orders := [][]int{{0, 1, 2, 3}, {3, 2, 1, 0}, {2, 0, 3, 1}}
		for _, order := range orders {
			s := open(t)
			for _, i := range order {
				if _, err := s.AddPayment(batch[i]); err != nil {
					t.Fatalf("add payment: %v", err)
				}
			}
			a, err := s.Analytics()
			if err != nil {
				t.Fatalf("analytics: %v", err)
			}
			if !a.TotalRevenue.Equal(want) {
				t.Fatalf("order %v: revenue %s, want %s", order, a.TotalRevenue, want)
			}
		}
	})
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(raw)
}
