package store

import (
	"time"

	"elearnhub/pkg/domain"

	"github.com/shopspring/decimal"
)

// Seed ids are fixed so a fresh install links videos and payments to the
// seeded courses.
const (
	seedCourseGo     = "3f9a1c52-6a4e-4f0e-9d3b-1a2b3c4d5e01"
	seedCourseWeb    = "3f9a1c52-6a4e-4f0e-9d3b-1a2b3c4d5e02"
	seedCourseData   = "3f9a1c52-6a4e-4f0e-9d3b-1a2b3c4d5e03"
	seedStudentAmina = "7c2e8b10-0d5f-4b61-8a9e-6f5d4c3b2a01"
	seedStudentJames = "7c2e8b10-0d5f-4b61-8a9e-6f5d4c3b2a02"
	seedStudentWanji = "7c2e8b10-0d5f-4b61-8a9e-6f5d4c3b2a03"
)

func seedTime(day int) time.Time {
	return time.Date(2024, time.January, day, 9, 0, 0, 0, time.UTC)
}

// DefaultCourses is the catalog served before anything was persisted.
func DefaultCourses() []domain.Course {
	return []domain.Course{
		{
			ID:          seedCourseGo,
			Title:       "Backend Development with Go",
			Description: "Build HTTP services, work with databases and ship them to production.",
			Thumbnail:   "thumbnails/backend-go.jpg",
			Price:       decimal.RequireFromString("49.99"),
			Category:    "Programming",
			Instructor:  "Grace Otieno",
			Level:       "intermediate",
			Status:      domain.CoursePublished,
			Enrollments: 2,
			CreatedAt:   seedTime(2),
			UpdatedAt:   seedTime(2),
		},
		{
			ID:          seedCourseWeb,
			Title:       "Modern Web Design",
			Description: "Responsive layouts, accessibility and design systems from scratch.",
			Thumbnail:   "thumbnails/web-design.jpg",
			Price:       decimal.RequireFromString("29.99"),
			Category:    "Design",
			Instructor:  "Daniel Mwangi",
			Level:       "beginner",
			Status:      domain.CoursePublished,
			Enrollments: 1,
			CreatedAt:   seedTime(5),
			UpdatedAt:   seedTime(5),
		},
		{
			ID:          seedCourseData,
			Title:       "Data Analysis Fundamentals",
			Description: "Spreadsheets, SQL and visualisation for everyday decisions.",
			Thumbnail:   "thumbnails/data-analysis.jpg",
			Price:       decimal.RequireFromString("39.99"),
			Category:    "Data Science",
			Instructor:  "Faith Njeri",
			Level:       "beginner",
			Status:      domain.CourseDraft,
			Enrollments: 0,
			CreatedAt:   seedTime(9),
			UpdatedAt:   seedTime(9),
		},
	}
}

func DefaultVideos() []domain.Video {
	return []domain.Video{
		{ID: "a1d0c8e4-5b7f-4c2a-9e1d-000000000001", Title: "Why Go?", Description: "Tour of the language and tooling.", CourseID: seedCourseGo, Duration: "12:30", Status: domain.VideoPublished, Views: 154, Order: 1, CreatedAt: seedTime(2), UpdatedAt: seedTime(2)},
		{ID: "a1d0c8e4-5b7f-4c2a-9e1d-000000000002", Title: "Your first HTTP server", Description: "net/http, handlers and routing.", CourseID: seedCourseGo, Duration: "18:05", Status: domain.VideoPublished, Views: 98, Order: 2, CreatedAt: seedTime(3), UpdatedAt: seedTime(3)},
		{ID: "a1d0c8e4-5b7f-4c2a-9e1d-000000000003", Title: "Talking to Postgres", Description: "database/sql, migrations and transactions.", CourseID: seedCourseGo, Duration: "24:40", Status: domain.VideoProcessing, Views: 0, Order: 3, CreatedAt: seedTime(4), UpdatedAt: seedTime(4)},
		{ID: "a1d0c8e4-5b7f-4c2a-9e1d-000000000004", Title: "Layout with grid", Description: "CSS grid in practice.", CourseID: seedCourseWeb, Duration: "15:10", Status: domain.VideoPublished, Views: 61, Order: 1, CreatedAt: seedTime(5), UpdatedAt: seedTime(5)},
		{ID: "a1d0c8e4-5b7f-4c2a-9e1d-000000000005", Title: "Reading a dataset", Description: "Importing and cleaning CSV files.", CourseID: seedCourseData, Duration: "09:45", Status: domain.VideoDraft, Views: 0, Order: 1, CreatedAt: seedTime(9), UpdatedAt: seedTime(9)},
	}
}

func DefaultStudents() []domain.Student {
	return []domain.Student{
		{ID: seedStudentAmina, Name: "Amina Hassan", Email: "amina@example.com", EnrolledCourses: []string{seedCourseGo, seedCourseWeb}, CompletedCourses: []string{seedCourseWeb}, TotalSpent: decimal.RequireFromString("79.98"), JoinedAt: seedTime(3), LastActive: seedTime(20)},
		{ID: seedStudentJames, Name: "James Kariuki", Email: "james@example.com", EnrolledCourses: []string{seedCourseGo}, CompletedCourses: []string{}, TotalSpent: decimal.RequireFromString("49.99"), JoinedAt: seedTime(6), LastActive: seedTime(18)},
		{ID: seedStudentWanji, Name: "Wanjiru Kamau", Email: "wanjiru@example.com", EnrolledCourses: []string{}, CompletedCourses: []string{}, TotalSpent: decimal.Zero, JoinedAt: seedTime(12), LastActive: seedTime(12)},
	}
}

func DefaultPayments() []domain.Payment {
	return []domain.Payment{
		{ID: "c4b3a291-8e7d-4f6c-b5a4-000000000001", StudentID: seedStudentAmina, StudentName: "Amina Hassan", StudentEmail: "amina@example.com", CourseID: seedCourseGo, CourseName: "Backend Development with Go", Amount: decimal.RequireFromString("49.99"), Currency: "USD", Method: domain.MethodMpesa, Status: domain.PaymentCompleted, TransactionID: "MPESA_1704445200000", CreatedAt: seedTime(5)},
		{ID: "c4b3a291-8e7d-4f6c-b5a4-000000000002", StudentID: seedStudentAmina, StudentName: "Amina Hassan", StudentEmail: "amina@example.com", CourseID: seedCourseWeb, CourseName: "Modern Web Design", Amount: decimal.RequireFromString("29.99"), Currency: "USD", Method: domain.MethodCard, Status: domain.PaymentCompleted, TransactionID: "CARD_1704877200000", CreatedAt: seedTime(10)},
		{ID: "c4b3a291-8e7d-4f6c-b5a4-000000000003", StudentID: seedStudentJames, StudentName: "James Kariuki", StudentEmail: "james@example.com", CourseID: seedCourseGo, CourseName: "Backend Development with Go", Amount: decimal.RequireFromString("49.99"), Currency: "USD", Method: domain.MethodPayPal, Status: domain.PaymentCompleted, TransactionID: "PAYPAL_1705222800000", CreatedAt: seedTime(14)},
		{ID: "c4b3a291-8e7d-4f6c-b5a4-000000000004", StudentID: seedStudentWanji, StudentName: "Wanjiru Kamau", StudentEmail: "wanjiru@example.com", CourseID: seedCourseWeb, CourseName: "Modern Web Design", Amount: decimal.RequireFromString("29.99"), Currency: "USD", Method: domain.MethodMpesa, Status: domain.PaymentPending, TransactionID: "MPESA_1705741200000", CreatedAt: seedTime(20)},
	}
}

func DefaultSettings() domain.Settings {
	return domain.Settings{
		General: domain.GeneralSettings{
			SiteName:        "ElearnHub",
			SiteDescription: "Practical courses taught by working engineers.",
			ContactEmail:    "support@elearnhub.example",
			Timezone:        "Africa/Nairobi",
		},
		Payment: domain.PaymentSettings{
			Currency:       "USD",
			MpesaEnabled:   true,
			CardEnabled:    true,
			PayPalEnabled:  true,
			MpesaShortcode: "174379",
		},
		Email: domain.EmailSettings{
			SMTPHost:           "smtp.elearnhub.example",
			SMTPPort:           587,
			FromAddress:        "no-reply@elearnhub.example",
			NotifyOnEnrollment: true,
		},
		Appearance: domain.AppearanceSettings{
			Theme:        "light",
			PrimaryColor: "#2563eb",
		},
	}
}
