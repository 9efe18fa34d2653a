package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CourseStatus string

const (
	CoursePublished CourseStatus = "published"
	CourseDraft     CourseStatus = "draft"
)

type VideoStatus string

const (
	VideoPublished  VideoStatus = "published"
	VideoDraft      VideoStatus = "draft"
	VideoProcessing VideoStatus = "processing"
)

type PaymentMethod string

const (
	MethodMpesa  PaymentMethod = "mpesa"
	MethodCard   PaymentMethod = "card"
	MethodPayPal PaymentMethod = "paypal"
)

type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "completed"
	PaymentPending   PaymentStatus = "pending"
	PaymentFailed    PaymentStatus = "failed"
)

type Course struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Thumbnail   string          `json:"thumbnail"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Instructor  string          `json:"instructor"`
	Level       string          `json:"level"`
	Status      CourseStatus    `json:"status"`
	Enrollments int             `json:"enrollments"`
	Videos      []Video         `json:"videos,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type Video struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	CourseID    string      `json:"courseId"`
	Duration    string      `json:"duration"`
	Status      VideoStatus `json:"status"`
	Views       int         `json:"views"`
	Order       int         `json:"order"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

type Student struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Email            string          `json:"email"`
	EnrolledCourses  []string        `json:"enrolledCourses"`
	CompletedCourses []string        `json:"completedCourses"`
	TotalSpent       decimal.Decimal `json:"totalSpent"`
	JoinedAt         time.Time       `json:"joinedAt"`
	LastActive       time.Time       `json:"lastActive"`
}

// Payment keeps copies of student and course fields; they are not kept in
// sync with the referenced records.
type Payment struct {
	ID            string          `json:"id"`
	StudentID     string          `json:"studentId"`
	StudentName   string          `json:"studentName"`
	StudentEmail  string          `json:"studentEmail"`
	CourseID      string          `json:"courseId"`
	CourseName    string          `json:"courseName"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Method        PaymentMethod   `json:"method"`
	Status        PaymentStatus   `json:"status"`
	TransactionID string          `json:"transactionId"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type Settings struct {
	General    GeneralSettings    `json:"general"`
	Payment    PaymentSettings    `json:"payment"`
	Email      EmailSettings      `json:"email"`
	Appearance AppearanceSettings `json:"appearance"`
}

type GeneralSettings struct {
	SiteName        string `json:"siteName"`
	SiteDescription string `json:"siteDescription"`
	ContactEmail    string `json:"contactEmail"`
	Timezone        string `json:"timezone"`
}

type PaymentSettings struct {
	Currency       string `json:"currency"`
	MpesaEnabled   bool   `json:"mpesaEnabled"`
	CardEnabled    bool   `json:"cardEnabled"`
	PayPalEnabled  bool   `json:"paypalEnabled"`
	MpesaShortcode string `json:"mpesaShortcode"`
	PayPalClientID string `json:"paypalClientId"`
}

// MethodEnabled reports whether checkout may use the given method.
func (p PaymentSettings) MethodEnabled(m PaymentMethod) bool {
	switch m {
	case MethodMpesa:
		return p.MpesaEnabled
	case MethodCard:
		return p.CardEnabled
	case MethodPayPal:
		return p.PayPalEnabled
	default:
		return false
	}
}

type EmailSettings struct {
	SMTPHost           string `json:"smtpHost"`
	SMTPPort           int    `json:"smtpPort"`
	FromAddress        string `json:"fromAddress"`
	NotifyOnEnrollment bool   `json:"notifyOnEnrollment"`
}

type AppearanceSettings struct {
	Theme        string `json:"theme"`
	PrimaryColor string `json:"primaryColor"`
	LogoURL      string `json:"logoUrl"`
}

// Analytics is a read-time aggregate over the whole store.
type Analytics struct {
	TotalCourses     int             `json:"totalCourses"`
	TotalVideos      int             `json:"totalVideos"`
	TotalStudents    int             `json:"totalStudents"`
	TotalRevenue     decimal.Decimal `json:"totalRevenue"`
	TotalEnrollments int             `json:"totalEnrollments"`
	RecentPayments   []Payment       `json:"recentPayments"`
	TopCourses       []Course        `json:"topCourses"`
}
