package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places money is stored with.
const MoneyScale = 2

// Money rounds an amount to MoneyScale places, the precision every store
// backend keeps.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// NewCourse holds caller-supplied course fields; the store assigns the id
// and timestamps.
type NewCourse struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Thumbnail   string          `json:"thumbnail"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Instructor  string          `json:"instructor"`
	Level       string          `json:"level"`
	Status      CourseStatus    `json:"status"`
	Enrollments int             `json:"enrollments"`
}

// Build materialises the record with the given id and creation time.
func (n NewCourse) Build(id string, now time.Time) Course {
	status := n.Status
	if status == "" {
		status = CourseDraft
	}
	return Course{
		ID:          id,
		Title:       n.Title,
		Description: n.Description,
		Thumbnail:   n.Thumbnail,
		Price:       Money(n.Price),
		Category:    n.Category,
		Instructor:  n.Instructor,
		Level:       n.Level,
		Status:      status,
		Enrollments: n.Enrollments,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// CoursePatch carries a partial update. Nil fields are left unchanged.
type CoursePatch struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	Thumbnail   *string          `json:"thumbnail,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Instructor  *string          `json:"instructor,omitempty"`
	Level       *string          `json:"level,omitempty"`
	Status      *CourseStatus    `json:"status,omitempty"`
	Enrollments *int             `json:"enrollments,omitempty"`
}

// Apply merges the patch into c and stamps UpdatedAt.
func (p CoursePatch) Apply(c *Course, now time.Time) {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Thumbnail != nil {
		c.Thumbnail = *p.Thumbnail
	}
	if p.Price != nil {
		c.Price = Money(*p.Price)
	}
	if p.Category != nil {
		c.Category = *p.Category
	}
	if p.Instructor != nil {
		c.Instructor = *p.Instructor
	}
	if p.Level != nil {
		c.Level = *p.Level
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.Enrollments != nil {
		c.Enrollments = *p.Enrollments
	}
	c.UpdatedAt = now
}

type NewVideo struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	CourseID    string      `json:"courseId"`
	Duration    string      `json:"duration"`
	Status      VideoStatus `json:"status"`
	Views       int         `json:"views"`
	Order       int         `json:"order"`
}

func (n NewVideo) Build(id string, now time.Time) Video {
	status := n.Status
	if status == "" {
		status = VideoDraft
	}
	return Video{
		ID:          id,
		Title:       n.Title,
		Description: n.Description,
		CourseID:    n.CourseID,
		Duration:    n.Duration,
		Status:      status,
		Views:       n.Views,
		Order:       n.Order,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

type VideoPatch struct {
	Title       *string      `json:"title,omitempty"`
	Description *string      `json:"description,omitempty"`
	CourseID    *string      `json:"courseId,omitempty"`
	Duration    *string      `json:"duration,omitempty"`
	Status      *VideoStatus `json:"status,omitempty"`
	Views       *int         `json:"views,omitempty"`
	Order       *int         `json:"order,omitempty"`
}

func (p VideoPatch) Apply(v *Video, now time.Time) {
	if p.Title != nil {
		v.Title = *p.Title
	}
	if p.Description != nil {
		v.Description = *p.Description
	}
	if p.CourseID != nil {
		v.CourseID = *p.CourseID
	}
	if p.Duration != nil {
		v.Duration = *p.Duration
	}
	if p.Status != nil {
		v.Status = *p.Status
	}
	if p.Views != nil {
		v.Views = *p.Views
	}
	if p.Order != nil {
		v.Order = *p.Order
	}
	v.UpdatedAt = now
}

type NewStudent struct {
	Name             string          `json:"name"`
	Email            string          `json:"email"`
	EnrolledCourses  []string        `json:"enrolledCourses"`
	CompletedCourses []string        `json:"completedCourses"`
	TotalSpent       decimal.Decimal `json:"totalSpent"`
}

func (n NewStudent) Build(id string, now time.Time) Student {
	return Student{
		ID:               id,
		Name:             n.Name,
		Email:            strings.TrimSpace(n.Email),
		EnrolledCourses:  nonNil(n.EnrolledCourses),
		CompletedCourses: nonNil(n.CompletedCourses),
		TotalSpent:       Money(n.TotalSpent),
		JoinedAt:         now,
		LastActive:       now,
	}
}

// StudentPatch updates a student; Student has no UpdatedAt, so Apply
// stamps LastActive instead.
type StudentPatch struct {
	Name             *string          `json:"name,omitempty"`
	Email            *string          `json:"email,omitempty"`
	EnrolledCourses  *[]string        `json:"enrolledCourses,omitempty"`
	CompletedCourses *[]string        `json:"completedCourses,omitempty"`
	TotalSpent       *decimal.Decimal `json:"totalSpent,omitempty"`
}

func (p StudentPatch) Apply(s *Student, now time.Time) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Email != nil {
		s.Email = strings.TrimSpace(*p.Email)
	}
	if p.EnrolledCourses != nil {
		s.EnrolledCourses = nonNil(*p.EnrolledCourses)
	}
	if p.CompletedCourses != nil {
		s.CompletedCourses = nonNil(*p.CompletedCourses)
	}
	if p.TotalSpent != nil {
		s.TotalSpent = Money(*p.TotalSpent)
	}
	s.LastActive = now
}

type NewPayment struct {
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
}

func (n NewPayment) Build(id string, now time.Time) Payment {
	status := n.Status
	if status == "" {
		status = PaymentPending
	}
	return Payment{
		ID:            id,
		StudentID:     n.StudentID,
		StudentName:   n.StudentName,
		StudentEmail:  n.StudentEmail,
		CourseID:      n.CourseID,
		CourseName:    n.CourseName,
		Amount:        Money(n.Amount),
		Currency:      n.Currency,
		Method:        n.Method,
		Status:        status,
		TransactionID: n.TransactionID,
		CreatedAt:     now,
	}
}

// PaymentPatch updates a payment. Payments have no UpdatedAt field, so
// Apply leaves timestamps alone.
type PaymentPatch struct {
	Status        *PaymentStatus `json:"status,omitempty"`
	TransactionID *string        `json:"transactionId,omitempty"`
	StudentID     *string        `json:"studentId,omitempty"`
	StudentName   *string        `json:"studentName,omitempty"`
	StudentEmail  *string        `json:"studentEmail,omitempty"`
}

func (p PaymentPatch) Apply(pm *Payment) {
	if p.Status != nil {
		pm.Status = *p.Status
	}
	if p.TransactionID != nil {
		pm.TransactionID = *p.TransactionID
	}
	if p.StudentID != nil {
		pm.StudentID = *p.StudentID
	}
	if p.StudentName != nil {
		pm.StudentName = *p.StudentName
	}
	if p.StudentEmail != nil {
		pm.StudentEmail = *p.StudentEmail
	}
}

// CourseFilter narrows SearchCourses. Empty fields match everything.
type CourseFilter struct {
	Query    string       `json:"q"`
	Category string       `json:"category"`
	Level    string       `json:"level"`
	Status   CourseStatus `json:"status"`
}

// Match applies the filter in memory. Text matching is case-insensitive
// over title, description and instructor.
func (f CourseFilter) Match(c Course) bool {
	if f.Category != "" && !strings.EqualFold(c.Category, f.Category) {
		return false
	}
	if f.Level != "" && !strings.EqualFold(c.Level, f.Level) {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Title), q) ||
		strings.Contains(strings.ToLower(c.Description), q) ||
		strings.Contains(strings.ToLower(c.Instructor), q)
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Ptr returns a pointer to v; handy for building patches.
func Ptr[T any](v T) *T {
	return &v
}
