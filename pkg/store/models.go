package store

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// GORM models used for persistence.
type CourseModel struct {
	ID          string `gorm:"primaryKey"`
	Title       string `gorm:"not null"`
	Description string `gorm:"type:text"`
	Thumbnail   string
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Category    string          `gorm:"index"`
	Instructor  string
	Level       string    `gorm:"index"`
	Status      string    `gorm:"not null;index"`
	Enrollments int       `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime:false"`
}

type VideoModel struct {
	ID          string `gorm:"primaryKey"`
	Title       string `gorm:"not null"`
	Description string `gorm:"type:text"`
	CourseID    string `gorm:"not null;index"`
	Duration    string
	Status      string    `gorm:"not null"`
	Views       int       `gorm:"not null;default:0"`
	SortOrder   int       `gorm:"column:sort_order;not null;default:0"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime:false"`
}

type StudentModel struct {
	ID               string `gorm:"primaryKey"`
	Name             string `gorm:"not null"`
	Email            string `gorm:"not null;index"`
	EnrolledCourses  datatypes.JSON
	CompletedCourses datatypes.JSON
	TotalSpent       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	JoinedAt         time.Time       `gorm:"not null"`
	LastActive       time.Time       `gorm:"not null"`
}

type PaymentModel struct {
	ID            string `gorm:"primaryKey"`
	StudentID     string `gorm:"index"`
	StudentName   string
	StudentEmail  string
	CourseID      string `gorm:"index"`
	CourseName    string
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Currency      string          `gorm:"not null"`
	Method        string          `gorm:"not null"`
	Status        string          `gorm:"not null;index"`
	TransactionID string          `gorm:"index"`
	CreatedAt     time.Time       `gorm:"not null;index"`
}

// SettingsModel holds the singleton settings document in one row.
type SettingsModel struct {
	ID        string         `gorm:"primaryKey"`
	Document  datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:false"`
}
