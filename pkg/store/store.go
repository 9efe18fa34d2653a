package store

import (
	"errors"
	"fmt"

	"elearnhub/pkg/domain"
)

// Store defines persistence operations for the marketplace entities.
// Lookups report a missing record with a false flag, never an error; the
// error return is reserved for storage failures (see StorageError).
type Store interface {
	// courses
	ListCourses() ([]domain.Course, error)
	GetCourse(id string) (domain.Course, bool, error)
	AddCourse(domain.NewCourse) (domain.Course, error)
	UpdateCourse(id string, patch domain.CoursePatch) (domain.Course, bool, error)
	DeleteCourse(id string) (bool, error)
	SearchCourses(filter domain.CourseFilter) ([]domain.Course, error)

	// videos
	ListVideos() ([]domain.Video, error)
	ListVideosByCourse(courseID string) ([]domain.Video, error)
	GetVideo(id string) (domain.Video, bool, error)
	AddVideo(domain.NewVideo) (domain.Video, error)
	UpdateVideo(id string, patch domain.VideoPatch) (domain.Video, bool, error)
	DeleteVideo(id string) (bool, error)

	// students
	ListStudents() ([]domain.Student, error)
	GetStudent(id string) (domain.Student, bool, error)
	GetStudentByEmail(email string) (domain.Student, bool, error)
	AddStudent(domain.NewStudent) (domain.Student, error)
	UpdateStudent(id string, patch domain.StudentPatch) (domain.Student, bool, error)
	DeleteStudent(id string) (bool, error)

	// payments
	ListPayments() ([]domain.Payment, error)
	ListPaymentsByStudent(studentID string) ([]domain.Payment, error)
	GetPayment(id string) (domain.Payment, bool, error)
	GetPaymentByTransaction(transactionID string) (domain.Payment, bool, error)
	AddPayment(domain.NewPayment) (domain.Payment, error)
	UpdatePayment(id string, patch domain.PaymentPatch) (domain.Payment, bool, error)
	DeletePayment(id string) (bool, error)

	// settings
	GetSettings() (domain.Settings, error)
	SaveSettings(domain.Settings) (domain.Settings, error)

	// Analytics recomputes the dashboard aggregate on every call.
	Analytics() (domain.Analytics, error)
}

// ErrStorageUnavailable matches every StorageError via errors.Is.
var ErrStorageUnavailable = errors.New("storage unavailable")

// StorageError reports a failure of the persistence layer itself: an
// unreachable backend, a rejected write or a blob that no longer decodes.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorageUnavailable }

func storageErr(op, key string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Key: key, Err: err}
}
