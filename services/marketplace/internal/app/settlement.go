package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"elearnhub/internal/util"
	"elearnhub/pkg/domain"

	"github.com/shopspring/decimal"
)

// Settle moves a pending payment to its final status. Completing it applies
// the enrollment. Settling an already-final payment to the same status
// changes nothing, except that a completed payment whose enrollment is
// missing gets it applied. A retry after a failed enrollment write therefore
// finishes the job instead of being swallowed.
func (a *App) Settle(ctx context.Context, paymentID, transactionID string, status domain.PaymentStatus) (domain.Payment, error) {
	if status != domain.PaymentCompleted && status != domain.PaymentFailed {
		return domain.Payment{}, invalid("settlement status must be completed or failed")
	}
	a.enrollMu.Lock()
	defer a.enrollMu.Unlock()

	p, ok, err := a.store.GetPayment(paymentID)
	if err != nil {
		return domain.Payment{}, err
	}
	if !ok {
		return domain.Payment{}, ErrPaymentNotFound
	}
	if transactionID = strings.TrimSpace(transactionID); transactionID != "" && transactionID != p.TransactionID {
		return domain.Payment{}, ErrTransactionMismatch
	}
	if p.Status == status {
		if status == domain.PaymentCompleted {
			if err := a.ensureEnrolledLocked(ctx, p); err != nil {
				return domain.Payment{}, err
			}
		}
		return p, nil
	}
	if p.Status != domain.PaymentPending {
		return domain.Payment{}, fmt.Errorf("%w: %s", ErrPaymentNotPending, p.Status)
	}

	p, ok, err = a.store.UpdatePayment(p.ID, domain.PaymentPatch{Status: &status})
	if err != nil {
		return domain.Payment{}, err
	}
	if !ok {
		return domain.Payment{}, ErrPaymentNotFound
	}
	if status == domain.PaymentCompleted {
		if _, err := a.enrollLocked(p.StudentID, p.CourseID, p.Amount); err != nil {
			return domain.Payment{}, err
		}
	}
	util.LoggerFromContext(ctx).Info("payment settled", "payment_id", p.ID, "status", status)
	return p, nil
}

// ConfirmPayment is the back-office confirmation of a pending payment. The
// gateway is asked first; its answer decides the final status.
func (a *App) ConfirmPayment(ctx context.Context, paymentID string) (domain.Payment, error) {
	p, ok, err := a.store.GetPayment(paymentID)
	if err != nil {
		return domain.Payment{}, err
	}
	if !ok {
		return domain.Payment{}, ErrPaymentNotFound
	}
	if p.Status != domain.PaymentPending {
		return domain.Payment{}, fmt.Errorf("%w: %s", ErrPaymentNotPending, p.Status)
	}
	resp := a.processor.Verify(ctx, p.TransactionID, p.Method)
	status := domain.PaymentFailed
	if resp.Success && resp.Status == domain.PaymentCompleted {
		status = domain.PaymentCompleted
	}
	return a.Settle(ctx, p.ID, p.TransactionID, status)
}

// ensureEnrolledLocked applies the enrollment of a completed payment when the
// student does not hold the course yet. Callers hold enrollMu.
func (a *App) ensureEnrolledLocked(ctx context.Context, p domain.Payment) error {
	student, ok, err := a.store.GetStudent(p.StudentID)
	if err != nil {
		return err
	}
	if !ok || slices.Contains(student.EnrolledCourses, p.CourseID) {
		return nil
	}
	if _, err := a.enrollLocked(p.StudentID, p.CourseID, p.Amount); err != nil {
		return err
	}
	util.LoggerFromContext(ctx).Info("enrollment repaired", "payment_id", p.ID, "student_id", p.StudentID)
	return nil
}

func (a *App) enroll(studentID, courseID string, amount decimal.Decimal) (domain.Student, error) {
	a.enrollMu.Lock()
	defer a.enrollMu.Unlock()
	return a.enrollLocked(studentID, courseID, amount)
}

// enrollLocked adds the spend and, on first purchase of the course, the
// enrollment and the course counter. Callers hold enrollMu.
func (a *App) enrollLocked(studentID, courseID string, amount decimal.Decimal) (domain.Student, error) {
	student, ok, err := a.store.GetStudent(studentID)
	if err != nil {
		return domain.Student{}, err
	}
	if !ok {
		return domain.Student{}, ErrStudentNotFound
	}
	spent := student.TotalSpent.Add(amount)
	patch := domain.StudentPatch{TotalSpent: &spent}
	newEnrollment := !slices.Contains(student.EnrolledCourses, courseID)
	if newEnrollment {
		enrolled := append(slices.Clone(student.EnrolledCourses), courseID)
		patch.EnrolledCourses = &enrolled
	}
	student, _, err = a.store.UpdateStudent(studentID, patch)
	if err != nil {
		return domain.Student{}, err
	}
	if !newEnrollment {
		return student, nil
	}
	course, ok, err := a.store.GetCourse(courseID)
	if err != nil {
		return domain.Student{}, err
	}
	if ok {
		count := course.Enrollments + 1
		if _, _, err := a.store.UpdateCourse(courseID, domain.CoursePatch{Enrollments: &count}); err != nil {
			return domain.Student{}, err
		}
	}
	return student, nil
}
