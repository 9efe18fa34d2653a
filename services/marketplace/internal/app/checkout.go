package app

import (
	"context"
	"strings"
	"time"

	"elearnhub/internal/util"
	"elearnhub/pkg/domain"
	"elearnhub/pkg/payment"
	"elearnhub/pkg/queue"
)

// CheckoutRequest is a student buying one course.
type CheckoutRequest struct {
	CourseID string                 `json:"courseId"`
	Method   domain.PaymentMethod   `json:"method"`
	Customer payment.Customer       `json:"customer"`
	Mpesa    *payment.MpesaDetails  `json:"mpesa,omitempty"`
	Card     *payment.CardDetails   `json:"card,omitempty"`
	PayPal   *payment.PayPalDetails `json:"paypal,omitempty"`
}

// CheckoutResult carries the stored payment and the gateway answer. A
// failed gateway answer is not an error: the payment is still recorded.
type CheckoutResult struct {
	Payment         domain.Payment   `json:"payment"`
	Student         domain.Student   `json:"student"`
	Gateway         payment.Response `json:"gateway"`
	ApproveURL      string           `json:"approveUrl,omitempty"`
	SettlementJobID string           `json:"settlementJobId,omitempty"`
}

// Checkout charges the course price through the selected gateway and writes
// the outcome back: the payment record, the student (created on first
// purchase) and, once completed, the enrollment.
func (a *App) Checkout(ctx context.Context, req CheckoutRequest) (CheckoutResult, error) {
	req.CourseID = strings.TrimSpace(req.CourseID)
	req.Customer.Name = strings.TrimSpace(req.Customer.Name)
	if req.CourseID == "" {
		return CheckoutResult{}, invalid("courseId required")
	}
	if req.Method == "" {
		return CheckoutResult{}, invalid("method required")
	}
	if req.Customer.Name == "" {
		return CheckoutResult{}, invalid("customer name required")
	}
	email, err := normalizeEmail(req.Customer.Email)
	if err != nil {
		return CheckoutResult{}, err
	}
	req.Customer.Email = email

	course, ok, err := a.store.GetCourse(req.CourseID)
	if err != nil {
		return CheckoutResult{}, err
	}
	if !ok || course.Status != domain.CoursePublished {
		return CheckoutResult{}, ErrCourseNotFound
	}
	settings, err := a.store.GetSettings()
	if err != nil {
		return CheckoutResult{}, err
	}
	// Unknown methods still go through the processor so the failure is
	// recorded like any other failed payment.
	if a.processor.Supports(req.Method) && !settings.Payment.MethodEnabled(req.Method) {
		return CheckoutResult{}, ErrMethodDisabled
	}

	student, err := a.studentForCheckout(req.Customer)
	if err != nil {
		return CheckoutResult{}, err
	}
	currency := strings.ToUpper(strings.TrimSpace(settings.Payment.Currency))
	if currency == "" {
		currency = "USD"
	}
	resp := a.processor.Process(ctx, payment.Request{
		Amount:   course.Price,
		Currency: currency,
		Method:   req.Method,
		CourseID: course.ID,
		UserID:   student.ID,
		Customer: req.Customer,
		Mpesa:    req.Mpesa,
		Card:     req.Card,
		PayPal:   req.PayPal,
	})

	logger := util.LoggerFromContext(ctx)
	p, err := a.store.AddPayment(domain.NewPayment{
		StudentID:     student.ID,
		StudentName:   student.Name,
		StudentEmail:  student.Email,
		CourseID:      course.ID,
		CourseName:    course.Title,
		Amount:        course.Price,
		Currency:      currency,
		Method:        req.Method,
		Status:        resp.Status,
		TransactionID: resp.TransactionID,
	})
	if err != nil {
		logger.Error("record payment failed", "course_id", course.ID, "transaction_id", resp.TransactionID, "err", err)
		return CheckoutResult{}, err
	}
	result := CheckoutResult{Payment: p, Student: student, Gateway: resp, ApproveURL: payment.ApproveURL(resp)}

	switch p.Status {
	case domain.PaymentCompleted:
		enrolled, err := a.enroll(student.ID, course.ID, p.Amount)
		if err != nil {
			// The charge went through. Hand the enrollment to the settlement
			// worker, whose Settle call applies it once the store recovers.
			jobID := a.enqueueSettlement(ctx, p)
			if jobID == "" {
				return CheckoutResult{}, err
			}
			logger.Warn("enrollment deferred to settlement", "payment_id", p.ID, "job_id", jobID, "err", err)
			result.SettlementJobID = jobID
			break
		}
		result.Student = enrolled
	case domain.PaymentPending:
		result.SettlementJobID = a.enqueueSettlement(ctx, p)
	}
	logger.Info("checkout", "payment_id", p.ID, "course_id", course.ID, "method", p.Method, "status", p.Status)
	return result, nil
}

// studentForCheckout finds the student by email or registers a new one.
func (a *App) studentForCheckout(c payment.Customer) (domain.Student, error) {
	a.enrollMu.Lock()
	defer a.enrollMu.Unlock()
	student, ok, err := a.store.GetStudentByEmail(c.Email)
	if err != nil {
		return domain.Student{}, err
	}
	if ok {
		return student, nil
	}
	return a.store.AddStudent(domain.NewStudent{Name: c.Name, Email: c.Email})
}

// enqueueSettlement hands a pending payment to the settlement worker. A
// queue failure leaves the payment pending for manual confirmation.
func (a *App) enqueueSettlement(ctx context.Context, p domain.Payment) string {
	if a.settlements == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	job, err := a.settlements.Enqueue(ctx, queue.Settlement{
		PaymentID:     p.ID,
		TransactionID: p.TransactionID,
		Method:        string(p.Method),
	})
	if err != nil {
		util.LoggerFromContext(ctx).Warn("enqueue settlement failed", "payment_id", p.ID, "err", err)
		return ""
	}
	return job.ID
}
