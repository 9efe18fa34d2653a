package store

import (
	"sort"

	"elearnhub/pkg/domain"

	"github.com/shopspring/decimal"
)

const analyticsTopN = 5

// BuildAnalytics derives the dashboard aggregate from full collections.
// Revenue only counts completed payments, so the result does not depend on
// the order payments were recorded in.
func BuildAnalytics(courses []domain.Course, videos []domain.Video, students []domain.Student, payments []domain.Payment) domain.Analytics {
	out := domain.Analytics{
		TotalStudents:  len(students),
		TotalRevenue:   decimal.Zero,
		RecentPayments: []domain.Payment{},
		TopCourses:     []domain.Course{},
	}
	for _, c := range courses {
		if c.Status == domain.CoursePublished {
			out.TotalCourses++
		}
		out.TotalEnrollments += c.Enrollments
	}
	for _, v := range videos {
		if v.Status == domain.VideoPublished {
			out.TotalVideos++
		}
	}
	for _, p := range payments {
		if p.Status == domain.PaymentCompleted {
			out.TotalRevenue = out.TotalRevenue.Add(p.Amount)
		}
	}

	recent := make([]domain.Payment, len(payments))
	copy(recent, payments)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})
	if len(recent) > analyticsTopN {
		recent = recent[:analyticsTopN]
	}
	out.RecentPayments = append(out.RecentPayments, recent...)

	top := make([]domain.Course, len(courses))
	copy(top, courses)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Enrollments > top[j].Enrollments
	})
	if len(top) > analyticsTopN {
		top = top[:analyticsTopN]
	}
	for _, c := range top {
		c.Videos = nil
		out.TopCourses = append(out.TopCourses, c)
	}
	return out
}
