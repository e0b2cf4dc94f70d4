package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce            sync.Once
	requestsTotal           *prometheus.CounterVec
	latencySeconds          *prometheus.HistogramVec
	errorsTotal             *prometheus.CounterVec
	gradingMergesTotal      *prometheus.CounterVec
	gradingAnomaliesTotal   *prometheus.CounterVec
	autoGradesTotal         *prometheus.CounterVec
	courseGradesTotal       *prometheus.CounterVec
	gradeEventsPublishTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the gradebook.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gradebook_requests_total",
			Help: "Total number of gradebook API requests served.",
		}, []string{"method", "route", "status"})

		latencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gradebook_latency_seconds",
			Help:    "Latency distribution for gradebook API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gradebook_errors_total",
			Help: "Total number of error responses returned by gradebook endpoints.",
		}, []string{"method", "route", "status"})

		gradingMergesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gradebook_grading_merges_total",
			Help: "Teacher grading requests merged, by merge mode.",
		}, []string{"mode"})

		gradingAnomaliesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gradebook_grading_anomalies_total",
			Help: "Inconsistent stored or submitted grades detected while merging.",
		}, []string{"mode"})

		autoGradesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gradebook_auto_grades_total",
			Help: "Submissions auto-graded on submit, by whether they were finalized.",
		}, []string{"finalized"})

		courseGradesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gradebook_course_grades_total",
			Help: "Course grade computations, by aggregation policy and cache outcome.",
		}, []string{"policy", "cache"})

		gradeEventsPublishTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gradebook_grade_events_total",
			Help: "Grade events published to the broker, by outcome.",
		}, []string{"outcome"})

		prometheus.MustRegister(
			requestsTotal,
			latencySeconds,
			errorsTotal,
			gradingMergesTotal,
			gradingAnomaliesTotal,
			autoGradesTotal,
			courseGradesTotal,
			gradeEventsPublishTotal,
		)
	})
}

// Requests exposes the counter for API requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// Latency exposes the latency histogram for API requests.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return latencySeconds
}

// Errors exposes the counter for error responses.
func Errors() *prometheus.CounterVec {
	RegisterMetrics()
	return errorsTotal
}

// GradingMerges counts grading merges by mode.
func GradingMerges() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingMergesTotal
}

// GradingAnomalies counts anomalies surfaced by the merge engine.
func GradingAnomalies() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingAnomaliesTotal
}

// AutoGrades counts auto-graded submissions.
func AutoGrades() *prometheus.CounterVec {
	RegisterMetrics()
	return autoGradesTotal
}

// CourseGrades counts course grade computations.
func CourseGrades() *prometheus.CounterVec {
	RegisterMetrics()
	return courseGradesTotal
}

// GradeEvents counts grade event publications.
func GradeEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return gradeEventsPublishTotal
}

// MetricsHandler serves the scrape endpoint, OpenMetrics included, through fiber.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
}
