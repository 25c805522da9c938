package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Loader invocation outcomes.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// Route templates keep label cardinality bounded.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// Timer measures one loader invocation.
type Timer struct {
	start   time.Time
	metrics *Metrics
	loader  string
}

// NewTimer creates a new timer
func NewTimer(metrics *Metrics, loader string) *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: metrics,
		loader:  loader,
	}
}

// Stop stops the timer and records the outcome.
func (t *Timer) Stop(status string, items int) time.Duration {
	d := time.Since(t.start)
	if t.metrics != nil {
		t.metrics.RecordLoader(t.loader, status, items, d)
	}
	return d
}
