package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/eleven-am/foodgram/internal/logger"
	"github.com/eleven-am/foodgram/internal/orm"
)

// LoggingMiddleware logs every statement at debug level and failures at
// warn level.
func LoggingMiddleware() orm.QueryMiddleware {
	return func(next orm.QueryMiddlewareFunc) orm.QueryMiddlewareFunc {
		return func(ctx *orm.MiddlewareContext) error {
			err := next(ctx)

			l := logger.FromContext(ctx.Context, logger.DB()).WithFields(map[string]interface{}{
				"op":       string(ctx.Operation),
				"table":    ctx.TableName,
				"duration": time.Since(ctx.StartTime).String(),
			})
			if err != nil {
				l.WithError(err).Warn("query failed")
				return err
			}
			if logger.IsDebugEnabled() {
				l.WithField("sql", ctx.Query).Debug("query executed")
			}
			return nil
		}
	}
}

// QueryMetrics records statement latency and failures per table and operation
type QueryMetrics struct {
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
}

// NewQueryMetrics registers the collectors on reg
func NewQueryMetrics(reg prometheus.Registerer) (*QueryMetrics, error) {
	m := &QueryMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "foodgram",
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Duration of database statements.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"table", "op"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "foodgram",
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Database statements that returned an error.",
		}, []string{"table", "op"}),
	}

	for _, c := range []prometheus.Collector{m.duration, m.errors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Middleware observes each statement
func (m *QueryMetrics) Middleware() orm.QueryMiddleware {
	return func(next orm.QueryMiddlewareFunc) orm.QueryMiddlewareFunc {
		return func(ctx *orm.MiddlewareContext) error {
			err := next(ctx)

			op := string(ctx.Operation)
			m.duration.WithLabelValues(ctx.TableName, op).Observe(time.Since(ctx.StartTime).Seconds())
			if err != nil {
				m.errors.WithLabelValues(ctx.TableName, op).Inc()
			}
			return err
		}
	}
}
