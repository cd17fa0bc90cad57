package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/nexussync/clubs/apps/api"

type metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	changesSent     prometheus.Counter
	changeClients   prometheus.Gauge
}

func newMetrics(registry prometheus.Registerer) *metrics {
	factory := promauto.With(registry)

	return &metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nexussync",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route, method and status code",
		}, []string{"route", "method", "code"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nexussync",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),

		changesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "nexussync",
			Subsystem: "api",
			Name:      "changes_sent_total",
			Help:      "Total number of changes pushed to websocket clients",
		}),

		changeClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "nexussync",
			Subsystem: "api",
			Name:      "change_clients",
			Help:      "Number of connected websocket clients",
		}),
	}
}

// middleware records the request count and duration. Errors are resolved through the
// echo error handler first so the recorded status code is the one sent.
func (m *metrics) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			if err != nil {
				ctx.Error(err)
			}

			route := ctx.Path()
			if route == "" {
				route = "unknown"
			}
			method := ctx.Request().Method
			m.requestsTotal.WithLabelValues(route, method, strconv.Itoa(ctx.Response().Status)).Inc()
			m.requestDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// tracingMiddleware opens a server span per request.
func tracingMiddleware() echo.MiddlewareFunc {
	tracer := otel.Tracer(tracerName)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			req := ctx.Request()
			spanCtx, span := tracer.Start(
				req.Context(),
				req.Method+" "+ctx.Path(),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.method", req.Method),
					attribute.String("http.route", ctx.Path()),
					attribute.String("http.target", req.URL.Path),
				),
			)
			defer span.End()
			ctx.SetRequest(req.WithContext(spanCtx))

			err := next(ctx)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetStatus(codes.Ok, "")
			}
			span.SetAttributes(attribute.Int("http.status_code", ctx.Response().Status))
			return err
		}
	}
}
