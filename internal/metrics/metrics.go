// Package metrics exposes rating activity and HTTP request metrics to
// Prometheus.
package metrics

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpmetrics "github.com/slok/go-http-metrics/metrics/prometheus"
	"github.com/slok/go-http-metrics/middleware"
	ginmiddleware "github.com/slok/go-http-metrics/middleware/gin"

	"github.com/Zachkp/portfolio/internal/ratings"
)

const namespace = "portfolio"

// Collector counts rating events. It implements ratings.Observer.
type Collector struct {
	registry *prometheus.Registry

	comments    *prometheus.CounterVec
	rejections  prometheus.Counter
	selections  prometheus.Counter
	initialized prometheus.Counter
	httpMW      middleware.Middleware
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in
// tests so servers do not collide on the default registry.
func New(reg *prometheus.Registry) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		registry: reg,
		comments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comments_submitted_total",
			Help:      "Comments accepted, by star rating.",
		}, []string{"rating"}),
		rejections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rating_rejections_total",
			Help:      "Comment submissions refused because no rating was chosen.",
		}),
		selections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "project_selections_total",
			Help:      "Times a project's rating dialog was opened.",
		}),
		initialized: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_sessions_initialized_total",
			Help:      "Page loads that reset a visitor's ratings.",
		}),
		httpMW: middleware.New(middleware.Config{
			Recorder: httpmetrics.NewRecorder(httpmetrics.Config{Registry: reg}),
		}),
	}
}

// TrackActiveSessions exports the result of count as a gauge.
func (c *Collector) TrackActiveSessions(count func() int) {
	promauto.With(c.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Visitor sessions currently held in memory.",
	}, func() float64 { return float64(count()) })
}

func (c *Collector) Observe(e ratings.Event) {
	switch e.Kind {
	case ratings.EventInitialized:
		c.initialized.Inc()
	case ratings.EventSelected:
		c.selections.Inc()
	case ratings.EventRatingRejected:
		c.rejections.Inc()
	case ratings.EventCommentAdded:
		c.comments.WithLabelValues(ratingLabel(e.Rating)).Inc()
	}
}

// Middleware records request duration and size per route.
func (c *Collector) Middleware() gin.HandlerFunc {
	return ginmiddleware.Handler("", c.httpMW)
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
}

func ratingLabel(r int) string {
	if r < 1 || r > ratings.MaxStars {
		return "other"
	}
	return strconv.Itoa(r)
}
