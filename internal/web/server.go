// Package web serves the portfolio page and the HTMX fragments behind its
// rating widget, contact form and theme toggle.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/Zachkp/portfolio/internal/mail"
	"github.com/Zachkp/portfolio/internal/metrics"
	"github.com/Zachkp/portfolio/internal/session"
	"github.com/Zachkp/portfolio/internal/visitors"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// Project is one card of the project listing.
type Project struct {
	Title       string
	Description string
	Link        string
}

// Content is the page copy.
type Content struct {
	Title    string
	AboutMe  string
	Projects []Project
}

func (c Content) titles() []string {
	out := make([]string, 0, len(c.Projects))
	for _, p := range c.Projects {
		out = append(out, p.Title)
	}
	return out
}

// Options wires the server's collaborators. Sessions, Mailer and Metrics are
// required; Tracker and Admin are optional.
type Options struct {
	Content     Content
	Sessions    *session.Registry
	Mailer      mail.Mailer
	Metrics     *metrics.Collector
	Tracker     *visitors.Tracker
	Admin       *visitors.Admin
	CORSOrigins []string
}

type Server struct {
	engine   *gin.Engine
	content  Content
	sessions *session.Registry
	mailer   mail.Mailer
}

func New(opts Options) (*Server, error) {
	if opts.Sessions == nil || opts.Mailer == nil || opts.Metrics == nil {
		return nil, fmt.Errorf("web: sessions, mailer and metrics are required")
	}

	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), opts.Metrics.Middleware())
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost},
			AllowHeaders:     []string{"Content-Type", "HX-Request", "HX-Target", "HX-Trigger", "HX-Current-URL"},
			ExposeHeaders:    []string{"HX-Trigger", "HX-Retarget", "HX-Reswap", "HX-Refresh"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	if opts.Tracker != nil {
		r.Use(opts.Tracker.Middleware())
	}
	r.SetHTMLTemplate(tmpl)
	r.StaticFS("/static", http.FS(static))

	s := &Server{
		engine:   r,
		content:  opts.Content,
		sessions: opts.Sessions,
		mailer:   opts.Mailer,
	}

	r.GET("/", s.index)
	r.GET("/healthz", s.health)
	r.GET("/metrics", opts.Metrics.Handler())

	r.POST("/projects/:key/select", s.selectProject)
	r.POST("/rating", s.setRating)
	r.POST("/comments", s.submitComment)
	r.POST("/close", s.closeModal)

	r.GET("/contact-form", s.contactForm)
	r.POST("/contact", s.contact)
	r.POST("/theme", s.toggleTheme)

	if opts.Admin != nil {
		opts.Admin.Register(r)
	}
	return s, nil
}

// Handler returns the HTTP handler for the whole site.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		})
		if len(c.Errors) > 0 {
			entry.WithError(c.Errors.Last()).Warn("request failed")
			return
		}
		entry.Debug("request")
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.sessions.Len()})
}
