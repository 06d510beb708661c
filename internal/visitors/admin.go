package visitors

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/Zachkp/portfolio/internal/session"
)

const adminCookie = "admin_token"

// Source is the storage the admin pages read from.
type Source interface {
	Stats(ctx context.Context, now time.Time) (*Stats, error)
	Recent(ctx context.Context, limit int) ([]Visit, error)
	Cleanup(ctx context.Context, cutoff time.Time) (int64, error)
}

// AdminConfig holds the admin credentials and retention window.
type AdminConfig struct {
	Username  string
	Password  string
	Retention time.Duration
}

// Admin serves the dashboard. Its token is regenerated on every start, so a
// restart logs everyone out.
type Admin struct {
	src      Source
	tracker  *Tracker
	activity func() session.Stats
	cfg      AdminConfig
	token    string
	now      func() time.Time
}

// DashboardStats is the visit log plus live rating activity.
type DashboardStats struct {
	*Stats
	Ratings session.Stats `json:"ratings"`
}

// VisitRow is a visit formatted for the admin tables.
type VisitRow struct {
	Visit
	Ago string
}

func NewAdmin(src Source, tracker *Tracker, activity func() session.Stats, cfg AdminConfig) (*Admin, error) {
	token, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("generate admin token: %w", err)
	}
	if cfg.Username == "" {
		cfg.Username = "admin"
		log.Warn("Using default admin username. Set ADMIN_USERNAME environment variable.")
	}
	if cfg.Password == "" {
		cfg.Password = "admin123"
		log.Warn("Using default admin password. Set ADMIN_PASSWORD environment variable.")
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 365 * 24 * time.Hour
	}
	if activity == nil {
		activity = func() session.Stats { return session.Stats{} }
	}

	log.Info("Admin access available at: /admin/login")
	if gin.Mode() == gin.DebugMode {
		log.Debugf("Admin token (dev only): %s", token)
	}
	return &Admin{src: src, tracker: tracker, activity: activity, cfg: cfg, token: token, now: time.Now}, nil
}

// Token returns the current session token. Tests use it to authenticate.
func (a *Admin) Token() string {
	return a.token
}

// RunCleanup removes visits older than the retention window.
func (a *Admin) RunCleanup(ctx context.Context) {
	n, err := a.src.Cleanup(ctx, a.now().Add(-a.cfg.Retention))
	if err != nil {
		log.WithError(err).Error("Error cleaning up old visitor data")
		return
	}
	if n > 0 {
		log.Infof("Privacy cleanup: Removed %d visitor records older than %s", n, a.cfg.Retention)
	}
}

func (a *Admin) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(adminCookie)
		if err != nil || subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) != 1 {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (a *Admin) clientRef(c *gin.Context) string {
	if a.tracker == nil {
		return "unknown"
	}
	return a.tracker.HashIP(c.ClientIP())
}

func (a *Admin) dashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats, err := a.src.Stats(ctx, a.now())
	if err != nil {
		return nil, err
	}
	return &DashboardStats{Stats: stats, Ratings: a.activity()}, nil
}

func (a *Admin) rows(visits []Visit) []VisitRow {
	out := make([]VisitRow, 0, len(visits))
	for _, v := range visits {
		out = append(out, VisitRow{Visit: v, Ago: humanize.RelTime(v.Timestamp, a.now(), "ago", "from now")})
	}
	return out
}

// Register mounts the privacy page and the admin routes.
func (a *Admin) Register(r *gin.Engine) {
	r.GET("/privacy", func(c *gin.Context) {
		c.HTML(http.StatusOK, "privacy.html", gin.H{
			"title": "Privacy Policy",
		})
	})

	r.GET("/admin/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-login.html", gin.H{
			"title": "Admin Login",
		})
	})

	r.POST("/admin/login", func(c *gin.Context) {
		username := c.PostForm("username")
		password := c.PostForm("password")

		userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.cfg.Username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.cfg.Password)) == 1
		if userOK && passOK {
			c.SetCookie(adminCookie, a.token, 3600*24, "/admin", "", false, true)
			log.WithField("client", a.clientRef(c)).Info("Admin login successful")
			c.Redirect(http.StatusFound, "/admin/dashboard")
			return
		}

		log.WithField("client", a.clientRef(c)).Warn("Failed admin login attempt")
		c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{
			"title": "Admin Login",
			"error": "Invalid credentials",
		})
	})

	r.GET("/admin/logout", func(c *gin.Context) {
		c.SetCookie(adminCookie, "", -1, "/admin", "", false, true)
		log.WithField("client", a.clientRef(c)).Info("Admin logout")
		c.Redirect(http.StatusFound, "/admin/login")
	})

	adminGroup := r.Group("/admin")
	adminGroup.Use(a.authMiddleware())

	adminGroup.GET("/dashboard", func(c *gin.Context) {
		stats, err := a.dashboardStats(c.Request.Context())
		if err != nil {
			log.WithError(err).Error("Error loading admin stats")
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load statistics",
			})
			return
		}

		c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{
			"stats":  stats,
			"recent": a.rows(stats.RecentVisits),
		})
	})

	adminGroup.GET("/api/stats", func(c *gin.Context) {
		stats, err := a.dashboardStats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	adminGroup.GET("/visitors", func(c *gin.Context) {
		visits, err := a.src.Recent(c.Request.Context(), 200)
		if err != nil {
			log.WithError(err).Error("Error loading visitors")
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load visitors",
			})
			return
		}

		c.HTML(http.StatusOK, "admin-visitors.html", gin.H{
			"visitors": a.rows(visits),
		})
	})

	adminGroup.POST("/privacy/cleanup", func(c *gin.Context) {
		a.RunCleanup(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"message": "Privacy cleanup completed"})
	})

	adminGroup.GET("/export/stats", func(c *gin.Context) {
		stats, err := a.dashboardStats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.Header("Content-Disposition", "attachment; filename=admin-stats.json")
		log.WithField("client", a.clientRef(c)).Info("Admin stats exported")
		c.JSON(http.StatusOK, stats)
	})
}
