package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachkp/portfolio/internal/mail"
	"github.com/Zachkp/portfolio/internal/metrics"
	"github.com/Zachkp/portfolio/internal/session"
	"github.com/Zachkp/portfolio/internal/visitors"
)

var testContent = Content{
	Title:   "Zach's Portfolio",
	AboutMe: "I build things.",
	Projects: []Project{
		{Title: "Alpha", Description: "First project"},
		{Title: "Beta", Description: "Second project", Link: "https://example.com/beta"},
	},
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type testSite struct {
	t        *testing.T
	handler  http.Handler
	sessions *session.Registry
	mailer   *fakeMailer
}

func newTestSite(t *testing.T, withAdmin bool) *testSite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	collector := metrics.New(prometheus.NewRegistry())
	sessions := session.NewRegistry(session.Config{Observer: collector})
	t.Cleanup(sessions.Close)
	collector.TrackActiveSessions(sessions.Len)

	opts := Options{
		Content:  testContent,
		Sessions: sessions,
		Mailer:   &fakeMailer{},
		Metrics:  collector,
	}
	if withAdmin {
		store, err := visitors.Open(filepath.Join(t.TempDir(), "visitors.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		admin, err := visitors.NewAdmin(store, nil, sessions.Stats, visitors.AdminConfig{Username: "u", Password: "p"})
		require.NoError(t, err)
		opts.Admin = admin
	}

	srv, err := New(opts)
	require.NoError(t, err)
	return &testSite{t: t, handler: srv.Handler(), sessions: sessions, mailer: opts.Mailer.(*fakeMailer)}
}

// visitor is a browser with its own cookies.
type visitor struct {
	site    *testSite
	cookies map[string]*http.Cookie
}

func (s *testSite) visitor() *visitor {
	return &visitor{site: s, cookies: map[string]*http.Cookie{}}
}

func (v *visitor) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("HX-Request", "true")
	for _, c := range v.cookies {
		req.AddCookie(c)
	}

	rr := httptest.NewRecorder()
	v.site.handler.ServeHTTP(rr, req)
	for _, c := range rr.Result().Cookies() {
		v.cookies[c.Name] = c
	}
	return rr
}

func (v *visitor) load() *httptest.ResponseRecorder {
	rr := v.do(http.MethodGet, "/", nil)
	require.Equal(v.site.t, http.StatusOK, rr.Code)
	return rr
}

func (v *visitor) rate(n string) *httptest.ResponseRecorder {
	return v.do(http.MethodPost, "/rating", url.Values{"rating": {n}})
}

func (v *visitor) comment(name, text string) *httptest.ResponseRecorder {
	return v.do(http.MethodPost, "/comments", url.Values{"name": {name}, "comment": {text}})
}

func TestIndexRendersProjectCards(t *testing.T) {
	site := newTestSite(t, false)
	v := site.visitor()

	rr := v.load()

	body := rr.Body.String()
	assert.Contains(t, body, "Zach&#39;s Portfolio")
	assert.Contains(t, body, `id="rating-project-0"`)
	assert.Contains(t, body, `id="rating-project-1"`)
	assert.Equal(t, 2, strings.Count(body, "(0 reviews)"))
	assert.Equal(t, 2, strings.Count(body, "rate-comment-btn"))
	assert.Contains(t, body, `hx-post="/projects/project-1/select"`)
	assert.NotContains(t, body, "fa-star filled")
	require.Contains(t, v.cookies, sessionCookie)
	assert.True(t, v.cookies[sessionCookie].HttpOnly)
	assert.Equal(t, 1, site.sessions.Len())
}

func TestRatingFlow_AlphaBeta(t *testing.T) {
	site := newTestSite(t, false)
	v := site.visitor()
	v.load()

	rr := v.do(http.MethodPost, "/projects/project-0/select", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Rate &amp; Comment: Alpha")
	assert.Contains(t, rr.Body.String(), "No reviews yet.")

	rr = v.rate("4")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 4, strings.Count(rr.Body.String(), `class="star active"`))

	rr = v.comment("Ann", "Nice")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Ann")
	assert.Contains(t, body, "★★★★")
	assert.Contains(t, body, `id="rating-project-0" hx-swap-oob="true"`)
	assert.Contains(t, body, "(1 reviews)")
	assert.Equal(t, 4, strings.Count(body, "fa-star filled"))
	assert.Contains(t, body, `id="comment-form" hx-post="/comments" hx-target="#comments-container" hx-swap="innerHTML" hx-swap-oob="true"`)
	assert.NotContains(t, body, `class="star active"`)

	v.rate("2")
	rr = v.comment("Bo", "Ok")
	require.Equal(t, http.StatusOK, rr.Code)
	body = rr.Body.String()
	assert.Contains(t, body, "(2 reviews)")
	assert.Equal(t, 3, strings.Count(body, "fa-star filled"))
	assert.Less(t, strings.Index(body, "Ann"), strings.Index(body, "Bo"))

	rr = v.do(http.MethodPost, "/projects/project-1/select", nil)
	assert.Contains(t, rr.Body.String(), "Rate &amp; Comment: Beta")
	assert.Contains(t, rr.Body.String(), "No reviews yet.")
}

func TestSubmitWithoutRating(t *testing.T) {
	site := newTestSite(t, false)
	v := site.visitor()
	v.load()
	v.do(http.MethodPost, "/projects/project-0/select", nil)

	rr := v.comment("Ann", "Forgot the stars")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "#comment-feedback", rr.Header().Get("HX-Retarget"))
	assert.Equal(t, "rating-required", rr.Header().Get("HX-Trigger"))
	assert.Contains(t, rr.Body.String(), "Please select a rating before submitting.")
	assert.Equal(t, 0, site.sessions.Stats().Comments)
}

func TestSubmitWithoutSelectedProject(t *testing.T) {
	site := newTestSite(t, false)
	v := site.visitor()
	v.load()

	rr := v.comment("Ann", "Hi")

	assert.Equal(t, "project-required", rr.Header().Get("HX-Trigger"))
	assert.Equal(t, 0, site.sessions.Stats().Comments)
}

func TestReloadResetsRatings(t *testing.T) {
	site := newTestSite(t, false)
	v := site.visitor()
	v.load()
	v.do(http.MethodPost, "/projects/project-0/select", nil)
	v.rate("5")
	v.comment("Ann", "Great")
	require.Equal(t, 1, site.sessions.Stats().Comments)

	rr := v.load()

	assert.Equal(t, 2, strings.Count(rr.Body.String(), "(0 reviews)"))
	assert.Equal(t, 0, site.sessions.Stats().Comments)
	assert.Equal(t, 1, site.sessions.Len())
}

func TestVisitorsAreIsolated(t *testing.T) {
	site := newTestSite(t, false)
	ann, bo := site.visitor(), site.visitor()
	ann.load()
	bo.load()

	ann.do(http.MethodPost, "/projects/project-0/select", nil)
	ann.rate("5")
	ann.comment("Ann", "Great")

	rr := bo.do(http.MethodPost, "/projects/project-0/select", nil)
	assert.Contains(t, rr.Body.String(), "No reviews yet.")
	assert.Equal(t, 2, site.sessions.Len())
}

func TestRatingOutOfRange(t *testing.T) {
	site := newTestSite(t, false)
	v := site.visitor()
	v.load()
	v.do(http.MethodPost, "/projects/project-0/select", nil)

	for _, value := range []string{"0", "6", "abc"} {
		rr := v.rate(value)
		assert.Equal(t, http.StatusBadRequest, rr.Code, value)
	}

	rr := v.comment("Ann", "Hi")
	assert.Equal(t, "rating-required", rr.Header().Get("HX-Trigger"))
}

func TestSelectUnknownProject(t *testing.T) {
	site := newTestSite(t, false)
	v := site.visitor()
	v.load()

	rr := v.do(http.MethodPost, "/projects/project-9/select", nil)

	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestCloseModalReturnsToIdle(t *testing.T) {
	site := newTestSite(t, false)
	v := site.visitor()
	v.load()
	v.do(http.MethodPost, "/projects/project-0/select", nil)
	v.rate("3")

	rr := v.do(http.MethodPost, "/close", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Body.String())

	rr = v.comment("Ann", "Hi")
	assert.Equal(t, "project-required", rr.Header().Get("HX-Trigger"))
}

func TestExpiredSessionAsksForReload(t *testing.T) {
	site := newTestSite(t, false)
	v := site.visitor()

	rr := v.do(http.MethodPost, "/comments", url.Values{"name": {"Ann"}})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "true", rr.Header().Get("HX-Refresh"))
}

func TestCommentsAreEscaped(t *testing.T) {
	site := newTestSite(t, false)
	v := site.visitor()
	v.load()
	v.do(http.MethodPost, "/projects/project-0/select", nil)
	v.rate("1")

	rr := v.comment("<script>alert(1)</script>", "<b>bold</b>")

	assert.NotContains(t, rr.Body.String(), "<script>alert(1)</script>")
	assert.Contains(t, rr.Body.String(), "&lt;script&gt;")
}

func TestContactForm(t *testing.T) {
	site := newTestSite(t, false)
	v := site.visitor()

	rr := v.do(http.MethodGet, "/contact-form", nil)
	assert.Contains(t, rr.Body.String(), `hx-post="/contact"`)

	rr = v.do(http.MethodPost, "/contact", url.Values{
		"fullName": {"Ann"},
		"email":    {"ann@example.com"},
		"message":  {"Hello"},
	})
	assert.Contains(t, rr.Body.String(), "Thank you for your message!")
	require.Len(t, site.mailer.sent, 1)
	assert.Equal(t, mail.Message{Name: "Ann", Email: "ann@example.com", Message: "Hello"}, site.mailer.sent[0])

	rr = v.do(http.MethodPost, "/contact", url.Values{"fullName": {"Ann"}, "email": {"nope"}})
	assert.Contains(t, rr.Body.String(), "valid email")
	assert.Len(t, site.mailer.sent, 1)

	site.mailer.err = errors.New("smtp down")
	rr = v.do(http.MethodPost, "/contact", url.Values{
		"fullName": {"Ann"},
		"email":    {"ann@example.com"},
		"message":  {"Hello"},
	})
	assert.Contains(t, rr.Body.String(), "there was an error sending your message")
}

func TestThemeToggle(t *testing.T) {
	site := newTestSite(t, false)
	v := site.visitor()

	rr := v.load()
	assert.Contains(t, rr.Body.String(), `data-theme="light"`)

	rr = v.do(http.MethodPost, "/theme", nil)
	assert.Equal(t, `{"theme-changed":{"value":"dark"}}`, rr.Header().Get("HX-Trigger"))
	assert.Contains(t, rr.Body.String(), "fa-sun")
	assert.Equal(t, "dark", v.cookies[themeCookie].Value)

	rr = v.load()
	assert.Contains(t, rr.Body.String(), `data-theme="dark"`)

	rr = v.do(http.MethodPost, "/theme", nil)
	assert.Contains(t, rr.Body.String(), "fa-moon")
	assert.Equal(t, "light", v.cookies[themeCookie].Value)
}

func TestHealthAndMetrics(t *testing.T) {
	site := newTestSite(t, false)
	v := site.visitor()
	v.load()
	v.do(http.MethodPost, "/projects/project-0/select", nil)
	v.rate("5")
	v.comment("Ann", "Great")

	rr := v.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","sessions":1}`, rr.Body.String())

	rr = v.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `portfolio_comments_submitted_total{rating="5"} 1`)
	assert.Contains(t, rr.Body.String(), "portfolio_active_sessions 1")
}

func TestStaticAssets(t *testing.T) {
	site := newTestSite(t, false)

	rr := site.visitor().do(http.MethodGet, "/static/site.css", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "--star")
}

func TestAdminPagesUseSiteTemplates(t *testing.T) {
	site := newTestSite(t, true)
	v := site.visitor()

	rr := v.do(http.MethodGet, "/admin/login", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Admin Login")

	rr = v.do(http.MethodGet, "/privacy", nil)
	assert.Contains(t, rr.Body.String(), "salted hash")

	rr = v.do(http.MethodPost, "/admin/login", url.Values{"username": {"u"}, "password": {"p"}})
	require.Equal(t, http.StatusFound, rr.Code)

	rr = v.do(http.MethodGet, "/admin/dashboard", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "live sessions")
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}
