package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/Zachkp/portfolio/internal/ratings"
	"github.com/Zachkp/portfolio/internal/session"
)

const sessionCookie = "portfolio_session"

type ratingForm struct {
	Rating int `form:"rating" binding:"required,min=1,max=5"`
}

type commentForm struct {
	Name    string `form:"name"`
	Comment string `form:"comment"`
}

func setSessionCookie(c *gin.Context, id string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, id, 0, "/", "", false, true)
}

// currentSession returns the visitor's live session. When it expired the
// page is asked to reload, which starts a fresh one.
func (s *Server) currentSession(c *gin.Context) (*session.Session, bool) {
	id, _ := c.Cookie(sessionCookie)
	sess, ok := s.sessions.Get(id)
	if !ok {
		c.Header("HX-Refresh", "true")
		c.Status(http.StatusOK)
		return nil, false
	}
	return sess, true
}

func (s *Server) selectProject(c *gin.Context) {
	sess, ok := s.currentSession(c)
	if !ok {
		return
	}
	key := ratings.Key(c.Param("key"))

	var (
		title    string
		known    bool
		comments []ratings.CommentView
	)
	sess.Do(func(store *ratings.Store, ctx *ratings.Context) {
		title, known = store.Title(key)
		*ctx = store.SelectProject(*ctx, key)
		if known {
			comments = store.RenderComments(key)
		}
	})
	if !known {
		c.Status(http.StatusNoContent)
		return
	}

	c.HTML(http.StatusOK, "rating-modal.html", gin.H{
		"title":    title,
		"comments": comments,
		"form":     formView{},
	})
}

func (s *Server) setRating(c *gin.Context) {
	sess, ok := s.currentSession(c)
	if !ok {
		return
	}

	var form ratingForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusBadRequest, "comment-feedback.html", gin.H{
			"message": "Ratings go from 1 to 5 stars.",
		})
		return
	}

	var pending int
	sess.Do(func(store *ratings.Store, ctx *ratings.Context) {
		*ctx = store.SetPendingRating(*ctx, form.Rating)
		pending = ctx.PendingRating
	})
	c.HTML(http.StatusOK, "star-picker.html", pending)
}

func (s *Server) submitComment(c *gin.Context) {
	sess, ok := s.currentSession(c)
	if !ok {
		return
	}

	var form commentForm
	_ = c.ShouldBind(&form)

	var (
		sub ratings.Submission
		err error
	)
	sess.Do(func(store *ratings.Store, ctx *ratings.Context) {
		*ctx, sub, err = store.SubmitComment(*ctx, form.Name, form.Comment)
	})

	switch {
	case errors.Is(err, ratings.ErrMissingRating):
		log.WithField("session", sess.ID).Debug("comment submitted without rating")
		s.feedback(c, "rating-required", "Please select a rating before submitting.")
		return
	case errors.Is(err, ratings.ErrNoProjectSelected):
		s.feedback(c, "project-required", "Open a project to leave a comment.")
		return
	case err != nil:
		_ = c.Error(err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.HTML(http.StatusOK, "comment-submitted.html", gin.H{
		"comments": sub.Comments,
		"summary":  summaryView{Summary: sub.Summary, OOB: true},
		"form":     formView{OOB: true},
	})
}

// feedback shows message inside the open comment form instead of replacing
// the comment list.
func (s *Server) feedback(c *gin.Context, trigger, message string) {
	c.Header("HX-Retarget", "#comment-feedback")
	c.Header("HX-Reswap", "innerHTML")
	c.Header("HX-Trigger", trigger)
	c.HTML(http.StatusOK, "comment-feedback.html", gin.H{"message": message})
}

func (s *Server) closeModal(c *gin.Context) {
	sess, ok := s.currentSession(c)
	if !ok {
		return
	}
	sess.Do(func(store *ratings.Store, ctx *ratings.Context) {
		*ctx = store.Deselect(*ctx)
	})
	c.String(http.StatusOK, "")
}
