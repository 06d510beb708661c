package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/Zachkp/portfolio/internal/mail"
	"github.com/Zachkp/portfolio/internal/ratings"
)

const themeCookie = "theme"

type contactForm struct {
	FullName string `form:"fullName" binding:"required"`
	Email    string `form:"email" binding:"required,email"`
	Message  string `form:"message" binding:"required"`
}

// index renders the page. Every load starts the visitor's ratings afresh.
func (s *Server) index(c *gin.Context) {
	id, _ := c.Cookie(sessionCookie)
	sess := s.sessions.Reset(id, s.content.titles())
	setSessionCookie(c, sess.ID)

	var summaries []ratings.Summary
	sess.Do(func(store *ratings.Store, _ *ratings.Context) {
		summaries = store.Summaries()
	})

	cards := make([]cardView, 0, len(s.content.Projects))
	for i, p := range s.content.Projects {
		cards = append(cards, cardView{
			Key:         summaries[i].Key,
			Title:       p.Title,
			Description: p.Description,
			Link:        p.Link,
			Summary:     summaryView{Summary: summaries[i]},
		})
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"title": s.content.Title,
		"about": s.content.AboutMe,
		"cards": cards,
		"theme": currentTheme(c),
	})
}

func (s *Server) contactForm(c *gin.Context) {
	c.HTML(http.StatusOK, "contact.html", gin.H{
		"title": "Contact Me",
	})
}

func (s *Server) contact(c *gin.Context) {
	var form contactForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"error": "Please fill in your name, a valid email and a message.",
		})
		return
	}

	err := s.mailer.Send(c.Request.Context(), mail.Message{
		Name:    strings.TrimSpace(form.FullName),
		Email:   strings.TrimSpace(form.Email),
		Message: form.Message,
	})
	if err != nil {
		log.WithError(err).Error("contact form delivery failed")
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"error": "Sorry, there was an error sending your message. Please try again later.",
		})
		return
	}

	c.HTML(http.StatusOK, "contact-success.html", gin.H{
		"success": "Thank you for your message! I will get back to you soon.",
	})
}

func currentTheme(c *gin.Context) string {
	if theme, err := c.Cookie(themeCookie); err == nil && theme == "dark" {
		return "dark"
	}
	return "light"
}

func (s *Server) toggleTheme(c *gin.Context) {
	next := "dark"
	if currentTheme(c) == "dark" {
		next = "light"
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(themeCookie, next, 365*24*3600, "/", "", false, false)
	c.Header("HX-Trigger", fmt.Sprintf(`{"theme-changed":{"value":%q}}`, next))
	c.HTML(http.StatusOK, "theme-toggle.html", next)
}
