package web

import (
	"html/template"

	"github.com/Zachkp/portfolio/internal/ratings"
)

var templateFuncs = template.FuncMap{
	// starRange marks which of the five stars are filled.
	"starRange": func(filled int) []bool {
		out := make([]bool, ratings.MaxStars)
		for i := range out {
			out[i] = i < filled
		}
		return out
	},
	"inc": func(i int) int { return i + 1 },
}

type summaryView struct {
	ratings.Summary
	OOB bool
}

type cardView struct {
	Key         ratings.Key
	Title       string
	Description string
	Link        string
	Summary     summaryView
}

type formView struct {
	Pending int
	OOB     bool
}
