package ratings

import (
	"fmt"
	"math"
	"strings"
)

const starGlyph = "★"

// MaxStars is the size of the star scale.
const MaxStars = 5

// CommentView is a comment ready for display.
type CommentView struct {
	Name  string `json:"name"`
	Stars string `json:"stars"`
	Text  string `json:"text"`
	Date  string `json:"date"`
}

// Summary is the rating badge shown on a project card.
type Summary struct {
	Key     Key     `json:"key"`
	Rated   bool    `json:"rated"`
	Average float64 `json:"average"`
	Stars   int     `json:"stars"`
	Reviews int     `json:"reviews"`
}

// Label is the review count text, e.g. "(2 reviews)".
func (s Summary) Label() string {
	return fmt.Sprintf("(%d reviews)", s.Reviews)
}

// RoundStars rounds an average to whole stars, halves rounding up.
func RoundStars(avg float64) int {
	return int(math.Floor(avg + 0.5))
}

// RenderComments returns the comments of key in submission order.
func (s *Store) RenderComments(key Key) []CommentView {
	p, ok := s.projects[key]
	if !ok {
		return nil
	}
	views := make([]CommentView, 0, len(p.Comments))
	for _, c := range p.Comments {
		views = append(views, CommentView{
			Name:  c.Name,
			Stars: strings.Repeat(starGlyph, c.Rating),
			Text:  c.Text,
			Date:  c.Date,
		})
	}
	return views
}

// RenderSummary returns the badge for key. An unrated project has zero stars.
func (s *Store) RenderSummary(key Key) Summary {
	p, ok := s.projects[key]
	if !ok {
		return Summary{Key: key}
	}
	sum := Summary{Key: key, Reviews: len(p.Comments)}
	if avg, rated := p.Average(); rated {
		sum.Rated = true
		sum.Average = avg
		sum.Stars = RoundStars(avg)
	}
	return sum
}

// Summaries returns the badge of every project in listing order.
func (s *Store) Summaries() []Summary {
	out := make([]Summary, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.RenderSummary(key))
	}
	return out
}
