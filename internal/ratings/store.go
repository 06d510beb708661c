// Package ratings keeps the star ratings and comments visitors leave on
// portfolio projects. A Store lives for one page session: loading the page
// again re-initializes it.
//
// The Store is not safe for concurrent use. Callers run one event at a time
// per store (see the session package).
package ratings

import (
	"fmt"
	"time"
)

// DefaultDateLayout renders dates the way an en-US browser prints a local date.
const DefaultDateLayout = "1/2/2006"

// Key identifies a project within one store.
type Key string

// KeyFor returns the key of the project at position i of the listing.
func KeyFor(i int) Key {
	return Key(fmt.Sprintf("project-%d", i))
}

// Comment is one submitted review.
type Comment struct {
	Name   string `json:"name"`
	Text   string `json:"text"`
	Rating int    `json:"rating"`
	Date   string `json:"date"`
}

// Project is the record kept for one displayed project.
type Project struct {
	Key      Key       `json:"key"`
	Title    string    `json:"title"`
	Comments []Comment `json:"comments"`

	average float64
}

// Average returns the mean rating, or false when nobody has rated yet.
func (p *Project) Average() (float64, bool) {
	if len(p.Comments) == 0 {
		return 0, false
	}
	return p.average, true
}

func (p *Project) recompute() {
	if len(p.Comments) == 0 {
		p.average = 0
		return
	}
	sum := 0
	for _, c := range p.Comments {
		sum += c.Rating
	}
	p.average = float64(sum) / float64(len(p.Comments))
}

// Submission is what a successful SubmitComment hands back for rendering.
type Submission struct {
	Key      Key
	Comment  Comment
	Comments []CommentView
	Summary  Summary
}

// Store holds the project records of one page session.
type Store struct {
	projects   map[Key]*Project
	order      []Key
	now        func() time.Time
	dateLayout string
	observers  map[int]Observer
	nextObs    int
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used to date comments.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDateLayout sets the time layout used for comment dates.
func WithDateLayout(layout string) Option {
	return func(s *Store) {
		if layout != "" {
			s.dateLayout = layout
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		projects:   make(map[Key]*Project),
		now:        time.Now,
		dateLayout: DefaultDateLayout,
		observers:  make(map[int]Observer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize replaces every record with one empty record per title and
// returns the keys in listing order.
func (s *Store) Initialize(titles []string) []Key {
	s.projects = make(map[Key]*Project, len(titles))
	s.order = make([]Key, 0, len(titles))
	for i, title := range titles {
		key := KeyFor(i)
		s.projects[key] = &Project{Key: key, Title: title, Comments: []Comment{}}
		s.order = append(s.order, key)
	}

	keys := append([]Key(nil), s.order...)
	s.emit(Event{Kind: EventInitialized, Projects: len(keys)})
	return keys
}

// Keys returns the project keys in listing order.
func (s *Store) Keys() []Key {
	return append([]Key(nil), s.order...)
}

// Project returns a copy of the record for key.
func (s *Store) Project(key Key) (Project, bool) {
	p, ok := s.projects[key]
	if !ok {
		return Project{}, false
	}
	cp := *p
	cp.Comments = append([]Comment(nil), p.Comments...)
	return cp, true
}

// Title returns the title of the project behind key.
func (s *Store) Title(key Key) (string, bool) {
	p, ok := s.projects[key]
	if !ok {
		return "", false
	}
	return p.Title, true
}

// SelectProject makes key the active project and clears any pending rating.
// An unknown key leaves ctx untouched.
func (s *Store) SelectProject(ctx Context, key Key) Context {
	if _, ok := s.projects[key]; !ok {
		return ctx
	}
	s.emit(Event{Kind: EventSelected, Key: key})
	return Context{Active: key}
}

// Deselect closes the interaction surface.
func (s *Store) Deselect(Context) Context {
	return Context{}
}

// SetPendingRating records a star choice for the active project. It is only
// held in ctx until SubmitComment. Range checking happens where the value is
// read from the visitor.
func (s *Store) SetPendingRating(ctx Context, value int) Context {
	if _, ok := s.projects[ctx.Active]; !ok {
		return ctx
	}
	ctx.PendingRating = value
	return ctx
}

// SubmitComment appends a comment with the pending rating to the active
// project. Without a pending rating it returns ErrMissingRating and the
// context unchanged.
func (s *Store) SubmitComment(ctx Context, name, text string) (Context, Submission, error) {
	p, ok := s.projects[ctx.Active]
	if !ok {
		return ctx, Submission{}, ErrNoProjectSelected
	}
	if ctx.PendingRating < 1 {
		s.emit(Event{Kind: EventRatingRejected, Key: p.Key})
		return ctx, Submission{}, ErrMissingRating
	}

	c := Comment{
		Name:   name,
		Text:   text,
		Rating: ctx.PendingRating,
		Date:   s.now().Format(s.dateLayout),
	}
	p.Comments = append(p.Comments, c)
	p.recompute()

	ctx.PendingRating = 0
	sub := Submission{
		Key:      p.Key,
		Comment:  c,
		Comments: s.RenderComments(p.Key),
		Summary:  s.RenderSummary(p.Key),
	}
	s.emit(Event{Kind: EventCommentAdded, Key: p.Key, Rating: c.Rating, Summary: sub.Summary})
	return ctx, sub, nil
}

// CommentCount returns the number of comments across all projects.
func (s *Store) CommentCount() int {
	n := 0
	for _, p := range s.projects {
		n += len(p.Comments)
	}
	return n
}
