package ratings

import "errors"

var (
	// ErrMissingRating is returned when a comment is submitted before a star
	// rating was picked. Nothing is stored.
	ErrMissingRating = errors.New("please select a rating before submitting")

	// ErrNoProjectSelected is returned when a comment arrives without an
	// active project, e.g. from a stale form after the modal was closed.
	ErrNoProjectSelected = errors.New("no project selected")
)
