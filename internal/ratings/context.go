package ratings

// State is the position of one visitor's interaction in the rating flow.
type State int

const (
	Idle State = iota
	ProjectSelected
	RatingChosen
)

func (s State) String() string {
	switch s {
	case ProjectSelected:
		return "project_selected"
	case RatingChosen:
		return "rating_chosen"
	default:
		return "idle"
	}
}

// Context is the active project and the star selection that has not been
// submitted yet. The zero value is Idle.
type Context struct {
	Active        Key `json:"active,omitempty"`
	PendingRating int `json:"pending_rating,omitempty"`
}

func (c Context) State() State {
	switch {
	case c.Active == "":
		return Idle
	case c.PendingRating >= 1:
		return RatingChosen
	default:
		return ProjectSelected
	}
}
