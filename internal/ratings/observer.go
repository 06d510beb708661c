package ratings

// EventKind names a state change of a Store.
type EventKind string

const (
	EventInitialized    EventKind = "initialized"
	EventSelected       EventKind = "selected"
	EventCommentAdded   EventKind = "comment_added"
	EventRatingRejected EventKind = "rating_rejected"
)

// Event describes one state change. Fields not relevant to Kind are zero.
type Event struct {
	Kind     EventKind
	Key      Key
	Projects int
	Rating   int
	Summary  Summary
}

// Observer is notified synchronously after each state change.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

// Subscribe registers o and returns a function that removes it.
func (s *Store) Subscribe(o Observer) func() {
	id := s.nextObs
	s.nextObs++
	s.observers[id] = o
	return func() { delete(s.observers, id) }
}

func (s *Store) emit(e Event) {
	for _, o := range s.observers {
		o.Observe(e)
	}
}
