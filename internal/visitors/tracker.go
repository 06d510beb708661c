package visitors

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// skippedPrefixes are never logged as page views.
var skippedPrefixes = []string{
	"/static/",
	"/images/",
	"/admin/",
	"/favicon",
	"/privacy",
	"/metrics",
	"/healthz",
}

// Recorder persists a visit.
type Recorder interface {
	Record(ctx context.Context, v Visit) error
}

// Tracker hashes client addresses and writes visits from a background worker
// so page requests never wait on the database.
type Tracker struct {
	rec  Recorder
	salt string
	now  func() time.Time

	queue chan Visit
	done  chan struct{}
	once  sync.Once
}

// NewTracker starts the writer goroutine. Call Close to flush and stop it.
func NewTracker(rec Recorder, buffer int) (*Tracker, error) {
	salt, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("generate hashing salt: %w", err)
	}
	if buffer <= 0 {
		buffer = 256
	}
	t := &Tracker{
		rec:   rec,
		salt:  salt,
		now:   time.Now,
		queue: make(chan Visit, buffer),
		done:  make(chan struct{}),
	}
	go t.run()
	log.Info("Privacy: Visitor tracking enabled with hashed IP addresses")
	return t, nil
}

// HashIP returns a salted, truncated hash of ip. It is stable for the
// lifetime of the tracker.
func (t *Tracker) HashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip + t.salt))
	return hex.EncodeToString(sum[:])[:16]
}

// Middleware queues a visit for every tracked page request.
func (t *Tracker) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if skipped(path) || c.GetHeader("DNT") == "1" || c.Request.Method != "GET" {
			c.Next()
			return
		}

		v := Visit{
			HashedIP:  t.HashIP(c.ClientIP()),
			UserAgent: c.GetHeader("User-Agent"),
			Path:      path,
			Timestamp: t.now(),
		}
		select {
		case t.queue <- v:
		default:
			log.WithField("path", path).Warn("visit queue full, dropping visit")
		}
		c.Next()
	}
}

// Close flushes queued visits and stops the worker. The middleware must not
// be serving requests anymore.
func (t *Tracker) Close() {
	t.once.Do(func() {
		close(t.queue)
		<-t.done
	})
}

func (t *Tracker) run() {
	defer close(t.done)
	for v := range t.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := t.rec.Record(ctx, v); err != nil {
			log.WithError(err).Error("Error recording visitor")
		}
		cancel()
	}
}

func skipped(path string) bool {
	for _, prefix := range skippedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
