package collector

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Answer is one collected field.
type Answer struct {
	Key   string
	Label string
	Text  string
}

// Session is one user's in-progress description. It is owned by the session
// key supplied by the transport.
type Session struct {
	Key       string
	StartedAt time.Time

	mu      sync.Mutex
	step    int
	answers []Answer
	// closed is set once the session is finished or replaced; a handler that
	// was waiting on mu must look the key up again.
	closed atomic.Bool
}

func newSession(key string, now time.Time) *Session {
	return &Session{Key: key, StartedAt: now}
}

// stage must be called with mu held.
func (s *Session) stage(st Strategy) Stage {
	if s.step >= len(st.Questions) {
		return StageComplete
	}
	return st.Questions[s.step].Stage
}

// Narrative joins answers into the labeled description submitted for
// evaluation. A lone unlabeled answer is passed through untouched.
func Narrative(answers []Answer) string {
	if len(answers) == 1 && answers[0].Label == "" {
		return answers[0].Text
	}
	lines := make([]string, 0, len(answers))
	for _, a := range answers {
		lines = append(lines, a.Label+": "+a.Text)
	}
	return strings.Join(lines, "\n")
}
