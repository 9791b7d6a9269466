package bot

import (
	"errors"
	"slices"
	"strings"
)

var ErrUnknownThread = errors.New("bot: unknown thread")

// ThreadState is the durable per-thread record. Members is replaced wholesale
// each poll cycle; LastProcessedMessageID only ever moves forward. Message ids
// are opaque, so forward motion cannot be verified by comparison: the store
// refuses to clear a set watermark, but if the watermark message drops off the
// platform's fetched page the next cycle re-dispatches that page and rewrites
// the newest id it saw. The page size bounds that replay.
type ThreadState struct {
	Admins                 []string `json:"admins"`
	Members                []string `json:"members"`
	WelcomeMessage         string   `json:"welcome_message"`
	LastProcessedMessageID string   `json:"last_processed_message_id"`
}

// IsAdmin reports whether userID is in the thread's stored admin snapshot.
func (s ThreadState) IsAdmin(userID string) bool {
	return slices.Contains(s.Admins, strings.TrimSpace(userID))
}

func (s ThreadState) clone() ThreadState {
	s.Admins = slices.Clone(s.Admins)
	s.Members = slices.Clone(s.Members)
	return s
}

// Store owns all ThreadState records. Components read through Get and propose
// changes through Mutate; they never hold copies across poll cycles.
type Store interface {
	Get(threadID string) (ThreadState, bool)
	// Ensure creates a record with the given admin snapshot, empty members,
	// the default welcome template and no watermark. It is a no-op when the
	// thread already exists.
	Ensure(threadID string, admins []string) (ThreadState, error)
	// Mutate applies fn to the thread's record and persists the whole store
	// afterward. The thread must already exist.
	Mutate(threadID string, fn func(*ThreadState)) (ThreadState, error)
}

func normalizeIDSet(ids []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(ids))
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func sameIDSet(a, b []string) bool {
	return slices.Equal(normalizeIDSet(a), normalizeIDSet(b))
}
