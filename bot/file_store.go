package bot

import (
	"errors"
	"fmt"
	"sync"

	"github.com/codehamsters/instabot/internal/fsstore"
)

// stateFile is the on-disk shape: a single JSON document holding every thread.
// The whole document is rewritten on each mutation; thread counts are small
// and writes are rare relative to the poll cadence.
type stateFile struct {
	Threads map[string]ThreadState `json:"threads"`
}

type FileStore struct {
	path    string
	mu      sync.Mutex
	threads map[string]ThreadState
}

// OpenFileStore loads the snapshot at path. A missing file starts empty; a
// corrupted file is treated as empty too, because the snapshot is only a
// resumption hint, not the source of truth for platform state.
func OpenFileStore(path string) (*FileStore, bool, error) {
	store := &FileStore{
		path:    path,
		threads: map[string]ThreadState{},
	}
	var file stateFile
	ok, err := fsstore.ReadJSON(path, &file)
	if err != nil {
		if errors.Is(err, fsstore.ErrDecodeFailed) {
			return store, true, nil
		}
		return nil, false, err
	}
	if ok && file.Threads != nil {
		store.threads = file.Threads
	}
	return store, false, nil
}

func (s *FileStore) Get(threadID string) (ThreadState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.threads[threadID]
	if !ok {
		return ThreadState{}, false
	}
	return state.clone(), true
}

func (s *FileStore) Ensure(threadID string, admins []string) (ThreadState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.threads[threadID]; ok {
		return state.clone(), nil
	}
	state := ThreadState{
		Admins:         normalizeIDSet(admins),
		Members:        []string{},
		WelcomeMessage: DefaultWelcomeTemplate,
	}
	s.threads[threadID] = state
	if err := s.saveLocked(); err != nil {
		delete(s.threads, threadID)
		return ThreadState{}, err
	}
	return state.clone(), nil
}

func (s *FileStore) Mutate(threadID string, fn func(*ThreadState)) (ThreadState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.threads[threadID]
	if !ok {
		return ThreadState{}, fmt.Errorf("%w: %s", ErrUnknownThread, threadID)
	}
	next := prev.clone()
	fn(&next)
	next.Admins = normalizeIDSet(next.Admins)
	next.Members = normalizeIDSet(next.Members)
	// A set watermark never goes back to unset.
	if next.LastProcessedMessageID == "" && prev.LastProcessedMessageID != "" {
		next.LastProcessedMessageID = prev.LastProcessedMessageID
	}
	s.threads[threadID] = next
	if err := s.saveLocked(); err != nil {
		s.threads[threadID] = prev
		return ThreadState{}, err
	}
	return next.clone(), nil
}

func (s *FileStore) saveLocked() error {
	file := stateFile{Threads: s.threads}
	return fsstore.WriteJSONAtomic(s.path, file, fsstore.FileOptions{
		DirPerm:  0o700,
		FilePerm: 0o600,
	})
}
