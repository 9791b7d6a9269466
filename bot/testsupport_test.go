package bot

import (
	"context"
	"fmt"
	"time"
)

// memStore is an in-memory Store for component tests that don't need disk.
type memStore struct {
	threads  map[string]ThreadState
	mutates  int
	failNext bool
}

func newMemStore() *memStore {
	return &memStore{threads: map[string]ThreadState{}}
}

func (s *memStore) Get(threadID string) (ThreadState, bool) {
	state, ok := s.threads[threadID]
	if !ok {
		return ThreadState{}, false
	}
	return state.clone(), true
}

func (s *memStore) Ensure(threadID string, admins []string) (ThreadState, error) {
	if state, ok := s.threads[threadID]; ok {
		return state.clone(), nil
	}
	state := ThreadState{
		Admins:         normalizeIDSet(admins),
		Members:        []string{},
		WelcomeMessage: DefaultWelcomeTemplate,
	}
	s.threads[threadID] = state
	return state.clone(), nil
}

func (s *memStore) Mutate(threadID string, fn func(*ThreadState)) (ThreadState, error) {
	state, ok := s.threads[threadID]
	if !ok {
		return ThreadState{}, fmt.Errorf("%w: %s", ErrUnknownThread, threadID)
	}
	if s.failNext {
		s.failNext = false
		return ThreadState{}, fmt.Errorf("mutate failed")
	}
	next := state.clone()
	fn(&next)
	next.Admins = normalizeIDSet(next.Admins)
	next.Members = normalizeIDSet(next.Members)
	s.threads[threadID] = next
	s.mutates++
	return next.clone(), nil
}

type sentMessage struct {
	ThreadID string
	Text     string
}

type fakeClient struct {
	selfID     string
	threads    []ThreadDescriptor
	messages   map[string][]Message
	users      map[string]User
	sent       []sentMessage
	sendErr    func(threadID, text string) error
	resolveErr map[string]error
	listErr    error
}

func newFakeClient(selfID string) *fakeClient {
	return &fakeClient{
		selfID:     selfID,
		messages:   map[string][]Message{},
		users:      map[string]User{},
		resolveErr: map[string]error{},
	}
}

func (c *fakeClient) ListThreads(ctx context.Context) ([]ThreadDescriptor, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.threads, nil
}

func (c *fakeClient) FetchMessages(ctx context.Context, threadID string) ([]Message, error) {
	return c.messages[threadID], nil
}

func (c *fakeClient) SendMessage(ctx context.Context, threadID, text string) error {
	if c.sendErr != nil {
		if err := c.sendErr(threadID, text); err != nil {
			return err
		}
	}
	c.sent = append(c.sent, sentMessage{ThreadID: threadID, Text: text})
	return nil
}

func (c *fakeClient) ResolveUser(ctx context.Context, userID string) (User, error) {
	if err := c.resolveErr[userID]; err != nil {
		return User{}, err
	}
	user, ok := c.users[userID]
	if !ok {
		return User{}, fmt.Errorf("unknown user %s", userID)
	}
	return user, nil
}

func (c *fakeClient) SelfID() string {
	return c.selfID
}

func instantSleep(ctx context.Context, min, max time.Duration) error {
	return ctx.Err()
}
