package bot

import "context"

// Client is the already-authenticated platform surface the core consumes.
// Session establishment and challenge handling happen before a Client exists.
type Client interface {
	// ListThreads returns the current inbox threads, groups and DMs alike;
	// callers filter on IsGroup.
	ListThreads(ctx context.Context) ([]ThreadDescriptor, error)
	// FetchMessages returns one bounded page of a thread's history, newest
	// first.
	FetchMessages(ctx context.Context, threadID string) ([]Message, error)
	SendMessage(ctx context.Context, threadID, text string) error
	ResolveUser(ctx context.Context, userID string) (User, error)
	// SelfID is the bot account's own user id, used to skip self-authored
	// messages during dedup.
	SelfID() string
}

type ThreadDescriptor struct {
	ID       string
	IsGroup  bool
	AdminIDs []string
	Members  []User
}

type User struct {
	ID          string
	DisplayName string
}

type Message struct {
	ID       string
	AuthorID string
	Text     string
}
