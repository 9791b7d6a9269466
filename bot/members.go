package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	welcomePaceMin = 3 * time.Second
	welcomePaceMax = 6 * time.Second
)

// Differ detects membership deltas between the stored snapshot and the
// platform's current one, welcomes joiners, and replaces the snapshot.
type Differ struct {
	client Client
	store  Store
	logger *slog.Logger
	owner  string
	sleep  SleepFunc
}

type DifferOptions struct {
	Client        Client
	Store         Store
	Logger        *slog.Logger
	OwnerUsername string
	Sleep         SleepFunc
}

func NewDiffer(opts DifferOptions) *Differ {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Differ{
		client: opts.Client,
		store:  opts.Store,
		logger: logger,
		owner:  opts.OwnerUsername,
		sleep:  defaultSleep(opts.Sleep),
	}
}

// Sync welcomes members who joined since the last cycle, logs members who
// left, and unconditionally replaces the stored member snapshot with the
// current one. Replacing even when nothing changed keeps the snapshot
// self-healing after an earlier partial failure.
func (d *Differ) Sync(ctx context.Context, thread ThreadDescriptor) error {
	state, ok := d.store.Get(thread.ID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownThread, thread.ID)
	}

	stored := map[string]bool{}
	for _, id := range state.Members {
		stored[id] = true
	}
	current := map[string]bool{}
	currentIDs := make([]string, 0, len(thread.Members))
	joined := make([]User, 0)
	for _, member := range thread.Members {
		current[member.ID] = true
		currentIDs = append(currentIDs, member.ID)
		if !stored[member.ID] {
			joined = append(joined, member)
		}
	}
	left := make([]string, 0)
	for _, id := range state.Members {
		if !current[id] {
			left = append(left, id)
		}
	}
	d.logger.Debug("member_snapshot_diffed",
		"thread_id", thread.ID,
		"stored", len(state.Members),
		"current", len(currentIDs),
		"joined", len(joined),
		"left", len(left),
	)

	if len(joined) > 0 {
		d.welcome(ctx, thread.ID, state.WelcomeMessage, joined)
	}
	for _, id := range left {
		// Best effort name resolution for the log line only.
		name := id
		if user, err := d.client.ResolveUser(ctx, id); err == nil {
			name = user.DisplayName
		}
		d.logger.Info("member_left", "thread_id", thread.ID, "user", name)
	}

	if _, err := d.store.Mutate(thread.ID, func(s *ThreadState) {
		s.Members = currentIDs
	}); err != nil {
		return err
	}
	return nil
}

func (d *Differ) welcome(ctx context.Context, threadID, rawTemplate string, joined []User) {
	tmpl, err := ParseWelcomeTemplate(rawTemplate)
	if err != nil {
		d.logger.Warn("welcome_template_invalid", "thread_id", threadID, "error", err.Error())
		d.notifyOwner(ctx, threadID, "welcoming new members")
		return
	}
	for i, user := range joined {
		if i > 0 {
			if err := d.sleep(ctx, welcomePaceMin, welcomePaceMax); err != nil {
				return
			}
		}
		if err := d.client.SendMessage(ctx, threadID, tmpl.Render(user.DisplayName)); err != nil {
			d.logger.Warn("welcome_send_failed",
				"thread_id", threadID,
				"user", user.DisplayName,
				"error", err.Error(),
			)
			d.notifyOwner(ctx, threadID, "welcoming a new member")
			continue
		}
		d.logger.Info("member_welcomed", "thread_id", threadID, "user", user.DisplayName)
	}
}

func (d *Differ) notifyOwner(ctx context.Context, threadID, action string) {
	text := fmt.Sprintf("Error %s. Contact @%s", action, d.owner)
	if err := d.client.SendMessage(ctx, threadID, text); err != nil {
		d.logger.Warn("owner_notice_failed", "thread_id", threadID, "error", err.Error())
	}
}
