package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	mentionBatchSize = 5
	mentionPaceMin   = 8 * time.Second
	mentionPaceMax   = 12 * time.Second
)

const helpText = "Commands:\n" +
	"/mentionall - Mention everyone\n" +
	"/setwelcome <msg> - Set welcome message (use {} for the username)\n" +
	"/getwelcome - Show current welcome message\n" +
	"/updateadmins - Refresh the admin list\n" +
	"/help - Show this menu"

// Dispatcher parses message text into commands and executes them for
// authorized senders.
type Dispatcher struct {
	client     Client
	store      Store
	reconciler *Reconciler
	logger     *slog.Logger
	owner      string
	sleep      SleepFunc
}

type DispatcherOptions struct {
	Client        Client
	Store         Store
	Reconciler    *Reconciler
	Logger        *slog.Logger
	OwnerUsername string
	Sleep         SleepFunc
}

func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		client:     opts.Client,
		store:      opts.Store,
		reconciler: opts.Reconciler,
		logger:     logger,
		owner:      opts.OwnerUsername,
		sleep:      defaultSleep(opts.Sleep),
	}
}

// Handle runs the command in text, if any. Non-command text, unrecognized
// commands, and commands from non-admin senders are all ignored without a
// reply: an unauthorized attempt looks identical to no command at all.
func (d *Dispatcher) Handle(ctx context.Context, thread ThreadDescriptor, senderID, text string) error {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return nil
	}
	state, ok := d.store.Get(thread.ID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownThread, thread.ID)
	}
	if !state.IsAdmin(senderID) {
		d.logger.Debug("command_unauthorized", "thread_id", thread.ID, "sender_id", senderID)
		return nil
	}

	command, args := splitCommand(text)
	switch command {
	case "/mentionall":
		return d.mentionAll(ctx, thread.ID, state)
	case "/setwelcome":
		return d.setWelcome(ctx, thread.ID, args)
	case "/getwelcome":
		return d.client.SendMessage(ctx, thread.ID, "Current welcome message:\n"+state.WelcomeMessage)
	case "/updateadmins":
		return d.updateAdmins(ctx, thread)
	case "/help":
		return d.client.SendMessage(ctx, thread.ID, helpText)
	default:
		return nil
	}
}

func splitCommand(text string) (string, string) {
	command, args, _ := strings.Cut(text, " ")
	return command, strings.TrimSpace(args)
}

func (d *Dispatcher) mentionAll(ctx context.Context, threadID string, state ThreadState) error {
	mentions := make([]string, 0, len(state.Members))
	for _, id := range state.Members {
		user, err := d.client.ResolveUser(ctx, id)
		if err != nil {
			d.logger.Warn("mention_resolve_failed", "thread_id", threadID, "user_id", id, "error", err.Error())
			d.notifyOwner(ctx, threadID)
			continue
		}
		mentions = append(mentions, "@"+user.DisplayName)
	}

	for start := 0; start < len(mentions); start += mentionBatchSize {
		if start > 0 {
			if err := d.sleep(ctx, mentionPaceMin, mentionPaceMax); err != nil {
				return err
			}
		}
		end := min(start+mentionBatchSize, len(mentions))
		if err := d.client.SendMessage(ctx, threadID, strings.Join(mentions[start:end], " ")); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) setWelcome(ctx context.Context, threadID, args string) error {
	tmpl, err := ParseWelcomeTemplate(args)
	if err != nil {
		return d.client.SendMessage(ctx, threadID, "Welcome message must contain exactly one {} placeholder for the username.")
	}
	if _, err := d.store.Mutate(threadID, func(s *ThreadState) {
		s.WelcomeMessage = tmpl.String()
	}); err != nil {
		return err
	}
	return d.client.SendMessage(ctx, threadID, "Welcome message updated.")
}

func (d *Dispatcher) updateAdmins(ctx context.Context, thread ThreadDescriptor) error {
	changed, err := d.reconciler.RefreshAdmins(thread)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return d.client.SendMessage(ctx, thread.ID, "Admin list updated.")
}

func (d *Dispatcher) notifyOwner(ctx context.Context, threadID string) {
	text := fmt.Sprintf("Error mentioning everyone. Contact @%s", d.owner)
	if err := d.client.SendMessage(ctx, threadID, text); err != nil {
		d.logger.Warn("owner_notice_failed", "thread_id", threadID, "error", err.Error())
	}
}
