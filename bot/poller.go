package bot

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	defaultPollMin    = 10 * time.Second
	defaultPollMax    = 15 * time.Second
	defaultBackoffMin = 20 * time.Second
	defaultBackoffMax = 30 * time.Second
)

// Poller walks every group thread once per cycle: reconcile, diff membership,
// dedup messages, dispatch commands, advance the watermark. A failed cycle is
// abandoned (individual components keep whatever they already persisted) and
// the loop sleeps a longer, jittered backoff before trying again. The loop
// only stops when ctx is canceled.
type Poller struct {
	client     Client
	store      Store
	reconciler *Reconciler
	differ     *Differ
	dispatcher *Dispatcher
	logger     *slog.Logger
	sleep      SleepFunc

	pollMin    time.Duration
	pollMax    time.Duration
	backoffMin time.Duration
	backoffMax time.Duration
}

type PollerOptions struct {
	Client     Client
	Store      Store
	Reconciler *Reconciler
	Differ     *Differ
	Dispatcher *Dispatcher
	Logger     *slog.Logger
	Sleep      SleepFunc

	PollMin    time.Duration
	PollMax    time.Duration
	BackoffMin time.Duration
	BackoffMax time.Duration
}

func NewPoller(opts PollerOptions) *Poller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	p := &Poller{
		client:     opts.Client,
		store:      opts.Store,
		reconciler: opts.Reconciler,
		differ:     opts.Differ,
		dispatcher: opts.Dispatcher,
		logger:     logger,
		sleep:      defaultSleep(opts.Sleep),
		pollMin:    opts.PollMin,
		pollMax:    opts.PollMax,
		backoffMin: opts.BackoffMin,
		backoffMax: opts.BackoffMax,
	}
	if p.pollMin <= 0 {
		p.pollMin = defaultPollMin
	}
	if p.pollMax < p.pollMin {
		p.pollMax = defaultPollMax
	}
	if p.backoffMin <= 0 {
		p.backoffMin = defaultBackoffMin
	}
	if p.backoffMax < p.backoffMin {
		p.backoffMax = defaultBackoffMax
	}
	return p
}

func (p *Poller) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		cycleID := uuid.NewString()
		if err := p.Cycle(ctx, cycleID); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Warn("poll_cycle_failed", "cycle_id", cycleID, "error", err.Error())
			if err := p.sleep(ctx, p.backoffMin, p.backoffMax); err != nil {
				return err
			}
			continue
		}
		if err := p.sleep(ctx, p.pollMin, p.pollMax); err != nil {
			return err
		}
	}
}

// Cycle performs one pass over all group threads in platform listing order.
func (p *Poller) Cycle(ctx context.Context, cycleID string) error {
	threads, err := p.client.ListThreads(ctx)
	if err != nil {
		return err
	}
	for _, thread := range threads {
		if !thread.IsGroup {
			continue
		}
		if err := p.processThread(ctx, thread); err != nil {
			return err
		}
	}
	p.logger.Debug("poll_cycle_done", "cycle_id", cycleID, "threads", len(threads))
	return nil
}

func (p *Poller) processThread(ctx context.Context, thread ThreadDescriptor) error {
	if _, err := p.reconciler.EnsureThread(thread); err != nil {
		return err
	}
	if err := p.differ.Sync(ctx, thread); err != nil {
		return err
	}

	history, err := p.client.FetchMessages(ctx, thread.ID)
	if err != nil {
		return err
	}
	state, ok := p.store.Get(thread.ID)
	if !ok {
		return ErrUnknownThread
	}
	batch := FilterNew(history, p.client.SelfID(), state.LastProcessedMessageID)
	if len(batch) == 0 {
		return nil
	}

	for _, msg := range batch {
		if err := p.dispatcher.Handle(ctx, thread, msg.AuthorID, msg.Text); err != nil {
			return err
		}
	}

	// One watermark write per thread per cycle, to the newest message seen.
	newest := batch[len(batch)-1].ID
	if _, err := p.store.Mutate(thread.ID, func(s *ThreadState) {
		s.LastProcessedMessageID = newest
	}); err != nil {
		return err
	}
	return nil
}
