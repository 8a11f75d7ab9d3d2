// Package circulation implements the circulation desk: a single-consumer FIFO
// queue of extraction/compendium/reorganization jobs that delegates to a caller-supplied
// Librarian hook without ever blocking the enqueuer.
package circulation

import (
	"context"
	"sync"

	"github.com/shmor3/library/pkg/librarylog"
)

// JobKind enumerates the three job variants.
type JobKind string

const (
	JobExtraction     JobKind = "extraction"
	JobCompendium     JobKind = "compendium"
	JobReorganization JobKind = "reorganization"
)

// Job is a single queued unit of curation work. Exactly one of TurnContext/Topic is
// meaningful, depending on Kind.
type Job struct {
	Kind        JobKind
	TurnContext any    // extraction: the conversation turn payload
	Topic       string // compendium/reorganization: the topic path
}

// Config tunes the desk's thresholds.
type Config struct {
	MinEntries         int // compendium runs only when the topic has >= this many volumes, default 10
	MaxVolumesPerTopic int // reorganization runs only when the topic has >= this many volumes, default 30
	Logger             librarylog.Logger
}

// DefaultConfig returns the desk's default thresholds.
func DefaultConfig() Config {
	return Config{MinEntries: 10, MaxVolumesPerTopic: 30, Logger: librarylog.Nop()}
}

// Desk is the single-consumer FIFO job queue.
type Desk struct {
	mu        sync.Mutex
	cfg       Config
	queue     []Job
	librarian Librarian
}

// New constructs a Desk bound to librarian.
func New(cfg Config, librarian Librarian) *Desk {
	if cfg.Logger == nil {
		cfg.Logger = librarylog.Nop()
	}
	return &Desk{cfg: cfg, librarian: librarian}
}

// EnqueueExtraction queues an extraction job; returns immediately.
func (d *Desk) EnqueueExtraction(turnContext any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = append(d.queue, Job{Kind: JobExtraction, TurnContext: turnContext})
}

// EnqueueCompendium queues a compendium job for topic; returns immediately.
func (d *Desk) EnqueueCompendium(topic string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = append(d.queue, Job{Kind: JobCompendium, Topic: topic})
}

// EnqueueReorganization queues a reorganization job for topic; returns immediately.
func (d *Desk) EnqueueReorganization(topic string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = append(d.queue, Job{Kind: JobReorganization, Topic: topic})
}

// Drain processes queued jobs sequentially until empty or ctx is cancelled. Job failures are
// logged and dropped; they never propagate to the enqueuer.
func (d *Desk) Drain(ctx context.Context) {
	for {
		job, ok := d.pop()
		if !ok {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		d.run(ctx, job)
	}
}

func (d *Desk) pop() (Job, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) == 0 {
		return Job{}, false
	}
	job := d.queue[0]
	d.queue = d.queue[1:]
	return job, true
}

// Dispose drops every pending job without running it.
func (d *Desk) Dispose() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = nil
}

// Pending returns the number of jobs currently queued.
func (d *Desk) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

func (d *Desk) run(ctx context.Context, job Job) {
	switch job.Kind {
	case JobExtraction:
		d.runExtraction(ctx, job.TurnContext)
	case JobCompendium:
		d.runCompendium(ctx, job.Topic)
	case JobReorganization:
		d.runReorganization(ctx, job.Topic)
	}
}

func (d *Desk) runExtraction(ctx context.Context, turnContext any) {
	facts, err := d.librarian.ExtractFacts(ctx, turnContext)
	if err != nil {
		d.cfg.Logger.Warn("extraction job failed", "err", err)
		return
	}
	for _, fact := range facts {
		if dupeID, _, found := d.librarian.CheckDuplicate(fact.Embedding, fact.DedupThreshold); found {
			librarylog.WithVolume(d.cfg.Logger, dupeID).Debug("extraction skipped duplicate")
			continue
		}
		if _, err := d.librarian.AddVolume(ctx, fact.Text, fact.Embedding, fact.Metadata); err != nil {
			d.cfg.Logger.Warn("extraction job failed to add fact", "err", err)
		}
	}
}

func (d *Desk) runCompendium(ctx context.Context, topic string) {
	count := d.librarian.TopicSize(topic)
	if count < d.cfg.MinEntries {
		return
	}
	if err := d.librarian.ProposeCompendium(ctx, topic); err != nil {
		librarylog.WithTopic(d.cfg.Logger, topic).Warn("compendium job failed", "err", err)
	}
}

func (d *Desk) runReorganization(ctx context.Context, topic string) {
	count := d.librarian.TopicSize(topic)
	if count < d.cfg.MaxVolumesPerTopic {
		return
	}
	plan, err := d.librarian.ProposeReorganization(ctx, topic)
	if err != nil {
		librarylog.WithTopic(d.cfg.Logger, topic).Warn("reorganization job failed", "err", err)
		return
	}
	for _, move := range plan.Relocations {
		d.librarian.Relocate(move.From, move.To)
	}
	for _, merge := range plan.Merges {
		d.librarian.Merge(merge.From, merge.To)
	}
}
