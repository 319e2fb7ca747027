// Package uploads tracks the files attached to one chat input: which
// candidates were accepted, the order they were selected in, and where each
// upload stands.
//
// A Queue is owned by a single goroutine. Uploads run concurrently in their
// own goroutines, but they never touch the queue: each one posts a Completion
// to the channel returned by Completions, and the owner applies it with Apply.
// Entries are addressed by a stable ID, so a completion that races with a
// removal can never land on a different entry.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophchat/internal/filetype"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/google/uuid"
)

var (
	ErrFileTooLarge     = errors.New("file too large")
	ErrFilesNotAccepted = errors.New("files not accepted")
	ErrEntryNotFound    = errors.New("upload entry not found")
	ErrUploadInProgress = errors.New("upload already in progress")
	ErrQueueClosed      = errors.New("upload queue closed")
)

// Options configure a Queue.
type Options struct {
	Mode  AcceptMode
	Types filetype.Constraint
	// MaxUploadSize is the per-file limit in bytes. Zero disables the check.
	MaxUploadSize int64
	Logger        logging.Logger
}

// AddResult reports what AddFiles did with a selection.
type AddResult struct {
	Added    []Entry
	Rejected []Rejection
	// Displaced holds entries dropped because a single-file input received a
	// new file. Their uploads have been cancelled; uploaded ones may need to
	// be released remotely by the caller.
	Displaced []Entry
}

type Queue struct {
	opts   Options
	logger logging.Logger

	entries  []*Entry
	attempts map[string]int
	inflight map[string]context.CancelFunc

	completions chan Completion
	done        chan struct{}
	closeOnce   sync.Once
	wg          sync.WaitGroup
}

// NewQueue creates an empty queue. It fails for an invalid accept mode.
func NewQueue(opts Options) (*Queue, error) {
	if err := opts.Mode.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Queue{
		opts:        opts,
		logger:      logger.With("module", "upload_queue"),
		attempts:    make(map[string]int),
		inflight:    make(map[string]context.CancelFunc),
		completions: make(chan Completion),
		done:        make(chan struct{}),
	}, nil
}

// Mode returns the accept mode the queue was built with.
func (q *Queue) Mode() AcceptMode {
	return q.opts.Mode
}

// AddFiles validates the candidates and appends the accepted ones as pending
// entries, in selection order. Rejected candidates are returned and never
// enter the queue.
func (q *Queue) AddFiles(candidates []Candidate) AddResult {
	var res AddResult

	switch q.opts.Mode {
	case AcceptNone:
		for _, c := range candidates {
			res.Rejected = append(res.Rejected, Rejection{
				Name:   c.Name,
				Reason: "This input does not accept files.",
				Err:    ErrFilesNotAccepted,
			})
		}
		return res
	case AcceptSingle, AcceptMultiple, AcceptDirectory:
	default:
		panic(fmt.Sprintf("uploads: unhandled accept mode %d", int(q.opts.Mode)))
	}

	for _, c := range candidates {
		name := c.DisplayName(q.opts.Mode)

		if rej, ok := q.check(c, name); !ok {
			q.logger.Debug(context.Background(), "candidate rejected", "name", name, "reason", rej.Reason)
			res.Rejected = append(res.Rejected, rej)
			continue
		}

		if q.opts.Mode == AcceptSingle {
			if len(res.Added) > 0 {
				res.Rejected = append(res.Rejected, Rejection{
					Name:   name,
					Reason: "Only one file can be attached.",
					Err:    ErrFilesNotAccepted,
				})
				continue
			}
			res.Displaced = append(res.Displaced, q.drain()...)
		}

		// The transport sees the same name as the user.
		c.RelativePath = ""
		if name != c.Name {
			c.RelativePath = name
		}

		e := &Entry{
			ID:        uuid.NewString(),
			Name:      name,
			Size:      c.Size,
			MediaType: c.MediaType,
			State:     StatePending,
			candidate: c,
		}
		q.entries = append(q.entries, e)
		res.Added = append(res.Added, *e)
	}

	return res
}

func (q *Queue) check(c Candidate, name string) (Rejection, bool) {
	if v := filetype.Validate(name, c.MediaType, q.opts.Types); !v.Valid {
		return Rejection{Name: name, Reason: v.Message, Err: v.Err()}, false
	}

	if q.opts.MaxUploadSize > 0 && c.Size > q.opts.MaxUploadSize {
		reason := fmt.Sprintf("File must be %.1fMB or smaller.", float64(q.opts.MaxUploadSize)/(1<<20))
		return Rejection{Name: name, Reason: reason, Err: fmt.Errorf("%w: %d bytes", ErrFileTooLarge, c.Size)}, false
	}

	return Rejection{}, true
}

// StartUpload moves a pending or failed entry to uploading and runs the
// transport in a new goroutine. ctx bounds the upload; removing the entry,
// resetting or closing the queue cancels it as well.
func (q *Queue) StartUpload(ctx context.Context, id string, t Transport) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}

	e := q.find(id)
	if e == nil {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	if e.State == StateUploading || e.State == StateUploaded {
		return fmt.Errorf("%w: %s", ErrUploadInProgress, id)
	}

	q.attempts[id]++
	attempt := q.attempts[id]

	uctx, cancel := context.WithCancel(ctx)
	q.inflight[id] = cancel

	e.State = StateUploading
	e.Err = nil
	candidate := e.candidate

	q.logger.Debug(ctx, "upload started", "entry_id", id, "name", e.Name, "attempt", attempt)

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()

		ref, err := t.UploadFile(uctx, candidate)
		c := Completion{EntryID: id, Ref: ref, Err: err, attempt: attempt}

		select {
		case q.completions <- c:
		case <-q.done:
		}
	}()

	return nil
}

// Completions delivers upload results. The owner must keep draining it while
// uploads are running and pass every value to Apply.
func (q *Queue) Completions() <-chan Completion {
	return q.completions
}

// Apply records an upload result. It returns false when the result no longer
// belongs to a tracked upload, e.g. because the entry was removed meanwhile.
func (q *Queue) Apply(c Completion) bool {
	e := q.find(c.EntryID)
	if e == nil || e.State != StateUploading || q.attempts[c.EntryID] != c.attempt {
		q.logger.Debug(context.Background(), "stale completion ignored", "entry_id", c.EntryID)
		return false
	}

	if cancel, ok := q.inflight[c.EntryID]; ok {
		cancel()
		delete(q.inflight, c.EntryID)
	}

	if c.Err != nil {
		e.State = StateFailed
		e.Err = c.Err
		q.logger.Warn(context.Background(), "upload failed", "entry_id", e.ID, "name", e.Name, "error", c.Err)
		return true
	}

	e.State = StateUploaded
	e.Ref = c.Ref
	q.logger.Debug(context.Background(), "upload finished", "entry_id", e.ID, "file_id", c.Ref.FileID)
	return true
}

// Remove drops the entry with the given ID whatever its state. An in-flight
// upload is cancelled and its completion will be ignored.
func (q *Queue) Remove(id string) (Entry, bool) {
	for i, e := range q.entries {
		if e.ID != id {
			continue
		}
		q.stop(id)
		q.entries = append(q.entries[:i], q.entries[i+1:]...)
		return *e, true
	}
	return Entry{}, false
}

// Reset clears the queue and cancels every in-flight upload.
func (q *Queue) Reset() {
	q.drain()
}

func (q *Queue) drain() []Entry {
	out := make([]Entry, 0, len(q.entries))
	for _, e := range q.entries {
		q.stop(e.ID)
		out = append(out, *e)
	}
	q.entries = nil
	return out
}

func (q *Queue) stop(id string) {
	if cancel, ok := q.inflight[id]; ok {
		cancel()
		delete(q.inflight, id)
	}
	delete(q.attempts, id)
}

// Close cancels all uploads and waits for their goroutines to exit. The queue
// must not be used afterwards.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
		for id, cancel := range q.inflight {
			cancel()
			delete(q.inflight, id)
		}
	})
	q.wg.Wait()
}

// Entries returns a copy of the tracked entries in selection order.
func (q *Queue) Entries() []Entry {
	out := make([]Entry, len(q.entries))
	for i, e := range q.entries {
		out[i] = *e
	}
	return out
}

// Get returns a copy of one entry.
func (q *Queue) Get(id string) (Entry, bool) {
	if e := q.find(id); e != nil {
		return *e, true
	}
	return Entry{}, false
}

func (q *Queue) Len() int {
	return len(q.entries)
}

func (q *Queue) find(id string) *Entry {
	for _, e := range q.entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}
