package chatinput

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/gophchat/internal/filetype"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/uploads"
)

var (
	ErrNotSubmittable = errors.New("nothing to submit")
	ErrDisabled       = errors.New("chat input is disabled")
	ErrSinkFailure    = errors.New("sink rejected value")
	ErrClosed         = errors.New("chat input closed")
	ErrAlreadyRunning = errors.New("chat input already running")
)

// Config describes one chat input.
type Config struct {
	Element   Element
	Mode      uploads.AcceptMode
	FileTypes filetype.Constraint
	// MaxUploadSize is the per-file limit in bytes; zero means unlimited.
	MaxUploadSize int64
	// MaxChars limits the text buffer in runes; zero means unlimited.
	MaxChars   int
	Disabled   bool
	FragmentID string
}

// Focus is the part of the input that holds keyboard focus.
type Focus int

const (
	FocusNone Focus = iota
	FocusText
)

// Phase of the submission state machine. Submitting only exists while a
// value is assembled and handed to the sink.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
)

// Snapshot is a point-in-time copy of the input state.
type Snapshot struct {
	Text        string
	Files       []uploads.Entry
	Dirty       bool
	Submittable bool
	Focus       Focus
	Phase       Phase
}

// Observer is called from the event loop after every state change that was
// not caused by a direct method call, i.e. upload completions. It must not
// call back into the Input.
type Observer func(Snapshot)

// Input owns the state of one chat input: the text buffer and the upload
// queue. All state lives on the goroutine running Run; the exported methods
// post work to it and wait for the answer.
type Input struct {
	cfg       Config
	transport uploads.Transport
	sink      Sink
	logger    logging.Logger
	observer  Observer

	queue *uploads.Queue
	text  string
	focus Focus
	phase Phase

	runCtx   context.Context
	requests chan func()
	stopped  chan struct{}
	running  atomic.Bool
	bg       sync.WaitGroup
}

// Option customizes an Input.
type Option func(*Input)

// WithLogger sets the logger; the default discards.
func WithLogger(l logging.Logger) Option {
	return func(in *Input) { in.logger = l }
}

// WithObserver registers a callback for asynchronous state changes.
func WithObserver(o Observer) Option {
	return func(in *Input) { in.observer = o }
}

// New builds an Input. transport may be nil only when the input accepts no
// files.
func New(cfg Config, transport uploads.Transport, sink Sink, opts ...Option) (*Input, error) {
	if sink == nil {
		return nil, errors.New("chatinput: sink is required")
	}
	if err := cfg.Mode.Validate(); err != nil {
		return nil, err
	}
	if cfg.Mode.AcceptsFiles() && transport == nil {
		return nil, fmt.Errorf("chatinput: transport is required for accept mode %s", cfg.Mode)
	}

	in := &Input{
		cfg:       cfg,
		transport: transport,
		sink:      sink,
		logger:    logging.Discard(),
		requests:  make(chan func()),
		stopped:   make(chan struct{}),
	}
	for _, o := range opts {
		o(in)
	}
	in.logger = in.logger.With("module", "chat_input", "element_id", cfg.Element.ID)

	q, err := uploads.NewQueue(uploads.Options{
		Mode:          cfg.Mode,
		Types:         cfg.FileTypes,
		MaxUploadSize: cfg.MaxUploadSize,
		Logger:        in.logger,
	})
	if err != nil {
		return nil, err
	}
	in.queue = q

	return in, nil
}

// Run processes events until ctx is done. Uploads started by the input are
// bound to ctx and are cancelled when Run returns.
func (in *Input) Run(ctx context.Context) error {
	if !in.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	in.runCtx = ctx

	defer func() {
		in.queue.Close()
		in.bg.Wait()
		close(in.stopped)
	}()

	in.logger.Debug(ctx, "event loop started")

	for {
		select {
		case <-ctx.Done():
			in.logger.Debug(ctx, "event loop stopped")
			return nil
		case fn := <-in.requests:
			fn()
		case c := <-in.queue.Completions():
			if in.queue.Apply(c) && in.observer != nil {
				in.observer(in.snapshot())
			}
		}
	}
}

// do runs fn on the event loop and waits for it to finish.
func (in *Input) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	req := func() {
		defer close(done)
		fn()
	}

	select {
	case in.requests <- req:
	case <-in.stopped:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	<-done
	return nil
}

// SetText replaces the text buffer, truncated to MaxChars.
func (in *Input) SetText(ctx context.Context, text string) error {
	var err error
	if e := in.do(ctx, func() {
		if in.cfg.Disabled {
			err = ErrDisabled
			return
		}
		in.text = truncate(text, in.cfg.MaxChars)
	}); e != nil {
		return e
	}
	return err
}

// Key feeds one key press. Enter without Shift is a submit intent from the
// user; its outcome is returned as from Submit. Other keys edit the buffer.
func (in *Input) Key(ctx context.Context, ev KeyEvent) (Value, bool, error) {
	var (
		v         Value
		submitted bool
		err       error
	)
	if e := in.do(ctx, func() {
		if in.cfg.Disabled {
			err = ErrDisabled
			return
		}
		switch ev.Key {
		case KeyEnter:
			if ev.Shift {
				in.text = truncate(in.text+"\n", in.cfg.MaxChars)
				return
			}
			v, err = in.submit(ctx, OriginUser)
			submitted = err == nil || errors.Is(err, ErrSinkFailure)
		case KeyRune:
			in.text = truncate(in.text+string(ev.Rune), in.cfg.MaxChars)
		case KeyBackspace:
			if r := []rune(in.text); len(r) > 0 {
				in.text = string(r[:len(r)-1])
			}
		default:
			err = fmt.Errorf("chatinput: unhandled key %d", int(ev.Key))
		}
	}); e != nil {
		return Value{}, false, e
	}
	return v, submitted, err
}

// SelectFiles adds a file selection and starts uploading the accepted files.
// Rejected candidates are returned for user feedback.
func (in *Input) SelectFiles(ctx context.Context, candidates []uploads.Candidate) ([]uploads.Rejection, error) {
	var (
		rejected []uploads.Rejection
		err      error
	)
	if e := in.do(ctx, func() {
		if in.cfg.Disabled {
			err = ErrDisabled
			return
		}

		res := in.queue.AddFiles(candidates)
		for _, d := range res.Displaced {
			in.release(d)
		}
		for _, r := range res.Rejected {
			in.logger.Warn(ctx, "file rejected", "name", r.Name, "reason", r.Reason)
		}
		for _, a := range res.Added {
			if serr := in.queue.StartUpload(in.runCtx, a.ID, in.transport); serr != nil {
				in.logger.Error(ctx, "cannot start upload", "entry_id", a.ID, "error", serr)
			}
		}
		rejected = res.Rejected
	}); e != nil {
		return nil, e
	}
	return rejected, err
}

// RemoveFile drops one attached file. A running upload is cancelled; an
// uploaded file is released on the server in the background.
func (in *Input) RemoveFile(ctx context.Context, id string) error {
	var err error
	if e := in.do(ctx, func() {
		if in.cfg.Disabled {
			err = ErrDisabled
			return
		}
		removed, ok := in.queue.Remove(id)
		if !ok {
			err = fmt.Errorf("%w: %s", uploads.ErrEntryNotFound, id)
			return
		}
		in.release(removed)
	}); e != nil {
		return e
	}
	return err
}

// RetryUpload restarts a failed upload.
func (in *Input) RetryUpload(ctx context.Context, id string) error {
	var err error
	if e := in.do(ctx, func() {
		if in.cfg.Disabled {
			err = ErrDisabled
			return
		}
		err = in.queue.StartUpload(in.runCtx, id, in.transport)
	}); e != nil {
		return e
	}
	return err
}

// Submit hands the current value to the sink if the input is submittable,
// then clears the text and the attached files and focuses the text field.
// Without anything to submit it returns ErrNotSubmittable and changes nothing.
func (in *Input) Submit(ctx context.Context, origin Origin) (Value, error) {
	var (
		v   Value
		err error
	)
	if e := in.do(ctx, func() {
		if in.cfg.Disabled {
			err = ErrDisabled
			return
		}
		v, err = in.submit(ctx, origin)
	}); e != nil {
		return Value{}, e
	}
	return v, err
}

func (in *Input) submit(ctx context.Context, origin Origin) (Value, error) {
	entries := in.queue.Entries()
	if !IsSubmittable(in.text, entries) {
		return Value{}, ErrNotSubmittable
	}

	in.phase = PhaseSubmitting
	defer func() { in.phase = PhaseIdle }()

	v := assemble(in.text, entries)
	opts := SetValueOptions{FromUI: origin == OriginUser, FragmentID: in.cfg.FragmentID}

	sinkErr := in.sink.SetValue(ctx, in.cfg.Element, v, opts)

	in.text = ""
	in.queue.Reset()
	in.focus = FocusText

	if sinkErr != nil {
		in.logger.Error(ctx, "sink failed", "error", sinkErr)
		return v, fmt.Errorf("%w: %w", ErrSinkFailure, sinkErr)
	}

	in.logger.Info(ctx, "value submitted", "files", len(v.FileUploaderState.UploadedFileInfo), "from_ui", opts.FromUI)
	return v, nil
}

// Snapshot returns the current state.
func (in *Input) Snapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	if err := in.do(ctx, func() { s = in.snapshot() }); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

func (in *Input) snapshot() Snapshot {
	entries := in.queue.Entries()
	return Snapshot{
		Text:        in.text,
		Files:       entries,
		Dirty:       IsDirty(in.text, entries),
		Submittable: IsSubmittable(in.text, entries),
		Focus:       in.focus,
		Phase:       in.phase,
	}
}

// release deletes the remote copy of an uploaded entry that left the queue
// without being submitted.
func (in *Input) release(e uploads.Entry) {
	if e.State != uploads.StateUploaded || e.Ref.FileID == "" {
		return
	}

	ctx := in.runCtx
	in.bg.Add(1)
	go func() {
		defer in.bg.Done()
		if err := in.transport.DeleteFile(ctx, e.Ref); err != nil {
			in.logger.Warn(ctx, "cannot release uploaded file", "file_id", e.Ref.FileID, "error", err)
		}
	}()
}
