package uploads

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/filetype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type result struct {
	ref Ref
	err error
}

// gatedTransport blocks every upload until the test releases it by name.
type gatedTransport struct {
	mu      sync.Mutex
	gates   map[string]chan result
	started []string
}

func newGatedTransport() *gatedTransport {
	return &gatedTransport{gates: make(map[string]chan result)}
}

func (g *gatedTransport) gate(name string) chan result {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[name]
	if !ok {
		ch = make(chan result, 1)
		g.gates[name] = ch
	}
	return ch
}

func (g *gatedTransport) release(name string, ref Ref, err error) {
	g.gate(name) <- result{ref: ref, err: err}
}

func (g *gatedTransport) UploadFile(ctx context.Context, c Candidate) (Ref, error) {
	g.mu.Lock()
	g.started = append(g.started, c.Name)
	g.mu.Unlock()

	select {
	case r := <-g.gate(c.Name):
		return r.ref, r.err
	case <-ctx.Done():
		return Ref{}, ctx.Err()
	}
}

func (g *gatedTransport) DeleteFile(ctx context.Context, ref Ref) error {
	return nil
}

func newQueue(t *testing.T, opts Options) *Queue {
	t.Helper()
	q, err := NewQueue(opts)
	require.NoError(t, err)
	t.Cleanup(q.Close)
	return q
}

func nextCompletion(t *testing.T, q *Queue) Completion {
	t.Helper()
	select {
	case c := <-q.Completions():
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for upload completion")
		return Completion{}
	}
}

func names(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func TestNewQueue_InvalidMode(t *testing.T) {
	_, err := NewQueue(Options{Mode: AcceptMode(42)})
	require.ErrorIs(t, err, ErrInvalidAcceptMode)
}

func TestAddFiles_DirectoryWithTypeFilter(t *testing.T) {
	q := newQueue(t, Options{Mode: AcceptDirectory, Types: filetype.Normalize([]string{"txt"})})

	res := q.AddFiles([]Candidate{
		{Name: "notes.txt", RelativePath: "docs/notes.txt", MediaType: "text/plain"},
		{Name: "paper.pdf", RelativePath: "docs/paper.pdf", MediaType: "application/pdf"},
	})

	require.Len(t, res.Added, 1)
	assert.Equal(t, "docs/notes.txt", res.Added[0].Name)
	assert.Equal(t, StatePending, res.Added[0].State)

	require.Len(t, res.Rejected, 1)
	assert.Equal(t, "docs/paper.pdf", res.Rejected[0].Name)
	assert.Equal(t, "application/pdf files are not allowed.", res.Rejected[0].Reason)
	assert.ErrorIs(t, res.Rejected[0].Err, filetype.ErrNotAllowed)

	assert.Equal(t, []string{"docs/notes.txt"}, names(q.Entries()))
}

func TestAddFiles_DirectoryKeepsRelativePaths(t *testing.T) {
	q := newQueue(t, Options{Mode: AcceptDirectory})

	q.AddFiles([]Candidate{
		{Name: "readme.txt", RelativePath: "root/a/readme.txt"},
		{Name: "readme.txt", RelativePath: `root\b\readme.txt`},
		{Name: "top.txt"},
	})

	entries := q.Entries()
	assert.Equal(t, []string{"root/a/readme.txt", "root/b/readme.txt", "top.txt"}, names(entries))
	for _, e := range entries {
		assert.Equal(t, e.Name, e.Candidate().UploadName())
	}
}

func TestAddFiles_MultipleUsesBaseName(t *testing.T) {
	q := newQueue(t, Options{Mode: AcceptMultiple})

	q.AddFiles([]Candidate{{Name: "a.txt", RelativePath: "x/a.txt"}})
	q.AddFiles([]Candidate{{Name: "b.txt"}})

	entries := q.Entries()
	assert.Equal(t, []string{"a.txt", "b.txt"}, names(entries))
	assert.Equal(t, "a.txt", entries[0].Candidate().UploadName())
}

func TestAddFiles_NoneRejectsEverything(t *testing.T) {
	q := newQueue(t, Options{Mode: AcceptNone})

	res := q.AddFiles([]Candidate{{Name: "a.txt"}, {Name: "b.txt"}})

	assert.Empty(t, res.Added)
	require.Len(t, res.Rejected, 2)
	for _, r := range res.Rejected {
		assert.ErrorIs(t, r.Err, ErrFilesNotAccepted)
	}
	assert.Zero(t, q.Len())
}

func TestAddFiles_SingleReplacesPrevious(t *testing.T) {
	q := newQueue(t, Options{Mode: AcceptSingle})

	first := q.AddFiles([]Candidate{{Name: "one.txt"}})
	require.Len(t, first.Added, 1)

	second := q.AddFiles([]Candidate{{Name: "two.txt"}, {Name: "three.txt"}})
	require.Len(t, second.Added, 1)
	require.Len(t, second.Displaced, 1)
	assert.Equal(t, first.Added[0].ID, second.Displaced[0].ID)
	require.Len(t, second.Rejected, 1)
	assert.Equal(t, "three.txt", second.Rejected[0].Name)

	assert.Equal(t, []string{"two.txt"}, names(q.Entries()))
}

func TestAddFiles_SingleKeepsQueueWhenAllRejected(t *testing.T) {
	q := newQueue(t, Options{Mode: AcceptSingle, Types: filetype.Constraint{".txt"}})

	q.AddFiles([]Candidate{{Name: "one.txt"}})
	res := q.AddFiles([]Candidate{{Name: "two.json", MediaType: "application/json"}})

	assert.Empty(t, res.Displaced)
	assert.Equal(t, []string{"one.txt"}, names(q.Entries()))
}

func TestAddFiles_TooLarge(t *testing.T) {
	q := newQueue(t, Options{Mode: AcceptMultiple, MaxUploadSize: 1 << 20})

	res := q.AddFiles([]Candidate{
		{Name: "large.txt", Size: 2 << 20},
		{Name: "small.txt", Size: 10},
	})

	require.Len(t, res.Rejected, 1)
	assert.Equal(t, "File must be 1.0MB or smaller.", res.Rejected[0].Reason)
	assert.ErrorIs(t, res.Rejected[0].Err, ErrFileTooLarge)
	assert.Equal(t, []string{"small.txt"}, names(q.Entries()))
}

func TestUpload_SelectionOrderSurvivesCompletionOrder(t *testing.T) {
	tr := newGatedTransport()
	q := newQueue(t, Options{Mode: AcceptMultiple})
	ctx := context.Background()

	res := q.AddFiles([]Candidate{{Name: "A.txt"}, {Name: "B.txt"}})
	for _, e := range res.Added {
		require.NoError(t, q.StartUpload(ctx, e.ID, tr))
	}

	tr.release("B.txt", Ref{FileID: "fb"}, nil)
	require.True(t, q.Apply(nextCompletion(t, q)))
	assert.Equal(t, []string{"A.txt", "B.txt"}, names(q.Entries()))

	tr.release("A.txt", Ref{FileID: "fa"}, nil)
	require.True(t, q.Apply(nextCompletion(t, q)))

	entries := q.Entries()
	assert.Equal(t, []string{"A.txt", "B.txt"}, names(entries))
	assert.Equal(t, StateUploaded, entries[0].State)
	assert.Equal(t, "fa", entries[0].Ref.FileID)
	assert.Equal(t, StateUploaded, entries[1].State)
	assert.Equal(t, "fb", entries[1].Ref.FileID)
}

func TestUpload_FailureIsolatedToEntry(t *testing.T) {
	tr := newGatedTransport()
	q := newQueue(t, Options{Mode: AcceptMultiple})
	ctx := context.Background()

	res := q.AddFiles([]Candidate{{Name: "bad.txt"}, {Name: "good.txt"}})
	for _, e := range res.Added {
		require.NoError(t, q.StartUpload(ctx, e.ID, tr))
	}

	boom := errors.New("boom")
	tr.release("bad.txt", Ref{}, boom)
	require.True(t, q.Apply(nextCompletion(t, q)))

	bad, ok := q.Get(res.Added[0].ID)
	require.True(t, ok)
	assert.Equal(t, StateFailed, bad.State)
	assert.ErrorIs(t, bad.Err, boom)

	good, _ := q.Get(res.Added[1].ID)
	assert.Equal(t, StateUploading, good.State)

	tr.release("good.txt", Ref{FileID: "g"}, nil)
	require.True(t, q.Apply(nextCompletion(t, q)))
	good, _ = q.Get(res.Added[1].ID)
	assert.Equal(t, StateUploaded, good.State)
}

func TestUpload_RemoveMidUploadIgnoresCompletion(t *testing.T) {
	tr := newGatedTransport()
	q := newQueue(t, Options{Mode: AcceptMultiple})
	ctx := context.Background()

	res := q.AddFiles([]Candidate{{Name: "A.txt"}, {Name: "B.txt"}})
	for _, e := range res.Added {
		require.NoError(t, q.StartUpload(ctx, e.ID, tr))
	}

	removed, ok := q.Remove(res.Added[0].ID)
	require.True(t, ok)
	assert.Equal(t, StateUploading, removed.State)

	// The removal cancels A's upload, whose completion still arrives.
	c := nextCompletion(t, q)
	require.Equal(t, res.Added[0].ID, c.EntryID)
	assert.ErrorIs(t, c.Err, context.Canceled)
	assert.False(t, q.Apply(c))

	entries := q.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "B.txt", entries[0].Name)
	assert.Equal(t, StateUploading, entries[0].State)

	tr.release("B.txt", Ref{FileID: "fb"}, nil)
	require.True(t, q.Apply(nextCompletion(t, q)))
	b, _ := q.Get(res.Added[1].ID)
	assert.Equal(t, StateUploaded, b.State)
}

func TestUpload_RetryAfterFailure(t *testing.T) {
	tr := newGatedTransport()
	q := newQueue(t, Options{Mode: AcceptSingle})
	ctx := context.Background()

	res := q.AddFiles([]Candidate{{Name: "a.txt"}})
	id := res.Added[0].ID

	require.NoError(t, q.StartUpload(ctx, id, tr))
	require.ErrorIs(t, q.StartUpload(ctx, id, tr), ErrUploadInProgress)

	tr.release("a.txt", Ref{}, errors.New("flaky"))
	require.True(t, q.Apply(nextCompletion(t, q)))

	require.NoError(t, q.StartUpload(ctx, id, tr))
	tr.release("a.txt", Ref{FileID: "f"}, nil)
	require.True(t, q.Apply(nextCompletion(t, q)))

	e, _ := q.Get(id)
	assert.Equal(t, StateUploaded, e.State)
	assert.NoError(t, e.Err)
}

func TestStartUpload_UnknownEntry(t *testing.T) {
	q := newQueue(t, Options{Mode: AcceptMultiple})
	require.ErrorIs(t, q.StartUpload(context.Background(), "nope", newGatedTransport()), ErrEntryNotFound)
}

func TestReset_ClearsAndCancels(t *testing.T) {
	tr := newGatedTransport()
	q := newQueue(t, Options{Mode: AcceptMultiple})

	res := q.AddFiles([]Candidate{{Name: "a.txt"}, {Name: "b.txt"}})
	require.NoError(t, q.StartUpload(context.Background(), res.Added[0].ID, tr))

	q.Reset()
	assert.Zero(t, q.Len())

	c := nextCompletion(t, q)
	assert.ErrorIs(t, c.Err, context.Canceled)
	assert.False(t, q.Apply(c))
	assert.Zero(t, q.Len())
}

func TestClose_NoGoroutineLeak(t *testing.T) {
	defer goleak.VerifyNone(t)

	tr := newGatedTransport()
	q, err := NewQueue(Options{Mode: AcceptMultiple})
	require.NoError(t, err)

	res := q.AddFiles([]Candidate{{Name: "a.txt"}, {Name: "b.txt"}})
	for _, e := range res.Added {
		require.NoError(t, q.StartUpload(context.Background(), e.ID, tr))
	}

	q.Close()
	require.ErrorIs(t, q.StartUpload(context.Background(), res.Added[0].ID, tr), ErrQueueClosed)
}
