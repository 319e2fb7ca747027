package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/gophchat/internal/chatinput"
	"github.com/dmitrijs2005/gophchat/internal/uploads"
)

// console serialises writes from the REPL and from upload notifications.
type console struct {
	mu sync.Mutex
	w  io.Writer
}

func (c *console) Println(a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, a...)
}

func (c *console) Printf(format string, a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, format, a...)
}

// uploadNotifier reports upload state changes delivered by the input observer.
type uploadNotifier struct {
	out  *console
	mu   sync.Mutex
	seen map[string]uploads.State
}

func newUploadNotifier(out *console) *uploadNotifier {
	return &uploadNotifier{out: out, seen: map[string]uploads.State{}}
}

func (n *uploadNotifier) observe(s chatinput.Snapshot) {
	n.mu.Lock()
	defer n.mu.Unlock()

	current := make(map[string]struct{}, len(s.Files))
	defer func() {
		for id := range n.seen {
			if _, ok := current[id]; !ok {
				delete(n.seen, id)
			}
		}
	}()

	for _, f := range s.Files {
		current[f.ID] = struct{}{}
		prev, ok := n.seen[f.ID]
		n.seen[f.ID] = f.State
		if ok && prev == f.State {
			continue
		}
		switch f.State {
		case uploads.StateUploaded:
			n.out.Printf("uploaded %s (%s)\n", f.Name, humanSize(f.Size))
		case uploads.StateFailed:
			n.out.Printf("upload of %s failed: %v\n", f.Name, f.Err)
		}
	}
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func printRejections(out *console, rejected []uploads.Rejection) {
	for _, r := range rejected {
		out.Printf("rejected %s: %s\n", r.Name, r.Reason)
	}
}

func printFiles(out *console, files []uploads.Entry) {
	if len(files) == 0 {
		out.Println("no files attached")
		return
	}
	for i, f := range files {
		line := fmt.Sprintf("%d. %s  %s  %s", i+1, f.Name, humanSize(f.Size), f.State)
		if f.State == uploads.StateFailed && f.Err != nil {
			line += "  (" + f.Err.Error() + ")"
		}
		out.Println(line)
	}
}
