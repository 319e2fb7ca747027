package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/chatinput"
	"github.com/dmitrijs2005/gophchat/internal/filex"
	"github.com/dmitrijs2005/gophchat/internal/uploads"
)

const helpText = `Type a message and press Enter to send it. End a line with \ to continue on the next one.
Commands:
  /attach <path>...   attach files
  /attachdir <dir>    attach a directory
  /rm <n>             remove attached file n
  /retry <n>          retry failed upload n
  /files              list attached files
  /send               send the current message
  /history [n]        show recent messages
  /status             show input state
  /help               show this help
  /quit               leave
Start a message with // to send a line beginning with /.`

const defaultHistoryLimit = 10

// errQuit ends the REPL without an error.
var errQuit = errors.New("quit")

func (a *App) repl(ctx context.Context, scanner *bufio.Scanner) error {
	for {
		if a.interactive {
			a.out.Printf("%s> ", a.Mode())
		}
		if !scanner.Scan() {
			return scanner.Err()
		}

		err := a.handleLine(ctx, scanner.Text())
		switch {
		case errors.Is(err, errQuit):
			a.out.Println("Bye!")
			return nil
		case errors.Is(err, chatinput.ErrClosed), errors.Is(err, context.Canceled):
			return nil
		case err != nil:
			a.out.Println("error:", err)
		}
	}
}

// handleLine executes one line of input.
func (a *App) handleLine(ctx context.Context, line string) error {
	if strings.HasPrefix(line, "/") && !strings.HasPrefix(line, "//") {
		return a.command(ctx, strings.Fields(line))
	}
	if strings.HasPrefix(line, "//") {
		line = line[1:]
	}

	s, err := a.input.Snapshot(ctx)
	if err != nil {
		return err
	}

	if cont, ok := strings.CutSuffix(line, `\`); ok {
		if err := a.input.SetText(ctx, s.Text+cont); err != nil {
			return err
		}
		_, _, err := a.input.Key(ctx, chatinput.KeyEvent{Key: chatinput.KeyEnter, Shift: true})
		return err
	}

	if err := a.input.SetText(ctx, s.Text+line); err != nil {
		return err
	}
	v, _, err := a.input.Key(ctx, chatinput.KeyEvent{Key: chatinput.KeyEnter})
	return a.reportSubmit(ctx, v, err)
}

func (a *App) reportSubmit(ctx context.Context, v chatinput.Value, err error) error {
	switch {
	case errors.Is(err, chatinput.ErrNotSubmittable):
		s, serr := a.input.Snapshot(ctx)
		if serr != nil {
			return serr
		}
		if s.Dirty {
			a.out.Println("uploads in progress, message kept; /send once they finish")
		}
		return nil
	case errors.Is(err, chatinput.ErrSinkFailure):
		a.out.Println("message not delivered:", err)
		return nil
	case err != nil:
		return err
	}

	if n := len(v.FileUploaderState.UploadedFileInfo); n > 0 {
		a.out.Printf("sent (%d file(s))\n", n)
	} else {
		a.out.Println("sent")
	}
	return nil
}

func (a *App) command(ctx context.Context, args []string) error {
	switch args[0] {
	case "/help":
		a.out.Println(helpText)
		return nil
	case "/quit", "/exit":
		return errQuit
	case "/attach":
		return a.attach(ctx, args[1:])
	case "/attachdir":
		return a.attachDir(ctx, args[1:])
	case "/rm":
		return a.withFile(ctx, args, a.input.RemoveFile)
	case "/retry":
		return a.withFile(ctx, args, a.input.RetryUpload)
	case "/files":
		s, err := a.input.Snapshot(ctx)
		if err != nil {
			return err
		}
		printFiles(a.out, s.Files)
		return nil
	case "/send":
		v, err := a.input.Submit(ctx, chatinput.OriginUser)
		if errors.Is(err, chatinput.ErrNotSubmittable) {
			a.out.Println("nothing to send yet")
			return nil
		}
		return a.reportSubmit(ctx, v, err)
	case "/history":
		return a.showHistory(ctx, args[1:])
	case "/status":
		return a.status(ctx)
	default:
		a.out.Printf("unknown command %s, try /help\n", args[0])
		return nil
	}
}

func (a *App) selectFiles(ctx context.Context, candidates []uploads.Candidate) error {
	if len(candidates) == 0 {
		return nil
	}
	rejected, err := a.input.SelectFiles(ctx, candidates)
	if err != nil {
		return err
	}
	printRejections(a.out, rejected)
	if n := len(candidates) - len(rejected); n > 0 {
		a.out.Printf("uploading %d file(s)\n", n)
	}
	return nil
}

func (a *App) attach(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		a.out.Println("usage: /attach <path>...")
		return nil
	}

	candidates := make([]uploads.Candidate, 0, len(paths))
	for _, p := range paths {
		c, err := filex.Candidate(p)
		if err != nil {
			a.out.Printf("cannot attach %s: %v\n", p, err)
			continue
		}
		candidates = append(candidates, c)
	}
	return a.selectFiles(ctx, candidates)
}

func (a *App) attachDir(ctx context.Context, args []string) error {
	if len(args) != 1 {
		a.out.Println("usage: /attachdir <dir>")
		return nil
	}

	candidates, err := filex.DirCandidates(args[0])
	if err != nil {
		a.out.Printf("cannot read %s: %v\n", args[0], err)
		return nil
	}
	if len(candidates) == 0 {
		a.out.Println("directory is empty")
		return nil
	}
	return a.selectFiles(ctx, candidates)
}

// withFile resolves the 1-based file number in args[1] and applies fn to it.
func (a *App) withFile(ctx context.Context, args []string, fn func(context.Context, string) error) error {
	if len(args) != 2 {
		a.out.Printf("usage: %s <n>\n", args[0])
		return nil
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		a.out.Printf("not a file number: %s\n", args[1])
		return nil
	}

	s, err := a.input.Snapshot(ctx)
	if err != nil {
		return err
	}
	if n < 1 || n > len(s.Files) {
		a.out.Printf("no file %d\n", n)
		return nil
	}

	if err := fn(ctx, s.Files[n-1].ID); err != nil {
		if errors.Is(err, uploads.ErrUploadInProgress) {
			a.out.Printf("%s: %v\n", s.Files[n-1].Name, err)
			return nil
		}
		return err
	}
	return nil
}

func (a *App) showHistory(ctx context.Context, args []string) error {
	limit := defaultHistoryLimit
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			a.out.Println("usage: /history [n]")
			return nil
		}
		limit = n
	}

	records, err := a.history.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if len(records) == 0 {
		a.out.Println("no messages yet")
		return nil
	}

	for _, r := range records {
		line := fmt.Sprintf("%s  %-6s  %q", r.SubmittedAt.Local().Format("2006-01-02 15:04:05"), r.Status, r.Text)
		if len(r.Files) > 0 {
			line += "  [" + strings.Join(r.Files, ", ") + "]"
		}
		a.out.Println(line)
	}
	return nil
}

func (a *App) status(ctx context.Context) error {
	s, err := a.input.Snapshot(ctx)
	if err != nil {
		return err
	}
	a.out.Printf("mode: %s\ntext: %q\nfiles: %d\ndirty: %t\nsubmittable: %t\n",
		a.Mode(), s.Text, len(s.Files), s.Dirty, s.Submittable)
	return nil
}
