package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/chatinput"
	"github.com/dmitrijs2005/gophchat/internal/client/client"
	"github.com/dmitrijs2005/gophchat/internal/client/config"
	"github.com/dmitrijs2005/gophchat/internal/client/repositories/history"
	"github.com/dmitrijs2005/gophchat/internal/filex"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/uploads"
	"golang.org/x/term"
)

// isTerminal is a seam for term.IsTerminal.
var isTerminal = term.IsTerminal

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// chatElement is the single input the terminal client renders.
var chatElement = chatinput.Element{ID: "chat", Label: "Message"}

// ChatClient is what the terminal needs from the server connection.
type ChatClient interface {
	uploads.Transport
	chatinput.Sink
	Ping(ctx context.Context) error
	Close() error
}

type App struct {
	config      *config.Config
	logger      logging.Logger
	client      ChatClient
	history     history.Repository
	db          *sql.DB
	input       *chatinput.Input
	notifier    *uploadNotifier
	in          io.Reader
	out         *console
	interactive bool

	modeMu sync.Mutex
	mode   Mode
}

// NewApp opens the history database and the server connection.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewLogger(os.Stderr, "text", "warn").With("module", "cli")

	if err := filex.EnsureParentDir(c.HistoryPath); err != nil {
		return nil, fmt.Errorf("history directory: %w", err)
	}

	db, err := client.InitDatabase(ctx, c.HistoryPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	apiClient, err := client.NewChatClient(c.ServerEndpointAddr, client.WithLogger(logger))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	app, err := newApp(c, logger, apiClient, history.NewSQLiteRepository(db), os.Stdin, os.Stdout)
	if err != nil {
		_ = apiClient.Close()
		_ = db.Close()
		return nil, err
	}
	app.db = db
	app.interactive = isTerminal(int(os.Stdin.Fd()))

	return app, nil
}

func newApp(c *config.Config, logger logging.Logger, cc ChatClient, h history.Repository, in io.Reader, out io.Writer) (*App, error) {
	a := &App{
		config:  c,
		logger:  logger,
		client:  cc,
		history: h,
		in:      in,
		out:     &console{w: out},
		mode:    ModeOffline,
	}
	a.notifier = newUploadNotifier(a.out)

	sink := &historySink{next: cc, history: h, logger: logger, now: time.Now}

	input, err := chatinput.New(chatinput.Config{
		Element:       chatElement,
		Mode:          c.AcceptFile,
		FileTypes:     c.Constraint(),
		MaxUploadSize: c.MaxUploadSize(),
		MaxChars:      c.MaxChars,
		FragmentID:    c.FragmentID,
	}, cc, sink, chatinput.WithLogger(logger), chatinput.WithObserver(a.notifier.observe))
	if err != nil {
		return nil, err
	}
	a.input = input

	return a, nil
}

func (a *App) setMode(mode Mode) {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	if a.mode != mode {
		a.mode = mode
		a.out.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) Mode() Mode {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	return a.mode
}

// Run starts the input loop and the connectivity watcher, then reads
// commands until EOF or /quit.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := a.input.Run(ctx); err != nil {
			a.logger.Error(ctx, "input loop", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	}()

	a.out.Println("GophChat (type /help for commands)")
	err := a.repl(ctx, bufio.NewScanner(a.in))

	cancel()
	wg.Wait()

	if cerr := a.client.Close(); cerr != nil {
		a.logger.Warn(ctx, "closing connection", "error", cerr)
	}
	if a.db != nil {
		if cerr := a.db.Close(); cerr != nil {
			a.logger.Warn(ctx, "closing database", "error", cerr)
		}
	}
	return err
}

// StartOnlineStatusWatcher pings the server every interval and reports
// online/offline transitions. A non-positive interval disables it.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	check := func() {
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := a.client.Ping(pctx); err != nil {
			if ctx.Err() == nil {
				a.setMode(ModeOffline)
			}
			return
		}
		a.setMode(ModeOnline)
	}

	check()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			check()
		case <-ctx.Done():
			return
		}
	}
}
