package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/flagx"
	"github.com/dmitrijs2005/gophchat/internal/uploads"
)

var knownFlags = []string{"-a", "-m", "-t", "-x", "-s", "-h", "-f", "-i"}

func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	types := flagx.StringList(cfg.FileTypes)
	acceptFile := cfg.AcceptFile.String()

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&acceptFile, "m", acceptFile, "accept mode: none, single, multiple or directory")
	fs.Var(&types, "t", "comma separated allowed file types")
	fs.IntVar(&cfg.MaxChars, "x", cfg.MaxChars, "maximum message length in characters")
	fs.Int64Var(&cfg.MaxUploadSizeMB, "s", cfg.MaxUploadSizeMB, "maximum upload size (in MB)")
	fs.StringVar(&cfg.HistoryPath, "h", cfg.HistoryPath, "path of the local history database")
	fs.StringVar(&cfg.FragmentID, "f", cfg.FragmentID, "fragment id attached to submitted values")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	m, err := uploads.ParseAcceptMode(acceptFile)
	if err != nil {
		return err
	}

	cfg.AcceptFile = m
	cfg.FileTypes = types
	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second

	return nil
}
