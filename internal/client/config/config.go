package config

import (
	"time"

	"github.com/dmitrijs2005/gophchat/internal/filetype"
	"github.com/dmitrijs2005/gophchat/internal/uploads"
)

type Config struct {
	ServerEndpointAddr  string
	AcceptFile          uploads.AcceptMode
	FileTypes           []string
	MaxChars            int
	MaxUploadSizeMB     int64
	HistoryPath         string
	FragmentID          string
	OnlineCheckInterval time.Duration
}

// LoadDefaults populates c with defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.AcceptFile = uploads.AcceptMultiple
	c.FileTypes = nil
	c.MaxChars = 0
	c.MaxUploadSizeMB = 200
	c.HistoryPath = "data/history.db"
	c.FragmentID = ""
	c.OnlineCheckInterval = 3 * time.Second
}

// MaxUploadSize is the per-file limit in bytes.
func (c *Config) MaxUploadSize() int64 {
	return c.MaxUploadSizeMB << 20
}

// Constraint is the normalized file type constraint.
func (c *Config) Constraint() filetype.Constraint {
	return filetype.Normalize(c.FileTypes)
}

// LoadConfig applies defaults, then the JSON file named in args (if any),
// then the flags in args.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
