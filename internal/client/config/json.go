package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophchat/internal/flagx"
	"github.com/dmitrijs2005/gophchat/internal/timex"
	"github.com/dmitrijs2005/gophchat/internal/uploads"
)

// JsonConfig is the on-disk form of Config. Absent fields keep their
// current value.
type JsonConfig struct {
	ServerEndpointAddr  *string         `json:"server_endpoint_addr"`
	AcceptFile          *string         `json:"accept_file"`
	FileTypes           []string        `json:"file_types"`
	MaxChars            *int            `json:"max_chars"`
	MaxUploadSizeMB     *int64          `json:"max_upload_size_mb"`
	HistoryPath         *string         `json:"history_path"`
	FragmentID          *string         `json:"fragment_id"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
}

func parseJson(cfg *Config, args []string) error {
	jsonConfigFile := flagx.JsonConfigFlags(args)
	if jsonConfigFile == "" {
		return nil
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", jsonConfigFile, err)
	}

	if jc.ServerEndpointAddr != nil {
		cfg.ServerEndpointAddr = *jc.ServerEndpointAddr
	}
	if jc.AcceptFile != nil {
		m, err := uploads.ParseAcceptMode(*jc.AcceptFile)
		if err != nil {
			return err
		}
		cfg.AcceptFile = m
	}
	if jc.FileTypes != nil {
		cfg.FileTypes = jc.FileTypes
	}
	if jc.MaxChars != nil {
		cfg.MaxChars = *jc.MaxChars
	}
	if jc.MaxUploadSizeMB != nil {
		cfg.MaxUploadSizeMB = *jc.MaxUploadSizeMB
	}
	if jc.HistoryPath != nil {
		cfg.HistoryPath = *jc.HistoryPath
	}
	if jc.FragmentID != nil {
		cfg.FragmentID = *jc.FragmentID
	}
	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}

	return nil
}
