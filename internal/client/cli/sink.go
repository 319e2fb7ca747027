package cli

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/chatinput"
	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/client/repositories/history"
	"github.com/dmitrijs2005/gophchat/internal/logging"
)

// historySink forwards values to the server and records every attempt.
type historySink struct {
	next    chatinput.Sink
	history history.Repository
	logger  logging.Logger
	now     func() time.Time
}

func (s *historySink) SetValue(ctx context.Context, el chatinput.Element, v chatinput.Value, opts chatinput.SetValueOptions) error {
	err := s.next.SetValue(ctx, el, v, opts)

	rec := &models.HistoryRecord{
		ElementID:   el.ID,
		Text:        v.Text,
		Files:       make([]string, 0, len(v.FileUploaderState.UploadedFileInfo)),
		FromUI:      opts.FromUI,
		FragmentID:  opts.FragmentID,
		Status:      models.StatusSent,
		SubmittedAt: s.now(),
	}
	for _, f := range v.FileUploaderState.UploadedFileInfo {
		rec.Files = append(rec.Files, f.Name)
	}
	if err != nil {
		rec.Status = models.StatusFailed
	}

	if _, herr := s.history.Add(ctx, rec); herr != nil {
		s.logger.Warn(ctx, "cannot record history", "error", herr)
	}

	return err
}
