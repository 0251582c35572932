package notify

import (
	"context"
	"log/slog"

	"github.com/vietddude/outpost/internal/core/domain"
)

// LogDisplayer records notifications in the structured log. It stands in for
// a real display surface on a headless host.
type LogDisplayer struct {
	log *slog.Logger
}

// NewLogDisplayer creates a displayer that writes to the default logger.
func NewLogDisplayer() *LogDisplayer {
	return &LogDisplayer{log: slog.Default().With("component", "display")}
}

func (d *LogDisplayer) Show(ctx context.Context, n domain.Notification) error {
	d.log.Info("Notification", "title", n.Title, "body", n.Body, "icon", n.Icon, "badge", n.Badge, "url", n.URL)
	return nil
}

func (d *LogDisplayer) Open(ctx context.Context, url string) error {
	d.log.Info("Open window", "url", url)
	return nil
}
