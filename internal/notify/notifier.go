package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/argus/internal/interfaces"
)

// MultiNotifier fans a message out to every configured target. Each target
// receives the message exactly once per call; a failing target does not
// block the others.
type MultiNotifier struct {
	targets []interfaces.Notifier
	logger  arbor.ILogger
}

// NewMultiNotifier creates a notifier that delivers to all targets
func NewMultiNotifier(logger arbor.ILogger, targets ...interfaces.Notifier) *MultiNotifier {
	return &MultiNotifier{
		targets: targets,
		logger:  logger,
	}
}

// SendMessage delivers text to every target, collecting failures
func (m *MultiNotifier) SendMessage(ctx context.Context, text string) error {
	var errs []string
	for _, target := range m.targets {
		if err := target.SendMessage(ctx, text); err != nil {
			m.logger.Warn().Err(err).Msg("Notification target failed")
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to deliver notification: %s", strings.Join(errs, "; "))
	}
	return nil
}

var _ interfaces.Notifier = (*MultiNotifier)(nil)
