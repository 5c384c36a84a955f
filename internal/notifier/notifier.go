package notifier

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Notifier abstracts the delivery channel (console for dev, Telegram for
// a staffed ops chat).
type Notifier interface {
	Notify(subject, message string) error
}

type ConsoleNotifier struct {
	log *zap.Logger
}

func NewConsole(log *zap.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{log: log}
}

func (c *ConsoleNotifier) Notify(subject, message string) error {
	c.log.Info("notify", zap.String("subject", subject), zap.String("message", message))
	return nil
}

// HumanTimeRange renders a booking window for notification text.
func HumanTimeRange(startUnix, endUnix int64) string {
	st := time.Unix(startUnix, 0).UTC()
	et := time.Unix(endUnix, 0).UTC()
	return fmt.Sprintf("%s — %s", st.Format("2006-01-02 15:04"), et.Format("15:04"))
}
