package streamledger

import (
	"context"

	"github.com/xraph/streamledger/event"
)

// emit queues a notification. A full queue drops it; notifications never
// affect the outcome of the operation that produced them.
func (l *Ledger) emit(payload any) {
	env := event.New(payload)
	select {
	case l.events <- env:
	default:
		l.logger.Warn("notification dropped, queue full",
			"topic", env.Topic,
			"stream_id", env.StreamID,
			"event_id", env.ID.String(),
		)
	}
}

// notifyWorker dispatches queued notifications to plugins until Stop, then
// drains what is left.
func (l *Ledger) notifyWorker(ctx context.Context) {
	defer l.wg.Done()

	for {
		select {
		case <-l.stopChan:
			for {
				select {
				case env := <-l.events:
					l.plugins.Emit(ctx, env)
				default:
					return
				}
			}

		case env := <-l.events:
			l.plugins.Emit(ctx, env)
		}
	}
}
