// Package notify composes grade notifications and delivers them over the
// configured channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gradewatch/internal/components/telemetry"
)

// Transport delivers a payload, sentAt is the timestamp shown to the user.
// Transports do not retry.
type Transport interface {
	Send(ctx context.Context, payload Payload, sentAt time.Time) error
}

// Multi sends to every transport and joins their errors, one failing
// channel does not stop the others.
type Multi []Transport

func (m Multi) Send(ctx context.Context, payload Payload, sentAt time.Time) error {
	var errlist []error
	for i, t := range m {
		err := t.Send(ctx, payload, sentAt)
		if err != nil {
			errlist = append(errlist, fmt.Errorf("transport %d: %w", i, err))
		}
	}
	return errors.Join(errlist...)
}

// Log only writes the payload to the operator log, it is used when no
// channel is configured.
type Log struct {
	tel telemetry.API
}

func NewLog(tel telemetry.API) Log {
	return Log{tel: telemetry.NewScopedAPI("notify", tel)}
}

func (l Log) Send(ctx context.Context, payload Payload, sentAt time.Time) error {
	l.tel.ReportWarning("log.send", "no notification channel configured", sentAt.Format(time.DateTime), payload.PlainText())
	return nil
}
