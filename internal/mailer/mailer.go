// Package mailer is the notification gateway: it delivers the verification
// and password reset emails.
//
// Two drivers implement Sender:
//   - PostmarkSender sends through Postmark's transactional API
//   - LogSender writes the message to the logger, for local development
//
// Send is awaited by the caller. A failed send is returned as an error
// wrapping ErrSendFailed and is not retried here.
package mailer

import (
	"context"
	"errors"
)

var ErrSendFailed = errors.New("mailer: failed to send email")

// Sender delivers one HTML email.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}
