package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

// postmarkAPI is the slice of *postmark.Client we use. Tests substitute a fake.
type postmarkAPI interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

var _ Sender = (*PostmarkSender)(nil)

type PostmarkSender struct {
	client postmarkAPI
	from   string
	tag    string
}

// NewPostmarkSender creates a Postmark-backed sender. The server token is
// required; the account token is only needed for account-level API calls
// and may be empty.
func NewPostmarkSender(serverToken, accountToken, from string) (*PostmarkSender, error) {
	if serverToken == "" {
		return nil, errors.New("mailer: postmark server token is required")
	}
	if from == "" {
		return nil, errors.New("mailer: sender address is required")
	}
	return &PostmarkSender{
		client: postmark.NewClient(serverToken, accountToken),
		from:   from,
		tag:    "blog-backend",
	}, nil
}

// Send delivers the message. Postmark reports some failures (bad recipient,
// inactive address) with HTTP 200 and a non-zero ErrorCode, so both paths
// are checked.
func (s *PostmarkSender) Send(ctx context.Context, to, subject, html string) error {
	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:     s.from,
		To:       to,
		Subject:  subject,
		Tag:      s.tag,
		HTMLBody: html,
	})
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrSendFailed,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}
