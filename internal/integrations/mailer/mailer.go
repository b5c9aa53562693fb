package mailer

import "context"

type Message struct {
	To      string
	Subject string
	// HTML body. Plain text clients get the same markup.
	Body string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
