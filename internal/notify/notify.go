// Package notify delivers the end-of-run report.
//
// Delivery is best-effort: a sender that is not configured is skipped
// silently, and a failed send never changes a run's outcome.
package notify

import "context"

// Attachment is a file attached to a message.
type Attachment struct {
	// Name is the display name of the file.
	Name string
	// Path is where the file lives on disk.
	Path string
}

// Message is an outgoing report.
type Message struct {
	Subject     string
	Body        string
	Attachments []Attachment
}

// Sender delivers messages.
type Sender interface {
	// Configured reports whether every credential the transport needs is set.
	Configured() bool

	// Send delivers msg.
	Send(ctx context.Context, msg Message) error
}

// Nop is a Sender that is never configured.
type Nop struct{}

// Configured always returns false.
func (Nop) Configured() bool { return false }

// Send does nothing.
func (Nop) Send(context.Context, Message) error { return nil }

var _ Sender = Nop{}
