package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/tripnest/backend/internal/models"
	"github.com/tripnest/backend/pkg/queue"
)

// EmailQueue accepts email jobs for the worker.
type EmailQueue interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

var bookingEmail = template.Must(template.New("booking").Parse(`<p>Hi {{.Recipient}},</p>
<p>A new booking was confirmed for event <code>{{.EventID}}</code>.</p>
<ul>
<li>Booking: <code>{{.BookingID}}</code></li>
<li>Payment: <code>{{.PaymentID}}</code> ({{.PaymentMethod}})</li>
<li>Travelers: {{len .Persons}}</li>
</ul>
<ol>{{range .Persons}}
<li>{{.FirstName}} {{.LastName}} &lt;{{.Email}}&gt; {{.Phone}}</li>{{end}}
</ol>`))

// EmailChannel queues a booking email for background delivery.
type EmailChannel struct {
	queue EmailQueue
}

// NewEmailChannel creates an email channel.
func NewEmailChannel(q EmailQueue) *EmailChannel {
	return &EmailChannel{queue: q}
}

// Name implements Channel.
func (c *EmailChannel) Name() string { return "email" }

// Send implements Channel.
func (c *EmailChannel) Send(ctx context.Context, recipient models.User, b *models.Booking) error {
	if recipient.Email == "" {
		return fmt.Errorf("user %s has no email", recipient.ID)
	}
	body, err := renderBookingEmail(recipient, b)
	if err != nil {
		return err
	}
	return c.queue.EnqueueEmail(ctx, queue.EmailPayload{
		EmailType:      models.EmailTypeBookingConfirmed,
		BookingID:      b.ID,
		EventID:        b.EventID,
		RecipientEmail: recipient.Email,
		Subject:        fmt.Sprintf("New booking: %d traveler(s)", len(b.Persons)),
		BodyHTML:       body,
	})
}

func renderBookingEmail(recipient models.User, b *models.Booking) (string, error) {
	name := recipient.FullName
	if name == "" {
		name = recipient.Email
	}
	var buf bytes.Buffer
	err := bookingEmail.Execute(&buf, struct {
		Recipient     string
		EventID       string
		BookingID     string
		PaymentID     string
		PaymentMethod string
		Persons       []models.Traveler
	}{name, b.EventID.String(), b.ID.String(), b.PaymentID, b.PaymentMethod, b.Persons})
	if err != nil {
		return "", fmt.Errorf("render booking email: %w", err)
	}
	return buf.String(), nil
}
