// Package worker delivers queued staff emails.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tripnest/backend/internal/mail"
	"github.com/tripnest/backend/internal/models"
	"github.com/tripnest/backend/pkg/queue"
)

// JobSource pops and retries jobs.
type JobSource interface {
	Dequeue(ctx context.Context, keys ...string) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// Sender delivers one email.
type Sender interface {
	Send(ctx context.Context, m mail.Message) error
}

// DeliveryLog records delivery attempts.
type DeliveryLog interface {
	Create(ctx context.Context, el *models.EmailLog) error
}

// EmailProcessor sends queued email jobs and logs every attempt.
type EmailProcessor struct {
	jobs    JobSource
	sender  Sender
	log     DeliveryLog
	backoff time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewEmailProcessor creates an email job processor.
func NewEmailProcessor(jobs JobSource, sender Sender, log DeliveryLog, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{
		jobs:    jobs,
		sender:  sender,
		log:     log,
		backoff: queue.RetryBackoff,
		now:     time.Now,
		logger:  logger,
	}
}

// errPermanent marks jobs that retrying cannot fix.
var errPermanent = errors.New("permanent job failure")

// Process executes one email job.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeEmail {
		return fmt.Errorf("%w: unknown job type %s", errPermanent, job.Type)
	}
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("%w: unmarshal payload: %v", errPermanent, err)
	}

	sendErr := p.sender.Send(ctx, mail.Message{
		To:       payload.RecipientEmail,
		Subject:  payload.Subject,
		BodyHTML: payload.BodyHTML,
	})

	entry := &models.EmailLog{
		EmailType:      payload.EmailType,
		RecipientEmail: payload.RecipientEmail,
		Subject:        payload.Subject,
		Status:         models.EmailLogStatusSent,
	}
	if payload.BookingID != uuid.Nil {
		id := payload.BookingID
		entry.BookingID = &id
	}
	if sendErr != nil {
		entry.Status = models.EmailLogStatusFailed
		entry.ErrorMessage = sendErr.Error()
	} else {
		at := p.now()
		entry.SentAt = &at
	}
	if err := p.log.Create(ctx, entry); err != nil {
		p.logger.Warn("email log write failed", zap.String("job_id", job.ID), zap.Error(err))
	}

	if sendErr != nil {
		return fmt.Errorf("send email: %w", sendErr)
	}
	p.logger.Info("email sent",
		zap.String("job_id", job.ID),
		zap.String("email_type", payload.EmailType),
		zap.String("booking_id", payload.BookingID.String()))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *EmailProcessor) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			p.logger.Info("email worker stopping")
			return
		}

		job, err := p.jobs.Dequeue(ctx, queue.QueueEmails)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if errors.Is(err, errPermanent) {
				job.Attempt = queue.MaxRetries - 1
			}
			if reErr := p.jobs.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *EmailProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
