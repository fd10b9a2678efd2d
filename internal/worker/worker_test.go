package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripnest/backend/internal/mail"
	"github.com/tripnest/backend/internal/models"
	"github.com/tripnest/backend/pkg/queue"
)

type fakeJobs struct {
	mu      sync.Mutex
	pending []*queue.Job
	retried []*queue.Job
	dead    []*queue.Job
}

func (f *fakeJobs) Dequeue(ctx context.Context, _ ...string) (*queue.Job, error) {
	f.mu.Lock()
	if len(f.pending) > 0 {
		job := f.pending[0]
		f.pending = f.pending[1:]
		f.mu.Unlock()
		return job, nil
	}
	f.mu.Unlock()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Millisecond):
		return nil, nil
	}
}

func (f *fakeJobs) Retry(_ context.Context, job *queue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job.Attempt++
	if job.Attempt >= queue.MaxRetries {
		f.dead = append(f.dead, job)
		return nil
	}
	f.retried = append(f.retried, job)
	f.pending = append(f.pending, job)
	return nil
}

func (f *fakeJobs) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.retried), len(f.dead)
}

type fakeSender struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (s *fakeSender) Send(_ context.Context, m mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, m)
	return nil
}

type fakeLog struct {
	mu      sync.Mutex
	entries []models.EmailLog
}

func (l *fakeLog) Create(_ context.Context, el *models.EmailLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, *el)
	return nil
}

func emailJob(t *testing.T, bookingID uuid.UUID) *queue.Job {
	t.Helper()
	body, err := json.Marshal(queue.EmailPayload{
		EmailType:      models.EmailTypeBookingConfirmed,
		BookingID:      bookingID,
		RecipientEmail: "ops@example.com",
		Subject:        "New booking",
		BodyHTML:       "<p>hi</p>",
	})
	require.NoError(t, err)
	return &queue.Job{ID: uuid.NewString(), Type: queue.JobTypeEmail, Payload: body}
}

func TestProcessSendsAndLogs(t *testing.T) {
	sender := &fakeSender{}
	log := &fakeLog{}
	p := NewEmailProcessor(&fakeJobs{}, sender, log, nil)
	bookingID := uuid.New()

	require.NoError(t, p.Process(context.Background(), emailJob(t, bookingID)))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ops@example.com", sender.sent[0].To)
	require.Len(t, log.entries, 1)
	assert.Equal(t, models.EmailLogStatusSent, log.entries[0].Status)
	assert.Equal(t, bookingID, *log.entries[0].BookingID)
	assert.NotNil(t, log.entries[0].SentAt)
}

func TestProcessLogsFailure(t *testing.T) {
	log := &fakeLog{}
	p := NewEmailProcessor(&fakeJobs{}, &fakeSender{err: errors.New("relay down")}, log, nil)

	err := p.Process(context.Background(), emailJob(t, uuid.Nil))
	require.Error(t, err)
	assert.False(t, errors.Is(err, errPermanent))
	require.Len(t, log.entries, 1)
	assert.Equal(t, models.EmailLogStatusFailed, log.entries[0].Status)
	assert.Equal(t, "relay down", log.entries[0].ErrorMessage)
	assert.Nil(t, log.entries[0].BookingID)
}

func TestProcessRejectsUnknownJob(t *testing.T) {
	p := NewEmailProcessor(&fakeJobs{}, &fakeSender{}, &fakeLog{}, nil)
	err := p.Process(context.Background(), &queue.Job{ID: "x", Type: "video"})
	assert.ErrorIs(t, err, errPermanent)
}

func TestRunRetriesThenDeadLetters(t *testing.T) {
	jobs := &fakeJobs{pending: []*queue.Job{emailJob(t, uuid.New())}}
	log := &fakeLog{}
	p := NewEmailProcessor(jobs, &fakeSender{err: errors.New("relay down")}, log, nil)
	p.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, dead := jobs.counts()
		return dead == 1
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	retried, _ := jobs.counts()
	assert.Equal(t, queue.MaxRetries-1, retried)
	log.mu.Lock()
	assert.Len(t, log.entries, queue.MaxRetries)
	log.mu.Unlock()
}

func TestRunDeadLettersPermanentFailures(t *testing.T) {
	jobs := &fakeJobs{pending: []*queue.Job{{ID: "bad", Type: queue.JobTypeEmail, Payload: json.RawMessage(`"nope"`)}}}
	p := NewEmailProcessor(jobs, &fakeSender{}, &fakeLog{}, nil)
	p.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	require.Eventually(t, func() bool {
		retried, dead := jobs.counts()
		return dead == 1 && retried == 0
	}, 2*time.Second, 5*time.Millisecond)
}
