package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const examEventBufferSize = 16

// Exam lifecycle event types carried on the bus.
const (
	EventExamUpdated      = "exam.updated"
	EventExamDeleted      = "exam.deleted"
	EventAttemptSubmitted = "attempt.submitted"
	EventAttemptGraded    = "attempt.graded"
)

// ExamEvent is a lifecycle notification about an exam or an attempt. Runner
// sessions subscribe to re-evaluate their gate and countdown when an admin
// reschedules an exam mid-wait.
type ExamEvent struct {
	Type      string    `json:"type"`
	ExamID    uint      `json:"exam_id"`
	StudentID uint      `json:"student_id,omitempty"`
	SentAt    time.Time `json:"sent_at"`
}

// ExamEventBus publishes exam lifecycle events across nodes and fans them
// out to in-process subscribers.
type ExamEventBus interface {
	Publish(ctx context.Context, event ExamEvent)
	Subscribe(examID uint) (<-chan ExamEvent, func())
	Start(ctx context.Context)
}

type examEventEnvelope struct {
	Source string    `json:"source"`
	Event  ExamEvent `json:"event"`
}

type examEventBroker struct {
	mu          sync.RWMutex
	subscribers map[uint]map[chan ExamEvent]struct{}
}

type examEventBus struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	broker       *examEventBroker
	nodeID       string
}

// NewExamEventBus constructs the bus. Both the redis client and the NATS
// connection are optional; with neither, events still reach in-process
// subscribers.
func NewExamEventBus(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) ExamEventBus {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":exam-events"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".exam-events"
	}

	return &examEventBus{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "exam_event_bus").Logger(),
		broker:       &examEventBroker{subscribers: make(map[uint]map[chan ExamEvent]struct{})},
		nodeID:       uuid.NewString(),
	}
}

func (b *examEventBus) Start(ctx context.Context) {
	if b.redis != nil && b.redisChannel != "" {
		go b.consumeRedis(ctx)
	}
	if b.nats != nil && b.natsSubject != "" {
		go b.consumeNATS(ctx)
	}
}

func (b *examEventBus) Publish(ctx context.Context, event ExamEvent) {
	if event.SentAt.IsZero() {
		event.SentAt = time.Now().UTC()
	}

	b.broker.dispatch(event)

	envelope := examEventEnvelope{Source: b.nodeID, Event: event}
	payload, err := json.Marshal(envelope)
	if err != nil {
		b.logger.Warn().Err(err).Msg("failed to marshal exam event")
		return
	}

	if b.redis != nil && b.redisChannel != "" {
		if err := b.redis.Publish(ctx, b.redisChannel, payload).Err(); err != nil {
			b.logger.Warn().Err(err).Str("type", event.Type).Msg("failed to publish exam event to redis")
		}
	}

	if b.nats != nil && b.natsSubject != "" {
		if err := b.nats.Publish(b.natsSubject, payload); err != nil {
			b.logger.Warn().Err(err).Str("type", event.Type).Msg("failed to publish exam event to nats")
		}
	}
}

func (b *examEventBus) Subscribe(examID uint) (<-chan ExamEvent, func()) {
	return b.broker.subscribe(examID)
}

func (b *examEventBus) consumeRedis(ctx context.Context) {
	pubsub := b.redis.Subscribe(ctx, b.redisChannel)
	defer func() {
		_ = pubsub.Close()
	}()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			b.logger.Error().Err(err).Msg("exam event redis subscription closed")
			return
		}
		b.handleRemote([]byte(msg.Payload))
	}
}

func (b *examEventBus) consumeNATS(ctx context.Context) {
	sub, err := b.nats.QueueSubscribe(b.natsSubject, "exam-api", func(msg *nats.Msg) {
		b.handleRemote(msg.Data)
	})
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to subscribe to nats exam events")
		return
	}

	<-ctx.Done()
	_ = sub.Unsubscribe()
}

func (b *examEventBus) handleRemote(payload []byte) {
	var envelope examEventEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		b.logger.Warn().Err(err).Msg("discarding malformed exam event")
		return
	}
	if envelope.Source == b.nodeID {
		return
	}
	b.broker.dispatch(envelope.Event)
}

func (r *examEventBroker) subscribe(examID uint) (<-chan ExamEvent, func()) {
	ch := make(chan ExamEvent, examEventBufferSize)

	r.mu.Lock()
	if r.subscribers[examID] == nil {
		r.subscribers[examID] = make(map[chan ExamEvent]struct{})
	}
	r.subscribers[examID][ch] = struct{}{}
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		if subs, ok := r.subscribers[examID]; ok {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(r.subscribers, examID)
			}
		}
		r.mu.Unlock()
	}

	return ch, cancel
}

func (r *examEventBroker) dispatch(event ExamEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for ch := range r.subscribers[event.ExamID] {
		select {
		case ch <- event:
		default:
			// Slow subscribers drop events; the runner re-reads state on the
			// next tick anyway.
		}
	}
}
