package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-hotel-reservation/internal/config"
	"github.com/sanosuguru/go-hotel-reservation/internal/pkg/logger"
)

// イベント種別
const (
	EventReservationCreated   = "reservation.created"
	EventReservationConfirmed = "reservation.confirmed"
	EventReservationCancelled = "reservation.cancelled"
	EventReservationUpdated   = "reservation.updated"
	EventReservationDeleted   = "reservation.deleted"
	EventReservationCompleted = "reservation.completed"

	EventPaymentRecorded  = "payment.recorded"
	EventPaymentUpdated   = "payment.updated"
	EventPaymentCompleted = "payment.completed"
	EventPaymentFailed    = "payment.failed"
	EventPaymentCancelled = "payment.cancelled"
	EventPaymentDeleted   = "payment.deleted"
)

const eventVersion = 1

// Event は送信するドメインイベント
// Key は予約IDで、同じ予約のイベントは同じパーティションに入る
type Event struct {
	Type    string
	Key     string
	Payload any
}

// Envelope はKafkaに書き込むメッセージ本体
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// PublisherInterface はドメインイベント送信のインターフェース
// 送信はコミット後に行い、失敗してもエラーは返さない
type PublisherInterface interface {
	Publish(ctx context.Context, e Event)
}

// NopPublisher は何もしない Publisher（Kafka 無効時）
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}

// TopicFor はイベント種別から送信先トピックを返す
func TopicFor(eventType string) string {
	prefix, _, _ := strings.Cut(eventType, ".")
	return prefix + "-events"
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher はバッファ付きの非同期 Publisher
type Publisher struct {
	w        messageWriter
	inbox    chan kafka.Message
	done     chan struct{}
	producer string
	log      *zap.Logger
	now      func() time.Time

	mu     sync.RWMutex
	closed bool
}

// NewPublisher は Kafka へ書き込む Publisher を作成する
func NewPublisher(cfg *config.KafkaConfig, log *zap.Logger) *Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newPublisher(w, cfg.ClientID, cfg.BufferSize, log)
}

func newPublisher(w messageWriter, producer string, buf int, log *zap.Logger) *Publisher {
	if buf <= 0 {
		buf = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{
		w:        w,
		inbox:    make(chan kafka.Message, buf),
		done:     make(chan struct{}),
		producer: producer,
		log:      log,
		now:      time.Now,
	}
}

// Start は送信ループを開始する
// ctx が終了するとバッファ内のメッセージを書き出してから停止する
func (p *Publisher) Start(ctx context.Context) {
	go p.run(ctx)
}

func (p *Publisher) run(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			p.closeInbox()
			for m := range p.inbox {
				p.write(m)
			}
			p.closeWriter()
			return
		case m, ok := <-p.inbox:
			if !ok {
				p.closeWriter()
				return
			}
			p.write(m)
		}
	}
}

// Publish はイベントをバッファに積む
// バッファが満杯、または停止後の場合は破棄してログに残す
func (p *Publisher) Publish(ctx context.Context, e Event) {
	msg, err := p.message(ctx, e)
	if err != nil {
		p.log.Error("イベントのエンコードに失敗", zap.String("event_type", e.Type), zap.Error(err))
		return
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.log.Warn("停止後のイベントを破棄", zap.String("event_type", e.Type), zap.String("key", e.Key))
		return
	}
	select {
	case p.inbox <- msg:
	default:
		p.log.Warn("送信バッファが満杯のためイベントを破棄", zap.String("event_type", e.Type), zap.String("key", e.Key))
	}
}

func (p *Publisher) message(ctx context.Context, e Event) (kafka.Message, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return kafka.Message{}, err
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     e.Type,
		EventVersion:  eventVersion,
		OccurredAt:    p.now().UTC(),
		Producer:      p.producer,
		CorrelationID: logger.RequestIDFrom(ctx),
		Payload:       payload,
	}
	value, err := json.Marshal(env)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Topic: TopicFor(e.Type),
		Key:   []byte(e.Key),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(e.Type)},
			{Key: "x-event-version", Value: []byte("1")},
		},
	}, nil
}

func (p *Publisher) write(m kafka.Message) {
	if err := p.w.WriteMessages(context.Background(), m); err != nil {
		p.log.Error("イベント送信に失敗",
			zap.String("topic", m.Topic),
			zap.String("key", string(m.Key)),
			zap.Error(err),
		)
	}
}

func (p *Publisher) closeInbox() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
}

func (p *Publisher) closeWriter() {
	if err := p.w.Close(); err != nil {
		p.log.Warn("Kafka writer のクローズに失敗", zap.Error(err))
	}
}

// Close は新規受付を止める。残りのメッセージは送信ループが書き出す
func (p *Publisher) Close() { p.closeInbox() }

// WaitClosed は送信ループの終了を待つ
func (p *Publisher) WaitClosed() { <-p.done }

var (
	_ PublisherInterface = (*Publisher)(nil)
	_ PublisherInterface = NopPublisher{}
)
