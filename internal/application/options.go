package application

import (
	"time"

	kafkainfra "github.com/sanosuguru/go-hotel-reservation/internal/infrastructure/kafka"
	"github.com/sanosuguru/go-hotel-reservation/internal/pkg/metrics"
)

const (
	defaultLockTTL        = 10 * time.Second
	defaultLockRetries    = 3
	defaultLockRetryDelay = 100 * time.Millisecond
	defaultCacheTTL       = 30 * time.Second
)

type serviceOptions struct {
	now       func() time.Time
	publisher kafkainfra.PublisherInterface
	metrics   *metrics.Metrics
	lockTTL   time.Duration
	cacheTTL  time.Duration
}

func newServiceOptions(opts []Option) serviceOptions {
	o := serviceOptions{
		now:       time.Now,
		publisher: kafkainfra.NopPublisher{},
		lockTTL:   defaultLockTTL,
		cacheTTL:  defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option はサービスの任意設定
type Option func(*serviceOptions)

// WithClock は現在時刻の取得元を差し替える
func WithClock(now func() time.Time) Option {
	return func(o *serviceOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithPublisher はドメインイベントの送信先を設定する
func WithPublisher(p kafkainfra.PublisherInterface) Option {
	return func(o *serviceOptions) {
		if p != nil {
			o.publisher = p
		}
	}
}

// WithMetrics はメトリクスの記録先を設定する
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *serviceOptions) {
		o.metrics = m
	}
}

// WithLockTTL は客室ロックの有効期限を設定する
func WithLockTTL(ttl time.Duration) Option {
	return func(o *serviceOptions) {
		if ttl > 0 {
			o.lockTTL = ttl
		}
	}
}

// WithCacheTTL は空室キャッシュの有効期限を設定する
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *serviceOptions) {
		if ttl > 0 {
			o.cacheTTL = ttl
		}
	}
}
