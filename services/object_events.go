package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"mmtips-service/config"
	"mmtips-service/logger"
)

// Refresher re-runs the freshness checks for the dashboard inputs.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// ReconnectConfig controls the consumer's reconnect backoff.
type ReconnectConfig struct {
	MaxRetries    int // 0 = retry forever
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

func DefaultReconnectConfig() *ReconnectConfig {
	return &ReconnectConfig{
		MaxRetries:    0,
		InitialDelay:  1 * time.Second,
		MaxDelay:      60 * time.Second,
		BackoffFactor: 2.0,
	}
}

// next returns the delay after d, capped at MaxDelay.
func (rc *ReconnectConfig) next(d time.Duration) time.Duration {
	d = time.Duration(float64(d) * rc.BackoffFactor)
	if d > rc.MaxDelay {
		d = rc.MaxDelay
	}
	return d
}

// S3Event is the bucket notification payload (AWS and MinIO share it).
type S3Event struct {
	Records []S3EventRecord `json:"Records"`
}

type S3EventRecord struct {
	EventName string `json:"eventName"`
	S3        struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key  string `json:"key"`
			ETag string `json:"eTag"`
		} `json:"object"`
	} `json:"s3"`
}

// ObjectEventConsumer listens for object-created notifications on an AMQP
// queue and refreshes the dashboard inputs when one of them changes, so open
// pages update without waiting for the next page view.
type ObjectEventConsumer struct {
	url        string
	queue      string
	bucket     string
	historyKey string
	refresher  Refresher
	reconnect  *ReconnectConfig
	timeout    time.Duration

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	done    chan struct{}
	stopped sync.Once
}

func NewObjectEventConsumer(cfg *config.Config, refresher Refresher) *ObjectEventConsumer {
	return &ObjectEventConsumer{
		url:        cfg.AMQPURL,
		queue:      cfg.AMQPQueue,
		bucket:     cfg.Bucket,
		historyKey: cfg.HistoryKey,
		refresher:  refresher,
		reconnect:  DefaultReconnectConfig(),
		timeout:    30 * time.Second,
		done:       make(chan struct{}),
	}
}

// Start connects once and then consumes in the background, reconnecting with
// backoff when the connection drops.
func (c *ObjectEventConsumer) Start() error {
	msgs, err := c.connectAndConsume()
	if err != nil {
		return fmt.Errorf("initial connection failed: %w", err)
	}
	go c.run(msgs)
	return nil
}

func (c *ObjectEventConsumer) Stop() {
	c.stopped.Do(func() {
		close(c.done)
		c.closeConn()
	})
}

func (c *ObjectEventConsumer) connectAndConsume() (<-chan amqp.Delivery, error) {
	logger.Printf("[AMQP] Connecting to queue %s...", c.queue)

	conn, err := amqp.DialConfig(c.url, amqp.Config{
		Heartbeat: 60 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}
	if err := channel.Qos(10, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	queue, err := channel.QueueDeclare(
		c.queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	msgs, err := channel.Consume(
		queue.Name,
		"mmtips-dashboard",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to consume: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = channel
	c.mu.Unlock()

	logger.Printf("[AMQP] ✅ Consuming object events from %s", queue.Name)
	return msgs, nil
}

func (c *ObjectEventConsumer) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *ObjectEventConsumer) run(msgs <-chan amqp.Delivery) {
	for {
		for d := range msgs {
			c.handleDelivery(d)
		}

		select {
		case <-c.done:
			logger.Println("[AMQP] Consumer stopped")
			return
		default:
		}

		logger.Errorf("[AMQP] ⚠️  Delivery channel closed, reconnecting")
		var ok bool
		msgs, ok = c.reconnectWithBackoff()
		if !ok {
			return
		}
	}
}

func (c *ObjectEventConsumer) reconnectWithBackoff() (<-chan amqp.Delivery, bool) {
	delay := c.reconnect.InitialDelay
	for attempt := 1; ; attempt++ {
		if c.reconnect.MaxRetries > 0 && attempt > c.reconnect.MaxRetries {
			logger.Errorf("[AMQP] ❌ Max retries (%d) reached, giving up", c.reconnect.MaxRetries)
			return nil, false
		}

		logger.Printf("[AMQP] 🔄 Reconnecting in %v (attempt %d)...", delay, attempt)
		select {
		case <-c.done:
			return nil, false
		case <-time.After(delay):
		}

		c.closeConn()
		msgs, err := c.connectAndConsume()
		if err == nil {
			logger.Println("[AMQP] ✅ Reconnected successfully")
			return msgs, true
		}
		logger.Errorf("[AMQP] ❌ Reconnect failed: %v", err)
		delay = c.reconnect.next(delay)
	}
}

func (c *ObjectEventConsumer) handleDelivery(d amqp.Delivery) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if _, err := c.HandleMessage(ctx, d.Body); err != nil {
		logger.Errorf("[AMQP] Failed to handle object event: %v", err)
	}
	// Redelivering a bad event would only fail again.
	if err := d.Ack(false); err != nil {
		logger.Errorf("[AMQP] Ack failed: %v", err)
	}
}

// HandleMessage parses one notification and refreshes when it names a
// dashboard input. It reports whether a refresh ran.
func (c *ObjectEventConsumer) HandleMessage(ctx context.Context, body []byte) (bool, error) {
	var event S3Event
	if err := json.Unmarshal(body, &event); err != nil {
		return false, fmt.Errorf("invalid event payload: %w", err)
	}

	for _, rec := range event.Records {
		if !strings.Contains(rec.EventName, "ObjectCreated") {
			continue
		}
		if c.bucket != "" && rec.S3.Bucket.Name != "" && rec.S3.Bucket.Name != c.bucket {
			continue
		}

		key, err := url.QueryUnescape(rec.S3.Object.Key)
		if err != nil {
			key = rec.S3.Object.Key
		}
		if !c.relevant(key) {
			logger.Printf("[AMQP] Ignoring event for %s", key)
			continue
		}

		logger.Printf("[AMQP] %s on %s, refreshing", rec.EventName, key)
		if err := c.refresher.Refresh(ctx); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func (c *ObjectEventConsumer) relevant(key string) bool {
	return key == c.historyKey || strings.HasPrefix(key, "outputs/")
}
