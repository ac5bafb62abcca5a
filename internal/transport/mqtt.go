package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/eclipse/paho.golang/paho"

	"github.com/miradorstack/netpulse/internal/models"
)

// MQTTConfig configures the MQTT v5 transport.
type MQTTConfig struct {
	Broker         string
	ClientID       string
	Topic          string
	QoS            byte
	KeepAlive      uint16
	ConnectTimeout time.Duration
	Buffer         int
}

func (c MQTTConfig) withDefaults() MQTTConfig {
	if c.Topic == "" {
		c.Topic = Topic
	}
	if c.ClientID == "" {
		c.ClientID = "netpulse"
	}
	if c.KeepAlive == 0 {
		c.KeepAlive = 30
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.Buffer <= 0 {
		c.Buffer = 256
	}
	if c.QoS > 2 {
		c.QoS = 1
	}
	return c
}

func connectMQTT(ctx context.Context, cfg MQTTConfig, clientID string, onPublish func(paho.PublishReceived) (bool, error), onLost func(error), logger *slog.Logger) (*paho.Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", cfg.Broker)
	if err != nil {
		return nil, fmt.Errorf("dial mqtt broker %s: %w", cfg.Broker, err)
	}

	clientCfg := paho.ClientConfig{
		ClientID: clientID,
		Conn:     conn,
		OnClientError: func(err error) {
			logger.Error("mqtt client error", slog.String("client_id", clientID), slog.String("error", err.Error()))
			onLost(err)
		},
		OnServerDisconnect: func(d *paho.Disconnect) {
			logger.Warn("mqtt server disconnected", slog.String("client_id", clientID), slog.Int("reason_code", int(d.ReasonCode)))
			onLost(fmt.Errorf("server disconnect: reason code %d", d.ReasonCode))
		},
	}
	if onPublish != nil {
		clientCfg.OnPublishReceived = []func(paho.PublishReceived) (bool, error){onPublish}
	}
	client := paho.NewClient(clientCfg)

	ack, err := client.Connect(dialCtx, &paho.Connect{
		ClientID:   clientID,
		KeepAlive:  cfg.KeepAlive,
		CleanStart: true,
	})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("connect mqtt broker %s: %w", cfg.Broker, err)
	}
	if ack.ReasonCode != 0 {
		_ = conn.Close()
		return nil, fmt.Errorf("mqtt broker %s refused connection: reason code %d", cfg.Broker, ack.ReasonCode)
	}
	return client, nil
}

// mqttSession owns one broker connection and replaces it after it is lost.
type mqttSession struct {
	cfg       MQTTConfig
	clientID  string
	onPublish func(paho.PublishReceived) (bool, error)
	logger    *slog.Logger

	connMu sync.Mutex
	mu     sync.Mutex
	client *paho.Client
	gen    uint64
	closed bool
	lost   chan struct{}
}

func newMQTTSession(cfg MQTTConfig, clientID string, onPublish func(paho.PublishReceived) (bool, error), logger *slog.Logger) *mqttSession {
	return &mqttSession{
		cfg:       cfg,
		clientID:  clientID,
		onPublish: onPublish,
		logger:    logger,
		lost:      make(chan struct{}, 1),
	}
}

// current returns the live client, connecting first when there is none.
func (s *mqttSession) current(ctx context.Context) (*paho.Client, uint64, error) {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, 0, ErrClosed
	}
	if s.client != nil {
		client, gen := s.client, s.gen
		s.mu.Unlock()
		return client, gen, nil
	}
	gen := s.gen + 1
	s.mu.Unlock()

	client, err := connectMQTT(ctx, s.cfg, s.clientID, s.onPublish, func(error) { s.markLost(gen) }, s.logger)
	if err != nil {
		return nil, 0, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = client.Disconnect(&paho.Disconnect{ReasonCode: 0})
		return nil, 0, ErrClosed
	}
	if gen > 1 {
		s.logger.Info("mqtt reconnected", slog.String("client_id", s.clientID))
	}
	s.client, s.gen = client, gen
	s.mu.Unlock()
	return client, gen, nil
}

// markLost drops the client of generation gen so the next call to current reconnects.
func (s *mqttSession) markLost(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil || s.gen != gen {
		return
	}
	s.client = nil
	select {
	case s.lost <- struct{}{}:
	default:
	}
}

func (s *mqttSession) close() error {
	s.mu.Lock()
	s.closed = true
	client := s.client
	s.client = nil
	s.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Disconnect(&paho.Disconnect{ReasonCode: 0})
}

// MQTTPublisher publishes samples to an MQTT v5 broker. A lost connection is
// re-established on the next Publish; the failed sample itself is not retried.
type MQTTPublisher struct {
	session *mqttSession
	topic   string
	qos     byte
	logger  *slog.Logger
}

// NewMQTTPublisher dials and connects to cfg.Broker.
func NewMQTTPublisher(ctx context.Context, cfg MQTTConfig, logger *slog.Logger) (*MQTTPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	session := newMQTTSession(cfg, cfg.ClientID+"-pub", nil, logger)
	if _, _, err := session.current(ctx); err != nil {
		return nil, err
	}
	return &MQTTPublisher{session: session, topic: cfg.Topic, qos: cfg.QoS, logger: logger}, nil
}

// Publish serialises the sample and publishes it on the performance topic.
func (p *MQTTPublisher) Publish(ctx context.Context, sample models.PerformanceSample) error {
	payload, err := Encode(sample)
	if err != nil {
		return err
	}
	client, gen, err := p.session.current(ctx)
	if err != nil {
		p.logger.Error("mqtt reconnect failed", slog.Int("node_id", sample.NodeID), slog.String("error", err.Error()))
		return err
	}
	if _, err := client.Publish(ctx, &paho.Publish{
		Topic:   p.topic,
		QoS:     p.qos,
		Payload: payload,
	}); err != nil {
		if ctx.Err() == nil {
			p.session.markLost(gen)
		}
		p.logger.Error("mqtt publish failed", slog.Int("node_id", sample.NodeID), slog.String("error", err.Error()))
		return err
	}
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	return p.session.close()
}

// MQTTConsumer subscribes to the performance topic and delivers messages in
// arrival order. After a lost connection it reconnects with exponential backoff
// and subscribes again.
type MQTTConsumer struct {
	session *mqttSession
	topic   string
	qos     byte
	msgs    chan Message
	done    chan struct{}
	once    sync.Once
	logger  *slog.Logger
}

// NewMQTTConsumer dials and connects to cfg.Broker; the subscription is made by Consume.
func NewMQTTConsumer(ctx context.Context, cfg MQTTConfig, logger *slog.Logger) (*MQTTConsumer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	c := &MQTTConsumer{
		topic:  cfg.Topic,
		qos:    cfg.QoS,
		msgs:   make(chan Message, cfg.Buffer),
		done:   make(chan struct{}),
		logger: logger,
	}
	c.session = newMQTTSession(cfg, cfg.ClientID+"-sub", c.onPublish, logger)
	if _, _, err := c.session.current(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *MQTTConsumer) onPublish(pr paho.PublishReceived) (bool, error) {
	msg := Message{Key: []byte(pr.Packet.Topic), Value: pr.Packet.Payload, Source: "mqtt"}
	select {
	case c.msgs <- msg:
	case <-c.done:
	}
	return true, nil
}

func (c *MQTTConsumer) subscribe(ctx context.Context) error {
	client, gen, err := c.session.current(ctx)
	if err != nil {
		return err
	}
	if _, err := client.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: c.topic, QoS: c.qos}},
	}); err != nil {
		c.session.markLost(gen)
		return fmt.Errorf("subscribe %s: %w", c.topic, err)
	}
	c.logger.Info("mqtt consumer subscribed", slog.String("topic", c.topic))
	return nil
}

func (c *MQTTConsumer) resubscribe(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxInterval = 10 * time.Second
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		select {
		case <-c.done:
			return struct{}{}, backoff.Permanent(ErrClosed)
		default:
		}
		return struct{}{}, c.subscribe(ctx)
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warn("mqtt resubscribe failed", slog.String("error", err.Error()), slog.Duration("retry_in", next))
		}),
	)
	return err
}

// Consume subscribes and hands messages to handler until ctx ends or Close is called.
func (c *MQTTConsumer) Consume(ctx context.Context, handler Handler) error {
	if err := c.subscribe(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.done:
			return nil
		case <-c.session.lost:
			c.logger.Warn("mqtt connection lost, reconnecting", slog.String("topic", c.topic))
			if err := c.resubscribe(ctx); err != nil {
				if ctx.Err() != nil || errors.Is(err, ErrClosed) {
					return nil
				}
				return err
			}
		case msg := <-c.msgs:
			if err := handler(ctx, msg); err != nil {
				c.logger.Debug("mqtt message not ingested", slog.String("error", err.Error()))
			}
		}
	}
}

// Close disconnects from the broker. Safe to call multiple times.
func (c *MQTTConsumer) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		err = c.session.close()
	})
	return err
}

var (
	_ Publisher = (*MQTTPublisher)(nil)
	_ Consumer  = (*MQTTConsumer)(nil)
)
