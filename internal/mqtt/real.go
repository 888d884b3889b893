package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Config configures a RealPublisher.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string

	// Topic and SystemTopic default to Topic and TopicSystem.
	Topic       string
	SystemTopic string

	// BufferSize bounds the offline buffer. Default DefaultBufferSize.
	BufferSize int

	Logger *log.Logger
}

// brokerClient is the part of paho.Client the publisher uses.
type brokerClient interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// RealPublisher publishes to an actual MQTT broker. Messages published
// while the connection is down are held in a bounded buffer and sent, in
// order, once the client reconnects.
type RealPublisher struct {
	client      brokerClient
	topic       string
	systemTopic string
	logger      *log.Logger

	mu  sync.Mutex
	buf *ringBuffer
}

func newRealPublisher(cfg Config) *RealPublisher {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	p := &RealPublisher{
		topic:       cfg.Topic,
		systemTopic: cfg.SystemTopic,
		logger:      logger,
		buf:         newRingBuffer(cfg.BufferSize, logger),
	}
	if p.topic == "" {
		p.topic = Topic
	}
	if p.systemTopic == "" {
		p.systemTopic = TopicSystem
	}
	return p
}

// NewRealPublisher creates a publisher connected to the given broker.
// The broker is told to publish a retained OFFLINE system event if the
// connection drops without a clean disconnect.
func NewRealPublisher(cfg Config) (*RealPublisher, error) {
	p := newRealPublisher(cfg)

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE"})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetBinaryWill(p.systemTopic, will, 1, true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(paho.Client) { p.flush() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.logger.Printf("mqtt: connection lost: %v", err)
		})

	client := paho.NewClient(opts)
	p.client = client
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		// The client keeps retrying; publishes are buffered until it connects.
		p.logger.Printf("mqtt: broker %s not reachable yet, buffering events", cfg.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

// PublishWalk sends a walk event to the MQTT broker.
func (p *RealPublisher) PublishWalk(event WalkEvent) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// Progress is at-most-once; start and stop should arrive.
	var qos byte
	if event.Type != WalkProgress {
		qos = 1
	}
	return p.publish(pending{topic: p.topic, payload: payload, qos: qos})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(pending{topic: p.systemTopic, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) publish(msg pending) error {
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		p.buf.push(msg)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	if err := p.send(msg); err != nil {
		p.mu.Lock()
		p.buf.push(msg)
		p.mu.Unlock()
		return err
	}
	return nil
}

func (p *RealPublisher) send(msg pending) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// flush sends the buffered messages. Called on every (re)connect.
func (p *RealPublisher) flush() {
	p.mu.Lock()
	msgs := p.buf.drain()
	p.mu.Unlock()
	if len(msgs) == 0 {
		return
	}

	p.logger.Printf("mqtt: connected, sending %d buffered messages", len(msgs))
	for i, msg := range msgs {
		if err := p.send(msg); err != nil {
			p.logger.Printf("mqtt: replay failed, keeping %d messages: %v", len(msgs)-i, err)
			p.mu.Lock()
			for _, rest := range msgs[i:] {
				p.buf.push(rest)
			}
			p.mu.Unlock()
			return
		}
	}
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
