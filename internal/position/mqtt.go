package position

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"

	"github.com/sweeney/walk-tracker/internal/logic"
)

// subscribeFailure is the SUBACK return code for a refused subscription.
const subscribeFailure = 0x80

// MQTTConfig configures an MQTTSource.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string

	// Topic receives OwnTracks-style location messages, e.g. "owntracks/+/+".
	Topic string

	// ConnectTimeout bounds the initial connect and subscribe. Default 10s.
	ConnectTimeout time.Duration

	Logger *log.Logger
}

// locationMessage is the subset of an OwnTracks location payload we use.
type locationMessage struct {
	Type     string   `json:"_type"`
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	Accuracy float64  `json:"acc"`
	Tst      int64    `json:"tst"`
}

// parseLocation decodes a location message. ok is false for other message
// types and for payloads without coordinates.
func parseLocation(payload []byte) (c logic.Coordinate, accuracy float64, ok bool) {
	var msg locationMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return logic.Coordinate{}, 0, false
	}
	if msg.Type != "location" || msg.Lat == nil || msg.Lon == nil {
		return logic.Coordinate{}, 0, false
	}
	return logic.Coordinate{Lat: *msg.Lat, Lng: *msg.Lon}, msg.Accuracy, true
}

// MQTTSource receives position fixes published to an MQTT topic by a phone
// or GPS logger. The most recent fix answers CurrentPosition.
type MQTTSource struct {
	client paho.Client
	topic  string
	logger *log.Logger

	mu       sync.Mutex
	last     *logic.Coordinate
	fixReady chan struct{}
	subs     map[*stream]*filter
	subErr   error
}

func newMQTTSource(topic string, logger *log.Logger) *MQTTSource {
	if logger == nil {
		logger = log.Default()
	}
	return &MQTTSource{
		topic:    topic,
		logger:   logger,
		fixReady: make(chan struct{}),
		subs:     map[*stream]*filter{},
	}
}

// NewMQTTSource connects to the broker and subscribes to cfg.Topic.
// A refused connection or subscription returns ErrPermissionDenied; an
// unreachable broker returns ErrUnavailable.
func NewMQTTSource(cfg MQTTConfig) (*MQTTSource, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s := newMQTTSource(cfg.Topic, cfg.Logger)

	subscribed := make(chan error, 1)
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c paho.Client) {
			// Subscriptions do not survive a clean-session reconnect.
			token := c.Subscribe(s.topic, 0, s.onMessage)
			go func() {
				token.Wait()
				err := subscribeError(token)
				if err != nil {
					s.logger.Printf("position: subscribe %s: %v", s.topic, err)
				}
				s.mu.Lock()
				s.subErr = err
				s.mu.Unlock()
				select {
				case subscribed <- err:
				default:
				}
			}()
		})

	s.client = paho.NewClient(opts)
	token := s.client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("%w: connect timeout", ErrUnavailable)
	}
	if err := token.Error(); err != nil {
		return nil, connectError(err)
	}

	select {
	case err := <-subscribed:
		if err != nil {
			s.client.Disconnect(250)
			return nil, err
		}
	case <-time.After(timeout):
		s.client.Disconnect(250)
		return nil, fmt.Errorf("%w: subscribe timeout", ErrUnavailable)
	}
	return s, nil
}

func connectError(err error) error {
	if errors.Is(err, packets.ErrorRefusedNotAuthorised) || errors.Is(err, packets.ErrorRefusedBadUsernameOrPassword) {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return fmt.Errorf("%w: connect: %v", ErrUnavailable, err)
}

func subscribeError(token paho.Token) error {
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: subscribe: %v", ErrUnavailable, err)
	}
	st, ok := token.(*paho.SubscribeToken)
	if !ok {
		return nil
	}
	for topic, code := range st.Result() {
		if code == subscribeFailure {
			return fmt.Errorf("%w: subscription to %s refused", ErrPermissionDenied, topic)
		}
	}
	return nil
}

func (s *MQTTSource) onMessage(_ paho.Client, msg paho.Message) {
	s.handlePayload(msg.Payload())
}

// handlePayload records the fix and fans it out to subscriptions. It never
// blocks the MQTT client: full subscriber buffers drop the fix.
func (s *MQTTSource) handlePayload(payload []byte) {
	c, accuracy, ok := parseLocation(payload)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		close(s.fixReady)
	}
	last := c
	s.last = &last

	for st, f := range s.subs {
		if !f.accept(c, accuracy) {
			continue
		}
		if !st.trySend(Update{Coord: c}) {
			s.logger.Printf("position: subscriber buffer full, dropping fix")
		}
	}
}

// CurrentPosition returns the latest fix, waiting for the first one until
// ctx is done.
func (s *MQTTSource) CurrentPosition(ctx context.Context) (logic.Coordinate, error) {
	s.mu.Lock()
	if err := s.subErr; err != nil {
		s.mu.Unlock()
		return logic.Coordinate{}, err
	}
	ready := s.fixReady
	s.mu.Unlock()

	select {
	case <-ready:
	case <-ctx.Done():
		return logic.Coordinate{}, fmt.Errorf("%w: no fix received: %v", ErrUnavailable, ctx.Err())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.last, nil
}

// Subscribe registers a new subscription filtered by opts.
func (s *MQTTSource) Subscribe(_ context.Context, opts Options) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subErr != nil {
		return nil, s.subErr
	}

	var st *stream
	st = newStream(32, func() {
		s.mu.Lock()
		delete(s.subs, st)
		s.mu.Unlock()
	})
	s.subs[st] = &filter{opts: opts}
	return st, nil
}

// Close disconnects from the broker.
func (s *MQTTSource) Close() error {
	if s.client != nil {
		s.client.Disconnect(1000)
	}
	return nil
}
