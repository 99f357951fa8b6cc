package mesh

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/plantmesh/plantmesh-go/pkg/address"
)

// PayloadCodec decodes raw broker payloads into the values a Stream
// delivers. Implementations own the wire format; the transport treats
// payloads as opaque bytes.
type PayloadCodec interface {
	Decode(topic address.Topic, payload []byte) (any, error)
}

// RawCodec delivers payload bytes undecoded.
type RawCodec struct{}

func (RawCodec) Decode(_ address.Topic, payload []byte) (any, error) {
	return append([]byte(nil), payload...), nil
}

// Message is one decoded telemetry message.
type Message struct {
	Topic   address.Topic
	Payload any
}

// Telemetry is the interface to the mesh's MQTT transport.
type Telemetry struct {
	c *Client
}

// Connect resolves the telemetry broker, opens a session with the client's
// credentials and returns the live Stream. The session uses a clean start
// and a 20 second keep-alive; a nil codec delivers raw payloads.
func (t *Telemetry) Connect(ctx context.Context, clientID string, codec PayloadCodec) (*Stream, error) {
	urls, err := t.c.discovery.Resolve(ctx, ServiceTelemetry)
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		return nil, &TransportError{Err: ErrNoKnownURL}
	}
	broker := urls[0]

	if codec == nil {
		codec = RawCodec{}
	}
	s := &Stream{
		codec:  codec,
		msgs:   make(chan Message, t.c.telemetryBuffer),
		logger: t.c.logger,
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetUsername(t.c.username).
		SetPassword(t.c.password).
		SetCleanSession(true).
		SetKeepAlive(20 * time.Second).
		SetAutoReconnect(false).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			s.logger.Warn("telemetry connection lost", zap.Error(err))
			s.shutdown()
		})
	s.cli = mqtt.NewClient(opts)

	tok := s.cli.Connect()
	select {
	case <-tok.Done():
		if err := tok.Error(); err != nil {
			return nil, &TransportError{
				Broker: broker,
				Err:    fmt.Errorf("%w: %v", ErrConnectionRejected, err),
			}
		}
	case <-ctx.Done():
		s.cli.Disconnect(0)
		return nil, ctx.Err()
	}

	t.c.logger.Debug("telemetry session open",
		zap.String("broker", broker),
		zap.String("client_id", clientID),
	)
	return s, nil
}

// Stream is one live broker session. A stream is not restartable: when the
// connection drops or Close is called the Messages channel is closed and a
// new Connect is needed.
type Stream struct {
	cli    mqtt.Client
	codec  PayloadCodec
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	msgs   chan Message
}

// Subscribe registers for messages matching topic. Wildcard address
// segments subscribe to the corresponding broker filter.
func (s *Stream) Subscribe(ctx context.Context, topic address.Topic) error {
	return s.SubscribeFilter(ctx, topic.String())
}

// SubscribeFilter registers a raw broker filter.
func (s *Stream) SubscribeFilter(ctx context.Context, filter string) error {
	tok := s.cli.Subscribe(filter, 0, s.handle)
	select {
	case <-tok.Done():
		if err := tok.Error(); err != nil {
			return &TransportError{Err: fmt.Errorf("subscribe %s: %w", filter, err)}
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Messages returns the delivery channel. It is closed when the stream ends.
func (s *Stream) Messages() <-chan Message { return s.msgs }

// Close shuts the stream down and disconnects from the broker.
func (s *Stream) Close() {
	s.shutdown()
	s.cli.Disconnect(250)
}

func (s *Stream) handle(_ mqtt.Client, m mqtt.Message) {
	topic, err := address.ParseTopic(m.Topic())
	if err != nil {
		recordTelemetryMessage("bad_topic")
		s.logger.Warn("dropping message with unparseable topic",
			zap.String("topic", m.Topic()),
			zap.Error(err),
		)
		return
	}
	payload, err := s.codec.Decode(topic, m.Payload())
	if err != nil {
		recordTelemetryMessage("decode_error")
		s.logger.Warn("dropping undecodable message",
			zap.String("topic", m.Topic()),
			zap.Error(err),
		)
		return
	}
	s.deliver(Message{Topic: topic, Payload: payload})
}

// deliver hands a message to the consumer without blocking the broker
// callback. The closed check and the send share the read lock so a
// concurrent shutdown cannot close the channel between them.
func (s *Stream) deliver(msg Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		recordTelemetryMessage("dropped")
		return
	}
	select {
	case s.msgs <- msg:
		recordTelemetryMessage("delivered")
	default:
		recordTelemetryMessage("dropped")
		s.logger.Warn("telemetry buffer full, dropping message",
			zap.String("topic", msg.Topic.String()))
	}
}

func (s *Stream) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.msgs)
}
