package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sweeney/zero-buttons/internal/logic"
)

const (
	publishTimeout    = 5 * time.Second
	disconnectQuiesce = 1000 // ms
	defaultBufferSize = 100
)

// Options configures a RealPublisher.
type Options struct {
	Broker     string // e.g. tcp://localhost:1883
	Topic      string // prefix for the events and system topics
	ClientID   string // a random suffix is appended
	BufferSize int    // messages held while disconnected
	Logger     *zap.Logger

	// OnConnectionChange, if set, is called from the client goroutine
	// whenever the connection comes up or drops.
	OnConnectionChange func(connected bool)
}

// RealPublisher publishes to an actual MQTT broker.
// Messages published while disconnected are buffered and replayed on reconnect.
type RealPublisher struct {
	client      paho.Client
	eventsTopic string
	systemTopic string
	log         *zap.Logger
	onChange    func(bool)

	mu  sync.Mutex
	buf *ringBuffer
}

// NewRealPublisher creates a publisher for the given broker.
// Connecting happens in the background so an unreachable broker never
// delays startup.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	if o.Broker == "" {
		return nil, errors.New("mqtt: broker is required")
	}
	if o.Topic == "" {
		o.Topic = DefaultTopic
	}
	if o.ClientID == "" {
		o.ClientID = "zero-buttons"
	}

	p := newPublisher(nil, o)

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: EventOffline})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID + "-" + uuid.NewString()[:8]).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(p.systemTopic, string(will), 1, true).
		SetOnConnectHandler(func(paho.Client) { p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) { p.onConnectionLost(err) })

	p.client = paho.NewClient(opts)
	p.client.Connect()
	p.log.Info("mqtt connecting", zap.String("broker", o.Broker), zap.String("topic", o.Topic))
	return p, nil
}

func newPublisher(client paho.Client, o Options) *RealPublisher {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	size := o.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}
	return &RealPublisher{
		client:      client,
		eventsTopic: EventsTopic(o.Topic),
		systemTopic: SystemTopic(o.Topic),
		log:         log.Named("mqtt"),
		onChange:    o.OnConnectionChange,
		buf:         newRingBuffer(size),
	}
}

// Publish sends a press outcome to the events topic.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.publish(bufferedMsg{topic: p.eventsTopic, payload: payload})
}

// PublishSystem sends a lifecycle event to the system topic.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 so shutdown events survive a flaky link
	return p.publish(bufferedMsg{topic: p.systemTopic, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) publish(msg bufferedMsg) error {
	if !p.client.IsConnectionOpen() {
		p.enqueue(msg)
		return nil
	}

	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

func (p *RealPublisher) enqueue(msg bufferedMsg) {
	p.mu.Lock()
	first := p.buf.push(msg)
	p.mu.Unlock()
	if first {
		p.log.Warn("buffer full, dropping oldest", zap.Int("capacity", len(p.buf.buf)))
	}
}

// Buffered reports how many messages are waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	pending := p.buf.drainAll()
	p.mu.Unlock()

	p.log.Info("mqtt connected", zap.Int("replay", len(pending)))
	if p.onChange != nil {
		p.onChange(true)
	}
	for _, msg := range pending {
		if err := p.publish(msg); err != nil {
			p.log.Warn("replay failed", zap.String("topic", msg.topic), zap.Error(err))
		}
	}
}

func (p *RealPublisher) onConnectionLost(err error) {
	p.log.Warn("mqtt connection lost", zap.Error(err))
	if p.onChange != nil {
		p.onChange(false)
	}
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(disconnectQuiesce)
	return nil
}
