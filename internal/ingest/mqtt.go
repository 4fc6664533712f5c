package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"air_monitor/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	defaultMQTTTimeout = 10 * time.Second
	mqttDisconnectMs   = 250
)

var ErrMQTTTimeout = errors.New("mqtt: operation timed out")

// MQTTConfig configures the broker connection.
type MQTTConfig struct {
	Broker     string
	ClientID   string
	Username   string
	Password   string
	QoS        byte
	ResetTopic string
	Timeout    time.Duration
}

// mqttClient is the part of mqtt.Client the source uses.
type mqttClient interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTSource subscribes to sensor snapshots on an MQTT broker and publishes
// reset commands back to the device.
type MQTTSource struct {
	client     mqttClient
	qos        byte
	timeout    time.Duration
	resetTopic string
	now        func() time.Time

	mu     sync.Mutex
	nextID int
	onErrs map[int]func(error)
}

func newMQTTSource(client mqttClient, cfg MQTTConfig) *MQTTSource {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultMQTTTimeout
	}
	return &MQTTSource{
		client:     client,
		qos:        cfg.QoS,
		timeout:    timeout,
		resetTopic: cfg.ResetTopic,
		now:        time.Now,
		onErrs:     make(map[int]func(error)),
	}
}

// DialMQTT connects to the broker. A lost connection is reported on the error
// handler of every active subscription; paho reconnects on its own.
func DialMQTT(cfg MQTTConfig) (*MQTTSource, error) {
	src := newMQTTSource(nil, cfg)

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(src.timeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			src.fanoutError(fmt.Errorf("mqtt connection lost: %w", err))
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}

	c := mqtt.NewClient(opts)
	if err := waitToken(c.Connect(), src.timeout); err != nil {
		return nil, fmt.Errorf("connect mqtt %s: %w", cfg.Broker, err)
	}
	src.client = c
	return src, nil
}

// Subscribe delivers every message on topic path as a decoded snapshot.
func (s *MQTTSource) Subscribe(path string, onSnap func(models.Snapshot), onErr func(error)) (func(), error) {
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		snap, err := DecodeSnapshot(msg.Payload(), s.now())
		if err != nil {
			if onErr != nil {
				onErr(fmt.Errorf("decode %s: %w", msg.Topic(), err))
			}
			return
		}
		onSnap(snap)
	}
	if err := waitToken(s.client.Subscribe(path, s.qos, handler), s.timeout); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", path, err)
	}

	id := s.addErrorHandler(onErr)
	var once sync.Once
	return func() {
		once.Do(func() {
			s.removeErrorHandler(id)
			_ = waitToken(s.client.Unsubscribe(path), s.timeout)
		})
	}, nil
}

// Reset publishes a reset command to the device topic.
func (s *MQTTSource) Reset(ctx context.Context) error {
	if s.resetTopic == "" {
		return errors.New("mqtt: reset topic not configured")
	}
	payload, err := newResetPayload(s.now())
	if err != nil {
		return err
	}
	token := s.client.Publish(s.resetTopic, s.qos, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects from the broker.
func (s *MQTTSource) Close() error {
	s.client.Disconnect(mqttDisconnectMs)
	return nil
}

func (s *MQTTSource) addErrorHandler(fn func(error)) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	if fn != nil {
		s.onErrs[id] = fn
	}
	return id
}

func (s *MQTTSource) removeErrorHandler(id int) {
	s.mu.Lock()
	delete(s.onErrs, id)
	s.mu.Unlock()
}

func (s *MQTTSource) fanoutError(err error) {
	s.mu.Lock()
	handlers := make([]func(error), 0, len(s.onErrs))
	for _, fn := range s.onErrs {
		handlers = append(handlers, fn)
	}
	s.mu.Unlock()
	for _, fn := range handlers {
		fn(err)
	}
}

func waitToken(t mqtt.Token, timeout time.Duration) error {
	if !t.WaitTimeout(timeout) {
		return ErrMQTTTimeout
	}
	return t.Error()
}
