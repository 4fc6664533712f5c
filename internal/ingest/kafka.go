package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"air_monitor/internal/models"

	"github.com/segmentio/kafka-go"
)

const kafkaRetryBackoff = time.Second

// KafkaConfig configures the consumer group and the reset topic.
type KafkaConfig struct {
	Brokers    []string
	GroupID    string
	ResetTopic string
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSource consumes snapshots from a topic named after the subscription path.
type KafkaSource struct {
	newReader func(topic string) messageReader
	writer    messageWriter
	now       func() time.Time
	backoff   time.Duration
}

func NewKafkaSource(cfg KafkaConfig) *KafkaSource {
	src := &KafkaSource{
		newReader: func(topic string) messageReader {
			return kafka.NewReader(kafka.ReaderConfig{
				Brokers:  cfg.Brokers,
				GroupID:  cfg.GroupID,
				Topic:    topic,
				MinBytes: 1,
				MaxBytes: 1 << 20,
			})
		},
		now:     time.Now,
		backoff: kafkaRetryBackoff,
	}
	if cfg.ResetTopic != "" {
		src.writer = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.ResetTopic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		}
	}
	return src
}

// Subscribe starts a read loop on topic path. Read errors go to onErr and
// the loop retries after a short backoff until unsubscribed.
func (s *KafkaSource) Subscribe(path string, onSnap func(models.Snapshot), onErr func(error)) (func(), error) {
	r := s.newReader(path)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			m, err := r.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if onErr != nil {
					onErr(fmt.Errorf("read %s: %w", path, err))
				}
				if errors.Is(err, io.EOF) {
					return
				}
				select {
				case <-ctx.Done():
					return
				case <-time.After(s.backoff):
				}
				continue
			}

			snap, err := DecodeSnapshot(m.Value, s.now())
			if err != nil {
				if onErr != nil {
					onErr(fmt.Errorf("decode %s@%d: %w", path, m.Offset, err))
				}
				continue
			}
			onSnap(snap)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
			_ = r.Close()
		})
	}, nil
}

// Reset writes a reset command to the reset topic.
func (s *KafkaSource) Reset(ctx context.Context) error {
	if s.writer == nil {
		return errors.New("kafka: reset topic not configured")
	}
	payload, err := newResetPayload(s.now())
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafka.Message{Key: []byte("reset"), Value: payload})
}

func (s *KafkaSource) Close() error {
	if s.writer == nil {
		return nil
	}
	return s.writer.Close()
}
