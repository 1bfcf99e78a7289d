// Package publisher writes document changes to the topic the indexer
// consumes. Messages are keyed by document id so every change to one
// document lands on the same partition.
package publisher

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/IBM/sarama"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/mohammed-shakir/geoshape-index/internal/core/model"
)

type Publisher struct {
	topic string
	prod  sarama.AsyncProducer
	log   zerolog.Logger
	done  chan struct{}

	mu     sync.Mutex
	sent   int
	failed int
	first  error
}

// ProducerConfig is the producer setup New uses.
func ProducerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	return cfg
}

func New(brokers []string, topic string, log zerolog.Logger) (*Publisher, error) {
	prod, err := sarama.NewAsyncProducer(brokers, ProducerConfig())
	if err != nil {
		return nil, errors.Wrap(err, "create async producer")
	}
	return NewWithProducer(prod, topic, log), nil
}

// NewWithProducer takes ownership of prod. prod must report errors.
func NewWithProducer(prod sarama.AsyncProducer, topic string, log zerolog.Logger) *Publisher {
	p := &Publisher{
		topic: topic,
		prod:  prod,
		log:   log,
		done:  make(chan struct{}),
	}
	go p.collect()
	return p
}

func (p *Publisher) collect() {
	defer close(p.done)
	for perr := range p.prod.Errors() {
		id := ""
		if perr.Msg != nil && perr.Msg.Key != nil {
			if b, err := perr.Msg.Key.Encode(); err == nil {
				id = string(b)
			}
		}
		p.log.Warn().Err(perr.Err).Str("topic", p.topic).Str("doc_id", id).Msg("publish failed")
		p.mu.Lock()
		p.failed++
		if p.first == nil {
			p.first = perr.Err
		}
		p.mu.Unlock()
	}
}

// Publish queues one change. It blocks while the producer is backed up.
// An empty op is sent as an upsert.
func (p *Publisher) Publish(ctx context.Context, c model.Change) error {
	if c.ID == "" {
		return errors.New("change has no document id")
	}
	if c.Op == "" {
		c.Op = model.OpUpsert
	}
	if c.Op != model.OpUpsert && c.Op != model.OpDelete {
		return errors.Newf("unknown op %q", c.Op)
	}
	b, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encode change")
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(c.ID),
		Value: sarama.ByteEncoder(b),
	}
	select {
	case p.prod.Input() <- msg:
		p.mu.Lock()
		p.sent++
		p.mu.Unlock()
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "publish")
	}
}

// Close flushes queued changes and reports how many the broker rejected.
func (p *Publisher) Close() error {
	p.prod.AsyncClose()
	<-p.done

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failed > 0 {
		return errors.Wrapf(p.first, "%d of %d changes failed", p.failed, p.sent)
	}
	return nil
}
