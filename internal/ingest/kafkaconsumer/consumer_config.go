package kafkaconsumer

import (
	"strings"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/geoshape-index/internal/core/config"
	"github.com/mohammed-shakir/geoshape-index/internal/geoerr"
)

const clientID = "geoshape-indexer"

type Config struct {
	Brokers          []string
	Topic            string
	GroupID          string
	SessionTimeout   time.Duration
	Heartbeat        time.Duration
	RebalanceTimeout time.Duration
	// RetryBackoff is the pause before rejoining after a failed session.
	RetryBackoff time.Duration
	// FromOldest makes a new group start at the beginning of the topic so
	// that documents published before the indexer first ran are indexed.
	FromOldest bool
}

// FromSettings builds the consumer config from the service's kafka settings.
func FromSettings(k config.KafkaCfg) (Config, error) {
	c := Config{
		Brokers:          SplitCSV(k.Brokers),
		Topic:            strings.TrimSpace(k.Topic),
		GroupID:          strings.TrimSpace(k.GroupID),
		SessionTimeout:   30 * time.Second,
		Heartbeat:        3 * time.Second,
		RebalanceTimeout: 30 * time.Second,
		RetryBackoff:     2 * time.Second,
		FromOldest:       true,
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	switch {
	case len(c.Brokers) == 0:
		return geoerr.Configf("kafka: no brokers configured")
	case c.Topic == "":
		return geoerr.Configf("kafka: empty topic")
	case c.GroupID == "":
		return geoerr.Configf("kafka: empty consumer group")
	case c.Heartbeat >= c.SessionTimeout:
		return geoerr.Configf("kafka: heartbeat %s must be shorter than session timeout %s",
			c.Heartbeat, c.SessionTimeout)
	}
	return nil
}

// Sarama returns the client config of one consumer group member. Offsets
// are committed in the background, but only for messages the handler
// marked.
func (c Config) Sarama() *sarama.Config {
	sc := sarama.NewConfig()
	sc.ClientID = clientID
	sc.Version = sarama.V2_1_0_0
	sc.Consumer.Return.Errors = true
	sc.Consumer.Group.Session.Timeout = c.SessionTimeout
	sc.Consumer.Group.Heartbeat.Interval = c.Heartbeat
	sc.Consumer.Group.Rebalance.Timeout = c.RebalanceTimeout
	sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	if c.FromOldest {
		sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	}
	sc.Consumer.Offsets.AutoCommit.Enable = true
	return sc
}

// SplitCSV splits a comma separated broker list, dropping blanks.
func SplitCSV(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
