package kafkaconsumer

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/IBM/sarama"
	"github.com/cockroachdb/errors"

	"github.com/mohammed-shakir/geoshape-index/internal/core/model"
	"github.com/mohammed-shakir/geoshape-index/internal/core/config"
	"github.com/mohammed-shakir/geoshape-index/internal/geoerr"
	mylog "github.com/mohammed-shakir/geoshape-index/internal/logger"
)

type fakeApplier struct {
	mu      sync.Mutex
	applied []string
	fields  []mylog.Fields
	failID  string
	err     error
}

func (f *fakeApplier) Apply(ctx context.Context, ch model.Change) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch.ID == f.failID {
		return f.err
	}
	f.applied = append(f.applied, ch.ID)
	f.fields = append(f.fields, mylog.FieldsFrom(ctx))
	return nil
}

type sess struct {
	ctx     context.Context
	mu      sync.Mutex
	marked  []int64
	commits int
}

func (s *sess) Claims() map[string][]int32 { return nil }
func (s *sess) MemberID() string           { return "" }
func (s *sess) GenerationID() int32        { return 0 }
func (s *sess) MarkMessage(m *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	s.marked = append(s.marked, m.Offset)
	s.mu.Unlock()
}
func (s *sess) ResetOffset(_ string, _ int32, _ int64, _ string) {}
func (s *sess) MarkOffset(_ string, _ int32, _ int64, _ string)  {}
func (s *sess) Context() context.Context                         { return s.ctx }
func (s *sess) Errors() <-chan error                             { return nil }
func (s *sess) Commit()                                          { s.commits++ }

type claim struct {
	part int32
	msgs chan *sarama.ConsumerMessage
}

func (c *claim) Topic() string                            { return "geoshape-documents" }
func (c *claim) Partition() int32                         { return c.part }
func (c *claim) InitialOffset() int64                     { return 0 }
func (c *claim) HighWaterMarkOffset() int64               { return 0 }
func (c *claim) Messages() <-chan *sarama.ConsumerMessage { return c.msgs }

func testConfig() Config {
	return Config{Brokers: []string{"x"}, Topic: "geoshape-documents", GroupID: "g"}
}

func change(id string, op model.Op) []byte {
	b, _ := json.Marshal(model.Change{ID: id, Op: op, Columns: map[string]string{"shape": "POINT(1 2)"}})
	return b
}

func msg(off int64, value []byte) *sarama.ConsumerMessage {
	return &sarama.ConsumerMessage{Topic: "geoshape-documents", Partition: 0, Offset: off, Value: value}
}

func TestConsumeClaim_OrderAndMarkAfterWork(t *testing.T) {
	fa := &fakeApplier{}
	c := New(testConfig(), nil, fa)
	g := c.handler()
	s := &sess{ctx: t.Context()}

	ch := make(chan *sarama.ConsumerMessage, 3)
	ch <- msg(10, change("a", model.OpUpsert))
	ch <- msg(11, []byte("{not json"))
	ch <- msg(12, change("b", model.OpDelete))
	close(ch)

	if err := g.ConsumeClaim(s, &claim{msgs: ch}); err != nil {
		t.Fatalf("ConsumeClaim: %v", err)
	}
	if len(s.marked) != 3 || s.marked[0] != 10 || s.marked[2] != 12 {
		t.Fatalf("marked offsets=%v want [10 11 12]", s.marked)
	}
	if len(fa.applied) != 2 || fa.applied[0] != "a" || fa.applied[1] != "b" {
		t.Fatalf("applied=%v", fa.applied)
	}
}

func TestProcessOne_RejectedDocumentIsSkipped(t *testing.T) {
	fa := &fakeApplier{failID: "bad", err: geoerr.Parse("POINT(", errors.New("eof"))}
	c := New(testConfig(), nil, fa)
	if err := c.ProcessOne(context.Background(), msg(1, change("bad", model.OpUpsert))); err != nil {
		t.Fatalf("a rejected document must not block the partition: %v", err)
	}
	if err := c.ProcessOne(context.Background(), msg(2, change("", model.OpUpsert))); err != nil {
		t.Fatalf("a change without id is skipped: %v", err)
	}
}

func TestProcessOne_StoreFailureIsNotMarked(t *testing.T) {
	fa := &fakeApplier{failID: "a", err: errors.New("redis down")}
	c := New(testConfig(), nil, fa)
	g := c.handler()
	s := &sess{ctx: context.Background()}

	ch := make(chan *sarama.ConsumerMessage, 1)
	ch <- msg(5, change("a", model.OpUpsert))
	close(ch)
	if err := g.ConsumeClaim(s, &claim{msgs: ch}); err == nil {
		t.Fatalf("expected processing error")
	}
	if len(s.marked) != 0 {
		t.Fatalf("failed message was marked: %v", s.marked)
	}

	fa.failID = ""
	ch = make(chan *sarama.ConsumerMessage, 1)
	ch <- msg(5, change("a", model.OpUpsert))
	close(ch)
	if err := g.ConsumeClaim(s, &claim{msgs: ch}); err != nil {
		t.Fatalf("second attempt: %v", err)
	}
	if len(s.marked) != 1 || s.marked[0] != 5 {
		t.Fatalf("offset was not marked after success; marked=%v", s.marked)
	}
}

func TestConsumeClaim_TagsLogContext(t *testing.T) {
	fa := &fakeApplier{}
	g := New(testConfig(), nil, fa).handler()
	ch := make(chan *sarama.ConsumerMessage, 1)
	ch <- msg(3, change("doc-3", model.OpUpsert))
	close(ch)
	if err := g.ConsumeClaim(&sess{ctx: context.Background()}, &claim{msgs: ch}); err != nil {
		t.Fatalf("ConsumeClaim: %v", err)
	}
	want := mylog.Fields{Component: "kafka_consumer", DocID: "doc-3"}
	if len(fa.fields) != 1 || fa.fields[0] != want {
		t.Fatalf("fields=%+v want %+v", fa.fields, want)
	}
}

func TestConsumeClaim_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := New(testConfig(), nil, &fakeApplier{}).handler()
	if err := g.ConsumeClaim(&sess{ctx: ctx}, &claim{msgs: make(chan *sarama.ConsumerMessage)}); err != nil {
		t.Fatalf("cancelled claim: %v", err)
	}
}

func TestHandler_CleanupCommits(t *testing.T) {
	g := New(testConfig(), nil, &fakeApplier{}).handler()
	s := &sess{ctx: context.Background()}
	if err := g.Setup(s); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := g.Cleanup(s); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if s.commits != 1 {
		t.Fatalf("commits=%d want 1", s.commits)
	}
}

func TestFromSettings(t *testing.T) {
	c, err := FromSettings(config.KafkaCfg{Brokers: "a:9092, b:9092", Topic: " docs ", GroupID: "idx"})
	if err != nil {
		t.Fatalf("FromSettings: %v", err)
	}
	if len(c.Brokers) != 2 || c.Topic != "docs" || c.GroupID != "idx" || !c.FromOldest {
		t.Fatalf("config=%+v", c)
	}
	sc := c.Sarama()
	if err := sc.Validate(); err != nil {
		t.Fatalf("sarama config: %v", err)
	}
	if sc.Consumer.Offsets.Initial != sarama.OffsetOldest || sc.ClientID != clientID {
		t.Fatalf("initial=%d client=%q", sc.Consumer.Offsets.Initial, sc.ClientID)
	}

	bad := []config.KafkaCfg{
		{Brokers: " , ", Topic: "t", GroupID: "g"},
		{Brokers: "a", Topic: "", GroupID: "g"},
		{Brokers: "a", Topic: "t", GroupID: " "},
	}
	for _, k := range bad {
		if _, err := FromSettings(k); !errors.Is(err, geoerr.ErrConfiguration) {
			t.Fatalf("%+v: err=%v", k, err)
		}
	}
}

func TestValidate_HeartbeatBelowSession(t *testing.T) {
	c, err := FromSettings(config.KafkaCfg{Brokers: "a", Topic: "t", GroupID: "g"})
	if err != nil {
		t.Fatalf("FromSettings: %v", err)
	}
	c.Heartbeat = c.SessionTimeout
	if err := c.Validate(); !errors.Is(err, geoerr.ErrConfiguration) {
		t.Fatalf("err=%v", err)
	}
}

func TestSplitCSV(t *testing.T) {
	got := SplitCSV(" a:9092, ,b:9092 ")
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Fatalf("got %v", got)
	}
}
