package kafka

import (
	"context"
	"errors"
	"testing"
	"time"
	"tutor-smart-go/pkg/tasks"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	counts map[string]int64
	err    error
}

func (c *fakeCounter) Incr(_ context.Context, key string) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.counts[key]++
	return c.counts[key], nil
}

func (c *fakeCounter) Reset(_ context.Context, key string) error {
	delete(c.counts, key)
	return nil
}

// fakeProcessor 对每个 submission 先失败 failures[id] 次再成功，负数表示一直失败。
type fakeProcessor struct {
	failures  map[uint]int
	calls     map[uint]int
	gaveUp    []tasks.GradingTask
	lastErr   error
	onProcess func()
}

func newFakeProcessor(failures map[uint]int) *fakeProcessor {
	if failures == nil {
		failures = map[uint]int{}
	}
	return &fakeProcessor{failures: failures, calls: map[uint]int{}}
}

var errUpstream = errors.New("upstream down")

func (p *fakeProcessor) Process(_ context.Context, task tasks.GradingTask) error {
	p.calls[task.SubmissionID]++
	if p.onProcess != nil {
		p.onProcess()
	}
	left := p.failures[task.SubmissionID]
	if left == 0 {
		return nil
	}
	if left > 0 {
		p.failures[task.SubmissionID] = left - 1
	}
	return errUpstream
}

func (p *fakeProcessor) OnGiveUp(_ context.Context, task tasks.GradingTask, cause error) {
	p.gaveUp = append(p.gaveUp, task)
	p.lastErr = cause
}

// fakeReader 按顺序返回消息，与真实的消费组 reader 一样不会重新投递同一个 offset。
type fakeReader struct {
	msgs      []kafka.Message
	pos       int
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if err := ctx.Err(); err != nil {
		return kafka.Message{}, err
	}
	if r.pos >= len(r.msgs) {
		return kafka.Message{}, context.Canceled
	}
	m := r.msgs[r.pos]
	r.pos++
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func message(offset int64, value string) kafka.Message {
	return kafka.Message{Offset: offset, Value: []byte(value)}
}

const (
	msg7 = `{"submission_id":7,"kind":"writing","user_id":3}`
	msg8 = `{"submission_id":8,"kind":"speaking","user_id":3}`
)

func newTestConsumer(reader messageReader, counter AttemptCounter, proc TaskProcessor) *consumer {
	return &consumer{reader: reader, counter: counter, processor: proc, maxAttempts: 3}
}

func TestConsumerRetriesFailingMessageThenGivesUp(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{message(5, msg7), message(6, msg8)}}
	counter := &fakeCounter{counts: map[string]int64{}}
	proc := newFakeProcessor(map[uint]int{7: -1})

	newTestConsumer(reader, counter, proc).run(context.Background())

	assert.Equal(t, 3, proc.calls[7])
	assert.Equal(t, 1, proc.calls[8])
	require.Len(t, proc.gaveUp, 1)
	assert.Equal(t, uint(7), proc.gaveUp[0].SubmissionID)
	assert.ErrorIs(t, proc.lastErr, errUpstream)
	assert.Equal(t, []int64{5, 6}, reader.committed)
	assert.Empty(t, counter.counts)
}

func TestConsumerRecoversFromTransientFailure(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{message(5, msg7)}}
	counter := &fakeCounter{counts: map[string]int64{}}
	proc := newFakeProcessor(map[uint]int{7: 1})

	newTestConsumer(reader, counter, proc).run(context.Background())

	assert.Equal(t, 2, proc.calls[7])
	assert.Empty(t, proc.gaveUp)
	assert.Equal(t, []int64{5}, reader.committed)
	assert.Empty(t, counter.counts)
}

func TestConsumerGivesUpWhenCounterUnavailable(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{message(5, msg7)}}
	counter := &fakeCounter{counts: map[string]int64{}, err: errors.New("redis down")}
	proc := newFakeProcessor(map[uint]int{7: -1})

	c := newTestConsumer(reader, counter, proc)
	c.maxAttempts = 2
	c.run(context.Background())

	assert.Equal(t, 2, proc.calls[7])
	assert.Len(t, proc.gaveUp, 1)
	assert.Equal(t, []int64{5}, reader.committed)
}

func TestConsumerStopsDuringBackoffWithoutCommit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{msgs: []kafka.Message{message(5, msg7)}}
	counter := &fakeCounter{counts: map[string]int64{}}
	proc := newFakeProcessor(map[uint]int{7: -1})
	proc.onProcess = cancel

	c := newTestConsumer(reader, counter, proc)
	c.backoff = time.Hour
	c.run(ctx)

	assert.Equal(t, 1, proc.calls[7])
	assert.Empty(t, proc.gaveUp)
	assert.Empty(t, reader.committed)
	assert.Empty(t, counter.counts)
}

func TestHandleMessageSuccessResetsCounter(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int64{"kafka:attempts:submission:7": 2}}
	proc := newFakeProcessor(nil)

	assert.True(t, handleMessage(context.Background(), []byte(msg7), 1, counter, proc, 3))
	assert.Equal(t, 1, proc.calls[7])
	assert.Empty(t, counter.counts)
}

func TestHandleMessageCountsAttemptsAcrossRestarts(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int64{"kafka:attempts:submission:7": 2}}
	proc := newFakeProcessor(map[uint]int{7: -1})

	assert.True(t, handleMessage(context.Background(), []byte(msg7), 1, counter, proc, 3))
	assert.Len(t, proc.gaveUp, 1)
}

func TestHandleMessageMalformedCommits(t *testing.T) {
	proc := newFakeProcessor(nil)
	assert.True(t, handleMessage(context.Background(), []byte("not json"), 1, &fakeCounter{counts: map[string]int64{}}, proc, 3))
	assert.Empty(t, proc.calls)
}

func TestBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, brokers(" a:9092, ,b:9092"))
}
