// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"tutor-smart-go/internal/config"
	"tutor-smart-go/pkg/log"
	"tutor-smart-go/pkg/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

const attemptsTTL = 24 * time.Hour

// TaskProcessor 处理批改任务。OnGiveUp 在任务达到最大重试次数后调用一次。
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.GradingTask) error
	OnGiveUp(ctx context.Context, task tasks.GradingTask, cause error)
}

// AttemptCounter 记录每个任务的失败次数。
type AttemptCounter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// Producer 向批改主题投递任务。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	log.Info("Kafka 生产者初始化成功")
	return &Producer{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers(cfg.Brokers)...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}}
}

// Publish 发送一个批改任务。
func (p *Producer) Publish(ctx context.Context, task tasks.GradingTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.Key()),
		Value: taskBytes,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

type redisAttempts struct {
	rdb *redis.Client
}

// NewRedisAttemptCounter 返回基于 Redis INCR 的失败计数器。
func NewRedisAttemptCounter(rdb *redis.Client) AttemptCounter {
	return &redisAttempts{rdb: rdb}
}

func (a *redisAttempts) Incr(ctx context.Context, key string) (int64, error) {
	n, err := a.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	_ = a.rdb.Expire(ctx, key, attemptsTTL).Err()
	return n, nil
}

func (a *redisAttempts) Reset(ctx context.Context, key string) error {
	return a.rdb.Del(ctx, key).Err()
}

// messageReader 是消费循环用到的 *kafka.Reader 方法子集。
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type consumer struct {
	reader      messageReader
	counter     AttemptCounter
	processor   TaskProcessor
	maxAttempts int64
	backoff     time.Duration
}

// StartConsumer 消费批改任务直到 ctx 被取消。
// 消费组的 reader 不会重新投递未提交的消息，失败的任务在循环内原地重试，
// 成功或失败达到 maxAttempts 次后才提交 offset。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, counter AttemptCounter, processor TaskProcessor) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers(cfg.Brokers),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	maxAttempts := int64(cfg.MaxAttempts)
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	c := &consumer{
		reader:      r,
		counter:     counter,
		processor:   processor,
		maxAttempts: maxAttempts,
		backoff:     cfg.RetryBackoff,
	}
	c.run(ctx)
}

func (c *consumer) run(ctx context.Context) {
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("Kafka 消费者已停止")
				return
			}
			log.Error("从 Kafka 读取消息失败", err)
			return
		}

		log.Infof("收到 Kafka 消息: offset %d", m.Offset)
		if !c.handleWithRetry(ctx, m) {
			// 停机时未完成的消息不提交，重启后从该 offset 继续
			log.Infof("Kafka 消费者已停止，未提交 offset %d", m.Offset)
			return
		}
		if err := c.reader.CommitMessages(context.Background(), m); err != nil {
			log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
		}
	}
}

// handleWithRetry 在同一条消息上重试直到可以提交。ctx 被取消时返回 false。
func (c *consumer) handleWithRetry(ctx context.Context, m kafka.Message) bool {
	for attempt := int64(1); ; attempt++ {
		if handleMessage(ctx, m.Value, attempt, c.counter, c.processor, c.maxAttempts) {
			return true
		}
		wait := c.backoff * time.Duration(attempt)
		log.Warnf("批改任务将在 %s 后重试, offset: %d, 本地第 %d 次", wait, m.Offset, attempt)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(wait):
		}
	}
}

// handleMessage 处理单条消息，返回是否应提交 offset。
// 失败次数优先取 Redis 计数以跨重启累计，Redis 不可用时退回到本地的 attempt。
func handleMessage(ctx context.Context, value []byte, attempt int64, counter AttemptCounter, processor TaskProcessor, maxAttempts int64) bool {
	var task tasks.GradingTask
	if err := json.Unmarshal(value, &task); err != nil {
		// 格式错误的消息直接提交，避免阻塞队列
		log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(value))
		return true
	}

	attemptsKey := fmt.Sprintf("kafka:attempts:%s", task.Key())
	log.Infof("开始处理批改任务: %s, kind: %s", task.Key(), task.Kind)
	err := processor.Process(ctx, task)
	if err == nil {
		log.Infof("批改任务处理成功: %s", task.Key())
		_ = counter.Reset(context.Background(), attemptsKey)
		return true
	}

	log.Errorf("处理批改任务失败: %s, Error: %v", task.Key(), err)
	if ctx.Err() != nil {
		// 停机导致的失败不计入重试次数
		return false
	}
	attempts, incErr := counter.Incr(ctx, attemptsKey)
	if incErr != nil {
		log.Errorf("记录失败次数失败: %v", incErr)
		attempts = attempt
	}
	if attempts < maxAttempts {
		return false
	}
	log.Errorf("批改任务多次失败(>=%d)，提交 offset 终止重试: %s", maxAttempts, task.Key())
	processor.OnGiveUp(context.Background(), task, err)
	_ = counter.Reset(context.Background(), attemptsKey)
	return true
}

func brokers(list string) []string {
	parts := strings.Split(list, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
