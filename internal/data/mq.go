package data

import (
	"context"
	"time"

	"randomizer/internal/biz"
	"randomizer/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// mqPublisher MQ 发布器实现
type mqPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	log      *log.Helper
}

// NewEventPublisher 创建流事件发布器
// RabbitMQ 未配置或连接失败时返回空实现，不影响抽样
func NewEventPublisher(c *conf.Data, logger log.Logger) (biz.EventPublisher, func(), error) {
	helper := log.NewHelper(log.With(logger, "module", "data/mq"))

	if c.Rabbitmq.Url == "" {
		helper.Warn("rabbitmq config not found, mq publisher disabled")
		return &noopPublisher{log: helper}, func() {}, nil
	}

	conn, err := amqp.Dial(c.Rabbitmq.Url)
	if err != nil {
		helper.Warnf("failed to connect rabbitmq: %v, using noop publisher", err)
		return &noopPublisher{log: helper}, func() {}, nil
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		helper.Warnf("failed to open channel: %v, using noop publisher", err)
		return &noopPublisher{log: helper}, func() {}, nil
	}

	// topic exchange，routing key 即事件类型
	err = ch.ExchangeDeclare(
		c.Rabbitmq.Exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		helper.Warnf("failed to declare exchange: %v, using noop publisher", err)
		return &noopPublisher{log: helper}, func() {}, nil
	}

	if c.Rabbitmq.Queue != "" {
		if _, err := ch.QueueDeclare(c.Rabbitmq.Queue, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			helper.Warnf("failed to declare queue: %v, using noop publisher", err)
			return &noopPublisher{log: helper}, func() {}, nil
		}
		if err := ch.QueueBind(c.Rabbitmq.Queue, "stream.*", c.Rabbitmq.Exchange, false, nil); err != nil {
			ch.Close()
			conn.Close()
			helper.Warnf("failed to bind queue: %v, using noop publisher", err)
			return &noopPublisher{log: helper}, func() {}, nil
		}
	}

	helper.Infof("rabbitmq connected: exchange=%s queue=%s", c.Rabbitmq.Exchange, c.Rabbitmq.Queue)

	cleanup := func() {
		if err := ch.Close(); err != nil {
			helper.Errorf("failed to close channel: %v", err)
		}
		if err := conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			helper.Errorf("failed to close connection: %v", err)
		}
		helper.Info("rabbitmq connection closed")
	}

	return &mqPublisher{
		conn:     conn,
		channel:  ch,
		exchange: c.Rabbitmq.Exchange,
		log:      helper,
	}, cleanup, nil
}

// PublishStreamEvent 发布流事件，消息体为 protobuf 编码的 google.protobuf.Struct
func (p *mqPublisher) PublishStreamEvent(ctx context.Context, event biz.StreamEvent) error {
	body, err := marshalEvent(event)
	if err != nil {
		p.log.Errorf("marshal event failed: %v", err)
		return err
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		event.Type, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/x-protobuf",
			Type:         event.Type,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.Timestamp,
		},
	)
	if err != nil {
		p.log.Errorf("publish message failed: type=%s stream=%s err=%v", event.Type, event.Stream, err)
		return errors.Wrap(err, "publish stream event")
	}
	return nil
}

func marshalEvent(event biz.StreamEvent) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]interface{}{
		"event_type": event.Type,
		"stream":     event.Stream,
		"seed":       event.Seed,
		"draws":      float64(event.Draws),
		"timestamp":  event.Timestamp.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, errors.Wrap(err, "build event struct")
	}
	return proto.Marshal(s)
}

// noopPublisher 空实现（当 RabbitMQ 未配置或连接失败时使用）
type noopPublisher struct {
	log *log.Helper
}

func (p *noopPublisher) PublishStreamEvent(ctx context.Context, event biz.StreamEvent) error {
	if p.log != nil {
		p.log.Debugf("mq publisher not available, skipping event: type=%s stream=%s", event.Type, event.Stream)
	}
	return nil
}
