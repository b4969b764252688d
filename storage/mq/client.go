package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"CekNomor/config"
)

// 任务派发用的交换机与队列
const (
	ExchangeValidation  = "validation.topic"
	ExchangeDelayed     = "validation.delayed" // 需要 rabbitmq_delayed_message_exchange 插件
	QueueJobDispatch    = "validation.job.dispatch.queue"
	RoutingKeyDispatch  = "validation.job.dispatch"
	PrefetchJobDispatch = 1 // 一个 worker 同一时间只吃一个任务
)

var conn *amqp.Connection

func Init() error {
	var err error
	url := config.Cfg.GetRabbitMQURL()
	conn, err = amqp.Dial(url)
	if err != nil {
		return fmt.Errorf("failed to connect rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(
		ExchangeValidation,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		QueueJobDispatch,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, RoutingKeyDispatch, ExchangeValidation, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	if err := ch.ExchangeDeclare(
		ExchangeDelayed,
		"x-delayed-message",
		true,
		false,
		false,
		false,
		amqp.Table{"x-delayed-type": "topic"},
	); err != nil {
		return fmt.Errorf("failed to declare delayed exchange: %w", err)
	}

	if err := ch.QueueBind(q.Name, RoutingKeyDispatch, ExchangeDelayed, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue to delayed exchange: %w", err)
	}

	return nil
}

func Connection() *amqp.Connection {
	return conn
}

func Close(ctx context.Context) error {
	if conn == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- conn.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
