package rabbitmq

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	USER_INFO_UPDATED_QUEUE  = "user.info.updated"
	PAYMENT_SUCCEEDED_QUEUE  = "payment.succeeded"
	POST_CREATED_QUEUE       = "post.created"
)

type MQConn struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func New(connString string) (*MQConn, error) {
	conn, err := amqp.Dial(connString)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &MQConn{
		conn:    conn,
		channel: channel,
	}, nil
}

func (m *MQConn) declareQueue(name string) (amqp.Queue, error) {
	return m.channel.QueueDeclare(name, true, false, false, false, nil)
}

func (m *MQConn) PublishJSON(ctx context.Context, queue string, msg interface{}) error {
	q, err := m.declareQueue(queue)
	if err != nil {
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return m.channel.PublishWithContext(ctx, "", q.Name, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

func (m *MQConn) Consume(queue string) (<-chan amqp.Delivery, error) {
	q, err := m.declareQueue(queue)
	if err != nil {
		return nil, err
	}

	return m.channel.Consume(q.Name, "", false, false, false, false, nil)
}

func (m *MQConn) Close() error {
	if err := m.channel.Close(); err != nil {
		return err
	}
	return m.conn.Close()
}
