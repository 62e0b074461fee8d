package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"lawgpt/internal/model"
	"lawgpt/internal/platform/rabbitmq"
)

type QueryLogWriter interface {
	Create(ctx context.Context, entry *model.QueryLog) error
}

// QueryLogWorker drains the audit queue into the database.
type QueryLogWorker struct {
	conn      *amqp.Connection
	repo      QueryLogWriter
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewQueryLogWorker(conn *amqp.Connection, repo QueryLogWriter, queueName string) *QueryLogWorker {
	return &QueryLogWorker{
		conn:      conn,
		repo:      repo,
		queueName: queueName,
	}
}

func (w *QueryLogWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	if err := ch.Qos(16, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"lawgpt-query-log-worker",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				w.handle(workerCtx, d)
			}
		}
	}()

	return nil
}

// handle never requeues: a record that cannot be decoded or stored would
// fail the same way again.
func (w *QueryLogWorker) handle(ctx context.Context, d amqp.Delivery) {
	if err := w.persist(ctx, d.Body); err != nil {
		slog.ErrorContext(ctx, "query log worker dropped message", slog.String("error", err.Error()))
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

func (w *QueryLogWorker) persist(ctx context.Context, body []byte) error {
	var entry model.QueryLog
	if err := json.Unmarshal(body, &entry); err != nil {
		return fmt.Errorf("decode query log failed: %w", err)
	}
	entry.ID = 0
	return w.repo.Create(ctx, &entry)
}

func (w *QueryLogWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
