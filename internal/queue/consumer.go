package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AuditLogFile is the file the consumer appends to inside its log
// directory.
const AuditLogFile = "audit.log"

// AuditConsumer listens on every event queue and appends one line per
// event to <dir>/audit.log.
type AuditConsumer struct {
	url    string
	dir    string
	logger *slog.Logger
}

func NewAuditConsumer(url, dir string, logger *slog.Logger) *AuditConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditConsumer{url: url, dir: dir, logger: logger}
}

// Run connects to the broker and consumes until ctx is cancelled,
// reconnecting with exponential backoff when the connection drops.
func (c *AuditConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Warn("audit-consumer: dial failed", "error", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("audit-consumer: consume loop ended; reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *AuditConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.logger.Warn("audit-consumer: set QoS failed", "error", err)
	}

	deliveries := make(chan amqp.Delivery)
	for _, name := range EventTypes {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
		msgs, err := ch.Consume(name, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", name, err)
		}
		go func(msgs <-chan amqp.Delivery) {
			for d := range msgs {
				select {
				case deliveries <- d:
				case <-ctx.Done():
					return
				}
			}
		}(msgs)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-closed:
			if amqpErr != nil {
				return amqpErr
			}
			return errors.New("connection closed")
		case d := <-deliveries:
			if err := c.handle(d.Body); err != nil {
				c.logger.Error("audit-consumer: handle message failed", "error", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *AuditConsumer) handle(body []byte) error {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line, err := FormatAuditLine(env)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(c.dir, AuditLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatAuditLine renders an envelope as a single human readable line.
func FormatAuditLine(env Envelope) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s | id=%s", env.OccurredAt.UTC().Format(time.RFC3339), env.Type, env.ID)

	switch env.Type {
	case TypeRegistrationApproved:
		var ev RegistrationApprovedEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return "", fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
		fmt.Fprintf(&b, " | registration_id=%d | student_id=%d | room_id=%d | contract=%s | payment_id=%d | amount=%s | by=%d",
			ev.RegistrationID, ev.StudentID, ev.RoomID, ev.ContractCode, ev.PaymentID, ev.Amount.StringFixed(2), ev.ApprovedBy)
	case TypeContractRenewed:
		var ev ContractRenewedEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return "", fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
		fmt.Fprintf(&b, " | contract=%s | months=%d | end=%s -> %s | by=%d",
			ev.ContractCode, ev.Months, ev.OldEndDate, ev.NewEndDate, ev.RenewedBy)
	case TypeContractTerminated:
		var ev ContractTerminatedEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return "", fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
		fmt.Fprintf(&b, " | contract=%s | room_id=%d | end=%s | reason=%q | by=%d",
			ev.ContractCode, ev.RoomID, ev.EndDate, ev.Reason, ev.TerminatedBy)
	case TypePaymentConfirmed:
		var ev PaymentConfirmedEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return "", fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
		fmt.Fprintf(&b, " | payment_id=%d | contract_id=%d | student_id=%d | amount=%s | method=%s | by=%d",
			ev.PaymentID, ev.ContractID, ev.StudentID, ev.Amount.StringFixed(2), ev.Method, ev.ConfirmedBy)
	default:
		return "", fmt.Errorf("unknown event type %q", env.Type)
	}
	b.WriteByte('\n')
	return b.String(), nil
}
