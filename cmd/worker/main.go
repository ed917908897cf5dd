// Command worker consumes moderation events and notifies authors and admins.
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/devnovate/blog/config"
	"github.com/devnovate/blog/events"
	"github.com/devnovate/blog/notify"
	"github.com/devnovate/blog/utils"
)

func main() {
	cfg := config.Load()
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	logger := utils.Logger.Named("worker")
	defer func() { _ = logger.Sync() }()

	if cfg.RabbitMQURL == "" {
		logger.Fatal("RABBITMQ_URL is required")
	}

	dispatcher := &notify.Dispatcher{Logger: logger, SiteURL: cfg.OAuthRedirectBase}
	if mailer := utils.NewMailer(cfg); mailer.Configured() {
		dispatcher.Mail = mailer
	} else {
		logger.Warn("SMTP not configured, author emails disabled")
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramAdminChatID != "" {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramAdminChatID)
		if err != nil {
			logger.Warn("telegram notifications disabled", zap.Error(err))
		} else {
			dispatcher.Chat = tg
		}
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("failed to connect to RabbitMQ", zap.Error(err))
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("failed to open channel", zap.Error(err))
	}
	defer ch.Close()

	if err := events.DeclareExchange(ch); err != nil {
		logger.Fatal("failed to declare exchange", zap.Error(err))
	}
	q, err := ch.QueueDeclare(events.QueueName, true, false, false, false, nil)
	if err != nil {
		logger.Fatal("failed to declare queue", zap.Error(err))
	}
	if err := ch.QueueBind(q.Name, events.BindingKey, events.ExchangeName, false, nil); err != nil {
		logger.Fatal("failed to bind queue", zap.Error(err))
	}
	if err := ch.Qos(10, 0, false); err != nil {
		logger.Fatal("failed to set prefetch", zap.Error(err))
	}

	deliveries, err := ch.Consume(q.Name, "moderation-notifier", false, false, false, false, nil)
	if err != nil {
		logger.Fatal("failed to start consuming", zap.Error(err))
	}

	logger.Info("notification worker started", zap.String("queue", q.Name))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutting down")
			return
		case d, ok := <-deliveries:
			if !ok {
				logger.Warn("delivery channel closed")
				return
			}
			handleDelivery(ctx, logger, dispatcher, d)
		}
	}
}

func handleDelivery(ctx context.Context, logger *zap.Logger, dispatcher *notify.Dispatcher, d amqp.Delivery) {
	var e events.Event
	if err := json.Unmarshal(d.Body, &e); err != nil {
		logger.Error("invalid event body", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	if err := dispatcher.Handle(ctx, e); err != nil {
		// notifications are best effort and never retried
		logger.Error("notification failed", zap.String("type", e.Type), zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	if err := d.Ack(false); err != nil {
		logger.Error("failed to ack", zap.Error(err))
	}
}
