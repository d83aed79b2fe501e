package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"load-shedding-monitor/internal/mq"
)

// Listener consumes worker notifications from RabbitMQ and delivers
// them to Telegram chats.
type Listener struct {
	bot      *Bot
	consumer *mq.Consumer
}

// NewListener creates a listener over the given consumer.
func NewListener(b *Bot, consumer *mq.Consumer) *Listener {
	return &Listener{bot: b, consumer: consumer}
}

// Start consumes the stage change and outage alert queues until ctx is
// cancelled.
func (l *Listener) Start(ctx context.Context) error {
	stageDeliveries, err := l.consumer.Consume(mq.QueueStageChange)
	if err != nil {
		return fmt.Errorf("consume stage changes: %w", err)
	}
	alertDeliveries, err := l.consumer.Consume(mq.QueueOutageAlert)
	if err != nil {
		return fmt.Errorf("consume outage alerts: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-stageDeliveries:
			if !ok {
				return nil
			}
			l.handleStageChange(ctx, d)
		case d, ok := <-alertDeliveries:
			if !ok {
				return nil
			}
			l.handleOutageAlert(d)
		}
	}
}

// handleStageChange fans a region stage change out to every chat with a
// subscription in that region.
func (l *Listener) handleStageChange(ctx context.Context, d amqp.Delivery) {
	var msg mq.StageChangeMsg
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		log.Printf("[bot] bad stage change message: %v", err)
		d.Nack(false, false)
		return
	}

	chats, err := l.bot.db.GetChatIDsByRegion(ctx, msg.RegionID)
	if err != nil {
		log.Printf("[bot] failed to load chats for region %s: %v", msg.RegionID, err)
		d.Nack(false, true)
		return
	}

	text := fmt.Sprintf(msgStageChange, html.EscapeString(msg.RegionName), msg.OldStage, msg.NewStage)
	for _, chatID := range chats {
		if err := l.bot.Send(chatID, text); err != nil {
			log.Printf("[bot] failed to notify chat %d: %v", chatID, err)
		}
	}
	d.Ack(false)
}

func (l *Listener) handleOutageAlert(d amqp.Delivery) {
	var msg mq.OutageAlertMsg
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		log.Printf("[bot] bad outage alert message: %v", err)
		d.Nack(false, false)
		return
	}

	text := fmt.Sprintf(msgOutageAlert,
		html.EscapeString(msg.AreaName),
		msg.Stage,
		msg.StartTime.In(sastZone).Format("15:04"),
		msg.EndTime.In(sastZone).Format("15:04"))
	if err := l.bot.Send(msg.ChatID, text); err != nil {
		log.Printf("[bot] failed to alert chat %d: %v", msg.ChatID, err)
		d.Nack(false, true)
		return
	}
	d.Ack(false)
}
