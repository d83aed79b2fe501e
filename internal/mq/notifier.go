package mq

import (
	"context"
	"log"
	"time"

	"load-shedding-monitor/internal/stage"
)

// Notifier publishes worker-side events to RabbitMQ for the bot to
// deliver.
type Notifier struct {
	pub *Publisher
}

// NewNotifier creates a notifier backed by the given publisher.
func NewNotifier(pub *Publisher) *Notifier {
	return &Notifier{pub: pub}
}

// NotifyStageChange publishes a region stage change.
func (n *Notifier) NotifyStageChange(regionID, regionName string, oldStage, newStage stage.Stage, when time.Time) {
	msg := StageChangeMsg{
		RegionID:   regionID,
		RegionName: regionName,
		OldStage:   oldStage,
		NewStage:   newStage,
		When:       when,
	}
	if err := n.pub.Publish(context.Background(), RoutingStageChange, msg); err != nil {
		log.Printf("[mq] failed to publish stage change for %s: %v", regionID, err)
	}
}

// NotifyOutageAlert publishes an upcoming outage alert for a subscribed chat.
func (n *Notifier) NotifyOutageAlert(chatID int64, areaID, areaName string, s stage.Stage, start, end time.Time) {
	msg := OutageAlertMsg{
		ChatID:    chatID,
		AreaID:    areaID,
		AreaName:  areaName,
		Stage:     s,
		StartTime: start,
		EndTime:   end,
	}
	if err := n.pub.Publish(context.Background(), RoutingOutageAlert, msg); err != nil {
		log.Printf("[mq] failed to publish outage alert for chat %d: %v", chatID, err)
	}
}
