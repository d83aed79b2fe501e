package mq

import "context"

// RefreshRequester implements bot.Refresher by publishing to RabbitMQ.
type RefreshRequester struct {
	pub *Publisher
}

// NewRefreshRequester creates a requester that publishes refresh requests to RabbitMQ.
func NewRefreshRequester(pub *Publisher) *RefreshRequester {
	return &RefreshRequester{pub: pub}
}

// RequestRefresh publishes a request to refresh one area's schedule immediately.
func (r *RefreshRequester) RequestRefresh(ctx context.Context, areaID string, chatID int64) error {
	return r.pub.Publish(ctx, RoutingRefreshRequest, RefreshRequestMsg{
		AreaID: areaID,
		ChatID: chatID,
	})
}
