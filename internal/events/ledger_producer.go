package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher is what the ledger service needs; NopPublisher satisfies it
// in tests and when the stream is disabled.
type Publisher interface {
	Publish(ctx context.Context, event *LedgerEvent) error
	PublishBatch(ctx context.Context, events []*LedgerEvent) error
}

type LedgerProducer struct {
	client     *redis.Client
	streamName string
}

func NewLedgerProducer(client *redis.Client, streamName string) *LedgerProducer {
	return &LedgerProducer{
		client:     client,
		streamName: streamName,
	}
}

func (p *LedgerProducer) Publish(ctx context.Context, event *LedgerEvent) error {
	result := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.streamName,
		Values: eventFields(event),
	})

	if err := result.Err(); err != nil {
		return fmt.Errorf("failed to publish ledger event: %w", err)
	}
	return nil
}

func (p *LedgerProducer) PublishBatch(ctx context.Context, events []*LedgerEvent) error {
	if len(events) == 0 {
		return nil
	}

	pipe := p.client.Pipeline()
	for _, event := range events {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: p.streamName,
			Values: eventFields(event),
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish batch: %w", err)
	}
	return nil
}

func eventFields(event *LedgerEvent) map[string]interface{} {
	fields := map[string]interface{}{
		"entry_id":    event.EntryID,
		"user_id":     event.UserID,
		"action":      event.Action,
		"category":    event.Category,
		"debit":       event.Debit,
		"credit":      event.Credit,
		"occurred_at": event.OccurredAt,
	}

	if event.Description != "" {
		fields["description"] = event.Description
	}
	if event.Source != "" {
		fields["source"] = event.Source
	}
	return fields
}

// NopPublisher drops events.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event *LedgerEvent) error { return nil }

func (NopPublisher) PublishBatch(ctx context.Context, events []*LedgerEvent) error { return nil }
