package main

import (
	"context"
	"errors"
	"testing"

	redislib "github.com/redis/go-redis/v9"

	"github.com/himalai/expense-service/internal/events"
	"github.com/himalai/expense-service/internal/logger"
)

func init() {
	log = logger.New("analytics-worker-test")
}

type fakeSink struct {
	batches [][]events.LedgerEvent
	err     error
}

func (s *fakeSink) InsertLedgerEvents(ctx context.Context, batch []events.LedgerEvent) error {
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, batch)
	return nil
}

type fakeTotals struct {
	deltas map[string]int
}

func (t *fakeTotals) AdjustTransactionTotals(ctx context.Context, deltas map[string]int) error {
	t.deltas = deltas
	return nil
}

func ledgerMessage(id, entryID, userID, action string) redislib.XMessage {
	return redislib.XMessage{
		ID: id,
		Values: map[string]interface{}{
			"entry_id":    entryID,
			"user_id":     userID,
			"action":      action,
			"debit":       "42.50",
			"occurred_at": "1756400000",
		},
	}
}

func TestProcessBatchAcksAndAdjustsTotals(t *testing.T) {
	sink := &fakeSink{}
	totals := &fakeTotals{}
	msgs := []redislib.XMessage{
		ledgerMessage("1-0", "e1", "u1", events.ActionAdded),
		ledgerMessage("2-0", "e2", "u1", events.ActionAdded),
		ledgerMessage("3-0", "e3", "u2", events.ActionDeleted),
	}

	ackIDs, err := processBatch(context.Background(), msgs, sink, totals)
	if err != nil {
		t.Fatalf("processBatch failed: %v", err)
	}
	if len(ackIDs) != 3 {
		t.Errorf("Expected 3 acked IDs, got %d", len(ackIDs))
	}
	if len(sink.batches) != 1 || len(sink.batches[0]) != 3 {
		t.Fatalf("Expected one batch of 3 events, got %v", sink.batches)
	}
	if totals.deltas["u1"] != 2 || totals.deltas["u2"] != -1 {
		t.Errorf("Expected deltas u1=+2 u2=-1, got %v", totals.deltas)
	}
}

func TestProcessBatchKeepsBatchPendingOnInsertFailure(t *testing.T) {
	sink := &fakeSink{err: errors.New("connection refused")}
	totals := &fakeTotals{}
	msgs := []redislib.XMessage{
		ledgerMessage("1-0", "e1", "u1", events.ActionAdded),
	}

	ackIDs, err := processBatch(context.Background(), msgs, sink, totals)
	if err == nil {
		t.Fatal("Expected an error when the insert fails")
	}
	if len(ackIDs) != 0 {
		t.Errorf("Expected no acked IDs on insert failure, got %v", ackIDs)
	}
	if totals.deltas != nil {
		t.Errorf("Expected no totals adjustment on insert failure, got %v", totals.deltas)
	}
}

func TestProcessBatchAcksUndecodableMessages(t *testing.T) {
	sink := &fakeSink{}
	msgs := []redislib.XMessage{
		{ID: "1-0", Values: map[string]interface{}{"garbage": "yes"}},
	}

	ackIDs, err := processBatch(context.Background(), msgs, sink, nil)
	if err != nil {
		t.Fatalf("processBatch failed: %v", err)
	}
	if len(ackIDs) != 1 || ackIDs[0] != "1-0" {
		t.Errorf("Expected the bad message to be acked, got %v", ackIDs)
	}
	if len(sink.batches) != 0 {
		t.Errorf("Expected nothing inserted, got %v", sink.batches)
	}
}
