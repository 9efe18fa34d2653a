package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestQueue(t *testing.T, maxRetries int) *RedisSettlementQueue {
	t.Helper()
	redisSrv := miniredis.RunT(t)
	q, err := NewRedisSettlementQueue(RedisQueueConfig{
		Addr:       redisSrv.Addr(),
		Stream:     "test:settlement",
		Group:      "test-group",
		Consumer:   "consumer-1",
		MaxRetries: maxRetries,
		Block:      20 * time.Millisecond,
		RetryDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func TestRedisSettlementQueueRequeueAndAckSuccess(t *testing.T) {
	q, ctx, msgID, job := newPendingQueueMessage(t)

	if err := q.requeueAndAck(ctx, msgID, job.ID, job.Settlement); err != nil {
		t.Fatalf("requeue and ack: %v", err)
	}

	pending, err := q.client.XPending(ctx, q.stream, q.group).Result()
	if err != nil {
		t.Fatalf("xpending: %v", err)
	}
	if pending.Count != 0 {
		t.Fatalf("expected no pending messages, got %d", pending.Count)
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: "consumer-2",
		Streams:  []string{q.stream, ">"},
		Count:    1,
		Block:    0,
	}).Result()
	if err != nil {
		t.Fatalf("read requeued message: %v", err)
	}
	if len(streams) != 1 || len(streams[0].Messages) != 1 {
		t.Fatalf("expected one requeued message, got %+v", streams)
	}
	jobID, s := settlementFromMessage(streams[0].Messages[0])
	if jobID != job.ID || s != job.Settlement {
		t.Fatalf("unexpected requeued payload: %s %+v", jobID, s)
	}
}

func TestRedisSettlementQueueRequeueAndAckFailureKeepsPendingMessage(t *testing.T) {
	q, ctx, msgID, job := newPendingQueueMessage(t)

	canceledCtx, cancel := context.WithCancel(ctx)
	cancel()
	if err := q.requeueAndAck(canceledCtx, msgID, job.ID, job.Settlement); err == nil {
		t.Fatalf("expected requeueAndAck to fail on canceled context")
	}

	pending, err := q.client.XPending(ctx, q.stream, q.group).Result()
	if err != nil {
		t.Fatalf("xpending: %v", err)
	}
	if pending.Count != 1 {
		t.Fatalf("expected original message to remain pending, got %d", pending.Count)
	}
	streamLen, err := q.client.XLen(ctx, q.stream).Result()
	if err != nil {
		t.Fatalf("xlen: %v", err)
	}
	if streamLen != 1 {
		t.Fatalf("expected no new message in stream on failure, got len=%d", streamLen)
	}
}

func TestRedisSettlementQueueEnqueueRequiresPayment(t *testing.T) {
	q := newTestQueue(t, 0)
	if _, err := q.Enqueue(context.Background(), Settlement{}); err == nil {
		t.Fatalf("expected missing payment id to fail")
	}
}

func TestRedisSettlementQueueDeliversBacklog(t *testing.T) {
	q := newTestQueue(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// enqueued before any consumer group exists
	job, err := q.Enqueue(ctx, Settlement{PaymentID: "pay-1", TransactionID: "MPESA_1", Method: "mpesa"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	seen := make(chan JobStatus, 1)
	q.Start(ctx, 1, func(_ context.Context, j JobStatus) error {
		seen <- j
		return nil
	})

	select {
	case got := <-seen:
		if got.PaymentID != "pay-1" || got.TransactionID != "MPESA_1" || got.Method != "mpesa" || got.Attempts != 1 {
			t.Fatalf("unexpected job: %+v", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("job was not delivered")
	}

	waitForStatus(t, q, job.ID, StatusDone)
	cancel()
	q.Wait()
}

func TestRedisSettlementQueueMarksFailedAfterRetries(t *testing.T) {
	q := newTestQueue(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	q.Start(ctx, 1, func(context.Context, JobStatus) error {
		calls.Add(1)
		return errors.New("gateway unavailable")
	})
	job, err := q.Enqueue(ctx, Settlement{PaymentID: "pay-2", Method: "paypal"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	got := waitForStatus(t, q, job.ID, StatusFailed)
	if got.Attempts != 2 || got.ErrorMessage != "gateway unavailable" {
		t.Fatalf("unexpected failed job: %+v", got)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
	cancel()
	q.Wait()
}

func waitForStatus(t *testing.T, q *RedisSettlementQueue, jobID, status string) JobStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, ok, err := q.GetJob(context.Background(), jobID)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if ok && job.Status == status {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached %s", jobID, status)
	return JobStatus{}
}

func newPendingQueueMessage(t *testing.T) (*RedisSettlementQueue, context.Context, string, JobStatus) {
	t.Helper()

	q := newTestQueue(t, 0)
	ctx := context.Background()
	q.ensureGroup(ctx)

	job, err := q.Enqueue(ctx, Settlement{PaymentID: "pay-1", TransactionID: "PAYPAL_1", Method: "paypal"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: "consumer-1",
		Streams:  []string{q.stream, ">"},
		Count:    1,
		Block:    0,
	}).Result()
	if err != nil {
		t.Fatalf("readgroup: %v", err)
	}
	if len(streams) != 1 || len(streams[0].Messages) != 1 {
		t.Fatalf("expected one pending message, got %+v", streams)
	}
	return q, ctx, streams[0].Messages[0].ID, job
}
