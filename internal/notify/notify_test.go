package notify

import (
	"context"
	"errors"
	"testing"
	"time"
)

type blockingNotifier struct{}

func (blockingNotifier) Notify(ctx context.Context, _ string, _ Kind, _ map[string]string) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestWithTimeoutExpires(t *testing.T) {
	n := WithTimeout(blockingNotifier{}, 10*time.Millisecond)
	err := n.Notify(context.Background(), "u1", KindTaskReady, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestWithTimeoutPassThrough(t *testing.T) {
	rec := &Recorder{}
	n := WithTimeout(rec, time.Second)
	if err := n.Notify(context.Background(), "u1", KindCustom, map[string]string{"message": "hi"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := rec.Deliveries()
	if len(got) != 1 || got[0].RecipientID != "u1" || got[0].Payload["message"] != "hi" {
		t.Errorf("unexpected deliveries: %+v", got)
	}
}

func TestRecorderErr(t *testing.T) {
	rec := &Recorder{Err: errors.New("transport down")}
	if err := rec.Notify(context.Background(), "u1", KindTaskReady, nil); err == nil {
		t.Error("expected configured error")
	}
	if len(rec.Deliveries()) != 0 {
		t.Error("failed notify must not be recorded")
	}
}
