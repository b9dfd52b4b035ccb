package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/fingov/service/messaging/memory"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type approvalRequested struct {
	TransactionID string
	ApproverID    string
}

func TestListener(t *testing.T) {
	config := memory.DefaultConfig()
	config.RetryDelay = time.Millisecond
	config.MaxRetries = 1
	queue := memory.NewQueue[Event[approvalRequested]](config)
	publisher := NewPublisher[approvalRequested](queue)

	core, logs := observer.New(zap.WarnLevel)
	var mu sync.Mutex
	var handled []string
	listener := NewListener[approvalRequested](queue, func(ctx context.Context, event *Event[approvalRequested]) error {
		if event.Data.ApproverID == "" {
			return errors.New("no recipient")
		}
		mu.Lock()
		handled = append(handled, event.Data.TransactionID)
		mu.Unlock()
		return nil
	}, zap.New(core))
	listener.Start(context.Background())

	ctx := context.Background()
	require.NoError(t, publisher.Publish(ctx, NewEvent("approval.requested", approvalRequested{TransactionID: "tx-1", ApproverID: "u-2"})))
	require.NoError(t, publisher.Publish(ctx, &Event[approvalRequested]{Type: "approval.requested", Data: approvalRequested{TransactionID: "tx-2"}}))

	queue.Drain()
	listener.Stop()
	listener.Stop()

	assert.Equal(t, []string{"tx-1"}, handled)
	assert.Len(t, queue.DeadLetters(), 1)
	assert.Equal(t, 2, logs.FilterMessage("event handler failed").Len())
}
