package core

import (
	"context"

	"github.com/sisu-network/proposal-relay/types"
)

type MockEventHandler struct {
	HandleFunc func(ctx context.Context, event *types.ProposalEvent) *types.LogRecord
}

func (h *MockEventHandler) Handle(ctx context.Context, event *types.ProposalEvent) *types.LogRecord {
	if h.HandleFunc != nil {
		return h.HandleFunc(ctx, event)
	}

	return types.NewEventRecord(types.RecordSkipped, event, "")
}

type MockEventQueue struct {
	EnqueueFunc func(campaign uint64, event *types.ProposalEvent) error
}

func (q *MockEventQueue) Enqueue(campaign uint64, event *types.ProposalEvent) error {
	if q.EnqueueFunc != nil {
		return q.EnqueueFunc(campaign, event)
	}

	return nil
}
