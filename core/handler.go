package core

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sisu-network/lib/log"
	"github.com/sisu-network/proposal-relay/chains/eth"
	"github.com/sisu-network/proposal-relay/types"
)

// EventHandler is the downstream action run for every decoded proposal event. It returns the
// record describing the outcome and never panics on a failed action.
type EventHandler interface {
	Handle(ctx context.Context, event *types.ProposalEvent) *types.LogRecord
}

// NoopHandler only acknowledges events.
type NoopHandler struct{}

func NewNoopHandler() *NoopHandler {
	return &NoopHandler{}
}

func (h *NoopHandler) Handle(ctx context.Context, event *types.ProposalEvent) *types.LogRecord {
	return types.NewEventRecord(types.RecordSkipped, event, "no downstream action")
}

// TransferHandler sends the proposal amount to the proposal's target address on the target chain.
type TransferHandler struct {
	dispatcher eth.TransferDispatcher
}

func NewTransferHandler(dispatcher eth.TransferDispatcher) *TransferHandler {
	return &TransferHandler{
		dispatcher: dispatcher,
	}
}

func (h *TransferHandler) Handle(ctx context.Context, event *types.ProposalEvent) *types.LogRecord {
	if !common.IsHexAddress(event.TargetAddress) {
		err := types.NewTransferError(types.TransferInvalidTarget,
			fmt.Errorf("%q is not an address on the target chain", event.TargetAddress))
		log.Warnf("Skipping transfer for proposal %s: %v", event.ProposalId, err)
		return types.NewEventRecord(types.RecordTransferFailed, event, err.Error())
	}

	result, err := h.dispatcher.Dispatch(ctx, common.HexToAddress(event.TargetAddress), event.Amount)
	if err != nil {
		log.Errorf("Transfer for proposal %s failed: %v", event.ProposalId, err)
		return types.NewEventRecord(types.RecordTransferFailed, event, err.Error())
	}

	log.Infof("Transfer for proposal %s sent: %s", event.ProposalId, result)

	record := types.NewEventRecord(types.RecordTransferSucceeded, event, "")
	record.TxHash = result.TxHash
	nonce := result.Nonce
	record.Nonce = &nonce
	if result.Pending {
		record.Message = "pending"
	}

	return record
}
