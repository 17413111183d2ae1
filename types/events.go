package types

import (
	"fmt"
	"math/big"
)

// ProposalEvent is a decoded AcceptedBTCProposalEvent log.
type ProposalEvent struct {
	ProposalId    *big.Int
	TargetAddress string
	Amount        *big.Int

	// Location of the log on the source chain.
	TxHash      string
	LogIndex    uint
	BlockNumber uint64
}

// Key identifies the log that produced this event.
func (e *ProposalEvent) Key() string {
	return LogKey(e.TxHash, e.LogIndex)
}

func (e *ProposalEvent) String() string {
	return fmt.Sprintf("proposal %s: %s to %s (block %d, tx %s)", e.ProposalId, e.Amount,
		e.TargetAddress, e.BlockNumber, e.TxHash)
}

func LogKey(txHash string, logIndex uint) string {
	return fmt.Sprintf("%s:%d", txHash, logIndex)
}
