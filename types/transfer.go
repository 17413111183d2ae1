package types

import (
	"fmt"
	"math/big"
)

// TransferResult describes a token transfer accepted by the target chain.
type TransferResult struct {
	TxHash  string
	Nonce   uint64
	ChainId *big.Int
	From    string
	To      string
	Amount  *big.Int

	// True when the tx was found in the mempool but not yet in a block.
	Pending bool
}

func (r *TransferResult) String() string {
	return fmt.Sprintf("tx %s (chain %s, nonce %d, from %s, to %s, amount %s, pending %v)",
		r.TxHash, r.ChainId, r.Nonce, r.From, r.To, r.Amount, r.Pending)
}
