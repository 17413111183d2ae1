package eth

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/sisu-network/proposal-relay/types"
)

// ProposalDecoder decodes AcceptedBTCProposalEvent logs of the DAO contract.
type ProposalDecoder struct {
	abi   abi.ABI
	event abi.Event
}

func NewProposalDecoder() (*ProposalDecoder, error) {
	parsed, err := abi.JSON(strings.NewReader(DaoABI))
	if err != nil {
		return nil, err
	}

	event, ok := parsed.Events[AcceptedProposalEvent]
	if !ok {
		return nil, fmt.Errorf("event %s not found in dao abi", AcceptedProposalEvent)
	}

	return &ProposalDecoder{
		abi:   parsed,
		event: event,
	}, nil
}

// EventId is the topic0 of the watched event.
func (d *ProposalDecoder) EventId() common.Hash {
	return d.event.ID
}

func (d *ProposalDecoder) Decode(l *ethtypes.Log) (*types.ProposalEvent, error) {
	key := types.LogKey(l.TxHash.Hex(), l.Index)

	if len(l.Topics) == 0 || l.Topics[0] != d.event.ID {
		return nil, types.NewDecodeError(key, fmt.Errorf("log is not a %s event", d.event.Name))
	}

	values := make(map[string]interface{})
	if err := d.abi.UnpackIntoMap(values, d.event.Name, l.Data); err != nil {
		return nil, types.NewDecodeError(key, err)
	}

	var indexed abi.Arguments
	for _, arg := range d.event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(indexed) > 0 {
		if err := abi.ParseTopicsIntoMap(values, indexed, l.Topics[1:]); err != nil {
			return nil, types.NewDecodeError(key, err)
		}
	}

	proposalId, ok := values["proposalId"].(*big.Int)
	if !ok {
		return nil, types.NewDecodeError(key, fmt.Errorf("invalid proposalId %v", values["proposalId"]))
	}
	target, ok := values["btcAddress"].(string)
	if !ok {
		return nil, types.NewDecodeError(key, fmt.Errorf("invalid btcAddress %v", values["btcAddress"]))
	}
	amount, ok := values["amount"].(*big.Int)
	if !ok {
		return nil, types.NewDecodeError(key, fmt.Errorf("invalid amount %v", values["amount"]))
	}

	return &types.ProposalEvent{
		ProposalId:    proposalId,
		TargetAddress: target,
		Amount:        amount,
		TxHash:        l.TxHash.Hex(),
		LogIndex:      l.Index,
		BlockNumber:   l.BlockNumber,
	}, nil
}
