package eth

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

type MockEthClient struct {
	StartFunc             func()
	BlockNumberFunc       func(ctx context.Context) (uint64, error)
	FilterLogsFunc        func(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error)
	PendingNonceAtFunc    func(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPriceFunc   func(ctx context.Context) (*big.Int, error)
	EstimateGasFunc       func(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransactionFunc   func(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionByHashFunc func(ctx context.Context, hash common.Hash) (*ethtypes.Transaction, bool, error)
}

func (c *MockEthClient) Start() {
	if c.StartFunc != nil {
		c.StartFunc()
	}
}

func (c *MockEthClient) BlockNumber(ctx context.Context) (uint64, error) {
	if c.BlockNumberFunc != nil {
		return c.BlockNumberFunc(ctx)
	}

	return 0, nil
}

func (c *MockEthClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error) {
	if c.FilterLogsFunc != nil {
		return c.FilterLogsFunc(ctx, q)
	}

	return nil, nil
}

func (c *MockEthClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	if c.PendingNonceAtFunc != nil {
		return c.PendingNonceAtFunc(ctx, account)
	}

	return 0, nil
}

func (c *MockEthClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if c.SuggestGasPriceFunc != nil {
		return c.SuggestGasPriceFunc(ctx)
	}

	return big.NewInt(1), nil
}

func (c *MockEthClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if c.EstimateGasFunc != nil {
		return c.EstimateGasFunc(ctx, msg)
	}

	return 21_000, nil
}

func (c *MockEthClient) SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error {
	if c.SendTransactionFunc != nil {
		return c.SendTransactionFunc(ctx, tx)
	}

	return nil
}

func (c *MockEthClient) TransactionByHash(ctx context.Context, hash common.Hash) (*ethtypes.Transaction, bool, error) {
	if c.TransactionByHashFunc != nil {
		return c.TransactionByHashFunc(ctx, hash)
	}

	return nil, false, ethereum.NotFound
}

type MockLogPoller struct {
	WatchLogsFunc func(query ethereum.FilterQuery, interval time.Duration, limit int, callback LogCallback) (PollHandle, error)
}

func (p *MockLogPoller) WatchLogs(query ethereum.FilterQuery, interval time.Duration, limit int,
	callback LogCallback) (PollHandle, error) {
	if p.WatchLogsFunc != nil {
		return p.WatchLogsFunc(query, interval, limit, callback)
	}

	return NewMockPollHandle(), nil
}

type MockPollHandle struct {
	lock      *sync.Mutex
	cancelled bool
	done      chan struct{}
}

func NewMockPollHandle() *MockPollHandle {
	return &MockPollHandle{
		lock: &sync.Mutex{},
		done: make(chan struct{}),
	}
}

func (h *MockPollHandle) Cancel() {
	h.lock.Lock()
	defer h.lock.Unlock()

	if !h.cancelled {
		h.cancelled = true
		close(h.done)
	}
}

func (h *MockPollHandle) Done() <-chan struct{} {
	return h.done
}

func (h *MockPollHandle) Cancelled() bool {
	h.lock.Lock()
	defer h.lock.Unlock()

	return h.cancelled
}

// MockProposalLog builds a DAO AcceptedBTCProposalEvent log.
func MockProposalLog(proposalId int64, target string, amount int64, txHash common.Hash, index uint) ethtypes.Log {
	d, err := NewProposalDecoder()
	if err != nil {
		panic(err)
	}

	data, err := d.event.Inputs.NonIndexed().Pack(big.NewInt(proposalId), target, big.NewInt(amount))
	if err != nil {
		panic(err)
	}

	return ethtypes.Log{
		Topics:      []common.Hash{d.EventId()},
		Data:        data,
		BlockNumber: 100,
		TxHash:      txHash,
		Index:       index,
	}
}
