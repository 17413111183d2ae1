package eth

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/sisu-network/proposal-relay/types"
	"github.com/stretchr/testify/require"
)

const testPrivateKey = "fad9c8855b740a0b7ed4c221dbad0f33a83a49cad6b3fe8d5817ac83d38b6a19"

var (
	testToken  = common.HexToAddress("0x63A0bfd6a5cdCF446ae12135E2CD86b908659568")
	testTarget = common.HexToAddress("0xABCD000000000000000000000000000000000001")
)

func getTestDispatcher(t *testing.T, client EthClient, nonces *NonceTracker) *Erc20Dispatcher {
	signer, err := NewPrivateKeySigner(testPrivateKey, big.NewInt(11155420))
	require.Nil(t, err)

	d, err := NewErc20Dispatcher("optimism-sepolia", testToken, client, NewStaticSignerProvider(signer),
		nonces, time.Second)
	require.Nil(t, err)

	return d
}

// mockChain keeps sent transactions so that they can be looked up by hash.
type mockChain struct {
	lock sync.Mutex
	sent map[common.Hash]*ethtypes.Transaction
}

func newMockChain() *mockChain {
	return &mockChain{sent: make(map[common.Hash]*ethtypes.Transaction)}
}

func (m *mockChain) client(pendingNonce uint64) *MockEthClient {
	return &MockEthClient{
		PendingNonceAtFunc: func(ctx context.Context, account common.Address) (uint64, error) {
			return pendingNonce, nil
		},
		SendTransactionFunc: func(ctx context.Context, tx *ethtypes.Transaction) error {
			m.lock.Lock()
			defer m.lock.Unlock()
			m.sent[tx.Hash()] = tx
			return nil
		},
		TransactionByHashFunc: func(ctx context.Context, hash common.Hash) (*ethtypes.Transaction, bool, error) {
			m.lock.Lock()
			defer m.lock.Unlock()
			tx, ok := m.sent[hash]
			if !ok {
				return nil, false, ethereum.NotFound
			}
			return tx, false, nil
		},
	}
}

func TestDispatcher_FirstTransferUsesChainNonce(t *testing.T) {
	chain := newMockChain()
	nonces := NewNonceTracker()
	d := getTestDispatcher(t, chain.client(7), nonces)

	result, err := d.Dispatch(context.Background(), testTarget, big.NewInt(1000))
	require.Nil(t, err)
	require.Equal(t, uint64(7), result.Nonce)
	require.Equal(t, big.NewInt(11155420), result.ChainId)
	require.Equal(t, testTarget.Hex(), result.To)

	lastUsed, ok := nonces.LastUsed()
	require.True(t, ok)
	require.Equal(t, uint64(7), lastUsed)

	// The tx calls transfer(target, 1000) on the token contract.
	tx := chain.sent[common.HexToHash(result.TxHash)]
	require.NotNil(t, tx)
	require.Equal(t, testToken, *tx.To())
	require.Equal(t, big.NewInt(11155420), tx.ChainId())

	args, err := d.tokenAbi.Methods[TransferMethod].Inputs.Unpack(tx.Data()[4:])
	require.Nil(t, err)
	require.Equal(t, testTarget, args[0])
	require.Equal(t, big.NewInt(1000), args[1])

	sender, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(tx.ChainId()), tx)
	require.Nil(t, err)
	require.Equal(t, sender.Hex(), result.From)
}

func TestDispatcher_SequentialNoncesIncrease(t *testing.T) {
	chain := newMockChain()
	nonces := NewNonceTracker()
	d := getTestDispatcher(t, chain.client(3), nonces)

	first, err := d.Dispatch(context.Background(), testTarget, big.NewInt(1))
	require.Nil(t, err)
	second, err := d.Dispatch(context.Background(), testTarget, big.NewInt(2))
	require.Nil(t, err)

	require.Equal(t, uint64(3), first.Nonce)
	require.Equal(t, first.Nonce+1, second.Nonce)
}

func TestDispatcher_NonceQueryFailureFallsBackToZero(t *testing.T) {
	chain := newMockChain()
	client := chain.client(0)
	client.PendingNonceAtFunc = func(ctx context.Context, account common.Address) (uint64, error) {
		return 0, errors.New("rpc down")
	}
	d := getTestDispatcher(t, client, NewNonceTracker())

	result, err := d.Dispatch(context.Background(), testTarget, big.NewInt(1))
	require.Nil(t, err)
	require.Equal(t, uint64(0), result.Nonce)
}

func TestDispatcher_SubmissionFailed(t *testing.T) {
	nonces := NewNonceTracker()
	nonces.Update(10)
	client := &MockEthClient{
		SendTransactionFunc: func(ctx context.Context, tx *ethtypes.Transaction) error {
			return errors.New("insufficient funds for gas * price + value")
		},
	}
	d := getTestDispatcher(t, client, nonces)

	_, err := d.Dispatch(context.Background(), testTarget, big.NewInt(1))
	require.True(t, types.IsTransferError(err, types.TransferSubmissionFailed))
	require.Contains(t, err.Error(), "insufficient funds")

	// A failed transfer does not consume the nonce.
	lastUsed, _ := nonces.LastUsed()
	require.Equal(t, uint64(10), lastUsed)
}

func TestDispatcher_NonceTooLowReadsChainNonceNext(t *testing.T) {
	nonces := NewNonceTracker()
	nonces.Update(10)

	chain := newMockChain()
	client := chain.client(20)
	sendFunc := client.SendTransactionFunc
	client.SendTransactionFunc = func(ctx context.Context, tx *ethtypes.Transaction) error {
		if tx.Nonce() == 11 {
			return errors.New("nonce too low")
		}
		return sendFunc(ctx, tx)
	}
	d := getTestDispatcher(t, client, nonces)

	_, err := d.Dispatch(context.Background(), testTarget, big.NewInt(1))
	require.True(t, types.IsTransferError(err, types.TransferSubmissionFailed))
	_, ok := nonces.LastUsed()
	require.False(t, ok)

	result, err := d.Dispatch(context.Background(), testTarget, big.NewInt(1))
	require.Nil(t, err)
	require.Equal(t, uint64(20), result.Nonce)
}

func TestDispatcher_Unconfirmed(t *testing.T) {
	client := &MockEthClient{
		TransactionByHashFunc: func(ctx context.Context, hash common.Hash) (*ethtypes.Transaction, bool, error) {
			return nil, false, nil
		},
	}
	nonces := NewNonceTracker()
	d := getTestDispatcher(t, client, nonces)

	_, err := d.Dispatch(context.Background(), testTarget, big.NewInt(1))
	require.True(t, types.IsTransferError(err, types.TransferUnconfirmed))

	_, ok := nonces.LastUsed()
	require.False(t, ok)
}

func TestDispatcher_GasEstimateFailed(t *testing.T) {
	nonces := NewNonceTracker()
	nonces.Update(3)

	chain := newMockChain()
	client := chain.client(0)
	client.EstimateGasFunc = func(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
		return 0, errors.New("execution reverted: ERC20: transfer amount exceeds balance")
	}
	d := getTestDispatcher(t, client, nonces)

	amount := new(big.Int).Lsh(big.NewInt(1), 200)
	_, err := d.Dispatch(context.Background(), testTarget, amount)
	require.True(t, types.IsTransferError(err, types.TransferSubmissionFailed))
	require.Contains(t, err.Error(), "transfer amount exceeds balance")

	// Nothing is sent and the nonce stays available.
	require.Empty(t, chain.sent)
	lastUsed, ok := nonces.LastUsed()
	require.True(t, ok)
	require.Equal(t, uint64(3), lastUsed)
}

// Two transfers dispatched at the same time both read the cached nonce before either of them
// updates it and end up with the same nonce. Callers must serialize Dispatch.
func TestDispatcher_ConcurrentDispatchCollides(t *testing.T) {
	nonces := NewNonceTracker()
	nonces.Update(5)

	var lock sync.Mutex
	used := make([]uint64, 0)
	arrived := &sync.WaitGroup{}
	arrived.Add(2)

	chain := newMockChain()
	client := chain.client(0)
	sendFunc := client.SendTransactionFunc
	client.SendTransactionFunc = func(ctx context.Context, tx *ethtypes.Transaction) error {
		lock.Lock()
		used = append(used, tx.Nonce())
		lock.Unlock()

		// Hold both sends until each of them has picked its nonce.
		arrived.Done()
		arrived.Wait()
		return sendFunc(ctx, tx)
	}
	d := getTestDispatcher(t, client, nonces)

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func(amount int64) {
			_, err := d.Dispatch(context.Background(), testTarget, big.NewInt(amount))
			errs <- err
		}(int64(i + 1))
	}
	require.Nil(t, <-errs)
	require.Nil(t, <-errs)

	require.Equal(t, []uint64{6, 6}, used)
}
