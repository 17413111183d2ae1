package eth

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/sisu-network/lib/log"
	"github.com/sisu-network/proposal-relay/types"
)

// TransferDispatcher sends token transfers on the target chain.
type TransferDispatcher interface {
	Dispatch(ctx context.Context, to common.Address, amount *big.Int) (*types.TransferResult, error)
}

// Erc20Dispatcher sends ERC20 transfers with an explicit nonce taken from a NonceTracker. It
// does not serialize concurrent calls.
type Erc20Dispatcher struct {
	chain      string
	token      common.Address
	client     EthClient
	signers    SignerProvider
	nonces     *NonceTracker
	gas        *gasCalculator
	tokenAbi   abi.ABI
	rpcTimeout time.Duration
}

func NewErc20Dispatcher(chain string, token common.Address, client EthClient, signers SignerProvider,
	nonces *NonceTracker, rpcTimeout time.Duration) (*Erc20Dispatcher, error) {
	tokenAbi, err := abi.JSON(strings.NewReader(Erc20ABI))
	if err != nil {
		return nil, err
	}

	if rpcTimeout <= 0 {
		rpcTimeout = RpcTimeOut
	}

	return &Erc20Dispatcher{
		chain:      chain,
		token:      token,
		client:     client,
		signers:    signers,
		nonces:     nonces,
		gas:        newGasCalculator(chain, client, GasPriceUpdateInterval),
		tokenAbi:   tokenAbi,
		rpcTimeout: rpcTimeout,
	}, nil
}

func (d *Erc20Dispatcher) Dispatch(ctx context.Context, to common.Address, amount *big.Int) (*types.TransferResult, error) {
	signer, err := d.signers.Signer(ctx)
	if err != nil {
		return nil, types.NewTransferError(types.TransferSignerUnavailable, err)
	}
	from := signer.Address()

	nonce := d.nextNonce(ctx, from)

	data, err := d.tokenAbi.Pack(TransferMethod, to, amount)
	if err != nil {
		return nil, types.NewTransferError(types.TransferBuildFailed, errors.Wrap(err, "cannot pack transfer"))
	}

	gasPrice, gasLimit, err := d.getGas(ctx, from, data)
	if err != nil {
		return nil, types.NewTransferError(types.TransferSubmissionFailed, err)
	}

	token := d.token
	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &token,
		Value:    big.NewInt(0),
		Data:     data,
	})

	signedTx, err := signer.SignTx(tx)
	if err != nil {
		return nil, types.NewTransferError(types.TransferBuildFailed, errors.Wrap(err, "cannot sign transfer"))
	}

	log.Infof("Sending transfer on chain %s: to = %s, amount = %s, nonce = %d, hash = %s",
		d.chain, to.Hex(), amount, nonce, signedTx.Hash().Hex())

	sendCtx, cancel := context.WithTimeout(ctx, d.rpcTimeout)
	err = d.client.SendTransaction(sendCtx, signedTx)
	cancel()
	if err != nil {
		log.Errorf("Failed to send transfer on chain %s, nonce = %d, err = %v", d.chain, nonce, err)
		if isNonceTooLow(err) {
			// Another sender used this account. Read the nonce from the chain next time.
			d.nonces.Reset()
		}
		return nil, types.NewTransferError(types.TransferSubmissionFailed, err)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, d.rpcTimeout)
	included, isPending, err := d.client.TransactionByHash(lookupCtx, signedTx.Hash())
	cancel()
	if err != nil || included == nil {
		if err == nil {
			err = ethereum.NotFound
		}
		log.Errorf("Cannot get transfer %s on chain %s, err = %v", signedTx.Hash().Hex(), d.chain, err)
		return nil, types.NewTransferError(types.TransferUnconfirmed,
			fmt.Errorf("could not get transaction %s: %w", signedTx.Hash().Hex(), err))
	}

	// The nonce is consumed. The next transfer of this account uses this nonce + 1.
	d.nonces.Update(included.Nonce())

	return &types.TransferResult{
		TxHash:  included.Hash().Hex(),
		Nonce:   included.Nonce(),
		ChainId: signer.ChainId(),
		From:    from.Hex(),
		To:      to.Hex(),
		Amount:  amount,
		Pending: isPending,
	}, nil
}

// nextNonce returns the cached nonce + 1, or the pending nonce of the account on the chain. A
// failed query falls back to 0.
func (d *Erc20Dispatcher) nextNonce(ctx context.Context, from common.Address) uint64 {
	if lastUsed, ok := d.nonces.LastUsed(); ok {
		return lastUsed + 1
	}

	ctx, cancel := context.WithTimeout(ctx, d.rpcTimeout)
	defer cancel()

	nonce, err := d.client.PendingNonceAt(ctx, from)
	if err != nil {
		log.Error("cannot get nonce of chain ", d.chain, " at ", from.Hex(), ", err = ", err)
		return 0
	}

	return nonce
}

func (d *Erc20Dispatcher) getGas(ctx context.Context, from common.Address, data []byte) (*big.Int, uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, d.rpcTimeout)
	defer cancel()

	gasPrice, err := d.gas.GetGasPrice(ctx)
	if err != nil {
		return nil, 0, err
	}

	token := d.token
	gasLimit, err := d.client.EstimateGas(ctx, ethereum.CallMsg{
		From:     from,
		To:       &token,
		GasPrice: gasPrice,
		Data:     data,
	})
	if err != nil {
		log.Errorf("Cannot estimate transfer gas on chain %s, err = %v", d.chain, err)
		return nil, 0, errors.Wrap(err, "cannot estimate gas")
	}

	return gasPrice, addGasBuffer(gasLimit), nil
}

func isNonceTooLow(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "nonce too low")
}

// addGasBuffer adds a 20% buffer to the gas limit.
func addGasBuffer(gasLimit uint64) uint64 {
	return 6 * gasLimit / 5
}
