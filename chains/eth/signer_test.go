package eth

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

func TestPrivateKeySigner_AddressSignsTransactions(t *testing.T) {
	chainId := big.NewInt(11155420)
	signer, err := NewPrivateKeySigner(testPrivateKey, chainId)
	require.Nil(t, err)

	to := common.HexToAddress("0x01")
	signed, err := signer.SignTx(ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    1,
		GasPrice: big.NewInt(1),
		Gas:      21_000,
		To:       &to,
		Value:    big.NewInt(0),
	}))
	require.Nil(t, err)

	sender, err := ethtypes.Sender(ethtypes.NewEIP155Signer(chainId), signed)
	require.Nil(t, err)
	require.Equal(t, signer.Address(), sender)
	require.Equal(t, chainId, signed.ChainId())
}

func TestPrivateKeySigner_InvalidKey(t *testing.T) {
	_, err := NewPrivateKeySigner("not a key", big.NewInt(1))
	require.NotNil(t, err)
}
