package eth

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sisu-network/proposal-relay/utils"
)

// Signer signs transactions of one account for one chain.
type Signer interface {
	Address() common.Address
	ChainId() *big.Int
	SignTx(tx *ethtypes.Transaction) (*ethtypes.Transaction, error)
}

// SignerProvider supplies the signing identity used for a transfer.
type SignerProvider interface {
	Signer(ctx context.Context) (Signer, error)
}

type PrivateKeySigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainId    *big.Int
	signer     ethtypes.Signer
}

func NewPrivateKeySigner(privateKeyHex string, chainId *big.Int) (*PrivateKeySigner, error) {
	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &PrivateKeySigner{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		chainId:    chainId,
		signer:     utils.GetEthChainSigner(chainId),
	}, nil
}

func (s *PrivateKeySigner) Address() common.Address {
	return s.address
}

func (s *PrivateKeySigner) ChainId() *big.Int {
	return s.chainId
}

func (s *PrivateKeySigner) SignTx(tx *ethtypes.Transaction) (*ethtypes.Transaction, error) {
	return ethtypes.SignTx(tx, s.signer, s.privateKey)
}

type staticSignerProvider struct {
	signer Signer
}

func NewStaticSignerProvider(signer Signer) SignerProvider {
	return &staticSignerProvider{signer: signer}
}

func (p *staticSignerProvider) Signer(ctx context.Context) (Signer, error) {
	return p.signer, nil
}
