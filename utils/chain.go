package utils

import (
	"math/big"

	etypes "github.com/ethereum/go-ethereum/core/types"
)

var chainIds = map[string]int64{
	"eth":              1,
	"sepolia":          11155111,
	"base":             8453,
	"base-sepolia":     84532,
	"optimism":         10,
	"optimism-sepolia": 11155420,
	"ganache1":         189985,
	"ganache2":         189986,
}

// GetChainIntFromId returns the numeric chain id of a known chain name, or 0.
func GetChainIntFromId(chain string) *big.Int {
	id, ok := chainIds[chain]
	if !ok {
		return big.NewInt(0)
	}

	return big.NewInt(id)
}

func GetEthChainSigner(chainId *big.Int) etypes.Signer {
	return etypes.LatestSignerForChainID(chainId)
}
