package eth

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/sisu-network/lib/log"
)

var (
	GasPriceUpdateInterval = time.Second * 60
)

// gasCalculator caches the suggested gas price of a chain for legacy transactions.
type gasCalculator struct {
	chain                  string
	client                 EthClient
	gasPriceUpdateInterval time.Duration

	gasPrice           *big.Int
	lastUpdateGasPrice time.Time
	lock               *sync.RWMutex
}

func newGasCalculator(chain string, client EthClient, gasPriceUpdateInterval time.Duration) *gasCalculator {
	return &gasCalculator{
		chain:                  chain,
		client:                 client,
		gasPriceUpdateInterval: gasPriceUpdateInterval,
		lock:                   &sync.RWMutex{},
	}
}

// GetGasPrice returns the cached gas price, refreshing it once it is older than the update
// interval. A failed refresh falls back to the previous price; it is an error only when no price
// was ever fetched.
func (g *gasCalculator) GetGasPrice(ctx context.Context) (*big.Int, error) {
	g.lock.RLock()
	gasPrice := g.gasPrice
	lastUpdate := g.lastUpdateGasPrice
	g.lock.RUnlock()

	if gasPrice != nil && time.Now().Before(lastUpdate.Add(g.gasPriceUpdateInterval)) {
		return new(big.Int).Set(gasPrice), nil
	}

	newPrice, err := g.client.SuggestGasPrice(ctx)
	if err != nil {
		if gasPrice == nil {
			return nil, fmt.Errorf("cannot get gas price of chain %s: %w", g.chain, err)
		}

		log.Warnf("Failed to update gas price for chain %s, using %s. err = %v", g.chain, gasPrice, err)
		return new(big.Int).Set(gasPrice), nil
	}

	g.lock.Lock()
	g.gasPrice = newPrice
	g.lastUpdateGasPrice = time.Now()
	g.lock.Unlock()

	return new(big.Int).Set(newPrice), nil
}
