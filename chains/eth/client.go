package eth

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sisu-network/lib/log"
	"github.com/sisu-network/proposal-relay/config"
	"github.com/sisu-network/proposal-relay/network"
	"golang.org/x/net/html"
)

var (
	RpcTimeOut = time.Second * 30
)

type NoHealthyClientErr struct {
	chain string
}

func NewNoHealthyClientErr(chain string) error {
	return &NoHealthyClientErr{chain: chain}
}

func (e *NoHealthyClientErr) Error() string {
	return fmt.Sprintf("No healthy client for chain %s", e.chain)
}

// A wrapper around eth.client so that we can mock in poller and dispatcher tests.
type EthClient interface {
	Start()

	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionByHash(ctx context.Context, hash common.Hash) (*ethtypes.Transaction, bool, error)
}

type defaultEthClient struct {
	chain           string
	chainId         int64
	useExternalRpcs bool
	http            network.Http

	clients     []*ethclient.Client
	healthies   []bool
	initialRpcs []string
	rpcs        []string
	rpcTimeout  time.Duration

	lock *sync.RWMutex
}

func NewEthClients(cfg config.ChainConfig) EthClient {
	c := &defaultEthClient{
		chain:           cfg.Chain,
		chainId:         cfg.ChainId,
		useExternalRpcs: cfg.UseExternalRpcs,
		initialRpcs:     cfg.Rpcs,
		http:            network.NewHttp(),
		lock:            &sync.RWMutex{},
	}

	if cfg.RpcTimeout > 0 {
		c.rpcTimeout = time.Duration(cfg.RpcTimeout) * time.Millisecond
	} else {
		c.rpcTimeout = RpcTimeOut
	}

	return c
}

func (c *defaultEthClient) Start() {
	c.updateRpcs()
	go c.loopCheck()
}

func (c *defaultEthClient) loopCheck() {
	sleepTime := time.Minute * 30
	for {
		time.Sleep(sleepTime)
		c.updateRpcs()
	}
}

func (c *defaultEthClient) updateRpcs() {
	c.lock.RLock()
	rpcs := c.initialRpcs
	c.lock.RUnlock()

	if c.useExternalRpcs {
		externals, err := c.GetExtraRpcs()
		if err != nil {
			log.Errorf("Failed to get external rpc info for chain %s, err = %v", c.chain, err)
		} else {
			rpcs = append(rpcs, externals...)
		}
	}

	c.lock.RLock()
	oldClients := c.clients
	c.lock.RUnlock()

	rpcs, clients, healthies := c.getRpcsHealthiness(rpcs)
	log.Infof("Chain %s has %d healthy rpcs", c.chain, len(clients))

	c.lock.Lock()
	for _, client := range oldClients {
		client.Close()
	}

	c.rpcs, c.clients, c.healthies = rpcs, clients, healthies
	c.lock.Unlock()
}

func (c *defaultEthClient) getRpcsHealthiness(allRpcs []string) ([]string, []*ethclient.Client, []bool) {
	clients := make([]*ethclient.Client, 0)
	rpcs := make([]string, 0)
	healthies := make([]bool, 0)

	for _, rpc := range allRpcs {
		client, err := ethclient.Dial(rpc)
		if err != nil {
			log.Verbosef("Cannot dial %s, err = %v", rpc, err)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.rpcTimeout)
		_, err = client.BlockNumber(ctx)
		cancel()
		if err != nil {
			log.Verbosef("Rpc %s is not healthy, err = %v", rpc, err)
			client.Close()
			continue
		}

		clients = append(clients, client)
		rpcs = append(rpcs, rpc)
		healthies = append(healthies, true)
	}

	return rpcs, clients, healthies
}

// processData extracts the rpc list of a chainlist.org chain page. The page embeds its data as
// a JSON text node.
func (c *defaultEthClient) processData(text string) ([]string, error) {
	tokenizer := html.NewTokenizer(strings.NewReader(text))
	var data string
	for data == "" {
		tokenType := tokenizer.Next()
		if tokenType == html.ErrorToken {
			break
		}

		if tokenType == html.TextToken {
			text := tokenizer.Token().Data
			var js json.RawMessage
			if json.Unmarshal([]byte(text), &js) == nil && strings.HasPrefix(strings.TrimSpace(text), "{") {
				data = text
			}
		}
	}

	type result struct {
		Props struct {
			PageProps struct {
				Chain struct {
					Name string `json:"name"`
					RPC  []struct {
						Url string `json:"url"`
					} `json:"rpc"`
				} `json:"chain"`
			} `json:"pageProps"`
		} `json:"props"`
	}

	r := &result{}
	if err := json.Unmarshal([]byte(data), r); err != nil {
		return nil, err
	}

	ret := make([]string, 0)
	for _, rpc := range r.Props.PageProps.Chain.RPC {
		// Websocket rpcs cannot be used for polling.
		if strings.HasPrefix(rpc.Url, "http") {
			ret = append(ret, rpc.Url)
		}
	}

	return ret, nil
}

func (c *defaultEthClient) GetExtraRpcs() ([]string, error) {
	url := fmt.Sprintf("https://chainlist.org/chain/%d", c.chainId)
	log.Verbosef("Getting extra rpcs status from remote link %s for chain %s", url, c.chain)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	bz, err := c.http.Get(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain list data: %w", err)
	}

	return c.processData(string(bz))
}

func (c *defaultEthClient) shuffle() ([]*ethclient.Client, []bool, []string) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	n := len(c.clients)

	clients := make([]*ethclient.Client, n)
	healthy := make([]bool, n)
	rpcs := make([]string, n)

	copy(clients, c.clients)
	copy(healthy, c.healthies)
	copy(rpcs, c.rpcs)

	if n == 0 {
		return clients, healthy, rpcs
	}

	for i := 0; i < 20; i++ {
		x := rand.Intn(n)
		y := rand.Intn(n)

		clients[x], clients[y] = clients[y], clients[x]
		healthy[x], healthy[y] = healthy[y], healthy[x]
		rpcs[x], rpcs[y] = rpcs[y], rpcs[x]
	}

	return clients, healthy, rpcs
}

func (c *defaultEthClient) getHealthyClient() (*ethclient.Client, string) {
	c.lock.RLock()
	if c.clients == nil {
		c.lock.RUnlock()
		c.updateRpcs()
	} else {
		c.lock.RUnlock()
	}

	// Shuffle rpcs so that we will use different healthy rpc
	clients, healthies, rpcs := c.shuffle()
	for i, healthy := range healthies {
		if healthy {
			return clients[i], rpcs[i]
		}
	}

	return nil, ""
}

func execute[T any](c *defaultEthClient, f func(client *ethclient.Client, rpc string) (T, error)) (T, error) {
	client, rpc := c.getHealthyClient()
	if client == nil {
		var empty T
		return empty, NewNoHealthyClientErr(c.chain)
	}

	ret, err := f(client, rpc)
	if err != nil {
		log.Verbosef("Rpc %s of chain %s returned error: %v", rpc, c.chain, err)
	}

	return ret, err
}

func (c *defaultEthClient) BlockNumber(ctx context.Context) (uint64, error) {
	return execute(c, func(client *ethclient.Client, rpc string) (uint64, error) {
		return client.BlockNumber(ctx)
	})
}

func (c *defaultEthClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error) {
	return execute(c, func(client *ethclient.Client, rpc string) ([]ethtypes.Log, error) {
		return client.FilterLogs(ctx, q)
	})
}

func (c *defaultEthClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return execute(c, func(client *ethclient.Client, rpc string) (uint64, error) {
		return client.PendingNonceAt(ctx, account)
	})
}

func (c *defaultEthClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return execute(c, func(client *ethclient.Client, rpc string) (*big.Int, error) {
		return client.SuggestGasPrice(ctx)
	})
}

func (c *defaultEthClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return execute(c, func(client *ethclient.Client, rpc string) (uint64, error) {
		return client.EstimateGas(ctx, msg)
	})
}

func (c *defaultEthClient) SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error {
	_, err := execute(c, func(client *ethclient.Client, rpc string) (bool, error) {
		return true, client.SendTransaction(ctx, tx)
	})

	return err
}

type txByHash struct {
	tx        *ethtypes.Transaction
	isPending bool
}

func (c *defaultEthClient) TransactionByHash(ctx context.Context, hash common.Hash) (*ethtypes.Transaction, bool, error) {
	ret, err := execute(c, func(client *ethclient.Client, rpc string) (txByHash, error) {
		tx, isPending, err := client.TransactionByHash(ctx, hash)
		return txByHash{tx: tx, isPending: isPending}, err
	})

	return ret.tx, ret.isPending, err
}
