package eth

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/sisu-network/lib/log"
)

// LogCallback receives the logs of one poll in the order returned by the node. err is set when
// the poll could not query the chain; logs is nil in that case.
type LogCallback func(logs []ethtypes.Log, err error)

// PollHandle controls a running log watch.
type PollHandle interface {
	// Cancel stops the watch. It is safe to call more than once and from inside the callback.
	Cancel()

	// Done is closed once the watch has stopped, either cancelled or at its poll limit.
	Done() <-chan struct{}
}

// LogPoller periodically queries logs matching a filter. It replaces a push subscription on
// chains whose rpcs do not support websockets.
type LogPoller interface {
	// WatchLogs polls every interval until limit polls are done (limit <= 0 means no limit). When
	// query.FromBlock is nil the watch starts at the latest block.
	WatchLogs(query ethereum.FilterQuery, interval time.Duration, limit int, callback LogCallback) (PollHandle, error)
}

type pollHandle struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newPollHandle() *pollHandle {
	return &pollHandle{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (h *pollHandle) Cancel() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}

func (h *pollHandle) Done() <-chan struct{} {
	return h.done
}

func (h *pollHandle) cancelled() bool {
	select {
	case <-h.stop:
		return true
	default:
		return false
	}
}

type defaultLogPoller struct {
	chain      string
	client     EthClient
	rpcTimeout time.Duration
}

func NewLogPoller(chain string, client EthClient, rpcTimeout time.Duration) LogPoller {
	if rpcTimeout <= 0 {
		rpcTimeout = RpcTimeOut
	}

	return &defaultLogPoller{
		chain:      chain,
		client:     client,
		rpcTimeout: rpcTimeout,
	}
}

func (p *defaultLogPoller) WatchLogs(query ethereum.FilterQuery, interval time.Duration, limit int,
	callback LogCallback) (PollHandle, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("invalid poll interval %s", interval)
	}

	var from uint64
	if query.FromBlock == nil {
		ctx, cancel := context.WithTimeout(context.Background(), p.rpcTimeout)
		latest, err := p.client.BlockNumber(ctx)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("cannot get latest block of chain %s: %w", p.chain, err)
		}
		from = latest
	} else {
		from = query.FromBlock.Uint64()
	}

	log.Infof("Watching logs on chain %s from block %d, interval = %s, limit = %d", p.chain, from,
		interval, limit)

	h := newPollHandle()
	go p.poll(h, query, from, interval, limit, callback)

	return h, nil
}

func (p *defaultLogPoller) poll(h *pollHandle, query ethereum.FilterQuery, from uint64,
	interval time.Duration, limit int, callback LogCallback) {
	defer close(h.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for count := 0; limit <= 0 || count < limit; count++ {
		select {
		case <-h.stop:
			log.Verbosef("Log watch on chain %s cancelled after %d polls", p.chain, count)
			return
		case <-ticker.C:
		}

		logs, next, err := p.fetch(query, from)
		if err == nil {
			from = next
		} else {
			log.Errorf("Cannot poll logs on chain %s from block %d, err = %v", p.chain, from, err)
		}

		// A cancel that happened while we were waiting for the rpc drops the batch.
		if h.cancelled() {
			return
		}

		callback(logs, err)
	}

	log.Verbosef("Log watch on chain %s reached its limit of %d polls", p.chain, limit)
}

// fetch returns the logs in [from, head] and the next block to query.
func (p *defaultLogPoller) fetch(query ethereum.FilterQuery, from uint64) ([]ethtypes.Log, uint64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.rpcTimeout)
	defer cancel()

	head, err := p.client.BlockNumber(ctx)
	if err != nil {
		return nil, from, err
	}

	// The rpc we hit may lag behind the one used in the previous poll.
	if head < from {
		return []ethtypes.Log{}, from, nil
	}

	q := query
	q.BlockHash = nil
	q.FromBlock = new(big.Int).SetUint64(from)
	q.ToBlock = new(big.Int).SetUint64(head)

	logs, err := p.client.FilterLogs(ctx, q)
	if err != nil {
		return nil, from, err
	}

	return logs, head + 1, nil
}
