package core

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sisu-network/lib/log"
	"github.com/sisu-network/proposal-relay/chains/eth"
	"github.com/sisu-network/proposal-relay/config"
	"github.com/sisu-network/proposal-relay/database"
	"github.com/sisu-network/proposal-relay/types"
	"go.uber.org/atomic"
)

// Processor owns every long lived object of the relay: chain clients, nonce tracker, transfer
// queue and the watch session.
type Processor struct {
	cfg          config.Relay
	db           database.Database
	sourceClient eth.EthClient
	targetClient eth.EthClient

	nonces  *eth.NonceTracker
	queue   *TransferQueue
	session *Session

	started *atomic.Bool
}

// NewProcessor wires the relay. targetClient may be nil when the configured action does not
// transfer.
func NewProcessor(cfg *config.Relay, db database.Database, sourceClient, targetClient eth.EthClient) (*Processor, error) {
	p := &Processor{
		cfg:          *cfg,
		db:           db,
		sourceClient: sourceClient,
		targetClient: targetClient,
		nonces:       eth.NewNonceTracker(),
		started:      atomic.NewBool(false),
	}

	handler, err := p.newHandler()
	if err != nil {
		return nil, err
	}

	decoder, err := eth.NewProposalDecoder()
	if err != nil {
		return nil, err
	}

	source := cfg.Source
	poller := eth.NewLogPoller(source.Chain, sourceClient, time.Duration(source.RpcTimeout)*time.Millisecond)

	p.queue = NewTransferQueue(cfg.QueueSize, handler, func(campaign uint64, record *types.LogRecord) {
		p.session.AddRecord(campaign, record)
	})

	p.session = NewSession(SessionConfig{
		Chain:      source.Chain,
		DaoAddress: common.HexToAddress(source.DaoAddress),
		Interval:   time.Duration(source.PollInterval) * time.Millisecond,
		PollLimit:  source.PollLimit,
	}, poller, decoder, p.queue, p.saveRecord)

	return p, nil
}

func (p *Processor) newHandler() (EventHandler, error) {
	switch p.cfg.Action {
	case config.ActionNone:
		log.Info("No downstream action is configured, events are only recorded")
		return NewNoopHandler(), nil

	case config.ActionTransfer:
		if p.targetClient == nil {
			return nil, fmt.Errorf("transfer action needs a target chain client")
		}

		target := p.cfg.Target
		signer, err := eth.NewPrivateKeySigner(target.PrivateKey, big.NewInt(target.ChainId))
		if err != nil {
			return nil, err
		}
		log.Infof("Transfers are sent from %s on chain %s", signer.Address().Hex(), target.Chain)

		dispatcher, err := eth.NewErc20Dispatcher(target.Chain, common.HexToAddress(target.TokenAddress),
			p.targetClient, eth.NewStaticSignerProvider(signer), p.nonces,
			time.Duration(target.RpcTimeout)*time.Millisecond)
		if err != nil {
			return nil, err
		}

		return NewTransferHandler(dispatcher), nil
	}

	return nil, fmt.Errorf("unknown action %s", p.cfg.Action)
}

func (p *Processor) Start() {
	if !p.started.CAS(false, true) {
		return
	}

	log.Info("Starting relay processor...")

	p.sourceClient.Start()
	if p.targetClient != nil {
		p.targetClient.Start()
	}

	p.queue.Start()
}

// Stop cancels the running campaign and waits for the transfer in progress.
func (p *Processor) Stop() {
	if _, err := p.session.Stop(); err != nil && err != types.ErrNotWatching {
		log.Error("Cannot stop watching logs, err = ", err)
	}

	p.queue.Stop()
	log.Info("Relay processor stopped")
}

func (p *Processor) saveRecord(record *types.LogRecord) {
	if record.Kind.IsFailure() {
		log.Warnf("Campaign %d: %s", record.Campaign, record)
	}

	p.db.SaveRecord(record)
}

func (p *Processor) WatchStart() (string, error) {
	return p.session.Start()
}

func (p *Processor) WatchStop() (string, error) {
	return p.session.Stop()
}

func (p *Processor) IsPolling() bool {
	return p.session.IsPolling()
}

func (p *Processor) PollCount() uint64 {
	return p.session.PollCount()
}

func (p *Processor) CollectedLogs() []string {
	return p.session.CollectedLogs()
}

// TransferHistory returns the latest transfer outcomes of all campaigns, newest first.
func (p *Processor) TransferHistory(limit int) ([]string, error) {
	records, err := p.db.LoadRecords(limit, types.RecordTransferSucceeded, types.RecordTransferFailed)
	if err != nil {
		return nil, err
	}

	ret := make([]string, len(records))
	for i, record := range records {
		ret[i] = record.String()
	}

	return ret, nil
}
