package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/golang/groupcache/lru"
	"github.com/sisu-network/lib/log"
	"github.com/sisu-network/proposal-relay/chains/eth"
	"github.com/sisu-network/proposal-relay/metrics"
	"github.com/sisu-network/proposal-relay/types"
	"github.com/sisu-network/proposal-relay/utils"
)

const (
	// Number of dispatched logs remembered across campaigns.
	SeenCacheSize = 10_000
)

// EventDecoder turns a raw log into a proposal event.
type EventDecoder interface {
	EventId() common.Hash
	Decode(l *ethtypes.Log) (*types.ProposalEvent, error)
}

// EventQueue accepts decoded events for the downstream handler without blocking.
type EventQueue interface {
	Enqueue(campaign uint64, event *types.ProposalEvent) error
}

// SessionConfig is the static part of a watch campaign.
type SessionConfig struct {
	Chain      string
	DaoAddress common.Address
	Interval   time.Duration
	PollLimit  int
}

// Session runs at most one watch campaign at a time. A campaign polls the source chain for DAO
// events PollLimit times (or until stopped) and sends every new decoded event to the queue.
type Session struct {
	cfg      SessionConfig
	poller   eth.LogPoller
	decoder  EventDecoder
	queue    EventQueue
	observer func(record *types.LogRecord)

	lock      *sync.Mutex
	active    eth.PollHandle
	starting  bool
	campaign  uint64
	records   []*types.LogRecord
	pollCount uint64
	seq       int
	seen      *lru.Cache
}

// NewSession creates an idle session. observer, if set, is called with every record produced
// for any campaign, outside of the session lock.
func NewSession(cfg SessionConfig, poller eth.LogPoller, decoder EventDecoder, queue EventQueue,
	observer func(record *types.LogRecord)) *Session {
	return &Session{
		cfg:      cfg,
		poller:   poller,
		decoder:  decoder,
		queue:    queue,
		observer: observer,
		lock:     &sync.Mutex{},
		records:  make([]*types.LogRecord, 0),
		seen:     lru.New(SeenCacheSize),
	}
}

// Start begins a new campaign. It fails with ErrAlreadyWatching while another campaign is active.
func (s *Session) Start() (string, error) {
	s.lock.Lock()
	if s.active != nil || s.starting {
		s.lock.Unlock()
		return "", types.ErrAlreadyWatching
	}

	s.starting = true
	s.campaign++
	campaign := s.campaign
	s.records = make([]*types.LogRecord, 0)
	s.pollCount = 0
	s.lock.Unlock()

	query := ethereum.FilterQuery{
		Addresses: []common.Address{s.cfg.DaoAddress},
		Topics:    [][]common.Hash{{s.decoder.EventId()}},
	}

	handle, err := s.poller.WatchLogs(query, s.cfg.Interval, s.cfg.PollLimit, func(logs []ethtypes.Log, err error) {
		s.onPoll(campaign, logs, err)
	})

	s.lock.Lock()
	defer s.lock.Unlock()

	s.starting = false
	if err != nil {
		log.Errorf("Cannot start watching logs on chain %s, err = %v", s.cfg.Chain, err)
		return "", fmt.Errorf("cannot start watching logs: %w", err)
	}

	metrics.Campaigns.Inc()
	msg := fmt.Sprintf("Watching for logs, polling %d times.", s.cfg.PollLimit)
	if s.cfg.PollLimit <= 0 {
		msg = "Watching for logs until stopped."
	}

	if s.limitReached() {
		// Every poll of the campaign was delivered before WatchLogs returned.
		handle.Cancel()
		return msg, nil
	}

	s.active = handle
	metrics.SetPolling(true)
	log.Infof("Campaign %d started on chain %s, dao = %s", campaign, s.cfg.Chain, s.cfg.DaoAddress.Hex())

	return msg, nil
}

// Stop cancels the running campaign. Records and the poll count are kept.
func (s *Session) Stop() (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.active == nil {
		return "", types.ErrNotWatching
	}

	s.active.Cancel()
	s.active = nil
	metrics.SetPolling(false)
	log.Infof("Campaign %d stopped after %d polls", s.campaign, s.pollCount)

	return "Watching for logs stopped.", nil
}

func (s *Session) IsPolling() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.active != nil
}

func (s *Session) PollCount() uint64 {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.pollCount
}

// CollectedLogs returns the records of the current (or last) campaign in order.
func (s *Session) CollectedLogs() []string {
	s.lock.Lock()
	defer s.lock.Unlock()

	ret := make([]string, len(s.records))
	for i, record := range s.records {
		ret[i] = record.String()
	}

	return ret
}

// Records returns a copy of the records of the current (or last) campaign.
func (s *Session) Records() []*types.LogRecord {
	s.lock.Lock()
	defer s.lock.Unlock()

	ret := make([]*types.LogRecord, len(s.records))
	copy(ret, s.records)

	return ret
}

// AddRecord adds the outcome of a handled event. Outcomes of older campaigns are only passed to
// the observer.
func (s *Session) AddRecord(campaign uint64, record *types.LogRecord) {
	s.lock.Lock()
	s.addRecord(campaign, record)
	s.lock.Unlock()

	s.notify([]*types.LogRecord{record})
}

func (s *Session) onPoll(campaign uint64, logs []ethtypes.Log, pollErr error) {
	s.lock.Lock()

	// Late batch of a campaign that was stopped or replaced.
	if campaign != s.campaign || (s.active == nil && !s.starting) {
		s.lock.Unlock()
		log.Verbosef("Dropping %d logs of finished campaign %d", len(logs), campaign)
		return
	}

	added := make([]*types.LogRecord, 0, len(logs))
	if pollErr != nil {
		added = append(added, s.addRecord(campaign, types.NewRecord(types.RecordPollFailure, "", pollErr.Error())))
	}

	for i := range logs {
		if record := s.processLog(campaign, &logs[i]); record != nil {
			added = append(added, record)
		}
	}

	s.pollCount++
	metrics.ObservePoll(pollErr)
	log.Verbosef("Campaign %d: poll %d returned %d logs", campaign, s.pollCount, len(logs))

	if s.limitReached() && s.active != nil {
		s.active.Cancel()
		s.active = nil
		metrics.SetPolling(false)
		log.Infof("Campaign %d finished after %d polls", campaign, s.pollCount)
	}

	s.lock.Unlock()

	s.notify(added)
}

// processLog must be called with the lock held.
func (s *Session) processLog(campaign uint64, l *ethtypes.Log) *types.LogRecord {
	key := types.LogKey(l.TxHash.Hex(), l.Index)

	if l.Removed {
		return s.addRecord(campaign, types.NewRecord(types.RecordSkipped, key, "log removed by reorg"))
	}

	if _, ok := s.seen.Get(key); ok {
		return s.addRecord(campaign, types.NewRecord(types.RecordSkipped, key, "already dispatched"))
	}

	event, err := s.decoder.Decode(l)
	if err != nil {
		log.Errorf("Campaign %d: %v", campaign, err)
		return s.addRecord(campaign, types.NewRecord(types.RecordDecodeFailure, key, err.Error()))
	}

	if err := s.queue.Enqueue(campaign, event); err != nil {
		log.Errorf("Campaign %d: cannot queue %s, err = %v", campaign, event, err)
		return s.addRecord(campaign, types.NewEventRecord(types.RecordQueueFull, event, err.Error()))
	}

	s.seen.Add(key, struct{}{})

	return s.addRecord(campaign, types.NewEventRecord(types.RecordObserved, event, ""))
}

// addRecord must be called with the lock held.
func (s *Session) addRecord(campaign uint64, record *types.LogRecord) *types.LogRecord {
	record.Campaign = campaign
	record.Id = utils.RecordId(campaign, s.seq, string(record.Kind), record.LogKey)
	s.seq++

	if campaign == s.campaign {
		s.records = append(s.records, record)
	}

	return record
}

func (s *Session) notify(records []*types.LogRecord) {
	for _, record := range records {
		metrics.ObserveRecord(record)
		if s.observer != nil {
			s.observer(record)
		}
	}
}

func (s *Session) limitReached() bool {
	return s.cfg.PollLimit > 0 && s.pollCount >= uint64(s.cfg.PollLimit)
}
