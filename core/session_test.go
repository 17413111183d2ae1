package core

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/sisu-network/proposal-relay/chains/eth"
	"github.com/sisu-network/proposal-relay/types"
	"github.com/stretchr/testify/require"
)

var testDao = common.HexToAddress("0xA6E782af1b182329282CC67f1ce0f4680030E12F")

// manualPoller hands out the callback of every WatchLogs call so that tests can deliver batches.
type manualPoller struct {
	lock      sync.Mutex
	callbacks []eth.LogCallback
	handles   []*eth.MockPollHandle
	queries   []ethereum.FilterQuery
	err       error
}

func (p *manualPoller) poller() eth.LogPoller {
	return &eth.MockLogPoller{
		WatchLogsFunc: func(query ethereum.FilterQuery, interval time.Duration, limit int, callback eth.LogCallback) (eth.PollHandle, error) {
			p.lock.Lock()
			defer p.lock.Unlock()

			if p.err != nil {
				return nil, p.err
			}

			h := eth.NewMockPollHandle()
			p.callbacks = append(p.callbacks, callback)
			p.handles = append(p.handles, h)
			p.queries = append(p.queries, query)
			return h, nil
		},
	}
}

// deliver calls the callback of the latest campaign.
func (p *manualPoller) deliver(logs []ethtypes.Log, err error) {
	p.lock.Lock()
	callback := p.callbacks[len(p.callbacks)-1]
	p.lock.Unlock()

	callback(logs, err)
}

type queueRecorder struct {
	lock   sync.Mutex
	events []*types.ProposalEvent
	err    error
}

func (q *queueRecorder) queue() *MockEventQueue {
	return &MockEventQueue{
		EnqueueFunc: func(campaign uint64, event *types.ProposalEvent) error {
			q.lock.Lock()
			defer q.lock.Unlock()

			if q.err != nil {
				return q.err
			}
			q.events = append(q.events, event)
			return nil
		},
	}
}

func newTestSession(t *testing.T, limit int) (*Session, *manualPoller, *queueRecorder, *[]*types.LogRecord) {
	decoder, err := eth.NewProposalDecoder()
	require.Nil(t, err)

	poller := &manualPoller{}
	queue := &queueRecorder{}
	observed := make([]*types.LogRecord, 0)
	lock := &sync.Mutex{}

	session := NewSession(SessionConfig{
		Chain:      "base-sepolia",
		DaoAddress: testDao,
		Interval:   time.Second,
		PollLimit:  limit,
	}, poller.poller(), decoder, queue.queue(), func(record *types.LogRecord) {
		lock.Lock()
		defer lock.Unlock()
		observed = append(observed, record)
	})

	return session, poller, queue, &observed
}

func proposalLog(proposalId int64, index uint) ethtypes.Log {
	return eth.MockProposalLog(proposalId, "0xABCD000000000000000000000000000000000001", 1000,
		common.HexToHash("0xaa"), index)
}

func recordKinds(session *Session) []types.RecordKind {
	records := session.Records()
	kinds := make([]types.RecordKind, len(records))
	for i, record := range records {
		kinds[i] = record.Kind
	}

	return kinds
}

func TestSession_StartStop(t *testing.T) {
	session, poller, _, _ := newTestSession(t, 3)

	require.False(t, session.IsPolling())
	_, err := session.Stop()
	require.Equal(t, types.ErrNotWatching, err)

	msg, err := session.Start()
	require.Nil(t, err)
	require.Equal(t, "Watching for logs, polling 3 times.", msg)
	require.True(t, session.IsPolling())

	// The filter matches the DAO event from the latest block.
	query := poller.queries[0]
	require.Equal(t, []common.Address{testDao}, query.Addresses)
	require.Equal(t, eth.MockProposalLog(1, "", 1, common.Hash{}, 0).Topics[0], query.Topics[0][0])
	require.Nil(t, query.FromBlock)

	msg, err = session.Stop()
	require.Nil(t, err)
	require.Equal(t, "Watching for logs stopped.", msg)
	require.False(t, session.IsPolling())
	require.True(t, poller.handles[0].Cancelled())

	_, err = session.Stop()
	require.Equal(t, types.ErrNotWatching, err)
}

func TestSession_AutoTerminatesAtPollLimit(t *testing.T) {
	session, poller, _, _ := newTestSession(t, 3)

	_, err := session.Start()
	require.Nil(t, err)
	require.Equal(t, uint64(0), session.PollCount())

	for i := 1; i <= 3; i++ {
		require.True(t, session.IsPolling())
		poller.deliver([]ethtypes.Log{}, nil)
		require.Equal(t, uint64(i), session.PollCount())
	}

	require.False(t, session.IsPolling())
	require.True(t, poller.handles[0].Cancelled())

	// A new campaign starts from zero.
	_, err = session.Start()
	require.Nil(t, err)
	require.Equal(t, uint64(0), session.PollCount())
	require.True(t, session.IsPolling())
}

func TestSession_RejectedStartKeepsState(t *testing.T) {
	session, poller, _, _ := newTestSession(t, 3)

	_, err := session.Start()
	require.Nil(t, err)
	poller.deliver([]ethtypes.Log{proposalLog(42, 0)}, nil)

	count := session.PollCount()
	logs := session.CollectedLogs()

	_, err = session.Start()
	require.Equal(t, types.ErrAlreadyWatching, err)
	require.Equal(t, count, session.PollCount())
	require.Equal(t, logs, session.CollectedLogs())
	require.Len(t, poller.callbacks, 1)
}

func TestSession_DecodeFailureIsRecorded(t *testing.T) {
	session, poller, queue, observed := newTestSession(t, 3)

	_, err := session.Start()
	require.Nil(t, err)

	malformed := proposalLog(1, 0)
	malformed.Data = malformed.Data[:10]
	poller.deliver([]ethtypes.Log{malformed, proposalLog(2, 1)}, nil)

	require.Equal(t, []types.RecordKind{types.RecordDecodeFailure, types.RecordObserved}, recordKinds(session))
	require.Equal(t, uint64(1), session.PollCount())
	require.True(t, session.IsPolling())

	require.Len(t, queue.events, 1)
	require.Equal(t, int64(2), queue.events[0].ProposalId.Int64())

	logs := session.CollectedLogs()
	require.True(t, strings.HasPrefix(logs[0], "[decode_failure]"))
	require.True(t, strings.HasPrefix(logs[1], "[observed] proposal=2"))
	require.Len(t, *observed, 2)
}

func TestSession_PollFailureIsRecorded(t *testing.T) {
	session, poller, _, _ := newTestSession(t, 3)

	_, err := session.Start()
	require.Nil(t, err)
	poller.deliver(nil, errors.New("connection refused"))

	require.Equal(t, []types.RecordKind{types.RecordPollFailure}, recordKinds(session))
	require.Contains(t, session.CollectedLogs()[0], "connection refused")
	require.Equal(t, uint64(1), session.PollCount())
}

func TestSession_SkipsDuplicateAndRemovedLogs(t *testing.T) {
	session, poller, queue, _ := newTestSession(t, 3)

	_, err := session.Start()
	require.Nil(t, err)

	removed := proposalLog(2, 1)
	removed.Removed = true
	poller.deliver([]ethtypes.Log{proposalLog(1, 0), removed}, nil)
	_, err = session.Stop()
	require.Nil(t, err)

	// The boundary block is polled again by the next campaign.
	_, err = session.Start()
	require.Nil(t, err)
	poller.deliver([]ethtypes.Log{proposalLog(1, 0)}, nil)

	require.Equal(t, []types.RecordKind{types.RecordSkipped}, recordKinds(session))
	require.Len(t, queue.events, 1)
}

func TestSession_QueueFull(t *testing.T) {
	session, poller, queue, _ := newTestSession(t, 3)

	_, err := session.Start()
	require.Nil(t, err)

	queue.err = types.ErrQueueFull
	poller.deliver([]ethtypes.Log{proposalLog(1, 0)}, nil)
	require.Equal(t, []types.RecordKind{types.RecordQueueFull}, recordKinds(session))

	// The dropped event was not remembered and is queued when it shows up again.
	queue.err = nil
	poller.deliver([]ethtypes.Log{proposalLog(1, 0)}, nil)
	require.Equal(t, []types.RecordKind{types.RecordQueueFull, types.RecordObserved}, recordKinds(session))
	require.Len(t, queue.events, 1)
}

func TestSession_IgnoresPreviousCampaign(t *testing.T) {
	session, poller, _, observed := newTestSession(t, 3)

	_, err := session.Start()
	require.Nil(t, err)
	oldCallback := poller.callbacks[0]
	_, err = session.Stop()
	require.Nil(t, err)

	_, err = session.Start()
	require.Nil(t, err)

	oldCallback([]ethtypes.Log{proposalLog(1, 0)}, nil)
	require.Equal(t, uint64(0), session.PollCount())
	require.Empty(t, session.CollectedLogs())

	// A transfer outcome of the first campaign is stored but not shown.
	session.AddRecord(1, types.NewRecord(types.RecordTransferSucceeded, "0xaa:0", ""))
	require.Empty(t, session.CollectedLogs())
	require.Len(t, *observed, 1)
	require.Equal(t, uint64(1), (*observed)[0].Campaign)

	session.AddRecord(2, types.NewRecord(types.RecordTransferSucceeded, "0xaa:1", ""))
	require.Len(t, session.CollectedLogs(), 1)
}

func TestSession_StopKeepsRecords(t *testing.T) {
	session, poller, _, _ := newTestSession(t, 3)

	_, err := session.Start()
	require.Nil(t, err)
	poller.deliver([]ethtypes.Log{proposalLog(1, 0)}, nil)

	_, err = session.Stop()
	require.Nil(t, err)
	require.Equal(t, uint64(1), session.PollCount())
	require.Len(t, session.CollectedLogs(), 1)
}

func TestSession_StartFailure(t *testing.T) {
	session, poller, _, _ := newTestSession(t, 3)

	poller.err = errors.New("no healthy client")
	_, err := session.Start()
	require.NotNil(t, err)
	require.False(t, session.IsPolling())

	poller.err = nil
	_, err = session.Start()
	require.Nil(t, err)
	require.True(t, session.IsPolling())
}

func TestSession_ConcurrentStart(t *testing.T) {
	session, _, _, _ := newTestSession(t, 3)

	var succeeded, rejected int
	var lock sync.Mutex
	wg := &sync.WaitGroup{}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := session.Start()

			lock.Lock()
			defer lock.Unlock()
			if err == nil {
				succeeded++
			} else if err == types.ErrAlreadyWatching {
				rejected++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, succeeded)
	require.Equal(t, 9, rejected)
}
