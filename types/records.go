package types

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

type RecordKind string

const (
	RecordObserved          RecordKind = "observed"
	RecordSkipped           RecordKind = "skipped"
	RecordDecodeFailure     RecordKind = "decode_failure"
	RecordPollFailure       RecordKind = "poll_failure"
	RecordQueueFull         RecordKind = "queue_full"
	RecordTransferSucceeded RecordKind = "transfer_succeeded"
	RecordTransferFailed    RecordKind = "transfer_failed"
)

// IsFailure returns true for records that report an error.
func (k RecordKind) IsFailure() bool {
	switch k {
	case RecordDecodeFailure, RecordPollFailure, RecordQueueFull, RecordTransferFailed:
		return true
	}

	return false
}

// LogRecord is one entry of the observable log of a watch campaign.
type LogRecord struct {
	Id       string
	Campaign uint64
	Kind     RecordKind

	// Source log, empty for poll level records.
	LogKey     string
	ProposalId *big.Int
	Target     string
	Amount     *big.Int

	// Transfer on the target chain.
	TxHash string
	Nonce  *uint64

	Message string
	Time    time.Time
}

func NewEventRecord(kind RecordKind, event *ProposalEvent, msg string) *LogRecord {
	return &LogRecord{
		Kind:       kind,
		LogKey:     event.Key(),
		ProposalId: event.ProposalId,
		Target:     event.TargetAddress,
		Amount:     event.Amount,
		Message:    msg,
		Time:       time.Now(),
	}
}

func NewRecord(kind RecordKind, logKey string, msg string) *LogRecord {
	return &LogRecord{
		Kind:    kind,
		LogKey:  logKey,
		Message: msg,
		Time:    time.Now(),
	}
}

func (r *LogRecord) String() string {
	parts := []string{fmt.Sprintf("[%s]", r.Kind)}
	if r.ProposalId != nil {
		parts = append(parts, fmt.Sprintf("proposal=%s", r.ProposalId))
	}
	if r.Target != "" {
		parts = append(parts, fmt.Sprintf("target=%s", r.Target))
	}
	if r.Amount != nil {
		parts = append(parts, fmt.Sprintf("amount=%s", r.Amount))
	}
	if r.TxHash != "" {
		parts = append(parts, fmt.Sprintf("tx=%s", r.TxHash))
	}
	if r.Nonce != nil {
		parts = append(parts, fmt.Sprintf("nonce=%d", *r.Nonce))
	}
	if r.LogKey != "" {
		parts = append(parts, fmt.Sprintf("log=%s", r.LogKey))
	}
	if r.Message != "" {
		parts = append(parts, r.Message)
	}

	return strings.Join(parts, " ")
}
