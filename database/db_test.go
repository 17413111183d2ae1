package database

import (
	"math/big"
	"testing"
	"time"

	"github.com/sisu-network/proposal-relay/config"
	"github.com/sisu-network/proposal-relay/types"
	"github.com/stretchr/testify/require"
)

func getTestDb(t *testing.T) Database {
	cfg := config.Relay{
		InMemory: true,
	}
	dbInstance := NewDb(&cfg)
	err := dbInstance.Init()
	require.Nil(t, err)
	t.Cleanup(func() {
		dbInstance.Close()
	})

	return dbInstance
}

func waitForRecords(t *testing.T, db Database, n int, kinds ...types.RecordKind) []*types.LogRecord {
	var records []*types.LogRecord
	require.Eventually(t, func() bool {
		var err error
		records, err = db.LoadRecords(100, kinds...)
		return err == nil && len(records) == n
	}, 5*time.Second, 10*time.Millisecond)

	return records
}

func TestDefaultDatabase_SaveAndLoadRecords(t *testing.T) {
	db := getTestDb(t)

	event := &types.ProposalEvent{
		ProposalId:    big.NewInt(42),
		TargetAddress: "0xABCD000000000000000000000000000000000001",
		Amount:        big.NewInt(1000),
		TxHash:        "0x01",
		LogIndex:      3,
	}
	observed := types.NewEventRecord(types.RecordObserved, event, "")
	observed.Id = "a"
	observed.Campaign = 1

	nonce := uint64(7)
	sent := types.NewEventRecord(types.RecordTransferSucceeded, event, "")
	sent.Id = "b"
	sent.Campaign = 1
	sent.TxHash = "0xbeef"
	sent.Nonce = &nonce
	sent.Time = observed.Time.Add(time.Second)

	db.SaveRecord(observed)
	db.SaveRecord(sent)

	records := waitForRecords(t, db, 2)

	// Newest first.
	require.Equal(t, "b", records[0].Id)
	require.Equal(t, types.RecordTransferSucceeded, records[0].Kind)
	require.Equal(t, uint64(7), *records[0].Nonce)
	require.Equal(t, "0xbeef", records[0].TxHash)
	require.Equal(t, big.NewInt(42), records[0].ProposalId)
	require.Equal(t, big.NewInt(1000), records[0].Amount)
	require.Equal(t, event.Key(), records[0].LogKey)

	require.Equal(t, "a", records[1].Id)
	require.Nil(t, records[1].Nonce)
}

func TestDefaultDatabase_LoadRecordsByKind(t *testing.T) {
	db := getTestDb(t)

	kinds := []types.RecordKind{types.RecordObserved, types.RecordTransferFailed, types.RecordDecodeFailure,
		types.RecordTransferSucceeded}
	for i, kind := range kinds {
		record := types.NewRecord(kind, "0x01:0", "")
		record.Id = string(kind)
		record.Time = time.Unix(int64(i), 0)
		db.SaveRecord(record)
	}

	waitForRecords(t, db, 4)

	transfers, err := db.LoadRecords(10, types.RecordTransferSucceeded, types.RecordTransferFailed)
	require.Nil(t, err)
	require.Len(t, transfers, 2)
	require.Equal(t, types.RecordTransferSucceeded, transfers[0].Kind)
	require.Equal(t, types.RecordTransferFailed, transfers[1].Kind)

	latest, err := db.LoadRecords(1)
	require.Nil(t, err)
	require.Len(t, latest, 1)
	require.Equal(t, types.RecordTransferSucceeded, latest[0].Kind)
}

func TestDefaultDatabase_SaveIsIdempotent(t *testing.T) {
	db := getTestDb(t)

	record := types.NewRecord(types.RecordPollFailure, "", "timeout")
	record.Id = "same"
	db.SaveRecord(record)
	db.SaveRecord(record)

	// A third record proves both saves of the first one went through the listener.
	marker := types.NewRecord(types.RecordSkipped, "0x02:0", "")
	marker.Id = "marker"
	db.SaveRecord(marker)

	waitForRecords(t, db, 2)
}

func TestMigrationVersion(t *testing.T) {
	require.Equal(t, 1, migrationVersion("1_create_relay_records.up.sql"))
	require.Equal(t, 12, migrationVersion("12_something.up.sql"))
	require.Equal(t, -1, migrationVersion("readme.md"))
}
