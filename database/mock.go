package database

import "github.com/sisu-network/proposal-relay/types"

type MockDb struct {
	InitFunc        func() error
	CloseFunc       func() error
	SaveRecordFunc  func(record *types.LogRecord)
	LoadRecordsFunc func(limit int, kinds ...types.RecordKind) ([]*types.LogRecord, error)
}

func (mock *MockDb) Init() error {
	if mock.InitFunc != nil {
		return mock.InitFunc()
	}

	return nil
}

func (mock *MockDb) Close() error {
	if mock.CloseFunc != nil {
		return mock.CloseFunc()
	}

	return nil
}

func (mock *MockDb) SaveRecord(record *types.LogRecord) {
	if mock.SaveRecordFunc != nil {
		mock.SaveRecordFunc(record)
	}
}

func (mock *MockDb) LoadRecords(limit int, kinds ...types.RecordKind) ([]*types.LogRecord, error) {
	if mock.LoadRecordsFunc != nil {
		return mock.LoadRecordsFunc(limit, kinds...)
	}

	return nil, nil
}
