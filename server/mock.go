package server

type MockRelay struct {
	WatchStartFunc      func() (string, error)
	WatchStopFunc       func() (string, error)
	IsPollingFunc       func() bool
	PollCountFunc       func() uint64
	CollectedLogsFunc   func() []string
	TransferHistoryFunc func(limit int) ([]string, error)
}

func (m *MockRelay) WatchStart() (string, error) {
	if m.WatchStartFunc != nil {
		return m.WatchStartFunc()
	}

	return "", nil
}

func (m *MockRelay) WatchStop() (string, error) {
	if m.WatchStopFunc != nil {
		return m.WatchStopFunc()
	}

	return "", nil
}

func (m *MockRelay) IsPolling() bool {
	if m.IsPollingFunc != nil {
		return m.IsPollingFunc()
	}

	return false
}

func (m *MockRelay) PollCount() uint64 {
	if m.PollCountFunc != nil {
		return m.PollCountFunc()
	}

	return 0
}

func (m *MockRelay) CollectedLogs() []string {
	if m.CollectedLogsFunc != nil {
		return m.CollectedLogsFunc()
	}

	return []string{}
}

func (m *MockRelay) TransferHistory(limit int) ([]string, error) {
	if m.TransferHistoryFunc != nil {
		return m.TransferHistoryFunc(limit)
	}

	return []string{}, nil
}
