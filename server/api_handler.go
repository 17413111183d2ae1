package server

// Relay is the set of operations served over rpc.
type Relay interface {
	WatchStart() (string, error)
	WatchStop() (string, error)
	IsPolling() bool
	PollCount() uint64
	CollectedLogs() []string
	TransferHistory(limit int) ([]string, error)
}

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 1000
)

// ApiHandler is registered in the "relay" namespace, e.g. WatchStart is served as relay_watchStart.
type ApiHandler struct {
	relay Relay
}

func NewApi(relay Relay) *ApiHandler {
	return &ApiHandler{
		relay: relay,
	}
}

// Empty function for checking health only.
func (api *ApiHandler) CheckHealth() {
}

func (api *ApiHandler) WatchStart() (string, error) {
	return api.relay.WatchStart()
}

func (api *ApiHandler) WatchStop() (string, error) {
	return api.relay.WatchStop()
}

func (api *ApiHandler) IsPolling() bool {
	return api.relay.IsPolling()
}

func (api *ApiHandler) PollCount() uint64 {
	return api.relay.PollCount()
}

func (api *ApiHandler) CollectedLogs() []string {
	return api.relay.CollectedLogs()
}

func (api *ApiHandler) TransferHistory(limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	return api.relay.TransferHistory(limit)
}
