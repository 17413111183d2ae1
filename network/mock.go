package network

import (
	"fmt"
	"net/http"
	"sync"
)

// MockHttp serves Pages by url and remembers the requested urls. GetFunc, when set, takes
// precedence over Pages.
type MockHttp struct {
	GetFunc func(req *http.Request) ([]byte, error)
	Pages   map[string]string

	lock      sync.Mutex
	requested []string
}

func (m *MockHttp) Get(req *http.Request) ([]byte, error) {
	m.lock.Lock()
	m.requested = append(m.requested, req.URL.String())
	m.lock.Unlock()

	if m.GetFunc != nil {
		return m.GetFunc(req)
	}

	page, ok := m.Pages[req.URL.String()]
	if !ok {
		return nil, fmt.Errorf("GET %s returned status code %d", req.URL, http.StatusNotFound)
	}

	return []byte(page), nil
}

func (m *MockHttp) Requested() []string {
	m.lock.Lock()
	defer m.lock.Unlock()

	ret := make([]string, len(m.requested))
	copy(ret, m.requested)
	return ret
}
