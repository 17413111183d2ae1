package network

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultHttpTimeout = 30 * time.Second
)

// Http fetches remote documents. It is an interface so that tests can serve canned pages.
type Http interface {
	Get(req *http.Request) ([]byte, error)
}

type DefaultHttp struct {
	client *http.Client
}

func NewHttp() Http {
	return &DefaultHttp{
		client: &http.Client{Timeout: DefaultHttpTimeout},
	}
}

func (d *DefaultHttp) Get(req *http.Request) ([]byte, error) {
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s returned status code %d", req.URL, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
