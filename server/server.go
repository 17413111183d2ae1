package server

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sisu-network/lib/log"
	"github.com/sisu-network/proposal-relay/metrics"
)

const Namespace = "relay"

type Server struct {
	handler       *rpc.Server
	listenAddress string
	srv           *http.Server
}

// NewRpcHandler returns an rpc server with the api registered in the relay namespace.
func NewRpcHandler(api *ApiHandler) (*rpc.Server, error) {
	handler := rpc.NewServer()
	if err := handler.RegisterName(Namespace, api); err != nil {
		return nil, err
	}

	return handler, nil
}

func NewServer(handler *rpc.Server, port int) *Server {
	return &Server{
		handler:       handler,
		listenAddress: fmt.Sprintf("0.0.0.0:%d", port),
	}
}

// Handler serves json rpc on / and prometheus metrics on /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", s.handler)

	return mux
}

func (s *Server) Run() error {
	listener, err := net.Listen("tcp", s.listenAddress)
	if err != nil {
		return err
	}

	s.srv = &http.Server{Handler: s.Handler()}
	log.Info("Running server at ", s.listenAddress)

	err = s.srv.Serve(listener)
	if err == http.ErrServerClosed {
		return nil
	}

	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.handler.Stop()
	if s.srv == nil {
		return nil
	}

	return s.srv.Shutdown(ctx)
}
