package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/hostdiag/probekit/pkg/server"
)

const (
	stopWaitTime  = 5 * time.Second
	httpProtocol  = "http"
	httpsProtocol = "https"
)

type httpServer struct {
	server.BaseServer
	server *http.Server
}

var _ server.Server = (*httpServer)(nil)

func NewServer(ctx context.Context, cancel context.CancelFunc, name string, config server.Config, handler http.Handler, logger *slog.Logger) server.Server {
	hs := &http.Server{
		Addr:    config.Host + ":" + config.Port,
		Handler: handler,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	return &httpServer{
		BaseServer: server.BaseServer{
			Ctx:      ctx,
			Cancel:   cancel,
			Name:     name,
			Address:  hs.Addr,
			Config:   config,
			Logger:   logger,
			Protocol: httpProtocol,
		},
		server: hs,
	}
}

func (s *httpServer) Start() error {
	if s.Config.CertFile != "" && s.Config.KeyFile != "" {
		s.Protocol = httpsProtocol
		s.Logger.Info(fmt.Sprintf("%s service %s server listening at %s with TLS", s.Name, s.Protocol, s.Address))
		if err := s.server.ListenAndServeTLS(s.Config.CertFile, s.Config.KeyFile); !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	}

	s.Logger.Info(fmt.Sprintf("%s service %s server listening at %s without TLS", s.Name, s.Protocol, s.Address))
	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *httpServer) Stop() error {
	defer s.Cancel()
	c, cancel := context.WithTimeout(context.Background(), stopWaitTime)
	defer cancel()
	if err := s.server.Shutdown(c); err != nil {
		return err
	}
	s.Logger.Info(fmt.Sprintf("%s service %s server stopped", s.Name, s.Protocol))

	return nil
}
