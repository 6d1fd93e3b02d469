package profile

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/axiom-relay/pkg/loggers"
	"github.com/axiomesh/axiom-relay/pkg/repo"
)

// Monitor serves prometheus metrics on the monitor port
type Monitor struct {
	enable   bool
	port     int64
	logger   logrus.FieldLogger
	server   *http.Server
	listener net.Listener
}

func NewMonitor(config *repo.Config) (*Monitor, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Monitor{
		enable: config.Monitor.Enable,
		port:   config.Monitor.Port,
		logger: loggers.Logger(loggers.App),
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

func (m *Monitor) Start() error {
	if !m.enable {
		return nil
	}
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", m.port))
	if err != nil {
		return errors.Wrapf(err, "listen monitor port %d", m.port)
	}
	m.listener = listener
	m.logger.WithField("port", m.port).Info("Start monitor")
	go func() {
		if err := m.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Errorf("monitor service stopped: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address, nil before Start
func (m *Monitor) Addr() net.Addr {
	if m.listener == nil {
		return nil
	}
	return m.listener.Addr()
}

func (m *Monitor) Stop() error {
	if !m.enable || m.listener == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.server.Shutdown(ctx)
}
