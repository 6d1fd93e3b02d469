package jsonrpc

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/axiom-relay/api/jsonrpc/namespaces/relay"
	"github.com/axiomesh/axiom-relay/internal/coreapi/api"
	"github.com/axiomesh/axiom-relay/pkg/loggers"
	"github.com/axiomesh/axiom-relay/pkg/repo"
)

// RelayBrokerService serves the relay namespace over json-rpc http
type RelayBrokerService struct {
	config   repo.JsonRPC
	api      api.CoreAPI
	logger   logrus.FieldLogger
	server   *rpc.Server
	http     *http.Server
	listener net.Listener
}

func NewRelayBrokerService(coreAPI api.CoreAPI, rep *repo.Repo) (*RelayBrokerService, error) {
	logger := loggers.Logger(loggers.API)
	server := rpc.NewServer()
	if err := server.RegisterName("relay", relay.NewRelayAPI(rep, coreAPI, logger)); err != nil {
		return nil, errors.Wrap(err, "register relay api")
	}

	return &RelayBrokerService{
		config: rep.Config.JsonRPC,
		api:    coreAPI,
		logger: logger,
		server: server,
		http: &http.Server{
			Handler:           newCorsHandler(server, rep.Config.JsonRPC.AllowedOrigins),
			ReadTimeout:       rep.Config.JsonRPC.ReadTimeout.ToDuration(),
			ReadHeaderTimeout: rep.Config.JsonRPC.ReadTimeout.ToDuration(),
			WriteTimeout:      rep.Config.JsonRPC.WriteTimeout.ToDuration(),
		},
	}, nil
}

func newCorsHandler(srv http.Handler, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		return srv
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodPost, http.MethodGet},
		AllowedHeaders: []string{"*"},
		MaxAge:         600,
	})
	return c.Handler(srv)
}

// Handler returns the rpc handler without a listener, for embedding and tests
func (cbs *RelayBrokerService) Handler() http.Handler {
	return cbs.http.Handler
}

func (cbs *RelayBrokerService) Start() error {
	if !cbs.config.Enable {
		cbs.logger.Info("JSON-RPC service is disabled")
		return nil
	}
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cbs.config.Port))
	if err != nil {
		return errors.Wrapf(err, "listen json-rpc port %d", cbs.config.Port)
	}
	cbs.listener = listener

	go func() {
		cbs.logger.WithField("port", cbs.config.Port).Info("JSON-RPC service started")
		if err := cbs.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cbs.logger.Errorf("JSON-RPC service stopped: %v", err)
		}
	}()
	return nil
}

func (cbs *RelayBrokerService) Stop() error {
	defer cbs.server.Stop()
	if cbs.listener == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cbs.http.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "shutdown json-rpc service")
	}
	cbs.logger.Info("JSON-RPC service stopped")
	return nil
}
