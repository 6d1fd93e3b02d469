package coreapi

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/axiom-relay/internal/app"
	"github.com/axiomesh/axiom-relay/internal/coreapi/api"
	"github.com/axiomesh/axiom-relay/pkg/loggers"
)

var _ api.CoreAPI = (*CoreAPI)(nil)

type CoreAPI struct {
	relay  *app.Relay
	logger logrus.FieldLogger
}

func New(relay *app.Relay) (*CoreAPI, error) {
	if relay == nil {
		return nil, errors.New("relay is nil")
	}
	return &CoreAPI{
		relay:  relay,
		logger: loggers.Logger(loggers.API),
	}, nil
}

func (api *CoreAPI) Broker() api.BrokerAPI {
	return (*BrokerAPI)(api)
}

func (api *CoreAPI) Chain() api.ChainAPI {
	return (*ChainAPI)(api)
}
