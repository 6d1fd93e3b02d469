package common

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// PackEvent builds the log of event name, indexed arguments become topics after the event id
func PackEvent(contractABI *abi.ABI, addr ethcommon.Address, name string, args ...any) (*Log, error) {
	event, ok := contractABI.Events[name]
	if !ok {
		return nil, errors.Errorf("event %s not found", name)
	}
	if len(args) != len(event.Inputs) {
		return nil, errors.Errorf("event %s expects %d arguments, got %d", name, len(event.Inputs), len(args))
	}

	topics := []ethcommon.Hash{event.ID}
	var nonIndexed []any
	for i, input := range event.Inputs {
		if !input.Indexed {
			nonIndexed = append(nonIndexed, args[i])
			continue
		}
		topic, err := abi.MakeTopics([]any{args[i]})
		if err != nil {
			return nil, errors.Wrapf(err, "event %s make topic for %s", name, input.Name)
		}
		topics = append(topics, topic[0][0])
	}

	data, err := event.Inputs.NonIndexed().Pack(nonIndexed...)
	if err != nil {
		return nil, errors.Wrapf(err, "event %s pack data", name)
	}

	return &Log{
		Address: addr,
		Topics:  topics,
		Data:    data,
	}, nil
}

// UnpackEvent decodes the non indexed fields of l into a map
func UnpackEvent(contractABI *abi.ABI, name string, l Log) (map[string]any, error) {
	event, ok := contractABI.Events[name]
	if !ok {
		return nil, errors.Errorf("event %s not found", name)
	}
	if len(l.Topics) == 0 || l.Topics[0] != event.ID {
		return nil, errors.Errorf("log is not event %s", name)
	}
	res := make(map[string]any)
	if err := event.Inputs.NonIndexed().UnpackIntoMap(res, l.Data); err != nil {
		return nil, err
	}
	var indexed abi.Arguments
	for _, input := range event.Inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}
	if err := abi.ParseTopicsIntoMap(res, indexed, l.Topics[1:]); err != nil {
		return nil, err
	}
	return res, nil
}
