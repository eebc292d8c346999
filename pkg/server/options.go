// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package server

import (
	"github.com/sciencecloud/jobcore/pkg/api"
	"github.com/sciencecloud/jobcore/pkg/job"
)

type config struct {
	apiOptions   []api.Option
	machineTypes []job.MachineReservation
}

// Option is an additional argument to method New to change the behavior of
// the server.
type Option interface {
	apply(*config)
}

type optionAPI struct {
	apiOptions []api.Option
}

func (o *optionAPI) apply(cfg *config) {
	cfg.apiOptions = append(cfg.apiOptions, o.apiOptions...)
}

// APIOption pass-throughs api.Option-s to the API instance created by the
// server.
func APIOption(opts ...api.Option) Option {
	return &optionAPI{apiOptions: opts}
}

type optionMachineTypes struct {
	machineTypes []job.MachineReservation
}

func (o *optionMachineTypes) apply(cfg *config) {
	cfg.machineTypes = o.machineTypes
}

// OptionMachineTypes sets the machine reservation classes advertised by the
// MachineTypes API call.
func OptionMachineTypes(machineTypes []job.MachineReservation) Option {
	return &optionMachineTypes{machineTypes: machineTypes}
}

func getConfig(opts ...Option) config {
	var cfg config
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	return cfg
}
