// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"
	"github.com/sirupsen/logrus"

	"github.com/sciencecloud/jobcore/pkg/api"
	"github.com/sciencecloud/jobcore/pkg/backend"
	"github.com/sciencecloud/jobcore/pkg/config"
	"github.com/sciencecloud/jobcore/pkg/follow"
	"github.com/sciencecloud/jobcore/pkg/job"
	"github.com/sciencecloud/jobcore/pkg/logging"
	"github.com/sciencecloud/jobcore/pkg/orchestrator"
	"github.com/sciencecloud/jobcore/pkg/server"
	"github.com/sciencecloud/jobcore/pkg/session"
	"github.com/sciencecloud/jobcore/pkg/storage"
	"github.com/sciencecloud/jobcore/pkg/verify"
	"github.com/sciencecloud/jobcore/plugins/artifacts/localdir"
	"github.com/sciencecloud/jobcore/plugins/backends/stub"
	"github.com/sciencecloud/jobcore/plugins/listeners/httplistener"
	"github.com/sciencecloud/jobcore/plugins/storage/memory"
	"github.com/sciencecloud/jobcore/plugins/storage/rdbms"
)

var (
	flagConfig  = flag.String("config", "jobcore.yaml", "Path to the service configuration file")
	flagDebug   = flag.Bool("debug", false, "Enable debug logging")
	flagVerbose = flag.BoolP("verbose", "v", false, "Enable info logging")
)

func main() {
	flag.Parse()
	log := logging.GetLogger("jobcored")
	switch {
	case *flagDebug:
		logging.SetLevel(logrus.DebugLevel)
	case *flagVerbose:
		logging.SetLevel(logrus.InfoLevel)
	}

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		log.Fatal(err)
	}

	// storage initialization
	switch cfg.Storage.Engine {
	case "rdbms":
		log.Infof("Using database URI: %s", cfg.Storage.DBURI)
		if err := storage.SetStorage(rdbms.New(cfg.Storage.DBURI)); err != nil {
			log.Fatal(err)
		}
	default:
		log.Infof("Using in-memory storage; jobs will not survive a restart")
		if err := storage.SetStorage(memory.New()); err != nil {
			log.Fatal(err)
		}
	}

	descriptors := make([]backend.Descriptor, 0, len(cfg.Backends))
	for _, b := range cfg.Backends {
		descriptors = append(descriptors, backend.Descriptor{Name: b.Name, Trusted: b.Trusted})
	}
	registry := backend.NewRegistry(descriptors, cfg.DevMode)
	for _, b := range cfg.Backends {
		// Compute backends run out of process and talk back through the
		// callback API; the in-process handle only covers the operations
		// the server initiates. The stub handle is the baseline transport
		// until a real dispatch handle is configured per backend.
		if err := registry.Register(stub.New(stub.WithName(b.Name))); err != nil {
			log.Fatal(err)
		}
	}

	catalogEntries := make([]verify.CatalogEntry, 0, len(cfg.Applications))
	for _, app := range cfg.Applications {
		catalogEntries = append(catalogEntries, verify.CatalogEntry{
			Name:       app.Name,
			Version:    app.Version,
			Invocation: app.Invocation,
		})
	}
	catalog, err := verify.NewStaticCatalog(catalogEntries)
	if err != nil {
		log.Fatal(err)
	}
	verifier := verify.NewVerifier(catalog, registry, cfg.DefaultBackend)

	var sink orchestrator.ArtifactSink
	if cfg.Artifacts.Directory != "" {
		s, err := localdir.New(cfg.Artifacts.Directory)
		if err != nil {
			log.Fatal(err)
		}
		sink = s
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orch, err := orchestrator.New(ctx, registry, verifier, sink)
	if err != nil {
		log.Fatal(err)
	}
	followSvc, err := follow.NewService(orch, registry)
	if err != nil {
		log.Fatal(err)
	}
	sessionSvc, err := session.NewService(orch, registry)
	if err != nil {
		log.Fatal(err)
	}

	machineTypes := make([]job.MachineReservation, 0, len(cfg.MachineTypes))
	for _, mt := range cfg.MachineTypes {
		machineTypes = append(machineTypes, job.MachineReservation{
			Name:     mt.Name,
			Cores:    mt.Cores,
			MemoryGB: mt.MemoryGB,
			GPUs:     mt.GPUs,
		})
	}

	listener := httplistener.New(cfg.ListenAddr, followSvc)

	serverOpts := []server.Option{server.OptionMachineTypes(machineTypes)}
	if timeout, ok := cfg.ParsedEventTimeout(); ok {
		serverOpts = append(serverOpts, server.APIOption(api.OptionEventTimeout(timeout)))
	}
	srv, err := server.New(listener, orch, followSvc, sessionSvc, serverOpts...)
	if err != nil {
		log.Fatal(err)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	if err := srv.Start(ctx, sigs); err != nil {
		log.Fatal(err)
	}
}
