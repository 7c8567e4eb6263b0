// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/snow/engine/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/greetervm/greetervm"
)

const (
	rpcPath     = "/rpc"
	staticPath  = "/static"
	metricsPath = "/metrics"

	shutdownTimeout = 5 * time.Second
)

func main() {
	v, err := getViper()
	if err != nil {
		fmt.Printf("couldn't get config: %s\n", err)
		os.Exit(1)
	}
	// Print version and exit
	if v.GetBool(versionKey) {
		fmt.Printf("%s@%s\n", greetervm.Name, greetervm.Version)
		os.Exit(0)
	}

	lvl, err := log.LvlFromString(v.GetString(logLevelKey))
	if err != nil {
		fmt.Printf("invalid log level: %s\n", err)
		os.Exit(1)
	}
	log.Root().SetHandler(log.LvlFilterHandler(lvl, log.StreamHandler(os.Stdout, log.TerminalFormat())))

	if err := run(
		v.GetString(httpAddressKey),
		v.GetString(genesisFileKey),
		v.GetString(vmConfigFileKey),
		v.GetDuration(blockIntervalKey),
	); err != nil {
		log.Error("greetervm exited", "err", err)
		os.Exit(1)
	}
}

func run(httpAddress, genesisFile, vmConfigFile string, blockInterval time.Duration) error {
	genesisBytes, err := readGenesis(genesisFile)
	if err != nil {
		return err
	}
	var configBytes []byte
	if vmConfigFile != "" {
		configBytes, err = os.ReadFile(vmConfigFile)
		if err != nil {
			return fmt.Errorf("failed to read vm config: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	toEngine := make(chan common.Message, 1)
	factory := &greetervm.Factory{}
	vm := factory.New()
	if err := vm.Initialize(ctx, memdb.New(), genesisBytes, configBytes, toEngine, registry); err != nil {
		return err
	}
	defer func() {
		if err := vm.Shutdown(context.Background()); err != nil {
			log.Error("failed to shut down vm", "err", err)
		}
	}()

	handlers, err := vm.CreateHandlers(ctx)
	if err != nil {
		return err
	}
	staticHandlers, err := factory.CreateStaticHandlers()
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle(rpcPath, handlers[""].Handler)
	mux.Handle(staticPath, staticHandlers[""].Handler)
	mux.Handle(metricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              httpAddress,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	builderDone := make(chan struct{})
	go func() {
		defer close(builderDone)
		greetervm.NewBuilder(vm, toEngine, blockInterval).Run(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		log.Info("serving", "address", httpAddress, "rpc", rpcPath, "static", staticPath, "metrics", metricsPath)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-serverErr:
		stop()
	}
	<-builderDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
