package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/axiomesh/axiom-relay/api/jsonrpc"
	"github.com/axiomesh/axiom-relay/cmd/axiom-relay/common"
	"github.com/axiomesh/axiom-relay/internal/app"
	"github.com/axiomesh/axiom-relay/internal/coreapi"
	"github.com/axiomesh/axiom-relay/pkg/loggers"
	"github.com/axiomesh/axiom-relay/pkg/profile"
	"github.com/axiomesh/axiom-relay/pkg/repo"
)

func start(ctx *cli.Context) error {
	p, err := common.GetRootPath(ctx)
	if err != nil {
		return err
	}

	if !common.Exist(filepath.Join(p, repo.CfgFileName)) {
		fmt.Println("axiom-relay is not initialized, please execute 'axiom-relay config generate' first")
		return nil
	}

	r, err := repo.Load(p)
	if err != nil {
		return err
	}

	if err := loggers.Initialize(r, true); err != nil {
		return err
	}
	appCtx, cancel := context.WithCancel(ctx.Context)
	defer cancel()

	log := loggers.Logger(loggers.App)
	printVersion(func(c string) {
		log.Info(c)
	})
	r.PrintNodeInfo(func(c string) {
		log.Info(c)
	})

	var wg sync.WaitGroup
	err = func() error {
		if err := repo.WritePid(r.RepoRoot); err != nil {
			return fmt.Errorf("write pid error: %s", err)
		}

		relay, err := app.NewRelay(r, appCtx, cancel)
		if err != nil {
			return fmt.Errorf("init axiom-relay failed: %w", err)
		}

		monitor, err := profile.NewMonitor(r.Config)
		if err != nil {
			return err
		}
		if err := monitor.Start(); err != nil {
			return err
		}

		api, err := coreapi.New(relay)
		if err != nil {
			return err
		}

		// start json-rpc service
		cbs, err := jsonrpc.NewRelayBrokerService(api, r)
		if err != nil {
			return err
		}
		if err := cbs.Start(); err != nil {
			return fmt.Errorf("start relay broker service failed: %w", err)
		}

		wg.Add(1)
		handleShutdown(relay, cbs, monitor, &wg)

		if err := relay.Start(); err != nil {
			return fmt.Errorf("start axiom-relay failed: %w", err)
		}
		return nil
	}()
	if err != nil {
		log.WithField("err", err).Error("Startup failed")
		return err
	}

	wg.Wait()

	if err := repo.RemovePID(r.RepoRoot); err != nil {
		log.WithField("err", err).Error("Remove pid failed")
		return fmt.Errorf("remove pid file error: %s", err)
	}

	return nil
}

func printVersion(writer func(c string)) {
	writer(fmt.Sprintf("%s version: %s-%s-%s", repo.AppName, repo.BuildVersion, repo.BuildBranch, repo.BuildCommit))
	writer(fmt.Sprintf("App build date: %s", repo.BuildDate))
	writer(fmt.Sprintf("System version: %s", repo.Platform))
	writer(fmt.Sprintf("Golang version: %s", repo.GoVersion))
}

func handleShutdown(relay *app.Relay, cbs *jsonrpc.RelayBrokerService, monitor *profile.Monitor, wg *sync.WaitGroup) {
	var stop = make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGTERM)
	signal.Notify(stop, syscall.SIGINT)

	go func() {
		<-stop
		fmt.Println("received interrupt signal, shutting down...")
		// stop accepting batches before the ledger closes
		if err := cbs.Stop(); err != nil {
			fmt.Printf("stop json-rpc service failed: %v\n", err)
		}
		if err := monitor.Stop(); err != nil {
			fmt.Printf("stop monitor failed: %v\n", err)
		}
		if err := relay.Stop(); err != nil {
			panic(err)
		}
		wg.Done()
	}()
}
