package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/account"
	"main/internal/gateway"
	"main/internal/journal"
	"main/internal/ops"
	"main/internal/runner"
	"main/internal/state"
	"main/pkg/conn"
)

func main() {
	if err := run(); err != nil {
		logs.Errorf("accountd: %+v", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to JSON config")
	socketPath := flag.String("socket", "", "UDS socket path for serve mode")
	serveMode := flag.Bool("serve", false, "Serve commands over the UDS gateway")
	rebuildMode := flag.Bool("rebuild", false, "Rebuild account states from the journal and exit")
	snapshotPath := flag.String("snapshot-path", "", "Write an account snapshot after workload/rebuild")
	verifySnapshot := flag.String("verify-snapshot", "", "Compare the rebuilt state against a snapshot")
	pyroscopeAddr := flag.String("pyroscope", "", "Pyroscope server address (empty=disabled)")
	flag.Parse()

	if *configPath == "" {
		return fmt.Errorf("missing config; use -config")
	}
	loaded, err := ops.Load(*configPath)
	if err != nil {
		return err
	}

	if *pyroscopeAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "accountd",
			ServerAddress:   *pyroscopeAddr,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileInuseObjects,
			},
		})
		if err != nil {
			return err
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	log, err := openJournal(loaded.Journal)
	if err != nil {
		return err
	}
	defer log.Close()

	ctx := context.Background()

	if *rebuildMode {
		return rebuild(ctx, log, *snapshotPath, *verifySnapshot)
	}

	run := runner.New(log, runner.Config{QueueSize: loaded.Runner.QueueSize})
	defer run.Close()

	if err := applyWorkload(ctx, run, loaded.Workload); err != nil {
		return err
	}

	if !*serveMode {
		if *snapshotPath != "" {
			return rebuild(ctx, log, *snapshotPath, "")
		}
		return nil
	}

	if *socketPath == "" {
		return fmt.Errorf("missing socket path; use -socket")
	}
	gw, err := gateway.New(*socketPath, run)
	if err != nil {
		return err
	}
	logs.Infof("accountd serving on %s", *socketPath)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- gw.Serve(ctx)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-sys.Shutdown():
		logs.Info("accountd shutting down")
		gw.Close()
		return <-serveErr
	}
}

func openJournal(cfg ops.JournalConfig) (journal.Log, error) {
	switch cfg.Backend {
	case ops.BackendPostgres:
		client, err := conn.New(cfg.Postgres.PostgresOption())
		if err != nil {
			return nil, err
		}
		return journal.NewPgLog(client)
	default:
		return journal.NewFileLog(journal.FileConfig{
			Dir:        cfg.Dir,
			FilePrefix: cfg.FilePrefix,
		})
	}
}

func applyWorkload(ctx context.Context, run *runner.Runner, workload ops.Workload) error {
	for _, spec := range workload.Accounts {
		resp, err := run.Submit(ctx, spec.ID, account.CreateAccount{
			Owner:          spec.Owner,
			Currency:       spec.Currency,
			InitialBalance: spec.InitialBalance,
		})
		if err != nil {
			return err
		}
		ack := resp.(account.AccountCreatedResponse)
		logs.Infof("created account %s", ack.ID)
	}

	for _, spec := range workload.Updates {
		resp, err := run.Submit(ctx, spec.Account, account.UpdateBalance{
			AccountID: spec.Account,
			Delta:     spec.Delta,
		})
		if err != nil {
			return err
		}
		result := resp.(account.BalanceUpdateResult)
		if result.Account == nil {
			logs.Infof("update %s by %s rejected: insufficient funds", spec.Account, spec.Delta)
			continue
		}
		logs.Infof("updated %s by %s, balance %s", spec.Account, spec.Delta, result.Account.Balance)
	}
	return nil
}

func rebuild(ctx context.Context, log journal.Log, snapshotPath, verifyPath string) error {
	accounts, err := state.Rebuild(ctx, log, nil)
	if err != nil {
		return err
	}
	for _, id := range state.SortedIDs(accounts) {
		acc := accounts[id]
		logs.Infof("account %s owner=%s currency=%s balance=%s", acc.ID, acc.Owner, acc.Currency, acc.Balance)
	}

	snap := state.BuildSnapshot(accounts)
	if verifyPath != "" {
		expected, err := state.ReadSnapshot(verifyPath)
		if err != nil {
			return err
		}
		if err := state.CompareSnapshots(expected, snap); err != nil {
			return err
		}
		logs.Info("snapshot verification passed")
	}
	if snapshotPath != "" {
		if err := state.WriteSnapshot(snapshotPath, snap); err != nil {
			return err
		}
		logs.Infof("snapshot written to %s", snapshotPath)
	}
	return nil
}
