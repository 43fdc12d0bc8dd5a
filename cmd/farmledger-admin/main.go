package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"path"
	"syscall"

	"farmledger/internal/admin"
	"farmledger/internal/amqp"
	"farmledger/internal/backend"
	"farmledger/internal/cli"
	"farmledger/internal/config"
	"farmledger/internal/ledger"
	"farmledger/internal/log"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	env := &admin.Env{Open: openSession}
	for _, c := range admin.Commands(env) {
		commander.Register(c, "expenses")
	}

	flag.Parse()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	status := commander.Execute(ctx)
	stop()
	os.Exit(int(status))
}

// openSession connects to the configured datastore. Logs go to stderr at
// the configured level so command output stays clean.
func openSession(ctx context.Context) (*admin.Session, error) {
	cfg, err := cli.LoadConfig((*config.Config).Validate)
	if err != nil {
		return nil, err
	}
	lc := log.DefaultConfig()
	lc.Component = log.ComponentAdmin
	lc.Output = os.Stderr
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		lc.Level = lvl
	}
	logger := log.New(lc)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	opts := []ledger.Option{
		ledger.WithLogger(logger),
		ledger.WithStoreTimeout(cfg.StoreTimeout),
	}
	s := &admin.Session{Close: res.Close}
	if cfg.AMQPURL != "" {
		pub, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			return nil, errors.Join(err, res.Close())
		}
		opts = append(opts, ledger.WithPublisher(pub))
		s.Publisher = pub
		s.Close = func() error { return errors.Join(pub.Close(), res.Close()) }
	}
	s.Ledger = ledger.New(res.Backend, opts...)
	if imp, ok := res.Importer(); ok {
		s.Importer = imp
	}
	return s, nil
}
