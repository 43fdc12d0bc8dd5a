// Package admin implements the operator commands of farmledger-admin on top
// of the ledger gateway.
package admin

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"farmledger/internal/ledger"
	"farmledger/internal/ports"

	"github.com/google/subcommands"
)

// Session is an opened datastore with a loaded ledger.
type Session struct {
	Ledger *ledger.Gateway
	// Importer is set when the store supports atomic batch inserts.
	Importer ports.ExpenseImporter
	// Publisher, when set, receives the changes of batch imports. The ledger
	// publishes its own mutations.
	Publisher ports.ChangePublisher
	Close     func() error
}

// Env is what every command runs against.
type Env struct {
	Open func(ctx context.Context) (*Session, error)
	In   io.Reader
	Out  io.Writer
	Err  io.Writer
	Now  func() time.Time
}

func (e *Env) defaults() {
	if e.In == nil {
		e.In = os.Stdin
	}
	if e.Out == nil {
		e.Out = os.Stdout
	}
	if e.Err == nil {
		e.Err = os.Stderr
	}
	if e.Now == nil {
		e.Now = time.Now
	}
}

// Commands returns every admin command bound to env.
func Commands(env *Env) []subcommands.Command {
	env.defaults()
	return []subcommands.Command{
		&statsCmd{env: env},
		&listCmd{env: env},
		&exportCmd{env: env},
		&importCmd{env: env},
		&deleteCmd{env: env},
	}
}

// session opens the store and loads the ledger. On failure the error is
// printed and the returned exit status should be used.
func (e *Env) session(ctx context.Context) (*Session, subcommands.ExitStatus) {
	s, err := e.Open(ctx)
	if err != nil {
		fmt.Fprintln(e.Err, err)
		return nil, subcommands.ExitFailure
	}
	if err := s.Ledger.Load(ctx); err != nil {
		fmt.Fprintln(e.Err, err)
		s.close()
		return nil, subcommands.ExitFailure
	}
	return s, subcommands.ExitSuccess
}

func (s *Session) close() {
	if s.Close != nil {
		_ = s.Close()
	}
}

// confirm asks question on env's terminal. Only y or yes agree.
func (e *Env) confirm(question string) bool {
	fmt.Fprintf(e.Out, "%s [y/N] ", question)
	line, err := bufio.NewReader(e.In).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func usageError(f *flag.FlagSet, err error) subcommands.ExitStatus {
	fmt.Fprintln(f.Output(), err)
	return subcommands.ExitUsageError
}
