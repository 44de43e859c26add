// Command sheetql runs SQL-like statements against spreadsheet, CSV and
// parquet files. Without -q it starts an interactive shell when stdin is a
// terminal, or reads statements from stdin otherwise.
package main

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/vegasq/sheetql/config"
	"github.com/vegasq/sheetql/logging"
	"github.com/vegasq/sheetql/query"
	"github.com/vegasq/sheetql/reader"
	"github.com/vegasq/sheetql/repl"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "sheetql: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}
	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))

	provider := reader.NewDirProvider(cfg.DataDir)
	if cfg.NoCache {
		provider.SetCaching(false)
	}
	exec := query.NewExecutor(provider, query.NewTempStore())

	var queryLog *logging.QueryLog
	if cfg.LogDir != "" {
		queryLog, err = logging.OpenQueryLog(cfg.LogDir)
		if err != nil {
			logging.New("main").Warnf("query history disabled: %v", err)
		} else {
			defer queryLog.Close()
		}
	}

	shell, err := repl.New(cfg, provider, exec, queryLog)
	if err != nil {
		return err
	}

	if cfg.Query != "" {
		return shell.RunBatch(strings.NewReader(cfg.Query))
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return shell.RunBatch(os.Stdin)
	}
	return shell.Run()
}
