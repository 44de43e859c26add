// Package repl implements the interactive sheetql shell: line editing,
// completion, meta commands and statement dispatch.
package repl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/vegasq/sheetql/config"
	"github.com/vegasq/sheetql/logging"
	"github.com/vegasq/sheetql/output"
	"github.com/vegasq/sheetql/query"
	"github.com/vegasq/sheetql/reader"
	"github.com/vegasq/sheetql/sqlerr"
)

// userMessage renders an error for the interactive user, including the
// suggestion when the engine attached one.
func userMessage(err error) string {
	var se *sqlerr.Error
	if errors.As(err, &se) {
		return se.UserMessage()
	}
	return err.Error()
}

// errExit signals a requested shutdown from a meta command.
var errExit = errors.New("exit")

const helpText = `Statements:
  SELECT [DISTINCT] <cols> FROM <file>[.<sheet>] [WHERE ...] [GROUP BY ...]
      [HAVING ...] [ORDER BY ...] [> output.csv]
  CREATE TABLE <name> AS SELECT ...

Commands:
  SHOW DB              list loadable files in the data directory
  SHOW TABLES          list temporary tables
  LOAD DB <file>       preload every sheet of a file into the cache
  DROP TABLE <name>    remove a temporary table
  CLEAR CACHE          drop all cached file relations
  FORMAT <name>        set display format: table, csv, jsonl
  HELP                 this text
  EXIT                 leave the shell
`

// Shell runs the interactive session.
type Shell struct {
	cfg       *config.Config
	provider  *reader.DirProvider
	exec      *query.Executor
	formatter output.Formatter
	queryLog  *logging.QueryLog
	log       *logging.Logger
	out       io.Writer
}

// New wires a shell to its engine. queryLog may be nil to disable history
// logging.
func New(cfg *config.Config, provider *reader.DirProvider, exec *query.Executor, queryLog *logging.QueryLog) (*Shell, error) {
	formatter, err := output.New(cfg.Format)
	if err != nil {
		return nil, err
	}
	if tf, ok := formatter.(*output.TableFormatter); ok {
		tf.MaxRows = cfg.MaxRows
	}
	return &Shell{
		cfg:       cfg,
		provider:  provider,
		exec:      exec,
		formatter: formatter,
		queryLog:  queryLog,
		log:       logging.New("repl"),
		out:       os.Stdout,
	}, nil
}

// SetOutput redirects shell output, mainly for tests.
func (s *Shell) SetOutput(w io.Writer) { s.out = w }

// Run reads statements until EXIT or EOF.
func (s *Shell) Run() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "sheetql> ",
		HistoryFile:     s.cfg.HistoryFile,
		AutoComplete:    completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("initializing readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := s.Dispatch(line); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			fmt.Fprintf(s.out, "error: %s\n", userMessage(err))
		}
	}
}

// RunBatch executes newline-separated statements from r, stopping at the
// first error. Used when stdin is not a terminal.
func (s *Shell) RunBatch(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		if err := s.Dispatch(line); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			return err
		}
	}
	return nil
}

// Dispatch runs one shell line: a meta command or a statement.
func (s *Shell) Dispatch(line string) error {
	upper := strings.ToUpper(line)
	fields := strings.Fields(upper)
	switch {
	case upper == "EXIT" || upper == "QUIT":
		return errExit
	case upper == "HELP":
		fmt.Fprint(s.out, helpText)
		return nil
	case upper == "SHOW DB":
		return s.showDB()
	case upper == "SHOW TABLES":
		return s.showTables()
	case upper == "CLEAR CACHE":
		s.provider.ClearCache()
		fmt.Fprintln(s.out, "cache cleared")
		return nil
	case len(fields) == 3 && fields[0] == "LOAD" && fields[1] == "DB":
		return s.loadDB(strings.Fields(line)[2])
	case len(fields) == 3 && fields[0] == "DROP" && fields[1] == "TABLE":
		return s.dropTable(strings.Fields(line)[2])
	case len(fields) == 2 && fields[0] == "FORMAT":
		return s.setFormat(strings.ToLower(fields[1]))
	}
	return s.runStatement(line)
}

func (s *Shell) runStatement(line string) error {
	start := time.Now()
	var rows int
	err := func() error {
		q, err := query.Parse(line)
		if err != nil {
			return err
		}
		rel, err := s.exec.Execute(q)
		if err != nil {
			return err
		}
		rows = len(rel.Rows)
		if q.OutputPath != "" {
			fmt.Fprintf(s.out, "wrote %d rows to %s\n", rows, q.OutputPath)
			return nil
		}
		if q.Kind == query.StatementCreateTable {
			fmt.Fprintf(s.out, "created table %s (%d rows)\n", q.TempName, rows)
			return nil
		}
		return s.formatter.Write(s.out, rel)
	}()

	if s.queryLog != nil {
		if logErr := s.queryLog.Record(line, rows, time.Since(start), err); logErr != nil {
			s.log.Warnf("recording query history: %v", logErr)
		}
	}
	return err
}

func (s *Shell) showDB() error {
	names, err := s.provider.ListSources()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(s.out, "no loadable files found")
		return nil
	}
	for _, name := range names {
		fmt.Fprintln(s.out, name)
	}
	return nil
}

func (s *Shell) showTables() error {
	names := s.exec.Temp().List()
	if len(names) == 0 {
		fmt.Fprintln(s.out, "no temporary tables")
		return nil
	}
	for _, name := range names {
		fmt.Fprintln(s.out, name)
	}
	return nil
}

func (s *Shell) loadDB(file string) error {
	sheets, err := s.provider.ListRelations(file)
	if err != nil {
		return err
	}
	for _, sheet := range sheets {
		if _, err := s.provider.Relation(file, sheet); err != nil {
			return err
		}
	}
	fmt.Fprintf(s.out, "loaded %s: %d relations\n", file, len(sheets))
	return nil
}

func (s *Shell) dropTable(name string) error {
	if !s.exec.Temp().Drop(name) {
		return fmt.Errorf("no temporary table %q", name)
	}
	fmt.Fprintf(s.out, "dropped %s\n", name)
	return nil
}

func (s *Shell) setFormat(name string) error {
	formatter, err := output.New(name)
	if err != nil {
		return err
	}
	if tf, ok := formatter.(*output.TableFormatter); ok {
		tf.MaxRows = s.cfg.MaxRows
	}
	s.formatter = formatter
	fmt.Fprintf(s.out, "format set to %s\n", name)
	return nil
}

func completer() readline.AutoCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("SELECT"),
		readline.PcItem("CREATE", readline.PcItem("TABLE")),
		readline.PcItem("SHOW", readline.PcItem("DB"), readline.PcItem("TABLES")),
		readline.PcItem("LOAD", readline.PcItem("DB")),
		readline.PcItem("DROP", readline.PcItem("TABLE")),
		readline.PcItem("CLEAR", readline.PcItem("CACHE")),
		readline.PcItem("FORMAT",
			readline.PcItem("table"),
			readline.PcItem("csv"),
			readline.PcItem("jsonl"),
		),
		readline.PcItem("HELP"),
		readline.PcItem("EXIT"),
	)
}
