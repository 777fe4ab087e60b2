package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/leapstack-labs/tinyquery/internal/cli/output"
	"github.com/leapstack-labs/tinyquery/internal/engine"
)

const (
	replPrompt     = "tinyquery> "
	replContPrompt = "     ...> "
)

// NewReplCommand creates the repl command.
func NewReplCommand() *cobra.Command {
	var history string

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Compile queries interactively",
		Long: `Start an interactive session. Each query, terminated by a semicolon, is
compiled against the catalog and its plan printed. The catalog file is
reloaded when it changes on disk.`,
		Example: `  tinyquery repl --catalog catalog.yaml`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd, history)
		},
	}

	cmd.Flags().StringVar(&history, "history", defaultHistoryFile(), "history file (empty disables history)")
	return cmd
}

func defaultHistoryFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "tinyquery", "history")
}

// lineReader is the part of readline the loop uses.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
	Close() error
}

func runREPL(cmd *cobra.Command, history string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	in, err := newLineReader(cmd, cmdCtx.Engine, history)
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = in.Close() }()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		err := cmdCtx.Engine.Watch(ctx, func(err error) {
			if err != nil {
				cmdCtx.Renderer.Error(fmt.Errorf("catalog reload: %w", err))
			}
		})
		if err != nil {
			cmdCtx.Logger.Warn("catalog watch stopped", "error", err)
		}
	}()

	r := cmdCtx.Renderer
	r.Printf("tinyquery REPL (%d catalog entries)\n", cmdCtx.Engine.Catalog().Len())
	r.Println("Type .help for commands, .quit to exit")
	r.Println("")

	s := &replSession{eng: cmdCtx.Engine, r: r, in: in}
	err = s.run(ctx)
	cancel()
	<-watchDone
	return err
}

// newLineReader uses readline on a terminal and a plain line scanner
// otherwise, so queries can be piped in.
func newLineReader(cmd *cobra.Command, eng *engine.Engine, history string) (lineReader, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if history != "" {
			_ = os.MkdirAll(filepath.Dir(history), 0o750)
		}
		return readline.NewEx(&readline.Config{
			Prompt:          replPrompt,
			HistoryFile:     history,
			AutoComplete:    newCatalogCompleter(eng),
			InterruptPrompt: "^C",
			EOFPrompt:       ".quit",
			Stdout:          cmd.OutOrStdout(),
			Stderr:          cmd.ErrOrStderr(),
		})
	}
	return &scanReader{sc: bufio.NewScanner(cmd.InOrStdin())}, nil
}

// scanReader reads lines without a terminal. Prompts are not printed.
type scanReader struct {
	sc *bufio.Scanner
}

func (s *scanReader) Readline() (string, error) {
	if s.sc.Scan() {
		return s.sc.Text(), nil
	}
	if err := s.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *scanReader) SetPrompt(string) {}

func (s *scanReader) Close() error { return nil }

// newCatalogCompleter completes dot-commands and the catalog names known at
// startup.
func newCatalogCompleter(eng *engine.Engine) *readline.PrefixCompleter {
	names := make([]readline.PrefixCompleterInterface, 0, eng.Catalog().Len())
	for _, name := range eng.Catalog().Names() {
		names = append(names, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".tables"),
		readline.PcItem(".schema", names...),
		readline.PcItem(".reload"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
}

type replSession struct {
	eng *engine.Engine
	r   *output.Renderer
	in  lineReader
}

func (s *replSession) run(ctx context.Context) error {
	var buf strings.Builder
	for {
		line, err := s.in.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			s.in.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if buf.Len() == 0 && strings.HasPrefix(line, ".") {
			if quit := s.dotCommand(ctx, line); quit {
				return nil
			}
			continue
		}

		// Accumulate multi-line queries until a semicolon.
		buf.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			buf.WriteString(" ")
			s.in.SetPrompt(replContPrompt)
			continue
		}
		s.in.SetPrompt(replPrompt)

		query := strings.TrimSpace(strings.TrimSuffix(buf.String(), ";"))
		buf.Reset()
		if query == "" {
			continue
		}
		if sel, err := s.eng.Compile(query); err != nil {
			s.r.Error(err)
		} else if err := renderPlan(s.r, sel); err != nil {
			s.r.Error(err)
		}
		s.r.Println("")
	}
}

// dotCommand runs a REPL command and reports whether the session should end.
func (s *replSession) dotCommand(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(s.r.Writer())

	case ".tables":
		if err := renderEntries(s.r, s.eng.Catalog().Entries()); err != nil {
			s.r.Error(err)
		}

	case ".schema":
		if len(parts) < 2 {
			s.r.Error(errors.New("usage: .schema <name>"))
			return false
		}
		entry, ok := s.eng.Catalog().Lookup(parts[1])
		if !ok {
			s.r.Error(fmt.Errorf("table not found: %s", parts[1]))
			return false
		}
		if err := renderEntry(s.r, entry); err != nil {
			s.r.Error(err)
		}

	case ".reload":
		if err := s.eng.Reload(ctx); err != nil {
			s.r.Error(err)
			return false
		}
		s.r.Success(fmt.Sprintf("catalog reloaded (%d entries)", s.eng.Catalog().Len()))

	default:
		s.r.Error(fmt.Errorf("unknown command: %s (type .help for commands)", parts[0]))
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help           Show this help message
  .tables         List all tables and views
  .schema <name>  Show the columns of a table or the query of a view
  .reload         Reload the catalog
  .quit / .exit   Exit the REPL

Queries must end with a semicolon (;) and may span several lines.
`
	_, _ = fmt.Fprintln(w, help)
}
