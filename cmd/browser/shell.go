package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/aluiziolira/go-book-browser/config"
	"github.com/aluiziolira/go-book-browser/pipeline"
	"github.com/aluiziolira/go-book-browser/render"
)

const shellHelp = `Commands:
  genre [NAME]   switch genre (none for all) and search again
  search [TEXT]  search titles within the current genre
  page N         go to page N
  next, prev     move one page
  genres         list the available genres
  help           show this message
  quit           leave the browser
`

var shellCommands = []string{"genre", "search", "page", "next", "prev", "genres", "help", "quit"}

type shell struct {
	cfg      *config.Config
	out      io.Writer
	view     *render.Terminal
	pipeline *pipeline.Pipeline
	genre    string
	query    string
}

func newShell(cfg *config.Config, fetcher pipeline.Fetcher, out io.Writer) *shell {
	view := render.NewTerminal(out)
	return &shell{
		cfg:      cfg,
		out:      out,
		view:     view,
		pipeline: pipeline.NewPipeline(fetcher, view, cfg),
	}
}

// lineReader is the part of the liner state the command loop uses.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

func (sh *shell) run(ctx context.Context) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(sh.complete)

	return sh.loop(ctx, line)
}

// loop runs the initial search and then reads commands until quit, end of
// input, an aborted prompt or ctx is done.
func (sh *shell) loop(ctx context.Context, line lineReader) error {
	fmt.Fprintln(sh.out, "Book Browser. Type help for commands.")
	sh.search(ctx)

	for {
		input, err := sh.readLine(ctx, line)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read command: %w", err)
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if quit := sh.execute(ctx, input); quit {
			return nil
		}
	}
}

type promptResult struct {
	input string
	err   error
}

// readLine waits for the next command or for ctx. A prompt left blocked by
// ctx ends with the process.
func (sh *shell) readLine(ctx context.Context, line lineReader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	prompt := sh.prompt()
	result := make(chan promptResult, 1)
	go func() {
		input, err := line.Prompt(prompt)
		result <- promptResult{input: input, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-result:
		return r.input, r.err
	}
}

// execute runs one command line and reports whether the shell should exit.
func (sh *shell) execute(ctx context.Context, input string) bool {
	command, arg, _ := strings.Cut(strings.TrimSpace(input), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(command) {
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprint(sh.out, shellHelp)
	case "genres":
		fmt.Fprintln(sh.out, strings.Join(sh.cfg.Genres, ", "))
	case "genre":
		if !sh.cfg.HasGenre(arg) {
			fmt.Fprintf(sh.out, "Unknown genre %q. Available: %s\n", arg, strings.Join(sh.cfg.Genres, ", "))
			return false
		}
		sh.genre = arg
		sh.search(ctx)
	case "search":
		sh.query = arg
		sh.search(ctx)
	case "page":
		n, err := strconv.Atoi(arg)
		if err != nil {
			fmt.Fprintf(sh.out, "Invalid page %q\n", arg)
			return false
		}
		sh.click(n)
	case "next":
		sh.click(sh.pipeline.CurrentPage() + 1)
	case "prev":
		sh.click(sh.pipeline.CurrentPage() - 1)
	default:
		fmt.Fprintf(sh.out, "Unknown command %q. Type help for commands.\n", command)
	}
	return false
}

func (sh *shell) prompt() string {
	if sh.genre == "" {
		return "all> "
	}
	return sh.genre + "> "
}

func (sh *shell) search(ctx context.Context) {
	if err := sh.pipeline.Search(ctx, sh.genre, sh.query); err != nil {
		slog.Debug("search failed", slog.String("genre", sh.genre), slog.Any("error", err))
	}
}

func (sh *shell) click(page int) {
	if err := sh.view.Click(page); err != nil {
		fmt.Fprintf(sh.out, "No page %d\n", page)
	}
}

func (sh *shell) complete(input string) []string {
	var out []string
	if rest, ok := strings.CutPrefix(input, "genre "); ok {
		for _, g := range sh.cfg.Genres {
			if strings.HasPrefix(g, rest) {
				out = append(out, "genre "+g)
			}
		}
		return out
	}
	for _, c := range shellCommands {
		if strings.HasPrefix(c, strings.ToLower(input)) {
			out = append(out, c)
		}
	}
	return out
}
