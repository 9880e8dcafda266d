package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/c-bata/go-prompt"
	"golang.org/x/term"

	"github.com/xtxerr/candlestore/internal/storage"
)

var shellCommands = []prompt.Suggest{
	{Text: "symbols", Description: "list stored symbols"},
	{Text: "timeframes", Description: "list timeframes for a symbol"},
	{Text: "info", Description: "show dataset metadata"},
	{Text: "load", Description: "print candles"},
	{Text: "stats", Description: "per-column statistics"},
	{Text: "delete", Description: "remove a dataset"},
	{Text: "prune", Description: "delete partitions past retention"},
	{Text: "sql", Description: "run a SQL query"},
	{Text: "help", Description: "show commands"},
	{Text: "exit", Description: "leave the shell"},
}

func cmdShell(svc *storage.Service) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("shell requires a terminal (pipe commands through sql instead)")
	}

	fmt.Printf("candlestore shell %s. Type help for commands, exit to leave.\n", Version)
	sh := &shell{svc: svc}
	p := prompt.New(sh.execute, sh.complete,
		prompt.OptionTitle("candlestore"),
		prompt.OptionPrefix("candlestore> "),
		prompt.OptionMaxSuggestion(12),
	)
	p.Run()
	return nil
}

type shell struct {
	svc *storage.Service
}

func (sh *shell) execute(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	fields := strings.Fields(line)
	cmd, rest := fields[0], fields[1:]

	var err error
	switch cmd {
	case "help":
		sh.help()
	case "exit", "quit":
		fmt.Println("bye")
		os.Exit(0)
	case "symbols", "timeframes", "info", "load", "stats", "delete", "prune", "sql":
		err = run(sh.svc, cmd, rest)
	default:
		// Anything else goes to the query engine as SQL.
		err = runSQL(sh.svc, line)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
}

func (sh *shell) complete(d prompt.Document) []prompt.Suggest {
	fields := strings.Fields(d.TextBeforeCursor())
	word := d.GetWordBeforeCursor()

	// Index of the argument being typed.
	argIndex := len(fields)
	if word != "" {
		argIndex--
	}

	if argIndex <= 0 {
		return prompt.FilterHasPrefix(shellCommands, word, true)
	}

	switch fields[0] {
	case "timeframes", "info", "load", "stats", "delete", "prune":
		if argIndex == 1 {
			return prompt.FilterHasPrefix(sh.symbolSuggests(), word, true)
		}
		if argIndex == 2 && fields[0] != "timeframes" {
			return prompt.FilterHasPrefix(sh.timeframeSuggests(fields[1]), word, true)
		}
	}
	return nil
}

func (sh *shell) symbolSuggests() []prompt.Suggest {
	symbols, err := sh.svc.ListSymbols()
	if err != nil {
		return nil
	}
	out := make([]prompt.Suggest, len(symbols))
	for i, s := range symbols {
		out[i] = prompt.Suggest{Text: s}
	}
	return out
}

func (sh *shell) timeframeSuggests(symbol string) []prompt.Suggest {
	tfs, err := sh.svc.ListTimeframes(symbol)
	if err != nil {
		return nil
	}
	out := make([]prompt.Suggest, len(tfs))
	for i, tf := range tfs {
		out[i] = prompt.Suggest{Text: tf}
	}
	return out
}

func (sh *shell) help() {
	fmt.Println("Commands:")
	for _, c := range shellCommands {
		fmt.Printf("  %-12s %s\n", c.Text, c.Description)
	}
	fmt.Println("Any other input runs as SQL, e.g. SELECT count(*) FROM read_parquet('.../*.parquet')")
}
