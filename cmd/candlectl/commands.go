package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"

	"github.com/xtxerr/candlestore/internal/storage"
	"github.com/xtxerr/candlestore/internal/storage/config"
	"github.com/xtxerr/candlestore/internal/storage/types"
)

func cmdSymbols(svc *storage.Service, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: symbols")
	}
	symbols, err := svc.ListSymbols()
	if err != nil {
		return err
	}
	for _, s := range symbols {
		fmt.Println(s)
	}
	return nil
}

func cmdTimeframes(svc *storage.Service, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: timeframes <symbol>")
	}
	tfs, err := svc.ListTimeframes(args[0])
	if err != nil {
		return err
	}
	for _, tf := range tfs {
		fmt.Println(tf)
	}
	return nil
}

func cmdInfo(svc *storage.Service, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: info <symbol> <timeframe>")
	}
	info, err := svc.Info(context.Background(), args[0], types.Timeframe(args[1]))
	if err != nil {
		return err
	}

	cols := make([]string, len(info.Columns))
	for i, c := range info.Columns {
		cols[i] = fmt.Sprintf("%s(%s)", c.Name, c.Type)
	}

	fmt.Printf("Symbol:      %s\n", info.Symbol)
	fmt.Printf("Timeframe:   %s\n", info.Timeframe)
	fmt.Printf("Scheme:      %s\n", info.Scheme)
	fmt.Printf("Rows:        %d\n", info.Rows)
	fmt.Printf("Range:       %s .. %s\n",
		info.MinTime.Format(time.RFC3339), info.MaxTime.Format(time.RFC3339))
	fmt.Printf("Partitions:  %d\n", info.Partitions)
	fmt.Printf("Files:       %d\n", info.Files)
	fmt.Printf("Size:        %s\n", formatBytes(info.SizeBytes))
	fmt.Printf("Columns:     %s\n", strings.Join(cols, ", "))
	return nil
}

func cmdLoad(svc *storage.Service, args []string) error {
	fs := flag.NewFlagSet("load", flag.ContinueOnError)
	start := fs.String("start", "", "start time, inclusive (RFC3339 or YYYY-MM-DD)")
	end := fs.String("end", "", "end time, inclusive (RFC3339 or YYYY-MM-DD)")
	columns := fs.String("columns", "", "comma-separated value columns (default all)")
	limit := fs.Int("limit", 0, "print at most n rows (0 = all)")
	format := fs.String("format", "", "output format: table or csv (default: table on a terminal)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: load <symbol> <timeframe> [flags]")
	}

	opts, err := loadOptions(*start, *end, *columns)
	if err != nil {
		return err
	}

	frame, err := svc.Load(context.Background(), fs.Arg(0), types.Timeframe(fs.Arg(1)), opts)
	if err != nil {
		return err
	}

	rows := frame.Len()
	if *limit > 0 && *limit < rows {
		rows = *limit
	}

	header := append([]string{"time"}, frame.Columns()...)
	record := func(i int) []string {
		row := make([]string, 0, len(header))
		row = append(row, frame.Time(i).Format(time.RFC3339))
		for _, name := range frame.Columns() {
			col, _ := frame.Column(name)
			row = append(row, formatFloat(col[i]))
		}
		return row
	}

	switch outputFormat(*format) {
	case "csv":
		w := csv.NewWriter(os.Stdout)
		if err := w.Write(header); err != nil {
			return err
		}
		for i := 0; i < rows; i++ {
			if err := w.Write(record(i)); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	default:
		table := newTable()
		table.SetHeader(header)
		for i := 0; i < rows; i++ {
			table.Append(record(i))
		}
		table.Render()
		if rows < frame.Len() {
			fmt.Printf("(%d of %d rows)\n", rows, frame.Len())
		} else {
			fmt.Printf("(%d rows)\n", rows)
		}
	}
	return nil
}

func cmdStats(svc *storage.Service, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	start := fs.String("start", "", "start time, inclusive (RFC3339 or YYYY-MM-DD)")
	end := fs.String("end", "", "end time, inclusive (RFC3339 or YYYY-MM-DD)")
	columns := fs.String("columns", "", "comma-separated value columns (default all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: stats <symbol> <timeframe> [flags]")
	}

	opts, err := loadOptions(*start, *end, *columns)
	if err != nil {
		return err
	}

	stats, err := svc.DatasetStats(context.Background(), fs.Arg(0), types.Timeframe(fs.Arg(1)), opts)
	if err != nil {
		return err
	}

	table := newTable()
	table.SetHeader([]string{"column", "count", "min", "max", "avg", "p50", "p90", "p95", "p99"})
	for _, cs := range stats {
		table.Append([]string{
			cs.Column,
			strconv.FormatInt(cs.Count, 10),
			formatFloat(cs.Min),
			formatFloat(cs.Max),
			formatFloat(cs.Avg),
			formatFloat(cs.P50),
			formatFloat(cs.P90),
			formatFloat(cs.P95),
			formatFloat(cs.P99),
		})
	}
	table.Render()
	return nil
}

func cmdDelete(svc *storage.Service, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: delete <symbol> <timeframe> [-yes]")
	}
	symbol, tf := fs.Arg(0), fs.Arg(1)

	if !*yes {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("refusing to delete without -yes on a non-terminal")
		}
		fmt.Printf("delete dataset %s/%s? [y/N] ", symbol, tf)
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
		default:
			fmt.Println("aborted")
			return nil
		}
	}

	deleted, err := svc.Delete(symbol, types.Timeframe(tf))
	if err != nil {
		return err
	}
	if !deleted {
		fmt.Printf("dataset %s/%s not found\n", symbol, tf)
		return nil
	}
	fmt.Printf("deleted %s/%s\n", symbol, tf)
	return nil
}

func cmdPrune(svc *storage.Service, args []string) error {
	fs := flag.NewFlagSet("prune", flag.ContinueOnError)
	before := fs.String("before", "", "delete partitions that end before this time")
	keep := fs.Duration("keep", 0, "delete partitions older than this, relative to now")
	dryRun := fs.Bool("dry-run", false, "report what would be deleted without deleting")
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: prune <symbol> <timeframe> -before <time>|-keep <duration> [-dry-run] [-yes]")
	}
	symbol, tf := fs.Arg(0), fs.Arg(1)

	var cutoff time.Time
	switch {
	case *before != "" && *keep != 0:
		return fmt.Errorf("-before and -keep are mutually exclusive")
	case *before != "":
		t, err := parseTime(*before)
		if err != nil {
			return err
		}
		cutoff = t
	case *keep > 0:
		cutoff = time.Now().Add(-*keep)
	default:
		return fmt.Errorf("usage: prune <symbol> <timeframe> -before <time>|-keep <duration> [-dry-run] [-yes]")
	}

	if !*dryRun && !*yes {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("refusing to prune without -yes on a non-terminal")
		}
		fmt.Printf("prune %s/%s before %s? [y/N] ", symbol, tf, cutoff.UTC().Format(time.RFC3339))
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
		default:
			fmt.Println("aborted")
			return nil
		}
	}

	res, err := svc.Prune(context.Background(), symbol, types.Timeframe(tf), storage.PruneOptions{
		Before: cutoff,
		DryRun: *dryRun,
	})
	if err != nil {
		return err
	}

	verb := "pruned"
	if *dryRun {
		verb = "would prune"
	}
	fmt.Printf("%s %d partitions (%d files, %s), %d remaining\n",
		verb, res.Partitions, res.Files, formatBytes(res.BytesFreed), res.Remaining)
	return nil
}

func cmdSQL(svc *storage.Service, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: sql <query>")
	}
	return runSQL(svc, strings.Join(args, " "))
}

func runSQL(svc *storage.Service, query string) error {
	rows, err := svc.ExecuteSQL(context.Background(), query)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("(0 rows)")
		return nil
	}

	header := make([]string, 0, len(rows[0]))
	for name := range rows[0] {
		header = append(header, name)
	}
	sort.Strings(header)

	table := newTable()
	table.SetHeader(header)
	for _, row := range rows {
		rec := make([]string, len(header))
		for i, name := range header {
			rec[i] = fmt.Sprint(row[name])
		}
		table.Append(rec)
	}
	table.Render()
	fmt.Printf("(%d rows)\n", len(rows))
	return nil
}

func cmdEstimate(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("estimate", flag.ContinueOnError)
	datasets := fs.Int("datasets", 100, "number of (symbol, timeframe) datasets")
	timeframe := fs.String("timeframe", "1m", "bar interval used to derive rows/day")
	rowsPerDay := fs.Int64("rows-per-day", 0, "rows per dataset per day (overrides -timeframe)")
	retention := fs.Int("retention-days", 365, "days of history kept")
	if err := fs.Parse(args); err != nil {
		return err
	}

	perDay := *rowsPerDay
	if perDay == 0 {
		tf, err := types.ParseTimeframe(*timeframe)
		if err != nil {
			return err
		}
		perDay = int64(24 * time.Hour / tf.Duration())
		if perDay < 1 {
			perDay = 1
		}
	}

	req := cfg.CalculateRequirements(config.PlanInput{
		Datasets:      *datasets,
		RowsPerDay:    perDay,
		RetentionDays: *retention,
	})
	fmt.Print(req.FormatRequirements())
	return nil
}

// loadOptions builds storage load options from CLI flag values.
func loadOptions(start, end, columns string) (storage.LoadOptions, error) {
	var opts storage.LoadOptions
	if start != "" {
		t, err := parseTime(start)
		if err != nil {
			return opts, fmt.Errorf("start: %w", err)
		}
		opts.Start = t
	}
	if end != "" {
		t, err := parseTime(end)
		if err != nil {
			return opts, fmt.Errorf("end: %w", err)
		}
		opts.End = t
	}
	if columns != "" {
		for _, c := range strings.Split(columns, ",") {
			if c = strings.TrimSpace(c); c != "" {
				opts.Columns = append(opts.Columns, c)
			}
		}
	}
	return opts, nil
}

// parseTime accepts RFC3339 and a couple of shorthand layouts, all UTC.
func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

func outputFormat(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return "table"
	}
	return "csv"
}

func newTable() *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetBorder(false)
	table.SetHeaderLine(true)
	return table
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
		TB = 1024 * GB
	)

	switch {
	case b >= TB:
		return fmt.Sprintf("%.2f TB", float64(b)/float64(TB))
	case b >= GB:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
