// Package main provides the qudex command-line browser for resolved object
// blueprints.
package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/cory-johannsen/qudex/internal/config"
	"github.com/cory-johannsen/qudex/internal/observability"
)

// command is one qudex subcommand.
type command struct {
	usage   string
	summary string
	// nargs bounds the positional arguments as [min, max]; max < 0 is unbounded.
	nargs [2]int
	run   func(a *app, args []string) error
}

var commands = map[string]command{
	"tree": {
		usage: "tree [name]", summary: "print the inheritance tree, optionally rooted at name",
		nargs: [2]int{0, 1}, run: (*app).tree,
	},
	"show": {
		usage: "show <name>", summary: "print an object's inheritance path, derived properties and attributes",
		nargs: [2]int{1, 1}, run: (*app).show,
	},
	"stat": {
		usage: "stat <name> <tag> <field>", summary: "print a numeric field, averaging dice expressions",
		nargs: [2]int{3, 3}, run: (*app).stat,
	},
	"query": {
		usage: "query <lua-expr>", summary: "list the objects a Lua predicate matches",
		nargs: [2]int{1, -1}, run: (*app).query,
	},
	"snapshot": {
		usage: "snapshot <out>", summary: "write the resolved tree as a compressed snapshot",
		nargs: [2]int{1, 1}, run: (*app).snapshot,
	},
	"convert": {
		usage: "convert <out.yaml>", summary: "rewrite the loaded blueprints as a YAML document",
		nargs: [2]int{1, 1}, run: (*app).convert,
	},
	"wiki": {
		usage: "wiki <name>", summary: "print an object's wiki infobox template",
		nargs: [2]int{1, 1}, run: (*app).wiki,
	},
	"export": {
		usage: "export", summary: "export the resolved tree to the PostgreSQL catalog",
		nargs: [2]int{0, 0}, run: (*app).export,
	},
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "qudex: %v\n", err)
		os.Exit(1)
	}
}

// run parses the global flags, dispatches to a subcommand and writes its
// output to out.
func run(args []string, out io.Writer) error {
	flags := pflag.NewFlagSet("qudex", pflag.ContinueOnError)
	flags.SetInterspersed(false)
	flags.SetOutput(io.Discard)
	configPath := flags.StringP("config", "c", "", "path to configuration file")
	content := flags.String("content", "", "blueprint file or directory (overrides content.path)")
	format := flags.String("format", "", "blueprint format: auto, xml, yaml, jsonc (overrides content.format)")
	snapshotPath := flags.String("snapshot", "", "snapshot cache file (overrides snapshot.path)")
	help := flags.BoolP("help", "h", false, "show usage")

	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w\n\n%s", err, usage(flags))
	}
	if *help || flags.NArg() == 0 {
		fmt.Fprint(out, usage(flags))
		return nil
	}

	name, rest := flags.Arg(0), flags.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q\n\n%s", name, usage(flags))
	}
	if len(rest) < cmd.nargs[0] || (cmd.nargs[1] >= 0 && len(rest) > cmd.nargs[1]) {
		return fmt.Errorf("usage: qudex %s", cmd.usage)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *content != "" {
		cfg.Content.Path = *content
	}
	if *format != "" {
		cfg.Content.Format = *format
	}
	if *snapshotPath != "" {
		cfg.Snapshot.Path = *snapshotPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	a := newApp(cfg, logger, out)
	logger.Debug("running command", zap.String("command", name), zap.Strings("args", rest))
	return cmd.run(a, rest)
}

func usage(flags *pflag.FlagSet) string {
	var b strings.Builder
	b.WriteString("Usage:\n  qudex [flags] <command> [args]\n\nCommands:\n")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	tw := tabwriter.NewWriter(&b, 2, 0, 3, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(tw, "  %s\t%s\n", commands[name].usage, commands[name].summary)
	}
	tw.Flush()

	b.WriteString("\nFlags:\n")
	b.WriteString(flags.FlagUsages())
	return b.String()
}
