package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dusk-indust/codegraph/internal/export"
	"github.com/dusk-indust/codegraph/internal/graph"
	"github.com/dusk-indust/codegraph/internal/pipeline"
)

// CLI flags parsed from command line.
type cliFlags struct {
	RepoRoot  string
	OutputDir string
	Exclude   string
	Workers   int
	KuzuPath  string
	Verbose   bool
	Version   bool
}

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var flags cliFlags

	fs := flag.NewFlagSet("codegraph", flag.ContinueOnError)
	fs.StringVar(&flags.RepoRoot, "repo", ".", "path to the repository to analyze")
	fs.StringVar(&flags.OutputDir, "output-dir", "", "output directory for graph files (default graph_data/<repo>)")
	fs.StringVar(&flags.Exclude, "exclude", "", "comma-separated extra directory names to skip")
	fs.IntVar(&flags.Workers, "workers", 0, "concurrent analysis workers (0 = GOMAXPROCS)")
	fs.StringVar(&flags.KuzuPath, "kuzu", "", "load the graph into a KuzuDB database at this path")
	fs.BoolVar(&flags.Verbose, "verbose", false, "print per-file diagnostics")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if flags.Version {
		fmt.Println(version)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store graph.Store
	if flags.KuzuPath != "" {
		s, err := graph.NewKuzuFileStore(flags.KuzuPath)
		if err != nil {
			return err
		}
		defer s.Close()
		store = s
	}

	cfg := pipeline.Config{
		RepoRoot: flags.RepoRoot,
		Workers:  flags.Workers,
	}
	if flags.Exclude != "" {
		for _, name := range strings.Split(flags.Exclude, ",") {
			if name = strings.TrimSpace(name); name != "" {
				cfg.Exclude = append(cfg.Exclude, name)
			}
		}
	}

	res, err := pipeline.Run(ctx, cfg, store)
	if err != nil {
		return err
	}

	outDir := flags.OutputDir
	if outDir == "" {
		abs, err := filepath.Abs(flags.RepoRoot)
		if err != nil {
			return err
		}
		outDir = filepath.Join("graph_data", filepath.Base(abs))
	}
	if err := export.WriteGraph(outDir, res.Nodes, res.Edges); err != nil {
		return err
	}
	if err := export.WriteStats(outDir, res.Summary); err != nil {
		return err
	}

	if flags.Verbose {
		for _, e := range res.Errors {
			fmt.Fprintf(os.Stderr, "warn: %s\n", e.Error())
		}
		for _, w := range res.Warnings {
			fmt.Fprintf(os.Stderr, "warn: %s\n", w.String())
		}
	}

	s := res.Summary
	fmt.Printf("Analyzed %d/%d files (%d with errors)\n", s.FilesProcessed, s.FilesTotal, s.FilesWithErrors)
	fmt.Printf("Graph: %d nodes, %d edges (%d external, %d ambiguous, %d unresolved)\n",
		s.NodeCount, s.EdgeCount, s.ExternalEdges, s.AmbiguousRefs, s.UnresolvedRefs)
	fmt.Printf("Entities: %d classes, %d functions, %d methods, %d variables, %d imports\n",
		s.Classes, s.Functions, s.Methods, s.Variables, s.Imports)
	fmt.Printf("Output written to %s\n", outDir)
	return nil
}
