// Package main implements odools, a thin CLI front-end over the symbol-graph
// engine (internal/engine). The editor protocol transport that would
// normally drive this engine is an external collaborator (spec.md §1 scope);
// this command exists to open a workspace, build it once, and print
// diagnostics or answer a single resolve query from the shell —
// useful standalone and as the thing an LSP adapter would otherwise wrap.
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"odools/internal/config"
	"odools/internal/engine"
	"odools/internal/resolver"
)

var (
	externalRoots     []string
	frameworkRootName string
	debugLogging      bool
)

var rootCmd = &cobra.Command{
	Use:   "odools",
	Short: "Symbol-graph engine for a declarative-model Python framework",
}

var checkCmd = &cobra.Command{
	Use:   "check <workspace-root> [more-roots...]",
	Short: "Open a workspace, build it, and print diagnostics",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <workspace-root> <dotted.path>",
	Short: "Resolve a dotted module/content path against an opened workspace",
	Args:  cobra.ExactArgs(2),
	RunE:  runResolve,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&externalRoots, "external", nil, "external source roots (scanned, diagnostics suppressed)")
	rootCmd.PersistentFlags().StringVar(&frameworkRootName, "framework-root", "odoo", "qualified name of the framework root for addon discovery")
	rootCmd.PersistentFlags().BoolVar(&debugLogging, "debug", false, "enable categorized file logging under .odools/logs")
	rootCmd.AddCommand(checkCmd, resolveCmd)
}

func openSession(ctx context.Context, workspaceRoots []string) (*engine.Session, error) {
	cfg := config.Default()
	cfg.WorkspaceRoots = workspaceRoots
	cfg.ExternalRoots = externalRoots
	cfg.FrameworkRootName = frameworkRootName
	cfg.Logging.DebugMode = debugLogging
	return engine.Open(ctx, cfg)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, err := openSession(ctx, args)
	if err != nil {
		return err
	}

	diags := sess.DrainDiagnostics()
	files := make([]string, 0, len(diags))
	for f := range diags {
		files = append(files, f)
	}
	sort.Strings(files)

	total := 0
	for _, f := range files {
		for _, d := range diags[f] {
			fmt.Printf("%s:%d-%d: %s\n", f, d.Start, d.End, d.Message)
			total++
		}
	}
	fmt.Printf("%d diagnostic(s) across %d file(s)\n", total, len(files))
	if total > 0 {
		os.Exit(1)
	}
	return nil
}

// runResolve first resolves the whole dotted path as module segments; if
// that finds nothing, it retries with the last segment as a single content
// segment. Deeper content paths (e.g. Class.method) are not tried. A
// convenience for the CLI only; internal/engine.Session.Resolve takes an
// already-split resolver.Path.
func runResolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, err := openSession(ctx, args[:1])
	if err != nil {
		return err
	}

	segments := strings.Split(args[1], ".")
	path := resolver.Path{ModuleSegments: segments}
	// No cursor position on the command line: resolve against the whole file.
	found := sess.Resolve(path, math.MaxInt)
	if len(found) == 0 {
		path = resolver.Path{ModuleSegments: segments[:len(segments)-1], ContentSegments: segments[len(segments)-1:]}
		found = sess.Resolve(path, math.MaxInt)
	}
	if len(found) == 0 {
		fmt.Printf("no symbol found for %q\n", args[1])
		return nil
	}
	for _, id := range found {
		ent, ok := sess.Store().Get(id)
		if !ok {
			continue
		}
		fmt.Printf("%s %s (%v)\n", ent.Kind(), ent.Name(), ent.Paths())
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
