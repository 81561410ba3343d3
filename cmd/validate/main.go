// Command validate checks every board layout JSON file in a directory. It
// reports:
//   - JSON structure, the 10x10 grid and allowed characters ('.', 'o', 'h', '5'-'8')
//   - at most one hunter
//   - warnings for layouts without a hunter or without treasures
//   - warnings for treasures walled off from the hunter by obstacles
//
// It exits non-zero when any file is invalid, or when --strict is set and
// any file has warnings.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/treasurehunt/game/config"
	"github.com/wricardo/mcp-training/treasurehunt/game/engine"
)

// ValidationResult captures the outcome of validating a single file
type ValidationResult struct {
	File     string
	Valid    bool
	Errors   []string
	Warnings []string
}

var errValidationFailed = errors.New("layout validation failed")

func main() {
	cmd := &cli.Command{
		Name:      "validate",
		Usage:     "validate the board layouts in a directory",
		ArgsUsage: "[layouts-dir]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "strict", Usage: "treat warnings as failures"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := "layouts"
			if cmd.Args().Len() > 0 {
				dir = cmd.Args().First()
			}
			return run(os.Stdout, dir, cmd.Bool("strict"))
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, errValidationFailed) {
			os.Exit(1)
		}
		log.WithError(err).Fatal("validate failed")
	}
}

// run validates dir, prints a report and returns errValidationFailed when
// any file fails
func run(w io.Writer, dir string, strict bool) error {
	results, err := validateDir(dir)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("no layout files found in %s", dir)
	}

	failed := 0
	for _, r := range results {
		ok := r.Valid && !(strict && len(r.Warnings) > 0)
		status := "OK"
		if !ok {
			status = "FAIL"
			failed++
		}
		fmt.Fprintf(w, "[%s] %s\n", status, r.File)
		for _, e := range r.Errors {
			fmt.Fprintf(w, "    error: %s\n", e)
		}
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "    warning: %s\n", warn)
		}
	}

	fmt.Fprintf(w, "\n%d of %d layouts valid\n", len(results)-failed, len(results))
	if failed > 0 {
		return fmt.Errorf("%w: %d files", errValidationFailed, failed)
	}
	return nil
}

// validateDir validates every .json file in dir, in name order
func validateDir(dir string) ([]ValidationResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read layouts dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	results := make([]ValidationResult, 0, len(names))
	for _, name := range names {
		results = append(results, validateLayoutFile(filepath.Join(dir, name)))
	}
	return results, nil
}

// validateLayoutFile loads and validates a single layout file
func validateLayoutFile(path string) ValidationResult {
	result := ValidationResult{File: filepath.Base(path), Valid: true}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("failed to read file: %v", err))
		return result
	}

	layout, err := config.ParseLayout(data)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	result.Warnings = layoutWarnings(layout)
	return result
}

// layoutWarnings reports playable but questionable layouts
func layoutWarnings(layout *engine.Layout) []string {
	var warnings []string
	stats := layout.Stats()

	if stats.Treasures.Total() == 0 {
		warnings = append(warnings, "no treasures: the game ends as soon as play starts")
	}
	if stats.Hunter == nil {
		return append(warnings, "no hunter: one must be placed by hand before play")
	}

	game, err := engine.NewGame()
	if err != nil {
		return append(warnings, err.Error())
	}
	if _, err := game.RequestTransition(engine.EventStartSetup); err != nil {
		return append(warnings, err.Error())
	}
	if _, err := game.ApplyLayout(layout); err != nil {
		return append(warnings, err.Error())
	}

	if game.IsStuck() {
		warnings = append(warnings, fmt.Sprintf("hunter at %s is boxed in", stats.Hunter))
	}
	unreachable, _ := engine.Reachability(game.Board(), *stats.Hunter)
	for _, p := range unreachable {
		warnings = append(warnings, fmt.Sprintf("treasure at %s is walled off from the hunter", p))
	}
	return warnings
}
