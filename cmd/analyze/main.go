// Command analyze prints quick, human-readable heuristics about the board
// layouts in a directory: treasure counts by value, total points, obstacle
// count, the hunter start, treasures the hunter cannot reach past the fixed
// obstacles, and whether starting play would end the game immediately.
package main

import (
	"context"
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

// Analysis is the result of analyzing one layout
type Analysis struct {
	Stats        engine.LayoutStats
	StartsStuck  bool
	EndsAtStart  bool
	EndReason    engine.EndReason
	StartError   error
	Unreachable  []engine.Position
	NearestSteps int
}

func main() {
	cmd := &cli.Command{
		Name:      "analyze",
		Usage:     "print statistics for every board layout in a directory",
		ArgsUsage: "[layouts-dir]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := "layouts"
			if cmd.Args().Len() > 0 {
				dir = cmd.Args().First()
			}
			return analyzeDir(os.Stdout, dir)
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.WithError(err).Fatal("analyze failed")
	}
}

// analyzeDir analyzes every .json layout in dir, in name order
func analyzeDir(w io.Writer, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read layouts dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(w, "\n=== Analyzing %s ===\n", name)

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(w, "Error reading file: %v\n", err)
			continue
		}
		layout, err := config.ParseLayout(data)
		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			continue
		}

		analysis, err := analyzeLayout(layout)
		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			continue
		}
		printAnalysis(w, layout, analysis)
	}
	return nil
}

// analyzeLayout places the layout on a fresh game and requests play
func analyzeLayout(layout *engine.Layout) (*Analysis, error) {
	a := &Analysis{Stats: layout.Stats(), NearestSteps: -1}

	game, err := engine.NewGame()
	if err != nil {
		return nil, err
	}
	if _, err := game.RequestTransition(engine.EventStartSetup); err != nil {
		return nil, err
	}
	if _, err := game.ApplyLayout(layout); err != nil {
		return nil, err
	}

	a.StartsStuck = game.IsStuck()
	if a.Stats.Hunter != nil {
		a.Unreachable, a.NearestSteps = engine.Reachability(game.Board(), *a.Stats.Hunter)
	}

	mode, err := game.RequestTransition(engine.EventEndSetup)
	if err != nil {
		a.StartError = err
		return a, nil
	}
	if mode == engine.ModeEnd {
		a.EndsAtStart = true
		if summary := game.Summary(); summary != nil {
			a.EndReason = summary.Reason
		}
	}
	return a, nil
}

func printAnalysis(w io.Writer, layout *engine.Layout, a *Analysis) {
	s := a.Stats
	fmt.Fprintf(w, "Name: %s\n", layout.Name)
	if layout.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", layout.Description)
	}
	fmt.Fprintf(w, "Treasures: %d (5:%d 6:%d 7:%d 8:%d) worth %d points\n",
		s.Treasures.Total(), s.Treasures.Five, s.Treasures.Six, s.Treasures.Seven, s.Treasures.Eight, s.TotalPoints)
	fmt.Fprintf(w, "Obstacles: %d, empty cells: %d\n", s.Obstacles, s.EmptyCells)

	if s.Hunter == nil {
		fmt.Fprintf(w, "WARNING: no hunter, play cannot start until one is placed\n")
		return
	}
	fmt.Fprintf(w, "Hunter: %s\n", s.Hunter)

	if a.StartsStuck {
		fmt.Fprintf(w, "WARNING: hunter starts boxed in on all four sides\n")
	}
	if a.StartError != nil {
		fmt.Fprintf(w, "WARNING: play cannot start: %v\n", a.StartError)
	} else if a.EndsAtStart {
		fmt.Fprintf(w, "WARNING: the game ends as soon as play starts (%s)\n", a.EndReason)
	}

	if a.NearestSteps >= 0 {
		fmt.Fprintf(w, "Nearest reachable treasure: %d steps\n", a.NearestSteps)
	}
	if len(a.Unreachable) > 0 {
		fmt.Fprintf(w, "WARNING: %d treasures are walled off from the hunter\n", len(a.Unreachable))
		for i, p := range a.Unreachable {
			if i == 5 {
				fmt.Fprintf(w, "   ... and %d more\n", len(a.Unreachable)-5)
				break
			}
			fmt.Fprintf(w, "   Unreachable: %s\n", p)
		}
	} else if s.Treasures.Total() > 0 {
		fmt.Fprintf(w, "All treasures are reachable from the hunter\n")
	}
}
