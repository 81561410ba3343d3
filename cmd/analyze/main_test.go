package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/mcp-training/treasurehunt/game/engine"
)

func layoutFrom(rows ...string) *engine.Layout {
	full := make([]string, 10)
	for i := range full {
		if i < len(rows) {
			full[i] = rows[i]
		} else {
			full[i] = ".........."
		}
	}
	return &engine.Layout{Name: "test", Rows: full}
}

func TestAnalyzeLayout(t *testing.T) {
	tests := []struct {
		name         string
		layout       *engine.Layout
		stuck        bool
		endsAtStart  bool
		reason       engine.EndReason
		startErr     bool
		unreachable  int
		nearestSteps int
	}{
		{
			name:         "default layout plays",
			layout:       engine.DefaultLayout(),
			nearestSteps: 3,
		},
		{
			name:         "boxed in hunter",
			layout:       layoutFrom("ho........", "o.......5."),
			stuck:        true,
			endsAtStart:  true,
			reason:       engine.EndHunterStuck,
			unreachable:  1,
			nearestSteps: -1,
		},
		{
			name:         "no treasures",
			layout:       layoutFrom("h........."),
			endsAtStart:  true,
			reason:       engine.EndAllCollected,
			nearestSteps: -1,
		},
		{
			name:         "no hunter",
			layout:       layoutFrom("..5......."),
			startErr:     true,
			nearestSteps: -1,
		},
		{
			name:         "treasure reached by a detour",
			layout:       layoutFrom("h6....o8..", "......oo..", ".........."),
			unreachable:  0,
			nearestSteps: 1,
		},
		{
			name:         "treasure in a sealed pocket",
			layout:       layoutFrom("h6.....o8o", ".......ooo"),
			unreachable:  1,
			nearestSteps: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := analyzeLayout(tt.layout)
			if err != nil {
				t.Fatalf("analyzeLayout failed: %v", err)
			}

			if a.StartsStuck != tt.stuck {
				t.Errorf("StartsStuck = %v, expected %v", a.StartsStuck, tt.stuck)
			}
			if a.EndsAtStart != tt.endsAtStart {
				t.Errorf("EndsAtStart = %v, expected %v", a.EndsAtStart, tt.endsAtStart)
			}
			if a.EndReason != tt.reason {
				t.Errorf("EndReason = %q, expected %q", a.EndReason, tt.reason)
			}
			if (a.StartError != nil) != tt.startErr {
				t.Errorf("StartError = %v, expected error: %v", a.StartError, tt.startErr)
			}
			if len(a.Unreachable) != tt.unreachable {
				t.Errorf("Unreachable = %v, expected %d", a.Unreachable, tt.unreachable)
			}
			if a.NearestSteps != tt.nearestSteps {
				t.Errorf("NearestSteps = %d, expected %d", a.NearestSteps, tt.nearestSteps)
			}
		})
	}
}

func TestAnalyzeDir(t *testing.T) {
	dir := t.TempDir()

	files := map[string]string{
		"classic.json": `{"name": "classic", "description": "corner start", "rows": ["h5........", "..........", "..........", "..........", "..........", "..........", "..........", "..........", "..........", ".........8"]}`,
		"broken.json":  `{"name": "broken", "rows": ["h"]}`,
		"notes.txt":    "not a layout",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	var out bytes.Buffer
	if err := analyzeDir(&out, dir); err != nil {
		t.Fatalf("analyzeDir failed: %v", err)
	}
	text := out.String()

	for _, want := range []string{
		"=== Analyzing broken.json ===",
		"=== Analyzing classic.json ===",
		"Treasures: 2 (5:1 6:0 7:0 8:1) worth 13 points",
		"Hunter: (0,0)",
		"Nearest reachable treasure: 1 steps",
		"All treasures are reachable from the hunter",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in output:\n%s", want, text)
		}
	}
	if strings.Contains(text, "notes.txt") {
		t.Error("Non-JSON files should be skipped")
	}
	if strings.Index(text, "broken.json") > strings.Index(text, "classic.json") {
		t.Error("Expected layouts in name order")
	}
}

func TestAnalyzeDir_Missing(t *testing.T) {
	var out bytes.Buffer
	if err := analyzeDir(&out, filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Expected error for a missing directory")
	}
}

func TestPrintAnalysis_Warnings(t *testing.T) {
	layout := layoutFrom("ho........", "o.......5.")
	a, err := analyzeLayout(layout)
	if err != nil {
		t.Fatalf("analyzeLayout failed: %v", err)
	}

	var out bytes.Buffer
	printAnalysis(&out, layout, a)
	text := out.String()

	for _, want := range []string{
		"hunter starts boxed in",
		"the game ends as soon as play starts (hunter_stuck)",
		"1 treasures are walled off",
		"Unreachable: (8,1)",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in output:\n%s", want, text)
		}
	}
}
