package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeLayout(t *testing.T, dir, name string, rows []string) {
	t.Helper()
	data, err := json.Marshal(map[string]interface{}{"name": strings.TrimSuffix(name, ".json"), "rows": rows})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func board(rows ...string) []string {
	full := make([]string, 10)
	for i := range full {
		if i < len(rows) {
			full[i] = rows[i]
		} else {
			full[i] = ".........."
		}
	}
	return full
}

func TestValidateLayoutFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		rows     []string
		raw      string
		valid    bool
		errors   []string
		warnings []string
	}{
		{
			name:  "valid.json",
			rows:  board("h5........", "........o.", ".......8.."),
			valid: true,
		},
		{
			name:   "short.json",
			rows:   []string{"h5........"},
			errors: []string{"must have 10 rows"},
		},
		{
			name:   "bad_char.json",
			rows:   board("h5...x...."),
			errors: []string{"invalid character 'x'"},
		},
		{
			name:   "two_hunters.json",
			rows:   board("h5......h."),
			errors: []string{"at most one is allowed"},
		},
		{
			name:   "not_json.json",
			raw:    "{not json",
			errors: []string{"failed to parse layout"},
		},
		{
			name:     "no_hunter.json",
			rows:     board("..5......."),
			valid:    true,
			warnings: []string{"no hunter"},
		},
		{
			name:     "no_treasure.json",
			rows:     board("h........."),
			valid:    true,
			warnings: []string{"no treasures"},
		},
		{
			name:     "boxed.json",
			rows:     board("ho........", "o....7...."),
			valid:    true,
			warnings: []string{"hunter at (0,0) is boxed in", "treasure at (5,1) is walled off"},
		},
		{
			name:     "pocket.json",
			rows:     board("h6.....o8o", ".......ooo"),
			valid:    true,
			warnings: []string{"treasure at (8,0) is walled off"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.raw != "" {
				if err := os.WriteFile(filepath.Join(dir, tt.name), []byte(tt.raw), 0644); err != nil {
					t.Fatal(err)
				}
			} else {
				writeLayout(t, dir, tt.name, tt.rows)
			}

			result := validateLayoutFile(filepath.Join(dir, tt.name))

			if result.File != tt.name {
				t.Errorf("File = %s, want %s", result.File, tt.name)
			}
			if result.Valid != tt.valid {
				t.Errorf("Valid = %v, want %v (errors: %v)", result.Valid, tt.valid, result.Errors)
			}
			assertContainsAll(t, "errors", result.Errors, tt.errors)
			assertContainsAll(t, "warnings", result.Warnings, tt.warnings)
		})
	}
}

func assertContainsAll(t *testing.T, label string, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Errorf("%s = %v, want %d entries matching %v", label, got, len(want), want)
		return
	}
	joined := strings.Join(got, "\n")
	for _, w := range want {
		if !strings.Contains(joined, w) {
			t.Errorf("%s %v missing %q", label, got, w)
		}
	}
}

func TestValidateLayoutFile_Missing(t *testing.T) {
	result := validateLayoutFile(filepath.Join(t.TempDir(), "missing.json"))
	if result.Valid {
		t.Error("Expected missing file to be invalid")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "failed to read file") {
		t.Errorf("Unexpected errors: %v", result.Errors)
	}
}

func TestRun(t *testing.T) {
	tests := []struct {
		name    string
		layouts map[string][]string
		strict  bool
		wantErr bool
		output  []string
	}{
		{
			name:    "all valid",
			layouts: map[string][]string{"a.json": board("h5........"), "b.json": board("h.......8.")},
			output:  []string{"[OK] a.json", "[OK] b.json", "2 of 2 layouts valid"},
		},
		{
			name:    "one invalid",
			layouts: map[string][]string{"a.json": board("h5........"), "b.json": {"h"}},
			wantErr: true,
			output:  []string{"[OK] a.json", "[FAIL] b.json", "1 of 2 layouts valid"},
		},
		{
			name:    "warnings pass by default",
			layouts: map[string][]string{"a.json": board("h.........")},
			output:  []string{"[OK] a.json", "warning: no treasures"},
		},
		{
			name:    "warnings fail when strict",
			layouts: map[string][]string{"a.json": board("h.........")},
			strict:  true,
			wantErr: true,
			output:  []string{"[FAIL] a.json", "0 of 1 layouts valid"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, rows := range tt.layouts {
				writeLayout(t, dir, name, rows)
			}

			var out bytes.Buffer
			err := run(&out, dir, tt.strict)

			if tt.wantErr {
				if !errors.Is(err, errValidationFailed) {
					t.Errorf("Expected errValidationFailed, got %v", err)
				}
			} else if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			for _, want := range tt.output {
				if !strings.Contains(out.String(), want) {
					t.Errorf("Expected %q in output:\n%s", want, out.String())
				}
			}
		})
	}
}

func TestRun_EmptyDir(t *testing.T) {
	var out bytes.Buffer
	err := run(&out, t.TempDir(), false)
	if err == nil || errors.Is(err, errValidationFailed) {
		t.Errorf("Expected a plain error for an empty directory, got %v", err)
	}
}

func TestRun_ShippedLayouts(t *testing.T) {
	dir := filepath.Join("..", "..", "layouts")
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Skip("layouts directory not found")
	}

	var out bytes.Buffer
	if err := run(&out, dir, true); err != nil {
		t.Errorf("Shipped layouts should pass strict validation: %v\n%s", err, out.String())
	}
}
