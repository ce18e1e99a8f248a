package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/witanlabs/sheetview/config"
)

// runCLI executes the root command with args and returns what it printed.
// Package-level flag variables survive between executions, so they are
// reset first.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	jsonOutput, noCache = false, false
	newForce, setOutput, getSheet, diffSheet, authToken = false, "", "", "", ""
	viewSheet, viewWatch = "", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func isolateConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SHEETVIEW_CONFIG_DIR", dir)
	t.Setenv("SHEETVIEW_TOKEN", "")
	return dir
}

func newWorkbook(t *testing.T, name string, edits ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if _, err := runCLI(t, "new", path); err != nil {
		t.Fatalf("new: %v", err)
	}
	if len(edits) > 0 {
		if _, err := runCLI(t, append([]string{"set", path}, edits...)...); err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	return path
}

func TestNew_RefusesExistingFile(t *testing.T) {
	isolateConfig(t)
	path := newWorkbook(t, "book.xlsx")

	if _, err := runCLI(t, "new", path); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already-exists error, got %v", err)
	}
	out, err := runCLI(t, "new", "--force", path)
	if err != nil {
		t.Fatalf("new --force: %v", err)
	}
	if !strings.Contains(out, "Created") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestSetThenGet(t *testing.T) {
	isolateConfig(t)
	path := newWorkbook(t, "book.xlsx", "A1=42", "B2=hello", "Sheet1!C1=true")

	out, err := runCLI(t, "get", path, "A1:C2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := "42\t\tTRUE\n\thello\t\n"
	if out != want {
		t.Fatalf("get output = %q, want %q", out, want)
	}
}

func TestGet_JSONWithSheetPrefix(t *testing.T) {
	isolateConfig(t)
	path := newWorkbook(t, "book.xlsx", "B2=x")

	out, err := runCLI(t, "get", path, "Sheet1!B2", "--json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var res rangeResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if res.Address != "Sheet1!B2" || len(res.Rows) != 1 || res.Rows[0][0] != "x" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestGet_UnknownSheet(t *testing.T) {
	isolateConfig(t)
	path := newWorkbook(t, "book.xlsx")

	if _, err := runCLI(t, "get", path, "Nope!A1"); err == nil {
		t.Fatal("expected error for unknown sheet")
	}
}

func TestSheets_JSON(t *testing.T) {
	isolateConfig(t)
	path := newWorkbook(t, "book.xlsx", "A1=1", "C3=3")

	out, err := runCLI(t, "sheets", path, "--json")
	if err != nil {
		t.Fatalf("sheets: %v", err)
	}
	var infos []sheetInfo
	if err := json.Unmarshal([]byte(out), &infos); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	var active *sheetInfo
	for i := range infos {
		if infos[i].Active {
			active = &infos[i]
		}
	}
	if active == nil || active.Name != "Sheet1" {
		t.Fatalf("expected Sheet1 to be active, got %+v", infos)
	}
	if active.Rows != 3 || active.Columns != 3 {
		t.Fatalf("expected 3x3 used area, got %+v", active)
	}
}

func TestDiff_ExitCodes(t *testing.T) {
	isolateConfig(t)
	a := newWorkbook(t, "a.xlsx", "A1=1", "B1=2")
	b := newWorkbook(t, "b.xlsx", "A1=1", "B1=3")

	out, err := runCLI(t, "diff", a, a)
	if err != nil {
		t.Fatalf("diff of identical files: %v", err)
	}
	if !strings.Contains(out, "diff: no changes") {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = runCLI(t, "diff", a, b)
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 2 {
		t.Fatalf("expected exit code 2, got %v", err)
	}
	if !strings.Contains(out, `B1	"2" -> "3"`) || !strings.Contains(out, "diff: 1 cell changed (50.0%)") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestSet_OutputLeavesInputUntouched(t *testing.T) {
	isolateConfig(t)
	src := newWorkbook(t, "src.xlsx", "A1=before")
	before, err := os.ReadFile(src)
	if err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(t.TempDir(), "dst.xlsx")

	if _, err := runCLI(t, "set", src, "A1=after", "-o", dst); err != nil {
		t.Fatalf("set: %v", err)
	}
	after, _ := os.ReadFile(src)
	if !bytes.Equal(before, after) {
		t.Fatal("expected input file to be unchanged")
	}
	out, err := runCLI(t, "get", dst, "A1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if out != "after\n" {
		t.Fatalf("get output = %q", out)
	}
}

func TestSet_URLNeedsOutput(t *testing.T) {
	isolateConfig(t)
	_, err := runCLI(t, "set", "https://files.test.local/book.xlsx", "A1=1")
	if err == nil || !strings.Contains(err.Error(), "--output") {
		t.Fatalf("expected --output error, got %v", err)
	}
}

func TestAuth_LoginLogout(t *testing.T) {
	isolateConfig(t)

	if _, err := runCLI(t, "auth", "login", "--token", "  tok-123 "); err != nil {
		t.Fatalf("login: %v", err)
	}
	c, err := config.Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.Token != "tok-123" {
		t.Fatalf("expected stored token, got %q", c.Token)
	}

	out, err := runCLI(t, "auth", "logout")
	if err != nil || !strings.Contains(out, "Logged out.") {
		t.Fatalf("logout: %q, %v", out, err)
	}
	out, err = runCLI(t, "auth", "logout")
	if err != nil || !strings.Contains(out, "Not logged in.") {
		t.Fatalf("second logout: %q, %v", out, err)
	}
}

func TestAuth_LoginRejectsEmptyToken(t *testing.T) {
	isolateConfig(t)
	if _, err := runCLI(t, "auth", "login"); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestConsoleSink_NoneForViewer(t *testing.T) {
	if consoleSink(viewCmd) != nil {
		t.Fatal("expected no console sink while the viewer owns the terminal")
	}
	if consoleSink(getCmd) == nil {
		t.Fatal("expected stderr console sink for get")
	}
}

func TestSetup_ConfigFileIsDirectory(t *testing.T) {
	dir := isolateConfig(t)
	if err := os.Mkdir(filepath.Join(dir, "config.json"), 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "book.xlsx")
	if _, err := runCLI(t, "new", path); err == nil {
		t.Fatal("expected an error when the config path is a directory")
	}
}
