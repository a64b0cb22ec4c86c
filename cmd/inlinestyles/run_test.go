package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testPage = `<html><head><style>#x { color: blue } p { margin: 0 }</style></head><body><p id="x">x</p></body></html>`

func runApp(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	err := app.Run(contextWithEnv(context.Background()), append([]string{appName}, args...))
	return stdout.String(), stderr.String(), err
}

func writeSource(t *testing.T, dir, name, text string) string {
	t.Helper()
	fn := filepath.Join(dir, name)
	if err := os.WriteFile(fn, []byte(text), 0o600); err != nil {
		t.Fatal(err)
	}
	return fn
}

func TestInlineToStdout(t *testing.T) {
	fn := writeSource(t, t.TempDir(), "page.html", testPage)
	stdout, stderr, err := runApp(t, "inline", "--stats", fn)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, `<p id="x" style="color:blue;margin:0">`) {
		t.Errorf("output not inlined: %s", stdout)
	}
	if strings.Contains(stdout, "<style") {
		t.Errorf("style element left: %s", stdout)
	}
	if !strings.Contains(stderr, "Styles inlined") || !strings.Contains(stderr, "elements:       1") {
		t.Errorf("stderr misses log or stats: %s", stderr)
	}
	// source stays untouched
	if data, _ := os.ReadFile(fn); string(data) != testPage {
		t.Errorf("source modified: %s", data)
	}
}

func TestInlineOverwrite(t *testing.T) {
	dir := t.TempDir()
	shared := `<style>p { color: red }</style><p>1</p><p>2</p>`
	a := writeSource(t, dir, "a.html", testPage)
	b := writeSource(t, dir, "b.html", shared)
	stdout, _, err := runApp(t, "inline", "--overwrite", "--merge-shared", a, b)
	if err != nil {
		t.Fatal(err)
	}
	if stdout != "" {
		t.Errorf("stdout = %q, want nothing", stdout)
	}
	data, err := os.ReadFile(b)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(data), `style="color:red"`); got != 2 {
		t.Errorf("%d elements styled, want 2: %s", got, data)
	}
	fi, err := os.Stat(a)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode().Perm() != 0o600 {
		t.Errorf("permissions = %v, want 0600", fi.Mode().Perm())
	}
}

func TestInlineFragmentFromConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := writeSource(t, dir, "config.yaml", "version: 1\ndocument:\n  fragment: true\ninline:\n  remove_matched_selectors: false\nlogging:\n  level: none\n")
	fn := writeSource(t, dir, "icon.svg", `<svg><style>.a{fill:red}</style><rect class="a"/></svg>`)
	stdout, stderr, err := runApp(t, "--config", cfg, "inline", fn)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(stdout, "<html") {
		t.Errorf("fragment got wrapped: %s", stdout)
	}
	if !strings.Contains(stdout, `style="fill:red"`) || !strings.Contains(stdout, "<style>.a{fill:red}</style>") {
		t.Errorf("unexpected output: %s", stdout)
	}
	if stderr != "" {
		t.Errorf("stderr = %q, want nothing with logging disabled", stderr)
	}
}

func TestInlineErrors(t *testing.T) {
	dir := t.TempDir()
	a := writeSource(t, dir, "a.html", testPage)
	bad := writeSource(t, dir, "bad.html", `<style>p { color }</style><p>x</p>`)

	if _, _, err := runApp(t, "inline"); err == nil {
		t.Errorf("no source: succeeded, want error")
	}
	if _, _, err := runApp(t, "inline", a, a); err == nil {
		t.Errorf("two sources without --overwrite: succeeded, want error")
	}
	if _, _, err := runApp(t, "inline", "--overwrite", "-"); err == nil {
		t.Errorf("overwriting stdin: succeeded, want error")
	}

	_, _, err := runApp(t, "inline", "--overwrite", bad, a, filepath.Join(dir, "missing.html"))
	if err == nil {
		t.Fatal("bad sources: succeeded, want error")
	}
	for _, name := range []string{"bad.html", "missing.html"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not name %s", err, name)
		}
	}
	// good file in between is still processed
	if data, _ := os.ReadFile(a); !strings.Contains(string(data), `style="color:blue;margin:0"`) {
		t.Errorf("a.html not processed: %s", data)
	}
}

func TestDumpConfigCommand(t *testing.T) {
	stdout, _, err := runApp(t, "dumpconfig", "--default")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "only_matched_once: true") {
		t.Errorf("default config missing option: %s", stdout)
	}

	fn := filepath.Join(t.TempDir(), "out.yaml")
	if _, _, err = runApp(t, "--debug", "dumpconfig", fn); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(fn)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "level: debug") {
		t.Errorf("actual config does not reflect --debug: %s", data)
	}
}
