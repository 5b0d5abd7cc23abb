package main

import (
	"errors"
	"io"
	"testing"

	"rowkit/internal/errs"
	"rowkit/internal/seed"
)

// TestParseArgs_GlobalFlagsEitherSide accepts global flags before and after
// the command name.
func TestParseArgs_GlobalFlagsEitherSide(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{
		{"-v", "--engine", "postgres", "sample", "in.csv", "-n", "5"},
		{"sample", "in.csv", "-n", "5", "--engine=postgres", "-v"},
	} {
		inv, err := parseArgs(args, io.Discard)
		if err != nil {
			t.Fatalf("parseArgs(%q) error = %v", args, err)
		}
		if inv.command != cmdSample || inv.input != "in.csv" || inv.n != 5 {
			t.Fatalf("parseArgs(%q) = %+v", args, inv)
		}
		if !inv.global.verbose || inv.global.engine != "postgres" {
			t.Fatalf("globals not applied for %q: %+v", args, inv.global)
		}
		if !inv.changed("engine") || inv.changed("dsn") {
			t.Fatalf("changed() wrong for %q", args)
		}
	}
}

// TestParseArgs_Defaults checks per-command defaults.
func TestParseArgs_Defaults(t *testing.T) {
	t.Parallel()

	inv, err := parseArgs([]string{"sample", "in.csv"}, io.Discard)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if inv.n != 10 || inv.method != "random" || inv.seed.IsSet() {
		t.Fatalf("sample defaults = n:%d method:%q seed:%v", inv.n, inv.method, inv.seed)
	}

	inv, err = parseArgs([]string{"split", "in.csv", "--ratio", "0.8,0.2"}, io.Discard)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if inv.prefix != "split" || inv.outputDir != "." || inv.ratio != "0.8,0.2" {
		t.Fatalf("split defaults = %+v", inv)
	}
}

// TestParseArgs_Seed treats --random 0 as a real seed.
func TestParseArgs_Seed(t *testing.T) {
	t.Parallel()

	inv, err := parseArgs([]string{"shuffle", "in.csv", "--random", "0"}, io.Discard)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if inv.seed != seed.Some(0) {
		t.Fatalf("seed = %v, want Some(0)", inv.seed)
	}
}

/*
TestParseArgs_Errors covers missing commands, unknown commands and flags,
and the wrong number of inputs. All are invalid arguments.
*/
func TestParseArgs_Errors(t *testing.T) {
	t.Parallel()

	cases := [][]string{
		{},
		{"-v"},
		{"explode", "in.csv"},
		{"sample"},
		{"sample", "a.csv", "b.csv"},
		{"shuffle", "in.csv", "--ratio", "1"},
		{"split", "in.csv", "-n", "3"},
	}
	for _, args := range cases {
		_, err := parseArgs(args, io.Discard)
		if !errors.Is(err, errs.ErrInvalidArgument) {
			t.Errorf("parseArgs(%q) error = %v, want ErrInvalidArgument", args, err)
		}
	}
}

// TestParseArgs_Help returns without error.
func TestParseArgs_Help(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{{"--help"}, {"split", "--help"}} {
		inv, err := parseArgs(args, io.Discard)
		if err != nil || !inv.help {
			t.Fatalf("parseArgs(%q) = help:%v err:%v", args, inv.help, err)
		}
	}
}
