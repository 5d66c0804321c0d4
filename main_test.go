/*
 * Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
 * or more contributor license agreements. Licensed under the Apache License 2.0.
 * See the file "LICENSE" for details.
 */

package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withArgs temporarily replaces os.Args for the duration of the test.
func withArgs(t *testing.T, argv ...string) {
	t.Helper()
	old := os.Args
	os.Args = append([]string{"dwarflint"}, argv...)
	t.Cleanup(func() { os.Args = old })
}

var flagTestsOK = []struct {
	name string
	argv []string
	want arguments
}{
	{
		name: "bare file",
		argv: []string{"a.out"},
		want: arguments{files: []string{"a.out"}},
	},
	{
		name: "strict and ref",
		argv: []string{"--strict", "--ref", "a.out"},
		want: arguments{strict: true, ref: true, files: []string{"a.out"}},
	},
	{
		name: "gnu and tolerant",
		argv: []string{"--gnu", "--tolerant", "a.out", "b.out"},
		want: arguments{gnu: true, tolerant: true, files: []string{"a.out", "b.out"}},
	},
	{
		name: "short ignore-missing and quiet",
		argv: []string{"-i", "-q", "a.out"},
		want: arguments{ignoreMissing: true, quiet: true, files: []string{"a.out"}},
	},
	{
		name: "long ignore-missing and verbose",
		argv: []string{"--ignore-missing", "-v", "a.out"},
		want: arguments{ignoreMissing: true, verbose: true, files: []string{"a.out"}},
	},
	{
		name: "nohl",
		argv: []string{"--nohl", "a.out"},
		want: arguments{noHL: true, files: []string{"a.out"}},
	},
	{
		name: "no files",
		argv: []string{"--strict"},
		want: arguments{strict: true, files: nil},
	},
}

func TestParseArgsOK(t *testing.T) {
	for _, tt := range flagTestsOK {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			withArgs(t, tt.argv...)

			args, err := parseArgs()
			require.NoError(t, err)

			assert.Equal(t, tt.want.strict, args.strict)
			assert.Equal(t, tt.want.gnu, args.gnu)
			assert.Equal(t, tt.want.tolerant, args.tolerant)
			assert.Equal(t, tt.want.ref, args.ref)
			assert.Equal(t, tt.want.noHL, args.noHL)
			assert.Equal(t, tt.want.ignoreMissing, args.ignoreMissing)
			assert.Equal(t, tt.want.quiet, args.quiet)
			assert.Equal(t, tt.want.verbose, args.verbose)
			assert.Equal(t, tt.want.files, args.files)
		})
	}
}

func TestParseArgsUnknownFlagFails(t *testing.T) {
	withArgs(t, "--not-a-real-flag", "a.out")

	_, err := parseArgs()
	assert.Error(t, err)
}

func TestMainWithExitCodeNoFilesIsParseError(t *testing.T) {
	withArgs(t)

	code := mainWithExitCode()
	assert.Equal(t, exitParseError, code)
}

func TestMainWithExitCodeMissingFileIsFailure(t *testing.T) {
	withArgs(t, "/nonexistent/path/does-not-exist.elf")

	code := mainWithExitCode()
	assert.Equal(t, exitFailure, code)
}

func TestFormatCriterionEmptyIsNone(t *testing.T) {
	assert.Equal(t, "(none)", formatCriterion(nil))
}
