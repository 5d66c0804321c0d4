/*
 * Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
 * or more contributor license agreements. Licensed under the Apache License 2.0.
 * See the file "LICENSE" for details.
 */

package main

import (
	"fmt"
	"os"

	"github.com/dwarflint/dwarflint/internal/diag"
	log "github.com/dwarflint/dwarflint/internal/log"
	"github.com/dwarflint/dwarflint/validator"
)

type exitCode int

const (
	exitSuccess exitCode = 0
	exitFailure exitCode = 1

	// Go 'flag' package calls os.Exit(2) on flag parse errors, if ExitOnError is set
	exitParseError exitCode = 2
)

func main() {
	os.Exit(int(mainWithExitCode()))
}

func mainWithExitCode() exitCode {
	args, err := parseArgs()
	if err != nil {
		return parseError("Failure to parse arguments: %v", err)
	}

	if args.verbose {
		log.SetDebugLogger()
		args.dump()
	}

	if len(args.files) == 0 {
		args.fs.Usage()
		return parseError("No input files given")
	}

	opts := validator.Options{
		Strict:        args.strict,
		GNU:           args.gnu,
		Tolerant:      args.tolerant,
		Ref:           args.ref,
		NoHL:          args.noHL,
		IgnoreMissing: args.ignoreMissing,
	}

	if args.verbose {
		warn, errCrit := validator.BuildCriteria(opts)
		fmt.Printf("warning criterion: %s\n", formatCriterion(warn))
		fmt.Printf("error criterion:   %s\n", formatCriterion(errCrit))
	}

	exit := exitSuccess
	multi := len(args.files) > 1
	for _, path := range args.files {
		if multi {
			fmt.Printf("%s:\n", path)
		}
		if code := lintOne(path, opts, args.quiet); code != exitSuccess {
			exit = code
		}
	}
	return exit
}

func lintOne(path string, opts validator.Options, quiet bool) exitCode {
	report, err := validator.Lint(path, opts)
	if err != nil {
		log.Errorf("%s: %v", path, err)
		return exitFailure
	}

	for _, m := range report.Messages {
		if sev := report.Severity(m); sev != diag.Suppressed {
			fmt.Print(report.Line(m))
		}
	}

	if !report.Clean() {
		return exitFailure
	}
	if !quiet {
		fmt.Println("No errors")
	}
	return exitSuccess
}

// formatCriterion renders a criterion's terms as a readable DNF for
// --verbose, without teaching internal/diag about display: each term
// prints as its positive/negative category bitmasks.
func formatCriterion(cr diag.Criterion) string {
	if len(cr) == 0 {
		return "(none)"
	}
	s := ""
	for i, t := range cr {
		if i > 0 {
			s += " | "
		}
		s += fmt.Sprintf("(+%#x -%#x)", uint64(t.Positive), uint64(t.Negative))
	}
	return s
}

func parseError(msg string, args ...interface{}) exitCode {
	log.Errorf(msg, args...)
	return exitParseError
}
