// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/peterbourgon/ff/v3"

	log "github.com/dwarflint/dwarflint/internal/log"
)

// Help strings for command line arguments
var (
	strictHelp = "Do not turn off the strings/line-header-bloat/pubtypes " +
		"diagnostic axes; by default they are masked out of the warning set."
	gnuHelp = "Mask off the bloat axis and the aranges cross-set overlap " +
		"warning, matching GNU dwarflint's looser defaults."
	tolerantHelp = "Mask off the loc and ranges axes and the aranges " +
		"cross-set overlap warning."
	refHelp           = "Print the reference chain that led to each diagnostic."
	noHLHelp          = "Skip high-level (post-structural) checks."
	ignoreMissingHelp = "Mask off the elf axis: a completely missing " +
		"DWARF section is not treated as a hard error."
	quietHelp   = "Suppress the final \"No errors\" line when a file is clean."
	verboseHelp = "Print the resolved warning/error criteria before linting."
)

// arguments holds the parsed command line for one dwarflint invocation.
type arguments struct {
	strict        bool
	gnu           bool
	tolerant      bool
	ref           bool
	noHL          bool
	ignoreMissing bool
	quiet         bool
	verbose       bool

	files []string

	fs *flag.FlagSet
}

// dump visits all flags and dumps them to the debug log; used in verbose mode.
func (a *arguments) dump() {
	log.Debug("Arguments:")
	a.fs.VisitAll(func(f *flag.Flag) {
		log.Debugf("%s: %v", f.Name, f.Value)
	})
	log.Debugf("files: %v", a.files)
}

func parseArgs() (*arguments, error) {
	var args arguments

	fs := flag.NewFlagSet("dwarflint", flag.ContinueOnError)

	// Please keep the parameters ordered alphabetically in the source-code.
	fs.BoolVar(&args.gnu, "gnu", false, gnuHelp)

	fs.BoolVar(&args.ignoreMissing, "i", false, "Shorthand for -ignore-missing.")
	fs.BoolVar(&args.ignoreMissing, "ignore-missing", false, ignoreMissingHelp)

	fs.BoolVar(&args.noHL, "nohl", false, noHLHelp)

	fs.BoolVar(&args.quiet, "q", false, "Shorthand for -quiet.")
	fs.BoolVar(&args.quiet, "quiet", false, quietHelp)

	fs.BoolVar(&args.ref, "ref", false, refHelp)

	fs.BoolVar(&args.strict, "strict", false, strictHelp)

	fs.BoolVar(&args.tolerant, "tolerant", false, tolerantHelp)

	fs.BoolVar(&args.verbose, "v", false, "Shorthand for -verbose.")
	fs.BoolVar(&args.verbose, "verbose", false, verboseHelp)

	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: dwarflint [flags] FILE...")
		fs.PrintDefaults()
	}

	args.fs = fs

	err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("DWARFLINT"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithIgnoreUndefined(true),
		ff.WithAllowMissingConfigFile(true),
	)
	if err != nil {
		return nil, err
	}

	args.files = fs.Args()
	return &args, nil
}
