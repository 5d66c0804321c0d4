// Package validator implements the top-level C6→C7→C8→C9→C10 pipeline:
// load the abbreviation chain, walk `.debug_info`, cross-check
// `.debug_loc`/`.debug_ranges` against the references the walk recorded,
// validate the tabular sections (aranges/pubnames/pubtypes/line) against
// the CU list, and finally cross-check the accumulated address and string
// coverage against the object's own section table.
//
// Grounded on the teacher's cmd-level orchestration style (parseArgs
// building a single Config, mainWithExitCode driving one pass start to
// finish) generalized from "start one eBPF tracer" to "lint one ELF file".
package validator // import "github.com/dwarflint/dwarflint/validator"

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dwarflint/dwarflint/elfcontainer"
	"github.com/dwarflint/dwarflint/internal/abbrev"
	"github.com/dwarflint/dwarflint/internal/container"
	"github.com/dwarflint/dwarflint/internal/coverage"
	"github.com/dwarflint/dwarflint/internal/covmap"
	"github.com/dwarflint/dwarflint/internal/diag"
	"github.com/dwarflint/dwarflint/internal/dieinfo"
	"github.com/dwarflint/dwarflint/internal/locrange"
	"github.com/dwarflint/dwarflint/internal/reader"
	"github.com/dwarflint/dwarflint/internal/reloc"
	"github.com/dwarflint/dwarflint/internal/tables"
)

// Options mirrors the CLI flags spec.md §6 defines that affect how a run's
// warning/error criteria are built, plus --ref and --nohl, which instead
// affect how a Report is rendered and which passes run.
type Options struct {
	// Strict keeps the strings/line-header-bloat/pubtypes axes in the
	// warning criterion; by default they are masked off.
	Strict bool
	// GNU additionally masks off the bloat axis and suppresses the
	// aranges cross-set overlap warning, matching readelf/GNU dwarflint's
	// looser defaults.
	GNU bool
	// Tolerant additionally masks off the loc and ranges axes and
	// suppresses the aranges cross-set overlap warning.
	Tolerant bool
	// Ref requests that printed diagnostics include their reference
	// chain; it only affects Report.Line, not which checks run.
	Ref bool
	// NoHL requests skipping high-level (post-structural) checks. This
	// core validator never runs those — they are out of its scope by
	// design — so the flag is accepted and threaded through for CLI
	// compatibility but has no effect here.
	NoHL bool
	// IgnoreMissing masks the elf axis off of both criteria, so a
	// completely absent `.debug_abbrev`/`.debug_info` is merely a warning
	// (or nothing at all) instead of the default hard error.
	IgnoreMissing bool
}

// BuildCriteria turns Options into the warning/error DNF criteria spec.md
// §3/§8 describe. The default warning criterion accepts everything except
// the strings and pubtypes axes and messages that are line, header and
// bloat at once; --strict keeps them in. The default
// error criterion is impact_4 or the bare error bit, independent of flags
// except for --ignore-missing, which also excuses the elf axis from it.
func BuildCriteria(opts Options) (warn, err diag.Criterion) {
	warn = diag.AcceptAll()
	if !opts.Strict {
		warn = warn.AndNot(diag.Single(diag.CatStrings))
		warn = warn.AndNot(diag.Single(diag.CatLine | diag.CatHeader | diag.CatBloat))
		warn = warn.AndNot(diag.Single(diag.CatPubtypes))
	}
	if opts.GNU {
		warn = warn.AndNot(diag.Single(diag.CatBloat))
	}
	if opts.Tolerant {
		warn = warn.AndNot(diag.Single(diag.CatLoc))
		warn = warn.AndNot(diag.Single(diag.CatRanges))
	}

	err = diag.Single(diag.CatImpact4).Or(diag.Term{Positive: diag.CatError})
	if opts.IgnoreMissing {
		warn = warn.AndNot(diag.Single(diag.CatElf))
		err = err.AndNot(diag.Single(diag.CatElf))
	}
	return warn, err
}

// Report is the outcome of one Lint run: every diagnostic collected, the
// criteria that were in force, and the run/content identity the CLI
// stamps onto its output.
type Report struct {
	Path        string
	RunID       uuid.UUID
	ContentHash [32]byte

	Arena    *diag.Arena
	Messages []diag.Message

	WarnCriterion diag.Criterion
	ErrCriterion  diag.Criterion

	ref bool
}

// Severity classifies one of r.Messages against the criteria this run was
// built with.
func (r *Report) Severity(m diag.Message) diag.Severity {
	return diag.Classify(m.Category, r.WarnCriterion, r.ErrCriterion)
}

// Line renders m the way spec.md §6 specifies, honoring the --ref flag
// this Report was built with.
func (r *Report) Line(m diag.Message) string {
	return r.Arena.Line(m, r.Severity(m), r.ref)
}

// Counts tallies how many of r.Messages classify as errors and warnings.
func (r *Report) Counts() (warnings, errors int) {
	for _, m := range r.Messages {
		switch r.Severity(m) {
		case diag.Error:
			errors++
		case diag.Warning:
			warnings++
		}
	}
	return warnings, errors
}

// Clean reports whether this run should contribute a zero exit status:
// spec.md §6 defines exit code 0 as "no diagnostic with category error or
// impact_4 was emitted", which is exactly what the error criterion above
// encodes.
func (r *Report) Clean() bool {
	_, errors := r.Counts()
	return errors == 0
}

// Lint opens path as an ELF object and runs the full structural
// validation pipeline over it. A non-nil error here means the container
// itself could not be parsed ("Broken ELF.", spec.md §7) — the file is
// skipped entirely. Anything short of that surfaces as a diagnostic in
// the returned Report instead.
func Lint(path string, opts Options) (*Report, error) {
	f, err := elfcontainer.Open(path)
	if err != nil {
		return nil, fmt.Errorf("Broken ELF: %w", err)
	}
	defer f.Close()

	r := lintSource(f, opts)
	r.Path = path
	r.RunID = uuid.New()
	r.ContentHash = f.ContentHash()
	return r, nil
}

func flattenCUs(head *dieinfo.CU) []*dieinfo.CU {
	var out []*dieinfo.CU
	for cu := head; cu != nil; cu = cu.Next {
		out = append(out, cu)
	}
	return out
}

// bail records a section-level parse failure as a diagnostic rather than
// aborting the run: spec.md §7 has subordinate-section parse failures
// "cause that section's check to bail, but siblings still run", reserving
// a hard top-level error for container-level corruption elfcontainer.Open
// itself would have already caught.
func bail(report func(diag.Message), arena *diag.Arena, section string, cat diag.Category, err error) {
	where := arena.New(section, diag.FormatPlain)
	report(diag.Newf(cat|diag.CatImpact4|diag.CatError, where, "%s", err))
}

func lintSource(src container.Source, opts Options) *Report {
	arena := diag.NewArena()
	var messages []diag.Message
	report := func(m diag.Message) { messages = append(messages, m) }

	warnCrit, errCrit := BuildCriteria(opts)
	order := src.ByteOrder()
	addrSize := src.AddressSize()

	// C6: the abbreviation chain every CU's DIE tree is decoded against.
	var chain *abbrev.Chain
	if sec, ok := src.Section(".debug_abbrev"); ok {
		ctx := reader.New(sec.Data, order)
		loaded, lerr := abbrev.Load(ctx, arena, report)
		if lerr != nil {
			bail(report, arena, ".debug_abbrev", diag.CatAbbrevs|diag.CatElf, lerr)
			chain = &abbrev.Chain{}
		} else {
			chain = loaded
		}
	} else {
		where := arena.New(".debug_abbrev", diag.FormatPlain)
		report(diag.Newf(diag.CatElf|diag.CatImpact4|diag.CatError, where, "section is missing"))
		chain = &abbrev.Chain{}
	}

	// C7: the DIE walk itself, accumulating reference lists per CU plus
	// the two coverage sets C10 cross-checks below.
	var cus []*dieinfo.CU
	strCov := &coverage.Set{}
	globalCov := &coverage.Set{}
	if sec, ok := src.Section(".debug_info"); ok {
		strSec, _ := src.Section(".debug_str")
		infoRelocs := reloc.NewTable(src.Relocations(".debug_info"))
		walker := &dieinfo.Walker{
			Abbrevs:    chain,
			StrData:    strSec.Data,
			Src:        src,
			InfoRelocs: infoRelocs,
			Arena:      arena,
			Report:     report,
			StrCov:     strCov,
			GlobalCov:  globalCov,
		}
		ctx := reader.New(sec.Data, order)
		head, werr := walker.WalkAll(ctx)
		if werr != nil {
			bail(report, arena, ".debug_info", diag.CatInfo|diag.CatElf, werr)
		} else {
			cus = flattenCUs(head)
		}
		infoRelocs.SkipRest(arena.New(".debug_info", diag.FormatPlain), report)
	} else {
		where := arena.New(".debug_info", diag.FormatPlain)
		report(diag.Newf(diag.CatElf|diag.CatImpact4|diag.CatError, where, "section is missing"))
	}

	// C8: .debug_ranges and .debug_loc, each checked against the
	// reference lists C7 built. The ranges checker's CUCoverage map is
	// shared with the aranges checker below (C9's "compare pass" wants
	// the union of tuples found directly in .debug_aranges and ranges
	// reached indirectly through DW_AT_ranges).
	rangesCUCoverage := make(map[*dieinfo.CU]*coverage.Set)
	if sec, ok := src.Section(".debug_ranges"); ok {
		rangesRelocs := reloc.NewTable(src.Relocations(".debug_ranges"))
		checker := &locrange.Checker{
			Kind:        locrange.KindRanges,
			Src:         src,
			Relocs:      rangesRelocs,
			Arena:       arena,
			Report:      report,
			Coverage:    &coverage.Set{},
			CUCoverage:  rangesCUCoverage,
			SectionData: sec.Data,
			Align:       addrSize,
		}
		ctx := reader.New(sec.Data, order)
		if cerr := checker.Check(ctx, cus); cerr != nil {
			bail(report, arena, ".debug_ranges", diag.CatRanges, cerr)
		} else {
			checker.CheckHoles(len(sec.Data))
		}
		rangesRelocs.SkipRest(arena.New(".debug_ranges", diag.FormatPlain), report)
	}
	if sec, ok := src.Section(".debug_loc"); ok {
		locRelocs := reloc.NewTable(src.Relocations(".debug_loc"))
		checker := &locrange.Checker{
			Kind:        locrange.KindLoc,
			Src:         src,
			Relocs:      locRelocs,
			Arena:       arena,
			Report:      report,
			Coverage:    &coverage.Set{},
			SectionData: sec.Data,
			Align:       addrSize,
		}
		ctx := reader.New(sec.Data, order)
		if cerr := checker.Check(ctx, cus); cerr != nil {
			bail(report, arena, ".debug_loc", diag.CatLoc, cerr)
		} else {
			checker.CheckHoles(len(sec.Data))
		}
		locRelocs.SkipRest(arena.New(".debug_loc", diag.FormatPlain), report)
	}

	// C9: the tabular sections, each cross-referencing the CU list.
	arangesInfoRelocs := reloc.NewTable(src.Relocations(".debug_info"))
	arangesChecker := &tables.ArangesChecker{
		Src:        src,
		InfoRelocs: arangesInfoRelocs,
		Arena:      arena,
		Report:     report,
		Coverage:   &coverage.Set{},
		CUCoverage: rangesCUCoverage,
		Tolerant:   opts.GNU || opts.Tolerant,
	}
	if sec, ok := src.Section(".debug_aranges"); ok {
		ctx := reader.New(sec.Data, order)
		if cerr := arangesChecker.Check(ctx, cus); cerr != nil {
			bail(report, arena, ".debug_aranges", diag.CatAranges, cerr)
		}
		arangesInfoRelocs.SkipRest(arena.New(".debug_aranges", diag.FormatPlain), report)
	}
	arangesChecker.ComparePass(cus)

	pubSections := []struct {
		kind tables.PubKind
		name string
		cat  diag.Category
	}{
		{tables.PubNames, ".debug_pubnames", diag.CatPubnames},
		{tables.PubTypes, ".debug_pubtypes", diag.CatPubtypes},
	}
	for _, p := range pubSections {
		if sec, ok := src.Section(p.name); ok {
			pubInfoRelocs := reloc.NewTable(src.Relocations(".debug_info"))
			checker := &tables.PubChecker{
				Kind:       p.kind,
				Src:        src,
				InfoRelocs: pubInfoRelocs,
				Arena:      arena,
				Report:     report,
			}
			ctx := reader.New(sec.Data, order)
			if cerr := checker.Check(ctx, cus); cerr != nil {
				bail(report, arena, p.name, p.cat, cerr)
			}
			pubInfoRelocs.SkipRest(arena.New(p.name, diag.FormatPlain), report)
		}
	}

	// The line checker's final cross-check (every CU's DW_AT_stmt_list
	// must name a real line program) runs over cus even when the section
	// itself is absent or empty, so it is always invoked.
	var lineData []byte
	if sec, ok := src.Section(".debug_line"); ok {
		lineData = sec.Data
	}
	lineRelocs := reloc.NewTable(src.Relocations(".debug_line"))
	lineChecker := &tables.LineChecker{
		Src:        src,
		LineRelocs: lineRelocs,
		Arena:      arena,
		Report:     report,
	}
	if lerr := lineChecker.Check(reader.New(lineData, order), cus); lerr != nil {
		bail(report, arena, ".debug_line", diag.CatLine, lerr)
	}
	lineRelocs.SkipRest(arena.New(".debug_line", diag.FormatPlain), report)

	// C10: cross-check the address coverage C7/C9 accumulated against the
	// object's own section table, and the string coverage C7 accumulated
	// against .debug_str's own extent.
	allowOverlap := opts.GNU || opts.Tolerant
	covMap := covmap.New(src.Sections(), uint64(addrSize), arena, report)
	where := arena.New(".debug_info", diag.FormatPlain)
	globalCov.FindRanges(func(start, end uint64) {
		covMap.Add(start, end-start, where, diag.CatInfo, allowOverlap)
	})
	arangesWhere := arena.New(".debug_aranges", diag.FormatPlain)
	arangesChecker.Coverage.FindRanges(func(start, end uint64) {
		covMap.Add(start, end-start, arangesWhere, diag.CatAranges, allowOverlap)
	})
	covMap.FindHoles()

	if strSec, ok := src.Section(".debug_str"); ok {
		strWhere := arena.New(".debug_str", diag.FormatPlain)
		strCov.FindHoles(0, uint64(len(strSec.Data)), func(start, end uint64) {
			report(diag.Newf(diag.CatStrings|diag.CatBloat|diag.CatImpact4, strWhere,
				"range [%#x,%#x) is never referenced by DW_FORM_strp", start, end))
		})
	}

	return &Report{
		Arena:         arena,
		Messages:      messages,
		WarnCriterion: warnCrit,
		ErrCriterion:  errCrit,
		ref:           opts.Ref,
	}
}
