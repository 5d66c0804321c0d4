package diag

import "fmt"

// Severity is the outcome of classifying a Message's Category against the
// process-scoped warning/error criteria (spec.md §7).
type Severity int

const (
	// Suppressed findings are accepted by neither criterion and are not
	// printed, though they still count for completeness checks in tests.
	Suppressed Severity = iota
	// Warning findings are accepted by the warning criterion but not the
	// error criterion.
	Warning
	// Error findings are accepted by the error criterion (this takes
	// priority: a category accepted by both counts as an Error).
	Error
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "suppressed"
	}
}

// Message is one structural finding: a category, the breadcrumb locating
// it, and the already-formatted human text. Severity is not stored on the
// Message — it is a function of the Category and the criteria in force for
// this run, computed by Classify.
type Message struct {
	Category Category
	Where    ID
	Text     string
}

// Newf builds a Message with an already-formatted sprintf-style message,
// mirroring how spec.md's diagnostic format embeds "<sprintf-message>" as
// the last element of the line.
func Newf(cat Category, where ID, format string, args ...any) Message {
	return Message{Category: cat, Where: where, Text: fmt.Sprintf(format, args...)}
}

// Classify decides a Message's Severity against the given warning and
// error criteria. Error takes precedence: spec.md §7 defines Error as
// "any diagnostic whose category satisfies the error criteria", independent
// of whether the warning criteria would also have accepted it.
func Classify(cat Category, warn, err Criterion) Severity {
	if err.Accept(cat) {
		return Error
	}
	if warn.Accept(cat) {
		return Warning
	}
	return Suppressed
}
