package diag

import "fmt"

// Line renders one Message exactly as spec.md §6 specifies:
//
//	"<severity>: <section-name>[: <coord-name> <coord-value>]*[ (<ref-where>)][: <sprintf-message>]\n"
//
// showRefChain corresponds to the --ref CLI flag: when false, a Message's
// inner reference breadcrumb is omitted even if one is attached.
func (a *Arena) Line(m Message, sev Severity, showRefChain bool) string {
	where := a.Format(m.Where, showRefChain)
	if where == "" {
		return fmt.Sprintf("%s: %s\n", sev, m.Text)
	}
	return fmt.Sprintf("%s: %s: %s\n", sev, where, m.Text)
}
