// Package progress defines the narrow progress-reporting collaborator the
// pipeline consumes and a default implementation backed by periodic
// structured logging (there is no terminal progress-bar dependency
// anywhere in this module's library stack to ground a richer one against).
package progress

import (
	"github.com/grailbio/base/log"
)

// Reporter receives progress increments. A nil *Reporter (including one
// stored in a pairer.Progress interface value) is a valid no-op value,
// matching the spec's "optional progress counter".
type Reporter struct {
	label string
	total uint64
	done  uint64
	step  uint64 // logs once done crosses each multiple of step
}

// New returns a Reporter that logs label's progress at roughly 10% steps of
// total. If total is below 10 (so a tenth of it rounds to 0), it logs every
// 10000 increments instead.
func New(label string, total uint64) *Reporter {
	step := total / 10
	if step == 0 {
		step = 10000
	}
	return &Reporter{label: label, total: total, step: step}
}

// Inc records n more completed units of work, logging when a 10%-ish
// boundary is crossed.
func (r *Reporter) Inc(n int) {
	if r == nil {
		return
	}
	before := r.done / r.step
	r.done += uint64(n)
	after := r.done / r.step
	if after > before {
		if r.total > 0 {
			log.Debug.Printf("%s: %d/%d records", r.label, r.done, r.total)
		} else {
			log.Debug.Printf("%s: %d records", r.label, r.done)
		}
	}
}
