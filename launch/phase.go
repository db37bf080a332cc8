// Package launch holds the pure domain rules of the launchpad: sales phase
// resolution, the launch status state machine, and purchase eligibility.
// Nothing here performs I/O or reads a clock; callers supply every input,
// which keeps the rules deterministic and directly testable.
package launch

import (
	"fmt"
	"math/big"
	"strings"
)

// Phase identifies a sales phase within an active launch.
type Phase uint8

const (
	PhaseNone Phase = iota
	PhasePresale
	PhaseWhitelist
	PhasePublic
)

// phasePriority is the fixed resolution order when phase windows overlap.
// Earliest in this list wins; this is a policy decision, not a time-based
// tie-break.
var phasePriority = []Phase{PhasePresale, PhaseWhitelist, PhasePublic}

func (p Phase) String() string {
	switch p {
	case PhasePresale:
		return "presale"
	case PhaseWhitelist:
		return "whitelist"
	case PhasePublic:
		return "public"
	default:
		return "none"
	}
}

// ParsePhase converts a stored phase name back to a Phase.
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(s) {
	case "presale":
		return PhasePresale, nil
	case "whitelist":
		return PhaseWhitelist, nil
	case "public":
		return PhasePublic, nil
	case "none", "":
		return PhaseNone, nil
	default:
		return PhaseNone, fmt.Errorf("unknown phase %q", s)
	}
}

// Gated reports whether the phase consults the whitelist.
func (p Phase) Gated() bool {
	return p == PhasePresale || p == PhaseWhitelist
}

// PhaseConfiguration is the decoded, strongly-typed configuration of one
// (launch, phase) pair. Ledger return tuples are decoded into this struct at
// the client boundary; positional access never reaches the rules below.
type PhaseConfiguration struct {
	Price        *big.Int
	StartTime    int64 // unix seconds, inclusive
	EndTime      int64 // unix seconds, inclusive
	MaxPerWallet uint64
	MaxSupply    uint64
	TotalSold    uint64
	Configured   bool
}

// live reports whether the configuration is active at now. A zero or nil
// price is treated as not-yet-active: uninitialized on-chain storage decodes
// to zero values, and a zero-priced "phase" is indistinguishable from one
// that was never set up.
func (c PhaseConfiguration) live(now int64) bool {
	if !c.Configured {
		return false
	}
	if c.Price == nil || c.Price.Sign() <= 0 {
		return false
	}
	return c.StartTime <= now && now <= c.EndTime
}

// ActivePhase resolves which phase, if any, is selling at now. Candidates
// are checked in presale, whitelist, public order and the first live one
// wins regardless of window start times.
func ActivePhase(configs map[Phase]PhaseConfiguration, now int64) (Phase, bool) {
	for _, p := range phasePriority {
		if cfg, ok := configs[p]; ok && cfg.live(now) {
			return p, true
		}
	}
	return PhaseNone, false
}
