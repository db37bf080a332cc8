package launch

import (
	"strings"

	"github.com/mintworks/launchpadd/errors"
)

// Status is the lifecycle state of a launch.
type Status uint8

const (
	StatusPending Status = iota
	StatusActive
	StatusCompleted
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ParseStatus converts a stored status name back to a Status.
func ParseStatus(v string) (Status, error) {
	switch strings.ToLower(v) {
	case "pending":
		return StatusPending, nil
	case "active":
		return StatusActive, nil
	case "completed":
		return StatusCompleted, nil
	case "cancelled":
		return StatusCancelled, nil
	default:
		return StatusPending, errors.Newf(errors.CodeInternal, "unknown launch status %q", v)
	}
}

// Terminal reports whether no further transitions are permitted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Launch is the in-memory view of a launch the state machine operates on.
type Launch struct {
	ID           uint64
	Collection   string
	Creator      string
	MaxSupply    uint64
	TotalMinted  uint64
	Status       Status
	AutoProgress bool
	CurrentPhase Phase
}

// Remaining returns the unminted capacity of the launch.
func (l *Launch) Remaining() uint64 {
	if l.TotalMinted >= l.MaxSupply {
		return 0
	}
	return l.MaxSupply - l.TotalMinted
}

// RequireCreator rejects any caller that is not the launch creator.
// Non-creator calls fail loudly rather than being silently ignored.
func (l *Launch) RequireCreator(caller string) error {
	if !strings.EqualFold(l.Creator, caller) {
		return errors.Newf(errors.CodeAuthorization,
			"caller %s is not the creator of launch %d", caller, l.ID)
	}
	return nil
}

// ValidateConfigurePhase checks a phase configuration request against the
// launch state. Configuration is permitted while the launch is pending or
// active; terminal launches are immutable.
func (l *Launch) ValidateConfigurePhase(phase Phase, cfg PhaseConfiguration) error {
	if l.Status.Terminal() {
		return errors.Newf(errors.CodeValidation,
			"launch %d is %s and cannot be reconfigured", l.ID, l.Status)
	}
	if phase == PhaseNone {
		return errors.New(errors.CodeValidation, "a concrete phase is required")
	}
	if cfg.StartTime >= cfg.EndTime {
		return errors.Newf(errors.CodeValidation,
			"phase start %d must be before end %d", cfg.StartTime, cfg.EndTime)
	}
	if cfg.Price == nil || cfg.Price.Sign() <= 0 {
		return errors.New(errors.CodeValidation, "phase price must be positive")
	}
	if cfg.MaxPerWallet == 0 {
		return errors.New(errors.CodeValidation, "per-wallet cap must be positive")
	}
	if cfg.MaxSupply == 0 {
		return errors.New(errors.CodeValidation, "phase supply cap must be positive")
	}
	if cfg.MaxSupply > l.Remaining() {
		return errors.Newf(errors.CodeValidation,
			"phase supply cap %d exceeds remaining launch capacity %d",
			cfg.MaxSupply, l.Remaining())
	}
	return nil
}

// ValidateStart checks the pending → active transition. The launch needs at
// least one configured phase whose window has begun, or, with auto-progress
// enabled, any configured phase that is still upcoming.
func (l *Launch) ValidateStart(configs map[Phase]PhaseConfiguration, now int64) error {
	if l.Status != StatusPending {
		return errors.Newf(errors.CodeValidation,
			"launch %d is %s; only pending launches can start", l.ID, l.Status)
	}

	for _, cfg := range configs {
		if !cfg.Configured {
			continue
		}
		if cfg.StartTime <= now && now <= cfg.EndTime {
			return nil
		}
		if l.AutoProgress && cfg.StartTime > now {
			return nil
		}
	}
	return errors.Newf(errors.CodeValidation,
		"launch %d has no configured phase ready to sell", l.ID)
}

// ValidateComplete checks the active → completed transition.
func (l *Launch) ValidateComplete() error {
	if l.Status != StatusActive {
		return errors.Newf(errors.CodeValidation,
			"launch %d is %s; only active launches can complete", l.ID, l.Status)
	}
	return nil
}

// ValidateCancel checks cancellation. Cancelled is terminal and reachable
// from any non-terminal state.
func (l *Launch) ValidateCancel() error {
	if l.Status.Terminal() {
		return errors.Newf(errors.CodeValidation,
			"launch %d is already %s", l.ID, l.Status)
	}
	return nil
}
