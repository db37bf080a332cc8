package launch

// RejectionReason identifies why a purchase pre-check failed. All reasons
// are expected, user-facing conditions, not faults.
type RejectionReason string

const (
	ReasonNone              RejectionReason = ""
	ReasonPhaseNotActive    RejectionReason = "phase_not_active"
	ReasonNotWhitelisted    RejectionReason = "not_whitelisted"
	ReasonWalletCapExceeded RejectionReason = "wallet_cap_exceeded"
	ReasonSupplyExhausted   RejectionReason = "supply_exhausted"
)

// EligibilityInput carries everything the eligibility rules need. The
// orchestrator resolves whitelist membership and prior purchases from the
// catalog before calling in; the rules themselves stay pure.
type EligibilityInput struct {
	Phase            Phase
	Config           PhaseConfiguration
	ActivePhase      Phase
	HasActivePhase   bool
	Whitelisted      bool
	AlreadyPurchased uint64
	Quantity         uint64
}

// CheckEligibility decides whether a participant may purchase the requested
// quantity in the given phase. The caps are enforced at exactly the limit:
// already + requested must not exceed the cap.
func CheckEligibility(in EligibilityInput) (bool, RejectionReason) {
	if !in.HasActivePhase || in.ActivePhase != in.Phase {
		return false, ReasonPhaseNotActive
	}
	if in.Phase.Gated() && !in.Whitelisted {
		return false, ReasonNotWhitelisted
	}
	if in.AlreadyPurchased+in.Quantity > in.Config.MaxPerWallet {
		return false, ReasonWalletCapExceeded
	}
	if in.Config.TotalSold+in.Quantity > in.Config.MaxSupply {
		return false, ReasonSupplyExhausted
	}
	return true, ReasonNone
}
