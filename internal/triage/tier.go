package triage

// Tier is the urgency classification for a reported symptom set.
// Tiers are ordered: GREEN < ORANGE < RED. Once a turn has been
// assigned a tier it is never demoted by a later check.
type Tier int

const (
	Green Tier = iota
	Orange
	Red
)

// String returns the wire/log representation of the tier.
func (t Tier) String() string {
	switch t {
	case Red:
		return "RED"
	case Orange:
		return "ORANGE"
	default:
		return "GREEN"
	}
}

// Max returns the more severe of two tiers. Used to promote, never demote.
func Max(a, b Tier) Tier {
	if a > b {
		return a
	}
	return b
}
