package enums

import "fmt"

// AgentTier is the commission tier assigned to a sales agent by the profile
// service. The tier decides the commission rate applied to fulfilled orders.
type AgentTier string

const (
	AgentTierBronze   AgentTier = "bronze"
	AgentTierSilver   AgentTier = "silver"
	AgentTierGold     AgentTier = "gold"
	AgentTierPlatinum AgentTier = "platinum"
)

var validAgentTiers = []AgentTier{
	AgentTierBronze,
	AgentTierSilver,
	AgentTierGold,
	AgentTierPlatinum,
}

// String implements fmt.Stringer.
func (a AgentTier) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AgentTier.
func (a AgentTier) IsValid() bool {
	for _, candidate := range validAgentTiers {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAgentTier converts raw input into an AgentTier.
func ParseAgentTier(value string) (AgentTier, error) {
	for _, candidate := range validAgentTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid agent tier %q", value)
}
