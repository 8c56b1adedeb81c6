package domain

import "fmt"

// Variant selects a broker's trading strategy. It is fixed at creation.
type Variant string

const (
	VariantAggressive Variant = "aggressive"
	VariantRiskAverse Variant = "risk_averse"
	VariantRandom     Variant = "random"
)

// ParseVariant accepts the canonical names plus the CamelCase spellings
// used in log output.
func ParseVariant(s string) (Variant, error) {
	switch s {
	case "aggressive", "Aggressive":
		return VariantAggressive, nil
	case "risk_averse", "RiskAverse", "risk-averse":
		return VariantRiskAverse, nil
	case "random", "Random":
		return VariantRandom, nil
	}
	return "", &ValidationError{Message: fmt.Sprintf("unknown strategy %q, must be one of: aggressive, risk_averse, random", s)}
}

func (v Variant) String() string {
	switch v {
	case VariantAggressive:
		return "Aggressive"
	case VariantRiskAverse:
		return "RiskAverse"
	case VariantRandom:
		return "Random"
	}
	return string(v)
}
