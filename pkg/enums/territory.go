package enums

import "fmt"

// Territory identifies one of the Caribbean markets the storefront serves.
type Territory string

const (
	TerritoryJamaica  Territory = "jm"
	TerritoryTrinidad Territory = "tt"
	TerritoryBarbados Territory = "bb"
	TerritoryBahamas  Territory = "bs"
	TerritoryStLucia  Territory = "lc"
)

var validTerritories = []Territory{
	TerritoryJamaica,
	TerritoryTrinidad,
	TerritoryBarbados,
	TerritoryBahamas,
	TerritoryStLucia,
}

// String implements fmt.Stringer.
func (t Territory) String() string {
	return string(t)
}

// IsValid reports whether the value is a known Territory.
func (t Territory) IsValid() bool {
	for _, candidate := range validTerritories {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTerritory converts raw input into a Territory.
func ParseTerritory(value string) (Territory, error) {
	for _, candidate := range validTerritories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid territory %q", value)
}
