package enums

import (
	"fmt"
	"strings"
)

// Material is the metal a catalog product is made of.
type Material string

const (
	MaterialGold   Material = "gold"
	MaterialSilver Material = "silver"
)

var validMaterials = []Material{MaterialGold, MaterialSilver}

func (m Material) String() string {
	return string(m)
}

func (m Material) IsValid() bool {
	for _, candidate := range validMaterials {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMaterial is case-insensitive since materials arrive from URL paths.
func ParseMaterial(value string) (Material, error) {
	normalized := Material(strings.ToLower(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid material %q", value)
}
