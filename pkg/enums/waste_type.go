package enums

import (
	"fmt"
	"strings"
)

// WasteType tags what a household wants collected.
type WasteType string

const (
	WasteTypeMixed      WasteType = "MIXED"
	WasteTypeOrganic    WasteType = "ORGANIC"
	WasteTypePlastic    WasteType = "PLASTIC"
	WasteTypePaper      WasteType = "PAPER"
	WasteTypeGlass      WasteType = "GLASS"
	WasteTypeMetal      WasteType = "METAL"
	WasteTypeElectronic WasteType = "ELECTRONIC"
	WasteTypeBulky      WasteType = "BULKY"
)

// DefaultWasteType applies when a request omits the tag.
const DefaultWasteType = WasteTypeMixed

var validWasteTypes = []WasteType{
	WasteTypeMixed,
	WasteTypeOrganic,
	WasteTypePlastic,
	WasteTypePaper,
	WasteTypeGlass,
	WasteTypeMetal,
	WasteTypeElectronic,
	WasteTypeBulky,
}

func (w WasteType) IsValid() bool {
	for _, candidate := range validWasteTypes {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWasteType normalises casing; an empty value yields the default tag.
func ParseWasteType(value string) (WasteType, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	if normalized == "" {
		return DefaultWasteType, nil
	}
	for _, candidate := range validWasteTypes {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid waste type %q", value)
}
