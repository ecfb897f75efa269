package enums

import (
	"fmt"
	"strings"
)

// BinCapacityLevel reports how full a community bin is.
type BinCapacityLevel string

const (
	BinCapacityLow    BinCapacityLevel = "LOW"
	BinCapacityMedium BinCapacityLevel = "MEDIUM"
	BinCapacityHigh   BinCapacityLevel = "HIGH"
	BinCapacityFull   BinCapacityLevel = "FULL"
)

var validBinCapacityLevels = []BinCapacityLevel{
	BinCapacityLow,
	BinCapacityMedium,
	BinCapacityHigh,
	BinCapacityFull,
}

func (b BinCapacityLevel) IsValid() bool {
	for _, candidate := range validBinCapacityLevels {
		if candidate == b {
			return true
		}
	}
	return false
}

func ParseBinCapacityLevel(value string) (BinCapacityLevel, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validBinCapacityLevels {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bin capacity level %q", value)
}
