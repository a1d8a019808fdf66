package utils

import (
	"fmt"
	"math"
)

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatSize renders a byte count for display using base-1024 scaling and
// exactly two decimal places. Zero (and negative) counts render as "0 Bytes";
// anything past the gigabyte range stays expressed in GB.
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}

	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i < 0 {
		i = 0
	}
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}

	value := float64(bytes) / math.Pow(1024, float64(i))
	return fmt.Sprintf("%.2f %s", value, sizeUnits[i])
}
