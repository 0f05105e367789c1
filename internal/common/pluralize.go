// Package common: pluralize.go has the signed variant of the points formatter.
package common

import "fmt"

// FormatPointsAmount renders "+100 puntos" or "-50 puntos".
//
// Examples:
//
//	FormatPointsAmount(100) → "+100 puntos"
//	FormatPointsAmount(1)   → "+1 punto"
func FormatPointsAmount(amount int64) string {
	if amount >= 0 {
		return fmt.Sprintf("+%d %s", amount, PluralizePoints(amount))
	}
	return fmt.Sprintf("%d %s", amount, PluralizePoints(amount))
}
