package preregistrations

import "math"

// Cost is the shipping price for a weight in kilograms.
func Cost(weight float64) float64 {
	switch {
	case weight <= 1:
		return 15
	case weight <= 3:
		return 25
	case weight <= 5:
		return 35
	case weight <= 10:
		return 50
	}
	return 50 + math.Ceil(weight-10)*5
}
