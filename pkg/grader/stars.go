package grader

// CalculateStars converts a test pass rate and style score into a 0-3 rating.
// Any failing test means zero stars regardless of style.
func CalculateStars(testPassRate, styleScore float64) int {
	switch {
	case testPassRate < 1.0:
		return 0
	case styleScore >= 8.0:
		return 3
	case styleScore >= 6.0:
		return 2
	default:
		return 1
	}
}
