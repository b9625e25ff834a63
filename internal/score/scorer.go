package score

// Classification bands for completeness scores
const (
	ClassHigh   = "high"
	ClassMedium = "medium"
	ClassLow    = "low"
)

// Classify buckets a completeness score
func Classify(score int) string {
	if score >= 80 {
		return ClassHigh
	} else if score >= 60 {
		return ClassMedium
	}
	return ClassLow
}
