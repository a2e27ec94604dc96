package constants

// Quality is the four-tier summary of a confidence score.
type Quality string

// Stored verbatim in the quality_flag column.
const (
	QualityLow       Quality = "Low"
	QualityGood      Quality = "Good"
	QualityVeryGood  Quality = "Very Good"
	QualityExcellent Quality = "Excellent"
)
