package domain

import "time"

const (
	// yearLength is the mean Julian year used for passport age.
	yearLength = time.Duration(365.25 * float64(24*time.Hour))

	highThreshold   = 12.0
	mediumThreshold = 6.0

	// conditionWeight scales the condition term of the score.
	conditionWeight = 3.0
)

// ComputeScore returns the survey urgency for an object:
//
//	(6 - technicalCondition) * 3 + ageInYears
//
// where ageInYears is the time since passportDate in Julian years. A zero
// passportDate (unknown) contributes no age. technicalCondition 0 means
// "unknown" and still yields a number.
//
// Missing data raises the score: an object with neither a condition nor a
// passport date scores 18 and classifies as LabelHigh, so it surfaces for
// survey instead of sinking to the bottom of the list.
//
// The condition term follows the registry's published formula: condition 1
// contributes 15 and condition 5 contributes 3.
func ComputeScore(technicalCondition int, passportDate time.Time) float64 {
	return computeScoreAt(clock.Now(), technicalCondition, passportDate)
}

func computeScoreAt(now time.Time, technicalCondition int, passportDate time.Time) float64 {
	score := float64(6-technicalCondition) * conditionWeight
	if !passportDate.IsZero() {
		score += float64(now.Sub(passportDate)) / float64(yearLength)
	}
	return score
}

// Classify maps a score to its label. Bucket lower bounds are inclusive.
func Classify(score float64) PriorityLabel {
	switch {
	case score >= highThreshold:
		return LabelHigh
	case score >= mediumThreshold:
		return LabelMedium
	default:
		return LabelLow
	}
}
