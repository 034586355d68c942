// Package average holds the grade aggregation rules: rubric averages, bimester finals, annual averages
// and the report-card conversions derived from them.
//
// A nil *float64 always means "no value yet". Zero is a valid grade and is never treated as missing.
package average

import "math"

// roundingTolerance absorbs binary representation error on scaled values (e.g. 1.005*100 = 100.49999...).
const roundingTolerance = 1e-9

// Rubric is a weighted evaluation criterion. Percentage is out of 100.
type Rubric struct {
	ID         string  `json:"id" validate:"required,alphanum_"`
	Name       string  `json:"name" validate:"required"`
	Percentage float64 `json:"percentage" validate:"min=1,max=100"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Round2 rounds v half-up to 2 decimal places: multiply by 100, round, divide by 100.
func Round2(v float64) float64 {
	return roundHalfUp(v, 100)
}

// Round1 rounds v half-up to 1 decimal place.
func Round1(v float64) float64 {
	return roundHalfUp(v, 10)
}

func roundHalfUp(v, scale float64) float64 {
	scaled := v * scale
	if scaled >= 0 {
		return math.Floor(scaled+0.5+roundingTolerance) / scale
	}
	return -math.Floor(-scaled+0.5+roundingTolerance) / scale
}

// RubricAverage is the weighted average of the graded rubrics, rounded to 2 decimals.
// Rubrics without a score are excluded from both the weighted sum and the total weight.
// It returns nil when no rubric has a score.
func RubricAverage(rubrics []Rubric, scores map[string]*float64) *float64 {
	var weighted, weight float64
	for _, r := range rubrics {
		score, ok := scores[r.ID]
		if !ok || score == nil {
			continue
		}
		weighted += *score * (r.Percentage / 100)
		weight += r.Percentage
	}
	if weight == 0 {
		return nil
	}
	return Float(Round2(weighted / (weight / 100)))
}

// BimesterFinal is the mean of the monthly average and the bimester exam, rounded to 2 decimals.
// It returns nil unless both are present.
func BimesterFinal(monthly, exam *float64) *float64 {
	if monthly == nil || exam == nil {
		return nil
	}
	return Float(Round2((*monthly + *exam) / 2))
}

// AnnualAverage is the mean of every bimester final, rounded to 2 decimals.
// It returns nil when finals is empty or any final is missing: no partial credit.
func AnnualAverage(finals []*float64) *float64 {
	if len(finals) == 0 {
		return nil
	}
	var sum float64
	for _, f := range finals {
		if f == nil {
			return nil
		}
		sum += *f
	}
	return Float(Round2(sum / float64(len(finals))))
}

// GroupAverage is the mean of the present values of a subject group, rounded to 1 decimal.
// It returns nil when no value is present.
func GroupAverage(values []*float64) *float64 {
	var sum float64
	var n int
	for _, v := range values {
		if v == nil {
			continue
		}
		sum += *v
		n++
	}
	if n == 0 {
		return nil
	}
	return Float(Round1(sum / float64(n)))
}

// ReportCardGrade rounds v half-up to the integer printed on report cards: 14.5 -> 15, 14.4 -> 14.
func ReportCardGrade(v float64) int {
	return int(roundHalfUp(v, 1))
}

// Coverage is the rounded percentage of graded slots over expected slots; 0 when nothing is expected.
func Coverage(graded, expected int) int {
	if expected <= 0 {
		return 0
	}
	return int(math.Round(float64(graded) / float64(expected) * 100))
}

// MeanPercent is the rounded mean of percentages; 0 for an empty slice.
func MeanPercent(percents []int) int {
	if len(percents) == 0 {
		return 0
	}
	var sum int
	for _, p := range percents {
		sum += p
	}
	return int(math.Round(float64(sum) / float64(len(percents))))
}
