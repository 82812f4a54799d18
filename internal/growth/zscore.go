package growth

import (
	"errors"
	"math"
	"time"
)

// ErrMeasurementBeforeBirth is returned by AgeInDays when the measurement
// date precedes the birth date. This invalidates the whole evaluation.
var ErrMeasurementBeforeBirth = errors.New("measurement date precedes birth date")

// MeasureMode records how length/height was taken
type MeasureMode string

const (
	MeasureRecumbent MeasureMode = "recumbent"
	MeasureStanding  MeasureMode = "standing"
)

// Valid reports whether the mode is one of the two known conventions
func (m MeasureMode) Valid() bool {
	return m == MeasureRecumbent || m == MeasureStanding
}

// Measurement is a single patient snapshot. Optional fields are nil when
// not taken; a nil field propagates as "not computed", never as zero.
type Measurement struct {
	Sex            Sex         `json:"sex"`
	AgeInDays      int         `json:"age_in_days"`
	WeightKg       *float64    `json:"weight_kg,omitempty"`
	LengthHeightCm *float64    `json:"length_height_cm,omitempty"`
	MeasureMode    MeasureMode `json:"measure_mode"`
	HeadCircCm     *float64    `json:"head_circ_cm,omitempty"`
}

// Flag marks a z-score outside physiologic plausibility bounds. The value
// is still reported; the flag is advisory, prompting re-measurement.
type Flag string

const (
	FlagNone    Flag = ""
	FlagTooLow  Flag = "too-low"
	FlagTooHigh Flag = "too-high"
)

// Score is one indicator's result. A nil Value means the score could not
// be derived from the available data (missing measurement, index outside
// the table, out-of-domain value); a nil value is not an error.
type Score struct {
	Value *float64 `json:"value"`
	Flag  Flag     `json:"flag,omitempty"`
}

// Scores holds every derived indicator for one measurement
type Scores struct {
	WeightForAge          Score    `json:"weight_for_age"`
	LengthHeightForAge    Score    `json:"length_height_for_age"`
	WeightForLengthHeight Score    `json:"weight_for_length_height"`
	BMIForAge             Score    `json:"bmi_for_age"`
	HeadCircForAge        Score    `json:"head_circ_for_age"`
	BMI                   *float64 `json:"bmi,omitempty"`
}

// Physiologic plausibility bounds per indicator. Scores outside these are
// flagged for re-measurement but never suppressed.
var plausibilityBounds = map[Indicator][2]float64{
	IndicatorWeightForAge:       {-6, 5},
	IndicatorLengthHeightForAge: {-6, 6},
	IndicatorWeightForLength:    {-5, 5},
	IndicatorWeightForHeight:    {-5, 5},
	IndicatorBMIForAge:          {-5, 5},
	IndicatorHeadCircForAge:     {-5, 5},
}

// Domain plausibility bounds for the weight-for-length/height indicators,
// independent of table coverage.
const (
	minRecumbentCm = 45
	maxRecumbentCm = 110
	minStandingCm  = 65
	maxStandingCm  = 120
)

// Length and height conventions differ by ~0.7 cm on average. Children
// under two years are referenced recumbent, two and over standing; a
// measurement taken in the other convention is corrected before lookup.
const (
	standingAgeDays    = 730
	lengthHeightDiffCm = 0.7
)

// ZScore applies the LMS (Box-Cox) transform. The result is non-finite
// when x <= 0 or M == 0; callers must treat non-finite values as
// "not computed".
func ZScore(x, l, m, s float64) float64 {
	if l != 0 {
		return (math.Pow(x/m, l) - 1) / (l * s)
	}
	return math.Log(x/m) / s
}

// AgeInDays computes whole days between birth and measurement at UTC
// midnight granularity, avoiding timezone and DST drift.
func AgeInDays(birth, measured time.Time) (int, error) {
	diff := utcMidnight(measured).Sub(utcMidnight(birth))
	if diff < 0 {
		return 0, ErrMeasurementBeforeBirth
	}
	return int(math.Floor(diff.Hours() / 24)), nil
}

func utcMidnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// BMI derives body mass index from weight and length/height. Returns nil
// when either measurement is missing.
func BMI(weightKg, lengthHeightCm *float64) *float64 {
	if weightKg == nil || lengthHeightCm == nil || *lengthHeightCm == 0 {
		return nil
	}
	hM := *lengthHeightCm / 100
	bmi := *weightKg / (hM * hM)
	return &bmi
}

// Scores derives every indicator's z-score for one measurement. Missing
// data resolves to nil on the specific indicator; sibling indicators are
// computed independently.
func (s *Store) Scores(m Measurement) Scores {
	bmi := BMI(m.WeightKg, m.LengthHeightCm)

	res := Scores{
		BMI:                   bmi,
		WeightForAge:          s.ageBased(IndicatorWeightForAge, m.Sex, m.AgeInDays, m.WeightKg),
		HeadCircForAge:        s.ageBased(IndicatorHeadCircForAge, m.Sex, m.AgeInDays, m.HeadCircCm),
		BMIForAge:             s.ageBased(IndicatorBMIForAge, m.Sex, m.AgeInDays, bmi),
		LengthHeightForAge:    s.lengthHeightForAge(m),
		WeightForLengthHeight: s.weightForLengthHeight(m),
	}

	return res
}

// ageBased computes a z-score for an indicator indexed by age in days
func (s *Store) ageBased(ind Indicator, sex Sex, ageInDays int, value *float64) Score {
	if value == nil {
		return Score{}
	}
	t, ok := s.Table(ind, sex)
	if !ok {
		return Score{}
	}
	lms, ok := Interpolate(t, float64(ageInDays))
	if !ok {
		return Score{}
	}
	return finish(ind, *value, ZScore(*value, lms.L, lms.M, lms.S))
}

// lengthHeightForAge applies the measure-mode correction before lookup
func (s *Store) lengthHeightForAge(m Measurement) Score {
	if m.LengthHeightCm == nil {
		return Score{}
	}

	lh := *m.LengthHeightCm
	if m.AgeInDays < standingAgeDays && m.MeasureMode == MeasureStanding {
		lh += lengthHeightDiffCm
	} else if m.AgeInDays >= standingAgeDays && m.MeasureMode == MeasureRecumbent {
		lh -= lengthHeightDiffCm
	}

	t, ok := s.Table(IndicatorLengthHeightForAge, m.Sex)
	if !ok {
		return Score{}
	}
	lms, ok := Interpolate(t, float64(m.AgeInDays))
	if !ok {
		return Score{}
	}
	return finish(IndicatorLengthHeightForAge, lh, ZScore(lh, lms.L, lms.M, lms.S))
}

// weightForLengthHeight selects the wfl or wfh indicator by measure mode.
// Outside the per-mode domain bounds the score is nil regardless of table
// coverage.
func (s *Store) weightForLengthHeight(m Measurement) Score {
	if m.LengthHeightCm == nil || m.WeightKg == nil {
		return Score{}
	}

	lh := *m.LengthHeightCm
	var ind Indicator
	if m.MeasureMode == MeasureRecumbent {
		if lh < minRecumbentCm || lh > maxRecumbentCm {
			return Score{}
		}
		ind = IndicatorWeightForLength
	} else {
		if lh < minStandingCm || lh > maxStandingCm {
			return Score{}
		}
		ind = IndicatorWeightForHeight
	}

	t, ok := s.Table(ind, m.Sex)
	if !ok {
		return Score{}
	}
	lms, ok := Interpolate(t, lh)
	if !ok {
		return Score{}
	}
	return finish(ind, *m.WeightKg, ZScore(*m.WeightKg, lms.L, lms.M, lms.S))
}

// finish maps non-positive measurements and non-finite results to
// "not computed" and attaches the plausibility flag. A non-positive x
// can still yield a finite z when L is near 1, so the input is checked
// alongside the result.
func finish(ind Indicator, x, z float64) Score {
	if x <= 0 || math.IsNaN(z) || math.IsInf(z, 0) {
		return Score{}
	}

	sc := Score{Value: &z}
	if bounds, ok := plausibilityBounds[ind]; ok {
		if z < bounds[0] {
			sc.Flag = FlagTooLow
		} else if z > bounds[1] {
			sc.Flag = FlagTooHigh
		}
	}
	return sc
}
