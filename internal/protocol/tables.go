package protocol

import (
	"errors"
	"fmt"

	"github.com/salud-digital/anthro/internal/assessment"
)

// FeedType selects the F-75 dose tables during inpatient treatment
type FeedType string

const (
	FeedModerate           FeedType = "moderate"
	FeedSevereWithoutEdema FeedType = "severe_without_edema"
	FeedSevereWithEdema    FeedType = "severe_with_edema"
)

// FeedTypeFor selects the stabilization feed type from the classification
// and edema status. Only moderate and severe malnutrition have a dosed
// F-75 regimen; for other classifications ok is false.
func FeedTypeFor(c assessment.Classification, edemaPresent bool) (FeedType, bool) {
	switch c {
	case assessment.ClassificationModerate:
		return FeedModerate, true
	case assessment.ClassificationSevere:
		if edemaPresent {
			return FeedSevereWithEdema, true
		}
		return FeedSevereWithoutEdema, true
	default:
		return "", false
	}
}

// Stabilization-phase F-75 volumes in ml/kg per feed: day 1 and day 2.
// Feeds are given every 3 hours, 8 feeds per day.
var stabilizationMlPerKg = map[FeedType][2]float64{
	FeedModerate:           {10, 14},
	FeedSevereWithoutEdema: {7, 10},
	FeedSevereWithEdema:    {4, 7},
}

// Transition-phase F-75 progression steps in ml/kg per feed. The first
// step is the day-3 target; volumes are recalculated daily from the
// day's current weight.
var transitionMlPerKg = map[FeedType][]float64{
	FeedModerate:           {20, 25},
	FeedSevereWithoutEdema: {13, 16, 19},
	FeedSevereWithEdema:    {10, 13, 16, 19},
}

// rutfStage is one row of the therapeutic ready-to-use-food day-range
// table. Day ranges are inclusive on both ends and form a closed
// partition of the treatment course.
type rutfStage struct {
	FromDay       int
	ToDay         int
	KcalPerKgDay  float64
	KcalPerSachet float64
}

var rutfStages = map[assessment.Classification][]rutfStage{
	assessment.ClassificationModerate: {
		{1, 7, 150, 500},
		{8, 23, 200, 500},
		{24, 39, 200, 500},
		{40, 70, 200, 500},
	},
	assessment.ClassificationSevere: {
		{1, 3, 80, 500},
		{4, 7, 100, 500},
		{8, 14, 135, 500},
		{15, 30, 150, 500},
		{31, 60, 200, 500},
	},
}

// ErrDayOutOfRange is returned when a treatment day falls outside every
// tabulated range. Days beyond the last range are reported, never
// clamped.
var ErrDayOutOfRange = errors.New("treatment day outside tabulated ranges")

// rutfStageForDay resolves the stage for a treatment day. severity must
// be moderate or severe.
func rutfStageForDay(severity assessment.Classification, day int) (rutfStage, error) {
	stages, ok := rutfStages[severity]
	if !ok {
		return rutfStage{}, fmt.Errorf("no therapeutic-food table for classification %q", severity)
	}
	for _, st := range stages {
		if day >= st.FromDay && day <= st.ToDay {
			return st, nil
		}
	}
	return rutfStage{}, fmt.Errorf("%w: day %d (%s)", ErrDayOutOfRange, day, severity)
}

// rutfSeverity maps a feed type to the severity keying the
// therapeutic-food table.
func rutfSeverity(ft FeedType) assessment.Classification {
	if ft == FeedModerate {
		return assessment.ClassificationModerate
	}
	return assessment.ClassificationSevere
}
