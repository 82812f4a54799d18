package protocol

import (
	"fmt"
	"math"
)

// F-75 preparation factors per ml of feed: measuring scoops of powder and
// ml of water.
const (
	scoopsPerMl = 0.0365
	waterPerMl  = 0.91
)

// FollowUpPlan is the daily inpatient follow-up prescription. Early in
// the course it is an F-75 feed with its preparation; once the child
// graduates the F-75 ladder it becomes a therapeutic-food ration.
type FollowUpPlan struct {
	Day      int      `json:"day"`
	FeedType FeedType `json:"feed_type"`

	// F-75 phase.
	VolumePerFeedMl int     `json:"volume_per_feed_ml,omitempty"`
	FeedsPerDay     int     `json:"feeds_per_day,omitempty"`
	ScoopsPerFeed   float64 `json:"scoops_per_feed,omitempty"`
	WaterPerFeedMl  float64 `json:"water_per_feed_ml,omitempty"`

	// Therapeutic-food phase.
	SachetsPerDay   float64 `json:"sachets_per_day,omitempty"`
	KcalPerKgPerDay float64 `json:"kcal_per_kg_per_day,omitempty"`
}

// FollowUp prescribes the feed for one inpatient treatment day. Volumes
// are recalculated from the day's current weight. Children with edema
// climb a longer F-75 ladder, so their switch to therapeutic food comes
// one day later.
func FollowUp(weightKg float64, ft FeedType, day int) (FollowUpPlan, error) {
	if weightKg <= 0 {
		return FollowUpPlan{}, ErrWeightRequired
	}
	if day < 1 {
		return FollowUpPlan{}, fmt.Errorf("treatment day must be >= 1, got %d", day)
	}
	stab, ok := stabilizationMlPerKg[ft]
	if !ok {
		return FollowUpPlan{}, fmt.Errorf("unknown feed type %q", ft)
	}

	rutfFromDay := 5
	if ft == FeedSevereWithEdema {
		rutfFromDay = 6
	}

	plan := FollowUpPlan{Day: day, FeedType: ft}

	if day < rutfFromDay {
		var mlPerKg float64
		switch {
		case day == 1:
			mlPerKg = stab[0]
		case day == 2:
			mlPerKg = stab[1]
		default:
			mlPerKg = transitionMlPerKg[ft][day-3]
		}
		vol := math.Round(weightKg * mlPerKg)
		plan.VolumePerFeedMl = int(vol)
		plan.FeedsPerDay = 8
		plan.ScoopsPerFeed = round1(vol * scoopsPerMl)
		plan.WaterPerFeedMl = round1(vol * waterPerMl)
		return plan, nil
	}

	stage, err := rutfStageForDay(rutfSeverity(ft), day)
	if err != nil {
		return FollowUpPlan{}, err
	}
	plan.SachetsPerDay = round1(weightKg * stage.KcalPerKgDay / stage.KcalPerSachet)
	plan.KcalPerKgPerDay = stage.KcalPerKgDay
	return plan, nil
}
