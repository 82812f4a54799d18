package protocol

import (
	"github.com/salud-digital/anthro/internal/assessment"
)

// Disposition is where the patient is managed
type Disposition string

const (
	DispositionHospital   Disposition = "hospital"
	DispositionAmbulatory Disposition = "ambulatory"
)

// Complication is one item of the complications checklist. Any active
// complication forces hospital management.
type Complication string

const (
	ComplicationDiarrheaVomiting     Complication = "diarrhea_vomiting"
	ComplicationAlteredConsciousness Complication = "altered_consciousness"
	ComplicationConvulsions          Complication = "convulsions"
	ComplicationHypothermia          Complication = "hypothermia"
	ComplicationRespiratoryDistress  Complication = "respiratory_distress"
	ComplicationSevereAnemia         Complication = "severe_anemia"
	ComplicationShock                Complication = "shock"
)

// Input gathers everything the protocol engine needs for one evaluation
type Input struct {
	Classification assessment.ClassificationResult `json:"classification"`
	WeightKg       *float64                        `json:"weight_kg"`
	Complications  []Complication                  `json:"complications,omitempty"`

	// AppetiteTestPassed is nil when the appetite test has not been done;
	// it gates ambulatory management of severe malnutrition.
	AppetiteTestPassed *bool `json:"appetite_test_passed,omitempty"`

	Dehydration *assessment.DehydrationAssessment `json:"dehydration,omitempty"`
	GlucoseMgDl *float64                          `json:"glucose_mg_dl,omitempty"`

	// TreatmentDay indexes the therapeutic-food day-range table for
	// ambulatory dosing; values below 1 default to day 1.
	TreatmentDay int `json:"treatment_day,omitempty"`
}

// HasComplication reports whether a specific complication is active
func (in Input) HasComplication(c Complication) bool {
	for _, have := range in.Complications {
		if have == c {
			return true
		}
	}
	return false
}

// FluidPlanKind selects the hydration sub-plan
type FluidPlanKind string

const (
	// FluidRapidBolus: Ringer's lactate 15 ml/kg over one hour, no
	// maintenance fluids, vital signs every 10 minutes.
	FluidRapidBolus FluidPlanKind = "rapid_bolus"
	// FluidOralRehydration: ORS dosed by malnutrition severity.
	FluidOralRehydration FluidPlanKind = "oral_rehydration"
	// FluidMonitoring: hydration-status monitoring only, nothing dosed.
	FluidMonitoring FluidPlanKind = "monitoring"
)

// FluidPlan is the hydration sub-plan. Maintenance IV fluids are never
// prescribed to malnourished children; only the fields relevant to Kind
// are populated.
type FluidPlan struct {
	Kind FluidPlanKind `json:"kind"`

	// Rapid bolus over one hour.
	BolusMl int `json:"bolus_ml,omitempty"`

	// Severe oral rehydration: potassium-supplemented ORS per hour,
	// for at most MaxHours.
	RateMlPerHour         int  `json:"rate_ml_per_hour,omitempty"`
	MaxHours              int  `json:"max_hours,omitempty"`
	PotassiumSupplemented bool `json:"potassium_supplemented,omitempty"`

	// Moderate oral rehydration: total ORS volume over 4-6 hours.
	TotalMl int `json:"total_ml,omitempty"`
}

// GlycemiaPlanKind selects the glycemia sub-plan
type GlycemiaPlanKind string

const (
	GlycemiaCorrection        GlycemiaPlanKind = "hypoglycemia_correction"
	GlycemiaRoutineMonitoring GlycemiaPlanKind = "routine_monitoring"
)

// Hypoglycemia threshold in mg/dL
const HypoglycemiaThresholdMgDl = 54

// GlycemiaPlan is the glucose-management sub-plan. Correction is a 10%
// dextrose bolus at 5 ml/kg; the re-check interval depends on the route.
type GlycemiaPlan struct {
	Kind        GlycemiaPlanKind `json:"kind"`
	GlucoseMgDl *float64         `json:"glucose_mg_dl,omitempty"`

	AlteredConsciousness  bool `json:"altered_consciousness,omitempty"`
	BolusMlPerKg          int  `json:"bolus_ml_per_kg,omitempty"`
	RecheckMinutesIV      int  `json:"recheck_minutes_iv,omitempty"`
	RecheckMinutesEnteral int  `json:"recheck_minutes_enteral,omitempty"`

	// After correction: F-75 at 3 ml/kg per feed every 30 minutes for
	// two hours.
	FollowOnFeedMlPerKg int `json:"follow_on_feed_ml_per_kg,omitempty"`

	// Routine monitoring interval.
	MonitorIntervalHours int `json:"monitor_interval_hours,omitempty"`
}

// DrugDose is one prescribed adjunct dose
type DrugDose struct {
	DoseMg    int    `json:"dose_mg"`
	Route     string `json:"route"`
	Frequency string `json:"frequency"`
}

// Plan is the complete treatment protocol for one evaluation. It is
// built fresh per evaluation and never cached across patients.
type Plan struct {
	Disposition    Disposition               `json:"disposition"`
	Classification assessment.Classification `json:"classification"`
	WeightKg       float64                   `json:"weight_kg"`

	// Hospital feeding (F-75). FeedType is empty when the classification
	// has no dosed regimen (hospitalization driven by complications
	// alone); the feeding fields are then zero.
	FeedType                     FeedType `json:"feed_type,omitempty"`
	StabilizationVolumePerFeedMl int      `json:"stabilization_volume_per_feed_ml,omitempty"`
	FeedsPerDay                  int      `json:"feeds_per_day,omitempty"`
	Day2MlPerKg                  float64  `json:"day2_ml_per_kg,omitempty"`
	Day3MlPerKg                  float64  `json:"day3_ml_per_kg,omitempty"`
	TransitionVolumesMl          []int    `json:"transition_volumes_ml,omitempty"`

	FluidPlan    *FluidPlan    `json:"fluid_plan,omitempty"`
	GlycemiaPlan *GlycemiaPlan `json:"glycemia_plan,omitempty"`

	DrugDoses map[string]DrugDose `json:"drug_doses,omitempty"`
	// Micronutrients that must NOT be started during acute
	// stabilization; they are introduced in a later phase.
	DeferredMicronutrients []string `json:"deferred_micronutrients,omitempty"`

	// Ambulatory therapeutic food (RUTF). Counseling is true when the
	// plan is generic nutritional counseling with no dosed feed.
	SachetsPerDay   float64 `json:"sachets_per_day,omitempty"`
	KcalPerKgPerDay float64 `json:"kcal_per_kg_per_day,omitempty"`
	KcalPerSachet   float64 `json:"kcal_per_sachet,omitempty"`
	Counseling      bool    `json:"counseling,omitempty"`
}
