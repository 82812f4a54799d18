// Package evaluation orchestrates a complete patient evaluation: growth
// z-scores, malnutrition classification, dehydration scoring and the
// treatment protocol. Each evaluation is one independent, stateless call;
// nothing is persisted between requests.
package evaluation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/salud-digital/anthro/internal/assessment"
	"github.com/salud-digital/anthro/internal/growth"
	"github.com/salud-digital/anthro/internal/protocol"
	"github.com/salud-digital/anthro/internal/render"
	apperrors "github.com/salud-digital/anthro/internal/shared/errors"
	"github.com/salud-digital/anthro/internal/shared/metrics"
	"github.com/salud-digital/anthro/internal/shared/types"
)

// Request is one patient evaluation. Age is given either directly in days
// or as a birth/measurement date pair; dates are reduced to whole days at
// UTC midnight.
type Request struct {
	PatientID types.ID `json:"patient_id,omitempty"`

	Sex             growth.Sex `json:"sex"`
	AgeInDays       *int       `json:"age_in_days,omitempty"`
	BirthDate       *time.Time `json:"birth_date,omitempty"`
	MeasurementDate *time.Time `json:"measurement_date,omitempty"`

	WeightKg       *float64           `json:"weight_kg,omitempty"`
	LengthHeightCm *float64           `json:"length_height_cm,omitempty"`
	MeasureMode    growth.MeasureMode `json:"measure_mode"`
	HeadCircCm     *float64           `json:"head_circ_cm,omitempty"`
	MUACCm         *float64           `json:"muac_cm,omitempty"`

	EdemaPresent       bool                       `json:"edema_present"`
	Complications      []protocol.Complication    `json:"complications,omitempty"`
	AppetiteTestPassed *bool                      `json:"appetite_test_passed,omitempty"`
	DehydrationSigns   []assessment.SignSelection `json:"dehydration_signs,omitempty"`
	GlucoseMgDl        *float64                   `json:"glucose_mg_dl,omitempty"`
	TreatmentDay       int                        `json:"treatment_day,omitempty"`
}

// Result is the full evaluation outcome. Plan and Note are nil/empty when
// no management plan applies.
type Result struct {
	EvaluationID types.ID `json:"evaluation_id"`
	PatientID    types.ID `json:"patient_id,omitempty"`
	AgeInDays    int      `json:"age_in_days"`

	Scores         growth.Scores                     `json:"scores"`
	Classification assessment.ClassificationResult   `json:"classification"`
	Dehydration    *assessment.DehydrationAssessment `json:"dehydration,omitempty"`
	Plan           *protocol.Plan                    `json:"plan,omitempty"`
	Note           string                            `json:"note,omitempty"`
}

// Service runs evaluations against a loaded reference store
type Service struct {
	store  *growth.Store
	logger *slog.Logger
}

func NewService(store *growth.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Evaluate runs one complete evaluation. Input errors come back as
// *apperrors.AppError with validation details; an evaluation that yields
// no plan is a success.
func (s *Service) Evaluate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	ageInDays, err := s.resolveAge(req)
	if err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	measurement := growth.Measurement{
		Sex:            req.Sex,
		AgeInDays:      ageInDays,
		WeightKg:       req.WeightKg,
		LengthHeightCm: req.LengthHeightCm,
		MeasureMode:    req.MeasureMode,
		HeadCircCm:     req.HeadCircCm,
	}
	scores := s.store.Scores(measurement)
	recordScores(scores)

	var dehydration *assessment.DehydrationAssessment
	if len(req.DehydrationSigns) > 0 {
		d, err := assessment.ScoreDehydration(req.DehydrationSigns)
		if err != nil {
			return nil, apperrors.Validation("invalid dehydration checklist", map[string]string{
				"dehydration_signs": err.Error(),
			})
		}
		dehydration = &d
		metrics.RecordDehydrationAssessment(string(d.Band))
	}

	classification := assessment.Classify(scores.WeightForLengthHeight.Value, req.EdemaPresent, req.MUACCm)

	plan, err := protocol.Compose(protocol.Input{
		Classification:     classification,
		WeightKg:           req.WeightKg,
		Complications:      req.Complications,
		AppetiteTestPassed: req.AppetiteTestPassed,
		Dehydration:        dehydration,
		GlucoseMgDl:        req.GlucoseMgDl,
		TreatmentDay:       req.TreatmentDay,
	})
	if err != nil {
		if errors.Is(err, protocol.ErrWeightRequired) || errors.Is(err, protocol.ErrDayOutOfRange) {
			return nil, apperrors.Validation("cannot compose treatment plan", map[string]string{
				"plan": err.Error(),
			})
		}
		return nil, apperrors.Internal(err)
	}

	res := &Result{
		EvaluationID:   types.NewID(),
		PatientID:      req.PatientID,
		AgeInDays:      ageInDays,
		Scores:         scores,
		Classification: classification,
		Dehydration:    dehydration,
		Plan:           plan,
	}
	if plan != nil {
		res.Note = render.Admission(render.AdmissionInput{
			Classification: classification,
			Plan:           plan,
			Dehydration:    dehydration,
			Complications:  req.Complications,
			GlucoseMgDl:    req.GlucoseMgDl,
			WeightKg:       req.WeightKg,
		})
	}

	disposition := ""
	if plan != nil {
		disposition = string(plan.Disposition)
	}
	metrics.RecordEvaluation(string(classification.Category), disposition, time.Since(start))
	s.logger.InfoContext(ctx, "evaluation completed",
		"evaluation_id", res.EvaluationID,
		"age_in_days", ageInDays,
		"classification", classification.Category,
		"disposition", disposition,
	)

	return res, nil
}

func (s *Service) resolveAge(req Request) (int, error) {
	if req.AgeInDays != nil {
		if *req.AgeInDays < 0 {
			return 0, apperrors.Validation("invalid age", map[string]string{
				"age_in_days": "must not be negative",
			})
		}
		return *req.AgeInDays, nil
	}

	if req.BirthDate == nil || req.MeasurementDate == nil {
		return 0, apperrors.Validation("missing age", map[string]string{
			"age_in_days": "provide age_in_days or both birth_date and measurement_date",
		})
	}

	age, err := growth.AgeInDays(*req.BirthDate, *req.MeasurementDate)
	if err != nil {
		return 0, apperrors.Validation("invalid dates", map[string]string{
			"measurement_date": err.Error(),
		})
	}
	return age, nil
}

func validate(req Request) error {
	details := map[string]string{}

	if !req.Sex.Valid() {
		details["sex"] = "must be male or female"
	}
	if !req.MeasureMode.Valid() {
		details["measure_mode"] = "must be recumbent or standing"
	}
	if req.WeightKg != nil && *req.WeightKg <= 0 {
		details["weight_kg"] = "must be positive"
	}
	if req.LengthHeightCm != nil && *req.LengthHeightCm <= 0 {
		details["length_height_cm"] = "must be positive"
	}
	if req.HeadCircCm != nil && *req.HeadCircCm <= 0 {
		details["head_circ_cm"] = "must be positive"
	}
	if req.MUACCm != nil && *req.MUACCm <= 0 {
		details["muac_cm"] = "must be positive"
	}
	if req.TreatmentDay < 0 {
		details["treatment_day"] = "must not be negative"
	}
	for _, c := range req.Complications {
		if !validComplication(c) {
			details["complications"] = "unknown complication " + string(c)
		}
	}

	if len(details) > 0 {
		return apperrors.Validation("invalid evaluation request", details)
	}
	return nil
}

var knownComplications = map[protocol.Complication]bool{
	protocol.ComplicationDiarrheaVomiting:     true,
	protocol.ComplicationAlteredConsciousness: true,
	protocol.ComplicationConvulsions:          true,
	protocol.ComplicationHypothermia:          true,
	protocol.ComplicationRespiratoryDistress:  true,
	protocol.ComplicationSevereAnemia:         true,
	protocol.ComplicationShock:                true,
}

func validComplication(c protocol.Complication) bool {
	return knownComplications[c]
}

func recordScores(sc growth.Scores) {
	record := func(ind growth.Indicator, s growth.Score) {
		if s.Value != nil {
			metrics.RecordZScore(string(ind), string(s.Flag))
		}
	}
	record(growth.IndicatorWeightForAge, sc.WeightForAge)
	record(growth.IndicatorLengthHeightForAge, sc.LengthHeightForAge)
	record(growth.IndicatorBMIForAge, sc.BMIForAge)
	record(growth.IndicatorHeadCircForAge, sc.HeadCircForAge)
	if sc.WeightForLengthHeight.Value != nil {
		metrics.RecordZScore("wflh", string(sc.WeightForLengthHeight.Flag))
	}
}

// FollowUp prescribes the inpatient feed for one treatment day and renders
// the evolution note.
func (s *Service) FollowUp(ctx context.Context, weightKg float64, ft protocol.FeedType, day int) (protocol.FollowUpPlan, string, error) {
	plan, err := protocol.FollowUp(weightKg, ft, day)
	if err != nil {
		return protocol.FollowUpPlan{}, "", apperrors.Validation("cannot compose follow-up plan", map[string]string{
			"followup": err.Error(),
		})
	}
	metrics.RecordFollowUpPlan()
	s.logger.InfoContext(ctx, "follow-up plan generated", "day", day, "feed_type", ft)
	return plan, render.FollowUpNote(weightKg, plan), nil
}

// Discharge prescribes the take-home ration and renders the discharge note
func (s *Service) Discharge(ctx context.Context, weightKg float64, ft protocol.FeedType) (protocol.DischargePlan, string, error) {
	plan, err := protocol.Discharge(weightKg, ft)
	if err != nil {
		return protocol.DischargePlan{}, "", apperrors.Validation("cannot compose discharge plan", map[string]string{
			"discharge": err.Error(),
		})
	}
	metrics.RecordDischargePlan()
	s.logger.InfoContext(ctx, "discharge plan generated", "feed_type", ft)
	return plan, render.DischargeNote(weightKg, ft, plan), nil
}
