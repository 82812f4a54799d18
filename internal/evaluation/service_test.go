package evaluation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/salud-digital/anthro/internal/assessment"
	"github.com/salud-digital/anthro/internal/growth"
	"github.com/salud-digital/anthro/internal/protocol"
	apperrors "github.com/salud-digital/anthro/internal/shared/errors"
)

func fptr(v float64) *float64 { return &v }
func bptr(v bool) *bool       { return &v }
func iptr(v int) *int         { return &v }

func testService(t *testing.T) *Service {
	t.Helper()
	store, err := growth.LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded() error = %v", err)
	}
	return NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// syntheticService pins the weight-for-length table so classification
// outcomes can be asserted exactly: L=1, M=10, S=0.1 makes
// z = (weight/10 - 1) / 0.1.
func syntheticService(t *testing.T) *Service {
	t.Helper()

	flat := func(lo, hi, l, m, s float64) growth.Table {
		return growth.Table{
			{Index: lo, L: l, M: m, S: s},
			{Index: hi, L: l, M: m, S: s},
		}
	}

	tables := map[growth.Indicator]map[growth.Sex]growth.Table{}
	for _, ind := range growth.Indicators {
		tables[ind] = map[growth.Sex]growth.Table{}
		for _, sex := range growth.Sexes {
			switch ind {
			case growth.IndicatorWeightForLength:
				tables[ind][sex] = flat(45, 110, 1, 10, 0.1)
			case growth.IndicatorWeightForHeight:
				tables[ind][sex] = flat(65, 120, 1, 10, 0.1)
			default:
				tables[ind][sex] = flat(0, 1856, 1, 10, 0.1)
			}
		}
	}
	store, err := growth.NewStore(tables)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestEvaluateSevereHospitalCourse(t *testing.T) {
	svc := syntheticService(t)

	// weight 6.5 at length 80: z = -3.5, severe.
	req := Request{
		Sex:                growth.SexMale,
		AgeInDays:          iptr(400),
		WeightKg:           fptr(6.5),
		LengthHeightCm:     fptr(80),
		MeasureMode:        growth.MeasureRecumbent,
		EdemaPresent:       true,
		Complications:      []protocol.Complication{protocol.ComplicationAlteredConsciousness},
		AppetiteTestPassed: bptr(false),
		GlucoseMgDl:        fptr(40),
	}

	res, err := svc.Evaluate(context.Background(), req)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if res.EvaluationID.IsZero() {
		t.Error("evaluation ID not assigned")
	}
	if res.Classification.Category != assessment.ClassificationSevere {
		t.Errorf("classification = %q, want severe", res.Classification.Category)
	}
	if res.Plan == nil {
		t.Fatal("expected a treatment plan")
	}
	if res.Plan.Disposition != protocol.DispositionHospital {
		t.Errorf("disposition = %q, want hospital", res.Plan.Disposition)
	}
	if res.Plan.FeedType != protocol.FeedSevereWithEdema {
		t.Errorf("feed type = %q, want severe with edema", res.Plan.FeedType)
	}
	if res.Note == "" || !strings.Contains(res.Note, "ANÁLISIS:") {
		t.Errorf("admission note missing or malformed: %q", res.Note)
	}
	if !strings.Contains(res.Note, "Desnutrición Aguda Severa") {
		t.Errorf("note missing diagnosis: %q", res.Note)
	}
}

func TestEvaluateModerateAmbulatory(t *testing.T) {
	svc := syntheticService(t)

	// weight 7.5 at length 80: z = -2.5, moderate.
	req := Request{
		Sex:            growth.SexFemale,
		AgeInDays:      iptr(300),
		WeightKg:       fptr(7.5),
		LengthHeightCm: fptr(80),
		MeasureMode:    growth.MeasureRecumbent,
	}

	res, err := svc.Evaluate(context.Background(), req)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if res.Classification.Category != assessment.ClassificationModerate {
		t.Errorf("classification = %q, want moderate", res.Classification.Category)
	}
	if res.Plan == nil || res.Plan.Disposition != protocol.DispositionAmbulatory {
		t.Fatalf("plan = %+v, want ambulatory", res.Plan)
	}
	if res.Plan.SachetsPerDay != 2.3 {
		// 7.5 * 150 / 500 = 2.25, rounded to one decimal.
		t.Errorf("sachets = %v, want 2.3", res.Plan.SachetsPerDay)
	}
}

func TestEvaluateNormalHasNoPlan(t *testing.T) {
	svc := syntheticService(t)

	req := Request{
		Sex:            growth.SexMale,
		AgeInDays:      iptr(300),
		WeightKg:       fptr(10),
		LengthHeightCm: fptr(80),
		MeasureMode:    growth.MeasureRecumbent,
	}

	res, err := svc.Evaluate(context.Background(), req)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if res.Classification.Category != assessment.ClassificationNormal {
		t.Errorf("classification = %q, want normal", res.Classification.Category)
	}
	if res.Plan != nil {
		t.Errorf("plan = %+v, want none", res.Plan)
	}
	if res.Note != "" {
		t.Errorf("note = %q, want empty", res.Note)
	}
}

func TestEvaluateMissingWeightIsIndeterminate(t *testing.T) {
	svc := syntheticService(t)

	req := Request{
		Sex:            growth.SexMale,
		AgeInDays:      iptr(300),
		LengthHeightCm: fptr(80),
		MeasureMode:    growth.MeasureRecumbent,
	}

	res, err := svc.Evaluate(context.Background(), req)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if res.Classification.Category != assessment.ClassificationIndeterminate {
		t.Errorf("classification = %q, want indeterminate", res.Classification.Category)
	}
	if res.Plan != nil {
		t.Errorf("plan = %+v, want none", res.Plan)
	}
}

func TestEvaluateAgeFromDates(t *testing.T) {
	svc := syntheticService(t)

	birth := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	measured := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	req := Request{
		Sex:             growth.SexFemale,
		BirthDate:       &birth,
		MeasurementDate: &measured,
		WeightKg:        fptr(10),
		MeasureMode:     growth.MeasureRecumbent,
	}

	res, err := svc.Evaluate(context.Background(), req)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if res.AgeInDays != 91 {
		t.Errorf("age = %d days, want 91", res.AgeInDays)
	}
}

func TestEvaluateValidationErrors(t *testing.T) {
	svc := syntheticService(t)

	wantValidation := func(t *testing.T, err error) {
		t.Helper()
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			t.Fatalf("error = %v, want *AppError", err)
		}
		if !errors.Is(appErr, apperrors.ErrValidation) {
			t.Errorf("error code = %q, want validation", appErr.Code)
		}
	}

	t.Run("measurement before birth", func(t *testing.T) {
		birth := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
		measured := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		_, err := svc.Evaluate(context.Background(), Request{
			Sex:             growth.SexMale,
			BirthDate:       &birth,
			MeasurementDate: &measured,
			MeasureMode:     growth.MeasureRecumbent,
		})
		wantValidation(t, err)
	})

	t.Run("negative age", func(t *testing.T) {
		_, err := svc.Evaluate(context.Background(), Request{
			Sex:         growth.SexMale,
			AgeInDays:   iptr(-1),
			MeasureMode: growth.MeasureRecumbent,
		})
		wantValidation(t, err)
	})

	t.Run("no age at all", func(t *testing.T) {
		_, err := svc.Evaluate(context.Background(), Request{
			Sex:         growth.SexMale,
			MeasureMode: growth.MeasureRecumbent,
		})
		wantValidation(t, err)
	})

	t.Run("invalid sex", func(t *testing.T) {
		_, err := svc.Evaluate(context.Background(), Request{
			Sex:         "other",
			AgeInDays:   iptr(100),
			MeasureMode: growth.MeasureRecumbent,
		})
		wantValidation(t, err)
	})

	t.Run("invalid measure mode", func(t *testing.T) {
		_, err := svc.Evaluate(context.Background(), Request{
			Sex:       growth.SexMale,
			AgeInDays: iptr(100),
		})
		wantValidation(t, err)
	})

	t.Run("non-positive weight", func(t *testing.T) {
		_, err := svc.Evaluate(context.Background(), Request{
			Sex:         growth.SexMale,
			AgeInDays:   iptr(100),
			WeightKg:    fptr(0),
			MeasureMode: growth.MeasureRecumbent,
		})
		wantValidation(t, err)
	})

	t.Run("unknown complication", func(t *testing.T) {
		_, err := svc.Evaluate(context.Background(), Request{
			Sex:           growth.SexMale,
			AgeInDays:     iptr(100),
			MeasureMode:   growth.MeasureRecumbent,
			Complications: []protocol.Complication{"sneezing"},
		})
		wantValidation(t, err)
	})

	t.Run("incomplete dehydration checklist", func(t *testing.T) {
		_, err := svc.Evaluate(context.Background(), Request{
			Sex:         growth.SexMale,
			AgeInDays:   iptr(100),
			MeasureMode: growth.MeasureRecumbent,
			DehydrationSigns: []assessment.SignSelection{
				{Category: assessment.SignAppearance, Value: 2},
			},
		})
		wantValidation(t, err)
	})
}

func TestEvaluateDehydrationFlowsIntoPlan(t *testing.T) {
	svc := syntheticService(t)

	// weight 6.5 at length 80: z = -3.5, severe; appetite failed so
	// hospital; the severe classification drives hourly potassium ORS.
	req := Request{
		Sex:                growth.SexMale,
		AgeInDays:          iptr(400),
		WeightKg:           fptr(6.5),
		LengthHeightCm:     fptr(80),
		MeasureMode:        growth.MeasureRecumbent,
		AppetiteTestPassed: bptr(false),
		DehydrationSigns: []assessment.SignSelection{
			{Category: assessment.SignAppearance, Value: 2, Description: "Letárgico"},
			{Category: assessment.SignRespiration, Value: 2, Description: "Profunda"},
			{Category: assessment.SignSkinPinch, Value: 2, Description: "Muy lentamente"},
			{Category: assessment.SignTears, Value: 0, Description: "Normales"},
		},
	}

	res, err := svc.Evaluate(context.Background(), req)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if res.Dehydration == nil || res.Dehydration.Band != assessment.DehydrationSevere {
		t.Fatalf("dehydration = %+v, want severe band", res.Dehydration)
	}
	if res.Plan == nil || res.Plan.FluidPlan == nil {
		t.Fatal("expected a fluid plan")
	}
	if res.Plan.FluidPlan.Kind != protocol.FluidOralRehydration || !res.Plan.FluidPlan.PotassiumSupplemented {
		t.Errorf("fluid plan = %+v, want potassium-supplemented ORS", res.Plan.FluidPlan)
	}
	if !strings.Contains(res.Note, "porque su apariencia general es letárgico") {
		t.Errorf("note missing dehydration narrative: %q", res.Note)
	}
}

func TestServiceFollowUpAndDischarge(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	plan, note, err := svc.FollowUp(ctx, 8, protocol.FeedModerate, 1)
	if err != nil {
		t.Fatalf("FollowUp() error = %v", err)
	}
	if plan.VolumePerFeedMl != 80 {
		t.Errorf("volume = %d, want 80", plan.VolumePerFeedMl)
	}
	if !strings.Contains(note, "día 1 de manejo intrahospitalario") {
		t.Errorf("note missing day line: %q", note)
	}

	dplan, dnote, err := svc.Discharge(ctx, 8, protocol.FeedModerate)
	if err != nil {
		t.Fatalf("Discharge() error = %v", err)
	}
	if dplan.SachetsPerDay != 3.2 {
		t.Errorf("sachets = %v, want 3.2", dplan.SachetsPerDay)
	}
	if !strings.Contains(dnote, "PLAN DE EGRESO:") {
		t.Errorf("note missing discharge plan: %q", dnote)
	}

	if _, _, err := svc.FollowUp(ctx, 0, protocol.FeedModerate, 1); err == nil {
		t.Error("zero weight should fail follow-up")
	}
	if _, _, err := svc.Discharge(ctx, 8, protocol.FeedType("bogus")); err == nil {
		t.Error("unknown feed type should fail discharge")
	}
}
