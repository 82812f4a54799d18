package protocol

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/salud-digital/anthro/internal/assessment"
)

func fptr(v float64) *float64 { return &v }
func bptr(v bool) *bool       { return &v }

func classified(c assessment.Classification, edema bool) assessment.ClassificationResult {
	return assessment.ClassificationResult{Category: c, EdemaPresent: edema}
}

func TestDecidePrecedence(t *testing.T) {
	tests := []struct {
		name   string
		in     Input
		want   Disposition
		wantOK bool
	}{
		{
			name: "any complication forces hospital",
			in: Input{
				Classification: classified(assessment.ClassificationNormal, false),
				Complications:  []Complication{ComplicationHypothermia},
			},
			want:   DispositionHospital,
			wantOK: true,
		},
		{
			name: "severe with failed appetite test is hospitalized",
			in: Input{
				Classification:     classified(assessment.ClassificationSevere, false),
				AppetiteTestPassed: bptr(false),
			},
			want:   DispositionHospital,
			wantOK: true,
		},
		{
			name: "severe with passed appetite test stays ambulatory",
			in: Input{
				Classification:     classified(assessment.ClassificationSevere, false),
				AppetiteTestPassed: bptr(true),
			},
			want:   DispositionAmbulatory,
			wantOK: true,
		},
		{
			name: "severe with pending appetite test has no plan",
			in: Input{
				Classification: classified(assessment.ClassificationSevere, false),
			},
			wantOK: false,
		},
		{
			name: "moderate without complications is ambulatory",
			in: Input{
				Classification: classified(assessment.ClassificationModerate, false),
			},
			want:   DispositionAmbulatory,
			wantOK: true,
		},
		{
			name: "at-risk without complications is ambulatory",
			in: Input{
				Classification: classified(assessment.ClassificationAtRisk, false),
			},
			want:   DispositionAmbulatory,
			wantOK: true,
		},
		{
			name: "normal without complications has no plan",
			in: Input{
				Classification: classified(assessment.ClassificationNormal, false),
			},
			wantOK: false,
		},
		{
			name: "indeterminate has no plan",
			in: Input{
				Classification: classified(assessment.ClassificationIndeterminate, false),
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Decide(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("Decide() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Decide() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestComposeAmbulatoryModerate(t *testing.T) {
	in := Input{
		Classification: classified(assessment.ClassificationModerate, false),
		WeightKg:       fptr(8),
	}

	plan, err := Compose(in)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if plan == nil {
		t.Fatal("Compose() returned nil plan")
	}
	if plan.Disposition != DispositionAmbulatory {
		t.Errorf("disposition = %q, want %q", plan.Disposition, DispositionAmbulatory)
	}
	if plan.SachetsPerDay != 2.4 {
		t.Errorf("sachets per day = %v, want 2.4", plan.SachetsPerDay)
	}
	if plan.KcalPerKgPerDay != 150 {
		t.Errorf("kcal/kg/day = %v, want 150", plan.KcalPerKgPerDay)
	}
	if plan.Counseling {
		t.Error("moderate plan should dose therapeutic food, not counseling")
	}
}

func TestComposeAmbulatoryAtRiskCounseling(t *testing.T) {
	in := Input{
		Classification: classified(assessment.ClassificationAtRisk, false),
		WeightKg:       fptr(10),
	}

	plan, err := Compose(in)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if !plan.Counseling {
		t.Error("at-risk plan should be counseling")
	}
	if plan.SachetsPerDay != 0 {
		t.Errorf("sachets per day = %v, want 0", plan.SachetsPerDay)
	}
}

func TestComposeHospitalSevereWithEdema(t *testing.T) {
	in := Input{
		Classification:     classified(assessment.ClassificationSevere, true),
		WeightKg:           fptr(6),
		Complications:      []Complication{ComplicationAlteredConsciousness},
		AppetiteTestPassed: bptr(false),
		GlucoseMgDl:        fptr(40),
	}

	plan, err := Compose(in)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	if plan.Disposition != DispositionHospital {
		t.Fatalf("disposition = %q, want hospital", plan.Disposition)
	}
	if plan.FeedType != FeedSevereWithEdema {
		t.Errorf("feed type = %q, want %q", plan.FeedType, FeedSevereWithEdema)
	}
	if plan.StabilizationVolumePerFeedMl != 24 {
		t.Errorf("stabilization volume = %d ml, want 24", plan.StabilizationVolumePerFeedMl)
	}
	if plan.FeedsPerDay != 8 {
		t.Errorf("feeds per day = %d, want 8", plan.FeedsPerDay)
	}
	wantTransition := []int{60, 78, 96, 114}
	if diff := cmp.Diff(wantTransition, plan.TransitionVolumesMl); diff != "" {
		t.Errorf("transition volumes mismatch (-want +got):\n%s", diff)
	}

	if plan.FluidPlan == nil || plan.FluidPlan.Kind != FluidRapidBolus {
		t.Fatalf("fluid plan = %+v, want rapid bolus", plan.FluidPlan)
	}
	if plan.FluidPlan.BolusMl != 90 {
		t.Errorf("bolus = %d ml, want 90", plan.FluidPlan.BolusMl)
	}

	if plan.GlycemiaPlan == nil || plan.GlycemiaPlan.Kind != GlycemiaCorrection {
		t.Fatalf("glycemia plan = %+v, want correction", plan.GlycemiaPlan)
	}
	if !plan.GlycemiaPlan.AlteredConsciousness {
		t.Error("glycemia plan should record altered consciousness")
	}
	if plan.GlycemiaPlan.RecheckMinutesIV != 15 || plan.GlycemiaPlan.RecheckMinutesEnteral != 30 {
		t.Errorf("recheck minutes = %d/%d, want 15/30",
			plan.GlycemiaPlan.RecheckMinutesIV, plan.GlycemiaPlan.RecheckMinutesEnteral)
	}

	amp, ok := plan.DrugDoses["ampicillin"]
	if !ok {
		t.Fatal("ampicillin not prescribed")
	}
	if amp.DoseMg != 300 {
		t.Errorf("ampicillin dose = %d mg, want 300", amp.DoseMg)
	}
	folic, ok := plan.DrugDoses["folic_acid"]
	if !ok {
		t.Fatal("folic acid not prescribed")
	}
	if folic.DoseMg != 5 || folic.Frequency != "single dose" {
		t.Errorf("folic acid = %+v, want 5 mg single dose", folic)
	}

	wantDeferred := []string{"iron", "zinc"}
	if diff := cmp.Diff(wantDeferred, plan.DeferredMicronutrients); diff != "" {
		t.Errorf("deferred micronutrients mismatch (-want +got):\n%s", diff)
	}
}

func TestComposeHospitalComplicationOnlyOmitsFeeding(t *testing.T) {
	in := Input{
		Classification: classified(assessment.ClassificationNormal, false),
		WeightKg:       fptr(12),
		Complications:  []Complication{ComplicationRespiratoryDistress},
	}

	plan, err := Compose(in)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if plan.Disposition != DispositionHospital {
		t.Fatalf("disposition = %q, want hospital", plan.Disposition)
	}
	if plan.FeedType != "" || plan.StabilizationVolumePerFeedMl != 0 {
		t.Errorf("feeding section should be omitted, got %q / %d ml",
			plan.FeedType, plan.StabilizationVolumePerFeedMl)
	}
	if plan.FluidPlan == nil || plan.FluidPlan.Kind != FluidMonitoring {
		t.Errorf("fluid plan = %+v, want monitoring", plan.FluidPlan)
	}
	if _, ok := plan.DrugDoses["ampicillin"]; !ok {
		t.Error("hospitalized child should still get ampicillin")
	}
}

func TestComposeFluidsOralRehydration(t *testing.T) {
	t.Run("severe malnutrition gets hourly potassium-supplemented ORS", func(t *testing.T) {
		// The regimen follows the malnutrition category, so even mild
		// dehydration in a severe child doses the hourly scheme.
		in := Input{
			Classification: classified(assessment.ClassificationSevere, false),
			WeightKg:       fptr(6),
			Complications:  []Complication{ComplicationDiarrheaVomiting},
			Dehydration:    &assessment.DehydrationAssessment{Score: 2, Band: assessment.DehydrationSome},
		}
		plan, err := Compose(in)
		if err != nil {
			t.Fatalf("Compose() error = %v", err)
		}
		fp := plan.FluidPlan
		if fp == nil || fp.Kind != FluidOralRehydration {
			t.Fatalf("fluid plan = %+v, want oral rehydration", fp)
		}
		if fp.RateMlPerHour != 60 || fp.MaxHours != 12 || !fp.PotassiumSupplemented {
			t.Errorf("got %+v, want 60 ml/h for up to 12 h with potassium", fp)
		}
	})

	t.Run("moderate malnutrition gets a single ORS volume", func(t *testing.T) {
		// A severe dehydration band does not switch the regimen.
		in := Input{
			Classification: classified(assessment.ClassificationModerate, false),
			WeightKg:       fptr(6),
			Complications:  []Complication{ComplicationDiarrheaVomiting},
			Dehydration:    &assessment.DehydrationAssessment{Score: 5, Band: assessment.DehydrationSevere},
		}
		plan, err := Compose(in)
		if err != nil {
			t.Fatalf("Compose() error = %v", err)
		}
		fp := plan.FluidPlan
		if fp == nil || fp.Kind != FluidOralRehydration {
			t.Fatalf("fluid plan = %+v, want oral rehydration", fp)
		}
		if fp.TotalMl != 450 || fp.PotassiumSupplemented {
			t.Errorf("got %+v, want a single 450 ml volume without potassium", fp)
		}
	})

	t.Run("diarrhea without a dehydration score still rehydrates", func(t *testing.T) {
		in := Input{
			Classification: classified(assessment.ClassificationModerate, false),
			WeightKg:       fptr(6),
			Complications:  []Complication{ComplicationDiarrheaVomiting},
		}
		plan, err := Compose(in)
		if err != nil {
			t.Fatalf("Compose() error = %v", err)
		}
		if plan.FluidPlan == nil || plan.FluidPlan.Kind != FluidOralRehydration {
			t.Errorf("fluid plan = %+v, want oral rehydration", plan.FluidPlan)
		}
	})
}

func TestComposeGlycemiaRoutineMonitoring(t *testing.T) {
	in := Input{
		Classification: classified(assessment.ClassificationSevere, false),
		WeightKg:       fptr(6),
		Complications:  []Complication{ComplicationHypothermia},
		GlucoseMgDl:    fptr(80),
	}

	plan, err := Compose(in)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	gp := plan.GlycemiaPlan
	if gp == nil || gp.Kind != GlycemiaRoutineMonitoring {
		t.Fatalf("glycemia plan = %+v, want routine monitoring", gp)
	}
	if gp.MonitorIntervalHours != 4 {
		t.Errorf("monitor interval = %d h, want 4", gp.MonitorIntervalHours)
	}
}

func TestComposeWeightRequired(t *testing.T) {
	in := Input{
		Classification: classified(assessment.ClassificationModerate, false),
	}
	if _, err := Compose(in); !errors.Is(err, ErrWeightRequired) {
		t.Errorf("Compose() error = %v, want ErrWeightRequired", err)
	}

	in.WeightKg = fptr(0)
	if _, err := Compose(in); !errors.Is(err, ErrWeightRequired) {
		t.Errorf("Compose() error with zero weight = %v, want ErrWeightRequired", err)
	}
}

func TestComposeNoPlanIsNotAnError(t *testing.T) {
	in := Input{
		Classification: classified(assessment.ClassificationNormal, false),
		WeightKg:       fptr(10),
	}
	plan, err := Compose(in)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if plan != nil {
		t.Errorf("Compose() = %+v, want nil plan", plan)
	}
}

func TestComposeDayOutOfRange(t *testing.T) {
	in := Input{
		Classification: classified(assessment.ClassificationModerate, false),
		WeightKg:       fptr(8),
		TreatmentDay:   71,
	}
	if _, err := Compose(in); !errors.Is(err, ErrDayOutOfRange) {
		t.Errorf("Compose() error = %v, want ErrDayOutOfRange", err)
	}
}

func TestComposeIsDeterministic(t *testing.T) {
	in := Input{
		Classification:     classified(assessment.ClassificationSevere, true),
		WeightKg:           fptr(6.2),
		Complications:      []Complication{ComplicationDiarrheaVomiting},
		AppetiteTestPassed: bptr(false),
		Dehydration:        &assessment.DehydrationAssessment{Score: 4, Band: assessment.DehydrationSevere},
		GlucoseMgDl:        fptr(48),
	}

	first, err := Compose(in)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	second, err := Compose(in)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated Compose() differs (-first +second):\n%s", diff)
	}
}
