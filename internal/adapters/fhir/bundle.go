// Package fhir decodes FHIR R4 bundles into evaluation requests, so EHR
// systems can submit a Patient resource plus its anthropometric
// Observations directly.
package fhir

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/salud-digital/anthro/internal/evaluation"
	"github.com/salud-digital/anthro/internal/growth"
	"github.com/salud-digital/anthro/internal/shared/types"
)

// Bundle represents a FHIR R4 Bundle resource (simplified)
type Bundle struct {
	ResourceType string  `json:"resourceType"`
	Type         string  `json:"type,omitempty"`
	Entry        []Entry `json:"entry,omitempty"`
}

// Entry is one bundle entry; Resource is decoded by its resourceType
type Entry struct {
	Resource json.RawMessage `json:"resource"`
}

// Patient represents a FHIR R4 Patient resource (simplified)
type Patient struct {
	ResourceType string `json:"resourceType"`
	ID           string `json:"id,omitempty"`
	Gender       string `json:"gender,omitempty"`
	BirthDate    string `json:"birthDate,omitempty"`
}

// Observation represents a FHIR R4 Observation resource (simplified)
type Observation struct {
	ResourceType      string           `json:"resourceType"`
	Status            string           `json:"status,omitempty"`
	Code              *CodeableConcept `json:"code,omitempty"`
	EffectiveDateTime string           `json:"effectiveDateTime,omitempty"`
	ValueQuantity     *Quantity        `json:"valueQuantity,omitempty"`
	ValueBoolean      *bool            `json:"valueBoolean,omitempty"`
}

// CodeableConcept represents a FHIR CodeableConcept
type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// Coding represents a FHIR Coding
type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

// Quantity represents a FHIR Quantity
type Quantity struct {
	Value *float64 `json:"value,omitempty"`
	Unit  string   `json:"unit,omitempty"`
	Code  string   `json:"code,omitempty"`
}

// LOINC codes for the anthropometric observations the adapter understands
const (
	LOINCSystem = "http://loinc.org"

	CodeBodyWeight        = "29463-7"
	CodeBodyHeight        = "8302-2"
	CodeBodyLength        = "8306-3"
	CodeHeadCircumference = "9843-4"
	CodeMUAC              = "56072-2"
	CodeGlucose           = "2339-0"
)

// SNOMED code used for the bilateral-edema finding observation
const (
	SNOMEDSystem = "http://snomed.info/sct"

	CodeBilateralEdema = "271809000"
)

// ToEvaluationRequest maps a bundle's Patient and Observation resources to
// an evaluation request. The bundle must carry exactly one Patient; unknown
// observation codes are ignored. A body-length observation selects the
// recumbent convention, a body-height observation the standing one.
func ToEvaluationRequest(b Bundle) (evaluation.Request, error) {
	if b.ResourceType != "Bundle" {
		return evaluation.Request{}, fmt.Errorf("expected a Bundle resource, got %q", b.ResourceType)
	}

	var req evaluation.Request
	var patientSeen bool

	for _, entry := range b.Entry {
		var kind struct {
			ResourceType string `json:"resourceType"`
		}
		if err := json.Unmarshal(entry.Resource, &kind); err != nil {
			return evaluation.Request{}, fmt.Errorf("malformed bundle entry: %w", err)
		}

		switch kind.ResourceType {
		case "Patient":
			if patientSeen {
				return evaluation.Request{}, fmt.Errorf("bundle carries more than one Patient")
			}
			patientSeen = true

			var p Patient
			if err := json.Unmarshal(entry.Resource, &p); err != nil {
				return evaluation.Request{}, fmt.Errorf("malformed Patient: %w", err)
			}
			if err := applyPatient(&req, p); err != nil {
				return evaluation.Request{}, err
			}

		case "Observation":
			var o Observation
			if err := json.Unmarshal(entry.Resource, &o); err != nil {
				return evaluation.Request{}, fmt.Errorf("malformed Observation: %w", err)
			}
			if err := applyObservation(&req, o); err != nil {
				return evaluation.Request{}, err
			}
		}
	}

	if !patientSeen {
		return evaluation.Request{}, fmt.Errorf("bundle carries no Patient resource")
	}
	if req.MeasureMode == "" {
		req.MeasureMode = growth.MeasureRecumbent
	}
	return req, nil
}

func applyPatient(req *evaluation.Request, p Patient) error {
	switch p.Gender {
	case "male":
		req.Sex = growth.SexMale
	case "female":
		req.Sex = growth.SexFemale
	default:
		return fmt.Errorf("unsupported patient gender %q", p.Gender)
	}

	if p.BirthDate != "" {
		birth, err := time.Parse("2006-01-02", p.BirthDate)
		if err != nil {
			return fmt.Errorf("invalid patient birthDate %q: %w", p.BirthDate, err)
		}
		req.BirthDate = &birth
	}
	if p.ID != "" {
		req.PatientID = types.ID(p.ID)
	}
	return nil
}

func applyObservation(req *evaluation.Request, o Observation) error {
	code := observationCode(o)
	if code == "" {
		return nil
	}

	if o.EffectiveDateTime != "" && req.MeasurementDate == nil {
		if t, err := parseFHIRDateTime(o.EffectiveDateTime); err == nil {
			req.MeasurementDate = &t
		}
	}

	if code == CodeBilateralEdema {
		if o.ValueBoolean != nil {
			req.EdemaPresent = *o.ValueBoolean
		}
		return nil
	}

	if o.ValueQuantity == nil || o.ValueQuantity.Value == nil {
		return fmt.Errorf("observation %s has no value", code)
	}
	value := *o.ValueQuantity.Value

	switch code {
	case CodeBodyWeight:
		kg, err := toKilograms(value, o.ValueQuantity.Unit)
		if err != nil {
			return err
		}
		req.WeightKg = &kg
	case CodeBodyLength:
		cm, err := toCentimeters(value, o.ValueQuantity.Unit)
		if err != nil {
			return err
		}
		req.LengthHeightCm = &cm
		req.MeasureMode = growth.MeasureRecumbent
	case CodeBodyHeight:
		cm, err := toCentimeters(value, o.ValueQuantity.Unit)
		if err != nil {
			return err
		}
		req.LengthHeightCm = &cm
		req.MeasureMode = growth.MeasureStanding
	case CodeHeadCircumference:
		cm, err := toCentimeters(value, o.ValueQuantity.Unit)
		if err != nil {
			return err
		}
		req.HeadCircCm = &cm
	case CodeMUAC:
		cm, err := toCentimeters(value, o.ValueQuantity.Unit)
		if err != nil {
			return err
		}
		req.MUACCm = &cm
	case CodeGlucose:
		if o.ValueQuantity.Unit != "" && o.ValueQuantity.Unit != "mg/dL" {
			return fmt.Errorf("unsupported glucose unit %q", o.ValueQuantity.Unit)
		}
		req.GlucoseMgDl = &value
	}
	return nil
}

// observationCode returns the first recognized LOINC or SNOMED code
func observationCode(o Observation) string {
	if o.Code == nil {
		return ""
	}
	for _, c := range o.Code.Coding {
		switch c.System {
		case LOINCSystem:
			switch c.Code {
			case CodeBodyWeight, CodeBodyHeight, CodeBodyLength,
				CodeHeadCircumference, CodeMUAC, CodeGlucose:
				return c.Code
			}
		case SNOMEDSystem:
			if c.Code == CodeBilateralEdema {
				return c.Code
			}
		}
	}
	return ""
}

func toKilograms(value float64, unit string) (float64, error) {
	switch unit {
	case "", "kg":
		return value, nil
	case "g":
		return value / 1000, nil
	default:
		return 0, fmt.Errorf("unsupported weight unit %q", unit)
	}
}

func toCentimeters(value float64, unit string) (float64, error) {
	switch unit {
	case "", "cm":
		return value, nil
	case "m":
		return value * 100, nil
	case "mm":
		return value / 10, nil
	default:
		return 0, fmt.Errorf("unsupported length unit %q", unit)
	}
}

func parseFHIRDateTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid FHIR dateTime %q", s)
}
