// Package render produces the Spanish clinical-note text that accompanies
// an evaluation: admission analysis and plan, inpatient follow-up notes
// and discharge notes. The wording follows the national acute-malnutrition
// management guideline and is consumed verbatim by clinicians, so phrasing
// changes are breaking changes.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/salud-digital/anthro/internal/assessment"
	"github.com/salud-digital/anthro/internal/protocol"
)

// Spanish wording for each complication, as it appears in the checklist
var complicationSpanish = map[protocol.Complication]string{
	protocol.ComplicationDiarrheaVomiting:     "Diarrea/vómito persistente",
	protocol.ComplicationAlteredConsciousness: "Alteración del estado de conciencia",
	protocol.ComplicationConvulsions:          "Convulsiones",
	protocol.ComplicationHypothermia:          "Hipotermia",
	protocol.ComplicationRespiratoryDistress:  "Dificultad respiratoria",
	protocol.ComplicationSevereAnemia:         "Anemia grave",
	protocol.ComplicationShock:                "Signos de choque",
}

// ComplicationSpanish returns the checklist wording for a complication;
// unknown complications fall back to the raw identifier.
func ComplicationSpanish(c protocol.Complication) string {
	if s, ok := complicationSpanish[c]; ok {
		return s
	}
	return string(c)
}

var signPhrase = map[assessment.SignCategory]string{
	assessment.SignAppearance:  "su apariencia general es",
	assessment.SignRespiration: "su respiración es",
	assessment.SignSkinPinch:   "el pliegue cutáneo regresa",
	assessment.SignTears:       "sus lágrimas están",
}

func bandSpanish(b assessment.DehydrationBand) string {
	switch b {
	case assessment.DehydrationSome:
		return "algún grado de deshidratación"
	case assessment.DehydrationSevere:
		return "deshidratación severa"
	default:
		return "sin deshidratación"
	}
}

// DehydrationNarrative renders the dehydration finding as a clinical
// sentence. A zero score is a clean statement; a positive score is
// justified by the contributing signs, with alternative findings inside
// one category joined by " o " and categories joined by ", ".
func DehydrationNarrative(a assessment.DehydrationAssessment) string {
	if a.Score == 0 {
		return "Clínicamente sin deshidratación (DHAKA: 0)."
	}

	frases := make([]string, 0, len(a.ContributingSigns))
	for _, cs := range a.ContributingSigns {
		lowered := make([]string, len(cs.Descriptions))
		for i, d := range cs.Descriptions {
			lowered[i] = strings.ToLower(d)
		}
		frases = append(frases, signPhrase[cs.Category]+" "+strings.Join(lowered, " o "))
	}

	return fmt.Sprintf("Clínicamente con %s (DHAKA: %d) porque %s.",
		bandSpanish(a.Band), a.Score, strings.Join(frases, ", "))
}

// AdmissionInput carries everything the admission note needs. Plan must be
// non-nil: a note is only written once a management decision exists.
type AdmissionInput struct {
	Classification assessment.ClassificationResult
	Plan           *protocol.Plan
	Dehydration    *assessment.DehydrationAssessment
	Complications  []protocol.Complication
	GlucoseMgDl    *float64
	WeightKg       *float64
}

// Admission renders the full admission note: the analysis paragraph
// followed by the hospital stabilization plan or the ambulatory plan.
func Admission(in AdmissionInput) string {
	pesoStr := "(no especificado)"
	if in.WeightKg != nil {
		pesoStr = formatNum(*in.WeightKg) + " kg"
	}

	diagnostico := in.Classification.Category.Spanish()
	cie10 := in.Classification.Category.ICD10()

	var dhaka string
	if in.Dehydration != nil {
		dhaka = DehydrationNarrative(*in.Dehydration) + " "
	}

	var complicaciones string
	if len(in.Complications) > 0 {
		descs := make([]string, len(in.Complications))
		for i, c := range in.Complications {
			descs[i] = ComplicationSpanish(c)
		}
		complicaciones = fmt.Sprintf("Presenta signos de complicación: %s. ", strings.Join(descs, ", "))
	} else {
		complicaciones = "Sin signos de complicación evidentes. "
	}

	var plan string
	if in.Plan.Disposition == protocol.DispositionHospital {
		plan = hospitalPlan(in)
	} else {
		plan = ambulatoryPlan(in)
	}

	return fmt.Sprintf("ANÁLISIS:\nPaciente con peso de %s quien presenta hallazgos clínicos y antropométricos compatibles con %s (CIE-10: %s). %s%sSe considera paciente con alto riesgo de morbimortalidad que requiere intervención nutricional inmediata.\n\nPLAN:\n%s\n- Notificación obligatoria a Sivigila.\n- Activación de ruta de manejo integral para la desnutrición aguda.",
		pesoStr, diagnostico, cie10, dhaka, complicaciones, plan)
}

func hospitalPlan(in AdmissionInput) string {
	p := in.Plan

	var b strings.Builder
	fmt.Fprintf(&b, "Se decide hospitalizar para manejo de %s con complicaciones. Se inicia plan de estabilización:\n", in.Classification.Category.Spanish())
	b.WriteString("1. A - Asegurar vía aérea, administrar O2 si es necesario.\n")
	fmt.Fprintf(&b, "2. %s\n", glycemiaLine(p.GlycemiaPlan))
	fmt.Fprintf(&b, "3. %s Vigilar estrictamente signos de sobrecarga hídrica.\n", hydrationLine(p.FluidPlan))
	b.WriteString("4. D - Vigilar función renal y estimar gasto urinario.\n")
	if p.FeedType != "" {
		fmt.Fprintf(&b, "5. F - Iniciar F-75: Administrar %d ml cada 3 horas. Se recomienda aumento progresivo según evolución y tolerancia: Día 2 a %s ml/kg/toma y Día 3 a %s ml/kg/toma (recalcular con peso diario).\n",
			p.StabilizationVolumePerFeedMl, formatNum(p.Day2MlPerKg), formatNum(p.Day3MlPerKg))
	} else {
		b.WriteString("5. F - Iniciar vía oral según tolerancia y evolución clínica.\n")
	}
	b.WriteString("6. G - Corregir Anemia Grave: Transfundir GRE (10 ml/kg en 3h) si Hb < 4, o < 6 con falla cardíaca.\n")
	b.WriteString("7. H - Manejo de Hipotermia: Abrigar y mantener calor corporal.\n")
	if amp, ok := p.DrugDoses["ampicillin"]; ok {
		fmt.Fprintf(&b, "8. I - Infección: Iniciar Ampicilina %d mg IV cada 6 horas.\n", amp.DoseMg)
	}
	b.WriteString("9. L - Lactancia Materna: Continuar y promover activamente a libre demanda.\n")
	b.WriteString("10. M - Micronutrientes: Iniciar Ácido Fólico 5mg VO DU. NO iniciar hierro, sulfato de zinc u otros micronutrientes en esta fase. NO desparasitar en fase aguda.\n\n")
	b.WriteString("Paraclínicos: Solicitar hemograma, ionograma, BUN, creatinina, glicemia.\n")
	b.WriteString("11. Pesar y tallar diariamente con técnica correcta.")
	return b.String()
}

func hydrationLine(fp *protocol.FluidPlan) string {
	if fp == nil || fp.Kind == protocol.FluidMonitoring {
		return "C - Evaluar estado de hidratación. No usar líquidos endovenosos de mantenimiento."
	}
	if fp.Kind == protocol.FluidRapidBolus {
		return "C - Hidratar (CON alteración de conciencia): Administrar bolo de Lactato de Ringer 15 ml/kg en 1h. Tomar glucometría. NO LÍQUIDOS DE MANTENIMIENTO. Vigilar FC, FR, estado de conciencia c/10 min y diuresis horaria."
	}
	if fp.PotassiumSupplemented {
		return "C - Hidratar (SIN alteración de conciencia, DNA Severa): Preparar 1L SRO 75 + 10ml Cloruro de Potasio y administrar 10 ml/kg/hora (máx 12h)."
	}
	return "C - Hidratar (SIN alteración de conciencia, DNA Moderada): Administrar 75 ml/kg de SRO 75 en 4-6 horas."
}

func glycemiaLine(gp *protocol.GlycemiaPlan) string {
	if gp == nil {
		return "B - Evitar hipoglicemia: Tomar glucometría cada 4 horas y SOS si hay alteración de conciencia. Corregir con cautela."
	}
	if gp.Kind == protocol.GlycemiaRoutineMonitoring {
		return fmt.Sprintf("B - Glucosa %s mg/dl (Normal), por lo que se continuará vigilancia cada 4 horas y SOS si hay alteración de conciencia.", formatNum(*gp.GlucoseMgDl))
	}

	resumen := fmt.Sprintf("B - Glucosa %s mg/dl (Hipoglicemia), por lo que se inicia manejo:\n", formatNum(*gp.GlucoseMgDl))
	if gp.AlteredConsciousness {
		return resumen +
			"    - Administre un bolo de DAD 10 %, a razón de 5 ml/kg por SNG o vía endovenosa en cinco minutos.\n" +
			"    - Repita la glucometria a los 15 minutos si se administró endovenosa, o a los 30 minutos si se administró por vía enteral.\n" +
			"    - Si persiste hipoglicemia, repita el bolo de DAD 10 % de 5 ml/kg.\n" +
			"    - Repita la glucometría.\n" +
			"    - Si hay mejoría, continúe con F-75 por SNG cada 30 minutos, a razón de 3 ml/kg/toma, durante 2 horas.\n" +
			"    - Repita la glucometría cada hora.\n" +
			"    - Si persiste la hipoglicemia, presenta hipotermia o el nivel de consciencia se deteriora, continúe con manejo individualizado y descarte patologías infecciosas."
	}
	return resumen +
		"    - Administre un bolo de DAD 10 %, a razón de 5 ml/kg/dosis por vía oral o por SNG.\n" +
		"    - Tome una glucometria a los 30 minutos.\n" +
		"    - Si persiste la hipoglicemia, repita el bolo de DAD10 % de 5 ml/kg.\n" +
		"    - Si hay mejoría, continúe con F-75, a razón de 3 ml/kg/toma cada 30 minutos durante 2 horas por vía oral o por SNG."
}

func ambulatoryPlan(in AdmissionInput) string {
	if in.Plan.Counseling {
		return fmt.Sprintf("Se decide manejo ambulatorio para %s. Se brindan recomendaciones nutricionales, se entregan micronutrientes si están indicados y se programa control ambulatorio. Se educan sobre signos de alarma.",
			in.Classification.Category.Spanish())
	}
	return fmt.Sprintf("Se decide manejo ambulatorio de %s sin complicaciones, con prueba de apetito positiva. Se inicia manejo con FTLC (Fórmula Terapéutica Lista para Consumo), %s sobres/día. Se entregan indicaciones claras a la familia y se programa seguimiento estricto. Se educan sobre signos de alarma para reconsultar.",
		in.Classification.Category.Spanish(), strconv.FormatFloat(in.Plan.SachetsPerDay, 'f', 1, 64))
}

// FollowUpNote renders the daily inpatient evolution note around the
// adjusted feed prescription.
func FollowUpNote(weightKg float64, plan protocol.FollowUpPlan) string {
	var nutricion string
	if plan.VolumePerFeedMl > 0 {
		fase := phaseName(plan)
		nutricion = fmt.Sprintf("N - Nutrición: Se ajusta/progresa Fórmula F-75 a %d ml cada 3 horas, correspondiente a %s. (Preparar con %s cucharadas en %s ml de agua).",
			plan.VolumePerFeedMl, fase,
			strconv.FormatFloat(plan.ScoopsPerFeed, 'f', 1, 64),
			strconv.FormatFloat(plan.WaterPerFeedMl, 'f', 1, 64))
	} else {
		nutricion = fmt.Sprintf("N - Nutrición: Paciente cumple criterios para iniciar transición a FTLC. Se inicia manejo con %s sobres/día, vigilando tolerancia.",
			strconv.FormatFloat(plan.SachetsPerDay, 'f', 1, 64))
	}

	return fmt.Sprintf("ANÁLISIS:\nPaciente en día %d de manejo intrahospitalario por Desnutrición Aguda. Peso actual: %s kg. \n[Describir evolución clínica, tolerancia a la vía oral, diuresis, etc.]\n\nPLAN:\nSe continúa manejo según ABCDARIO:\n",
		plan.Day, formatNum(weightKg)) +
		"A - SV: [TA: FC: FR: SatO2:]. Paciente sin dificultad respiratoria.\n" +
		"B - Glucometría: [Resultado]. Se continúa vigilancia c/4h y SOS.\n" +
		"C - Hidratación: [Hidratado/Deshidratado]. Se vigilan signos de sobrecarga hídrica.\n" +
		"D - Diuresis: [Positiva/Negativa].\n" +
		"F - Vía Oral: [Tolerancia].\n" +
		"G - Anemia: [Clínica].\n" +
		"H - Temperatura: [Valor]. Paciente normotérmico.\n" +
		"I - Infección: [Sin/Con] signos de respuesta inflamatoria.\n" +
		"L - Lactancia Materna: Se promueve activamente.\n" +
		"M - Micronutrientes: Continúa Ácido Fólico 1mg/día.\n" +
		nutricion + "\n" +
		"P - Piel: [Estado de la piel].\n" +
		"R - Realimentación: Sin signos de síndrome de realimentación.\n" +
		"S - Desarrollo: Se promueve estimulación y juego.\n" +
		"V - Vacunación: [Esquema]."
}

func phaseName(plan protocol.FollowUpPlan) string {
	switch {
	case plan.Day == 1:
		return "Fase de Estabilización (primeras 24h)"
	case plan.Day == 2:
		return "Fase de Estabilización (25-48h)"
	default:
		return fmt.Sprintf("Fase de Transición (Día %d, Paso %d)", plan.Day, plan.Day-2)
	}
}

// DischargeNote renders the hospital discharge note with the take-home
// therapeutic-food prescription.
func DischargeNote(weightKg float64, ft protocol.FeedType, plan protocol.DischargePlan) string {
	tipo := "Severa"
	cie10 := "E43X"
	if ft == protocol.FeedModerate {
		tipo = "Moderada"
		cie10 = "E44.0"
	}

	return fmt.Sprintf("ANÁLISIS:\nPaciente con diagnóstico de Desnutrición Aguda %s (CIE-10: %s) que completa 7 días de manejo intrahospitalario con adecuada evolución clínica y ganancia de peso. Peso de egreso: %s kg. Cumple criterios para continuar manejo ambulatorio.\n\nPLAN DE EGRESO:\n",
		tipo, cie10, formatNum(weightKg)) +
		fmt.Sprintf("1. Nutrición: Continuar manejo con Fórmula Terapéutica Lista para Consumo (FTLC), administrar %s sobres al día, distribuidos en varias tomas.\n",
			strconv.FormatFloat(plan.SachetsPerDay, 'f', 1, 64)) +
		"2. L - Lactancia Materna: Continuar y promover activamente a libre demanda.\n" +
		"3. Recomendaciones: Educar a la familia sobre la administración de la FTLC, signos de alarma (vómito, diarrea, fiebre, rechazo a la vía oral) para reconsultar de inmediato.\n" +
		"4. Órdenes:\n" +
		"   - Cita de control en 7 días con médico general o pediatría.\n" +
		"   - Valoración por Nutrición y Trabajo Social.\n" +
		"   - Solicitar Hemograma de control.\n" +
		"   - Suministro de Ácido Fólico 1 mg/día.\n" +
		"   - Verificar y completar esquema de vacunación según PAI.\n" +
		"5. Se entrega fórmula FTLC para cubrimiento de 7 días y se asegura la comprensión del plan por parte de los cuidadores."
}

// formatNum renders a number without trailing zeros (8, 8.5, 6.25)
func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
