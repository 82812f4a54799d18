package assessment

import "fmt"

// SignCategory is one of the four clinical sign categories of the DHAKA
// dehydration score.
type SignCategory string

const (
	SignAppearance  SignCategory = "general_appearance"
	SignRespiration SignCategory = "respiration"
	SignSkinPinch   SignCategory = "skin_pinch"
	SignTears       SignCategory = "tears"
)

// requiredSignCategories is the closed set of categories that must each
// have exactly one selection, in scoring order.
var requiredSignCategories = []SignCategory{
	SignAppearance,
	SignRespiration,
	SignSkinPinch,
	SignTears,
}

// SignSelection is the selected ordinal value for one sign category.
// Description carries the clinical wording used for narrative output
// (e.g. "letárgico", "profunda", "muy lentamente").
type SignSelection struct {
	Category    SignCategory `json:"category"`
	Value       int          `json:"value"`
	Description string       `json:"description,omitempty"`
}

// DehydrationBand grades dehydration severity
type DehydrationBand string

const (
	DehydrationNone   DehydrationBand = "none"
	DehydrationSome   DehydrationBand = "some"
	DehydrationSevere DehydrationBand = "severe"
)

// ContributingSign is a sign whose ordinal value was above zero, kept for
// narrative justification. Descriptions within a category are alternatives.
type ContributingSign struct {
	Category     SignCategory `json:"category"`
	Descriptions []string     `json:"descriptions"`
}

// DehydrationAssessment is the aggregated dehydration result
type DehydrationAssessment struct {
	Score             int                `json:"score"`
	Band              DehydrationBand    `json:"band"`
	ContributingSigns []ContributingSign `json:"contributing_signs,omitempty"`
}

// ScoreDehydration aggregates the four-sign checklist into a dehydration
// score and severity band. Exactly one selection per required category is
// mandatory; anything else is an incomplete-input error, not a score of
// zero.
func ScoreDehydration(signs []SignSelection) (DehydrationAssessment, error) {
	seen := make(map[SignCategory]int, len(requiredSignCategories))
	for _, s := range signs {
		if !validSignCategory(s.Category) {
			return DehydrationAssessment{}, fmt.Errorf("unknown sign category %q", s.Category)
		}
		if s.Value < 0 {
			return DehydrationAssessment{}, fmt.Errorf("sign %s: ordinal value must be >= 0", s.Category)
		}
		seen[s.Category]++
		if seen[s.Category] > 1 {
			return DehydrationAssessment{}, fmt.Errorf("sign %s selected more than once", s.Category)
		}
	}
	for _, cat := range requiredSignCategories {
		if seen[cat] == 0 {
			return DehydrationAssessment{}, fmt.Errorf("sign %s not selected", cat)
		}
	}

	score := 0
	var contributing []ContributingSign
	index := make(map[SignCategory]int)

	// Contributing groups keep first-encountered category order.
	for _, s := range signs {
		score += s.Value
		if s.Value <= 0 {
			continue
		}
		if i, ok := index[s.Category]; ok {
			contributing[i].Descriptions = append(contributing[i].Descriptions, s.Description)
			continue
		}
		index[s.Category] = len(contributing)
		contributing = append(contributing, ContributingSign{
			Category:     s.Category,
			Descriptions: []string{s.Description},
		})
	}

	return DehydrationAssessment{
		Score:             score,
		Band:              bandForScore(score),
		ContributingSigns: contributing,
	}, nil
}

func bandForScore(score int) DehydrationBand {
	switch {
	case score <= 1:
		return DehydrationNone
	case score <= 3:
		return DehydrationSome
	default:
		return DehydrationSevere
	}
}

func validSignCategory(c SignCategory) bool {
	for _, cat := range requiredSignCategories {
		if c == cat {
			return true
		}
	}
	return false
}
