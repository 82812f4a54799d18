package growth

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Indicator identifies a growth reference indicator
type Indicator string

const (
	IndicatorWeightForAge       Indicator = "wfa"
	IndicatorHeadCircForAge     Indicator = "hcfa"
	IndicatorLengthHeightForAge Indicator = "lhfa"
	IndicatorWeightForLength    Indicator = "wfl"
	IndicatorWeightForHeight    Indicator = "wfh"
	IndicatorBMIForAge          Indicator = "bfa"
)

// Indicators lists every supported indicator
var Indicators = []Indicator{
	IndicatorWeightForAge,
	IndicatorHeadCircForAge,
	IndicatorLengthHeightForAge,
	IndicatorWeightForLength,
	IndicatorWeightForHeight,
	IndicatorBMIForAge,
}

// Sex identifies the reference population sex
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// Sexes lists both reference sexes
var Sexes = []Sex{SexMale, SexFemale}

// Valid reports whether the sex is one of the two reference values
func (s Sex) Valid() bool {
	return s == SexMale || s == SexFemale
}

// LMSPoint is one row of a reference table. Index is age in days for
// age-based indicators and length/height in cm for the weight-for-length
// and weight-for-height indicators.
type LMSPoint struct {
	Index float64 `json:"x"`
	L     float64 `json:"l"`
	M     float64 `json:"m"`
	S     float64 `json:"s"`
}

// Table is an ordered sequence of LMS points, strictly increasing by Index
type Table []LMSPoint

// Validate checks the table ordering invariant
func (t Table) Validate() error {
	for i := 1; i < len(t); i++ {
		if t[i].Index <= t[i-1].Index {
			return fmt.Errorf("table index not strictly increasing at row %d (%.2f after %.2f)",
				i, t[i].Index, t[i-1].Index)
		}
	}
	return nil
}

// Store holds the loaded reference tables. It is initialized once at
// process start and never written afterwards, so it is safe to share
// across concurrent evaluations without coordination.
type Store struct {
	tables map[Indicator]map[Sex]Table
}

//go:embed data/*.json
var embeddedTables embed.FS

// NewStore builds a store from explicit tables, validating each one.
// Used by tests and by callers that supply their own reference data.
func NewStore(tables map[Indicator]map[Sex]Table) (*Store, error) {
	for ind, bySex := range tables {
		for sex, t := range bySex {
			if err := t.Validate(); err != nil {
				return nil, fmt.Errorf("table %s/%s: %w", ind, sex, err)
			}
		}
	}
	return &Store{tables: tables}, nil
}

// LoadEmbedded loads the reference tables compiled into the binary
func LoadEmbedded() (*Store, error) {
	sub, err := fs.Sub(embeddedTables, "data")
	if err != nil {
		return nil, err
	}
	return loadFS(sub)
}

// LoadDir loads reference tables from an external directory, overriding
// the embedded set. The directory must contain one <indicator>_<sex>.json
// file per (indicator, sex) pair.
func LoadDir(dir string) (*Store, error) {
	return loadFS(os.DirFS(dir))
}

func loadFS(fsys fs.FS) (*Store, error) {
	tables := make(map[Indicator]map[Sex]Table, len(Indicators))

	for _, ind := range Indicators {
		tables[ind] = make(map[Sex]Table, len(Sexes))
		for _, sex := range Sexes {
			name := fmt.Sprintf("%s_%s.json", ind, sex)
			data, err := fs.ReadFile(fsys, filepath.ToSlash(name))
			if err != nil {
				return nil, fmt.Errorf("reference table %s: %w", name, err)
			}

			var t Table
			if err := json.Unmarshal(data, &t); err != nil {
				return nil, fmt.Errorf("reference table %s: %w", name, err)
			}
			if err := t.Validate(); err != nil {
				return nil, fmt.Errorf("reference table %s: %w", name, err)
			}

			tables[ind][sex] = t
		}
	}

	return &Store{tables: tables}, nil
}

// Table returns the reference table for an (indicator, sex) pair.
// The second return value is false when no such table is loaded.
func (s *Store) Table(ind Indicator, sex Sex) (Table, bool) {
	bySex, ok := s.tables[ind]
	if !ok {
		return nil, false
	}
	t, ok := bySex[sex]
	return t, ok
}
