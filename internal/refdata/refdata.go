// Package refdata loads the immutable reference tables the analyzer needs:
// the jurisdiction list (names, alpha-3 codes, narrative summaries) and the
// PIL theme list (names, definitions). Both are read once at startup and
// never mutated afterwards.
package refdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

type Jurisdiction struct {
	Name    string `json:"name"`
	Alpha3  string `json:"alpha3"`
	Summary string `json:"summary,omitempty"`
}

type Theme struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

// Tables holds both reference tables. Jurisdictions are sorted
// case-insensitively by name; themes keep file order.
type Tables struct {
	jurisdictions []Jurisdiction
	themes        []Theme
	themeSet      map[string]struct{}
	byName        map[string]Jurisdiction
}

func Load(jurisdictionsPath, themesPath string) (*Tables, error) {
	jurisdictions, err := loadJurisdictions(jurisdictionsPath)
	if err != nil {
		return nil, fmt.Errorf("load jurisdictions: %w", err)
	}
	themes, err := loadThemes(themesPath)
	if err != nil {
		return nil, fmt.Errorf("load themes: %w", err)
	}
	return NewTables(jurisdictions, themes), nil
}

// NewTables builds Tables from already-parsed rows. Exposed so tests and
// embedded callers can skip the file round-trip.
func NewTables(jurisdictions []Jurisdiction, themes []Theme) *Tables {
	sorted := make([]Jurisdiction, len(jurisdictions))
	copy(sorted, jurisdictions)
	sort.Slice(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i].Name) < strings.ToLower(sorted[j].Name)
	})
	t := &Tables{
		jurisdictions: sorted,
		themes:        append([]Theme(nil), themes...),
		themeSet:      make(map[string]struct{}, len(themes)),
		byName:        make(map[string]Jurisdiction, len(sorted)),
	}
	for _, th := range themes {
		t.themeSet[th.Name] = struct{}{}
	}
	for _, j := range sorted {
		t.byName[strings.ToLower(j.Name)] = j
	}
	return t
}

func (t *Tables) Jurisdictions() []Jurisdiction {
	out := make([]Jurisdiction, len(t.jurisdictions))
	copy(out, t.jurisdictions)
	return out
}

func (t *Tables) Themes() []Theme {
	out := make([]Theme, len(t.themes))
	copy(out, t.themes)
	return out
}

// JurisdictionNames returns the sorted name list, as handed to the LLM
// during precise jurisdiction detection.
func (t *Tables) JurisdictionNames() []string {
	names := make([]string, len(t.jurisdictions))
	for i, j := range t.jurisdictions {
		names[i] = j.Name
	}
	return names
}

// LookupJurisdiction resolves a name case-insensitively.
func (t *Tables) LookupJurisdiction(name string) (Jurisdiction, bool) {
	j, ok := t.byName[strings.ToLower(strings.TrimSpace(name))]
	return j, ok
}

// IsTheme reports whether name is an exact member of the themes table.
func (t *Tables) IsTheme(name string) bool {
	_, ok := t.themeSet[name]
	return ok
}

// ThemesPromptBlock renders the themes table as "Name: Definition" lines for
// prompt interpolation.
func (t *Tables) ThemesPromptBlock() string {
	var b strings.Builder
	for _, th := range t.themes {
		fmt.Fprintf(&b, "%s: %s\n", th.Name, th.Definition)
	}
	return b.String()
}

func loadJurisdictions(path string) ([]Jurisdiction, error) {
	rows, header, err := readTable(path)
	if err != nil {
		return nil, err
	}
	nameIdx, err := columnIndex(header, "Name")
	if err != nil {
		return nil, err
	}
	codeIdx, _ := columnIndex(header, "Alpha-3 Code")
	summaryIdx, _ := columnIndex(header, "Jurisdiction Summary")

	var out []Jurisdiction
	for _, row := range rows {
		name := strings.TrimSpace(cell(row, nameIdx))
		if name == "" {
			continue
		}
		out = append(out, Jurisdiction{
			Name:    name,
			Alpha3:  strings.TrimSpace(cell(row, codeIdx)),
			Summary: strings.TrimSpace(cell(row, summaryIdx)),
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: no jurisdiction rows", path)
	}
	return out, nil
}

func loadThemes(path string) ([]Theme, error) {
	rows, header, err := readTable(path)
	if err != nil {
		return nil, err
	}
	themeIdx, err := columnIndex(header, "Theme")
	if err != nil {
		return nil, err
	}
	defIdx, err := columnIndex(header, "Definition")
	if err != nil {
		return nil, err
	}

	var out []Theme
	seen := map[string]struct{}{}
	for _, row := range rows {
		name := strings.TrimSpace(cell(row, themeIdx))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%s: duplicate theme %q", path, name)
		}
		seen[name] = struct{}{}
		out = append(out, Theme{Name: name, Definition: strings.TrimSpace(cell(row, defIdx))})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: no theme rows", path)
	}
	return out, nil
}

func readTable(path string) (rows [][]string, header []string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err = r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: read header: %w", path, err)
	}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		rows = append(rows, row)
	}
	return rows, header, nil
}

func columnIndex(header []string, name string) (int, error) {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("missing column %q", name)
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
