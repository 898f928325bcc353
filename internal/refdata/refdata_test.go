package refdata

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSortsJurisdictionsCaseInsensitively(t *testing.T) {
	dir := t.TempDir()
	jPath := writeFile(t, dir, "jurisdictions.csv",
		"Name,Alpha-3 Code,Jurisdiction Summary\n"+
			"switzerland,CHE,Federal civil-law system with the PILA of 1987.\n"+
			"Germany,DEU,EU member; EGBGB and Rome instruments.\n"+
			"India,IND,\n")
	tPath := writeFile(t, dir, "themes.csv",
		"Theme,Definition\nContractual Obligations,Choice of law in contract.\n")

	tables, err := Load(jPath, tPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	names := tables.JurisdictionNames()
	want := []string{"Germany", "India", "switzerland"}
	if len(names) != len(want) {
		t.Fatalf("got %d names, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestLookupJurisdictionCaseInsensitive(t *testing.T) {
	tables := NewTables([]Jurisdiction{{Name: "Switzerland", Alpha3: "CHE", Summary: "PILA."}}, nil)
	j, ok := tables.LookupJurisdiction("  sWiTzErLaNd ")
	if !ok || j.Alpha3 != "CHE" {
		t.Fatalf("lookup failed: %v %v", j, ok)
	}
	if _, ok := tables.LookupJurisdiction("Atlantis"); ok {
		t.Fatal("expected miss")
	}
}

func TestLoadToleratesEmptyOptionalColumns(t *testing.T) {
	dir := t.TempDir()
	jPath := writeFile(t, dir, "j.csv", "Name,Alpha-3 Code,Jurisdiction Summary\nFrance,,\n")
	tPath := writeFile(t, dir, "t.csv", "Theme,Definition\nTort,Cross-border tort.\n")
	tables, err := Load(jPath, tPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	j, ok := tables.LookupJurisdiction("France")
	if !ok || j.Alpha3 != "" || j.Summary != "" {
		t.Fatalf("unexpected jurisdiction: %+v", j)
	}
}

func TestLoadFailsFast(t *testing.T) {
	dir := t.TempDir()
	tPath := writeFile(t, dir, "t.csv", "Theme,Definition\nTort,Def.\n")

	if _, err := Load(filepath.Join(dir, "missing.csv"), tPath); err == nil {
		t.Fatal("expected error for missing jurisdictions file")
	}

	badHeader := writeFile(t, dir, "bad.csv", "Country,Code\nFrance,FRA\n")
	if _, err := Load(badHeader, tPath); err == nil {
		t.Fatal("expected error for missing Name column")
	}

	jPath := writeFile(t, dir, "j.csv", "Name,Alpha-3 Code\nFrance,FRA\n")
	dupThemes := writeFile(t, dir, "dup.csv", "Theme,Definition\nTort,A.\nTort,B.\n")
	if _, err := Load(jPath, dupThemes); err == nil {
		t.Fatal("expected error for duplicate theme")
	}
}

func TestIsThemeAndPromptBlock(t *testing.T) {
	tables := NewTables(nil, []Theme{
		{Name: "Contractual Obligations", Definition: "Choice of law in contract."},
		{Name: "Tort", Definition: "Cross-border tort."},
	})
	if !tables.IsTheme("Tort") {
		t.Fatal("expected Tort to be a theme")
	}
	if tables.IsTheme("tort") {
		t.Fatal("theme membership is exact-match")
	}
	block := tables.ThemesPromptBlock()
	if block != "Contractual Obligations: Choice of law in contract.\nTort: Cross-border tort.\n" {
		t.Fatalf("unexpected prompt block: %q", block)
	}
}

func TestStaticLegalSystem(t *testing.T) {
	cases := []struct {
		name string
		want LegalSystem
		ok   bool
	}{
		{"Switzerland", CivilLaw, true},
		{"india", CommonLaw, true},
		{" United Kingdom ", CommonLaw, true},
		{"Atlantis", "", false},
	}
	for _, tc := range cases {
		got, ok := StaticLegalSystem(tc.name)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("StaticLegalSystem(%q) = %v %v, want %v %v", tc.name, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseLegalSystem(t *testing.T) {
	cases := map[string]LegalSystem{
		"common-law":                      CommonLaw,
		"The system is Civil-Law.":        CivilLaw,
		"no-court-decision":               NoCourtDecision,
		"this is not a court decision at": UnknownSystem,
	}
	for raw, want := range cases {
		if got := ParseLegalSystem(raw); got != want {
			t.Fatalf("ParseLegalSystem(%q) = %v, want %v", raw, got, want)
		}
	}
}
