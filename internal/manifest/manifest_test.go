package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/j-veylop/devicestats/internal/models"
)

func TestParse_DA(t *testing.T) {
	data := "i FileName Start End Days PropData InUK OutUK PropUK\n" +
		"1 dev-a 2014-01-01 2014-03-01 50 0.8 900 10 0.99\n" +
		"\n" +
		"2 dev-b 2014-02-01 2014-04-01 40 0.6 400 300 0.57\n"
	m, err := Parse(strings.NewReader(data), models.FormatDA)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
	names := m.Names()
	if names[0] != "dev-a" || names[1] != "dev-b" {
		t.Errorf("Names() = %v", names)
	}
	if m.Entries[1].Index != 1 || m.Entries[0].Days() != 50 {
		t.Errorf("unexpected entry %+v", m.Entries[0])
	}
	if got := m.LogName("dev-a"); got != "dev-a.csv.gz" {
		t.Errorf("LogName() = %q", got)
	}
}

func TestParse_Lancs(t *testing.T) {
	m, err := Parse(strings.NewReader("alpha\n beta \n\n"), models.FormatLancs)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := m.Names(); len(got) != 2 || got[1] != "beta" {
		t.Errorf("Names() = %v", got)
	}
	if got := m.LogName("alpha"); got != "alpha.csv" {
		t.Errorf("LogName() = %q", got)
	}
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse(strings.NewReader("\n\n"), models.FormatLancs)
	if !errors.Is(err, ErrNoDevices) {
		t.Errorf("err = %v, want ErrNoDevices", err)
	}
}

func TestRead_Missing(t *testing.T) {
	if _, err := Read(filepath.Join(t.TempDir(), "none.txt"), models.FormatDA); err == nil {
		t.Error("expected error for missing manifest")
	}
}

func TestParseMapping(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantLen  int
		wantCats []string
	}{
		{
			name:     "full",
			data:     "FullName;Name;Category\ncom.a;A;Social\ncom.b;B;Games\ncom.c;C;\ncom.d;D;Social\n",
			wantLen:  4,
			wantCats: []string{"Games", "Social"},
		},
		{
			name:    "names only",
			data:    "com.a\ncom.b,ignored\n",
			wantLen: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseMapping(strings.NewReader(tt.data))
			if err != nil {
				t.Fatalf("ParseMapping failed: %v", err)
			}
			if m.Len() != tt.wantLen {
				t.Errorf("Len() = %d, want %d", m.Len(), tt.wantLen)
			}
			cats := m.Categories()
			if len(cats) != len(tt.wantCats) {
				t.Fatalf("Categories() = %v, want %v", cats, tt.wantCats)
			}
			for i := range cats {
				if cats[i] != tt.wantCats[i] {
					t.Errorf("Categories()[%d] = %q", i, cats[i])
				}
			}
		})
	}
}

func TestMapping_Lookups(t *testing.T) {
	m, err := ParseMapping(strings.NewReader("com.a;A;Social\ncom.c;;\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cat, ok := m.Category("com.a"); !ok || cat != "Social" {
		t.Errorf("Category(com.a) = %q, %v", cat, ok)
	}
	if _, ok := m.Category("com.c"); ok {
		t.Error("uncategorized app should not report a category")
	}
	if _, ok := m.Category("com.z"); ok {
		t.Error("unlisted app should not report a category")
	}
	if !m.Contains("com.c") || m.Contains("com.z") {
		t.Error("Contains mismatch")
	}
	if m.DisplayName("com.a") != "A" || m.DisplayName("com.c") != "com.c" {
		t.Error("DisplayName mismatch")
	}
	if names := m.Names(); len(names) != 2 || names[0] != "com.a" {
		t.Errorf("Names() = %v", names)
	}

	var nilMap *Mapping
	if nilMap.Contains("x") || nilMap.Len() != 0 || nilMap.DisplayName("x") != "x" {
		t.Error("nil mapping should map nothing")
	}
}

func TestReadMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.csv")
	if err := os.WriteFile(path, []byte("com.a;A;Social\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	m, err := ReadMapping(path)
	if err != nil {
		t.Fatalf("ReadMapping failed: %v", err)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d", m.Len())
	}
	if _, err := ReadMapping(path + ".missing"); err == nil {
		t.Error("expected error for missing mapping")
	}
}
