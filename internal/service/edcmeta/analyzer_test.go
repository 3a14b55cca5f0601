package edcmeta

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func writeMetadataCSV(t *testing.T, dir, name, view string) string {
	t.Helper()
	content := "viewname,fieldname,label,type\n" +
		view + ",SUBJID,Subject Identifier,text\n" +
		view + ",SITEID,Site Identifier,text\n"
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestLoadCSV(t *testing.T) {
	analyzer, err := NewAnalyzer()
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}
	defer analyzer.Close()

	path := writeMetadataCSV(t, t.TempDir(), "edc.csv", "V_STUDY_DM")
	catalog, err := analyzer.LoadCSV(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadCSV() error = %v", err)
	}
	views := catalog.Views()
	if len(views) != 1 || views[0] != "V_STUDY_DM" {
		t.Errorf("Views() = %v, want [V_STUDY_DM]", views)
	}
	vars := catalog.Variables("V_STUDY_DM")
	if len(vars) != 2 {
		t.Fatalf("Variables() returned %d entries, want 2", len(vars))
	}
	if vars[0].Field != "SITEID" || vars[1].Field != "SUBJID" {
		t.Errorf("Variables() = %v, not sorted by field", vars)
	}
}

func TestLoadCSVConcurrentSessions(t *testing.T) {
	analyzer, err := NewAnalyzer()
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}
	defer analyzer.Close()

	dir := t.TempDir()
	paths := []string{
		writeMetadataCSV(t, dir, "a.csv", "V_STUDY_DM"),
		writeMetadataCSV(t, dir, "b.csv", "V_STUDY_AE"),
	}
	wantView := []string{"V_STUDY_DM", "V_STUDY_AE"}

	const loads = 40
	errs := make([]error, loads)
	views := make([][]string, loads)

	var wg sync.WaitGroup
	for i := 0; i < loads; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			catalog, err := analyzer.LoadCSV(context.Background(), paths[i%2])
			if err != nil {
				errs[i] = err
				return
			}
			views[i] = catalog.Views()
		}(i)
	}
	wg.Wait()

	for i := 0; i < loads; i++ {
		if errs[i] != nil {
			t.Fatalf("load %d: LoadCSV() error = %v", i, errs[i])
		}
		if len(views[i]) != 1 || views[i][0] != wantView[i%2] {
			t.Errorf("load %d: Views() = %v, want [%s]", i, views[i], wantView[i%2])
		}
	}
}

func TestResolveColumn(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		target  string
		want    string
		ok      bool
	}{
		{name: "standard names", columns: []string{"viewname", "fieldname", "label"}, target: "view", want: "viewname", ok: true},
		{name: "alternate field name", columns: []string{"viewname", "varname"}, target: "field", want: "varname", ok: true},
		{name: "case insensitive", columns: []string{"ViewName", "FieldName"}, target: "view", want: "ViewName", ok: true},
		{name: "variant priority", columns: []string{"varname", "fieldname"}, target: "field", want: "fieldname", ok: true},
		{name: "missing", columns: []string{"foo", "bar"}, target: "view", want: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := resolveColumn(tt.columns, tt.target)
			if got != tt.want || ok != tt.ok {
				t.Errorf("resolveColumn(%v, %q) = (%q, %v), want (%q, %v)",
					tt.columns, tt.target, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestQuoteIdent(t *testing.T) {
	if got := quoteIdent("fieldname"); got != `"fieldname"` {
		t.Errorf("quoteIdent() = %s", got)
	}
	if got := quoteIdent(`odd"name`); got != `"odd""name"` {
		t.Errorf("quoteIdent() = %s", got)
	}
}
