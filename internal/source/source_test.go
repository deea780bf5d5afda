package source_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"orgcal/internal/fullcalendar"
	"orgcal/internal/model"
	"orgcal/internal/source"
)

const work = `* TODO Write report
  DEADLINE: <2022-07-25 Mon>
`

const home = `* Groceries
  SCHEDULED: <2022-07-26 Tue 10:00>
* Garden
  :LOGBOOK:
  CLOCK: [2022-07-18 Mon 15:54]--[2022-07-18 Mon 17:07] =>  1:13
  :END:
`

func newFS(t *testing.T, files map[string]string) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	for name, body := range files {
		if err := util.WriteFile(fs, name, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return fs
}

func TestLoadFile(t *testing.T) {
	fs := newFS(t, map[string]string{"notes/work.org": work})
	doc, err := source.NewLoader(fs).LoadFile("notes/work.org")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if doc.Label != "work" || doc.Path != "notes/work.org" {
		t.Errorf("doc = %+v", doc)
	}
	if len(doc.Org.Headlines) != 1 {
		t.Errorf("headlines = %d, want 1", len(doc.Org.Headlines))
	}
}

func TestLoadFileErrors(t *testing.T) {
	fs := newFS(t, map[string]string{
		"bad.org":    "* Head\x00line\n",
		"latin1.org": "* caf\xe9\n",
	})
	l := source.NewLoader(fs)

	tests := []struct {
		path string
		kind error
	}{
		{"missing.org", source.ErrNotFound},
		{"bad.org", source.ErrNotParseable},
		{"latin1.org", source.ErrNotParseable},
	}
	for _, tt := range tests {
		_, err := l.LoadFile(tt.path)
		if !errors.Is(err, tt.kind) {
			t.Errorf("LoadFile(%s) error = %v, want %v", tt.path, err, tt.kind)
			continue
		}
		var se *source.Error
		if !errors.As(err, &se) || se.Path != tt.path {
			t.Errorf("LoadFile(%s): error %v does not carry the path", tt.path, err)
		}
	}
}

func TestLoadDirSortedNonRecursive(t *testing.T) {
	fs := newFS(t, map[string]string{
		"notes/b.org":       home,
		"notes/a.org":       work,
		"notes/readme.txt":  "not org",
		"notes/sub/c.org":   work,
		"notes/archive.org": "",
	})
	docs, err := source.NewLoader(fs).LoadDir("notes")
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	var labels []string
	for _, d := range docs {
		labels = append(labels, d.Label)
	}
	want := []string{"a", "archive", "b"}
	if len(labels) != len(want) {
		t.Fatalf("labels = %v, want %v", labels, want)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("labels = %v, want %v", labels, want)
			break
		}
	}
}

func TestLoadAllAbortsByDefault(t *testing.T) {
	fs := newFS(t, map[string]string{
		"a.org": work,
		"b.org": "\x00",
	})
	_, err := source.NewLoader(fs).LoadAll([]string{"a.org", "b.org"})
	if !errors.Is(err, source.ErrNotParseable) {
		t.Fatalf("LoadAll error = %v, want ErrNotParseable", err)
	}
	if got := source.Kind(err); got != "not_parseable" {
		t.Errorf("Kind = %q", got)
	}
}

func TestLoadAllKeepGoing(t *testing.T) {
	fs := newFS(t, map[string]string{
		"a.org":       work,
		"b.org":       "\x00",
		"dir/c.org":   home,
		"dir/d.org":   work,
		"dir/x/e.org": work,
	})
	l := source.NewLoader(fs, source.WithKeepGoing(true))
	docs, err := l.LoadAll([]string{"a.org", "b.org", "missing.org", "dir"})
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	var paths []string
	for _, d := range docs {
		paths = append(paths, d.Path)
	}
	if len(paths) != 3 || paths[0] != "a.org" || paths[1] != "dir/c.org" || paths[2] != "dir/d.org" {
		t.Errorf("paths = %v", paths)
	}
}

func TestEventsStampPaths(t *testing.T) {
	fs := newFS(t, map[string]string{"work.org": work, "home.org": home})
	docs, err := source.NewLoader(fs).LoadAll([]string{"work.org", "home.org"})
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	opts := fullcalendar.Options{Now: model.DateTime(2022, time.July, 20, 12, 0, 0)}

	planned := source.Events(docs, fullcalendar.ModePlanning, opts)
	if len(planned) != 2 {
		t.Fatalf("planning events = %d, want 2", len(planned))
	}
	if *planned[0].FilePath != "work.org" || planned[0].Title != "DL: TODO Write report" {
		t.Errorf("first event = %+v", planned[0])
	}
	if *planned[1].FilePath != "home.org" || planned[1].Title != "SCL: Groceries" {
		t.Errorf("second event = %+v", planned[1])
	}

	all := source.Events(docs, fullcalendar.ModeAll, opts)
	if len(all) != 3 || all[2].Title != "Garden" || *all[2].FilePath != "home.org" {
		t.Errorf("all events = %+v", all)
	}
}

func TestNilFilesystemReadsHost(t *testing.T) {
	path := filepath.Join(t.TempDir(), "work.org")
	if err := os.WriteFile(path, []byte(work), 0o644); err != nil {
		t.Fatal(err)
	}
	l := source.NewLoader(nil)
	doc, err := l.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if doc.Label != "work" || len(doc.Org.Headlines) != 1 {
		t.Errorf("doc = %+v", doc)
	}
	docs, err := l.LoadDir(filepath.Dir(path))
	if err != nil || len(docs) != 1 {
		t.Errorf("LoadDir = %d docs, %v", len(docs), err)
	}
}

func TestHostPathsAboveWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "work.org"), []byte(work), 0o644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	t.Chdir(sub)

	docs, err := source.NewLoader(nil).LoadAll([]string{"../work.org", ".."})
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(docs) != 2 || docs[0].Path != "../work.org" || docs[1].Path != filepath.Join("..", "work.org") {
		t.Errorf("docs = %+v", docs)
	}
}
