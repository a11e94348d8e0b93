package anchorpoint

import (
	"context"
	"testing"
	"time"

	"github.com/Tanishq1030/Anchor/internal/config"
	"github.com/Tanishq1030/Anchor/internal/corpus"
	apperrors "github.com/Tanishq1030/Anchor/internal/errors"
	"github.com/Tanishq1030/Anchor/internal/logging"
)

func testExtractor(t *testing.T) *Extractor {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.RepoRoot = t.TempDir()
	return NewExtractor(cfg, logging.NewDiscardLogger())
}

func rev(id, message, body, docstring string, daysAgo int) corpus.Revision {
	return corpus.Revision{
		ID:             id,
		Author:         "dev",
		Timestamp:      time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -daysAgo),
		Message:        message,
		FilesTouched:   2,
		ContainsSymbol: body != "",
		SymbolBody:     body,
		Docstring:      docstring,
	}
}

func TestExtractSkipsSpikeCommits(t *testing.T) {
	e := testExtractor(t)
	sym := corpus.Symbol{Name: "save", QualifiedName: "models.py:save"}

	body := "def save(self):\n    self.validate()\n    self.db.commit()\n    return True"
	history := []corpus.Revision{
		rev("aaa", "WIP: sketch save path", body, "", 30),
		rev("bbb", "Add durable save", body, "Persist the record.", 20),
		rev("ccc", "Refactor save", body, "", 10),
	}

	log, err := e.Extract(context.Background(), sym, history)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got := log.Current().AnchorRevisionID; got != "bbb" {
		t.Errorf("anchor revision = %q, want bbb", got)
	}
	if log.Current().IntentDescription != "Persist the record." {
		t.Errorf("intent = %q, want docstring", log.Current().IntentDescription)
	}
}

func TestExtractAnchorsAfterSpikeIntroduction(t *testing.T) {
	e := testExtractor(t)
	sym := corpus.Symbol{Name: "save", QualifiedName: "models.py:save"}

	// History shaped the way GitCorpus materializes it: the spike
	// introduction and the next qualifying revision carry bodies, later
	// revisions are metadata only.
	body := "def save(self):\n    self.db.commit()\n    return True"
	metaOnly := rev("ccc", "Refactor save", "", "", 10)
	metaOnly.ContainsSymbol = true
	history := []corpus.Revision{
		rev("aaa", "wip: add save", body, "Persist the user record.", 30),
		rev("bbb", "Refine save persistence", body, "Persist the user record.", 20),
		metaOnly,
	}

	log, err := e.Extract(context.Background(), sym, history)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got := log.Current().AnchorRevisionID; got != "bbb" {
		t.Errorf("anchor revision = %q, want bbb", got)
	}
}

func TestExtractSkipsMassReorganizations(t *testing.T) {
	body := "def f():\n    x = 1\n    return x"
	r := rev("aaa", "Move everything", body, "", 5)
	r.FilesTouched = 120
	if !IsSpikeRevision(r) {
		t.Fatal("commit touching 120 files should be a spike revision")
	}
}

func TestExtractRequiresNonTrivialBody(t *testing.T) {
	e := testExtractor(t)
	sym := corpus.Symbol{Name: "noop", QualifiedName: "util.py:noop"}

	history := []corpus.Revision{
		rev("aaa", "Add placeholder", "def noop(): pass", "", 10),
	}

	_, err := e.Extract(context.Background(), sym, history)
	if !apperrors.IsCode(err, apperrors.AnchorNotFound) {
		t.Fatalf("err = %v, want ANCHOR_NOT_FOUND", err)
	}
}

func TestExtractTrivialBodyWithDocstringAnchors(t *testing.T) {
	e := testExtractor(t)
	sym := corpus.Symbol{Name: "noop", QualifiedName: "util.py:noop"}

	history := []corpus.Revision{
		rev("aaa", "Add documented stub", "def noop(): pass", "Intentionally does nothing.", 10),
		rev("bbb", "Later change", "def noop(): pass", "", 5),
	}

	log, err := e.Extract(context.Background(), sym, history)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if log.Current().AnchorRevisionID != "aaa" {
		t.Errorf("anchor revision = %q, want aaa", log.Current().AnchorRevisionID)
	}
}

func TestShortHistoryDowngradesConfidence(t *testing.T) {
	e := testExtractor(t)
	sym := corpus.Symbol{Name: "f", QualifiedName: "a.py:f"}

	history := []corpus.Revision{
		rev("aaa", "Add f", "def f():\n    a = 1\n    return a", "Well documented.", 10),
	}

	log, err := e.Extract(context.Background(), sym, history)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got := log.Current().Confidence; got != ConfidenceLow {
		t.Errorf("confidence = %q, want low for single-revision history", got)
	}
	if got := log.Current().ConfidenceReason; got != string(apperrors.InsufficientEvidence) {
		t.Errorf("confidence reason = %q, want %q", got, apperrors.InsufficientEvidence)
	}
}

func TestGradeConfidence(t *testing.T) {
	t.Parallel()
	thresholds := config.DefaultConfig().Thresholds

	cases := []struct {
		name      string
		docstring string
		revisions int
		want      Confidence
	}{
		{"doc and deep history", "Documented.", 60, ConfidenceHigh},
		{"doc only", "Documented.", 5, ConfidenceMedium},
		{"deep history only", "", 60, ConfidenceMedium},
		{"neither", "", 5, ConfidenceLow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := corpus.Revision{Docstring: tc.docstring}
			if got := gradeConfidence(r, tc.revisions, thresholds); got != tc.want {
				t.Errorf("gradeConfidence = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDeriveAssumptions(t *testing.T) {
	body := "def save(self):\n" +
		"    with open(self.path, 'w') as f:\n" +
		"        f.write(self.render())\n" +
		"    self.notify_watchers()\n" +
		"    self.notify_watchers()\n"

	got := DeriveAssumptions(body)

	signals := map[string]bool{}
	for _, a := range got {
		signals[a.Signal] = true
	}
	for _, want := range []string{"file-io", "rendering", "notify_watchers"} {
		if !signals[want] {
			t.Errorf("missing assumption signal %q in %v", want, got)
		}
	}

	count := 0
	for _, a := range got {
		if a.Signal == "notify_watchers" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("collaborator assumption duplicated: %d occurrences", count)
	}
}

func TestRedefinitionAppendsEpoch(t *testing.T) {
	e := testExtractor(t)
	sym := corpus.Symbol{Name: "save", QualifiedName: "models.py:save"}

	body := "def save(self):\n    self.validate()\n    self.db.commit()"
	history := []corpus.Revision{
		rev("aaa", "Add save", body, "Persist the record.", 30),
		rev("bbb", "Tweak", body, "", 20),
		rev("ccc", "Tweak again", body, "", 10),
	}

	if err := e.Registry().Append(Redefinition{
		Symbol:    "models.py:save",
		Timestamp: time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC),
		Intent:    "Persist the record and emit an audit event.",
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	log, err := e.Extract(context.Background(), sym, history)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(log.Epochs()) != 2 {
		t.Fatalf("epochs = %d, want 2", len(log.Epochs()))
	}
	current := log.Current()
	if !current.IsManualRedefinition {
		t.Error("current epoch should be the manual redefinition")
	}
	if current.IntentDescription != "Persist the record and emit an audit event." {
		t.Errorf("intent = %q", current.IntentDescription)
	}
}

func TestRegistryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	logger := logging.NewDiscardLogger()

	r := LoadRegistry(dir, logger)
	if err := r.Append(Redefinition{Symbol: "a.py:f", Intent: "New intent"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	reloaded := LoadRegistry(dir, logger)
	got := reloaded.For("a.py:f")
	if len(got) != 1 {
		t.Fatalf("For = %d entries, want 1", len(got))
	}
	if got[0].Intent != "New intent" {
		t.Errorf("intent = %q", got[0].Intent)
	}
}
