//go:build linux

package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/leosat/MMVJ/internal/config"
)

const mouseOnlyDoc = `
mouse_devices:
  ball:
    match_name_regex: "NoSuchDevice"
    controls:
      x: REL_X
`

func writeConfig(t *testing.T, path, doc string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestEngine(t *testing.T, doc string) *Engine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, doc)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	e := New(path, zerolog.Nop(), clock.NewMock())
	if err := e.Start(cfg); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { e.rev.closeAll() })
	return e
}

// An invalid configuration never replaces the active revision.
func TestInvalidReloadKeepsActiveRevision(t *testing.T) {
	e := newTestEngine(t, mouseOnlyDoc)
	active := e.rev

	writeConfig(t, e.cfgPath, "global: { update_rate: [broken\n")
	if e.doReload() {
		t.Fatal("reload of malformed config reported success")
	}
	if e.rev != active {
		t.Error("malformed config replaced the active revision")
	}

	writeConfig(t, e.cfgPath, "global: { update_rate: -4 }\n")
	if e.doReload() {
		t.Fatal("reload of semantically invalid config reported success")
	}
	if e.rev != active {
		t.Error("invalid config replaced the active revision")
	}

	// The next valid write is accepted.
	writeConfig(t, e.cfgPath, mouseOnlyDoc)
	if !e.doReload() {
		t.Fatal("valid config after invalid writes was rejected")
	}
}

// An identical reload keeps the input adapters alive instead of rebuilding
// them.
func TestIdenticalReloadReusesAdapters(t *testing.T) {
	e := newTestEngine(t, mouseOnlyDoc)
	before := e.rev.mice["ball"]
	if before == nil {
		t.Fatal("adapter missing after start")
	}

	if !e.doReload() {
		t.Fatal("identical reload rejected")
	}
	if e.rev.mice["ball"] != before {
		t.Error("identical reload rebuilt the pointer adapter")
	}
}

// A changed device declaration rebuilds only that adapter.
func TestChangedRegexRebuildsAdapter(t *testing.T) {
	e := newTestEngine(t, mouseOnlyDoc)
	before := e.rev.mice["ball"]

	writeConfig(t, e.cfgPath, `
mouse_devices:
  ball:
    match_name_regex: "OtherDevice"
    controls:
      x: REL_X
`)
	if !e.doReload() {
		t.Fatal("reload rejected")
	}
	if e.rev.mice["ball"] == before {
		t.Error("changed regex did not rebuild the adapter")
	}
}

// Reload changing the update rate swaps the revision period.
func TestReloadChangesPeriod(t *testing.T) {
	e := newTestEngine(t, mouseOnlyDoc)
	writeConfig(t, e.cfgPath, "global: { update_rate: 2000 }\n"+mouseOnlyDoc)
	if !e.doReload() {
		t.Fatal("reload rejected")
	}
	if got := e.rev.Period; got.Microseconds() != 500 {
		t.Errorf("period after reload = %v, want 500µs (2000 Hz)", got)
	}
}
