package setup

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umu-launcher/umu-setup/internal/install"
	"github.com/umu-launcher/umu-setup/internal/manifest"
	"github.com/umu-launcher/umu-setup/internal/testutil"
)

// fakeInstaller lays out a runtime platform the way the real installer would.
type fakeInstaller struct {
	mu    sync.Mutex
	calls int
	err   error
	// seen records which paths existed in the install dir when Install ran.
	seen []string
}

func (f *fakeInstaller) Install(_ context.Context, installDir string, m manifest.Manifest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	entries, _ := os.ReadDir(installDir)
	for _, e := range entries {
		f.seen = append(f.seen, e.Name())
	}
	if f.err != nil {
		return f.err
	}
	populateRuntime(installDir, m.UMU.Versions.RuntimePlatform, "fake")
	return nil
}

func populateRuntime(dir string, version string, marker string) {
	_ = os.MkdirAll(filepath.Join(dir, "sniper_platform_"+version, "files"), 0o755)
	_ = os.WriteFile(filepath.Join(dir, "sniper_platform_"+version, "files", "lib"), []byte(marker), 0o644)
	_ = os.MkdirAll(filepath.Join(dir, MarkerDir, "bin"), 0o755)
	_ = os.WriteFile(filepath.Join(dir, MarkerDir, "bin", "pv-wrap"), []byte(marker), 0o755)
	_ = os.WriteFile(filepath.Join(dir, "umu"), []byte(marker), 0o755)
}

type fixture struct {
	root      string
	local     string
	installer *fakeInstaller
	engine    *Engine
}

func newFixture(t *testing.T, ref string) *fixture {
	t.Helper()
	f := &fixture{
		root:      t.TempDir(),
		local:     filepath.Join(t.TempDir(), "umu"),
		installer: &fakeInstaller{},
	}
	testutil.WriteFile(t, f.root, manifest.FileName, ref)
	f.engine = New(Options{Installer: f.installer})
	return f
}

// existing populates the local install with a complete runtime and the given manifest text.
func (f *fixture) existing(t *testing.T, runtimeVersion string, localManifest string) {
	t.Helper()
	populateRuntime(f.local, runtimeVersion, "old")
	testutil.WriteFile(t, f.local, manifest.FileName, localManifest)
}

func (f *fixture) localManifest(t *testing.T) manifest.Manifest {
	t.Helper()
	m, err := manifest.Load(manifest.RealSystem{}, f.local)
	require.NoError(t, err)
	return m
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestSetup_FreshInstallCopiesManifestAndInstalls(t *testing.T) {
	for _, name := range []string{"missing", "empty"} {
		t.Run(name, func(t *testing.T) {
			ref := testutil.ManifestJSON("1.0", "3.0.1", "0.1", "0.1")
			f := newFixture(t, ref)
			if name == "empty" {
				require.NoError(t, os.MkdirAll(f.local, 0o755))
			}

			require.NoError(t, f.engine.Setup(context.Background(), f.root, f.local))

			assert.Equal(t, 1, f.installer.calls)
			assert.Equal(t, ref, readFile(t, filepath.Join(f.local, manifest.FileName)))
		})
	}
}

func TestSetup_MissingReferenceManifest(t *testing.T) {
	engine := New(Options{Installer: &fakeInstaller{}})
	err := engine.Setup(context.Background(), t.TempDir(), t.TempDir())
	assert.ErrorIs(t, err, manifest.ErrNotFound)
}

func TestSetup_MalformedLocalManifest(t *testing.T) {
	f := newFixture(t, testutil.ManifestJSON("1", "3.0.1", "1", "1"))
	f.existing(t, "3.0.1", `{"umu": {}}`)

	err := f.engine.Setup(context.Background(), f.root, f.local)
	assert.ErrorIs(t, err, manifest.ErrMalformed)
	assert.Zero(t, f.installer.calls)
}

func TestUpdate_AllEqualLeavesManifestUntouched(t *testing.T) {
	ref := testutil.ManifestJSON("1.0", "3.0.1", "0.1", "0.1")
	f := newFixture(t, ref)
	// Different formatting and an extra key prove the file is not rewritten.
	localText := `{"umu":{"versions":{"reaper":"1.0","runtime_platform":"3.0.1","launcher":"0.1","runner":"0.1","extra":"x"}}}`
	f.existing(t, "3.0.1", localText)

	require.NoError(t, f.engine.Setup(context.Background(), f.root, f.local))

	assert.Equal(t, localText, readFile(t, filepath.Join(f.local, manifest.FileName)))
	assert.Zero(t, f.installer.calls)
	assert.Equal(t, "old", readFile(t, filepath.Join(f.local, "umu")))
}

func TestUpdate_RetagsSimpleComponentsOnly(t *testing.T) {
	tests := []struct {
		name      string
		component manifest.Component
	}{
		{name: "reaper", component: manifest.Reaper},
		{name: "launcher", component: manifest.Launcher},
		{name: "runner", component: manifest.Runner},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := manifest.Versions{Reaper: "r1", RuntimePlatform: "3.0.1", Launcher: "l1", Runner: "v1"}
			refVersions := base
			refVersions.Set(tt.component, "new")

			f := newFixture(t, testutil.ManifestJSON(refVersions.Reaper, refVersions.RuntimePlatform, refVersions.Launcher, refVersions.Runner))
			f.existing(t, "3.0.1", testutil.ManifestJSON(base.Reaper, base.RuntimePlatform, base.Launcher, base.Runner))

			require.NoError(t, f.engine.Setup(context.Background(), f.root, f.local))

			got := f.localManifest(t).UMU.Versions
			assert.Equal(t, refVersions, got)
			for _, c := range manifest.Components() {
				if c != tt.component {
					assert.Equal(t, base.Get(c), got.Get(c), "component %s changed", c)
				}
			}
			assert.Zero(t, f.installer.calls)
		})
	}
}

func TestUpdate_RunnerBumpWithoutFetch(t *testing.T) {
	f := newFixture(t, testutil.ManifestJSON("1", "3.0.1", "1", "v2"))
	f.existing(t, "3.0.1", testutil.ManifestJSON("1", "3.0.1", "1", "v1"))

	require.NoError(t, f.engine.Setup(context.Background(), f.root, f.local))

	assert.Equal(t, "v2", f.localManifest(t).UMU.Versions.Runner)
	assert.Zero(t, f.installer.calls)
}

func TestUpdate_MarkerMissingRemovesRuntimeDirBeforeRefetch(t *testing.T) {
	f := newFixture(t, testutil.ManifestJSON("1", "3.0.1", "1", "1"))
	f.existing(t, "3.0.1", testutil.ManifestJSON("1", "3.0.1", "1", "1"))
	require.NoError(t, os.RemoveAll(filepath.Join(f.local, MarkerDir)))

	require.NoError(t, f.engine.Setup(context.Background(), f.root, f.local))

	assert.Equal(t, 1, f.installer.calls)
	assert.NotContains(t, f.installer.seen, "sniper_platform_3.0.1")
	assert.Equal(t, "3.0.1", f.localManifest(t).UMU.Versions.RuntimePlatform)
	assert.Equal(t, "fake", readFile(t, filepath.Join(f.local, "sniper_platform_3.0.1", "files", "lib")))
}

func TestUpdate_RuntimeDirMissingRemovesMarker(t *testing.T) {
	f := newFixture(t, testutil.ManifestJSON("1", "3.0.1", "1", "1"))
	f.existing(t, "3.0.1", testutil.ManifestJSON("1", "3.0.1", "1", "1"))
	require.NoError(t, os.RemoveAll(filepath.Join(f.local, "sniper_platform_3.0.1")))

	require.NoError(t, f.engine.Setup(context.Background(), f.root, f.local))

	assert.Equal(t, 1, f.installer.calls)
	assert.NotContains(t, f.installer.seen, MarkerDir)
}

func TestUpdate_UpgradeReplacesRuntime(t *testing.T) {
	f := newFixture(t, testutil.ManifestJSON("1", "3.0.2", "1", "1"))
	f.existing(t, "3.0.1", testutil.ManifestJSON("1", "3.0.1", "1", "1"))

	require.NoError(t, f.engine.Setup(context.Background(), f.root, f.local))

	assert.Equal(t, 1, f.installer.calls)
	assert.NotContains(t, f.installer.seen, "sniper_platform_3.0.1")
	assert.NotContains(t, f.installer.seen, MarkerDir)
	assert.Equal(t, "3.0.2", f.localManifest(t).UMU.Versions.RuntimePlatform)
	assert.NoDirExists(t, filepath.Join(f.local, "sniper_platform_3.0.1"))
	assert.DirExists(t, filepath.Join(f.local, "sniper_platform_3.0.2"))
}

func TestUpdate_InstallFailureSkipsPersist(t *testing.T) {
	f := newFixture(t, testutil.ManifestJSON("2", "3.0.2", "1", "1"))
	localText := testutil.ManifestJSON("1", "3.0.1", "1", "1")
	f.existing(t, "3.0.1", localText)
	installErr := errors.New("download failed")
	f.installer.err = installErr

	err := f.engine.Setup(context.Background(), f.root, f.local)
	require.ErrorIs(t, err, installErr)
	assert.Contains(t, err.Error(), "runtime_platform 3.0.2")
	assert.Equal(t, localText, readFile(t, filepath.Join(f.local, manifest.FileName)))
}

func TestUpdate_RemoveFailureSkipsFetchAndPersist(t *testing.T) {
	f := newFixture(t, testutil.ManifestJSON("1", "3.0.2", "1", "1"))
	localText := testutil.ManifestJSON("1", "3.0.1", "1", "1")
	f.existing(t, "3.0.1", localText)
	removeErr := errors.New("busy")
	f.engine = New(Options{Installer: f.installer, System: failingRemoveSystem{err: removeErr}})

	err := f.engine.Setup(context.Background(), f.root, f.local)
	require.ErrorIs(t, err, removeErr)
	assert.Zero(t, f.installer.calls)
	assert.Equal(t, localText, readFile(t, filepath.Join(f.local, manifest.FileName)))
}

type failingRemoveSystem struct {
	RealSystem
	err error
}

func (s failingRemoveSystem) RemoveAll(string) error { return s.err }

func TestPlan_PicksFirstMatchingDirectoryInLexicalOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "b_platform_3.0"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a_platform_3.0"), 0o755))
	testutil.WriteFile(t, dir, "file_3.0", "not a directory")

	engine := New(Options{})
	got, err := engine.findRuntimeDir(dir, "3.0")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a_platform_3.0"), got)

	got, err = engine.findRuntimeDir(dir, "9.9")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPlan_FileNamedLikeRuntimeCountsAsMissing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, MarkerDir), 0o755))
	testutil.WriteFile(t, dir, "sniper_platform_3.0.1", "stray file")
	local := manifest.Manifest{UMU: manifest.Section{Versions: manifest.Versions{Reaper: "1", RuntimePlatform: "3.0.1", Launcher: "1", Runner: "1"}}}

	plan, err := New(Options{}).Plan(dir, local, local)
	require.NoError(t, err)
	require.Len(t, plan.Actions, 1)
	assert.Equal(t, KindRestore, plan.Actions[0].Kind)
	assert.Equal(t, []string{filepath.Join(dir, MarkerDir)}, plan.Actions[0].Remove)
}

func TestPlan_ActionKinds(t *testing.T) {
	dir := t.TempDir()
	populateRuntime(dir, "3.0.1", "x")
	engine := New(Options{})
	local := manifest.Manifest{UMU: manifest.Section{Versions: manifest.Versions{Reaper: "1", RuntimePlatform: "3.0.1", Launcher: "1", Runner: "1"}}}

	ref := local
	ref.UMU.Versions.RuntimePlatform = "3.0.2"
	ref.UMU.Versions.Launcher = "2"
	plan, err := engine.Plan(dir, ref, local)
	require.NoError(t, err)
	require.Len(t, plan.Actions, 2)
	assert.Equal(t, Action{Component: manifest.RuntimePlatform, Kind: KindUpgrade, From: "3.0.1", To: "3.0.2",
		Remove: []string{filepath.Join(dir, "sniper_platform_3.0.1"), filepath.Join(dir, MarkerDir)}}, plan.Actions[0])
	assert.Equal(t, Action{Component: manifest.Launcher, Kind: KindRetag, From: "1", To: "2"}, plan.Actions[1])
	assert.Equal(t, 1, plan.Refetches())

	plan, err = engine.Plan(dir, local, local)
	require.NoError(t, err)
	assert.True(t, plan.Empty())
	assert.DirExists(t, filepath.Join(dir, MarkerDir))
}

func TestCheck_DoesNotMutate(t *testing.T) {
	f := newFixture(t, testutil.ManifestJSON("1", "3.0.2", "1", "1"))
	report, err := f.engine.Check(f.root, f.local)
	require.NoError(t, err)
	assert.True(t, report.FreshInstall)
	assert.NoDirExists(t, f.local)

	localText := testutil.ManifestJSON("1", "3.0.1", "1", "1")
	f.existing(t, "3.0.1", localText)
	report, err = f.engine.Check(f.root, f.local)
	require.NoError(t, err)
	assert.False(t, report.FreshInstall)
	require.Len(t, report.Plan.Actions, 1)
	assert.Equal(t, KindUpgrade, report.Plan.Actions[0].Kind)
	assert.Equal(t, "3.0.1", report.Local.UMU.Versions.RuntimePlatform)
	assert.DirExists(t, filepath.Join(f.local, "sniper_platform_3.0.1"))
	assert.Equal(t, localText, readFile(t, filepath.Join(f.local, manifest.FileName)))
	assert.Zero(t, f.installer.calls)
}

// runtimeServer serves the runtime archive for version and counts requests.
func runtimeServer(t *testing.T, version string, marker string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	body := testutil.RuntimeArchive(t, version, marker)
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/images/"+version+"/"+install.ArchiveName) {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func realEngine(server *httptest.Server, tempDir string) *Engine {
	return New(Options{Installer: install.New(install.Options{BaseURL: server.URL, TempDir: tempDir})})
}

func TestSetup_EndToEndFreshInstall(t *testing.T) {
	server, hits := runtimeServer(t, "3.0.1", "first")
	root := t.TempDir()
	local := t.TempDir()
	ref := testutil.ManifestJSON("1.0", "3.0.1", "0.1", "0.1")
	testutil.WriteFile(t, root, manifest.FileName, ref)

	require.NoError(t, realEngine(server, t.TempDir()).Setup(context.Background(), root, local))

	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, ref, readFile(t, filepath.Join(local, manifest.FileName)))
	assert.FileExists(t, filepath.Join(local, install.EntryPointName))
	assert.NoFileExists(t, filepath.Join(local, install.EntryPoint))
	assert.DirExists(t, filepath.Join(local, "sniper_platform_3.0.1"))
	assert.DirExists(t, filepath.Join(local, MarkerDir))
}

func TestSetup_EndToEndRepairsMissingMarker(t *testing.T) {
	server, hits := runtimeServer(t, "3.0.1", "repaired")
	root := t.TempDir()
	local := t.TempDir()
	text := testutil.ManifestJSON("1.0", "3.0.1", "0.1", "0.1")
	testutil.WriteFile(t, root, manifest.FileName, text)
	testutil.WriteFile(t, local, manifest.FileName, text)
	populateRuntime(local, "3.0.1", "stale")
	require.NoError(t, os.RemoveAll(filepath.Join(local, MarkerDir)))

	require.NoError(t, realEngine(server, t.TempDir()).Setup(context.Background(), root, local))

	assert.Equal(t, int32(1), hits.Load())
	m, err := manifest.Load(manifest.RealSystem{}, local)
	require.NoError(t, err)
	assert.Equal(t, "3.0.1", m.UMU.Versions.RuntimePlatform)
	assert.Equal(t, "repaired", readFile(t, filepath.Join(local, "sniper_platform_3.0.1", "files", "lib")))
	assert.Contains(t, readFile(t, filepath.Join(local, install.EntryPointName)), "repaired")
	assert.DirExists(t, filepath.Join(local, MarkerDir))
}
