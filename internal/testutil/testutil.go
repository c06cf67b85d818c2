// Package testutil holds fixtures shared by package tests: shell stubs, runtime archives, and manifests.
package testutil

import (
	"archive/tar"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/ulikunitz/xz"
)

// WriteStubWithExit writes an executable shell stub that exits with the provided code.
// t is the active test; dir is the output directory; name is the executable file name.
func WriteStubWithExit(t *testing.T, dir string, name string, exitCode int) string {
	t.Helper()
	return WriteScript(t, dir, name, fmt.Sprintf("exit %d\n", exitCode))
}

// WriteScript writes an executable /bin/sh script with body and returns its path.
func WriteScript(t *testing.T, dir string, name string, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := []byte("#!/bin/sh\n" + body)
	if err := os.WriteFile(path, content, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

// WriteFakeCurl writes a curl stand-in that copies src to the path given after -o and exits with exitCode.
// The copy happens even on a non-zero exit so callers can check partial files are discarded.
func WriteFakeCurl(t *testing.T, dir string, src string, exitCode int) string {
	t.Helper()
	body := fmt.Sprintf(`out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then out="$2"; shift; fi
  shift
done
cp %q "$out"
exit %d
`, src, exitCode)
	return WriteScript(t, dir, "curl", body)
}

// WriteFakeZenity writes a zenity stand-in that drains stdin and exits with exitCode.
func WriteFakeZenity(t *testing.T, dir string, exitCode int) string {
	t.Helper()
	return WriteScript(t, dir, "zenity", fmt.Sprintf("cat >/dev/null\nexit %d\n", exitCode))
}

// Entry describes one archive member. A trailing "/" in Name makes a directory; Link makes a symlink
// and HardLink a hard link to another member.
type Entry struct {
	Name     string
	Body     string
	Link     string
	HardLink string
	Mode     int64
}

// TarXZ builds an xz-compressed tar archive holding entries in the given order.
func TarXZ(t *testing.T, entries []Entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("xz writer: %v", err)
	}
	tw := tar.NewWriter(xw)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.Name, Mode: e.Mode}
		switch {
		case e.HardLink != "":
			hdr.Typeflag = tar.TypeLink
			hdr.Linkname = e.HardLink
			if hdr.Mode == 0 {
				hdr.Mode = 0o644
			}
		case e.Link != "":
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = e.Link
			if hdr.Mode == 0 {
				hdr.Mode = 0o777
			}
		case strings.HasSuffix(e.Name, "/"):
			hdr.Typeflag = tar.TypeDir
			if hdr.Mode == 0 {
				hdr.Mode = 0o755
			}
		default:
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(e.Body))
			if hdr.Mode == 0 {
				hdr.Mode = 0o644
			}
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("tar header %s: %v", e.Name, err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(e.Body)); err != nil {
				t.Fatalf("tar body %s: %v", e.Name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	if err := xw.Close(); err != nil {
		t.Fatalf("xz close: %v", err)
	}
	return buf.Bytes()
}

// RuntimeArchive builds a SteamLinuxRuntime_sniper archive laid out like the upstream image for version.
// marker is written into every file so tests can tell fresh extractions apart.
func RuntimeArchive(t *testing.T, version string, marker string) []byte {
	t.Helper()
	root := "SteamLinuxRuntime_sniper/"
	entries := []Entry{
		{Name: root},
		{Name: root + "_v2-entry-point", Body: "#!/bin/sh\n# " + marker + "\n", Mode: 0o755},
		{Name: root + "VERSIONS.txt", Body: version + "\n" + marker + "\n"},
		{Name: root + "pressure-vessel/"},
		{Name: root + "pressure-vessel/bin/"},
		{Name: root + "pressure-vessel/bin/pv-wrap", Body: marker, Mode: 0o755},
		{Name: root + "sniper_platform_" + version + "/"},
		{Name: root + "sniper_platform_" + version + "/files/"},
		{Name: root + "sniper_platform_" + version + "/files/lib", Body: marker},
		{Name: "unrelated/readme.txt", Body: "not part of the runtime"},
	}
	return TarXZ(t, entries)
}

// ManifestJSON renders a umu_version.json document for the four components.
func ManifestJSON(reaper string, runtimePlatform string, launcher string, runner string) string {
	return fmt.Sprintf(`{
    "umu": {
        "versions": {
            "reaper": %q,
            "runtime_platform": %q,
            "launcher": %q,
            "runner": %q
        }
    }
}
`, reaper, runtimePlatform, launcher, runner)
}

// WriteFile writes content to dir/name, creating parent directories.
func WriteFile(t *testing.T, dir string, name string, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// ListDir returns the sorted entry names of dir.
func ListDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}
