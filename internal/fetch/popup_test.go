package fetch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/umu-launcher/umu-setup/internal/testutil"
)

func TestZenityPopup_Success(t *testing.T) {
	dir := t.TempDir()
	src := testutil.WriteFile(t, dir, "payload", "archive")
	popup := ZenityPopup{
		Curl:   testutil.WriteFakeCurl(t, dir, src, 0),
		Zenity: testutil.WriteFakeZenity(t, dir, 0),
	}
	dest := filepath.Join(dir, "out.tar.xz")

	code, err := popup.Run(context.Background(), "https://example.invalid/a.tar.xz", dest, "Downloading")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "archive" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestZenityPopup_CurlFailureWins(t *testing.T) {
	dir := t.TempDir()
	src := testutil.WriteFile(t, dir, "payload", "partial")
	popup := ZenityPopup{
		Curl:   testutil.WriteFakeCurl(t, dir, src, 22),
		Zenity: testutil.WriteFakeZenity(t, dir, 0),
	}

	code, err := popup.Run(context.Background(), "https://example.invalid/a", filepath.Join(dir, "out"), "Downloading")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if code != 22 {
		t.Fatalf("expected curl exit code 22, got %d", code)
	}
}

func TestZenityPopup_ZenityFailure(t *testing.T) {
	dir := t.TempDir()
	src := testutil.WriteFile(t, dir, "payload", "archive")
	popup := ZenityPopup{
		Curl:   testutil.WriteFakeCurl(t, dir, src, 0),
		Zenity: testutil.WriteFakeZenity(t, dir, 5),
	}

	code, err := popup.Run(context.Background(), "https://example.invalid/a", filepath.Join(dir, "out"), "Downloading")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if code != 5 {
		t.Fatalf("expected zenity exit code 5, got %d", code)
	}
}

func TestZenityPopup_MissingBinary(t *testing.T) {
	dir := t.TempDir()
	popup := ZenityPopup{
		Curl:   filepath.Join(dir, "no-such-curl"),
		Zenity: testutil.WriteFakeZenity(t, dir, 0),
	}

	code, err := popup.Run(context.Background(), "https://example.invalid/a", filepath.Join(dir, "out"), "Downloading")
	if err == nil {
		t.Fatalf("expected error")
	}
	if code != -1 {
		t.Fatalf("expected -1, got %d", code)
	}
}

func TestZenityPopup_LooksUpPath(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	code, err := ZenityPopup{}.Run(context.Background(), "https://example.invalid/a", filepath.Join(t.TempDir(), "out"), "x")
	if err == nil || code != -1 {
		t.Fatalf("expected lookup failure, got code %d err %v", code, err)
	}
}
