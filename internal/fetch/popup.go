package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/umu-launcher/umu-setup/internal/messages"
)

// EnvZenity enables the zenity progress popup when set to 1.
const EnvZenity = "UMU_ZENITY"

// Popup downloads a URL to dest while showing a progress indicator.
// It returns the exit code of the external tool; a non-zero code means the caller should fall back.
type Popup interface {
	Run(ctx context.Context, rawURL string, dest string, message string) (int, error)
}

// ZenityPopup downloads with curl and pipes its output into a pulsating zenity progress dialog.
type ZenityPopup struct {
	// Curl and Zenity default to the binaries found on PATH.
	Curl   string
	Zenity string
}

// Run executes curl and zenity. A missing binary returns -1 with the lookup error.
// The code returned is curl's when it failed, otherwise zenity's.
func (p ZenityPopup) Run(ctx context.Context, rawURL string, dest string, message string) (int, error) {
	curlBin, err := resolveBinary(p.Curl, "curl")
	if err != nil {
		return -1, err
	}
	zenityBin, err := resolveBinary(p.Zenity, "zenity")
	if err != nil {
		return -1, err
	}

	r, w, err := os.Pipe()
	if err != nil {
		return -1, fmt.Errorf(messages.FetchPopupPipeFmt, curlBin, zenityBin, err)
	}

	//nolint:gosec // G204: url is built from fixed host and manifest version
	curl := exec.CommandContext(ctx, curlBin, "-L", "--fail", "--silent", "--show-error", "-o", dest, rawURL)
	curl.Stdout = w
	zenity := exec.CommandContext(ctx, zenityBin,
		"--progress", "--auto-close", "--pulsate", "--no-cancel",
		"--title", "umu", "--text", message,
	)
	zenity.Stdin = r

	if err := zenity.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		return -1, fmt.Errorf(messages.FetchPopupStartFmt, zenityBin, err)
	}
	if err := curl.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		_ = zenity.Process.Kill()
		_ = zenity.Wait()
		return -1, fmt.Errorf(messages.FetchPopupStartFmt, curlBin, err)
	}
	// The children hold their own descriptors; closing ours lets zenity see EOF when curl exits.
	_ = r.Close()
	_ = w.Close()

	curlErr := curl.Wait()
	zenityErr := zenity.Wait()
	if code := exitCode(curlErr); code != 0 {
		return code, nil
	}
	return exitCode(zenityErr), nil
}

func resolveBinary(configured string, name string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	return exec.LookPath(name)
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return code
		}
	}
	return 1
}
