package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBar_KnownTotal(t *testing.T) {
	var buf bytes.Buffer
	bar := NewBar(&buf, "steamrt3")
	clock := time.Unix(0, 0)
	bar.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	bar.Start(2 * bytesPerMiB)
	bar.Advance(bytesPerMiB)
	bar.Advance(bytesPerMiB)
	bar.Finish()

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\rsteamrt3 "))
	assert.Contains(t, out, "1.0/2.0 MiB")
	assert.Contains(t, out, "2.0/2.0 MiB")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestBar_UnknownTotal(t *testing.T) {
	var buf bytes.Buffer
	bar := NewBar(&buf, "steamrt3")

	bar.Start(-1)
	bar.Advance(bytesPerMiB / 2)
	bar.Finish()

	assert.Contains(t, buf.String(), "steamrt3 0.5 MiB")
	assert.NotContains(t, buf.String(), "/")
}

func TestBar_ThrottlesRedraws(t *testing.T) {
	var buf bytes.Buffer
	bar := NewBar(&buf, "x")
	fixed := time.Unix(100, 0)
	bar.now = func() time.Time { return fixed }

	bar.Start(-1)
	for i := 0; i < 10; i++ {
		bar.Advance(1)
	}

	// One draw from Start and one from the first Advance.
	assert.Equal(t, 2, strings.Count(buf.String(), "\r"))
}
