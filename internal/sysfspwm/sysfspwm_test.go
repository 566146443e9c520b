package sysfspwm

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopDelicious/viam-piezo/internal/tone"
)

// newTestChip lays out a fake pwmchip sysfs tree in a temp dir, with
// channel 0 already present as the kernel would create it on export.
func newTestChip(t *testing.T) (*Channel, string) {
	t.Helper()
	chip := t.TempDir()
	port := filepath.Join(chip, "pwm0")
	require.NoError(t, os.Mkdir(port, 0o755))
	for _, f := range []string{"period", "duty_cycle", "enable", "polarity"} {
		require.NoError(t, os.WriteFile(filepath.Join(port, f), nil, 0o644))
	}
	for _, f := range []string{"export", "unexport"} {
		require.NoError(t, os.WriteFile(filepath.Join(chip, f), nil, 0o644))
	}
	return New(chip, 0), chip
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestExportConfiguresChannelSilent(t *testing.T) {
	c, chip := newTestChip(t)
	require.NoError(t, c.Export())

	// 2068hz at half duty, the default tone behind the denoise pulse.
	assert.Equal(t, "483558", readFile(t, filepath.Join(chip, "pwm0", "period")))
	assert.Equal(t, "241779", readFile(t, filepath.Join(chip, "pwm0", "duty_cycle")))
	assert.Equal(t, "normal", readFile(t, filepath.Join(chip, "pwm0", "polarity")))
	assert.Equal(t, "0", readFile(t, filepath.Join(chip, "pwm0", "enable")))
	// Channel already existed, no export write needed.
	assert.Empty(t, readFile(t, filepath.Join(chip, "export")))
}

func TestExportWritesExportFileWhenChannelMissing(t *testing.T) {
	chip := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(chip, "export"), nil, 0o644))

	c := New(chip, 0)
	// The fake tree has no kernel behind it, so the channel files
	// never appear and configuring the tone fails.
	require.Error(t, c.Export())
	assert.Equal(t, "0", readFile(t, filepath.Join(chip, "export")))
}

func TestPlayWritesPeriodAndDuty(t *testing.T) {
	c, chip := newTestChip(t)
	require.NoError(t, c.Export())

	req := tone.Request{Frequency: 1000, Duration: time.Millisecond, DutyCycle: 0.5}
	require.NoError(t, c.Play(context.Background(), req))

	assert.Equal(t, "1000000", readFile(t, filepath.Join(chip, "pwm0", "period")))
	assert.Equal(t, "500000", readFile(t, filepath.Join(chip, "pwm0", "duty_cycle")))
	assert.Equal(t, "0", readFile(t, filepath.Join(chip, "pwm0", "enable")), "channel disabled after playback")
}

func TestPlayInvalidRequestTouchesNothing(t *testing.T) {
	chip := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(chip, "export"), nil, 0o644))
	c := New(chip, 0)

	err := c.Play(context.Background(), tone.Request{Frequency: -1, Duration: time.Second, DutyCycle: 0.5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, tone.ErrInvalidArgument))
	assert.Empty(t, readFile(t, filepath.Join(chip, "export")))
}

func TestPlayZeroDurationIsNoop(t *testing.T) {
	chip := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(chip, "export"), nil, 0o644))
	c := New(chip, 0)

	req := tone.Request{Frequency: 440, Duration: 0, DutyCycle: 0.5}
	require.NoError(t, c.Play(context.Background(), req))
	assert.Empty(t, readFile(t, filepath.Join(chip, "export")))
}

func TestPlayCanceledContextDisablesChannel(t *testing.T) {
	c, chip := newTestChip(t)
	require.NoError(t, c.Export())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := tone.Request{Frequency: 1000, Duration: time.Minute, DutyCycle: 0.5}
	err := c.Play(ctx, req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, "0", readFile(t, filepath.Join(chip, "pwm0", "enable")))
}

func TestCloseIsIdempotent(t *testing.T) {
	c, chip := newTestChip(t)
	require.NoError(t, c.Export())
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, "0", readFile(t, filepath.Join(chip, "pwm0", "enable")))
}
