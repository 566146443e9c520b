// Package sysfspwm drives a hardware PWM channel through the linux
// sysfs driver (/sys/class/pwm) to generate tones on a piezo buzzer.
// more info: blog.oddbit.com/post/2017-09-26-some-notes-on-pwm-on-the-raspberry-pi
package sysfspwm

import (
	"context"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/juju/loggo"

	"github.com/loopDelicious/viam-piezo/internal/tone"
)

var logger = loggo.GetLogger("sysfspwm")

// the tone written during export so the denoise pulse has a valid
// period configured; 2068hz is a loud spot for most small piezos
const defaultToneHz = 2068

const idleCheck = 5 * time.Minute

// Channel is one PWM channel of a pwmchip. All methods are safe for
// concurrent use; playback is serialized per channel.
type Channel struct {
	chipPath string // e.g. /sys/class/pwm/pwmchip0
	n        int

	mu       sync.Mutex
	exported bool
	lastTone time.Time

	guardOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
}

func New(chipPath string, channel int) *Channel {
	return &Channel{
		chipPath: chipPath,
		n:        channel,
		stop:     make(chan struct{}),
	}
}

// Export makes the channel available and leaves it configured, silent.
func (c *Channel) Export() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureExported(); err != nil {
		return err
	}

	c.guardOnce.Do(func() {
		go c.idleGuard()
	})

	return nil
}

// Play generates a single tone and blocks until it finishes. The
// channel is disabled on every exit path.
func (c *Channel) Play(ctx context.Context, req tone.Request) (err error) {
	if err := req.Validate(); err != nil {
		return err
	}
	if req.Duration == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.markLastTone()

	if err = c.ensureExported(); err != nil {
		return err
	}

	if err = c.setTone(req.Frequency, req.DutyCycle); err != nil {
		return err
	}

	defer c.disable()
	if err = c.enable(); err != nil {
		return err
	}

	t := time.NewTimer(req.Duration)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Close stops the idle guard and silences the channel. The export is
// left in place so a restart finds the channel ready.
func (c *Channel) Close() error {
	c.stopOnce.Do(func() {
		close(c.stop)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.disable()
	return nil
}

func (c *Channel) port() string {
	return c.chipPath + "/pwm" + strconv.Itoa(c.n)
}

func (c *Channel) path(file string) string {
	return c.port() + "/" + file
}

func (c *Channel) ensureExported() error {
	if c.exported {
		return nil
	}

	// already exported?
	if _, err := os.Stat(c.port()); err == nil {
		c.exported = true
	}

	if !c.exported {
		if err := write(c.chipPath+"/export", strconv.Itoa(c.n)); err != nil {
			return err
		}
		c.exported = true
	}

	if err := c.setTone(defaultToneHz, 0.5); err != nil {
		return err
	}

	if err := write(c.path("polarity"), "normal"); err != nil {
		return err
	}

	c.deNoise()
	return nil
}

// setTone configures period and duty cycle in nanoseconds. duty_cycle
// must never exceed period, so it is zeroed before the period changes.
func (c *Channel) setTone(freq, duty float64) error {
	period := int64(1e9 / freq)
	high := int64(float64(period) * duty)

	if err := write(c.path("duty_cycle"), "0"); err != nil {
		return err
	}
	if err := write(c.path("period"), strconv.FormatInt(period, 10)); err != nil {
		return err
	}
	return write(c.path("duty_cycle"), strconv.FormatInt(high, 10))
}

func (c *Channel) markLastTone() {
	c.lastTone = time.Now()
}

func (c *Channel) idleGuard() {
	t := time.NewTicker(idleCheck)
	defer t.Stop()
	for {
		var now time.Time
		select {
		case <-c.stop:
			return
		case now = <-t.C:
		}

		c.mu.Lock()
		if !c.exported || c.lastTone.Add(idleCheck).After(now) {
			c.mu.Unlock()
			continue
		}

		c.deNoise()
		c.mu.Unlock()
	}
}

// deNoise silences any noise on the buzzer while idle.
// Depending on CPU usage seemingly, the transistor controlling the
// piezo buzzer drifts into it's active region because the noise on the
// pwm output becomes so big. This causes the components to heat up unnecessarily.
// The problem can be sidestepped by momentarily switching the output on.
func (c *Channel) deNoise() {
	if c.enable() != nil {
		return
	}
	time.Sleep(10 * time.Millisecond)
	c.disable()
	c.markLastTone()
}

func (c *Channel) unexport() {
	_ = write(c.chipPath+"/unexport", strconv.Itoa(c.n))
	c.exported = false
}

func (c *Channel) enable() error {
	if !c.exported {
		return nil
	}

	if err := write(c.path("enable"), "1"); err != nil {
		c.unexport()
		return err
	}
	return nil
}

func (c *Channel) disable() {
	if !c.exported {
		return
	}

	if err := write(c.path("enable"), "0"); err != nil {
		logger.Warningf("failed to disable %s: %v", c.port(), err)
		c.unexport()
	}
}

func write(path, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := f.WriteString(value)
	if err != nil {
		return err
	}

	if n < len(value) {
		return io.ErrShortWrite
	}

	return nil
}
