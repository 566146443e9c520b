// buzzer-test exercises a piezo buzzer directly, without the robot
// framework in the way. It drives either a GPIO pin (bit-banged square
// wave) or a hardware PWM channel, playing a beep loop or the built-in
// melody, so the wiring can be checked before a robot config exists.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juju/loggo"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/loopDelicious/viam-piezo/internal/sysfspwm"
	"github.com/loopDelicious/viam-piezo/internal/tone"
)

var logger = loggo.GetLogger("buzzer-test")

const noteGap = 100 * time.Millisecond

// sounder is the common surface of the two backends.
type sounder interface {
	Play(ctx context.Context, req tone.Request) error
}

func main() {
	_ = loggo.ConfigureLoggers("<root>=INFO")

	cfgPath := flag.String("config", "buzzer-test.yaml", "path to the config file")
	flag.Parse()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		logger.Criticalf("config error: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snd, cleanup, err := newSounder(cfg)
	if err != nil {
		logger.Criticalf("%s backend setup error: %v", cfg.Backend, err)
		os.Exit(1)
	}
	defer cleanup()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		select {
		case s := <-c:
			logger.Warningf("got signal: %s, exiting cleanly", s)
			cancel()
		case <-ctx.Done():
		}
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return run(ctx, cfg, snd)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Criticalf("%v", err)
		os.Exit(1)
	}
}

func newSounder(cfg Config) (sounder, func(), error) {
	switch cfg.Backend {
	case "pwm":
		ch := sysfspwm.New("/sys/class/pwm/"+cfg.PWMChip, cfg.PWMChannel)
		if err := ch.Export(); err != nil {
			return nil, nil, err
		}
		return ch, func() { _ = ch.Close() }, nil
	default: // gpio
		if _, err := host.Init(); err != nil {
			return nil, nil, err
		}
		pin := gpioreg.ByName(cfg.Pin)
		if pin == nil {
			return nil, nil, errors.Errorf("no GPIO pin named %q", cfg.Pin)
		}
		return &gpioSounder{player: tone.NewPlayer(), pin: pin},
			func() { _ = pin.Out(gpio.Low) }, nil
	}
}

func run(ctx context.Context, cfg Config, snd sounder) error {
	if cfg.Mode == "melody" {
		logger.Infof("playing Hedwig's Theme on %s", cfg.Backend)
		for _, n := range tone.HedwigsTheme {
			req := tone.Request{
				Frequency: n.Frequency,
				Duration:  n.Duration,
				DutyCycle: tone.DefaultDutyCycle,
			}
			if err := snd.Play(ctx, req); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(noteGap):
			}
		}
		return nil
	}

	logger.Infof("beeping at %vHz every %v on %s, ctrl+c to stop",
		cfg.Frequency, cfg.Gap, cfg.Backend)
	req := tone.Request{
		Frequency: cfg.Frequency,
		Duration:  cfg.Duration,
		DutyCycle: cfg.DutyCycle,
	}
	for {
		if err := snd.Play(ctx, req); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.Gap):
		}
	}
}

// gpioSounder bit-bangs the tone on a plain digital output.
type gpioSounder struct {
	player *tone.Player
	pin    gpio.PinIO
}

func (s *gpioSounder) Play(ctx context.Context, req tone.Request) error {
	return s.player.PlayTone(ctx, periphPin{s.pin}, req)
}

// periphPin adapts a periph pin to the tone engine.
type periphPin struct {
	pin gpio.PinIO
}

func (p periphPin) Set(_ context.Context, high bool) error {
	return p.pin.Out(gpio.Level(high))
}
