// Package tone generates square-wave tones on a digital output pin.
//
// A piezo buzzer only needs the pin toggled at the right rate: for a
// requested frequency the pin is held high for period*duty and low for
// the rest of the period, repeated until the requested duration is
// reached. Everything here is blocking; callers decide how to serialize
// access to the pin.
package tone

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// DefaultDutyCycle is used when a request leaves the duty cycle unset.
const DefaultDutyCycle = 0.5

// ErrInvalidArgument marks request validation failures. Check with
// errors.Is.
var ErrInvalidArgument = errors.New("invalid argument")

// Pin is the minimal surface of a digital output the engine needs.
// board GPIO pins and periph pins are adapted to it by the callers.
type Pin interface {
	Set(ctx context.Context, high bool) error
}

// Request describes a single tone.
type Request struct {
	Frequency float64 // Hz, must be positive
	Duration  time.Duration
	DutyCycle float64 // in (0, 1]
}

// Validate checks the request without touching any pin.
func (r Request) Validate() error {
	if r.Frequency <= 0 {
		return errors.Wrapf(ErrInvalidArgument, "frequency must be positive, got %v", r.Frequency)
	}
	if r.Duration < 0 {
		return errors.Wrapf(ErrInvalidArgument, "duration must not be negative, got %v", r.Duration)
	}
	if r.DutyCycle <= 0 || r.DutyCycle > 1 {
		return errors.Wrapf(ErrInvalidArgument, "duty cycle must be in (0, 1], got %v", r.DutyCycle)
	}
	if r.period() <= 0 {
		return errors.Wrapf(ErrInvalidArgument, "frequency %v is beyond timer resolution", r.Frequency)
	}
	return nil
}

func (r Request) period() time.Duration {
	return time.Duration(float64(time.Second) / r.Frequency)
}

// Player plays tones and note sequences. The zero value is ready to use.
type Player struct {
	// Sleep overrides the context-aware sleep between pin transitions.
	// Nil means real time; tests inject a virtual clock here.
	Sleep func(ctx context.Context, d time.Duration) error
}

func NewPlayer() *Player {
	return &Player{}
}

func (p *Player) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return sleepCtx(ctx, d)
}

// PlayTone bit-bangs a single tone on pin. It blocks for the full
// duration of the request. The pin is driven low on every exit path,
// including errors and context cancellation.
func (p *Player) PlayTone(ctx context.Context, pin Pin, req Request) (err error) {
	if err := req.Validate(); err != nil {
		return err
	}
	if req.Duration == 0 {
		return nil
	}

	period := req.period()
	high := time.Duration(float64(period) * req.DutyCycle)
	low := period - high

	defer func() {
		// The request context may already be canceled; the pin still
		// has to end up low or the buzzer keeps drawing current.
		if derr := pin.Set(context.WithoutCancel(ctx), false); derr != nil && err == nil {
			err = derr
		}
	}()

	for elapsed := time.Duration(0); elapsed < req.Duration; elapsed += period {
		if err := pin.Set(ctx, true); err != nil {
			return err
		}
		if err := p.sleep(ctx, high); err != nil {
			return err
		}
		if low > 0 {
			if err := pin.Set(ctx, false); err != nil {
				return err
			}
			if err := p.sleep(ctx, low); err != nil {
				return err
			}
		}
	}

	return nil
}

// noteGap is the rest between notes of a sequence.
const noteGap = 100 * time.Millisecond

// PlaySequence plays notes in order at the default duty cycle with a
// short rest after each note. The first device error abandons the rest
// of the sequence.
func (p *Player) PlaySequence(ctx context.Context, pin Pin, notes []Note) error {
	for _, n := range notes {
		req := Request{
			Frequency: n.Frequency,
			Duration:  n.Duration,
			DutyCycle: DefaultDutyCycle,
		}
		if err := p.PlayTone(ctx, pin, req); err != nil {
			return err
		}
		if err := p.sleep(ctx, noteGap); err != nil {
			return err
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
