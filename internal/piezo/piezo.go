// Package piezo implements the joyce:buzzer:piezo model, a generic
// component that drives a piezo buzzer attached to a GPIO pin of a
// board component. It answers two commands: sound_buzzer, which plays
// one tone, and play_harry_potter, which plays the built-in melody.
package piezo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/rdk/components/board"
	"go.viam.com/rdk/components/generic"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"

	"github.com/loopDelicious/viam-piezo/internal/tone"
)

// Model is the full model triplet this package registers.
var Model = resource.NewModel("joyce", "buzzer", "piezo")

// ErrUnsupportedCommand marks DoCommand names this component does not
// know. Check with errors.Is.
var ErrUnsupportedCommand = errors.New("unsupported command")

const (
	cmdSoundBuzzer     = "sound_buzzer"
	cmdPlayHarryPotter = "play_harry_potter"
)

func init() {
	resource.RegisterComponent(generic.API, Model, resource.Registration[resource.Resource, *Config]{
		Constructor: newPiezo,
	})
}

// Config holds the component attributes.
type Config struct {
	Board    string `json:"board"`
	PiezoPin string `json:"piezo_pin"`
}

// Validate checks the attributes and returns the board as an implicit
// dependency.
func (cfg *Config) Validate(path string) ([]string, error) {
	if cfg.Board == "" {
		return nil, resource.NewConfigValidationFieldRequiredError(path, "board")
	}
	if cfg.PiezoPin == "" {
		return nil, resource.NewConfigValidationFieldRequiredError(path, "piezo_pin")
	}
	for _, r := range cfg.PiezoPin {
		if r < '0' || r > '9' {
			return nil, resource.NewConfigValidationError(path,
				errors.Errorf("piezo_pin must be a numeric string, got %q", cfg.PiezoPin))
		}
	}
	return []string{cfg.Board}, nil
}

type piezo struct {
	resource.Named
	logger logging.Logger
	player *tone.Player

	// mu serializes playback: the pin carries one waveform at a time,
	// concurrent commands queue here and run in arrival order.
	mu      sync.Mutex
	board   board.Board
	pinName string

	// closed on Close to interrupt in-flight playback
	cancelCtx context.Context
	cancel    context.CancelFunc
}

func newPiezo(ctx context.Context, deps resource.Dependencies, conf resource.Config, logger logging.Logger) (resource.Resource, error) {
	cancelCtx, cancel := context.WithCancel(context.Background())
	p := &piezo{
		Named:     conf.ResourceName().AsNamed(),
		logger:    logger,
		player:    tone.NewPlayer(),
		cancelCtx: cancelCtx,
		cancel:    cancel,
	}
	if err := p.Reconfigure(ctx, deps, conf); err != nil {
		cancel()
		return nil, err
	}
	return p, nil
}

func (p *piezo) Reconfigure(_ context.Context, deps resource.Dependencies, conf resource.Config) error {
	cfg, err := resource.NativeConfig[*Config](conf)
	if err != nil {
		return err
	}

	b, err := board.FromDependencies(deps, cfg.Board)
	if err != nil {
		return errors.Wrapf(err, "board %q not found", cfg.Board)
	}

	// waits for any in-flight playback, the pin may be moving boards
	p.mu.Lock()
	defer p.mu.Unlock()
	p.board = b
	p.pinName = cfg.PiezoPin
	p.logger.Debugf("using pin %s on board %s", cfg.PiezoPin, cfg.Board)
	return nil
}

// DoCommand dispatches exactly one named command per call.
func (p *piezo) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	if len(cmd) != 1 {
		return nil, errors.Wrapf(tone.ErrInvalidArgument, "expected exactly one command, got %d", len(cmd))
	}

	var name string
	var args interface{}
	for k, v := range cmd {
		name, args = k, v
	}

	switch name {
	case cmdSoundBuzzer:
		req, err := parseToneRequest(args)
		if err != nil {
			return nil, err
		}
		if err := p.play(ctx, func(ctx context.Context, pin tone.Pin) error {
			return p.player.PlayTone(ctx, pin, req)
		}); err != nil {
			return nil, err
		}
		ack := fmt.Sprintf("sounded %vHz for %v at %v%% duty cycle",
			req.Frequency, req.Duration, req.DutyCycle*100)
		p.logger.Infof("%s: %s", cmdSoundBuzzer, ack)
		return map[string]interface{}{cmdSoundBuzzer: ack}, nil

	case cmdPlayHarryPotter:
		p.logger.Infof("playing Hedwig's Theme")
		if err := p.play(ctx, func(ctx context.Context, pin tone.Pin) error {
			return p.player.PlaySequence(ctx, pin, tone.HedwigsTheme)
		}); err != nil {
			return nil, err
		}
		return map[string]interface{}{cmdPlayHarryPotter: "played Hedwig's Theme"}, nil

	default:
		return nil, errors.Wrapf(ErrUnsupportedCommand, "%q", name)
	}
}

// play looks up the pin and runs fn under the playback lock, wiring the
// request context to the component lifetime so Close interrupts it.
func (p *piezo) play(ctx context.Context, fn func(ctx context.Context, pin tone.Pin) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	gp, err := p.board.GPIOPinByName(p.pinName)
	if err != nil {
		return errors.Wrapf(err, "pin %q not available", p.pinName)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(p.cancelCtx, cancel)
	defer stop()

	return fn(ctx, boardPin{gp})
}

// Close interrupts any in-flight playback and waits for it to release
// the pin.
func (p *piezo) Close(_ context.Context) error {
	p.cancel()
	p.mu.Lock()
	defer p.mu.Unlock()
	return nil
}

// boardPin adapts a board GPIO pin to the tone engine.
type boardPin struct {
	pin board.GPIOPin
}

func (b boardPin) Set(ctx context.Context, high bool) error {
	return b.pin.Set(ctx, high, nil)
}

func parseToneRequest(args interface{}) (tone.Request, error) {
	var m map[string]interface{}
	switch a := args.(type) {
	case nil:
		m = map[string]interface{}{}
	case map[string]interface{}:
		m = a
	default:
		return tone.Request{}, errors.Wrapf(tone.ErrInvalidArgument,
			"%s arguments must be a map, got %T", cmdSoundBuzzer, args)
	}

	freq, err := numArg(m, "frequency", true, 0)
	if err != nil {
		return tone.Request{}, err
	}
	durSecs, err := numArg(m, "duration", true, 0)
	if err != nil {
		return tone.Request{}, err
	}
	duty, err := numArg(m, "duty_cycle", false, tone.DefaultDutyCycle)
	if err != nil {
		return tone.Request{}, err
	}

	req := tone.Request{
		Frequency: freq,
		Duration:  time.Duration(durSecs * float64(time.Second)),
		DutyCycle: duty,
	}
	// reject bad values before any pin is looked up or driven
	if err := req.Validate(); err != nil {
		return tone.Request{}, err
	}
	return req, nil
}

// numArg extracts a numeric argument. Values arrive as float64 through
// the proto struct conversion but ints are accepted for direct callers.
func numArg(m map[string]interface{}, key string, required bool, def float64) (float64, error) {
	v, ok := m[key]
	if !ok {
		if required {
			return 0, errors.Wrapf(tone.ErrInvalidArgument, "missing required argument %q", key)
		}
		return def, nil
	}

	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, errors.Wrapf(tone.ErrInvalidArgument, "argument %q must be a number, got %T", key, v)
	}
}
