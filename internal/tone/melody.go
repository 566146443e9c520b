package tone

import "time"

// Note is one entry of a melody.
type Note struct {
	Frequency float64 // Hz
	Duration  time.Duration
}

// HedwigsTheme is the opening of the Harry Potter theme, transcribed as
// (frequency, duration) pairs for a single-voice buzzer. Treat it as
// read-only.
var HedwigsTheme = []Note{
	{622, 400 * time.Millisecond},
	{740, 400 * time.Millisecond},
	{784, 400 * time.Millisecond},
	{740, 400 * time.Millisecond},
	{622, 400 * time.Millisecond},
	{784, 400 * time.Millisecond},
	{740, 800 * time.Millisecond},
	{622, 400 * time.Millisecond},
	{740, 400 * time.Millisecond},
	{784, 400 * time.Millisecond},
	{622, 400 * time.Millisecond},
	{740, 400 * time.Millisecond},
	{622, 400 * time.Millisecond},
	{587, 400 * time.Millisecond},
	{622, 400 * time.Millisecond},
	{659, 800 * time.Millisecond},
	{740, 400 * time.Millisecond},
	{622, 400 * time.Millisecond},
	{740, 400 * time.Millisecond},
	{784, 400 * time.Millisecond},
	{622, 400 * time.Millisecond},
	{587, 800 * time.Millisecond},
}
