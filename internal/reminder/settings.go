package reminder

import (
	"errors"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	DefaultNightlyCron = "0 21 * * *"
	DefaultTimezone    = "Asia/Ho_Chi_Minh"

	// Offsets beyond UTC+14 do not exist on any real clock.
	maxOffsetMinutes = 14 * 60
)

// Settings controls reminder timing. Lead times and the local offset are in
// minutes; LocalOffsetMinutes is east of UTC (420 = UTC+7).
type Settings struct {
	MealLeadMinutes     int
	ExerciseLeadMinutes int
	LookaheadDays       int
	LocalOffsetMinutes  int
	NightlyCron         string
	Timezone            string
}

// DefaultSettings returns the values used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		MealLeadMinutes:     30,
		ExerciseLeadMinutes: 45,
		LookaheadDays:       1,
		LocalOffsetMinutes:  420,
		NightlyCron:         DefaultNightlyCron,
		Timezone:            DefaultTimezone,
	}
}

// SettingsFromEnv reads the reminder options from the environment. It is
// called on every use so edits to the environment apply without a restart.
// Each variable is parsed on its own: an unparsable one keeps its default
// and is reported in the joined error, the others still apply.
func SettingsFromEnv() (Settings, error) {
	s := DefaultSettings()
	var errs []error
	field := func(spec any, apply func()) {
		if err := envconfig.Process("", spec); err != nil {
			errs = append(errs, err)
			return
		}
		apply()
	}

	var meal struct {
		V int `envconfig:"MEAL_REMINDER_OFFSET_MINUTES" default:"30"`
	}
	field(&meal, func() { s.MealLeadMinutes = meal.V })

	var exercise struct {
		V int `envconfig:"EXERCISE_REMINDER_OFFSET_MINUTES" default:"45"`
	}
	field(&exercise, func() { s.ExerciseLeadMinutes = exercise.V })

	var lookahead struct {
		V int `envconfig:"REMINDER_LOOKAHEAD_DAYS" default:"1"`
	}
	field(&lookahead, func() { s.LookaheadDays = lookahead.V })

	var offset struct {
		V int `envconfig:"LOCAL_TIMEZONE_OFFSET_MINUTES" default:"420"`
	}
	field(&offset, func() { s.LocalOffsetMinutes = offset.V })

	var nightly struct {
		V string `envconfig:"NIGHTLY_REMINDER_CRON" default:"0 21 * * *"`
	}
	field(&nightly, func() { s.NightlyCron = nightly.V })

	var tz struct {
		V string `envconfig:"REMINDER_TIMEZONE" default:"Asia/Ho_Chi_Minh"`
	}
	field(&tz, func() { s.Timezone = tz.V })

	return s.Normalize(), errors.Join(errs...)
}

// Normalize replaces out-of-range values with their defaults and floors the
// lookahead window at one day. Lead times and the local offset must not be
// negative; only zones east of UTC are supported.
func (s Settings) Normalize() Settings {
	d := DefaultSettings()
	if s.MealLeadMinutes < 0 {
		s.MealLeadMinutes = d.MealLeadMinutes
	}
	if s.ExerciseLeadMinutes < 0 {
		s.ExerciseLeadMinutes = d.ExerciseLeadMinutes
	}
	if s.LookaheadDays < 1 {
		s.LookaheadDays = 1
	}
	if s.LocalOffsetMinutes < 0 || s.LocalOffsetMinutes > maxOffsetMinutes {
		s.LocalOffsetMinutes = d.LocalOffsetMinutes
	}
	if strings.TrimSpace(s.NightlyCron) == "" {
		s.NightlyCron = d.NightlyCron
	}
	if strings.TrimSpace(s.Timezone) == "" {
		s.Timezone = d.Timezone
	}
	return s
}
