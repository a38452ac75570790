// Package reminder arms in-process email reminders for the meals and
// exercises planned in users' progress entries.
//
// Timers live only in memory. A sweep at startup and on a nightly cron
// schedule re-arms the entries that enter the lookahead window, and every
// write to a near-term entry calls Refresh to keep its timers in step.
package reminder

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultMealName     = "bữa ăn"
	defaultExerciseName = "bài tập"
	defaultUserName     = "bạn"

	sweepConcurrency = 8
)

// Occurrence is a single planned meal or exercise within an entry.
// Name is empty when the referenced library item could not be resolved.
type Occurrence struct {
	Time      string
	Name      string
	Completed bool
}

// Entry is one user's plan for one calendar day.
type Entry struct {
	UserID    int
	Date      time.Time
	Meals     []Occurrence
	Exercises []Occurrence
}

// Contact is where a user's reminders are delivered.
type Contact struct {
	Email string
	Name  string
}

type EntryStore interface {
	// FindEntry returns nil, nil when the user has no entry on date.
	FindEntry(ctx context.Context, userID int, date time.Time) (*Entry, error)
	FindEntriesByDate(ctx context.Context, date time.Time) ([]Entry, error)
}

type UserDirectory interface {
	// FindContact returns nil, nil for unknown users.
	FindContact(ctx context.Context, userID int) (*Contact, error)
}

type MealReminder struct {
	To        string
	UserName  string
	DateLabel string
	Time      string
	MealName  string
}

type ExerciseReminder struct {
	To           string
	UserName     string
	DateLabel    string
	Time         string
	ExerciseName string
}

type Notifier interface {
	SendMealReminder(ctx context.Context, r MealReminder) error
	SendExerciseReminder(ctx context.Context, r ExerciseReminder) error
}

// Service owns the timer registry and the nightly sweep job. Construct one
// per process and share it between the write path and main.
type Service struct {
	entries  EntryStore
	users    UserDirectory
	notifier Notifier
	log      *zap.Logger

	settings func() Settings
	now      func() time.Time
	after    AfterFunc
	registry *Registry

	mu      sync.Mutex
	nightly *cron.Cron
}

type Option func(*Service)

// WithSettings replaces the environment lookup for reminder settings.
func WithSettings(fn func() Settings) Option {
	return func(s *Service) { s.settings = fn }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithAfterFunc(after AfterFunc) Option {
	return func(s *Service) { s.after = after }
}

func New(entries EntryStore, users UserDirectory, notifier Notifier, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		entries:  entries,
		users:    users,
		notifier: notifier,
		log:      log.Named("reminder"),
		now:      time.Now,
		after:    realAfterFunc,
	}
	s.settings = s.envSettings
	for _, opt := range opts {
		opt(s)
	}
	s.registry = newRegistry(s.now, s.after)
	return s
}

func (s *Service) envSettings() Settings {
	st, err := SettingsFromEnv()
	if err != nil {
		s.log.Warn("invalid reminder settings, using defaults", zap.Error(err))
	}
	return st
}

// Registry exposes the armed timers, mainly for inspection.
func (s *Service) Registry() *Registry {
	return s.registry
}

// InWindow reports whether a write to date should refresh reminders.
func (s *Service) InWindow(date time.Time) bool {
	return WithinLookahead(s.now(), date, s.settings().Normalize().LookaheadDays)
}

// Refresh re-reads the user's entry for date and re-arms its reminders. A
// missing entry cancels whatever was armed for that day. Failures are
// logged, never returned: reminders must not fail the write that triggered
// them.
func (s *Service) Refresh(ctx context.Context, userID int, date time.Time) {
	entry, err := s.entries.FindEntry(ctx, userID, date)
	if err != nil {
		s.log.Error("failed to refresh reminders",
			zap.Int("user_id", userID), zap.Time("date", date), zap.Error(err))
		return
	}
	if entry == nil {
		s.registry.Cancel(KeyFor(userID, date))
		s.log.Info("cleared reminders",
			zap.Int("user_id", userID), zap.String("date", date.UTC().Format("2006-01-02")))
		return
	}

	s.scheduleEntry(ctx, *entry)
	s.log.Info("refreshed reminders",
		zap.Int("user_id", entry.UserID),
		zap.String("date", entry.Date.UTC().Format("2006-01-02")),
		zap.Int("meals", len(entry.Meals)),
		zap.Int("exercises", len(entry.Exercises)))
}

// Sweep arms reminders for every entry dated exactly LookaheadDays after
// today. It covers days that just entered the window and restores timers
// lost on restart.
func (s *Service) Sweep(ctx context.Context) {
	st := s.settings().Normalize()
	target := s.now().UTC().AddDate(0, 0, st.LookaheadDays)

	entries, err := s.entries.FindEntriesByDate(ctx, target)
	if err != nil {
		s.log.Error("lookahead sweep failed",
			zap.String("target_date", target.Format("2006-01-02")), zap.Error(err))
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)
	for _, e := range entries {
		e := e
		g.Go(func() error {
			s.scheduleEntry(gctx, e)
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info("lookahead sweep done",
		zap.Int("entries", len(entries)),
		zap.String("target_date", target.Format("2006-01-02")))
}

// Init runs one sweep and then schedules the nightly sweep. Calling it again
// replaces the previous nightly job.
func (s *Service) Init(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopNightlyLocked()
	s.Sweep(ctx)

	st := s.settings().Normalize()
	loc, err := time.LoadLocation(st.Timezone)
	if err != nil {
		s.log.Warn("unknown reminder timezone, using fixed offset",
			zap.String("timezone", st.Timezone), zap.Error(err))
		loc = time.FixedZone("local", st.LocalOffsetMinutes*60)
	}

	c := cron.New(cron.WithLocation(loc))
	nightly := func() {
		s.log.Info("nightly sweep triggered")
		s.Sweep(context.Background())
	}
	if _, err := c.AddFunc(st.NightlyCron, nightly); err != nil {
		s.log.Error("invalid nightly cron, using default",
			zap.String("spec", st.NightlyCron), zap.Error(err))
		if _, err := c.AddFunc(DefaultNightlyCron, nightly); err != nil {
			s.log.Error("failed to schedule nightly sweep", zap.Error(err))
			return
		}
	}
	c.Start()
	s.nightly = c

	s.log.Info("reminder scheduler initialized",
		zap.String("cron", st.NightlyCron), zap.String("timezone", loc.String()))
}

// Stop halts the nightly job and discards every armed timer.
func (s *Service) Stop() {
	s.mu.Lock()
	s.stopNightlyLocked()
	s.mu.Unlock()

	s.registry.CancelAll()
}

func (s *Service) stopNightlyLocked() {
	if s.nightly == nil {
		return
	}
	<-s.nightly.Stop().Done()
	s.nightly = nil
}

// scheduleEntry replaces the armed set for the entry's day with one timer
// per occurrence whose reminder time is still ahead.
func (s *Service) scheduleEntry(ctx context.Context, e Entry) {
	log := s.log.With(zap.Int("user_id", e.UserID), zap.String("date", e.Date.UTC().Format("2006-01-02")))

	contact, err := s.users.FindContact(ctx, e.UserID)
	if err != nil {
		log.Error("user lookup failed", zap.Error(err))
		return
	}
	if contact == nil || contact.Email == "" {
		log.Info("skip scheduling, user has no email")
		return
	}

	st := s.settings().Normalize()
	now := s.now()
	if e.Date.After(now.Add(time.Duration(st.LookaheadDays) * day)) {
		log.Info("skip scheduling, outside lookahead")
		return
	}

	userName := contact.Name
	if userName == "" {
		userName = defaultUserName
	}
	label := DateLabel(e.Date)
	local := time.FixedZone("local", st.LocalOffsetMinutes*60)

	var jobs []Job
	for _, m := range e.Meals {
		if m.Time == "" {
			continue
		}
		fireAt := EventInstant(e.Date, m.Time, st.LocalOffsetMinutes).
			Add(-time.Duration(st.MealLeadMinutes) * time.Minute)
		if !fireAt.After(now) {
			continue
		}
		msg := MealReminder{
			To:        contact.Email,
			UserName:  userName,
			DateLabel: label,
			Time:      m.Time,
			MealName:  nameOr(m.Name, defaultMealName),
		}
		jobs = append(jobs, Job{
			FireAt: fireAt,
			Kind:   KindMeal,
			Name:   msg.MealName,
			Run: func() {
				s.dispatch(KindMeal, msg.To, func(ctx context.Context) error {
					return s.notifier.SendMealReminder(ctx, msg)
				})
			},
		})
		log.Info("scheduled meal reminder",
			zap.String("meal", msg.MealName),
			zap.Time("at", fireAt.UTC()),
			zap.String("local", fireAt.In(local).Format("15:04 02/01/2006")))
	}

	for _, x := range e.Exercises {
		if x.Time == "" {
			continue
		}
		fireAt := EventInstant(e.Date, x.Time, st.LocalOffsetMinutes).
			Add(-time.Duration(st.ExerciseLeadMinutes) * time.Minute)
		if !fireAt.After(now) {
			continue
		}
		msg := ExerciseReminder{
			To:           contact.Email,
			UserName:     userName,
			DateLabel:    label,
			Time:         x.Time,
			ExerciseName: nameOr(x.Name, defaultExerciseName),
		}
		jobs = append(jobs, Job{
			FireAt: fireAt,
			Kind:   KindExercise,
			Name:   msg.ExerciseName,
			Run: func() {
				s.dispatch(KindExercise, msg.To, func(ctx context.Context) error {
					return s.notifier.SendExerciseReminder(ctx, msg)
				})
			},
		})
		log.Info("scheduled exercise reminder",
			zap.String("workout", msg.ExerciseName),
			zap.Time("at", fireAt.UTC()),
			zap.String("local", fireAt.In(local).Format("15:04 02/01/2006")))
	}

	s.registry.Register(KeyFor(e.UserID, e.Date), jobs)
}

// dispatch sends one reminder. Sends are not retried and a failure does not
// touch any other armed timer.
func (s *Service) dispatch(kind Kind, to string, send func(context.Context) error) {
	if err := send(context.Background()); err != nil {
		s.log.Error("failed to send reminder",
			zap.String("kind", string(kind)), zap.String("to", to), zap.Error(err))
	}
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
