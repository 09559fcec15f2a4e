package availability

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
)

type ScheduleStore interface {
	GetWindows(ctx context.Context, practitionerID string, day time.Weekday) ([]model.WorkingWindow, error)
}

type Ledger interface {
	ListByPractitionerDate(ctx context.Context, practitionerID string, date model.Date) ([]model.Appointment, error)
}

type Directory interface {
	Practitioner(ctx context.Context, id string) (model.Practitioner, error)
	Subject(ctx context.Context, id string) (model.Subject, error)
	Service(ctx context.Context, id string) (model.Service, error)
}

// Cache stores resolved availability for future dates. Get reports the cache generation it
// looked under, hit or miss; Set must drop the entry when that generation is no longer
// current, so a result computed across an invalidation is never stored.
type Cache interface {
	Get(ctx context.Context, practitionerID string, date model.Date) (av model.Availability, gen int64, hit bool, err error)
	Set(ctx context.Context, gen int64, av model.Availability) error
}

type Options struct {
	Location *time.Location
	Now      func() time.Time
	Cache    Cache
	Logger   *slog.Logger
}

// Resolver computes bookable slots for a practitioner on a date. It has no side effects
// beyond the optional cache and is safe for concurrent use.
type Resolver struct {
	schedules ScheduleStore
	ledger    Ledger
	directory Directory
	loc       *time.Location
	now       func() time.Time
	cache     Cache
	logger    *slog.Logger
}

func NewResolver(schedules ScheduleStore, ledger Ledger, directory Directory, opts Options) *Resolver {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Resolver{
		schedules: schedules,
		ledger:    ledger,
		directory: directory,
		loc:       opts.Location,
		now:       opts.Now,
		cache:     opts.Cache,
		logger:    opts.Logger,
	}
}

func (r *Resolver) Resolve(ctx context.Context, practitionerID string, date model.Date) (model.Availability, error) {
	if practitionerID == "" {
		return model.Availability{}, model.Invalid("practitioner_id", "is required")
	}
	if date.IsZero() {
		return model.Availability{}, model.Invalid("date", "is required")
	}

	now := r.now().In(r.loc)
	today := model.DateOf(now)
	// Today's slots age by the minute, so only other dates go through the cache.
	cacheable := r.cache != nil && date != today

	var gen int64
	if cacheable {
		av, g, hit, err := r.cache.Get(ctx, practitionerID, date)
		switch {
		case err != nil:
			r.logger.Warn("availability cache read failed", "err", err, "practitioner_id", practitionerID)
			cacheable = false
		case hit:
			return av, nil
		}
		gen = g
	}

	p, err := r.directory.Practitioner(ctx, practitionerID)
	if err != nil {
		return model.Availability{}, err
	}

	// An inactive practitioner takes no bookings, so their windows offer nothing.
	var windows []model.WorkingWindow
	if p.Active {
		windows, err = ActiveWindows(ctx, r.schedules, practitionerID, date.Weekday())
		if err != nil {
			return model.Availability{}, err
		}
	}

	av := model.Availability{
		PractitionerID:       practitionerID,
		Date:                 date,
		DayOfWeek:            date.Weekday(),
		HasSchedule:          len(windows) > 0,
		Windows:              nonNil(windows),
		Slots:                []model.Slot{},
		OccupiedAppointments: []model.OccupiedAppointment{},
	}
	if !av.HasSchedule {
		return av, nil
	}

	appts, err := r.ledger.ListByPractitionerDate(ctx, practitionerID, date)
	if err != nil {
		return model.Availability{}, fmt.Errorf("list appointments: %w", err)
	}

	var pastBefore *model.TimeOfDay
	if date == today {
		t := model.TimeOfDayOf(now)
		pastBefore = &t
	}
	av.Slots = BuildSlots(windows, BusyIntervals(appts), pastBefore)

	occupied, err := r.describe(ctx, appts)
	if err != nil {
		return model.Availability{}, err
	}
	av.OccupiedAppointments = occupied

	if cacheable {
		if err := r.cache.Set(ctx, gen, av); err != nil {
			r.logger.Warn("availability cache write failed", "err", err, "practitioner_id", practitionerID)
		}
	}
	return av, nil
}

func nonNil(ws []model.WorkingWindow) []model.WorkingWindow {
	if ws == nil {
		return []model.WorkingWindow{}
	}
	return ws
}

// ActiveWindows returns the valid, active windows for a weekday ordered by start time.
// Windows failing validation are configuration errors and are skipped.
func ActiveWindows(ctx context.Context, store ScheduleStore, practitionerID string, day time.Weekday) ([]model.WorkingWindow, error) {
	all, err := store.GetWindows(ctx, practitionerID, day)
	if err != nil {
		return nil, fmt.Errorf("get windows: %w", err)
	}
	windows := make([]model.WorkingWindow, 0, len(all))
	for _, w := range all {
		if !w.Active || w.DayOfWeek != day || w.Validate() != nil {
			continue
		}
		windows = append(windows, w)
	}
	sort.SliceStable(windows, func(i, j int) bool { return windows[i].StartTime < windows[j].StartTime })
	return windows, nil
}

func (r *Resolver) describe(ctx context.Context, appts []model.Appointment) ([]model.OccupiedAppointment, error) {
	subjects := map[string]string{}
	services := map[string]string{}
	out := make([]model.OccupiedAppointment, 0, len(appts))

	for _, a := range appts {
		if a.Status == model.StatusCancelled {
			continue
		}
		subjectName, ok := subjects[a.SubjectID]
		if !ok {
			s, err := r.directory.Subject(ctx, a.SubjectID)
			if err != nil && !model.IsNotFound(err) {
				return nil, err
			}
			subjectName = s.Name
			subjects[a.SubjectID] = subjectName
		}
		serviceName, ok := services[a.ServiceID]
		if !ok {
			s, err := r.directory.Service(ctx, a.ServiceID)
			if err != nil && !model.IsNotFound(err) {
				return nil, err
			}
			serviceName = s.Name
			services[a.ServiceID] = serviceName
		}
		out = append(out, model.OccupiedAppointment{
			AppointmentID: a.ID,
			Time:          a.Time,
			SubjectName:   subjectName,
			ServiceName:   serviceName,
			Status:        a.Status,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}
