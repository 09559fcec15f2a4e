package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "09:00", want: "09:00:00"},
		{in: "09:30:15", want: "09:30:15"},
		{in: "24:00:00", want: "24:00:00"},
		{in: " 8:00", wantErr: true},
		{in: "24:30", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.String())
		})
	}
}

func TestTimeOfDayAcceptsBothWireShapes(t *testing.T) {
	var fromString, fromObject, fromObjectNoSeconds TimeOfDay
	require.NoError(t, json.Unmarshal([]byte(`"14:30:00"`), &fromString))
	require.NoError(t, json.Unmarshal([]byte(`{"hour":14,"minute":30,"second":0}`), &fromObject))
	require.NoError(t, json.Unmarshal([]byte(`{"hour":14,"minute":30}`), &fromObjectNoSeconds))

	assert.Equal(t, fromString, fromObject)
	assert.Equal(t, fromString, fromObjectNoSeconds)

	out, err := json.Marshal(fromObject)
	require.NoError(t, err)
	assert.JSONEq(t, `"14:30:00"`, string(out))

	var bad TimeOfDay
	assert.Error(t, json.Unmarshal([]byte(`{"hour":14.5,"minute":0}`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`{"minute":0}`), &bad))
}

func TestTimeOfDayFromValue(t *testing.T) {
	want := Clock(9, 30)
	for _, v := range []any{"09:30", "09:30:00", map[string]any{"hour": 9.0, "minute": 30.0, "second": 0.0}, want, &want} {
		got, err := TimeOfDayFromValue(v)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := TimeOfDayFromValue(nil)
	assert.Error(t, err)
	_, err = TimeOfDayFromValue(930)
	assert.Error(t, err)
}

func TestTimeOfDayOn(t *testing.T) {
	loc := time.FixedZone("clinic", -3*3600)
	d := Date{Year: 2026, Month: time.March, Day: 2}
	got := Clock(8, 15).On(d, loc)
	assert.Equal(t, time.Date(2026, time.March, 2, 8, 15, 0, 0, loc), got)
	assert.Equal(t, Clock(8, 15), TimeOfDayOf(got))
}

func TestDate(t *testing.T) {
	d, err := ParseDate("2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, d.Weekday())
	assert.Equal(t, "2026-03-01", d.AddDays(-1).String())
	assert.True(t, d.AddDays(-1).Before(d))
	assert.True(t, d.After(d.AddDays(-1)))

	_, err = ParseDate("02/03/2026")
	assert.Error(t, err)

	var decoded Date
	require.NoError(t, json.Unmarshal([]byte(`"2026-12-31"`), &decoded))
	assert.Equal(t, Date{Year: 2026, Month: time.December, Day: 31}, decoded)

	loc := time.FixedZone("clinic", -5*3600)
	now := time.Date(2026, 3, 3, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-02", Today(now, loc).String())
}

func TestWorkingWindowOffers(t *testing.T) {
	w := WorkingWindow{PractitionerID: "vet-1", DayOfWeek: time.Monday, StartTime: Clock(8, 0), EndTime: Clock(12, 0), SlotDurationMinutes: 30, Active: true}
	require.NoError(t, w.Validate())

	assert.True(t, w.Offers(Clock(8, 0)))
	assert.True(t, w.Offers(Clock(11, 30)))
	assert.False(t, w.Offers(Clock(12, 0)))
	assert.False(t, w.Offers(Clock(8, 15)))
	assert.False(t, w.Offers(Clock(7, 30)))

	w.EndTime = Clock(8, 0)
	assert.True(t, IsValidation(w.Validate()))
}

func TestParseEvent(t *testing.T) {
	for in, want := range map[string]Event{
		"Confirm":         EventConfirm,
		"StartAttendance": EventStartAttendance,
		"mark_no_show":    EventMarkNoShow,
		"MarkNoShow":      EventMarkNoShow,
	} {
		got, err := ParseEvent(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseEvent("reschedule")
	assert.True(t, IsValidation(err))
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "validation", ErrorKind(Invalid("reason", "too short")))
	assert.Equal(t, "conflict", ErrorKind(&ConflictError{Message: "taken"}))
	assert.Equal(t, "authorization", ErrorKind(&AuthorizationError{Action: "confirm", Role: RoleOwner}))
	assert.Equal(t, "not_found", ErrorKind(&NotFoundError{Kind: "appointment", ID: "x"}))
	assert.Equal(t, "", ErrorKind(assert.AnError))
}

func TestNewActor(t *testing.T) {
	a, ok := NewActor(" u-1 ", " Veterinarian", "vet-1 ")
	assert.True(t, ok)
	assert.Equal(t, Actor{UserID: "u-1", Role: RoleVeterinarian, PractitionerID: "vet-1"}, a)

	_, ok = NewActor("u-1", "superuser", "")
	assert.False(t, ok)
	_, ok = NewActor("  ", "owner", "")
	assert.False(t, ok)
}
