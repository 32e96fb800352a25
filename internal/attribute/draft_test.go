package attribute

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func TestDraftUnparsableDateFallsBackWithoutWriting(t *testing.T) {
	d := NewDraft(Attribute{Key: KeyBirthdate, Value: "not a date"}, clock)
	require.Equal(t, KindDate, d.Kind)
	require.False(t, d.Decodes())
	require.True(t, fixedNow.Equal(d.Time()))
	require.Equal(t, "not a date", d.Value)
	require.False(t, d.Touched)
	require.Equal(t, "not a date", d.Attribute().Value)

	d.ShiftDays(1)
	require.True(t, d.Touched)
	require.Equal(t, "2026-10-20T08:30:00.000Z", d.Value)
}

func TestDraftDatePickers(t *testing.T) {
	d := NewDraft(Attribute{Key: KeyStartedFreeTrial, Value: "2024-09-16T10:00:00.000Z"}, clock)
	require.Equal(t, KindDateTime, d.Kind)
	d.ShiftMinutes(90)
	require.Equal(t, "2024-09-16T11:30:00.000Z", d.Value)
	d.ShiftDays(-1)
	require.Equal(t, "2024-09-15T11:30:00.000Z", d.Value)

	b := NewDraft(Attribute{Key: KeyBirthdate, Value: "2000-01-01T00:00:00.000Z"}, clock)
	b.ShiftMinutes(30)
	require.False(t, b.Touched)
	require.Equal(t, "2000-01-01T00:00:00.000Z", b.Value)
}

func TestDraftTodayUsesClock(t *testing.T) {
	b := NewDraft(Attribute{Key: KeyBirthdate, Value: "1990-01-01T06:15:00.000Z"}, clock)
	b.Today()
	require.Equal(t, "2026-10-19T06:15:00.000Z", b.Value)

	d := NewDraft(Attribute{Key: KeyStartedFreeTrial, Value: "2024-09-16T10:00:00.000Z"}, clock)
	d.Today()
	require.Equal(t, "2026-10-19T08:30:00.000Z", d.Value)
	require.True(t, d.Touched)
}

func TestDraftStepper(t *testing.T) {
	d := NewDraft(Attribute{Key: KeyFavoriteNumber, Value: "99"}, clock)
	d.Step(1)
	require.Equal(t, "100", d.Value)
	d.Step(1)
	require.Equal(t, "100", d.Value)

	d.SetNumber(0)
	require.Equal(t, "1", d.Value)
	d.Step(-1)
	require.Equal(t, 1, d.Number())

	bad := NewDraft(Attribute{Key: KeyFavoriteNumber, Value: "lots"}, clock)
	require.Equal(t, 1, bad.Number())
	require.Equal(t, "lots", bad.Value)

	typed := NewDraft(Attribute{Key: KeyFavoriteNumber, Value: "5"}, clock)
	typed.Value = "101"
	require.Equal(t, "100", typed.Attribute().Value)
}

func TestDraftToggle(t *testing.T) {
	d := NewDraft(Attribute{Key: KeyIsBetaUser, Value: "FALSE"}, clock)
	require.False(t, d.Enabled())
	require.False(t, d.Dirty())
	d.Flip()
	require.Equal(t, "true", d.Value)
	require.True(t, d.Dirty())
	d.SetEnabled(false)
	require.Equal(t, "false", d.Value)
}

func TestDraftText(t *testing.T) {
	d := NewDraft(Attribute{Key: "nickname", Value: "jas"}, nil)
	require.Equal(t, KindText, d.Kind)
	d.SetText("  spaced  ")
	require.Equal(t, Attribute{Key: "nickname", Value: "  spaced  "}, d.Attribute())
}
