package attribute

import "time"

// Draft is the editable copy of one attribute. The buffer only changes through
// the setters, so a value that fails to decode is left untouched until the
// user works the control.
type Draft struct {
	Key     string
	Kind    Kind
	Value   string
	Initial string
	Touched bool

	now func() time.Time
}

// NewDraft seeds a draft from a. A nil clock means time.Now.
func NewDraft(a Attribute, now func() time.Time) *Draft {
	if now == nil {
		now = time.Now
	}
	return &Draft{
		Key:     a.Key,
		Kind:    ResolveEditor(a.Key),
		Value:   a.Value,
		Initial: a.Value,
		now:     now,
	}
}

// Attribute returns the attribute to submit, normalized for the draft's kind.
func (d *Draft) Attribute() Attribute {
	return Attribute{Key: d.Key, Value: Normalize(d.Kind, d.Value)}
}

// Dirty reports whether the buffer differs from the seeded value.
func (d *Draft) Dirty() bool {
	return d.Value != d.Initial
}

// Time is the value shown by a date picker: the decoded buffer, or now.
func (d *Draft) Time() time.Time {
	if t, ok := DecodeTime(d.Value); ok {
		return t
	}
	return d.now().UTC()
}

// Decodes reports whether the buffer holds a valid value for the kind.
func (d *Draft) Decodes() bool {
	switch d.Kind {
	case KindDate, KindDateTime:
		_, ok := DecodeTime(d.Value)
		return ok
	case KindStepper:
		_, ok := DecodeNumber(d.Value)
		return ok
	default:
		return true
	}
}

func (d *Draft) SetTime(t time.Time) {
	d.set(EncodeTime(t))
}

// ShiftDays moves the picked date by n days, keeping the time of day.
func (d *Draft) ShiftDays(n int) {
	d.SetTime(d.Time().AddDate(0, 0, n))
}

// ShiftMinutes moves the picked time by n minutes. Date-only pickers ignore it.
func (d *Draft) ShiftMinutes(n int) {
	if d.Kind != KindDateTime {
		return
	}
	d.SetTime(d.Time().Add(time.Duration(n) * time.Minute))
}

// Today moves the picked date to today. Date-only pickers keep their time of
// day.
func (d *Draft) Today() {
	now := d.now().UTC()
	if d.Kind == KindDateTime {
		d.SetTime(now)
		return
	}
	cur := d.Time()
	d.SetTime(time.Date(now.Year(), now.Month(), now.Day(), cur.Hour(), cur.Minute(), cur.Second(), cur.Nanosecond(), time.UTC))
}

// Number is the value shown by the stepper.
func (d *Draft) Number() int {
	n, _ := DecodeNumber(d.Value)
	return n
}

func (d *Draft) SetNumber(n int) {
	d.set(EncodeNumber(n))
}

// Step moves the stepper by delta, stopping at the bounds.
func (d *Draft) Step(delta int) {
	d.SetNumber(d.Number() + delta)
}

// Enabled is the value shown by the toggle.
func (d *Draft) Enabled() bool {
	return DecodeBool(d.Value)
}

func (d *Draft) SetEnabled(b bool) {
	d.set(EncodeBool(b))
}

func (d *Draft) Flip() {
	d.SetEnabled(!d.Enabled())
}

func (d *Draft) SetText(s string) {
	d.set(s)
}

func (d *Draft) set(v string) {
	d.Value = v
	d.Touched = true
}
