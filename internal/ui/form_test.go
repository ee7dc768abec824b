package ui

import (
	"context"
	"errors"
	"testing"
	"time"

	"timetrack/internal/client"
	"timetrack/internal/core"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestFormDefaults(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 5, 23, 30, 0, 0, time.UTC)}
	f := NewForm(&fakeStore{}, WithClock(clock.now), WithLocation(time.UTC), quiet())

	want := core.Draft{Hours: "1", Date: "2024-03-05"}
	if got := f.Draft(); got != want {
		t.Fatalf("defaults %+v want %+v", got, want)
	}
}

func TestFormSubmit(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)}
	fs := &fakeStore{}
	n := &recordingNotifier{}
	f := NewForm(fs, WithClock(clock.now), WithLocation(time.UTC), WithNotifier(n), quiet())

	_ = f.ChangeField(core.FieldProject, "Acme")
	_ = f.ChangeField(core.FieldHours, "2.5")
	_ = f.ChangeField(core.FieldDescription, "planning")

	// The day rolls over before submit; the reset must use the new date.
	clock.t = clock.t.Add(24 * time.Hour)
	e, err := f.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !e.HasID() || e.Hours != 2.5 || e.Date.String() != "2024-03-05" || e.Description != "planning" {
		t.Fatalf("created %+v", e)
	}
	if n.last().msg != NoticeCreated {
		t.Fatalf("notice %+v", n.last())
	}
	if got, want := f.Draft(), (core.Draft{Hours: "1", Date: "2024-03-06"}); got != want {
		t.Fatalf("after reset %+v want %+v", got, want)
	}
}

func TestFormRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		want   error
	}{
		{"empty project", map[string]string{core.FieldHours: "1"}, core.ErrEmptyProject},
		{"quarter hour", map[string]string{core.FieldProject: "A", core.FieldHours: "1.25"}, core.ErrInvalidHours},
		{"zero hours", map[string]string{core.FieldProject: "A", core.FieldHours: "0"}, core.ErrInvalidHours},
		{"bad date", map[string]string{core.FieldProject: "A", core.FieldDate: "2024-02-30"}, core.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := &fakeStore{}
			f := NewForm(fs, quiet())
			for k, v := range tt.fields {
				if err := f.ChangeField(k, v); err != nil {
					t.Fatal(err)
				}
			}
			if _, err := f.Submit(context.Background()); !errors.Is(err, tt.want) {
				t.Fatalf("got %v want %v", err, tt.want)
			}
			if fs.count("create") != 0 {
				t.Fatal("invalid input reached the store")
			}
		})
	}
}

func TestFormFailureKeepsDraft(t *testing.T) {
	fs := &fakeStore{mutateErr: client.ErrMutationFailed}
	n := &recordingNotifier{}
	f := NewForm(fs, WithNotifier(n), quiet())
	_ = f.ChangeField(core.FieldProject, "Acme")

	if _, err := f.Submit(context.Background()); !errors.Is(err, client.ErrMutationFailed) {
		t.Fatalf("got %v", err)
	}
	if f.Draft().Project != "Acme" {
		t.Fatal("draft lost")
	}
	if n.last().msg != NoticeCreateFailed {
		t.Fatalf("notice %+v", n.last())
	}
}

func TestFormUnknownField(t *testing.T) {
	f := NewForm(&fakeStore{}, quiet())
	if err := f.ChangeField("color", "red"); !errors.Is(err, core.ErrUnknownField) {
		t.Fatalf("got %v", err)
	}
}

func TestDateResolver(t *testing.T) {
	now := func() time.Time { return time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC) } // a Wednesday
	r := NewDateResolver(now)

	tests := []struct {
		in, want string
	}{
		{"2024-01-31", "2024-01-31"},
		{" 2024-01-31 ", "2024-01-31"},
		{"yesterday", "2024-03-05"},
		{"today", "2024-03-06"},
		{"tomorrow", "2024-03-07"},
	}
	for _, tt := range tests {
		got, err := r.Resolve(tt.in)
		if err != nil {
			t.Errorf("%q: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%q = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := r.Resolve("not a date"); !errors.Is(err, core.ErrInvalidDate) {
		t.Errorf("garbage: %v", err)
	}
}
