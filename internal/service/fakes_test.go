package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sakif/treatment-companion/internal/apperror"
	"github.com/sakif/treatment-companion/internal/model"
)

// Hand-written in-memory repositories. Each has an err field that, when
// set, every method returns, to simulate a storage fault.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]model.User
	err   error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]model.User)}
}

func (f *fakeUserRepo) Upsert(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}

	now := time.Now()
	stored, ok := f.users[user.ID]
	if !ok {
		stored = model.User{ID: user.ID, CreatedAt: now}
	}
	keep := func(dst **string, src *string) {
		if src != nil {
			*dst = src
		}
	}
	keep(&stored.Email, user.Email)
	keep(&stored.FirstName, user.FirstName)
	keep(&stored.LastName, user.LastName)
	keep(&stored.ProfileImageURL, user.ProfileImageURL)
	keep(&stored.Gender, user.Gender)
	keep(&stored.CancerType, user.CancerType)
	keep(&stored.Phone, user.Phone)
	if user.Age != nil {
		stored.Age = user.Age
	}
	stored.UpdatedAt = now

	f.users[user.ID] = stored
	*user = stored
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return &u, nil
}

type fakeSymptomRepo struct {
	mu       sync.Mutex
	symptoms []model.Symptom
	nextID   int
	err      error
}

func (f *fakeSymptomRepo) Create(_ context.Context, s *model.Symptom) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.nextID++
	s.ID = fmt.Sprintf("sym-%d", f.nextID)
	s.CreatedAt = time.Now()
	f.symptoms = append(f.symptoms, *s)
	return nil
}

func (f *fakeSymptomRepo) ListByUser(_ context.Context, userID string) ([]model.Symptom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []model.Symptom{}
	for i := len(f.symptoms) - 1; i >= 0; i-- {
		if f.symptoms[i].UserID == userID {
			out = append(out, f.symptoms[i])
		}
	}
	return out, nil
}

type fakeAppointmentRepo struct {
	mu     sync.Mutex
	appts  map[string]model.Appointment
	nextID int
	err    error
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{appts: make(map[string]model.Appointment)}
}

func (f *fakeAppointmentRepo) Create(_ context.Context, a *model.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.nextID++
	a.ID = fmt.Sprintf("appt-%d", f.nextID)
	a.Completed = false
	a.CreatedAt = time.Now()
	f.appts[a.ID] = *a
	return nil
}

func (f *fakeAppointmentRepo) ListByUser(_ context.Context, userID string) ([]model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []model.Appointment{}
	for _, a := range f.appts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date+out[i].Time < out[j].Date+out[j].Time
	})
	return out, nil
}

func (f *fakeAppointmentRepo) Get(_ context.Context, id, userID string) (*model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.appts[id]
	if !ok || a.UserID != userID {
		return nil, apperror.NotFound("appointment", id)
	}
	return &a, nil
}

func (f *fakeAppointmentRepo) Update(_ context.Context, id, userID string, upd model.AppointmentUpdate) (*model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.appts[id]
	if !ok || a.UserID != userID {
		return nil, apperror.NotFound("appointment", id)
	}
	applyUpdate(&a, upd)
	f.appts[id] = a
	return &a, nil
}

func (f *fakeAppointmentRepo) Delete(_ context.Context, id, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	a, ok := f.appts[id]
	if !ok || a.UserID != userID {
		return false, nil
	}
	delete(f.appts, id)
	return true, nil
}

// applyUpdate copies every set field onto a, as the UPDATE statement does.
func applyUpdate(a *model.Appointment, upd model.AppointmentUpdate) {
	if upd.Name != nil {
		a.Name = *upd.Name
	}
	if upd.Date != nil {
		a.Date = *upd.Date
	}
	if upd.Time != nil {
		a.Time = *upd.Time
	}
	if upd.Completed != nil {
		a.Completed = *upd.Completed
	}
}
