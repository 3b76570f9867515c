// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package web

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/phiona/phiona/internal/authflow"
	"github.com/phiona/phiona/internal/session"
)

// Tab is a pane of the auth modal.
type Tab string

// Auth modal tabs.
const (
	TabLogin          Tab = "login"
	TabRegister       Tab = "register"
	TabForgotPassword Tab = "forgotPassword"
)

// Valid reports whether t names a tab.
func (t Tab) Valid() bool {
	return t == TabLogin || t == TabRegister || t == TabForgotPassword
}

// NotificationType styles a notification.
type NotificationType string

// Notification types.
const (
	NotifySuccess NotificationType = "success"
	NotifyError   NotificationType = "error"
	NotifyInfo    NotificationType = "info"
)

// NotificationTTL is how long a notification stays visible.
const NotificationTTL = 5 * time.Second

// Form names used for busy flags and inline field errors.
const (
	FormLogin     = "login"
	FormRegister  = "register"
	FormReset     = "reset"
	FormHackathon = "hackathon"
	FormProfile   = "profile"
	FormLogout    = "logout"
)

// Notification is a dismissible message.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// Modal is the auth modal state.
type Modal struct {
	Open bool `json:"open"`
	Tab  Tab  `json:"tab"`
}

// Snapshot is what a client renders.
type Snapshot struct {
	Authenticated bool                         `json:"authenticated"`
	UserEmail     string                       `json:"user_email,omitempty"`
	AuthState     authflow.State               `json:"auth_state"`
	Modal         Modal                        `json:"modal"`
	FieldErrors   map[string]map[string]string `json:"field_errors,omitempty"`
	Notifications []Notification               `json:"notifications"`
	Busy          []string                     `json:"busy,omitempty"`
}

// View is the presentation state of one workspace. Every change is pushed
// to watchers as a Snapshot.
type View struct {
	now func() time.Time

	mu          sync.Mutex
	sess        session.Session
	authState   authflow.State
	modal       Modal
	fieldErrors map[string]map[string]string
	notes       []Notification
	busy        map[string]bool
	nextWatcher int
	watchers    map[int]chan Snapshot
}

// NewView creates an empty View.
func NewView(now func() time.Time) *View {
	if now == nil {
		now = time.Now
	}
	return &View{
		now:         now,
		authState:   authflow.StateAnonymous,
		modal:       Modal{Tab: TabLogin},
		fieldErrors: make(map[string]map[string]string),
		busy:        make(map[string]bool),
		watchers:    make(map[int]chan Snapshot),
	}
}

// Snapshot returns the current state. Expired notifications are dropped.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

func (v *View) snapshotLocked() Snapshot {
	now := v.now()
	v.notes = slices.DeleteFunc(v.notes, func(n Notification) bool {
		return !now.Before(n.ExpiresAt)
	})

	s := Snapshot{
		Authenticated: v.sess.Authenticated,
		UserEmail:     v.sess.Email,
		AuthState:     v.authState,
		Modal:         v.modal,
		Notifications: slices.Clone(v.notes),
	}
	if s.Notifications == nil {
		s.Notifications = []Notification{}
	}
	if len(v.fieldErrors) > 0 {
		s.FieldErrors = make(map[string]map[string]string, len(v.fieldErrors))
		for form, errs := range v.fieldErrors {
			s.FieldErrors[form] = maps.Clone(errs)
		}
	}
	for form, on := range v.busy {
		if on {
			s.Busy = append(s.Busy, form)
		}
	}
	slices.Sort(s.Busy)
	return s
}

// OpenModal shows the auth modal on tab and clears that form's errors.
func (v *View) OpenModal(tab Tab) {
	v.update(func() {
		v.modal = Modal{Open: true, Tab: tab}
		delete(v.fieldErrors, formOf(tab))
	})
}

// CloseModal hides the auth modal.
func (v *View) CloseModal() {
	v.update(func() { v.modal.Open = false })
}

// ShowTab switches the modal tab without opening or closing it.
func (v *View) ShowTab(tab Tab) {
	v.update(func() { v.modal.Tab = tab })
}

// Notify adds a notification and returns its id.
func (v *View) Notify(typ NotificationType, message string) string {
	n := Notification{
		ID:        ulid.Make().String(),
		Type:      typ,
		Message:   message,
		ExpiresAt: v.now().Add(NotificationTTL),
	}
	v.update(func() { v.notes = append(v.notes, n) })
	return n.ID
}

// Dismiss removes a notification. It reports whether id was visible.
func (v *View) Dismiss(id string) bool {
	var found bool
	v.update(func() {
		now := v.now()
		v.notes = slices.DeleteFunc(v.notes, func(n Notification) bool {
			if n.ID == id && now.Before(n.ExpiresAt) {
				found = true
				return true
			}
			return false
		})
	})
	return found
}

// SetFieldErrors replaces the inline errors of form. Empty errs clears them.
func (v *View) SetFieldErrors(form string, errs map[string]string) {
	v.update(func() {
		if len(errs) == 0 {
			delete(v.fieldErrors, form)
			return
		}
		v.fieldErrors[form] = maps.Clone(errs)
	})
}

// Begin marks form as submitting. It returns false when a submission of
// form is already in flight.
func (v *View) Begin(form string) bool {
	v.mu.Lock()
	if v.busy[form] {
		v.mu.Unlock()
		return false
	}
	v.busy[form] = true
	v.publishLocked()
	v.mu.Unlock()
	return true
}

// End clears the busy flag of form.
func (v *View) End(form string) {
	v.update(func() { delete(v.busy, form) })
}

// SetSession mirrors the session into the view.
func (v *View) SetSession(s session.Session) {
	v.update(func() { v.sess = s })
}

// SetAuthState mirrors the auth controller state into the view.
func (v *View) SetAuthState(st authflow.State) {
	v.update(func() { v.authState = st })
}

// Watch returns a channel that receives the latest snapshot after every
// change. Slow readers only see the newest snapshot. cancel closes the
// channel.
func (v *View) Watch() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	v.mu.Lock()
	id := v.nextWatcher
	v.nextWatcher++
	v.watchers[id] = ch
	v.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			v.mu.Lock()
			if _, ok := v.watchers[id]; ok {
				delete(v.watchers, id)
				close(ch)
			}
			v.mu.Unlock()
		})
	}
}

// Close closes every watcher channel.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for id, ch := range v.watchers {
		delete(v.watchers, id)
		close(ch)
	}
}

func (v *View) update(fn func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fn()
	v.publishLocked()
}

func (v *View) publishLocked() {
	if len(v.watchers) == 0 {
		return
	}
	snap := v.snapshotLocked()
	for _, ch := range v.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func formOf(tab Tab) string {
	switch tab {
	case TabRegister:
		return FormRegister
	case TabForgotPassword:
		return FormReset
	default:
		return FormLogin
	}
}
