package service

import (
	"context"
	"errors"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"storefront/internal/domains/address/model"
	"storefront/internal/domains/address/repository"
	"storefront/internal/infrastructure/api"
	"storefront/internal/shared"
	"storefront/internal/shared/notify"
	"storefront/pkg/logger"
)

// maxAddressPages bounds LoadSaved against a misbehaving paginator
const maxAddressPages = 50

type mode int

const (
	modeSaved mode = iota
	modeNew
)

// Selector turns the shopper's address choice into a single PendingAddress.
// Every change is pushed to the subscriber; the subscriber must not call back
// into the selector.
type Selector struct {
	repo     repository.RepositoryInterface
	notifier notify.Notifier

	mu        sync.Mutex
	saved     []model.Address
	loaded    bool
	mode      mode
	selected  shared.ID
	form      model.AddressFormFields
	formErrs  map[string]string
	pending   model.PendingAddress
	listeners []func(model.PendingAddress)
}

func NewSelector(repo repository.RepositoryInterface, notifier notify.Notifier) *Selector {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Selector{
		repo:     repo,
		notifier: notifier,
		pending:  model.None(),
		formErrs: map[string]string{},
	}
}

// Subscribe registers fn to receive every emitted PendingAddress. fn is
// called once immediately with the current value.
func (s *Selector) Subscribe(fn func(model.PendingAddress)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
	fn(s.pending)
}

// LoadSaved fetches every page of saved addresses. A shopper with none gets
// the new-address form by default.
func (s *Selector) LoadSaved(ctx context.Context) error {
	all, err := api.FetchAll(ctx, maxAddressPages, s.repo.List)
	if err != nil {
		logger.Error("load saved addresses failed", err)
		s.notifier.Notify(notify.LevelError, api.MessageOr(err, model.ErrLoadFailed.Message))
		return model.Wrap(model.ErrLoadFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = all
	s.loaded = true

	// a selection that disappeared from the list is no longer valid
	if s.mode == modeSaved && !s.selected.IsZero() {
		if _, ok := s.find(s.selected); !ok {
			s.selected = ""
			s.emit(model.None())
		}
	}
	// the form shown by default for an empty list is hidden once addresses arrive
	if s.mode == modeSaved && len(all) > 0 && s.pending.Kind() == model.PendingNew {
		s.emit(model.None())
	}
	logger.DebugFields("saved addresses loaded", map[string]interface{}{"count": len(all)})
	return nil
}

// Loaded reports whether LoadSaved has completed at least once
func (s *Selector) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// SavedAddresses returns a copy of the loaded list
func (s *Selector) SavedAddresses() []model.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Address(nil), s.saved...)
}

// ShowNewForm reports whether the new-address form is the active input
func (s *Selector) ShowNewForm() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showNewForm()
}

func (s *Selector) showNewForm() bool {
	return len(s.saved) == 0 || s.mode == modeNew
}

// SelectExisting picks a saved address and hides the new-address form. An
// unknown id emits None.
func (s *Selector) SelectExisting(id shared.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.find(id); !ok {
		s.selected = ""
		s.emit(model.None())
		return model.ErrAddressNotFound
	}

	s.mode = modeSaved
	s.selected = id
	s.emit(model.Existing(id))
	return nil
}

// UseNewForm switches to the new-address form, discarding any selection.
func (s *Selector) UseNewForm() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mode = modeNew
	s.selected = ""
	s.emit(s.evaluateForm())
}

// UseSavedList switches back to the saved list. Form fields stay as typed
// but are no longer emitted.
func (s *Selector) UseSavedList() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mode = modeSaved
	s.emit(model.None())
}

// UpdateForm stores the typed fields. While the form is active it emits New
// once the fields validate and None otherwise. The returned error is the
// validation result.
func (s *Selector) UpdateForm(fields model.AddressFormFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.form = fields
	pending := s.evaluateForm()
	if s.showNewForm() {
		s.selected = ""
		s.emit(pending)
	}
	if pending.IsNone() {
		return model.ErrInvalidAddress
	}
	return nil
}

func (s *Selector) Pending() model.PendingAddress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *Selector) Form() model.AddressFormFields {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

// FormErrors maps json field name to message for the last validation run
func (s *Selector) FormErrors() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.formErrs))
	for k, v := range s.formErrs {
		out[k] = v
	}
	return out
}

// evaluateForm validates the stored form and returns what it would emit
func (s *Selector) evaluateForm() model.PendingAddress {
	s.formErrs = map[string]string{}

	err := s.form.Validate()
	if err == nil {
		return model.New(s.form)
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		for field, fe := range fieldErrs {
			s.formErrs[field] = fe.Error()
		}
	} else {
		s.formErrs["_"] = err.Error()
	}
	return model.None()
}

func (s *Selector) find(id shared.ID) (model.Address, bool) {
	for _, a := range s.saved {
		if a.ID == id {
			return a, true
		}
	}
	return model.Address{}, false
}

func (s *Selector) emit(p model.PendingAddress) {
	s.pending = p
	for _, fn := range s.listeners {
		fn(p)
	}
}
