// Package registration implements the two-step professional registration
// wizard: identity and license first, facility second, one submission.
package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/liberianpost/healthgate/api"
	"github.com/liberianpost/healthgate/core"
)

// Server rejections surfaced as typed errors so the caller can render the
// right guidance. The backend distinguishes these only by message text.
var (
	// ErrUnknownDSSN: the DSSN has no account; the user must register in
	// the Digital Liberia mobile app before applying as a professional.
	ErrUnknownDSSN = errors.New("no user found with this DSSN")

	// ErrDuplicateLicense: the license number is already registered
	ErrDuplicateLicense = errors.New("license number already registered")

	// ErrProfilePending: a profile for this DSSN exists awaiting review
	ErrProfilePending = errors.New("professional profile already registered and pending review")

	// ErrProfileApproved: a profile for this DSSN is already approved
	ErrProfileApproved = errors.New("professional profile already approved")
)

// Step is the wizard's position.
type Step int

const (
	StepIdentity Step = iota + 1
	StepFacility
	StepDone
)

// SubmitFunc posts the completed draft; api.Client.RegisterProfessional
// satisfies it.
type SubmitFunc func(ctx context.Context, draft core.RegistrationDraft) (*api.RegisterResult, error)

// Wizard holds the draft across steps and gates each advance on local
// validation, so no network call ever carries an invalid draft.
type Wizard struct {
	draft      core.RegistrationDraft
	step       Step
	submit     SubmitFunc
	onComplete func(core.RegistrationDraft)
	now        func() time.Time
}

// Option adjusts wizard construction.
type Option func(*Wizard)

// WithCompletion registers a callback invoked once after a successful
// submission.
func WithCompletion(fn func(core.RegistrationDraft)) Option {
	return func(w *Wizard) { w.onComplete = fn }
}

// WithClock overrides the clock used for license expiry checks.
func WithClock(now func() time.Time) Option {
	return func(w *Wizard) { w.now = now }
}

// NewWizard starts a wizard at the identity step. A known DSSN may be
// pre-filled; the facility type defaults to hospital.
func NewWizard(prefillDSSN string, submit SubmitFunc, opts ...Option) *Wizard {
	w := &Wizard{
		draft: core.RegistrationDraft{
			DSSN:         strings.TrimSpace(prefillDSSN),
			FacilityType: core.FacilityHospital,
		},
		step:   StepIdentity,
		submit: submit,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Draft gives mutable access to the form state.
func (w *Wizard) Draft() *core.RegistrationDraft {
	return &w.draft
}

// Step returns the wizard's current step.
func (w *Wizard) Step() Step {
	return w.step
}

// Next validates the current step and advances. It never skips a gate: an
// invalid step stays put and returns the validation error.
func (w *Wizard) Next() error {
	switch w.step {
	case StepIdentity:
		if err := w.draft.ValidateIdentity(w.now()); err != nil {
			return err
		}
		w.step = StepFacility
		return nil
	case StepFacility:
		return errors.New("facility step completes via Submit")
	default:
		return errors.New("wizard already complete")
	}
}

// Back returns to the identity step without validating.
func (w *Wizard) Back() {
	if w.step == StepFacility {
		w.step = StepIdentity
	}
}

// Submit validates the whole draft, posts it once, and maps the server's
// rejection taxonomy onto typed errors. On success the wizard reaches its
// terminal step and fires the completion callback.
func (w *Wizard) Submit(ctx context.Context) error {
	if w.step != StepFacility {
		return fmt.Errorf("submit from step %d: complete the identity step first", w.step)
	}
	if err := w.draft.ValidateIdentity(w.now()); err != nil {
		return err
	}
	if err := w.draft.ValidateFacility(); err != nil {
		return err
	}
	w.draft.Normalize()

	res, err := w.submit(ctx, w.draft)
	if err != nil {
		return classify(err)
	}
	if !res.Success {
		return classify(&core.RemoteError{Message: res.Message})
	}

	w.step = StepDone
	if w.onComplete != nil {
		w.onComplete(w.draft)
	}
	return nil
}

// classify matches the backend's message taxonomy. Unrecognized errors
// pass through untouched so their message still reaches the user.
func classify(err error) error {
	var remote *core.RemoteError
	if !errors.As(err, &remote) {
		return err
	}
	msg := strings.ToLower(remote.Message)
	switch {
	case strings.Contains(msg, "no user found with this dssn"):
		return fmt.Errorf("%w: register through the Digital Liberia mobile app first", ErrUnknownDSSN)
	case strings.Contains(msg, "license number already registered"):
		return ErrDuplicateLicense
	case strings.Contains(msg, "already approved"):
		return ErrProfileApproved
	case strings.Contains(msg, "already registered"), strings.Contains(msg, "pending"):
		return ErrProfilePending
	default:
		return err
	}
}
