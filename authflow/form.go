package authflow

import (
	"context"
	"sync"

	"github.com/goliatone/go-starter/validation"
)

// State of a form between submissions.
type State int

const (
	Idle State = iota
	Submitting
)

func (s State) String() string {
	if s == Submitting {
		return "submitting"
	}
	return "idle"
}

// Outcome reports how a submission ended.
type Outcome int

const (
	// OutcomeInvalid means local validation failed and nothing was sent.
	OutcomeInvalid Outcome = iota
	// OutcomeBusy means another submission was in flight and this one was dropped.
	OutcomeBusy
	// OutcomeFailed means the service rejected the request.
	OutcomeFailed
	// OutcomeNavigated means the user was signed in and sent to the target.
	OutcomeNavigated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInvalid:
		return "invalid"
	case OutcomeBusy:
		return "busy"
	case OutcomeFailed:
		return "failed"
	case OutcomeNavigated:
		return "navigated"
	}
	return "unknown"
}

// Snapshot is a copy of the form state safe to hand to a view.
type Snapshot struct {
	State       State
	FieldErrors validation.FieldErrors
	Message     string
	Values      validation.Input
}

// Submitting reports whether a request is in flight.
func (s Snapshot) Submitting() bool {
	return s.State == Submitting
}

// Form drives one sign in or sign up form. Validation, the busy guard and
// error bookkeeping live here. Network calls go through Client.
type Form struct {
	mu          sync.Mutex
	state       State
	fieldErrors validation.FieldErrors
	message     string
	values      validation.Input

	client   Client
	cache    Cache
	cacheKey string
	logger   Logger
}

// FormOption configures a Form.
type FormOption func(*Form)

// WithCacheKey sets the key invalidated after a successful sign in.
func WithCacheKey(key string) FormOption {
	return func(f *Form) {
		f.cacheKey = key
	}
}

// WithLogger sets the form logger.
func WithLogger(l Logger) FormOption {
	return func(f *Form) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewForm creates an idle form.
func NewForm(client Client, cache Cache, opts ...FormOption) *Form {
	f := &Form{
		state:       Idle,
		fieldErrors: validation.FieldErrors{},
		client:      client,
		cache:       cache,
		logger:      defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// SubmitLogin validates in and signs the user in.
func (f *Form) SubmitLogin(ctx context.Context, in validation.Input, target string, nav Navigator) (Outcome, error) {
	var creds validation.Credentials
	return f.submit(ctx, in,
		func() *validation.Failure {
			var failure *validation.Failure
			creds, failure = validation.ParseLogin(in)
			return failure
		},
		func(ctx context.Context) (*Session, error) {
			return f.client.SignInEmail(ctx, creds, target)
		},
		target, nav,
	)
}

// SubmitRegister validates in and creates the account.
func (f *Form) SubmitRegister(ctx context.Context, in validation.Input, target string, nav Navigator) (Outcome, error) {
	var reg validation.Registration
	return f.submit(ctx, in,
		func() *validation.Failure {
			var failure *validation.Failure
			reg, failure = validation.ParseRegister(in)
			return failure
		},
		func(ctx context.Context) (*Session, error) {
			return f.client.SignUpEmail(ctx, reg, target)
		},
		target, nav,
	)
}

// SubmitSocial starts a provider sign in. There are no local fields so
// validation is skipped, the busy guard still applies.
func (f *Form) SubmitSocial(ctx context.Context, provider Provider, target string, nav Navigator) (Outcome, error) {
	return f.submit(ctx, nil, nil,
		func(ctx context.Context) (*Session, error) {
			return f.client.SignInSocial(ctx, provider, target)
		},
		target, nav,
	)
}

// Snapshot copies the current state.
func (f *Form) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	errs := make(validation.FieldErrors, len(f.fieldErrors))
	for k, v := range f.fieldErrors {
		errs[k] = v
	}

	values := make(validation.Input, len(f.values))
	for k, v := range f.values {
		values[k] = v
	}

	return Snapshot{
		State:       f.state,
		FieldErrors: errs,
		Message:     f.message,
		Values:      values,
	}
}

// State returns the current state.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Form) submit(
	ctx context.Context,
	in validation.Input,
	validate func() *validation.Failure,
	call func(context.Context) (*Session, error),
	target string,
	nav Navigator,
) (Outcome, error) {
	f.mu.Lock()
	if f.state == Submitting {
		f.mu.Unlock()
		f.logger.Debug("submission ignored, request in flight")
		return OutcomeBusy, nil
	}

	if in != nil {
		f.values = retained(in)
	}

	if validate != nil {
		if failure := validate(); failure != nil {
			f.fieldErrors = failure.FieldErrors()
			f.state = Idle
			f.mu.Unlock()
			return OutcomeInvalid, nil
		}
	}

	f.fieldErrors = validation.FieldErrors{}
	f.message = ""
	f.state = Submitting
	f.mu.Unlock()

	session, err := call(ctx)

	f.mu.Lock()
	f.state = Idle
	if err != nil {
		f.message = MessageFrom(err)
		f.mu.Unlock()
		f.logger.Info("sign in rejected", "error", err)
		return OutcomeFailed, nil
	}
	f.mu.Unlock()

	if f.cache != nil && f.cacheKey != "" {
		f.cache.Invalidate(f.cacheKey)
	}

	if nav == nil {
		return OutcomeNavigated, nil
	}
	return OutcomeNavigated, nav.Navigate(target, session)
}

// retained drops secrets so they never outlive the request.
func retained(in validation.Input) validation.Input {
	out := make(validation.Input, len(in))
	for k, v := range in {
		if k == validation.FieldPassword || k == validation.FieldConfirmPassword {
			continue
		}
		out[k] = v
	}
	return out
}
