package engine

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/bkonkle/fleetdash/internal/fleet"
	"github.com/bkonkle/fleetdash/internal/journal"
	"github.com/bkonkle/fleetdash/internal/metrics"
)

// ActionKind names an operator action.
type ActionKind string

const (
	ActionStart  ActionKind = "start"
	ActionStop   ActionKind = "stop"
	ActionDelete ActionKind = "delete"
	ActionAdd    ActionKind = "add"
)

// Outcomes recorded for every action.
const (
	OutcomeSuccess  = "success"
	OutcomeDeclined = "declined"
	OutcomeInvalid  = "invalid"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Notice is a one-shot message about an action.
type Notice struct {
	Action ActionKind
	Index  int
	Name   string
	// Err is nil on success.
	Err     error
	Message string
}

// Recorder persists action outcomes. *journal.Store implements it.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// addInput is the trimmed add-device form.
type addInput struct {
	Name string `json:"name" validate:"required"`
	UDID string `json:"udid" validate:"required"`
}

// Dispatcher runs operator actions: confirm if needed, call the server, then
// refresh the device list on success.
type Dispatcher struct {
	api       ActionAPI
	confirmer Confirmer
	refresher Refresher
	modals    ModalCloser
	notifier  Notifier
	recorder  Recorder
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	validate  *validator.Validate
}

// DispatcherOption configures optional Dispatcher collaborators.
type DispatcherOption func(*Dispatcher)

// WithModals closes sessions focused on a deleted device.
func WithModals(m ModalCloser) DispatcherOption {
	return func(d *Dispatcher) { d.modals = m }
}

// WithNotifier surfaces action notices.
func WithNotifier(n Notifier) DispatcherOption {
	return func(d *Dispatcher) { d.notifier = n }
}

// WithRecorder journals action outcomes.
func WithRecorder(r Recorder) DispatcherOption {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithLogger sets the dispatcher logger.
func WithLogger(l zerolog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

// WithMetrics counts action outcomes.
func WithMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// NewDispatcher creates a dispatcher. confirmer and refresher are required.
func NewDispatcher(api ActionAPI, confirmer Confirmer, refresher Refresher, opts ...DispatcherOption) *Dispatcher {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	d := &Dispatcher{
		api:       api,
		confirmer: confirmer,
		refresher: refresher,
		logger:    zerolog.Nop(),
		validate:  v,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start starts the device at index.
func (d *Dispatcher) Start(ctx context.Context, index int) error {
	return d.run(ctx, ActionStart, index, "", func() (*fleet.ActionResult, error) {
		return d.api.StartDevice(ctx, index)
	})
}

// Stop asks for confirmation, then stops the device at index.
func (d *Dispatcher) Stop(ctx context.Context, index int) error {
	if !d.confirmer.Confirm(ctx, "Are you sure you want to stop this device?") {
		return d.declined(ctx, ActionStop, index, "")
	}
	return d.run(ctx, ActionStop, index, "", func() (*fleet.ActionResult, error) {
		return d.api.StopDevice(ctx, index)
	})
}

// Delete asks for confirmation, then removes the device at index. Any modal
// focused on it is closed once the server confirms.
func (d *Dispatcher) Delete(ctx context.Context, index int, name string) error {
	msg := fmt.Sprintf("Are you sure you want to delete %s? This cannot be undone.", name)
	if !d.confirmer.Confirm(ctx, msg) {
		return d.declined(ctx, ActionDelete, index, name)
	}
	return d.run(ctx, ActionDelete, index, name, func() (*fleet.ActionResult, error) {
		return d.api.DeleteDevice(ctx, index)
	})
}

// Add validates and registers a new device. Both fields are trimmed and must
// be non-empty; otherwise no request is made.
func (d *Dispatcher) Add(ctx context.Context, name, udid string) (*fleet.DeviceConfig, error) {
	in := addInput{Name: strings.TrimSpace(name), UDID: strings.TrimSpace(udid)}

	if err := d.validateAdd(in); err != nil {
		d.finish(ctx, ActionAdd, journal.NoIndex, in.Name, OutcomeInvalid, err, "")
		return nil, err
	}

	var created *fleet.DeviceConfig
	err := d.run(ctx, ActionAdd, journal.NoIndex, in.Name, func() (*fleet.ActionResult, error) {
		result, err := d.api.AddDevice(ctx, in.Name, in.UDID)
		if result != nil {
			created = result.Device
		}
		return result, err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (d *Dispatcher) validateAdd(in addInput) error {
	err := d.validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate add request: %w", err)
	}

	errs := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, ValidationError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: formatValidationError(fe),
		})
	}
	return errs
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("'%s' is required", fe.Field())
	default:
		return fmt.Sprintf("'%s' failed validation '%s'", fe.Field(), fe.Tag())
	}
}

// run performs the call and applies the success or failure policy.
func (d *Dispatcher) run(ctx context.Context, action ActionKind, index int, name string, call func() (*fleet.ActionResult, error)) error {
	result, err := call()
	if err != nil {
		d.finish(ctx, action, index, name, OutcomeFailed, err, "")
		return err
	}

	if !result.Success {
		berr := &BusinessError{Action: action, Index: index, Message: result.Error}
		d.finish(ctx, action, index, name, OutcomeRejected, berr, "")
		return berr
	}

	if action == ActionDelete && d.modals != nil {
		d.modals.CloseIf(index)
	}
	d.refresher.ForceRefresh()
	d.finish(ctx, action, index, name, OutcomeSuccess, nil, successMessage(action, name))
	return nil
}

func (d *Dispatcher) declined(ctx context.Context, action ActionKind, index int, name string) error {
	d.logger.Debug().Str("action", string(action)).Int("index", index).Msg("action declined")
	d.metrics.ActionFinished(string(action), OutcomeDeclined)
	d.journal(ctx, action, index, name, OutcomeDeclined, "")
	return ErrDeclined
}

// finish logs, counts, journals and notifies one outcome.
func (d *Dispatcher) finish(ctx context.Context, action ActionKind, index int, name, outcome string, err error, message string) {
	event := d.logger.Info()
	if err != nil {
		event = d.logger.Warn().Err(err)
	}
	event.Str("action", string(action)).Int("index", index).Str("outcome", outcome).Msg("action finished")

	d.metrics.ActionFinished(string(action), outcome)

	detail := message
	if err != nil {
		detail = err.Error()
	}
	d.journal(ctx, action, index, name, outcome, detail)

	if d.notifier != nil {
		d.notifier.Notify(Notice{Action: action, Index: index, Name: name, Err: err, Message: message})
	}
}

func (d *Dispatcher) journal(ctx context.Context, action ActionKind, index int, name, outcome, detail string) {
	if d.recorder == nil {
		return
	}
	// Journal failures never affect the action itself.
	err := d.recorder.Record(context.WithoutCancel(ctx), journal.Entry{
		Action:  string(action),
		Index:   index,
		Name:    name,
		Outcome: outcome,
		Detail:  detail,
	})
	if err != nil {
		d.logger.Warn().Err(err).Msg("failed to journal action")
	}
}

func successMessage(action ActionKind, name string) string {
	switch action {
	case ActionStart:
		return "Device started successfully"
	case ActionStop:
		return "Device stopped successfully"
	case ActionDelete:
		if name != "" {
			return fmt.Sprintf("Deleted %s", name)
		}
		return "Device deleted successfully"
	case ActionAdd:
		return fmt.Sprintf("Added %s", name)
	default:
		return "Done"
	}
}
