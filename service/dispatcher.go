package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cydxin/presence-sdk/config"
	"github.com/cydxin/presence-sdk/cons"
	"github.com/cydxin/presence-sdk/hub"
	"github.com/cydxin/presence-sdk/metrics"
	"github.com/cydxin/presence-sdk/models"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Input describes one notification to deliver to one user.
type Input struct {
	UserID  string `json:"user_id" validate:"required,max=36"`
	Type    string `json:"type" validate:"required,max=64"`
	Title   string `json:"title" validate:"required,max=255"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Outcome is the result of one delivery channel. It is reported, never raised.
type Outcome struct {
	Channel    string        `json:"channel"`
	Status     string        `json:"status"`
	Recipients int           `json:"recipients,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
	Err        error         `json:"-"`
}

type Deliveries struct {
	Realtime Outcome `json:"realtime"`
	Push     Outcome `json:"push"`
	Email    Outcome `json:"email"`
}

type Result struct {
	Record     *models.Notification `json:"record"`
	Deliveries Deliveries           `json:"deliveries"`
}

// UserResult is one entry of a multi-user dispatch. Err is set when the
// dispatch for that user did not happen at all (invalid input, persistence).
type UserResult struct {
	UserID string  `json:"user_id"`
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"-"`
}

// DispatcherDeps are the collaborators of a Dispatcher. Store and Preferences
// are required; a nil Push or Mailer marks that channel as skipped.
type DispatcherDeps struct {
	Store       NotificationStore
	Preferences PreferenceResolver
	Realtime    Broadcaster
	Push        PushSender
	Mailer      Mailer
	Projects    ProjectDirectory
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
}

// Dispatcher persists a notification, then delivers it over realtime, push
// and email concurrently. A channel failure never affects another channel,
// and only a persistence failure is returned to the caller.
type Dispatcher struct {
	DispatcherDeps
	cfg      config.DispatchConfig
	validate *validator.Validate
	tracer   trace.Tracer
	logger   *zap.Logger
}

func NewDispatcher(deps DispatcherDeps, cfg config.DispatchConfig) *Dispatcher {
	if cfg.ChannelTimeout <= 0 {
		cfg.ChannelTimeout = 10 * time.Second
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 16
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		DispatcherDeps: deps,
		cfg:            cfg,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		tracer:         otel.Tracer("presence-sdk/dispatch"),
		logger:         logger.Named("dispatch"),
	}
}

// Dispatch stores the notification and fans it out. The returned Result
// carries the stored record and one Outcome per channel.
func (d *Dispatcher) Dispatch(ctx context.Context, in Input) (*Result, error) {
	if err := d.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	ctx, span := d.tracer.Start(ctx, "notification.dispatch", trace.WithAttributes(
		attribute.String("user_id", in.UserID),
		attribute.String("notification.type", in.Type),
	))
	defer span.End()
	defer d.Metrics.DispatchDone(time.Now())

	rec := &models.Notification{
		UserID:  in.UserID,
		Type:    in.Type,
		Title:   in.Title,
		Message: in.Message,
	}
	if in.Data != nil {
		b, err := json.Marshal(in.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: data: %v", ErrInvalidInput, err)
		}
		rec.Data = b
	}

	if err := d.Store.Create(ctx, rec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist")
		d.logger.Error("persist notification", zap.String("user", in.UserID), zap.String("type", in.Type), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	span.SetAttributes(attribute.String("notification.id", rec.ID))

	// Push and email share one lookup.
	prefs := sync.OnceValues(func() (Preferences, error) {
		ctx, cancel := context.WithTimeout(ctx, d.cfg.ChannelTimeout)
		defer cancel()
		return d.Preferences.Resolve(ctx, in.UserID)
	})

	var out Deliveries
	var wg sync.WaitGroup
	wg.Add(3)
	go d.deliver(ctx, &wg, cons.ChannelRealtime, &out.Realtime, func(context.Context) Outcome {
		return d.realtime(rec)
	})
	go d.deliver(ctx, &wg, cons.ChannelPush, &out.Push, func(ctx context.Context) Outcome {
		return d.push(ctx, rec, prefs)
	})
	go d.deliver(ctx, &wg, cons.ChannelEmail, &out.Email, func(ctx context.Context) Outcome {
		return d.email(ctx, rec, prefs)
	})
	wg.Wait()

	d.logger.Info("notification dispatched",
		zap.String("id", rec.ID),
		zap.String("user", rec.UserID),
		zap.String("type", rec.Type),
		zap.String("realtime", out.Realtime.Status),
		zap.String("push", out.Push.Status),
		zap.String("email", out.Email.Status),
	)
	return &Result{Record: rec, Deliveries: out}, nil
}

// deliver runs one channel under its own timeout and turns a panic or an
// overrun into a failed outcome.
func (d *Dispatcher) deliver(ctx context.Context, wg *sync.WaitGroup, channel string, dst *Outcome, fn func(context.Context) Outcome) {
	defer wg.Done()
	start := time.Now()

	ctx, span := d.tracer.Start(ctx, "notification.deliver."+channel)
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, d.cfg.ChannelTimeout)
	defer cancel()

	done := make(chan Outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- failed(fmt.Errorf("panic: %v", r))
			}
		}()
		done <- fn(ctx)
	}()

	var o Outcome
	select {
	case o = <-done:
	case <-ctx.Done():
		o = failed(fmt.Errorf("%s channel: %w", channel, ctx.Err()))
	}
	o.Channel = channel
	o.Duration = time.Since(start)

	span.SetAttributes(attribute.String("status", o.Status))
	d.Metrics.Delivery(channel, o.Status)
	if o.Status == cons.StatusFailed {
		span.RecordError(o.Err)
		span.SetStatus(codes.Error, o.Reason)
		d.logger.Warn("delivery failed", zap.String("channel", channel), zap.Error(o.Err))
	} else {
		d.logger.Debug("delivery done", zap.String("channel", channel), zap.String("status", o.Status), zap.String("reason", o.Reason))
	}
	*dst = o
}

func (d *Dispatcher) realtime(rec *models.Notification) Outcome {
	if d.Realtime == nil {
		return skipped("realtime not configured")
	}
	res, err := d.Realtime.Broadcast(hub.UserRoom(rec.UserID), cons.EventNotification, rec)
	switch {
	case err != nil:
		return failed(err)
	case res.Recipients == 0:
		return skipped("recipient offline")
	case res.Failed == res.Recipients:
		o := failed(fmt.Errorf("all %d connection writes failed", res.Failed))
		o.Recipients = res.Recipients
		return o
	}
	return Outcome{Status: cons.StatusDelivered, Recipients: res.Recipients - res.Failed}
}

func (d *Dispatcher) push(ctx context.Context, rec *models.Notification, prefs func() (Preferences, error)) Outcome {
	if d.Push == nil {
		return skipped("push not configured")
	}
	p, err := prefs()
	if err != nil {
		return failed(fmt.Errorf("resolve preferences: %w", err))
	}
	if !p.PushEnabled {
		return skipped("disabled by preference")
	}
	return sent(d.Push.Send(ctx, rec.UserID, rec))
}

func (d *Dispatcher) email(ctx context.Context, rec *models.Notification, prefs func() (Preferences, error)) Outcome {
	if d.Mailer == nil {
		return skipped("email not configured")
	}
	p, err := prefs()
	if err != nil {
		return failed(fmt.Errorf("resolve preferences: %w", err))
	}
	if !p.EmailEnabled {
		return skipped("disabled by preference")
	}
	return sent(d.Mailer.Send(ctx, rec.UserID, rec))
}

// DispatchToMany dispatches in to every distinct non-empty user id, at most
// cfg.MaxParallel at a time. Results follow the order of first appearance.
func (d *Dispatcher) DispatchToMany(ctx context.Context, userIDs []string, in Input) []UserResult {
	ids := lo.Uniq(lo.Compact(userIDs))
	out := make([]UserResult, len(ids))

	var g errgroup.Group
	g.SetLimit(d.cfg.MaxParallel)
	for i, uid := range ids {
		g.Go(func() error {
			one := in
			one.UserID = uid
			res, err := d.Dispatch(ctx, one)
			out[i] = UserResult{UserID: uid, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// DispatchToProjectMembers dispatches to every member of projectID except
// excludeUserID (usually the actor). A membership lookup error is returned
// since there is nobody to deliver to.
func (d *Dispatcher) DispatchToProjectMembers(ctx context.Context, projectID string, in Input, excludeUserID string) ([]UserResult, error) {
	if d.Projects == nil {
		return nil, errors.New("no project directory configured")
	}
	members, err := d.Projects.MembersOf(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("project %s members: %w", projectID, err)
	}
	if excludeUserID != "" {
		members = lo.Without(members, excludeUserID)
	}
	return d.DispatchToMany(ctx, members, in), nil
}

// BroadcastProjectUpdate emits a project_update event into project:<id>.
// Nothing is persisted.
func (d *Dispatcher) BroadcastProjectUpdate(projectID string, payload any) (hub.BroadcastResult, error) {
	if d.Realtime == nil {
		return hub.BroadcastResult{}, errors.New("realtime not configured")
	}
	return d.Realtime.Broadcast(hub.ProjectRoom(projectID), cons.EventProjectUpdate, payload)
}

func sent(err error) Outcome {
	switch {
	case err == nil:
		return Outcome{Status: cons.StatusDelivered}
	case errors.Is(err, ErrNoRecipient):
		return skipped(err.Error())
	default:
		return failed(err)
	}
}

func failed(err error) Outcome {
	return Outcome{Status: cons.StatusFailed, Reason: err.Error(), Err: err}
}

func skipped(reason string) Outcome {
	return Outcome{Status: cons.StatusSkipped, Reason: reason}
}
