// Package authflow drives the sign-in screens: login, register, otp and
// dashboard. The Controller owns the current view, talks to the REST API
// through a Transport and records every authentication change in the
// session Manager.
package authflow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/otpchat/chat-api/internal/client/api"
	"github.com/otpchat/chat-api/internal/client/session"
	"github.com/otpchat/chat-api/internal/core/domain"
)

type View = session.View

const (
	ViewLogin     = session.ViewLogin
	ViewRegister  = session.ViewRegister
	ViewOTP       = session.ViewOTP
	ViewDashboard = session.ViewDashboard
)

var (
	// ErrBusy rejects a submit while another one is in flight.
	ErrBusy = errors.New("a request is already in progress")
	// ErrCooldownActive rejects a resend before the countdown elapsed.
	ErrCooldownActive = errors.New("please wait before requesting another OTP")
	// ErrWrongView rejects an action the current view does not offer.
	ErrWrongView = errors.New("action not available in the current view")
)

// Transport is the subset of the REST client the flow needs.
type Transport interface {
	Register(ctx context.Context, phone, fullName string) (*api.Registration, error)
	VerifyOTP(ctx context.Context, phone, code string) (*api.Session, error)
	Login(ctx context.Context, phone string) (*api.Session, error)
	Logout(ctx context.Context, token string) error
}

type Options struct {
	// Hint is a requested starting view. It wins over the stored
	// session when the session can back it.
	Hint     View
	Cooldown time.Duration
	Clock    Clock
	Log      zerolog.Logger
}

type Controller struct {
	api      Transport
	sess     *session.Manager
	cooldown *Cooldown
	log      zerolog.Logger

	mu       sync.Mutex
	view     View
	phone    string
	fullName string
	err      error
	busy     bool
	// applying counts in-progress writes of our own, whose change
	// notifications must not move the view.
	applying    int
	unsubscribe func()
}

// New builds a Controller from the Manager's current snapshot. Call
// Manager.Load first when resuming from a persisted session.
func New(transport Transport, sess *session.Manager, opts Options) *Controller {
	c := &Controller{
		api:      transport,
		sess:     sess,
		cooldown: NewCooldown(opts.Cooldown, opts.Clock),
		log:      opts.Log,
	}

	snap := sess.Snapshot()
	c.view = initialView(opts.Hint, snap)
	if snap.Pending() {
		c.phone = snap.User.PhoneNumber
		c.fullName = snap.User.FullName
	}
	// Entering otp always starts a fresh resend countdown, resumed or not.
	if c.view == ViewOTP {
		c.cooldown.Start()
	}
	c.unsubscribe = sess.Subscribe(c.onSession)
	return c
}

// initialView resolves the starting view: explicit hint, then stored
// session, then login.
func initialView(hint View, s session.Snapshot) View {
	switch hint {
	case ViewLogin, ViewRegister:
		return hint
	case ViewDashboard:
		if s.Verified() {
			return ViewDashboard
		}
	case ViewOTP:
		if s.Pending() {
			return ViewOTP
		}
	}

	switch {
	case s.Verified():
		return ViewDashboard
	case s.Pending():
		return ViewOTP
	default:
		return ViewLogin
	}
}

// Close detaches the Controller from the session Manager.
func (c *Controller) Close() {
	c.unsubscribe()
	c.cooldown.Cancel()
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Err is the failure of the last action, or nil.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Pending returns the registration awaiting verification, if any.
func (c *Controller) Pending() (phone, fullName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phone, c.fullName
}

func (c *Controller) CooldownRemaining() time.Duration {
	return c.cooldown.Remaining()
}

// OnCooldownExpired registers fn to run when a resend becomes possible.
func (c *Controller) OnCooldownExpired(fn func()) {
	c.cooldown.OnExpire(fn)
}

// DismissError clears the surfaced error.
func (c *Controller) DismissError() {
	c.mu.Lock()
	c.err = nil
	c.mu.Unlock()
}

func (c *Controller) GoToRegister() error {
	return c.navigate(ViewLogin, ViewRegister)
}

func (c *Controller) GoToLogin() error {
	return c.navigate(ViewRegister, ViewLogin)
}

func (c *Controller) SubmitLogin(ctx context.Context, phone string) error {
	phone = strings.TrimSpace(phone)
	if err := c.begin(ViewLogin); err != nil {
		return err
	}
	if err := local(domain.ValidatePhone(phone)); err != nil {
		return c.finish(err, nil)
	}

	s, err := c.api.Login(ctx, phone)
	if err != nil {
		return c.finish(err, nil)
	}
	if err := c.persist(func() error { return c.sess.Save(ctx, signedIn(s, "")) }); err != nil {
		return c.finish(fmt.Errorf("save session: %w", err), nil)
	}
	return c.finish(nil, func() {
		c.view = ViewDashboard
		c.phone, c.fullName = "", ""
	})
}

func (c *Controller) SubmitRegistration(ctx context.Context, phone, fullName string) error {
	phone = strings.TrimSpace(phone)
	fullName = strings.TrimSpace(fullName)
	if err := c.begin(ViewRegister); err != nil {
		return err
	}
	if err := local(domain.ValidatePhone(phone)); err != nil {
		return c.finish(err, nil)
	}
	if err := local(domain.ValidateFullName(fullName)); err != nil {
		return c.finish(err, nil)
	}

	reg, err := c.api.Register(ctx, phone, fullName)
	if err != nil {
		return c.finish(err, nil)
	}
	if reg.FullName == "" {
		reg.FullName = fullName
	}
	pending := session.Snapshot{
		User: &session.User{PhoneNumber: reg.PhoneNumber, FullName: reg.FullName},
		View: ViewOTP,
	}
	if err := c.persist(func() error { return c.sess.Save(ctx, pending) }); err != nil {
		return c.finish(fmt.Errorf("save session: %w", err), nil)
	}
	return c.finish(nil, func() {
		c.view = ViewOTP
		c.phone, c.fullName = reg.PhoneNumber, reg.FullName
		c.cooldown.Start()
	})
}

// SubmitOTP verifies code for the pending registration. A failure leaves
// the flow on the otp view and does not touch the resend countdown.
func (c *Controller) SubmitOTP(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if err := c.begin(ViewOTP); err != nil {
		return err
	}
	if err := local(domain.ValidateOTPCode(code)); err != nil {
		return c.finish(err, nil)
	}
	phone, fullName := c.Pending()

	s, err := c.api.VerifyOTP(ctx, phone, code)
	if err != nil {
		return c.finish(err, nil)
	}
	if err := c.persist(func() error { return c.sess.Save(ctx, signedIn(s, fullName)) }); err != nil {
		return c.finish(fmt.Errorf("save session: %w", err), nil)
	}
	return c.finish(nil, func() {
		c.view = ViewDashboard
		c.phone, c.fullName = "", ""
		c.cooldown.Cancel()
	})
}

// ResendOTP registers the pending number again once the countdown has
// elapsed. Before that it fails locally with ErrCooldownActive.
func (c *Controller) ResendOTP(ctx context.Context) error {
	if err := c.begin(ViewOTP); err != nil {
		return err
	}
	if left := c.cooldown.Remaining(); left > 0 {
		return c.finish(fmt.Errorf("%w (%s left)", ErrCooldownActive, left.Round(time.Second)), nil)
	}
	phone, fullName := c.Pending()

	if _, err := c.api.Register(ctx, phone, fullName); err != nil {
		return c.finish(err, nil)
	}
	return c.finish(nil, func() {
		c.cooldown.Start()
	})
}

// BackToRegister abandons the pending verification. The phone number
// and name stay available through Pending to prefill the form.
func (c *Controller) BackToRegister(ctx context.Context) error {
	if err := c.begin(ViewOTP); err != nil {
		return err
	}
	if err := c.persist(func() error { return c.sess.Clear(ctx) }); err != nil {
		return c.finish(fmt.Errorf("clear session: %w", err), nil)
	}
	return c.finish(nil, func() {
		c.view = ViewRegister
		c.cooldown.Cancel()
	})
}

// Logout tells the server, which never fails the flow, then clears the
// session and returns to login.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	c.busy = true
	c.err = nil
	c.mu.Unlock()

	if token := c.sess.Snapshot().AccessToken; token != "" {
		if err := c.api.Logout(ctx, token); err != nil {
			c.log.Warn().Err(err).Msg("server logout failed")
		}
	}
	clearErr := c.persist(func() error { return c.sess.Clear(ctx) })

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	c.resetLocked()
	if clearErr != nil {
		c.err = fmt.Errorf("clear session: %w", clearErr)
		return c.err
	}
	return nil
}

// onSession follows changes made elsewhere: a cleared session sends the
// flow back to login, a signed-in one moves it to the dashboard.
func (c *Controller) onSession(s session.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.applying > 0 {
		return
	}
	switch {
	case s.Empty() && c.view != ViewLogin:
		c.log.Debug().Str("from", string(c.view)).Msg("session cleared elsewhere")
		c.resetLocked()
	case s.Verified() && c.view != ViewDashboard:
		c.view = ViewDashboard
		c.phone, c.fullName = "", ""
		c.cooldown.Cancel()
	}
}

func (c *Controller) resetLocked() {
	c.view = ViewLogin
	c.phone, c.fullName = "", ""
	c.cooldown.Cancel()
}

func (c *Controller) navigate(from, to View) error {
	if err := c.begin(from); err != nil {
		return err
	}
	return c.finish(nil, func() { c.view = to })
}

func (c *Controller) begin(allowed ...View) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrBusy
	}
	if !slices.Contains(allowed, c.view) {
		return fmt.Errorf("%w: %s", ErrWrongView, c.view)
	}
	c.busy = true
	c.err = nil
	return nil
}

// finish ends an action. On success advance runs under the lock; on
// failure the view is left unchanged and err is surfaced.
func (c *Controller) finish(err error, advance func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	c.err = err
	if err == nil && advance != nil {
		advance()
	}
	return err
}

func (c *Controller) persist(write func() error) error {
	c.mu.Lock()
	c.applying++
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.applying--
		c.mu.Unlock()
	}()
	return write()
}

// signedIn normalizes a verify or login result into a snapshot.
func signedIn(s *api.Session, fallbackName string) session.Snapshot {
	name := s.User.FullName
	if name == "" {
		name = fallbackName
	}
	return session.Snapshot{
		User: &session.User{
			ID:          s.User.ID,
			PhoneNumber: s.User.PhoneNumber,
			FullName:    name,
			IsVerified:  true,
		},
		AccessToken: s.AccessToken,
		IsVerified:  true,
		View:        ViewDashboard,
	}
}

// local turns a domain validation failure into the transport's error type
// so callers handle both the same way.
func local(err error) error {
	if err == nil {
		return nil
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return &api.Error{Kind: api.KindValidation, Message: ve.Message, Err: err}
	}
	return err
}
