// Package session implements the try-on session state machine.
//
// A Controller owns one TrySession: the mode, the catalog item being tried on,
// the chosen size and color, and the visual resource on screen. Modes move
//
//	idle -> choosing_method -> live_camera | photo_review -> idle
//
// and every transition that leaves live_camera or photo_review, or swaps the
// photo, releases the resource it drops. Acquisitions run outside the lock;
// each is tagged with the session epoch, and a resolution that comes back
// after the session was cancelled or replaced is released instead of attached.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"ar-tryon/pkg/catalog"
	"ar-tryon/pkg/media"
	"ar-tryon/pkg/utils"
)

var logger *zap.SugaredLogger

func init() {
	logger = utils.GetLogger()
}

type pending struct {
	method Method
	cancel context.CancelFunc
}

// request is an acquisition that has been admitted but not resolved.
type request struct {
	ctx    context.Context
	cancel context.CancelFunc
	method Method
	epoch  uint64
}

type Controller struct {
	acquirer Acquirer

	lock        sync.Mutex
	fsm         *fsm.FSM
	item        *catalog.Item
	size        string
	color       string
	resource    media.Resource
	photoMethod Method
	pending     *pending
	notice      string
	epoch       uint64
	closed      bool
	// released by unlock, outside the lock
	dropped []media.Resource

	subs   map[int]chan Snapshot
	nextID int
}

func NewController(acquirer Acquirer) *Controller {
	c := &Controller{
		acquirer: acquirer,
		subs:     make(map[int]chan Snapshot),
	}
	states := []string{Idle.String(), ChoosingMethod.String(), LiveCamera.String(), PhotoReview.String()}
	c.fsm = fsm.NewFSM(
		Idle.String(),
		fsm.Events{
			{Name: eventStart, Src: states, Dst: ChoosingMethod.String()},
			{Name: eventAttachStream, Src: []string{ChoosingMethod.String()}, Dst: LiveCamera.String()},
			{Name: eventAttachImage, Src: []string{ChoosingMethod.String(), PhotoReview.String()}, Dst: PhotoReview.String()},
			{Name: eventCancel, Src: states[1:], Dst: Idle.String()},
		},
		fsm.Callbacks{
			"leave_state": func(_ context.Context, e *fsm.Event) {
				c.dropResource()
			},
			"enter_state": func(_ context.Context, e *fsm.Event) {
				logger.Infof("session: %s -> %s (%s)", e.Src, e.Dst, e.Event)
			},
		},
	)

	return c
}

// StartTryOn opens a new session for item, replacing any current one.
// Size and color default to the item's first entries.
func (c *Controller) StartTryOn(item *catalog.Item) error {
	if item == nil {
		return fmt.Errorf("%w: no item", ErrInvalidSelection)
	}
	if len(item.Sizes) == 0 || len(item.Colors) == 0 {
		return fmt.Errorf("%w: item %q offers no sizes or colors", ErrInvalidSelection, item.ID)
	}

	c.lock.Lock()
	defer c.unlock()
	if c.closed {
		return errClosed
	}

	c.abandonLocked()
	if err := c.fire(eventStart); err != nil {
		return err
	}
	it := item.Clone()
	c.item = &it
	c.size = it.DefaultSize()
	c.color = it.DefaultColor()
	c.photoMethod = MethodNone
	c.notice = ""
	c.publishLocked()

	return nil
}

// Choose requests a resource with method and blocks until it resolves.
// A user abort resolves to nil and leaves the session choosing.
func (c *Controller) Choose(ctx context.Context, method Method) error {
	r, err := c.begin(ctx, method, false)
	if err != nil {
		return err
	}
	return c.complete(r)
}

func (c *Controller) ChooseLiveCamera(ctx context.Context) error {
	return c.Choose(ctx, MethodLiveCamera)
}

func (c *Controller) ChooseGallery(ctx context.Context) error {
	return c.Choose(ctx, MethodGallery)
}

func (c *Controller) ChooseDirectCapture(ctx context.Context) error {
	return c.Choose(ctx, MethodDirectCapture)
}

// ChooseAsync admits the request synchronously and resolves it in the
// background. The channel yields the same result Choose would return.
func (c *Controller) ChooseAsync(ctx context.Context, method Method) (<-chan error, error) {
	r, err := c.begin(ctx, method, false)
	if err != nil {
		return nil, err
	}
	return c.resolveAsync(r), nil
}

// Retake replaces the photo in PhotoReview with a new one from the source
// that produced it. The current photo stays on screen until the new one
// arrives; an abort or a failure keeps it.
func (c *Controller) Retake(ctx context.Context) error {
	r, err := c.begin(ctx, MethodNone, true)
	if err != nil {
		return err
	}
	return c.complete(r)
}

func (c *Controller) RetakeAsync(ctx context.Context) (<-chan error, error) {
	r, err := c.begin(ctx, MethodNone, true)
	if err != nil {
		return nil, err
	}
	return c.resolveAsync(r), nil
}

func (c *Controller) SelectSize(size string) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.item == nil {
		return fmt.Errorf("%w: select size while %s", ErrStateViolation, c.modeLocked())
	}
	if !c.item.HasSize(size) {
		return fmt.Errorf("%w: size %q is not offered for %s", ErrInvalidSelection, size, c.item.ID)
	}
	c.size = size
	c.publishLocked()

	return nil
}

func (c *Controller) SelectColor(color string) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.item == nil {
		return fmt.Errorf("%w: select color while %s", ErrStateViolation, c.modeLocked())
	}
	if !c.item.HasColor(color) {
		return fmt.Errorf("%w: color %q is not offered for %s", ErrInvalidSelection, color, c.item.ID)
	}
	c.color = color
	c.publishLocked()

	return nil
}

// Cancel ends the session from any mode. It is safe to call repeatedly.
func (c *Controller) Cancel() {
	c.lock.Lock()
	defer c.unlock()
	if c.modeLocked() == Idle && c.pending == nil {
		return
	}
	c.resetLocked()
	c.publishLocked()
}

// Close tears the controller down, releasing anything attached or in flight.
// Subscriber channels are closed.
func (c *Controller) Close() {
	c.lock.Lock()
	defer c.unlock()
	if c.closed {
		return
	}
	if c.modeLocked() != Idle || c.pending != nil {
		c.resetLocked()
	}
	c.closed = true
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
}

func (c *Controller) Mode() Mode {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.modeLocked()
}

func (c *Controller) Snapshot() Snapshot {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.snapshotLocked()
}

// Subscribe delivers the current snapshot and then every change. Slow
// readers only see the latest snapshot.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	c.lock.Lock()
	defer c.lock.Unlock()

	ch := make(chan Snapshot, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	ch <- c.snapshotLocked()
	id := c.nextID
	c.nextID++
	c.subs[id] = ch

	return ch, func() {
		c.lock.Lock()
		defer c.lock.Unlock()
		if s, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(s)
		}
	}
}

var errClosed = fmt.Errorf("%w: controller closed", ErrStateViolation)

func (c *Controller) begin(ctx context.Context, method Method, retake bool) (*request, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		return nil, errClosed
	}

	mode := c.modeLocked()
	switch {
	case retake && mode != PhotoReview:
		return nil, fmt.Errorf("%w: retake while %s", ErrStateViolation, mode)
	case retake:
		method = c.photoMethod
	case mode != ChoosingMethod:
		return nil, fmt.Errorf("%w: choose %s while %s", ErrStateViolation, method, mode)
	}
	if method.Kind() == media.KindNone {
		return nil, fmt.Errorf("%w: no acquisition method", ErrStateViolation)
	}
	if c.pending != nil {
		return nil, fmt.Errorf("%w: %s acquisition already pending", ErrStateViolation, c.pending.method)
	}

	actx, cancel := context.WithCancel(ctx)
	c.pending = &pending{method: method, cancel: cancel}
	c.notice = ""
	c.publishLocked()
	logger.Debugf("session: acquiring %s (epoch %d)", method, c.epoch)

	return &request{ctx: actx, cancel: cancel, method: method, epoch: c.epoch}, nil
}

func (c *Controller) resolveAsync(r *request) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- c.complete(r)
	}()
	return done
}

func (c *Controller) complete(r *request) error {
	res, err := r.method.acquire(r.ctx, c.acquirer)
	r.cancel()

	c.lock.Lock()
	defer c.unlock()

	if r.epoch != c.epoch || c.closed {
		if res != nil {
			c.dropped = append(c.dropped, res)
		}
		logger.Debugf("session: dropped late %s resolution (epoch %d, now %d)", r.method, r.epoch, c.epoch)
		return ErrSuperseded
	}
	c.pending = nil

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// the caller gave up waiting; same as no selection
		c.publishLocked()
		return nil
	case err != nil:
		c.notice = err.Error()
		c.publishLocked()
		logger.Warnf("session: %s acquisition failed: %s", r.method, err)
		return fmt.Errorf("%w: %w", ErrAcquisitionDenied, err)
	case res == nil:
		c.publishLocked()
		return nil
	}

	if res.Kind() != r.method.Kind() {
		c.dropped = append(c.dropped, res)
		c.publishLocked()
		return fmt.Errorf("%w: %s produced a %s", ErrAcquisitionDenied, r.method, res.Kind())
	}
	if err = c.attachLocked(res, r.method); err != nil {
		c.dropped = append(c.dropped, res)
		c.publishLocked()
		return err
	}
	c.publishLocked()

	return nil
}

func (c *Controller) attachLocked(res media.Resource, method Method) error {
	event := eventAttachImage
	if res.Kind() == media.KindStream {
		event = eventAttachStream
	}
	// photo_review -> photo_review does not leave the state
	c.dropResource()
	if err := c.fire(event); err != nil {
		return err
	}
	c.resource = res
	if res.Kind() == media.KindImage {
		c.photoMethod = method
	}

	return nil
}

// fire runs an fsm event. A self transition is not an error.
func (c *Controller) fire(event string) error {
	err := c.fsm.Event(context.Background(), event)
	var noop fsm.NoTransitionError
	if err == nil || errors.As(err, &noop) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrStateViolation, err)
}

func (c *Controller) dropResource() {
	if c.resource == nil {
		return
	}
	logger.Debugf("session: release %s", c.resource.Kind())
	c.dropped = append(c.dropped, c.resource)
	c.resource = nil
}

// unlock releases the lock and then every resource dropped while holding it.
// Stopping a camera blocks for a while.
func (c *Controller) unlock() {
	dropped := c.dropped
	c.dropped = nil
	c.lock.Unlock()
	for _, res := range dropped {
		res.Release()
	}
}

// abandonLocked invalidates the running session and any acquisition in flight.
func (c *Controller) abandonLocked() {
	if c.pending != nil {
		c.pending.cancel()
		c.pending = nil
	}
	c.epoch++
}

func (c *Controller) resetLocked() {
	c.abandonLocked()
	if c.fsm.Can(eventCancel) {
		if err := c.fire(eventCancel); err != nil {
			logger.Errorf("session: cancel: %s", err)
		}
	}
	c.dropResource()
	c.item = nil
	c.size = ""
	c.color = ""
	c.photoMethod = MethodNone
	c.notice = ""
}

func (c *Controller) modeLocked() Mode {
	return parseMode(c.fsm.Current())
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Mode:     c.modeLocked(),
		Item:     c.item,
		Size:     c.size,
		Color:    c.color,
		Resource: c.resource,
		Notice:   c.notice,
		Epoch:    c.epoch,
	}
	if c.pending != nil {
		s.Pending = c.pending.method
	}
	return s
}

func (c *Controller) publishLocked() {
	if len(c.subs) == 0 {
		return
	}
	snap := c.snapshotLocked()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
