package media

import (
	"context"
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
)

const DefaultMaxPhotoSize = 10 << 20

type pickResult struct {
	img *Image
	err error
}

// Picker stands in for a host file-selection affordance. Acquire opens it
// and blocks until the user delivers a file, dismisses the picker, or ctx
// is done. At most one request is outstanding at a time.
type Picker struct {
	name    string
	maxSize int64

	lock    sync.Mutex
	waiting *pickRequest
}

type pickRequest struct {
	ctx context.Context
	ch  chan pickResult
}

// live reports whether someone still waits on r.
func (r *pickRequest) live() bool {
	return r != nil && r.ctx.Err() == nil
}

func NewPicker(name string, maxSize int64) *Picker {
	if maxSize <= 0 {
		maxSize = DefaultMaxPhotoSize
	}
	return &Picker{name: name, maxSize: maxSize}
}

func (p *Picker) Name() string {
	return p.name
}

func (p *Picker) MaxSize() int64 {
	return p.maxSize
}

// Pending reports whether a request is waiting for the user.
func (p *Picker) Pending() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.waiting.live()
}

// Acquire resolves with a decoded image, or with (nil, nil) when the user
// dismissed the picker. A request whose ctx is done no longer holds the
// picker, even before its Acquire has returned.
func (p *Picker) Acquire(ctx context.Context) (*Image, error) {
	p.lock.Lock()
	if p.waiting.live() {
		p.lock.Unlock()
		return nil, fmt.Errorf("%s: %w", p.name, ErrPickerBusy)
	}
	req := &pickRequest{ctx: ctx, ch: make(chan pickResult, 1)}
	p.waiting = req
	p.lock.Unlock()

	defer func() {
		p.lock.Lock()
		if p.waiting == req {
			p.waiting = nil
		}
		p.lock.Unlock()
	}()

	select {
	case r := <-req.ch:
		return r.img, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Deliver hands a selected file to the waiting request. An undecodable
// payload rejects the request and the error is returned to the uploader too.
func (p *Picker) Deliver(data []byte) error {
	if int64(len(data)) > p.maxSize {
		return fmt.Errorf("%w: %s exceeds %s", ErrTooLarge,
			humanize.IBytes(uint64(len(data))), humanize.IBytes(uint64(p.maxSize)))
	}
	img, err := DecodeImage(data)

	return p.resolve(pickResult{img: img, err: err}, err)
}

// Dismiss closes the picker without a selection.
func (p *Picker) Dismiss() error {
	return p.resolve(pickResult{}, nil)
}

func (p *Picker) resolve(r pickResult, ret error) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if !p.waiting.live() {
		return fmt.Errorf("%s: %w", p.name, ErrNoPendingRequest)
	}
	p.waiting.ch <- r
	p.waiting = nil

	return ret
}
