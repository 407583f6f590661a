package numbering

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/invoicer/internal/lock"
	"go.uber.org/zap"
)

var ErrUnavailable = errors.New("numbering_unavailable")

type Kind string

const (
	KindInvoice   Kind = "invoice"
	KindQuotation Kind = "quotation"
)

// Loader returns every existing number of one document kind.
type Loader func(ctx context.Context) ([]string, error)

// Locker serializes allocation across instances.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl, wait time.Duration) (string, error)
	Release(ctx context.Context, key, token string) error
}

// Allocator computes numbers from the existing set. When a Locker is present the
// allocation and the write that consumes the number run under one lock per kind.
type Allocator struct {
	locker Locker
	log    *zap.Logger
	ttl    time.Duration
	wait   time.Duration
}

func NewAllocator(locker *lock.Locker, log *zap.Logger) *Allocator {
	a := &Allocator{
		log:  log.Named("numbering"),
		ttl:  10 * time.Second,
		wait: 5 * time.Second,
	}
	// a nil *lock.Locker must not become a non-nil interface
	if locker != nil {
		a.locker = locker
	}
	return a
}

// Next loads the existing numbers and returns the following one. A load failure
// is returned as ErrUnavailable instead of falling back to the first number.
func (a *Allocator) Next(ctx context.Context, load Loader) (string, error) {
	existing, err := load(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return Next(existing)
}

// Serialize runs fn while holding the numbering lock for kind.
func (a *Allocator) Serialize(ctx context.Context, kind Kind, fn func(ctx context.Context) error) error {
	if a == nil || a.locker == nil {
		return fn(ctx)
	}

	key := "invoicer:numbering:" + string(kind)
	token, err := a.locker.Acquire(ctx, key, a.ttl, a.wait)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		// release with a fresh context so a cancelled request still frees the lock
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := a.locker.Release(releaseCtx, key, token); err != nil {
			a.log.Warn("release numbering lock", zap.String("kind", string(kind)), zap.Error(err))
		}
	}()

	return fn(ctx)
}
