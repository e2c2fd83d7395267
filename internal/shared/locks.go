package shared

import (
	"context"
	"fmt"
)

// ErrLockNotObtained is returned when another action holds the aggregate lock.
var ErrLockNotObtained = fmt.Errorf("%w: reconciliation in progress, retry", ErrConflict)

// Locker serialises reconciliation actions on one aggregate.
type Locker interface {
	Obtain(ctx context.Context, key string) (release func(context.Context) error, err error)
}

// InvoiceLockKey guards every action that rewrites invoice payment events.
func InvoiceLockKey() string {
	return "recon:invoices"
}

// InstallmentLockKey guards installment plan numbering.
func InstallmentLockKey() string {
	return "recon:installments"
}

// PayrollLockKey guards settlement rows of one period.
func PayrollLockKey(period string) string {
	return fmt.Sprintf("recon:payroll:%s", period)
}

// WithLock runs fn while holding key. A nil locker runs fn unguarded.
func WithLock(ctx context.Context, locker Locker, key string, fn func(context.Context) error) (err error) {
	if locker == nil {
		return fn(ctx)
	}
	release, err := locker.Obtain(ctx, key)
	if err != nil {
		return err
	}
	defer func() {
		if relErr := release(context.WithoutCancel(ctx)); relErr != nil && err == nil {
			err = relErr
		}
	}()
	return fn(ctx)
}
