// SPDX-License-Identifier: GPL-3.0-only

package display

// Retry calls fn up to attempts times and returns the last error.
func Retry(attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}

// RetryValue is Retry for operations that produce a value.
func RetryValue[T any](attempts int, fn func() (T, error)) (T, error) {
	var out T
	err := Retry(attempts, func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
