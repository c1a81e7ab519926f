package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotProduct means the page has no product-detail region. It is not a failure.
	ErrNotProduct = errors.New("not a product page")

	// ErrMissingIdentifier marks records that cannot be merged or synced.
	ErrMissingIdentifier = errors.New("record has no sku")

	// ErrRunInProgress is returned when a run is started while another one is active.
	ErrRunInProgress = errors.New("scraping already in progress")
)

// FetchError is a transport failure or a non-success response for one URL.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ConfigurationError aborts the whole run: unreachable store, bad credentials, no category tree.
type ConfigurationError struct {
	Op  string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func NewConfigurationError(op string, err error) error {
	return &ConfigurationError{Op: op, Err: err}
}

// IsConfigurationError reports whether err should abort a run.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// WriteFailure is one record the store refused to write.
type WriteFailure struct {
	SKU string
	Err error
}

func (f WriteFailure) Error() string {
	return fmt.Sprintf("write %s: %v", f.SKU, f.Err)
}
