package sale

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrQuantityExceedsLimit = errors.New("quantity exceeds the per-sale limit")
	ErrQuantityExceedsStock = errors.New("quantity exceeds available stock")
	ErrMissingPaymentMethod = errors.New("select a payment method")
	ErrUnknownPaymentMethod = errors.New("payment method not accepted")
	ErrEmptySale            = errors.New("add at least one product to the sale")
	ErrPrescriptionRequired = errors.New("prescription required for controlled medications")
	ErrSubmissionFailed     = errors.New("failed to complete sale")

	ErrSubmissionInFlight = errors.New("sale submission in progress")
	ErrLineNotFound       = errors.New("product is not part of the sale")
)

// QuantityError rejects a quantity change that crosses a ceiling. It wraps
// ErrQuantityExceedsLimit or ErrQuantityExceedsStock.
type QuantityError struct {
	Kind        error
	ProductName string
	Limit       int
	Requested   int
}

func (e *QuantityError) Error() string {
	if e.Kind == ErrQuantityExceedsLimit {
		return fmt.Sprintf("Maximum %d units allowed per sale for %s", e.Limit, e.ProductName)
	}
	return fmt.Sprintf("Only %d units available for %s", e.Limit, e.ProductName)
}

func (e *QuantityError) Unwrap() error { return e.Kind }

// SubmissionError relays an Order API failure. Error returns the API's
// message unchanged.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	if e.Err == nil || e.Err.Error() == "" {
		return ErrSubmissionFailed.Error()
	}
	return e.Err.Error()
}

func (e *SubmissionError) Unwrap() error { return e.Err }

func (e *SubmissionError) Is(target error) bool { return target == ErrSubmissionFailed }

// Code names the taxonomy entry of err, or "" when err is not a sale error.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrQuantityExceedsLimit):
		return "QuantityExceedsLimit"
	case errors.Is(err, ErrQuantityExceedsStock):
		return "QuantityExceedsStock"
	case errors.Is(err, ErrMissingPaymentMethod):
		return "MissingPaymentMethod"
	case errors.Is(err, ErrUnknownPaymentMethod):
		return "UnknownPaymentMethod"
	case errors.Is(err, ErrEmptySale):
		return "EmptySale"
	case errors.Is(err, ErrPrescriptionRequired):
		return "PrescriptionRequired"
	case errors.Is(err, ErrSubmissionFailed):
		return "SubmissionFailed"
	case errors.Is(err, ErrSubmissionInFlight):
		return "SubmissionInFlight"
	case errors.Is(err, ErrLineNotFound):
		return "LineNotFound"
	}
	return ""
}
