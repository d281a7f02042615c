package paystation

import "strconv"

// ErrorClass groups PaystationErrorCode values by who has to act on them.
type ErrorClass string

const (
	ClassApproved ErrorClass = "approved"
	// The card holder did something wrong (expired card, no funds).
	ClassCardholder ErrorClass = "cardholder"
	// The merchant integration sent something the gateway refused.
	ClassMerchant ErrorClass = "merchant"
	ClassSystem   ErrorClass = "system"
)

func ClassifyErrorCode(code int) ErrorClass {
	switch code {
	case 0:
		return ClassApproved
	case 4, 5, 7:
		return ClassCardholder
	case 10, 11, 12, 13, 22, 23, 25, 26, 101, 102, 104:
		return ClassMerchant
	default:
		return ClassSystem
	}
}

// ClassifyResultCode is ClassifyErrorCode for the raw "ec" callback value.
func ClassifyResultCode(ec string) ErrorClass {
	code, err := strconv.Atoi(ec)
	if err != nil {
		return ClassSystem
	}
	return ClassifyErrorCode(code)
}
