package paystation

import (
	"strconv"
	"strings"
)

// InitiationRequest holds the pstn_* fields of a hosted payment request.
type InitiationRequest struct {
	PaystationID      string `json:"pstn_pi"`
	GatewayID         string `json:"pstn_gi"`
	MerchantSession   string `json:"pstn_ms"`
	AmountCents       int64  `json:"pstn_am"`
	TestMode          bool   `json:"pstn_tm,omitempty"`
	MerchantReference string `json:"pstn_mr,omitempty"`
}

// InitiationResult is one of Redirect, GatewayError or Unparseable.
type InitiationResult interface {
	initiationResult()
}

// Redirect carries the DigitalOrder url the customer must be sent to.
type Redirect struct {
	URL string `json:"digital_order"`
}

// GatewayError is a positive PaystationErrorCode with its message.
type GatewayError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Unparseable is anything else, including an empty body.
type Unparseable struct {
	Body string `json:"body"`
}

func (Redirect) initiationResult()     {}
func (GatewayError) initiationResult() {}
func (Unparseable) initiationResult()  {}

type LookupRequest struct {
	PaystationID    string `json:"pi"`
	MerchantSession string `json:"ms"`
}

// LookupResult is one of LookupResponse, LookupStatus or LookupUnparseable.
type LookupResult interface {
	lookupResult()
}

// LookupResponse is the authoritative transaction record returned by quick
// lookup.
type LookupResponse struct {
	AcquirerName              string `xml:"AcquirerName" json:"acquirer_name"`
	AcquirerMerchantID        string `xml:"AcquirerMerchantID" json:"acquirer_merchant_id"`
	PaystationUserID          string `xml:"PaystationUserID" json:"paystation_user_id"`
	PaystationTransactionID   string `xml:"PaystationTransactionID" json:"paystation_transaction_id"`
	PurchaseAmount            string `xml:"PurchaseAmount" json:"purchase_amount"`
	MerchantSession           string `xml:"MerchantSession" json:"merchant_session"`
	ReturnReceiptNumber       string `xml:"ReturnReceiptNumber" json:"return_receipt_number"`
	ShoppingTransactionNumber string `xml:"ShoppingTransactionNumber" json:"shopping_transaction_number"`
	AcquirerResponseCode      string `xml:"AcquirerResponseCode" json:"acquirer_response_code"`
	QSIResponseCode           string `xml:"QSIResponseCode" json:"qsi_response_code"`
	PaystationErrorCode       string `xml:"PaystationErrorCode" json:"paystation_error_code"`
	BatchNumber               string `xml:"BatchNumber" json:"batch_number"`
	CardType                  string `xml:"Cardtype" json:"card_type"`
}

// AmountCents parses PurchaseAmount. ok is false when it is not an integer.
func (r LookupResponse) AmountCents() (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(r.PurchaseAmount), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (r LookupResponse) TransactionID() string {
	return strings.TrimSpace(r.PaystationTransactionID)
}

// LookupStatus means the lookup itself failed, e.g. unknown merchant session.
type LookupStatus struct {
	Message string `json:"message"`
}

type LookupUnparseable struct {
	Body string `json:"body"`
}

func (LookupResponse) lookupResult()    {}
func (LookupStatus) lookupResult()      {}
func (LookupUnparseable) lookupResult() {}
