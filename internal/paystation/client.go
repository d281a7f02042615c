package paystation

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

const maxResponseBytes = 1 << 20

type Client struct {
	TransactionURL string
	LookupURL      string
	httpClient     *http.Client
}

// NewClient returns a client whose connections are never reused: every call
// dials, sends one request and closes.
func NewClient(transactionURL, lookupURL string) *Client {
	return &Client{
		TransactionURL: transactionURL,
		LookupURL:      lookupURL,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:             http.ProxyFromEnvironment,
				DisableKeepAlives: true,
			},
		},
	}
}

// WithHTTPClient swaps the underlying client, mostly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

func (r InitiationRequest) form() url.Values {
	v := url.Values{}
	v.Set("paystation", "_empty")
	v.Set("pstn_pi", r.PaystationID)
	v.Set("pstn_gi", r.GatewayID)
	v.Set("pstn_ms", r.MerchantSession)
	v.Set("pstn_am", strconv.FormatInt(r.AmountCents, 10))
	if r.TestMode {
		v.Set("pstn_tm", "t")
	}
	if r.MerchantReference != "" {
		v.Set("pstn_mr", r.MerchantReference)
	}
	return v
}

// Initiate posts a hosted payment request. A non-nil error means the gateway
// could not be reached; every answer it does give is mapped to a result.
func (c *Client) Initiate(ctx context.Context, req InitiationRequest) (InitiationResult, error) {
	body := req.form().Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TransactionURL, bytes.NewBufferString(body))
	if err != nil {
		return nil, fmt.Errorf("paystation initiate request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/xml")
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Close = true

	raw, err := c.do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("paystation initiate: %w", err)
	}

	return ParseInitiation(raw), nil
}

// Lookup runs a quick lookup for a merchant session.
func (c *Client) Lookup(ctx context.Context, req LookupRequest) (LookupResult, error) {
	u, err := url.Parse(c.LookupURL)
	if err != nil {
		return nil, fmt.Errorf("paystation lookup url: %w", err)
	}
	q := u.Query()
	q.Set("pi", req.PaystationID)
	q.Set("ms", req.MerchantSession)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("paystation lookup request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/xml")
	httpReq.Close = true

	raw, err := c.do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("paystation lookup: %w", err)
	}

	return ParseLookup(raw), nil
}

// do returns the body whatever the status code: Paystation reports its own
// errors inside the XML document.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read body (http=%d): %w", resp.StatusCode, err)
	}
	return raw, nil
}

type initiationDoc struct {
	DigitalOrder string  `xml:"DigitalOrder"`
	ErrorCode    *string `xml:"PaystationErrorCode"`
	ErrorMessage string  `xml:"PaystationErrorMessage"`
}

// ParseInitiation maps an initiation response. The root element name is not
// checked.
func ParseInitiation(raw []byte) InitiationResult {
	var doc initiationDoc
	if err := decodeXML(raw, &doc); err != nil {
		return Unparseable{Body: string(raw)}
	}

	if u := strings.TrimSpace(doc.DigitalOrder); u != "" {
		return Redirect{URL: u}
	}

	if doc.ErrorCode != nil {
		code, err := strconv.Atoi(strings.TrimSpace(*doc.ErrorCode))
		if err == nil && code > 0 {
			return GatewayError{Code: code, Message: strings.TrimSpace(doc.ErrorMessage)}
		}
	}

	return Unparseable{Body: string(raw)}
}

type lookupDoc struct {
	Response *LookupResponse `xml:"LookupResponse"`
	Status   *struct {
		Message string `xml:"LookupMessage"`
	} `xml:"LookupStatus"`
}

func ParseLookup(raw []byte) LookupResult {
	var doc lookupDoc
	if err := decodeXML(raw, &doc); err != nil {
		return LookupUnparseable{Body: string(raw)}
	}

	switch {
	case doc.Response != nil:
		return *doc.Response
	case doc.Status != nil:
		return LookupStatus{Message: strings.TrimSpace(doc.Status.Message)}
	default:
		return LookupUnparseable{Body: string(raw)}
	}
}

func decodeXML(raw []byte, v any) error {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.CharsetReader = charset.NewReaderLabel
	return dec.Decode(v)
}
