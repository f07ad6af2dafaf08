package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/erp/acctsync/internal/domain/accounting"
)

// maxResponseSize is the maximum allowed response size from an accounting API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Date layouts used by the providers
const (
	GenericDateLayout = "2006-01-02"
	OmieDateLayout    = "02/01/2006"
)

// HTTPError is returned by RequestHelper.Do for non-2xx responses
type HTTPError struct {
	StatusCode int
	Body       []byte
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if len(body) > 256 {
		body = body[:256]
	}
	if body == "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, body)
}

// Retryable returns true for server errors, timeouts and throttling
func (e *HTTPError) Retryable() bool {
	return e.StatusCode >= 500 ||
		e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests
}

// RequestHelperConfig configures a RequestHelper
type RequestHelperConfig struct {
	BaseURL     string
	BearerToken string
	Headers     map[string]string
	// Timeout bounds every call, including the rate limiter wait
	Timeout time.Duration
	// RateLimitRPS limits outbound calls per second; zero disables limiting
	RateLimitRPS float64
	RateBurst    int
}

// RequestHelper performs JSON calls against one accounting API.
// It is safe for concurrent use.
type RequestHelper struct {
	baseURL     string
	bearerToken string
	headers     map[string]string
	timeout     time.Duration
	httpClient  *http.Client
	limiter     *rate.Limiter
}

// NewRequestHelper creates a helper. A nil httpClient uses a client bounded
// by cfg.Timeout.
func NewRequestHelper(cfg RequestHelperConfig, httpClient *http.Client) *RequestHelper {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	h := &RequestHelper{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		bearerToken: cfg.BearerToken,
		headers:     make(map[string]string, len(cfg.Headers)),
		timeout:     cfg.Timeout,
		httpClient:  httpClient,
	}
	for k, v := range cfg.Headers {
		h.headers[k] = v
	}
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		h.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}
	return h
}

// URL joins path onto the base URL
func (h *RequestHelper) URL(path string) string {
	if path == "" {
		return h.baseURL
	}
	return h.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Do sends body as JSON and decodes the response into out (when non-nil).
// Network failures and timeouts wrap accounting.ErrTransport; non-2xx
// responses return *HTTPError.
func (h *RequestHelper) Do(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: rate limiter: %v", accounting.ErrTransport, err)
		}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("erp: failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.URL(path), reader)
	if err != nil {
		return fmt.Errorf("erp: failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+h.bearerToken)
	}
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: request timed out: %v", accounting.ErrTransport, err)
		}
		return fmt.Errorf("%w: %v", accounting.ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", accounting.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: respBody}
	}

	if out != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("%w: %v", accounting.ErrInvalidResponse, err)
		}
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ---------------------------------------------------------------------------
// Formatting and validation
// ---------------------------------------------------------------------------

// FormatCurrency renders an amount with exactly two decimal places
func FormatCurrency(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// ParseCurrency parses a provider amount such as "150.00"
func ParseCurrency(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid amount %q", accounting.ErrInvalidResponse, s)
	}
	return d, nil
}

// FormatMinorUnits renders an integer amount in minor units (cents) with two
// decimal places, e.g. 15000 becomes "150.00"
func FormatMinorUnits(minor int64) string {
	return FormatCurrency(decimal.New(minor, -2))
}

// ToMinorUnits converts an amount to minor units, rounding half away from zero
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FormatDate renders t in layout on the UTC calendar; the zero time renders
// as an empty string
func FormatDate(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(layout)
}

var validate = validator.New()

// ValidateRequired checks that every field carries a value and reports all
// missing fields at once, in name order
func ValidateRequired(fields map[string]any) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var missing []string
	for _, name := range names {
		if err := validate.Var(requiredValue(fields[name]), "required"); err != nil {
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				return err
			}
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return accounting.NewValidationError(missing...)
	}
	return nil
}

// requiredValue flattens v to a string so that zero amounts, zero times and
// empty collections count as missing
func requiredValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case decimal.Decimal:
		if t.IsZero() {
			return ""
		}
		return t.String()
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format(time.RFC3339)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		if rv.Len() == 0 {
			return ""
		}
		return fmt.Sprint(rv.Len())
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return ""
		}
		return requiredValue(rv.Elem().Interface())
	default:
		if rv.IsZero() {
			return ""
		}
		return fmt.Sprint(v)
	}
}

// failureResult folds err into a failed SyncResult, downgrading permanent
// HTTP errors to non-retryable
func failureResult(err error) *accounting.SyncResult {
	result := accounting.NewFailureResult(err)
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && !httpErr.Retryable() {
		result.Retryable = false
	}
	return result
}
