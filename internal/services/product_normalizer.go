// internal/services/product_normalizer.go
package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/suppleit/suppleit-backend/internal/config"
	"github.com/suppleit/suppleit-backend/internal/models"
)

// Upstream item field names.
const (
	fieldRegistrationNo   = "PRDLST_REPORT_NO"
	fieldProductName      = "PRDLST_NM"
	fieldCompanyName      = "BSSH_NM"
	fieldExpirationPeriod = "POG_DAYCNT"
	fieldMainFunction     = "PRIMARY_FNCLTY"
	fieldIntakeHint       = "NTK_MTHD"
	fieldPreservation     = "PRSRV_PD"
	fieldBaseStandard     = "BASE_STANDARD"
)

const fallbackIDModulus = 1_000_000_000

// ErrNoResults means the response was well formed but carried no items.
var ErrNoResults = errors.New("upstream returned no items")

// ParseError is a hard failure to read the response envelope.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse upstream response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SkippedItem describes an upstream item that did not make it into the
// result, and why.
type SkippedItem struct {
	Index       int    `json:"index"`
	ProductName string `json:"product_name,omitempty"`
	Reason      string `json:"reason"`
}

// NormalizedItem keeps the upstream position of a record.
type NormalizedItem struct {
	Index  int
	Record models.ProductRecord
}

type NormalizeResult struct {
	Items   []NormalizedItem
	Skipped []SkippedItem
}

// ProductNormalizer maps the upstream JSON into canonical product records.
type ProductNormalizer struct {
	optionalFields config.OptionalFieldPolicy
	fallbackID     config.FallbackIDPolicy
	now            func() time.Time
}

func NewProductNormalizer(optionalFields config.OptionalFieldPolicy, fallbackID config.FallbackIDPolicy) *ProductNormalizer {
	if optionalFields == "" {
		optionalFields = config.OptionalFieldsUnset
	}
	if fallbackID == "" {
		fallbackID = config.FallbackIDTimeSalted
	}
	return &ProductNormalizer{
		optionalFields: optionalFields,
		fallbackID:     fallbackID,
		now:            time.Now,
	}
}

// Normalize parses a raw response body. It returns ErrNoResults when the
// body.items collection is missing, not an array or empty, and a *ParseError
// when the envelope itself cannot be read. A bad item never aborts the batch.
func (n *ProductNormalizer) Normalize(body []byte) (*NormalizeResult, error) {
	var envelope struct {
		Body json.RawMessage `json:"body"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &ParseError{Err: err}
	}
	if len(envelope.Body) == 0 {
		return nil, ErrNoResults
	}

	var payload struct {
		Items json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(envelope.Body, &payload); err != nil {
		return nil, &ParseError{Err: fmt.Errorf("body: %w", err)}
	}

	var items []json.RawMessage
	if len(payload.Items) == 0 || json.Unmarshal(payload.Items, &items) != nil || len(items) == 0 {
		return nil, ErrNoResults
	}

	result := &NormalizeResult{
		Items: make([]NormalizedItem, 0, len(items)),
	}
	for i, raw := range items {
		record, err := n.normalizeItem(raw)
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedItem{Index: i, Reason: err.Error()})
			continue
		}
		result.Items = append(result.Items, NormalizedItem{Index: i, Record: *record})
	}

	return result, nil
}

func (n *ProductNormalizer) normalizeItem(raw json.RawMessage) (*models.ProductRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("item is not a JSON object: %w", err)
	}
	if fields == nil {
		return nil, errors.New("item is null")
	}

	record := &models.ProductRecord{
		RegistrationNo:   textField(fields, fieldRegistrationNo),
		ProductName:      textField(fields, fieldProductName),
		CompanyName:      textField(fields, fieldCompanyName),
		ExpirationPeriod: n.optionalField(fields, fieldExpirationPeriod),
		MainFunction:     n.optionalField(fields, fieldMainFunction),
		IntakeHint:       n.optionalField(fields, fieldIntakeHint),
		Preservation:     n.optionalField(fields, fieldPreservation),
		BaseStandard:     n.optionalField(fields, fieldBaseStandard),
	}
	record.ID = n.DeriveID(record.RegistrationNo, record.ProductName, record.CompanyName)

	return record, nil
}

func (n *ProductNormalizer) optionalField(fields map[string]any, key string) *string {
	if v, ok := fields[key]; ok {
		return models.StringPtr(textValue(v))
	}
	if n.optionalFields == config.OptionalFieldsEmpty {
		return models.StringPtr("")
	}
	return nil
}

// DeriveID returns the digits of the registration number as an integer, or
// the fallback identifier when there are none. Zero means "no identifier".
func (n *ProductNormalizer) DeriveID(registrationNo, productName, companyName string) int64 {
	if id, ok := registrationID(registrationNo); ok {
		return id
	}
	return n.fallbackIdentifier(productName, companyName)
}

func registrationID(registrationNo string) (int64, bool) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, registrationNo)
	if digits == "" {
		return 0, false
	}

	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// fallbackIdentifier is best effort. The time salted variant changes every
// hour, so the same item fetched in different hours gets different ids.
func (n *ProductNormalizer) fallbackIdentifier(productName, companyName string) int64 {
	if productName == "" {
		return 0
	}

	var sum uint64
	switch n.fallbackID {
	case config.FallbackIDContent:
		sum = xxhash.Sum64String(productName + "\x00" + companyName)
	default:
		salt := uint64(n.now().Truncate(time.Hour).Unix())
		sum = xxhash.Sum64String(productName) + salt
	}
	return reduceFallbackID(sum)
}

// reduceFallbackID folds a hash into (0, fallbackIDModulus). Zero is reserved
// for records without an identifier.
func reduceFallbackID(sum uint64) int64 {
	id := int64(sum % fallbackIDModulus)
	if id == 0 {
		return 1
	}
	return id
}

func textField(fields map[string]any, key string) string {
	return textValue(fields[key])
}

func textValue(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case json.Number:
		return value.String()
	case bool:
		return strconv.FormatBool(value)
	default:
		return ""
	}
}
