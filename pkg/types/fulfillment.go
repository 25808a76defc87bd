package types

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// ManualField describes one input a customer must provide for a manual product.
type ManualField struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// InputSchema is the ordered list of fields a manual product collects.
type InputSchema []ManualField

// Value implements driver.Valuer.
func (s InputSchema) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return valueJSON([]ManualField(s))
}

// Scan implements sql.Scanner.
func (s *InputSchema) Scan(value any) error {
	var out []ManualField
	if err := scanJSON(value, &out); err != nil {
		return fmt.Errorf("scan input schema: %w", err)
	}
	*s = out
	return nil
}

// MissingRequired returns the first required field without a non-blank answer.
func (s InputSchema) MissingRequired(input ManualInput) (ManualField, bool) {
	for _, field := range s {
		if !field.Required {
			continue
		}
		if strings.TrimSpace(input[field.ID]) == "" {
			return field, true
		}
	}
	return ManualField{}, false
}

// ManualInput holds customer answers keyed by ManualField.ID.
type ManualInput map[string]string

// Value implements driver.Valuer.
func (m ManualInput) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return valueJSON(map[string]string(m))
}

// Scan implements sql.Scanner.
func (m *ManualInput) Scan(value any) error {
	out := map[string]string{}
	if err := scanJSON(value, &out); err != nil {
		return fmt.Errorf("scan manual input: %w", err)
	}
	*m = out
	return nil
}

// DeliveredData is what the customer receives once an order line is fulfilled.
// Credentials holds the stocked payloads of an instant order, Payload the
// document an admin delivered for a manual one.
type DeliveredData struct {
	Credentials []JSONValue `json:"credentials,omitempty"`
	Payload     JSONValue   `json:"payload,omitempty"`
	Note        string      `json:"note,omitempty"`
}

// Value implements driver.Valuer.
func (d DeliveredData) Value() (driver.Value, error) {
	return valueJSON(d)
}

// Scan implements sql.Scanner.
func (d *DeliveredData) Scan(value any) error {
	var out DeliveredData
	if err := scanJSON(value, &out); err != nil {
		return fmt.Errorf("scan delivered data: %w", err)
	}
	*d = out
	return nil
}
