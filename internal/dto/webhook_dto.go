package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// NotificationKind is the closed set of webhook shapes the reconciler knows.
// Anything else is quarantined at the boundary instead of being threaded
// through business logic as an untyped map.
type NotificationKind string

const (
	KindPayment   NotificationKind = "payment"
	KindRecurrent NotificationKind = "recurrent"
)

// GatewayNotification is a parsed T-Bank webhook payload with identifiers
// normalized to canonical string form. Amount is in minor units (kopecks) as
// sent by the gateway.
type GatewayNotification struct {
	TerminalKey string
	OrderId     string
	PaymentId   string
	Status      string
	Success     bool
	RebillId    string
	CardId      string
	Pan         string
	Amount      int64
	Email       string
	ErrorCode   string
	Message     string

	// Raw keeps the full decoded payload for quarantine and audit records.
	Raw map[string]interface{}
}

// Kind classifies the notification: a rebill id marks it as part of a
// recurring-billing flow.
func (n *GatewayNotification) Kind() NotificationKind {
	if n.RebillId != "" {
		return KindRecurrent
	}
	return KindPayment
}

// DedupKey derives the idempotency key from (paymentId, status, rebillId).
// Redelivery of the same logical event always maps to the same key.
func (n *GatewayNotification) DedupKey() string {
	rebill := n.RebillId
	if rebill == "" {
		rebill = "none"
	}
	return fmt.Sprintf("%s_%s_%s", n.PaymentId, n.Status, rebill)
}

// AmountMajor converts the gateway's minor-unit amount to major units.
func (n *GatewayNotification) AmountMajor() int64 {
	return n.Amount / 100
}

// IsConfirmed reports whether the payment reached a settled/authorized state.
func (n *GatewayNotification) IsConfirmed() bool {
	return n.Status == "CONFIRMED" || n.Status == "AUTHORIZED"
}

// CardLastDigits retains only the last 4 digits of the masked PAN.
func (n *GatewayNotification) CardLastDigits() string {
	if len(n.Pan) < 4 {
		return ""
	}
	return n.Pan[len(n.Pan)-4:]
}

// ParseNotification decodes a webhook body that may arrive as JSON or
// form-encoded bytes. Identifier fields that gateways sometimes send as
// numbers are normalized to strings.
func ParseNotification(body []byte) (*GatewayNotification, error) {
	raw, err := decodeBody(body)
	if err != nil {
		return nil, err
	}

	n := &GatewayNotification{
		TerminalKey: asString(raw["TerminalKey"]),
		OrderId:     asString(raw["OrderId"]),
		PaymentId:   asString(raw["PaymentId"]),
		Status:      asString(raw["Status"]),
		Success:     asBool(raw["Success"]),
		RebillId:    asString(raw["RebillId"]),
		CardId:      asString(raw["CardId"]),
		Pan:         asString(raw["Pan"]),
		Amount:      asInt64(raw["Amount"]),
		Email:       asString(raw["Email"]),
		ErrorCode:   asString(raw["ErrorCode"]),
		Message:     asString(raw["Message"]),
		Raw:         raw,
	}

	if n.PaymentId == "" && n.OrderId == "" {
		return nil, fmt.Errorf("notification carries neither PaymentId nor OrderId")
	}
	return n, nil
}

func decodeBody(body []byte) (map[string]interface{}, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty notification body")
	}

	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		var raw map[string]interface{}
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("invalid JSON notification: %w", err)
		}
		return raw, nil
	}

	values, err := url.ParseQuery(string(trimmed))
	if err != nil {
		return nil, fmt.Errorf("invalid form-encoded notification: %w", err)
	}
	raw := make(map[string]interface{}, len(values))
	for k := range values {
		raw[k] = values.Get(k)
	}
	return raw, nil
}

func asString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func asBool(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return strings.EqualFold(val, "true")
	default:
		return false
	}
}

func asInt64(v interface{}) int64 {
	switch val := v.(type) {
	case json.Number:
		i, _ := val.Int64()
		return i
	case string:
		i, _ := strconv.ParseInt(val, 10, 64)
		return i
	case float64:
		return int64(val)
	default:
		return 0
	}
}
