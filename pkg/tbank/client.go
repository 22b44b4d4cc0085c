package tbank

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"
)

// Gateway is the outbound contract used by the charge executor. The live
// implementation talks to the T-Bank acquiring API; tests substitute fakes.
type Gateway interface {
	Init(ctx context.Context, req *InitRequest) (*InitResponse, error)
	Charge(ctx context.Context, paymentID, rebillID string) (*ChargeResponse, error)
	GetState(ctx context.Context, paymentID string) (*StateResponse, error)
}

// Client implements Gateway against the T-Bank HTTP API.
type Client struct {
	TerminalKey string
	SecretKey   string
	BaseURL     string

	httpClient *http.Client
}

func NewClient(terminalKey, secretKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://securepay.tinkoff.ru/v2"
	}
	return &Client{
		TerminalKey: terminalKey,
		SecretKey:   secretKey,
		BaseURL:     baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Init(ctx context.Context, req *InitRequest) (*InitResponse, error) {
	body := map[string]interface{}{
		"TerminalKey": c.TerminalKey,
		"Amount":      req.Amount,
		"OrderId":     req.OrderID,
	}
	if req.Description != "" {
		body["Description"] = req.Description
	}
	if req.CustomerKey != "" {
		body["CustomerKey"] = req.CustomerKey
	}
	if req.Recurrent != "" {
		body["Recurrent"] = req.Recurrent
	}
	if req.Receipt != nil {
		body["Receipt"] = req.Receipt
	}
	body["Token"] = c.signToken(body)

	var res InitResponse
	if err := c.post(ctx, "Init", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Charge(ctx context.Context, paymentID, rebillID string) (*ChargeResponse, error) {
	body := map[string]interface{}{
		"TerminalKey": c.TerminalKey,
		"PaymentId":   paymentID,
		"RebillId":    rebillID,
	}
	body["Token"] = c.signToken(body)

	var res ChargeResponse
	if err := c.post(ctx, "Charge", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) GetState(ctx context.Context, paymentID string) (*StateResponse, error) {
	body := map[string]interface{}{
		"TerminalKey": c.TerminalKey,
		"PaymentId":   paymentID,
	}
	body["Token"] = c.signToken(body)

	var res StateResponse
	if err := c.post(ctx, "GetState", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) post(ctx context.Context, method string, body map[string]interface{}, out interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/%s", c.BaseURL, method)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("tbank %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tbank %s error: status %d: %s", method, resp.StatusCode, string(bodyBytes))
	}

	return json.Unmarshal(bodyBytes, out)
}

// signToken computes the request signature: scalar params are sorted by key,
// Password (the secret key) is included, values are concatenated and hashed
// with SHA-256. Nested objects (Receipt) are excluded per the API contract.
func (c *Client) signToken(params map[string]interface{}) string {
	pairs := make(map[string]string, len(params)+1)
	for k, v := range params {
		switch val := v.(type) {
		case string:
			pairs[k] = val
		case int64:
			pairs[k] = strconv.FormatInt(val, 10)
		case int:
			pairs[k] = strconv.Itoa(val)
		case bool:
			pairs[k] = strconv.FormatBool(val)
		}
	}
	pairs["Password"] = c.SecretKey

	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var concat bytes.Buffer
	for _, k := range keys {
		concat.WriteString(pairs[k])
	}

	return fmt.Sprintf("%x", sha256.Sum256(concat.Bytes()))
}
