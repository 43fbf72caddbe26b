package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/pos-terminal/models"
	"github.com/yeremiapane/pos-terminal/utils"
)

// RemoteClient talks to the central restaurant API.
type RemoteClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewRemoteClient(baseURL string, timeout time.Duration) *RemoteClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return NewRemoteClientWithHTTP(baseURL, &http.Client{Timeout: timeout})
}

func NewRemoteClientWithHTTP(baseURL string, httpClient *http.Client) *RemoteClient {
	return &RemoteClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *RemoteClient) BaseURL() string {
	return c.baseURL
}

func (c *RemoteClient) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s %s: %v", ErrTransientNetwork, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("%w: reading %s %s: %v", ErrTransientNetwork, method, path, err)
	}

	if resp.StatusCode >= 300 {
		return classifyStatus(method, path, resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		if errors.Is(err, ErrValidation) {
			return err
		}
		return validationErrorf("malformed response from %s %s: %v", method, path, err)
	}
	return nil
}

func classifyStatus(method, path string, status int, raw []byte) error {
	detail := errorDetail(raw)
	utils.ErrorLogger.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
		"status": status,
	}).Warn("remote call failed: ", detail)

	switch {
	case status >= 500, status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s %s returned %d", ErrTransientNetwork, method, path, status)
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, detail)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
	}
	return &RemoteError{StatusCode: status, Detail: detail}
}

// errorDetail extracts {"detail": ...} from an error body, which may be a
// string or a list of field errors.
func errorDetail(raw []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Detail) == 0 {
		return strings.TrimSpace(string(raw))
	}
	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return s
	}
	return string(body.Detail)
}

func (c *RemoteClient) Login(ctx context.Context, username, password string) (*RemoteSession, error) {
	var resp wireLoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login-json", "", wireLoginRequest{Username: username, Password: password}, &resp); err != nil {
		var remoteErr *RemoteError
		if errors.As(err, &remoteErr) && remoteErr.StatusCode == http.StatusBadRequest {
			return nil, fmt.Errorf("%w: %s", ErrUnauthorized, remoteErr.Detail)
		}
		return nil, err
	}
	return resp.toSession()
}

func (c *RemoteClient) Me(ctx context.Context, token string) (*RemoteUser, error) {
	var resp wireUser
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, &resp); err != nil {
		return nil, err
	}
	user, err := resp.toRemoteUser()
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ActiveShift returns nil without error when the operator has no open shift.
func (c *RemoteClient) ActiveShift(ctx context.Context, token string) (*models.Shift, error) {
	var resp *wireShift
	if err := c.do(ctx, http.MethodGet, "/shifts/active", token, nil, &resp); err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	return resp.toModel()
}

func (c *RemoteClient) StartShift(ctx context.Context, token string, openingCash decimal.Decimal) (*models.Shift, error) {
	var resp wireShift
	if err := c.do(ctx, http.MethodPost, "/shifts/start", token, wireShiftStart{OpeningCash: money(openingCash)}, &resp); err != nil {
		return nil, err
	}
	return resp.toModel()
}

// EndShift closes the shift remotely. The returned shift is nil when the
// remote answered without a body.
func (c *RemoteClient) EndShift(ctx context.Context, token string, shiftID uint, closingCash decimal.Decimal, notes string) (*models.Shift, error) {
	req := wireShiftEnd{ClosingCash: money(closingCash)}
	if notes != "" {
		req.Notes = &notes
	}
	var resp *wireShift
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/shifts/%d/end", shiftID), token, req, &resp); err != nil {
		return nil, err
	}
	if resp == nil || resp.ID == nil {
		return nil, nil
	}
	return resp.toModel()
}

// FetchProducts pulls the full catalog. One malformed product rejects the
// whole pull so a partial catalog is never applied.
func (c *RemoteClient) FetchProducts(ctx context.Context) ([]models.Product, error) {
	var resp []wireProduct
	if err := c.do(ctx, http.MethodGet, "/sync/products", "", nil, &resp); err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, validationErrorf("catalog response is not an array")
	}
	products := make([]models.Product, 0, len(resp))
	for i := range resp {
		p, err := resp[i].toModel()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

// PushResult is the remote's acknowledgement of an order batch.
type PushResult struct {
	SyncedCount int
}

func (c *RemoteClient) PushOrders(ctx context.Context, orders []WireOrder) (*PushResult, error) {
	var resp wirePushResponse
	if err := c.do(ctx, http.MethodPost, "/sync/orders", "", orders, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "" && resp.Status != "success" {
		return nil, fmt.Errorf("%w: remote reported push status %q", ErrTransientNetwork, resp.Status)
	}
	result := &PushResult{SyncedCount: len(orders)}
	if resp.SyncedCount != nil {
		result.SyncedCount = *resp.SyncedCount
	}
	return result, nil
}

func (c *RemoteClient) KitchenOrders(ctx context.Context, token string) ([]models.KitchenOrder, error) {
	var resp []wireKitchenOrder
	if err := c.do(ctx, http.MethodGet, "/kitchen/orders", token, nil, &resp); err != nil {
		return nil, err
	}
	orders := make([]models.KitchenOrder, 0, len(resp))
	for i := range resp {
		k, err := resp[i].toModel()
		if err != nil {
			return nil, err
		}
		orders = append(orders, k)
	}
	return orders, nil
}

func (c *RemoteClient) UpdateKitchenStatus(ctx context.Context, token, orderID string, status models.KitchenStatus) (*KitchenStatusUpdate, error) {
	var resp wireKitchenStatusResponse
	path := fmt.Sprintf("/kitchen/orders/%s/status", url.PathEscape(orderID))
	if err := c.do(ctx, http.MethodPost, path, token, wireKitchenStatusRequest{Status: status}, &resp); err != nil {
		return nil, err
	}
	return resp.toUpdate()
}
