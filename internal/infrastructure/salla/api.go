package salla

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/opsdesk/backend/internal/domain/credential"
)

// AccessTokenSource yields a valid access token for a merchant.
type AccessTokenSource interface {
	GetToken(ctx context.Context, merchantID string) (string, error)
}

// MerchantAPI exposes the admin API operations the back office depends on.
// Every call obtains a fresh access token from the token source first; a
// merchant without a stored token aborts the call instead of hitting the
// platform with an empty credential.
type MerchantAPI struct {
	client *Client
	tokens AccessTokenSource
	logger *zap.Logger
}

// NewMerchantAPI creates a MerchantAPI backed by the given client and token source
func NewMerchantAPI(client *Client, tokens AccessTokenSource, logger *zap.Logger) *MerchantAPI {
	return &MerchantAPI{
		client: client,
		tokens: tokens,
		logger: logger,
	}
}

// accessToken resolves the merchant's token, logging aborted calls
func (a *MerchantAPI) accessToken(ctx context.Context, merchantID, operation string) (string, error) {
	token, err := a.tokens.GetToken(ctx, merchantID)
	if err != nil {
		reason := "refresh_failed"
		if errors.Is(err, credential.ErrTokenNotFound) {
			reason = "missing_token"
		}
		a.logger.Warn("Salla API call aborted",
			zap.String("merchant_id", merchantID),
			zap.String("operation", operation),
			zap.String("reason", reason),
			zap.Error(err))
		return "", err
	}
	return token, nil
}

// GetOrder retrieves a single order for the merchant
func (a *MerchantAPI) GetOrder(ctx context.Context, merchantID string, orderID int64) (*Order, error) {
	token, err := a.accessToken(ctx, merchantID, "get_order")
	if err != nil {
		return nil, err
	}

	body, err := a.client.doAPIRequest(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", orderID), token, nil)
	if err != nil {
		return nil, err
	}

	var resp OrderGetResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("salla: failed to parse order response: %w", err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("salla: order %d not found in response", orderID)
	}

	return resp.Data, nil
}

// UpdateOrderStatus moves the merchant's order to the given status slug
func (a *MerchantAPI) UpdateOrderStatus(ctx context.Context, merchantID string, orderID int64, slug, note string) (*OrderStatus, error) {
	token, err := a.accessToken(ctx, merchantID, "update_order_status")
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(StatusUpdateRequest{Slug: slug, Note: note})
	if err != nil {
		return nil, fmt.Errorf("salla: failed to encode status update: %w", err)
	}

	body, err := a.client.doAPIRequest(ctx, http.MethodPost, fmt.Sprintf("/orders/%d/status", orderID), token, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	var resp StatusUpdateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("salla: failed to parse status update response: %w", err)
	}

	return resp.Data, nil
}

// CreateInvoice issues an invoice for the merchant's order
func (a *MerchantAPI) CreateInvoice(ctx context.Context, merchantID string, orderID int64, req InvoiceCreateRequest) (*Invoice, error) {
	token, err := a.accessToken(ctx, merchantID, "create_invoice")
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("salla: failed to encode invoice request: %w", err)
	}

	body, err := a.client.doAPIRequest(ctx, http.MethodPost, fmt.Sprintf("/orders/%d/invoices", orderID), token, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	var resp InvoiceCreateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("salla: failed to parse invoice response: %w", err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("salla: invoice for order %d missing from response", orderID)
	}

	return resp.Data, nil
}
