package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/caribcell/caribcell-backend/pkg/config"
	pkgerrors "github.com/caribcell/caribcell-backend/pkg/errors"
	"github.com/caribcell/caribcell-backend/pkg/logger"
)

var (
	errBaseURLRequired = errors.New("carrier base url is required")
	errAPIKeyRequired  = errors.New("carrier api key is required")
)

// Client talks to the regional shipping carrier's label API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *logger.Logger
}

// LabelRequest describes the parcel a label is purchased for.
type LabelRequest struct {
	OrderNumber string `json:"order_number"`
	Name        string `json:"name"`
	Line1       string `json:"line1"`
	Line2       string `json:"line2,omitempty"`
	City        string `json:"city"`
	Territory   string `json:"territory"`
	Phone       string `json:"phone,omitempty"`
}

// Label is the carrier's response for a purchased label.
type Label struct {
	Carrier        string `json:"carrier"`
	TrackingNumber string `json:"tracking_number"`
	LabelURL       string `json:"label_url"`
}

// NewClient validates credentials and returns a carrier API client.
func NewClient(cfg config.CarrierConfig, logg *logger.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errAPIKeyRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logg,
	}, nil
}

// PurchaseLabel buys a shipping label for the destination in the request.
func (c *Client) PurchaseLabel(ctx context.Context, req LabelRequest) (*Label, error) {
	if req.OrderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode label request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/labels", bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build label request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "carrier request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("carrier returned status %d", resp.StatusCode))
	}

	var label Label
	if err := json.NewDecoder(resp.Body).Decode(&label); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode carrier response")
	}
	if label.TrackingNumber == "" || label.LabelURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "carrier response missing tracking data")
	}
	return &label, nil
}
