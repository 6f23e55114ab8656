package epicor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"po-tracker/internal/core"
)

// Client pulls receipt lines from an Epicor BAQ over the REST surface.
// Read-only: nothing in this service ever writes back to Epicor.
type Client struct {
	baseURL  string
	company  string
	username string
	password string
	client   *http.Client
}

// Config carries the Epicor connection settings, normally sourced from
// EPICOR_BASE_URL, EPICOR_COMPANY, EPICOR_USER and EPICOR_PASS.
type Config struct {
	BaseURL  string
	Company  string
	Username string
	Password string
}

func NewClient(cfg Config) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		company:  cfg.Company,
		username: cfg.Username,
		password: cfg.Password,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// The BAQ expects its parameters wrapped in single quotes:
// RcvItemsRequestionList?Company='157173'&PONum='1456'
func (c *Client) receiptURL(poNumber string) string {
	return fmt.Sprintf("%s/RcvItemsRequestionList?Company=%s&PONum=%s",
		c.baseURL,
		url.QueryEscape("'"+c.company+"'"),
		url.QueryEscape("'"+poNumber+"'"))
}

// FetchReceiptLines returns the receipt rows Epicor knows for the given Epicor
// PO number.
func (c *Client) FetchReceiptLines(ctx context.Context, poNumber string) ([]core.ReceiptLine, error) {
	if poNumber == "" {
		return nil, core.Validationf("Missing Epicor PO #")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.receiptURL(poNumber), nil)
	if err != nil {
		return nil, fmt.Errorf("build epicor request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &core.UpstreamError{System: "epicor", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, &core.UpstreamError{
			System: "epicor",
			Err:    fmt.Errorf("status %d: %s", resp.StatusCode, body),
		}
	}

	var payload baqResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &core.UpstreamError{System: "epicor", Err: fmt.Errorf("decode response: %w", err)}
	}

	lines := make([]core.ReceiptLine, 0, len(payload.Value))
	for _, row := range payload.Value {
		lines = append(lines, core.ReceiptLine{
			PartNum:         row.PartNum,
			PartDescription: row.PartDescription,
			Qty:             row.OurQty,
			UOM:             row.IUM,
			ReceiptDate:     row.ReceiptDate,
			Warehouse:       row.WarehouseCode,
			Bin:             row.BinNum,
			Received:        bool(row.Received),
		})
	}
	return lines, nil
}

type baqResponse struct {
	Value []receiptRow `json:"value"`
}

type receiptRow struct {
	PartNum         string          `json:"RcvDtl_PartNum"`
	PartDescription string          `json:"RcvDtl_PartDescription"`
	OurQty          decimal.Decimal `json:"RcvDtl_OurQty"`
	IUM             string          `json:"RcvDtl_IUM"`
	ReceiptDate     string          `json:"RcvDtl_ReceiptDate"`
	WarehouseCode   string          `json:"RcvDtl_WareHouseCode"`
	BinNum          string          `json:"RcvDtl_BinNum"`
	Received        flexBool        `json:"RcvDtl_Received"`
}

// flexBool tolerates the BAQ's inconsistent typing: the received flag arrives
// as a JSON bool or as the string "true"/"false" depending on the BAQ version.
// Anything that is not true or "true" (case-insensitive) reads as false.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "true" {
		*b = true
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*b = flexBool(strings.EqualFold(strings.TrimSpace(str), "true"))
		return nil
	}
	*b = false
	return nil
}
