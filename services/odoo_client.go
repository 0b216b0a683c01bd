package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/dock-scheduler/utils"
)

const unknownSupplier = "Unknown Supplier"

// OdooConfig holds Odoo ERP connection settings
type OdooConfig struct {
	URL      string
	DB       string
	User     string
	Password string
	Timeout  time.Duration
}

// OdooClient verifies purchase orders through Odoo's JSON-RPC endpoint
type OdooClient struct {
	config     OdooConfig
	httpClient *http.Client
	requestID  atomic.Int64

	mu  sync.Mutex
	uid int64
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int64     `json:"id"`
}

type rpcParams struct {
	Service string        `json:"service"`
	Method  string        `json:"method"`
	Args    []interface{} `json:"args"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Message string `json:"message"`
	} `json:"data"`
}

func (e *rpcError) Error() string {
	if e.Data.Message != "" {
		return fmt.Sprintf("odoo error %d: %s", e.Code, e.Data.Message)
	}
	return fmt.Sprintf("odoo error %d: %s", e.Code, e.Message)
}

type purchaseOrder struct {
	ID        int64           `json:"id"`
	PartnerID json.RawMessage `json:"partner_id"`
}

func NewOdooClient(config OdooConfig) *OdooClient {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	config.URL = strings.TrimRight(config.URL, "/")
	return &OdooClient{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ValidateConfig validates Odoo configuration
func (oc *OdooClient) ValidateConfig() error {
	if oc.config.URL == "" {
		return fmt.Errorf("ODOO_URL is not set")
	}
	if oc.config.DB == "" {
		return fmt.Errorf("ODOO_DB is not set")
	}
	if oc.config.User == "" {
		return fmt.Errorf("ODOO_USER is not set")
	}
	if oc.config.Password == "" {
		return fmt.Errorf("ODOO_PASSWORD is not set")
	}
	return nil
}

// Connect authenticates and caches the user id for later calls.
func (oc *OdooClient) Connect(ctx context.Context) error {
	if err := oc.ValidateConfig(); err != nil {
		return err
	}

	var uid json.RawMessage
	if err := oc.call(ctx, "common", "authenticate", []interface{}{
		oc.config.DB, oc.config.User, oc.config.Password, map[string]interface{}{},
	}, &uid); err != nil {
		return fmt.Errorf("odoo authenticate: %w", err)
	}

	// Odoo mengembalikan false kalau login gagal
	var id int64
	if err := json.Unmarshal(uid, &id); err != nil || id == 0 {
		return errors.New("odoo authenticate: invalid credentials")
	}

	oc.mu.Lock()
	oc.uid = id
	oc.mu.Unlock()
	return nil
}

// Ping reports whether the Odoo server answers at all.
func (oc *OdooClient) Ping(ctx context.Context) error {
	var version json.RawMessage
	return oc.call(ctx, "common", "version", []interface{}{}, &version)
}

// Validate looks up a confirmed purchase order by name.
func (oc *OdooClient) Validate(ctx context.Context, po string) (POVerification, error) {
	uid, err := oc.session(ctx)
	if err != nil {
		return POVerification{Status: POUnavailable}, err
	}

	domain := []interface{}{
		[]interface{}{"name", "=", po},
		[]interface{}{"state", "in", []string{"purchase", "done"}},
	}
	var orders []purchaseOrder
	err = oc.call(ctx, "object", "execute_kw", []interface{}{
		oc.config.DB, uid, oc.config.Password,
		"purchase.order", "search_read",
		[]interface{}{domain},
		map[string]interface{}{"fields": []string{"id", "partner_id"}, "limit": 1},
	}, &orders)
	if err != nil {
		return POVerification{Status: POUnavailable}, fmt.Errorf("odoo search_read: %w", err)
	}

	if len(orders) == 0 {
		return POVerification{Status: PONoMatch}, nil
	}

	order := orders[0]
	return POVerification{
		Status:          POVerified,
		ExternalOrderID: order.ID,
		SupplierName:    partnerName(order.PartnerID),
	}, nil
}

func (oc *OdooClient) session(ctx context.Context) (int64, error) {
	oc.mu.Lock()
	uid := oc.uid
	oc.mu.Unlock()
	if uid != 0 {
		return uid, nil
	}

	if err := oc.Connect(ctx); err != nil {
		return 0, err
	}
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.uid, nil
}

func (oc *OdooClient) call(ctx context.Context, service, method string, args []interface{}, out interface{}) error {
	payload := rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  rpcParams{Service: service, Method: method, Args: args},
		ID:      oc.requestID.Add(1),
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, oc.config.URL+"/jsonrpc", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := oc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("odoo http status %d", resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("error unmarshaling response: %w", err)
	}
	if rpcResp.Error != nil {
		utils.ErrorLogger.WithFields(logrus.Fields{
			"service": service,
			"method":  method,
		}).Warn(rpcResp.Error.Error())
		return rpcResp.Error
	}
	return json.Unmarshal(rpcResp.Result, out)
}

// partner_id is either false or [id, "Display Name"].
func partnerName(raw json.RawMessage) string {
	var pair []interface{}
	if err := json.Unmarshal(raw, &pair); err != nil || len(pair) < 2 {
		return unknownSupplier
	}
	name, ok := pair[1].(string)
	if !ok || name == "" {
		return unknownSupplier
	}
	return name
}
