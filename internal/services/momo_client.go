package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"hiv-clinic-server/internal/config"
)

// MoMoClient talks to the MoMo capture-wallet gateway. It only implements
// the create-order call; the gateway reports the outcome back through the
// redirect/IPN parameters consumed by ReconcileFromProvider.
type MoMoClient struct {
	cfg    config.MoMoConfig
	client *http.Client
}

// NewMoMoClient creates a new MoMoClient.
func NewMoMoClient(cfg config.MoMoConfig) *MoMoClient {
	return &MoMoClient{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

type momoCreateRequest struct {
	PartnerCode string `json:"partnerCode"`
	RequestID   string `json:"requestId"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
	OrderInfo   string `json:"orderInfo"`
	RedirectURL string `json:"redirectUrl"`
	IPNURL      string `json:"ipnUrl"`
	RequestType string `json:"requestType"`
	ExtraData   string `json:"extraData"`
	Lang        string `json:"lang"`
	Signature   string `json:"signature"`
}

type momoCreateResponse struct {
	PayURL     string `json:"payUrl"`
	ResultCode int    `json:"resultCode"`
	Message    string `json:"message"`
}

// Initiate creates a provider order and returns the pay-URL the patient is
// sent to (or that backs the displayed QR code).
func (m *MoMoClient) Initiate(ctx context.Context, orderID string, amount int64, orderInfo string) (string, error) {
	requestID := uuid.New().String()

	// raw signature string is ordered alphabetically by key, per the gateway spec
	raw := fmt.Sprintf("accessKey=%s&amount=%d&extraData=&ipnUrl=%s&orderId=%s&orderInfo=%s&partnerCode=%s&redirectUrl=%s&requestId=%s&requestType=captureWallet",
		m.cfg.AccessKey, amount, m.cfg.IPNURL, orderID, orderInfo, m.cfg.PartnerCode, m.cfg.RedirectURL, requestID)
	mac := hmac.New(sha256.New, []byte(m.cfg.SecretKey))
	mac.Write([]byte(raw))

	payload := momoCreateRequest{
		PartnerCode: m.cfg.PartnerCode,
		RequestID:   requestID,
		Amount:      amount,
		OrderID:     orderID,
		OrderInfo:   orderInfo,
		RedirectURL: m.cfg.RedirectURL,
		IPNURL:      m.cfg.IPNURL,
		RequestType: "captureWallet",
		ExtraData:   "",
		Lang:        "vi",
		Signature:   hex.EncodeToString(mac.Sum(nil)),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("momo create returned status %d", resp.StatusCode)
	}

	var result momoCreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode momo response: %w", err)
	}
	if result.ResultCode != ProviderResultSuccess {
		return "", fmt.Errorf("momo create rejected: %s (code %d)", result.Message, result.ResultCode)
	}
	return result.PayURL, nil
}
