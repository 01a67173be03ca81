package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ZetsyKe/vacvpn-sub000/internal/domain/ports/adapter"
)

var _ adapter.ProvisioningNotifier = (*HTTPNotifier)(nil)

// HTTPNotifier tells the proxy-access service about entitlement changes over
// its REST API. Calls are best-effort: the caller logs failures and moves on,
// the entitlement ledger stays the source of truth.
type HTTPNotifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPNotifier(baseURL, apiKey string, timeout time.Duration) (*HTTPNotifier, error) {
	if baseURL == "" {
		return nil, errors.New("provision base url empty")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPNotifier{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (n *HTTPNotifier) GrantAccess(ctx context.Context, userID int64, credential string) error {
	body, _ := json.Marshal(map[string]any{
		"user_id":    userID,
		"credential": credential,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/users", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return n.send(req)
}

func (n *HTTPNotifier) RevokeAccess(ctx context.Context, userID int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, n.baseURL+"/users/"+strconv.FormatInt(userID, 10), nil)
	if err != nil {
		return err
	}
	return n.send(req)
}

func (n *HTTPNotifier) send(req *http.Request) error {
	if n.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+n.apiKey)
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provision service http %d", resp.StatusCode)
	}
	return nil
}
