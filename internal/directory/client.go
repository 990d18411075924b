package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/odontocare/citas-service/internal/auth"
)

// Client talks HTTP to the user-admin service. Lookups authenticate with a
// minted service token; 404 maps to ErrNotFound and anything else abnormal to
// ErrUnavailable so callers can keep validation and infrastructure failures
// apart.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  *TokenManager
}

func NewClient(baseURL string, tokens *TokenManager) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
		tokens:  tokens,
	}
}

func (c *Client) GetDoctor(ctx context.Context, id int64, userRole auth.Role) (*Doctor, error) {
	var doctor Doctor
	url := fmt.Sprintf("%s/api/v1/admin/doctor/%d", c.baseURL, id)
	if err := c.get(ctx, url, userRole, &doctor); err != nil {
		return nil, err
	}
	return &doctor, nil
}

func (c *Client) GetCentro(ctx context.Context, id int64) (*Centro, error) {
	var centro Centro
	url := fmt.Sprintf("%s/api/v1/admin/centro/%d", c.baseURL, id)
	if err := c.get(ctx, url, "", &centro); err != nil {
		return nil, err
	}
	return &centro, nil
}

func (c *Client) GetPaciente(ctx context.Context, id int64, userRole auth.Role) (*Paciente, error) {
	var paciente Paciente
	url := fmt.Sprintf("%s/api/v1/admin/paciente/%d?estado=activo", c.baseURL, id)
	if err := c.get(ctx, url, userRole, &paciente); err != nil {
		return nil, err
	}
	return &paciente, nil
}

func (c *Client) get(ctx context.Context, url string, userRole auth.Role, out any) error {
	token, err := c.tokens.Token(userRole)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("%w: user-admin answered %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	return nil
}
