package keyexchange

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ramnodes/ramnodes/pkg/keyring"
)

var ErrInvalidKeyResponse = errors.New("invalid key in exchange response")

// Client performs the key exchange against a server, as the browser does.
type Client struct {
	Base string
	HTTP *http.Client
}

func NewClient(base string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{Base: strings.TrimRight(base, "/"), HTTP: hc}
}

// GetKey requests a fresh session key for clientID.
func (c *Client) GetKey(ctx context.Context, clientID string) ([]byte, error) {
	if clientID == "" {
		return nil, keyring.ErrMissingClientID
	}
	b, err := json.Marshal(keyRequest{ClientID: clientID})
	if err != nil {
		return nil, err
	}
	u := c.Base + Path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("key exchange post %s: %s: %s", u, resp.Status, strings.TrimSpace(string(msg)))
	}
	var out keyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("key exchange post %s: %w", u, err)
	}
	if len(out.Key) != hex.EncodedLen(keyring.KeySize) {
		return nil, ErrInvalidKeyResponse
	}
	key, err := hex.DecodeString(out.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyResponse, err)
	}
	return key, nil
}
