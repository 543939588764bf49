// Package keyexchange implements the HTTP exchange through which a browser
// client obtains its session key.
//
//	POST /ram_nodes/get_key   {"client_id": "..."}
//	200 {"key": "<64 hex chars>"}
//	400 text/plain            missing client_id or undecodable body
//	500 text/plain            key generation failed
//
// Key material is never passed to the Observer.
package keyexchange

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/ramnodes/ramnodes/pkg/keyring"
)

// Path is the route the browser client posts to.
const Path = "/ram_nodes/get_key"

const maxRequestBytes = 4096

const (
	msgMissingClientID = "Client ID is required"
	msgBadRequest      = "invalid request body"
	msgInternal        = "internal server error"
)

type Issuer interface {
	Issue(clientID string) ([]byte, error)
}

// Observer receives the outcome of each exchange request.
type Observer interface {
	KeyIssued(remoteAddr string)
	KeyRequestFailed(remoteAddr string, status int, err error)
}

type keyRequest struct {
	ClientID string `json:"client_id"`
}

type keyResponse struct {
	Key string `json:"key"`
}

type Handler struct {
	issuer   Issuer
	observer Observer
}

// NewHandler returns a handler issuing keys from issuer. observer may be nil.
func NewHandler(issuer Issuer, observer Observer) *Handler {
	return &Handler{issuer: issuer, observer: observer}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer body.Close()
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		h.fail(w, r, http.StatusBadRequest, msgBadRequest, err)
		return
	}
	if req.ClientID == "" {
		h.fail(w, r, http.StatusBadRequest, msgMissingClientID, keyring.ErrMissingClientID)
		return
	}
	key, err := h.issuer.Issue(req.ClientID)
	if err != nil {
		if errors.Is(err, keyring.ErrMissingClientID) {
			h.fail(w, r, http.StatusBadRequest, msgMissingClientID, err)
		} else {
			h.fail(w, r, http.StatusInternalServerError, msgInternal, err)
		}
		return
	}
	if h.observer != nil {
		h.observer.KeyIssued(r.RemoteAddr)
	}
	render.JSON(w, r, keyResponse{Key: hex.EncodeToString(key)})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	if h.observer != nil {
		h.observer.KeyRequestFailed(r.RemoteAddr, status, err)
	}
	render.Status(r, status)
	render.PlainText(w, r, msg)
}
