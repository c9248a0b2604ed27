// Package params decodes JSON-RPC parameters for method handlers.
package params

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/lumen-social/lumen/internal/auth"
	"github.com/lumen-social/lumen/internal/service"
)

// Decode unmarshals named params into dst. Missing params decode as {}.
// Unknown fields are rejected.
func Decode(raw json.RawMessage, dst any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
	}
	return nil
}

// Identity returns the acting user of the request, empty when anonymous
func Identity(c *gin.Context) auth.Identity {
	return auth.FromContext(c)
}

// DecodeData reads {"data": "<base64>"} params
func DecodeData(raw json.RawMessage) ([]byte, error) {
	var p struct {
		Data string `json:"data"`
	}
	if err := Decode(raw, &p); err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: data is not base64", service.ErrInvalidInput)
	}
	return data, nil
}
