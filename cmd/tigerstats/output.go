package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/panyam/tigerstats/client"
)

// writeJSON prints v with 2-space indent, leaving non-ASCII and HTML characters as is
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func writeError(w io.Writer, err error) {
	writeJSON(w, map[string]string{"error": errorMessage(err)})
}

// errorMessage renders the client's typed errors verbatim and flags anything else
func errorMessage(err error) string {
	var cfgErr *client.ConfigError
	var authErr *client.AuthError
	var apiErr *client.APIError
	switch {
	case errors.As(err, &cfgErr), errors.As(err, &authErr), errors.As(err, &apiErr):
		return err.Error()
	}
	return fmt.Sprintf("Unexpected error: %v", err)
}
