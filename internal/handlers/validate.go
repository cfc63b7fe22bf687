package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

func checkContentType(r *http.Request, target string) bool {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mediaType == target
}

// decodeBody fills dst from a JSON body, or hands a form body to fromForm.
// Other content types leave dst untouched, as an empty body would.
func decodeBody(r *http.Request, dst any, fromForm func(url.Values) error) error {
	switch {
	case checkContentType(r, contentTypeJSON):
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("invalid request body: %w", err)
		}
		return nil
	case checkContentType(r, contentTypeForm):
		if err := r.ParseForm(); err != nil {
			return fmt.Errorf("invalid form body: %w", err)
		}
		if err := fromForm(r.PostForm); err != nil {
			return fmt.Errorf("invalid form body: %w", err)
		}
		return nil
	default:
		return nil
	}
}
