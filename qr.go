package main

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// ControllerQR renders content as a PNG QR code of size pixels
func ControllerQR(content string, size int) ([]byte, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encoding qr: %w", err)
	}
	return png, nil
}

// controllerURL is the page a phone opens to steer session sid
func controllerURL(r *http.Request, sid string) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	u := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     "/" + sid,
		RawQuery: url.Values{"control": {"1"}}.Encode(),
	}
	return u.String()
}
