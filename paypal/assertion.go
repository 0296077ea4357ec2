// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package paypal

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"
)

type assertionHeader struct {
	Alg string `json:"alg"`
}

type assertionBody struct {
	Iss     string `json:"iss"`
	PayerID string `json:"payer_id"`
}

// BuildAuthAssertion returns the unsigned PayPal-Auth-Assertion value a
// partner sends to act on behalf of merchantID:
//
//	base64({"alg":"none"}) + "." + base64({"iss":clientID,"payer_id":merchantID}) + "."
//
// Parts use standard base64 with padding. The signature is always empty.
func BuildAuthAssertion(clientID, merchantID string) (string, error) {
	if clientID == "" {
		return "", &InvalidArgumentError{Name: "client_id"}
	}
	if merchantID == "" {
		return "", &InvalidArgumentError{Name: "merchant_id"}
	}

	header, err := encodePart(assertionHeader{Alg: "none"})
	if err != nil {
		return "", err
	}
	body, err := encodePart(assertionBody{Iss: clientID, PayerID: merchantID})
	if err != nil {
		return "", err
	}

	return strings.Join([]string{header, body, ""}, "."), nil
}

func encodePart(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}
