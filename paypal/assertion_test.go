// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package paypal

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAuthAssertion(t *testing.T) {
	t.Run("DecodesToHeaderBodyAndEmptySignature", func(t *testing.T) {
		token, err := BuildAuthAssertion("client123", "merchant456")
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)

		header, err := base64.StdEncoding.DecodeString(parts[0])
		require.NoError(t, err)
		body, err := base64.StdEncoding.DecodeString(parts[1])
		require.NoError(t, err)

		assert.Equal(t, `{"alg":"none"}`, string(header))
		assert.Equal(t, `{"iss":"client123","payer_id":"merchant456"}`, string(body))
		assert.Equal(t, "", parts[2])
		assert.True(t, strings.HasSuffix(token, "."))
	})

	t.Run("MatchesBrowserBtoa", func(t *testing.T) {
		token, err := BuildAuthAssertion("client123", "merchant456")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(token, "eyJhbGciOiJub25lIn0=."))
	})

	t.Run("Deterministic", func(t *testing.T) {
		first, err := BuildAuthAssertion("A", "B")
		require.NoError(t, err)
		second, err := BuildAuthAssertion("A", "B")
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("NoHTMLEscaping", func(t *testing.T) {
		token, err := BuildAuthAssertion("a&b", "<m>")
		require.NoError(t, err)

		body, err := base64.StdEncoding.DecodeString(strings.Split(token, ".")[1])
		require.NoError(t, err)
		assert.Equal(t, `{"iss":"a&b","payer_id":"<m>"}`, string(body))
	})

	t.Run("EmptyArguments", func(t *testing.T) {
		var argErr *InvalidArgumentError

		_, err := BuildAuthAssertion("", "merchant456")
		require.ErrorAs(t, err, &argErr)
		assert.Equal(t, "client_id", argErr.Name)

		_, err = BuildAuthAssertion("client123", "")
		require.ErrorAs(t, err, &argErr)
		assert.Equal(t, "merchant_id", argErr.Name)
	})
}
