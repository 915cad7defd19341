// Package extract pulls balance values out of provider responses using
// configured path expressions, so new providers are onboarded with a URL
// template and a path instead of new parsing code.
package extract

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/vadiminshakov/chainprobe/internal/domain"
)

var bracketReplacer = strings.NewReplacer("[", ".", "]", "")

// normalizePath converts bracketed indices to gjson dot syntax:
// "data[0].balance" becomes "data.0.balance".
func normalizePath(path string) string {
	return strings.TrimPrefix(bracketReplacer.Replace(path), ".")
}

// Value returns the raw scalar addressed by path inside a JSON body. Missing
// intermediate segments are not an error: absence is reported via the bool.
func Value(body []byte, path string) (string, bool) {
	res := gjson.GetBytes(body, normalizePath(path))
	if !res.Exists() {
		return "", false
	}
	return res.String(), true
}

// Amount extracts the balance at path as an arbitrary-precision integer.
// An absent value yields (nil, false, nil) — the caller treats it as a zero
// balance. A present value that is not a whole number is malformed.
func Amount(body []byte, path string) (*big.Int, bool, error) {
	raw, ok := Value(body, path)
	if !ok {
		return nil, false, nil
	}

	n, err := ParseAmount(raw)
	if err != nil {
		return nil, true, err
	}
	return n, true, nil
}

// ParseAmount parses a smallest-unit amount. Providers disagree on formatting:
// some return plain integers, some quote them, some append a zero fraction
// ("500.0"). Anything non-integral fails with domain.ErrMalformedResponse.
func ParseAmount(raw string) (*big.Int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, errors.Wrap(domain.ErrMalformedResponse, "empty balance value")
	}

	if n, ok := new(big.Int).SetString(s, 10); ok {
		return n, nil
	}

	f, _, err := big.ParseFloat(s, 10, 256, big.ToNearestEven)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrMalformedResponse, "not a number: %q", raw)
	}
	n, acc := f.Int(nil)
	if acc != big.Exact {
		return nil, errors.Wrapf(domain.ErrMalformedResponse, "not a whole number: %q", raw)
	}
	return n, nil
}
