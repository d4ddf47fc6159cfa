package server

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strings"
)

const signatureHeader = "X-Hub-Signature"

var (
	errMissingSignature = errors.New("missing request signature")
	errBadSignature     = errors.New("request signature mismatch")
)

// verifySignature checks header, of the form "sha1=<hex>", against the
// HMAC-SHA1 of body keyed with secret.
func verifySignature(secret string, body []byte, header string) error {
	if header == "" {
		return errMissingSignature
	}
	method, digest, ok := strings.Cut(header, "=")
	if !ok || method != "sha1" {
		return errBadSignature
	}
	got, err := hex.DecodeString(digest)
	if err != nil {
		return errBadSignature
	}
	if !hmac.Equal(got, sign(secret, body)) {
		return errBadSignature
	}
	return nil
}

func sign(secret string, body []byte) []byte {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}
