package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Signature computes the hex-encoded HMAC-SHA256 the gateway signs
// callbacks with: HMAC(secret, orderID + "|" + paymentID).
func Signature(secret []byte, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// maskSignature keeps only the trailing 8 characters for audit logs.
func maskSignature(sig string) string {
	if len(sig) <= 8 {
		return "***"
	}
	return "***" + sig[len(sig)-8:]
}
