package service

import (
	"crypto/sha256"
	"encoding/hex"
)

const fingerprintLength = 16

func anonymousFingerprint(ip, userAgent string) string {
	sum := sha256.Sum256([]byte(ip + "|" + userAgent))
	return hex.EncodeToString(sum[:])[:fingerprintLength]
}
