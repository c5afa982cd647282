// Package identity implements the signed service-to-service contract with
// the identity service: HMAC-SHA256 over "{serviceId}:{unixSeconds}" carried
// in three headers, a 60 second timestamp window and constant-time signature
// comparison on the receiving side.
package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// Header names of the service signature scheme.
const (
	HeaderServiceID = "X-Internal-Service-ID"
	HeaderTimestamp = "X-Service-Timestamp"
	HeaderSignature = "X-Service-Signature"
)

// MaxClockSkew is the accepted distance between the signed timestamp and the
// verifier's clock.
const MaxClockSkew = 60 * time.Second

// Sign computes the hex signature for the given service id at the given
// instant.
func Sign(serviceID, sharedSecret string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(sharedSecret))
	fmt.Fprintf(mac, "%s:%d", serviceID, at.Unix())
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks an incoming signature: the timestamp must parse, lie within
// MaxClockSkew of now, and the recomputed signature must match in constant
// time.  It returns a descriptive error on any failure.
func Verify(serviceID, timestamp, signature, sharedSecret string, now time.Time) error {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("identity: invalid timestamp %q", timestamp)
	}
	at := time.Unix(ts, 0)
	skew := now.Sub(at)
	if skew < 0 {
		skew = -skew
	}
	if skew > MaxClockSkew {
		return fmt.Errorf("identity: timestamp outside %s window", MaxClockSkew)
	}
	want := Sign(serviceID, sharedSecret, at)
	if subtle.ConstantTimeCompare([]byte(want), []byte(signature)) != 1 {
		return fmt.Errorf("identity: signature mismatch")
	}
	return nil
}
