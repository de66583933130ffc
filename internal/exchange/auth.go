package exchange

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// upbitToken builds the Authorization value for a signed Upbit request:
// an HS256 JWT over {access_key, nonce} plus, when query params are
// present, the SHA512 hash of their sorted url-encoding.
func upbitToken(accessKey, secretKey string, params map[string]string) (string, error) {
	claims := jwt.MapClaims{
		"access_key": accessKey,
		"nonce":      uuid.NewString(),
	}
	if len(params) > 0 {
		sum := sha512.Sum512([]byte(encodeQuery(params)))
		claims["query_hash"] = hex.EncodeToString(sum[:])
		claims["query_hash_alg"] = "SHA512"
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secretKey))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return "Bearer " + token, nil
}

// bithumbHeaders builds the four auth headers for a signed Bithumb
// request. The signing string is endpoint, sorted-encoded params, and a
// millisecond nonce joined by NUL bytes; the signature is the base64 of
// the hex HMAC-SHA512 digest (the hex string's ASCII bytes, a Bithumb
// quirk).
func bithumbHeaders(endpoint string, params map[string]string, accessKey, secretKey string) map[string]string {
	nonce := strconv.FormatInt(time.Now().UnixMilli(), 10)
	signing := endpoint + "\x00" + encodeQuery(params) + "\x00" + nonce

	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write([]byte(signing))
	digest := hex.EncodeToString(mac.Sum(nil))

	return map[string]string{
		"Api-Key":      accessKey,
		"Api-Sign":     base64.StdEncoding.EncodeToString([]byte(digest)),
		"Api-Nonce":    nonce,
		"Content-Type": "application/x-www-form-urlencoded",
	}
}
