package exchange

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestUpbitTokenWithoutParams(t *testing.T) {
	t.Parallel()
	token, err := upbitToken("access", "secret", nil)
	if err != nil {
		t.Fatal(err)
	}
	claims := parseUpbitClaims(t, token, "secret")

	if claims["access_key"] != "access" {
		t.Errorf("access_key = %v", claims["access_key"])
	}
	if nonce, _ := claims["nonce"].(string); nonce == "" {
		t.Error("nonce missing")
	}
	if _, ok := claims["query_hash"]; ok {
		t.Error("query_hash set without params")
	}
}

func TestUpbitTokenQueryHash(t *testing.T) {
	t.Parallel()
	params := map[string]string{"market": "KRW-BTC", "side": "ask", "ord_type": "market", "volume": "0.1"}
	token, err := upbitToken("access", "secret", params)
	if err != nil {
		t.Fatal(err)
	}
	claims := parseUpbitClaims(t, token, "secret")

	sum := sha512.Sum512([]byte(encodeQuery(params)))
	if claims["query_hash"] != hex.EncodeToString(sum[:]) {
		t.Errorf("query_hash = %v", claims["query_hash"])
	}
	if claims["query_hash_alg"] != "SHA512" {
		t.Errorf("query_hash_alg = %v", claims["query_hash_alg"])
	}
}

func parseUpbitClaims(t *testing.T, token, secret string) jwt.MapClaims {
	t.Helper()
	raw, ok := strings.CutPrefix(token, "Bearer ")
	if !ok {
		t.Fatalf("token %q lacks Bearer prefix", token)
	}
	parsed, err := jwt.Parse(raw, func(tok *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		t.Fatalf("parse jwt: %v", err)
	}
	return parsed.Claims.(jwt.MapClaims)
}

func TestBithumbHeaders(t *testing.T) {
	t.Parallel()
	params := map[string]string{"endpoint": "/info/balance", "currency": "ALL"}
	headers := bithumbHeaders("/info/balance", params, "apikey", "apisecret")

	if headers["Api-Key"] != "apikey" {
		t.Errorf("Api-Key = %q", headers["Api-Key"])
	}
	if headers["Content-Type"] != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q", headers["Content-Type"])
	}
	nonce := headers["Api-Nonce"]
	if nonce == "" {
		t.Fatal("Api-Nonce missing")
	}

	signing := "/info/balance\x00" + encodeQuery(params) + "\x00" + nonce
	mac := hmac.New(sha512.New, []byte("apisecret"))
	mac.Write([]byte(signing))
	want := base64.StdEncoding.EncodeToString([]byte(hex.EncodeToString(mac.Sum(nil))))
	if headers["Api-Sign"] != want {
		t.Errorf("Api-Sign = %q, want %q", headers["Api-Sign"], want)
	}
}

func TestEncodeQuerySortsKeys(t *testing.T) {
	t.Parallel()
	got := encodeQuery(map[string]string{"b": "2", "a": "1", "c": "3 3"})
	if got != "a=1&b=2&c=3+3" {
		t.Errorf("encodeQuery = %q", got)
	}
	if encodeQuery(nil) != "" {
		t.Error("empty params should encode to empty string")
	}
}
