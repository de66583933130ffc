// Package exchange implements the Upbit and Bithumb clients.
//
// It is layered the same way for both venues:
//
//   - Gateway:  signed/unsigned HTTP and WebSocket transport with
//     token-bucket admission and error classification
//   - auth.go:  the venues' request-signing schemes (Upbit JWT,
//     Bithumb HMAC-SHA512)
//   - parsers:  venue JSON -> normalized pkg/types values
//   - wrappers: high-level operations (order book, balance, market
//     orders, order-book subscription)
//
// The business tier only sees the Wrapper interface.
package exchange

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
)

const userAgent = "karb/0.1"

// Settings holds one venue's connection configuration.
type Settings struct {
	Name           string
	RESTBase       string
	WebsocketURL   string
	AccessKey      string
	SecretKey      string
	RequestTimeout time.Duration
}

func (s Settings) timeout() time.Duration {
	if s.RequestTimeout <= 0 {
		return 10 * time.Second
	}
	return s.RequestTimeout
}

// signFunc produces the venue's auth headers for a signed request.
type signFunc func(method, endpoint string, params map[string]string) (map[string]string, error)

// encodeBodyFunc attaches params as the request body for non-GET/DELETE
// methods, in the venue's expected encoding.
type encodeBodyFunc func(r *resty.Request, params map[string]string)

// prepareParamsFunc lets a venue rewrite params before signing and
// encoding (Bithumb folds the endpoint into signed non-GET params).
type prepareParamsFunc func(method, endpoint string, signed bool, params map[string]string) map[string]string

// Gateway is a per-venue HTTP + WebSocket client. One instance per venue
// is shared by that venue's wrapper; the token buckets it carries are
// shared across all concurrent requests through it.
type Gateway struct {
	settings Settings
	public   *TokenBucket
	private  *TokenBucket

	sign    signFunc
	encode  encodeBodyFunc
	prepare prepareParamsFunc

	sessionOnce sync.Once
	session     *resty.Client
}

// client returns the lazily created resty session.
func (g *Gateway) client() *resty.Client {
	g.sessionOnce.Do(func() {
		g.session = resty.New().
			SetTimeout(g.settings.timeout()).
			SetRetryCount(3).
			SetRetryWaitTime(500 * time.Millisecond).
			SetRetryMaxWaitTime(5 * time.Second).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				if err != nil {
					return true
				}
				return r.StatusCode() >= 500
			})
	})
	return g.session
}

// buildURL joins the REST base with the endpoint; absolute endpoints pass
// through untouched.
func (g *Gateway) buildURL(endpoint string) string {
	if strings.HasPrefix(endpoint, "http") {
		return endpoint
	}
	return strings.TrimRight(g.settings.RESTBase, "/") + "/" + strings.TrimLeft(endpoint, "/")
}

func (g *Gateway) limiter(signed bool) *TokenBucket {
	if signed {
		return g.private
	}
	return g.public
}

// Name returns the venue name this gateway talks to.
func (g *Gateway) Name() string { return g.settings.Name }

// Request performs one HTTP round trip and returns the raw response body.
// Signed requests consume a private-bucket token and carry the venue's
// auth headers; a status >= 400 or a transport failure yields a
// *GatewayError.
func (g *Gateway) Request(ctx context.Context, method, endpoint string, params map[string]string, signed bool, headers map[string]string) ([]byte, error) {
	if limiter := g.limiter(signed); limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	if g.prepare != nil {
		params = g.prepare(method, endpoint, signed, params)
	}

	req := g.client().R().
		SetContext(ctx).
		SetHeader("User-Agent", userAgent)
	for k, v := range headers {
		req.SetHeader(k, v)
	}

	if signed {
		if g.settings.AccessKey == "" || g.settings.SecretKey == "" {
			return nil, &GatewayError{Venue: g.settings.Name, Body: "signed request requires access_key/secret_key"}
		}
		auth, err := g.sign(method, endpoint, params)
		if err != nil {
			return nil, &GatewayError{Venue: g.settings.Name, Err: err}
		}
		for k, v := range auth {
			req.SetHeader(k, v)
		}
	}

	method = strings.ToUpper(method)
	switch method {
	case http.MethodGet, http.MethodDelete:
		if len(params) > 0 {
			req.SetQueryParams(params)
		}
	default:
		g.encode(req, params)
	}

	resp, err := req.Execute(method, g.buildURL(endpoint))
	if err != nil {
		return nil, &GatewayError{Venue: g.settings.Name, Err: err}
	}
	if resp.StatusCode() >= 400 {
		return nil, &GatewayError{Venue: g.settings.Name, Status: resp.StatusCode(), Body: resp.String()}
	}
	return resp.Body(), nil
}

// WSConnect opens a WebSocket connection. An empty url dials the venue's
// configured stream endpoint. Failures surface as *GatewayError.
func (g *Gateway) WSConnect(ctx context.Context, wsURL string) (*websocket.Conn, error) {
	if wsURL == "" {
		wsURL = g.settings.WebsocketURL
	}
	dialer := websocket.Dialer{HandshakeTimeout: g.settings.timeout()}
	header := http.Header{"User-Agent": []string{userAgent}}
	conn, _, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, &GatewayError{Venue: g.settings.Name, Err: err}
	}
	return conn, nil
}

// Close releases the underlying HTTP session.
func (g *Gateway) Close() error {
	if g.session != nil {
		g.session.GetClient().CloseIdleConnections()
	}
	return nil
}

// encodeQuery url-encodes params with keys sorted ascending. Both venues'
// signing schemes hash this exact encoding, and Bithumb additionally sends
// it as the request body, so one implementation serves all three uses.
func encodeQuery(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	return values.Encode()
}
