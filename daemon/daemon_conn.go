// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package daemon provides a client for the JSON-RPC interface of a running
// Electrum wallet daemon (`electrum daemon -d`). Requests are single HTTP
// POSTs with basic auth; there is no session and no notifications.
package daemon

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/decred/go-socks/socks"
	"github.com/go-zoox/logger"
)

// maxResponseSize caps how much of a response body is read. History of a
// busy wallet is the largest thing the daemon sends back.
const maxResponseSize = 32 << 20

// positional is a list of positional arguments.
type positional []any

type request struct {
	ID     uint64 `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params"`
}

type response struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// RPCError is an error returned by the daemon in the error field of a
// response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("daemon error %d: %s", e.Code, e.Message)
}

// StatusError is returned for any unexpected HTTP status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("daemon http status %d: %s", e.Code, e.Body)
}

type daemonConn struct {
	url        string
	user       string
	password   string
	creds      func() (*ElectrumConfig, error)
	userAgent  string
	httpClient *http.Client

	reqID uint64
}

func (dc *daemonConn) nextID() uint64 {
	return atomic.AddUint64(&dc.reqID, 1)
}

func newDaemonConn(cfg *DaemonConfig) (*daemonConn, error) {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	var dial func(ctx context.Context, network, addr string) (net.Conn, error)
	switch {
	case cfg.TorProxy != "":
		p := &socks.Proxy{
			Addr:         cfg.TorProxy,
			TorIsolation: true,
		}
		logger.Info("using tor isolation proxy: %s - to connect to %s", p.Addr, cfg.Addr())
		dial = p.DialContext
	case cfg.Proxy != nil:
		pd := cfg.Proxy
		dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := pd.(interface {
				DialContext(context.Context, string, string) (net.Conn, error)
			}); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return pd.Dial(network, addr)
		}
	default:
		dial = (&net.Dialer{Timeout: 5 * time.Second}).DialContext
	}

	transport := &http.Transport{
		DialContext:         dial,
		MaxIdleConns:        4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if cfg.UseTLS {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: cfg.TLSSkipVerify,
			MinVersion:         tls.VersionTLS12,
		}
	}

	return &daemonConn{
		url:       cfg.URL(),
		user:      cfg.User,
		password:  cfg.Password,
		creds:     cfg.Credentials,
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}, nil
}

// prepareRequest builds the json envelope. A nil args is sent as an empty
// positional list since the daemon rejects a null params field.
func prepareRequest(id uint64, method string, args any) ([]byte, error) {
	if p, ok := args.(positional); args == nil || (ok && p == nil) {
		args = positional{}
	}
	return json.Marshal(&request{
		ID:     id,
		Method: method,
		Params: args,
	})
}

// request performs a request to the daemon for the given method using the
// provided arguments, which may either be positional (e.g.
// positional{arg1, arg2}), named (any struct or map), or nil if there are no
// arguments. If the response does not include an error, the result will be
// unmarshalled into result, unless the provided result is nil in which case
// the response payload will be ignored.
func (dc *daemonConn) request(ctx context.Context, method string, args any, result any) error {
	id := dc.nextID()
	reqMsg, err := prepareRequest(id, method, args)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, dc.url, bytes.NewReader(reqMsg))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	if dc.userAgent != "" {
		httpReq.Header.Set("User-Agent", dc.userAgent)
	}
	user, password := dc.user, dc.password
	if dc.creds != nil {
		ec, err := dc.creds()
		if err != nil {
			return fmt.Errorf("rpc credentials: %w", err)
		}
		user, password = ec.RPCUser, ec.RPCPassword
	}
	httpReq.SetBasicAuth(user, password)

	logger.Debug("-> %s id=%d", method, id)
	httpResp, err := dc.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return err
	}

	switch httpResp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	default:
		return &StatusError{Code: httpResp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}

	var resp response
	if err = json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("%s: bad response: %w", method, err)
	}
	logger.Debug("<- %s id=%d", method, resp.ID)
	if resp.ID != id {
		return fmt.Errorf("%s: %w: got %d, want %d", method, ErrIDMismatch, resp.ID, id)
	}

	if rpcErr := decodeRPCError(resp.Error); rpcErr != nil {
		return rpcErr
	}

	if result == nil {
		return nil
	}
	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return ErrNoResult
	}
	return json.Unmarshal(resp.Result, result)
}

// decodeRPCError returns nil for an absent or null error field. Some daemon
// versions send the error as a bare string.
func decodeRPCError(raw json.RawMessage) *RPCError {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var rpcErr RPCError
	if err := json.Unmarshal(raw, &rpcErr); err == nil {
		return &rpcErr
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil {
		return &RPCError{Message: msg}
	}
	return &RPCError{Message: string(raw)}
}
