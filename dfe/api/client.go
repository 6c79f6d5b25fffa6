package api

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/fiscalgo/go-dfe-client/dfe/util"
)

var logger = logrus.WithField("component", "dfe.api")

// Client posts SOAP 1.2 requests to SEFAZ web services. Authentication is
// purely the mutual-TLS client identity; nothing else is sent with the
// message.
type Client interface {
	PostSOAP(ctx context.Context, url, action string, body []byte) ([]byte, error)
}

const (
	defaultTimeout   = 30 * time.Second
	defaultRetries   = 2
	defaultRetryWait = 2 * time.Second
)

type client struct {
	rest *resty.Client
}

type Option func(*resty.Client)

func WithTimeout(d time.Duration) Option {
	return func(r *resty.Client) { r.SetTimeout(d) }
}

func WithRetries(count int, wait time.Duration) Option {
	return func(r *resty.Client) { r.SetRetryCount(count).SetRetryWaitTime(wait) }
}

// New creates a SOAP client presenting the given certificate. The service
// is known to be slow, so every request carries a timeout; retries are
// bounded and fire only for transient failures (network errors and 5xx),
// never for an authentication refusal.
func New(certificate *tls.Certificate, opts ...Option) Client {
	rest := resty.New().
		SetTimeout(defaultTimeout).
		SetRetryCount(defaultRetries).
		SetRetryWaitTime(defaultRetryWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= http.StatusInternalServerError
		})

	if certificate != nil {
		rest.SetCertificates(*certificate)
	}

	for _, o := range opts {
		o(rest)
	}

	return &client{rest: rest}
}

func (c *client) PostSOAP(ctx context.Context, url, action string, body []byte) ([]byte, error) {

	r := c.rest.R().SetContext(ctx)
	if util.HttpTraceEnabled() {
		r.EnableTrace()
	}

	resp, err := r.
		SetHeader("Content-Type", fmt.Sprintf(`application/soap+xml; charset=utf-8; action=%q`, action)).
		SetHeader("SOAPAction", action).
		SetBody(body).
		Post(url)

	printTraceInfo(url, err, resp)

	if err != nil {
		return nil, &RequestError{Err: err}
	}
	if resp.IsError() {
		return nil, &RequestError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return resp.Body(), nil
}

func printTraceInfo(url string, err error, resp *resty.Response) {

	if !util.HttpTraceEnabled() || resp == nil {
		return
	}

	ti := resp.Request.TraceInfo()
	logger.WithFields(logrus.Fields{
		"url":          url,
		"status":       resp.StatusCode(),
		"error":        err,
		"dns_lookup":   ti.DNSLookup,
		"tls":          ti.TLSHandshake,
		"server_time":  ti.ServerTime,
		"total_time":   ti.TotalTime,
		"conn_reused":  ti.IsConnReused,
		"attempt":      ti.RequestAttempt,
	}).Debug("request trace")
}
