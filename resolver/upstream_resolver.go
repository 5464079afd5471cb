package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sqldns/sqldns/config"
	"github.com/sqldns/sqldns/model"
	"github.com/sqldns/sqldns/util"

	"github.com/avast/retry-go/v4"
	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

const (
	// dial, read and write timeout per upstream call
	upstreamTimeout = 3 * time.Second

	upstreamRetryAttempts = 3
)

// UpstreamResolver sends the request to an external DNS server
type UpstreamResolver struct {
	NextResolver
	upstreamURL          string
	tcpClient, udpClient *dns.Client
}

// NewUpstreamResolver creates a new resolver instance
func NewUpstreamResolver(upstream config.Upstream) *UpstreamResolver {
	return &UpstreamResolver{
		upstreamURL: upstream.String(),
		tcpClient:   newDNSClient("tcp"),
		udpClient:   newDNSClient("udp"),
	}
}

func newDNSClient(network string) *dns.Client {
	return &dns.Client{
		Net:          network,
		DialTimeout:  upstreamTimeout,
		ReadTimeout:  upstreamTimeout,
		WriteTimeout: upstreamTimeout,
	}
}

// Configuration returns the current resolver configuration
func (r *UpstreamResolver) Configuration() (result []string) {
	return []string{fmt.Sprintf("upstream = \"%s\"", r.upstreamURL)}
}

func (r UpstreamResolver) String() string {
	return fmt.Sprintf("upstream '%s'", r.upstreamURL)
}

// Resolve calls the external resolver, retrying on temporary network errors
func (r *UpstreamResolver) Resolve(ctx context.Context, request *model.Request) (*model.Response, error) {
	logger := withPrefix(request.Log, "upstream_resolver")

	var (
		resp *dns.Msg
		rtt  time.Duration
	)

	err := retry.Do(
		func() error {
			var err error
			resp, rtt, err = r.callExternal(ctx, request.Req, request.Protocol)

			return err
		},
		retry.Attempts(upstreamRetryAttempts),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTemporaryNetErr),
	)
	if err != nil {
		return nil, fmt.Errorf("can't resolve request via upstream server %s: %w", r.upstreamURL, err)
	}

	logger.WithFields(logrus.Fields{
		"answer":           util.AnswerToString(resp.Answer),
		"return_code":      dns.RcodeToString[resp.Rcode],
		"upstream":         r.upstreamURL,
		"protocol":         request.Protocol,
		"response_time_ms": rtt.Milliseconds(),
	}).Debugf("received response from upstream")

	return &model.Response{
		Res:    resp,
		RType:  model.ResponseTypeRESOLVED,
		Reason: fmt.Sprintf("RESOLVED (%s)", r.upstreamURL),
	}, nil
}

func isTemporaryNetErr(err error) bool {
	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}

func (r *UpstreamResolver) callExternal(ctx context.Context, msg *dns.Msg,
	protocol model.RequestProtocol,
) (*dns.Msg, time.Duration, error) {
	if protocol == model.RequestProtocolTCP {
		response, rtt, err := r.tcpClient.ExchangeContext(ctx, msg, r.upstreamURL)
		if err != nil {
			// try UDP as fallback if the TCP connection could not be established
			var opErr *net.OpError
			if errors.As(err, &opErr) && opErr.Op == "dial" {
				return r.udpClient.ExchangeContext(ctx, msg, r.upstreamURL)
			}
		}

		return response, rtt, err
	}

	return r.udpClient.ExchangeContext(ctx, msg, r.upstreamURL)
}
