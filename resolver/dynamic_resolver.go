package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/sqldns/sqldns/config"
	"github.com/sqldns/sqldns/evt"
	"github.com/sqldns/sqldns/model"
	"github.com/sqldns/sqldns/store"
	"github.com/sqldns/sqldns/util"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

const dynamicResolverLogger = "dynamic_resolver"

// DynamicResolver computes answers for names under the allow-listed domain
// suffixes from rows in the backing store. A stored value is either an address
// literal, answered directly, or another name, which is delegated upstream with
// the query rewritten to the alias target.
type DynamicResolver struct {
	NextResolver
	cfg        config.DynamicConfig
	domains    map[string]struct{}
	gateway    store.Gateway
	delegation *DelegationClient
}

// NewDynamicResolver creates a new resolver instance
func NewDynamicResolver(cfg config.DynamicConfig, gateway store.Gateway, delegation *DelegationClient,
) ChainedResolver {
	domains := make(map[string]struct{}, len(cfg.Domains))
	for _, domain := range cfg.Domains {
		domains[strings.ToLower(strings.TrimSuffix(domain, "."))] = struct{}{}
	}

	return &DynamicResolver{
		cfg:        cfg,
		domains:    domains,
		gateway:    gateway,
		delegation: delegation,
	}
}

// Configuration returns the current resolver configuration
func (r *DynamicResolver) Configuration() (result []string) {
	result = append(result, fmt.Sprintf("ttl = %d", r.cfg.TTL))
	result = append(result, fmt.Sprintf("lookupQuery = \"%s\"", r.cfg.LookupQuery))

	for _, domain := range r.cfg.Domains {
		result = append(result, fmt.Sprintf("domain = \"%s\"", domain))
	}

	return
}

func isAddressQType(qType uint16) bool {
	return qType == dns.TypeA || qType == dns.TypeAAAA || qType == typeA6
}

// domainSuffix strips exactly the first label and returns the remainder.
// Multi-label hostnames beyond the first label are not matched.
func domainSuffix(domain string) string {
	if i := strings.Index(domain, "."); i >= 0 {
		return domain[i+1:]
	}

	return ""
}

// Resolve answers in-scope queries from the backing store and hands everything
// else to the next resolver in the chain.
func (r *DynamicResolver) Resolve(ctx context.Context, request *model.Request) (*model.Response, error) {
	logger := withPrefix(request.Log, dynamicResolverLogger)

	response, err := r.processRequest(ctx, request)

	if errors.Is(err, ErrUnsupportedQuery) || errors.Is(err, ErrOutOfScope) {
		logger.WithField("resolver", Name(r.next)).Trace("go to next resolver")

		return r.next.Resolve(ctx, request)
	}

	if errors.Is(err, ErrNoSuchDomain) {
		logger.WithField("domain", util.ExtractDomain(request.Req.Question[0])).Debug("no such domain")

		return model.NewResponseWithRcode(request, dns.RcodeNameError, model.ResponseTypeDYNAMIC, "DYNAMIC NXDOMAIN"), nil
	}

	return response, err
}

// processRequest performs the resolution decision logic: scope check, store
// lookup, classification and literal answer or upstream delegation.
func (r *DynamicResolver) processRequest(ctx context.Context, request *model.Request) (*model.Response, error) {
	question := request.Req.Question[0]

	if !isAddressQType(question.Qtype) {
		return nil, ErrUnsupportedQuery
	}

	domain := util.ExtractDomain(question)
	if _, found := r.domains[domainSuffix(domain)]; !found {
		return nil, ErrOutOfScope
	}

	value, found, err := r.gateway.Lookup(ctx, domain)
	if err != nil {
		return nil, &StoreError{Cause: err}
	}

	// an empty stored value can neither be answered nor delegated
	if !found || value == "" {
		return nil, ErrNoSuchDomain
	}

	classified, err := classify(value, question.Qtype)
	if err != nil {
		return nil, err
	}

	if classified.kind == aliasValue {
		return r.delegate(ctx, request, classified.alias)
	}

	withPrefix(request.Log, dynamicResolverLogger).WithFields(logrus.Fields{
		"domain":  domain,
		"address": classified.ip,
	}).Debugf("returning dynamic entry")

	response := new(dns.Msg)
	response.SetReply(request.Req)

	// records computed from the store go into the authority section,
	// the answer section stays empty
	response.Ns = append(response.Ns, createDynamicRecord(question, classified.ip, r.cfg.TTL))

	return &model.Response{Res: response, RType: model.ResponseTypeDYNAMIC, Reason: "DYNAMIC"}, nil
}

// delegate rewrites the question name to the alias target, preserving the
// original query type and class, and relays the upstream outcome unmodified.
func (r *DynamicResolver) delegate(ctx context.Context, request *model.Request, target string) (*model.Response, error) {
	withPrefix(request.Log, dynamicResolverLogger).WithField("target", target).Debugf("delegating alias upstream")

	request.Req.Question[0].Name = dns.Fqdn(target)

	evt.Bus().Publish(evt.DynamicQueryDelegated, target)

	return r.delegation.Delegate(ctx, request)
}

// createDynamicRecord builds the record for a validated literal. The deprecated
// A6 type has no RR implementation in miekg/dns, so A6 answers carry the AAAA
// payload with the header type mirroring the question.
func createDynamicRecord(question dns.Question, ip net.IP, ttl uint32) dns.RR {
	hdr := dns.RR_Header{
		Name:   question.Name,
		Rrtype: question.Qtype,
		Class:  dns.ClassINET,
		Ttl:    ttl,
	}

	if question.Qtype == dns.TypeA {
		return &dns.A{Hdr: hdr, A: ip}
	}

	return &dns.AAAA{Hdr: hdr, AAAA: ip}
}
