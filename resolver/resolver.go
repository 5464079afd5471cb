package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/sqldns/sqldns/log"
	"github.com/sqldns/sqldns/model"
	"github.com/sqldns/sqldns/util"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

// Resolver generic interface for all resolvers
type Resolver interface {
	// Resolve performs resolution of the passed request
	Resolve(ctx context.Context, request *model.Request) (*model.Response, error)

	// Configuration returns current resolver configuration
	Configuration() []string
}

// ChainedResolver represents a resolver, which can delegate to the next one
type ChainedResolver interface {
	Resolver

	// Next sets the next resolver
	Next(n Resolver)

	// GetNext returns the next resolver
	GetNext() Resolver
}

// NextResolver is the base implementation of ChainedResolver
type NextResolver struct {
	next Resolver
}

// Next sets the next resolver
func (r *NextResolver) Next(n Resolver) {
	r.next = n
}

// GetNext returns the next resolver
func (r *NextResolver) GetNext() Resolver {
	return r.next
}

// Chain connects the passed resolvers into one chain and returns the first one
func Chain(resolvers ...Resolver) Resolver {
	for i, res := range resolvers {
		if i+1 < len(resolvers) {
			if cr, ok := res.(ChainedResolver); ok {
				cr.Next(resolvers[i+1])
			}
		}
	}

	return resolvers[0]
}

// Name returns a user-friendly name of the resolver
func Name(resolver Resolver) string {
	return strings.Split(fmt.Sprintf("%T", resolver), ".")[1]
}

func logger(prefix string) *logrus.Entry {
	return log.PrefixedLog(prefix)
}

func withPrefix(logger *logrus.Entry, prefix string) *logrus.Entry {
	return logger.WithField("prefix", prefix)
}

func newRequest(question string, qType dns.Type) *model.Request {
	return &model.Request{
		Req: util.NewMsgWithQuestion(question, qType),
		Log: logrus.NewEntry(log.Log()),
	}
}
