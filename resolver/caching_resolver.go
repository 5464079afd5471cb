package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/sqldns/sqldns/config"
	"github.com/sqldns/sqldns/evt"
	"github.com/sqldns/sqldns/model"
	"github.com/sqldns/sqldns/util"

	lru "github.com/hashicorp/golang-lru"
	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

const defaultCacheSize = 1024

// CachingResolver caches answers from DNS queries with their TTL time,
// to avoid external resolver calls for recurrent queries
type CachingResolver struct {
	NextResolver
	minCacheTimeSec, maxCacheTimeSec int
	resultCache                      *lru.Cache
}

type cacheEntry struct {
	answer  []dns.RR
	expires time.Time
}

// NewCachingResolver creates a new resolver instance
func NewCachingResolver(cfg config.CachingConfig) ChainedResolver {
	size := cfg.MaxItemsCount
	if size <= 0 {
		size = defaultCacheSize
	}

	resultCache, err := lru.New(size)
	util.FatalOnError("can't create cache: ", err)

	return &CachingResolver{
		minCacheTimeSec: cfg.MinCachingTime,
		maxCacheTimeSec: cfg.MaxCachingTime,
		resultCache:     resultCache,
	}
}

// Configuration returns the current resolver configuration
func (r *CachingResolver) Configuration() (result []string) {
	result = append(result, fmt.Sprintf("minCacheTimeInSec = %d", r.minCacheTimeSec))
	result = append(result, fmt.Sprintf("maxCacheTimeSec = %d", r.maxCacheTimeSec))
	result = append(result, fmt.Sprintf("cacheItemsCount = %d", r.resultCache.Len()))

	return
}

func isRequestCacheable(qType uint16) bool {
	return qType == dns.TypeA || qType == dns.TypeAAAA
}

func cacheKey(question dns.Question) string {
	return fmt.Sprintf("%d:%s", question.Qtype, util.ExtractDomain(question))
}

// Resolve serves recurrent queries from the cache as long as their TTL lasts
func (r *CachingResolver) Resolve(ctx context.Context, request *model.Request) (*model.Response, error) {
	logger := withPrefix(request.Log, "caching_resolver")

	question := request.Req.Question[0]
	if !isRequestCacheable(question.Qtype) {
		logger.WithField("resolver", Name(r.next)).Trace("go to next resolver")

		return r.next.Resolve(ctx, request)
	}

	key := cacheKey(question)
	domain := util.ExtractDomain(question)

	if val, found := r.resultCache.Get(key); found {
		entry := val.(cacheEntry)

		if remaining := time.Until(entry.expires); remaining > 0 {
			evt.Bus().Publish(evt.CachingResultCacheHit, domain)

			logger.WithFields(logrus.Fields{
				"domain":        domain,
				"remaining_ttl": remaining.Seconds(),
			}).Debugf("serving from cache")

			response := new(dns.Msg)
			response.SetReply(request.Req)
			response.Answer = answerWithTTL(entry.answer, uint32(remaining.Seconds()))

			return &model.Response{Res: response, RType: model.ResponseTypeCACHED, Reason: "CACHED"}, nil
		}

		r.resultCache.Remove(key)
	}

	evt.Bus().Publish(evt.CachingResultCacheMiss, domain)

	response, err := r.next.Resolve(ctx, request)

	if err == nil && response.Res.Rcode == dns.RcodeSuccess && len(response.Res.Answer) > 0 {
		ttl := r.adjustTTL(minTTL(response.Res.Answer))
		r.resultCache.Add(key, cacheEntry{
			answer:  response.Res.Answer,
			expires: time.Now().Add(time.Duration(ttl) * time.Second),
		})
	}

	return response, err
}

// answerWithTTL copies the cached records with the remaining TTL
func answerWithTTL(answer []dns.RR, ttl uint32) []dns.RR {
	result := make([]dns.RR, len(answer))

	for i, rr := range answer {
		copied := dns.Copy(rr)
		copied.Header().Ttl = ttl
		result[i] = copied
	}

	return result
}

func minTTL(answer []dns.RR) uint32 {
	min := answer[0].Header().Ttl

	for _, rr := range answer[1:] {
		if rr.Header().Ttl < min {
			min = rr.Header().Ttl
		}
	}

	return min
}

func (r *CachingResolver) adjustTTL(ttl uint32) uint32 {
	if r.minCacheTimeSec > 0 && ttl < uint32(r.minCacheTimeSec) {
		return uint32(r.minCacheTimeSec)
	}

	if r.maxCacheTimeSec > 0 && ttl > uint32(r.maxCacheTimeSec) {
		return uint32(r.maxCacheTimeSec)
	}

	return ttl
}
