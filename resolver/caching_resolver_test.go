package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/sqldns/sqldns/config"
	. "github.com/sqldns/sqldns/helpertest"
	"github.com/sqldns/sqldns/model"
	"github.com/sqldns/sqldns/util"

	"github.com/miekg/dns"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/mock"
)

var _ = Describe("CachingResolver", func() {
	var (
		sut ChainedResolver
		m   *mockResolver
		cfg config.CachingConfig

		ctx context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		cfg = config.CachingConfig{MaxItemsCount: 128}
	})

	JustBeforeEach(func() {
		sut = NewCachingResolver(cfg)
	})

	expectNextAnswer := func(domain string, ttl uint32) {
		msg, err := util.NewMsgWithAnswer(domain, ttl, A, "203.0.113.17")
		Expect(err).Should(Succeed())

		m = &mockResolver{}
		m.On("Resolve", mock.Anything, mock.Anything).
			Return(&model.Response{Res: msg, RType: model.ResponseTypeRESOLVED, Reason: "RESOLVED"}, nil)
		sut.Next(m)
	}

	Describe("Caching of successful answers", func() {
		When("the same query arrives twice", func() {
			It("should ask the next resolver only once", func() {
				expectNextAnswer("example.com.", 300)

				By("first request, cache is empty", func() {
					Expect(sut.Resolve(ctx, newRequest("example.com.", A))).
						Should(
							SatisfyAll(
								HaveResponseType(model.ResponseTypeRESOLVED),
								WithTransform(ToAnswer,
									BeDNSRecord("example.com.", A, "203.0.113.17")),
							))
				})

				By("second request, served from cache", func() {
					Expect(sut.Resolve(ctx, newRequest("example.com.", A))).
						Should(
							SatisfyAll(
								HaveResponseType(model.ResponseTypeCACHED),
								HaveReason("CACHED"),
								WithTransform(ToAnswer, SatisfyAll(
									BeDNSRecord("example.com.", A, "203.0.113.17"),
									HaveTTL(BeNumerically("<=", 300)),
								)),
							))
				})

				m.AssertNumberOfCalls(GinkgoT(), "Resolve", 1)
			})
		})

		When("a minimum caching time is configured", func() {
			BeforeEach(func() {
				cfg.MinCachingTime = 600
			})
			It("should serve the cached answer with the raised TTL", func() {
				expectNextAnswer("example.com.", 60)

				_, err := sut.Resolve(ctx, newRequest("example.com.", A))
				Expect(err).Should(Succeed())

				Expect(sut.Resolve(ctx, newRequest("example.com.", A))).
					Should(
						SatisfyAll(
							HaveResponseType(model.ResponseTypeCACHED),
							WithTransform(ToAnswer,
								HaveTTL(BeNumerically("~", 600, 1))),
						))
			})
		})

		When("a maximum caching time is configured", func() {
			BeforeEach(func() {
				cfg.MaxCachingTime = 60
			})
			It("should serve the cached answer with the capped TTL", func() {
				expectNextAnswer("example.com.", 3600)

				_, err := sut.Resolve(ctx, newRequest("example.com.", A))
				Expect(err).Should(Succeed())

				Expect(sut.Resolve(ctx, newRequest("example.com.", A))).
					Should(
						SatisfyAll(
							HaveResponseType(model.ResponseTypeCACHED),
							WithTransform(ToAnswer,
								HaveTTL(BeNumerically("<=", 60))),
						))
			})
		})

		When("a cached entry has expired", func() {
			It("should ask the next resolver again", func() {
				// a zero TTL answer expires the moment it is stored
				expectNextAnswer("example.com.", 0)

				_, err := sut.Resolve(ctx, newRequest("example.com.", A))
				Expect(err).Should(Succeed())

				time.Sleep(2 * time.Millisecond)

				Expect(sut.Resolve(ctx, newRequest("example.com.", A))).
					Should(HaveResponseType(model.ResponseTypeRESOLVED))

				m.AssertNumberOfCalls(GinkgoT(), "Resolve", 2)
			})
		})
	})

	Describe("Configuration", func() {
		It("should report the current item count", func() {
			expectNextAnswer("example.com.", 300)

			Expect(sut.Configuration()).Should(ContainElement("cacheItemsCount = 0"))

			_, err := sut.Resolve(ctx, newRequest("example.com.", A))
			Expect(err).Should(Succeed())

			Expect(sut.Configuration()).Should(ContainElement("cacheItemsCount = 1"))
		})
	})

	Describe("Queries which bypass the cache", func() {
		When("the query type is not cacheable", func() {
			It("should always ask the next resolver", func() {
				expectNextAnswer("example.com.", 300)

				for i := 0; i < 2; i++ {
					Expect(sut.Resolve(ctx, newRequest("example.com.", MX))).
						Should(HaveResponseType(model.ResponseTypeRESOLVED))
				}

				m.AssertNumberOfCalls(GinkgoT(), "Resolve", 2)
			})
		})

		When("the next resolver answers NXDOMAIN", func() {
			It("should not cache the outcome", func() {
				m = &mockResolver{}
				m.On("Resolve", mock.Anything, mock.Anything).Return(
					model.NewResponseWithRcode(newRequest("example.com.", A),
						dns.RcodeNameError, model.ResponseTypeRESOLVED, "RESOLVED"), nil)
				sut.Next(m)

				for i := 0; i < 2; i++ {
					Expect(sut.Resolve(ctx, newRequest("example.com.", A))).
						Should(HaveReturnCode(dns.RcodeNameError))
				}

				m.AssertNumberOfCalls(GinkgoT(), "Resolve", 2)
			})
		})

		When("the next resolver fails", func() {
			It("should propagate the error and not cache anything", func() {
				cause := errors.New("upstream gone")

				m = &mockResolver{}
				m.On("Resolve", mock.Anything, mock.Anything).Return(nil, cause)
				sut.Next(m)

				for i := 0; i < 2; i++ {
					_, err := sut.Resolve(ctx, newRequest("example.com.", A))
					Expect(err).Should(MatchError(cause))
				}

				m.AssertNumberOfCalls(GinkgoT(), "Resolve", 2)
			})
		})
	})
})
