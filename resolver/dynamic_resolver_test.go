package resolver

import (
	"context"
	"errors"

	"github.com/sqldns/sqldns/config"
	"github.com/sqldns/sqldns/evt"
	. "github.com/sqldns/sqldns/helpertest"
	"github.com/sqldns/sqldns/model"

	"github.com/miekg/dns"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/mock"
)

var _ = Describe("DynamicResolver", func() {
	var (
		sut      ChainedResolver
		m        *mockResolver
		upstream *mockResolver
		gateway  *mockGateway
		cfg      config.DynamicConfig

		ctx context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()

		cfg = config.DynamicConfig{
			TTL:         300,
			Domains:     []string{"example.org"},
			LookupQuery: "SELECT address FROM dns WHERE domain = ?",
		}

		gateway = &mockGateway{}
		upstream = &mockResolver{}

		m = &mockResolver{}
		m.On("Resolve", mock.Anything, mock.Anything).
			Return(&model.Response{Res: new(dns.Msg), RType: model.ResponseTypeRESOLVED}, nil)
	})

	JustBeforeEach(func() {
		sut = NewDynamicResolver(cfg, gateway, NewDelegationClient(upstream))
		sut.Next(m)
	})

	Describe("Scope decision", func() {
		When("the query type is not an address type", func() {
			It("should delegate to the next resolver without consulting the store", func() {
				Expect(sut.Resolve(ctx, newRequest("host1.example.org.", TXT))).
					Should(HaveResponseType(model.ResponseTypeRESOLVED))

				m.AssertExpectations(GinkgoT())
				gateway.AssertNotCalled(GinkgoT(), "Lookup", mock.Anything, mock.Anything)
			})
		})

		When("the domain suffix is not allow-listed", func() {
			It("should delegate to the next resolver without consulting the store", func() {
				Expect(sut.Resolve(ctx, newRequest("host4.other.org.", A))).
					Should(HaveResponseType(model.ResponseTypeRESOLVED))

				m.AssertExpectations(GinkgoT())
				gateway.AssertNotCalled(GinkgoT(), "Lookup", mock.Anything, mock.Anything)
			})
		})

		When("only the first label differs from the allow-listed suffix", func() {
			It("should match on exactly one stripped label", func() {
				// two labels before the suffix are not supported by the match rule
				Expect(sut.Resolve(ctx, newRequest("a.b.example.org.", A))).
					Should(HaveResponseType(model.ResponseTypeRESOLVED))

				gateway.AssertNotCalled(GinkgoT(), "Lookup", mock.Anything, mock.Anything)
			})
		})
	})

	Describe("Resolving from the store", func() {
		When("the store has no row for the name", func() {
			BeforeEach(func() {
				gateway.On("Lookup", mock.Anything, "host1.example.org").Return("", false, nil)
			})
			It("should answer NXDOMAIN", func() {
				Expect(sut.Resolve(ctx, newRequest("host1.example.org.", A))).
					Should(
						SatisfyAll(
							HaveResponseType(model.ResponseTypeDYNAMIC),
							HaveReturnCode(dns.RcodeNameError),
						))

				m.AssertNotCalled(GinkgoT(), "Resolve", mock.Anything, mock.Anything)
			})
		})

		When("the stored value is an IPv4 literal and an A record is queried", func() {
			BeforeEach(func() {
				gateway.On("Lookup", mock.Anything, "host1.example.org").Return("203.0.113.5", true, nil)
			})
			It("should return one authority record with the configured TTL and no answers", func() {
				Expect(sut.Resolve(ctx, newRequest("host1.example.org.", A))).
					Should(
						SatisfyAll(
							HaveNoAnswer(),
							WithTransform(ToAuthority, SatisfyAll(
								HaveLen(1),
								BeDNSRecord("host1.example.org.", A, "203.0.113.5"),
								HaveTTL(BeNumerically("==", 300)),
							)),
							WithTransform(ToAdditional, BeEmpty()),
							HaveResponseType(model.ResponseTypeDYNAMIC),
							HaveReason("DYNAMIC"),
							HaveReturnCode(dns.RcodeSuccess),
						))

				m.AssertNotCalled(GinkgoT(), "Resolve", mock.Anything, mock.Anything)
				upstream.AssertNotCalled(GinkgoT(), "Resolve", mock.Anything, mock.Anything)
			})
		})

		When("the stored value is an IPv4 literal and an AAAA record is queried", func() {
			BeforeEach(func() {
				gateway.On("Lookup", mock.Anything, "host1.example.org").Return("203.0.113.5", true, nil)
			})
			It("should fail with a record type mismatch", func() {
				_, err := sut.Resolve(ctx, newRequest("host1.example.org.", AAAA))

				Expect(err).Should(MatchError(ErrMismatchedRecordType))
			})
		})

		When("the stored value is an IPv6 literal", func() {
			BeforeEach(func() {
				gateway.On("Lookup", mock.Anything, "host6.example.org").Return("2001:db8::68", true, nil)
			})
			It("should answer AAAA queries in the authority section", func() {
				Expect(sut.Resolve(ctx, newRequest("host6.example.org.", AAAA))).
					Should(
						SatisfyAll(
							HaveNoAnswer(),
							WithTransform(ToAuthority,
								BeDNSRecord("host6.example.org.", AAAA, "2001:db8::68")),
							HaveResponseType(model.ResponseTypeDYNAMIC),
						))
			})
			It("should answer A6 queries with the record type mirroring the question", func() {
				response, err := sut.Resolve(ctx, newRequest("host6.example.org.", A6))

				Expect(err).Should(Succeed())
				Expect(response.Res.Ns).Should(HaveLen(1))
				Expect(response.Res.Ns[0].Header().Rrtype).Should(Equal(typeA6))
			})
			It("should fail A queries with a record type mismatch", func() {
				_, err := sut.Resolve(ctx, newRequest("host6.example.org.", A))

				Expect(err).Should(MatchError(ErrMismatchedRecordType))
			})
		})

		When("the stored value is empty", func() {
			BeforeEach(func() {
				gateway.On("Lookup", mock.Anything, "host1.example.org").Return("", true, nil)
			})
			It("should answer NXDOMAIN", func() {
				Expect(sut.Resolve(ctx, newRequest("host1.example.org.", A))).
					Should(HaveReturnCode(dns.RcodeNameError))
			})
		})

		When("the store call fails", func() {
			cause := errors.New("connection refused")

			BeforeEach(func() {
				gateway.On("Lookup", mock.Anything, "host1.example.org").Return("", false, cause)
			})
			It("should surface a store failure with the cause attached", func() {
				_, err := sut.Resolve(ctx, newRequest("host1.example.org.", A))

				var storeErr *StoreError

				Expect(errors.As(err, &storeErr)).Should(BeTrue())
				Expect(storeErr.Cause).Should(MatchError(cause))
			})
		})
	})

	Describe("Delegating aliases upstream", func() {
		When("the stored value is another name", func() {
			BeforeEach(func() {
				gateway.On("Lookup", mock.Anything, "host2.example.org").Return("host3.example.org", true, nil)
			})

			It("should rewrite the query name and relay the upstream outcome unmodified", func() {
				upstreamResponse := &model.Response{
					Res:    new(dns.Msg),
					RType:  model.ResponseTypeRESOLVED,
					Reason: "RESOLVED (upstream)",
				}
				upstream.On("Resolve", mock.Anything, mock.Anything).Return(upstreamResponse, nil)

				request := newRequest("host2.example.org.", A)

				response, err := sut.Resolve(ctx, request)

				Expect(err).Should(Succeed())
				Expect(response).Should(BeIdenticalTo(upstreamResponse))

				// the rewrite replaces the name and preserves type and class
				Expect(request.Req.Question[0].Name).Should(Equal("host3.example.org."))
				Expect(request.Req.Question[0].Qtype).Should(Equal(dns.TypeA))
				Expect(request.Req.Question[0].Qclass).Should(Equal(uint16(dns.ClassINET)))

				upstream.AssertExpectations(GinkgoT())
				m.AssertNotCalled(GinkgoT(), "Resolve", mock.Anything, mock.Anything)
			})

			It("should publish the delegated target on the event bus", func() {
				upstream.On("Resolve", mock.Anything, mock.Anything).
					Return(&model.Response{Res: new(dns.Msg), RType: model.ResponseTypeRESOLVED}, nil)

				var delegatedTarget string

				handler := func(target string) { delegatedTarget = target }
				Expect(evt.Bus().Subscribe(evt.DynamicQueryDelegated, handler)).Should(Succeed())
				DeferCleanup(func() {
					_ = evt.Bus().Unsubscribe(evt.DynamicQueryDelegated, handler)
				})

				_, err := sut.Resolve(ctx, newRequest("host2.example.org.", A))

				Expect(err).Should(Succeed())
				Expect(delegatedTarget).Should(Equal("host3.example.org"))
			})

			It("should propagate upstream failures as delegation failures", func() {
				cause := errors.New("upstream timeout")
				upstream.On("Resolve", mock.Anything, mock.Anything).Return(nil, cause)

				_, err := sut.Resolve(ctx, newRequest("host2.example.org.", A))

				var delegationErr *DelegationError

				Expect(errors.As(err, &delegationErr)).Should(BeTrue())
				Expect(delegationErr.Cause).Should(MatchError(cause))
			})
		})
	})
})
