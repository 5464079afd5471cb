package resolver

import (
	"context"

	"github.com/sqldns/sqldns/config"
	. "github.com/sqldns/sqldns/helpertest"
	"github.com/sqldns/sqldns/model"

	"github.com/miekg/dns"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/mock"
)

var _ = Describe("HostsFileResolver", func() {
	var (
		sut ChainedResolver
		m   *mockResolver
		cfg config.HostsFileConfig

		ctx context.Context
	)

	hostsData := `# static overrides
127.0.0.1       localhost
203.0.113.9     printer.lan printer # office printer
2001:db8::9     printer6.lan
malformed line without ip
`

	BeforeEach(func() {
		ctx = context.Background()

		cfg = config.HostsFileConfig{
			Filepath: TempFile(hostsData).Name(),
			TTL:      600,
		}

		m = &mockResolver{}
		m.On("Resolve", mock.Anything, mock.Anything).
			Return(&model.Response{Res: new(dns.Msg), RType: model.ResponseTypeRESOLVED}, nil)
	})

	JustBeforeEach(func() {
		sut = NewHostsFileResolver(cfg)
		sut.Next(m)
	})

	When("a hostname from the file is queried", func() {
		It("should answer A queries with the configured TTL", func() {
			Expect(sut.Resolve(ctx, newRequest("printer.lan.", A))).
				Should(
					SatisfyAll(
						HaveResponseType(model.ResponseTypeHOSTSFILE),
						HaveReason("HOSTS FILE"),
						WithTransform(ToAnswer, SatisfyAll(
							BeDNSRecord("printer.lan.", A, "203.0.113.9"),
							HaveTTL(BeNumerically("==", 600)),
						)),
					))

			m.AssertNotCalled(GinkgoT(), "Resolve", mock.Anything, mock.Anything)
		})

		It("should answer AAAA queries for IPv6 entries", func() {
			Expect(sut.Resolve(ctx, newRequest("printer6.lan.", AAAA))).
				Should(
					SatisfyAll(
						HaveResponseType(model.ResponseTypeHOSTSFILE),
						WithTransform(ToAnswer,
							BeDNSRecord("printer6.lan.", AAAA, "2001:db8::9")),
					))
		})

		It("should match aliases as well", func() {
			Expect(sut.Resolve(ctx, newRequest("printer.", A))).
				Should(HaveResponseType(model.ResponseTypeHOSTSFILE))
		})
	})

	When("the address family does not match the query type", func() {
		It("should delegate AAAA queries for IPv4 entries to the next resolver", func() {
			Expect(sut.Resolve(ctx, newRequest("printer.lan.", AAAA))).
				Should(HaveResponseType(model.ResponseTypeRESOLVED))

			m.AssertExpectations(GinkgoT())
		})
	})

	When("the hostname is not in the file", func() {
		It("should delegate to the next resolver", func() {
			Expect(sut.Resolve(ctx, newRequest("unknown.lan.", A))).
				Should(HaveResponseType(model.ResponseTypeRESOLVED))

			m.AssertExpectations(GinkgoT())
		})
	})

	When("no hosts file is configured", func() {
		BeforeEach(func() {
			cfg.Filepath = ""
		})
		It("should delegate every query to the next resolver", func() {
			Expect(sut.Resolve(ctx, newRequest("printer.lan.", A))).
				Should(HaveResponseType(model.ResponseTypeRESOLVED))

			Expect(sut.Configuration()).Should(ContainElement("deactivated"))
		})
	})

	When("the configured file does not exist", func() {
		BeforeEach(func() {
			cfg.Filepath = "/nonexistent/hosts"
		})
		It("should deactivate itself and delegate to the next resolver", func() {
			Expect(sut.Resolve(ctx, newRequest("printer.lan.", A))).
				Should(HaveResponseType(model.ResponseTypeRESOLVED))

			Expect(sut.Configuration()).Should(ContainElement("deactivated"))
		})
	})
})
