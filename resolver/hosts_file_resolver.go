package resolver

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/sqldns/sqldns/config"
	"github.com/sqldns/sqldns/model"
	"github.com/sqldns/sqldns/util"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

const hostsFileResolverLogger = "hosts_file_resolver"

type host struct {
	ip       net.IP
	hostname string
	aliases  []string
}

// HostsFileResolver answers A/AAAA queries from an /etc/hosts-style file
// and sits in front of the dynamic resolver in the chain
type HostsFileResolver struct {
	NextResolver
	hostsFilePath string
	ttl           uint32
	hosts         []host
}

// NewHostsFileResolver creates a new resolver instance
func NewHostsFileResolver(cfg config.HostsFileConfig) ChainedResolver {
	r := &HostsFileResolver{
		hostsFilePath: cfg.Filepath,
		ttl:           cfg.TTL,
	}

	if cfg.Filepath != "" {
		if err := r.parseHostsFile(); err != nil {
			logger(hostsFileResolverLogger).Warnf("cannot parse hosts file %s, resolver deactivated: %v",
				cfg.Filepath, err)

			r.hosts = nil
		}
	}

	return r
}

func (r *HostsFileResolver) parseHostsFile() error {
	f, err := os.Open(r.hostsFilePath)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.IndexRune(line, '#'); idx >= 0 {
			line = line[:idx]
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		ip := net.ParseIP(fields[0])
		if ip == nil {
			continue
		}

		r.hosts = append(r.hosts, host{
			ip:       ip,
			hostname: strings.ToLower(fields[1]),
			aliases:  toLower(fields[2:]),
		})
	}

	return scanner.Err()
}

func toLower(in []string) (result []string) {
	for _, s := range in {
		result = append(result, strings.ToLower(s))
	}

	return
}

func isSupportedType(ip net.IP, question dns.Question) bool {
	return (ip.To4() != nil && question.Qtype == dns.TypeA) ||
		(ip.To4() == nil && question.Qtype == dns.TypeAAAA)
}

// Configuration returns the current resolver configuration
func (r *HostsFileResolver) Configuration() (result []string) {
	if r.hostsFilePath != "" && len(r.hosts) != 0 {
		result = append(result, fmt.Sprintf("hosts file path: %s", r.hostsFilePath))
		result = append(result, fmt.Sprintf("hosts TTL: %d", r.ttl))
	} else {
		result = []string{"deactivated"}
	}

	return
}

// Resolve answers the query from the hosts file or delegates to the next resolver
func (r *HostsFileResolver) Resolve(ctx context.Context, request *model.Request) (*model.Response, error) {
	logger := withPrefix(request.Log, hostsFileResolverLogger)

	if len(r.hosts) != 0 {
		question := request.Req.Question[0]
		domain := util.ExtractDomain(question)

		var answer []dns.RR

		for _, h := range r.hosts {
			answer = append(answer, r.processHostEntry(h, domain, question)...)
		}

		if len(answer) > 0 {
			logger.WithFields(logrus.Fields{
				"answer": util.AnswerToString(answer),
				"domain": domain,
			}).Debugf("returning hosts file entry")

			return model.NewResponseWithAnswers(request, answer, model.ResponseTypeHOSTSFILE, "HOSTS FILE"), nil
		}
	}

	logger.WithField("resolver", Name(r.next)).Trace("go to next resolver")

	return r.next.Resolve(ctx, request)
}

func (r *HostsFileResolver) processHostEntry(h host, domain string, question dns.Question) (result []dns.RR) {
	if !isSupportedType(h.ip, question) {
		return
	}

	if h.hostname == domain {
		rr, _ := util.CreateAnswerFromQuestion(question, h.ip, r.ttl)
		result = append(result, rr)
	}

	for _, alias := range h.aliases {
		if alias == domain {
			rr, _ := util.CreateAnswerFromQuestion(question, h.ip, r.ttl)
			result = append(result, rr)
		}
	}

	return
}
