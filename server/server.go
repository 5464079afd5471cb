package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sqldns/sqldns/config"
	"github.com/sqldns/sqldns/log"
	"github.com/sqldns/sqldns/metrics"
	"github.com/sqldns/sqldns/model"
	"github.com/sqldns/sqldns/resolver"
	"github.com/sqldns/sqldns/store"
	"github.com/sqldns/sqldns/util"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

// Server controls the DNS and HTTP endpoints
type Server struct {
	dnsServers    []*dns.Server
	queryResolver resolver.Resolver
	cfg           *config.Config
	httpMux       *chi.Mux
}

func logger() *logrus.Entry {
	return log.PrefixedLog("server")
}

// NewServer creates a new server instance with the passed config
func NewServer(cfg *config.Config) (*Server, error) {
	address := fmt.Sprintf(":%d", cfg.Port)

	dnsServers, err := createServers(address)
	if err != nil {
		return nil, fmt.Errorf("server creation failed: %w", err)
	}

	gateway, err := store.NewDatabaseGateway(cfg.Dynamic.Database, cfg.Dynamic.LookupQuery)
	if err != nil {
		return nil, fmt.Errorf("store gateway creation failed: %w", err)
	}

	router := chi.NewRouter()

	if cfg.Prometheus.Enable {
		metrics.Start(router, cfg.Prometheus)
	}

	server := &Server{
		dnsServers:    dnsServers,
		queryResolver: createQueryResolver(cfg, gateway),
		cfg:           cfg,
		httpMux:       router,
	}

	server.printConfiguration()
	server.registerDNSHandlers()

	return server, nil
}

func createServers(address string) ([]*dns.Server, error) {
	var mErr *multierror.Error

	servers := []*dns.Server{
		createUDPServer(address),
		createTCPServer(address),
	}

	for _, server := range servers {
		if server.Addr == "" {
			mErr = multierror.Append(mErr, fmt.Errorf("wrong address for %s server", server.Net))
		}
	}

	return servers, mErr.ErrorOrNil()
}

func createUDPServer(address string) *dns.Server {
	return &dns.Server{
		Addr:    address,
		Net:     "udp",
		Handler: dns.NewServeMux(),
		NotifyStartedFunc: func() {
			logger().Infof("udp server is up and running on address %s", address)
		},
		UDPSize: 65535,
	}
}

func createTCPServer(address string) *dns.Server {
	return &dns.Server{
		Addr:    address,
		Net:     "tcp",
		Handler: dns.NewServeMux(),
		NotifyStartedFunc: func() {
			logger().Infof("tcp server is up and running on address %s", address)
		},
	}
}

// createQueryResolver composes the resolver chain:
// hosts file -> dynamic -> cache -> network client, preserving this order
func createQueryResolver(cfg *config.Config, gateway store.Gateway) resolver.Resolver {
	upstreamResolver := resolver.NewUpstreamResolver(cfg.Upstream)

	dynamicResolver := resolver.NewDynamicResolver(cfg.Dynamic, gateway,
		resolver.NewDelegationClient(upstreamResolver))

	return resolver.Chain(
		resolver.NewMetricsResolver(cfg.Prometheus),
		resolver.NewHostsFileResolver(cfg.HostsFile),
		dynamicResolver,
		resolver.NewCachingResolver(cfg.Caching),
		upstreamResolver,
	)
}

func (s *Server) registerDNSHandlers() {
	for _, server := range s.dnsServers {
		handler := server.Handler.(*dns.ServeMux)
		handler.HandleFunc(".", s.OnRequest)
		handler.HandleFunc("healthcheck.sqldns", s.OnHealthCheck)
	}
}

func (s *Server) printConfiguration() {
	logger().Info("current configuration:")

	res := s.queryResolver
	for res != nil {
		logger().Infof("-> resolver: '%s'", resolver.Name(res))

		for _, c := range res.Configuration() {
			logger().Infof("     %s", c)
		}

		if c, ok := res.(resolver.ChainedResolver); ok {
			res = c.GetNext()
		} else {
			break
		}
	}

	logger().Infof("- DNS listening on port: %d", s.cfg.Port)

	if s.cfg.HTTPPort > 0 {
		logger().Infof("- HTTP listening on port: %d", s.cfg.HTTPPort)
	}
}

// Start starts the server
func (s *Server) Start(errCh chan<- error) {
	logger().Info("Starting server")

	for _, srv := range s.dnsServers {
		srv := srv

		go func() {
			if err := srv.ListenAndServe(); err != nil {
				errCh <- fmt.Errorf("start %s listener failed: %w", srv.Net, err)
			}
		}()
	}

	if s.cfg.HTTPPort > 0 {
		go func() {
			address := fmt.Sprintf(":%d", s.cfg.HTTPPort)
			logger().Infof("http server is up and running on address %s", address)

			if err := http.ListenAndServe(address, s.httpMux); err != nil {
				errCh <- fmt.Errorf("start http listener failed: %w", err)
			}
		}()
	}
}

// Stop stops the server
func (s *Server) Stop() error {
	logger().Info("Stopping server")

	for _, server := range s.dnsServers {
		if err := server.Shutdown(); err != nil {
			return fmt.Errorf("stop %s listener failed: %w", server.Net, err)
		}
	}

	return nil
}

func newRequest(clientIP net.IP, protocol model.RequestProtocol, request *dns.Msg) *model.Request {
	return &model.Request{
		ClientIP: clientIP,
		Protocol: protocol,
		Req:      request,
		Log: log.Log().WithFields(logrus.Fields{
			"req_id":    uuid.New().String(),
			"question":  util.QuestionToString(request.Question),
			"client_ip": clientIP,
		}),
		RequestTS: time.Now(),
	}
}

// OnRequest will be executed if a new DNS request is received
func (s *Server) OnRequest(w dns.ResponseWriter, request *dns.Msg) {
	logger().Debug("new request")

	if len(request.Question) == 0 {
		m := new(dns.Msg)
		m.SetRcode(request, dns.RcodeFormatError)
		util.LogOnError("can't write message: ", w.WriteMsg(m))

		return
	}

	clientIP, protocol := resolveClientIPAndProtocol(w.RemoteAddr())
	r := newRequest(clientIP, protocol, request)

	response, err := s.queryResolver.Resolve(context.Background(), r)
	if err != nil {
		logger().Error("error on processing request:", err)

		m := new(dns.Msg)
		m.SetRcode(request, dns.RcodeServerFailure)
		util.LogOnError("can't write message: ", w.WriteMsg(m))

		return
	}

	response.Res.MsgHdr.RecursionAvailable = request.MsgHdr.RecursionDesired

	// truncate if necessary
	response.Res.Truncate(getMaxResponseSize(w.LocalAddr().Network(), request))

	// enable compression
	response.Res.Compress = true

	util.LogOnError("can't write message: ", w.WriteMsg(response.Res))
}

// returns EDNS UDP size or if not present, 512 for UDP and 64K for TCP
func getMaxResponseSize(network string, request *dns.Msg) int {
	edns := request.IsEdns0()
	if edns != nil && edns.UDPSize() > 0 {
		return int(edns.UDPSize())
	}

	if strings.HasPrefix(network, "tcp") {
		return dns.MaxMsgSize
	}

	return dns.MinMsgSize
}

// OnHealthCheck handler for health check. Returns OK code without delegating to the resolver chain
func (s *Server) OnHealthCheck(w dns.ResponseWriter, request *dns.Msg) {
	resp := new(dns.Msg)
	resp.SetReply(request)
	resp.Rcode = dns.RcodeSuccess

	util.LogOnError("can't write message: ", w.WriteMsg(resp))
}

func resolveClientIPAndProtocol(addr net.Addr) (ip net.IP, protocol model.RequestProtocol) {
	if t, ok := addr.(*net.UDPAddr); ok {
		return t.IP, model.RequestProtocolUDP
	} else if t, ok := addr.(*net.TCPAddr); ok {
		return t.IP, model.RequestProtocolTCP
	}

	return nil, model.RequestProtocolUDP
}
