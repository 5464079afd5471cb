package resolver

import (
	"context"
	"net"
	"strconv"
	"strings"

	"github.com/sqldns/sqldns/config"
	"github.com/sqldns/sqldns/model"

	"github.com/miekg/dns"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
)

type mockResolver struct {
	mock.Mock
	NextResolver
}

func (r *mockResolver) Configuration() (result []string) {
	return
}

func (r *mockResolver) Resolve(ctx context.Context, req *model.Request) (*model.Response, error) {
	args := r.Called(ctx, req)

	if resp, ok := args.Get(0).(*model.Response); ok {
		return resp, args.Error(1)
	}

	return nil, args.Error(1)
}

type mockGateway struct {
	mock.Mock
}

func (g *mockGateway) Lookup(ctx context.Context, name string) (string, bool, error) {
	args := g.Called(ctx, name)

	return args.String(0), args.Bool(1), args.Error(2)
}

// TestUDPUpstream creates a local UDP upstream whose answers are computed by the passed function
func TestUDPUpstream(fn func(request *dns.Msg) (response *dns.Msg)) config.Upstream {
	a, err := net.ResolveUDPAddr("udp4", ":0")
	if err != nil {
		log.Fatal("can't resolve address: ", err)
	}

	ln, err := net.ListenUDP("udp4", a)
	if err != nil {
		log.Fatal("can't create connection: ", err)
	}

	ladr := ln.LocalAddr().String()
	host := strings.Split(ladr, ":")[0]

	p, err := strconv.Atoi(strings.Split(ladr, ":")[1])
	if err != nil {
		log.Fatal("can't convert port: ", err)
	}

	port := uint16(p)

	go func() {
		for {
			buffer := make([]byte, 1024)

			n, addr, err := ln.ReadFromUDP(buffer)
			if err != nil {
				return
			}

			msg := new(dns.Msg)
			if err := msg.Unpack(buffer[:n]); err != nil {
				log.Fatal("can't deserialize message: ", err)
			}

			response := fn(msg)

			// SetReply resets the return code, keep what fn decided
			rcode := response.Rcode
			response.SetReply(msg)
			response.Rcode = rcode

			b, err := response.Pack()
			if err != nil {
				log.Fatal("can't serialize message: ", err)
			}

			if _, err := ln.WriteToUDP(b, addr); err != nil {
				log.Fatal("can't write to UDP: ", err)
			}
		}
	}()

	return config.Upstream{Host: host, Port: port}
}
