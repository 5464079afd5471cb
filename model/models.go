package model

import (
	"net"
	"time"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

// ResponseType represents the component that produced a response
type ResponseType int

const (
	// ResponseTypeRESOLVED the response was resolved by the external upstream resolver
	ResponseTypeRESOLVED ResponseType = iota

	// ResponseTypeCACHED the response was served from the response cache
	ResponseTypeCACHED

	// ResponseTypeHOSTSFILE the response was built from a hosts file entry
	ResponseTypeHOSTSFILE

	// ResponseTypeDYNAMIC the response was computed from the backing database
	ResponseTypeDYNAMIC
)

func (r ResponseType) String() string {
	names := [...]string{
		"RESOLVED",
		"CACHED",
		"HOSTSFILE",
		"DYNAMIC",
	}

	return names[r]
}

// Response represents the response of a DNS query
type Response struct {
	Res    *dns.Msg
	Reason string
	RType  ResponseType
}

// RequestProtocol represents the server protocol
type RequestProtocol uint8

const (
	// RequestProtocolUDP the request was received over UDP
	RequestProtocolUDP RequestProtocol = iota

	// RequestProtocolTCP the request was received over TCP
	RequestProtocolTCP
)

func (r RequestProtocol) String() string {
	names := [...]string{"UDP", "TCP"}

	return names[r]
}

// Request represents a client's DNS request
type Request struct {
	ClientIP  net.IP
	Protocol  RequestProtocol
	Req       *dns.Msg
	Log       *logrus.Entry
	RequestTS time.Time
}
