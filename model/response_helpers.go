package model

import "github.com/miekg/dns"

// NewResponse creates a response message replying to the request
func NewResponse(request *Request, rtype ResponseType, reason string) *Response {
	response := new(dns.Msg)
	response.SetReply(request.Req)

	return &Response{
		Res:    response,
		RType:  rtype,
		Reason: reason,
	}
}

// NewResponseWithAnswers creates a response replying to the request with the passed answer records
func NewResponseWithAnswers(request *Request, answers []dns.RR, rtype ResponseType, reason string) *Response {
	response := new(dns.Msg)
	response.SetReply(request.Req)
	response.Answer = answers

	return &Response{
		Res:    response,
		RType:  rtype,
		Reason: reason,
	}
}

// NewResponseWithRcode creates a response with a specific return code
func NewResponseWithRcode(request *Request, rcode int, rtype ResponseType, reason string) *Response {
	response := new(dns.Msg)
	response.SetRcode(request.Req, rcode)

	return &Response{
		Res:    response,
		RType:  rtype,
		Reason: reason,
	}
}
