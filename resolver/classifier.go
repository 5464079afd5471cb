package resolver

import (
	"net"

	"github.com/miekg/dns"
)

// typeA6 is the deprecated A6 RR type code (RFC 2874); miekg/dns does not
// export a constant for it.
const typeA6 uint16 = 38

type valueKind int

const (
	literalValue valueKind = iota
	aliasValue
)

// classifiedValue is the result of classifying a raw stored value: either a
// validated address literal or a name requiring further resolution.
type classifiedValue struct {
	kind  valueKind
	ip    net.IP
	alias string
}

// classify decides whether the raw stored value is an address literal or an
// alias and, on a literal, validates address-family agreement with the
// requested record type. Deterministic, no I/O.
//
// A value that does not parse as an IP literal is an alias, not an error.
// IPv6 literals are valid for both AAAA and the deprecated A6 type.
func classify(rawValue string, qType uint16) (classifiedValue, error) {
	ip := net.ParseIP(rawValue)
	if ip == nil {
		return classifiedValue{kind: aliasValue, alias: rawValue}, nil
	}

	if ip4 := ip.To4(); ip4 != nil {
		if qType == dns.TypeA {
			return classifiedValue{kind: literalValue, ip: ip4}, nil
		}

		return classifiedValue{}, ErrMismatchedRecordType
	}

	if qType == dns.TypeAAAA || qType == typeA6 {
		return classifiedValue{kind: literalValue, ip: ip}, nil
	}

	return classifiedValue{}, ErrMismatchedRecordType
}
