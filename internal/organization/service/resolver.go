package service

import (
	"net"

	"github.com/smallbiznis/tenantly/internal/organization/domain"
)

// NewTXTResolver returns the system DNS resolver.
func NewTXTResolver() domain.TXTResolver {
	return net.DefaultResolver
}
