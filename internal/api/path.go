package api

import (
	"strings"

	"github.com/usageledger/ledgerd/internal/domain"
)

func pathSuffix(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}

func splitOwnerService(s string) (domain.Address, domain.ServiceID, bool) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return domain.Address(parts[0]), domain.ServiceID(parts[1]), true
}

func splitSettlementPath(s string) (domain.Address, domain.ServiceID, string, bool) {
	parts := strings.SplitN(s, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", false
	}
	return domain.Address(parts[0]), domain.ServiceID(parts[1]), parts[2], true
}
