package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Namespace prefixes every analytics cache key.
const Namespace = "analytics"

// Key derives a deterministic cache key for an operation and its parameter
// set. The operation, organization and facet (metric type or distribution
// field, when the operation has one) stay visible in the key so pattern
// invalidation can scope deletions precisely; the full parameter set is
// folded into a 128-bit digest to bound key length.
//
// Determinism: parameter keys are sorted before serialization, so maps built
// in any order hash identically. Structured values (filters, field lists)
// must be canonicalized by the caller before inclusion.
func Key(op string, organizationID int64, facet string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var canonical strings.Builder
	canonical.WriteString(op)
	fmt.Fprintf(&canonical, ":org=%d", organizationID)
	for _, name := range names {
		canonical.WriteByte(':')
		canonical.WriteString(name)
		canonical.WriteByte('=')
		canonical.WriteString(params[name])
	}

	sum := sha256.Sum256([]byte(canonical.String()))
	digest := hex.EncodeToString(sum[:16])

	if facet != "" {
		return fmt.Sprintf("%s:%s:org=%d:%s:%s", Namespace, op, organizationID, facet, digest)
	}
	return fmt.Sprintf("%s:%s:org=%d:%s", Namespace, op, organizationID, digest)
}

// OpPattern builds a glob matching every cached entry of one operation for an
// organization, e.g. analytics:dashboard:org=5:*.
func OpPattern(op string, organizationID int64) string {
	return fmt.Sprintf("%s:%s:org=%d:*", Namespace, op, organizationID)
}

// FacetPattern builds a glob matching one facet of one operation, e.g.
// analytics:distribution:org=5:status:*. An op of "*" spans every operation
// caching that facet.
func FacetPattern(op string, organizationID int64, facet string) string {
	return fmt.Sprintf("%s:%s:org=%d:%s:*", Namespace, op, organizationID, facet)
}

// OrgPattern builds a glob matching every analytics entry for an
// organization.
func OrgPattern(organizationID int64) string {
	return fmt.Sprintf("%s:*:org=%d:*", Namespace, organizationID)
}
