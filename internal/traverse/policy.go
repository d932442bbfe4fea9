package traverse

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agentic-research/hydronet/internal/network"
)

// MainstemPolicy reports whether contributor a dominates contributor b when
// following the upstream mainstem. It must be a strict total order over
// distinct segments.
type MainstemPolicy func(a, b *network.Segment) bool

// ByOrderAreaID prefers the greatest stream order, then the greatest
// catchment area, then the lowest identifier.
func ByOrderAreaID(a, b *network.Segment) bool {
	if a.StreamOrder != b.StreamOrder {
		return a.StreamOrder > b.StreamOrder
	}
	if a.Area != b.Area {
		return a.Area > b.Area
	}
	return a.ID < b.ID
}

// ByAreaOrderID prefers the greatest catchment area, then the greatest
// stream order, then the lowest identifier.
func ByAreaOrderID(a, b *network.Segment) bool {
	if a.Area != b.Area {
		return a.Area > b.Area
	}
	if a.StreamOrder != b.StreamOrder {
		return a.StreamOrder > b.StreamOrder
	}
	return a.ID < b.ID
}

var policies = map[string]MainstemPolicy{
	"order-area-id": ByOrderAreaID,
	"area-order-id": ByAreaOrderID,
}

// DefaultPolicyName names the policy used when none is configured.
const DefaultPolicyName = "order-area-id"

// PolicyByName looks up a named mainstem policy.
func PolicyByName(name string) (MainstemPolicy, error) {
	if name == "" {
		name = DefaultPolicyName
	}
	p, ok := policies[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown mainstem policy %q (want one of %s)", name, strings.Join(PolicyNames(), ", "))
	}
	return p, nil
}

// PolicyNames lists the registered policy names.
func PolicyNames() []string {
	names := make([]string, 0, len(policies))
	for k := range policies {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// dominant picks the contributor the policy ranks first.
func dominant(n *network.Network, cands []uint32, better MainstemPolicy) (uint32, bool) {
	if len(cands) == 0 {
		return 0, false
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if better(n.At(c), n.At(best)) {
			best = c
		}
	}
	return best, true
}
