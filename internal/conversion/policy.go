package conversion

import (
	"fmt"
	"sort"
	"strings"

	"qcalab/domain/qca"
)

// Policy names accepted by NewPolicy
const (
	PolicyCoreCategory = "core_category"
	PolicyFrequency    = "frequency"
	PolicyExplicit     = "explicit"
)

// DefaultCoreMarkers are the name fragments that flag a core category
var DefaultCoreMarkers = []string{"core"}

// SelectionPolicy partitions codes into conditions and outcomes. Both
// returned slices keep the input order of the codes.
type SelectionPolicy interface {
	Name() string
	Partition(codes []qca.Code) (conditions, outcomes []qca.Code)
}

// CoreCategoryPolicy makes level-0 codes and codes whose name carries a core
// marker outcomes. Without any such code it falls back to FrequencyPolicy.
type CoreCategoryPolicy struct {
	Markers []string
}

func (p CoreCategoryPolicy) Name() string { return PolicyCoreCategory }

func (p CoreCategoryPolicy) Partition(codes []qca.Code) (conditions, outcomes []qca.Code) {
	markers := p.Markers
	if markers == nil {
		markers = DefaultCoreMarkers
	}
	for _, code := range codes {
		if code.HierarchyLevel == 0 || hasMarker(code.Name, markers) {
			outcomes = append(outcomes, code)
		} else {
			conditions = append(conditions, code)
		}
	}
	if len(outcomes) == 0 {
		return FrequencyPolicy{}.Partition(codes)
	}
	return conditions, outcomes
}

func hasMarker(name string, markers []string) bool {
	lower := strings.ToLower(name)
	for _, m := range markers {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// FrequencyPolicy makes the most frequent half of the codes outcomes
// (at least one). Ties keep input order.
type FrequencyPolicy struct{}

func (FrequencyPolicy) Name() string { return PolicyFrequency }

func (FrequencyPolicy) Partition(codes []qca.Code) (conditions, outcomes []qca.Code) {
	if len(codes) == 0 {
		return nil, nil
	}
	order := make([]int, len(codes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return codes[order[a]].Frequency > codes[order[b]].Frequency
	})

	take := len(codes) / 2
	if take == 0 {
		take = 1
	}
	selected := make(map[int]bool, take)
	for _, idx := range order[:take] {
		selected[idx] = true
	}
	for i, code := range codes {
		if selected[i] {
			outcomes = append(outcomes, code)
		} else {
			conditions = append(conditions, code)
		}
	}
	return conditions, outcomes
}

// ExplicitPolicy takes outcome code names from the caller
type ExplicitPolicy struct {
	Outcomes []string
}

func (p ExplicitPolicy) Name() string { return PolicyExplicit }

func (p ExplicitPolicy) Partition(codes []qca.Code) (conditions, outcomes []qca.Code) {
	wanted := make(map[string]bool, len(p.Outcomes))
	for _, name := range p.Outcomes {
		wanted[name] = true
	}
	for _, code := range codes {
		if wanted[code.Name] {
			outcomes = append(outcomes, code)
		} else {
			conditions = append(conditions, code)
		}
	}
	return conditions, outcomes
}

// NewPolicy builds a policy by name. An empty name selects CoreCategoryPolicy.
func NewPolicy(name string, markers, outcomes []string) (SelectionPolicy, error) {
	switch name {
	case "", PolicyCoreCategory:
		return CoreCategoryPolicy{Markers: markers}, nil
	case PolicyFrequency:
		return FrequencyPolicy{}, nil
	case PolicyExplicit:
		if len(outcomes) == 0 {
			return nil, qca.NewConfigurationError("selection.outcomes", "required by the explicit policy")
		}
		return ExplicitPolicy{Outcomes: outcomes}, nil
	}
	return nil, qca.NewConfigurationError("selection.policy", fmt.Sprintf("unknown policy %q", name))
}
