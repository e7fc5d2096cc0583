package conversion

import (
	"fmt"
	"strings"
	"unicode"

	"qcalab/domain/qca"
	"qcalab/internal"
)

// Selector turns coded themes into named QCA variables using a SelectionPolicy
type Selector struct {
	policy     SelectionPolicy
	outcomeTag string
	logger     *internal.Logger
}

// NewSelector creates a selector; a nil policy means CoreCategoryPolicy
func NewSelector(policy SelectionPolicy, logger *internal.Logger) *Selector {
	if policy == nil {
		policy = CoreCategoryPolicy{}
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Selector{
		policy:     policy,
		outcomeTag: qca.DefaultOutcomeTag,
		logger:     logger.With("selector"),
	}
}

// Policy returns the active selection policy
func (s *Selector) Policy() SelectionPolicy {
	return s.policy
}

// Select partitions codes into condition and outcome variables. It fails with
// ErrInsufficientData instead of returning a degenerate selection.
func (s *Selector) Select(codes []qca.Code, cases []qca.Case) (conditions, outcomes []qca.Variable, err error) {
	if err := qca.ValidateCodes(codes); err != nil {
		return nil, nil, err
	}

	condCodes, outCodes := s.policy.Partition(codes)
	if len(condCodes) < qca.MinConditions || len(outCodes) < qca.MinOutcomes || len(cases) < qca.MinCases {
		return nil, nil, qca.NewInsufficientDataError(len(condCodes), len(outCodes), len(cases))
	}

	for _, code := range condCodes {
		conditions = append(conditions, qca.Variable{
			Name:        VariableName(code.Name),
			Description: code.Description,
			Source:      code.Name,
			Role:        qca.RoleCondition,
		})
	}
	for _, code := range outCodes {
		outcomes = append(outcomes, qca.Variable{
			Name:        s.outcomeTag + VariableName(code.Name),
			Description: code.Description,
			Source:      code.Name,
			Role:        qca.RoleOutcome,
		})
	}

	if err := checkVariableNames(conditions, outcomes); err != nil {
		return nil, nil, err
	}

	s.logger.Info("[Selector] %s policy: %d conditions, %d outcomes from %d codes",
		s.policy.Name(), len(conditions), len(outcomes), len(codes))
	return conditions, outcomes, nil
}

// checkVariableNames rejects codes whose sanitized names are empty or collide
func checkVariableNames(conditions, outcomes []qca.Variable) error {
	sources := make(map[string]string, len(conditions)+len(outcomes))
	for _, v := range append(append([]qca.Variable{}, conditions...), outcomes...) {
		if v.Name == "" || v.Name == qca.DefaultOutcomeTag {
			return fmt.Errorf("%w: code %q has no usable characters for a variable name", qca.ErrInvalidCode, v.Source)
		}
		if other, dup := sources[v.Name]; dup {
			return fmt.Errorf("%w: codes %q and %q both map to variable %q", qca.ErrInvalidCode, other, v.Source, v.Name)
		}
		sources[v.Name] = v.Source
	}
	return nil
}

// VariableName maps a code name onto a formula-safe identifier: letters,
// digits and underscores, with every other rune run collapsed to "_".
func VariableName(codeName string) string {
	var sb strings.Builder
	pendingSep := false
	for _, r := range strings.TrimSpace(codeName) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			if pendingSep && sb.Len() > 0 {
				sb.WriteByte('_')
			}
			pendingSep = false
			sb.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return sb.String()
}
