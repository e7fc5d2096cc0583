package conversion

import (
	"time"

	"qcalab/domain/qca"
	"qcalab/internal"
)

// Conversion is the engine input produced from coded interviews
type Conversion struct {
	Data       qca.Data       `json:"data"`
	Conditions []qca.Variable `json:"conditions"`
	Outcomes   []qca.Variable `json:"outcomes"`
	Report     BuildReport    `json:"report"`
}

// Converter chains the Selector and the MatrixBuilder
type Converter struct {
	selector *Selector
	builder  *MatrixBuilder
	logger   *internal.Logger
}

// NewConverter creates a converter for the given policy
func NewConverter(policy SelectionPolicy, logger *internal.Logger) *Converter {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Converter{
		selector: NewSelector(policy, logger),
		builder:  NewMatrixBuilder(logger),
		logger:   logger.With("conversion"),
	}
}

// Convert selects variables and builds the case matrix
func (c *Converter) Convert(codes []qca.Code, cases []qca.Case) (*Conversion, error) {
	startTime := time.Now()

	conditions, outcomes, err := c.selector.Select(codes, cases)
	if err != nil {
		return nil, err
	}

	vars := make([]qca.Variable, 0, len(conditions)+len(outcomes))
	vars = append(vars, conditions...)
	vars = append(vars, outcomes...)

	matrix, report, err := c.builder.Build(cases, codes, vars)
	if err != nil {
		return nil, err
	}

	// Calibration is only known after building
	calibrated := report.Variables
	conditions = calibrated[:len(conditions)]
	outcomes = calibrated[len(conditions):]

	data := qca.Data{
		CaseMatrix: matrix,
		Conditions: qca.VariableNames(conditions),
		Outcomes:   qca.VariableNames(outcomes),
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}

	c.logger.Info("[Conversion] %d codes -> %d conditions, %d outcomes over %d cases in %.2fms",
		len(codes), len(conditions), len(outcomes), len(cases),
		float64(time.Since(startTime).Nanoseconds())/1e6)

	return &Conversion{
		Data:       data,
		Conditions: conditions,
		Outcomes:   outcomes,
		Report:     report,
	}, nil
}
