package qca

// Fixed methodological constants
const (
	// NecessityThreshold is the conventional bar for necessity and is not configurable.
	NecessityThreshold = 0.9

	MinConditions = 2
	MinOutcomes   = 1
	MinCases      = 3

	// HardMaxConditions caps MaxConditions regardless of configuration (2^20 rows).
	HardMaxConditions = 20

	NoSufficientConditions = "No sufficient conditions found"
)

// Analysis methods and calibration methods
const (
	MethodCrispSet     = "crisp_set"
	CalibrationBinary  = "binary"
	OutputStandard     = "standard"
	OutputMarkdown     = "markdown"
	OutputHTML         = "html"
	OutputXLSX         = "xlsx"
	DefaultOutcomeTag  = "outcome_"
	DefaultParallelism = 4
)

// Configuration holds the externally tunable knobs of an analysis run
type Configuration struct {
	DefaultAnalysisMethod          string  `json:"default_analysis_method" yaml:"default_analysis_method"`
	CalibrationMethod              string  `json:"calibration_method" yaml:"calibration_method"`
	TruthTableConsistencyThreshold float64 `json:"truth_table_consistency_threshold" yaml:"truth_table_consistency_threshold"`
	GenerateMinimization           bool    `json:"generate_minimization" yaml:"generate_minimization"`
	OutputFormat                   string  `json:"output_format" yaml:"output_format"`

	// TruthTableFrequencyThreshold is the minimum case count for a published row.
	// Rows with no cases are logical remainders even when it is 0.
	TruthTableFrequencyThreshold int `json:"truth_table_frequency_threshold" yaml:"truth_table_frequency_threshold"`

	// MaxConditions is checked before enumeration starts
	MaxConditions int `json:"max_conditions" yaml:"max_conditions"`
	// ReduceFormula adds a Quine-McCluskey reduction next to the enumerated formula
	ReduceFormula bool `json:"reduce_formula" yaml:"reduce_formula"`
	// Parallelism bounds concurrent per-outcome analysis; 1 means sequential
	Parallelism int `json:"parallelism" yaml:"parallelism"`
}

// DefaultConfiguration returns the standard crisp-set configuration
func DefaultConfiguration() Configuration {
	return Configuration{
		DefaultAnalysisMethod:          MethodCrispSet,
		CalibrationMethod:              CalibrationBinary,
		TruthTableConsistencyThreshold: 0.8,
		TruthTableFrequencyThreshold:   1,
		GenerateMinimization:           true,
		OutputFormat:                   OutputStandard,
		MaxConditions:                  12,
		ReduceFormula:                  false,
		Parallelism:                    DefaultParallelism,
	}
}

// Validate checks every knob and reports the first invalid one
func (c Configuration) Validate() error {
	if c.DefaultAnalysisMethod != MethodCrispSet {
		return NewConfigurationError("default_analysis_method", "must be "+MethodCrispSet)
	}
	if c.CalibrationMethod != CalibrationBinary {
		return NewConfigurationError("calibration_method", "must be "+CalibrationBinary)
	}
	if c.TruthTableConsistencyThreshold < 0 || c.TruthTableConsistencyThreshold > 1 {
		return NewConfigurationError("truth_table_consistency_threshold", "must be within [0,1]")
	}
	if c.TruthTableFrequencyThreshold < 0 {
		return NewConfigurationError("truth_table_frequency_threshold", "must be >= 0")
	}
	if c.MaxConditions < 1 || c.MaxConditions > HardMaxConditions {
		return NewConfigurationError("max_conditions", "must be within [1,20]")
	}
	if c.Parallelism < 1 {
		return NewConfigurationError("parallelism", "must be >= 1")
	}
	switch c.OutputFormat {
	case OutputStandard, OutputMarkdown, OutputHTML, OutputXLSX:
	default:
		return NewConfigurationError("output_format", "unknown format "+c.OutputFormat)
	}
	return nil
}
