package maturity

// Dimension is one fixed axis of the maturity model.
type Dimension struct {
	Name        string
	Description string
}

// Dimensions are assessed in this order.
//
//nolint:gochecknoglobals // fixed model
var Dimensions = []Dimension{
	{"Digital Strategy", "The extent to which digital transformation is aligned with business objectives and formalized in strategy"},
	{"Customer Experience", "How effectively digital channels are used to enhance customer engagement and satisfaction"},
	{"Operations & Processes", "The degree of process automation and operational efficiency through digital tools"},
	{"Technology Infrastructure", "The modernity, flexibility, and integration of technology systems and platforms"},
	{"Data Management & Analytics", "Capabilities for collecting, analyzing, and deriving insights from data"},
	{"Organizational Culture", "The organization's readiness for digital change and innovation mindset"},
	{"Digital Skills & Talent", "The availability of necessary digital skills and talent development programs"},
}

// Benchmark is the reference maturity profile of an industry.
type Benchmark struct {
	Industry             string             `json:"industry"`
	OverallAverage       float64            `json:"overall_average"`
	DimensionAverages    map[string]float64 `json:"dimension_averages"`
	MaturityDistribution map[string]float64 `json:"maturity_distribution"`
}

// CrossIndustry is the label of the default benchmark.
const CrossIndustry = "Cross-Industry Average"

// benchmarks is ordered; the first match wins.
//
//nolint:gochecknoglobals // static reference data
var benchmarks = []Benchmark{
	{
		Industry:       "Healthcare",
		OverallAverage: 2.8,
		DimensionAverages: map[string]float64{
			"Digital Strategy": 2.9, "Customer Experience": 2.7, "Operations & Processes": 2.5,
			"Technology Infrastructure": 2.6, "Data Management & Analytics": 3.1,
			"Organizational Culture": 2.4, "Digital Skills & Talent": 2.5,
		},
		MaturityDistribution: map[string]float64{"Initial": 0.30, "Developing": 0.45, "Advanced": 0.20, "Leading": 0.05},
	},
	{
		Industry:       "Manufacturing",
		OverallAverage: 2.6,
		DimensionAverages: map[string]float64{
			"Digital Strategy": 2.7, "Customer Experience": 2.4, "Operations & Processes": 3.1,
			"Technology Infrastructure": 2.5, "Data Management & Analytics": 2.4,
			"Organizational Culture": 2.3, "Digital Skills & Talent": 2.2,
		},
		MaturityDistribution: map[string]float64{"Initial": 0.35, "Developing": 0.40, "Advanced": 0.20, "Leading": 0.05},
	},
	{
		Industry:       "Retail",
		OverallAverage: 3.0,
		DimensionAverages: map[string]float64{
			"Digital Strategy": 3.2, "Customer Experience": 3.5, "Operations & Processes": 2.8,
			"Technology Infrastructure": 2.9, "Data Management & Analytics": 3.2,
			"Organizational Culture": 2.5, "Digital Skills & Talent": 2.7,
		},
		MaturityDistribution: map[string]float64{"Initial": 0.20, "Developing": 0.40, "Advanced": 0.30, "Leading": 0.10},
	},
	{
		Industry:       "Financial Services",
		OverallAverage: 3.3,
		DimensionAverages: map[string]float64{
			"Digital Strategy": 3.5, "Customer Experience": 3.4, "Operations & Processes": 3.0,
			"Technology Infrastructure": 3.2, "Data Management & Analytics": 3.8,
			"Organizational Culture": 2.8, "Digital Skills & Talent": 3.1,
		},
		MaturityDistribution: map[string]float64{"Initial": 0.15, "Developing": 0.35, "Advanced": 0.35, "Leading": 0.15},
	},
	{
		Industry:       "Education",
		OverallAverage: 2.5,
		DimensionAverages: map[string]float64{
			"Digital Strategy": 2.6, "Customer Experience": 2.5, "Operations & Processes": 2.4,
			"Technology Infrastructure": 2.5, "Data Management & Analytics": 2.3,
			"Organizational Culture": 2.5, "Digital Skills & Talent": 2.7,
		},
		MaturityDistribution: map[string]float64{"Initial": 0.35, "Developing": 0.45, "Advanced": 0.15, "Leading": 0.05},
	},
}

//nolint:gochecknoglobals // static reference data
var crossIndustry = Benchmark{
	Industry:       CrossIndustry,
	OverallAverage: 2.7,
	DimensionAverages: map[string]float64{
		"Digital Strategy": 2.8, "Customer Experience": 2.7, "Operations & Processes": 2.7,
		"Technology Infrastructure": 2.6, "Data Management & Analytics": 2.5,
		"Organizational Culture": 2.5, "Digital Skills & Talent": 2.6,
	},
	MaturityDistribution: map[string]float64{"Initial": 0.30, "Developing": 0.40, "Advanced": 0.25, "Leading": 0.05},
}
