package types

// ThemeItem is a single point feature from a OneMap theme layer.
type ThemeItem struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
}

// ThemeInfo describes an available OneMap theme.
type ThemeInfo struct {
	ThemeName string `json:"THEMENAME"`
	QueryName string `json:"QUERYNAME"`
}

// AreaSummary holds aggregated temperature statistics for one planning area.
type AreaSummary struct {
	PlanningArea string   `json:"planning_area"`
	AvgTemp      float64  `json:"avg_temp"`
	MaxTemp      float64  `json:"max_temp"`
	StationCount int      `json:"station_count"`
	Stations     []string `json:"stations"`
}

// Density classifications derived from OneMap theme counts.
const (
	DensityCommercial  = "Commercial"
	DensityResidential = "Residential"
	DensityMixed       = "Mixed"
	DensityUnknown     = "Unknown/Low Density"
)

// ContextFeatures describes the static heat-relevant context of a planning
// area: how green it is and what kind of land use dominates.
type ContextFeatures struct {
	PlanningArea     string  `json:"planning_area"`
	GreenRatio       float64 `json:"green_ratio"`
	DensityType      string  `json:"density_type"`
	GreenCount       int     `json:"green_count"`
	CommercialCount  int     `json:"comm_count"`
	ResidentialCount int     `json:"res_count"`
}

// UnifiedArea is one row of the fused dataset. AvgTemperature is nil for
// areas no station currently covers.
type UnifiedArea struct {
	PlanningArea   string   `json:"planning_area"`
	AvgTemperature *float64 `json:"avg_temperature"`
	GreenRatio     float64  `json:"green_ratio"`
	DensityType    string   `json:"density_type"`
}
