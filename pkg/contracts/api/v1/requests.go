// Package api contains API contract definitions for the bike rental dashboard.
// Version v1 represents the current stable API version.
package api

// Box plot scopes accepted by RangeQuery.BoxScope.
const (
	BoxScopeAll   = "all"
	BoxScopeRange = "range"
)

// RangeQuery carries the dashboard controls. Validator.BindRangeQuery reads
// it from URL query parameters; websocket messages decode it from JSON.
type RangeQuery struct {
	Start       string `json:"start" validate:"omitempty,datetime=2006-01-02"`
	End         string `json:"end" validate:"omitempty,datetime=2006-01-02"`
	FillGaps    bool   `json:"fill_gaps"`
	BoxScope    string `json:"box_scope" validate:"omitempty,oneof=all range"`
	ShowSummary bool   `json:"show_summary"`
	ShowRaw     bool   `json:"show_raw"`
}

// ExportRequest describes a report export from the command line.
type ExportRequest struct {
	Start     string `json:"start" validate:"omitempty,datetime=2006-01-02"`
	End       string `json:"end" validate:"omitempty,datetime=2006-01-02"`
	OutputDir string `json:"output_dir" validate:"required"`
	XLSX      bool   `json:"xlsx"`
	FillGaps  bool   `json:"fill_gaps"`
}
