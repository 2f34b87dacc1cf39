package mcp

import (
	"github.com/google/jsonschema-go/jsonschema"
)

type IngestInput struct {
	CSVText string `json:"csv_text,omitempty" jsonschema:"Full CSV text including the header row"`
	Path    string `json:"path,omitempty" jsonschema:"Path of a CSV file readable by the server (used when csv_text is empty)"`
}

type NoInput struct{}

type SetWorkflowInput struct {
	States     []string `json:"states" jsonschema:"Ordered workflow states, first to last"`
	InProgress []string `json:"in_progress,omitempty" jsonschema:"Optional: states that count as work in progress; replaces the positional default"`
	Hidden     []string `json:"hidden,omitempty" jsonschema:"Optional: states to hide from the cumulative flow diagram"`
}

type StateInput struct {
	State string `json:"state" jsonschema:"Name of an existing workflow state"`
}

type AddStateInput struct {
	Name string `json:"name" jsonschema:"Name of the new state; it is appended after the last state"`
}

type MergeStatesInput struct {
	States  []string `json:"states" jsonschema:"States to merge; the merged state takes the position of the first one"`
	NewName string   `json:"new_name" jsonschema:"Name of the merged state"`
}

type MetricsInput struct {
	Bucket             string `json:"bucket,omitempty" jsonschema:"Throughput aggregation: day, week (default) or month"`
	WindowStart        string `json:"window_start,omitempty" jsonschema:"Optional: first day of the throughput window (YYYY-MM-DD)"`
	WindowEnd          string `json:"window_end,omitempty" jsonschema:"Optional: last day of the throughput window (YYYY-MM-DD)"`
	IncludeStability   bool   `json:"include_stability,omitempty" jsonschema:"If true, adds XmR process behaviour charts for cycle time and weekly throughput"`
	IncludePersistence bool   `json:"include_persistence,omitempty" jsonschema:"If true, adds per-state residency percentiles (days spent in each state)"`
}

type HowManyInput struct {
	Days        int    `json:"days" jsonschema:"Forecast horizon in days"`
	WindowStart string `json:"window_start,omitempty" jsonschema:"Optional: first day of the throughput history to sample (YYYY-MM-DD)"`
	WindowEnd   string `json:"window_end,omitempty" jsonschema:"Optional: last day of the throughput history to sample (YYYY-MM-DD)"`
	Simulations int    `json:"simulations,omitempty" jsonschema:"Optional: number of trials (default from configuration)"`
}

type WhenInput struct {
	TargetCount int    `json:"target_count" jsonschema:"Number of items that must be finished"`
	WindowStart string `json:"window_start,omitempty" jsonschema:"Optional: first day of the throughput history to sample (YYYY-MM-DD)"`
	WindowEnd   string `json:"window_end,omitempty" jsonschema:"Optional: last day of the throughput history to sample (YYYY-MM-DD)"`
	Simulations int    `json:"simulations,omitempty" jsonschema:"Optional: number of trials (default from configuration)"`
}

type BacktestInput struct {
	LookbackDays int `json:"lookback_days,omitempty" jsonschema:"Days of history each checkpoint samples from (default 90)"`
	StepDays     int `json:"step_days,omitempty" jsonschema:"Days between checkpoints (default 14)"`
	HorizonDays  int `json:"horizon_days,omitempty" jsonschema:"Days forecast from each checkpoint (default 14)"`
}

type ReportInput struct {
	Title string `json:"title,omitempty" jsonschema:"Optional: report title"`
	Open  bool   `json:"open,omitempty" jsonschema:"If true, opens the report in the default browser"`
}

type RoadmapInput struct {
	Goal string `json:"goal" jsonschema:"Analytical goal: forecasting, flow or workflow_setup"`
}

func (s *Server) registerTools() {
	addTool(s, "ingest_csv",
		"Load work items from CSV (columns: id, title, created, completed, entered_<State>...). Replaces all items, derives the workflow states from the entered_ columns and clears previous forecasts. \n\n"+
			"Structural problems (missing id column, no state columns) reject the whole file and leave the current data untouched. Unparseable dates are reported as warnings and treated as empty.",
		nil, s.handleIngestCSV)

	addTool(s, "get_csv_template",
		"Return a CSV header and example row for the current workflow, to show the user the expected input format.",
		nil, s.handleGetCSVTemplate)

	addTool(s, "get_workflow",
		"Return the ordered workflow states with their in-progress and visibility flags. \n\n"+
			"In-progress states define WIP, aging and where cycle time starts. By default every state except the first and the last is in progress.",
		nil, s.handleGetWorkflow)

	addTool(s, "set_workflow",
		"Replace the workflow definition. Item dates are kept per state name; forecasts stay valid because items are unchanged. \n\n"+
			"If in_progress is given, it replaces the positional default and is remembered across later state changes.",
		nil, s.handleSetWorkflow)

	addTool(s, "toggle_in_progress",
		"Flip whether a state counts as work in progress. Changes WIP, aging and cycle time start.",
		nil, s.handleToggleInProgress)

	addTool(s, "toggle_visibility",
		"Flip whether a state is drawn in the cumulative flow diagram. Metrics are not affected.",
		nil, s.handleToggleVisibility)

	addTool(s, "add_workflow_state",
		"Append a new, empty state after the last workflow state.",
		nil, s.handleAddState)

	addTool(s, "delete_workflow_state",
		"Remove a workflow state and every item's transition date for it.",
		nil, s.handleDeleteState)

	addTool(s, "merge_workflow_states",
		"Merge several states into one. Each item keeps the earliest date among the merged states.",
		nil, s.handleMergeStates)

	addTool(s, "get_metrics",
		"Return the flow metrics of the loaded data: summary, cumulative flow, WIP run, throughput run, cycle-time histogram, scatterplot and percentiles, and aging WIP. \n\n"+
			"STRICT GUARDRAIL: Report the percentiles exactly as returned. DO NOT compute additional statistics from the raw series yourself.",
		func(schema *jsonschema.Schema) {
			enum(schema, "bucket", "day", "week", "month")
		}, s.handleGetMetrics)

	addTool(s, "forecast_how_many",
		"Run a Monte-Carlo simulation of how many items will be finished within a number of days, sampling daily THROUGHPUT history. \n\n"+
			"Read the levels as: 95% likely to finish at least P05 items, 85% likely at least P15, 50% likely at least P50. \n"+
			"STRICT GUARDRAIL: YOU MUST NEVER PERFORM PROBABILISTIC FORECASTING AUTONOMOUSLY. If the result carries guardrails, report them and DO NOT provide numbers.",
		func(schema *jsonschema.Schema) {
			minimum(schema, "days", 1)
			minimum(schema, "simulations", 100)
		}, s.handleForecastHowMany)

	addTool(s, "forecast_when",
		"Run a Monte-Carlo simulation of how many days it takes to finish a number of items, sampling daily THROUGHPUT history. \n\n"+
			"Read the levels as: 50% likely within P50 days, 85% within P85, 95% within P95. \n"+
			"STRICT GUARDRAIL: YOU MUST NEVER PERFORM PROBABILISTIC FORECASTING AUTONOMOUSLY. If the result carries guardrails, report them and DO NOT provide dates.",
		func(schema *jsonschema.Schema) {
			minimum(schema, "target_count", 1)
			minimum(schema, "simulations", 100)
		}, s.handleForecastWhen)

	addTool(s, "forecast_backtest",
		"Perform a walk-forward analysis: replay how-many forecasts at past checkpoints and report how often reality landed inside the P05-P95 cone.",
		func(schema *jsonschema.Schema) {
			minimum(schema, "lookback_days", 1)
			minimum(schema, "step_days", 1)
			minimum(schema, "horizon_days", 1)
		}, s.handleBacktest)

	addTool(s, "generate_report",
		"Write a self-contained HTML report of the current metrics and latest forecasts and return its path.",
		nil, s.handleGenerateReport)

	addTool(s, "get_diagnostic_roadmap",
		"Return the recommended sequence of tools for an analytical goal.",
		func(schema *jsonschema.Schema) {
			enum(schema, "goal", "forecasting", "flow", "workflow_setup")
		}, s.handleGetDiagnosticRoadmap)
}
