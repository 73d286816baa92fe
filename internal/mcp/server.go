package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/perfshop/internal/app"
	"github.com/Aman-CERP/perfshop/internal/flags"
	"github.com/Aman-CERP/perfshop/internal/perf"
	"github.com/Aman-CERP/perfshop/internal/search"
	"github.com/Aman-CERP/perfshop/pkg/version"
)

// Server bridges MCP clients with the storefront.
type Server struct {
	mcp    *mcp.Server
	app    *app.App
	logger *slog.Logger
}

// SearchInput is the input of search_products.
type SearchInput struct {
	Query string `json:"query" jsonschema:"whitespace-separated terms; every term must appear in a product's name, description or category"`
}

// SearchOutput is the output of search_products.
type SearchOutput struct {
	Results    []ProductOutput `json:"results" jsonschema:"matching products in catalog order, at most 20"`
	Strategy   string          `json:"strategy" jsonschema:"how the search ran: worker, chunked, sync or none"`
	Fallback   bool            `json:"fallback" jsonschema:"true if the background worker failed and a local scan answered"`
	MatchCount int             `json:"match_count" jsonschema:"total matches before truncation"`
	DurationMS float64         `json:"duration_ms"`
}

// ProductOutput is one product in a tool result.
type ProductOutput struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    string  `json:"price"`
	InStock  bool    `json:"in_stock"`
	Rating   float64 `json:"rating"`
}

// ListFlagsInput takes no parameters.
type ListFlagsInput struct{}

// FlagOutput is one flag and its state.
type FlagOutput struct {
	Key         string `json:"key"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// FlagsOutput lists every flag and the resulting execution flags.
type FlagsOutput struct {
	Flags     []FlagOutput          `json:"flags"`
	Execution search.ExecutionFlags `json:"execution"`
}

// SetFlagInput is the input of set_flag.
type SetFlagInput struct {
	Key     string `json:"key" jsonschema:"flag key, e.g. worker-search"`
	Enabled bool   `json:"enabled" jsonschema:"new state"`
}

// BudgetReportInput takes no parameters.
type BudgetReportInput struct{}

// MetricOutput is one rated metric.
type MetricOutput struct {
	Metric string  `json:"metric"`
	Count  int     `json:"count"`
	P75    string  `json:"p75" jsonschema:"75th percentile in the metric's unit"`
	Max    string  `json:"max"`
	Good   float64 `json:"good" jsonschema:"upper bound for a good rating"`
	Rating string  `json:"rating" jsonschema:"good, needs-improvement or poor"`
}

// BudgetReportOutput is the output of budget_report.
type BudgetReportOutput struct {
	Metrics []MetricOutput `json:"metrics"`
	Overall string         `json:"overall" jsonschema:"worst rating across metrics"`
}

// NewServer creates an MCP server over a.
func NewServer(a *app.App) (*Server, error) {
	if a == nil {
		return nil, fmt.Errorf("app is required")
	}
	s := &Server{
		app:    a,
		logger: slog.Default(),
	}
	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "perfshop",
		Version: version.Version,
	}, nil)
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_products",
		Description: "Search the product catalog. Runs on the strategy the performance flags select and reports which one answered.",
	}, s.searchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_flags",
		Description: "List the performance flags: anti-patterns and their fixes, with current state.",
	}, s.listFlagsHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "set_flag",
		Description: "Turn a performance flag on or off.",
	}, s.setFlagHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "budget_report",
		Description: "Rate recorded web vitals, long tasks and search latency against their performance budgets.",
	}, s.budgetReportHandler)

	s.logger.Debug("MCP tools registered", slog.Int("count", 4))
}

func (s *Server) searchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	out, err := s.app.Search(ctx, input.Query)
	if err != nil {
		return nil, SearchOutput{}, MapError(err)
	}

	result := SearchOutput{
		Results:    make([]ProductOutput, 0, len(out.Results)),
		Strategy:   string(out.Strategy),
		Fallback:   out.Fallback,
		MatchCount: out.MatchCount,
		DurationMS: perf.Millis(out.Duration),
	}
	for _, r := range out.Results {
		result.Results = append(result.Results, ProductOutput{
			ID:       r.ID,
			Name:     r.Name,
			Category: r.Category,
			Price:    r.Price.StringFixed(2),
			InStock:  r.InStock,
			Rating:   r.Rating,
		})
	}
	return nil, result, nil
}

func (s *Server) flagsOutput() FlagsOutput {
	set := s.app.Flags.Snapshot()
	out := FlagsOutput{Execution: flags.ExecutionFrom(set)}
	for _, d := range flags.Definitions() {
		out.Flags = append(out.Flags, FlagOutput{
			Key:         string(d.Key),
			Kind:        string(d.Kind),
			Description: d.Description,
			Enabled:     set[d.Key],
		})
	}
	return out
}

func (s *Server) listFlagsHandler(_ context.Context, _ *mcp.CallToolRequest, _ ListFlagsInput) (
	*mcp.CallToolResult,
	FlagsOutput,
	error,
) {
	return nil, s.flagsOutput(), nil
}

func (s *Server) setFlagHandler(_ context.Context, _ *mcp.CallToolRequest, input SetFlagInput) (
	*mcp.CallToolResult,
	FlagsOutput,
	error,
) {
	if input.Key == "" {
		return nil, FlagsOutput{}, NewInvalidParamsError("key parameter is required")
	}
	if err := s.app.Flags.Set(flags.Key(input.Key), input.Enabled); err != nil {
		return nil, FlagsOutput{}, MapError(err)
	}
	s.logger.Info("flag set via MCP", slog.String("key", input.Key), slog.Bool("enabled", input.Enabled))
	return nil, s.flagsOutput(), nil
}

func (s *Server) budgetReportHandler(_ context.Context, _ *mcp.CallToolRequest, _ BudgetReportInput) (
	*mcp.CallToolResult,
	BudgetReportOutput,
	error,
) {
	report := s.app.Report()
	out := BudgetReportOutput{
		Metrics: make([]MetricOutput, 0, len(report.Metrics)),
		Overall: string(report.Overall),
	}
	for _, m := range report.Metrics {
		out.Metrics = append(out.Metrics, MetricOutput{
			Metric: string(m.Budget.Metric),
			Count:  m.Count,
			P75:    m.Budget.Format(m.P75),
			Max:    m.Budget.Format(m.Max),
			Good:   m.Budget.Good,
			Rating: string(m.Rating),
		})
	}
	return nil, out, nil
}

// Serve runs the server on stdio until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("Starting MCP server", slog.String("transport", "stdio"))

	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && ctx.Err() == nil {
		s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("MCP server stopped")
	return nil
}
