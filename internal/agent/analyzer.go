package agent

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
	"github.com/tmc/langchaingo/llms"

	"workmate/internal/config"
	"workmate/internal/graph"
	"workmate/internal/llm"
	"workmate/internal/log"
)

// ProductInput is the product a caller wants analyzed. Description may carry
// user-provided HTML; it is sanitized before it reaches a prompt.
type ProductInput struct {
	ID           string  `json:"id,omitempty"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Description  string  `json:"description"`
	Price        float64 `json:"price"`
	Brand        string  `json:"brand,omitempty"`
	ReferenceURL string  `json:"reference_url,omitempty"`
}

// AnalysisState is the state threaded through the analyzer graph.
type AnalysisState struct {
	Input           ProductInput `json:"product_data"`
	AnalysisType    string       `json:"analysis_type"`
	MarketSnippet   string       `json:"market_snippet,omitempty"`
	MarketAnalysis  string       `json:"market_analysis"`
	PricingAnalysis string       `json:"pricing_analysis"`
	Recommendation  string       `json:"recommendation"`
	ConfidenceScore float64      `json:"confidence_score"`
	FinalReport     string       `json:"final_report"`
	ReportHTML      string       `json:"report_html"`
}

// AnalysisResult is what an analyzer run returns.
type AnalysisResult struct {
	ProductName     string  `json:"product_name"`
	AnalysisType    string  `json:"analysis_type"`
	MarketAnalysis  string  `json:"market_analysis"`
	PricingAnalysis string  `json:"pricing_analysis"`
	Recommendations string  `json:"recommendations"`
	ConfidenceScore float64 `json:"confidence_score"`
	FinalReport     string  `json:"final_report"`
	ReportHTML      string  `json:"report_html"`
}

// ProductSource resolves a product by ID for AnalyzeProductByID.
type ProductSource interface {
	ProductByID(ctx context.Context, id string) (ProductInput, error)
}

// confidencePattern pulls the first number after a "confidence" mention out
// of the recommendation text.
var confidencePattern = regexp.MustCompile(`(?i)confidence[^0-9]{0,20}(\d{1,3}(?:\.\d+)?)`)

// fallbackConfidence is used when the model reply carries no parsable score.
const fallbackConfidence = 85.0

// ProductAnalyzer runs the market -> pricing -> recommendation -> report
// pipeline for a product.
type ProductAnalyzer struct {
	model    llms.Model
	settings *config.Settings
	logger   *log.Logger
	runnable *graph.Runnable[AnalysisState]
	products ProductSource
	fetcher  *MarketFetcher
	policy   *bluemonday.Policy
}

// AnalyzerOption configures optional collaborators.
type AnalyzerOption func(*ProductAnalyzer)

// WithProductSource enables AnalyzeProductByID.
func WithProductSource(src ProductSource) AnalyzerOption {
	return func(a *ProductAnalyzer) { a.products = src }
}

// WithMarketFetcher enables reference-page snippets in the market analysis.
func WithMarketFetcher(f *MarketFetcher) AnalyzerOption {
	return func(a *ProductAnalyzer) { a.fetcher = f }
}

// NewProductAnalyzer builds the analyzer using the configured or overridden
// model. Product analysis defaults to the advanced model: it produces a
// multi-section business report, not a chat reply.
func NewProductAnalyzer(settings *config.Settings, logger *log.Logger, modelOverride string, opts ...AnalyzerOption) (*ProductAnalyzer, error) {
	if modelOverride == "" {
		modelOverride = settings.AdvancedModel
	}
	cfg, err := settings.LLMConfig(modelOverride, nil)
	if err != nil {
		return nil, err
	}
	model, err := llm.New(cfg)
	if err != nil {
		return nil, err
	}
	return NewProductAnalyzerWithModel(settings, logger, model, opts...)
}

// NewProductAnalyzerWithModel wires the graph around an existing model.
func NewProductAnalyzerWithModel(settings *config.Settings, logger *log.Logger, model llms.Model, opts ...AnalyzerOption) (*ProductAnalyzer, error) {
	a := &ProductAnalyzer{
		model:    model,
		settings: settings,
		logger:   logger,
		policy:   bluemonday.StrictPolicy(),
	}
	for _, opt := range opts {
		opt(a)
	}

	g := graph.NewStateGraph[AnalysisState]()
	g.AddNode("market_analyzer", "Analyze market position and competition", a.marketAnalyzer)
	g.AddNode("pricing_analyzer", "Analyze pricing strategy", a.pricingAnalyzer)
	g.AddNode("recommendation_engine", "Generate actionable recommendations", a.recommendationEngine)
	g.AddNode("report_generator", "Generate the final report", a.reportGenerator)
	g.SetEntryPoint("market_analyzer")
	g.AddEdge("market_analyzer", "pricing_analyzer")
	g.AddEdge("pricing_analyzer", "recommendation_engine")
	g.AddEdge("recommendation_engine", "report_generator")
	g.AddEdge("report_generator", graph.END)
	g.SetRetryConfig(graph.DefaultRetryConfig())

	runnable, err := g.Compile()
	if err != nil {
		return nil, err
	}
	runnable.SetMaxSteps(settings.MaxIterations)
	a.runnable = runnable
	return a, nil
}

func (a *ProductAnalyzer) marketAnalyzer(ctx context.Context, state AnalysisState) (AnalysisState, error) {
	state.Input.Description = a.policy.Sanitize(state.Input.Description)

	if a.fetcher != nil && state.Input.ReferenceURL != "" {
		snippet, err := a.fetcher.FetchText(ctx, state.Input.ReferenceURL)
		if err != nil {
			// A dead reference page must not sink the analysis.
			if a.logger != nil {
				a.logger.Warn("market snippet unavailable for %s: %v", state.Input.ReferenceURL, err)
			}
		} else {
			state.MarketSnippet = snippet
		}
	}

	prompt := fmt.Sprintf(
		"Analyze the market position for this product:\n\nProduct Name: %s\nCategory: %s\nDescription: %s\nCurrent Price: %.2f\n",
		state.Input.Name, state.Input.Category, state.Input.Description, state.Input.Price)
	if state.MarketSnippet != "" {
		prompt += fmt.Sprintf("\nReference page content:\n%s\n", state.MarketSnippet)
	}
	prompt += "\nProvide analysis on:\n1. Market positioning\n2. Target audience\n3. Competitive landscape\n4. Market trends\n5. Unique selling propositions\n\nBe specific and actionable."

	out, err := llm.GenerateWithSystem(ctx, a.model,
		"You are a market analysis expert specializing in product positioning.",
		prompt, a.settings.Temperature)
	if err != nil {
		return state, err
	}
	state.MarketAnalysis = out
	return state, nil
}

func (a *ProductAnalyzer) pricingAnalyzer(ctx context.Context, state AnalysisState) (AnalysisState, error) {
	prompt := fmt.Sprintf(
		"Based on the market analysis, analyze the pricing strategy:\n\nProduct Details:\n- Name: %s\n- Current Price: %.2f\n- Category: %s\n\nMarket Analysis: %s\n\nProvide pricing analysis including:\n1. Price competitiveness\n2. Value proposition assessment\n3. Pricing strategy recommendations\n4. Potential price optimization\n5. Revenue impact projections",
		state.Input.Name, state.Input.Price, state.Input.Category, state.MarketAnalysis)

	out, err := llm.GenerateWithSystem(ctx, a.model,
		"You are a pricing strategy expert with deep knowledge of market dynamics.",
		prompt, a.settings.Temperature)
	if err != nil {
		return state, err
	}
	state.PricingAnalysis = out
	return state, nil
}

func (a *ProductAnalyzer) recommendationEngine(ctx context.Context, state AnalysisState) (AnalysisState, error) {
	prompt := fmt.Sprintf(
		"Generate comprehensive recommendations based on the analysis:\n\nProduct: %s\nMarket Analysis: %s\nPricing Analysis: %s\n\nProvide specific recommendations for:\n1. Product positioning improvements\n2. Marketing strategies\n3. Pricing adjustments\n4. Feature enhancements\n5. Target market expansion\n6. Risk mitigation strategies\n\nAlso provide a confidence score (0-100) for your recommendations.",
		state.Input.Name, state.MarketAnalysis, state.PricingAnalysis)

	out, err := llm.GenerateWithSystem(ctx, a.model,
		"You are a strategic business consultant providing actionable recommendations.",
		prompt, a.settings.Temperature)
	if err != nil {
		return state, err
	}
	state.Recommendation = out
	state.ConfidenceScore = parseConfidence(out)
	return state, nil
}

func (a *ProductAnalyzer) reportGenerator(ctx context.Context, state AnalysisState) (AnalysisState, error) {
	prompt := fmt.Sprintf(
		"Create a comprehensive product analysis report:\n\nProduct: %s\n\nMarket Analysis: %s\nPricing Analysis: %s\nRecommendations: %s\nConfidence Score: %.0f%%\n\nFormat as a professional business report with:\n- Executive Summary\n- Key Findings\n- Detailed Analysis\n- Recommendations\n- Implementation Timeline\n- Success Metrics",
		state.Input.Name, state.MarketAnalysis, state.PricingAnalysis, state.Recommendation, state.ConfidenceScore)

	out, err := llm.GenerateWithSystem(ctx, a.model,
		"You are a business analyst creating professional reports.",
		prompt, a.settings.Temperature)
	if err != nil {
		return state, err
	}
	state.FinalReport = out
	state.ReportHTML = renderReportHTML(out)
	return state, nil
}

// parseConfidence extracts a 0-100 confidence score from the model reply.
func parseConfidence(text string) float64 {
	m := confidencePattern.FindStringSubmatch(text)
	if m == nil {
		return fallbackConfidence
	}
	score, err := strconv.ParseFloat(m[1], 64)
	if err != nil || score < 0 || score > 100 {
		return fallbackConfidence
	}
	return score
}

// renderReportHTML converts the markdown report to HTML.
func renderReportHTML(md string) string {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(md))

	htmlFlags := html.CommonFlags | html.HrefTargetBlank
	renderer := html.NewRenderer(html.RendererOptions{Flags: htmlFlags})

	return string(markdown.Render(doc, renderer))
}

// AnalyzeProduct runs the full pipeline for the given product.
func (a *ProductAnalyzer) AnalyzeProduct(ctx context.Context, product ProductInput, analysisType string) (*AnalysisResult, error) {
	if analysisType == "" {
		analysisType = "comprehensive"
	}
	initial := AnalysisState{Input: product, AnalysisType: analysisType}

	final, err := a.runnable.InvokeWithTracer(ctx, initial,
		tracerFor(a.settings, a.logger, "product-analyzer"))
	if err != nil {
		return nil, err
	}

	return &AnalysisResult{
		ProductName:     product.Name,
		AnalysisType:    analysisType,
		MarketAnalysis:  final.MarketAnalysis,
		PricingAnalysis: final.PricingAnalysis,
		Recommendations: final.Recommendation,
		ConfidenceScore: final.ConfidenceScore,
		FinalReport:     final.FinalReport,
		ReportHTML:      final.ReportHTML,
	}, nil
}

// AnalyzeProductByID looks the product up and analyzes it. Requires a
// ProductSource.
func (a *ProductAnalyzer) AnalyzeProductByID(ctx context.Context, id string) (*AnalysisResult, error) {
	if a.products == nil {
		return nil, fmt.Errorf("no product source configured")
	}
	product, err := a.products.ProductByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup product %s: %w", id, err)
	}
	return a.AnalyzeProduct(ctx, product, "comprehensive")
}
