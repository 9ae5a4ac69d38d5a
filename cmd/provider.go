package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/joescharf/adreview/internal/analysis"
	"github.com/joescharf/adreview/internal/dify"
	"github.com/joescharf/adreview/internal/llm"
)

// newProvider builds the analysis backend named by the provider setting.
// A nil provider puts the analyzer in test mode.
func newProvider() (analysis.Provider, error) {
	switch name := strings.ToLower(viper.GetString("provider")); name {
	case "", "mock":
		return nil, nil
	case "dify":
		apiKey := viper.GetString("dify.api_key")
		if apiKey == "" {
			return nil, fmt.Errorf("dify.api_key is not set (export ADREVIEW_DIFY_API_KEY)")
		}
		return dify.NewClient(viper.GetString("dify.api_url"), apiKey, viper.GetString("dify.user")), nil
	case "anthropic":
		apiKey := viper.GetString("anthropic.api_key")
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("anthropic.api_key is not set")
		}
		return llm.NewClient(apiKey, viper.GetString("anthropic.model")), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (use: mock, dify, anthropic)", name)
	}
}

// newAnalyzer wraps the configured provider with the analysis timeout.
func newAnalyzer() (*analysis.Analyzer, error) {
	p, err := newProvider()
	if err != nil {
		return nil, err
	}
	a := analysis.NewAnalyzer(p, viper.GetDuration("analysis.timeout"))
	ui.VerboseLog("Analysis provider: %s", a.ProviderName())
	return a, nil
}
