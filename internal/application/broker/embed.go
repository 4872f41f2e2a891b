package broker

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/tradelinemarket/backend/internal/infrastructure/config"
)

// Default widget theme
const (
	DefaultPrimaryColor   = "#2563eb"
	DefaultSecondaryColor = "#64748b"
	DefaultSuccessColor   = "#16a34a"
	DefaultErrorColor     = "#dc2626"
	DefaultFontFamily     = "Inter, system-ui, sans-serif"
)

// Theme holds the widget colors and font
type Theme struct {
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	SuccessColor   string `json:"success_color"`
	ErrorColor     string `json:"error_color"`
	FontFamily     string `json:"font_family"`
}

// ThemeFromConfig fills unset theme values with the defaults
func ThemeFromConfig(cfg config.WidgetConfig) Theme {
	return Theme{
		PrimaryColor:   orDefault(cfg.PrimaryColor, DefaultPrimaryColor),
		SecondaryColor: orDefault(cfg.SecondaryColor, DefaultSecondaryColor),
		SuccessColor:   orDefault(cfg.AccentColor, DefaultSuccessColor),
		ErrorColor:     orDefault(cfg.ErrorColor, DefaultErrorColor),
		FontFamily:     orDefault(cfg.FontFamily, DefaultFontFamily),
	}
}

// EmbedSettings is what the snippet needs beyond the broker's key
type EmbedSettings struct {
	ScriptURL  string
	APIBaseURL string
	Theme      Theme
}

// EmbedResponse is the snippet a broker pastes into their site
type EmbedResponse struct {
	Snippet string         `json:"snippet"`
	Config  map[string]any `json:"config"`
}

// RenderEmbed builds the <script> snippet for an API key
func RenderEmbed(apiKey string, settings EmbedSettings) (EmbedResponse, error) {
	cfg := map[string]any{
		"api_key":      apiKey,
		"api_base_url": strings.TrimRight(settings.APIBaseURL, "/"),
		"theme":        settings.Theme,
	}
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return EmbedResponse{}, fmt.Errorf("marshal widget config: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("<!-- Tradeline Marketplace widget -->\n")
	sb.WriteString(`<div id="tradeline-widget"></div>` + "\n")
	sb.WriteString("<script>\n  window.TradelineWidgetConfig = ")
	sb.WriteString(strings.ReplaceAll(string(raw), "\n", "\n  "))
	sb.WriteString(";\n</script>\n")
	fmt.Fprintf(&sb, `<script src="%s" async></script>`, html.EscapeString(settings.ScriptURL))

	return EmbedResponse{Snippet: sb.String(), Config: cfg}, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
