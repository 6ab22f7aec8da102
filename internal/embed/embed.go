// Package embed renders the browser assets served to host pages: the
// widget host script, the widget iframe page and the integration page.
package embed

import (
	_ "embed"
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"io"
	"net/url"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/xiaot623/voicewidget/internal/config"
	"github.com/xiaot623/voicewidget/internal/domain"
	"github.com/xiaot623/voicewidget/internal/extract"
	"github.com/xiaot623/voicewidget/internal/widget"
)

// RootID guards the host script against running twice on a page.
const RootID = "ai-voice-widget-root"

const (
	// URLChangeDebounce delays the context push after a host page URL change.
	URLChangeDebounce = 500 * time.Millisecond
	// InitialContextDelay is when the host script sends its first context.
	InitialContextDelay = time.Second

	greeting = "Hi! I'm your AI shopping assistant. How can I help you today?"
)

// Variant selects a host script flavor.
type Variant string

const (
	VariantGeneric Variant = "generic"
	VariantShopify Variant = "shopify"
)

var (
	//go:embed templates/host.js.tmpl
	hostScriptSource string
	//go:embed templates/iframe.html.tmpl
	iframePageSource string
	//go:embed templates/integration.html.tmpl
	integrationPageSource string
)

// Renderer holds the parsed templates.
type Renderer struct {
	host        *texttemplate.Template
	iframe      *htmltemplate.Template
	integration *htmltemplate.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	host, err := texttemplate.New("host.js").Parse(hostScriptSource)
	if err != nil {
		return nil, fmt.Errorf("parse host script: %w", err)
	}
	iframe, err := htmltemplate.New("iframe.html").Parse(iframePageSource)
	if err != nil {
		return nil, fmt.Errorf("parse iframe page: %w", err)
	}
	integration, err := htmltemplate.New("integration.html").Parse(integrationPageSource)
	if err != nil {
		return nil, fmt.Errorf("parse integration page: %w", err)
	}
	return &Renderer{host: host, iframe: iframe, integration: integration}, nil
}

// MustNewRenderer is like NewRenderer but panics on error.
func MustNewRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

// hostData carries JSON literals only; the host script is plain text and
// nothing from the query string reaches it unescaped.
type hostData struct {
	RootID               string
	Config               string
	TargetOrigin         string
	Selectors            string
	Vertical             string
	Horizontal           string
	MaxProducts          int
	MaxCollections       int
	MaxCollectionNameLen int
	DebounceMS           int64
	InitialPushMS        int64
	Shopify              bool
}

// HostScript writes the embeddable script for cfg.
func (r *Renderer) HostScript(w io.Writer, cfg domain.WidgetConfig, v Variant) error {
	cfg = cfg.Normalize()
	if v == VariantShopify {
		cfg.Platform = domain.PlatformShopify
	}

	vertical, horizontal := cornerSides(cfg.ScreenCorner)
	data := hostData{
		RootID:       jsonLiteral(RootID),
		Config:       jsonLiteral(cfg),
		TargetOrigin: jsonLiteral(config.Origin(cfg.APIBaseURL)),
		Selectors: jsonLiteral(map[string]string{
			"product":   extract.ProductSelector,
			"title":     extract.ProductTitleSelector,
			"price":     extract.ProductPriceSelector,
			"nav":       extract.NavLinkSelector,
			"cartCount": extract.CartCountSelector,
		}),
		Vertical:             jsonLiteral(vertical),
		Horizontal:           jsonLiteral(horizontal),
		MaxProducts:          domain.MaxProducts,
		MaxCollections:       domain.MaxCollections,
		MaxCollectionNameLen: extract.MaxCollectionNameLen,
		DebounceMS:           URLChangeDebounce.Milliseconds(),
		InitialPushMS:        InitialContextDelay.Milliseconds(),
		Shopify:              v == VariantShopify,
	}
	if err := r.host.Execute(w, data); err != nil {
		return fmt.Errorf("render host script: %w", err)
	}
	return nil
}

type iframeData struct {
	Config            domain.WidgetConfig
	CaptureHints      map[string]string
	UnsupportedNotice string
	ProcessFailed     string
	Greeting          string
}

// IframePage writes the widget UI page.
func (r *Renderer) IframePage(w io.Writer, cfg domain.WidgetConfig) error {
	data := iframeData{
		Config:            cfg.Normalize(),
		CaptureHints:      widget.CaptureErrorHints(),
		UnsupportedNotice: widget.UnsupportedNotice,
		ProcessFailed:     widget.ProcessFailedMessage,
		Greeting:          greeting,
	}
	if err := r.iframe.Execute(w, data); err != nil {
		return fmt.Errorf("render iframe page: %w", err)
	}
	return nil
}

type cornerOption struct {
	Value    domain.ScreenCorner
	Label    string
	Selected bool
}

type integrationData struct {
	Config         domain.WidgetConfig
	WebsiteID      string
	Corners        []cornerOption
	PreviewStyle   htmltemplate.CSS
	GenericSnippet string
	ShopifySnippet string
}

// IntegrationPage writes the setup page with copyable snippets for cfg.
func (r *Renderer) IntegrationPage(w io.Writer, cfg domain.WidgetConfig, websiteID string) error {
	cfg = cfg.Normalize()
	vertical, horizontal := cornerSides(cfg.ScreenCorner)

	corners := []cornerOption{
		{Value: domain.CornerBottomRight, Label: "Bottom Right"},
		{Value: domain.CornerBottomLeft, Label: "Bottom Left"},
		{Value: domain.CornerTopRight, Label: "Top Right"},
		{Value: domain.CornerTopLeft, Label: "Top Left"},
	}
	for i := range corners {
		corners[i].Selected = corners[i].Value == cfg.ScreenCorner
	}

	// cfg is normalized, so the preview style holds only known-safe values.
	style := fmt.Sprintf("%s: 8px; %s: 8px; background: %s", vertical, horizontal, cfg.AccentColor)
	data := integrationData{
		Config:         cfg,
		WebsiteID:      websiteID,
		Corners:        corners,
		PreviewStyle:   htmltemplate.CSS(style),
		GenericSnippet: Snippet(cfg, VariantGeneric, websiteID),
		ShopifySnippet: Snippet(cfg, VariantShopify, websiteID),
	}
	if err := r.integration.Execute(w, data); err != nil {
		return fmt.Errorf("render integration page: %w", err)
	}
	return nil
}

// Snippet returns the script tag a site owner pastes into their page.
func Snippet(cfg domain.WidgetConfig, v Variant, websiteID string) string {
	cfg = cfg.Normalize()
	path := "/widget-embed"
	q := url.Values{}
	if v == VariantShopify {
		path = "/shopify-embed"
		q.Set("domain", websiteID)
	} else {
		q.Set("id", websiteID)
	}
	q.Set("color", cfg.AccentColor)
	q.Set("position", string(cfg.ScreenCorner))
	q.Set("name", cfg.DisplayName)
	return fmt.Sprintf(`<script src="%s%s?%s" async></script>`, cfg.APIBaseURL, path, q.Encode())
}

func cornerSides(c domain.ScreenCorner) (vertical, horizontal string) {
	vertical, horizontal = "bottom", "right"
	if strings.HasPrefix(string(c), "top") {
		vertical = "top"
	}
	if strings.HasSuffix(string(c), "left") {
		horizontal = "left"
	}
	return vertical, horizontal
}

// jsonLiteral marshals v for use as a JavaScript literal. encoding/json
// escapes <, > and & so the result is also safe inside a script element.
func jsonLiteral(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
