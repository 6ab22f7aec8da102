package embed

import (
	"bytes"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/voicewidget/internal/domain"
)

func testConfig(t *testing.T, raw string) domain.WidgetConfig {
	t.Helper()
	q, err := url.ParseQuery(raw)
	require.NoError(t, err)
	return domain.WidgetConfigFromQuery(q, "https://widget.example.com/")
}

func renderHost(t *testing.T, cfg domain.WidgetConfig, v Variant) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, MustNewRenderer().HostScript(&buf, cfg, v))
	return buf.String()
}

func TestHostScript_Generic(t *testing.T) {
	out := renderHost(t, testConfig(t, "color=%23ff0000&position=top-left&name=Ada"), VariantGeneric)

	assert.Contains(t, out, `var ROOT_ID = "ai-voice-widget-root";`)
	assert.Contains(t, out, "if (document.getElementById(ROOT_ID))")
	assert.Contains(t, out, `"displayName":"Ada"`)
	assert.Contains(t, out, `"accentColor":"#ff0000"`)
	assert.Contains(t, out, `"screenCorner":"top-left"`)
	assert.Contains(t, out, `"apiBaseUrl":"https://widget.example.com"`)
	assert.Contains(t, out, `"platform":"generic"`)
	assert.Contains(t, out, `var widgetOrigin = "https://widget.example.com";`)
	assert.Contains(t, out, `"top" + ': 20px'`)
	assert.Contains(t, out, `"left" + ': 20px'`)
	assert.Contains(t, out, "var URL_DEBOUNCE_MS = 500;")
	assert.Contains(t, out, "var INITIAL_PUSH_MS = 1000;")
	assert.Contains(t, out, "var MAX_PRODUCTS = 10;")
	assert.Contains(t, out, "var MAX_COLLECTIONS = 8;")
	assert.Contains(t, out, "[data-product-id], .product, .product-item")
	assert.Contains(t, out, "'cart:updated'")
	assert.Contains(t, out, "'cart:refresh'")
	assert.NotContains(t, out, "shopify:section:load")
}

func TestHostScript_OriginChecks(t *testing.T) {
	out := renderHost(t, testConfig(t, ""), VariantGeneric)

	assert.Contains(t, out, "event.source !== iframe.contentWindow || event.origin !== widgetOrigin")
	assert.Contains(t, out, "postMessage({ type: type, payload: payload }, widgetOrigin)")
	assert.NotContains(t, out, "'*'")
	assert.Contains(t, out, "case 'request_context':")
	assert.Contains(t, out, "case 'close_widget':")
	assert.Contains(t, out, "post('context_update', getContext())")
}

func TestHostScript_Defaults(t *testing.T) {
	out := renderHost(t, testConfig(t, "color=red&position=middle"), VariantGeneric)

	assert.Contains(t, out, `"accentColor":"#3b82f6"`)
	assert.Contains(t, out, `"screenCorner":"bottom-right"`)
	assert.Contains(t, out, `"displayName":"AI Shopping Assistant"`)
	assert.Contains(t, out, `"bottom" + ': 20px'`)
	assert.Contains(t, out, `"right" + ': 20px'`)
}

func TestHostScript_EscapesQueryValues(t *testing.T) {
	name := url.QueryEscape(`</script><script>alert('x')</script>`)
	out := renderHost(t, testConfig(t, "name="+name), VariantGeneric)

	assert.NotContains(t, out, "</script>")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, `\u003c/script\u003e`)
}

func TestHostScript_Shopify(t *testing.T) {
	out := renderHost(t, testConfig(t, "domain=shop.myshopify.com&platform=generic"), VariantShopify)

	assert.Contains(t, out, `"platform":"shopify"`)
	assert.Contains(t, out, `"platformDomain":"shop.myshopify.com"`)
	assert.Contains(t, out, "shopify:section:load")
	assert.Contains(t, out, "window.ShopifyAnalytics")
}

func TestHostScript_SingleRoot(t *testing.T) {
	out := renderHost(t, testConfig(t, ""), VariantGeneric)
	assert.Equal(t, 1, strings.Count(out, "document.createElement('iframe')"))
	assert.Equal(t, 1, strings.Count(out, "document.createElement('button')"))
}

func TestIframePage(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig(t, "name=%3Cb%3EAda%3C%2Fb%3E&color=%23ff0000")
	require.NoError(t, MustNewRenderer().IframePage(&buf, cfg))
	out := buf.String()

	assert.Contains(t, out, "<title>&lt;b&gt;Ada&lt;/b&gt;</title>")
	assert.NotContains(t, out, "<b>Ada</b>")
	assert.Contains(t, out, `"accentColor":"#ff0000"`)
	assert.Contains(t, out, "Failed to process your message")
	assert.Contains(t, out, "Please use Chrome, Edge, or Safari.")
	assert.Contains(t, out, "No speech detected. Please try again.")
	assert.Contains(t, out, "{ type: 'request_context' }")
	assert.Contains(t, out, "{ type: 'close_widget' }")
	assert.Contains(t, out, "data.type === 'context_update'")
	assert.Contains(t, out, "fetch('/ecommerce-chat'")
	assert.Contains(t, out, "visibilitychange")
}

func TestIntegrationPage(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig(t, "color=%23ff0000&position=top-left&name=Ada")
	require.NoError(t, MustNewRenderer().IntegrationPage(&buf, cfg, "demo-store-123"))
	out := buf.String()

	assert.Contains(t, out, `<option value="top-left" selected>`)
	assert.Contains(t, out, "top: 8px; left: 8px; background: #ff0000")
	assert.Contains(t, out, "&lt;script src=")
	assert.Contains(t, out, "/widget-embed?")
	assert.Contains(t, out, "/shopify-embed?")
	assert.Contains(t, out, "domain=demo-store-123")
}

func TestSnippet(t *testing.T) {
	cfg := domain.WidgetConfig{
		DisplayName:  "Ada",
		AccentColor:  "#ff0000",
		ScreenCorner: domain.CornerTopLeft,
		APIBaseURL:   "https://w.example.com/",
	}

	assert.Equal(t,
		`<script src="https://w.example.com/widget-embed?color=%23ff0000&id=demo&name=Ada&position=top-left" async></script>`,
		Snippet(cfg, VariantGeneric, "demo"))
	assert.Equal(t,
		`<script src="https://w.example.com/shopify-embed?color=%23ff0000&domain=shop.myshopify.com&name=Ada&position=top-left" async></script>`,
		Snippet(cfg, VariantShopify, "shop.myshopify.com"))
}
