package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/voicewidget/internal/adapter/llm"
	"github.com/xiaot623/voicewidget/internal/domain"
	"github.com/xiaot623/voicewidget/internal/service"
)

func newTestHandler(providers ...llm.Provider) *Handler {
	return NewHandler(service.New(llm.NewRegistry(providers...), nil))
}

func doJSON(t *testing.T, handler echo.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, handler(c))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestChatMissingMessage(t *testing.T) {
	h := newTestHandler(llm.NewMockProvider("gemini"))

	for _, body := range []string{`{}`, `{"message":"   "}`, `{"context":{"currentPath":"/"}}`} {
		rec := doJSON(t, h.Chat, http.MethodPost, "/chat", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		got := decode(t, rec)
		assert.Equal(t, "Message is required", got["error"])
		assert.NotContains(t, got, "response")
	}
}

func TestChatInvalidBody(t *testing.T) {
	h := newTestHandler(llm.NewMockProvider("gemini"))

	rec := doJSON(t, h.Chat, http.MethodPost, "/chat", `{"message":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid request body", decode(t, rec)["error"])
}

func TestChatReply(t *testing.T) {
	h := newTestHandler(llm.NewMockProvider("gemini").WithReply("Hi! How can I help?"))

	rec := doJSON(t, h.Chat, http.MethodPost, "/chat", `{"message":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"response": "Hi! How can I help?"}, decode(t, rec))
}

func TestChatUnconfiguredFallback(t *testing.T) {
	h := newTestHandler(llm.NewGemini("your_api_key_here", "", 0))

	rec := doJSON(t, h.Chat, http.MethodPost, "/chat", `{"message":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	response, _ := decode(t, rec)["response"].(string)
	assert.Contains(t, response, `"hello"`)
	assert.Contains(t, response, llm.EnvGeminiKey)
}

func TestChatProviderErrorFallback(t *testing.T) {
	h := newTestHandler(llm.NewMockProvider("gemini").WithError(errors.New("quota exceeded: key sk-123")))

	rec := doJSON(t, h.Chat, http.MethodPost, "/chat", `{"message":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	response, _ := decode(t, rec)["response"].(string)
	assert.NotEmpty(t, response)
	assert.NotContains(t, response, "sk-123")
}

func TestChatUnknownProvider(t *testing.T) {
	h := newTestHandler(llm.NewMockProvider("gemini"))

	rec := doJSON(t, h.Chat, http.MethodPost, "/chat", `{"message":"hello","provider":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "nope")
}

func TestChatGroq(t *testing.T) {
	h := newTestHandler(
		llm.NewMockProvider("gemini").WithReply("from gemini"),
		llm.NewMockProvider("groq").WithReply("from groq"),
	)

	rec := doJSON(t, h.ChatGroq, http.MethodPost, "/chat/groq", `{"message":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "from groq", decode(t, rec)["response"])
}

func TestEcommerceChat(t *testing.T) {
	mock := llm.NewMockProvider("gemini").WithReply("Added to your cart.")
	h := newTestHandler(mock)

	body := `{
		"message": "Please add to cart",
		"context": {
			"currentPath": "/products/linen-shirt",
			"pageTitle": "Linen Shirt",
			"platform": "shopify",
			"products": [{"title": "Linen Shirt", "price": 49.99}],
			"collections": ["Shirts"],
			"cart": {"itemCount": 1}
		},
		"websiteConfig": {"displayName": "Ada", "platformDomain": "linen.myshopify.com"}
	}`
	rec := doJSON(t, h.EcommerceChat, http.MethodPost, "/ecommerce-chat", body)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode(t, rec)
	assert.Equal(t, "Added to your cart.", got["response"])
	assert.Equal(t, string(domain.IntentAddToCart), got["intent"])
	assert.Equal(t, []interface{}{"Add to Cart", "View Cart", "Continue Shopping"}, got["suggestions"])

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Please add to cart", reqs[0].Prompt)
	assert.Contains(t, reqs[0].System, "49.99")
	assert.Contains(t, reqs[0].System, "Linen Shirt")
	assert.Contains(t, reqs[0].System, "/products/linen-shirt")
}

func TestEcommerceChatGeneralInquiry(t *testing.T) {
	h := newTestHandler(llm.NewMockProvider("gemini"))

	rec := doJSON(t, h.EcommerceChat, http.MethodPost, "/ecommerce-chat", `{"message":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode(t, rec)
	assert.Equal(t, string(domain.IntentGeneralInquiry), got["intent"])
	assert.Equal(t, []interface{}{"Browse Products", "View Cart", "Contact Support"}, got["suggestions"])
	assert.Contains(t, got["response"], "hello")
}

func TestSpeech(t *testing.T) {
	h := newTestHandler(llm.NewMockProvider("gemini"))

	rec := doJSON(t, h.Speech, http.MethodPost, "/speech", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Text is required", decode(t, rec)["error"])

	rec = doJSON(t, h.Speech, http.MethodPost, "/speech", `{"text":"Hello"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, 0, rec.Body.Len())
}

func TestExtractContext(t *testing.T) {
	h := newTestHandler(llm.NewMockProvider("gemini"))

	e := echo.New()
	page := `<html><head><title>Shop</title></head><body>
		<nav><a>Shirts</a><a>Cart</a></nav>
		<div class="product"><h2>Linen Shirt</h2><span class="price">$49.99</span></div>
	</body></html>`
	req := httptest.NewRequest(http.MethodPost, "/context/extract?url="+"https%3A%2F%2Fshop.example.com%2Fcollections%2Fshirts", strings.NewReader(page))
	req.Header.Set("Content-Type", "text/html")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.ExtractContext(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var pc domain.PageContext
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pc))
	assert.Equal(t, "/collections/shirts", pc.CurrentPath)
	assert.Equal(t, "Shop", pc.PageTitle)
	assert.Equal(t, []string{"Shirts"}, pc.Collections)
	require.Len(t, pc.Products, 1)
	assert.Equal(t, domain.Price("$49.99"), pc.Products[0].Price)
}

func TestHealth(t *testing.T) {
	h := newTestHandler(llm.NewMockProvider("gemini"), llm.NewGroq("", "", 0))

	rec := doJSON(t, h.Health, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode(t, rec)
	assert.Equal(t, "healthy", got["status"])
	assert.Equal(t, "gemini", got["default_provider"])
	assert.Equal(t, map[string]interface{}{"gemini": true, "groq": false}, got["providers"])
}
