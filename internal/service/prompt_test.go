package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xiaot623/voicewidget/internal/domain"
)

func TestBuildSystemPromptDefault(t *testing.T) {
	assert.Equal(t, basePersona, BuildSystemPrompt(nil, nil))
}

func TestBuildSystemPromptWebsite(t *testing.T) {
	pc := &domain.PageContext{
		CurrentPath: "/blog/post",
		PageTitle:   "Our Blog",
		PageURL:     "https://example.org/blog/post",
		Platform:    "generic",
	}

	prompt := BuildSystemPrompt(pc, nil)

	assert.Contains(t, prompt, basePersona)
	assert.Contains(t, prompt, "WEBSITE CONTEXT:")
	assert.Contains(t, prompt, "- Page Title: Our Blog")
	assert.NotContains(t, prompt, "shopping assistant")
}

func TestBuildSystemPromptShop(t *testing.T) {
	available := true
	pc := &domain.PageContext{
		CurrentPath: "/collections/summer",
		Platform:    "WooCommerce",
		Products: []domain.Product{{
			Title:     "Linen Shirt",
			Price:     "$35.00",
			Vendor:    "Acme",
			Available: &available,
			Tags:      []string{"linen", "summer"},
			Variants:  []domain.Variant{{Title: "M", Price: "35"}, {Title: "L"}},
		}},
		Collections: []string{"Summer", "Sale"},
		Cart: domain.Cart{
			ItemCount:  2,
			TotalPrice: "70",
			Items:      []domain.CartItem{{Title: "Linen Shirt", Quantity: 2}},
		},
		Customer: &domain.Customer{FirstName: "Ada"},
	}
	cfg := &domain.WidgetConfig{DisplayName: "Acme Store", PlatformDomain: "acme.test"}

	prompt := BuildSystemPrompt(pc, cfg)

	assert.Contains(t, prompt, "AI shopping assistant")
	assert.Contains(t, prompt, "WOOCOMMERCE STORE CONTEXT:")
	assert.Contains(t, prompt, "- Store: Acme Store")
	assert.Contains(t, prompt, "- Domain: acme.test")
	assert.Contains(t, prompt, "- Page Type: collection")
	assert.Contains(t, prompt, "Name: Linen Shirt | Price: $35.00 | Vendor: Acme | Available: Yes | Tags: linen, summer | Variants: M ($35), L")
	assert.Contains(t, prompt, "COLLECTIONS: Summer, Sale")
	assert.Contains(t, prompt, "- Items: 2")
	assert.Contains(t, prompt, "- Total: $70")
	assert.Contains(t, prompt, "- Products: Linen Shirt (2x)")
	assert.Contains(t, prompt, "CUSTOMER: Ada")
	assert.Contains(t, prompt, "1-3 sentences")
}

func TestPageType(t *testing.T) {
	cases := map[string]string{
		"":                 "unknown",
		"/":                "home",
		"/products/hat":    "product",
		"/collections/all": "collection",
		"/cart":            "cart",
		"/checkout/step-1": "checkout",
		"/pages/about-us":  "page",
	}
	for path, want := range cases {
		assert.Equal(t, want, PageType(path), path)
	}
}
