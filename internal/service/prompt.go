package service

import (
	"fmt"
	"strings"

	"github.com/xiaot623/voicewidget/internal/domain"
)

const basePersona = "You are a helpful AI voice assistant. Keep your responses conversational, concise, and natural for voice interaction. " +
	"Aim for responses that are 1-3 sentences long unless more detail is specifically requested. Be friendly, engaging, and helpful."

const shoppingPersona = `You are an AI shopping assistant for an online store. Your role is to help customers with:

1. PRODUCT ASSISTANCE:
   - Answer questions about the products on the current page
   - Explain product features, benefits, and specifications
   - Help with size guides and variant selection
   - Compare products and suggest alternatives

2. STORE HELP:
   - Guide customers through checkout
   - Explain shipping options and policies
   - Assist with discount codes and promotions
   - Handle return and exchange inquiries

3. SHOPPING GUIDANCE:
   - Provide personalized recommendations
   - Help find products based on needs
   - Suggest complementary items

4. CUSTOMER SERVICE:
   - Answer store policy questions
   - Help with order tracking questions
   - Refer complex issues to human support

CONVERSATION STYLE:
- Be friendly, helpful, and conversational
- Keep responses concise for voice interaction (1-3 sentences) unless the customer asks for more detail
- Ask clarifying questions when needed
- Use the customer's name if available

LIMITATIONS:
- You cannot process payments or place orders
- You cannot access real customer order history
- You cannot modify store settings or inventory`

// BuildSystemPrompt returns the system instruction for one request. A
// recognized e-commerce platform gets the shopping persona with the page
// context appended verbatim; any other context gets a short website block.
func BuildSystemPrompt(pc *domain.PageContext, cfg *domain.WidgetConfig) string {
	if pc == nil {
		return basePersona
	}

	var b strings.Builder
	if domain.IsCommercePlatform(pc.Platform) {
		b.WriteString(shoppingPersona)
		writeStoreContext(&b, pc, cfg)
		writeProducts(&b, pc.Products)
		writeCollections(&b, pc.Collections)
		writeCart(&b, pc.Cart)
		if pc.Customer != nil && pc.Customer.FirstName != "" {
			fmt.Fprintf(&b, "\n\nCUSTOMER: %s", pc.Customer.FirstName)
		}
		return b.String()
	}

	b.WriteString(basePersona)
	b.WriteString("\n\nWEBSITE CONTEXT:")
	fmt.Fprintf(&b, "\n- Current Page: %s", orUnknown(pc.CurrentPath))
	fmt.Fprintf(&b, "\n- Page Title: %s", orUnknown(pc.PageTitle))
	fmt.Fprintf(&b, "\n- URL: %s", orUnknown(pc.PageURL))
	writeProducts(&b, pc.Products)
	writeCollections(&b, pc.Collections)
	return b.String()
}

func writeStoreContext(b *strings.Builder, pc *domain.PageContext, cfg *domain.WidgetConfig) {
	store := "Online Store"
	if cfg != nil && cfg.DisplayName != "" {
		store = cfg.DisplayName
	}
	fmt.Fprintf(b, "\n\n%s STORE CONTEXT:", strings.ToUpper(pc.Platform))
	fmt.Fprintf(b, "\n- Store: %s", store)
	if cfg != nil && cfg.PlatformDomain != "" {
		fmt.Fprintf(b, "\n- Domain: %s", cfg.PlatformDomain)
	}
	fmt.Fprintf(b, "\n- Current Page: %s", orUnknown(pc.CurrentPath))
	fmt.Fprintf(b, "\n- Page Type: %s", PageType(pc.CurrentPath))
	if pc.PageTitle != "" {
		fmt.Fprintf(b, "\n- Page Title: %s", pc.PageTitle)
	}
}

func writeProducts(b *strings.Builder, products []domain.Product) {
	if len(products) == 0 {
		return
	}
	b.WriteString("\n\nPRODUCTS ON PAGE:")
	for _, p := range products {
		fields := []string{"Name: " + orUnknown(p.Title)}
		if p.Price != "" {
			fields = append(fields, "Price: "+p.Price.Display())
		}
		if p.Vendor != "" {
			fields = append(fields, "Vendor: "+p.Vendor)
		}
		if p.Type != "" {
			fields = append(fields, "Type: "+p.Type)
		}
		if p.Available != nil {
			fields = append(fields, "Available: "+yesNo(*p.Available))
		}
		if len(p.Tags) > 0 {
			fields = append(fields, "Tags: "+strings.Join(p.Tags, ", "))
		}
		if len(p.Variants) > 0 {
			variants := make([]string, 0, len(p.Variants))
			for _, v := range p.Variants {
				if v.Price != "" {
					variants = append(variants, fmt.Sprintf("%s (%s)", v.Title, v.Price.Display()))
				} else {
					variants = append(variants, v.Title)
				}
			}
			fields = append(fields, "Variants: "+strings.Join(variants, ", "))
		}
		fmt.Fprintf(b, "\n- %s", strings.Join(fields, " | "))
	}
}

func writeCollections(b *strings.Builder, collections []string) {
	if len(collections) == 0 {
		return
	}
	fmt.Fprintf(b, "\n\nCOLLECTIONS: %s", strings.Join(collections, ", "))
}

func writeCart(b *strings.Builder, cart domain.Cart) {
	b.WriteString("\n\nCUSTOMER CART:")
	fmt.Fprintf(b, "\n- Items: %d", cart.ItemCount)
	if cart.TotalPrice != "" {
		fmt.Fprintf(b, "\n- Total: %s", cart.TotalPrice.Display())
	}
	if len(cart.Items) > 0 {
		items := make([]string, 0, len(cart.Items))
		for _, item := range cart.Items {
			items = append(items, fmt.Sprintf("%s (%dx)", item.Title, item.Quantity))
		}
		fmt.Fprintf(b, "\n- Products: %s", strings.Join(items, ", "))
	}
}

// PageType derives a coarse page kind from a storefront path.
func PageType(path string) string {
	switch {
	case path == "":
		return "unknown"
	case path == "/":
		return "home"
	case strings.Contains(path, "/products/"):
		return "product"
	case strings.Contains(path, "/collections/"):
		return "collection"
	case strings.Contains(path, "/cart"):
		return "cart"
	case strings.Contains(path, "/checkout"):
		return "checkout"
	}
	return "page"
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
