// Package extract builds a PageContext from a host page's HTML. It applies
// the same policy as the host script: structured platform globals first,
// DOM heuristics second, capped and never failing.
package extract

import (
	"encoding/json"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/xiaot623/voicewidget/internal/domain"
)

// Selectors and limits shared with the host script.
const (
	ProductSelector      = "[data-product-id], .product, .product-item"
	ProductTitleSelector = ".product-title, .product__title, h1, h2"
	ProductPriceSelector = `.price, .product-price, [class*="price"]`
	NavLinkSelector      = "nav a, .nav-item a, .collection-link"
	CartCountSelector    = ".cart-count, [data-cart-count], .cart__count, .header__cart-count"

	MaxCollectionNameLen = 50
)

var (
	shopifyMetaPattern = regexp.MustCompile(`(?s)var\s+meta\s*=\s*(\{.*?\});`)
	leadingDigits      = regexp.MustCompile(`^\d+`)
)

// FromHTML extracts a PageContext from r. pageURL fills the path and URL
// fields. Any parse problem yields an empty context, never an error.
func FromHTML(r io.Reader, pageURL string) (pc domain.PageContext) {
	pc = domain.EmptyPageContext()
	pc.PageURL = pageURL
	if u, err := url.Parse(pageURL); err == nil {
		pc.CurrentPath = u.Path
	}
	pc.Platform = domain.PlatformGeneric

	defer func() {
		if rec := recover(); rec != nil {
			log.Warn().Interface("panic", rec).Str("url", pageURL).Msg("context extraction aborted")
			pc.Products = []domain.Product{}
			pc.Collections = []string{}
			pc.Cart = domain.Cart{}
		}
	}()

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		log.Debug().Err(err).Str("url", pageURL).Msg("failed to parse host page")
		return pc
	}

	pc.PageTitle = strings.TrimSpace(doc.Find("title").First().Text())
	pc.Platform = detectPlatform(doc)

	pc.Products = structuredProducts(doc)
	if len(pc.Products) == 0 {
		pc.Products = domProducts(doc)
	}
	pc.Collections = collections(doc)
	pc.Cart = domain.Cart{ItemCount: cartCount(doc)}

	return pc.Capped()
}

func detectPlatform(doc *goquery.Document) string {
	platform := domain.PlatformGeneric
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		if strings.Contains(s.Text(), "ShopifyAnalytics") || strings.Contains(src, "cdn.shopify.com") {
			platform = domain.PlatformShopify
			return false
		}
		return true
	})
	if platform != domain.PlatformGeneric {
		return platform
	}
	if doc.Find("body.woocommerce, body.woocommerce-page").Length() > 0 {
		return domain.PlatformWooCommerce
	}
	return platform
}

type shopifyMeta struct {
	Product *struct {
		ID     json.Number  `json:"id"`
		Title  string       `json:"title"`
		Price  domain.Price `json:"price"`
		Vendor string       `json:"vendor"`
		Type   string       `json:"type"`
	} `json:"product"`
}

// structuredProducts reads the product from an inline ShopifyAnalytics meta
// assignment, the static equivalent of window.ShopifyAnalytics.meta.
func structuredProducts(doc *goquery.Document) []domain.Product {
	var products []domain.Product
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		m := shopifyMetaPattern.FindStringSubmatch(s.Text())
		if m == nil {
			return true
		}
		var meta shopifyMeta
		if err := json.Unmarshal([]byte(m[1]), &meta); err != nil || meta.Product == nil {
			return true
		}
		p := meta.Product
		if p.Title == "" {
			return true
		}
		products = append(products, domain.Product{
			ID:     p.ID.String(),
			Title:  p.Title,
			Price:  p.Price,
			Vendor: p.Vendor,
			Type:   p.Type,
		})
		return false
	})
	return products
}

func domProducts(doc *goquery.Document) []domain.Product {
	products := []domain.Product{}
	doc.Find(ProductSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		title := strings.TrimSpace(s.Find(ProductTitleSelector).First().Text())
		if title == "" {
			return true
		}
		id, _ := s.Attr("data-product-id")
		products = append(products, domain.Product{
			ID:    id,
			Title: title,
			Price: domain.Price(strings.TrimSpace(s.Find(ProductPriceSelector).First().Text())),
		})
		return len(products) < domain.MaxProducts
	})
	return products
}

func collections(doc *goquery.Document) []string {
	names := []string{}
	doc.Find(NavLinkSelector).Each(func(_ int, s *goquery.Selection) {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" || len(text) >= MaxCollectionNameLen {
			return
		}
		lower := strings.ToLower(text)
		if strings.Contains(lower, "cart") || strings.Contains(lower, "account") {
			return
		}
		names = append(names, text)
	})
	return names
}

// cartCount takes the largest count badge, parsing leading digits the way
// parseInt does.
func cartCount(doc *goquery.Document) int {
	count := 0
	doc.Find(CartCountSelector).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			text, _ = s.Attr("data-cart-count")
		}
		digits := leadingDigits.FindString(strings.TrimSpace(text))
		if digits == "" {
			return
		}
		if n, err := strconv.Atoi(digits); err == nil && n > count {
			count = n
		}
	})
	return count
}
