package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

const (
	// MaxProducts caps the products carried in a PageContext.
	MaxProducts = 10
	// MaxCollections caps the deduplicated collection names in a PageContext.
	MaxCollections = 8
)

// PageContext is a snapshot of host-page signals used to ground a reply.
type PageContext struct {
	CurrentPath string    `json:"currentPath"`
	PageTitle   string    `json:"pageTitle"`
	PageURL     string    `json:"pageUrl"`
	Platform    string    `json:"platform"`
	Products    []Product `json:"products"`
	Collections []string  `json:"collections"`
	Cart        Cart      `json:"cart"`
	Customer    *Customer `json:"customer,omitempty"`
}

// Product is a product visible on the host page.
type Product struct {
	ID        string    `json:"id,omitempty"`
	Title     string    `json:"title"`
	Price     Price     `json:"price,omitempty"`
	Vendor    string    `json:"vendor,omitempty"`
	Type      string    `json:"type,omitempty"`
	Available *bool     `json:"available,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Variants  []Variant `json:"variants,omitempty"`
}

// Variant is a purchasable option of a product.
type Variant struct {
	Title string `json:"title"`
	Price Price  `json:"price,omitempty"`
}

// Cart summarizes the host page's shopping cart.
type Cart struct {
	ItemCount  int        `json:"itemCount"`
	TotalPrice Price      `json:"totalPrice,omitempty"`
	Items      []CartItem `json:"items,omitempty"`
}

// CartItem is one line in the cart.
type CartItem struct {
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
	Price    Price  `json:"price,omitempty"`
}

// Customer holds the little we know about the shopper.
type Customer struct {
	FirstName string `json:"firstName,omitempty"`
}

// EmptyPageContext returns a context with non-nil empty lists.
func EmptyPageContext() PageContext {
	return PageContext{
		Products:    []Product{},
		Collections: []string{},
	}
}

// Price is a product price as scraped from a page. Structured sources send
// numbers, DOM scraping sends text such as "$49.99"; both decode into Price.
type Price string

// UnmarshalJSON accepts a JSON number, string or null.
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Price(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = Price(n.String())
	return nil
}

// Numeric reports whether the price is a bare number.
func (p Price) Numeric() bool {
	_, err := strconv.ParseFloat(string(p), 64)
	return err == nil
}

// Display formats the price for a prompt: bare numbers get a dollar sign,
// scraped text is returned as is.
func (p Price) Display() string {
	if p == "" {
		return ""
	}
	if p.Numeric() {
		return "$" + string(p)
	}
	return string(p)
}

// Capped returns a copy of c with the product and collection limits applied
// and collections deduplicated in first-seen order.
func (c PageContext) Capped() PageContext {
	if len(c.Products) > MaxProducts {
		c.Products = append([]Product(nil), c.Products[:MaxProducts]...)
	}
	if c.Products == nil {
		c.Products = []Product{}
	}
	seen := make(map[string]bool, len(c.Collections))
	collections := make([]string, 0, len(c.Collections))
	for _, name := range c.Collections {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		collections = append(collections, name)
		if len(collections) == MaxCollections {
			break
		}
	}
	c.Collections = collections
	return c
}
