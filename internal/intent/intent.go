// Package intent classifies shopper utterances into a fixed set of intents.
package intent

import (
	"strings"

	"github.com/xiaot623/voicewidget/internal/domain"
)

type keywordGroup struct {
	intent   domain.Intent
	keywords []string
}

// groups are tested in order; the first match wins.
var groups = []keywordGroup{
	{domain.IntentAddToCart, []string{"add to cart", "buy now"}},
	{domain.IntentCheckout, []string{"checkout", "purchase"}},
	{domain.IntentShippingInfo, []string{"shipping", "delivery"}},
	{domain.IntentReturnPolicy, []string{"return", "refund"}},
	{domain.IntentSizeGuide, []string{"size", "fit"}},
	{domain.IntentDiscountInquiry, []string{"discount", "coupon", "promo"}},
	{domain.IntentOrderTracking, []string{"track", "order status"}},
	{domain.IntentProductComparison, []string{"compare", "vs"}},
	{domain.IntentProductRecommendation, []string{"recommend", "suggest"}},
}

var suggestions = map[domain.Intent][]string{
	domain.IntentAddToCart:             {"Add to Cart", "View Cart", "Continue Shopping"},
	domain.IntentCheckout:              {"Go to Checkout", "View Cart", "Apply Discount"},
	domain.IntentShippingInfo:          {"Shipping Options", "Delivery Time", "Shipping Cost"},
	domain.IntentReturnPolicy:          {"Return Policy", "Start Return", "Exchange Item"},
	domain.IntentSizeGuide:             {"Size Chart", "Size Guide", "Fit Recommendations"},
	domain.IntentDiscountInquiry:       {"Current Deals", "Discount Codes", "Sale Items"},
	domain.IntentOrderTracking:         {"Track Order", "Order Status", "Contact Support"},
	domain.IntentProductComparison:     {"Compare Products", "View Alternatives", "See Reviews"},
	domain.IntentProductRecommendation: {"Show Recommendations", "Browse Similar", "View Collection"},
}

var defaultSuggestions = []string{"Browse Products", "View Cart", "Contact Support"}

// Classify maps an utterance to an intent. Matching is plain substring
// containment on the lower-cased text, so "vs" also matches inside words.
func Classify(utterance string) domain.Intent {
	lower := strings.ToLower(utterance)
	for _, g := range groups {
		for _, kw := range g.keywords {
			if strings.Contains(lower, kw) {
				return g.intent
			}
		}
	}
	return domain.IntentGeneralInquiry
}

// Suggestions returns the quick replies offered for an intent.
func Suggestions(i domain.Intent) []string {
	list, ok := suggestions[i]
	if !ok {
		list = defaultSuggestions
	}
	return append([]string(nil), list...)
}
