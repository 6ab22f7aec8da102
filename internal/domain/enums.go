// Package domain defines the core domain models for the voice widget.
package domain

// Role identifies who authored a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Intent is a shopping intent derived from a single utterance.
type Intent string

const (
	IntentAddToCart             Intent = "add_to_cart"
	IntentCheckout              Intent = "checkout"
	IntentShippingInfo          Intent = "shipping_info"
	IntentReturnPolicy          Intent = "return_policy"
	IntentSizeGuide             Intent = "size_guide"
	IntentDiscountInquiry       Intent = "discount_inquiry"
	IntentOrderTracking         Intent = "order_tracking"
	IntentProductComparison     Intent = "product_comparison"
	IntentProductRecommendation Intent = "product_recommendation"
	IntentGeneralInquiry        Intent = "general_inquiry"
)

// Intents lists every intent value.
var Intents = []Intent{
	IntentAddToCart,
	IntentCheckout,
	IntentShippingInfo,
	IntentReturnPolicy,
	IntentSizeGuide,
	IntentDiscountInquiry,
	IntentOrderTracking,
	IntentProductComparison,
	IntentProductRecommendation,
	IntentGeneralInquiry,
}

// Valid reports whether i belongs to the closed intent set.
func (i Intent) Valid() bool {
	for _, known := range Intents {
		if i == known {
			return true
		}
	}
	return false
}

// ScreenCorner is where the widget is anchored on the host page.
type ScreenCorner string

const (
	CornerBottomRight ScreenCorner = "bottom-right"
	CornerBottomLeft  ScreenCorner = "bottom-left"
	CornerTopRight    ScreenCorner = "top-right"
	CornerTopLeft     ScreenCorner = "top-left"
)

// Valid reports whether c is one of the four supported corners.
func (c ScreenCorner) Valid() bool {
	switch c {
	case CornerBottomRight, CornerBottomLeft, CornerTopRight, CornerTopLeft:
		return true
	}
	return false
}

// Platform names recognized as e-commerce hosts.
const (
	PlatformShopify     = "shopify"
	PlatformWooCommerce = "woocommerce"
	PlatformBigCommerce = "bigcommerce"
	PlatformMagento     = "magento"
	PlatformGeneric     = "generic"
)
