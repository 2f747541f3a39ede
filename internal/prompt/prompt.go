package prompt

import (
	"fmt"
	"strings"
)

const DefaultProductName = "Nano Banana"

type Selection struct {
	AdType       string `json:"ad_type"`
	Industry     string `json:"industry"`
	ProductName  string `json:"product_name"`
	ToneStyle    string `json:"tone_style"`
	CustomPrompt string `json:"custom_prompt"`
}

type PromptData struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	AspectRatio string `json:"aspect_ratio"`
}

var adTypes = map[string]PromptData{
	"image-ad": {
		Title:       "Image Ad",
		Description: "Perfect for social media feeds and square ad placements",
		AspectRatio: "1:1",
	},
	"banner-ad": {
		Title:       "Banner Ad",
		Description: "Wide format banners for website headers and display advertising",
		AspectRatio: "16:1",
	},
	"product-image": {
		Title:       "Product Image",
		Description: "Showcase product features with compelling marketing visuals",
		AspectRatio: "1:1",
	},
	"social-square": {
		Title:       "Social Media Square",
		Description: "Optimized for Instagram, Facebook, and LinkedIn posts",
		AspectRatio: "1:1",
	},
	"social-story": {
		Title:       "Social Media Story",
		Description: "Vertical format perfect for Instagram and Facebook Stories",
		AspectRatio: "9:16",
	},
}

var industries = map[string]string{
	"digital-agencies":  "Full Service Digital Agencies",
	"social-media":      "Social Media Marketing Agencies",
	"seo-sem":           "SEO/SEM Specialists",
	"content-marketing": "Content Marketing Agencies",
}

var toneStyles = map[string]string{
	"minimalist":   "Minimalist",
	"vibrant":      "Vibrant",
	"professional": "Professional",
	"playful":      "Playful",
}

var formatDescriptions = map[string]string{
	"image-ad":      "Create a bold and eye-catching 1:1 square image ad",
	"banner-ad":     "Design a wide 16:1 banner ad showcasing creativity and innovation",
	"product-image": "Generate a crisp 1:1 product image featuring",
	"social-square": "Create a visually engaging 1:1 social media square ad",
	"social-story":  "Design a full-screen 9:16 vertical story ad",
}

var toneDescriptions = map[string]string{
	"minimalist":   "Clean, uncluttered design with plenty of white space and simple geometric shapes.",
	"vibrant":      "Bold, eye-catching colors with dynamic energy and high contrast elements.",
	"professional": "Sophisticated business aesthetic with refined typography and polished visuals.",
	"playful":      "Fun, creative approach with whimsical elements and approachable design.",
}

var industryDescriptions = map[string]string{
	"digital-agencies":  "Modern clean layout with professional branding, fresh banana theme elements, and subtle futuristic digital agency vibes. High-quality, optimized for social feed engagement.",
	"social-media":      "Bright colors, banana-inspired elements, engaging text placement, perfect for marketing campaigns and social virality.",
	"seo-sem":           "Include simple graphics, SEO-focused visual cues, and clear product branding with attention to conversion optimization.",
	"content-marketing": "Storytelling elements with compelling narrative visuals, optimized for audience engagement and shareability.",
}

func DefaultSelection() Selection {
	return Selection{ProductName: DefaultProductName}
}

// Compose returns "" until ad type, industry and tone all name known entries.
func Compose(sel Selection) string {
	adKey := normalizeKey(sel.AdType)
	industryKey := normalizeKey(sel.Industry)
	toneKey := normalizeKey(sel.ToneStyle)
	if adKey == "" || industryKey == "" || toneKey == "" {
		return ""
	}

	ad, ok := adTypes[adKey]
	if !ok {
		return ""
	}
	industryName, ok := industries[industryKey]
	if !ok {
		return ""
	}
	toneDescription, ok := toneDescriptions[toneKey]
	if !ok {
		return ""
	}

	product := sel.ProductName

	var b strings.Builder
	b.Grow(512)
	fmt.Fprintf(&b, "%s %s (%s) for %s:\n\n", product, ad.Title, ad.AspectRatio, industryName)
	b.WriteString(`"`)
	fmt.Fprintf(&b, "%s for %s. %s %s", formatDescriptions[adKey], product, toneDescription, industryDescriptions[industryKey])
	b.WriteString(`"`)
	return b.String()
}

// ResolvePrompt prefers a typed custom prompt over the composed one.
func ResolvePrompt(sel Selection) string {
	if custom := strings.TrimSpace(sel.CustomPrompt); custom != "" {
		return custom
	}
	return Compose(sel)
}

func (s Selection) IsComplete() bool {
	return strings.TrimSpace(s.AdType) != "" &&
		strings.TrimSpace(s.Industry) != "" &&
		strings.TrimSpace(s.ProductName) != "" &&
		strings.TrimSpace(s.ToneStyle) != ""
}

func LookupAdType(key string) (PromptData, bool) {
	ad, ok := adTypes[normalizeKey(key)]
	return ad, ok
}

func IndustryName(key string) (string, bool) {
	name, ok := industries[normalizeKey(key)]
	return name, ok
}

func ToneName(key string) (string, bool) {
	name, ok := toneStyles[normalizeKey(key)]
	return name, ok
}

func normalizeKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
