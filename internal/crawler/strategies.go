package crawler

import (
	"github.com/PuerkitoBio/goquery"
)

// Field lookup tables. New page variants are supported by adding rows.

func isAnchor(s *goquery.Selection) bool {
	return goquery.NodeName(s) == "a"
}

// LinkStrategies locate the product page link
var LinkStrategies = []Strategy{
	{Name: "fragment-anchor", Extract: When(isAnchor, Attr("href"))},
	{Name: "product-anchor", Selector: `a[data-testid*="product"][href], a[class*="product"][href]`, Extract: Attr("href")},
	{Name: "first-anchor", Selector: `a[href]:not([href^="#"]):not([href^="javascript"])`, Extract: Attr("href")},
}

// ImageStrategies locate the product image
var ImageStrategies = []Strategy{
	{Name: "img-src", Selector: "img", Extract: FirstAttr("src", "data-src", "data-lazy-src", "data-original")},
	{Name: "img-srcset", Selector: "img[srcset], img[data-srcset]", Extract: SrcSetFirst("srcset")},
	{Name: "picture-source", Selector: "picture source[srcset]", Extract: SrcSetFirst("srcset")},
}

// TitleStrategies: dedicated title markup, then headings, then image alt text
var TitleStrategies = []Strategy{
	{Name: "title-markup", Selector: `[data-testid="product-title"], [data-testid="product-name"], [itemprop="name"], [class*="product-title"], [class*="productTitle"], [class*="product-name"], [class*="productName"]`, Extract: Text()},
	{Name: "heading", Selector: "h1, h2, h3, h4, h5, h6", Extract: Text()},
	{Name: "image-alt", Selector: "img[alt]", Extract: Attr("alt")},
	{Name: "anchor-title", Selector: "a[title]", Extract: Attr("title")},
}

// BrandStrategies: dedicated brand markup, then anchors to a brand page
var BrandStrategies = []Strategy{
	{Name: "brand-markup", Selector: `[data-testid*="brand"], [itemprop="brand"], [class*="brand"], [class*="Brand"]`, Extract: Text()},
	{Name: "brand-anchor", Selector: `a[href*="/brand"], a[href*="/brands/"], a[href*="/marke"], a[href*="/marken/"]`, Extract: Text()},
}
