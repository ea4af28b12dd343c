package source

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/vburojevic/pricewatch/internal/domain"
)

// ErrNoPrice is returned when no selector yields a parseable price.
var ErrNoPrice = errors.New("no price found")

// Parser extracts a price from a product page.
//
// Order: the custom selector when set, then the split whole/fraction spans,
// then the screen-reader price. The first parseable match wins.
type Parser struct {
	selector string
}

func NewParser(selector string) *Parser {
	return &Parser{selector: strings.TrimSpace(selector)}
}

// Parse reads an HTML document and returns its price.
func (p *Parser) Parse(r io.Reader) (domain.Price, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return 0, fmt.Errorf("parse html: %w", err)
	}
	return p.ParseDocument(doc)
}

func (p *Parser) ParseDocument(doc *goquery.Document) (domain.Price, error) {
	if p.selector != "" {
		if price, ok := firstPrice(doc.Find(p.selector)); ok {
			return price, nil
		}
	}

	whole := doc.Find("span.a-price-whole").First()
	fraction := doc.Find("span.a-price-fraction").First()
	if whole.Length() > 0 && fraction.Length() > 0 {
		if price, err := domain.PriceFromParts(whole.Text(), fraction.Text()); err == nil {
			return price, nil
		}
	}

	if price, ok := firstPrice(doc.Find("span.a-offscreen")); ok {
		return price, nil
	}
	return 0, ErrNoPrice
}

func firstPrice(sel *goquery.Selection) (domain.Price, bool) {
	var (
		found domain.Price
		ok    bool
	)
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if v, ok2 := s.Attr("content"); ok2 && text == "" {
			text = v
		}
		price, err := domain.ParsePrice(text)
		if err != nil {
			return true
		}
		found, ok = price, true
		return false
	})
	return found, ok
}
