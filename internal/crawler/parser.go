package crawler

import (
	"bytes"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

// ExtractHrefs parses document bytes and returns the raw href attribute
// strings of all anchor elements, in document order. An unparsable document
// or one without anchors yields an empty result, never an error: at this
// granularity parse failures are silently treated as "no links".
//
// Design decision: We use golang.org/x/net/html rather than regex because
// it correctly handles the malformed HTML common on the web, and its
// tolerant parser returns a usable tree for almost any input.
func ExtractHrefs(body []byte, contentType string) []string {
	if len(body) == 0 {
		return nil
	}

	// Sniff the encoding from the Content-Type header and the document
	// itself, then decode to UTF-8 before parsing.
	enc, _, _ := charset.DetermineEncoding(body, contentType)
	reader := transform.NewReader(bytes.NewReader(body), enc.NewDecoder())

	doc, err := html.Parse(reader)
	if err != nil {
		return nil
	}

	var hrefs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href := getAttr(n, "href"); href != "" {
				hrefs = append(hrefs, href)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return hrefs
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
