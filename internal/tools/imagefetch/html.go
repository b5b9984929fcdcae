package imagefetch

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// pageAssets holds the image candidates scraped from one homepage, in
// document order.
type pageAssets struct {
	OGImage string
	Images  []imageRef
	Icons   []string
}

// imageRef is one inline <img> element with the attributes the heuristics
// inspect. Alt, Class and ParentClass are already lower-cased.
type imageRef struct {
	Src         string
	Alt         string
	Class       string
	ParentClass string
}

// parsePage walks the HTML tree once, collecting the social-preview meta
// tag, inline images, and icon links. A malformed document yields whatever
// the tolerant parser recovered.
func parsePage(r io.Reader) *pageAssets {
	doc, err := html.Parse(r)
	if err != nil {
		return &pageAssets{}
	}

	assets := &pageAssets{}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				if attr(n, "property") == "og:image" && assets.OGImage == "" {
					assets.OGImage = attr(n, "content")
				}
			case "img":
				if src := attr(n, "src"); src != "" {
					assets.Images = append(assets.Images, imageRef{
						Src:         src,
						Alt:         strings.ToLower(attr(n, "alt")),
						Class:       strings.ToLower(attr(n, "class")),
						ParentClass: strings.ToLower(parentClass(n)),
					})
				}
			case "link":
				if strings.Contains(strings.ToLower(attr(n, "rel")), "icon") {
					if href := attr(n, "href"); href != "" {
						assets.Icons = append(assets.Icons, href)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return assets
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func parentClass(n *html.Node) string {
	if n.Parent == nil || n.Parent.Type != html.ElementNode {
		return ""
	}
	return attr(n.Parent, "class")
}
