package client

import (
	"errors"
	"fmt"
	"strings"

	"fouani/storesync/internal/domain"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

var ErrNoMenu = errors.New("navigation menu not found")

type menuFrame struct {
	item   *goquery.Selection
	depth  int
	parent *domain.CategoryNode
}

// ParseMenu builds the category tree from the storefront navigation markup.
// Titles already seen inside the same top-level branch are skipped together
// with their subtree.
func ParseMenu(page string) (*domain.Tree, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	container := doc.Find("ul.main-menu.level-1").First()
	if container.Length() == 0 {
		return nil, ErrNoMenu
	}

	var roots []*domain.CategoryNode
	var created []*domain.CategoryNode

	container.ChildrenFiltered("li.item").Each(func(_ int, top *goquery.Selection) {
		seen := make(map[string]struct{})
		stack := []menuFrame{{item: top, depth: 0}}

		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			node := menuNode(f.item, f.depth, seen)
			if node == nil {
				continue
			}
			created = append(created, node)

			if f.parent == nil {
				roots = append(roots, node)
			} else {
				f.parent.Children = append(f.parent.Children, node)
			}

			children := menuChildren(f.item, f.depth)
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, menuFrame{item: children[i], depth: f.depth + 1, parent: node})
			}
		}
	})

	// Children always come after their parent in created, so walking it
	// backwards prunes bottom-up.
	for i := len(created) - 1; i >= 0; i-- {
		created[i].Children = keepCrawlable(created[i].Children)
	}

	tree := domain.NewTree(keepCrawlable(roots))
	log.Debugf("Parsed menu with %d top-level entries and %d nodes", len(tree.MainMenu), tree.Count())
	return tree, nil
}

func menuNode(item *goquery.Selection, depth int, seen map[string]struct{}) *domain.CategoryNode {
	link := item.Find("a").First()
	if link.Length() == 0 {
		return nil
	}

	title := ""
	for _, candidate := range []string{
		link.AttrOr("data-title", ""),
		link.AttrOr("title", ""),
		soleText(link),
		link.Text(),
	} {
		if title = cleanTitle(candidate); title != "" {
			break
		}
	}
	if title == "" {
		title = cleanTitle(item.Text())
	}

	if title == "" {
		return nil
	}
	if _, dup := seen[title]; dup {
		return nil
	}
	seen[title] = struct{}{}

	return &domain.CategoryNode{
		Title: title,
		Link:  strings.TrimSpace(link.AttrOr("href", "")),
		Depth: depth,
	}
}

func menuChildren(item *goquery.Selection, depth int) []*goquery.Selection {
	if !domain.CanDescend(depth) {
		return nil
	}

	var children []*goquery.Selection

	enclosures := item.Find("div.encloureClass.enclosed")
	if enclosures.Length() > 0 {
		enclosures.Each(func(_ int, enclosure *goquery.Selection) {
			enclosure.Children().Each(func(_ int, child *goquery.Selection) {
				switch {
				case child.Is("li.item"):
					children = append(children, child)
				case child.Is("ul"):
					child.ChildrenFiltered("li.item").Each(func(_ int, sub *goquery.Selection) {
						children = append(children, sub)
					})
				}
			})
		})
		return children
	}

	submenus := item.ChildrenFiltered(fmt.Sprintf("ul.main-menu.level-m.level-%d", depth+2))
	submenus.Each(func(_ int, submenu *goquery.Selection) {
		submenu.ChildrenFiltered("li.item").Each(func(_ int, sub *goquery.Selection) {
			children = append(children, sub)
		})
	})
	return children
}

func keepCrawlable(nodes []*domain.CategoryNode) []*domain.CategoryNode {
	kept := nodes[:0]
	for _, n := range nodes {
		if n.IsLeaf() && n.Link == "" {
			continue
		}
		kept = append(kept, n)
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

// cleanTitle collapses whitespace, drops an inline icon fragment and strips markup
func cleanTitle(raw string) string {
	title := strings.Join(strings.Fields(raw), " ")
	if title == "" {
		return ""
	}

	if strings.Contains(strings.ToLower(title), "i class") {
		title = strings.Split(title, "i class")[0]
		title = strings.TrimRight(title, "< ")
	}

	if strings.ContainsAny(title, "<>&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(title)); err == nil {
			title = doc.Text()
		}
	}

	return strings.TrimSpace(title)
}

// soleText returns the text of a selection that wraps exactly one string,
// possibly through single-child elements.
func soleText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}

	node := sel.Get(0)
	for node != nil {
		child := node.FirstChild
		if child == nil || child.NextSibling != nil {
			return ""
		}
		switch child.Type {
		case html.TextNode:
			return child.Data
		case html.ElementNode:
			node = child
		default:
			return ""
		}
	}
	return ""
}
