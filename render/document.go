// Package render draws the book list and page controls.
package render

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/aluiziolira/go-book-browser/models"
)

// ErrNoControl is returned when clicking a page that has no rendered control.
var ErrNoControl = errors.New("render: no such page control")

const (
	pageHead = `<!DOCTYPE html><html><head><meta charset="utf-8"><title>Book Browser</title></head><body>`
	pageTail = `</body></html>`

	bookListSelector   = "#book-list"
	paginationSelector = "#pagination"
)

// Document is an HTML page with a book list container and a pagination
// container. Every render call empties its container before rebuilding it.
type Document struct {
	mu       sync.Mutex
	doc      *goquery.Document
	onSelect func(page int)
	policy   *bluemonday.Policy
}

// NewDocument parses the page skeleton.
func NewDocument() (*Document, error) {
	skeleton := pageHead +
		`<div id="book-list" class="book-list"></div>` +
		`<ul id="pagination" class="pagination"></ul>` +
		pageTail
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(skeleton))
	if err != nil {
		return nil, fmt.Errorf("parse page skeleton: %w", err)
	}
	return &Document{doc: doc, policy: newPolicy()}, nil
}

// RenderBookList replaces the list with one card per book.
func (d *Document) RenderBookList(books []models.Book) {
	d.mu.Lock()
	defer d.mu.Unlock()

	list := d.doc.Find(bookListSelector)
	list.Empty()
	cards := make([]*html.Node, 0, len(books))
	for _, b := range books {
		cards = append(cards, bookCard(b))
	}
	list.AppendNodes(cards...)
}

// RenderPagination replaces the controls with pages 1..totalPages and marks
// currentPage active. onSelect runs when a control is clicked.
func (d *Document) RenderPagination(totalPages, currentPage int, onSelect func(page int)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.onSelect = onSelect
	pagination := d.doc.Find(paginationSelector)
	pagination.Empty()
	controls := make([]*html.Node, 0, totalPages)
	for i := 1; i <= totalPages; i++ {
		controls = append(controls, pageControl(i, i == currentPage))
	}
	pagination.AppendNodes(controls...)
}

// RenderError replaces the list with a single error message and clears the
// page controls.
func (d *Document) RenderError(message string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.onSelect = nil
	d.doc.Find(paginationSelector).Empty()
	msg := element(atom.P, "class", "error")
	msg.AppendChild(textNode("Error: " + message))
	list := d.doc.Find(bookListSelector)
	list.Empty()
	list.AppendNodes(msg)
}

// Click activates the control for page.
func (d *Document) Click(page int) error {
	d.mu.Lock()
	control := d.doc.Find(fmt.Sprintf(`%s a.page-link[data-page="%d"]`, paginationSelector, page))
	onSelect := d.onSelect
	d.mu.Unlock()

	if control.Length() == 0 {
		return fmt.Errorf("%w: %d", ErrNoControl, page)
	}
	if onSelect != nil {
		onSelect(page)
	}
	return nil
}

// BookCards returns the number of rendered book cards.
func (d *Document) BookCards() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Find(bookListSelector + " .book-item").Length()
}

// PageControls returns the number of rendered page controls.
func (d *Document) PageControls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Find(paginationSelector + " .page-item").Length()
}

// ActivePage returns the page marked active, or 0 when none is.
func (d *Document) ActivePage() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	value, ok := d.doc.Find(paginationSelector + " .page-item.active a").Attr("data-page")
	if !ok {
		return 0
	}
	page, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return page
}

// ErrorMessages returns the text of every error node in the list.
func (d *Document) ErrorMessages() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	d.doc.Find(bookListSelector + " .error").Each(func(_ int, s *goquery.Selection) {
		out = append(out, s.Text())
	})
	return out
}

// Titles returns the titles of the rendered cards in order.
func (d *Document) Titles() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	d.doc.Find(bookListSelector + " .book-item h3").Each(func(_ int, s *goquery.Selection) {
		out = append(out, s.Text())
	})
	return out
}

// HTML serialises the page. The body goes through a sanitising policy, so
// cover links with schemes other than http and https are dropped.
func (d *Document) HTML() (string, error) {
	d.mu.Lock()
	body, err := d.doc.Find("body").Html()
	d.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("serialise body: %w", err)
	}
	return pageHead + d.policy.Sanitize(body) + pageTail, nil
}

func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("div", "h3", "p", "ul", "li", "a", "img")
	p.AllowAttrs("class", "id").Globally()
	p.AllowAttrs("src", "alt").OnElements("img")
	p.AllowAttrs("href", "data-page").OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.AllowRelativeURLs(true)
	p.RequireParseableURLs(true)
	return p
}

func bookCard(b models.Book) *html.Node {
	card := element(atom.Div, "class", "book-item")
	card.AppendChild(element(atom.Img, "src", b.CoverURL, "alt", b.Title))

	title := element(atom.H3)
	title.AppendChild(textNode(b.Title))
	card.AppendChild(title)

	author := element(atom.P)
	author.AppendChild(textNode("Author: " + b.Author))
	card.AppendChild(author)
	return card
}

func pageControl(page int, active bool) *html.Node {
	class := "page-item"
	if active {
		class += " active"
	}
	item := element(atom.Li, "class", class)

	n := strconv.Itoa(page)
	link := element(atom.A, "class", "page-link", "href", "#", "data-page", n)
	link.AppendChild(textNode(n))
	item.AppendChild(link)
	return item
}

func element(tag atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: tag, Data: tag.String()}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
