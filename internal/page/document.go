package page

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// SpeakIcon is the idle markup of a speak button
const SpeakIcon = `<i class="fas fa-volume-up fa-sm"></i>`

// ErrNoParagraph is returned for an index the page does not contain
var ErrNoParagraph = errors.New("no paragraph with that index")

// ContainerID returns the element id of the translation container for index
func ContainerID(index int) string {
	return fmt.Sprintf("translation-%d", index)
}

// Document is an article page: indexed paragraphs plus the containers and
// buttons that belong to each of them
type Document struct {
	URL string

	mu         sync.Mutex
	paragraphs map[int]string
	containers map[int]*Box
	buttons    map[int]*Toggle
}

// NewDocument creates an empty document for the page at url
func NewDocument(url string) *Document {
	return &Document{
		URL:        url,
		paragraphs: make(map[int]string),
		containers: make(map[int]*Box),
		buttons:    make(map[int]*Toggle),
	}
}

// AddParagraph stores the text of paragraph index. The first text added
// for an index wins, matching document order on a parsed page.
func (d *Document) AddParagraph(index int, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.paragraphs[index]; ok {
		return
	}
	d.paragraphs[index] = text
}

// Indices returns the paragraph indices in ascending order
func (d *Document) Indices() []int {
	d.mu.Lock()
	defer d.mu.Unlock()

	indices := make([]int, 0, len(d.paragraphs))
	for i := range d.paragraphs {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

// Len returns the number of paragraphs
func (d *Document) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.paragraphs)
}

// Paragraph returns the text source for index
func (d *Document) Paragraph(index int) (TextSource, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	text, ok := d.paragraphs[index]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNoParagraph, index)
	}
	return StaticText(text), nil
}

// Container returns the translation container for index, creating a
// hidden one on first use
func (d *Document) Container(index int) *Box {
	d.mu.Lock()
	defer d.mu.Unlock()

	box, ok := d.containers[index]
	if !ok {
		box = NewBox(ContainerID(index))
		d.containers[index] = box
	}
	return box
}

// Button returns the speak button for index, creating an idle one on first use
func (d *Document) Button(index int) *Toggle {
	d.mu.Lock()
	defer d.mu.Unlock()

	btn, ok := d.buttons[index]
	if !ok {
		btn = NewToggle(SpeakIcon)
		d.buttons[index] = btn
	}
	return btn
}

// Source returns a TextSource that looks paragraph index up when it is read,
// so an unknown index surfaces as an error from Text
func (d *Document) Source(index int) TextSource {
	return paragraphRef{doc: d, index: index}
}

type paragraphRef struct {
	doc   *Document
	index int
}

func (r paragraphRef) Text() (string, error) {
	src, err := r.doc.Paragraph(r.index)
	if err != nil {
		return "", err
	}
	return src.Text()
}
