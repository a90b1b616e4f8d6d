package queue

import (
	"strings"
)

// Section header spellings. The queue file is edited by humans in two
// languages; both spellings of each header are accepted on read. Writing
// always uses the English form.
var sectionHeaders = map[Status][]string{
	StatusPending:    {"pending", "à faire", "a faire"},
	StatusInProgress: {"in progress", "in-progress", "en cours"},
	StatusDone:       {"done", "terminé", "termine", "fait"},
}

var writtenHeaders = map[Status]string{
	StatusPending:    "## Pending",
	StatusInProgress: "## In Progress",
	StatusDone:       "## Done",
}

// document is the parsed queue file: missions grouped by section, in file
// order within each section.
type document struct {
	sections map[Status][]Mission
}

func newDocument() *document {
	return &document{sections: map[Status][]Mission{}}
}

// headerStatus matches a line against the known section headers, tolerating
// leading '#' markers and case differences.
func headerStatus(line string) (Status, bool) {
	h := strings.TrimSpace(line)
	h = strings.TrimLeft(h, "#")
	h = strings.ToLower(strings.TrimSpace(h))
	if h == "" {
		return "", false
	}
	for status, spellings := range sectionHeaders {
		for _, s := range spellings {
			if h == s {
				return status, true
			}
		}
	}
	return "", false
}

// parseDocument reads the queue file contents. Lines before the first
// recognized header and non-mission lines inside sections are ignored;
// rewriting the file normalizes its layout.
func parseDocument(content string) *document {
	doc := newDocument()
	var current Status
	haveSection := false

	for _, line := range strings.Split(content, "\n") {
		if status, ok := headerStatus(line); ok {
			current = status
			haveSection = true
			continue
		}
		if !haveSection {
			continue
		}
		if m, ok := parseMissionLine(line, current); ok {
			doc.sections[current] = append(doc.sections[current], m)
		}
	}
	return doc
}

// render serializes the document back to file form. All three sections are
// always present so humans and the bridge process have stable anchors to
// append under.
func (d *document) render() string {
	var b strings.Builder
	for _, status := range []Status{StatusPending, StatusInProgress, StatusDone} {
		b.WriteString(writtenHeaders[status])
		b.WriteString("\n")
		for _, m := range d.sections[status] {
			b.WriteString(m.Line())
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// remove deletes the first mission with the given key from a section,
// returning it and whether it was found.
func (d *document) remove(status Status, key string) (Mission, bool) {
	list := d.sections[status]
	for i, m := range list {
		if m.Key() == key {
			d.sections[status] = append(list[:i:i], list[i+1:]...)
			return m, true
		}
	}
	return Mission{}, false
}

// add appends a mission to a section.
func (d *document) add(status Status, m Mission) {
	m.Status = status
	d.sections[status] = append(d.sections[status], m)
}
