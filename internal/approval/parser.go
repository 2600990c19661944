package approval

import (
	"regexp"
	"strings"

	"planforge/internal/logging"

	"gopkg.in/yaml.v3"
)

// listIndentThreshold is the column below which a list item starts a new
// task; at or beyond it, the item is a sub-bullet of the open task.
const listIndentThreshold = 4

// placeholderAspectTitle names the synthetic aspect created when a level-4
// heading appears with no aspect open.
const placeholderAspectTitle = "General"

var (
	headingRe = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*$`)
	// Phase labels: "Phase 3", "Этап 2", "Фаза 1", optionally followed by a
	// colon/dash separator and trailing text.
	phaseRe  = regexp.MustCompile(`(?i)^((?:phase|этап|фаза)\s*\d+)\s*(?:[:\-–—]\s*(.*))?$`)
	listRe   = regexp.MustCompile(`^(\s*)(?:[-*+]|\d+[.)])\s+(.*?)\s*$`)
	boldRe   = regexp.MustCompile(`\*\*|__`)
	fenceRe  = regexp.MustCompile("^```")
)

// docMeta is the optional YAML front matter of a strategy document.
type docMeta struct {
	Title  string `yaml:"title"`
	Source string `yaml:"source"`
}

// Parse converts raw strategy markdown into an ordered forest of Aspects
// with Task children. It never fails: malformed input degrades to orphan
// tasks, placeholder aspects, or body text. Empty or whitespace-only input
// yields no aspects.
//
// An optional YAML front matter block may override the provenance tag via
// a "source" key.
func Parse(markdown string, source Source) []Aspect {
	timer := logging.StartTimer(logging.CategoryParser, "Parse")
	defer timer.Stop()

	// CRLF documents normalize up front so the front matter delimiter and
	// the line scan see the same text a Unix editor would save.
	markdown = strings.ReplaceAll(markdown, "\r\n", "\n")
	body, meta := stripFrontMatter(markdown)
	if s := Source(strings.TrimSpace(meta.Source)); s == SourceVisionary || s == SourceStrategist || s == SourcePatent {
		source = s
	}

	p := &parser{
		source: source,
		ids:    newIDGenerator(),
	}

	inFence := false
	for _, line := range strings.Split(body, "\n") {
		// Fenced code blocks pass through verbatim as body text; heading and
		// list markers inside them must not drive the state machine.
		if fenceRe.MatchString(strings.TrimLeft(line, " \t")) {
			inFence = !inFence
			p.bodyLine(line)
			continue
		}
		if inFence {
			p.bodyLine(line)
			continue
		}
		p.consume(line)
	}

	p.flushAspect()

	logging.ParserDebug("Parsed %d aspects from %d bytes (source=%s)",
		len(p.aspects), len(markdown), source)

	return p.aspects
}

// parser is the line-scan state machine. It tracks the active phase label,
// the open aspect, the open task, and the pending aspect body buffer.
type parser struct {
	source Source
	ids    *idGenerator

	phaseLabel  string
	cur         *openAspect
	task        *openTask
	pendingBody []string

	aspects []Aspect
}

// openAspect is the aspect accumulator. fromPhase marks aspects created
// directly from a phase-label heading; the first level-3 heading under such
// an aspect renames it in place instead of starting a sibling.
type openAspect struct {
	aspect    Aspect
	fromPhase bool
}

// openTask accumulates the raw text block of the task being built.
type openTask struct {
	lines []string
}

func (p *parser) consume(line string) {
	if m := headingRe.FindStringSubmatch(line); m != nil {
		level := len(m[1])
		text := m[2]
		switch level {
		case 1:
			// Document title, ignored.
		case 2:
			p.heading2(text)
		case 3:
			p.heading3(text)
		default:
			// Levels 4-6 all seed tasks.
			p.heading4(text)
		}
		return
	}

	if m := listRe.FindStringSubmatch(line); m != nil {
		p.listItem(indentColumns(m[1]), m[2])
		return
	}

	p.bodyLine(line)
}

// heading2 handles "## ..." lines: phase labels, phase groupers, and plain
// aspect headings.
func (p *parser) heading2(text string) {
	p.flushAspect()

	if label, rest, ok := matchPhase(text); ok {
		p.phaseLabel = label
		if rest != "" {
			p.startAspect(label+": "+rest, true)
		}
		// Bare phase grouper: remember the label only; the next level-3
		// heading becomes the aspect.
		return
	}

	p.startAspect(p.qualify(text), false)
}

// heading3 handles "### ..." lines. The first level-3 heading under a
// freshly opened phase aspect merges into it (rename in place); otherwise a
// new aspect starts.
func (p *parser) heading3(text string) {
	p.flushTask()

	switch {
	case p.cur == nil:
		p.startAspect(p.qualify(text), false)
	case p.cur.fromPhase && len(p.cur.aspect.Tasks) == 0 && len(p.pendingBody) == 0:
		title := p.qualify(text)
		p.cur.aspect.Title = title
		p.cur.aspect.OriginalTitle = title
		p.cur.fromPhase = false
	default:
		p.flushAspect()
		p.startAspect(p.qualify(text), false)
	}
}

// heading4 handles "#### ..." (and deeper) lines: they seed tasks,
// synthesizing a placeholder aspect when none is open.
func (p *parser) heading4(text string) {
	p.flushTask()

	if p.cur == nil {
		p.startAspect(p.qualify(placeholderAspectTitle), false)
	}
	p.startTask(text)
}

// listItem routes a bullet/numbered item: below the indent threshold it
// starts a new task, at or beyond it the item becomes a sub-bullet of the
// open task.
func (p *parser) listItem(indent int, text string) {
	if p.cur == nil {
		// List items are tasks only when attached to an open aspect.
		p.pendingBody = append(p.pendingBody, text)
		return
	}

	if indent >= listIndentThreshold && p.task != nil {
		p.task.lines = append(p.task.lines, "  - "+text)
		return
	}

	p.flushTask()
	p.startTask(text)
}

// bodyLine appends a plain line to the open task, or to the pending aspect
// body when no task is open. Blank lines are dropped.
func (p *parser) bodyLine(line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}
	if p.task != nil {
		p.task.lines = append(p.task.lines, trimmed)
		return
	}
	p.pendingBody = append(p.pendingBody, trimmed)
}

func (p *parser) startAspect(title string, fromPhase bool) {
	p.cur = &openAspect{
		aspect: Aspect{
			ID:            p.ids.next(),
			Title:         title,
			OriginalTitle: title,
			Status:        StatusPending,
			Source:        p.source,
		},
		fromPhase: fromPhase,
	}
}

func (p *parser) startTask(seed string) {
	p.task = &openTask{lines: []string{seed}}
}

// flushTask finalizes the open task, if any: the first accumulated line
// (bold markers removed) becomes the title, the whole block the body.
func (p *parser) flushTask() {
	if p.task == nil {
		return
	}
	text := strings.TrimSpace(strings.Join(p.task.lines, "\n"))
	p.task = nil
	if text == "" {
		return
	}
	if p.cur == nil {
		// Defensive: a task with no aspect degrades to pending body text.
		p.pendingBody = append(p.pendingBody, text)
		return
	}

	title := firstLine(text)
	title = strings.TrimSpace(boldRe.ReplaceAllString(title, ""))

	p.cur.aspect.Tasks = append(p.cur.aspect.Tasks, Task{
		ID:            p.ids.next(),
		Title:         title,
		OriginalTitle: title,
		Body:          text,
		OriginalBody:  text,
		Status:        StatusPending,
		Source:        p.source,
	})
}

// flushAspect finalizes the open aspect. Pending body lines become the
// aspect body (prepended if a body already exists). Aspects that ended up
// with neither tasks nor body are dropped, so consecutive level-2 headings
// emit nothing.
func (p *parser) flushAspect() {
	if p.cur == nil {
		p.pendingBody = nil
		return
	}
	p.flushTask()

	a := p.cur.aspect
	p.cur = nil

	if body := strings.TrimSpace(strings.Join(p.pendingBody, "\n")); body != "" {
		if a.Body != "" {
			a.Body = body + "\n" + a.Body
		} else {
			a.Body = body
		}
	}
	p.pendingBody = nil
	a.OriginalBody = a.Body

	if a.Title == "" || (len(a.Tasks) == 0 && a.Body == "") {
		return
	}
	p.aspects = append(p.aspects, a)
}

// qualify prefixes a title with the active phase label, if any.
func (p *parser) qualify(title string) string {
	if p.phaseLabel == "" {
		return title
	}
	return p.phaseLabel + ": " + title
}

// matchPhase extracts a phase label ("Phase 1", "Этап 2") and the trailing
// text after its separator. ok is false for non-phase headings.
func matchPhase(text string) (label, rest string, ok bool) {
	m := phaseRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", "", false
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
}

// stripFrontMatter removes a leading YAML front matter block and decodes it
// best-effort; malformed front matter is returned untouched as body text.
func stripFrontMatter(markdown string) (string, docMeta) {
	var meta docMeta

	rest, found := strings.CutPrefix(markdown, "---\n")
	if !found {
		return markdown, meta
	}
	block, body, found := strings.Cut(rest, "\n---")
	if !found {
		return markdown, meta
	}
	if err := yaml.Unmarshal([]byte(block), &meta); err != nil {
		logging.ParserDebug("Ignoring malformed front matter: %v", err)
		return markdown, docMeta{}
	}
	// Drop the remainder of the closing delimiter line.
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = ""
	}
	return body, meta
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// indentColumns computes the display column of the first non-blank rune,
// expanding tabs to 4 columns.
func indentColumns(ws string) int {
	cols := 0
	for _, r := range ws {
		if r == '\t' {
			cols += 4
		} else {
			cols++
		}
	}
	return cols
}
