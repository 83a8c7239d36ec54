package generator

import (
	"embed"
	"fmt"
	"html"
	"path"
	"strings"

	"github.com/flosch/pongo2/v4"

	"protobook/internal/graph"
	"protobook/internal/ir"
	"protobook/internal/symbol"
)

//go:embed templates/*
var templateFS embed.FS

var templateNames = []string{
	"page.md",
	"namespace.html",
	"file.html",
	"message.html",
	"field.html",
	"oneof.html",
	"primitive.html",
	"enum.html",
	"service.html",
	"method.html",
	"comments.html",
	"source.html",
	"backlinks.html",
}

// Renderer turns namespaces into markdown pages with embedded HTML.
type Renderer struct {
	urlRoot   string
	templates map[string]*pongo2.Template
}

// NewRenderer compiles the page templates. Source links are prefixed with
// urlRoot when it is set; without it no source links are rendered.
func NewRenderer(urlRoot string) (*Renderer, error) {
	r := &Renderer{urlRoot: urlRoot, templates: make(map[string]*pongo2.Template, len(templateNames))}
	for _, name := range templateNames {
		data, err := templateFS.ReadFile(path.Join("templates", name))
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", name, err)
		}
		tpl, err := pongo2.FromString(string(data))
		if err != nil {
			return nil, fmt.Errorf("failed to compile template %s: %w", name, err)
		}
		r.templates[name] = tpl
	}
	return r, nil
}

func (r *Renderer) exec(name string, ctx pongo2.Context) (string, error) {
	out, err := r.templates[name].Execute(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return out, nil
}

// Anchor renders a link to a symbol. The id attribute is set only for
// citations that can be back-linked to.
func Anchor(link symbol.Link) string {
	var sb strings.Builder
	sb.WriteString(`<a href="`)
	sb.WriteString(html.EscapeString(link.Href()))
	sb.WriteByte('"')
	if link.OwnID != "" {
		sb.WriteString(` id="`)
		sb.WriteString(html.EscapeString(link.OwnID))
		sb.WriteByte('"')
	}
	sb.WriteByte('>')
	sb.WriteString(html.EscapeString(link.Label()))
	sb.WriteString("</a>")
	return sb.String()
}

// RenderNamespace renders the page for one package. diagram is appended
// verbatim when non-empty.
func (r *Renderer) RenderNamespace(ns *ir.Namespace, diagram string) (string, error) {
	files := make([]string, 0, len(ns.Files))
	for _, f := range ns.Files {
		out, err := r.renderFile(f)
		if err != nil {
			return "", err
		}
		files = append(files, out)
	}

	body, err := r.exec("namespace.html", pongo2.Context{"package": ns.Package, "files": files})
	if err != nil {
		return "", err
	}

	title := ns.Package
	if title == "" {
		title = symbol.RouteRoot
	}
	return r.exec("page.md", pongo2.Context{
		"title":   title,
		"body":    compactHTML(body),
		"diagram": diagram,
	})
}

// compactHTML strips indentation and blank lines, which markdown would
// otherwise read as code blocks or the end of an HTML block.
func compactHTML(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func (r *Renderer) renderFile(f *ir.File) (string, error) {
	var messages, enums, services []string
	for _, m := range f.Messages {
		out, err := r.renderMessage(m)
		if err != nil {
			return "", err
		}
		messages = append(messages, out)
	}
	for _, e := range f.Enums {
		out, err := r.renderEnum(e)
		if err != nil {
			return "", err
		}
		enums = append(enums, out)
	}
	for _, s := range f.Services {
		out, err := r.renderService(s)
		if err != nil {
			return "", err
		}
		services = append(services, out)
	}

	return r.exec("file.html", pongo2.Context{
		"name":     f.Name,
		"messages": messages,
		"enums":    enums,
		"services": services,
	})
}

func (r *Renderer) renderMessage(m *ir.Message) (string, error) {
	common, err := r.common(m.Comments, m.Source, m.Backlinks)
	if err != nil {
		return "", err
	}

	var members []string
	for _, member := range m.Members {
		var (
			out string
			err error
		)
		if member.Oneof != nil {
			out, err = r.renderOneof(m.Link, member.Oneof)
		} else {
			out, err = r.renderField(member.Field)
		}
		if err != nil {
			return "", err
		}
		members = append(members, out)
	}

	var nested []string
	for _, child := range m.Messages {
		out, err := r.renderMessage(child)
		if err != nil {
			return "", err
		}
		nested = append(nested, out)
	}
	for _, e := range m.Enums {
		out, err := r.renderEnum(e)
		if err != nil {
			return "", err
		}
		nested = append(nested, out)
	}

	common["id"] = m.Link.ID()
	common["name"] = m.Link.Symbol
	common["deprecated"] = m.Deprecated
	common["members"] = members
	common["nested"] = nested
	return r.exec("message.html", common)
}

func (r *Renderer) renderOneof(owner symbol.Link, o *ir.Oneof) (string, error) {
	comments, err := r.renderComments(o.Comments)
	if err != nil {
		return "", err
	}
	source, err := r.renderSource(o.Source)
	if err != nil {
		return "", err
	}

	fields := make([]string, 0, len(o.Fields))
	for _, f := range o.Fields {
		out, err := r.renderField(f)
		if err != nil {
			return "", err
		}
		fields = append(fields, out)
	}

	return r.exec("oneof.html", pongo2.Context{
		"id":       owner.WithProperty(o.Name).ID(),
		"name":     o.Name,
		"comments": comments,
		"source":   source,
		"fields":   fields,
	})
}

func (r *Renderer) renderField(f *ir.Field) (string, error) {
	comments, err := r.renderComments(f.Comments)
	if err != nil {
		return "", err
	}
	source, err := r.renderSource(f.Source)
	if err != nil {
		return "", err
	}
	typ, err := r.renderType(f.Type)
	if err != nil {
		return "", err
	}

	var label string
	switch {
	case f.Repeated:
		label = "repeated"
	case f.Required:
		label = "required"
	case f.Optional:
		label = "optional"
	}

	return r.exec("field.html", pongo2.Context{
		"id":         f.Link.ID(),
		"name":       f.Name,
		"number":     f.Number,
		"label":      label,
		"type":       typ,
		"deprecated": f.Deprecated,
		"comments":   comments,
		"source":     source,
	})
}

func (r *Renderer) renderType(t ir.FieldType) (string, error) {
	switch t.Kind {
	case ir.ReferenceType:
		return Anchor(t.Ref), nil
	case ir.MapType:
		key, err := r.renderType(*t.Key)
		if err != nil {
			return "", err
		}
		value, err := r.renderType(*t.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("map&lt;%s, %s&gt;", key, value), nil
	}

	p, ok := LookupPrimitive(t.Scalar)
	if !ok {
		return "<code>" + html.EscapeString(t.String()) + "</code>", nil
	}
	rows := make([]map[string]string, 0, 9)
	for _, lang := range p.Languages() {
		rows = append(rows, map[string]string{"language": lang[0], "mapped": lang[1]})
	}
	return r.exec("primitive.html", pongo2.Context{"proto": p.Proto, "note": p.Note, "languages": rows})
}

func (r *Renderer) renderEnum(e *ir.Enum) (string, error) {
	common, err := r.common(e.Comments, e.Source, e.Backlinks)
	if err != nil {
		return "", err
	}

	values := make([]map[string]any, 0, len(e.Values))
	for _, v := range e.Values {
		comments := ""
		if !v.Comments.Empty() {
			comments = commentHTML(joinComments(v.Comments.Leading, v.Comments.Trailing))
		}
		values = append(values, map[string]any{
			"name":       v.Name,
			"number":     v.Number,
			"deprecated": v.Deprecated,
			"comments":   comments,
		})
	}

	common["id"] = e.Link.ID()
	common["name"] = e.Link.Symbol
	common["deprecated"] = e.Deprecated
	common["values"] = values
	return r.exec("enum.html", common)
}

func (r *Renderer) renderService(s *ir.Service) (string, error) {
	common, err := r.common(s.Comments, s.Source, s.Backlinks)
	if err != nil {
		return "", err
	}

	methods := make([]string, 0, len(s.Methods))
	for _, m := range s.Methods {
		out, err := r.renderMethod(m)
		if err != nil {
			return "", err
		}
		methods = append(methods, out)
	}

	common["id"] = s.Link.ID()
	common["name"] = s.Name
	common["deprecated"] = s.Deprecated
	common["methods"] = methods
	return r.exec("service.html", common)
}

func (r *Renderer) renderMethod(m *ir.Method) (string, error) {
	common, err := r.common(m.Comments, m.Source, m.Backlinks)
	if err != nil {
		return "", err
	}

	common["id"] = m.Link.ID()
	common["name"] = m.Name
	common["deprecated"] = m.Deprecated
	common["request"] = Anchor(m.Request)
	common["response"] = Anchor(m.Response)
	common["client_streaming"] = m.ClientStreaming
	common["server_streaming"] = m.ServerStreaming
	return r.exec("method.html", common)
}

// common renders the parts every addressable entity carries.
func (r *Renderer) common(c ir.Comments, src *ir.Source, backlinks []graph.Backlink) (pongo2.Context, error) {
	comments, err := r.renderComments(c)
	if err != nil {
		return nil, err
	}
	source, err := r.renderSource(src)
	if err != nil {
		return nil, err
	}
	links, err := r.RenderBacklinks(backlinks)
	if err != nil {
		return nil, err
	}
	return pongo2.Context{"comments": comments, "source": source, "backlinks": links}, nil
}

func (r *Renderer) renderComments(c ir.Comments) (string, error) {
	if c.Empty() {
		return "", nil
	}
	detached := make([]string, 0, len(c.LeadingDetached))
	for _, d := range c.LeadingDetached {
		detached = append(detached, commentHTML(d))
	}
	return r.exec("comments.html", pongo2.Context{
		"detached": detached,
		"leading":  commentHTML(c.Leading),
		"trailing": commentHTML(c.Trailing),
	})
}

// commentHTML escapes a comment block and keeps its line breaks.
// joinComments puts each non-empty comment on its own line.
func joinComments(comments ...string) string {
	parts := make([]string, 0, len(comments))
	for _, c := range comments {
		if c = strings.TrimSpace(c); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, "\n")
}

func commentHTML(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, line := range lines {
		lines[i] = html.EscapeString(strings.TrimSpace(line))
	}
	return strings.Join(lines, "<br/>")
}

func (r *Renderer) renderSource(src *ir.Source) (string, error) {
	if src == nil || r.urlRoot == "" {
		return "", nil
	}
	return r.exec("source.html", pongo2.Context{
		"href": src.Href(r.urlRoot),
		"file": src.File,
		"line": src.StartLine,
	})
}

// RenderBacklinks renders the "used by" list of an entity.
func (r *Renderer) RenderBacklinks(backlinks []graph.Backlink) (string, error) {
	if len(backlinks) == 0 {
		return "", nil
	}
	links := make([]map[string]string, 0, len(backlinks))
	for _, b := range backlinks {
		links = append(links, map[string]string{
			"kind":  string(b.Kind),
			"href":  b.Href(),
			"label": b.Label(),
		})
	}
	return r.exec("backlinks.html", pongo2.Context{"links": links})
}
