package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/template"

	"github.com/de-tools/cloud-audit/pkg/models/api"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want table, json or yaml)", s)
	}
}

type TableConfig struct {
	NameWidth       int
	LocationWidth   int
	KindWidth       int
	AttributesWidth int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		NameWidth:       40,
		LocationWidth:   16,
		KindWidth:       20,
		AttributesWidth: 54,
	}
}

type Reporter struct {
	writer io.Writer
	config TableConfig
	format Format
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{
		writer: writer,
		config: DefaultTableConfig(),
		format: FormatTable,
	}
}

// WithFormat returns a reporter writing to the same destination in format f.
func (c *Reporter) WithFormat(f Format) *Reporter {
	clone := *c
	clone.format = f
	return &clone
}

type checkSection struct {
	Name   string
	Result api.CheckResult
}

type reportView struct {
	api.AuditReport
	Sections []checkSection
}

const reportTemplate = `
Audit {{.RunID}} for project {{.ProjectID}}
Started: {{.StartedAt.Format "2006-01-02 15:04:05"}}  Finished: {{.FinishedAt.Format "2006-01-02 15:04:05"}}
{{if .Failed}}Failed checks: {{join .Failed ", "}}
{{end}}
{{range .Sections}}
=== {{.Name}} ({{.Result.DurationMs}} ms) ===
{{if .Result.Error}}FAILED [{{.Result.Error.Kind}}{{if .Result.Error.ResourceKind}}/{{.Result.Error.ResourceKind}}{{end}}]: {{.Result.Error.Message}}
{{else if not .Result.Findings}}No findings
{{else}}{{separator}}
{{formatRow "Resource" "Location" "Kind" "Attributes"}}
{{separator}}
{{range .Result.Findings}}{{formatRow .ResourceName .Location .ResourceKind (attributes .Attributes)}}
{{end}}{{separator}}
{{end}}{{end}}`

const catalogTemplate = `{{range .}}{{.Name}}
  {{.Description}}
  resources: {{join .ResourceKinds ", "}}
{{end}}`

func (c *Reporter) Handle(report *api.AuditReport) error {
	switch c.format {
	case FormatJSON:
		return c.writeJSON(report)
	case FormatYAML:
		return c.writeYAML(report)
	}

	view := reportView{AuditReport: *report}
	names := make([]string, 0, len(report.Results))
	for name := range report.Results {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		view.Sections = append(view.Sections, checkSection{Name: name, Result: report.Results[name]})
	}

	t, err := template.New("report").Funcs(c.funcMap()).Parse(reportTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return t.Execute(c.writer, view)
}

func (c *Reporter) HandleCatalog(infos []api.CheckInfo) error {
	switch c.format {
	case FormatJSON:
		return c.writeJSON(infos)
	case FormatYAML:
		return c.writeYAML(infos)
	}

	t, err := template.New("catalog").Funcs(c.funcMap()).Parse(catalogTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return t.Execute(c.writer, infos)
}

func (c *Reporter) funcMap() template.FuncMap {
	return template.FuncMap{
		"formatRow": func(name, location, kind, attrs string) string {
			return fmt.Sprintf("| %-*s | %-*s | %-*s | %-*s |",
				c.config.NameWidth, name,
				c.config.LocationWidth, location,
				c.config.KindWidth, kind,
				c.config.AttributesWidth, attrs)
		},
		"separator": func() string {
			return fmt.Sprintf("+%s+%s+%s+%s+",
				strings.Repeat("-", c.config.NameWidth+2),
				strings.Repeat("-", c.config.LocationWidth+2),
				strings.Repeat("-", c.config.KindWidth+2),
				strings.Repeat("-", c.config.AttributesWidth+2))
		},
		"attributes": formatAttributes,
		"join":       strings.Join,
	}
}

// formatAttributes renders k=v pairs in key order.
func formatAttributes(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+attrs[k])
	}
	return strings.Join(pairs, " ")
}

func (c *Reporter) writeJSON(v any) error {
	enc := json.NewEncoder(c.writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	return nil
}

func (c *Reporter) writeYAML(v any) error {
	enc := yaml.NewEncoder(c.writer)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}
