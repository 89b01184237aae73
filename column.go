package gridview

import (
	"regexp"
	"strings"
)

// Column aliases that change how a cell is rendered
const (
	AliasLink        = "Link"
	AliasLinkMenu    = "LinkMenu"
	AliasGridRowBody = "GridRowBody"
)

// ColumnDescriptor is the declarative definition of a grid column
type ColumnDescriptor struct {
	Code       string            `json:"code" yaml:"code"`
	Label      string            `json:"label,omitempty" yaml:"label,omitempty"`
	Labels     map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Type       string            `json:"type,omitempty" yaml:"type,omitempty"`
	Nested     bool              `json:"nested,omitempty" yaml:"nested,omitempty"`
	Attributes Attributes        `json:"attributes" yaml:"attributes"`
}

// Attributes are the display hints attached to a column
type Attributes struct {
	Hidden      bool   `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	Filter      bool   `json:"filter,omitempty" yaml:"filter,omitempty"`
	FilterMode  string `json:"filterMode,omitempty" yaml:"filterMode,omitempty"`
	FilterValue string `json:"filterValue,omitempty" yaml:"filterValue,omitempty"`
	SortAs      string `json:"sortAs,omitempty" yaml:"sortAs,omitempty"`
	Alias       string `json:"alias,omitempty" yaml:"alias,omitempty"`
	DatePattern string `json:"datePattern,omitempty" yaml:"datePattern,omitempty"`
	Placeholder string `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	RowExpander bool   `json:"rowExpander,omitempty" yaml:"rowExpander,omitempty"`
	Behavior    string `json:"b,omitempty" yaml:"b,omitempty"`         // event action for Link columns
	Method      string `json:"method,omitempty" yaml:"method,omitempty"` // HTTP verb for Link columns
	Summary     string `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// DisplayColumn is a prepared column ready for rendering
type DisplayColumn struct {
	ColumnDescriptor
	Field      string `json:"field"`
	Header     string `json:"header"`
	Exportable bool   `json:"exportable"`
	Kind       Kind   `json:"kind"`
	Pattern    string `json:"pattern,omitempty"` // date pattern, explicit or type default
}

// PreparedColumns is the result of preparing a column set
type PreparedColumns struct {
	Columns         []DisplayColumn
	VisibleCount    int
	HasFilters      bool
	RowExpanderCode string
}

// LabelResolver looks up the display label for a column
type LabelResolver interface {
	Label(code string, labels map[string]string) string
}

// LangLabels resolves labels for one language, falling back to English
// and then to the column code.
type LangLabels string

func (l LangLabels) Label(code string, labels map[string]string) string {
	if lbl, ok := labels[string(l)]; ok && lbl != "" {
		return lbl
	}
	if lbl, ok := labels["en"]; ok && lbl != "" {
		return lbl
	}
	return code
}

func aliasIs(alias, want string) bool {
	norm := func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "-", ""))
	}
	return norm(alias) == norm(want)
}

// PrepareColumns turns descriptors into display columns. Order is kept and
// nothing is dropped.
func PrepareColumns(descs []ColumnDescriptor, labels LabelResolver) PreparedColumns {
	if labels == nil {
		labels = LangLabels("en")
	}
	out := PreparedColumns{Columns: make([]DisplayColumn, 0, len(descs))}

	for _, d := range descs {
		header := d.Label
		if header == "" {
			header = labels.Label(d.Code, d.Labels)
		}

		col := DisplayColumn{
			ColumnDescriptor: d,
			Field:            d.Code,
			Header:           header,
			Kind:             ResolveKind(d.Type, d.Attributes.SortAs),
		}
		col.Label = header

		if col.Kind == KindDate {
			col.Pattern = d.Attributes.DatePattern
			if col.Pattern == "" {
				col.Pattern = DefaultPattern(d.Type)
			}
			if col.Pattern == "" {
				col.Pattern = PatternDate
			}
		}

		if d.Attributes.Filter {
			out.HasFilters = true
		}
		if d.Attributes.Hidden {
			col.Exportable = false
		} else {
			out.VisibleCount++
			col.Exportable = !aliasIs(d.Attributes.Alias, AliasLinkMenu) && !d.Nested
		}
		if d.Attributes.RowExpander {
			out.RowExpanderCode = d.Code
		}

		out.Columns = append(out.Columns, col)
	}
	return out
}

// Column returns the prepared column with the given code
func (p PreparedColumns) Column(code string) (*DisplayColumn, bool) {
	for i := range p.Columns {
		if p.Columns[i].Code == code {
			return &p.Columns[i], true
		}
	}
	return nil, false
}

// ShowHeader reports whether the column gets a header cell
func (c *DisplayColumn) ShowHeader() bool {
	return !c.Attributes.Hidden && !aliasIs(c.Attributes.Alias, AliasGridRowBody)
}

// ShowValue reports whether the cell renders a plain value
func (c *DisplayColumn) ShowValue() bool {
	return !c.ShowLink() && !c.ShowLinkMenu() && !c.Nested
}

func (c *DisplayColumn) ShowLink() bool {
	return aliasIs(c.Attributes.Alias, AliasLink)
}

func (c *DisplayColumn) ShowLinkMenu() bool {
	return aliasIs(c.Attributes.Alias, AliasLinkMenu)
}

var (
	defaultInputPattern = regexp.MustCompile(`^[ A-Za-z0-9_@./#&+\-,()!%{};:?<>]*$`)
	numInputPattern     = regexp.MustCompile(`^[\d\-.]*$`)
)

// AcceptsFilterInput reports whether s is acceptable as typed filter input
// for the column.
func (c *DisplayColumn) AcceptsFilterInput(s string) bool {
	if c.Kind == KindNumber {
		return numInputPattern.MatchString(s)
	}
	return defaultInputPattern.MatchString(s)
}
