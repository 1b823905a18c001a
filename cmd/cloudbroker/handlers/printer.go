package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"sigs.k8s.io/yaml"
)

// Colors matching the palette of the other terminal output.
var (
	colorGreen = lipgloss.Color("#22c55e")
	colorRed   = lipgloss.Color("#ef4444")
	colorBlue  = lipgloss.Color("#3b82f6")
	colorDim   = lipgloss.Color("#6b7280")
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Padding(0, 1)

	plainHeaderStyle = lipgloss.NewStyle().PaddingRight(3)
	plainCellStyle   = lipgloss.NewStyle().PaddingRight(3)

	successStyle = lipgloss.NewStyle().Foreground(colorGreen)
	failureStyle = lipgloss.NewStyle().Foreground(colorRed)
)

// view is the tabular rendering of a result.
type view struct {
	headers []string
	rows    [][]string
}

// printer renders results in one output format.
type printer struct {
	out    io.Writer
	format string
	tty    bool
}

func newPrinter(out io.Writer, format string, tty bool) (*printer, error) {
	switch format {
	case "":
		format = OutputTable
	case OutputTable, OutputJSON, OutputYAML:
	default:
		return nil, fmt.Errorf("unknown output format %q (valid: %s, %s, %s)", format, OutputTable, OutputJSON, OutputYAML)
	}
	return &printer{out: out, format: format, tty: tty}, nil
}

// print writes v as JSON or YAML, or the table built by render.
func (p *printer) print(v any, render func() view) error {
	switch p.format {
	case OutputJSON:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		_, err = fmt.Fprintln(p.out, string(b))
		return err
	case OutputYAML:
		b, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		_, err = p.out.Write(b)
		return err
	default:
		_, err := fmt.Fprintln(p.out, p.table(render()))
		return err
	}
}

// message writes a status line, colored on a terminal.
func (p *printer) message(ok bool, format string, args ...any) error {
	line := fmt.Sprintf(format, args...)
	if p.tty {
		style := successStyle
		if !ok {
			style = failureStyle
		}
		line = style.Render(line)
	}
	_, err := fmt.Fprintln(p.out, line)
	return err
}

// raw writes text as is, whatever the output format.
func (p *printer) raw(text string) error {
	_, err := io.WriteString(p.out, text)
	return err
}

func (p *printer) table(v view) string {
	t := table.New().Headers(v.headers...).Rows(v.rows...)
	if p.tty {
		return t.
			Border(lipgloss.RoundedBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
			StyleFunc(func(row, _ int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			}).
			String()
	}
	return t.
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return plainHeaderStyle
			}
			return plainCellStyle
		}).
		String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// limit renders a quota allocation, -1 meaning unlimited.
func limit(n int) string {
	if n < 0 {
		return "unlimited"
	}
	return strconv.Itoa(n)
}
