package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// printer renders command results as tables or JSON.
type printer struct {
	out    io.Writer
	err    io.Writer
	asJSON bool
}

func newPrinter(out, errOut io.Writer, asJSON bool) *printer {
	return &printer{out: out, err: errOut, asJSON: asJSON}
}

func (p *printer) json(v interface{}) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// table prints rows, or v as JSON when --json is set.
func (p *printer) table(v interface{}, headers []string, rows [][]string) error {
	if p.asJSON {
		return p.json(v)
	}
	if len(rows) == 0 {
		fmt.Fprintln(p.out, "(none)")
		return nil
	}
	t := tablewriter.NewTable(p.out,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
	t.Header(headers)
	if err := t.Bulk(rows); err != nil {
		return err
	}
	return t.Render()
}

// raw prints an opaque service document.
func (p *printer) raw(doc json.RawMessage) error {
	var v interface{}
	if err := json.Unmarshal(doc, &v); err != nil {
		_, err = p.out.Write(append(doc, '\n'))
		return err
	}
	return p.json(v)
}

func (p *printer) success(format string, a ...interface{}) {
	if p.asJSON {
		return
	}
	color.New(color.FgGreen).Fprintf(p.out, format+"\n", a...)
}

func (p *printer) warn(format string, a ...interface{}) {
	color.New(color.FgYellow).Fprintf(p.err, format+"\n", a...)
}

func trendCell(trend string) string {
	switch trend {
	case "up":
		return color.GreenString("▲ up")
	case "down":
		return color.RedString("▼ down")
	case "":
		return "-"
	default:
		return trend
	}
}

func floatCell(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func strCell(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
