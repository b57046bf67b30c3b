package command

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/vupar/vp-cache/internal/cache"
	"github.com/vupar/vp-cache/internal/namespace"
)

// Format 是 stat 命令支持的输出格式。
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatYAML  Format = "yaml"
	FormatIDs   Format = "ids"
	FormatCount Format = "count"
)

// ParseFormat 未知格式回退为 table。
func ParseFormat(raw string) Format {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatJSON, FormatCSV, FormatYAML, FormatIDs, FormatCount:
		return f
	default:
		return FormatTable
	}
}

// StatRow 是 stat 输出的一行。
type StatRow struct {
	Name        string `json:"name" yaml:"name"`
	Count       int    `json:"count" yaml:"count"`
	Description string `json:"description" yaml:"description"`
}

// StatRows 每个命名空间一行，随后是 typed/root/total 汇总行。
func StatRows(stat cache.Stat) []StatRow {
	rows := make([]StatRow, 0, len(stat.Namespaces)+3)
	for _, name := range stat.Names() {
		rows = append(rows, StatRow{
			Name:        name,
			Count:       stat.Namespaces[name],
			Description: namespace.Describe(name),
		})
	}
	return append(rows,
		StatRow{Name: "typed", Count: stat.Typed, Description: "Sum of all typed cache entries (part, menu,...)"},
		StatRow{Name: "root", Count: stat.Root, Description: "Number of root cache entries, without type"},
		StatRow{Name: "total", Count: stat.Total, Description: "Sum of all typed and root cache entries"},
	)
}

// WriteStat 以指定格式输出统计信息。
func WriteStat(w io.Writer, stat cache.Stat, format Format) error {
	rows := StatRows(stat)

	switch format {
	case FormatJSON:
		return json.NewEncoder(w).Encode(rows)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"name", "count", "description"}); err != nil {
			return err
		}
		for _, row := range rows {
			if err := cw.Write([]string{row.Name, strconv.Itoa(row.Count), row.Description}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	case FormatIDs:
		names := make([]string, len(rows))
		for i, row := range rows {
			names[i] = row.Name
		}
		_, err := fmt.Fprintln(w, strings.Join(names, " "))
		return err
	case FormatCount:
		_, err := fmt.Fprintln(w, len(rows))
		return err
	default:
		return writeTable(w, rows, stat.Bytes)
	}
}

func writeTable(w io.Writer, rows []StatRow, size int64) error {
	data := make([][]string, len(rows))
	for i, row := range rows {
		data[i] = []string{row.Name, humanize.Comma(int64(row.Count)), row.Description}
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("name", "count", "description").
		Rows(data...)

	if _, err := fmt.Fprintln(w, t.String()); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Size on disk: %s\n", humanize.Bytes(uint64(size)))
	return err
}
