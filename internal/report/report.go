// Package report renders post listings as xlsx workbooks.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"bloh/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	MetaSheet  = "meta"
	PostsSheet = "posts"

	// ContentType is the MIME type of the rendered workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	maxColumnWidth = 60
	minColumnWidth = 8
	dateLayout     = "2006-01-02 15:04:05"
)

// PostColumns is the header row of the posts sheet.
var PostColumns = []string{
	"ID", "Type", "Status", "Title", "Author", "Created", "Updated",
	"Tags", "Likes", "Comments", "Views", "Calories", "Cooking time",
}

// Filter is the applied filter set, echoed on the meta sheet.
type Filter struct {
	DateFrom *time.Time
	DateTo   *time.Time
	Statuses []string
	PostType string
	AuthorID uint
	TagIDs   []uint
}

// Rows returns the meta sheet key/value pairs for f.
func (f Filter) Rows() [][2]string {
	day := func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format("2006-01-02")
	}
	author := ""
	if f.AuthorID != 0 {
		author = fmt.Sprint(f.AuthorID)
	}
	tags := make([]string, len(f.TagIDs))
	for i, id := range f.TagIDs {
		tags[i] = fmt.Sprint(id)
	}
	return [][2]string{
		{"date_from", day(f.DateFrom)},
		{"date_to", day(f.DateTo)},
		{"status", strings.Join(f.Statuses, ",")},
		{"post_type", f.PostType},
		{"author_id", author},
		{"tags", strings.Join(tags, ",")},
	}
}

// Posts renders posts into a two-sheet workbook and returns its bytes.
func Posts(posts []models.Post, f Filter, generatedAt time.Time) ([]byte, error) {
	wb := excelize.NewFile()
	defer func() { _ = wb.Close() }()

	if err := wb.SetSheetName("Sheet1", MetaSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := wb.NewSheet(PostsSheet); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	header, err := wb.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4F6228"}},
		Alignment: &excelize.Alignment{Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	meta := [][]any{{"Key", "Value"}, {"generated_at", generatedAt.UTC().Format(dateLayout)}}
	for _, kv := range f.Rows() {
		meta = append(meta, []any{kv[0], kv[1]})
	}
	if err := writeSheet(wb, MetaSheet, meta, header); err != nil {
		return nil, err
	}

	rows := make([][]any, 0, len(posts)+1)
	head := make([]any, len(PostColumns))
	for i, c := range PostColumns {
		head[i] = c
	}
	rows = append(rows, head)
	for _, p := range posts {
		rows = append(rows, postRow(p))
	}
	if err := writeSheet(wb, PostsSheet, rows, header); err != nil {
		return nil, err
	}

	idx, err := wb.GetSheetIndex(PostsSheet)
	if err != nil {
		return nil, fmt.Errorf("sheet index: %w", err)
	}
	wb.SetActiveSheet(idx)

	buf := bytes.NewBuffer(nil)
	if err := wb.Write(buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func postRow(p models.Post) []any {
	tags := make([]string, len(p.Tags))
	for i, t := range p.Tags {
		tags[i] = t.Name
	}
	author := p.Author.Username
	if p.Author.DisplayName != "" {
		author = p.Author.DisplayName
	}
	return []any{
		p.ID,
		string(p.PostType),
		string(p.Status),
		p.Title,
		author,
		p.CreatedAt.UTC().Format(dateLayout),
		p.UpdatedAt.UTC().Format(dateLayout),
		strings.Join(tags, ", "),
		p.LikesCount,
		p.CommentsCount,
		p.ViewsCount,
		optional(p.Calories),
		optional(p.CookingTime),
	}
}

func optional(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}

// writeSheet fills rows from A1, styles the header row and sizes every column to
// its widest cell.
func writeSheet(wb *excelize.File, sheet string, rows [][]any, header int) error {
	widths := map[int]int{}
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		if err := wb.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, r+1, err)
		}
		for c, v := range row {
			if w := utf8.RuneCountInString(fmt.Sprint(v)) + 2; w > widths[c] {
				widths[c] = w
			}
		}
	}
	if len(rows) == 0 {
		return nil
	}

	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	if err := wb.SetCellStyle(sheet, "A1", last, header); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	for c, w := range widths {
		col, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		if err := wb.SetColWidth(sheet, col, col, float64(clampWidth(w))); err != nil {
			return fmt.Errorf("size %s column %s: %w", sheet, col, err)
		}
	}
	return nil
}

func clampWidth(w int) int {
	return max(minColumnWidth, min(w, maxColumnWidth))
}
