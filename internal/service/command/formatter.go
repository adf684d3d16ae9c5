package command

import (
	"fmt"
	"strings"

	"github.com/sandevgo/muse/internal/service/ui"
)

type ResponseFormatter struct{}

func NewResponseFormatter() *ResponseFormatter {
	return &ResponseFormatter{}
}

func (f *ResponseFormatter) Info(title string) string {
	return ui.TitleStyle.Render(title)
}

func (f *ResponseFormatter) Success(message string) string {
	return ui.SuccessStyle.Render("✓ " + message)
}

func (f *ResponseFormatter) Error(err error) string {
	return ui.ErrorStyle.Render("✗ " + err.Error())
}

func (f *ResponseFormatter) Label(label, value string) string {
	return fmt.Sprintf("%s  %s", ui.DescStyle.Render(label+":"), value)
}

func (f *ResponseFormatter) Usage(command string) string {
	return fmt.Sprintf("%s %s", ui.DescStyle.Render("usage:"), ui.UsageStyle.Render(command))
}

func (f *ResponseFormatter) List(items []string) string {
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString(fmt.Sprintf("  › %s\n", item))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// Table renders two columns, padding the first to its widest cell.
func (f *ResponseFormatter) Table(rows [][2]string) string {
	width := 0
	for _, r := range rows {
		width = max(width, len(r[0]))
	}
	var sb strings.Builder
	for _, r := range rows {
		sb.WriteString("  ")
		sb.WriteString(ui.UsageStyle.Render(fmt.Sprintf("%-*s", width, r[0])))
		sb.WriteString("  ")
		sb.WriteString(ui.DescStyle.Render(r[1]))
		sb.WriteString("\n")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func (f *ResponseFormatter) Combine(sections ...string) string {
	return strings.Join(sections, "\n")
}
