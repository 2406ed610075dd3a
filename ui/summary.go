package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"

	"iisprov/provision"
)

var (
	colorGreen  = lipgloss.Color("#22c55e")
	colorYellow = lipgloss.Color("#eab308")
	colorRed    = lipgloss.Color("#ef4444")
	colorDim    = lipgloss.Color("#6b7280")
	colorWhite  = lipgloss.Color("#f9fafb")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(colorDim)
)

var summaryHeaders = []string{"站点", "域名", "物理路径", "状态", "HTTPS", "证书"}

// IsTerminal w 是否为交互式终端
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// PrintSummary 输出站点汇总表，终端下带颜色
func PrintSummary(w io.Writer, report *provision.Report) {
	fmt.Fprint(w, RenderSummary(report, IsTerminal(w)))
}

// RenderSummary 生成站点汇总表，styled 为 false 时只用 ASCII 边框、不带颜色
func RenderSummary(report *provision.Report, styled bool) string {
	var b strings.Builder

	b.WriteString("\n")
	if styled {
		b.WriteString(titleStyle.Render("站点汇总"))
	} else {
		b.WriteString("站点汇总")
	}
	b.WriteString("\n")

	rows := make([][]string, 0, len(report.Sites))
	for _, s := range report.Sites {
		rows = append(rows, siteRow(s))
	}

	t := table.New().
		Headers(summaryHeaders...).
		Rows(rows...)

	if styled {
		t = t.Border(lipgloss.RoundedBorder()).
			BorderStyle(dimStyle).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				if row < 0 || row >= len(report.Sites) {
					return cellStyle
				}
				switch col {
				case 3:
					return cellStyle.Foreground(siteColor(report.Sites[row]))
				case 4:
					return cellStyle.Foreground(bindingColor(report.Sites[row].Binding))
				}
				return cellStyle
			})
	} else {
		t = t.Border(lipgloss.ASCIIBorder()).
			StyleFunc(func(row, col int) lipgloss.Style {
				return cellStyle
			})
	}

	b.WriteString(t.String())
	b.WriteString("\n")

	if line := stepsLine(report); line != "" {
		if styled {
			line = dimStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func siteRow(s provision.SiteResult) []string {
	https := "否"
	if s.HTTPS() {
		https = "是"
	}
	if s.Binding != provision.BindingNone {
		https = fmt.Sprintf("%s (%s)", https, s.Binding)
	}

	thumb := s.Thumbprint
	if len(thumb) > 8 {
		thumb = strings.ToUpper(thumb[:8]) + "…"
	}
	if thumb == "" {
		thumb = "-"
	}

	return []string{s.Site, s.Domain, s.PhysicalPath, s.Outcome.String(), https, thumb}
}

func siteColor(s provision.SiteResult) lipgloss.Color {
	if s.Outcome == provision.SiteFailed {
		return colorRed
	}
	return colorGreen
}

func bindingColor(o provision.BindingOutcome) lipgloss.Color {
	switch o {
	case provision.BindingConfigured, provision.BindingSkippedExisting:
		return colorGreen
	case provision.BindingFailed:
		return colorRed
	case provision.BindingNoCertificate, provision.BindingNoMatchingCertificate:
		return colorYellow
	default:
		return colorDim
	}
}

// stepsLine 站点之外各步骤的一行摘要
func stepsLine(report *provision.Report) string {
	var parts []string

	if len(report.Features) > 0 {
		counts := map[provision.FeatureOutcome]int{}
		for _, f := range report.Features {
			counts[f.Outcome]++
		}
		parts = append(parts, fmt.Sprintf("功能: 已启用 %d, 新启用 %d, 不支持 %d, 失败 %d",
			counts[provision.FeatureAlreadyEnabled], counts[provision.FeatureEnabled],
			counts[provision.FeatureUnsupported], counts[provision.FeatureFailed]))
	}
	if report.Module != nil {
		parts = append(parts, fmt.Sprintf("%s: %s", report.Module.Module, report.Module.Outcome))
	}
	if report.Redirect != nil {
		parts = append(parts, fmt.Sprintf("跳转规则: %s", report.Redirect.Outcome))
	}
	if len(report.Certificates) > 0 {
		imported := 0
		for _, c := range report.Certificates {
			if c.Outcome == provision.CertImported {
				imported++
			}
		}
		parts = append(parts, fmt.Sprintf("证书: 导入 %d/%d", imported, len(report.Certificates)))
	}

	return strings.Join(parts, " | ")
}
