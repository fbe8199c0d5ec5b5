// Package display renders run progress as colored console tables and
// banners, mirroring the layout operators of the original tool expect.
package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/jonathan/poseidon-uploader/internal/orchestrator"
	"github.com/jonathan/poseidon-uploader/internal/poseidon"
)

const (
	bannerWidth = 80
	nameWidth   = 20
)

// Printer implements orchestrator.Reporter against an io.Writer.
type Printer struct {
	out io.Writer
}

// NewPrinter writes progress output to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Banner prints the startup banner.
func (p *Printer) Banner(title string) {
	line := "┬" + strings.Repeat("─", bannerWidth-2) + "┬"
	fmt.Fprintln(p.out, color.CyanString(line))
	fmt.Fprintln(p.out, color.CyanString("│ %-*s │", bannerWidth-4, title))
	fmt.Fprintln(p.out, color.CyanString("┴"+strings.Repeat("─", bannerWidth-2)+"┴"))
}

// AccountHeader prints the pre-run identity block for one account.
func (p *Printer) AccountHeader(tag, ip string, info poseidon.UserInfo) {
	p.Banner("Account Info " + tag)
	p.info("IP", ip)
	p.info("Username", info.Username)
	fmt.Fprintln(p.out)
}

// AccountStats prints the post-run stats block for one account.
func (p *Printer) AccountStats(tag string, info poseidon.UserInfo) {
	p.Banner("Account Stats " + tag)
	p.info("Username", info.Username)
	p.info("Address", info.Address)
	p.info("Points", fmt.Sprintf("%v", info.Points))
	fmt.Fprintln(p.out)
}

func (p *Printer) info(label, value string) {
	fmt.Fprintf(p.out, "%-15s: %s\n", label, color.CyanString(value))
}

// Campaigns prints the campaign table for one account.
func (p *Printer) Campaigns(campaigns []poseidon.Campaign) {
	border := "+----------------------+----------+-------+----------+"
	fmt.Fprintln(p.out, color.HiCyanString(border))
	fmt.Fprintln(p.out, color.HiCyanString("| Campaign Name        | Language | Tags  |  Status  |"))
	fmt.Fprintln(p.out, color.HiCyanString(border))
	for _, c := range campaigns {
		status := color.HiYellowString("Pending")
		if c.Active() {
			status = color.HiGreenString("Active ")
		}
		fmt.Fprintf(p.out, "| %-*s | %-8s | %-5s | %s  |\n",
			nameWidth, Truncate(c.Name, nameWidth),
			c.Language(),
			Truncate(joinOr(c.Tags, "N/A"), 5),
			status)
	}
	fmt.Fprintln(p.out, color.HiCyanString(border))
}

// Uploads prints the upload result table for one account.
func (p *Printer) Uploads(records []orchestrator.UploadRecord) {
	border := "+----------------------+-----------------+"
	fmt.Fprintln(p.out, color.HiCyanString(border))
	fmt.Fprintln(p.out, color.HiCyanString("| Campaign Title       | Upload Status   |"))
	fmt.Fprintln(p.out, color.HiCyanString(border))
	for _, rec := range records {
		status := color.HiRedString("%-15s", string(rec.Status))
		if rec.Status == orchestrator.StatusSuccess {
			status = color.HiGreenString("%-15s", string(rec.Status))
		}
		fmt.Fprintf(p.out, "| %-*s | %s |\n", nameWidth, Truncate(rec.CampaignTitle, nameWidth), status)
	}
	fmt.Fprintln(p.out, color.HiCyanString(border))
}

// Truncate shortens s to width characters, marking the cut with "...".
func Truncate(s string, width int) string {
	if s == "" {
		return "Unknown"
	}
	if len(s) <= width {
		return s
	}
	if width <= 3 {
		return s[:width]
	}
	return s[:width-3] + "..."
}

func joinOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, ", ")
}
