package main

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/nikbrunner/tora/internal/model"
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	return table
}

func printFolders(w io.Writer, folders []model.Folder, counts map[string]int) {
	table := newTable(w, "ID", "Name", "Order", "Links", "Private")
	for _, f := range folders {
		order := "-"
		if pos, ok := f.Order.Position(); ok {
			order = strconv.Itoa(pos)
		}
		table.Append([]string{f.ID, f.Name, order, strconv.Itoa(counts[f.ID]), yesNo(f.IsPrivate)})
	}
	table.Render()
}

func printLinks(w io.Writer, links []model.Link) {
	table := newTable(w, "ID", "Title", "URL", "Platform", "Fav", "Added")
	for _, l := range links {
		fav := ""
		if l.IsFavorite {
			fav = "★"
		}
		table.Append([]string{l.ID, l.Title, l.URL, string(l.Platform), fav, l.CreatedAt.Format(time.DateOnly)})
	}
	table.Render()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func success(w io.Writer, format string, args ...any) {
	color.New(color.FgGreen).Fprintf(w, format+"\n", args...)
}

func warn(w io.Writer, format string, args ...any) {
	color.New(color.FgYellow).Fprintf(w, format+"\n", args...)
}

func printField(w io.Writer, name, value string) {
	fmt.Fprintf(w, "%s: %s\n", color.CyanString(name), value)
}

// openTarget returns what to hand to the OS opener for a link.
func openTarget(l model.Link) string {
	if l.Platform.IsPhone() {
		return "tel:" + l.URL
	}
	return l.URL
}

// openURL opens a URL in the default browser.
func openURL(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("don't know how to open urls on %s", runtime.GOOS)
	}
	return cmd.Start()
}
