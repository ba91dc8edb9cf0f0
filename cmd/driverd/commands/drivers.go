package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"

	"git.home.luguber.info/inful/driverd/internal/driver"
)

// DriversCmd implements the 'drivers' command: a dry run of discovery.
type DriversCmd struct {
	Dir string `help:"Driver directory; overrides the config file" type:"path"`
}

func (d *DriversCmd) Run(g *Global, root *CLI) error {
	dir := d.Dir
	var files []string
	if dir == "" {
		cfg, _, err := root.loadConfig()
		if err != nil {
			return err
		}
		dir, files = cfg.Drivers.Dir, cfg.Drivers.MetadataFiles
	}
	return ListDrivers(context.Background(), g.out(), dir, files)
}

// ListDrivers discovers the driver packages under dir and prints which of
// them a daemon would register.
func ListDrivers(ctx context.Context, out io.Writer, dir string, metadataFiles []string) error {
	loader := &driver.Loader{MetadataFiles: metadataFiles}
	candidates, err := loader.Discover(ctx, dir)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		_, _ = fmt.Fprintf(out, "No driver packages found in %s\n", dir)
		return nil
	}

	winners := make(map[string]driver.Version)
	for _, c := range candidates {
		if c.Err != nil {
			continue
		}
		if best, ok := winners[c.Descriptor.Name]; !ok || best.Less(c.Descriptor.Version) {
			winners[c.Descriptor.Name] = c.Descriptor.Version
		}
	}

	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	rows := make([][]string, 0, len(candidates))
	for _, c := range candidates {
		pkg := filepath.Base(c.Dir)
		if c.Err != nil {
			rows = append(rows, []string{pkg, "", "", "", red("skipped: " + c.Err.Error())})
			continue
		}
		desc := c.Descriptor
		status := green("active")
		if winners[desc.Name] != desc.Version {
			status = yellow("superseded")
		}
		rows = append(rows, []string{pkg, desc.Name, string(desc.Version), desc.FactoryKey(), status})
	}

	_, _ = fmt.Fprintln(out, renderTable(
		[]string{"Package", "Name", "Version", "Type", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))
	return nil
}
