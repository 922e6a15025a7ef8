package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/himanishpuri/sonicprint/internal/cli"
	"github.com/himanishpuri/sonicprint/pkg/sonicprint"
	"github.com/himanishpuri/sonicprint/pkg/sonicprint/fingerprint"
)

type DeriveCmd struct {
	File    string `arg:"" help:"Raw fingerprint JSON" type:"existingfile"`
	Name    string `short:"n" help:"Name to store the fingerprint under (defaults to the file name)"`
	Palette string `short:"p" help:"Palette image (PNG, JPEG, GIF or WebP) used to colour the points" type:"existingfile" optional:""`
	Output  string `short:"o" help:"Write the derived fingerprint as JSON to this path" type:"path" optional:""`
}

func (c *DeriveCmd) Run(g *Globals) error {
	ctx := context.Background()

	raw, err := fingerprint.ReadRawFile(c.File)
	if err != nil {
		return err
	}

	var extra []sonicprint.Option
	if c.Palette != "" {
		pal, err := fingerprint.LoadPalette(ctx, c.Palette)
		if err != nil {
			return err
		}
		extra = append(extra, sonicprint.WithPalette(pal))
	}

	svc, err := g.service(extra...)
	if err != nil {
		return err
	}
	defer svc.Close()

	name := c.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(c.File), filepath.Ext(c.File))
	}

	fp, err := svc.LoadFingerprint(ctx, name, raw)
	if err != nil {
		return err
	}

	fmt.Println(cli.TitleStyle.Render("Derived " + fp.Name))
	printInfo(fp.FingerprintInfo)

	if c.Output != "" {
		if err := writeJSON(c.Output, fp.Derived); err != nil {
			return err
		}
		cli.PrintKV("Written:", c.Output)
	}
	return nil
}

type ListCmd struct{}

func (ListCmd) Run(g *Globals) error {
	svc, err := g.service()
	if err != nil {
		return err
	}
	defer svc.Close()

	list, err := svc.ListFingerprints()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No fingerprints cached yet")
		return nil
	}

	fmt.Println(cli.TitleStyle.Render(fmt.Sprintf("%d fingerprint(s)", len(list))))
	for _, fp := range list {
		fmt.Printf("%s  %-24s %10s samples %4d features  %s\n",
			cli.KeyStyle.Render(fp.ID),
			cli.ValueStyle.Render(fp.Name),
			humanize.Comma(int64(fp.Samples)),
			fp.Features,
			cli.KeyStyle.Render(humanize.Time(fp.CreatedAt)))
	}
	return nil
}

type ShowCmd struct {
	ID   string `arg:"" help:"Fingerprint id"`
	JSON bool   `help:"Print the derived fingerprint as JSON"`
}

func (c *ShowCmd) Run(g *Globals) error {
	svc, err := g.service()
	if err != nil {
		return err
	}
	defer svc.Close()

	fp, err := svc.GetFingerprint(c.ID)
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(fp.Derived)
	}

	fmt.Println(cli.TitleStyle.Render(fp.Name))
	printInfo(fp.FingerprintInfo)
	for _, i := range fp.Derived.Features() {
		pt := fp.Derived.Coords[i]
		fmt.Printf("  feature @ x=%-8.2f y=%-8.2f level %.3f\n", pt.X, pt.Y, pt.FeatureLevel)
	}
	return nil
}

type DeleteCmd struct {
	ID string `arg:"" help:"Fingerprint id"`
}

func (c *DeleteCmd) Run(g *Globals) error {
	svc, err := g.service()
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.DeleteFingerprint(c.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", c.ID)
	return nil
}

func printInfo(info sonicprint.FingerprintInfo) {
	if info.ID != "" {
		cli.PrintKV("ID:", info.ID)
	}
	cli.PrintKV("Shape:", fmt.Sprintf("%g × %g", info.Width, info.Height))
	cli.PrintKV("Samples:", humanize.Comma(int64(info.Samples)))
	cli.PrintKV("Features:", info.Features)
	cli.PrintKV("Hash:", fmt.Sprintf("%d (%.6f)", info.Hash, info.FloatHash))
	if !info.CreatedAt.IsZero() {
		cli.PrintKV("Created:", humanize.Time(info.CreatedAt))
	}
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
