package commands

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"git.home.luguber.info/inful/docschema/internal/schema"
)

// SchemaCmd implements the 'schema' command.
type SchemaCmd struct {
	Dir string `help:"Schema directory (defaults to schemas.directory of the configuration)" type:"path"`
}

func (s *SchemaCmd) Run(g *Global, root *CLI) error {
	dir := s.Dir
	if dir == "" {
		cfg, err := loadConfig(g, root)
		if err != nil {
			return err
		}
		dir = cfg.Schemas.Directory
	}
	reg, err := schema.LoadDir(dir)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TYPE\tVERSION\tPROPERTIES\tXREF\tDESCRIPTION")
	for _, docType := range reg.Types() {
		sch, _ := reg.Get(docType)
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			docType, orDash(sch.Version), len(sch.Properties), orDash(strings.Join(xrefSummary(sch), ",")), orDash(sch.Description))
	}
	return tw.Flush()
}

// xrefSummary lists the properties exported with uids anywhere in sch.
func xrefSummary(sch *schema.Schema) []string {
	seen := make(map[string]struct{})
	var walk func(*schema.Schema)
	walk = func(n *schema.Schema) {
		if n == nil {
			return
		}
		for _, p := range n.XrefProperties {
			seen[p] = struct{}{}
		}
		for _, child := range n.Properties {
			walk(child)
		}
		walk(n.Items)
	}
	walk(sch)
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
