package actions

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/relloyd/dbcop/helper"
	"github.com/relloyd/dbcop/locality"
)

type AnalyzeConfig struct {
	Analyzer Analyzer         `errorTxt:"analyzer" mandatory:"yes"`
	Server   string           `errorTxt:"server or connection name" mandatory:"yes"`
	Loader   ConnectionLoader // optional, used to resolve a connection name to its server.
	JSON     bool
	Out      io.Writer
}

// RunAnalyze prints how a server would be classified and why.
// If Server names a saved connection then that connection's server is analysed.
func RunAnalyze(ctx context.Context, cfg *AnalyzeConfig) (locality.Report, error) {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return locality.Report{}, err
	}
	server := cfg.Server
	if cfg.Loader != nil && !strings.ContainsAny(server, `\,:`) {
		if p, err := cfg.Loader.LoadConnection(server); err == nil { // if the name is a connection...
			server = p.Server
		}
	}
	rpt := cfg.Analyzer.Analyze(ctx, server)
	w := out(cfg.Out)
	if cfg.JSON {
		return rpt, printJSON(w, rpt)
	}
	fmt.Fprint(w, rpt.String())
	fmt.Fprintln(w, localityBanner(rpt.Decision))
	return rpt, nil
}

func localityBanner(d locality.Decision) string {
	if d.IsLocal() {
		return color.GreenString("LOCAL: %v is this machine", d.Server)
	}
	return color.New(color.FgRed, color.Bold).Sprintf("REMOTE: %v will require confirmation before destructive changes", d.Server)
}
