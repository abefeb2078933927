package actions

import (
	"context"
	"fmt"
	"io"

	"github.com/relloyd/dbcop/helper"
	"github.com/relloyd/dbcop/toolpath"
)

type ToolLocateConfig struct {
	Locator  *toolpath.Locator `errorTxt:"tool locator" mandatory:"yes"`
	ToolPath string            // explicit path to check instead of searching.
	Forget   bool              // drop the cached location first.
	Out      io.Writer
}

// RunToolLocate prints where SqlPackage is.
func RunToolLocate(ctx context.Context, cfg *ToolLocateConfig) (string, error) {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return "", err
	}
	if cfg.Forget && cfg.Locator.Cache != nil {
		if err := cfg.Locator.Cache.Invalidate(cfg.Locator.CacheKey); err != nil {
			return "", err
		}
	}
	p, err := cfg.Locator.Locate(ctx, cfg.ToolPath)
	if err != nil {
		return "", err
	}
	fmt.Fprintln(out(cfg.Out), p)
	return p, nil
}
