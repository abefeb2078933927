package toolpath

import (
	"context"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/dbcop/logger"
)

// ErrNotFound means SqlPackage is not installed anywhere we know to look.
var ErrNotFound = errors.New(`SqlPackage not found: install it with "dotnet tool install -g microsoft.sqlpackage", ` +
	"install SQL Server Management Studio or SQL Server Data Tools, or pass its path with --sqlpackage")

// Locator finds the SqlPackage executable.
type Locator struct {
	Log         logger.Logger
	Cache       *Cache
	CacheKey    string   // defaults to the machine name.
	Candidates  []string // well known full paths, in order of preference.
	SearchRoots []string // directories searched recursively when no candidate exists.
	MaxDepth    int
	LookPath    func(file string) (string, error)
	ExeName     string
}

// NewLocator returns a Locator with the install locations for this OS.
func NewLocator(log logger.Logger, cache *Cache) *Locator {
	host, _ := os.Hostname()
	home, _ := os.UserHomeDir()
	return &Locator{
		Log:         log,
		Cache:       cache,
		CacheKey:    strings.ToLower(host),
		Candidates:  DefaultCandidates(runtime.GOOS, home),
		SearchRoots: DefaultSearchRoots(runtime.GOOS, home),
		MaxDepth:    8,
		LookPath:    exec.LookPath,
		ExeName:     DefaultExeName(runtime.GOOS),
	}
}

// DefaultExeName is the executable file name on goos.
func DefaultExeName(goos string) string {
	if goos == "windows" {
		return "SqlPackage.exe"
	}
	return "sqlpackage"
}

// DefaultCandidates lists common SqlPackage install paths, newest first.
func DefaultCandidates(goos string, home string) []string {
	if goos == "windows" {
		pf := []string{`C:\Program Files`, `C:\Program Files (x86)`}
		retval := make([]string, 0)
		for _, v := range []string{"160", "150", "140", "130"} {
			for _, p := range pf {
				retval = append(retval, p+`\Microsoft SQL Server\`+v+`\DAC\bin\SqlPackage.exe`)
			}
		}
		for _, ed := range []string{"Enterprise", "Professional", "Community"} {
			retval = append(retval, `C:\Program Files\Microsoft Visual Studio\2022\`+ed+`\Common7\IDE\Extensions\Microsoft\SQLDB\DAC\SqlPackage.exe`)
		}
		for _, ed := range []string{"Enterprise", "Professional", "Community"} {
			retval = append(retval, `C:\Program Files (x86)\Microsoft Visual Studio\2019\`+ed+`\Common7\IDE\Extensions\Microsoft\SQLDB\DAC\SqlPackage.exe`)
		}
		retval = append(retval,
			`C:\Program Files\Azure Data Studio\resources\app\extensions\mssql\sqltoolsservice\Windows\SqlPackage.exe`,
			`C:\Program Files (x86)\Microsoft SQL Server Management Studio 19\Common7\IDE\Extensions\Microsoft\SQLDB\DAC\SqlPackage.exe`,
			`C:\Program Files (x86)\Microsoft SQL Server Management Studio 18\Common7\IDE\Extensions\Microsoft\SQLDB\DAC\SqlPackage.exe`,
		)
		if home != "" {
			retval = append(retval, filepath.Join(home, ".dotnet", "tools", "SqlPackage.exe"))
		}
		return retval
	}
	retval := make([]string, 0)
	if home != "" {
		retval = append(retval, filepath.Join(home, ".dotnet", "tools", "sqlpackage"))
	}
	return append(retval, "/opt/sqlpackage/sqlpackage", "/usr/local/bin/sqlpackage", "/usr/local/sqlpackage/sqlpackage")
}

// DefaultSearchRoots lists directories worth a recursive search.
func DefaultSearchRoots(goos string, home string) []string {
	if goos == "windows" {
		return []string{
			`C:\Program Files\Microsoft SQL Server`,
			`C:\Program Files (x86)\Microsoft SQL Server`,
			`C:\Program Files\Microsoft Visual Studio`,
			`C:\Program Files (x86)\Microsoft Visual Studio`,
			`C:\Program Files\Azure Data Studio`,
		}
	}
	retval := []string{"/opt"}
	if home != "" {
		retval = append(retval, filepath.Join(home, ".dotnet"))
	}
	return retval
}

// Locate returns the path to use for SqlPackage.
// An explicit path wins. Then the cache, the common locations, a search of the install roots and finally PATH.
func (l *Locator) Locate(ctx context.Context, explicit string) (string, error) {
	if explicit != "" {
		if !isFile(explicit) {
			return "", errors.Wrapf(ErrNotFound, "explicit path %q does not exist", explicit)
		}
		return explicit, nil
	}
	if l.Cache != nil {
		if p, ok := l.Cache.Get(l.CacheKey); ok {
			l.Log.Debug("using cached SqlPackage path ", p)
			return p, nil
		}
	}
	p, err := l.search(ctx)
	if err != nil {
		return "", err
	}
	if l.Cache != nil {
		if err := l.Cache.Put(l.CacheKey, p); err != nil {
			l.Log.Warn("unable to save SqlPackage path to cache: ", err)
		}
	}
	return p, nil
}

func (l *Locator) search(ctx context.Context) (string, error) {
	l.Log.Debug("checking ", len(l.Candidates), " common SqlPackage locations")
	for _, c := range l.Candidates {
		if isFile(c) {
			l.Log.Info("found SqlPackage at ", c)
			return c, nil
		}
	}
	var newest string
	var newestInfo fs.FileInfo
	for _, root := range l.SearchRoots {
		if ctx.Err() != nil {
			return "", errors.Wrap(ctx.Err(), "SqlPackage search cancelled")
		}
		rootDepth := depth(root)
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.IsDir() {
				if l.MaxDepth > 0 && depth(path)-rootDepth >= l.MaxDepth {
					return filepath.SkipDir
				}
				return nil
			}
			if !strings.EqualFold(d.Name(), l.ExeName) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			if newestInfo == nil || info.ModTime().After(newestInfo.ModTime()) {
				newest, newestInfo = path, info
			}
			return nil
		})
	}
	if newest != "" {
		l.Log.Info("found SqlPackage at ", newest)
		return newest, nil
	}
	if l.LookPath != nil {
		if p, err := l.LookPath(l.ExeName); err == nil {
			l.Log.Info("found SqlPackage in PATH at ", p)
			return p, nil
		}
	}
	return "", ErrNotFound
}

func depth(path string) int {
	return strings.Count(filepath.Clean(path), string(filepath.Separator))
}
