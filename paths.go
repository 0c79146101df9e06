// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package sqliteboot

import (
	"fmt"
	"os"
	"path"
	"regexp"
	"runtime"
	"strings"
)

// HostPlatform selects the path conventions used to interpret a data source.
type HostPlatform int

const (
	// PosixLike paths use "/" as the only separator and "/" as the root.
	PosixLike HostPlatform = iota
	// WindowsLike paths accept "\" and "/" as separators and may carry a drive letter.
	WindowsLike
)

func (p HostPlatform) String() string {
	switch p {
	case PosixLike:
		return "posix"
	case WindowsLike:
		return "windows"
	}
	return fmt.Sprintf("HostPlatform(%d)", int(p))
}

// DetectPlatform returns the platform of the running process.
func DetectPlatform() HostPlatform {
	if runtime.GOOS == "windows" {
		return WindowsLike
	}
	return PosixLike
}

// ParsePlatform converts "posix", "windows", or "auto" (or "") into a HostPlatform.
func ParsePlatform(s string) (HostPlatform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return DetectPlatform(), nil
	case "posix", "linux", "darwin", "unix":
		return PosixLike, nil
	case "windows":
		return WindowsLike, nil
	}
	return 0, fmt.Errorf("%q: unknown platform (want posix, windows, or auto)", s)
}

// reDriveLetter matches a Windows volume designator such as C: or c:
var reDriveLetter = regexp.MustCompile(`^[A-Za-z]:`)

// DirectoryCreationError reports that the directory for a data source could
// not be created. The database must not be opened after this error.
type DirectoryCreationError struct {
	Path string
	Err  error
}

func (e *DirectoryCreationError) Error() string {
	return fmt.Sprintf("create directory %s: %v", e.Path, e.Err)
}

func (e *DirectoryCreationError) Unwrap() error {
	return e.Err
}

// ResolveDirectory returns the directory that must exist before the database
// file named by dataSource can be opened. It does not touch the filesystem.
// The result depends only on its arguments; platform decides how both
// dataSource and cwd are parsed.
//
// ok is false when dataSource names a bare file with no directory component.
func ResolveDirectory(dataSource string, platform HostPlatform, cwd string) (dir string, ok bool) {
	isRootPath := strings.HasPrefix(dataSource, "/")

	if platform == WindowsLike {
		switch {
		case isRootPath:
			// hosted on the drive of the working directory
			rel := strings.TrimLeft(toBackslash(dataSource), `\`)
			dir = windowsDir(windowsJoin(windowsDriveRoot(cwd), rel))
		case reDriveLetter.MatchString(dataSource):
			dir = windowsDir(dataSource)
			if dir != "" {
				dir = windowsClean(dir)
			}
		default:
			dir = combineWithCwd(windowsDir(dataSource), platform, cwd)
		}
		return dir, dir != ""
	}

	if isRootPath {
		dir = posixDir(dataSource)
	} else {
		dir = combineWithCwd(posixDir(dataSource), platform, cwd)
	}
	return dir, dir != ""
}

// EnsureDirectory resolves the directory for dataSource and creates it,
// along with any missing parents. Existing directories are left alone.
// It returns the directory it ensured, or "" when there was nothing to create.
func EnsureDirectory(dataSource string, platform HostPlatform, cwd string) (string, error) {
	dir, ok := ResolveDirectory(dataSource, platform, cwd)
	if !ok {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return dir, &DirectoryCreationError{Path: dir, Err: err}
	}
	return dir, nil
}

// combineWithCwd splits a relative directory into segments and appends them
// to cwd using the platform's separator. An empty dir yields "".
func combineWithCwd(dir string, platform HostPlatform, cwd string) string {
	if dir == "" {
		return ""
	}
	if platform == WindowsLike {
		return windowsJoin(append([]string{cwd}, strings.Split(toBackslash(dir), `\`)...)...)
	}
	return path.Join(append([]string{cwd}, strings.Split(dir, "/")...)...)
}

// posixDir returns everything before the final "/" in p, or "" if p has none.
func posixDir(p string) string {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return ""
	}
	dir := strings.TrimRight(p[:i], "/")
	if dir == "" {
		return "/"
	}
	return dir
}

func toBackslash(p string) string {
	return strings.ReplaceAll(p, "/", `\`)
}

// windowsVolume returns the volume prefix of p: "C:" for drive paths,
// `\\server\share` for UNC paths, or "" when there is none.
func windowsVolume(p string) string {
	p = toBackslash(p)
	if reDriveLetter.MatchString(p) {
		return p[:2]
	}
	if !strings.HasPrefix(p, `\\`) {
		return ""
	}
	parts := strings.SplitN(p[2:], `\`, 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return ""
	}
	return `\\` + parts[0] + `\` + parts[1]
}

// windowsDriveRoot returns the root of the volume that hosts cwd, e.g. `C:\`.
func windowsDriveRoot(cwd string) string {
	return windowsVolume(cwd) + `\`
}

// windowsDir returns the directory component of p with Windows rules.
// "C:\foo\bar.db" gives "C:\foo", "C:\bar.db" gives "C:\", "bar.db" gives "".
func windowsDir(p string) string {
	p = toBackslash(p)
	vol := windowsVolume(p)
	rest := p[len(vol):]
	i := strings.LastIndex(rest, `\`)
	if i < 0 {
		return vol
	}
	dir := strings.TrimRight(rest[:i], `\`)
	if dir == "" {
		dir = `\`
	}
	return vol + dir
}

// windowsJoin joins elements with "\" and cleans the result.
func windowsJoin(elem ...string) string {
	var parts []string
	for _, e := range elem {
		if e != "" {
			parts = append(parts, e)
		}
	}
	return windowsClean(strings.Join(parts, `\`))
}

// windowsClean is path.Clean for Windows paths. It never climbs above a
// rooted path's root, and it keeps the volume intact.
func windowsClean(p string) string {
	p = toBackslash(p)
	vol := windowsVolume(p)
	rest := p[len(vol):]
	rooted := strings.HasPrefix(rest, `\`)

	var stack []string
	for _, seg := range strings.Split(rest, `\`) {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(stack) > 0 && stack[len(stack)-1] != ".." {
				stack = stack[:len(stack)-1]
			} else if !rooted {
				stack = append(stack, seg)
			}
		default:
			stack = append(stack, seg)
		}
	}

	var sb strings.Builder
	sb.WriteString(vol)
	if rooted {
		sb.WriteString(`\`)
	}
	sb.WriteString(strings.Join(stack, `\`))
	if sb.Len() == 0 {
		return "."
	}
	return sb.String()
}
