package icons

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/iconsync/internal/logging"
	"github.com/JakeFAU/iconsync/internal/svg"
)

// ImportDirectory loads every *.svg file in dir into a new set. Files that do
// not parse or whose name has no usable characters are logged and skipped.
// When two files map to the same icon name the later one in directory order
// wins and a warning is logged. A missing or unreadable directory is an
// error.
func ImportDirectory(dir, prefix string, logger *zap.Logger) (*Set, error) {
	logger = logging.OrNop(logger)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", dir, err)
	}

	set := NewSet(prefix)
	origin := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".svg") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		name := IconName(e.Name())
		if name == "" {
			logger.Warn("skipping icon without a usable name", zap.String("path", path))
			continue
		}
		// #nosec G304 -- path is built from a directory listing.
		raw, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("skipping unreadable icon", zap.String("path", path), zap.Error(err))
			continue
		}
		doc, err := svg.Parse(string(raw))
		if err != nil {
			logger.Warn("skipping invalid icon", zap.String("path", path), zap.Error(err))
			continue
		}
		if err := set.FromSVG(name, doc); err != nil {
			logger.Warn("skipping empty icon", zap.String("path", path), zap.Error(err))
			continue
		}
		if prev, dup := origin[name]; dup {
			logger.Warn("icon name collision, replacing earlier file",
				zap.String("icon", set.FullName(name)),
				zap.String("replaced", prev),
				zap.String("path", path),
			)
		}
		origin[name] = path
	}
	return set, nil
}

// IconName derives an icon name from a file name: lower case, with runs of
// characters outside [a-z0-9] collapsed to a single dash.
func IconName(fileName string) string {
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(base) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
