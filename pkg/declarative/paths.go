package declarative

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gooddata/gdc/pkg/catalog"
)

// IsRoot reports whether dir contains the gooddata.yaml marker.
func IsRoot(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, catalog.RootMarkerFile))
	return err == nil && !info.IsDir()
}

// checkRoot returns ErrNotRoot unless root is a directory with the marker.
func checkRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrNotRoot, root)
	}
	if !IsRoot(root) {
		return fmt.Errorf("%w: %s does not contain %s", ErrNotRoot, root, catalog.RootMarkerFile)
	}
	return nil
}

// GranularTarget is a supported subtree of an organization layout.
type GranularTarget struct {
	Root      string // organization root with gooddata.yaml
	Analytics string // <root>/analytics
	Subtree   string // one of catalog.SupportedSubtrees
}

// ResolveGranular checks that dir is <root>/analytics/<subtree> for a
// supported subtree. The subtree itself does not have to exist yet.
func ResolveGranular(dir string) (GranularTarget, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return GranularTarget{}, fmt.Errorf("%w: %s: %v", ErrUnsupportedPath, dir, err)
	}
	analytics := filepath.Dir(abs)
	root := filepath.Dir(analytics)
	subtree := filepath.Base(abs)

	if filepath.Base(analytics) != catalog.LayoutAnalyticsDir || !catalog.IsSupportedSubtree(subtree) || !IsRoot(root) {
		return GranularTarget{}, fmt.Errorf("%w: %s", ErrUnsupportedPath, dir)
	}
	return GranularTarget{Root: root, Analytics: analytics, Subtree: subtree}, nil
}

// FindRoot returns dir when it is an organization root, or the root two
// levels up when dir is a supported subtree.
func FindRoot(dir string) (string, error) {
	if IsRoot(dir) {
		return dir, nil
	}
	t, err := ResolveGranular(dir)
	if err != nil {
		return "", err
	}
	return t.Root, nil
}
