// Package utils holds small path-resolution helpers shared by cmd/clover
// and internal/pipeline. Grounded on the teacher's internal/utils
// path_utils.go (ResolveImportPath/ExtractModuleName/GetModuleDir: plain
// filepath munging with no package-manager logic).
package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// SourceExt is clover's recognized source file extension.
const SourceExt = ".clj"

// HasSourceExt reports whether path ends in clover's source extension,
// mirroring the teacher's config.HasSourceExt.
func HasSourceExt(path string) bool {
	return strings.HasSuffix(path, SourceExt)
}

// NamespaceToRelPath converts a namespace symbol like "my.app.core" into
// the relative file path "my/app/core.clj" it would load from, munging
// dashes to underscores the way Clojure's own classpath loader does
// ("my-app" -> "my_app") since filesystems don't special-case '-'.
func NamespaceToRelPath(ns string) string {
	parts := strings.Split(ns, ".")
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(p, "-", "_")
	}
	return filepath.Join(parts...) + SourceExt
}

// FindNamespaceFile searches searchPath, in order, for ns's source
// file, returning the first match. Used only by cmd/clover to resolve
// the namespace named on the command line into an initial file to load
// before the REPL starts — ordinary (require ...) forms evaluated at
// runtime never hit this path, since clover's require only resolves
// already-loaded namespaces (see evaluator/core.go's requireSpec).
func FindNamespaceFile(searchPath []string, ns string) (string, bool) {
	rel := NamespaceToRelPath(ns)
	for _, dir := range searchPath {
		candidate := filepath.Join(dir, rel)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}
