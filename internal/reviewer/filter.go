package reviewer

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/maxbolgarin/logze/v2"
	"github.com/maxbolgarin/revline/internal/model"
	"github.com/maxbolgarin/revline/internal/reviewer/diffparser"
)

// FileCategory is a coarse classification of a changed file
type FileCategory string

const (
	CategorySource    FileCategory = "source"
	CategoryTest      FileCategory = "test"
	CategoryDoc       FileCategory = "doc"
	CategoryGenerated FileCategory = "generated"
	CategoryConfig    FileCategory = "config"
	CategoryBinary    FileCategory = "binary"
)

// FilterOptions selects which files are dropped before review.
// Deleted, binary and patchless-and-empty files are always dropped.
type FilterOptions struct {
	SkipAutoGenerated bool     `yaml:"skip_auto_generated" env:"REVIEW_FILTER_SKIP_AUTO_GENERATED" env-default:"true"`
	SkipDocs          bool     `yaml:"skip_docs" env:"REVIEW_FILTER_SKIP_DOCS"`
	SkipTests         bool     `yaml:"skip_tests" env:"REVIEW_FILTER_SKIP_TESTS"`
	SkipWhitespace    bool     `yaml:"skip_whitespace" env:"REVIEW_FILTER_SKIP_WHITESPACE" env-default:"true"`
	MaxFileSize       int      `yaml:"max_file_size" env:"REVIEW_FILTER_MAX_FILE_SIZE"`
	ExcludedPaths     []string `yaml:"excluded_paths" env:"REVIEW_FILTER_EXCLUDED_PATHS"`
	MaxFiles          int      `yaml:"max_files" env:"REVIEW_FILTER_MAX_FILES"`
}

var (
	lockFiles = map[string]bool{
		"package-lock.json": true,
		"yarn.lock":         true,
		"pnpm-lock.yaml":    true,
		"go.sum":            true,
		"cargo.lock":        true,
		"poetry.lock":       true,
		"pipfile.lock":      true,
		"composer.lock":     true,
		"gemfile.lock":      true,
		"bun.lockb":         true,
	}
	generatedDirs     = []string{"dist/", "build/", "vendor/", "node_modules/", "out/", ".next/", "coverage/"}
	generatedSuffixes = []string{".min.js", ".min.css", ".bundle.js", ".pb.go", ".pb.gw.go", "_pb2.py", ".map"}
	generatedInfixes  = []string{"_generated.", ".generated.", ".gen."}

	docExtensions = map[string]bool{".md": true, ".rst": true, ".adoc": true, ".markdown": true}
	docNames      = map[string]bool{"license.txt": true, "changelog.txt": true, "notice.txt": true, "authors.txt": true}

	testDirs     = []string{"/tests/", "/test/", "__tests__/", "/spec/"}
	testSuffixes = []string{"_test.go", "_test.py", "_spec.rb"}
	testInfixes  = []string{".test.", ".spec."}

	configExtensions = map[string]bool{
		".yaml": true, ".yml": true, ".json": true, ".toml": true, ".ini": true,
		".cfg": true, ".conf": true, ".env": true, ".properties": true,
	}
	configNames = map[string]bool{
		"dockerfile": true, "makefile": true, "cmakelists.txt": true,
		"requirements.txt": true, "requirements-dev.txt": true, "constraints.txt": true,
	}
	binaryExtensions = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true, ".webp": true,
		".pdf": true, ".zip": true, ".gz": true, ".tar": true, ".jar": true, ".exe": true,
		".dll": true, ".so": true, ".dylib": true, ".woff": true, ".woff2": true, ".ttf": true,
		".mp4": true, ".mp3": true, ".wasm": true,
	}
)

// Categorize classifies a path. Generated wins over test, test over doc.
func Categorize(filePath string) FileCategory {
	p := strings.ToLower(filepath.ToSlash(filePath))
	base := path.Base(p)
	ext := path.Ext(p)

	switch {
	case binaryExtensions[ext]:
		return CategoryBinary
	case isGenerated(p, base):
		return CategoryGenerated
	case isTest(p, base):
		return CategoryTest
	case docExtensions[ext] || docNames[base]:
		return CategoryDoc
	case configExtensions[ext] || configNames[base]:
		return CategoryConfig
	default:
		return CategorySource
	}
}

func isGenerated(p, base string) bool {
	if lockFiles[base] {
		return true
	}
	for _, dir := range generatedDirs {
		if strings.HasPrefix(p, dir) || strings.Contains(p, "/"+dir) {
			return true
		}
	}
	for _, s := range generatedSuffixes {
		if strings.HasSuffix(base, s) {
			return true
		}
	}
	for _, s := range generatedInfixes {
		if strings.Contains(base, s) {
			return true
		}
	}
	return false
}

func isTest(p, base string) bool {
	if strings.HasPrefix(base, "test_") && strings.HasSuffix(base, ".py") {
		return true
	}
	for _, s := range testSuffixes {
		if strings.HasSuffix(base, s) {
			return true
		}
	}
	for _, s := range testInfixes {
		if strings.Contains(base, s) {
			return true
		}
	}
	slashed := "/" + p
	for _, dir := range testDirs {
		if strings.Contains(slashed, dir) {
			return true
		}
	}
	return false
}

func isExcludedPath(filePath string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, filePath); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, filepath.Base(filePath)); matched {
			return true
		}
		if strings.HasSuffix(pattern, "/") && strings.HasPrefix(filePath, pattern) {
			return true
		}
	}
	return false
}

// skipReason returns a non-empty reason if the file must not be reviewed.
func skipReason(file *model.FileChange, category FileCategory, opts FilterOptions) string {
	switch {
	case file.IsDeleted():
		return "deleted"
	case file.IsBinary || category == CategoryBinary:
		return "binary"
	// Hosts omit the patch of large files but still report additions; those go to full-content review.
	case file.Patch == "" && file.Content == "" && file.Additions == 0:
		return "empty patch"
	case isExcludedPath(file.Filename, opts.ExcludedPaths):
		return "excluded path"
	case opts.SkipAutoGenerated && category == CategoryGenerated:
		return "generated"
	case opts.SkipDocs && category == CategoryDoc:
		return "documentation"
	case opts.SkipTests && category == CategoryTest:
		return "test"
	case opts.MaxFileSize > 0 && len(file.Patch) > opts.MaxFileSize:
		return "too large"
	case opts.SkipWhitespace && file.Patch != "" && diffparser.Parse(file.Patch).WhitespaceOnly():
		return "whitespace only"
	}
	return ""
}

// FilterFiles returns the reviewable subsequence of files in their original order.
func FilterFiles(files []*model.FileChange, opts FilterOptions) []*model.FileChange {
	return filterFiles(files, opts, logze.With("component", "filter"), false)
}

func filterFiles(files []*model.FileChange, opts FilterOptions, log logze.Logger, verbose bool) []*model.FileChange {
	out := make([]*model.FileChange, 0, len(files))

	for _, file := range files {
		if file == nil {
			continue
		}
		category := Categorize(file.Filename)

		if reason := skipReason(file, category, opts); reason != "" {
			log.DebugIf(verbose, "skipping file", "file", file.Filename, "category", category, "reason", reason)
			continue
		}

		if opts.MaxFiles > 0 && len(out) >= opts.MaxFiles {
			log.Warn("reached maximum files limit", "limit", opts.MaxFiles, "file", file.Filename)
			break
		}

		log.DebugIf(verbose, "adding to review", "file", file.Filename, "category", category)
		out = append(out, file)
	}

	return out
}
