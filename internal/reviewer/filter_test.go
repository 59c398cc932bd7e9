package reviewer

import (
	"testing"

	"github.com/maxbolgarin/revline/internal/model"
	"github.com/stretchr/testify/assert"
)

const simplePatch = "@@ -1,1 +1,2 @@\n a\n+b\n"

func file(name string) *model.FileChange {
	return &model.FileChange{Filename: name, Status: model.FileStatusModified, Patch: simplePatch, Additions: 1}
}

func names(files []*model.FileChange) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Filename)
	}
	return out
}

func TestCategorize(t *testing.T) {
	tests := map[string]FileCategory{
		"cmd/main.go":                    CategorySource,
		"internal/x/x_test.go":           CategoryTest,
		"web/src/app.spec.ts":            CategoryTest,
		"tests/test_api.py":              CategoryTest,
		"src/__tests__/button.jsx":       CategoryTest,
		"README.md":                      CategoryDoc,
		"docs/guide.rst":                 CategoryDoc,
		"package-lock.json":              CategoryGenerated,
		"web/dist/app.js":                CategoryGenerated,
		"vendor/github.com/x/y.go":       CategoryGenerated,
		"static/jquery.min.js":           CategoryGenerated,
		"api/service.pb.go":              CategoryGenerated,
		"internal/mock_generated.go":     CategoryGenerated,
		"config/app.yaml":                CategoryConfig,
		"Dockerfile":                     CategoryConfig,
		"assets/logo.png":                CategoryBinary,
		"node_modules/react/index.js":    CategoryGenerated,
		"pkg/build/builder_generated.go": CategoryGenerated,
		"requirements.txt":               CategoryConfig,
		"CMakeLists.txt":                 CategoryConfig,
		"LICENSE.txt":                    CategoryDoc,
		"testdata/golden.txt":            CategorySource,
	}

	for path, want := range tests {
		assert.Equal(t, want, Categorize(path), path)
	}
}

func TestFilterFiles_AlwaysSkipped(t *testing.T) {
	deleted := file("gone.go")
	deleted.Status = model.FileStatusRemoved
	binary := file("blob.go")
	binary.IsBinary = true
	empty := file("empty.go")
	empty.Patch = ""
	empty.Additions = 0
	image := file("logo.png")

	out := FilterFiles([]*model.FileChange{deleted, file("a.go"), binary, empty, image, nil}, FilterOptions{})

	assert.Equal(t, []string{"a.go"}, names(out))
}

func TestFilterFiles_LargeFileWithoutPatchKept(t *testing.T) {
	big := file("big.go")
	big.Patch = ""
	big.Additions = 5000

	out := FilterFiles([]*model.FileChange{big}, FilterOptions{})

	assert.Equal(t, []string{"big.go"}, names(out))
}

func TestFilterFiles_Options(t *testing.T) {
	files := []*model.FileChange{
		file("main.go"),
		file("main_test.go"),
		file("README.md"),
		file("yarn.lock"),
		file("internal/app.go"),
	}

	tests := []struct {
		name string
		opts FilterOptions
		want []string
	}{
		{"none", FilterOptions{}, []string{"main.go", "main_test.go", "README.md", "yarn.lock", "internal/app.go"}},
		{"generated", FilterOptions{SkipAutoGenerated: true}, []string{"main.go", "main_test.go", "README.md", "internal/app.go"}},
		{"docs", FilterOptions{SkipDocs: true}, []string{"main.go", "main_test.go", "yarn.lock", "internal/app.go"}},
		{"tests", FilterOptions{SkipTests: true}, []string{"main.go", "README.md", "yarn.lock", "internal/app.go"}},
		{"all", FilterOptions{SkipAutoGenerated: true, SkipDocs: true, SkipTests: true}, []string{"main.go", "internal/app.go"}},
		{"excluded", FilterOptions{ExcludedPaths: []string{"internal/"}}, []string{"main.go", "main_test.go", "README.md", "yarn.lock"}},
		{"excluded glob", FilterOptions{ExcludedPaths: []string{"*.md"}}, []string{"main.go", "main_test.go", "yarn.lock", "internal/app.go"}},
		{"max files", FilterOptions{MaxFiles: 2}, []string{"main.go", "main_test.go"}},
		{"max size", FilterOptions{MaxFileSize: 5}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(FilterFiles(files, tt.opts)))
		})
	}
}

func TestFilterFiles_Whitespace(t *testing.T) {
	ws := file("fmt.go")
	ws.Patch = "@@ -1,1 +1,1 @@\n-\tx := 1\n+    x := 1\n"

	out := FilterFiles([]*model.FileChange{ws, file("real.go")}, FilterOptions{SkipWhitespace: true})
	assert.Equal(t, []string{"real.go"}, names(out))

	out = FilterFiles([]*model.FileChange{ws, file("real.go")}, FilterOptions{})
	assert.Equal(t, []string{"fmt.go", "real.go"}, names(out))
}
