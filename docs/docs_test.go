package docs

import (
	"bufio"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/swaggo/swag"
)

type operation struct {
	Summary string `json:"summary"`
}

type document struct {
	Paths       map[string]map[string]operation `json:"paths"`
	Definitions map[string]struct {
		Properties map[string]json.RawMessage `json:"properties"`
	} `json:"definitions"`
}

func readDocument(t *testing.T) document {
	t.Helper()

	raw, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	if err != nil {
		t.Fatalf("read doc: %v", err)
	}
	var doc document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("doc is not valid json: %v", err)
	}
	return doc
}

var (
	summaryLine = regexp.MustCompile(`^//\s+@Summary\s+(.+)$`)
	routerLine  = regexp.MustCompile(`^//\s+@Router\s+(\S+)\s+\[(\w+)\]$`)
)

// handlerAnnotations maps "METHOD path" to the @Summary of the handler
func handlerAnnotations(t *testing.T) map[string]string {
	t.Helper()

	found := make(map[string]string)
	err := filepath.WalkDir("../internal", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		var summary string
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if m := summaryLine.FindStringSubmatch(line); m != nil {
				summary = strings.TrimSpace(m[1])
			}
			if m := routerLine.FindStringSubmatch(line); m != nil {
				found[strings.ToUpper(m[2])+" "+m[1]] = summary
			}
		}
		return scanner.Err()
	})
	if err != nil {
		t.Fatalf("scan handlers: %v", err)
	}
	return found
}

func TestDocMatchesHandlerAnnotations(t *testing.T) {
	doc := readDocument(t)
	annotations := handlerAnnotations(t)
	if len(annotations) == 0 {
		t.Fatal("no annotated handlers found")
	}

	documented := 0
	for path, ops := range doc.Paths {
		for method, op := range ops {
			documented++
			key := strings.ToUpper(method) + " " + path
			want, ok := annotations[key]
			if !ok {
				t.Errorf("%s is documented but has no annotated handler", key)
				continue
			}
			if op.Summary != want {
				t.Errorf("%s summary = %q, handler says %q", key, op.Summary, want)
			}
		}
	}
	if documented != len(annotations) {
		t.Errorf("documented %d operations, handlers annotate %d", documented, len(annotations))
	}
}

func TestDocUserDefinitionUsesCamelCase(t *testing.T) {
	doc := readDocument(t)

	for _, name := range []string{"user.User", "auth.Identity"} {
		props := doc.Definitions[name].Properties
		for _, key := range []string{"isApproved", "isEmailVerified"} {
			if _, ok := props[key]; !ok {
				t.Errorf("%s is missing %q", name, key)
			}
		}
		for key := range props {
			if strings.Contains(key, "_") {
				t.Errorf("%s has snake_case key %q", name, key)
			}
		}
	}
}
