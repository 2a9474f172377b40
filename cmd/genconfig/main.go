// Package main implements the genconfig tool that writes config.default.toml
// from config.ExampleConfig, annotated with config.ConfigDocs.
//
// It is invoked by go generate via the directive in internal/config/config.go.
package main

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/sigflag/internal/config"
)

// outPath is relative to internal/config, where go generate runs.
const outPath = "../../config.default.toml"

func main() {
	result, err := render(config.ExampleConfig(), config.ConfigDocs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "render: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(outPath, []byte(result), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", outPath, err)
		os.Exit(1)
	}
	fmt.Println("wrote config.default.toml")
}

// ///////////////////////////////////////////////
// Rendering
// ///////////////////////////////////////////////

// annotator accumulates output lines while walking the encoded TOML.
type annotator struct {
	docs    map[string]config.FieldDoc
	out     []string
	section []string
	emitted map[string]bool
}

// render encodes cfg and interleaves doc comments, section banners and
// commented-out alternatives. Documented keys the encoder omitted are emitted
// as comments at the end of their section.
func render(cfg *config.Config, docs map[string]config.FieldDoc) (string, error) {
	var raw bytes.Buffer
	if err := toml.NewEncoder(&raw).Encode(cfg); err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	a := &annotator{docs: docs, emitted: map[string]bool{}}
	a.add(
		"# ///////////////////////////////////////////////",
		"# sigflag Configuration",
		"# ///////////////////////////////////////////////",
		"",
	)

	for _, line := range strings.Split(raw.String(), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
		case strings.HasPrefix(trimmed, "[") && !strings.HasPrefix(trimmed, "[["):
			a.sectionHeader(trimmed)
		case strings.HasPrefix(trimmed, "#") || !strings.Contains(trimmed, "="):
			a.add(trimmed)
		default:
			a.keyValue(trimmed)
		}
	}
	a.flushOmitted()

	return strings.TrimRight(strings.Join(a.out, "\n"), "\n") + "\n", nil
}

func (a *annotator) add(lines ...string) {
	a.out = append(a.out, lines...)
}

// comment appends each line of text as a TOML comment.
func (a *annotator) comment(text string) {
	if text == "" {
		return
	}
	for _, l := range strings.Split(text, "\n") {
		a.add("# " + l)
	}
}

func (a *annotator) sectionHeader(header string) {
	a.flushOmitted()

	name := strings.Trim(header, "[] ")
	a.section = parseSectionPath(name)
	a.add("", fmt.Sprintf("# ///// %s /////", sectionName(name)), "")
	a.comment(a.docs[name].Comment)
	a.add(header)
}

func (a *annotator) keyValue(line string) {
	key := strings.TrimSpace(strings.SplitN(line, "=", 2)[0])
	path := key
	if len(a.section) > 0 {
		path = strings.Join(a.section, ".") + "." + key
	}
	a.emitted[path] = true

	doc := a.docs[path]
	a.comment(doc.Comment)
	a.add(line)
	for _, alt := range doc.Alternatives {
		a.add("# " + alt)
	}
}

// flushOmitted emits documented keys of the current section that the encoder
// skipped, sorted for deterministic output.
func (a *annotator) flushOmitted() {
	if len(a.section) == 0 {
		return
	}
	prefix := strings.Join(a.section, ".") + "."

	var omitted []string
	for path := range a.docs {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok || strings.Contains(rest, ".") || a.emitted[path] {
			continue
		}
		omitted = append(omitted, path)
	}
	sort.Strings(omitted)

	for _, path := range omitted {
		doc := a.docs[path]
		a.add("")
		a.comment(doc.Comment)
		for _, alt := range doc.Alternatives {
			a.add("# " + alt)
		}
		a.emitted[path] = true
	}
}

// parseSectionPath splits a dotted TOML section header into its segments.
func parseSectionPath(section string) []string {
	return strings.Split(section, ".")
}

// sectionName returns the last dotted segment of section with its first
// letter capitalised: "behavior" -> "Behavior".
func sectionName(section string) string {
	parts := strings.Split(section, ".")
	last := parts[len(parts)-1]
	if last == "" {
		return ""
	}
	return strings.ToUpper(last[:1]) + last[1:]
}
