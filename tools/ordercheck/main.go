// Command ordercheck flags direct access to a mapped log's raw bytes from
// outside the files that implement the ordering discipline: the frame-
// length word must always be written last and with an ordered store, which
// only the unblocker, the buffer-cleaning code, and the log layout code
// itself are allowed to touch directly.
package main

import (
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
)

// allowedFiles may call MappedLog.Bytes/TermBytes/MetadataBytes directly.
// Everything else must go through Publication's own methods.
var allowedFiles = map[string]bool{
	"logbuffer.go":               true,
	"mapper.go":                  true,
	"unblocker.go":               true,
	"publication.go":             true,
	"publication_flowcontrol.go": true,
}

var rawAccessors = map[string]bool{
	"Bytes":         true,
	"TermBytes":     true,
	"MetadataBytes": true,
}

func main() {
	dir := flag.String("dir", ".", "directory to analyze")
	flag.Parse()

	var issues []string

	err := filepath.Walk(*dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		issues = append(issues, checkFile(path)...)
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "ordercheck: %v\n", err)
		os.Exit(1)
	}

	for _, issue := range issues {
		fmt.Println(issue)
	}
	if len(issues) > 0 {
		os.Exit(1)
	}
}

func checkFile(filename string) []string {
	base := filepath.Base(filename)
	if allowedFiles[base] {
		return nil
	}

	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, filename, nil, parser.ParseComments)
	if err != nil {
		return nil
	}

	var issues []string
	ast.Inspect(node, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		if rawAccessors[sel.Sel.Name] {
			pos := fset.Position(sel.Pos())
			issues = append(issues, fmt.Sprintf("%s:%d:%d: raw %s() access outside the ordering-discipline files is forbidden",
				filename, pos.Line, pos.Column, sel.Sel.Name))
		}
		return true
	})
	return issues
}
