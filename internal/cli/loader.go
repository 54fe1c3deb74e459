package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/roach88/ecsgen/internal/compiler"
	"github.com/roach88/ecsgen/internal/engine"
	"github.com/roach88/ecsgen/internal/watch"
)

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult holds the compiled declaration files of a specs directory.
type LoadResult struct {
	Files        []engine.SourceFile
	FileCount    int
	Declarations int
}

// LoadError represents an error that occurred during loading.
type LoadError struct {
	Code    string
	Message string
	File    string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants, unified across all CLI commands.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeScanError     = "E002" // Directory scan error
	ErrCodeNoFiles       = "E003" // No declaration files found
	ErrCodeCompileFailed = "E004" // CUE compile failed
	ErrCodeNotFound      = "E005" // Path not found
	ErrCodeManifest      = "E006" // Manifest open/read failed
	ErrCodeWriteFailed   = "E007" // Output write error
	ErrCodeMalformed     = "E201" // Declaration recognised but malformed
)

// sourceName is the path of a file relative to the specs root, with
// forward slashes. Units and the manifest only ever see source names.
func sourceName(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// LoadSources compiles every declaration file the filter selects.
// With LoadModeCollectAll, files that fail to compile are skipped and
// their errors returned alongside the result.
func LoadSources(filter watch.Filter, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(filter.Root)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("specs directory not found: %s", filter.Root)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing specs directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", filter.Root)}}
	}

	paths, err := filter.Discover()
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(paths) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no %s files found in %s", filter.Extension, filter.Root)}}
	}

	ctx := cuecontext.New()
	result := &LoadResult{FileCount: len(paths)}
	var errs []error
	for _, p := range paths {
		f, err := LoadFile(ctx, filter.Root, p)
		if err != nil {
			errs = append(errs, err)
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Files = append(result.Files, f)
		result.Declarations += len(f.Declarations)
	}
	return result, errs
}

// LoadFile compiles one declaration file under its source name.
func LoadFile(ctx *cue.Context, root, path string) (engine.SourceFile, error) {
	name := sourceName(root, path)
	data, err := os.ReadFile(path)
	if err != nil {
		return engine.SourceFile{}, &LoadError{Code: ErrCodeNotFound, File: name, Message: err.Error()}
	}
	decls, err := compiler.CompileFile(ctx, name, data)
	if err != nil {
		return engine.SourceFile{}, convertCompileError(err, name)
	}
	return engine.SourceFile{Path: name, Declarations: decls}, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, file string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeCompileFailed,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			File:    file,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeCompileFailed,
		Message: err.Error(),
		File:    file,
	}
}
