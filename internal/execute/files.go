// File: internal/execute/files.go
package execute

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/okazakidev/adjutant/api/schemas"
)

// maxReadBytes is the ceiling for read_file. Files above it are refused
// outright; content is never partially read.
const maxReadBytes = 100 * 1024

func (e *Executor) createFolder(name string) schemas.Result {
	target, err := e.sandbox.Resolve(name)
	if err != nil {
		return schemas.Failure(schemas.ActionCreateFolder, schemas.FailureSandbox, err.Error())
	}
	// MkdirAll is idempotent: an existing directory is not an error.
	if err := os.MkdirAll(target, 0o755); err != nil {
		return schemas.Failure(schemas.ActionCreateFolder, schemas.FailureInternal, err.Error())
	}
	return schemas.Success(schemas.ActionCreateFolder, fmt.Sprintf("Created folder in workspace: %s", name))
}

func (e *Executor) writeFile(filename, content string) schemas.Result {
	target, err := e.sandbox.Resolve(filename)
	if err != nil {
		return schemas.Failure(schemas.ActionWriteFile, schemas.FailureSandbox, err.Error())
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return schemas.Failure(schemas.ActionWriteFile, schemas.FailureInternal, err.Error())
	}
	// Overwrite semantics: no append mode, no conflict detection.
	if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
		return schemas.Failure(schemas.ActionWriteFile, schemas.FailureInternal, err.Error())
	}
	return schemas.Success(schemas.ActionWriteFile, fmt.Sprintf("Saved file to workspace: %s", filename))
}

func (e *Executor) readFile(filename string) schemas.Result {
	target, err := e.sandbox.Resolve(filename)
	if err != nil {
		return schemas.Failure(schemas.ActionReadFile, schemas.FailureSandbox, err.Error())
	}

	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return schemas.Failure(schemas.ActionReadFile, schemas.FailureInternal,
				fmt.Sprintf("file not found: %s", filename))
		}
		return schemas.Failure(schemas.ActionReadFile, schemas.FailureInternal, err.Error())
	}
	// Size gate before the read so oversized content is never loaded.
	if info.Size() > maxReadBytes {
		return schemas.Failure(schemas.ActionReadFile, schemas.FailureInternal,
			fmt.Sprintf("file %s is too large to read directly", filename))
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return schemas.Failure(schemas.ActionReadFile, schemas.FailureInternal, err.Error())
	}
	if !utf8.Valid(data) {
		return schemas.Failure(schemas.ActionReadFile, schemas.FailureInternal,
			fmt.Sprintf("file %s appears to be binary or non-utf-8", filename))
	}

	return schemas.Success(schemas.ActionReadFile,
		fmt.Sprintf("--- Content of %s ---\n%s\n--- End of File ---", filename, string(data)))
}

func (e *Executor) listDirectory() schemas.Result {
	entries, err := os.ReadDir(e.sandbox.Root())
	if err != nil {
		return schemas.Failure(schemas.ActionListDirectory, schemas.FailureInternal, err.Error())
	}
	if len(entries) == 0 {
		return schemas.Success(schemas.ActionListDirectory, "Workspace is empty.")
	}

	var b strings.Builder
	b.WriteString("Files in workspace:")
	for _, entry := range entries {
		b.WriteString("\n- ")
		b.WriteString(entry.Name())
	}
	return schemas.Success(schemas.ActionListDirectory, b.String())
}
