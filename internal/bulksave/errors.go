package bulksave

import (
	"fmt"
	"strings"
)

// ParseError is a malformed batch. Nothing has run when it is returned.
type ParseError struct {
	Path    string // e.g. "save[2]"; empty for request level problems
	Message string
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

func parseErrorf(path, format string, args ...any) *ParseError {
	return &ParseError{Path: path, Message: fmt.Sprintf(format, args...)}
}

// UnresolvableError reports save items whose references could not be
// resolved in a full pass. It points at a defect in the caller's batch or the
// catalog, not at bad user input.
type UnresolvableError struct {
	Items []*Item
}

func (e *UnresolvableError) Error() string {
	lines := make([]string, len(e.Items))
	for i, it := range e.Items {
		lines[i] = it.Type + " " + describeIdentity(it)
	}
	return "Unable to resolve one or more references for bulk save in the following entities:\n " +
		strings.Join(lines, "\n")
}

func describeIdentity(it *Item) string {
	if pk := it.PrimaryKey(); pk != nil {
		return fmt.Sprint(pk)
	}
	ref := ""
	if r, ok := it.PrimaryRef(); ok {
		ref = fmt.Sprint(r)
	}
	return fmt.Sprintf("(refs.%s: %s)", it.PrimaryRefName(), ref)
}
