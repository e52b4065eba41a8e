package executor

import "strings"

// Categorize classifies a raw tool error by its textual signature. The
// rule set is ordered: code signatures first, then permission, network
// and resource, so that e.g. "permission denied" inside a compiler note
// still categorizes as the more specific code error.
func Categorize(message string) *CategorizedError {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "cannot find module") ||
		strings.Contains(lower, "cannot find package") ||
		strings.Contains(lower, "cannot find crate") ||
		strings.Contains(lower, "module not found") ||
		strings.Contains(lower, "no required module provides package") ||
		strings.Contains(lower, "unresolved import"):
		return &CategorizedError{
			Category: CategoryCode,
			Subtype:  "missing_dependency",
			Message:  message,
		}

	case strings.Contains(lower, "undefined:") ||
		strings.Contains(lower, "undeclared name") ||
		strings.Contains(lower, "not found in scope") ||
		strings.Contains(lower, "use of undeclared"):
		return &CategorizedError{
			Category: CategoryCode,
			Subtype:  "missing_import",
			Message:  message,
		}

	case strings.Contains(lower, "type mismatch") ||
		strings.Contains(lower, "mismatched types") ||
		strings.Contains(lower, "cannot use") && strings.Contains(lower, "as") && strings.Contains(lower, "value"):
		return &CategorizedError{
			Category: CategoryCode,
			Subtype:  "type_error",
			Message:  message,
		}

	case strings.Contains(lower, "syntax error") ||
		strings.Contains(lower, "unexpected token") ||
		strings.Contains(lower, "expected ';'") ||
		strings.Contains(lower, "expected '}'"):
		return &CategorizedError{
			Category: CategoryCode,
			Subtype:  "syntax_error",
			Message:  message,
		}

	case strings.Contains(lower, "permission denied") ||
		strings.Contains(lower, "access denied") ||
		strings.Contains(lower, "operation not permitted") ||
		strings.Contains(lower, "eacces"):
		return &CategorizedError{
			Category: CategoryPermission,
			Resource: extractPath(message),
			Message:  message,
		}

	case strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "network unreachable") ||
		strings.Contains(lower, "host unreachable"):
		return &CategorizedError{
			Category:  CategoryNetwork,
			Transient: true,
			Message:   message,
		}

	case strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "timed out") ||
		strings.Contains(lower, "deadline exceeded"):
		return &CategorizedError{
			Category:  CategoryNetwork,
			Transient: true,
			Message:   message,
		}

	case strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "name resolution") ||
		strings.Contains(lower, "getaddrinfo"):
		// DNS failures rarely recover on retry.
		return &CategorizedError{
			Category: CategoryNetwork,
			Message:  message,
		}

	case strings.Contains(lower, "no space left") ||
		strings.Contains(lower, "disk full") ||
		strings.Contains(lower, "enospc") ||
		strings.Contains(lower, "disk quota"):
		return &CategorizedError{
			Category: CategoryResource,
			Subtype:  "disk_full",
			Message:  message,
		}

	case strings.Contains(lower, "out of memory") ||
		strings.Contains(lower, "cannot allocate") ||
		strings.Contains(lower, "enomem"):
		return &CategorizedError{
			Category: CategoryResource,
			Subtype:  "out_of_memory",
			Message:  message,
		}

	case strings.Contains(lower, "no such file") ||
		strings.Contains(lower, "file not found") ||
		strings.Contains(lower, "does not exist") ||
		strings.Contains(lower, "enoent"):
		return &CategorizedError{
			Category: CategoryResource,
			Subtype:  "not_found",
			Resource: extractPath(message),
			Message:  message,
		}

	default:
		return &CategorizedError{Category: CategoryUnknown, Message: message}
	}
}

// extractPath pulls a file path out of an error message: quoted paths
// first, then any whitespace-delimited token that looks like one.
func extractPath(message string) string {
	for _, quote := range []byte{'\'', '"'} {
		start := strings.IndexByte(message, quote)
		if start < 0 {
			continue
		}
		end := strings.IndexByte(message[start+1:], quote)
		if end < 0 {
			continue
		}
		candidate := message[start+1 : start+1+end]
		if strings.ContainsAny(candidate, `/\`) {
			return candidate
		}
	}

	for _, word := range strings.Fields(message) {
		if strings.HasPrefix(word, "/") {
			return strings.TrimRight(word, ":,.)")
		}
	}
	return ""
}
