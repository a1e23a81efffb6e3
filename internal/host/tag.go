package host

import "strings"

// CommandTag classifies a statement into the category string the engine
// matches rules against: the leading keyword, upper-cased, with the
// object kind appended for CREATE/DROP/ALTER ("DROP TABLE", "CREATE
// INDEX"). Transaction-control synonyms normalize to BEGIN, START
// TRANSACTION, COMMIT and ROLLBACK.
func CommandTag(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	trimmed = strings.TrimSuffix(trimmed, ";")
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return ""
	}

	first := strings.ToUpper(fields[0])
	second := ""
	if len(fields) > 1 {
		second = strings.ToUpper(fields[1])
	}

	switch first {
	case "BEGIN":
		return "BEGIN"
	case "START":
		if second == "TRANSACTION" {
			return "START TRANSACTION"
		}
	case "END":
		return "COMMIT"
	case "ABORT":
		return "ROLLBACK"
	case "CREATE", "DROP", "ALTER":
		if second == "UNIQUE" && len(fields) > 2 {
			return first + " " + strings.ToUpper(fields[2])
		}
		if second != "" {
			return first + " " + second
		}
	}
	return first
}

// isPlannable routes a statement to the planning-stage hook; everything
// else goes through the utility stage.
func isPlannable(tag string) bool {
	switch tag {
	case "SELECT", "INSERT", "UPDATE", "DELETE":
		return true
	}
	return false
}

// isTxnControl marks statements the session's transaction bookkeeping
// handles itself; they never get an implicit statement transaction.
func isTxnControl(tag string) bool {
	switch tag {
	case "BEGIN", "START TRANSACTION", "COMMIT", "ROLLBACK":
		return true
	}
	return false
}
