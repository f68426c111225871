package processor

import "regexp"

// MySQL error 1054 reads: Unknown column 'foo' in 'field list'. Some
// hosted frontends rephrase it as "unknown column named 'foo'", so the
// pattern tolerates the extra word and is case-insensitive.
var unknownColumnPattern = regexp.MustCompile(`(?i)unknown column (?:named )?'([^']+)'`)

// MySQLErrorClassifier classifies errors produced by a MySQL-compatible
// store by pattern-matching the message text.
type MySQLErrorClassifier struct{}

var _ ErrorClassifier = MySQLErrorClassifier{}

func NewMySQLErrorClassifier() MySQLErrorClassifier {
	return MySQLErrorClassifier{}
}

// Classify returns ErrorKindUnknownColumn plus the column name when the
// error is a single-column schema rejection, ErrorKindOther otherwise.
func (MySQLErrorClassifier) Classify(err error) (ErrorKind, string) {
	if err == nil {
		return ErrorKindOther, ""
	}
	m := unknownColumnPattern.FindStringSubmatch(err.Error())
	if len(m) == 2 && m[1] != "" {
		return ErrorKindUnknownColumn, m[1]
	}
	return ErrorKindOther, ""
}
