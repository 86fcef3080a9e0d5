package jobs

import (
	"fmt"
	"strings"
)

// Kind identifies which maintenance task a worker runs.
type Kind string

const (
	KindScan   Kind = "scan"
	KindUpdate Kind = "update"
	KindModify Kind = "modify"
)

// Kinds lists every job kind in display order.
func Kinds() []Kind {
	return []Kind{KindScan, KindUpdate, KindModify}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindScan, KindUpdate, KindModify:
		return true
	}
	return false
}

// ParseKind converts user input into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}
